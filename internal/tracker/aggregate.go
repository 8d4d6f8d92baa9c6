package tracker

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// PriceSource is the slice of the exchange client the tracker needs.
type PriceSource interface {
	ListQuotePairs(ctx context.Context) ([]string, error)
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	PreviousClose(ctx context.Context, symbol string) (float64, bool, error)
}

// Aggregate issues one current-price and one previous-close request per
// symbol concurrently and joins them into two symbol-keyed maps. A symbol
// missing from the closes map had no candle data. The join is
// all-or-nothing: the first failed sub-request aborts the whole call.
//
// Each goroutine writes only its own index, and the maps are built after
// the join, so completion order never affects the result.
func Aggregate(ctx context.Context, source PriceSource, symbols []string, limit int) (map[string]float64, map[string]float64, error) {
	prices := make([]float64, len(symbols))
	closes := make([]float64, len(symbols))
	hasClose := make([]bool, len(symbols))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			price, err := source.CurrentPrice(ctx, symbol)
			if err != nil {
				return fmt.Errorf("current price for %s: %w", symbol, err)
			}
			prices[i] = price
			return nil
		})
		g.Go(func() error {
			close, ok, err := source.PreviousClose(ctx, symbol)
			if err != nil {
				return fmt.Errorf("previous close for %s: %w", symbol, err)
			}
			closes[i] = close
			hasClose[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	priceBySymbol := make(map[string]float64, len(symbols))
	closeBySymbol := make(map[string]float64, len(symbols))
	for i, symbol := range symbols {
		priceBySymbol[symbol] = prices[i]
		if hasClose[i] {
			closeBySymbol[symbol] = closes[i]
		}
	}
	return priceBySymbol, closeBySymbol, nil
}
