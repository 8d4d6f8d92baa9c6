package tracker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Sink receives the rendered grid. The production sink is the Google
// Sheets writer; cmd/check swaps in a stdout printer for dry runs.
type Sink interface {
	Write(ctx context.Context, grid [][]any) error
}

// Row is one symbol's aggregated result for a cycle.
type Row struct {
	Symbol   string
	Price    float64
	Close    float64
	HasClose bool
}

// Result describes one completed cycle.
type Result struct {
	At   time.Time
	Took time.Duration
	Rows []Row
	Grid [][]any
}

// Tracker runs the fetch-aggregate-write cycle. Every cycle recomputes
// everything from a fresh symbol list; nothing carries over between
// cycles.
type Tracker struct {
	source PriceSource
	sink   Sink
	limit  int
	log    *zap.Logger
	now    func() time.Time
}

func New(source PriceSource, sink Sink, limit int, log *zap.Logger) *Tracker {
	return &Tracker{
		source: source,
		sink:   sink,
		limit:  limit,
		log:    log,
		now:    time.Now,
	}
}

// RunCycle fetches the symbol list, aggregates prices and closes, and
// writes the grid to the sink. If anything fails before the write, the
// sink is never touched, so a failed cycle cannot leave a partial grid.
func (t *Tracker) RunCycle(ctx context.Context) (*Result, error) {
	start := t.now()
	symbols, err := t.source.ListQuotePairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quote pairs: %w", err)
	}
	t.log.Debug("symbols fetched", zap.Int("count", len(symbols)))

	prices, closes, err := Aggregate(ctx, t.source, symbols, t.limit)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	at := t.now().UTC()
	grid := BuildGrid(symbols, prices, closes, at)
	if err := t.sink.Write(ctx, grid); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(symbols))
	for _, symbol := range symbols {
		close, ok := closes[symbol]
		rows = append(rows, Row{
			Symbol:   symbol,
			Price:    prices[symbol],
			Close:    close,
			HasClose: ok,
		})
	}
	return &Result{
		At:   at,
		Took: t.now().Sub(start),
		Rows: rows,
		Grid: grid,
	}, nil
}
