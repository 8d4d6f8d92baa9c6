package tracker

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"
)

type stubSource struct {
	symbols  []string
	prices   map[string]float64
	closes   map[string]float64
	priceErr map[string]error
	closeErr map[string]error
	jitter   time.Duration

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (s *stubSource) ListQuotePairs(ctx context.Context) ([]string, error) {
	return s.symbols, nil
}

func (s *stubSource) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	s.enter()
	defer s.leave()
	if err := s.priceErr[symbol]; err != nil {
		return 0, err
	}
	return s.prices[symbol], nil
}

func (s *stubSource) PreviousClose(ctx context.Context, symbol string) (float64, bool, error) {
	s.enter()
	defer s.leave()
	if err := s.closeErr[symbol]; err != nil {
		return 0, false, err
	}
	close, ok := s.closes[symbol]
	return close, ok, nil
}

func (s *stubSource) enter() {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()
	if s.jitter > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(s.jitter))))
	}
}

func (s *stubSource) leave() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}

func TestAggregateJoinsBySymbol(t *testing.T) {
	source := &stubSource{
		symbols: []string{"BTCUSDT", "ETHUSDT"},
		prices:  map[string]float64{"BTCUSDT": 70000.5, "ETHUSDT": 3500.25},
		closes:  map[string]float64{"BTCUSDT": 69000.0},
	}
	prices, closes, err := Aggregate(context.Background(), source, source.symbols, 4)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if prices["BTCUSDT"] != 70000.5 || prices["ETHUSDT"] != 3500.25 {
		t.Fatalf("unexpected prices: %v", prices)
	}
	if closes["BTCUSDT"] != 69000.0 {
		t.Fatalf("unexpected closes: %v", closes)
	}
	if _, ok := closes["ETHUSDT"]; ok {
		t.Fatalf("expected ETHUSDT close to be absent")
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	symbols := []string{"AUSDT", "BUSDT", "CUSDT", "DUSDT", "EUSDT"}
	prices := map[string]float64{"AUSDT": 1, "BUSDT": 2, "CUSDT": 3, "DUSDT": 4, "EUSDT": 5}
	closes := map[string]float64{"AUSDT": 0.9, "CUSDT": 2.8, "EUSDT": 4.7}

	var results []map[string]float64
	var closeResults []map[string]float64
	for run := 0; run < 5; run++ {
		source := &stubSource{
			symbols: symbols,
			prices:  prices,
			closes:  closes,
			jitter:  2 * time.Millisecond,
		}
		gotPrices, gotCloses, err := Aggregate(context.Background(), source, symbols, 3)
		if err != nil {
			t.Fatalf("aggregate run %d: %v", run, err)
		}
		results = append(results, gotPrices)
		closeResults = append(closeResults, gotCloses)
	}
	for i := 1; i < len(results); i++ {
		if !reflect.DeepEqual(results[0], results[i]) {
			t.Fatalf("price maps differ between runs: %v vs %v", results[0], results[i])
		}
		if !reflect.DeepEqual(closeResults[0], closeResults[i]) {
			t.Fatalf("close maps differ between runs: %v vs %v", closeResults[0], closeResults[i])
		}
	}
}

func TestAggregateFailsOnFirstError(t *testing.T) {
	wantErr := errors.New("boom")
	source := &stubSource{
		symbols:  []string{"BTCUSDT", "ETHUSDT"},
		prices:   map[string]float64{"BTCUSDT": 70000.5, "ETHUSDT": 3500.25},
		priceErr: map[string]error{"ETHUSDT": wantErr},
	}
	prices, closes, err := Aggregate(context.Background(), source, source.symbols, 4)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped boom error, got %v", err)
	}
	if prices != nil || closes != nil {
		t.Fatalf("expected no partial results, got %v / %v", prices, closes)
	}
}

func TestAggregateRespectsConcurrencyLimit(t *testing.T) {
	symbols := []string{"AUSDT", "BUSDT", "CUSDT", "DUSDT"}
	source := &stubSource{
		symbols: symbols,
		prices:  map[string]float64{"AUSDT": 1, "BUSDT": 2, "CUSDT": 3, "DUSDT": 4},
		closes:  map[string]float64{},
		jitter:  time.Millisecond,
	}
	if _, _, err := Aggregate(context.Background(), source, symbols, 2); err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	source.mu.Lock()
	max := source.maxInFlight
	source.mu.Unlock()
	if max > 2 {
		t.Fatalf("expected at most 2 concurrent requests, saw %d", max)
	}
}

func TestAggregateEmptySymbols(t *testing.T) {
	source := &stubSource{}
	prices, closes, err := Aggregate(context.Background(), source, nil, 4)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(prices) != 0 || len(closes) != 0 {
		t.Fatalf("expected empty maps, got %v / %v", prices, closes)
	}
}
