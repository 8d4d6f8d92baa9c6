package sqlite

import (
	"context"
	"testing"
	"time"

	"crypto-sheet-bot/internal/state"
)

func TestJournalRoundTrip(t *testing.T) {
	journal, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	defer journal.Close()

	ctx := context.Background()
	_, ok, err := journal.LastCycle(ctx)
	if err != nil {
		t.Fatalf("last cycle on empty journal: %v", err)
	}
	if ok {
		t.Fatalf("expected no record in empty journal")
	}

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := state.CycleRecord{
		At:      at,
		Took:    1500 * time.Millisecond,
		Symbols: 2,
		Rows: []state.RowSnapshot{
			{Symbol: "BTCUSDT", Price: 70000.5, Close: 69000.0, HasClose: true},
			{Symbol: "ETHUSDT", Price: 3500.25, HasClose: false},
		},
	}
	if err := journal.RecordCycle(ctx, rec); err != nil {
		t.Fatalf("record cycle: %v", err)
	}

	got, ok, err := journal.LastCycle(ctx)
	if err != nil {
		t.Fatalf("last cycle: %v", err)
	}
	if !ok {
		t.Fatalf("expected a record")
	}
	if !got.At.Equal(at) {
		t.Fatalf("expected at %v, got %v", at, got.At)
	}
	if got.Took != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s took, got %v", got.Took)
	}
	if got.Symbols != 2 || len(got.Rows) != 2 {
		t.Fatalf("expected 2 symbols and rows, got %d / %d", got.Symbols, len(got.Rows))
	}
	if got.Rows[0].Symbol != "BTCUSDT" || got.Rows[0].Close != 69000.0 || !got.Rows[0].HasClose {
		t.Fatalf("unexpected first row: %+v", got.Rows[0])
	}
	if got.Rows[1].HasClose {
		t.Fatalf("expected second row close to be absent")
	}
}

func TestJournalLastCycleReturnsLatest(t *testing.T) {
	journal, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	defer journal.Close()

	ctx := context.Background()
	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)
	for _, at := range []time.Time{first, second} {
		if err := journal.RecordCycle(ctx, state.CycleRecord{At: at, Symbols: 1}); err != nil {
			t.Fatalf("record cycle: %v", err)
		}
	}
	got, ok, err := journal.LastCycle(ctx)
	if err != nil || !ok {
		t.Fatalf("last cycle: %v (ok=%v)", err, ok)
	}
	if !got.At.Equal(second) {
		t.Fatalf("expected latest record %v, got %v", second, got.At)
	}
}
