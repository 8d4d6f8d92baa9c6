package state

import (
	"context"
	"time"
)

// RowSnapshot is one written sheet row, kept for diagnostics.
type RowSnapshot struct {
	Symbol   string  `msgpack:"symbol"`
	Price    float64 `msgpack:"price"`
	Close    float64 `msgpack:"close"`
	HasClose bool    `msgpack:"has_close"`
}

// CycleRecord captures one successful cycle. The pipeline never reads the
// journal to decide anything; it exists for startup logging and cmd/check.
type CycleRecord struct {
	At      time.Time
	Took    time.Duration
	Symbols int
	Rows    []RowSnapshot
}

type Journal interface {
	RecordCycle(ctx context.Context, rec CycleRecord) error
	LastCycle(ctx context.Context) (CycleRecord, bool, error)
	Close() error
}
