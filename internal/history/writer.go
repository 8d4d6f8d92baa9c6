package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"crypto-sheet-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Row is one symbol's snapshot from a completed cycle.
type Row struct {
	Time     time.Time
	Symbol   string
	Price    float64
	Close    float64
	HasClose bool
}

// Writer persists cycle snapshots to Postgres/TimescaleDB off the cycle
// path: batches are queued on a channel and written by a background
// goroutine, so a slow database never delays the next cycle.
type Writer struct {
	db      *sql.DB
	log     *zap.Logger
	schema  string
	batches chan []Row
	started atomic.Bool
	dropped atomic.Uint64
}

// New returns (nil, nil) when history is disabled; a nil *Writer is safe
// to use and does nothing.
func New(cfg config.HistoryConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("history dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:      db,
		log:     log,
		schema:  schema,
		batches: make(chan []Row, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// Enqueue queues one cycle's rows. Batches are dropped when the queue is
// full; only the first drop is logged.
func (w *Writer) Enqueue(rows []Row) {
	if w == nil || len(rows) == 0 {
		return
	}
	select {
	case w.batches <- rows:
		return
	default:
		if w.dropped.Add(1) == 1 && w.log != nil {
			w.log.Warn("history queue full, dropping cycle snapshot")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rows := <-w.batches:
			w.writeRows(ctx, rows)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("history db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		close DOUBLE PRECISION,
		PRIMARY KEY (ts, symbol)
	)`, w.table("price_snapshots"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("price_snapshots"))); err != nil && w.log != nil {
		w.log.Warn("price_snapshots hypertable create failed", zap.Error(err))
	}
	return nil
}

func (w *Writer) writeRows(ctx context.Context, rows []Row) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (ts, symbol, price, close) VALUES ($1,$2,$3,$4)
	ON CONFLICT (ts, symbol) DO UPDATE SET
		price = EXCLUDED.price,
		close = EXCLUDED.close`, w.table("price_snapshots"))
	for _, row := range rows {
		var close sql.NullFloat64
		if row.HasClose {
			close = sql.NullFloat64{Float64: row.Close, Valid: true}
		}
		if _, err := w.db.ExecContext(ctx, query, row.Time, row.Symbol, row.Price, close); err != nil {
			if w.log != nil {
				w.log.Warn("history insert failed", zap.String("symbol", row.Symbol), zap.Error(err))
			}
			return
		}
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
