package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"crypto-sheet-bot/internal/alerts"
	"crypto-sheet-bot/internal/binance"
	"crypto-sheet-bot/internal/config"
	"crypto-sheet-bot/internal/history"
	"crypto-sheet-bot/internal/metrics"
	"crypto-sheet-bot/internal/sheets"
	"crypto-sheet-bot/internal/state"
	"crypto-sheet-bot/internal/state/sqlite"
	"crypto-sheet-bot/internal/tracker"

	"go.uber.org/zap"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

type cycleRunner interface {
	RunCycle(ctx context.Context) (*tracker.Result, error)
}

type App struct {
	cfg     *config.Config
	log     *zap.Logger
	tracker cycleRunner
	journal state.Journal
	history *history.Writer
	metrics *metrics.Metrics
	prom    *metrics.Prometheus
	alerts  *alerts.Telegram
	console io.Writer

	lastSuccess atomic.Int64
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Journal.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	journal, err := sqlite.New(cfg.Journal.SQLitePath)
	if err != nil {
		return nil, err
	}
	sheetWriter, err := sheets.NewWriter(ctx, cfg.Sheets, log)
	if err != nil {
		_ = journal.Close()
		return nil, err
	}
	exchange := binance.New(cfg.Exchange, log)
	hist, err := history.New(cfg.History, log)
	if err != nil {
		_ = journal.Close()
		return nil, err
	}
	m := metrics.NewNoop()
	var prom *metrics.Prometheus
	if cfg.Metrics.EnabledValue() {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}
	return &App{
		cfg:     cfg,
		log:     log,
		tracker: tracker.New(exchange, sheetWriter, cfg.Poll.Concurrency, log),
		journal: journal,
		history: hist,
		metrics: m,
		prom:    prom,
		alerts:  alerts.NewTelegram(cfg.Telegram, log),
		console: os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.journal.Close()
	defer a.history.Close()
	a.history.Start(ctx)
	a.startServer(ctx)

	if last, ok, err := a.journal.LastCycle(ctx); err != nil {
		a.log.Warn("journal read failed", zap.Error(err))
	} else if ok {
		a.log.Info("previous run found",
			zap.Time("at", last.At),
			zap.Int("symbols", last.Symbols),
			zap.Duration("took", last.Took),
		)
	}

	return loop(ctx, a.cfg.Poll.Pause, a.cycle)
}

// loop runs fn, sleeps pause, and repeats until ctx is cancelled. The
// pause starts when fn returns, so the effective period is pause plus
// however long the cycle took; cycles never overlap.
func loop(ctx context.Context, pause time.Duration, fn func(context.Context)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}
}

func (a *App) cycle(ctx context.Context) {
	res, err := a.tracker.RunCycle(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.metrics.CycleFailures.Inc()
		var writeErr *sheets.WriteError
		if errors.As(err, &writeErr) {
			a.metrics.SheetWriteFailures.Inc()
		} else {
			a.metrics.FetchFailures.Inc()
		}
		a.log.Warn("cycle failed", zap.Error(err))
		if alertErr := a.alerts.Send(ctx, fmt.Sprintf("Sheet update cycle failed: %v", err)); alertErr != nil {
			a.log.Warn("alert send failed", zap.Error(alertErr))
		}
		return
	}

	a.metrics.CyclesCompleted.Inc()
	a.metrics.SymbolsTracked.Set(float64(len(res.Rows)))
	a.lastSuccess.Store(res.At.UnixMilli())
	a.recordJournal(ctx, res)
	a.recordHistory(res)
	fmt.Fprintf(a.console, "[%s] Google Sheet updated successfully!\n", res.At.Format(consoleTimeLayout))
	a.log.Info("cycle completed",
		zap.Int("symbols", len(res.Rows)),
		zap.Duration("took", res.Took),
	)
}

func (a *App) recordJournal(ctx context.Context, res *tracker.Result) {
	rows := make([]state.RowSnapshot, 0, len(res.Rows))
	for _, row := range res.Rows {
		rows = append(rows, state.RowSnapshot{
			Symbol:   row.Symbol,
			Price:    row.Price,
			Close:    row.Close,
			HasClose: row.HasClose,
		})
	}
	rec := state.CycleRecord{
		At:      res.At,
		Took:    res.Took,
		Symbols: len(res.Rows),
		Rows:    rows,
	}
	if err := a.journal.RecordCycle(ctx, rec); err != nil {
		a.log.Warn("journal write failed", zap.Error(err))
	}
}

func (a *App) recordHistory(res *tracker.Result) {
	if a.history == nil {
		return
	}
	rows := make([]history.Row, 0, len(res.Rows))
	for _, row := range res.Rows {
		rows = append(rows, history.Row{
			Time:     res.At,
			Symbol:   row.Symbol,
			Price:    row.Price,
			Close:    row.Close,
			HasClose: row.HasClose,
		})
	}
	a.history.Enqueue(rows)
}
