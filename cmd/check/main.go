package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"crypto-sheet-bot/internal/binance"
	"crypto-sheet-bot/internal/config"
	"crypto-sheet-bot/internal/logging"
	"crypto-sheet-bot/internal/sheets"
	"crypto-sheet-bot/internal/state/sqlite"
	"crypto-sheet-bot/internal/tracker"
)

const (
	defaultBaseURL     = "https://api.binance.com"
	defaultTimeout     = 10 * time.Second
	defaultQuoteSuffix = "USDT"
	defaultConcurrency = 16
	defaultEnvFile     = ".env"
)

func main() {
	configPath := flag.String("config", "", "optional config path")
	dryRun := flag.Bool("dry-run", false, "print the grid instead of writing the sheet")
	showJournal := flag.Bool("journal", false, "print the latest journal entry and exit")
	flag.Parse()

	if err := config.LoadEnv(defaultEnvFile); err != nil {
		fatal(err)
	}

	logCfg := config.LoggingConfig{Level: "info"}
	exCfg := config.ExchangeConfig{
		BaseURL:     defaultBaseURL,
		Timeout:     defaultTimeout,
		QuoteSuffix: defaultQuoteSuffix,
	}
	concurrency := defaultConcurrency
	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
		logCfg = cfg.Log
		exCfg = cfg.Exchange
		concurrency = cfg.Poll.Concurrency
	}

	log := logging.New(logCfg)
	defer func() { _ = log.Sync() }()
	ctx := context.Background()

	if *showJournal {
		if cfg == nil {
			fatal(fmt.Errorf("-journal requires -config"))
		}
		printJournal(ctx, cfg.Journal.SQLitePath)
		return
	}

	var sink tracker.Sink = stdoutSink{}
	if !*dryRun {
		if cfg == nil {
			fatal(fmt.Errorf("writing the sheet requires -config (use -dry-run to print instead)"))
		}
		writer, err := sheets.NewWriter(ctx, cfg.Sheets, log)
		if err != nil {
			fatal(err)
		}
		sink = writer
	}

	exchange := binance.New(exCfg, log)
	tr := tracker.New(exchange, sink, concurrency, log)
	res, err := tr.RunCycle(ctx)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("cycle ok: symbols=%d took=%s at=%s\n", len(res.Rows), res.Took.Round(time.Millisecond), res.At.Format(time.RFC3339))
}

func printJournal(ctx context.Context, path string) {
	journal, err := sqlite.New(path)
	if err != nil {
		fatal(err)
	}
	defer journal.Close()
	rec, ok, err := journal.LastCycle(ctx)
	if err != nil {
		fatal(err)
	}
	if !ok {
		fmt.Println("journal is empty")
		return
	}
	fmt.Printf("last cycle: at=%s symbols=%d took=%s\n", rec.At.Format(time.RFC3339), rec.Symbols, rec.Took.Round(time.Millisecond))
	for _, row := range rec.Rows {
		close := tracker.CloseUnavailable
		if row.HasClose {
			close = fmt.Sprintf("%g", row.Close)
		}
		fmt.Printf("  %s\tprice=%g\tclose=%s\n", row.Symbol, row.Price, close)
	}
}

// stdoutSink prints the grid as tab-separated rows for dry runs.
type stdoutSink struct{}

func (stdoutSink) Write(ctx context.Context, grid [][]any) error {
	for _, row := range grid {
		for i, cell := range row {
			if i > 0 {
				fmt.Print("\t")
			}
			fmt.Print(cell)
		}
		fmt.Println()
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
