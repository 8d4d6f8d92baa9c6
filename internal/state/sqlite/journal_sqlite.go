package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"crypto-sheet-bot/internal/state"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

type Journal struct {
	db *sql.DB
}

func New(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS cycles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		took_ms INTEGER NOT NULL,
		symbols INTEGER NOT NULL,
		snapshot BLOB NOT NULL
	)`)
	return err
}

func (j *Journal) RecordCycle(ctx context.Context, rec state.CycleRecord) error {
	snapshot, err := msgpack.Marshal(rec.Rows)
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO cycles (at, took_ms, symbols, snapshot) VALUES (?, ?, ?, ?)`,
		rec.At.UnixMilli(), rec.Took.Milliseconds(), rec.Symbols, snapshot,
	)
	return err
}

func (j *Journal) LastCycle(ctx context.Context) (state.CycleRecord, bool, error) {
	var (
		atMS     int64
		tookMS   int64
		symbols  int
		snapshot []byte
	)
	err := j.db.QueryRowContext(ctx,
		`SELECT at, took_ms, symbols, snapshot FROM cycles ORDER BY id DESC LIMIT 1`,
	).Scan(&atMS, &tookMS, &symbols, &snapshot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return state.CycleRecord{}, false, nil
		}
		return state.CycleRecord{}, false, err
	}
	var rows []state.RowSnapshot
	if err := msgpack.Unmarshal(snapshot, &rows); err != nil {
		return state.CycleRecord{}, false, err
	}
	return state.CycleRecord{
		At:      time.UnixMilli(atMS).UTC(),
		Took:    time.Duration(tookMS) * time.Millisecond,
		Symbols: symbols,
		Rows:    rows,
	}, true, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}
