package sheets

import (
	"context"
	"fmt"
	"strings"

	"crypto-sheet-bot/internal/config"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// WriteError covers transport or auth failures from the spreadsheet backend.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sheets: write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer overwrites a range anchored at the worksheet's top-left cell.
// Rows beyond the new grid's bounds are left untouched.
type Writer struct {
	values        *gsheets.SpreadsheetsValuesService
	spreadsheetID string
	worksheet     string
	log           *zap.Logger
}

func NewWriter(ctx context.Context, cfg config.SheetsConfig, log *zap.Logger) (*Writer, error) {
	srv, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Writer{
		values:        srv.Spreadsheets.Values,
		spreadsheetID: cfg.SpreadsheetID,
		worksheet:     cfg.Worksheet,
		log:           log,
	}, nil
}

func (w *Writer) Write(ctx context.Context, grid [][]any) error {
	body := &gsheets.ValueRange{Values: grid}
	rangeRef := anchorRange(w.worksheet)
	_, err := w.values.Update(w.spreadsheetID, rangeRef, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return &WriteError{Err: err}
	}
	w.log.Debug("sheet range updated",
		zap.String("range", rangeRef),
		zap.Int("rows", len(grid)),
	)
	return nil
}

// anchorRange builds an A1-anchored range reference, quoting the worksheet
// name so titles with spaces or symbols stay valid.
func anchorRange(worksheet string) string {
	escaped := strings.ReplaceAll(worksheet, "'", "''")
	return fmt.Sprintf("'%s'!A1", escaped)
}
