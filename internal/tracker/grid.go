package tracker

import "time"

// CloseUnavailable is written in place of a close price when the exchange
// returned no candle data for the symbol's window.
const CloseUnavailable = "N/A"

const timestampLayout = "2006-01-02 15:04:05"

var headerRow = []string{"Symbol", "Current Price", "Last Close Price", "Updated At"}

// BuildGrid renders the aggregated data as a rectangular grid: a header
// row followed by one row per symbol, in the fetched symbol order.
func BuildGrid(symbols []string, prices, closes map[string]float64, at time.Time) [][]any {
	grid := make([][]any, 0, len(symbols)+1)
	header := make([]any, len(headerRow))
	for i, h := range headerRow {
		header[i] = h
	}
	grid = append(grid, header)

	stamp := at.UTC().Format(timestampLayout)
	for _, symbol := range symbols {
		var closeCell any = CloseUnavailable
		if close, ok := closes[symbol]; ok {
			closeCell = close
		}
		grid = append(grid, []any{symbol, prices[symbol], closeCell, stamp})
	}
	return grid
}
