package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto-sheet-bot/internal/config"

	"go.uber.org/zap"
)

const (
	pathExchangeInfo = "/api/v3/exchangeInfo"
	pathTickerPrice  = "/api/v3/ticker/price"
	pathKlines       = "/api/v3/klines"

	closeWindow = 24 * time.Hour
)

// Client talks to the exchange's public REST API. All requests share one
// underlying http.Client, so the aggregation fan-out reuses connections.
type Client struct {
	baseURL     string
	quoteSuffix string
	http        *http.Client
	log         *zap.Logger
	now         func() time.Time
}

func New(cfg config.ExchangeConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		quoteSuffix: cfg.QuoteSuffix,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
		now: time.Now,
	}
}

// ListQuotePairs returns every symbol quoted in the configured suffix,
// in the order the exchange returns them.
func (c *Client) ListQuotePairs(ctx context.Context) ([]string, error) {
	var info struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
		} `json:"symbols"`
	}
	if err := c.getJSON(ctx, pathExchangeInfo, nil, &info); err != nil {
		return nil, err
	}
	if info.Symbols == nil {
		return nil, &ParseError{Endpoint: pathExchangeInfo, Err: errors.New("missing symbols field")}
	}
	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if strings.HasSuffix(s.Symbol, c.quoteSuffix) {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

// CurrentPrice returns the last traded price for one symbol.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	query := url.Values{"symbol": {symbol}}
	var ticker struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := c.getJSON(ctx, pathTickerPrice, query, &ticker); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, &ParseError{Endpoint: pathTickerPrice, Err: fmt.Errorf("price %q for %s: %w", ticker.Price, symbol, err)}
	}
	return price, nil
}

// PreviousClose returns the close of the single daily candle covering the
// last 24 hours. An empty candle array means no close is available; the
// second return value is false in that case.
func (c *Client) PreviousClose(ctx context.Context, symbol string) (float64, bool, error) {
	end := c.now().UTC()
	start := end.Add(-closeWindow)
	query := url.Values{
		"symbol":    {symbol},
		"interval":  {"1d"},
		"startTime": {strconv.FormatInt(start.UnixMilli(), 10)},
		"endTime":   {strconv.FormatInt(end.UnixMilli(), 10)},
		"limit":     {"1"},
	}
	var candles [][]any
	if err := c.getJSON(ctx, pathKlines, query, &candles); err != nil {
		return 0, false, err
	}
	if len(candles) == 0 {
		return 0, false, nil
	}
	// Kline layout: open time, open, high, low, close, volume, ...
	candle := candles[0]
	if len(candle) < 5 {
		return 0, false, &ParseError{Endpoint: pathKlines, Err: fmt.Errorf("short candle for %s: %d fields", symbol, len(candle))}
	}
	raw, ok := candle[4].(string)
	if !ok {
		return 0, false, &ParseError{Endpoint: pathKlines, Err: fmt.Errorf("close for %s is %T, want string", symbol, candle[4])}
	}
	close, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, &ParseError{Endpoint: pathKlines, Err: fmt.Errorf("close %q for %s: %w", raw, symbol, err)}
	}
	return close, true, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &NetworkError{Endpoint: path, Err: fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ParseError{Endpoint: path, Err: err}
	}
	return nil
}
