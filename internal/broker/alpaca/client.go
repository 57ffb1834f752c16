// Package alpaca implements the broker.DataProvider and broker.OrderExecutor
// capabilities against the Alpaca paper-trading REST API.
//
// Authentication uses static key/secret headers. HTTP 429 responses surface
// as *model.RateLimitError and are retried with bounded exponential backoff;
// other non-2xx responses surface as *model.BrokerError and are left to the
// caller's per-unit error policy.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fractional-trader/internal/backoff"
	"fractional-trader/internal/model"

	"fractional-trader/internal/broker"
)

const (
	defaultTradeURL = "https://paper-api.alpaca.markets"
	defaultDataURL  = "https://data.alpaca.markets"

	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 3 // per request, for rate-limit retries

	snapshotBatch = 100 // symbols per snapshots request
)

// Config configures the REST client.
type Config struct {
	APIKey    string
	APISecret string

	TradeURL string        // default: paper trading API
	DataURL  string        // default: market data API
	Timeout  time.Duration // default: 10s
}

// Client is a thin typed wrapper over the Alpaca REST endpoints the engine
// needs: assets, daily bars, account, and fractional orders.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

var _ broker.DataProvider = (*Client)(nil)
var _ broker.OrderExecutor = (*Client)(nil)

// NewClient creates a client with defaults applied.
func NewClient(cfg Config) *Client {
	if cfg.TradeURL == "" {
		cfg.TradeURL = defaultTradeURL
	}
	if cfg.DataURL == "" {
		cfg.DataURL = defaultDataURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	h.Set("APCA-API-KEY-ID", c.cfg.APIKey)
	h.Set("APCA-API-SECRET-KEY", c.cfg.APISecret)
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json")
	return h
}

// doRequest performs one HTTP round trip and decodes the JSON response into
// out. Rate limiting and broker rejections are mapped onto the engine's
// error taxonomy.
func (c *Client) doRequest(ctx context.Context, method, rawURL string, query url.Values, body any, out any) error {
	reqURL := rawURL
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, rd)
	if err != nil {
		return err
	}
	req.Header = c.headers()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.BrokerError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &model.BrokerError{Code: resp.StatusCode, Reason: "read response", Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &model.RateLimitError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &model.BrokerError{
			Code:   resp.StatusCode,
			Reason: apiMessage(raw, resp.StatusCode),
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &model.BrokerError{Code: resp.StatusCode, Reason: "unexpected response body", Err: err}
		}
	}
	return nil
}

// withRetry retries fn on rate-limit errors with exponential backoff, up to
// defaultMaxAttempts. The final RateLimitError is returned for the caller to
// downgrade at the batch boundary.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	bo := backoff.NewDefault()
	var err error
	for attempt := 0; attempt < defaultMaxAttempts; attempt++ {
		err = fn()
		var rle *model.RateLimitError
		if err == nil || !asRateLimit(err, &rle) {
			return err
		}
		wait := bo.Next()
		if rle.RetryAfter > 0 {
			wait = rle.RetryAfter
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

func asRateLimit(err error, target **model.RateLimitError) bool {
	rle, ok := err.(*model.RateLimitError)
	if ok {
		*target = rle
	}
	return ok
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func apiMessage(raw []byte, status int) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("http status %d", status)
}

// ---- Data provider ----

type assetJSON struct {
	Symbol       string `json:"symbol"`
	Class        string `json:"class"`
	Status       string `json:"status"`
	Tradable     bool   `json:"tradable"`
	Fractionable bool   `json:"fractionable"`
	Shortable    bool   `json:"shortable"`
}

type snapshotJSON struct {
	LatestTrade struct {
		Price float64 `json:"p"`
	} `json:"latestTrade"`
	DailyBar struct {
		Volume float64 `json:"v"`
	} `json:"dailyBar"`
}

// ListEligibleAssets fetches active US equities, then batches snapshot
// requests to fill in last price and daily volume (the provider's trailing
// volume figure).
func (c *Client) ListEligibleAssets(ctx context.Context) ([]model.Asset, error) {
	var raw []assetJSON
	err := c.withRetry(ctx, func() error {
		q := url.Values{}
		q.Set("status", "active")
		q.Set("asset_class", model.AssetClassUSEquity)
		return c.doRequest(ctx, http.MethodGet, c.cfg.TradeURL+"/v2/assets", q, nil, &raw)
	})
	if err != nil {
		return nil, err
	}

	assets := make([]model.Asset, 0, len(raw))
	symbols := make([]string, 0, len(raw))
	for _, a := range raw {
		if !a.Tradable {
			continue
		}
		assets = append(assets, model.Asset{
			Symbol:       a.Symbol,
			Class:        a.Class,
			Active:       a.Status == "active",
			Fractionable: a.Fractionable,
			Shortable:    a.Shortable,
		})
		symbols = append(symbols, a.Symbol)
	}

	// Fill prices and volumes in batches; a failed batch leaves its symbols
	// at zero price, which the screening stage filters out.
	for start := 0; start < len(symbols); start += snapshotBatch {
		end := start + snapshotBatch
		if end > len(symbols) {
			end = len(symbols)
		}
		snaps, err := c.getSnapshots(ctx, symbols[start:end])
		if err != nil {
			continue
		}
		for i := start; i < end; i++ {
			if s, ok := snaps[assets[i].Symbol]; ok {
				assets[i].LastPrice = s.LatestTrade.Price
				assets[i].AvgVolume = s.DailyBar.Volume
			}
		}
	}

	return assets, nil
}

func (c *Client) getSnapshots(ctx context.Context, symbols []string) (map[string]snapshotJSON, error) {
	var snaps map[string]snapshotJSON
	err := c.withRetry(ctx, func() error {
		q := url.Values{}
		q.Set("symbols", strings.Join(symbols, ","))
		return c.doRequest(ctx, http.MethodGet, c.cfg.DataURL+"/v2/stocks/snapshots", q, nil, &snaps)
	})
	return snaps, err
}

type barJSON struct {
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume int64     `json:"v"`
}

type barsPageJSON struct {
	Bars          []barJSON `json:"bars"`
	NextPageToken string    `json:"next_page_token"`
}

// GetDailyBars returns up to lookbackDays daily bars for a symbol, ascending
// by date. Fewer bars than requested is not an error; short series are
// handled downstream as ineligibility.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, lookbackDays int) (model.PriceSeries, error) {
	start := time.Now().UTC().AddDate(0, 0, -lookbackDays)

	var series model.PriceSeries
	pageToken := ""
	for {
		var page barsPageJSON
		err := c.withRetry(ctx, func() error {
			q := url.Values{}
			q.Set("timeframe", "1Day")
			q.Set("start", start.Format(time.RFC3339))
			q.Set("limit", "1000")
			q.Set("adjustment", "split")
			if pageToken != "" {
				q.Set("page_token", pageToken)
			}
			return c.doRequest(ctx, http.MethodGet, c.cfg.DataURL+"/v2/stocks/"+symbol+"/bars", q, nil, &page)
		})
		if err != nil {
			// Downgrade exhausted rate-limit retries to a symbol-scoped
			// data error so the batch continues.
			if _, ok := err.(*model.RateLimitError); ok {
				return nil, &model.DataError{Symbol: symbol, Reason: "rate limit retries exhausted", Bar: -1, Err: err}
			}
			return nil, &model.DataError{Symbol: symbol, Reason: "bars fetch failed", Bar: -1, Err: err}
		}

		for _, b := range page.Bars {
			series = append(series, model.Bar{
				Date:   b.Time,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			})
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return series, nil
}

type accountJSON struct {
	BuyingPower string `json:"buying_power"`
	Equity      string `json:"equity"`
	Status      string `json:"status"`
}

// GetAccountStatus returns buying power, equity, and account status.
func (c *Client) GetAccountStatus(ctx context.Context) (broker.AccountStatus, error) {
	var acct accountJSON
	err := c.withRetry(ctx, func() error {
		return c.doRequest(ctx, http.MethodGet, c.cfg.TradeURL+"/v2/account", nil, nil, &acct)
	})
	if err != nil {
		return broker.AccountStatus{}, err
	}

	bp, _ := strconv.ParseFloat(acct.BuyingPower, 64)
	eq, _ := strconv.ParseFloat(acct.Equity, 64)
	return broker.AccountStatus{
		BuyingPower: bp,
		Equity:      eq,
		Status:      acct.Status,
	}, nil
}

// ---- Order executor ----

type orderRequestJSON struct {
	Symbol       string `json:"symbol"`
	Qty          string `json:"qty"`
	Side         string `json:"side"`
	Type         string `json:"type"`
	TimeInForce  string `json:"time_in_force"`
	TrailPercent string `json:"trail_percent,omitempty"`
}

type orderResponseJSON struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Status string `json:"status"`
}

// PlaceFractionalOrder submits a fractional market order. When trailPct > 0
// a broker-native trailing-stop order on the opposite side is submitted
// alongside as the exit leg; the engine never follows prices locally.
func (c *Client) PlaceFractionalOrder(ctx context.Context, symbol string, side model.Side, qty float64, trailPct float64) (broker.OrderResult, error) {
	entrySide := "buy"
	exitSide := "sell"
	if side == model.SideShort {
		entrySide, exitSide = "sell", "buy"
	}
	qtyStr := strconv.FormatFloat(qty, 'f', -1, 64)

	var entry orderResponseJSON
	err := c.withRetry(ctx, func() error {
		return c.doRequest(ctx, http.MethodPost, c.cfg.TradeURL+"/v2/orders", nil, orderRequestJSON{
			Symbol:      symbol,
			Qty:         qtyStr,
			Side:        entrySide,
			Type:        "market",
			TimeInForce: "day",
		}, &entry)
	})
	if err != nil {
		// Exhausted rate-limit retries become a per-order broker error.
		if _, ok := err.(*model.RateLimitError); ok {
			return broker.OrderResult{}, &model.BrokerError{Symbol: symbol, Reason: "rate limit retries exhausted", Err: err}
		}
		if be, ok := err.(*model.BrokerError); ok {
			be.Symbol = symbol
		}
		return broker.OrderResult{}, err
	}

	result := broker.OrderResult{
		OrderID: entry.ID,
		Symbol:  symbol,
		Side:    entrySide,
		Qty:     qty,
		Status:  entry.Status,
	}

	if trailPct > 0 {
		var stop orderResponseJSON
		err := c.withRetry(ctx, func() error {
			return c.doRequest(ctx, http.MethodPost, c.cfg.TradeURL+"/v2/orders", nil, orderRequestJSON{
				Symbol:       symbol,
				Qty:          qtyStr,
				Side:         exitSide,
				Type:         "trailing_stop",
				TimeInForce:  "gtc",
				TrailPercent: strconv.FormatFloat(trailPct, 'f', -1, 64),
			}, &stop)
		})
		if err != nil {
			// The entry already filled or is working; report the stop
			// failure on the result rather than failing the placement.
			result.Status = "accepted_no_stop"
		} else {
			result.StopOrderID = stop.ID
		}
	}

	return result, nil
}
