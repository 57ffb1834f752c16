package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fractional-trader/internal/model"
)

func testClient(tradeURL, dataURL string) *Client {
	return NewClient(Config{
		APIKey:    "test-key",
		APISecret: "test-secret",
		TradeURL:  tradeURL,
		DataURL:   dataURL,
		Timeout:   2 * time.Second,
	})
}

func TestGetAccountStatus(t *testing.T) {
	var gotKey, gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/account" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotKey = r.Header.Get("APCA-API-KEY-ID")
		gotSecret = r.Header.Get("APCA-API-SECRET-KEY")
		w.Write([]byte(`{"buying_power":"4000.50","equity":"2100.25","status":"ACTIVE"}`))
	}))
	defer srv.Close()

	acct, err := testClient(srv.URL, srv.URL).GetAccountStatus(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "test-key" || gotSecret != "test-secret" {
		t.Errorf("auth headers not sent: %q / %q", gotKey, gotSecret)
	}
	if acct.BuyingPower != 4000.50 || acct.Equity != 2100.25 || acct.Status != "ACTIVE" {
		t.Errorf("unexpected account: %+v", acct)
	}
}

func TestDoRequest_RateLimitRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"buying_power":"1","equity":"1","status":"ACTIVE"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	if _, err := c.GetAccountStatus(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestGetDailyBars_RateLimitExhaustionDowngraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, srv.URL).GetDailyBars(context.Background(), "AAPL", 365)
	var de *model.DataError
	if !errors.As(err, &de) {
		t.Fatalf("expected DataError after exhausted retries, got %T: %v", err, err)
	}
	if de.Symbol != "AAPL" {
		t.Errorf("expected symbol on error, got %q", de.Symbol)
	}
	var rle *model.RateLimitError
	if !errors.As(err, &rle) {
		t.Error("expected wrapped RateLimitError")
	}
}

func TestDoRequest_BrokerErrorCarriesAPIMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"insufficient buying power"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, srv.URL).GetAccountStatus(context.Background())
	var be *model.BrokerError
	if !errors.As(err, &be) {
		t.Fatalf("expected BrokerError, got %T", err)
	}
	if be.Code != http.StatusForbidden {
		t.Errorf("expected code 403, got %d", be.Code)
	}
	if be.Reason != "insufficient buying power" {
		t.Errorf("expected API message in reason, got %q", be.Reason)
	}
}

func TestGetDailyBars_Pagination(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/stocks/XYZ/bars" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			if r.URL.Query().Get("page_token") != "" {
				t.Error("first page should have no token")
			}
			w.Write([]byte(`{"bars":[{"t":"2026-01-02T05:00:00Z","o":10,"h":11,"l":9,"c":10.5,"v":1000}],"next_page_token":"tok2"}`))
		default:
			if r.URL.Query().Get("page_token") != "tok2" {
				t.Errorf("expected page token tok2, got %q", r.URL.Query().Get("page_token"))
			}
			w.Write([]byte(`{"bars":[{"t":"2026-01-03T05:00:00Z","o":10.5,"h":12,"l":10,"c":11,"v":2000}],"next_page_token":""}`))
		}
	}))
	defer srv.Close()

	series, err := testClient(srv.URL, srv.URL).GetDailyBars(context.Background(), "XYZ", 365)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 bars across pages, got %d", len(series))
	}
	if series[0].Close != 10.5 || series[1].Close != 11 {
		t.Errorf("unexpected closes: %.2f %.2f", series[0].Close, series[1].Close)
	}
}

func TestListEligibleAssets_MergesSnapshots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/assets", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") != "active" {
			t.Errorf("expected status=active query")
		}
		json.NewEncoder(w).Encode([]assetJSON{
			{Symbol: "AAA", Class: "us_equity", Status: "active", Tradable: true, Fractionable: true},
			{Symbol: "HALTED", Class: "us_equity", Status: "active", Tradable: false},
		})
	})
	mux.HandleFunc("/v2/stocks/snapshots", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbols") != "AAA" {
			t.Errorf("expected symbols=AAA, got %q", r.URL.Query().Get("symbols"))
		}
		w.Write([]byte(`{"AAA":{"latestTrade":{"p":12.34},"dailyBar":{"v":500000}}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	assets, err := testClient(srv.URL, srv.URL).ListEligibleAssets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("expected non-tradable asset dropped, got %d assets", len(assets))
	}
	a := assets[0]
	if a.Symbol != "AAA" || a.LastPrice != 12.34 || a.AvgVolume != 500000 || !a.Fractionable {
		t.Errorf("unexpected asset: %+v", a)
	}
}

func TestPlaceFractionalOrder_EntryAndTrailingStop(t *testing.T) {
	var orders []orderRequestJSON
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/orders" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req orderRequestJSON
		json.NewDecoder(r.Body).Decode(&req)
		orders = append(orders, req)
		json.NewEncoder(w).Encode(orderResponseJSON{ID: req.Type + "-id", Symbol: req.Symbol, Status: "accepted"})
	}))
	defer srv.Close()

	result, err := testClient(srv.URL, srv.URL).PlaceFractionalOrder(context.Background(), "AAA", model.SideLong, 50.5, 5.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(orders) != 2 {
		t.Fatalf("expected entry + stop orders, got %d", len(orders))
	}
	entry, stop := orders[0], orders[1]
	if entry.Side != "buy" || entry.Type != "market" || entry.Qty != "50.5" {
		t.Errorf("unexpected entry order: %+v", entry)
	}
	if stop.Side != "sell" || stop.Type != "trailing_stop" || stop.TrailPercent != "5" {
		t.Errorf("unexpected stop order: %+v", stop)
	}
	if result.OrderID != "market-id" || result.StopOrderID != "trailing_stop-id" {
		t.Errorf("unexpected result ids: %+v", result)
	}
}

func TestPlaceFractionalOrder_ShortSidesInverted(t *testing.T) {
	var orders []orderRequestJSON
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req orderRequestJSON
		json.NewDecoder(r.Body).Decode(&req)
		orders = append(orders, req)
		json.NewEncoder(w).Encode(orderResponseJSON{ID: "x", Status: "accepted"})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, srv.URL).PlaceFractionalOrder(context.Background(), "BBB", model.SideShort, 10, 5.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orders[0].Side != "sell" || orders[1].Side != "buy" {
		t.Errorf("expected sell entry / buy stop for short, got %s / %s", orders[0].Side, orders[1].Side)
	}
}

func TestPlaceFractionalOrder_StopFailureKeepsEntry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			json.NewEncoder(w).Encode(orderResponseJSON{ID: "entry-id", Status: "accepted"})
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"trailing stop rejected"}`))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL, srv.URL).PlaceFractionalOrder(context.Background(), "CCC", model.SideLong, 10, 5.0)
	if err != nil {
		t.Fatalf("entry should not fail when stop is rejected: %v", err)
	}
	if result.OrderID != "entry-id" || result.Status != "accepted_no_stop" || result.StopOrderID != "" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestPlaceFractionalOrder_NoStopWhenTrailZero(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(orderResponseJSON{ID: "entry-id", Status: "accepted"})
	}))
	defer srv.Close()

	result, err := testClient(srv.URL, srv.URL).PlaceFractionalOrder(context.Background(), "DDD", model.SideLong, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected single order call, got %d", calls)
	}
	if result.StopOrderID != "" {
		t.Errorf("expected no stop order id, got %q", result.StopOrderID)
	}
}
