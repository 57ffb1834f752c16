// Package metrics exposes Prometheus metrics and a health endpoint for the
// trading engine.
package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for one engine process.
type Metrics struct {
	AssetsScreened  prometheus.Counter
	SymbolsEligible prometheus.Counter
	SymbolsSkipped  *prometheus.CounterVec // labels: stage
	OrdersPlaced    prometheus.Counter
	OrdersFailed    prometheus.Counter
	PositionsClosed *prometheus.CounterVec // labels: reason (time_exit, stop_fill)

	BarsFetchDur  prometheus.Histogram
	OrderPlaceDur prometheus.Histogram
	RunDur        prometheus.Histogram

	Utilization prometheus.Gauge
}

// New registers and returns all engine metrics.
func New() *Metrics {
	m := &Metrics{
		AssetsScreened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_assets_screened_total",
			Help: "Assets examined by the universe filter",
		}),
		SymbolsEligible: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_symbols_eligible_total",
			Help: "Symbols passing the universe filter",
		}),
		SymbolsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_symbols_skipped_total",
			Help: "Symbols excluded per pipeline stage",
		}, []string{"stage"}),
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_orders_placed_total",
			Help: "Fractional orders accepted by the broker",
		}),
		OrdersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_orders_failed_total",
			Help: "Fractional orders rejected or errored",
		}),
		PositionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_positions_closed_total",
			Help: "Positions closed, by trigger",
		}, []string{"reason"}),
		BarsFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_bars_fetch_duration_seconds",
			Help:    "Daily-bar history fetch latency per symbol",
			Buckets: prometheus.DefBuckets,
		}),
		OrderPlaceDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_order_place_duration_seconds",
			Help:    "Order placement latency",
			Buckets: prometheus.DefBuckets,
		}),
		RunDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_run_duration_seconds",
			Help:    "Full pipeline run duration",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		Utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_capital_utilization",
			Help: "Fraction of capital allocated by the last plan",
		}),
	}

	prometheus.MustRegister(
		m.AssetsScreened,
		m.SymbolsEligible,
		m.SymbolsSkipped,
		m.OrdersPlaced,
		m.OrdersFailed,
		m.PositionsClosed,
		m.BarsFetchDur,
		m.OrderPlaceDur,
		m.RunDur,
		m.Utilization,
	)

	return m
}

// HealthStatus represents the process health.
type HealthStatus struct {
	mu sync.RWMutex

	DataProviderOK bool      `json:"data_provider_ok"`
	StreamOK       bool      `json:"stream_ok"`
	LastRunAt      time.Time `json:"last_run_at"`
	StartedAt      time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetDataProviderOK(v bool) {
	h.mu.Lock()
	h.DataProviderOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetStreamOK(v bool) {
	h.mu.Lock()
	h.StreamOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastRunAt(t time.Time) {
	h.mu.Lock()
	h.LastRunAt = t
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if !h.DataProviderOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	out := struct {
		Status         string `json:"status"`
		Uptime         string `json:"uptime"`
		DataProviderOK bool   `json:"data_provider_ok"`
		StreamOK       bool   `json:"stream_ok"`
		LastRunAt      string `json:"last_run_at"`
	}{
		Status:         status,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		DataProviderOK: h.DataProviderOK,
		StreamOK:       h.StreamOK,
		LastRunAt:      h.LastRunAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(out)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
