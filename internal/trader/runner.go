// Package trader composes the pipeline stages — universe screening, indicator
// computation, selection, sizing, order placement — into a single sequential
// run.
//
// The pipeline is strictly single-threaded: candidate and selection lists are
// built by sequential appends, so no locks are needed. External calls are
// throttled with fixed minimum inter-call delays to respect provider quotas.
// Per-symbol failures are isolated; only a configuration error aborts a run.
package trader

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fractional-trader/config"
	"fractional-trader/internal/broker"
	"fractional-trader/internal/indicator"
	"fractional-trader/internal/markethours"
	"fractional-trader/internal/metrics"
	"fractional-trader/internal/model"
	"fractional-trader/internal/risk"
	"fractional-trader/internal/selector"
	"fractional-trader/internal/sizing"
	"fractional-trader/internal/universe"
)

// BarCache is the optional history cache consulted before the provider.
// Misses and cache failures fall through silently.
type BarCache interface {
	Get(ctx context.Context, symbol string, lookbackDays int) (model.PriceSeries, bool)
	Put(ctx context.Context, symbol string, lookbackDays int, series model.PriceSeries)
}

// DecisionLog is the optional durable sink for orders and skips.
type DecisionLog interface {
	RecordOrder(pos model.SizedPosition, orderID, status string, trailPct float64, placedAt time.Time) error
	RecordSkip(symbol, stage, reason string) error
}

// SkippedSymbol records one excluded symbol and the stage that dropped it.
type SkippedSymbol struct {
	Symbol string `json:"symbol"`
	Stage  string `json:"stage"` // fetch, indicator
	Reason string `json:"reason"`
}

// Plan is the full decision output prior to order submission. The dry-run
// and live paths produce it through the same code, so previews are identical
// to what the live path would submit.
type Plan struct {
	Screened  int                   `json:"screened"` // assets examined by the universe filter
	Universe  []string              `json:"universe"`
	Records   []model.IndicatorRecord `json:"records"`
	Selection model.SelectionSet    `json:"selection"`
	Sizing    sizing.Plan           `json:"sizing"`
	Skipped   []SkippedSymbol       `json:"skipped"`
}

// RunSummary accumulates recoverable failures instead of propagating them
// past the batch boundary.
type RunSummary struct {
	ScreenedAssets  int     `json:"screened_assets"`
	EligibleSymbols int     `json:"eligible_symbols"`
	SkippedSymbols  int     `json:"skipped_symbols"`
	SelectedLongs   int     `json:"selected_longs"`
	SelectedShorts  int     `json:"selected_shorts"`
	OrdersPlaced    int     `json:"orders_placed"`
	OrdersFailed    int     `json:"orders_failed"`
	Utilization     float64 `json:"utilization"`
	DryRun          bool    `json:"dry_run"`
}

// Deps are the injected collaborators. Data is required; Exec is required
// for live runs; the rest are optional.
type Deps struct {
	Data    broker.DataProvider
	Exec    broker.OrderExecutor
	Risk    *risk.Manager
	Cache   BarCache
	Journal DecisionLog
	Metrics *metrics.Metrics
	Log     *slog.Logger
}

// Runner drives one full pipeline pass.
type Runner struct {
	cfg  config.Config
	deps Deps
	log  *slog.Logger

	// marketOpen gates live order placement; swapped in tests.
	marketOpen func(time.Time) bool
	now        func() time.Time
}

// NewRunner creates a runner. cfg must already be validated.
func NewRunner(cfg config.Config, deps Deps) *Runner {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		cfg:        cfg,
		deps:       deps,
		log:        log,
		marketOpen: markethours.IsMarketOpen,
		now:        time.Now,
	}
}

// plan runs screening, history fetches, indicators, selection, and sizing.
// This single code path backs both the live run and the dry-run projection.
func (r *Runner) plan(ctx context.Context) (*Plan, error) {
	assets, err := r.deps.Data.ListEligibleAssets(ctx)
	if err != nil {
		return nil, err
	}
	symbols := universe.Filter(assets, r.cfg)
	r.log.Info("universe screened",
		slog.Int("assets", len(assets)),
		slog.Int("eligible", len(symbols)))
	if r.deps.Metrics != nil {
		r.deps.Metrics.AssetsScreened.Add(float64(len(assets)))
		r.deps.Metrics.SymbolsEligible.Add(float64(len(symbols)))
	}

	p := &Plan{Screened: len(assets), Universe: symbols}
	for i, symbol := range symbols {
		if i > 0 {
			if err := throttle(ctx, r.cfg.FetchDelay()); err != nil {
				return nil, err
			}
		}

		series, err := r.fetchBars(ctx, symbol)
		if err != nil {
			r.skip(p, symbol, "fetch", err)
			continue
		}

		record, err := indicator.Compute(symbol, series)
		if err != nil {
			r.skip(p, symbol, "indicator", err)
			continue
		}
		p.Records = append(p.Records, record)
	}

	p.Selection = selector.Select(p.Records, r.cfg)
	p.Sizing = sizing.Size(p.Selection, r.cfg)

	r.log.Info("plan built",
		slog.Int("candidates", len(p.Records)),
		slog.Int("longs", len(p.Selection.Longs)),
		slog.Int("shorts", len(p.Selection.Shorts)),
		slog.Float64("utilization", p.Sizing.Utilization))
	if r.deps.Metrics != nil {
		r.deps.Metrics.Utilization.Set(p.Sizing.Utilization)
	}
	return p, nil
}

func (r *Runner) fetchBars(ctx context.Context, symbol string) (model.PriceSeries, error) {
	if r.deps.Cache != nil {
		if series, ok := r.deps.Cache.Get(ctx, symbol, r.cfg.LookbackDays); ok {
			return series, nil
		}
	}

	start := time.Now()
	series, err := r.deps.Data.GetDailyBars(ctx, symbol, r.cfg.LookbackDays)
	if r.deps.Metrics != nil {
		r.deps.Metrics.BarsFetchDur.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}

	if r.deps.Cache != nil {
		r.deps.Cache.Put(ctx, symbol, r.cfg.LookbackDays, series)
	}
	return series, nil
}

// skip excludes one symbol from further stages. The batch always continues.
func (r *Runner) skip(p *Plan, symbol, stage string, err error) {
	reason := err.Error()
	p.Skipped = append(p.Skipped, SkippedSymbol{Symbol: symbol, Stage: stage, Reason: reason})
	r.log.Warn("symbol excluded",
		slog.String("symbol", symbol),
		slog.String("stage", stage),
		slog.String("reason", reason))
	if r.deps.Metrics != nil {
		r.deps.Metrics.SymbolsSkipped.WithLabelValues(stage).Inc()
	}
	if r.deps.Journal != nil {
		if jerr := r.deps.Journal.RecordSkip(symbol, stage, reason); jerr != nil {
			r.log.Warn("journal skip write failed", slog.String("error", jerr.Error()))
		}
	}
}

// Execute places the planned orders. Recoverable per-order failures are
// accumulated in the summary; submitted orders are never rolled back.
func (r *Runner) Execute(ctx context.Context, p *Plan) RunSummary {
	summary := r.summarize(p, false)

	if len(p.Sizing.Positions) == 0 {
		r.log.Info("nothing to execute")
		return summary
	}

	now := r.now()
	if !r.marketOpen(now) {
		r.log.Warn("market closed, refusing order placement",
			slog.Time("next_open", markethours.NextOpen(now)))
		summary.OrdersFailed = len(p.Sizing.Positions)
		return summary
	}

	if acct, err := r.deps.Data.GetAccountStatus(ctx); err != nil {
		r.log.Warn("account status check failed", slog.String("error", err.Error()))
	} else {
		r.log.Info("account status",
			slog.Float64("buying_power", acct.BuyingPower),
			slog.String("status", acct.Status))
	}

	for i, pos := range p.Sizing.Positions {
		if i > 0 {
			if err := throttle(ctx, r.cfg.OrderDelay()); err != nil {
				// Cancelled mid-batch: already-submitted orders stand,
				// remaining positions are reported as not placed.
				summary.OrdersFailed += len(p.Sizing.Positions) - i
				return summary
			}
		}
		if r.placeOrder(ctx, pos) {
			summary.OrdersPlaced++
		} else {
			summary.OrdersFailed++
		}
	}

	return summary
}

func (r *Runner) placeOrder(ctx context.Context, pos model.SizedPosition) bool {
	start := time.Now()
	result, err := r.deps.Exec.PlaceFractionalOrder(ctx, pos.Symbol, pos.Side, pos.Qty, r.cfg.TrailPct)
	if r.deps.Metrics != nil {
		r.deps.Metrics.OrderPlaceDur.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		r.log.Error("order failed",
			slog.String("symbol", pos.Symbol),
			slog.String("side", string(pos.Side)),
			slog.String("error", err.Error()))
		if r.deps.Metrics != nil {
			r.deps.Metrics.OrdersFailed.Inc()
		}
		return false
	}

	r.log.Info("order placed",
		slog.String("symbol", pos.Symbol),
		slog.String("side", string(pos.Side)),
		slog.Float64("qty", pos.Qty),
		slog.String("order_id", result.OrderID))
	if r.deps.Metrics != nil {
		r.deps.Metrics.OrdersPlaced.Inc()
	}

	placedAt := r.now()
	if r.deps.Risk != nil {
		r.deps.Risk.Open(pos.Symbol, pos.Side, pos.Qty, pos.EntryPrice, placedAt, r.cfg.TrailPct, r.cfg.TimeExit())
	}
	if r.deps.Journal != nil {
		if err := r.deps.Journal.RecordOrder(pos, result.OrderID, result.Status, r.cfg.TrailPct, placedAt); err != nil {
			r.log.Warn("journal order write failed", slog.String("error", err.Error()))
		}
	}
	return true
}

// Run executes one full pass. With dryRun set it stops after planning with
// zero side effects.
func (r *Runner) Run(ctx context.Context, dryRun bool) (RunSummary, error) {
	start := time.Now()
	defer func() {
		if r.deps.Metrics != nil {
			r.deps.Metrics.RunDur.Observe(time.Since(start).Seconds())
		}
	}()

	if !dryRun && r.deps.Exec == nil {
		return RunSummary{}, ErrNoExecutor
	}

	p, err := r.plan(ctx)
	if err != nil {
		return RunSummary{DryRun: dryRun}, err
	}
	if dryRun {
		return r.summarize(p, true), nil
	}
	return r.Execute(ctx, p), nil
}

// CloseDuePositions sweeps the position book and issues close instructions
// for every position past its hard time exit. Safe to invoke repeatedly from
// an external scheduler: closes are idempotent and failed close orders leave
// the position open for the next sweep.
func (r *Runner) CloseDuePositions(ctx context.Context, now time.Time) (closed int) {
	if r.deps.Risk == nil || r.deps.Exec == nil {
		return 0
	}

	for _, pos := range r.deps.Risk.DueForExit(now) {
		exitSide := model.SideShort
		if pos.Side == model.SideShort {
			exitSide = model.SideLong
		}
		// No trailing stop on the closing leg: this is a hard exit.
		_, err := r.deps.Exec.PlaceFractionalOrder(ctx, pos.Symbol, exitSide, pos.Qty, 0)
		if err != nil {
			r.log.Error("time-exit close failed",
				slog.String("symbol", pos.Symbol),
				slog.String("error", err.Error()))
			continue
		}
		if r.deps.Risk.Close(pos.Symbol) {
			closed++
			if r.deps.Metrics != nil {
				r.deps.Metrics.PositionsClosed.WithLabelValues("time_exit").Inc()
			}
		}
	}
	return closed
}

func (r *Runner) summarize(p *Plan, dryRun bool) RunSummary {
	return RunSummary{
		ScreenedAssets:  p.Screened,
		EligibleSymbols: len(p.Universe),
		SkippedSymbols:  len(p.Skipped),
		SelectedLongs:   len(p.Selection.Longs),
		SelectedShorts:  len(p.Selection.Shorts),
		Utilization:     p.Sizing.Utilization,
		DryRun:          dryRun,
	}
}

// throttle waits the configured inter-call delay, honoring cancellation.
func throttle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ErrNoExecutor is returned by live runs constructed without an order
// executor.
var ErrNoExecutor = errors.New("no order executor configured")
