package trader

import (
	"context"
	"fmt"
	"strings"

	"fractional-trader/config"
	"fractional-trader/internal/model"
)

// Projector produces the dry-run projection. It wraps a Runner with no
// executor, so Project goes through the identical planning code as a live
// run and performs no side effects.
type Projector struct {
	r *Runner
}

// NewProjector builds a projector over the given data provider.
func NewProjector(cfg config.Config, deps Deps) *Projector {
	deps.Exec = nil
	deps.Risk = nil
	deps.Journal = nil
	return &Projector{r: NewRunner(cfg, deps)}
}

// Project computes the plan a live run would execute right now.
func (p *Projector) Project(ctx context.Context) (*Plan, error) {
	return p.r.plan(ctx)
}

// Render formats a plan as a human-readable report for terminal output.
func (p *Projector) Render(plan *Plan) string {
	var b strings.Builder
	cfg := p.r.cfg

	fmt.Fprintf(&b, "DRY RUN: no orders will be placed\n")
	fmt.Fprintf(&b, "capital: %.2f  equities_top: %d  shorts_top: %d  zscore_threshold: %.2f\n\n",
		cfg.Capital, cfg.EquitiesTop, cfg.ShortsTop, cfg.ZScoreThreshold)

	fmt.Fprintf(&b, "universe: %d eligible, %d excluded\n\n", len(plan.Universe), len(plan.Skipped))

	renderSide(&b, "LONG", plan.Selection.Longs)
	renderSide(&b, "SHORT", plan.Selection.Shorts)

	if len(plan.Sizing.Positions) == 0 {
		b.WriteString("no positions to size\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-8s %-6s %12s %12s %12s\n", "SYMBOL", "SIDE", "QTY", "PRICE", "NOTIONAL")
	total := 0.0
	for _, pos := range plan.Sizing.Positions {
		fmt.Fprintf(&b, "%-8s %-6s %12.4f %12.2f %12.2f\n",
			pos.Symbol, pos.Side, pos.Qty, pos.EntryPrice, pos.Notional)
		total += pos.Notional
	}
	fmt.Fprintf(&b, "\ntotal notional: %.2f of %.2f (%.1f%% utilization)\n",
		total, cfg.Capital, plan.Sizing.Utilization*100)

	return b.String()
}

func renderSide(b *strings.Builder, label string, candidates []model.Candidate) {
	if len(candidates) == 0 {
		return
	}
	fmt.Fprintf(b, "%s candidates (%d):\n", label, len(candidates))
	for i, r := range candidates {
		fmt.Fprintf(b, "  %2d. %-8s score=%8.2f close=%8.2f z=%6.2f\n",
			i+1, r.Symbol, r.Score(), r.LastClose, r.ZScore20)
	}
	b.WriteString("\n")
}
