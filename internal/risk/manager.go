// Package risk tracks open positions and decides when they are due for
// closure.
//
// Two exit paths exist: a broker-delegated trailing stop, whose fill is
// reported externally and recorded here, and an engine-evaluated hard time
// exit. The manager holds no timer thread — an external loop polls
// DueForExit and issues close instructions.
package risk

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"fractional-trader/internal/model"
)

// Manager holds the in-memory open-position book for one run.
// The pipeline itself is single-threaded, but stop fills can arrive from the
// trade-update stream's read goroutine, so the book is mutex-guarded.
type Manager struct {
	mu        sync.RWMutex
	positions map[string]*model.OpenPosition
	log       *slog.Logger
}

// NewManager creates an empty position book.
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		positions: make(map[string]*model.OpenPosition),
		log:       log,
	}
}

// Open registers a filled position. The deadline is entry time plus the hard
// holding limit; the trailing-stop percentage is carried for reporting only —
// its execution is delegated to the broker.
func (m *Manager) Open(symbol string, side model.Side, qty, entryPrice float64, entryAt time.Time, trailPct float64, timeExit time.Duration) model.OpenPosition {
	pos := model.OpenPosition{
		Symbol:     symbol,
		Side:       side,
		Qty:        qty,
		EntryPrice: entryPrice,
		EntryAt:    entryAt,
		TrailPct:   trailPct,
		Deadline:   entryAt.Add(timeExit),
		State:      model.StateOpen,
	}

	m.mu.Lock()
	m.positions[symbol] = &pos
	m.mu.Unlock()

	m.log.Info("position opened",
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.Float64("qty", qty),
		slog.Time("deadline", pos.Deadline))
	return pos
}

// IsDueForExit reports whether a position has reached its hard time exit.
// Pure predicate: no state is read or written beyond the arguments. It is
// false for any check time before the deadline — there is no early-close
// side channel through this path.
func IsDueForExit(pos model.OpenPosition, now time.Time) bool {
	return pos.State == model.StateOpen && !now.Before(pos.Deadline)
}

// DueForExit returns the open positions whose deadline has passed at the
// given time, in symbol order for deterministic close sequencing.
func (m *Manager) DueForExit(now time.Time) []model.OpenPosition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []model.OpenPosition
	for _, pos := range m.positions {
		if IsDueForExit(*pos, now) {
			due = append(due, *pos)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Symbol < due[j].Symbol })
	return due
}

// Close transitions a position to CLOSED. Idempotent: closing an unknown or
// already-closed position is a no-op, never an error. Returns true when the
// call performed the transition.
func (m *Manager) Close(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok || pos.State == model.StateClosed {
		return false
	}
	pos.State = model.StateClosed
	m.log.Info("position closed", slog.String("symbol", symbol))
	return true
}

// Get returns a snapshot of one position.
func (m *Manager) Get(symbol string) (model.OpenPosition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[symbol]
	if !ok {
		return model.OpenPosition{}, false
	}
	return *pos, true
}

// OpenPositions returns a snapshot of all OPEN positions, in symbol order.
func (m *Manager) OpenPositions() []model.OpenPosition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.OpenPosition
	for _, pos := range m.positions {
		if pos.State == model.StateOpen {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
