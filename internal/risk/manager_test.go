package risk

import (
	"testing"
	"time"

	"fractional-trader/internal/model"
)

var entry = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

const hold = 48 * time.Hour

func openOne(m *Manager, symbol string) model.OpenPosition {
	return m.Open(symbol, model.SideLong, 50, 20, entry, 5.0, hold)
}

func TestIsDueForExit_Boundary(t *testing.T) {
	m := NewManager(nil)
	pos := openOne(m, "AAA")

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"one minute before deadline", entry.Add(hold - time.Minute), false},
		{"exactly at deadline", entry.Add(hold), true},
		{"after deadline", entry.Add(hold + time.Minute), true},
	}
	for _, tc := range cases {
		if got := IsDueForExit(pos, tc.now); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestIsDueForExit_ClosedNeverDue(t *testing.T) {
	m := NewManager(nil)
	pos := openOne(m, "AAA")
	pos.State = model.StateClosed

	if IsDueForExit(pos, entry.Add(10*hold)) {
		t.Error("closed position reported due for exit")
	}
}

func TestDueForExit_FiltersAndSorts(t *testing.T) {
	m := NewManager(nil)
	openOne(m, "ZULU")
	openOne(m, "ALFA")
	m.Open("LATE", model.SideShort, 10, 5, entry.Add(time.Hour), 5.0, hold)

	due := m.DueForExit(entry.Add(hold))
	if len(due) != 2 {
		t.Fatalf("expected 2 due positions, got %d", len(due))
	}
	if due[0].Symbol != "ALFA" || due[1].Symbol != "ZULU" {
		t.Errorf("expected symbol order [ALFA ZULU], got [%s %s]", due[0].Symbol, due[1].Symbol)
	}
}

func TestClose_Idempotent(t *testing.T) {
	m := NewManager(nil)
	openOne(m, "AAA")

	if !m.Close("AAA") {
		t.Error("first close should transition the position")
	}
	if m.Close("AAA") {
		t.Error("second close should be a no-op")
	}
	if m.Close("UNKNOWN") {
		t.Error("closing an unknown symbol should be a no-op")
	}

	pos, ok := m.Get("AAA")
	if !ok || pos.State != model.StateClosed {
		t.Errorf("expected AAA closed, got %+v", pos)
	}
}

func TestClosedExcludedFromOpenAndDue(t *testing.T) {
	m := NewManager(nil)
	openOne(m, "AAA")
	openOne(m, "BBB")
	m.Close("AAA")

	if open := m.OpenPositions(); len(open) != 1 || open[0].Symbol != "BBB" {
		t.Errorf("expected only BBB open, got %v", open)
	}
	if due := m.DueForExit(entry.Add(hold)); len(due) != 1 || due[0].Symbol != "BBB" {
		t.Errorf("expected only BBB due, got %v", due)
	}
}

func TestOpen_SetsDeadline(t *testing.T) {
	m := NewManager(nil)
	pos := openOne(m, "AAA")

	if !pos.Deadline.Equal(entry.Add(hold)) {
		t.Errorf("expected deadline %v, got %v", entry.Add(hold), pos.Deadline)
	}
	if pos.State != model.StateOpen {
		t.Errorf("expected OPEN state, got %v", pos.State)
	}
}
