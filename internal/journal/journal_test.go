package journal

import (
	"path/filepath"
	"testing"
	"time"

	"fractional-trader/internal/model"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(filepath.Join(t.TempDir(), "decisions.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordOrderAndReadBack(t *testing.T) {
	j := openTestJournal(t)

	pos := model.SizedPosition{
		Symbol:     "AAA",
		Side:       model.SideLong,
		Qty:        50,
		Notional:   1000,
		EntryPrice: 20,
	}
	placedAt := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	if err := j.RecordOrder(pos, "ord-1", "accepted", 5.0, placedAt); err != nil {
		t.Fatalf("RecordOrder: %v", err)
	}

	orders, err := j.GetOrders(10)
	if err != nil {
		t.Fatalf("GetOrders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	o := orders[0]
	if o.OrderID != "ord-1" || o.Symbol != "AAA" || o.Side != "long" || o.Qty != 50 || o.Notional != 1000 {
		t.Errorf("unexpected record: %+v", o)
	}
}

func TestGetOrders_NewestFirstWithLimit(t *testing.T) {
	j := openTestJournal(t)

	for i, sym := range []string{"AAA", "BBB", "CCC"} {
		pos := model.SizedPosition{Symbol: sym, Side: model.SideLong, Qty: 1, Notional: 1, EntryPrice: 1}
		if err := j.RecordOrder(pos, sym+"-ord", "accepted", 0, time.Now().Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatal(err)
		}
	}

	orders, err := j.GetOrders(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected limit 2, got %d", len(orders))
	}
	if orders[0].Symbol != "CCC" || orders[1].Symbol != "BBB" {
		t.Errorf("expected newest first [CCC BBB], got [%s %s]", orders[0].Symbol, orders[1].Symbol)
	}
}

func TestRecordSkip(t *testing.T) {
	j := openTestJournal(t)
	if err := j.RecordSkip("THIN", "indicator", "insufficient history"); err != nil {
		t.Fatalf("RecordSkip: %v", err)
	}

	var count int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM skips WHERE symbol = ?`, "THIN").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 skip row, got %d", count)
	}
}
