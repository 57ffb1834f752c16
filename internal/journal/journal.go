// Package journal persists run decisions — placed orders and skipped
// symbols — to SQLite for later analysis and audit. The journal is an
// observability sink, not a data contract: the engine never reads its own
// decisions back.
package journal

import (
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fractional-trader/internal/model"
)

// Journal is a SQLite-backed decision log.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// New opens (or creates) the journal database.
func New(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id    TEXT NOT NULL,
		symbol      TEXT NOT NULL,
		side        TEXT NOT NULL,
		qty         REAL NOT NULL,
		notional    REAL NOT NULL,
		entry_price REAL NOT NULL,
		trail_pct   REAL NOT NULL,
		status      TEXT NOT NULL,
		placed_at   DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS skips (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol      TEXT NOT NULL,
		stage       TEXT NOT NULL,
		reason      TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);
	CREATE INDEX IF NOT EXISTS idx_skips_symbol ON skips(symbol);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened decision journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// RecordOrder persists one placed order.
func (j *Journal) RecordOrder(pos model.SizedPosition, orderID, status string, trailPct float64, placedAt time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO orders (order_id, symbol, side, qty, notional, entry_price, trail_pct, status, placed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		orderID,
		pos.Symbol,
		string(pos.Side),
		pos.Qty,
		pos.Notional,
		pos.EntryPrice,
		trailPct,
		status,
		placedAt.Format(time.RFC3339),
	)
	return err
}

// RecordSkip persists one excluded symbol with the stage that dropped it.
func (j *Journal) RecordSkip(symbol, stage, reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO skips (symbol, stage, reason) VALUES (?, ?, ?)`,
		symbol, stage, reason,
	)
	return err
}

// OrderRecord is a row from the orders table.
type OrderRecord struct {
	ID       int64   `json:"id"`
	OrderID  string  `json:"order_id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Qty      float64 `json:"qty"`
	Notional float64 `json:"notional"`
	Status   string  `json:"status"`
	PlacedAt string  `json:"placed_at"`
}

// GetOrders returns the last N orders, newest first.
func (j *Journal) GetOrders(limit int) ([]OrderRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, order_id, symbol, side, qty, notional, status, placed_at
		 FROM orders ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []OrderRecord
	for rows.Next() {
		var o OrderRecord
		if err := rows.Scan(&o.ID, &o.OrderID, &o.Symbol, &o.Side, &o.Qty, &o.Notional, &o.Status, &o.PlacedAt); err != nil {
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
