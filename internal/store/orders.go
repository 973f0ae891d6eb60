package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackwell-systems/orderwatch/internal/order"
)

// ImportOrders upserts orders by id. Orders without an id cannot be
// reconciled with later imports and are skipped.
func (db *DB) ImportOrders(ctx context.Context, orders []order.Order) (ImportResult, error) {
	var res ImportResult

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO orders (id, created_at, status, total, imported_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at  = excluded.created_at,
			status      = excluded.status,
			total       = excluded.total,
			imported_at = excluded.imported_at`)
	if err != nil {
		return res, fmt.Errorf("preparing order upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	importedAt := time.Now().UTC().Format(time.RFC3339)
	for _, o := range orders {
		if o.ID == "" {
			res.Skipped++
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			o.ID, formatTime(o.CreatedAt), string(o.Status), o.Total.String(), importedAt,
		); err != nil {
			return res, fmt.Errorf("upserting order %s: %w", o.ID, err)
		}
		res.Upserted++
	}

	return res, tx.Commit()
}

// ListOrders returns stored orders created at or after since, oldest first.
// A zero since returns every order, including those without a timestamp.
func (db *DB) ListOrders(ctx context.Context, since time.Time) ([]order.Order, error) {
	query := "SELECT id, created_at, status, total FROM orders ORDER BY created_at, id"
	var args []any
	if !since.IsZero() {
		query = "SELECT id, created_at, status, total FROM orders WHERE created_at >= ? ORDER BY created_at, id"
		args = append(args, formatTime(since))
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var orders []order.Order
	for rows.Next() {
		var (
			o         order.Order
			createdAt sql.NullString
			status    string
			total     string
		)
		if err := rows.Scan(&o.ID, &createdAt, &status, &total); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			o.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt.String)
		}
		o.Status = order.Status(status)
		o.Total, err = decimal.NewFromString(total)
		if err != nil {
			o.Total = decimal.Zero
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CountOrders returns the number of stored orders.
func (db *DB) CountOrders(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&n)
	return n, err
}

// formatTime renders t in a fixed-width UTC form so stored timestamps
// compare correctly as text. The zero time is stored as NULL.
func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

// Orders returns every stored order, making DB an order.Source.
func (db *DB) Orders(ctx context.Context) ([]order.Order, error) {
	return db.ListOrders(ctx, time.Time{})
}
