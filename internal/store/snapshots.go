package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/order"
	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

// Names of the aggregate metrics recorded for every snapshot.
const (
	MetricTotalOrders       = "total_orders"
	MetricRevenue           = "revenue"
	MetricAverageOrderValue = "average_order_value"
	MetricCompletionRate    = "completion_rate"
	MetricCancellationRate  = "cancellation_rate"
	MetricReturnRate        = "return_rate"
	MetricOrderFrequency    = "order_frequency"
	MetricExcludedOrders    = "excluded_orders"
)

// StatusMetric names the per-status count metric for s.
func StatusMetric(s order.Status) string {
	return "status_" + s.String()
}

const snapshotColumns = "id, run_id, taken_at, command, time_window, version"

// SaveReport records r and its recommendations as a new snapshot in a single
// transaction. Open recommendations whose rule did not fire this time are
// resolved; rules already open are carried forward rather than duplicated.
func (db *DB) SaveReport(ctx context.Context, r insights.Report, recs []suggest.Recommendation, command, version string) (*Snapshot, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	snap := &Snapshot{
		RunID:   uuid.NewString(),
		TakenAt: time.Now().UTC().Truncate(time.Second),
		Command: command,
		Window:  string(r.Window),
		Version: version,
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots (run_id, taken_at, command, time_window, version) VALUES (?, ?, ?, ?, ?)",
		snap.RunID, snap.TakenAt.Format(time.RFC3339), snap.Command, snap.Window, snap.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}
	if snap.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	for _, m := range reportMetrics(r) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO aggregate_metrics (snapshot_id, metric_name, metric_value, detail) VALUES (?, ?, ?, ?)",
			snap.ID, m.MetricName, m.MetricValue, m.Detail,
		); err != nil {
			return nil, fmt.Errorf("inserting metric %s: %w", m.MetricName, err)
		}
	}

	if err := syncRecommendations(ctx, tx, snap.ID, recs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return snap, nil
}

func reportMetrics(r insights.Report) []AggregateMetric {
	s := r.Summary
	m := r.Metrics
	out := []AggregateMetric{
		{MetricName: MetricTotalOrders, MetricValue: float64(s.TotalOrders)},
		{MetricName: MetricRevenue, MetricValue: s.Revenue.InexactFloat64(), Detail: s.Revenue.StringFixed(2)},
		{MetricName: MetricAverageOrderValue, MetricValue: m.AverageOrderValue.InexactFloat64(), Detail: m.AverageOrderValue.StringFixed(2)},
		{MetricName: MetricCompletionRate, MetricValue: m.CompletionRate},
		{MetricName: MetricCancellationRate, MetricValue: m.CancellationRate},
		{MetricName: MetricReturnRate, MetricValue: m.ReturnRate},
		{MetricName: MetricOrderFrequency, MetricValue: m.Frequency.Value, Detail: string(m.Frequency.Period)},
		{MetricName: MetricExcludedOrders, MetricValue: float64(s.Excluded)},
	}
	for _, st := range order.AllStatuses {
		out = append(out, AggregateMetric{MetricName: StatusMetric(st), MetricValue: float64(s.StatusCounts[st])})
	}
	return out
}

// GetLatestSnapshot returns the most recent snapshot.
func (db *DB) GetLatestSnapshot(ctx context.Context) (*Snapshot, error) {
	return db.GetSnapshotN(ctx, 1)
}

// GetSnapshot returns a snapshot by ID.
func (db *DB) GetSnapshot(ctx context.Context, id int64) (*Snapshot, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+snapshotColumns+" FROM snapshots WHERE id = ?", id)
	return scanSnapshot(row)
}

// GetSnapshotN returns the Nth most recent snapshot (1 = latest, 2 = previous, etc.).
func (db *DB) GetSnapshotN(ctx context.Context, n int) (*Snapshot, error) {
	if n < 1 {
		return nil, fmt.Errorf("snapshot index must be at least 1, got %d", n)
	}
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+snapshotColumns+" FROM snapshots ORDER BY id DESC LIMIT 1 OFFSET ?",
		n-1,
	)
	return scanSnapshot(row)
}

// ListSnapshots returns up to limit snapshots, newest first.
func (db *DB) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+snapshotColumns+" FROM snapshots ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*Snapshot, error) {
	var s Snapshot
	var takenAt string
	err := row.Scan(&s.ID, &s.RunID, &takenAt, &s.Command, &s.Window, &s.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	s.TakenAt, _ = time.Parse(time.RFC3339, takenAt)
	return &s, nil
}

// GetAggregateMetrics returns all aggregate metrics for a snapshot.
func (db *DB) GetAggregateMetrics(ctx context.Context, snapshotID int64) ([]AggregateMetric, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, snapshot_id, metric_name, metric_value, detail FROM aggregate_metrics WHERE snapshot_id = ? ORDER BY id",
		snapshotID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var metrics []AggregateMetric
	for rows.Next() {
		var m AggregateMetric
		var detail sql.NullString
		if err := rows.Scan(&m.ID, &m.SnapshotID, &m.MetricName, &m.MetricValue, &detail); err != nil {
			return nil, err
		}
		m.Detail = detail.String
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
