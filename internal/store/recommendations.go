package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

// syncRecommendations opens a row for every actionable recommendation whose
// rule is not already open, refreshes rows that are, and resolves open rows
// whose rule is absent from recs. Positive recommendations are not stored.
func syncRecommendations(ctx context.Context, tx *sql.Tx, snapshotID int64, recs []suggest.Recommendation) error {
	open := make(map[string]int64)
	rows, err := tx.QueryContext(ctx, "SELECT id, rule FROM recommendations WHERE status = ?", StatusOpen)
	if err != nil {
		return fmt.Errorf("loading open recommendations: %w", err)
	}
	for rows.Next() {
		var id int64
		var rule string
		if err := rows.Scan(&id, &rule); err != nil {
			_ = rows.Close()
			return err
		}
		open[rule] = id
	}
	if err := rows.Close(); err != nil {
		return err
	}

	fired := make(map[string]bool)
	for _, r := range suggest.Actionable(recs) {
		fired[r.Rule] = true
		if id, ok := open[r.Rule]; ok {
			if _, err := tx.ExecContext(ctx,
				"UPDATE recommendations SET snapshot_id = ?, title = ?, description = ?, severity = ? WHERE id = ?",
				snapshotID, r.Title, r.Description, string(r.Severity), id,
			); err != nil {
				return fmt.Errorf("refreshing recommendation %s: %w", r.Rule, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recommendations (snapshot_id, rule, title, description, severity, status)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			snapshotID, r.Rule, r.Title, r.Description, string(r.Severity), StatusOpen,
		); err != nil {
			return fmt.Errorf("inserting recommendation %s: %w", r.Rule, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for rule, id := range open {
		if fired[rule] {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE recommendations SET status = ?, resolved_at = ? WHERE id = ?",
			StatusResolved, now, id,
		); err != nil {
			return fmt.Errorf("resolving recommendation %s: %w", rule, err)
		}
	}
	return nil
}

// GetOpenRecommendations returns open recommendations, most severe first.
func (db *DB) GetOpenRecommendations(ctx context.Context) ([]RecommendationRow, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, snapshot_id, rule, title, description, severity, status, resolved_at
		 FROM recommendations WHERE status = ?
		 ORDER BY CASE severity WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END, id`,
		StatusOpen,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []RecommendationRow
	for rows.Next() {
		var r RecommendationRow
		var resolvedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.SnapshotID, &r.Rule, &r.Title,
			&r.Description, &r.Severity, &r.Status, &resolvedAt); err != nil {
			return nil, err
		}
		if resolvedAt.Valid {
			if t, err := time.Parse(time.RFC3339, resolvedAt.String); err == nil {
				r.ResolvedAt = &t
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResolveRecommendation marks an open recommendation as resolved. It
// returns ErrNoRecommendation when id is unknown or already resolved.
func (db *DB) ResolveRecommendation(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE recommendations SET status = ?, resolved_at = ? WHERE id = ? AND status = ?",
		StatusResolved, time.Now().UTC().Format(time.RFC3339), id, StatusOpen,
	)
	if err != nil {
		return fmt.Errorf("resolving recommendation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("recommendation %d: %w", id, ErrNoRecommendation)
	}
	return nil
}
