// Package store provides SQLite persistence for imported orders, insight
// snapshots and the recommendations raised against them.
package store

import (
	"errors"
	"time"
)

// ErrNoSnapshot is returned when a requested snapshot does not exist.
var ErrNoSnapshot = errors.New("no snapshot")

// ErrNoRecommendation is returned when resolving an id that is not open.
var ErrNoRecommendation = errors.New("no open recommendation")

// Recommendation statuses.
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
)

// Snapshot represents a point-in-time capture of one insights report.
type Snapshot struct {
	ID      int64     `json:"id"`
	RunID   string    `json:"run_id"`
	TakenAt time.Time `json:"taken_at"`
	Command string    `json:"command"`
	Window  string    `json:"window"`
	Version string    `json:"version"`
}

// AggregateMetric represents a named metric value within a snapshot.
type AggregateMetric struct {
	ID          int64   `json:"id"`
	SnapshotID  int64   `json:"snapshot_id"`
	MetricName  string  `json:"metric_name"`
	MetricValue float64 `json:"metric_value"`
	Detail      string  `json:"detail,omitempty"`
}

// RecommendationRow is a stored recommendation. A row stays open until a
// later snapshot no longer raises the same rule.
type RecommendationRow struct {
	ID          int64      `json:"id"`
	SnapshotID  int64      `json:"snapshot_id"`
	Rule        string     `json:"rule"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Severity    string     `json:"severity"`
	Status      string     `json:"status"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// ImportResult summarizes an ImportOrders call.
type ImportResult struct {
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
}

// SnapshotDiff represents the comparison between two snapshots.
type SnapshotDiff struct {
	Previous *Snapshot     `json:"previous"`
	Current  *Snapshot     `json:"current"`
	Deltas   []MetricDelta `json:"deltas"`
}

// Metric delta directions.
const (
	DirectionImproved  = "improved"
	DirectionRegressed = "regressed"
	DirectionUnchanged = "unchanged"
	DirectionChanged   = "changed"
)

// MetricDelta represents the change in a single metric between snapshots.
type MetricDelta struct {
	Name      string  `json:"name"`
	Previous  float64 `json:"previous"`
	Current   float64 `json:"current"`
	Delta     float64 `json:"delta"`
	Direction string  `json:"direction"`
}
