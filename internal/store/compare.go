package store

import (
	"context"
	"fmt"
	"sort"
)

// higherIsBetter maps a metric to whether an increase is an improvement.
// Metrics absent from the map are reported as changed or unchanged only.
var higherIsBetter = map[string]bool{
	MetricTotalOrders:       true,
	MetricRevenue:           true,
	MetricAverageOrderValue: true,
	MetricCompletionRate:    true,
	MetricCancellationRate:  false,
	MetricReturnRate:        false,
	MetricOrderFrequency:    true,
}

// CompareSnapshots diffs the aggregate metrics of two snapshots. Deltas are
// reported for metrics present in both, sorted by name.
func (db *DB) CompareSnapshots(ctx context.Context, previousID, currentID int64) (*SnapshotDiff, error) {
	prev, err := db.GetSnapshot(ctx, previousID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %d: %w", previousID, err)
	}
	curr, err := db.GetSnapshot(ctx, currentID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %d: %w", currentID, err)
	}

	prevMetrics, err := db.metricValues(ctx, previousID)
	if err != nil {
		return nil, err
	}
	currMetrics, err := db.metricValues(ctx, currentID)
	if err != nil {
		return nil, err
	}

	diff := &SnapshotDiff{Previous: prev, Current: curr}
	for name, c := range currMetrics {
		p, ok := prevMetrics[name]
		if !ok {
			continue
		}
		diff.Deltas = append(diff.Deltas, MetricDelta{
			Name:      name,
			Previous:  p,
			Current:   c,
			Delta:     c - p,
			Direction: direction(name, c-p),
		})
	}
	sort.Slice(diff.Deltas, func(i, j int) bool {
		return diff.Deltas[i].Name < diff.Deltas[j].Name
	})
	return diff, nil
}

func (db *DB) metricValues(ctx context.Context, snapshotID int64) (map[string]float64, error) {
	metrics, err := db.GetAggregateMetrics(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		out[m.MetricName] = m.MetricValue
	}
	return out, nil
}

// HigherIsBetter reports whether an increase in the named metric is an
// improvement. ok is false for metrics with no preferred direction.
func HigherIsBetter(name string) (better, ok bool) {
	better, ok = higherIsBetter[name]
	return better, ok
}

func direction(name string, delta float64) string {
	if delta == 0 {
		return DirectionUnchanged
	}
	better, ok := higherIsBetter[name]
	if !ok {
		return DirectionChanged
	}
	if (delta > 0) == better {
		return DirectionImproved
	}
	return DirectionRegressed
}
