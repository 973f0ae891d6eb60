package watcher

import (
	"fmt"
	"sort"

	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

// Rate movements, in percentage points, that raise an alert between checks.
const (
	SpikePoints          = 5.0
	CompletionDropPoints = 10.0
)

// Compare detects notable changes between two watch states and returns alerts
// ordered critical, warning, info.
func Compare(prev, curr *WatchState) []Alert {
	var alerts []Alert

	alerts = append(alerts, compareRecommendations(prev, curr)...)
	alerts = append(alerts, compareRates(prev, curr)...)
	alerts = append(alerts, compareVolume(prev, curr)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return levelRank(alerts[i].Level) < levelRank(alerts[j].Level)
	})
	return alerts
}

func levelRank(level string) int {
	switch level {
	case LevelCritical:
		return 0
	case LevelWarning:
		return 1
	default:
		return 2
	}
}

// compareRecommendations alerts on rules that started or stopped firing.
func compareRecommendations(prev, curr *WatchState) []Alert {
	var alerts []Alert
	now := curr.Timestamp

	before := prev.firing()
	after := curr.firing()

	for _, r := range suggest.Actionable(curr.Recommendations) {
		if _, ok := before[r.Rule]; ok {
			continue
		}
		level := LevelWarning
		if r.Severity == suggest.SeverityHigh {
			level = LevelCritical
		}
		alerts = append(alerts, Alert{
			Level:   level,
			Title:   r.Title,
			Message: r.Description,
			Time:    now,
		})
	}

	for _, r := range suggest.Actionable(prev.Recommendations) {
		if _, ok := after[r.Rule]; ok {
			continue
		}
		alerts = append(alerts, Alert{
			Level:   LevelInfo,
			Title:   fmt.Sprintf("Resolved: %s", r.Title),
			Message: "The condition behind this recommendation no longer holds.",
			Time:    now,
		})
	}

	return alerts
}

// compareRates alerts on sharp rate movements that may not yet cross a
// recommendation threshold.
func compareRates(prev, curr *WatchState) []Alert {
	var alerts []Alert
	now := curr.Timestamp
	p, c := prev.Report.Metrics, curr.Report.Metrics

	if curr.Report.Summary.TotalOrders == 0 {
		return nil
	}

	if d := c.CancellationRate - p.CancellationRate; d >= SpikePoints {
		alerts = append(alerts, Alert{
			Level:   LevelWarning,
			Title:   "Cancellation spike",
			Message: fmt.Sprintf("Cancellation rate rose from %.1f%% to %.1f%%", p.CancellationRate, c.CancellationRate),
			Time:    now,
		})
	}
	if d := c.ReturnRate - p.ReturnRate; d >= SpikePoints {
		alerts = append(alerts, Alert{
			Level:   LevelWarning,
			Title:   "Return spike",
			Message: fmt.Sprintf("Return rate rose from %.1f%% to %.1f%%", p.ReturnRate, c.ReturnRate),
			Time:    now,
		})
	}
	if d := p.CompletionRate - c.CompletionRate; d >= CompletionDropPoints && prev.Report.Summary.TotalOrders > 0 {
		alerts = append(alerts, Alert{
			Level:   LevelWarning,
			Title:   "Completion rate dropped",
			Message: fmt.Sprintf("Completion rate fell from %.1f%% to %.1f%%", p.CompletionRate, c.CompletionRate),
			Time:    now,
		})
	}

	return alerts
}

// compareVolume reports newly arrived orders.
func compareVolume(prev, curr *WatchState) []Alert {
	ps, cs := prev.Report.Summary, curr.Report.Summary
	if cs.TotalOrders <= ps.TotalOrders {
		return nil
	}
	added := cs.TotalOrders - ps.TotalOrders
	revenue := cs.Revenue.Sub(ps.Revenue)
	return []Alert{{
		Level:   LevelInfo,
		Title:   "New orders",
		Message: fmt.Sprintf("%d new order(s) in %s, revenue %s", added, curr.Report.Window, revenue.StringFixed(2)),
		Time:    curr.Timestamp,
	}}
}
