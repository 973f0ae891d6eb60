// Package insights derives time-windowed order statistics: window filtering,
// status distribution, trend series and scalar metrics. Every function is a
// pure transformation of its inputs and is safe for concurrent use.
package insights

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackwell-systems/orderwatch/internal/order"
)

// Options configures a single pipeline run.
type Options struct {
	Window   Window
	Now      time.Time
	Location *time.Location
}

// Summary carries the headline counts of a filtered order set.
type Summary struct {
	TotalOrders  int                `json:"total_orders"`
	Revenue      decimal.Decimal    `json:"revenue"`
	StatusCounts order.StatusCounts `json:"status_counts"`

	// Processing is reported on its own because the five-state views fold
	// it into pending.
	Processing int `json:"processing"`

	// Unknown counts orders whose status matched no known alias.
	Unknown int `json:"unknown"`

	// Excluded counts input orders left out by the window filter, including
	// those with unparsable timestamps.
	Excluded int `json:"excluded"`
}

// Report is the full output of one pipeline run.
type Report struct {
	Window       Window              `json:"window"`
	Granularity  Granularity         `json:"granularity"`
	GeneratedAt  time.Time           `json:"generated_at"`
	Summary      Summary             `json:"summary"`
	Distribution []DistributionEntry `json:"distribution"`
	Trend        []TrendBucket       `json:"trend"`
	Metrics      Metrics             `json:"metrics"`
}

// Analyze runs Filter, then Distribution, BuildTrend and ComputeMetrics over
// the filtered orders.
func Analyze(orders []order.Order, opts Options) Report {
	w := opts.Window
	if w == "" {
		w = WindowAllTime
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	filtered := Filter(orders, w, now)
	counts := order.CountStatuses(filtered)
	g := w.Granularity()

	return Report{
		Window:       w,
		Granularity:  g,
		GeneratedAt:  now,
		Summary:      summarize(filtered, counts, len(orders)),
		Distribution: Distribution(counts, len(filtered)),
		Trend:        BuildTrend(filtered, g, opts.Location),
		Metrics:      ComputeMetrics(filtered, counts, now),
	}
}

func summarize(filtered []order.Order, counts order.StatusCounts, inputLen int) Summary {
	revenue := decimal.Zero
	for _, o := range filtered {
		revenue = revenue.Add(o.Total)
	}
	return Summary{
		TotalOrders:  len(filtered),
		Revenue:      revenue,
		StatusCounts: counts,
		Processing:   counts[order.StatusProcessing],
		Unknown:      len(filtered) - counts.Total(),
		Excluded:     inputLen - len(filtered),
	}
}
