package insights

import (
	"math"

	"github.com/blackwell-systems/orderwatch/internal/order"
)

// DistributionEntry is one slice of the status distribution.
type DistributionEntry struct {
	Status     order.Status `json:"status"`
	Count      int          `json:"count"`
	Percentage float64      `json:"percentage"`
}

// Distribution converts status counts into the five-state distribution in
// fixed display order: pending, shipped, delivered, cancelled, returned.
// Processing has no slice of its own: processing orders are counted under
// pending, so the counts sum to every order with a known status and a
// consumer reading "pending" sees pending plus processing. Summary.Processing
// reports the processing share separately. Percentages are relative to total
// and rounded to one decimal; they are 0 when total is 0.
func Distribution(counts order.StatusCounts, total int) []DistributionEntry {
	five := counts.FiveState()

	entries := make([]DistributionEntry, 0, len(order.TrackedStatuses))
	for _, s := range order.TrackedStatuses {
		n := five[s]
		entries = append(entries, DistributionEntry{
			Status:     s,
			Count:      n,
			Percentage: round1(percent(n, total)),
		})
	}
	return entries
}

// percent returns n/d*100, or 0 when d is not positive.
func percent(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
