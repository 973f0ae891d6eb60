package insights

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackwell-systems/orderwatch/internal/order"
)

// Period is the unit an order frequency is expressed in.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Frequency is an order count normalized to a single time unit.
type Frequency struct {
	Value  float64 `json:"value"`
	Period Period  `json:"period"`
}

// Metrics holds the scalar rates derived from a set of orders. Rates are
// percentages in [0, 100].
type Metrics struct {
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	CompletionRate    float64         `json:"completion_rate"`
	CancellationRate  float64         `json:"cancellation_rate"`
	ReturnRate        float64         `json:"return_rate"`
	Frequency         Frequency       `json:"order_frequency"`
}

// ComputeMetrics derives Metrics from orders. counts supplies the per-status
// tallies; when nil they are counted from orders. Every ratio with an empty
// denominator is 0.
func ComputeMetrics(orders []order.Order, counts order.StatusCounts, now time.Time) Metrics {
	if counts == nil {
		counts = order.CountStatuses(orders)
	}
	n := len(orders)

	m := Metrics{
		AverageOrderValue: decimal.Zero,
		Frequency:         Frequency{Value: 0, Period: PeriodDay},
	}
	if n == 0 {
		return m
	}

	sum := decimal.Zero
	for _, o := range orders {
		sum = sum.Add(o.Total)
	}
	m.AverageOrderValue = sum.DivRound(decimal.NewFromInt(int64(n)), 2)

	cancelled := counts[order.StatusCancelled]
	m.CompletionRate = percent(counts[order.StatusDelivered], n-cancelled)
	m.CancellationRate = percent(cancelled, n)
	m.ReturnRate = percent(counts[order.StatusReturned], n)
	m.Frequency = orderFrequency(orders, now)

	return m
}

// orderFrequency picks the period from the span between the oldest order and
// now (up to 7 days: day, up to 30: week, beyond: month) and expresses the
// order rate in that period.
func orderFrequency(orders []order.Order, now time.Time) Frequency {
	n := len(orders)
	if n == 0 {
		return Frequency{Value: 0, Period: PeriodDay}
	}

	spanDays := SpanDays(orders, now)
	perDay := float64(n) / spanDays

	switch {
	case spanDays <= 7:
		return Frequency{Value: perDay, Period: PeriodDay}
	case spanDays <= 30:
		return Frequency{Value: perDay * 7, Period: PeriodWeek}
	default:
		return Frequency{Value: perDay * 30, Period: PeriodMonth}
	}
}

// SpanDays returns the whole days, rounded up and at least 1, between the
// oldest timestamped order and now.
func SpanDays(orders []order.Order, now time.Time) float64 {
	var oldest time.Time
	for _, o := range orders {
		if !o.HasTimestamp() {
			continue
		}
		if oldest.IsZero() || o.CreatedAt.Before(oldest) {
			oldest = o.CreatedAt
		}
	}
	if oldest.IsZero() {
		return 1
	}

	days := math.Ceil(now.Sub(oldest).Hours() / 24)
	return math.Max(1, days)
}
