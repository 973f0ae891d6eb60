package insights

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackwell-systems/orderwatch/internal/order"
)

// Granularity is the calendar unit of a trend bucket.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

// Key returns the zero-padded bucket key for t: YYYY-MM-DD for days and
// YYYY-MM for months. Both formats sort lexically in calendar order.
func (g Granularity) Key(t time.Time) string {
	if g == GranularityMonth {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

// start truncates t to the beginning of its bucket in t's location.
func (g Granularity) start(t time.Time) time.Time {
	y, m, d := t.Date()
	if g == GranularityMonth {
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	}
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (g Granularity) next(t time.Time) time.Time {
	if g == GranularityMonth {
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

// TrendBucket aggregates the orders of one day or month.
type TrendBucket struct {
	Key          string             `json:"bucket_key"`
	OrderCount   int                `json:"order_count"`
	Revenue      decimal.Decimal    `json:"revenue_total"`
	StatusCounts order.StatusCounts `json:"status_counts"`
}

func newBucket(key string) *TrendBucket {
	counts := make(order.StatusCounts, len(order.TrackedStatuses))
	for _, s := range order.TrackedStatuses {
		counts[s] = 0
	}
	return &TrendBucket{Key: key, Revenue: decimal.Zero, StatusCounts: counts}
}

// BuildTrend buckets orders by calendar day or month in loc (time.Local when
// nil) and returns the buckets sorted by key. Every order counts toward its
// bucket's OrderCount and Revenue; only statuses in the five-state view
// count toward StatusCounts. Processing orders are counted under the pending
// entry of StatusCounts rather than left out of it, matching Distribution.
// Unknown statuses appear in OrderCount only. Buckets without orders are not
// synthesized.
func BuildTrend(orders []order.Order, g Granularity, loc *time.Location) []TrendBucket {
	if loc == nil {
		loc = time.Local
	}

	byKey := make(map[string]*TrendBucket)
	for _, o := range orders {
		key := g.Key(o.CreatedAt.In(loc))
		b, ok := byKey[key]
		if !ok {
			b = newBucket(key)
			byKey[key] = b
		}
		b.OrderCount++
		b.Revenue = b.Revenue.Add(o.Total)
		if s, ok := o.Status.FiveState(); ok {
			b.StatusCounts[s]++
		}
	}

	return sortedBuckets(byKey)
}

// FillGaps returns buckets extended with empty entries so that every bucket
// between from and to (inclusive, in loc) is present. Chart consumers that
// need a continuous series use it on BuildTrend's output.
func FillGaps(buckets []TrendBucket, g Granularity, from, to time.Time, loc *time.Location) []TrendBucket {
	if loc == nil {
		loc = time.Local
	}

	byKey := make(map[string]*TrendBucket, len(buckets))
	for i := range buckets {
		b := buckets[i]
		byKey[b.Key] = &b
	}

	end := g.start(to.In(loc))
	for t := g.start(from.In(loc)); !t.After(end); t = g.next(t) {
		key := g.Key(t)
		if _, ok := byKey[key]; !ok {
			byKey[key] = newBucket(key)
		}
	}

	return sortedBuckets(byKey)
}

func sortedBuckets(byKey map[string]*TrendBucket) []TrendBucket {
	out := make([]TrendBucket, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}

// parse is the inverse of Key, in loc.
func (g Granularity) parse(key string, loc *time.Location) (time.Time, error) {
	if g == GranularityMonth {
		return time.ParseInLocation("2006-01", key, loc)
	}
	return time.ParseInLocation("2006-01-02", key, loc)
}

// ContinuousTrend returns r's trend with empty buckets from the window
// cutoff through r.GeneratedAt. For all_time the series starts at the first
// populated bucket.
func ContinuousTrend(r Report, loc *time.Location) []TrendBucket {
	if len(r.Trend) == 0 {
		return r.Trend
	}
	if loc == nil {
		loc = time.Local
	}

	from, ok := r.Window.Cutoff(r.GeneratedAt)
	if !ok {
		first, err := r.Granularity.parse(r.Trend[0].Key, loc)
		if err != nil {
			return r.Trend
		}
		from = first
	}
	return FillGaps(r.Trend, r.Granularity, from, r.GeneratedAt, loc)
}
