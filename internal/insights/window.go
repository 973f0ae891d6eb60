package insights

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/orderwatch/internal/order"
)

// ErrUnknownWindow is returned by ParseWindow for unrecognized names.
var ErrUnknownWindow = errors.New("unknown time window")

// Window is a relative date range used to select orders before aggregation.
type Window string

const (
	WindowLast7Days   Window = "last_7_days"
	WindowLast30Days  Window = "last_30_days"
	WindowLast6Months Window = "last_6_months"
	WindowAllTime     Window = "all_time"
)

// Windows lists the supported windows from narrowest to widest.
var Windows = []Window{
	WindowLast7Days,
	WindowLast30Days,
	WindowLast6Months,
	WindowAllTime,
}

const day = 24 * time.Hour

// windowSpans holds the look-back of each bounded window. Six months is
// 180 days, not calendar months; chart labels downstream depend on it.
var windowSpans = map[Window]time.Duration{
	WindowLast7Days:   7 * day,
	WindowLast30Days:  30 * day,
	WindowLast6Months: 6 * 30 * day,
}

var windowAliases = map[string]Window{
	"7d":  WindowLast7Days,
	"30d": WindowLast30Days,
	"6m":  WindowLast6Months,
	"all": WindowAllTime,
}

// ParseWindow resolves a window name or one of its short aliases
// (7d, 30d, 6m, all).
func ParseWindow(s string) (Window, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if w, ok := windowAliases[key]; ok {
		return w, nil
	}
	for _, w := range Windows {
		if string(w) == key {
			return w, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWindow, s)
}

// Span returns the look-back duration. The second result is false for
// all_time, which has no cutoff.
func (w Window) Span() (time.Duration, bool) {
	d, ok := windowSpans[w]
	return d, ok
}

// Cutoff returns the earliest instant included in the window.
func (w Window) Cutoff(now time.Time) (time.Time, bool) {
	d, ok := w.Span()
	if !ok {
		return time.Time{}, false
	}
	return now.Add(-d), true
}

// Granularity returns the trend bucket size suited to the window: days for
// the 7 and 30 day windows, months otherwise.
func (w Window) Granularity() Granularity {
	switch w {
	case WindowLast7Days, WindowLast30Days:
		return GranularityDay
	default:
		return GranularityMonth
	}
}

// Label returns a human-readable name.
func (w Window) Label() string {
	switch w {
	case WindowLast7Days:
		return "Last 7 days"
	case WindowLast30Days:
		return "Last 30 days"
	case WindowLast6Months:
		return "Last 6 months"
	case WindowAllTime:
		return "All time"
	}
	return string(w)
}

// Filter returns the orders created at or after the window's cutoff. Orders
// without a usable timestamp are always excluded. For all_time the input
// slice itself is returned when every order has a timestamp. The input is
// never modified.
func Filter(orders []order.Order, w Window, now time.Time) []order.Order {
	cutoff, bounded := w.Cutoff(now)

	if !bounded {
		clean := true
		for _, o := range orders {
			if !o.HasTimestamp() {
				clean = false
				break
			}
		}
		if clean {
			return orders
		}
	}

	filtered := make([]order.Order, 0, len(orders))
	for _, o := range orders {
		if !o.HasTimestamp() {
			continue
		}
		if bounded && o.CreatedAt.Before(cutoff) {
			continue
		}
		filtered = append(filtered, o)
	}
	return filtered
}
