// Package order defines the canonical order record consumed by the insights
// engine and the normalization applied to raw order data at ingestion.
package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the closed set of order states understood by the engine.
type Status string

const (
	// StatusUnknown is assigned to status strings with no known alias. Such
	// orders count toward totals but never toward a status breakdown.
	StatusUnknown    Status = ""
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

// AllStatuses lists every known status in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusReturned,
}

// TrackedStatuses is the five-state view used by distributions and trends.
// Processing is folded into pending (see FiveState).
var TrackedStatuses = []Status{
	StatusPending,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusReturned,
}

// statusAliases maps folded source spellings to canonical statuses.
var statusAliases = map[string]Status{
	"pending":          StatusPending,
	"placed":           StatusPending,
	"awaiting_payment": StatusPending,
	"processing":       StatusProcessing,
	"confirmed":        StatusProcessing,
	"preparing":        StatusProcessing,
	"shipped":          StatusShipped,
	"in_transit":       StatusShipped,
	"delivered":        StatusDelivered,
	"completed":        StatusDelivered,
	"complete":         StatusDelivered,
	"cancelled":        StatusCancelled,
	"canceled":         StatusCancelled,
	"returned":         StatusReturned,
	"refunded":         StatusReturned,
}

// ParseStatus normalizes a raw status string: it trims, case-folds, treats
// spaces and dashes as underscores and resolves known aliases. Strings with
// no known mapping return StatusUnknown.
func ParseStatus(s string) Status {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if st, ok := statusAliases[key]; ok {
		return st
	}
	return StatusUnknown
}

// Known reports whether s is one of the six canonical statuses.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// FiveState maps s into the five-state view used by distributions and trend
// status counts. Processing maps to pending. The second result is false for
// StatusUnknown.
func (s Status) FiveState() (Status, bool) {
	switch s {
	case StatusProcessing:
		return StatusPending, true
	case StatusPending, StatusShipped, StatusDelivered, StatusCancelled, StatusReturned:
		return s, true
	}
	return StatusUnknown, false
}

// String returns the canonical name, or "unknown".
func (s Status) String() string {
	if s == StatusUnknown {
		return "unknown"
	}
	return string(s)
}

// Order is a normalized order record. A zero CreatedAt means the source
// timestamp could not be parsed.
type Order struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Status    Status          `json:"status"`
	Total     decimal.Decimal `json:"total_amount"`
}

// HasTimestamp reports whether the order carries a usable creation time.
func (o Order) HasTimestamp() bool {
	return !o.CreatedAt.IsZero()
}

// StatusCounts holds the number of orders per canonical status.
type StatusCounts map[Status]int

// CountStatuses tallies orders by status. Unknown statuses are not keyed.
func CountStatuses(orders []Order) StatusCounts {
	counts := make(StatusCounts, len(AllStatuses))
	for _, s := range AllStatuses {
		counts[s] = 0
	}
	for _, o := range orders {
		if o.Status.Known() {
			counts[o.Status]++
		}
	}
	return counts
}

// Total returns the sum of all keyed counts.
func (c StatusCounts) Total() int {
	total := 0
	for s, n := range c {
		if s.Known() {
			total += n
		}
	}
	return total
}

// FiveState returns the counts folded into the five tracked statuses.
func (c StatusCounts) FiveState() StatusCounts {
	out := make(StatusCounts, len(TrackedStatuses))
	for _, s := range TrackedStatuses {
		out[s] = 0
	}
	for s, n := range c {
		if folded, ok := s.FiveState(); ok {
			out[folded] += n
		}
	}
	return out
}
