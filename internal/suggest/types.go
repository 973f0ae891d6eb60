// Package suggest turns derived order metrics into operational
// recommendations by evaluating a fixed, ordered list of threshold rules.
package suggest

import (
	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/order"
)

// Severity grades a recommendation.
type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityPositive Severity = "positive"
)

// Recommendation is an actionable advisory produced by a rule.
type Recommendation struct {
	Rule        string   `json:"rule"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Thresholds holds the trigger points of the built-in rules. Rates are
// percentages.
type Thresholds struct {
	CancellationRate    float64 `mapstructure:"cancellation_rate" json:"cancellation_rate"`
	ReturnRate          float64 `mapstructure:"return_rate" json:"return_rate"`
	PendingRatio        float64 `mapstructure:"pending_ratio" json:"pending_ratio"`
	PendingMin          int     `mapstructure:"pending_min" json:"pending_min"`
	CompletionRate      float64 `mapstructure:"completion_rate" json:"completion_rate"`
	CompletionMinOrders int     `mapstructure:"completion_min_orders" json:"completion_min_orders"`
	MonthlyFrequency    float64 `mapstructure:"monthly_frequency" json:"monthly_frequency"`
}

// DefaultThresholds returns the stock rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CancellationRate:    10,
		ReturnRate:          5,
		PendingRatio:        0.5,
		PendingMin:          3,
		CompletionRate:      70,
		CompletionMinOrders: 5,
		MonthlyFrequency:    1,
	}
}

// Context is the input every rule is evaluated against.
type Context struct {
	Metrics     insights.Metrics
	Counts      order.StatusCounts
	TotalOrders int
	Thresholds  Thresholds
}

// Rule pairs a predicate with the recommendation it emits when the
// predicate holds.
type Rule struct {
	Name    string
	Applies func(ctx *Context) bool
	Build   func(ctx *Context) Recommendation
}
