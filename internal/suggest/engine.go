package suggest

import (
	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/order"
)

// Engine evaluates its rules in declaration order.
type Engine struct {
	rules      []Rule
	thresholds Thresholds
}

// NewEngine creates an engine with the built-in rules registered in their
// fixed order.
func NewEngine(t Thresholds) *Engine {
	return &Engine{
		rules: []Rule{
			HighCancellation,
			HighReturns,
			ManyPending,
			LowCompletion,
			LowFrequency,
		},
		thresholds: t,
	}
}

// Thresholds returns the thresholds the engine evaluates against.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Recommend runs every rule and returns the recommendations of those that
// fired, in rule order. When none fired it returns a single positive entry,
// so the result is never empty.
func (e *Engine) Recommend(m insights.Metrics, counts order.StatusCounts, totalOrders int) []Recommendation {
	ctx := &Context{
		Metrics:     m,
		Counts:      counts,
		TotalOrders: totalOrders,
		Thresholds:  e.thresholds,
	}

	var out []Recommendation
	for _, rule := range e.rules {
		if !rule.Applies(ctx) {
			continue
		}
		rec := rule.Build(ctx)
		rec.Rule = rule.Name
		out = append(out, rec)
	}
	if len(out) == 0 {
		out = append(out, allClear())
	}
	return out
}

// Evaluate recommends over a report produced by insights.Analyze.
func (e *Engine) Evaluate(r insights.Report) []Recommendation {
	return e.Recommend(r.Metrics, r.Summary.StatusCounts, r.Summary.TotalOrders)
}
