package suggest

import (
	"fmt"

	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/order"
)

// HighCancellation fires when the cancellation rate exceeds its threshold.
var HighCancellation = Rule{
	Name: "high_cancellation",
	Applies: func(ctx *Context) bool {
		return ctx.Metrics.CancellationRate > ctx.Thresholds.CancellationRate
	},
	Build: func(ctx *Context) Recommendation {
		return Recommendation{
			Title: "High Cancellation Rate",
			Description: fmt.Sprintf(
				"%.1f%% of orders were cancelled (threshold %.0f%%). "+
					"Check stock accuracy, payment failures and delivery estimates shown at checkout.",
				ctx.Metrics.CancellationRate, ctx.Thresholds.CancellationRate,
			),
			Severity: SeverityHigh,
		}
	},
}

// HighReturns fires when the return rate exceeds its threshold.
var HighReturns = Rule{
	Name: "high_returns",
	Applies: func(ctx *Context) bool {
		return ctx.Metrics.ReturnRate > ctx.Thresholds.ReturnRate
	},
	Build: func(ctx *Context) Recommendation {
		return Recommendation{
			Title: "High Return Rate",
			Description: fmt.Sprintf(
				"%.1f%% of orders were returned (threshold %.0f%%). "+
					"Review product descriptions, sizing information and packaging quality.",
				ctx.Metrics.ReturnRate, ctx.Thresholds.ReturnRate,
			),
			Severity: SeverityMedium,
		}
	},
}

// ManyPending fires when pending orders outnumber a fraction of delivered
// ones and exceed a minimum backlog. Processing orders are not counted here.
var ManyPending = Rule{
	Name: "many_pending",
	Applies: func(ctx *Context) bool {
		pending := ctx.Counts[order.StatusPending]
		delivered := ctx.Counts[order.StatusDelivered]
		return float64(pending) > float64(delivered)*ctx.Thresholds.PendingRatio &&
			pending > ctx.Thresholds.PendingMin
	},
	Build: func(ctx *Context) Recommendation {
		return Recommendation{
			Title: "Many Pending Orders",
			Description: fmt.Sprintf(
				"%d orders are still pending against %d delivered. "+
					"Confirm payments and move pending orders into fulfilment.",
				ctx.Counts[order.StatusPending], ctx.Counts[order.StatusDelivered],
			),
			Severity: SeverityMedium,
		}
	},
}

// LowCompletion fires when too few non-cancelled orders reach delivery.
var LowCompletion = Rule{
	Name: "low_completion",
	Applies: func(ctx *Context) bool {
		return ctx.Metrics.CompletionRate < ctx.Thresholds.CompletionRate &&
			ctx.TotalOrders > ctx.Thresholds.CompletionMinOrders
	},
	Build: func(ctx *Context) Recommendation {
		return Recommendation{
			Title: "Low Order Completion Rate",
			Description: fmt.Sprintf(
				"Only %.1f%% of non-cancelled orders were delivered (target %.0f%%). "+
					"Look for orders stuck in shipping or fulfilment.",
				ctx.Metrics.CompletionRate, ctx.Thresholds.CompletionRate,
			),
			Severity: SeverityHigh,
		}
	},
}

// LowFrequency fires when the monthly order rate is below its threshold.
// It never fires on an empty order set.
var LowFrequency = Rule{
	Name: "low_frequency",
	Applies: func(ctx *Context) bool {
		f := ctx.Metrics.Frequency
		return f.Period == insights.PeriodMonth &&
			f.Value < ctx.Thresholds.MonthlyFrequency &&
			ctx.TotalOrders > 0
	},
	Build: func(ctx *Context) Recommendation {
		return Recommendation{
			Title: "Low Order Frequency",
			Description: fmt.Sprintf(
				"Orders arrive at %.2f per month. "+
					"Consider promotions or re-engagement campaigns to bring customers back.",
				ctx.Metrics.Frequency.Value,
			),
			Severity: SeverityLow,
		}
	},
}

// allClear is emitted when no other rule fires.
func allClear() Recommendation {
	return Recommendation{
		Rule:        "all_clear",
		Title:       "Your Orders Look Great!",
		Description: "No thresholds were breached in this window. Keep monitoring as volume grows.",
		Severity:    SeverityPositive,
	}
}
