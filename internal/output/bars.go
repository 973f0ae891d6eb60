package output

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ShareBar renders a proportional bar for a 0-100 percentage.
// Example: "██████░░░░░░░░░░░░░░  30.0%"
func ShareBar(pct float64, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := int(math.Round(pct / 100.0 * float64(width)))
	filled = max(0, min(width, filled))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %5.1f%%", StyleHeader.Render(bar), pct)
}

// Rate renders a percentage colored against a threshold. When higherIsBetter
// a value below the threshold is an error; otherwise a value above it is.
func Rate(pct, threshold float64, higherIsBetter bool) string {
	s := fmt.Sprintf("%.1f%%", pct)
	bad := pct > threshold
	if higherIsBetter {
		bad = pct < threshold
	}
	if bad {
		return StyleError.Render(s)
	}
	return StyleSuccess.Render(s)
}

// Money formats an amount with thousands separators and two decimals.
func Money(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.InexactFloat64())
}

// Count formats an integer with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Ago renders t relative to now, e.g. "3 hours ago".
func Ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// TrendArrow returns a styled trend indicator for a delta value.
// Positive delta shows an up arrow, negative shows down, zero shows a dash.
// higherIsBetter decides whether an increase is styled as an improvement.
func TrendArrow(delta float64, higherIsBetter bool) string {
	if delta == 0 {
		return StyleMuted.Render("─")
	}

	isPositive := delta > 0
	isImproved := isPositive == higherIsBetter

	var arrow string
	if isPositive {
		arrow = fmt.Sprintf("▲ +%.1f", delta)
	} else {
		arrow = fmt.Sprintf("▼ %.1f", delta)
	}

	if isImproved {
		return StyleSuccess.Render(arrow)
	}
	return StyleError.Render(arrow)
}

// Section returns a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
