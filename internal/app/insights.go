package app

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/order"
	"github.com/blackwell-systems/orderwatch/internal/output"
	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

var insightsAllWindows bool

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show the order insights dashboard",
	Long: `Filter orders to a time window and show the headline summary, status
distribution, rates and recommendations. With --all-windows every window is
computed side by side.

Examples:
  orderwatch insights                  # configured window (default last_30_days)
  orderwatch insights -w 7d            # last 7 days
  orderwatch insights --all-windows    # compare 7d, 30d, 6m and all time
  orderwatch insights --json           # machine-readable report`,
	RunE: runInsights,
}

func init() {
	insightsCmd.Flags().BoolVar(&insightsAllWindows, "all-windows", false, "Compute every time window")
	rootCmd.AddCommand(insightsCmd)
}

// insightsOutput is the JSON shape of the insights command.
type insightsOutput struct {
	insights.Report
	Recommendations []suggest.Recommendation `json:"recommendations"`
}

func runInsights(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if insightsAllWindows {
		orders, err := env.loadOrders(ctx)
		if err != nil {
			return err
		}
		results, err := analyzeWindows(ctx, env, orders)
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(out, results)
		}
		renderWindowComparison(out, results, env.engine.Thresholds())
		return nil
	}

	report, recs, err := env.analyze(ctx)
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(out, insightsOutput{Report: report, Recommendations: recs})
	}
	renderDashboard(out, report, recs, env.engine.Thresholds())
	return nil
}

// analyzeWindows runs the pipeline for every window concurrently. The
// pipeline never mutates orders, so the slice is shared.
func analyzeWindows(ctx context.Context, env *runEnv, orders []order.Order) ([]insightsOutput, error) {
	results := make([]insightsOutput, len(insights.Windows))
	g, ctx := errgroup.WithContext(ctx)
	for i, w := range insights.Windows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			report := insights.Analyze(orders, env.options(w))
			results[i] = insightsOutput{Report: report, Recommendations: env.engine.Evaluate(report)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func renderDashboard(w io.Writer, r insights.Report, recs []suggest.Recommendation, t suggest.Thresholds) {
	fmt.Fprintln(w, output.Section(fmt.Sprintf("Order Insights: %s", r.Window.Label())))
	fmt.Fprintln(w)

	s := r.Summary
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Orders"), output.StyleValue.Render(output.Count(s.TotalOrders)))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Revenue"), output.StyleValue.Render(output.Money(s.Revenue)))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Average order value"), output.StyleValue.Render(output.Money(r.Metrics.AverageOrderValue)))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Order frequency"),
		output.StyleValue.Render(fmt.Sprintf("%.1f / %s", r.Metrics.Frequency.Value, r.Metrics.Frequency.Period)))
	if s.Processing > 0 {
		fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Processing"), output.StyleMuted.Render(fmt.Sprintf("%d (shown as pending)", s.Processing)))
	}
	if s.Unknown > 0 {
		fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Unknown status"), output.StyleWarning.Render(output.Count(s.Unknown)))
	}
	if s.Excluded > 0 {
		fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Outside window"), output.StyleMuted.Render(output.Count(s.Excluded)))
	}

	fmt.Fprintln(w, output.Section("Rates"))
	fmt.Fprintln(w)
	m := r.Metrics
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Completion"), output.Rate(m.CompletionRate, t.CompletionRate, true))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Cancellation"), output.Rate(m.CancellationRate, t.CancellationRate, false))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Returns"), output.Rate(m.ReturnRate, t.ReturnRate, false))

	fmt.Fprintln(w, output.Section("Status Distribution"))
	fmt.Fprintln(w)
	for _, e := range r.Distribution {
		fmt.Fprintf(w, " %-10s %6s  %s\n", e.Status, output.Count(e.Count), output.ShareBar(e.Percentage, 24))
	}

	renderRecommendations(w, recs)
}

func renderRecommendations(w io.Writer, recs []suggest.Recommendation) {
	fmt.Fprintln(w, output.Section("Recommendations"))
	fmt.Fprintln(w)
	for _, rec := range recs {
		fmt.Fprintf(w, " %s %s\n", output.Severity(string(rec.Severity)), output.StyleBold.Render(rec.Title))
		fmt.Fprintf(w, "          %s\n\n", output.StyleMuted.Render(rec.Description))
	}
}

func renderWindowComparison(w io.Writer, results []insightsOutput, t suggest.Thresholds) {
	fmt.Fprintln(w, output.Section("Order Insights by Window"))
	fmt.Fprintln(w)

	tbl := output.NewTable("Window", "Orders", "Revenue", "AOV", "Completion", "Cancelled", "Returned", "Top issue").
		AlignRight(1, 2, 3)
	for _, res := range results {
		top := "-"
		if act := suggest.Actionable(res.Recommendations); len(act) > 0 {
			top = act[0].Title
		}
		tbl.AddRow(
			res.Window.Label(),
			output.Count(res.Summary.TotalOrders),
			output.Money(res.Summary.Revenue),
			output.Money(res.Metrics.AverageOrderValue),
			output.Rate(res.Metrics.CompletionRate, t.CompletionRate, true),
			output.Rate(res.Metrics.CancellationRate, t.CancellationRate, false),
			output.Rate(res.Metrics.ReturnRate, t.ReturnRate, false),
			top,
		)
	}
	tbl.Fprint(w)
}
