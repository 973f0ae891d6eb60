package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/order"
	"github.com/blackwell-systems/orderwatch/internal/output"
)

var trendFillGaps bool

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show orders, revenue and status per day or month",
	Long: `Bucket the orders of a time window by calendar day (7 and 30 day
windows) or month (6 months and all time) in the configured timezone.
Only days or months with orders are listed unless --fill-gaps is given.`,
	RunE: runTrend,
}

func init() {
	trendCmd.Flags().BoolVar(&trendFillGaps, "fill-gaps", false, "Include empty days or months")
	rootCmd.AddCommand(trendCmd)
}

type trendOutput struct {
	Window      insights.Window        `json:"window"`
	Granularity insights.Granularity   `json:"granularity"`
	Buckets     []insights.TrendBucket `json:"buckets"`
}

func runTrend(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	report, _, err := env.analyze(cmd.Context())
	if err != nil {
		return err
	}

	buckets := report.Trend
	if trendFillGaps {
		buckets = insights.ContinuousTrend(report, env.loc)
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, trendOutput{Window: report.Window, Granularity: report.Granularity, Buckets: buckets})
	}
	renderTrend(out, report, buckets)
	return nil
}

func renderTrend(w io.Writer, r insights.Report, buckets []insights.TrendBucket) {
	fmt.Fprintln(w, output.Section(fmt.Sprintf("Order Trend: %s (by %s)", r.Window.Label(), r.Granularity)))
	fmt.Fprintln(w)

	if len(buckets) == 0 {
		fmt.Fprintf(w, " %s\n", output.StyleMuted.Render("No orders in this window."))
		return
	}

	headers := []string{"Period", "Orders", "Revenue"}
	for _, s := range order.TrackedStatuses {
		headers = append(headers, s.String())
	}
	tbl := output.NewTable(headers...)
	for i := 1; i < len(headers); i++ {
		tbl.AlignRight(i)
	}
	for _, b := range buckets {
		row := []string{b.Key, output.Count(b.OrderCount), output.Money(b.Revenue)}
		for _, s := range order.TrackedStatuses {
			row = append(row, output.Count(b.StatusCounts[s]))
		}
		tbl.AddRow(row...)
	}
	tbl.Fprint(w)
}
