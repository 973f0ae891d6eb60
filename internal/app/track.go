package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/orderwatch/internal/output"
	"github.com/blackwell-systems/orderwatch/internal/store"
)

var (
	trackCompare int
	trackHistory int
	trackResolve int64
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Snapshot and compare metrics over time",
	Long: `Run analysis, store a new snapshot, and compare against the most recent
previous snapshot to show deltas with trend arrows. Recommendations whose rule
no longer fires are resolved automatically.`,
	RunE: runTrack,
}

func init() {
	trackCmd.Flags().IntVar(&trackCompare, "compare", 1, "Compare against Nth previous snapshot (1 = most recent)")
	trackCmd.Flags().IntVar(&trackHistory, "history", 0, "Show metric trends across N most recent snapshots")
	trackCmd.Flags().Int64Var(&trackResolve, "resolve", 0, "Mark an open recommendation resolved by ID and exit")
	rootCmd.AddCommand(trackCmd)
}

type trackOutput struct {
	Snapshot        *store.Snapshot           `json:"snapshot"`
	Diff            *store.SnapshotDiff       `json:"diff,omitempty"`
	Recommendations []store.RecommendationRow `json:"open_recommendations"`
}

type historyEntry struct {
	Snapshot store.Snapshot          `json:"snapshot"`
	Metrics  []store.AggregateMetric `json:"metrics"`
}

func runTrack(cmd *cobra.Command, args []string) error {
	if trackCompare < 1 {
		return fmt.Errorf("--compare must be at least 1, got %d", trackCompare)
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if trackResolve != 0 {
		return resolveRecommendation(cmd, env, trackResolve)
	}

	report, recs, err := env.analyze(ctx)
	if err != nil {
		return err
	}

	db, err := env.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	current, err := db.SaveReport(ctx, report, recs, "track", appVersion)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	out := cmd.OutOrStdout()

	if trackHistory > 0 {
		entries, err := loadHistory(cmd, db, trackHistory)
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(out, map[string]any{"history": entries})
		}
		renderHistory(out, entries)
		return nil
	}

	// trackCompare=1 means the immediate predecessor, offset 2 from newest.
	var diff *store.SnapshotDiff
	prev, err := db.GetSnapshotN(ctx, trackCompare+1)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
	case err != nil:
		return fmt.Errorf("loading previous snapshot: %w", err)
	default:
		diff, err = db.CompareSnapshots(ctx, prev.ID, current.ID)
		if err != nil {
			return fmt.Errorf("comparing snapshots: %w", err)
		}
	}

	open, err := db.GetOpenRecommendations(ctx)
	if err != nil {
		return fmt.Errorf("loading open recommendations: %w", err)
	}

	if flagJSON {
		if open == nil {
			open = []store.RecommendationRow{}
		}
		return writeJSON(out, trackOutput{Snapshot: current, Diff: diff, Recommendations: open})
	}

	renderTrackOutput(out, current, diff, open)
	return nil
}

func resolveRecommendation(cmd *cobra.Command, env *runEnv, id int64) error {
	db, err := env.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.ResolveRecommendation(cmd.Context(), id); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, map[string]int64{"resolved": id})
	}
	fmt.Fprintf(out, " %s Resolved recommendation #%d\n", output.StyleSuccess.Render("✓"), id)
	return nil
}

// trendFor renders the arrow for a metric delta, treating metrics with no
// preferred direction as higher-is-better.
func trendFor(name string, delta float64) string {
	better, ok := store.HigherIsBetter(name)
	if !ok {
		better = true
	}
	return output.TrendArrow(delta, better)
}

func renderTrackOutput(w io.Writer, current *store.Snapshot, diff *store.SnapshotDiff, open []store.RecommendationRow) {
	fmt.Fprintln(w, output.Section("Track: Snapshot Comparison"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, " Snapshot #%d taken at %s (%s)\n\n", current.ID, current.TakenAt.Format("2006-01-02 15:04:05"), current.Window)

	if diff == nil {
		fmt.Fprintln(w, " First snapshot recorded. Run 'orderwatch track' again later to see trends.")
	} else {
		fmt.Fprintf(w, " Comparing against snapshot #%d (%s)\n\n",
			diff.Previous.ID, diff.Previous.TakenAt.Format("2006-01-02 15:04:05"))

		tbl := output.NewTable("Metric", "Previous", "Current", "Delta", "Trend").AlignRight(1, 2, 3)
		for _, d := range diff.Deltas {
			tbl.AddRow(
				metricShortName(d.Name),
				fmt.Sprintf("%.1f", d.Previous),
				fmt.Sprintf("%.1f", d.Current),
				fmt.Sprintf("%+.1f", d.Delta),
				trendFor(d.Name, d.Delta),
			)
		}
		tbl.Fprint(w)
	}

	fmt.Fprintln(w)
	if len(open) == 0 {
		fmt.Fprintf(w, " %s No open recommendations\n", output.StyleSuccess.Render("✓"))
		return
	}
	fmt.Fprintf(w, " %s\n", output.StyleBold.Render("Open recommendations"))
	for _, r := range open {
		fmt.Fprintf(w, "  %s %s %s\n", output.Severity(r.Severity), r.Title,
			output.StyleMuted.Render(fmt.Sprintf("(since #%d)", r.SnapshotID)))
	}
}

// metricDisplayOrder defines the order metrics appear in history output.
var metricDisplayOrder = []string{
	store.MetricTotalOrders,
	store.MetricRevenue,
	store.MetricAverageOrderValue,
	store.MetricCompletionRate,
	store.MetricCancellationRate,
	store.MetricReturnRate,
	store.MetricOrderFrequency,
	store.MetricExcludedOrders,
}

// metricShortName returns a compact label for display in tables.
func metricShortName(name string) string {
	short := map[string]string{
		store.MetricTotalOrders:       "Orders",
		store.MetricRevenue:           "Revenue",
		store.MetricAverageOrderValue: "Avg Order Value",
		store.MetricCompletionRate:    "Completion %",
		store.MetricCancellationRate:  "Cancellation %",
		store.MetricReturnRate:        "Return %",
		store.MetricOrderFrequency:    "Frequency",
		store.MetricExcludedOrders:    "Excluded",
	}
	if s, ok := short[name]; ok {
		return s
	}
	return name
}

// loadHistory returns up to n snapshots with their metrics, oldest first.
func loadHistory(cmd *cobra.Command, db *store.DB, n int) ([]historyEntry, error) {
	ctx := cmd.Context()
	snapshots, err := db.ListSnapshots(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("loading snapshots: %w", err)
	}

	// Reverse so oldest is first (left to right = chronological).
	for i, j := 0, len(snapshots)-1; i < j; i, j = i+1, j-1 {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	}

	entries := make([]historyEntry, 0, len(snapshots))
	for _, s := range snapshots {
		metrics, err := db.GetAggregateMetrics(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("loading metrics for snapshot #%d: %w", s.ID, err)
		}
		entries = append(entries, historyEntry{Snapshot: s, Metrics: metrics})
	}
	return entries, nil
}

// renderHistory shows a multi-snapshot timeline table.
func renderHistory(w io.Writer, entries []historyEntry) {
	fmt.Fprintln(w, output.Section("Track: Metric History"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, " Showing %d most recent snapshots\n\n", len(entries))

	headers := []string{"Metric"}
	values := make([]map[string]float64, len(entries))
	for i, e := range entries {
		headers = append(headers, fmt.Sprintf("#%d %s", e.Snapshot.ID, e.Snapshot.TakenAt.Format("Jan 02")))
		values[i] = make(map[string]float64, len(e.Metrics))
		for _, m := range e.Metrics {
			values[i][m.MetricName] = m.MetricValue
		}
	}
	headers = append(headers, "Trend")
	tbl := output.NewTable(headers...)
	for i := range entries {
		tbl.AlignRight(i + 1)
	}

	for _, name := range metricDisplayOrder {
		row := []string{metricShortName(name)}
		for _, v := range values {
			row = append(row, fmt.Sprintf("%.1f", v[name]))
		}
		trend := ""
		if len(values) >= 2 {
			trend = trendFor(name, values[len(values)-1][name]-values[0][name])
		}
		row = append(row, trend)
		tbl.AddRow(row...)
	}
	tbl.Fprint(w)
}
