package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/orderwatch/internal/output"
	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

var (
	recommendSeverity string
	recommendLimit    int
)

var recommendCmd = &cobra.Command{
	Use:     "recommend",
	Aliases: []string{"suggest"},
	Short:   "List recommendations for the current window",
	Long: `Evaluate the recommendation rules against the metrics of a time window.
Rules are checked in a fixed order: cancellations, returns, pending backlog,
completion and order frequency. When none fire a single positive
recommendation is returned.`,
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().StringVar(&recommendSeverity, "severity", "", "Only show this severity (high, medium, low, positive)")
	recommendCmd.Flags().IntVar(&recommendLimit, "limit", 0, "Maximum number of recommendations to show (0 = all)")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	_, recs, err := env.analyze(cmd.Context())
	if err != nil {
		return err
	}

	if recommendSeverity != "" {
		recs = filterBySeverity(recs, recommendSeverity)
	}
	if recommendLimit > 0 && len(recs) > recommendLimit {
		recs = recs[:recommendLimit]
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		if recs == nil {
			recs = []suggest.Recommendation{}
		}
		return writeJSON(out, recs)
	}

	if len(recs) == 0 {
		fmt.Fprintln(out, output.StyleMuted.Render(" No matching recommendations."))
		return nil
	}
	renderRecommendations(out, recs)
	return nil
}

func filterBySeverity(recs []suggest.Recommendation, severity string) []suggest.Recommendation {
	want := suggest.Severity(strings.ToLower(strings.TrimSpace(severity)))
	var out []suggest.Recommendation
	for _, r := range recs {
		if r.Severity == want {
			out = append(out, r)
		}
	}
	return out
}
