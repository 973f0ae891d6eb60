// Package app contains the Cobra command tree for orderwatch.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
	flagWindow  string
	flagOrders  string
	flagSource  string
	flagNow     string
)

var rootCmd = &cobra.Command{
	Use:   "orderwatch",
	Short: "Order insights and recommendations for small storefronts",
	Long: `orderwatch reads an order history, slices it into time windows and
reports status distribution, order trends, rates and actionable
recommendations. It can also snapshot results over time, watch the order
file for changes, and serve the same insights over HTTP or MCP.

Run 'orderwatch' with no arguments to see the insights dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runInsights,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/orderwatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flagWindow, "window", "w", "", "Time window: last_7_days, last_30_days, last_6_months, all_time (or 7d, 30d, 6m, all)")
	rootCmd.PersistentFlags().StringVar(&flagOrders, "orders", "", "Orders file (overrides orders_file)")
	rootCmd.PersistentFlags().StringVar(&flagSource, "source", "", "Order source: file or db (overrides source)")
	rootCmd.PersistentFlags().StringVar(&flagNow, "now", "", "Evaluate as of this RFC 3339 time instead of the clock")
}
