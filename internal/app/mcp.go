package app

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/orderwatch/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP stdio server exposing order insights",
	Long: `Start a Model Context Protocol stdio server that an assistant can
query. The server exposes three tools, each taking an optional window:

  get_order_insights   Distribution, trend, metrics and recommendations
  get_recommendations  Recommendations, most severe first
  get_order_trend      Per-day or per-month buckets (optional fill_gaps)

Example MCP configuration:
  {"mcpServers":{"orderwatch":{"command":"orderwatch","args":["mcp"]}}}`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	src, release, err := env.source()
	if err != nil {
		return err
	}
	defer release()

	srv := mcp.NewServer(src, env.engine, mcp.Options{
		Window:   env.window,
		Location: env.loc,
		Now:      env.now,
		Version:  appVersion,
	})
	return srv.Run(cmd.Context(), os.Stdin, os.Stdout)
}
