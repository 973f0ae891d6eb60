package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/orderwatch/internal/order"
	"github.com/blackwell-systems/orderwatch/internal/output"
	"github.com/blackwell-systems/orderwatch/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import an orders file into the local database",
	Long: `Parse a JSON array, an {"orders": [...]} envelope or JSON Lines and
upsert every order into the SQLite database by id. Reads the configured
orders file when no argument is given and standard input for "-".

After importing, set 'source: db' to report from the database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

type importOutput struct {
	Path  string             `json:"path"`
	Load  order.LoadStats    `json:"load"`
	Store store.ImportResult `json:"store"`
	Total int                `json:"total_in_database"`
}

func runImport(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	path := env.cfg.OrdersFile
	if len(args) == 1 {
		path = args[0]
	}

	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening orders: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	orders, stats, err := order.ParseOrders(r, env.loc)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	db, err := env.openDB()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	res, err := db.ImportOrders(ctx, orders)
	if err != nil {
		return fmt.Errorf("importing orders: %w", err)
	}
	total, err := db.CountOrders(ctx)
	if err != nil {
		return fmt.Errorf("counting orders: %w", err)
	}
	slog.Default().InfoContext(ctx, "orders imported",
		slog.String("path", path),
		slog.Int("upserted", res.Upserted),
		slog.Int("skipped", res.Skipped),
	)

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, importOutput{Path: path, Load: stats, Store: res, Total: total})
	}

	fmt.Fprintf(out, " %s Imported %s orders from %s\n", output.StyleSuccess.Render("✓"), output.Count(res.Upserted), path)
	if res.Skipped > 0 {
		fmt.Fprintf(out, " %s Skipped %d records without an id\n", output.StyleWarning.Render("!"), res.Skipped)
	}
	if stats.MalformedDates > 0 {
		fmt.Fprintf(out, " %s %d orders have an unparsable created_at and will not appear in any window\n", output.StyleWarning.Render("!"), stats.MalformedDates)
	}
	if stats.UnknownStatuses > 0 {
		fmt.Fprintf(out, " %s %d orders have an unrecognized status\n", output.StyleWarning.Render("!"), stats.UnknownStatuses)
	}
	fmt.Fprintf(out, " %s\n", output.StyleMuted.Render(fmt.Sprintf("%s orders in %s", output.Count(total), env.cfg.Database)))
	return nil
}
