package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/orderwatch/internal/config"
	"github.com/blackwell-systems/orderwatch/internal/order"
	"github.com/blackwell-systems/orderwatch/internal/output"
	"github.com/blackwell-systems/orderwatch/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check whether the orderwatch setup is healthy",
	Long: `Run a series of health checks against your orderwatch configuration,
orders file and database. Prints a pass/fail line for each check and a
summary of how many checks passed.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// doctorCheck holds the result of a single health check.
type doctorCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// doctorOutput is the JSON-serializable result of the doctor command.
type doctorOutput struct {
	Checks      []doctorCheck `json:"checks"`
	PassedCount int           `json:"passed"`
	TotalCount  int           `json:"total"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	if flagNoColor {
		output.SetNoColor(true)
	}

	var checks []doctorCheck

	cfg, err := config.Load(flagConfig)
	if err == nil {
		if flagOrders != "" {
			cfg.OrdersFile = flagOrders
		}
		if flagSource != "" {
			cfg.Source = flagSource
		}
		err = cfg.Validate()
	}
	checks = append(checks, checkConfig(err))

	if err == nil {
		checks = append(checks, checkOrdersFile(cfg)...)
		checks = append(checks, checkTimezone(cfg))
		checks = append(checks, checkDatabase(cmd.Context(), cfg))
	}
	checks = append(checks, checkWatchDaemon())

	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, doctorOutput{
			Checks:      checks,
			PassedCount: passed,
			TotalCount:  len(checks),
		})
	}

	fmt.Fprintln(out, output.Section("Doctor"))
	fmt.Fprintln(out)

	for _, c := range checks {
		renderDoctorCheck(out, c)
	}

	fmt.Fprintln(out)
	summary := fmt.Sprintf("%d/%d checks passed", passed, len(checks))
	if passed == len(checks) {
		fmt.Fprintf(out, " %s\n\n", output.StyleSuccess.Render(summary))
	} else {
		fmt.Fprintf(out, " %s\n\n", output.StyleWarning.Render(summary))
	}
	return nil
}

// renderDoctorCheck prints a single check result line.
func renderDoctorCheck(w io.Writer, c doctorCheck) {
	var indicator string
	if c.Passed {
		indicator = output.StyleSuccess.Render("✓")
	} else {
		indicator = output.StyleWarning.Render("✗")
	}
	label := output.StyleBold.Render(c.Name)
	detail := output.StyleMuted.Render(c.Message)
	fmt.Fprintf(w, "  %s  %-30s %s\n", indicator, label, detail)
}

func checkConfig(err error) doctorCheck {
	if err != nil {
		return doctorCheck{Name: "Configuration", Passed: false, Message: err.Error()}
	}
	msg := "defaults (no config file)"
	if flagConfig != "" {
		msg = flagConfig
	}
	return doctorCheck{Name: "Configuration", Passed: true, Message: msg}
}

// checkOrdersFile verifies the orders file exists and parses, then reports
// records that can never appear in a window.
func checkOrdersFile(cfg *config.Config) []doctorCheck {
	if cfg.Source != config.SourceFile {
		return []doctorCheck{{
			Name:    "Orders file",
			Passed:  true,
			Message: "not used (source: db)",
		}}
	}

	// A bad timezone is reported by its own check; parse in local time here.
	loc, _ := cfg.Location()
	orders, stats, err := order.LoadFile(cfg.OrdersFile, loc)
	if err != nil {
		if os.IsNotExist(err) {
			return []doctorCheck{{
				Name:    "Orders file",
				Passed:  false,
				Message: fmt.Sprintf("not found: %s (try 'orderwatch generate -o %s')", cfg.OrdersFile, cfg.OrdersFile),
			}}
		}
		return []doctorCheck{{
			Name:    "Orders file",
			Passed:  false,
			Message: fmt.Sprintf("parse error: %v", err),
		}}
	}

	checks := []doctorCheck{{
		Name:    "Orders file",
		Passed:  len(orders) > 0,
		Message: fmt.Sprintf("%s orders in %s", output.Count(len(orders)), cfg.OrdersFile),
	}}

	quality := doctorCheck{Name: "Order data", Passed: true, Message: "all records usable"}
	if stats.Skipped > 0 || stats.MalformedDates > 0 || stats.UnknownStatuses > 0 {
		quality.Passed = stats.MalformedDates == 0
		quality.Message = fmt.Sprintf("%d skipped, %d unparsable dates, %d unknown statuses",
			stats.Skipped, stats.MalformedDates, stats.UnknownStatuses)
	}
	return append(checks, quality)
}

func checkTimezone(cfg *config.Config) doctorCheck {
	loc, err := cfg.Location()
	if err != nil {
		return doctorCheck{Name: "Timezone", Passed: false, Message: err.Error()}
	}
	return doctorCheck{Name: "Timezone", Passed: true, Message: loc.String()}
}

// checkDatabase verifies that the SQLite database exists and opens at the
// current schema version.
func checkDatabase(ctx context.Context, cfg *config.Config) doctorCheck {
	if _, err := os.Stat(cfg.Database); err != nil {
		return doctorCheck{
			Name:    "SQLite database",
			Passed:  cfg.Source != config.SourceDB,
			Message: fmt.Sprintf("not found at %s (run 'orderwatch import' or 'orderwatch track' to create)", cfg.Database),
		}
	}

	db, err := store.Open(cfg.Database)
	if err != nil {
		return doctorCheck{Name: "SQLite database", Passed: false, Message: err.Error()}
	}
	defer func() { _ = db.Close() }()

	version, err := db.SchemaVersion()
	if err != nil {
		return doctorCheck{Name: "SQLite database", Passed: false, Message: fmt.Sprintf("reading schema version: %v", err)}
	}
	count, err := db.CountOrders(ctx)
	if err != nil {
		return doctorCheck{Name: "SQLite database", Passed: false, Message: fmt.Sprintf("counting orders: %v", err)}
	}
	latest := "no snapshots yet"
	snap, err := db.GetLatestSnapshot(ctx)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
	case err != nil:
		return doctorCheck{Name: "SQLite database", Passed: false, Message: fmt.Sprintf("reading snapshots: %v", err)}
	default:
		latest = fmt.Sprintf("last snapshot #%d %s", snap.ID, output.Ago(snap.TakenAt))
	}
	return doctorCheck{
		Name:    "SQLite database",
		Passed:  true,
		Message: fmt.Sprintf("schema v%d, %s orders, %s (%s)", version, output.Count(count), latest, cfg.Database),
	}
}

// checkWatchDaemon checks whether the watch daemon PID file exists and the process is running.
func checkWatchDaemon() doctorCheck {
	pid, err := readPID()
	if err != nil {
		return doctorCheck{
			Name:    "Watch daemon",
			Passed:  false,
			Message: "not running (no PID file)",
		}
	}
	if !processExists(pid) {
		return doctorCheck{
			Name:    "Watch daemon",
			Passed:  false,
			Message: fmt.Sprintf("PID %d is not running (stale PID file)", pid),
		}
	}
	return doctorCheck{
		Name:    "Watch daemon",
		Passed:  true,
		Message: fmt.Sprintf("running (PID %d)", pid),
	}
}
