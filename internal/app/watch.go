package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/orderwatch/internal/config"
	"github.com/blackwell-systems/orderwatch/internal/order"
	"github.com/blackwell-systems/orderwatch/internal/suggest"
	"github.com/blackwell-systems/orderwatch/internal/watcher"
)

var (
	watchDaemon   bool
	watchInterval string
	watchStop     bool
	watchQuiet    bool
)

// minWatchInterval keeps a polling watcher from re-reading the order
// source in a tight loop.
const minWatchInterval = 30 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor orders and alert when recommendations fire",
	Long: `Run a monitor that re-evaluates the order source on an interval and
whenever the orders file changes. Alerts are raised when a recommendation
starts or stops firing, when cancellation or return rates spike, when the
completion rate drops, and when new orders arrive. Alerts go to desktop
notifications and the terminal.

Examples:
  orderwatch watch                    # run in foreground (ctrl-c to stop)
  orderwatch watch --daemon           # run in background, write PID file
  orderwatch watch --interval 1m      # check every minute (default: watch.interval)
  orderwatch watch -w 7d              # evaluate the last 7 days
  orderwatch watch --stop             # stop the background daemon`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "Run in background mode (write PID file, log to file)")
	watchCmd.Flags().StringVar(&watchInterval, "interval", "", "Check interval as duration string (e.g. 1m, 1h)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "Stop a running background daemon")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Suppress terminal output, only send notifications")
	rootCmd.AddCommand(watchCmd)
}

// pidFilePath returns the path to the daemon PID file.
func pidFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.pid")
}

// logFilePath returns the path to the daemon log file.
func logFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.log")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchStop {
		return stopDaemon(cmd.OutOrStdout())
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}

	interval := env.cfg.Watch.Interval
	if watchInterval != "" {
		interval, err = time.ParseDuration(watchInterval)
		if err != nil {
			return fmt.Errorf("invalid interval %q: %w", watchInterval, err)
		}
	}
	if interval < minWatchInterval {
		return fmt.Errorf("interval must be at least %s, got %s", minWatchInterval, interval)
	}

	src, release, err := env.source()
	if err != nil {
		return err
	}
	defer release()

	opts := watcher.Options{
		Window:   env.window,
		Location: env.loc,
		Interval: interval,
		Path:     env.watchPath(),
		Now:      env.now,
	}

	quiet := watchQuiet || env.cfg.Watch.Quiet
	if watchDaemon {
		return runDaemon(cmd.Context(), src, env, opts)
	}
	return runForeground(cmd.Context(), cmd.OutOrStdout(), src, env, opts, quiet)
}

// runForeground runs the watcher in the foreground with live terminal output.
func runForeground(parent context.Context, out io.Writer, src order.Source, env *runEnv, opts watcher.Options, quiet bool) error {
	ctx, stop := signal.NotifyContext(parent, shutdownSignals...)
	defer stop()

	if !quiet {
		fmt.Fprintf(out, "orderwatch watching %s... (checking every %s)\n", opts.Window.Label(), opts.Interval)
	}

	alertFn := func(a watcher.Alert) {
		_ = watcher.Notify(a)
		if !quiet {
			printAlert(out, a)
		}
	}

	w := watcher.New(src, env.engine, opts, alertFn)

	// Baseline.
	initial, err := w.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("initial snapshot failed: %w", err)
	}
	if !quiet {
		fmt.Fprintf(out, "[%s] %s Baseline: %d orders, %d open recommendations\n",
			time.Now().Format("15:04:05"),
			checkMark(),
			initial.Report.Summary.TotalOrders,
			len(suggest.Actionable(initial.Recommendations)))
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		if !quiet {
			fmt.Fprintln(out, "\nStopped.")
		}
		return nil
	}
	return err
}

// runDaemon sets up PID and log files, then runs the watcher. The actual
// backgrounding should be done by the caller (nohup, &, etc.) since Go
// cannot reliably fork.
func runDaemon(parent context.Context, src order.Source, env *runEnv, opts watcher.Options) error {
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	if pid, err := readPID(); err == nil {
		if processExists(pid) {
			return fmt.Errorf("daemon already running (PID %d). Use --stop to stop it", pid)
		}
		// Stale PID file.
		_ = os.Remove(pidFilePath())
	}

	pid := os.Getpid()
	if err := os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer func() { _ = os.Remove(pidFilePath()) }()

	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	// The daemon has no terminal; structured logs go to the log file.
	logger := newLogger(env.cfg.Logger, flagVerbose, logFile)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(parent, shutdownSignals...)
	defer stop()

	logger.Info("daemon started", slog.Int("pid", pid), slog.Duration("interval", opts.Interval), slog.String("window", string(opts.Window)))

	alertFn := func(a watcher.Alert) {
		_ = watcher.Notify(a)
		logger.Warn("alert", slog.String("level", a.Level), slog.String("title", a.Title), slog.String("message", a.Message))
	}

	w := watcher.New(src, env.engine, opts, alertFn)
	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("daemon stopped")
		return nil
	}
	return err
}

// readPID reads the daemon PID from the PID file.
func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// stopDaemon signals the daemon named in the PID file and removes the file.
// A PID file left behind by a dead process is cleaned up and reported.
func stopDaemon(w io.Writer) error {
	pid, err := readPID()
	if err != nil {
		return fmt.Errorf("no daemon running (could not read PID file: %w)", err)
	}
	if !processExists(pid) {
		_ = os.Remove(pidFilePath())
		return fmt.Errorf("no daemon running (PID %d is not active, removed stale PID file)", pid)
	}
	if err := terminate(pid); err != nil {
		return fmt.Errorf("stopping daemon (PID %d): %w", pid, err)
	}
	_ = os.Remove(pidFilePath())
	fmt.Fprintf(w, "Stopped orderwatch daemon (PID %d)\n", pid)
	return nil
}

// printAlert formats and prints an alert to the terminal.
func printAlert(w io.Writer, a watcher.Alert) {
	timestamp := a.Time.Format("15:04:05")
	icon := alertIcon(a.Level)
	fmt.Fprintf(w, "[%s] %s %s\n", timestamp, icon, a.Title)
	if a.Message != "" {
		fmt.Fprintf(w, "         %s\n", a.Message)
	}
}

// alertIcon returns the terminal indicator for an alert level.
func alertIcon(level string) string {
	switch level {
	case watcher.LevelCritical:
		return "\xf0\x9f\x94\xb4" // red circle
	case watcher.LevelWarning:
		return "\xe2\x9a\xa0\xef\xb8\x8f" // warning sign
	case watcher.LevelInfo:
		return "\xe2\x9c\x93" // check mark
	default:
		return " "
	}
}

// checkMark returns a terminal check mark indicator.
func checkMark() string {
	return "\xe2\x9c\x93"
}
