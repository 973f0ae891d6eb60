package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blackwell-systems/orderwatch/internal/config"
	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/order"
	"github.com/blackwell-systems/orderwatch/internal/output"
	"github.com/blackwell-systems/orderwatch/internal/store"
	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

// runEnv is the resolved configuration shared by every command.
type runEnv struct {
	cfg    *config.Config
	window insights.Window
	loc    *time.Location
	now    func() time.Time
	engine *suggest.Engine
}

// loadEnv loads the config file, applies persistent flag overrides and
// installs the default logger and color settings.
func loadEnv() (*runEnv, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagOrders != "" {
		cfg.OrdersFile = flagOrders
	}
	if flagSource != "" {
		cfg.Source = strings.ToLower(flagSource)
	}
	if flagWindow != "" {
		cfg.Window = flagWindow
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.SetDefault(newLogger(cfg.Logger, flagVerbose, os.Stderr))

	output.AutoColor(os.Stdout, cfg.Output.Color)
	if flagNoColor {
		output.SetNoColor(true)
	}

	w, err := insights.ParseWindow(cfg.Window)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	now := time.Now
	if flagNow != "" {
		fixed := order.ParseTimestamp(flagNow, loc)
		if fixed.IsZero() {
			return nil, fmt.Errorf("invalid --now %q: want an RFC 3339 timestamp", flagNow)
		}
		now = func() time.Time { return fixed }
	}

	return &runEnv{
		cfg:    cfg,
		window: w,
		loc:    loc,
		now:    now,
		engine: suggest.NewEngine(cfg.Thresholds),
	}, nil
}

// openDB opens the configured SQLite database.
func (e *runEnv) openDB() (*store.DB, error) {
	if err := os.MkdirAll(filepath.Dir(e.cfg.Database), 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}
	db, err := store.Open(e.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// source returns the configured order source and a function releasing it.
func (e *runEnv) source() (order.Source, func(), error) {
	if e.cfg.Source == config.SourceDB {
		db, err := e.openDB()
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	}
	return order.FileSource{Path: e.cfg.OrdersFile, Location: e.loc}, func() {}, nil
}

// watchPath is the file worth watching for changes, if any.
func (e *runEnv) watchPath() string {
	if e.cfg.Source == config.SourceFile {
		return e.cfg.OrdersFile
	}
	return ""
}

// loadOrders reads every order from the configured source.
func (e *runEnv) loadOrders(ctx context.Context) ([]order.Order, error) {
	src, release, err := e.source()
	if err != nil {
		return nil, err
	}
	defer release()

	orders, err := src.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading orders: %w", err)
	}
	slog.Default().DebugContext(ctx, "orders loaded", slog.Int("count", len(orders)), slog.String("source", e.cfg.Source))
	return orders, nil
}

// options builds pipeline options for window w.
func (e *runEnv) options(w insights.Window) insights.Options {
	return insights.Options{Window: w, Now: e.now(), Location: e.loc}
}

// analyze loads orders and runs the pipeline and the rule engine for the
// configured window.
func (e *runEnv) analyze(ctx context.Context) (insights.Report, []suggest.Recommendation, error) {
	orders, err := e.loadOrders(ctx)
	if err != nil {
		return insights.Report{}, nil, err
	}
	report := insights.Analyze(orders, e.options(e.window))
	return report, e.engine.Evaluate(report), nil
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
