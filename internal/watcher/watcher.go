// Package watcher monitors an order source, recomputing insights on an
// interval or whenever the orders file changes, and emits alerts when
// recommendations fire or rates move sharply.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/order"
	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

// Alert levels.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Alert represents a notable event detected by the watcher.
type Alert struct {
	Level   string    `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// WatchState captures one evaluation of the order source.
type WatchState struct {
	Timestamp       time.Time
	Report          insights.Report
	Recommendations []suggest.Recommendation
}

// firing returns the actionable recommendations keyed by rule.
func (s *WatchState) firing() map[string]suggest.Recommendation {
	out := make(map[string]suggest.Recommendation)
	for _, r := range suggest.Actionable(s.Recommendations) {
		out[r.Rule] = r
	}
	return out
}

// Options configures a Watcher.
type Options struct {
	Window   insights.Window
	Location *time.Location
	Interval time.Duration

	// Path, when set, is watched for writes so changes are picked up
	// before the next tick.
	Path string

	// Now overrides the clock; used by tests.
	Now func() time.Time
}

// Watcher monitors an order source at a regular interval and emits alerts
// when notable changes are detected.
type Watcher struct {
	source        order.Source
	engine        *suggest.Engine
	opts          Options
	previous      *WatchState
	alertFn       func(Alert)
	lastAlertKeys map[string]bool
}

// New creates a Watcher over the given order source.
func New(source order.Source, engine *suggest.Engine, opts Options, alertFn func(Alert)) *Watcher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Window == "" {
		opts.Window = insights.WindowLast30Days
	}
	return &Watcher{
		source:        source,
		engine:        engine,
		opts:          opts,
		alertFn:       alertFn,
		lastAlertKeys: make(map[string]bool),
	}
}

// Previous returns the last evaluated state, or nil before the first check.
func (w *Watcher) Previous() *WatchState {
	return w.previous
}

// Run starts the watch loop. It takes an initial snapshot, then checks at
// every interval and on every write to Path. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	initial, err := w.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}
	w.previous = initial

	var events <-chan fsnotify.Event
	if w.opts.Path != "" {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			slog.Default().WarnContext(ctx, "file watching unavailable, polling only", slog.String("err", err.Error()))
		} else {
			defer fw.Close()
			// Editors and exporters often replace the file, so watch the directory.
			if err := fw.Add(filepath.Dir(w.opts.Path)); err != nil {
				slog.Default().WarnContext(ctx, "can't watch orders directory", slog.String("path", w.opts.Path), slog.String("err", err.Error()))
			} else {
				events = fw.Events
			}
		}
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	target := filepath.Clean(w.opts.Path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.emit(w.Check(ctx))
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			slog.Default().DebugContext(ctx, "orders file changed", slog.String("op", ev.Op.String()))
			w.emit(w.Check(ctx))
		}
	}
}

func (w *Watcher) emit(alerts []Alert) {
	if w.alertFn == nil {
		return
	}
	for _, a := range alerts {
		w.alertFn(a)
	}
}

// Check performs a single check cycle: takes a new snapshot, compares against
// the previous state, updates the previous state, and returns any alerts.
// Identical alerts are suppressed until the underlying data changes.
func (w *Watcher) Check(ctx context.Context) []Alert {
	curr, err := w.Snapshot(ctx)
	if err != nil {
		return []Alert{{
			Level:   LevelWarning,
			Title:   "Snapshot failed",
			Message: fmt.Sprintf("Could not load orders: %v", err),
			Time:    w.opts.Now(),
		}}
	}

	var raw []Alert
	if w.previous != nil {
		raw = Compare(w.previous, curr)
	}

	currentKeys := make(map[string]bool, len(raw))
	var alerts []Alert
	for _, a := range raw {
		key := a.Level + ":" + a.Title + ":" + a.Message
		currentKeys[key] = true
		if !w.lastAlertKeys[key] {
			alerts = append(alerts, a)
		}
	}
	w.lastAlertKeys = currentKeys

	w.previous = curr
	return alerts
}

// Snapshot loads the orders and evaluates them for the configured window.
func (w *Watcher) Snapshot(ctx context.Context) (*WatchState, error) {
	orders, err := w.source.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading orders: %w", err)
	}

	now := w.opts.Now()
	report := insights.Analyze(orders, insights.Options{
		Window:   w.opts.Window,
		Now:      now,
		Location: w.opts.Location,
	})
	return &WatchState{
		Timestamp:       now,
		Report:          report,
		Recommendations: w.engine.Evaluate(report),
	}, nil
}
