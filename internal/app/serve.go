package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/orderwatch/internal/httpapi"
	"github.com/blackwell-systems/orderwatch/internal/watcher"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve insights as a JSON HTTP API",
	Long: `Start an HTTP server exposing:

  GET /healthz
  GET /api/insights?window=30d
  GET /api/trend?window=6m&fill_gaps=true
  GET /api/distribution?window=7d
  GET /api/recommendations?window=all

Orders are re-read on every request. With --watch the watcher runs alongside
the server and logs alerts.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides http.address)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Also run the watcher and log its alerts")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}

	src, release, err := env.source()
	if err != nil {
		return err
	}
	defer release()

	addr := env.cfg.HTTP.Address
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := httpapi.New(httpapi.Config{
		Address:        addr,
		AllowedOrigins: env.cfg.HTTP.AllowedOrigins,
		Window:         env.window,
		Location:       env.loc,
		Now:            env.now,
		Version:        appVersion,
	}, src, env.engine)

	ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})

	if serveWatch {
		w := watcher.New(src, env.engine, watcher.Options{
			Window:   env.window,
			Location: env.loc,
			Interval: env.cfg.Watch.Interval,
			Path:     env.watchPath(),
			Now:      env.now,
		}, func(a watcher.Alert) {
			slog.Default().Warn("watch alert",
				slog.String("level", a.Level),
				slog.String("title", a.Title),
				slog.String("message", a.Message),
			)
		})
		g.Go(func() error {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watcher: %w", err)
			}
			return nil
		})
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "orderwatch serving on http://%s\n", addr)
	return g.Wait()
}
