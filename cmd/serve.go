package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/timefilter/internal/server"
)

// ─── serve ────────────────────────────────────────────────────────────────────

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve frame and time-range lookups over HTTP",
	Long: `Start an HTTP server exposing:

  GET /healthz
  GET /api/v1/frame?q=<expression>
  GET /api/v1/time_range?q=<expression>
  GET /api/v1/saved_ranges
  GET /api/v1/saved_ranges/<name>

Resolutions go through the same cache as 'timefilter resolve'. A failed
resolution answers 400 with {"error": "..."}. The saved range routes are
only mounted when the local database can be opened.`,
	Example: `  timefilter serve
  timefilter serve --addr 127.0.0.1:9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			slog.Debug("serving without local database", "error", err)
		}
		defer deps.Close()

		resolver, err := deps.NewResolver()
		if err != nil {
			return err
		}

		var saved server.SavedRanges
		if deps.Store != nil {
			saved = deps.Store
		}
		srv := server.New(resolver, saved, server.Options{Timeout: deps.Config.Timeout})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errc := make(chan error, 1)
		go func() { errc <- srv.Listen(serveAddr) }()
		infof(cmd, "Listening on %s (Superset: %s)\n", serveAddr, deps.Client.BaseURL())

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8089", "listen address")
}
