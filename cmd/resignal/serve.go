package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linq2js/resignal/pkg/devtools"
	"github.com/linq2js/resignal/pkg/observe"
)

func serveCmd() *cobra.Command {
	var (
		addr    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the devtools server",
		Long: `Run the devtools HTTP server.

Endpoints:
  /healthz   liveness probe
  /metrics   Prometheus lifecycle metrics
  /signals   JSON snapshot of tracked signals
  /events    WebSocket stream of engine events

Examples:
  resignal serve
  resignal serve --addr=0.0.0.0:6172`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, verbose)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:6172", "Address to bind")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func runServe(addr string, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	stopMetrics := observe.Prometheus()
	defer stopMetrics()

	srv := devtools.NewServer(
		devtools.WithAddress(addr),
		devtools.WithLogger(logger.With("component", "devtools")),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx)
}
