package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/linq2js/resignal"
	"github.com/linq2js/resignal/pkg/devtools"
	"github.com/linq2js/resignal/pkg/observe"
	"github.com/linq2js/resignal/pkg/timer"
)

func demoCmd() *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a demo workflow with the devtools server",
		Long: `Run a small counter workflow against the devtools server.

A counter signal increments on a timer and a watcher workflow mirrors
it, so /events, /signals, and /metrics have live data to show.

Examples:
  resignal demo
  resignal demo --interval=250ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(addr, interval)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:6172", "Address to bind")
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "Counter increment interval")

	return cmd
}

func runDemo(addr string, interval time.Duration) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	stopMetrics := observe.Prometheus()
	defer stopMetrics()

	srv := devtools.NewServer(
		devtools.WithAddress(addr),
		devtools.WithLogger(logger.With("component", "devtools")),
	)

	counter := resignal.New[int](resignal.WithKey[int]("demo.counter"), resignal.WithDefault(0))
	srv.Registry().Track("demo.counter", counter)
	counter.OnEmit(func(v int) {
		logger.Info("counter emitted", "value", v)
	})

	// The workflow ticks forever; cancelling the spawned signal stops it.
	workflow := resignal.Spawn(resignal.Effect(func(ec *resignal.Context) (resignal.Result[struct{}], error) {
		ticks := timer.Tick(ec, interval, struct{}{})
		ticks.OnEmit(func(struct{}) {
			counter.Invoke(resignal.Effect(observe.TraceEffect("demo.increment",
				func(*resignal.Context) (resignal.Result[int], error) {
					return resignal.Done(counter.Payload() + 1), nil
				})))
		})
		return resignal.Abort[struct{}](), nil
	}))
	defer workflow.Cancel()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("demo running on http://%s (ctrl-c to stop)\n", addr)
	return srv.ListenAndServe(ctx)
}
