package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/deepcheck/internal/notify"
	"github.com/ppiankov/deepcheck/internal/pipeline"
	"github.com/ppiankov/deepcheck/internal/server"
	"github.com/ppiankov/deepcheck/internal/worker"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the results view and history API",
	Long: `Serve runs the HTTP API:

  GET  /api/results          current result view
  POST /api/analyses         ingest an analysis result and record it
  GET  /api/history          history log, newest first
  POST /api/history/test     append a test item
  GET  /api/history/raw      raw persisted history (debug)
  GET  /api/history/events   change events (Server-Sent Events)
  GET  /healthz

When notify.brokers is set, history changes are exchanged with other
deepcheck processes over Kafka.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if serveAddr != "" {
		a.cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	p := pipeline.FromConfig(a.cfg, a.store, a.log)
	limiter := worker.NewLimiter(a.cfg.RateLimiting.RequestsPerSecond, a.cfg.RateLimiting.BurstSize)
	srv := server.New(a.cfg.Server, p, a.store, limiter, a.log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })

	if len(a.cfg.Notify.Brokers) > 0 {
		startRelay(ctx, g, a)
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// startRelay exchanges history changes with other processes. The origin id
// keeps a process from re-applying its own events.
func startRelay(ctx context.Context, g *errgroup.Group, a *app) {
	origin := uuid.NewString()
	a.log.Info("history relay enabled", "brokers", a.cfg.Notify.Brokers, "topic", a.cfg.Notify.Topic, "origin", origin)

	publisher := notify.NewKafkaPublisher(a.cfg.Notify, origin, a.log)
	relay := notify.NewKafkaRelay(a.cfg.Notify, origin, a.log)
	g.Go(func() error { return publisher.Run(ctx, a.bus) })
	g.Go(func() error { return relay.Run(ctx, a.bus) })
}
