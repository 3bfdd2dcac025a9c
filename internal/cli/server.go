package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/LeJamon/offerd/internal/config"
	"github.com/LeJamon/offerd/internal/core/ledger"
	"github.com/LeJamon/offerd/internal/core/ledger/service"
	grpcserver "github.com/LeJamon/offerd/internal/grpc"
	"github.com/LeJamon/offerd/internal/rpc"
	"github.com/LeJamon/offerd/internal/storage/database/backend"
	"github.com/LeJamon/offerd/internal/storage/journal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the offerd node",
	Long: `Start the offerd node which provides:
- HTTP JSON-RPC API on the configured listen address
- WebSocket transaction stream on /ws
- Health check on /health and Prometheus metrics on /metrics
- gRPC ledger service when [grpc] is enabled`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

// node holds everything runServer opens, in close order.
type node struct {
	svc     *service.Service
	reg     *prometheus.Registry
	closers []func() error
}

func (n *node) Close() {
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i](); err != nil {
			log.WithError(err).Warn("close failed")
		}
	}
}

// openNode opens storage, the journal and the ledger service described by
// cfg.
func openNode(ctx context.Context, cfg *config.Config) (_ *node, err error) {
	n := &node{}
	defer func() {
		if err != nil {
			n.Close()
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, manager, err := backend.OpenLedger(cfg.Storage.Backend, cfg.StoragePath())
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	n.closers = append(n.closers, manager.Close)

	l, err := ledger.Open(ctx, db, ledger.Config{CacheSize: cfg.Storage.CacheSize})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	j, err := journal.Open(ctx, journal.Config{
		Driver:      cfg.Journal.Driver,
		DSN:         cfg.JournalDSN(),
		JournalMode: cfg.Journal.JournalMode,
		Timeout:     cfg.Journal.Timeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	n.closers = append(n.closers, j.Close)

	n.reg = prometheus.NewRegistry()
	n.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	n.svc, err = service.New(service.Config{
		Ledger:       l,
		Engine:       cfg.TxConfig(),
		Journal:      j,
		Registerer:   n.reg,
		ReplayWindow: cfg.Journal.ReplayWindow,
	})
	if err != nil {
		return nil, err
	}
	if err := n.svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ledger service: %w", err)
	}
	return n, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if !debug && !verbose && !quiet && cfg.LogLevel != "" {
		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := openNode(ctx, cfg)
	if err != nil {
		return err
	}
	defer n.Close()

	hcfg := rpc.HandlerConfig{
		Options: rpc.Options{
			Timeout:      cfg.RPC.WriteTimeout(),
			MaxBodyBytes: cfg.RPC.MaxBodyBytes,
		},
		WebSocket: cfg.RPC.WebSocket,
	}
	if cfg.RPC.Metrics {
		hcfg.Gatherer = n.reg
	}
	handler, closeHandler := rpc.NewHandler(n.svc, hcfg)
	defer closeHandler()

	log.WithFields(log.Fields{
		"config":   cfg.GetConfigPath(),
		"storage":  cfg.Storage.Backend,
		"journal":  cfg.Journal.Driver,
		"sequence": n.svc.Sequence(),
	}).Info("offerd node started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.RPC.Listen).Info("rpc server listening")
		return rpc.ListenAndServe(gctx, cfg.RPC.Listen, handler, cfg.RPC.ReadTimeout(), cfg.RPC.WriteTimeout())
	})

	if cfg.GRPC.Enabled {
		gcfg := grpcserver.DefaultServerConfig()
		gcfg.Address = cfg.GRPC.Listen
		srv, err := grpcserver.NewServer(gcfg, n.svc)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error { return srv.ListenAndServe(gctx) })
	}

	return g.Wait()
}
