package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"grimm.is/firegate/internal/allowlist"
	"grimm.is/firegate/internal/api"
	"grimm.is/firegate/internal/audit"
	"grimm.is/firegate/internal/brand"
	"grimm.is/firegate/internal/config"
	"grimm.is/firegate/internal/logging"
	"grimm.is/firegate/internal/metrics"
	"grimm.is/firegate/internal/ratelimit"
	"grimm.is/firegate/internal/scheduler"
	"grimm.is/firegate/internal/storage"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterMaxIdle         = 30 * time.Minute
)

// RunStart runs the daemon in the foreground until SIGINT or SIGTERM.
func RunStart(configFile string) error {
	cfg, err := config.LoadOrDefault(configFile)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Port, err)
	}

	logger.Info("starting "+brand.Name, "version", brand.Version, "port", cfg.Port,
		"folder", cfg.Folder, "dry_run", cfg.DryRun)
	return Serve(ctx, cfg, ln, logger)
}

// daemon holds the wired components of a running instance.
type daemon struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Registry
	coord   *allowlist.Coordinator
	history *audit.Store
	sched   *scheduler.Scheduler
	limiter *ratelimit.Limiter
	server  *api.Server
}

func newDaemon(cfg *config.Config, logger *logging.Logger) (*daemon, error) {
	d := &daemon{cfg: cfg, logger: logger, metrics: metrics.New(nil)}

	gw := newGateway(cfg, logger, d.metrics)
	store := storage.NewFileStore(cfg.Folder, logger)

	opts := allowlist.Options{
		Table:   allowlist.NewTable(cfg.GrantWindow()),
		Gateway: gw,
		Store:   store,
		Logger:  logger,
		Metrics: d.metrics,
	}
	if cfg.AuditEnabled() {
		h, err := audit.NewStore(cfg.Audit.Path, cfg.Audit.RetentionDays)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		d.history = h
		opts.Recorder = h
	}
	d.coord = allowlist.NewCoordinator(opts)

	if err := d.coord.Restore(); err != nil {
		d.close()
		return nil, fmt.Errorf("failed to restore allowlist: %w", err)
	}

	d.sched = scheduler.New(logger)
	if err := d.sched.AddTask(allowlist.NewSweeper(d.coord, cfg.SweepEvery(), logger).Task()); err != nil {
		d.close()
		return nil, err
	}
	if d.history != nil {
		if err := d.sched.AddTask(scheduler.NewAuditPruneTask(d.history)); err != nil {
			d.close()
			return nil, err
		}
	}

	d.limiter = ratelimit.NewLimiter(cfg.RateLimit, time.Minute)

	srvOpts := api.ServerOptions{
		Config:  cfg,
		Granter: d.coord,
		Gateway: gw,
		Table:   d.coord.Table(),
		Tasks:   d.sched,
		Limiter: d.limiter,
		Metrics: d.metrics,
		Logger:  logger,
	}
	if d.history != nil {
		srvOpts.History = d.history
	}
	srv, err := api.NewServer(srvOpts)
	if err != nil {
		d.close()
		return nil, err
	}
	d.server = srv
	return d, nil
}

func (d *daemon) close() {
	if d.history != nil {
		if err := d.history.Close(); err != nil {
			d.logger.Warn("failed to close audit store", "error", err)
		}
	}
}

// Serve wires every component and runs them on ln until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, ln net.Listener, logger *logging.Logger) error {
	d, err := newDaemon(cfg, logger)
	if err != nil {
		ln.Close()
		return err
	}
	defer d.close()

	if cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxConnections)
	}

	g, gctx := errgroup.WithContext(ctx)

	// The coordinator outlives the server so requests accepted during
	// shutdown still get their grant applied.
	serverDone := make(chan struct{})
	coordCtx, stopCoord := context.WithCancel(context.Background())
	defer stopCoord()

	g.Go(func() error {
		defer close(serverDone)
		return d.server.Serve(gctx, ln)
	})
	g.Go(func() error {
		go func() {
			<-serverDone
			stopCoord()
		}()
		return d.coord.Run(coordCtx)
	})
	g.Go(func() error {
		return d.sched.Run(gctx)
	})
	g.Go(func() error {
		d.limiter.RunCleanup(gctx, limiterCleanupInterval, limiterMaxIdle)
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info(brand.Name + " stopped")
	return err
}
