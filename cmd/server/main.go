package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sifan077/QuickLink/config"
	appserver "github.com/sifan077/QuickLink/internal/app/server"
	"github.com/sifan077/QuickLink/internal/app/service"
	"github.com/sifan077/QuickLink/internal/app/shortcode"
	"github.com/sifan077/QuickLink/internal/app/store"
	"github.com/sifan077/QuickLink/internal/http/middleware"
	"github.com/sifan077/QuickLink/internal/infra/logger"
	infraPrometheus "github.com/sifan077/QuickLink/internal/infra/prometheus"
	"github.com/sifan077/QuickLink/internal/infra/telemetry"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logCfg := logger.Config{
		Development: cfg.IsDevelopment(),
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
	}
	// Local-only logger: bootstrap output and remote delivery failures.
	local, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	res := &resources{log: local}
	defer res.Close()

	var remote *logger.RemoteCore
	if cfg.Diag.Enabled {
		remote, err = newRemoteCore(cfg, res, local)
		if err != nil {
			local.Fatal("failed to set up remote logging", zap.Error(err))
		}
		// Deferred early so it drains after the store flush and relay stop.
		defer func() {
			rctx, rcancel := context.WithTimeout(context.Background(), cfg.Diag.Timeout)
			defer rcancel()
			_ = remote.Close(rctx)
		}()
	}

	var log *zap.Logger
	if remote != nil {
		log = logger.MustInit(logCfg, remote)
	} else {
		log = logger.MustInit(logCfg)
	}
	defer func() { _ = logger.Sync() }()
	res.log = log

	log.Info("configuration loaded",
		zap.String("env", cfg.App.Env),
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("commit_mode", cfg.Store.CommitMode),
		zap.String("events", cfg.Events.Publisher),
		zap.Bool("remote_logging", remote != nil),
	)

	if cfg.Telemetry.Enabled {
		shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry.Endpoint, cfg.App.Name, cfg.App.Version)
		if err != nil {
			log.Fatal("failed to init tracer", zap.Error(err))
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTracer(sctx); err != nil {
				log.Warn("failed to shut down tracer", zap.Error(err))
			}
		}()
	}

	repo, err := res.openRepository(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open link storage", zap.Error(err))
	}

	opts := store.Options{
		Generator:              shortcode.NewRandomGenerator(cfg.Store.CodeLength),
		Logger:                 log.Named("store"),
		Metrics:                store.NewMetrics(prometheus.DefaultRegisterer),
		DefaultValidityMinutes: cfg.Store.DefaultValidityMinutes,
	}
	if cfg.Store.CommitMode == config.CommitAsync {
		opts.CommitInterval = cfg.Store.CommitInterval
	}
	linkStore := store.New(repo, opts)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := linkStore.Close(sctx); err != nil {
			log.Error("failed to flush links on shutdown", zap.Error(err))
		}
	}()

	publisher, err := res.openPublisher(cfg)
	if err != nil {
		log.Fatal("failed to set up link events", zap.Error(err))
	}
	if publisher != nil {
		relay := service.NewEventRelay(service.EventRelayDeps{
			Source:    linkStore,
			Publisher: publisher,
			Logger:    log.Named("relay"),
		})
		relay.Start()
		defer relay.Stop()
	}

	linkService := service.NewLinkService(service.LinkServiceDeps{
		Logger: log.Named("service"),
		Store:  linkStore,
	})

	deps := appserver.Dependencies{
		Logger:      log,
		App:         cfg.App,
		LinkService: linkService,
		RateLimit:   cfg.RateLimit,
	}
	if cfg.RateLimit.Enabled {
		rdb, err := res.redisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("failed to connect to redis for rate limiting", zap.Error(err))
		}
		deps.Redis = rdb
	}

	if cfg.Prometheus.Enabled {
		deps.HTTPMetrics = middleware.NewHTTPMetrics(prometheus.DefaultRegisterer)

		promServer := infraPrometheus.NewServer(cfg.Prometheus, nil, log.Named("metrics"))
		go func() {
			log.Info("starting prometheus metrics server", zap.String("addr", promServer.Addr))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("failed to close prometheus server", zap.Error(err))
			}
		}()
	}

	server := appserver.New(deps)

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.App.ListenAddr), zap.String("base_url", cfg.App.BaseURL))
		errCh <- server.Listen(cfg.App.ListenAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("http server exited", zap.Error(err))
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		log.Warn("http server shutdown", zap.Error(err))
	}

}

func newRemoteCore(cfg *config.Config, res *resources, local *zap.Logger) (*logger.RemoteCore, error) {
	level, err := logger.ParseLevel(cfg.Diag.Level)
	if err != nil {
		return nil, fmt.Errorf("diag: %w", err)
	}

	var transport logger.Transport
	switch cfg.Diag.Transport {
	case config.TransportNATS:
		conn, _, err := res.nats(cfg.NATS, cfg.App.Name)
		if err != nil {
			return nil, err
		}
		transport = logger.NewNATSTransport(conn, cfg.Diag.Subject)
	default:
		transport = logger.NewHTTPTransport(cfg.Diag.Endpoint, cfg.Diag.Timeout)
	}

	return logger.NewRemoteCore(transport, logger.RemoteCoreConfig{
		Stack:     cfg.Diag.Stack,
		Level:     level,
		QueueSize: cfg.Diag.QueueSize,
		Timeout:   cfg.Diag.Timeout,
		Fallback:  local.Named("diag"),
	}), nil
}
