package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/shiftsync/internal/bridge"
	"github.com/iudanet/shiftsync/internal/config"
	"github.com/iudanet/shiftsync/internal/coordinator"
	"github.com/iudanet/shiftsync/internal/registry"
	"github.com/iudanet/shiftsync/internal/resolver"
	"github.com/iudanet/shiftsync/internal/resume"
	"github.com/iudanet/shiftsync/internal/server"
	"github.com/iudanet/shiftsync/internal/storage"
	"github.com/iudanet/shiftsync/internal/storage/boltdb"
	"github.com/iudanet/shiftsync/internal/storage/sqlite"
	"github.com/iudanet/shiftsync/internal/store"
	"github.com/iudanet/shiftsync/internal/telemetry"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// durableStorage — хранилище ростеров вместе с освобождением ресурса
type durableStorage interface {
	storage.RosterStorage
	Close() error
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	durable, err := openDurable(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open durable storage: %w", err)
	}
	defer func() {
		if err := durable.Close(); err != nil {
			logger.Error("failed to close durable storage", "error", err)
		}
	}()

	res, err := buildResolver(cfg.Resolver)
	if err != nil {
		return err
	}

	metrics := telemetry.New(nil)
	st := store.New(cfg.Sync.ChangeLogSize)
	reg := registry.New(cfg.Sync.QueueSize, cfg.Sync.HeartbeatInterval, logger, metrics)

	resumeSvc, err := resume.NewService(cfg.Resume.Secret, cfg.Resume.TTL)
	if err != nil {
		return fmt.Errorf("init resume service: %w", err)
	}

	br := bridge.New(st, durable, res, reg, cfg.Bridge.Interval, cfg.Bridge.Staleness, logger, metrics)
	coord := coordinator.New(st, res, reg, resumeSvc, logger, metrics)

	srv := server.New(server.Options{
		ListenAddr:  cfg.Server.ListenAddr,
		Version:     Version,
		Store:       st,
		Registry:    reg,
		Coordinator: coord,
		Bridge:      br,
		Logger:      logger,
		RateRPS:     cfg.RateLimit.RPS,
		RateBurst:   cfg.RateLimit.Burst,
	})

	logger.Info("starting shiftsync server",
		"version", Version,
		"addr", cfg.Server.ListenAddr,
		"storage_driver", cfg.Storage.Driver,
		"resolver_strategy", cfg.Resolver.Strategy,
		"auto_resolve", cfg.Resolver.AutoResolve,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		reg.RunHeartbeatMonitor(gctx)
		return nil
	})
	g.Go(func() error {
		br.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

// buildResolver выбирает режим резолвера: эвристический подбор стратегии
// либо фиксированная стратегия из конфигурации.
func buildResolver(cfg config.ResolverConfig) (*resolver.Resolver, error) {
	strategy, err := resolver.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("parse resolver strategy: %w", err)
	}
	if cfg.AutoResolve || strategy == resolver.StrategyAuto {
		return resolver.NewAuto(nil, cfg.ConfidenceThreshold), nil
	}
	return resolver.New(strategy), nil
}

func openDurable(ctx context.Context, cfg config.StorageConfig) (durableStorage, error) {
	switch cfg.Driver {
	case config.DriverBolt:
		return boltdb.New(ctx, cfg.Path)
	default:
		return sqlite.New(ctx, cfg.Path)
	}
}

func printVersion() {
	fmt.Printf("ShiftSync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
