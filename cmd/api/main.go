package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gearbook/internal/api"
	"gearbook/internal/clock"
	"gearbook/internal/config"
	"gearbook/internal/domain"
	"gearbook/internal/events"
	"gearbook/internal/logging"
	"gearbook/internal/metrics"
	"gearbook/internal/repository"
	"gearbook/internal/service"
	"gearbook/internal/worker"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	metrics.Register()

	store, sqliteStore, cleanup, err := initStore(cfg, &logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	bus := events.NewEventBus()
	clk := clock.NewSystem()

	bookingLogger := logging.WithComponent(&logger, "booking")
	bookingService := service.NewBookingService(store, bus, clk, cfg.Booking.RequesterRoles, &bookingLogger)

	equipmentLogger := logging.WithComponent(&logger, "equipment")
	equipmentService := service.NewEquipmentService(store, clk, &equipmentLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Audit.Enabled && sqliteStore != nil {
		auditLogger := logging.WithComponent(&logger, "audit")
		auditWorker := worker.NewAuditWorker(sqliteStore, worker.RetryPolicy{}, &auditLogger)
		auditWorker.SubscribeAll(bus)
		go auditWorker.Run(ctx)
	}

	httpLogger := logging.WithComponent(&logger, "http")
	httpServer := api.NewHTTPServer(cfg.HTTP, cfg.Auth, cfg.Monitoring, bookingService, equipmentService, &httpLogger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.WithComponent(baseLogger, "api-main")

	return cfg, logger, closer, nil
}

// initStore builds the configured storage backend. The sqlite store is
// returned separately because it doubles as the audit sink.
func initStore(cfg *config.Config, logger *zerolog.Logger) (domain.EquipmentStore, *repository.SQLiteEquipmentStore, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
		return repository.NewMemoryEquipmentStore(), nil, nil, nil

	case "sqlite":
		store, err := repository.NewSQLiteEquipmentStore(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return store, store, func() { _ = store.Close() }, nil

	case "redis":
		client := repository.NewRedisClient(cfg.Storage.Redis)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repository.Ping(pingCtx, client); err != nil {
			_ = repository.Close(client)
			return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return repository.NewRedisEquipmentStore(client), nil, func() { _ = repository.Close(client) }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
