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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nurpe/minefleet-dispatch/internal/ai"
	"github.com/nurpe/minefleet-dispatch/internal/auth"
	"github.com/nurpe/minefleet-dispatch/internal/backend"
	"github.com/nurpe/minefleet-dispatch/internal/cache"
	"github.com/nurpe/minefleet-dispatch/internal/config"
	"github.com/nurpe/minefleet-dispatch/internal/db"
	"github.com/nurpe/minefleet-dispatch/internal/excel"
	httphandler "github.com/nurpe/minefleet-dispatch/internal/http"
	"github.com/nurpe/minefleet-dispatch/internal/http/middleware"
	"github.com/nurpe/minefleet-dispatch/internal/logger"
	"github.com/nurpe/minefleet-dispatch/internal/messaging"
	"github.com/nurpe/minefleet-dispatch/internal/pdf"
	"github.com/nurpe/minefleet-dispatch/internal/repository"
	"github.com/nurpe/minefleet-dispatch/internal/service"
)

const shutdownTimeout = 15 * time.Second

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	if migrateOnStart {
		if err := db.Migrate(database); err != nil {
			return err
		}
	}

	store, closeStore := newStore(ctx, cfg, log)
	defer closeStore()

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close publisher")
		}
	}()

	api := backend.New(cfg.Backend, log)
	submissionRepo := repository.NewSubmissionRepository(database)

	monitor := ai.NewMonitor(api, cfg.AI.PollInterval, cfg.Backend.ServiceToken, log)
	if err := monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start ai monitor: %w", err)
	}
	defer func() {
		if err := monitor.Stop(); err != nil {
			log.Warn().Err(err).Msg("failed to stop ai monitor")
		}
	}()

	dispatchService := service.NewDispatchService(api, store, submissionRepo, publisher, cfg, log)
	strategyService := service.NewStrategyService(api, dispatchService, store, monitor, cfg.Redis.SessionTTL, log)
	reportService := service.NewReportService(submissionRepo, api, excel.NewGenerator(), pdf.NewGenerator(), log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(dispatchService, strategyService, reportService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, cfg.HTTP.AllowedOrigins, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("starting dispatch service")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

// newStore keeps sessions in redis when it is configured and reachable, in process otherwise.
func newStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (cache.Store, func()) {
	if !cfg.Redis.Enabled() {
		log.Warn().Msg("REDIS_ADDR not set, sessions are kept in memory")
		return cache.NewMemoryStore(), func() {}
	}

	rdb := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "dispatch:")
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, sessions are kept in memory")
		_ = rdb.Close()
		return cache.NewMemoryStore(), func() {}
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	return rdb, func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis")
		}
	}
}

func newPublisher(cfg *config.Config, log zerolog.Logger) (messaging.Publisher, error) {
	if !cfg.ServiceBus.Enabled() {
		return messaging.NewLogPublisher(log), nil
	}
	publisher, err := messaging.NewServiceBusPublisher(cfg.ServiceBus)
	if err != nil {
		return nil, fmt.Errorf("failed to init service bus publisher: %w", err)
	}
	log.Info().Str("queue", cfg.ServiceBus.QueueName).Msg("publishing submission events to service bus")
	return publisher, nil
}
