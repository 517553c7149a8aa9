package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotbook/internal/api"
	"slotbook/internal/availability"
	"slotbook/internal/booking"
	"slotbook/internal/capacity"
	"slotbook/internal/catalog"
	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/domain"
	"slotbook/internal/events"
	"slotbook/internal/logging"
	"slotbook/internal/metrics"
	"slotbook/internal/repository"
	"slotbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
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

	cat, err := catalog.NewStatic(cfg.Activities)
	if err != nil {
		return fmt.Errorf("load activity catalog: %w", err)
	}

	dbLogger := logging.Component(&logger, "store")
	db, err := database.NewDB(cfg.Database.Path, &dbLogger)
	if err != nil {
		return fmt.Errorf("init booking store: %w", err)
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	countCache := buildCountCache(cfg, redisClient, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewEventBus()
	auditLogger := logging.Component(&logger, "audit")
	auditWorker := worker.NewAuditWorker(db, &auditLogger)
	auditWorker.SubscribeAll(bus)
	auditWorker.Start(ctx)

	indexLogger := logging.Component(&logger, "capacity")
	index := capacity.NewIndex(db, countCache, &indexLogger)

	availLogger := logging.Component(&logger, "availability")
	avail := availability.NewService(index, cat, countCache, &availLogger)

	engineLogger := logging.Component(&logger, "lifecycle")
	engine := booking.NewEngine(db, index, cat, bus, cfg.Booking.MaxBookingDays, &engineLogger)

	metrics.Register()
	startMetrics(ctx, cfg, &logger)

	httpLogger := logging.Component(&logger, "http")
	httpServer := api.NewHTTPServer(cfg, engine, avail, cat, &httpLogger)

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
		logger.Error().Err(err).Msg("http shutdown")
	}
	auditWorker.Wait()
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
	logger := logging.Component(baseLogger, "api-main")

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, count cache degrades to memory")
		_ = client.Close()
		return nil
	}
	return client
}

func buildCountCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.CountCache {
	ttl := time.Duration(cfg.Booking.CountCacheTTLSecond) * time.Second
	memory := repository.NewMemoryCountCache(ttl)
	if redisClient == nil {
		return memory
	}
	cacheLogger := logging.Component(logger, "count-cache")
	return repository.NewFailoverCountCache(
		repository.NewRedisCountCache(redisClient, ttl),
		memory,
		&cacheLogger,
	)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("metrics listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
