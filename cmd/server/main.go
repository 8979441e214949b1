package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stolik/internal/config"
	"stolik/internal/domain"
	"stolik/internal/events"
	"stolik/internal/form"
	"stolik/internal/logging"
	"stolik/internal/metrics"
	"stolik/internal/repository"
	"stolik/internal/site"
	"stolik/internal/validation"
	"stolik/internal/web"

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
		defer (func() { _ = closer.Close() })()
	}

	content, err := site.Load(cfg.Site.ContentPath)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Site.ContentPath).Msg("load site content")
		return err
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	states := buildStateRepository(cfg, redisClient, &logger)

	bus := events.NewEventBus()
	subscribeEventConsumers(bus, &logger)

	schema := validation.NewSchema(validation.Rules{
		MinGuests:   cfg.Booking.MinGuests,
		MaxGuests:   cfg.Booking.MaxGuests,
		NotesMaxLen: cfg.Booking.NotesMaxLen,
	})
	throttle := form.SubmitThrottle{
		Limit:  cfg.RateLimit.SubmitLimit,
		Window: time.Duration(cfg.RateLimit.SubmitWindowSec) * time.Second,
	}
	controller := form.NewController(schema, states, bus, cfg.Booking.DefaultGuests, throttle, &logger)

	webLogger := logging.Component(&logger, "web")
	server, err := web.NewServer(cfg, content, controller, webLogger)
	if err != nil {
		logger.Error().Err(err).Msg("create web server")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)

	return serve(ctx, server, cfg, &logger)
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
	logger := logging.Component(baseLogger, "server-main")

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// buildStateRepository wires the session store: redis with in-memory
// failover when redis is configured, plain in-memory otherwise.
func buildStateRepository(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.StateRepository {
	ttl := time.Duration(cfg.Session.TTLSeconds) * time.Second
	memory := repository.NewMemoryStateRepository(ttl)

	if redisClient == nil {
		return memory
	}

	primary := repository.NewRedisStateRepository(redisClient, ttl)
	return repository.NewFailoverStateRepository(primary, memory, logger)
}

// subscribeEventConsumers attaches the observational consumers: metrics and
// a structured log line per outcome.
func subscribeEventConsumers(bus *events.EventBus, logger *zerolog.Logger) {
	bus.Subscribe(events.EventReservationConfirmed, func(event *events.Event) error {
		metrics.IncReservation("confirmed")

		var payload events.ReservationEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		logger.Info().
			Str("name", payload.Booking.FullName).
			Int("guests", payload.Booking.Guests).
			Str("date", payload.Booking.Date).
			Str("time", payload.Booking.Time).
			Msg("reservation confirmed")
		return nil
	})

	bus.Subscribe(events.EventReservationRejected, func(event *events.Event) error {
		metrics.IncReservation("rejected")

		var payload events.ReservationEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		for _, field := range payload.Fields {
			metrics.IncFieldFailure(field)
		}
		logger.Debug().Strs("fields", payload.Fields).Msg("reservation rejected")
		return nil
	})
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func serve(ctx context.Context, server *web.Server, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info().Int("port", cfg.Server.Port).Msg("web server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("web server shutdown")
	}

	logger.Info().Msg("web server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
