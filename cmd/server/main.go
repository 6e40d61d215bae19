package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-analysis-service/internal/analysis"
	"github.com/trogers1052/stock-analysis-service/internal/analyst"
	"github.com/trogers1052/stock-analysis-service/internal/api"
	"github.com/trogers1052/stock-analysis-service/internal/config"
	"github.com/trogers1052/stock-analysis-service/internal/database"
	"github.com/trogers1052/stock-analysis-service/internal/kafka"
	"github.com/trogers1052/stock-analysis-service/internal/logger"
	"github.com/trogers1052/stock-analysis-service/internal/marketdata"
	"github.com/trogers1052/stock-analysis-service/internal/scheduler"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Level: "info"})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
	logger.SetGlobalLogger(log)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Service exited with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}
	log.Info().Str("database", cfg.Database.DBName).Msg("Database ready")

	dataset, err := analyst.Load(cfg.Analyst.DataPath, logger.Component(log, "analyst"))
	if err != nil {
		return err
	}

	cache, closeCache, err := newCache(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeCache()

	if cfg.MarketData.APIKey == "" {
		log.Warn().Msg("ALPHA_VANTAGE_API_KEY is not set, market data requests will be rejected by the provider")
	}
	provider := marketdata.NewAlphaVantage(cfg.MarketData.APIKey,
		marketdata.WithBaseURL(cfg.MarketData.BaseURL),
		marketdata.WithHTTPClient(&http.Client{Timeout: cfg.MarketData.HTTPTimeout}),
		marketdata.WithProviderLogger(logger.Component(log, "alphavantage")),
	)
	gate := marketdata.NewRateGate(cfg.MarketData.RateLimit, cfg.MarketData.RateWindow)
	log.Info().Stringer("rate_gate", gate).Msg("Market data rate gate configured")

	client := marketdata.NewClient(provider, gate,
		marketdata.WithCache(cache),
		marketdata.WithCacheTTL(cfg.MarketData.CacheTTL),
		marketdata.WithRetry(cfg.MarketData.RetryAttempts, cfg.MarketData.RetryBase),
		marketdata.WithLogger(logger.Component(log, "marketdata")),
	)

	// publisher stays a nil interface when Kafka is disabled
	var publisher analysis.Publisher
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = producer
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka producer enabled")
	}

	orchOpts := []analysis.Option{analysis.WithLogger(logger.Component(log, "orchestrator"))}
	if publisher != nil {
		orchOpts = append(orchOpts, analysis.WithPublisher(publisher))
	}
	orchestrator := analysis.NewOrchestrator(db, client, dataset, orchOpts...)
	service := analysis.NewService(db, orchestrator, client, publisher, logger.Component(log, "service"))

	if cfg.Kafka.Enabled && cfg.Kafka.RequestTopic != "" {
		consumer := kafka.NewRequestConsumer(cfg.Kafka.Brokers, cfg.Kafka.RequestTopic, cfg.Kafka.GroupID,
			service, logger.Component(log, "kafka"))
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Analysis request consumer stopped")
			}
		}()
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(log)
		job := scheduler.NewReanalysisJob(service, log)
		if err := sched.AddJob(cfg.Scheduler.Spec, job); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if cfg.Scheduler.RunOnStart {
			go func() {
				if err := sched.RunNow(job); err != nil {
					log.Error().Err(err).Msg("Startup reanalysis failed")
				}
			}()
		}
	}

	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           api.SetupRoutes(api.NewHandler(service, log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server did not shut down cleanly")
	}
	log.Info().Msg("Service stopped")
	return nil
}

// newCache returns the shared Redis cache when enabled, otherwise an
// in-process cache
func newCache(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (marketdata.Cache, func(), error) {
	if !cfg.Enabled {
		return marketdata.NewMemoryCache(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Info().Str("addr", cfg.Addr).Msg("Using Redis market data cache")
	return marketdata.NewRedisCache(rdb), func() { _ = rdb.Close() }, nil
}
