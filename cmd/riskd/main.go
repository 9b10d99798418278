package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/ferry-risk/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/ferry-risk/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/ferry-risk/internal/adapter/kafka"
	"github.com/couchcryptid/ferry-risk/internal/adapter/openmeteo"
	"github.com/couchcryptid/ferry-risk/internal/adapter/predictor"
	"github.com/couchcryptid/ferry-risk/internal/adapter/sqlite"
	"github.com/couchcryptid/ferry-risk/internal/config"
	"github.com/couchcryptid/ferry-risk/internal/domain"
	"github.com/couchcryptid/ferry-risk/internal/engine"
	"github.com/couchcryptid/ferry-risk/internal/observability"
	"github.com/couchcryptid/ferry-risk/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open port store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	checks := httpadapter.Checks{store}

	// Forecast cache: redis when REDIS_ADDR is set, in-process LRU otherwise.
	var forecastCache domain.Cache
	var redisCache *cache.Redis
	if cfg.RedisAddr != "" {
		redisCache, err = cache.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		forecastCache = redisCache
		checks = append(checks, redisCache)
		logger.Info("forecast cache using redis", "addr", cfg.RedisAddr, "ttl", cfg.ForecastCacheTTL)
	} else {
		forecastCache = cache.NewMemory(cfg.ForecastCacheSize, nil)
		logger.Info("forecast cache in memory", "size", cfg.ForecastCacheSize, "ttl", cfg.ForecastCacheTTL)
	}

	weather := openmeteo.NewClient(cfg.WeatherForecastURL, cfg.WeatherMarineURL, cfg.WeatherTimeout, metrics, logger)
	forecaster := openmeteo.NewCachedForecaster(weather, forecastCache, cfg.ForecastCacheTTL, metrics, logger)

	// Predictive tier (feature-flagged via PREDICTOR_ENABLED / PREDICTOR_URL).
	var model domain.Predictor
	if cfg.PredictorEnabled {
		model = predictor.NewClient(cfg.PredictorURL, cfg.PredictorTimeout, logger)
		logger.Info("predictive scoring enabled", "url", cfg.PredictorURL, "timeout", cfg.PredictorTimeout)
	} else {
		logger.Info("predictive scoring disabled, heuristic only")
	}

	scorer := engine.NewScorer(model, cfg.PredictorTimeout, metrics, logger)
	sampler := engine.NewSampler(forecaster, logger)
	routes := engine.NewRouteAnalyzer(sampler, scorer, cfg.RouteCheckpoints, metrics, logger)
	locations := engine.NewLocationAnalyzer(store, logger)

	var (
		alerts      domain.AlertPublisher
		notices     domain.NoticePublisher
		alertWriter *kafkaadapter.AlertWriter
	)
	if cfg.KafkaEnabled {
		alertWriter = kafkaadapter.NewAlertWriter(cfg, logger)
		alerts, notices = alertWriter, alertWriter
	}
	monitor := engine.NewMonitor(scorer, store, store, alerts, metrics, logger)
	subscriptions := engine.NewSubscriptionChecker(store, store, notices, metrics, logger)

	// Scheduled refreshes bypass the forecast cache.
	refresher := pipeline.NewRefresher(store, weather, monitor, openmeteo.Source, cfg.RefreshInterval, nil, metrics, logger)
	refresher.NotifySubscribers(subscriptions)

	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
		p      *pipeline.Pipeline
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(scorer, logger)
		p = pipeline.New(reader, transformer, writer, monitor, logger, metrics, cfg.BatchSize)
		logger.Info("kafka ingestion enabled", "source", cfg.KafkaSourceTopic, "sink", cfg.KafkaSinkTopic, "alerts", cfg.KafkaAlertTopic)
	} else {
		logger.Info("kafka ingestion disabled")
	}

	api := httpadapter.API{
		Scorer:    scorer,
		Sampler:   sampler,
		Trips:     engine.NewTripPlanner(store, routes, logger),
		Locations: locations,
		Ports:     store,
		Assessor:  monitor,
		Refresher: refresher,

		Subscriptions: subscriptions,
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, api, checks, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start port refresher.
	go func() {
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher error", "error", err)
		}
	}()

	// Start ingestion pipeline.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if alertWriter != nil {
		if err := alertWriter.Close(); err != nil {
			logger.Error("kafka alert writer close error", "error", err)
		}
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("port store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
