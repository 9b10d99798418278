package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// maxPredictorTimeout bounds the primary scoring tier so a slow model never
// stalls a request for long.
const maxPredictorTimeout = 2 * time.Second

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DBPath string

	// Predictive risk service.
	PredictorURL     string
	PredictorEnabled bool
	PredictorTimeout time.Duration

	// Weather provider and forecast cache.
	WeatherForecastURL string
	WeatherMarineURL   string
	WeatherTimeout     time.Duration
	ForecastCacheTTL   time.Duration
	ForecastCacheSize  int
	RedisAddr          string

	RouteCheckpoints int
	RefreshInterval  time.Duration

	// Kafka ingestion and alerting.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaAlertTopic    string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	predictorTimeout, err := parsePositiveDuration("PREDICTOR_TIMEOUT", "2s")
	if err != nil {
		return nil, err
	}
	if predictorTimeout > maxPredictorTimeout {
		return nil, fmt.Errorf("invalid PREDICTOR_TIMEOUT: must not exceed %s", maxPredictorTimeout)
	}

	weatherTimeout, err := parsePositiveDuration("WEATHER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("FORECAST_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}

	refreshInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("REFRESH_INTERVAL", "1h"))
	if err != nil || refreshInterval < 0 {
		return nil, errors.New("invalid REFRESH_INTERVAL")
	}

	checkpoints, err := parsePositiveInt("ROUTE_CHECKPOINTS", 2)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("FORECAST_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	predictorURL := sharedcfg.EnvOrDefault("PREDICTOR_URL", "http://127.0.0.1:5000/predict-risk")
	predictorEnabled := predictorURL != ""
	if v := os.Getenv("PREDICTOR_ENABLED"); v != "" {
		predictorEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBPath: sharedcfg.EnvOrDefault("DB_PATH", "data/ferry-risk.db"),

		PredictorURL:     predictorURL,
		PredictorEnabled: predictorEnabled,
		PredictorTimeout: predictorTimeout,

		WeatherForecastURL: sharedcfg.EnvOrDefault("WEATHER_FORECAST_URL", "https://api.open-meteo.com/v1/forecast"),
		WeatherMarineURL:   sharedcfg.EnvOrDefault("WEATHER_MARINE_URL", "https://marine-api.open-meteo.com/v1/marine"),
		WeatherTimeout:     weatherTimeout,
		ForecastCacheTTL:   cacheTTL,
		ForecastCacheSize:  cacheSize,
		RedisAddr:          os.Getenv("REDIS_ADDR"),

		RouteCheckpoints: checkpoints,
		RefreshInterval:  refreshInterval,

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-marine-readings"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "marine-risk-assessments"),
		KafkaAlertTopic:    sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "marine-risk-alerts"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "ferry-risk"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if cfg.PredictorEnabled && cfg.PredictorURL == "" {
		return nil, errors.New("PREDICTOR_ENABLED is true but PREDICTOR_URL is not set")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
		if cfg.KafkaAlertTopic == "" {
			return nil, errors.New("KAFKA_ALERT_TOPIC is required")
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
