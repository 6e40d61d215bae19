package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	MarketData MarketDataConfig
	Analyst    AnalystConfig
	Scheduler  SchedulerConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `validate:"required,numeric"`
	Host string `validate:"required"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	User     string `validate:"required"`
	Password string
	DBName   string `validate:"required"`
	SSLMode  string `validate:"oneof=disable require verify-ca verify-full"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string `validate:"required_if=Enabled true,dive,required"`
	Topic        string   `validate:"required_if=Enabled true"`
	RequestTopic string
	GroupID      string `validate:"required_with=RequestTopic"`
}

// RedisConfig holds the optional shared market data cache
type RedisConfig struct {
	Enabled  bool
	Addr     string `validate:"required_if=Enabled true"`
	Password string
	DB       int `validate:"gte=0"`
}

// MarketDataConfig holds market data provider and client settings
type MarketDataConfig struct {
	APIKey        string
	BaseURL       string        `validate:"required,url"`
	RateLimit     int           `validate:"gte=1"`
	RateWindow    time.Duration `validate:"gt=0"`
	CacheTTL      time.Duration `validate:"gt=0"`
	RetryAttempts int           `validate:"min=1,max=10"`
	RetryBase     time.Duration `validate:"gt=0"`
	HTTPTimeout   time.Duration `validate:"gt=0"`
}

// AnalystConfig locates the analyst rating dataset
type AnalystConfig struct {
	DataPath string `validate:"required"`
}

// SchedulerConfig holds the periodic reanalysis schedule
type SchedulerConfig struct {
	Enabled    bool
	Spec       string `validate:"required_if=Enabled true"`
	RunOnStart bool
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Pretty bool
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first; variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "stockanalysis"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Enabled:      getEnvBool("KAFKA_ENABLED", false),
			Brokers:      getEnvList("KAFKA_BROKERS", "localhost:9092"),
			Topic:        getEnv("KAFKA_TOPIC", "stock-analysis-events"),
			RequestTopic: getEnv("KAFKA_REQUEST_TOPIC", "stock-analysis-requests"),
			GroupID:      getEnv("KAFKA_GROUP_ID", "stock-analysis-service"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		MarketData: MarketDataConfig{
			APIKey:        getEnv("ALPHA_VANTAGE_API_KEY", ""),
			BaseURL:       getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
			RateLimit:     getEnvInt("MARKET_RATE_LIMIT", 5),
			RateWindow:    getEnvDuration("MARKET_RATE_WINDOW", time.Minute),
			CacheTTL:      getEnvDuration("MARKET_CACHE_TTL", 5*time.Minute),
			RetryAttempts: getEnvInt("MARKET_RETRY_ATTEMPTS", 3),
			RetryBase:     getEnvDuration("MARKET_RETRY_BASE", time.Second),
			HTTPTimeout:   getEnvDuration("MARKET_HTTP_TIMEOUT", 30*time.Second),
		},
		Analyst: AnalystConfig{
			DataPath: getEnv("ANALYST_DATA_PATH", "data/analyst_data.csv"),
		},
		Scheduler: SchedulerConfig{
			Enabled:    getEnvBool("SCHEDULER_ENABLED", false),
			Spec:       getEnv("SCHEDULER_SPEC", "@every 6h"),
			RunOnStart: getEnvBool("SCHEDULER_RUN_ON_START", false),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags of every section
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the HTTP listen address
func (s *ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
