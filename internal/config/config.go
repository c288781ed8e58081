package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Live      LiveConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Dashboard DashboardConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// BackendConfig points at the trading backend that serves prices and
// accepts buy/sell form submissions.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// LiveConfig holds the push-channel settings
type LiveConfig struct {
	Enabled        bool
	URL            string
	Topic          string
	ReconnectDelay time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Migrate  bool
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	PricesTopic   string
	HoldingsTopic string
	ConsumerGroup string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host       string
	Port       string
	Password   string
	DB         int
	PriceTTL   time.Duration
	SummaryKey string
}

// DashboardConfig identifies whose portfolio is shown
type DashboardConfig struct {
	Username string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Pretty bool
	File   string
}

// Load reads configuration from environment variables, after loading an
// optional .env file from the working directory.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Could not load .env file")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8082"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8080"), "/"),
			Timeout: getDuration("BACKEND_TIMEOUT", 10*time.Second),
		},
		Live: LiveConfig{
			Enabled:        getBool("LIVE_ENABLED", true),
			URL:            getEnv("LIVE_WS_URL", "ws://localhost:8080/ws/websocket"),
			Topic:          getEnv("LIVE_TOPIC", "/topic/stock-prices"),
			ReconnectDelay: getDuration("LIVE_RECONNECT_DELAY", 5*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "stocklee"),
			Password: getEnv("DB_PASSWORD", "stocklee"),
			DBName:   getEnv("DB_NAME", "stocklee"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Migrate:  getBool("DB_MIGRATE", false),
		},
		Kafka: KafkaConfig{
			Enabled:       getBool("KAFKA_ENABLED", false),
			Brokers:       parseBrokers(getEnv("KAFKA_BROKERS", "localhost:19092")),
			PricesTopic:   getEnv("KAFKA_PRICES_TOPIC", "stock-prices"),
			HoldingsTopic: getEnv("KAFKA_HOLDINGS_TOPIC", "portfolio.holdings"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "portfolio-dashboard"),
		},
		Redis: RedisConfig{
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getInt("REDIS_DB", 0),
			PriceTTL:   getDuration("REDIS_PRICE_TTL", time.Minute),
			SummaryKey: getEnv("REDIS_SUMMARY_CHANNEL", "portfolio:summary"),
		},
		Dashboard: DashboardConfig{
			Username: getEnv("DASHBOARD_USER", "demo"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getBool("LOG_PRETTY", false),
			File:   getEnv("LOG_FILE", ""),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
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

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid boolean, using default")
		return defaultValue
	}
	return b
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer, using default")
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid duration, using default")
		return defaultValue
	}
	return d
}

// parseBrokers splits a comma-separated broker list
func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
