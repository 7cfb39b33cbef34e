package config

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

type Config struct {
	Server ServerConfig `json:"server"`

	// Database Configuration
	MongoDB MongoDBConfig `json:"mongodb"`

	// Auth Configuration
	JWT JWTConfig `json:"jwt"`

	// Notification bus Configuration
	Notification NotificationConfig `json:"notification"`

	// Throttling Configuration
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Logging Configuration
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port           string `json:"port"`
	Host           string `json:"host"`
	GRPCHealthPort string `json:"grpc_health_port"`
	ReadTimeout    int    `json:"read_timeout"`
	WriteTimeout   int    `json:"write_timeout"`
	Environment    string `json:"environment"` // development, test, production
}

type MongoDBConfig struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

type JWTConfig struct {
	Secret string `json:"-"`
}

// NotificationConfig contains message bus configuration
type NotificationConfig struct {
	Enabled     bool   `json:"enabled"`
	URL         string `json:"url"`
	Topic       string `json:"topic"`
	ServiceName string `json:"service_name"`
	MaxRetries  int    `json:"max_retries"`    // publish attempts while the bus is not ready
	RetryDelay  int    `json:"retry_delay_ms"` // Milliseconds
}

type RateLimitConfig struct {
	WindowMs int `json:"window_ms"`
	Max      int `json:"max"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

const (
	defaultPort       = "6103"
	defaultGRPCPort   = "6104"
	defaultMongoURI   = "mongodb://localhost:6102/chats"
	defaultDatabase   = "chats"
	defaultCollection = "messages"
	defaultSecret     = "horizon-secret"
	defaultBusURL     = "nats://localhost:4222"
	defaultTopic      = "notification"
	defaultService    = "CHATS"
	defaultRetries    = 5
	defaultRetryDelay = 1000
	defaultWindowMs   = 10000
	defaultMax        = 100
	defaultTimeout    = 15
)

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	v := viper.New()
	bindEnv(v)

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("server.port"),
			Host:           v.GetString("server.host"),
			GRPCHealthPort: v.GetString("server.grpc_health_port"),
			ReadTimeout:    positiveInt(v, "server.read_timeout", defaultTimeout),
			WriteTimeout:   positiveInt(v, "server.write_timeout", defaultTimeout),
			Environment:    strings.ToLower(v.GetString("server.environment")),
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("mongodb.uri"),
			Database:   v.GetString("mongodb.database"),
			Collection: v.GetString("mongodb.collection"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
		},
		Notification: NotificationConfig{
			Enabled:     v.GetBool("notification.enabled"),
			URL:         v.GetString("notification.url"),
			Topic:       v.GetString("notification.topic"),
			ServiceName: v.GetString("notification.service_name"),
			MaxRetries:  nonNegativeInt(v, "notification.max_retries", defaultRetries),
			RetryDelay:  positiveInt(v, "notification.retry_delay_ms", defaultRetryDelay),
		},
		RateLimit: RateLimitConfig{
			WindowMs: positiveInt(v, "rate_limit.window_ms", defaultWindowMs),
			Max:      positiveInt(v, "rate_limit.max", defaultMax),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("logging.level")),
			Format: strings.ToLower(v.GetString("logging.format")),
		},
	}

	if cfg.MongoDB.Database == "" {
		cfg.MongoDB.Database = databaseFromURI(cfg.MongoDB.URI)
	}

	return cfg
}

func bindEnv(v *viper.Viper) {
	// first variable found wins, so the legacy KAFKA_* names act as aliases
	_ = v.BindEnv("server.port", "BACKEND_PORT", "PORT")
	_ = v.BindEnv("server.host", "BACKEND_HOST")
	_ = v.BindEnv("server.grpc_health_port", "GRPC_HEALTH_PORT")
	_ = v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	_ = v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	_ = v.BindEnv("server.environment", "APP_ENV", "NODE_ENV")
	_ = v.BindEnv("mongodb.uri", "MONGODB_URI")
	_ = v.BindEnv("mongodb.database", "MONGODB_DATABASE")
	_ = v.BindEnv("mongodb.collection", "MONGODB_COLLECTION")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("notification.enabled", "BUS_ENABLED", "KAFKA_ENABLED")
	_ = v.BindEnv("notification.url", "BUS_URL", "KAFKA_BROKER")
	_ = v.BindEnv("notification.topic", "BUS_TOPIC", "KAFKA_TOPIC")
	_ = v.BindEnv("notification.service_name", "BUS_SERVICE_NAME", "KAFKA_SERVICE_NAME")
	_ = v.BindEnv("notification.max_retries", "BUS_MAX_RETRIES")
	_ = v.BindEnv("notification.retry_delay_ms", "BUS_RETRY_DELAY_MS")
	_ = v.BindEnv("rate_limit.window_ms", "THROTTLE_WINDOW_MS")
	_ = v.BindEnv("rate_limit.max", "THROTTLE_MAX")
	_ = v.BindEnv("logging.level", "LOGLEVEL", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")

	v.SetDefault("server.port", defaultPort)
	v.SetDefault("server.host", "")
	v.SetDefault("server.grpc_health_port", defaultGRPCPort)
	v.SetDefault("server.environment", "development")
	v.SetDefault("mongodb.uri", defaultMongoURI)
	v.SetDefault("mongodb.collection", defaultCollection)
	v.SetDefault("jwt.secret", defaultSecret)
	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.url", defaultBusURL)
	v.SetDefault("notification.topic", defaultTopic)
	v.SetDefault("notification.service_name", defaultService)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// positiveInt falls back to def for junk, zero and negative values.
func positiveInt(v *viper.Viper, key string, def int) int {
	if n := v.GetInt(key); n > 0 {
		return n
	}
	return def
}

// nonNegativeInt accepts zero, for settings where zero disables something.
func nonNegativeInt(v *viper.Viper, key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func databaseFromURI(uri string) string {
	cs, err := connstring.Parse(uri)
	if err != nil || cs.Database == "" {
		return defaultDatabase
	}
	return cs.Database
}

func (cfg *Config) IsTest() bool {
	return cfg.Server.Environment == "test"
}

func (cfg *Config) Addr() string {
	return cfg.Server.Host + ":" + cfg.Server.Port
}

func (cfg *Config) RateLimitWindow() time.Duration {
	return time.Duration(cfg.RateLimit.WindowMs) * time.Millisecond
}

func (cfg *Config) RetryDelay() time.Duration {
	return time.Duration(cfg.Notification.RetryDelay) * time.Millisecond
}

func (cfg *Config) GetMongoURI() string {
	if cfg.MongoDB.URI == "" {
		return defaultMongoURI
	}
	return cfg.MongoDB.URI
}
