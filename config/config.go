package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Application
	App AppConfig `mapstructure:"app"`

	// Logging (local zap + remote diagnostic sink)
	Log  LogConfig  `mapstructure:"log"`
	Diag DiagConfig `mapstructure:"diag"`

	// Link store and its durable backend
	Store StoreConfig `mapstructure:"store"`

	// Backends
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Mongo    MongoConfig    `mapstructure:"mongo"`

	// Link events
	Events EventsConfig `mapstructure:"events"`
	NATS   NATSConfig   `mapstructure:"nats"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`

	// Observability
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type AppConfig struct {
	Name       string `mapstructure:"name"`
	Version    string `mapstructure:"version"`
	Env        string `mapstructure:"env"`
	ListenAddr string `mapstructure:"listen_addr"`
	BaseURL    string `mapstructure:"base_url"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type DiagConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Transport string        `mapstructure:"transport"`
	Endpoint  string        `mapstructure:"endpoint"`
	Subject   string        `mapstructure:"subject"`
	Stack     string        `mapstructure:"stack"`
	Level     string        `mapstructure:"level"`
	Timeout   time.Duration `mapstructure:"timeout"`
	QueueSize int           `mapstructure:"queue_size"`
}

type StoreConfig struct {
	Backend                string        `mapstructure:"backend"`
	Key                    string        `mapstructure:"key"`
	FilePath               string        `mapstructure:"file_path"`
	CommitMode             string        `mapstructure:"commit_mode"`
	CommitInterval         time.Duration `mapstructure:"commit_interval"`
	DefaultValidityMinutes int           `mapstructure:"default_validity_minutes"`
	CodeLength             int           `mapstructure:"code_length"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`

	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type EventsConfig struct {
	Publisher string `mapstructure:"publisher"`
}

type NATSConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// Store backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Commit modes.
const (
	CommitSync  = "sync"
	CommitAsync = "async"
)

// Event publishers.
const (
	PublisherNone  = "none"
	PublisherNATS  = "nats"
	PublisherKafka = "kafka"
)

// Remote logger transports.
const (
	TransportHTTP = "http"
	TransportNATS = "nats"
)

// maxValidityMinutes mirrors store.MaxValidityMinutes (one year).
const maxValidityMinutes = 525600

// IsDevelopment reports whether the app runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.App.Env != "production"
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	return load(v)
}

// LoadFile reads configuration from an explicit YAML path; environment overrides still apply.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendPostgres, BackendMongo:
	default:
		return fmt.Errorf("config: unknown store.backend %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendFile && c.Store.FilePath == "" {
		return errors.New("config: store.file_path is required for the file backend")
	}
	if strings.TrimSpace(c.Store.Key) == "" {
		return errors.New("config: store.key must not be empty")
	}

	switch c.Store.CommitMode {
	case CommitSync:
	case CommitAsync:
		if c.Store.CommitInterval <= 0 {
			return errors.New("config: store.commit_interval must be positive in async mode")
		}
	default:
		return fmt.Errorf("config: unknown store.commit_mode %q", c.Store.CommitMode)
	}

	if c.Store.CodeLength < 4 || c.Store.CodeLength > 32 {
		return fmt.Errorf("config: store.code_length must be between 4 and 32 (got %d)", c.Store.CodeLength)
	}
	if c.Store.DefaultValidityMinutes <= 0 || c.Store.DefaultValidityMinutes > maxValidityMinutes {
		return fmt.Errorf("config: store.default_validity_minutes must be between 1 and %d (got %d)", maxValidityMinutes, c.Store.DefaultValidityMinutes)
	}

	switch c.Events.Publisher {
	case PublisherNone, PublisherNATS:
	case PublisherKafka:
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("config: kafka.brokers is required for the kafka publisher")
		}
	default:
		return fmt.Errorf("config: unknown events.publisher %q", c.Events.Publisher)
	}

	if c.Diag.Enabled {
		switch c.Diag.Transport {
		case TransportHTTP:
			if c.Diag.Endpoint == "" {
				return errors.New("config: diag.endpoint is required for the http transport")
			}
		case TransportNATS:
		default:
			return fmt.Errorf("config: unknown diag.transport %q", c.Diag.Transport)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "quicklink")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.listen_addr", ":8080")
	v.SetDefault("app.base_url", "http://localhost:8080")

	v.SetDefault("log.level", "info")

	v.SetDefault("diag.enabled", false)
	v.SetDefault("diag.transport", TransportHTTP)
	v.SetDefault("diag.subject", "diag.logs")
	v.SetDefault("diag.stack", "backend")
	v.SetDefault("diag.level", "info")
	v.SetDefault("diag.timeout", 3*time.Second)
	v.SetDefault("diag.queue_size", 256)

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.key", "urls")
	v.SetDefault("store.file_path", "data/urls.json")
	v.SetDefault("store.commit_mode", CommitSync)
	v.SetDefault("store.commit_interval", time.Second)
	v.SetDefault("store.default_validity_minutes", 30)
	v.SetDefault("store.code_length", 6)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "quicklink")

	v.SetDefault("events.publisher", PublisherNone)
	v.SetDefault("kafka.topic", "link-events")

	v.SetDefault("prometheus.port", 9090)
	v.SetDefault("prometheus.path", "/metrics")

	v.SetDefault("telemetry.endpoint", "http://localhost:4318")

	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window", time.Minute)
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.listen_addr", "APP_ADDR")
	v.BindEnv("app.base_url", "BASE_URL")
	v.BindEnv("log.level", "LOG_LEVEL")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// MongoDB
	v.BindEnv("mongo.uri", "MONGODB_URI")
	v.BindEnv("mongo.database", "MONGODB_DATABASE")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// Kafka
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")

	// OpenTelemetry
	v.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}
