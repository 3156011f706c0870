package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Feed     FeedConfig
	Prefetch PrefetchConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
	RabbitMQ RabbitMQConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

// FeedConfig tunes the preload cache: catalog size, preload window,
// controller budget, and acquisition behavior.
type FeedConfig struct {
	CatalogCeiling int           `envconfig:"FEED_CATALOG_CEILING" default:"100"`
	WindowBehind   int           `envconfig:"FEED_WINDOW_BEHIND" default:"2"`
	WindowAhead    int           `envconfig:"FEED_WINDOW_AHEAD" default:"3"`
	PressureAhead  int           `envconfig:"FEED_PRESSURE_AHEAD" default:"1"`
	MaxControllers int           `envconfig:"FEED_MAX_CONTROLLERS" default:"15"`
	AcquireTimeout time.Duration `envconfig:"FEED_ACQUIRE_TIMEOUT" default:"10s"`
	MaxRetries     int           `envconfig:"FEED_MAX_RETRIES" default:"3"`
	NotifyDebounce time.Duration `envconfig:"FEED_NOTIFY_DEBOUNCE" default:"50ms"`
	SeenVerdictTTL time.Duration `envconfig:"FEED_SEEN_VERDICT_TTL" default:"10m"`
}

// PrefetchConfig tunes the controller factory.
type PrefetchConfig struct {
	Bytes          int64         `envconfig:"PREFETCH_BYTES" default:"1048576"`
	PlaybackURLTTL time.Duration `envconfig:"PREFETCH_PLAYBACK_URL_TTL" default:"15m"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"reelfeed"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"reelfeed"`
	DBName   string `envconfig:"POSTGRES_DB" default:"reelfeed"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"media"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"reelfeed"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"reelfeed"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
