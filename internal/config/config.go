package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the order engine
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	Otel     OtelConfig     `yaml:"otel"`
	Orders   OrdersConfig   `yaml:"orders"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// RabbitMQConfig holds RabbitMQ connection configuration.
// Messaging is disabled when neither URL nor Host is set.
type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Prefetch int    `yaml:"prefetch"`
}

// RedisConfig holds the idempotency store connection
type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
	// PendingTTL bounds how long an unfinished request holds its key
	PendingTTL time.Duration `yaml:"pending_ttl"`
}

// OtelConfig holds trace exporter settings
type OtelConfig struct {
	Endpoint    string `yaml:"endpoint"`
	URLPath     string `yaml:"url_path"`
	AuthHeader  string `yaml:"auth_header"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// OrdersConfig holds order placement and status workflow rules
type OrdersConfig struct {
	MaxLines                int  `yaml:"max_lines"`
	MaxQuantity             int  `yaml:"max_quantity"`
	StrictStatusTransitions bool `yaml:"strict_status_transitions"`
}

// Load reads configuration from a YAML file, then applies .env and
// environment overrides on top of it.
func Load(filename string) (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes YAML content and fills in defaults
func Parse(content []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 4000
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 10 * time.Second
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 25
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = 5
	}
	if c.RabbitMQ.Port == 0 {
		c.RabbitMQ.Port = 5672
	}
	if c.RabbitMQ.Prefetch == 0 {
		c.RabbitMQ.Prefetch = 1
	}
	if c.Redis.IdempotencyTTL == 0 {
		c.Redis.IdempotencyTTL = 24 * time.Hour
	}
	if c.Redis.PendingTTL == 0 {
		c.Redis.PendingTTL = 2 * c.Server.RequestTimeout
	}
	if c.Otel.URLPath == "" {
		c.Otel.URLPath = "/v1/traces"
	}
	if c.Otel.ServiceName == "" {
		c.Otel.ServiceName = "cafe-orders"
	}
	if c.Orders.MaxLines == 0 {
		c.Orders.MaxLines = 50
	}
	if c.Orders.MaxQuantity == 0 {
		c.Orders.MaxQuantity = 100
	}
}

// applyEnv overrides file values with environment variables
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("DATABASE_URL", &c.Database.URL)
	str("DB_HOST", &c.Database.Host)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_NAME", &c.Database.Database)
	str("RABBITMQ_URL", &c.RabbitMQ.URL)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("OTEL_ENDPOINT", &c.Otel.Endpoint)
	str("OTEL_AUTH_HEADER", &c.Otel.AuthHeader)

	if v, ok := lookup("DB_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT value: %w", err)
		}
		c.Database.Port = port
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT value: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("DB_SSL"); ok && v == "true" {
		c.Database.SSLMode = "require"
	}
	return nil
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("database.host or database.url is required")
	}
	if c.Database.URL == "" && c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns must not exceed database.max_conns")
	}
	if c.Orders.MaxLines < 1 {
		return fmt.Errorf("orders.max_lines must be positive")
	}
	if c.Orders.MaxQuantity < 1 {
		return fmt.Errorf("orders.max_quantity must be positive")
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database, c.Database.SSLMode)
}

// MessagingEnabled reports whether order events should be published
func (c *Config) MessagingEnabled() bool {
	return c.RabbitMQ.URL != "" || c.RabbitMQ.Host != ""
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	if c.RabbitMQ.URL != "" {
		return c.RabbitMQ.URL
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
