package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/medscan/medscan-api/internal/ai"
	"github.com/medscan/medscan-api/internal/cache"
	"github.com/medscan/medscan-api/pkg/messaging/redis"
)

const envPrefix = "MEDSCAN"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	AI      AIConfig      `mapstructure:"ai"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	RateLimit      float64       `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst      int           `mapstructure:"rate_burst" validate:"gte=0"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type CacheConfig struct {
	MaxEntries int           `mapstructure:"max_entries" validate:"min=1"`
	TTL        time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

type AIConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	URL              string        `mapstructure:"url" validate:"required,url"`
	APIKey           string        `mapstructure:"-"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MinScore         float64       `mapstructure:"min_score" validate:"gte=0,lte=1"`
	RateLimit        float64       `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst        int           `mapstructure:"rate_burst" validate:"gte=0"`
	BreakerThreshold int           `mapstructure:"breaker_threshold" validate:"min=1"`
	BreakerTimeout   time.Duration `mapstructure:"breaker_timeout" validate:"gt=0"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url" validate:"required_if=Enabled true"`
	Channel      string        `mapstructure:"channel" validate:"required"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"gte=0"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size" validate:"gte=0"`
	MinIdleConns int           `mapstructure:"min_idle_conns" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=console json"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace" validate:"required_if=Enabled true"`
}

// Secrets are read from the plain environment, never from the config file.
type Secrets struct {
	HuggingFaceAPIKey string `envconfig:"HUGGINGFACE_API_KEY"`
	RedisURL          string `envconfig:"REDIS_URL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 25*time.Second)
	v.SetDefault("server.max_body_bytes", 5*1024*1024)
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("cache.max_entries", cache.DefaultMaxEntries)
	v.SetDefault("cache.ttl", cache.DefaultTTL)

	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.url", ai.DefaultURL)
	v.SetDefault("ai.timeout", ai.DefaultTimeout)
	v.SetDefault("ai.min_score", 0.5)
	v.SetDefault("ai.rate_limit", 5)
	v.SetDefault("ai.rate_burst", 5)
	v.SetDefault("ai.breaker_threshold", 5)
	v.SetDefault("ai.breaker_timeout", 30*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel", "medscan.reports")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "medscan")
}

// LoadConfig reads config.yml from the given directories (or the standard
// locations), applies MEDSCAN_* environment overrides and secrets, and
// validates the result. A missing file is not an error.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app", "/app/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var secrets Secrets
	if err := envconfig.Process("", &secrets); err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}
	config.AI.APIKey = secrets.HuggingFaceAPIKey
	if secrets.RedisURL != "" {
		config.Redis.URL = secrets.RedisURL
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *AIConfig) ToClientConfig() ai.Config {
	return ai.Config{
		URL:              c.URL,
		APIKey:           c.APIKey,
		Timeout:          c.Timeout,
		RatePerSecond:    c.RateLimit,
		Burst:            c.RateBurst,
		BreakerThreshold: c.BreakerThreshold,
		BreakerTimeout:   c.BreakerTimeout,
	}
}

func (c *CacheConfig) ToCacheConfig() cache.Config {
	return cache.Config{
		MaxEntries: c.MaxEntries,
		TTL:        c.TTL,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
