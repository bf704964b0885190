package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/quantlab/zoneanalyzer/internal/cache"
	"github.com/quantlab/zoneanalyzer/internal/pipeline"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	LogFormat   string         `mapstructure:"log_format"`
	Data        DataConfig     `mapstructure:"data"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Pipeline    pipeline.Config `mapstructure:"pipeline"`
}

type DataConfig struct {
	InputPath string   `mapstructure:"input_path"`
	OutputDir string   `mapstructure:"output_dir"`
	Formats   []string `mapstructure:"formats"`
}

type CacheConfig struct {
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	MemorySize int    `mapstructure:"memory_size"`
	TTL        string `mapstructure:"ttl"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "json")

	viper.SetDefault("data.input_path", "data/ohlcv.csv")
	viper.SetDefault("data.output_dir", "output")
	viper.SetDefault("data.formats", []string{"json", "csv"})

	viper.SetDefault("cache.backend", "badger")
	viper.SetDefault("cache.path", "cache")
	viper.SetDefault("cache.memory_size", 128)
	viper.SetDefault("cache.ttl", "24h")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("pipeline.detection.strategy_name", "zero_cross")
	viper.SetDefault("pipeline.detection.min_duration", 1)
	viper.SetDefault("pipeline.analysis.num_clusters", 3)
	viper.SetDefault("pipeline.analysis.regression_target", "duration")
	viper.SetDefault("pipeline.analysis.validation_folds", 5)
	viper.SetDefault("pipeline.analysis.significance_level", 0.05)
}

// Validate rejects configurations the pipeline could not act on.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "badger", "redis", "none":
	default:
		return fmt.Errorf("unknown cache backend %q (want badger, redis or none)", c.Cache.Backend)
	}
	if c.Cache.TTL != "" {
		if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
			return fmt.Errorf("invalid cache ttl %q: %w", c.Cache.TTL, err)
		}
	}
	if c.Pipeline.Detection.Strategy == "" {
		return fmt.Errorf("pipeline.detection.strategy_name is required")
	}
	if c.Pipeline.Detection.MinDuration < 1 {
		return fmt.Errorf("pipeline.detection.min_duration must be at least 1")
	}
	return nil
}

// RedisAddr is the host:port pair for the redis cache backend.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// CacheOptions maps the raw cache settings onto the cache package's
// option type.
func (c *Config) CacheOptions() cache.Options {
	opts := cache.DefaultOptions()
	if c.Cache.MemorySize > 0 {
		opts.MemorySize = c.Cache.MemorySize
	}
	if c.Cache.TTL != "" {
		if ttl, err := time.ParseDuration(c.Cache.TTL); err == nil {
			opts.TTL = ttl
		}
	}
	return opts
}
