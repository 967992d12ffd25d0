// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. DOCXPRESS_HTTP_PORT.
const EnvPrefix = "DOCXPRESS"

// Missing-placeholder policies for the template renderer.
const (
	MissingEmpty = "empty"
	MissingKeep  = "keep"
)

// Config holds the configuration shared by both services
type Config struct {
	Service   string          `mapstructure:"-"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Uploads   UploadsConfig   `mapstructure:"uploads"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	History   HistoryConfig   `mapstructure:"history"`
}

// HTTPConfig holds listener settings
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logger settings
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// UploadsConfig limits request bodies
type UploadsConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// TemplatesConfig selects where .docx templates come from and how they render
type TemplatesConfig struct {
	Dir       string   `mapstructure:"dir"`
	Default   string   `mapstructure:"default"`
	Missing   string   `mapstructure:"missing"`
	CacheSize int      `mapstructure:"cache_size"`
	Watch     bool     `mapstructure:"watch"`
	S3        S3Config `mapstructure:"s3"`
}

// S3Config points at an S3-compatible bucket. Endpoint empty disables it.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Prefix    string `mapstructure:"prefix"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// CacheConfig controls the extraction result cache
type CacheConfig struct {
	TTL    time.Duration `mapstructure:"ttl"`
	Prefix string        `mapstructure:"prefix"`
}

// HistoryConfig controls the sqlite activity history
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

func setDefaults(v *viper.Viper, defaultPort int) {
	v.SetDefault("http.port", defaultPort)
	v.SetDefault("http.read_timeout", 30*time.Second)
	v.SetDefault("http.write_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("uploads.max_bytes", int64(20<<20))
	v.SetDefault("templates.dir", "./templates")
	v.SetDefault("templates.default", "template.docx")
	v.SetDefault("templates.missing", MissingEmpty)
	v.SetDefault("templates.cache_size", 32)
	v.SetDefault("templates.watch", true)
	v.SetDefault("templates.s3.endpoint", "")
	v.SetDefault("templates.s3.access_key", "")
	v.SetDefault("templates.s3.secret_key", "")
	v.SetDefault("templates.s3.bucket", "")
	v.SetDefault("templates.s3.region", "us-east-1")
	v.SetDefault("templates.s3.use_ssl", false)
	v.SetDefault("templates.s3.prefix", "")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.prefix", "docxpress:highlights:")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db_path", "./docxpress.db")
}

// flagBindings maps CLI flags to config keys
var flagBindings = map[string]string{
	"port":          "http.port",
	"log-level":     "log.level",
	"log-file":      "log.file",
	"templates-dir": "templates.dir",
	"history-db":    "history.db_path",
	"redis-addr":    "redis.addr",
}

// Load builds the configuration for service from (lowest to highest
// precedence) defaults, the yaml config file, environment and CLI flags.
func Load(service string, defaultPort int, args []string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	flags := pflag.NewFlagSet(service, pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a yaml config file")
	flags.Int("port", defaultPort, "HTTP port")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "also write logs to this file")
	flags.String("templates-dir", "./templates", "directory holding .docx templates")
	flags.String("history-db", "./docxpress.db", "sqlite file for the activity history")
	flags.String("redis-addr", "127.0.0.1:6379", "Redis address for the result cache")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, defaultPort)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *configPath != "" {
		v.SetConfigFile(*configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.SetConfigName("docxpress")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	for name, key := range flagBindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Service = service

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http.port %d", c.HTTP.Port)
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("uploads.max_bytes must be positive, got %d", c.Uploads.MaxBytes)
	}
	switch c.Templates.Missing {
	case MissingEmpty, MissingKeep:
	default:
		return fmt.Errorf("templates.missing must be %q or %q, got %q", MissingEmpty, MissingKeep, c.Templates.Missing)
	}
	if c.Templates.CacheSize <= 0 {
		return fmt.Errorf("templates.cache_size must be positive, got %d", c.Templates.CacheSize)
	}
	if c.Templates.S3.Endpoint != "" && c.Templates.S3.Bucket == "" {
		return fmt.Errorf("templates.s3.bucket is required when templates.s3.endpoint is set")
	}
	return nil
}

// Address returns the listen address for the HTTP server
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}
