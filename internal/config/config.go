// internal/config/config.go

// Package config loads the application configuration from YAML, expanding
// ${ENV_VAR} references and applying defaults before validation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Redis   RedisConfig   `yaml:"redis"`
	Browser BrowserConfig `yaml:"browser"`
	Cache   CacheConfig   `yaml:"cache"`
	Batch   BatchConfig   `yaml:"batch"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// RedisConfig locates the shared state store. An empty Addr selects the
// in-memory store, which keeps single-process runs dependency-free.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// BrowserConfig controls the stealth browser sessions.
type BrowserConfig struct {
	Headless      bool          `yaml:"headless"`
	ChromePath    string        `yaml:"chrome_path"`
	NavTimeout    time.Duration `yaml:"nav_timeout"`
	DisableImages bool          `yaml:"disable_images"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// BatchConfig controls batch fetching.
type BatchConfig struct {
	MaxConcurrent int                      `yaml:"max_concurrent"`
	DomainSpacing map[string]time.Duration `yaml:"domain_spacing"`
}

// StorageConfig locates the attempt log database.
type StorageConfig struct {
	AttemptDB string `yaml:"attempt_db"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. Environment variable
// references are expanded before parsing.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.Browser.NavTimeout <= 0 {
		config.Browser.NavTimeout = 30 * time.Second
	}
	if config.Cache.TTL <= 0 {
		config.Cache.TTL = time.Hour
	}
	if config.Batch.MaxConcurrent <= 0 {
		config.Batch.MaxConcurrent = 5
	}
	if config.Storage.AttemptDB == "" {
		config.Storage.AttemptDB = "pricehawk.db"
	}
	if config.Server.ListenAddr == "" {
		config.Server.ListenAddr = ":8080"
	}
	if config.Server.ReadTimeout <= 0 {
		config.Server.ReadTimeout = 15 * time.Second
	}
	if config.Server.WriteTimeout <= 0 {
		config.Server.WriteTimeout = 120 * time.Second
	}
	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}
	if c.Batch.MaxConcurrent < 1 {
		return fmt.Errorf("batch.max_concurrent must be positive, got %d", c.Batch.MaxConcurrent)
	}
	for domain, spacing := range c.Batch.DomainSpacing {
		if spacing < 0 {
			return fmt.Errorf("negative spacing for domain %q", domain)
		}
	}
	return nil
}
