package config

import (
	"fmt"
	"os"
	"time"

	"github.com/MohamedIjlal27/SFA-sub000/internal/validation"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"CATALOG_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"CATALOG_"`
	Remote   RemoteConfig   `yaml:"remote" envPrefix:"CATALOG_"`
	Catalog  CatalogConfig  `yaml:"catalog" envPrefix:"CATALOG_"`
	Worker   WorkerConfig   `yaml:"worker" envPrefix:"CATALOG_"`
	Log      LogConfig      `yaml:"log" envPrefix:"CATALOG_"`
}

// ServerConfig contains local HTTP API settings.
type ServerConfig struct {
	Address         string   `yaml:"address" env:"ADDRESS" validate:"required"`
	ReadTimeout     Duration `yaml:"read_timeout" env:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	APIKey          string   `yaml:"-" env:"SERVER_API_KEY"` // env-only; empty disables auth
}

// DatabaseConfig contains the two on-device database paths.
type DatabaseConfig struct {
	CatalogPath   string `yaml:"catalog_path" env:"DB_PATH" validate:"required"`
	PageCachePath string `yaml:"page_cache_path" env:"PAGE_CACHE_PATH" validate:"required"`
}

// RemoteConfig contains catalog API settings.
type RemoteConfig struct {
	BaseURL         string   `yaml:"base_url" env:"REMOTE_URL" validate:"required,url"`
	Token           string   `yaml:"-" env:"API_TOKEN"` // env-only, never in YAML
	PageTimeout     Duration `yaml:"page_timeout" env:"PAGE_TIMEOUT" validate:"gt=0"`
	BatchTimeout    Duration `yaml:"batch_timeout" env:"BATCH_TIMEOUT" validate:"gt=0"`
	BatchSize       int      `yaml:"batch_size" env:"BATCH_SIZE" validate:"min=1,max=500"`
	BreakerFailures uint32   `yaml:"breaker_failures" env:"BREAKER_FAILURES" validate:"min=1"`
	BreakerCooldown Duration `yaml:"breaker_cooldown" env:"BREAKER_COOLDOWN" validate:"gt=0"`
	ProbeTimeout    Duration `yaml:"probe_timeout" env:"PROBE_TIMEOUT" validate:"gt=0"`
}

// CatalogConfig contains read-path settings.
type CatalogConfig struct {
	DefaultPageSize    int   `yaml:"default_page_size" env:"DEFAULT_PAGE_SIZE" validate:"min=1,max=500"`
	MaxConcurrentReads int64 `yaml:"max_concurrent_reads" env:"MAX_CONCURRENT_READS" validate:"min=1"`
}

// WorkerConfig contains background sync settings.
type WorkerConfig struct {
	SyncInterval Duration `yaml:"sync_interval" env:"SYNC_INTERVAL"` // zero disables
	SyncOnStart  bool     `yaml:"sync_on_start" env:"SYNC_ON_START"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" validate:"oneof=json text"`
}

// Duration is a wrapper around time.Duration that supports YAML and
// environment string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("CATALOG_CONFIG_PATH", "config/catalogsync.yaml")

	// Missing file is not an error
	if err := loadYAMLFile(cfg, configPath, false); err != nil {
		return nil, err
	}
	return finish(cfg)
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()
	if err := loadYAMLFile(cfg, path, true); err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         "127.0.0.1:8089",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(120 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			CatalogPath:   "data/catalog.db",
			PageCachePath: "data/pagecache.db",
		},
		Remote: RemoteConfig{
			BaseURL:         "http://localhost:3000/api",
			PageTimeout:     Duration(15 * time.Second),
			BatchTimeout:    Duration(60 * time.Second),
			BatchSize:       100,
			BreakerFailures: 5,
			BreakerCooldown: Duration(30 * time.Second),
			ProbeTimeout:    Duration(3 * time.Second),
		},
		Catalog: CatalogConfig{
			DefaultPageSize:    20,
			MaxConcurrentReads: 8,
		},
		Worker: WorkerConfig{
			SyncInterval: Duration(6 * time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file. When required is false
// a missing file leaves the defaults in place.
func loadYAMLFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// validate checks the struct tags on every section.
func (c *Config) validate() error {
	if errs := validation.Struct(c); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", validation.Errors(errs))
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
