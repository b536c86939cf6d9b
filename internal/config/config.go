package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from yaml strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config models corpdesk.yml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	BasePath    string   `yaml:"base_path"`
	JWTSecret   string   `yaml:"jwt_secret"`
	TokenTTL    Duration `yaml:"token_ttl"`
	UploadsDir  string   `yaml:"uploads_dir"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	URL             string   `yaml:"url"`
	MinConns        int32    `yaml:"min_conns"`
	MaxConns        int32    `yaml:"max_conns"`
	MaxConnIdleTime Duration `yaml:"max_conn_idle_time"`
	CommandTimeout  Duration `yaml:"command_timeout"`
	RetryAttempts   int      `yaml:"retry_attempts"`
	RetryWait       Duration `yaml:"retry_wait"`
	OverloadWait    Duration `yaml:"overload_wait"`
}

type LifecycleConfig struct {
	PendingAfter Duration `yaml:"pending_after"`
	OmittedAfter Duration `yaml:"omitted_after"`
	ExpiryWindow Duration `yaml:"expiry_window"`
}

type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// Default returns the configuration with every knob at its default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":8000",
			BasePath:   "/v1",
			TokenTTL:   Duration(8 * time.Hour),
			UploadsDir: "uploads",
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			},
		},
		Database: DatabaseConfig{
			MinConns:        2,
			MaxConns:        20,
			MaxConnIdleTime: Duration(60 * time.Second),
			CommandTimeout:  Duration(30 * time.Second),
			RetryAttempts:   5,
			RetryWait:       Duration(2 * time.Second),
			OverloadWait:    Duration(5 * time.Second),
		},
		Lifecycle: LifecycleConfig{
			PendingAfter: Duration(3 * 24 * time.Hour),
			OmittedAfter: Duration(6 * 24 * time.Hour),
			ExpiryWindow: Duration(6 * 24 * time.Hour),
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// Validate ensures the config is usable.
func (c *Config) Validate() error {
	if c.Database.MinConns < 0 || c.Database.MaxConns < 0 {
		return fmt.Errorf("config.database pool sizes must not be negative")
	}
	if c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("config.database.min_conns (%d) exceeds max_conns (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Database.RetryAttempts < 0 {
		return fmt.Errorf("config.database.retry_attempts must not be negative")
	}
	if c.Lifecycle.PendingAfter <= 0 || c.Lifecycle.OmittedAfter <= 0 {
		return fmt.Errorf("config.lifecycle thresholds must be positive")
	}
	if c.Lifecycle.OmittedAfter <= c.Lifecycle.PendingAfter {
		return fmt.Errorf("config.lifecycle.omitted_after must exceed pending_after")
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("config.log.format must be json or text")
	}
	return nil
}

// FromYAML parses and validates config from raw YAML bytes, on top of the
// defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults when the config file does not exist.
func LoadOptional(path string) (*Config, error) {
	cfg, err := FromFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}
