package transition

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultObserver = "slog"

// Config holds manager settings that can be loaded from a file.
type Config struct {
	// Observer names a registered observability.Observer.
	Observer string `json:"observer,omitempty" yaml:"observer,omitempty"`

	// MaxConcurrency bounds concurrent loader calls per navigation. Zero
	// runs every loader in the load set at once.
	MaxConcurrency int `json:"max_concurrency,omitempty" yaml:"max_concurrency,omitempty"`

	// LoaderTimeout bounds each loader and action call. Zero disables it.
	LoaderTimeout time.Duration `json:"loader_timeout,omitempty" yaml:"loader_timeout,omitempty"`

	// Strict turns an inconsistent match chain into an errored navigation
	// instead of a full reload.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// DefaultConfig returns a Config that logs through slog with no limits.
func DefaultConfig() Config {
	return Config{
		Observer: defaultObserver,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.MaxConcurrency > 0 {
		c.MaxConcurrency = source.MaxConcurrency
	}
	if source.LoaderTimeout > 0 {
		c.LoaderTimeout = source.LoaderTimeout
	}
	if source.Strict {
		c.Strict = true
	}
}

// LoadConfig reads a YAML or JSON config file, merges it with defaults, and
// returns the resulting Config. Durations are written as strings like "5s".
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if loaded.MaxConcurrency < 0 {
		return nil, fmt.Errorf("max_concurrency must not be negative: %d", loaded.MaxConcurrency)
	}
	if loaded.LoaderTimeout < 0 {
		return nil, fmt.Errorf("loader_timeout must not be negative: %s", loaded.LoaderTimeout)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
