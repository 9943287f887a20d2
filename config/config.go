// Package config loads scheduler settings from YAML or JSON files with
// environment overrides.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/Swind/go-job-system/core"
)

const (
	EnvWorkers  = "JOBSYS_WORKERS"
	EnvLogLevel = "JOBSYS_LOG_LEVEL"

	defaultShutdownTimeout = 5 * time.Second
	defaultPollInterval    = time.Second
	defaultNamespace       = "jobsystem"
	defaultListen          = ":9090"
	defaultServiceName     = "jobsystem"
)

type Config struct {
	// Workers is the number of worker goroutines. Defaults to runtime.NumCPU().
	Workers         int    `json:"workers" yaml:"workers"`
	DefaultPriority string `json:"default_priority,omitempty" yaml:"default_priority,omitempty"`
	ShutdownTimeout string `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
	HistorySize     int    `json:"history_size,omitempty" yaml:"history_size,omitempty"`

	Log     LogConfig     `json:"log" yaml:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
}

type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // console|json
}

type MetricsConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	Namespace    string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Listen       string `json:"listen,omitempty" yaml:"listen,omitempty"`
	PollInterval string `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
}

type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns a copy of c with every unset field filled in.
func (c Config) WithDefaults() Config {
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if strings.TrimSpace(c.DefaultPriority) == "" {
		c.DefaultPriority = core.DefaultPriority.String()
	}
	if strings.TrimSpace(c.ShutdownTimeout) == "" {
		c.ShutdownTimeout = defaultShutdownTimeout.String()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = defaultNamespace
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = defaultListen
	}
	if c.Metrics.PollInterval == "" {
		c.Metrics.PollInterval = defaultPollInterval.String()
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = defaultServiceName
	}
	return c
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers: %d: %w", c.Workers, core.ErrInvalidWorkerCount)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("history_size: must be >= 0, got %d", c.HistorySize)
	}
	if _, err := c.Priority(); err != nil {
		return fmt.Errorf("default_priority: %w", err)
	}
	if _, err := c.shutdownTimeout(); err != nil {
		return err
	}
	if _, err := c.pollInterval(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q (want console or json)", c.Log.Format)
	}
	return nil
}

// Priority returns DefaultPriority parsed as a tier.
func (c Config) Priority() (core.Priority, error) {
	return core.ParsePriority(c.DefaultPriority)
}

// ShutdownTimeoutDuration returns ShutdownTimeout, falling back to the default
// when unset, zero or invalid.
func (c Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := c.shutdownTimeout()
	return d
}

// PollIntervalDuration returns Metrics.PollInterval, falling back to one second.
func (c Config) PollIntervalDuration() time.Duration {
	d, _ := c.pollInterval()
	return d
}

func (c Config) shutdownTimeout() (time.Duration, error) {
	return durationSetting("shutdown_timeout", c.ShutdownTimeout, defaultShutdownTimeout)
}

func (c Config) pollInterval() (time.Duration, error) {
	return durationSetting("metrics.poll_interval", c.Metrics.PollInterval, defaultPollInterval)
}

// durationSetting parses a duration field. Blank and zero values yield def;
// on error def is returned alongside it.
func durationSetting(key, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return def, fmt.Errorf("%s: %q is not a duration: %w", key, raw, err)
	case d < 0:
		return def, fmt.Errorf("%s: %s is negative", key, raw)
	case d == 0:
		return def, nil
	}
	return d, nil
}

// ApplyEnv overrides fields from environment variables read through lookup.
func (c Config) ApplyEnv(lookup func(string) (string, bool)) (Config, error) {
	if v, ok := lookup(EnvWorkers); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return c, fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Log.Level = strings.TrimSpace(v)
	}
	return c, nil
}

// Parse reads path and decodes it strictly. Files ending in .yaml or .yml are
// YAML; anything else is JSON. Unknown fields are rejected.
func Parse(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Decode(path, b)
}

// Decode is Parse for data already in memory; path only selects the format.
func Decode(path string, data []byte) (Config, error) {
	jb, format, err := coerceToJSONBytes(path, data)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s config: %w", format, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("invalid config: trailing data")
		}
		return Config{}, err
	}
	return cfg, nil
}

// Load parses path (when non-empty), applies defaults and environment
// overrides, then validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		var err error
		if cfg, err = Parse(path); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	cfg, err := cfg.ApplyEnv(os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
