package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// ProbeMode selects the reachability primitive.
type ProbeMode string

const (
	ProbeModeHTTP ProbeMode = "http"
	ProbeModeTCP  ProbeMode = "tcp"
	ProbeModeICMP ProbeMode = "icmp"
)

// Config holds all recognized options. Fields map 1:1 to the YAML file.
type Config struct {
	Hosts             []string  `yaml:"hosts"`
	Interval          Duration  `yaml:"interval"`
	Timeout           Duration  `yaml:"timeout"`
	SlowThreshold     Duration  `yaml:"slow_threshold"`
	UnstableThreshold int       `yaml:"unstable_threshold"`
	ProbeMode         ProbeMode `yaml:"probe_mode"`
	TransportPoll     Duration  `yaml:"transport_poll"`
	MetricsListen     string    `yaml:"metrics_listen"`
	StatusListen      string    `yaml:"status_listen"`
	UIDisable         bool      `yaml:"ui_disable"`
	LogLevel          string    `yaml:"log_level"`
}

// CLIOverrides holds optional CLI values that override file values.
type CLIOverrides struct {
	Hosts         []string
	Interval      *time.Duration
	Timeout       *time.Duration
	ProbeMode     *ProbeMode
	MetricsListen *string
	StatusListen  *string
	UIDisable     *bool
	LogLevel      *string
}

// Default returns the baseline configuration used before file and CLI
// overrides: two independent, highly-available probe hosts, a 30s check
// interval, a 5s probe timeout, the 2s/2-failure hysteresis thresholds.
func Default() Config {
	return Config{
		Hosts:             []string{"clients3.google.com", "captive.apple.com"},
		Interval:          Duration(30 * time.Second),
		Timeout:           Duration(5 * time.Second),
		SlowThreshold:     Duration(2 * time.Second),
		UnstableThreshold: 2,
		ProbeMode:         ProbeModeHTTP,
		TransportPoll:     Duration(2 * time.Second),
		LogLevel:          "info",
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// at path (skipped when path is empty), then CLI overrides. The result is
// validated before being returned.
func Load(path string, overrides CLIOverrides) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyOverrides(&cfg, overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every violation at once rather than stopping at the
// first.
func (c *Config) Validate() error {
	var err error
	if len(c.Hosts) < 2 {
		err = multierr.Append(err, fmt.Errorf("hosts: need at least 2 entries, got %d", len(c.Hosts)))
	}
	for i, host := range c.Hosts {
		if host == "" {
			err = multierr.Append(err, fmt.Errorf("hosts[%d]: empty host", i))
		}
	}
	if c.Interval.Duration() <= 0 {
		err = multierr.Append(err, fmt.Errorf("interval: must be positive, got %s", c.Interval))
	}
	if c.Timeout.Duration() <= 0 {
		err = multierr.Append(err, fmt.Errorf("timeout: must be positive, got %s", c.Timeout))
	}
	if c.SlowThreshold.Duration() <= 0 {
		err = multierr.Append(err, fmt.Errorf("slow_threshold: must be positive, got %s", c.SlowThreshold))
	}
	if c.UnstableThreshold < 1 {
		err = multierr.Append(err, fmt.Errorf("unstable_threshold: must be at least 1, got %d", c.UnstableThreshold))
	}
	switch c.ProbeMode {
	case ProbeModeHTTP, ProbeModeTCP, ProbeModeICMP:
	default:
		err = multierr.Append(err, fmt.Errorf("probe_mode: unknown mode %q", c.ProbeMode))
	}
	return err
}

func applyOverrides(cfg *Config, overrides CLIOverrides) {
	if len(overrides.Hosts) > 0 {
		cfg.Hosts = overrides.Hosts
	}
	if overrides.Interval != nil {
		cfg.Interval = Duration(*overrides.Interval)
	}
	if overrides.Timeout != nil {
		cfg.Timeout = Duration(*overrides.Timeout)
	}
	if overrides.ProbeMode != nil {
		cfg.ProbeMode = *overrides.ProbeMode
	}
	if overrides.MetricsListen != nil {
		cfg.MetricsListen = *overrides.MetricsListen
	}
	if overrides.StatusListen != nil {
		cfg.StatusListen = *overrides.StatusListen
	}
	if overrides.UIDisable != nil {
		cfg.UIDisable = *overrides.UIDisable
	}
	if overrides.LogLevel != nil {
		cfg.LogLevel = *overrides.LogLevel
	}
}
