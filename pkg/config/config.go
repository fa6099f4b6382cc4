// Package config defines the pipeline configuration shape and its YAML
// loader. Missing keys fall back to documented defaults, so a pipeline runs
// out of the box against the sample data layout.
package config

import (
	"time"

	"github.com/strata-etl/strata/pkg/errors"
)

// AdapterConfig configures one source or sink adapter instance.
type AdapterConfig struct {
	// Name identifies the adapter instance in logs and source results
	Name string `yaml:"name" json:"name"`
	// Type selects the registered connector (e.g. "csv", "sqlite", "httpapi")
	Type string `yaml:"type" json:"type"`
	// Options holds adapter-specific settings (path, query, url, ...)
	Options map[string]string `yaml:"options" json:"options"`
}

// Option returns an adapter option with a fallback default.
func (a AdapterConfig) Option(key, fallback string) string {
	if v, ok := a.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}

// RequireOption returns an adapter option or a config error when absent.
func (a AdapterConfig) RequireOption(key string) (string, error) {
	v, ok := a.Options[key]
	if !ok || v == "" {
		return "", errors.New(errors.ErrorTypeConfig, "missing required adapter option").
			WithDetail("adapter", a.Name).
			WithDetail("option", key)
	}
	return v, nil
}

// ScheduleConfig controls recurring execution.
type ScheduleConfig struct {
	Enabled         bool `yaml:"enabled" json:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes" json:"interval_minutes"`
}

// Interval returns the schedule tick as a duration.
func (s ScheduleConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Config is the root pipeline configuration.
type Config struct {
	Sources     []AdapterConfig `yaml:"sources" json:"sources"`
	Targets     []AdapterConfig `yaml:"targets" json:"targets"`
	Schedule    ScheduleConfig  `yaml:"schedule" json:"schedule"`
	MetricsPath string          `yaml:"metrics_path" json:"metrics_path"`
	LogLevel    string          `yaml:"log_level" json:"log_level"`
}

// Default returns the documented default configuration: CSV and HTTP API
// sources, database/CSV/JSON targets, hourly schedule.
func Default() *Config {
	return &Config{
		Sources: []AdapterConfig{
			{
				Name: "raw-csv",
				Type: "csv",
				Options: map[string]string{
					"path": "data/raw/input.csv",
				},
			},
			{
				Name: "product-api",
				Type: "httpapi",
				Options: map[string]string{
					"url": "https://api.example.com/data",
				},
			},
		},
		Targets: []AdapterConfig{
			{
				Name: "warehouse",
				Type: "sqlite",
				Options: map[string]string{
					"path":  "data/output/warehouse.db",
					"table": "processed_products",
				},
			},
			{
				Name: "processed-csv",
				Type: "csv",
				Options: map[string]string{
					"path": "data/output/processed_data.csv",
				},
			},
			{
				Name: "processed-json",
				Type: "jsonfile",
				Options: map[string]string{
					"path": "data/output/processed_data.json",
				},
			},
		},
		Schedule: ScheduleConfig{
			Enabled:         true,
			IntervalMinutes: 60,
		},
		MetricsPath: "data/output/pipeline_metrics.json",
		LogLevel:    "info",
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	for _, src := range c.Sources {
		if src.Type == "" {
			return errors.New(errors.ErrorTypeConfig, "source type is required").
				WithDetail("source", src.Name)
		}
	}
	for _, tgt := range c.Targets {
		if tgt.Type == "" {
			return errors.New(errors.ErrorTypeConfig, "target type is required").
				WithDetail("target", tgt.Name)
		}
	}
	if c.Schedule.Enabled && c.Schedule.IntervalMinutes <= 0 {
		return errors.New(errors.ErrorTypeConfig, "schedule interval_minutes must be positive")
	}
	if c.MetricsPath == "" {
		return errors.New(errors.ErrorTypeConfig, "metrics_path is required")
	}
	return nil
}
