package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Sources, 2)
	assert.Len(t, cfg.Targets, 3)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, time.Hour, cfg.Schedule.Interval())
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().MetricsPath, cfg.MetricsPath)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
sources:
  - name: only-csv
    type: csv
    options:
      path: /tmp/in.csv
targets:
  - name: out
    type: jsonfile
    options:
      path: /tmp/out.json
schedule:
  enabled: false
  interval_minutes: 15
metrics_path: /tmp/metrics.json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "only-csv", cfg.Sources[0].Name)
	assert.Equal(t, "/tmp/in.csv", cfg.Sources[0].Options["path"])
	assert.False(t, cfg.Schedule.Enabled)
	assert.Equal(t, "/tmp/metrics.json", cfg.MetricsPath)
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("STRATA_TEST_DATA_DIR", "/srv/data")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
sources:
  - name: envcsv
    type: csv
    options:
      path: ${STRATA_TEST_DATA_DIR}/input.csv
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/data/input.csv", cfg.Sources[0].Options["path"])
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults ok", func(c *Config) {}, false},
		{"empty source type", func(c *Config) { c.Sources[0].Type = "" }, true},
		{"empty target type", func(c *Config) { c.Targets[0].Type = "" }, true},
		{"bad interval", func(c *Config) { c.Schedule.IntervalMinutes = 0 }, true},
		{"disabled schedule ignores interval", func(c *Config) {
			c.Schedule.Enabled = false
			c.Schedule.IntervalMinutes = 0
		}, false},
		{"missing metrics path", func(c *Config) { c.MetricsPath = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAdapterOptionHelpers(t *testing.T) {
	a := AdapterConfig{Name: "x", Type: "csv", Options: map[string]string{"path": "/p"}}

	assert.Equal(t, "/p", a.Option("path", "fallback"))
	assert.Equal(t, "fallback", a.Option("absent", "fallback"))

	v, err := a.RequireOption("path")
	require.NoError(t, err)
	assert.Equal(t, "/p", v)

	_, err = a.RequireOption("absent")
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.LogLevel = "debug"

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.LogLevel)
	assert.Equal(t, cfg.Sources, loaded.Sources)
}
