package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	proj, err := cfg.Projection()
	require.NoError(t, err)
	assert.Equal(t, "EPSG:5186", proj.Name())
	assert.Equal(t, 1000.0, cfg.Routing.SnapMaxRadius, "far away points are not snapped")
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.decode(strings.NewReader(`
server:
  addr: ":9000"
  read_timeout: 5s
network:
  projection: EPSG:32652
  bidirectional: true
routing:
  navigator: astar
  snap_max_radius: 250
`))
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "untouched default")
	assert.Len(t, cfg.Server.AllowedOrigins, 3)
	assert.Equal(t, "EPSG:32652", cfg.Network.Projection)
	assert.True(t, cfg.Network.Bidirectional)
	assert.Equal(t, "astar", cfg.Routing.Navigator)
	assert.Equal(t, 250.0, cfg.Routing.SnapMaxRadius)
	assert.Equal(t, 50.0, cfg.Routing.SnapPieceLength)
	assert.NoError(t, cfg.Validate())
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.decode(strings.NewReader("routing:\n  algorithm: ch\n"))
	assert.ErrorContains(t, err, "algorithm")
}

func TestDecodeEmptyFile(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.decode(strings.NewReader("")))
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.applyEnv(env(map[string]string{
		"SNAPROUTE_ADDR":            ":7000",
		"SNAPROUTE_ALLOWED_ORIGINS": "https://a.example, https://b.example,",
		"SNAPROUTE_BIDIRECTIONAL":   "true",
		"SNAPROUTE_MAX_CONCURRENT":  "4",
		"SNAPROUTE_SNAP_MAX_RADIUS": "80.5",
		"SNAPROUTE_LOG_FORMAT":      "json",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Network.Bidirectional)
	assert.Equal(t, int64(4), cfg.Routing.MaxConcurrent)
	assert.Equal(t, 80.5, cfg.Routing.SnapMaxRadius)
	assert.Equal(t, "json", cfg.Log.Format)

	err = cfg.applyEnv(env(map[string]string{
		"SNAPROUTE_BIDIRECTIONAL":  "maybe",
		"SNAPROUTE_MAX_CONCURRENT": "many",
	}))
	assert.ErrorContains(t, err, "SNAPROUTE_BIDIRECTIONAL")
	assert.ErrorContains(t, err, "SNAPROUTE_MAX_CONCURRENT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown navigator", func(c *Config) { c.Routing.Navigator = "ch" }},
		{"negative radius", func(c *Config) { c.Routing.SnapMaxRadius = -1 }},
		{"unknown projection", func(c *Config) { c.Network.Projection = "EPSG:4326" }},
		{"missing addr", func(c *Config) { c.Server.Addr = "" }},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snaproute.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  path: /var/lib/snaproute\n"), 0o644))
	t.Setenv("SNAPROUTE_NAVIGATOR", "astar")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/snaproute", cfg.Store.Path)
	assert.Equal(t, "astar", cfg.Routing.Navigator)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger := LogConfig{Level: "debug", Format: "json"}.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}
