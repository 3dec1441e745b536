package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: ":8080"
  rate_limit:
    rps: 0
converter:
  brand: acme
  workers: 0
probe:
  timeout: 2s
alert:
  telegram:
    enabled: true
    chat: "@alerts"
sources:
  - name: main
    params:
      url: https://example.com/sub
  - name: local
    type: file
    params:
      path: links.txt
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, float64(0), cfg.Server.RateLimit.RPS)
	assert.Equal(t, 20, cfg.Server.RateLimit.Burst)
	assert.Equal(t, "acme", cfg.Converter.Brand)
	assert.Equal(t, 1, cfg.Converter.Workers)
	assert.Equal(t, 2000, cfg.Converter.MaxLinkLength)
	assert.Equal(t, 2*time.Second, cfg.Probe.Timeout)
	assert.True(t, cfg.Alert.Telegram.Enabled)
	assert.Equal(t, "telegram.session", cfg.Alert.Telegram.SessionFile)

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "http", cfg.Sources[0].Type)
	assert.Equal(t, "https://example.com/sub", cfg.Sources[0].Params["url"])
	assert.Equal(t, "file", cfg.Sources[1].Type)
}

func TestLoadMissingFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestFilterSources(t *testing.T) {
	cfg := &Config{Sources: []SourceConfig{{Name: "a"}, {Name: "b"}, {Name: "c"}}}

	cfg.FilterSources(nil)
	assert.Len(t, cfg.Sources, 3)

	cfg.FilterSources([]string{"c", "a"})
	assert.Equal(t, []SourceConfig{{Name: "a"}, {Name: "c"}}, cfg.Sources)
}
