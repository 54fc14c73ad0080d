package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, SourceIPC, cfg.Source)
	assert.False(t, cfg.IsSynthetic())
	assert.False(t, cfg.IsDebug())
	assert.False(t, cfg.HasStore())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("GATEWAY_SOURCE", "Synthetic")
	t.Setenv("GATEWAY_SYNTHETIC_WIDTH", "640")
	t.Setenv("GATEWAY_SYNTHETIC_HEIGHT", "480")
	t.Setenv("GATEWAY_ALLOWED_ORIGINS", "http://a.example, ,http://b.example")
	t.Setenv("GATEWAY_LOG_LEVEL", " DEBUG ")
	t.Setenv("GATEWAY_MASK_POINTS", "0:0,10:0,10:10")
	t.Setenv("GATEWAY_REDIS_ADDR", "localhost:6379")
	t.Setenv("GATEWAY_REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsSynthetic())
	assert.True(t, cfg.IsDebug())
	assert.True(t, cfg.HasStore())
	assert.Equal(t, 640, cfg.SyntheticWidth)
	assert.Equal(t, 480, cfg.SyntheticHeight)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "0:0,10:0,10:10", cfg.MaskPoints)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "mask-gateway:mask", cfg.RedisKey)
}

func TestLoad_UseSyntheticShorthand(t *testing.T) {
	t.Setenv("GATEWAY_USE_SYNTHETIC", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SourceSynthetic, cfg.Source)
}

func TestLoad_InvalidInteger(t *testing.T) {
	t.Setenv("GATEWAY_PREVIEW_FPS", "fast")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GATEWAY_PREVIEW_FPS")
}

func TestLoad_FileWithEnvironmentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	content := `
source: gst
gst_pipeline: "videotestsrc ! identity name=mask ! fakesink"
http_listen_addr: ":9090"
allowed_origins:
  - http://studio.local
mask_points: "0:0,4:0,4:4"
log_level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("GATEWAY_CONFIG_FILE", path)
	t.Setenv("GATEWAY_HTTP_LISTEN_ADDR", ":7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceGst, cfg.Source)
	assert.Equal(t, "videotestsrc ! identity name=mask ! fakesink", cfg.GstPipeline)
	assert.Equal(t, ":7070", cfg.HTTPListenAddr)
	assert.Equal(t, []string{"http://studio.local"}, cfg.AllowedOrigins)
	assert.Equal(t, "0:0,4:0,4:4", cfg.MaskPoints)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, path, cfg.ConfigFile)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, 1280, cfg.SyntheticWidth)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("GATEWAY_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown source", func(c *Config) { c.Source = "v4l2" }, true},
		{"empty socket", func(c *Config) { c.IPCSocketPath = "" }, true},
		{"empty socket with synthetic source", func(c *Config) { c.IPCSocketPath = ""; c.Source = SourceSynthetic }, false},
		{"output equals input", func(c *Config) { c.IPCOutputPath = c.IPCSocketPath }, true},
		{"empty listen addr", func(c *Config) { c.HTTPListenAddr = "" }, true},
		{"no origins", func(c *Config) { c.AllowedOrigins = nil }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, true},
		{"gst without pipeline", func(c *Config) { c.Source = SourceGst; c.GstPipeline = " " }, true},
		{"odd synthetic width", func(c *Config) { c.Source = SourceSynthetic; c.SyntheticWidth = 641 }, true},
		{"synthetic fps zero", func(c *Config) { c.Source = SourceSynthetic; c.SyntheticFPS = 0 }, true},
		{"synthetic pattern", func(c *Config) { c.Source = SourceSynthetic; c.SyntheticPattern = 3 }, true},
		{"redis without key", func(c *Config) { c.RedisAddr = "localhost:6379"; c.RedisKey = "" }, true},
		{"preview without gst", func(c *Config) { c.PreviewEnabled = true }, true},
		{"preview with gst", func(c *Config) { c.PreviewEnabled = true; c.Source = SourceGst }, false},
		{"preview bad fps", func(c *Config) { c.PreviewEnabled = true; c.Source = SourceGst; c.PreviewFPS = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestString_MasksPassword(t *testing.T) {
	cfg := Default()
	cfg.RedisAddr = "redis:6379"
	cfg.RedisPassword = "hunter2"

	s := cfg.String()
	assert.Contains(t, s, "redis:6379")
	assert.Contains(t, s, "password ***")
	assert.NotContains(t, s, "hunter2")
}
