// Package config provides configuration management for the mask gateway.
// Configuration is built from defaults, an optional YAML file named by
// GATEWAY_CONFIG_FILE, and environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Frame sources.
const (
	SourceIPC       = "ipc"
	SourceGst       = "gst"
	SourceSynthetic = "synthetic"
)

// Config holds all configuration for the mask gateway.
type Config struct {
	// Source selects where raw frames come from ("ipc", "gst" or "synthetic").
	// Default: "ipc"
	Source string `mapstructure:"source"`

	// IPCSocketPath is the Unix socket path for receiving raw NV12 frames.
	// Default: "/tmp/mask_input.sock"
	IPCSocketPath string `mapstructure:"ipc_socket_path"`

	// IPCOutputPath is the Unix socket masked frames are written to.
	// Empty discards the output.
	IPCOutputPath string `mapstructure:"ipc_output_path"`

	// HTTPListenAddr is the address for the control API.
	// Default: ":8080"
	HTTPListenAddr string `mapstructure:"http_listen_addr"`

	// AllowedOrigins specifies CORS allowed origins.
	// Default: ["*"]
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// LogLevel specifies logging verbosity ("debug", "info", "warn", "error").
	// Default: "info"
	LogLevel string `mapstructure:"log_level"`

	// MaskPoints is the initial mask configuration, e.g. "0:0,100:0,100:100".
	MaskPoints string `mapstructure:"mask_points"`

	// GstPipeline is the pipeline description used by the gst source. It must
	// contain an element named "mask".
	GstPipeline string `mapstructure:"gst_pipeline"`

	SyntheticWidth   int `mapstructure:"synthetic_width"`
	SyntheticHeight  int `mapstructure:"synthetic_height"`
	SyntheticFPS     int `mapstructure:"synthetic_fps"`
	SyntheticPattern int `mapstructure:"synthetic_pattern"`

	// RedisAddr enables the shared mask store when set.
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// RedisKey holds the mask configuration; updates are published on the
	// same name.
	// Default: "mask-gateway:mask"
	RedisKey string `mapstructure:"redis_key"`

	// PreviewEnabled exposes the WebRTC preview of the masked stream. It
	// needs an appsink named "preview" in the gst pipeline.
	PreviewEnabled bool `mapstructure:"preview_enabled"`

	// PreviewFPS is the nominal frame rate of preview samples.
	// Default: 30
	PreviewFPS int `mapstructure:"preview_fps"`

	// PreviewICEServers are STUN/TURN URLs handed to preview viewers.
	PreviewICEServers []string `mapstructure:"preview_ice_servers"`

	// ConfigFile is the YAML file the config was read from, if any.
	ConfigFile string `mapstructure:"-"`
}

// DefaultGstPipeline masks a live test source.
const DefaultGstPipeline = "videotestsrc is-live=true ! video/x-raw,format=NV12,width=1280,height=720 ! identity name=mask ! fakesink"

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Source:           SourceIPC,
		IPCSocketPath:    "/tmp/mask_input.sock",
		HTTPListenAddr:   ":8080",
		AllowedOrigins:   []string{"*"},
		LogLevel:         "info",
		GstPipeline:      DefaultGstPipeline,
		SyntheticWidth:   1280,
		SyntheticHeight:  720,
		SyntheticFPS:     30,
		SyntheticPattern: 0,
		RedisKey:         "mask-gateway:mask",
		PreviewFPS:       30,
	}
}

// Load loads configuration from the optional config file and environment
// variables, falling back to defaults for any values not specified.
//
// Environment variables:
//   - GATEWAY_CONFIG_FILE: YAML file read before the variables below
//   - GATEWAY_SOURCE: Frame source (ipc, gst, synthetic)
//   - GATEWAY_IPC_SOCKET_PATH: Unix socket path for input frames
//   - GATEWAY_IPC_OUTPUT_PATH: Unix socket path for masked frames
//   - GATEWAY_HTTP_LISTEN_ADDR: HTTP server listen address
//   - GATEWAY_ALLOWED_ORIGINS: Comma-separated list of allowed CORS origins
//   - GATEWAY_LOG_LEVEL: Logging level (debug, info, warn, error)
//   - GATEWAY_MASK_POINTS: Initial mask configuration
//   - GATEWAY_GST_PIPELINE: GStreamer pipeline description
//   - GATEWAY_USE_SYNTHETIC: Shorthand for GATEWAY_SOURCE=synthetic (true/false)
//   - GATEWAY_SYNTHETIC_WIDTH, _HEIGHT, _FPS, _PATTERN: Synthetic source settings
//   - GATEWAY_REDIS_ADDR, _PASSWORD, _DB, _KEY: Shared mask store
//   - GATEWAY_PREVIEW_ENABLED: Enable the WebRTC preview (true/false)
//   - GATEWAY_PREVIEW_FPS: Preview frame rate
//   - GATEWAY_PREVIEW_ICE_SERVERS: Comma-separated STUN/TURN URLs for preview viewers
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("GATEWAY_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile overlays the keys present in a YAML file onto c.
func (c *Config) loadFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.ConfigFile = path
	return nil
}

func (c *Config) loadEnv() error {
	envString("GATEWAY_IPC_SOCKET_PATH", &c.IPCSocketPath)
	envString("GATEWAY_IPC_OUTPUT_PATH", &c.IPCOutputPath)
	envString("GATEWAY_HTTP_LISTEN_ADDR", &c.HTTPListenAddr)
	envString("GATEWAY_MASK_POINTS", &c.MaskPoints)
	envString("GATEWAY_GST_PIPELINE", &c.GstPipeline)
	envString("GATEWAY_REDIS_ADDR", &c.RedisAddr)
	envString("GATEWAY_REDIS_PASSWORD", &c.RedisPassword)
	envString("GATEWAY_REDIS_KEY", &c.RedisKey)

	if val := os.Getenv("GATEWAY_ALLOWED_ORIGINS"); val != "" {
		c.AllowedOrigins = splitList(val)
	}
	if val := os.Getenv("GATEWAY_PREVIEW_ICE_SERVERS"); val != "" {
		c.PreviewICEServers = splitList(val)
	}

	if val := os.Getenv("GATEWAY_LOG_LEVEL"); val != "" {
		c.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}

	if val := os.Getenv("GATEWAY_USE_SYNTHETIC"); val != "" {
		if strings.ToLower(strings.TrimSpace(val)) == "true" {
			c.Source = SourceSynthetic
		}
	}
	if val := os.Getenv("GATEWAY_SOURCE"); val != "" {
		c.Source = strings.ToLower(strings.TrimSpace(val))
	}

	if val := os.Getenv("GATEWAY_PREVIEW_ENABLED"); val != "" {
		c.PreviewEnabled = strings.ToLower(strings.TrimSpace(val)) == "true"
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"GATEWAY_SYNTHETIC_WIDTH", &c.SyntheticWidth},
		{"GATEWAY_SYNTHETIC_HEIGHT", &c.SyntheticHeight},
		{"GATEWAY_SYNTHETIC_FPS", &c.SyntheticFPS},
		{"GATEWAY_SYNTHETIC_PATTERN", &c.SyntheticPattern},
		{"GATEWAY_REDIS_DB", &c.RedisDB},
		{"GATEWAY_PREVIEW_FPS", &c.PreviewFPS},
	}
	for _, e := range ints {
		val := os.Getenv(e.name)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return errors.New(e.name + " must be a valid integer")
		}
		*e.dst = n
	}

	return nil
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envString(name string, dst *string) {
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	validSources := map[string]bool{SourceIPC: true, SourceGst: true, SourceSynthetic: true}
	if !validSources[c.Source] {
		return errors.New("Source must be 'ipc', 'gst', or 'synthetic'")
	}

	if c.Source == SourceIPC && c.IPCSocketPath == "" {
		return errors.New("IPCSocketPath cannot be empty")
	}

	if c.IPCOutputPath != "" && c.IPCOutputPath == c.IPCSocketPath {
		return errors.New("IPCOutputPath must differ from IPCSocketPath")
	}

	if c.HTTPListenAddr == "" {
		return errors.New("HTTPListenAddr cannot be empty")
	}

	if len(c.AllowedOrigins) == 0 {
		return errors.New("AllowedOrigins cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return errors.New("LogLevel must be 'debug', 'info', 'warn', or 'error'")
	}

	if c.Source == SourceGst && strings.TrimSpace(c.GstPipeline) == "" {
		return errors.New("GstPipeline cannot be empty when Source is 'gst'")
	}

	if c.Source == SourceSynthetic {
		if c.SyntheticWidth <= 0 || c.SyntheticWidth > 7680 || c.SyntheticWidth%2 != 0 {
			return errors.New("SyntheticWidth must be an even number between 2 and 7680")
		}
		if c.SyntheticHeight <= 0 || c.SyntheticHeight > 4320 || c.SyntheticHeight%2 != 0 {
			return errors.New("SyntheticHeight must be an even number between 2 and 4320")
		}
		if c.SyntheticFPS <= 0 || c.SyntheticFPS > 240 {
			return errors.New("SyntheticFPS must be between 1 and 240")
		}
		if c.SyntheticPattern < 0 || c.SyntheticPattern > 2 {
			return errors.New("SyntheticPattern must be 0 (ColorBars), 1 (Gradient), or 2 (Grid)")
		}
	}

	if c.RedisAddr != "" {
		if c.RedisKey == "" {
			return errors.New("RedisKey cannot be empty when RedisAddr is set")
		}
		if c.RedisDB < 0 {
			return errors.New("RedisDB cannot be negative")
		}
	}

	if c.PreviewEnabled {
		if c.Source != SourceGst {
			return errors.New("PreviewEnabled requires Source 'gst'")
		}
		if c.PreviewFPS <= 0 || c.PreviewFPS > 240 {
			return errors.New("PreviewFPS must be between 1 and 240")
		}
	}

	return nil
}

// IsDebug returns true if the log level is set to debug.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsSynthetic returns true if frames come from the synthetic source.
func (c *Config) IsSynthetic() bool {
	return c.Source == SourceSynthetic
}

// HasStore returns true if the Redis mask store is configured.
func (c *Config) HasStore() bool {
	return c.RedisAddr != ""
}

// String returns a string representation of the config for logging purposes.
// The Redis password is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString("Source: " + c.Source + ", ")
	switch c.Source {
	case SourceIPC:
		b.WriteString("IPCSocketPath: " + c.IPCSocketPath + ", ")
	case SourceGst:
		b.WriteString("GstPipeline: " + c.GstPipeline + ", ")
	case SourceSynthetic:
		b.WriteString("Synthetic: " + strconv.Itoa(c.SyntheticWidth) + "x" + strconv.Itoa(c.SyntheticHeight) +
			"@" + strconv.Itoa(c.SyntheticFPS) + " pattern " + strconv.Itoa(c.SyntheticPattern) + ", ")
	}
	if c.IPCOutputPath != "" {
		b.WriteString("IPCOutputPath: " + c.IPCOutputPath + ", ")
	}
	b.WriteString("HTTPListenAddr: " + c.HTTPListenAddr + ", ")
	b.WriteString("AllowedOrigins: [" + strings.Join(c.AllowedOrigins, ", ") + "], ")
	b.WriteString("LogLevel: " + c.LogLevel)
	if c.RedisAddr != "" {
		b.WriteString(", Redis: " + c.RedisAddr + "/" + strconv.Itoa(c.RedisDB) + " key " + c.RedisKey)
		if c.RedisPassword != "" {
			b.WriteString(" password ***")
		}
	}
	if c.PreviewEnabled {
		b.WriteString(", Preview: " + strconv.Itoa(c.PreviewFPS) + "fps")
	}
	if c.ConfigFile != "" {
		b.WriteString(", ConfigFile: " + c.ConfigFile)
	}
	b.WriteString("}")
	return b.String()
}
