// Package config loads the service's TOML configuration file and applies
// environment-variable overrides and defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the configuration file read when none is given on the
// command line.
const DefaultPath = "smugdancer.toml"

// Config is the top-level configuration, one section per concern.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Animation     AnimationConfig     `toml:"animation"`
	RenderService RenderServiceConfig `toml:"render_service"`
	CacheService  CacheServiceConfig  `toml:"cache_service"`
}

// ServerConfig configures the HTTP server and its front-door request gate.
type ServerConfig struct {
	Port string `toml:"port"`
	// Root is the base URL shown on the documentation page.
	Root string `toml:"root"`
	// RateLimiting disables the per-IP request gate when false. Available
	// for local development, where obtaining multiple client IPs to test
	// around the gate isn't practical; production should always leave
	// this enabled.
	RateLimiting *bool `toml:"rate_limiting"`
	// ReverseProxy makes the gate read X-Forwarded-For instead of the
	// connection's own address.
	ReverseProxy bool `toml:"reverse_proxy"`
}

// AnimationConfig describes the fixed source animation.
type AnimationConfig struct {
	FPS        float64          `toml:"fps"`
	WaveCount  float64          `toml:"wave_count"`
	FrameCount FrameCountConfig `toml:"frame_count"`
}

// FrameCountConfig names either a hardcoded frame count or an external
// command that reports one; Command takes priority when both are set.
type FrameCountConfig struct {
	Hardcoded int      `toml:"hardcoded"`
	Command   string   `toml:"command"`
	Flags     []string `toml:"flags"`
}

// RenderServiceConfig configures the encoder subprocess and its
// concurrency bound.
type RenderServiceConfig struct {
	Encoder      string   `toml:"encoder"`
	EncoderFlags []string `toml:"encoder_flags"`
	MaxJobs      int      `toml:"max_jobs"`
}

// CacheServiceConfig configures the on-disk cache and its eviction
// thresholds.
type CacheServiceConfig struct {
	CacheDir      string `toml:"cache_dir"`
	Database      string `toml:"database"`
	Limit         uint64 `toml:"limit"`
	PurgeLimit    uint64 `toml:"purge_limit"`
	PurgeMaxCount int    `toml:"purge_max_count"`
}

// Load reads and decodes the TOML file at path, then applies environment
// overrides and defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnvOverrides lets ops knobs be overridden without editing the TOML
// file, using the SMUGDANCER_ prefix.
func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnv("SMUGDANCER_PORT", c.Server.Port)
	c.Server.Root = getEnv("SMUGDANCER_ROOT", c.Server.Root)
	if v, ok := getEnvBool("SMUGDANCER_RATE_LIMITING"); ok {
		c.Server.RateLimiting = &v
	}
	if v, ok := getEnvBool("SMUGDANCER_REVERSE_PROXY"); ok {
		c.Server.ReverseProxy = v
	}

	c.RenderService.Encoder = getEnv("SMUGDANCER_ENCODER", c.RenderService.Encoder)
	if v := getEnvInt("SMUGDANCER_MAX_JOBS", 0); v > 0 {
		c.RenderService.MaxJobs = v
	}

	c.CacheService.CacheDir = getEnv("SMUGDANCER_CACHE_DIR", c.CacheService.CacheDir)
	c.CacheService.Database = getEnv("SMUGDANCER_CACHE_DATABASE", c.CacheService.Database)
}

// applyDefaults fills in sensible defaults for zero-valued fields.
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.RateLimiting == nil {
		enabled := true
		c.Server.RateLimiting = &enabled
	}
	if c.RenderService.MaxJobs == 0 {
		c.RenderService.MaxJobs = 2
	}
	if c.CacheService.CacheDir == "" {
		c.CacheService.CacheDir = "cache"
	}
	if c.CacheService.Database == "" {
		c.CacheService.Database = "smugdancer.db"
	}
	if c.CacheService.PurgeMaxCount == 0 {
		c.CacheService.PurgeMaxCount = 16
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string) (value bool, ok bool) {
	val := os.Getenv(key)
	if val == "" {
		return false, false
	}
	return val == "true" || val == "1", true
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
