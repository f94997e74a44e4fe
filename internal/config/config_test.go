package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smugdancer.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalTOML = `
[server]
port = "9090"
root = "https://example.com"

[animation]
fps = 50
wave_count = 12

[animation.frame_count]
hardcoded = 720

[render_service]
encoder = "gifski"
encoder_flags = ["--fps", "{fps}", "{frame_indices}"]
max_jobs = 4

[cache_service]
cache_dir = "cache"
database = "smugdancer.db"
limit = 1000000
purge_limit = 500000
purge_max_count = 10
`

func TestLoad_ParsesAllSections(t *testing.T) {
	path := writeConfig(t, minimalTOML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Animation.FrameCount.Hardcoded != 720 {
		t.Errorf("FrameCount.Hardcoded = %d, want 720", cfg.Animation.FrameCount.Hardcoded)
	}
	if cfg.RenderService.MaxJobs != 4 {
		t.Errorf("MaxJobs = %d, want 4", cfg.RenderService.MaxJobs)
	}
	if cfg.CacheService.PurgeMaxCount != 10 {
		t.Errorf("PurgeMaxCount = %d, want 10", cfg.CacheService.PurgeMaxCount)
	}
	if cfg.Server.RateLimiting == nil || !*cfg.Server.RateLimiting {
		t.Error("RateLimiting should default to true when absent from the file")
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
root = "https://example.com"

[animation]
fps = 50
wave_count = 12

[animation.frame_count]
hardcoded = 720

[render_service]
encoder = "gifski"
encoder_flags = ["{frame_indices}"]

[cache_service]
limit = 1000000
purge_limit = 500000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Port default = %q, want 8080", cfg.Server.Port)
	}
	if cfg.RenderService.MaxJobs != 2 {
		t.Errorf("MaxJobs default = %d, want 2", cfg.RenderService.MaxJobs)
	}
	if cfg.CacheService.CacheDir != "cache" {
		t.Errorf("CacheDir default = %q, want cache", cfg.CacheService.CacheDir)
	}
	if cfg.CacheService.PurgeMaxCount != 16 {
		t.Errorf("PurgeMaxCount default = %d, want 16", cfg.CacheService.PurgeMaxCount)
	}
}

func TestLoad_RateLimitingFalseIsHonored(t *testing.T) {
	path := writeConfig(t, `
[server]
root = "https://example.com"
rate_limiting = false

[animation]
fps = 50
wave_count = 12

[animation.frame_count]
hardcoded = 720

[render_service]
encoder = "gifski"
encoder_flags = ["{frame_indices}"]

[cache_service]
limit = 1000000
purge_limit = 500000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.RateLimiting == nil || *cfg.Server.RateLimiting {
		t.Error("rate_limiting = false in the file should be honored, not defaulted back to true")
	}
}

func TestLoad_EnvOverridesPort(t *testing.T) {
	path := writeConfig(t, minimalTOML)
	t.Setenv("SMUGDANCER_PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("Server.Port = %q, want env override 7070", cfg.Server.Port)
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
