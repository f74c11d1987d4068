package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	cfg := Load()

	if cfg.App.CheckInterval != DefaultCheckInterval {
		t.Errorf("CheckInterval = %v, expected %v", cfg.App.CheckInterval, DefaultCheckInterval)
	}
	if cfg.Cache.Backend != BackendDisk {
		t.Errorf("Cache.Backend = %q, expected %q", cfg.Cache.Backend, BackendDisk)
	}
	if cfg.App.Opacity != DefaultOpacity {
		t.Errorf("Opacity = %v, expected %v", cfg.App.Opacity, DefaultOpacity)
	}
	if len(cfg.Lyrics.Providers) != 2 || cfg.Lyrics.Providers[0] != "genius" {
		t.Errorf("unexpected default providers: %v", cfg.Lyrics.Providers)
	}
}

func TestLoadOverrides(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, "lyricpane")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	content := `
[app]
check_interval = "10s"
opacity = 0.7

[cache]
backend = "redis"

[lyrics]
providers = ["lrclib"]

[redis]
addr = "redis.local:6380"
db = 2
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg := Load()

	if cfg.App.CheckInterval != 10*time.Second {
		t.Errorf("CheckInterval = %v, expected 10s", cfg.App.CheckInterval)
	}
	if cfg.App.Opacity != 0.7 {
		t.Errorf("Opacity = %v, expected 0.7", cfg.App.Opacity)
	}
	if cfg.Cache.Backend != BackendRedis {
		t.Errorf("Cache.Backend = %q, expected redis", cfg.Cache.Backend)
	}
	if len(cfg.Lyrics.Providers) != 1 || cfg.Lyrics.Providers[0] != "lrclib" {
		t.Errorf("Providers = %v, expected [lrclib]", cfg.Lyrics.Providers)
	}
	if cfg.Redis.Addr != "redis.local:6380" || cfg.Redis.DB != 2 {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
}

func TestLoadInvalidInterval(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, "lyricpane")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	content := "[app]\ncheck_interval = \"not-a-duration\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg := Load()
	if cfg.App.CheckInterval != DefaultCheckInterval {
		t.Errorf("CheckInterval = %v, expected default on parse failure", cfg.App.CheckInterval)
	}
}
