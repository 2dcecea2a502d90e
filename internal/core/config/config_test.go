package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lifter.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	// Clean environment
	os.Unsetenv("LIFTER_CACHE_BACKEND")
	os.Unsetenv("LIFTER_REMOTE_BASE_URL")

	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Cache.Backend != CacheMemory {
			t.Errorf("expected cache backend memory, got %s", cfg.Cache.Backend)
		}
		if cfg.Cache.DefaultTimeout != 5*time.Minute {
			t.Errorf("expected default timeout 5m, got %v", cfg.Cache.DefaultTimeout)
		}
		if cfg.Cache.LRUSize != 1024 {
			t.Errorf("expected lru_size 1024, got %d", cfg.Cache.LRUSize)
		}
		if !cfg.Remote.Pluralize {
			t.Errorf("expected pluralize true")
		}
		if cfg.Remote.Timeout != 30*time.Second {
			t.Errorf("expected remote timeout 30s, got %v", cfg.Remote.Timeout)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
			t.Errorf("expected info/json logging, got %s/%s", cfg.Log.Level, cfg.Log.Format)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		os.Setenv("LIFTER_CACHE_BACKEND", "LRU")
		os.Setenv("LIFTER_REMOTE_BASE_URL", "http://api.local")
		os.Setenv("LIFTER_S3_SECRET_ACCESS_KEY", "from-env")
		defer os.Unsetenv("LIFTER_CACHE_BACKEND")
		defer os.Unsetenv("LIFTER_REMOTE_BASE_URL")
		defer os.Unsetenv("LIFTER_S3_SECRET_ACCESS_KEY")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Cache.Backend != CacheLRU {
			t.Errorf("expected cache backend lru, got %s", cfg.Cache.Backend)
		}
		if cfg.Remote.BaseURL != "http://api.local" {
			t.Errorf("expected base url http://api.local, got %s", cfg.Remote.BaseURL)
		}
		if cfg.S3.SecretAccessKey != "from-env" {
			t.Errorf("expected secret from environment, got %q", cfg.S3.SecretAccessKey)
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := writeConfig(t, `cache:
  backend: sql
  db_url: "sqlite://cache.db"
  default_timeout: 90s
remote:
  pluralize: false
log:
  level: debug
  format: text
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Cache.Backend != CacheSQL || cfg.Cache.DBURL != "sqlite://cache.db" {
			t.Errorf("expected sql cache at sqlite://cache.db, got %s %s", cfg.Cache.Backend, cfg.Cache.DBURL)
		}
		if cfg.Cache.DefaultTimeout != 90*time.Second {
			t.Errorf("expected default timeout 90s, got %v", cfg.Cache.DefaultTimeout)
		}
		if cfg.Remote.Pluralize {
			t.Errorf("expected pluralize false")
		}
		if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
			t.Errorf("expected debug/text logging, got %s/%s", cfg.Log.Level, cfg.Log.Format)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		if err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("secret in config file rejected", func(t *testing.T) {
		path := writeConfig(t, `s3:
  endpoint: "localhost:9000"
  secret_access_key: "should_be_rejected"
`)
		_, err := LoadConfig(path)
		if err == nil {
			t.Fatal("expected error for secret in config file")
		}
		if err.Error() != "S3 secret keys not allowed in config files (use LIFTER_S3_SECRET_ACCESS_KEY environment variable)" {
			t.Errorf("wrong error message: %v", err)
		}
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "no cache", mutate: func(c *Config) { c.Cache.Backend = CacheNone }},
		{name: "unknown backend", mutate: func(c *Config) { c.Cache.Backend = "redis" }, wantErr: true},
		{name: "lru without size", mutate: func(c *Config) { c.Cache.Backend = CacheLRU; c.Cache.LRUSize = 0 }, wantErr: true},
		{name: "sql without url", mutate: func(c *Config) { c.Cache.Backend = CacheSQL }, wantErr: true},
		{name: "non-positive timeout", mutate: func(c *Config) { c.Remote.Timeout = 0 }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "verbose" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
