// Package config provides configuration management for lifter stores.
package config

import (
	"time"

	"github.com/solatis/lifter/internal/logger"
)

// Cache backends selectable through cache.backend.
const (
	CacheMemory = "memory"
	CacheLRU    = "lru"
	CacheSQL    = "sql"
	CacheNone   = "none"
)

// Config holds everything needed to assemble stores from the CLI.
type Config struct {
	Cache  CacheConfig
	Remote RemoteConfig
	S3     S3Config
	Log    logger.Config
}

// CacheConfig selects and tunes the result cache.
type CacheConfig struct {
	Backend        string
	DefaultTimeout time.Duration // zero or negative never expires
	LRUSize        int
	DBURL          string
}

// RemoteConfig configures the HTTP backend.
type RemoteConfig struct {
	BaseURL    string
	Pluralize  bool
	UserAgent  string
	ResultsKey string
	Timeout    time.Duration
}

// S3Config configures s3:// document sources. The secret key is read from
// LIFTER_S3_SECRET_ACCESS_KEY only.
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Backend:        CacheMemory,
			DefaultTimeout: 5 * time.Minute,
			LRUSize:        1024,
		},
		Remote: RemoteConfig{
			Pluralize: true,
			Timeout:   30 * time.Second,
		},
		S3: S3Config{
			UseSSL: true,
		},
		Log: logger.Config{
			Level:  "info",
			Format: "json",
		},
	}
}
