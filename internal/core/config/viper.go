package config

import (
	"fmt"
	"strings"

	"github.com/solatis/lifter/internal/logger"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("cache.backend", def.Cache.Backend)
	v.SetDefault("cache.default_timeout", def.Cache.DefaultTimeout.String())
	v.SetDefault("cache.lru_size", def.Cache.LRUSize)
	v.SetDefault("cache.db_url", "")
	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.pluralize", def.Remote.Pluralize)
	v.SetDefault("remote.user_agent", "")
	v.SetDefault("remote.results_key", "")
	v.SetDefault("remote.timeout", def.Remote.Timeout.String())
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.use_ssl", def.S3.UseSSL)
	v.SetDefault("s3.region", "")
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	// Bind environment variables with LIFTER_ prefix
	v.SetEnvPrefix("LIFTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets must be environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Cache: CacheConfig{
			Backend:        strings.ToLower(v.GetString("cache.backend")),
			DefaultTimeout: v.GetDuration("cache.default_timeout"),
			LRUSize:        v.GetInt("cache.lru_size"),
			DBURL:          v.GetString("cache.db_url"),
		},
		Remote: RemoteConfig{
			BaseURL:    v.GetString("remote.base_url"),
			Pluralize:  v.GetBool("remote.pluralize"),
			UserAgent:  v.GetString("remote.user_agent"),
			ResultsKey: v.GetString("remote.results_key"),
			Timeout:    v.GetDuration("remote.timeout"),
		},
		S3: S3Config{
			Endpoint:        v.GetString("s3.endpoint"),
			AccessKeyID:     v.GetString("s3.access_key_id"),
			SecretAccessKey: v.GetString("s3.secret_access_key"),
			UseSSL:          v.GetBool("s3.use_ssl"),
			Region:          v.GetString("s3.region"),
		},
		Log: logger.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks the cache backend, its requirements and the log settings.
func validateConfig(cfg *Config) error {
	switch cfg.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheLRU:
		if cfg.Cache.LRUSize <= 0 {
			return fmt.Errorf("cache.lru_size must be positive, got %d", cfg.Cache.LRUSize)
		}
	case CacheSQL:
		if cfg.Cache.DBURL == "" {
			return fmt.Errorf("cache.db_url is required for the sql cache backend")
		}
	default:
		return fmt.Errorf("cache.backend must be one of memory, lru, sql, none, got %q", cfg.Cache.Backend)
	}
	if cfg.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive, got %v", cfg.Remote.Timeout)
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("s3.secret_access_key") {
		return fmt.Errorf("S3 secret keys not allowed in config files (use LIFTER_S3_SECRET_ACCESS_KEY environment variable)")
	}
	return nil
}
