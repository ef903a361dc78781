package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads the configuration from file and SEERR_* environment variables.
// Without an explicit path a missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix("SEERR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".seerrbridge"))
		}

		// Check /etc
		v.AddConfigPath("/etc/seerrbridge/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Seerr.URLBase = normalizeURLBase(cfg.Seerr.URLBase)

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. Every key gets one so
// environment overrides are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	// Seerr defaults
	v.SetDefault("seerr.host", "")
	v.SetDefault("seerr.port", 5055)
	v.SetDefault("seerr.api_key", "")
	v.SetDefault("seerr.username", "")
	v.SetDefault("seerr.password", "")
	v.SetDefault("seerr.ssl", false)
	v.SetDefault("seerr.verify_ssl", true)
	v.SetDefault("seerr.urlbase", "")
	v.SetDefault("seerr.scan_interval", 60*time.Second)
	v.SetDefault("seerr.legacy", false)
	v.SetDefault("seerr.timeout", 30*time.Second)
	v.SetDefault("seerr.page_size", 100)
	v.SetDefault("seerr.season", "latest")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8585)

	// Webhook defaults
	v.SetDefault("webhook.enabled", true)
	v.SetDefault("webhook.id", "")
	v.SetDefault("webhook.auth_header", "")

	// MQTT defaults
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "seerrbridge")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "seerr")
	v.SetDefault("mqtt.discovery", true)
	v.SetDefault("mqtt.discovery_prefix", "homeassistant")
	v.SetDefault("mqtt.event_filter", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Seerr.Host == "" {
		return fmt.Errorf("seerr.host is required")
	}

	if cfg.Seerr.Port <= 0 || cfg.Seerr.Port > 65535 {
		return fmt.Errorf("invalid seerr.port: %d", cfg.Seerr.Port)
	}

	hasKey := cfg.Seerr.APIKey != "" && cfg.Seerr.APIKey != "your-api-key-here"
	hasLogin := cfg.Seerr.Username != "" && cfg.Seerr.Password != ""
	if !hasKey && !hasLogin {
		return fmt.Errorf("seerr.api_key or seerr.username and seerr.password must be set")
	}

	if cfg.Seerr.ScanInterval < time.Second {
		return fmt.Errorf("seerr.scan_interval must be at least 1s, got %s", cfg.Seerr.ScanInterval)
	}

	validSeasons := map[string]bool{
		"first":  true,
		"latest": true,
		"all":    true,
	}
	if !validSeasons[strings.ToLower(cfg.Seerr.Season)] {
		return fmt.Errorf("invalid seerr.season: %s (must be 'first', 'latest' or 'all')", cfg.Seerr.Season)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", cfg.Server.Port)
	}

	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}

	// Validate logging level
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
