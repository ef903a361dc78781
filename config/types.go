package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the complete configuration structure
type Config struct {
	Seerr   SeerrConfig   `mapstructure:"seerr"`
	Server  ServerConfig  `mapstructure:"server"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SeerrConfig holds the Jellyseerr/Overseerr connection details
type SeerrConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	APIKey       string        `mapstructure:"api_key"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	SSL          bool          `mapstructure:"ssl"`
	VerifySSL    bool          `mapstructure:"verify_ssl"`
	URLBase      string        `mapstructure:"urlbase"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	Legacy       bool          `mapstructure:"legacy"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PageSize     int           `mapstructure:"page_size"`
	// Season is the default season policy for tv requests
	Season string `mapstructure:"season"`
}

// BaseURL builds the server root from host, port, ssl and urlbase
func (s SeerrConfig) BaseURL() string {
	scheme := "http"
	if s.SSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, s.Host, s.Port, s.URLBase)
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WebhookConfig controls the webhook receiver
type WebhookConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ID         string `mapstructure:"id"`
	AuthHeader string `mapstructure:"auth_header"`
}

// MQTTConfig controls the MQTT sink
type MQTTConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Broker          string `mapstructure:"broker"`
	ClientID        string `mapstructure:"client_id"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	TopicPrefix     string `mapstructure:"topic_prefix"`
	Discovery       bool   `mapstructure:"discovery"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix"`
	EventFilter     string `mapstructure:"event_filter"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Color      bool   `mapstructure:"color"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// normalizeURLBase turns "seerr/", "/seerr" and "seerr" into "/seerr"
func normalizeURLBase(base string) string {
	base = strings.Trim(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	return "/" + base
}
