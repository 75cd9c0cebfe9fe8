// Package config handles configuration management for scangate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	ERP       ERPConfig       `mapstructure:"erp"`
	Keystore  KeystoreConfig  `mapstructure:"keystore"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Pairing   PairingConfig   `mapstructure:"pairing"`
	Dedupe    DedupeConfig    `mapstructure:"dedupe"`
}

// ServerConfig holds the UI-host facing server configuration.
type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	ExternalURL string `mapstructure:"external_url"` // Optional: public URL when the gateway sits behind a tunnel
}

// BackendConfig holds the warehouse REST backend configuration.
type BackendConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	AuthHeader  string `mapstructure:"auth_header"` // Optional static Authorization header value
}

// ERPConfig holds the ERP label-printing service configuration.
type ERPConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// KeystoreConfig holds the durable key-value store configuration.
type KeystoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds remote event-log configuration.
type TelemetryConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxFailures     int  `mapstructure:"max_failures"`
	CooldownMinutes int  `mapstructure:"cooldown_minutes"`
}

// PairingConfig holds handheld pairing configuration.
type PairingConfig struct {
	ShowQRInTerminal bool   `mapstructure:"show_qr_in_terminal"`
	Site             string `mapstructure:"site"` // Optional site tag shown to handhelds
}

// DedupeConfig bounds the duplicate-command suppression cache.
type DedupeConfig struct {
	TTLSecs    int `mapstructure:"ttl_secs"`
	MaxEntries int `mapstructure:"max_entries"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default search paths
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.scangate")
		v.AddConfigPath("/etc/scangate")
	}

	// Environment variable prefix
	v.SetEnvPrefix("SCANGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file (optional - not an error if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	// Post-process configuration
	if err := postProcess(&cfg); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// postProcess applies post-processing to configuration.
func postProcess(cfg *Config) error {
	// Keystore defaults to a file under the user config directory
	if cfg.Keystore.Path == "" {
		dir, err := EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve keystore path: %w", err)
		}
		cfg.Keystore.Path = filepath.Join(dir, "keystore.db")
	}

	absPath, err := filepath.Abs(cfg.Keystore.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve keystore path: %w", err)
	}
	cfg.Keystore.Path = absPath

	// Backend URLs never carry a trailing slash; endpoints are joined with one
	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
	cfg.ERP.BaseURL = strings.TrimRight(cfg.ERP.BaseURL, "/")

	return nil
}

// GetConfigDir returns the user config directory for scangate.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".scangate"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
