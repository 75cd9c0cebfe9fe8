package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Valid log levels.
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate validates the configuration.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	if err := validateBackend(&cfg.Backend); err != nil {
		return err
	}

	if err := validateERP(&cfg.ERP); err != nil {
		return err
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}

	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return err
	}

	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.ExternalURL != "" {
		if err := validateURL(cfg.ExternalURL, "server.external_url"); err != nil {
			return err
		}
	}
	return nil
}

func validateBackend(cfg *BackendConfig) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("backend.base_url must be set")
	}
	if err := validateURL(cfg.BaseURL, "backend.base_url"); err != nil {
		return err
	}
	if cfg.TimeoutSecs < 1 {
		return fmt.Errorf("backend.timeout_secs must be positive, got %d", cfg.TimeoutSecs)
	}
	return nil
}

func validateERP(cfg *ERPConfig) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("erp.base_url must be set")
	}
	if err := validateURL(cfg.BaseURL, "erp.base_url"); err != nil {
		return err
	}
	if cfg.TimeoutSecs < 1 {
		return fmt.Errorf("erp.timeout_secs must be positive, got %d", cfg.TimeoutSecs)
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	if !validLogLevels[strings.ToLower(cfg.Level)] {
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error; got %q", cfg.Level)
	}
	if cfg.Format != "console" && cfg.Format != "json" {
		return fmt.Errorf("logging.format must be console or json, got %q", cfg.Format)
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) error {
	if cfg.MaxFailures < 1 {
		return fmt.Errorf("telemetry.max_failures must be positive, got %d", cfg.MaxFailures)
	}
	if cfg.CooldownMinutes < 1 {
		return fmt.Errorf("telemetry.cooldown_minutes must be positive, got %d", cfg.CooldownMinutes)
	}
	return nil
}

func validateURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme, got %q", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", field)
	}
	return nil
}
