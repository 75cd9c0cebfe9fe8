package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8650 {
		t.Errorf("Server.Port = %d, want 8650", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL == "" {
		t.Error("Backend.BaseURL should have a default")
	}
	if cfg.Backend.TimeoutSecs != 30 {
		t.Errorf("Backend.TimeoutSecs = %d, want 30", cfg.Backend.TimeoutSecs)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled should default to true")
	}
	if cfg.Dedupe.TTLSecs != 10 {
		t.Errorf("Dedupe.TTLSecs = %d, want 10", cfg.Dedupe.TTLSecs)
	}
	if cfg.Keystore.Path == "" {
		t.Error("Keystore.Path should be resolved to a default")
	}
	if !filepath.IsAbs(cfg.Keystore.Path) {
		t.Errorf("Keystore.Path should be absolute, got %q", cfg.Keystore.Path)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
backend:
  base_url: http://warehouse:5000/mobile/
  timeout_secs: 10
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Backend.TimeoutSecs != 10 {
		t.Errorf("Backend.TimeoutSecs = %d, want 10", cfg.Backend.TimeoutSecs)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
backend:
  base_url: http://warehouse:5000/mobile/
erp:
  base_url: http://erp:5100/
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if strings.HasSuffix(cfg.Backend.BaseURL, "/") {
		t.Errorf("Backend.BaseURL should not end with slash, got %q", cfg.Backend.BaseURL)
	}
	if strings.HasSuffix(cfg.ERP.BaseURL, "/") {
		t.Errorf("ERP.BaseURL should not end with slash, got %q", cfg.ERP.BaseURL)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: [not a port\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Host: "0.0.0.0", Port: 8650},
			Backend: BackendConfig{BaseURL: "http://localhost:5000", TimeoutSecs: 30},
			ERP:     ERPConfig{BaseURL: "http://localhost:5100", TimeoutSecs: 30},
			Logging: LoggingConfig{Level: "info", Format: "console"},
			Telemetry: TelemetryConfig{
				Enabled: true, MaxFailures: 3, CooldownMinutes: 5,
			},
		}
	}

	if err := Validate(valid()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"empty backend url", func(c *Config) { c.Backend.BaseURL = "" }},
		{"bad backend scheme", func(c *Config) { c.Backend.BaseURL = "ftp://host" }},
		{"zero backend timeout", func(c *Config) { c.Backend.TimeoutSecs = 0 }},
		{"empty erp url", func(c *Config) { c.ERP.BaseURL = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"zero max failures", func(c *Config) { c.Telemetry.MaxFailures = 0 }},
		{"bad external url", func(c *Config) { c.Server.ExternalURL = "://missing-scheme" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_ExternalURLOptional(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: 8650, ExternalURL: "https://gw.example.com"},
		Backend: BackendConfig{BaseURL: "http://localhost:5000", TimeoutSecs: 30},
		ERP:     ERPConfig{BaseURL: "http://localhost:5100", TimeoutSecs: 30},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Telemetry: TelemetryConfig{
			Enabled: true, MaxFailures: 3, CooldownMinutes: 5,
		},
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("https external URL rejected: %v", err)
	}
}
