package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warelink/scangate/internal/config"
	"gopkg.in/yaml.v3"
)

var (
	configInitLocal bool
	configInitForce bool
)

// configCmd displays or manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display and manage configuration",
	Long: `Display and manage scangate configuration.

Without subcommands, shows the current effective configuration.

Examples:
  scangate config              # Show current config
  scangate config init         # Create config file with defaults
  scangate config path         # Show config file location
  scangate config get <key>    # Get a config value
  scangate config set <key> <value>  # Set a config value`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		printConfig(cfg)
	},
}

// configInitCmd creates a config file with defaults.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	Long: `Create a config file with default settings and documentation.

By default, creates ~/.scangate/config.yaml.
Use --local to create ./config.yaml in the current directory.

Examples:
  scangate config init          # Create ~/.scangate/config.yaml
  scangate config init --local  # Create ./config.yaml
  scangate config init --force  # Overwrite existing file`,
	RunE: runConfigInit,
}

// configPathCmd shows config file location.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file location",
	Long: `Show where the config file is located and whether it exists.

Examples:
  scangate config path`,
	Run: runConfigPath,
}

// configGetCmd gets a config value.
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by key.

Keys use dot notation to access nested values.

Examples:
  scangate config get server.port
  scangate config get backend.base_url
  scangate config get logging.level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a config value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by key.

Creates the config file if it doesn't exist.
Keys use dot notation to access nested values.

Examples:
  scangate config set server.port 8650
  scangate config set backend.base_url http://wms.internal:5000/mobile
  scangate config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	// Add subcommands to config
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	// Flags for init
	configInitCmd.Flags().BoolVar(&configInitLocal, "local", false, "create config in current directory instead of ~/.scangate/")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite existing config file")
}

func printConfig(cfg *config.Config) {
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("Host:              %s\n", cfg.Server.Host)
	fmt.Printf("Port:              %d\n", cfg.Server.Port)
	fmt.Printf("Backend URL:       %s\n", cfg.Backend.BaseURL)
	fmt.Printf("ERP URL:           %s\n", cfg.ERP.BaseURL)
	fmt.Printf("Keystore:          %s\n", cfg.Keystore.Path)
	fmt.Printf("Log Level:         %s\n", cfg.Logging.Level)
	fmt.Printf("Log Format:        %s\n", cfg.Logging.Format)
	fmt.Printf("Telemetry Enabled: %t\n", cfg.Telemetry.Enabled)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	var configPath string

	if configInitLocal {
		configPath = "config.yaml"
	} else {
		configDir, err := config.EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(configDir, "config.yaml")
	}

	// Check if file exists
	if _, err := os.Stat(configPath); err == nil {
		if !configInitForce {
			return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
		}
	}

	// Write default config with comments
	if err := writeDefaultConfig(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("Edit this file to customize scangate behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting config dir: %v\n", err)
		os.Exit(1)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	// Check various locations
	locations := []string{
		"./config.yaml",
		configPath,
		"/etc/scangate/config.yaml",
	}

	fmt.Println("Config search paths (in order):")
	for i, loc := range locations {
		exists := "not found"
		if _, err := os.Stat(loc); err == nil {
			exists = "exists"
		}
		fmt.Printf("  %d. %s (%s)\n", i+1, loc, exists)
	}

	fmt.Printf("\nConfig directory: %s\n", configDir)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := getConfigValue(cfg, key)
	if err != nil {
		return err
	}

	fmt.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Determine config path
	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	// Load existing config or create new one
	var data map[string]interface{}

	if content, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse existing config: %w", err)
		}
	}

	if data == nil {
		data = make(map[string]interface{})
	}

	// Set the value
	if err := setNestedValue(data, key, value); err != nil {
		return err
	}

	// Write back
	content, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, configPath)
	return nil
}

func getConfigValue(cfg *config.Config, key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid key: %s", key)
	}

	switch parts[0] {
	case "server":
		switch parts[1] {
		case "port":
			return cfg.Server.Port, nil
		case "host":
			return cfg.Server.Host, nil
		case "external_url":
			return cfg.Server.ExternalURL, nil
		}
	case "backend":
		switch parts[1] {
		case "base_url":
			return cfg.Backend.BaseURL, nil
		case "timeout_secs":
			return cfg.Backend.TimeoutSecs, nil
		case "auth_header":
			return cfg.Backend.AuthHeader, nil
		}
	case "erp":
		switch parts[1] {
		case "base_url":
			return cfg.ERP.BaseURL, nil
		case "timeout_secs":
			return cfg.ERP.TimeoutSecs, nil
		}
	case "keystore":
		if parts[1] == "path" {
			return cfg.Keystore.Path, nil
		}
	case "logging":
		switch parts[1] {
		case "level":
			return cfg.Logging.Level, nil
		case "format":
			return cfg.Logging.Format, nil
		}
	case "telemetry":
		switch parts[1] {
		case "enabled":
			return cfg.Telemetry.Enabled, nil
		case "max_failures":
			return cfg.Telemetry.MaxFailures, nil
		case "cooldown_minutes":
			return cfg.Telemetry.CooldownMinutes, nil
		}
	case "pairing":
		switch parts[1] {
		case "show_qr_in_terminal":
			return cfg.Pairing.ShowQRInTerminal, nil
		case "site":
			return cfg.Pairing.Site, nil
		}
	case "dedupe":
		switch parts[1] {
		case "ttl_secs":
			return cfg.Dedupe.TTLSecs, nil
		case "max_entries":
			return cfg.Dedupe.MaxEntries, nil
		}
	}

	return nil, fmt.Errorf("unknown config key: %s", key)
}

func setNestedValue(data map[string]interface{}, key string, value string) error {
	parts := strings.Split(key, ".")

	// Navigate to the parent
	current := data
	for i := 0; i < len(parts)-1; i++ {
		if _, ok := current[parts[i]]; !ok {
			current[parts[i]] = make(map[string]interface{})
		}
		if nested, ok := current[parts[i]].(map[string]interface{}); ok {
			current = nested
		} else {
			return fmt.Errorf("cannot set nested value: %s is not a map", parts[i])
		}
	}

	// Convert value to appropriate type based on key
	finalKey := parts[len(parts)-1]
	current[finalKey] = parseValue(key, value)

	return nil
}

func parseValue(key string, value string) interface{} {
	// Boolean values
	if value == "true" {
		return true
	}
	if value == "false" {
		return false
	}

	// Integer values for known int fields
	intKeys := []string{"port", "timeout_secs", "max_failures",
		"cooldown_minutes", "ttl_secs", "max_entries"}
	for _, k := range intKeys {
		if strings.HasSuffix(key, k) {
			var i int
			if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
				return i
			}
		}
	}

	// Default to string
	return value
}

func writeDefaultConfig(path string) error {
	content := `# scangate Configuration
# Copy this file to ~/.scangate/config.yaml and modify as needed

# Server settings
server:
  # Unified port for the HTTP API and WebSocket connections
  port: 8650

  # Bind address (use 0.0.0.0 to allow handhelds on the warehouse network)
  host: "0.0.0.0"

  # Public URL when the gateway sits behind a tunnel or reverse proxy.
  # When set, the pairing QR code will contain this URL instead of the
  # local interface address.
  # external_url: "https://gateway.example.com"

# Warehouse backend
backend:
  # Base URL of the warehouse mobile API
  base_url: "http://localhost:5000/mobile"

  # Request timeout in seconds
  timeout_secs: 30

  # Optional static Authorization header value
  # auth_header: "Bearer ..."

# ERP label printing service
erp:
  base_url: "http://localhost:5100"
  timeout_secs: 30

# Durable key-value store for credentials and session state
keystore:
  # Defaults to ~/.scangate/keystore.db when empty
  path: ""

# Logging settings
logging:
  # Log level: trace, debug, info, warn, error
  level: "info"

  # Log format: console (human-readable) or json
  format: "console"

# Remote event log
telemetry:
  enabled: true

  # Stop reporting after this many consecutive failures
  max_failures: 3

  # How long to wait before retrying after backing off
  cooldown_minutes: 5

# Handheld pairing
pairing:
  # Print a QR code in the terminal on startup
  show_qr_in_terminal: true

  # Optional site tag shown to handhelds
  # site: "DUB1"

# Duplicate command suppression
dedupe:
  # How long a request ID is remembered
  ttl_secs: 10
  max_entries: 1024
`

	return os.WriteFile(path, []byte(content), 0644)
}
