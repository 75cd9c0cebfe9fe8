package config

import "github.com/spf13/viper"

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8650)

	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:5000/mobile")
	v.SetDefault("backend.timeout_secs", 30)

	// ERP defaults
	v.SetDefault("erp.base_url", "http://localhost:5100")
	v.SetDefault("erp.timeout_secs", 30)

	// Keystore defaults - resolved to the config dir in postProcess
	v.SetDefault("keystore.path", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.max_failures", 3)
	v.SetDefault("telemetry.cooldown_minutes", 5)

	// Pairing defaults
	v.SetDefault("pairing.show_qr_in_terminal", true)
	v.SetDefault("pairing.site", "")

	// Dedupe defaults
	v.SetDefault("dedupe.ttl_secs", 10)
	v.SetDefault("dedupe.max_entries", 1024)
}
