package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/warelink/scangate/internal/config"
)

var (
	doctorJSON        bool
	doctorStrict      bool
	doctorHTTPTimeout int
)

type doctorStatus string

const (
	doctorStatusOK   doctorStatus = "ok"
	doctorStatusWarn doctorStatus = "warn"
	doctorStatusFail doctorStatus = "fail"
)

type doctorCheck struct {
	ID          string                 `json:"id"`
	Status      doctorStatus           `json:"status"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Remediation string                 `json:"remediation,omitempty"`
}

type doctorSummary struct {
	Total int `json:"total"`
	OK    int `json:"ok"`
	Warn  int `json:"warn"`
	Fail  int `json:"fail"`
}

type doctorReport struct {
	Version      string        `json:"version"`
	GeneratedAt  string        `json:"generated_at"`
	Overall      doctorStatus  `json:"overall_status"`
	Summary      doctorSummary `json:"summary"`
	Checks       []doctorCheck `json:"checks"`
	SearchConfig []string      `json:"config_search_paths,omitempty"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run local diagnostics with remediation hints",
	Long: `Run read-only diagnostics against the local scangate setup and print
actionable hints: config validity, keystore availability, and reachability
of the warehouse backend, the ERP service and a running gateway.

By default the output is human-readable text.
Use --json for machine-readable output.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output machine-readable JSON")
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "return non-zero on warnings")
	doctorCmd.Flags().IntVar(&doctorHTTPTimeout, "http-timeout", 2, "HTTP probe timeout in seconds")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	report := collectDoctorReport()

	if doctorJSON {
		if err := printDoctorJSON(report); err != nil {
			return err
		}
	} else {
		printDoctorText(report)
	}

	if report.Summary.Fail > 0 {
		return fmt.Errorf("doctor found %d failing check(s)", report.Summary.Fail)
	}
	if doctorStrict && report.Summary.Warn > 0 {
		return fmt.Errorf("doctor strict mode failed with %d warning(s)", report.Summary.Warn)
	}
	return nil
}

func collectDoctorReport() doctorReport {
	checks := make([]doctorCheck, 0, 8)

	cfg := defaultDoctorConfig()
	loadedCfg, cfgCheck := checkConfigLoad(cfgFile)
	checks = append(checks, cfgCheck)
	if loadedCfg != nil {
		cfg = loadedCfg
	}

	checks = append(checks, checkConfigDirectory())
	checks = append(checks, checkKeystoreFile(cfg.Keystore.Path))
	checks = append(checks, checkServiceReachable("backend.reachable", cfg.Backend.BaseURL,
		"Start the warehouse backend or fix `backend.base_url` in config."))
	checks = append(checks, checkServiceReachable("erp.reachable", cfg.ERP.BaseURL,
		"Start the ERP service or fix `erp.base_url` in config. Label printing will fail until it is reachable."))
	checks = append(checks, checkHealthEndpoint(cfg.Server.Host, cfg.Server.Port, doctorHTTPTimeout))

	summary := summarizeDoctorChecks(checks)
	return doctorReport{
		Version:      version,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		Overall:      overallStatus(summary),
		Summary:      summary,
		Checks:       checks,
		SearchConfig: configSearchPaths(cfgFile),
	}
}

func checkConfigLoad(path string) (*config.Config, doctorCheck) {
	cfg, err := config.Load(path)
	searchPaths := configSearchPaths(path)
	if err != nil {
		return nil, doctorCheck{
			ID:      "config.load",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Failed to load config: %v", err),
			Details: map[string]interface{}{
				"config_path":  strings.TrimSpace(path),
				"search_paths": searchPaths,
			},
			Remediation: "Fix the config file, or run `scangate config init --force` to regenerate defaults.",
		}
	}

	source := findFirstExistingPath(searchPaths)
	msg := "Configuration loaded using built-in defaults and environment overrides"
	if source != "" {
		msg = "Configuration loaded successfully"
	}

	return cfg, doctorCheck{
		ID:      "config.load",
		Status:  doctorStatusOK,
		Message: msg,
		Details: map[string]interface{}{
			"loaded_from":  source,
			"search_paths": searchPaths,
		},
	}
}

func checkConfigDirectory() doctorCheck {
	dir, err := config.GetConfigDir()
	if err != nil {
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to resolve config directory: %v", err),
			Remediation: "Verify your HOME environment and filesystem permissions.",
		}
	}

	info, statErr := os.Stat(dir)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return doctorCheck{
				ID:      "config.directory",
				Status:  doctorStatusWarn,
				Message: "Config directory does not exist yet",
				Details: map[string]interface{}{
					"path": dir,
				},
				Remediation: "Run `scangate config init` to create initial local configuration.",
			}
		}
		return doctorCheck{
			ID:      "config.directory",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Failed to access config directory: %v", statErr),
			Details: map[string]interface{}{
				"path": dir,
			},
			Remediation: "Fix directory permissions or create the directory manually.",
		}
	}

	if !info.IsDir() {
		return doctorCheck{
			ID:      "config.directory",
			Status:  doctorStatusFail,
			Message: "Config path exists but is not a directory",
			Details: map[string]interface{}{
				"path": dir,
			},
			Remediation: "Remove the file and recreate directory with `mkdir -p ~/.scangate`.",
		}
	}

	return doctorCheck{
		ID:      "config.directory",
		Status:  doctorStatusOK,
		Message: "Config directory is available",
		Details: map[string]interface{}{
			"path": dir,
		},
	}
}

func checkKeystoreFile(path string) doctorCheck {
	if strings.TrimSpace(path) == "" {
		return doctorCheck{
			ID:      "keystore.file",
			Status:  doctorStatusWarn,
			Message: "Keystore path is not resolved",
			Remediation: "Set `keystore.path` in config or let scangate create " +
				"~/.scangate/keystore.db on first start.",
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return doctorCheck{
				ID:      "keystore.file",
				Status:  doctorStatusWarn,
				Message: "Keystore file not found",
				Details: map[string]interface{}{
					"path": path,
				},
				Remediation: "Run `scangate start` once to create the keystore. Saved sessions will not survive restarts until then.",
			}
		}
		return doctorCheck{
			ID:      "keystore.file",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Failed to read keystore file: %v", err),
			Details: map[string]interface{}{
				"path": path,
			},
			Remediation: "Check file permissions and ownership.",
		}
	}

	if info.IsDir() {
		return doctorCheck{
			ID:      "keystore.file",
			Status:  doctorStatusFail,
			Message: "Keystore path is a directory",
			Details: map[string]interface{}{
				"path": path,
			},
			Remediation: "Set `keystore.path` to a file path.",
		}
	}

	return doctorCheck{
		ID:      "keystore.file",
		Status:  doctorStatusOK,
		Message: "Keystore file is readable",
		Details: map[string]interface{}{
			"path": path,
			"size": info.Size(),
		},
	}
}

// checkServiceReachable probes a remote HTTP base URL. Any HTTP response
// counts as reachable; only transport errors are reported.
func checkServiceReachable(id, baseURL, remediation string) doctorCheck {
	if strings.TrimSpace(baseURL) == "" {
		return doctorCheck{
			ID:          id,
			Status:      doctorStatusFail,
			Message:     "Base URL is empty",
			Remediation: remediation,
		}
	}

	timeout := doctorHTTPTimeout
	if timeout <= 0 {
		timeout = 2
	}
	client := &http.Client{Timeout: time.Duration(timeout) * time.Second}

	resp, err := client.Get(baseURL)
	if err != nil {
		return doctorCheck{
			ID:      id,
			Status:  doctorStatusWarn,
			Message: fmt.Sprintf("Service is not reachable: %v", err),
			Details: map[string]interface{}{
				"url": baseURL,
			},
			Remediation: remediation,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	return doctorCheck{
		ID:      id,
		Status:  doctorStatusOK,
		Message: "Service is reachable",
		Details: map[string]interface{}{
			"url":         baseURL,
			"status_code": resp.StatusCode,
		},
	}
}

func checkHealthEndpoint(host string, port, timeoutSeconds int) doctorCheck {
	if strings.TrimSpace(host) == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	if port <= 0 {
		port = 8650
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 2
	}

	url := fmt.Sprintf("http://%s:%d/health", host, port)
	client := &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return doctorCheck{
			ID:      "server.health_endpoint",
			Status:  doctorStatusWarn,
			Message: fmt.Sprintf("Gateway is not running: %v", err),
			Details: map[string]interface{}{
				"url": url,
			},
			Remediation: "Start the gateway with `scangate start` and verify host/port configuration.",
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return doctorCheck{
			ID:      "server.health_endpoint",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Health endpoint returned non-200 status: %d", resp.StatusCode),
			Details: map[string]interface{}{
				"url":         url,
				"status_code": resp.StatusCode,
			},
			Remediation: "Check gateway logs (`scangate start -v`) to diagnose startup issues.",
		}
	}

	return doctorCheck{
		ID:      "server.health_endpoint",
		Status:  doctorStatusOK,
		Message: "Gateway health endpoint is reachable",
		Details: map[string]interface{}{
			"url":         url,
			"status_code": resp.StatusCode,
		},
	}
}

func summarizeDoctorChecks(checks []doctorCheck) doctorSummary {
	summary := doctorSummary{Total: len(checks)}
	for _, check := range checks {
		switch check.Status {
		case doctorStatusOK:
			summary.OK++
		case doctorStatusWarn:
			summary.Warn++
		case doctorStatusFail:
			summary.Fail++
		}
	}
	return summary
}

func overallStatus(summary doctorSummary) doctorStatus {
	if summary.Fail > 0 {
		return doctorStatusFail
	}
	if summary.Warn > 0 {
		return doctorStatusWarn
	}
	return doctorStatusOK
}

func printDoctorJSON(report doctorReport) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func printDoctorText(report doctorReport) {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))

	logger.Info("scangate doctor",
		"version", report.Version,
		"overall", string(report.Overall),
		"ok", report.Summary.OK,
		"warn", report.Summary.Warn,
		"fail", report.Summary.Fail,
	)

	for _, check := range report.Checks {
		attrs := []any{"check", check.ID}
		if check.Remediation != "" && check.Status != doctorStatusOK {
			attrs = append(attrs, "fix", check.Remediation)
		}

		switch check.Status {
		case doctorStatusFail:
			logger.Error(check.Message, attrs...)
		case doctorStatusWarn:
			logger.Warn(check.Message, attrs...)
		default:
			logger.Info(check.Message, attrs...)
		}
	}

	fmt.Println()
	fmt.Println("Tip: run `scangate doctor --json` for machine-readable output.")
}

func defaultDoctorConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 8650,
		},
		Backend: config.BackendConfig{
			BaseURL: "http://localhost:5000/mobile",
		},
		ERP: config.ERPConfig{
			BaseURL: "http://localhost:5100",
		},
	}
}

func configSearchPaths(explicit string) []string {
	if strings.TrimSpace(explicit) != "" {
		return []string{explicit}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return []string{
		filepath.Join(".", "config.yaml"),
		filepath.Join(home, ".scangate", "config.yaml"),
		"/etc/scangate/config.yaml",
	}
}

func findFirstExistingPath(paths []string) string {
	for _, candidate := range paths {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
