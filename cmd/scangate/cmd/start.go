package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/warelink/scangate/internal/app"
	"github.com/warelink/scangate/internal/config"
)

var (
	port        int
	externalURL string // Single URL that auto-derives WS and HTTP URLs
	backendURL  string
)

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scanner gateway",
	Long: `Start the gateway, bind the HTTP and WebSocket server, and print a
pairing QR code for handhelds.

The gateway restores a saved session from the keystore on startup, so an
operator who was logged in before a restart keeps their session.

Example:
  scangate start                       # Defaults from config
  scangate start --port 8650           # Custom port
  scangate start --backend-url http://wms.internal:5000/mobile

Tunnels:
  When the gateway sits behind a tunnel or reverse proxy, pass the public
  URL and the pairing QR will point handhelds at it:

  scangate start --external-url https://gateway.example.com

  The WebSocket URL is derived from it automatically.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVar(&port, "port", 0, "server port for HTTP and WebSocket (default: 8650)")
	startCmd.Flags().StringVar(&externalURL, "external-url", "", "public URL for tunnels - the pairing QR derives WS and HTTP URLs from it")
	startCmd.Flags().StringVar(&backendURL, "backend-url", "", "warehouse backend base URL")
}

func runStart(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with flags
	if port != 0 {
		cfg.Server.Port = port
	}
	if externalURL != "" {
		cfg.Server.ExternalURL = externalURL
	}
	if backendURL != "" {
		cfg.Backend.BaseURL = backendURL
	}

	// Re-validate after overrides
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Setup logging
	setupLogging(cfg)

	log.Info().
		Str("version", version).
		Str("backend", cfg.Backend.BaseURL).
		Int("port", cfg.Server.Port).
		Msg("starting scangate")

	// Create application
	application, err := app.New(cfg, cfgFile, version)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	// Start the application
	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	log.Info().Msg("scangate stopped")
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func setupLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Logging.Format == "console" || verbose {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Add verbose logging if flag is set
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
