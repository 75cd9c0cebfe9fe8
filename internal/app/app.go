// Package app orchestrates all components of the gateway.
package app

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/warelink/scangate/internal/auth"
	"github.com/warelink/scangate/internal/backend"
	"github.com/warelink/scangate/internal/config"
	"github.com/warelink/scangate/internal/domain/events"
	"github.com/warelink/scangate/internal/erp"
	"github.com/warelink/scangate/internal/hub"
	"github.com/warelink/scangate/internal/inventory"
	"github.com/warelink/scangate/internal/keystore"
	"github.com/warelink/scangate/internal/labels"
	"github.com/warelink/scangate/internal/pairing"
	"github.com/warelink/scangate/internal/scan"
	"github.com/warelink/scangate/internal/screens"
	"github.com/warelink/scangate/internal/server"
	"github.com/warelink/scangate/internal/store"
	"github.com/warelink/scangate/internal/telemetry"
	"github.com/warelink/scangate/internal/workflow"
)

// shutdownTimeout bounds graceful server shutdown.
const shutdownTimeout = 10 * time.Second

// App is the main application struct that wires all components together.
type App struct {
	cfg     *config.Config
	version string

	hub           *hub.Hub
	store         *store.Store
	keys          *keystore.Keystore
	backendClient *backend.Client
	erpClient     *erp.Client
	telemetry     *telemetry.Reporter
	authManager   *auth.Manager
	scanner       *scan.Interpreter
	inventory     *inventory.Workflows
	screens       *screens.Workflows
	labels        *labels.Workflows
	runner        *workflow.Runner
	dispatcher    *server.Dispatcher
	gatewayServer *server.Server
	qrGenerator   *pairing.QRGenerator
	configWatcher *config.Watcher

	gatewayID string
	startTime time.Time

	mu      sync.Mutex
	running bool
}

// New creates a new App instance. Components are constructed eagerly so a
// misconfiguration fails before anything binds a port.
func New(cfg *config.Config, configPath, version string) (*App, error) {
	a := &App{
		cfg:       cfg,
		version:   version,
		gatewayID: uuid.New().String(),
		hub:       hub.New(),
		store:     store.New(),
		runner:    workflow.NewRunner(),
	}

	keys, err := keystore.Open(cfg.Keystore.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}
	a.keys = keys

	a.backendClient = backend.NewClient(
		cfg.Backend.BaseURL,
		cfg.Backend.AuthHeader,
		time.Duration(cfg.Backend.TimeoutSecs)*time.Second,
	)
	a.erpClient = erp.NewClient(
		cfg.ERP.BaseURL,
		time.Duration(cfg.ERP.TimeoutSecs)*time.Second,
	)

	a.telemetry = telemetry.New(
		a.backendClient,
		a.store,
		cfg.Telemetry.Enabled,
		cfg.Telemetry.MaxFailures,
		time.Duration(cfg.Telemetry.CooldownMinutes)*time.Minute,
	)

	a.authManager = auth.NewManager(a.backendClient, a.keys, a.store, a.hub, nil, a.telemetry)
	a.scanner = scan.NewInterpreter(a.backendClient, a.store, a.hub, a.telemetry)
	a.inventory = inventory.NewWorkflows(a.backendClient, a.store, a.hub)
	a.screens = screens.NewWorkflows(a.backendClient, a.store, a.hub, a.authManager)
	a.labels = labels.NewWorkflows(a.erpClient, a.store, a.hub)

	dedupe := workflow.NewDedupeCache(
		time.Duration(cfg.Dedupe.TTLSecs)*time.Second,
		cfg.Dedupe.MaxEntries,
	)
	a.dispatcher = server.NewDispatcher(
		a.store, a.hub, a.authManager, a.scanner,
		a.inventory, a.screens, a.labels, a.runner, dedupe,
	)

	a.qrGenerator = pairing.NewQRGenerator(advertiseHost(cfg.Server.Host), cfg.Server.Port, a.gatewayID, cfg.Pairing.Site)
	if cfg.Server.ExternalURL != "" {
		a.qrGenerator.SetExternalURL(cfg.Server.ExternalURL)
	}

	a.gatewayServer = server.NewServer(
		cfg.Server.Host, cfg.Server.Port, a.gatewayID,
		a.hub, a.store, a.dispatcher, a.qrGenerator,
	)

	if configPath != "" {
		a.configWatcher = config.NewWatcher(configPath, a.onConfigChange)
	}

	return a, nil
}

// Start starts the application and blocks until the context is cancelled.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("application is already running")
	}
	a.running = true
	a.startTime = time.Now()
	a.mu.Unlock()

	if err := a.hub.Start(); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}

	// Trace every broadcast while debugging connectivity issues.
	a.hub.Subscribe(hub.NewFuncSubscriber("internal-logger", func(event events.Event) {
		log.Trace().
			Str("event_type", string(event.Type())).
			Time("timestamp", event.Timestamp()).
			Msg("event broadcast")
	}))

	// Resolve the startup branch before accepting connections, so the first
	// session_changed greeting a handheld sees is already correct.
	a.authManager.Initialize(ctx)

	if err := a.gatewayServer.Start(); err != nil {
		return fmt.Errorf("failed to start gateway server: %w", err)
	}

	if a.configWatcher != nil {
		if err := a.configWatcher.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("config watcher failed to start, hot reload disabled")
		}
	}

	a.printConnectionInfo()

	log.Info().
		Str("gateway_id", a.gatewayID).
		Str("version", a.version).
		Msg("gateway started")

	<-ctx.Done()
	return a.shutdown()
}

// shutdown stops all components in reverse startup order.
func (a *App) shutdown() error {
	log.Info().Msg("gateway shutting down")

	if a.configWatcher != nil {
		_ = a.configWatcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.gatewayServer.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("gateway server shutdown error")
	}

	a.runner.CancelAll()
	a.authManager.Stop()

	if err := a.hub.Stop(); err != nil {
		log.Warn().Err(err).Msg("event hub shutdown error")
	}

	if err := a.keys.Close(); err != nil {
		log.Warn().Err(err).Msg("keystore close error")
	}

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()

	log.Info().Msg("gateway stopped")
	return nil
}

// onConfigChange applies a hot-reloaded configuration. Only the logging
// level can change at runtime; anything else needs a restart.
func (a *App) onConfigChange(cfg *config.Config) {
	if cfg.Logging.Level != a.cfg.Logging.Level {
		applyLogLevel(cfg.Logging.Level)
		log.Info().Str("level", cfg.Logging.Level).Msg("log level changed")
	}

	if cfg.Backend.BaseURL != a.cfg.Backend.BaseURL ||
		cfg.Server.Port != a.cfg.Server.Port ||
		cfg.Keystore.Path != a.cfg.Keystore.Path {
		log.Warn().Msg("backend, server or keystore changes require a restart")
	}

	a.cfg = cfg
}

// printConnectionInfo prints connection details and the pairing QR code.
func (a *App) printConnectionInfo() {
	host := advertiseHost(a.cfg.Server.Host)
	httpURL := fmt.Sprintf("http://%s:%d", host, a.cfg.Server.Port)
	wsURL := fmt.Sprintf("ws://%s:%d/ws", host, a.cfg.Server.Port)
	if a.cfg.Server.ExternalURL != "" {
		httpURL = a.cfg.Server.ExternalURL
	}

	fmt.Println()
	fmt.Println("  scangate ready")
	fmt.Printf("  Gateway ID: %s\n", a.gatewayID[:8]+"...")
	fmt.Printf("  API:        %s\n", httpURL)
	fmt.Printf("  WebSocket:  %s\n", wsURL)
	fmt.Println()

	if a.cfg.Pairing.ShowQRInTerminal && a.qrGenerator != nil {
		a.qrGenerator.PrintToTerminal()
	}
}

// GatewayID returns this instance's identifier.
func (a *App) GatewayID() string {
	return a.gatewayID
}

// Hub returns the event hub.
func (a *App) Hub() *hub.Hub {
	return a.hub
}

// UptimeSeconds returns how long the app has been running.
func (a *App) UptimeSeconds() int64 {
	return int64(time.Since(a.startTime).Seconds())
}

// applyLogLevel sets the global zerolog level from a config string.
func applyLogLevel(level string) {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
}

// advertiseHost resolves the address handhelds should connect to. A wildcard
// bind address is useless in a QR code, so the outbound interface address is
// advertised instead.
func advertiseHost(bindHost string) string {
	if bindHost != "" && bindHost != "0.0.0.0" && bindHost != "::" {
		return bindHost
	}

	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer func() { _ = conn.Close() }()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "localhost"
}
