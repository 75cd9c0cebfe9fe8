// Package server exposes the gateway to handhelds and UI hosts: a WebSocket
// endpoint for events and commands, plus a small HTTP API for health,
// status, pairing and wedge-scanner input.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/warelink/scangate/internal/domain/events"
	"github.com/warelink/scangate/internal/domain/ports"
	"github.com/warelink/scangate/internal/pairing"
	"github.com/warelink/scangate/internal/scan"
	"github.com/warelink/scangate/internal/store"
)

// heartbeatInterval is the application-level heartbeat period. Sent as a
// JSON event, not a WebSocket ping, so clients can monitor it in JS land.
const heartbeatInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Handhelds connect from app webviews with no meaningful origin.
		return true
	},
}

// Server is the unified HTTP + WebSocket server.
type Server struct {
	addr       string
	gatewayID  string
	server     *http.Server
	hub        ports.EventHub
	store      *store.Store
	dispatcher *Dispatcher
	qr         *pairing.QRGenerator

	mu      sync.RWMutex
	clients map[string]*Client

	heartbeatDone chan struct{}
	heartbeatSeq  int64
	startTime     time.Time
}

// NewServer creates the gateway server. qr may be nil when pairing is
// disabled.
func NewServer(host string, port int, gatewayID string, hub ports.EventHub, st *store.Store, dispatcher *Dispatcher, qr *pairing.QRGenerator) *Server {
	s := &Server{
		addr:          fmt.Sprintf("%s:%d", host, port),
		gatewayID:     gatewayID,
		hub:           hub,
		store:         st,
		dispatcher:    dispatcher,
		qr:            qr,
		clients:       make(map[string]*Client),
		heartbeatDone: make(chan struct{}),
		startTime:     time.Now(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/pairing", s.handlePairing).Methods(http.MethodGet)
	r.HandleFunc("/api/pairing/qr.png", s.handlePairingPNG).Methods(http.MethodGet)
	r.HandleFunc("/api/scan", s.handleScan).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWebSocket)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: r,
		// No ReadTimeout/WriteTimeout: they would kill long-lived WebSocket
		// connections. The pumps manage their own deadlines.
	}

	return s
}

// Start starts the server.
func (s *Server) Start() error {
	log.Info().Str("addr", s.addr).Msg("gateway server starting")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("gateway server error")
		}
	}()

	go s.heartbeatLoop()

	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("gateway server stopping")

	close(s.heartbeatDone)

	s.mu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clients = make(map[string]*Client)
	s.mu.Unlock()

	return s.server.Shutdown(ctx)
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(conn, s.dispatcher.Handle, func(id string) {
		s.hub.Unsubscribe(id)
		s.removeClient(id)
	})

	s.mu.Lock()
	s.clients[client.ID()] = client
	s.mu.Unlock()

	s.hub.Subscribe(NewClientSubscriber(client))

	log.Info().
		Str("client_id", client.ID()).
		Str("remote_addr", conn.RemoteAddr().String()).
		Msg("client connected")

	client.Start()

	// A fresh connection needs the session branch immediately so it can show
	// the right screen without waiting for the next transition.
	auth := s.store.Auth()
	ev := events.NewSessionChangedEvent(auth.Username, auth.IsAuthenticated, auth.IsInitialized, auth.Timeout)
	if data, err := ev.ToJSON(); err == nil {
		client.Send(data)
	}
}

func (s *Server) removeClient(id string) {
	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
	log.Info().Str("client_id", id).Msg("client disconnected")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusResponse is the /api/status reply.
type StatusResponse struct {
	GatewayID     string `json:"gateway_id"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Clients       int    `json:"clients"`
	Initialized   bool   `json:"initialized"`
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	CurrentURL    string `json:"current_url,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	auth := s.store.Auth()
	global := s.store.Global()

	s.writeJSON(w, http.StatusOK, StatusResponse{
		GatewayID:     s.gatewayID,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Clients:       s.ClientCount(),
		Initialized:   auth.IsInitialized,
		Authenticated: auth.IsAuthenticated,
		Username:      auth.Username,
		CurrentURL:    global.CurrentURL,
	})
}

func (s *Server) handlePairing(w http.ResponseWriter, r *http.Request) {
	if s.qr == nil {
		http.Error(w, "pairing disabled", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, s.qr.GetInfo())
}

func (s *Server) handlePairingPNG(w http.ResponseWriter, r *http.Request) {
	if s.qr == nil {
		http.Error(w, "pairing disabled", http.StatusNotFound)
		return
	}

	png, err := s.qr.GeneratePNG(512)
	if err != nil {
		http.Error(w, "failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// handleScan accepts scan events over plain HTTP for wedge scanners that
// cannot hold a WebSocket open.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var ev scan.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid scan event", http.StatusBadRequest)
		return
	}
	if ev.Barcode == "" {
		http.Error(w, "barcode is required", http.StatusBadRequest)
		return
	}

	s.dispatcher.Scan(ev)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

// heartbeatLoop publishes periodic heartbeat events while clients are
// connected.
func (s *Server) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.heartbeatDone:
			return

		case <-ticker.C:
			count := s.ClientCount()
			if count == 0 {
				continue
			}
			seq := atomic.AddInt64(&s.heartbeatSeq, 1)
			uptime := int64(time.Since(s.startTime).Seconds())
			s.hub.Publish(events.NewHeartbeatEvent(seq, count, uptime))
		}
	}
}
