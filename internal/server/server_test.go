package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/warelink/scangate/internal/hub"
	"github.com/warelink/scangate/internal/pairing"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *fakeGatewayBackend) {
	t.Helper()

	be := &fakeGatewayBackend{}
	d, st, _ := newTestDispatcher(t, be)

	eventHub := hub.New()
	_ = eventHub.Start()
	t.Cleanup(func() { _ = eventHub.Stop() })

	qr := pairing.NewQRGenerator("localhost", 8650, "gw-test", "DUB1")
	s := NewServer("localhost", 0, "gw-test", eventHub, st, d, qr)

	ts := httptest.NewServer(s.server.Handler)
	t.Cleanup(ts.Close)

	return s, ts, be
}

func TestHealthEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if status.GatewayID != "gw-test" {
		t.Errorf("GatewayID = %q, want gw-test", status.GatewayID)
	}
	if !status.Authenticated {
		t.Error("expected authenticated status (test store is logged in)")
	}
	if status.Username != "jsmith" {
		t.Errorf("Username = %q, want jsmith", status.Username)
	}
}

func TestPairingEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/pairing")
	if err != nil {
		t.Fatalf("GET /api/pairing: %v", err)
	}
	defer resp.Body.Close()

	var info pairing.Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.GatewayID != "gw-test" {
		t.Errorf("GatewayID = %q, want gw-test", info.GatewayID)
	}
	if info.WebSocket == "" {
		t.Error("expected WebSocket URL")
	}
}

func TestPairingPNGEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/pairing/qr.png")
	if err != nil {
		t.Fatalf("GET /api/pairing/qr.png: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
}

func TestPairingDisabled(t *testing.T) {
	be := &fakeGatewayBackend{}
	d, st, _ := newTestDispatcher(t, be)

	eventHub := hub.New()
	_ = eventHub.Start()
	t.Cleanup(func() { _ = eventHub.Stop() })

	s := NewServer("localhost", 0, "gw-test", eventHub, st, d, nil)
	ts := httptest.NewServer(s.server.Handler)
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/pairing")
	if err != nil {
		t.Fatalf("GET /api/pairing: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestScanEndpoint(t *testing.T) {
	_, ts, be := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/scan", "application/json",
		strings.NewReader(`{"barcode":"SKU-1"}`))
	if err != nil {
		t.Fatalf("POST /api/scan: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}

	waitFor(t, func() bool { return be.ScanCalls() == 1 }, "scan never reached the backend")
}

func TestScanEndpointRejectsEmptyBarcode(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/scan", "application/json",
		strings.NewReader(`{"barcode":""}`))
	if err != nil {
		t.Fatalf("POST /api/scan: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebSocketConnectReceivesSession(t *testing.T) {
	s, ts, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The server greets every new connection with the current session state.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var ev struct {
		Event   string `json:"event"`
		Payload struct {
			Username      string `json:"username"`
			Authenticated bool   `json:"authenticated"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(message, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Event != "session_changed" {
		t.Errorf("event = %q, want session_changed", ev.Event)
	}
	if ev.Payload.Username != "jsmith" || !ev.Payload.Authenticated {
		t.Errorf("unexpected payload: %+v", ev.Payload)
	}

	waitFor(t, func() bool { return s.ClientCount() == 1 }, "client never registered")
}

func TestWebSocketScanCommand(t *testing.T) {
	_, ts, be := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	cmd := `{"command":"scan","request_id":"ws-req-1","payload":{"barcode":"SKU-9"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(cmd)); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, func() bool { return be.ScanCalls() == 1 }, "scan command never ran")
}

func TestWebSocketDisconnectUnregisters(t *testing.T) {
	s, ts, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	waitFor(t, func() bool { return s.ClientCount() == 1 }, "client never registered")

	conn.Close()

	waitFor(t, func() bool { return s.ClientCount() == 0 }, "client never unregistered")
}
