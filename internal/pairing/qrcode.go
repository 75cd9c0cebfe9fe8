// Package pairing handles handheld scanner pairing via QR codes.
package pairing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// Info contains the connection details encoded in the QR code. Handhelds
// scan it once and connect to the gateway without manual URL entry.
type Info struct {
	WebSocket string `json:"ws"`
	HTTP      string `json:"http"`
	GatewayID string `json:"gateway"`
	Site      string `json:"site,omitempty"`
}

// QRGenerator generates pairing QR codes for handheld scanners.
type QRGenerator struct {
	host        string
	port        int
	gatewayID   string
	site        string
	externalURL string // Optional public URL when the gateway sits behind a tunnel
}

// NewQRGenerator creates a new QR code generator.
func NewQRGenerator(host string, port int, gatewayID, site string) *QRGenerator {
	return &QRGenerator{
		host:      host,
		port:      port,
		gatewayID: gatewayID,
		site:      site,
	}
}

// SetExternalURL overrides the advertised base URL. The scheme is rewritten
// per transport, so either an http or https URL is accepted.
func (g *QRGenerator) SetExternalURL(baseURL string) {
	g.externalURL = strings.TrimRight(baseURL, "/")
}

// GetInfo returns the pairing information.
func (g *QRGenerator) GetInfo() *Info {
	wsURL := fmt.Sprintf("ws://%s:%d/ws", g.host, g.port)
	httpURL := fmt.Sprintf("http://%s:%d", g.host, g.port)

	if g.externalURL != "" {
		httpURL = g.externalURL
		wsURL = toWebSocketURL(g.externalURL) + "/ws"
	}

	return &Info{
		WebSocket: wsURL,
		HTTP:      httpURL,
		GatewayID: g.gatewayID,
		Site:      g.site,
	}
}

// GenerateJSON returns the pairing info as JSON.
func (g *QRGenerator) GenerateJSON() (string, error) {
	data, err := json.Marshal(g.GetInfo())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GenerateTerminal generates a QR code for terminal display.
func (g *QRGenerator) GenerateTerminal() (string, error) {
	jsonData, err := g.GenerateJSON()
	if err != nil {
		return "", err
	}

	qr, err := qrcode.New(jsonData, qrcode.Medium)
	if err != nil {
		return "", err
	}

	return qr.ToSmallString(false), nil
}

// GeneratePNG generates a PNG image of the QR code.
func (g *QRGenerator) GeneratePNG(size int) ([]byte, error) {
	jsonData, err := g.GenerateJSON()
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(jsonData, qrcode.Medium, size)
}

// PrintToTerminal prints the QR code to the terminal with a border.
func (g *QRGenerator) PrintToTerminal() {
	qrStr, err := g.GenerateTerminal()
	if err != nil {
		fmt.Printf("  [Error generating QR code: %v]\n", err)
		return
	}

	lines := strings.Split(qrStr, "\n")

	fmt.Println()
	fmt.Println("  Scan with a handheld to pair:")
	fmt.Println()

	for _, line := range lines {
		if line != "" {
			fmt.Printf("  %s\n", line)
		}
	}

	fmt.Println()
}

func toWebSocketURL(httpURL string) string {
	switch {
	case strings.HasPrefix(httpURL, "https://"):
		return "wss://" + strings.TrimPrefix(httpURL, "https://")
	case strings.HasPrefix(httpURL, "http://"):
		return "ws://" + strings.TrimPrefix(httpURL, "http://")
	default:
		return httpURL
	}
}
