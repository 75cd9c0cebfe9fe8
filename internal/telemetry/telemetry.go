// Package telemetry ships structured event records to the warehouse backend.
// Delivery is fire-and-forget: a failed send never surfaces to the caller,
// and repeated failures pause the reporter so a dead logging endpoint cannot
// slow down scanning.
package telemetry

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/warelink/scangate/internal/backend"
	"github.com/warelink/scangate/internal/store"
)

// Log levels written to the Information field.
const (
	levelInfo  = "INFO"
	levelWarn  = "WARN"
	levelError = "ERROR"
)

const sendTimeout = 10 * time.Second

// Meta carries optional per-event fields.
type Meta struct {
	EventType  string
	ScreenName string
	URL        string
	MenuItem   string
	AuthMethod string
	Barcode    string
	Page       string
	StatusCode int
	Response   json.RawMessage
}

// Sender is the backend surface the reporter needs.
type Sender interface {
	SendLog(ctx context.Context, entry *backend.LogEntry) error
}

// Reporter sends telemetry records. The zero value is a disabled reporter.
type Reporter struct {
	sender      Sender
	store       *store.Store
	device      backend.DeviceInfo
	enabled     bool
	maxFailures int
	cooldown    time.Duration

	mu          sync.Mutex
	failures    int
	pausedUntil time.Time
	username    string
}

// New creates a reporter. maxFailures consecutive send failures pause
// delivery for the cooldown duration.
func New(sender Sender, st *store.Store, enabled bool, maxFailures int, cooldown time.Duration) *Reporter {
	hostname, _ := os.Hostname()
	return &Reporter{
		sender:      sender,
		store:       st,
		enabled:     enabled,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		device: backend.DeviceInfo{
			Platform:        runtime.GOOS,
			PlatformVersion: runtime.Version(),
			DeviceName:      hostname,
		},
	}
}

// Info records an informational event.
func (r *Reporter) Info(message string, meta Meta) {
	r.send(levelInfo, message, nil, meta)
}

// Warn records a warning event.
func (r *Reporter) Warn(message string, meta Meta) {
	r.send(levelWarn, message, nil, meta)
}

// Error records an error event.
func (r *Reporter) Error(message string, err error, meta Meta) {
	r.send(levelError, message, err, meta)
}

// ResetSession clears the cached session context and failure tracking.
// Called on login and logout so records carry fresh user data.
func (r *Reporter) ResetSession() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.username = ""
	r.failures = 0
	r.pausedUntil = time.Time{}
}

func (r *Reporter) send(level, message string, cause error, meta Meta) {
	if r == nil || !r.enabled {
		return
	}

	r.mu.Lock()
	if !r.pausedUntil.IsZero() && time.Now().Before(r.pausedUntil) {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	entry := r.buildEntry(level, message, cause, meta)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		err := r.sender.SendLog(ctx, entry)

		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.failures++
			if r.failures >= r.maxFailures {
				r.pausedUntil = time.Now().Add(r.cooldown)
				log.Debug().Int("failures", r.failures).Msg("telemetry paused after repeated failures")
			}
			return
		}
		r.failures = 0
		r.pausedUntil = time.Time{}
	}()
}

func (r *Reporter) buildEntry(level, message string, cause error, meta Meta) *backend.LogEntry {
	// User state is always read fresh; it changes with navigation. The
	// username is cached until the next session reset.
	var userState *backend.UserState
	username := "unknown"
	if r.store != nil {
		if state := r.store.Global().UserState; state != nil {
			userState = state
		}
		if u := r.store.Auth().Username; u != "" {
			username = u
		}
	}

	r.mu.Lock()
	if r.username == "" && username != "unknown" {
		r.username = username
	}
	if r.username != "" {
		username = r.username
	}
	r.mu.Unlock()

	eventType := meta.EventType
	if eventType == "" {
		eventType = "api_call"
	}

	entry := &backend.LogEntry{
		Username:    username,
		Device:      r.device,
		UserState:   userState,
		Information: level,
		Message:     message,
		EventType:   eventType,
		ScreenName:  meta.ScreenName,
		URL:         meta.URL,
		MenuItem:    meta.MenuItem,
		AuthMethod:  meta.AuthMethod,
		Barcode:     meta.Barcode,
		Page:        meta.Page,
		StatusCode:  meta.StatusCode,
		Response:    meta.Response,
	}
	if cause != nil {
		entry.ErrorMessage = cause.Error()
		entry.ErrorName = "error"
	}
	return entry
}
