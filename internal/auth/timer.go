package auth

import (
	"sync"
	"time"
)

// SessionTimer is the single deferred expiry task per session. Starting a
// new timer cancels any pending one, so two timers never coexist.
type SessionTimer struct {
	mu    sync.Mutex
	timer *time.Timer
}

// NewSessionTimer creates an idle timer.
func NewSessionTimer() *SessionTimer {
	return &SessionTimer{}
}

// Start schedules onExpire after d, replacing any pending timer. A
// non-positive duration fires immediately on a separate goroutine.
func (t *SessionTimer) Start(d time.Duration, onExpire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, onExpire)
}

// Stop cancels the pending timer, if any.
func (t *SessionTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
