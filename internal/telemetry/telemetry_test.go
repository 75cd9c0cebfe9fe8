package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/warelink/scangate/internal/backend"
	"github.com/warelink/scangate/internal/store"
)

type fakeSender struct {
	mu      sync.Mutex
	entries []*backend.LogEntry
	err     error
	sent    chan struct{}
}

func newFakeSender(err error) *fakeSender {
	return &fakeSender{err: err, sent: make(chan struct{}, 64)}
}

func (f *fakeSender) SendLog(ctx context.Context, entry *backend.LogEntry) error {
	f.mu.Lock()
	f.entries = append(f.entries, entry)
	f.mu.Unlock()
	f.sent <- struct{}{}
	return f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func waitSent(t *testing.T, f *fakeSender) {
	t.Helper()
	select {
	case <-f.sent:
	case <-time.After(time.Second):
		t.Fatal("telemetry send never happened")
	}
}

func TestInfoSendsEntry(t *testing.T) {
	sender := newFakeSender(nil)
	st := store.New()
	st.LoginSuccess("jsmith", nil, "home")

	r := New(sender, st, true, 3, 5*time.Minute)
	r.Info("Login with PIN successful", Meta{EventType: "auth", AuthMethod: "pin"})
	waitSent(t, sender)

	sender.mu.Lock()
	entry := sender.entries[0]
	sender.mu.Unlock()

	if entry.Username != "jsmith" {
		t.Errorf("unexpected username: %q", entry.Username)
	}
	if entry.Information != "INFO" || entry.EventType != "auth" {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestDisabledReporterSendsNothing(t *testing.T) {
	sender := newFakeSender(nil)
	r := New(sender, store.New(), false, 3, 5*time.Minute)

	r.Info("anything", Meta{})
	time.Sleep(50 * time.Millisecond)

	if sender.count() != 0 {
		t.Error("disabled reporter must not send")
	}
}

func TestCooldownAfterRepeatedFailures(t *testing.T) {
	sender := newFakeSender(errors.New("backend down"))
	r := New(sender, store.New(), true, 3, 5*time.Minute)

	for i := 0; i < 3; i++ {
		r.Error("send failed", errors.New("boom"), Meta{})
		waitSent(t, sender)
	}

	// Reporter is now paused; further events are dropped silently.
	r.Info("during cooldown", Meta{})
	time.Sleep(50 * time.Millisecond)

	if got := sender.count(); got != 3 {
		t.Errorf("expected 3 sends before cooldown, got %d", got)
	}
}

func TestResetSessionClearsCooldown(t *testing.T) {
	sender := newFakeSender(errors.New("backend down"))
	r := New(sender, store.New(), true, 1, 5*time.Minute)

	r.Info("first", Meta{})
	waitSent(t, sender)

	r.ResetSession()
	sender.err = nil

	r.Info("after reset", Meta{})
	waitSent(t, sender)

	if got := sender.count(); got != 2 {
		t.Errorf("expected send after session reset, got %d sends", got)
	}
}

func TestErrorEntryCarriesCause(t *testing.T) {
	sender := newFakeSender(nil)
	r := New(sender, store.New(), true, 3, 5*time.Minute)

	r.Error("Login with PIN failed", errors.New("invalid pin"), Meta{EventType: "auth"})
	waitSent(t, sender)

	sender.mu.Lock()
	entry := sender.entries[0]
	sender.mu.Unlock()

	if entry.ErrorMessage != "invalid pin" {
		t.Errorf("unexpected error message: %q", entry.ErrorMessage)
	}
	if entry.Information != "ERROR" {
		t.Errorf("unexpected level: %q", entry.Information)
	}
}
