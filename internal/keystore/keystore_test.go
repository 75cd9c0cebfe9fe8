package keystore

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/warelink/scangate/internal/domain"
)

func openTestStore(t *testing.T) *Keystore {
	t.Helper()
	ks, err := Open(filepath.Join(t.TempDir(), "keystore.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = ks.Close() })
	return ks
}

func TestTimeoutDefaultsFalse(t *testing.T) {
	ks := openTestStore(t)

	timedOut, err := ks.Timeout()
	if err != nil {
		t.Fatalf("Timeout failed: %v", err)
	}
	if timedOut {
		t.Error("expected default timeout=false")
	}
}

func TestTimeoutRoundTrip(t *testing.T) {
	ks := openTestStore(t)

	if err := ks.SetTimeout(true); err != nil {
		t.Fatalf("SetTimeout failed: %v", err)
	}
	timedOut, err := ks.Timeout()
	if err != nil {
		t.Fatalf("Timeout failed: %v", err)
	}
	if !timedOut {
		t.Error("expected timeout=true")
	}

	if err := ks.SetTimeout(false); err != nil {
		t.Fatalf("SetTimeout failed: %v", err)
	}
	timedOut, err = ks.Timeout()
	if err != nil {
		t.Fatalf("Timeout failed: %v", err)
	}
	if timedOut {
		t.Error("expected timeout=false")
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	ks := openTestStore(t)

	if _, err := ks.Credential(); !errors.Is(err, domain.ErrNoCredential) {
		t.Errorf("expected ErrNoCredential, got %v", err)
	}

	blob := []byte(`{"token":"abc"}`)
	if err := ks.SetCredential(blob); err != nil {
		t.Fatalf("SetCredential failed: %v", err)
	}
	got, err := ks.Credential()
	if err != nil {
		t.Fatalf("Credential failed: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Errorf("credential mismatch: %s", got)
	}

	if err := ks.ClearCredential(); err != nil {
		t.Fatalf("ClearCredential failed: %v", err)
	}
	if _, err := ks.Credential(); !errors.Is(err, domain.ErrNoCredential) {
		t.Errorf("expected ErrNoCredential after clear, got %v", err)
	}
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystore.db")

	ks, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := ks.SetTimeout(true); err != nil {
		t.Fatalf("SetTimeout failed: %v", err)
	}
	if err := ks.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ks, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = ks.Close() }()

	timedOut, err := ks.Timeout()
	if err != nil {
		t.Fatalf("Timeout failed: %v", err)
	}
	if !timedOut {
		t.Error("expected timeout flag to survive reopen")
	}
}

func TestClosedStoreRejectsAccess(t *testing.T) {
	ks := openTestStore(t)
	_ = ks.Close()

	if err := ks.SetTimeout(true); !errors.Is(err, domain.ErrKeystoreClosed) {
		t.Errorf("expected ErrKeystoreClosed, got %v", err)
	}
	if _, err := ks.Credential(); !errors.Is(err, domain.ErrKeystoreClosed) {
		t.Errorf("expected ErrKeystoreClosed, got %v", err)
	}
}
