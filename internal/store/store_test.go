package store

import (
	"encoding/json"
	"testing"

	"github.com/warelink/scangate/internal/backend"
)

func TestPushHistorySkipsAdjacentDuplicate(t *testing.T) {
	s := New()

	s.PushHistory("/screen/home")
	s.PushHistory("/screen/pick")
	s.PushHistory("/screen/pick")

	g := s.Global()
	if len(g.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d: %v", len(g.History), g.History)
	}
	if g.CurrentURL != "/screen/pick" {
		t.Errorf("unexpected current URL: %q", g.CurrentURL)
	}
}

func TestPushHistoryAllowsRevisit(t *testing.T) {
	s := New()

	s.PushHistory("/screen/home")
	s.PushHistory("/screen/pick")
	s.PushHistory("/screen/home")

	g := s.Global()
	if len(g.History) != 3 {
		t.Fatalf("expected 3 history entries, got %d: %v", len(g.History), g.History)
	}
}

func TestPushHistoryClearsPayloadOnChange(t *testing.T) {
	s := New()
	s.SetScreen("/screen/home", json.RawMessage(`{"buttons":[]}`))

	s.PushHistory("/screen/pick")

	if got := s.Global().ScreenPayload; got != nil {
		t.Errorf("expected cleared payload, got %s", got)
	}
}

func TestPushHistorySameURLKeepsPayload(t *testing.T) {
	s := New()
	s.SetScreen("/screen/home", json.RawMessage(`{"buttons":[]}`))

	s.PushHistory("/screen/home")

	if got := s.Global().ScreenPayload; got == nil {
		t.Error("expected payload to survive a same-URL push")
	}
}

func TestPopHistory(t *testing.T) {
	s := New()
	s.PushHistory("/screen/home")
	s.PushHistory("/screen/pick")
	s.SetScreenPayload(json.RawMessage(`{}`))
	s.SetLocalPage("CMD.ITEMINFORMATION")
	s.SetGlobalPage("STOCKMOVE")

	current, popped := s.PopHistory()
	if !popped {
		t.Fatal("expected a pop")
	}
	if current != "/screen/home" {
		t.Errorf("expected /screen/home, got %q", current)
	}

	g := s.Global()
	if g.CurrentURL != "/screen/home" {
		t.Errorf("unexpected current URL: %q", g.CurrentURL)
	}
	if g.ScreenPayload != nil {
		t.Error("expected cleared payload after pop")
	}
	if g.LocalPage != "" || g.GlobalPage != "" {
		t.Errorf("expected cleared mode tags, got local=%q global=%q", g.LocalPage, g.GlobalPage)
	}
}

func TestPopHistoryToEmpty(t *testing.T) {
	s := New()
	s.PushHistory("/screen/home")

	current, popped := s.PopHistory()
	if !popped {
		t.Fatal("expected a pop")
	}
	if current != "" {
		t.Errorf("expected empty current URL, got %q", current)
	}

	current, popped = s.PopHistory()
	if popped {
		t.Error("expected no pop on empty stack")
	}
	if current != "" {
		t.Errorf("expected empty current URL, got %q", current)
	}
}

func TestPopHistoryOnEmptyStillClearsTags(t *testing.T) {
	s := New()
	s.SetLocalPage("CMD.ITEMINFORMATION")
	s.SetScreenPayload(json.RawMessage(`{}`))

	_, _ = s.PopHistory()

	g := s.Global()
	if g.LocalPage != "" || g.ScreenPayload != nil {
		t.Error("expected tags and payload cleared on empty pop")
	}
}

func TestLoginSuccess(t *testing.T) {
	s := New()
	s.SetAuthError([]string{"old error"})

	s.LoginSuccess("jsmith", json.RawMessage(`[{"label":"Pick"}]`), "home")

	a := s.Auth()
	if !a.IsAuthenticated || !a.IsInitialized {
		t.Error("expected authenticated and initialized")
	}
	if a.Username != "jsmith" {
		t.Errorf("unexpected username: %q", a.Username)
	}
	if a.Timeout == nil || *a.Timeout {
		t.Error("expected timeout=false after login")
	}
	if a.Error != nil {
		t.Errorf("expected cleared error, got %v", a.Error)
	}
}

func TestClearSessionWipesEverything(t *testing.T) {
	s := New()
	s.LoginSuccess("jsmith", nil, "home")
	s.PushHistory("/screen/pick")
	s.StartStockMove("<div/>")
	s.SetUserState(&backend.UserState{Username: "jsmith", StationID: "S1"})

	timedOut := true
	s.ClearSession(&timedOut)

	a := s.Auth()
	if a.IsAuthenticated {
		t.Error("expected unauthenticated")
	}
	if !a.IsInitialized {
		t.Error("expected initialized to survive session clear")
	}
	if a.Timeout == nil || !*a.Timeout {
		t.Error("expected timeout=true branch")
	}

	g := s.Global()
	if len(g.History) != 0 || g.CurrentURL != "" || g.UserState != nil {
		t.Errorf("expected global state wiped, got %+v", g)
	}
	if s.StockMove().Started {
		t.Error("expected stock move wiped")
	}
}

func TestClearSessionNilTimeoutForcesFullLogin(t *testing.T) {
	s := New()
	s.LoginSuccess("jsmith", nil, "home")

	s.ClearSession(nil)

	if got := s.Auth().Timeout; got != nil {
		t.Errorf("expected nil timeout, got %v", *got)
	}
}

func TestSetBarcodeResultClearsError(t *testing.T) {
	s := New()
	s.SetScanError([]string{"Unknown barcode"})

	s.SetBarcodeResult(&backend.ScreenResult{Page: "pick_list"})

	g := s.Global()
	if g.Error != nil {
		t.Errorf("expected cleared error, got %v", g.Error)
	}
	if g.BarcodeResult == nil || g.BarcodeResult.Page != "pick_list" {
		t.Errorf("unexpected barcode result: %+v", g.BarcodeResult)
	}
}

func TestSetScanErrorClearsMessage(t *testing.T) {
	s := New()
	s.SetMessage("Scanned successfully!")

	s.SetScanError([]string{"Unknown barcode", "Check the label and try again"})

	g := s.Global()
	if g.Message != "" {
		t.Errorf("expected cleared toast next to an error, got %q", g.Message)
	}
	if len(g.Error) != 2 {
		t.Errorf("unexpected error pair: %v", g.Error)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := New()
	s.PushHistory("/a")
	s.PushHistory("/b")

	g := s.Global()
	g.History[0] = "/mutated"

	if got := s.Global().History[0]; got != "/a" {
		t.Errorf("snapshot mutation leaked into store: %q", got)
	}
}

func TestStockMoveLifecycle(t *testing.T) {
	s := New()

	s.StartStockMove("<div>scan source</div>")
	s.SetStockMoveDetail(&backend.StockMoveDetail{FromLocation: "A-01", SKU: "SKU-7", Quantity: 2}, "<div>confirm</div>")
	s.SetConfirmMove(true, "move to master?")
	s.SetMasterLoc(true)

	sm := s.StockMove()
	if !sm.Started || !sm.ConfirmMove || !sm.MasterLocSet {
		t.Errorf("unexpected stock move state: %+v", sm)
	}
	if sm.MasterLocText != "move to master?" {
		t.Errorf("unexpected master loc text: %q", sm.MasterLocText)
	}

	s.ClearMoveProposal()
	sm = s.StockMove()
	if !sm.Started {
		t.Error("clearing the proposal must keep the session open")
	}
	if sm.Detail != nil || sm.ConfirmMove || sm.MasterLocSet || sm.MasterLocText != "" {
		t.Errorf("expected cleared proposal, got %+v", sm)
	}

	s.ResetStockMove()
	if s.StockMove().Started {
		t.Error("expected reset stock move")
	}
}
