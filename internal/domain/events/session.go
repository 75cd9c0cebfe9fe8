package events

// SessionChangedPayload reflects an auth state transition.
type SessionChangedPayload struct {
	Username      string `json:"username,omitempty"`
	Authenticated bool   `json:"authenticated"`
	Initialized   bool   `json:"initialized"`
	// Timeout is nil for a full logout, true when the session expired and the
	// UI host should show the PIN screen instead of the full SSO login.
	Timeout *bool `json:"timeout,omitempty"`
}

// NewSessionChangedEvent creates a session_changed event.
func NewSessionChangedEvent(username string, authenticated, initialized bool, timeout *bool) *BaseEvent {
	return NewEvent(EventTypeSessionChanged, SessionChangedPayload{
		Username:      username,
		Authenticated: authenticated,
		Initialized:   initialized,
		Timeout:       timeout,
	})
}

// ScreenUpdatedPayload tells the UI host the active screen payload changed
// in place (nested-mode scan results, button screens).
type ScreenUpdatedPayload struct {
	Page       string `json:"page,omitempty"`
	CurrentURL string `json:"current_url,omitempty"`
}

// NewScreenUpdatedEvent creates a screen_updated event.
func NewScreenUpdatedEvent(page, currentURL string) *BaseEvent {
	return NewEvent(EventTypeScreenUpdated, ScreenUpdatedPayload{Page: page, CurrentURL: currentURL})
}

// StockMoveChangedPayload reflects a stock-move session transition.
type StockMoveChangedPayload struct {
	Started     bool `json:"started"`
	ConfirmMove bool `json:"confirm_move"`
	MasterSet   bool `json:"master_set"`
}

// NewStockMoveChangedEvent creates a stockmove_changed event.
func NewStockMoveChangedEvent(started, confirmMove, masterSet bool) *BaseEvent {
	return NewEvent(EventTypeStockMoveChanged, StockMoveChangedPayload{
		Started:     started,
		ConfirmMove: confirmMove,
		MasterSet:   masterSet,
	})
}
