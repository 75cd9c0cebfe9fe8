// Package store holds the process-wide session state. All mutation happens
// through typed transition methods on Store, each atomic under one mutex, so
// readers never observe a half-applied transition.
package store

import (
	"encoding/json"

	"github.com/warelink/scangate/internal/backend"
)

// AuthState tracks the operator's authentication lifecycle.
type AuthState struct {
	Username        string
	HomeScreen      json.RawMessage
	CurrentPage     string
	IsAuthenticated bool
	IsInitialized   bool

	// Timeout is tri-state: nil means a fresh login is required, true means
	// the session timed out and only the PIN screen is needed, false means
	// the operator is active.
	Timeout *bool

	Error   []string
	Message string
	Loading bool
}

// GlobalState tracks navigation, scan results and reference data.
type GlobalState struct {
	UserState     *backend.UserState
	Locations     []backend.Location
	Partners      []backend.Partner
	BarcodeResult *backend.ScreenResult

	Message string
	Error   []string

	// GlobalPage and LocalPage are mode tags overriding which logical mode
	// the next scan is interpreted against. LocalPage wins when both are set.
	GlobalPage string
	LocalPage  string

	ScreenPayload json.RawMessage
	CurrentURL    string
	History       []string
	Loading       bool
}

// StockMoveState is the nested stock-move state machine.
type StockMoveState struct {
	Started       bool
	Detail        *backend.StockMoveDetail
	ExtraInfo     string
	ConfirmMove   bool
	MasterLocSet  bool
	MasterLocText string
}

// DockState holds the dock-to-stock work list.
type DockState struct {
	List json.RawMessage
}

// ShippingState holds courier and dispatch reference data.
type ShippingState struct {
	Couriers    []string
	Orders      []backend.DispatchOrder
	OrderDetail *backend.OrderDetail
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
