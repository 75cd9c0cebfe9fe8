package store

import (
	"encoding/json"
	"sync"

	"github.com/warelink/scangate/internal/backend"
)

// Store is the process-wide session store. Zero value is not usable; use New.
type Store struct {
	mu        sync.RWMutex
	auth      AuthState
	global    GlobalState
	stockMove StockMoveState
	dock      DockState
	shipping  ShippingState
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// --- snapshots ---

// Auth returns a copy of the auth state.
func (s *Store) Auth() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.auth
	out.Error = cloneStrings(s.auth.Error)
	return out
}

// Global returns a copy of the global state.
func (s *Store) Global() GlobalState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.global
	out.Error = cloneStrings(s.global.Error)
	out.History = cloneStrings(s.global.History)
	return out
}

// StockMove returns a copy of the stock-move state.
func (s *Store) StockMove() StockMoveState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stockMove
}

// Dock returns a copy of the dock state.
func (s *Store) Dock() DockState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dock
}

// Shipping returns a copy of the shipping state.
func (s *Store) Shipping() ShippingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.shipping
	out.Couriers = cloneStrings(s.shipping.Couriers)
	return out
}

// --- auth transitions ---

// CompleteInit marks initialization done with the resolved timeout branch.
// It runs exactly once per process start.
func (s *Store) CompleteInit(timeout *bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth.IsInitialized = true
	s.auth.Timeout = timeout
}

// LoginSuccess commits a completed login.
func (s *Store) LoginSuccess(username string, homeScreen json.RawMessage, currentPage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := false
	s.auth = AuthState{
		Username:        username,
		HomeScreen:      homeScreen,
		CurrentPage:     currentPage,
		IsAuthenticated: true,
		IsInitialized:   true,
		Timeout:         &active,
	}
}

// SetAuthError records a login/logout/pin-change failure.
func (s *Store) SetAuthError(messages []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth.Error = cloneStrings(messages)
	s.auth.Message = ""
}

// SetAuthMessage records an informational auth message.
func (s *Store) SetAuthMessage(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth.Message = text
	s.auth.Error = nil
}

// SetAuthLoading toggles the auth busy flag.
func (s *Store) SetAuthLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth.Loading = loading
}

// ClearSession wipes all session state back to the unauthenticated baseline.
// timeout selects the re-entry branch: true keeps the PIN screen, nil forces
// a full login.
func (s *Store) ClearSession(timeout *bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = AuthState{
		IsInitialized: true,
		Timeout:       timeout,
	}
	s.global = GlobalState{}
	s.stockMove = StockMoveState{}
	s.dock = DockState{}
	s.shipping = ShippingState{}
}

// --- navigation transitions ---

// PushHistory makes url the current location. The entry is appended only
// when it differs from the current top, so the stack never holds two
// consecutive duplicates. The screen payload is cleared when the location
// changes.
func (s *Store) PushHistory(url string) {
	if url == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.global.CurrentURL != url {
		s.global.ScreenPayload = nil
	}
	s.global.CurrentURL = url

	if n := len(s.global.History); n > 0 && s.global.History[n-1] == url {
		return
	}
	s.global.History = append(s.global.History, url)
}

// PopHistory removes the top history entry and returns the new current URL.
// The screen payload and both mode tags are always cleared, even when the
// stack is already empty.
func (s *Store) PopHistory() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	popped := false
	if n := len(s.global.History); n > 0 {
		s.global.History = s.global.History[:n-1]
		popped = true
	}

	current := ""
	if n := len(s.global.History); n > 0 {
		current = s.global.History[n-1]
	}
	s.global.CurrentURL = current
	s.global.ScreenPayload = nil
	s.global.LocalPage = ""
	s.global.GlobalPage = ""
	return current, popped
}

// ResetHistory clears the stack and the current location.
func (s *Store) ResetHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.History = nil
	s.global.CurrentURL = ""
	s.global.ScreenPayload = nil
	s.global.LocalPage = ""
	s.global.GlobalPage = ""
}

// SetScreen commits a fetched screen: the URL becomes current (with a
// history push) and the payload replaces the previous one.
func (s *Store) SetScreen(url string, payload json.RawMessage) {
	s.PushHistory(url)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.ScreenPayload = payload
}

// SetScreenPayload replaces the screen payload without touching history.
// Used when a nested mode renders server-provided content in place.
func (s *Store) SetScreenPayload(payload json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.ScreenPayload = payload
}

// SetLocalPage sets the local mode tag.
func (s *Store) SetLocalPage(page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.LocalPage = page
}

// SetGlobalPage sets the global mode tag.
func (s *Store) SetGlobalPage(page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.GlobalPage = page
}

// --- scan transitions ---

// SetBarcodeResult commits a successful scan payload and clears any error.
func (s *Store) SetBarcodeResult(result *backend.ScreenResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.BarcodeResult = result
	s.global.Error = nil
}

// SetScanError records a scan failure as the user-facing message pair.
// The toast message is cleared so an error is never shown next to a stale
// success toast.
func (s *Store) SetScanError(messages []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.Error = cloneStrings(messages)
	s.global.Message = ""
}

// SetMessage sets the toast message.
func (s *Store) SetMessage(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.Message = text
}

// ClearMessage clears the toast message so an identical follow-up still
// triggers a fresh toast.
func (s *Store) ClearMessage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.Message = ""
}

// SetLoading toggles the global busy flag.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.Loading = loading
}

// --- reference data transitions ---

// SetUserState commits the operator context fetch.
func (s *Store) SetUserState(state *backend.UserState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.UserState = state
}

// SetLocations commits the location list fetch.
func (s *Store) SetLocations(locations []backend.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.Locations = locations
}

// SetPartners commits the partner list fetch.
func (s *Store) SetPartners(partners []backend.Partner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.Partners = partners
}

// --- stock move transitions ---

// StartStockMove opens a stock-move session.
func (s *Store) StartStockMove(extraInfo string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stockMove = StockMoveState{
		Started:   true,
		ExtraInfo: extraInfo,
	}
}

// SetStockMoveDetail commits the backend's current move proposal.
func (s *Store) SetStockMoveDetail(detail *backend.StockMoveDetail, extraInfo string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stockMove.Detail = detail
	s.stockMove.ExtraInfo = extraInfo
}

// SetConfirmMove flags that the operator confirmed the move and a master
// location scan is awaited. text is the confirmation prompt shown until the
// move completes.
func (s *Store) SetConfirmMove(confirmed bool, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stockMove.ConfirmMove = confirmed
	s.stockMove.MasterLocText = text
}

// SetMasterLoc marks the move as committed to the master location.
func (s *Store) SetMasterLoc(set bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stockMove.MasterLocSet = set
}

// ClearMoveProposal drops the current proposal and confirmation flags but
// keeps the stock-move session open for the next move.
func (s *Store) ClearMoveProposal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := s.stockMove.Started
	s.stockMove = StockMoveState{Started: started}
}

// ResetStockMove abandons the stock-move session.
func (s *Store) ResetStockMove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stockMove = StockMoveState{}
}

// --- dock / shipping transitions ---

// SetDockList commits the dock-to-stock work list.
func (s *Store) SetDockList(list json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dock.List = list
}

// SetCouriers commits the courier list.
func (s *Store) SetCouriers(couriers []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shipping.Couriers = cloneStrings(couriers)
}

// SetDispatchOrders commits the pending dispatch orders.
func (s *Store) SetDispatchOrders(orders []backend.DispatchOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shipping.Orders = orders
}

// SetOrderDetail commits a single order detail.
func (s *Store) SetOrderDetail(detail *backend.OrderDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shipping.OrderDetail = detail
}
