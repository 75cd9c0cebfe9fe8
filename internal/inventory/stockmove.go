// Package inventory implements the stock-move workflows: a nested state
// machine over the backend's move endpoints (start, quantity, confirm,
// master location, cancel).
package inventory

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/warelink/scangate/internal/backend"
	"github.com/warelink/scangate/internal/domain"
	"github.com/warelink/scangate/internal/domain/events"
	"github.com/warelink/scangate/internal/domain/ports"
	"github.com/warelink/scangate/internal/store"
)

// Backend is the stock-move endpoint surface.
type Backend interface {
	StartStockMove(ctx context.Context, userName string) (*backend.ScreenResult, error)
	SetStockMoveQty(ctx context.Context, userName string, qty int) (*backend.ScreenResult, error)
	GetStockMoveDetail(ctx context.Context, userName string) (*backend.StockMoveDetail, error)
	SetMasterLoc(ctx context.Context, userName string) (*backend.MoveResult, error)
	GetMasterLoc(ctx context.Context, userName string) (*backend.MoveResult, error)
	CancelStockMove(ctx context.Context, userName string) (*backend.MoveResult, error)
	GetDockData(ctx context.Context, username, search string) (json.RawMessage, error)
	SetDocDataLog(ctx context.Context, userName, poNum, poDate, trackingNumber string) error
}

// Workflows drives stock-move and dock-to-stock operations.
type Workflows struct {
	client Backend
	store  *store.Store
	hub    ports.EventHub
}

// NewWorkflows creates the inventory workflows.
func NewWorkflows(client Backend, st *store.Store, hub ports.EventHub) *Workflows {
	return &Workflows{client: client, store: st, hub: hub}
}

// Start opens a stock-move session. Any previous proposal is discarded.
func (w *Workflows) Start(ctx context.Context, userName string) {
	w.setLoading(ctx, true)
	defer w.setLoading(ctx, false)

	resp, err := w.client.StartStockMove(ctx, userName)
	if err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	if resp.IsError() {
		w.fail(ctx, []string{resp.ErrText, resp.ErrDetail})
		return
	}

	w.store.StartStockMove(resp.ExtraInfo)
	w.publishState()
	log.Debug().Str("username", userName).Msg("stock move started")
}

// SetQuantity records the quantity for the current move and re-fetches the
// authoritative proposal.
func (w *Workflows) SetQuantity(ctx context.Context, userName string, qty int) {
	w.setLoading(ctx, true)
	defer w.setLoading(ctx, false)

	resp, err := w.client.SetStockMoveQty(ctx, userName, qty)
	if err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if resp.IsError() {
		w.fail(ctx, []string{resp.ErrText, resp.ErrDetail})
		return
	}

	detail, err := w.client.GetStockMoveDetail(ctx, userName)
	if err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	w.store.SetStockMoveDetail(detail, "")
	w.publishState()
}

// ConfirmMove flags operator confirmation; the next scan is expected to be
// the master location.
func (w *Workflows) ConfirmMove(ctx context.Context, text string) {
	if ctx.Err() != nil {
		return
	}
	w.store.SetConfirmMove(true, text)
	w.publishState()
}

// SetMasterLocation commits the move to the master location. The backend
// must answer with the MOVECOMPLETE sentinel.
func (w *Workflows) SetMasterLocation(ctx context.Context, userName string) {
	w.setLoading(ctx, true)
	defer w.setLoading(ctx, false)

	result, err := w.client.SetMasterLoc(ctx, userName)
	if err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	if result.Action != backend.ActionMoveComplete {
		w.fail(ctx, []string{domain.MsgUnexpectedError, "Unable to set master location."})
		return
	}

	w.store.SetMasterLoc(true)
	w.publishState()
}

// ReleaseMasterLocation returns the stock to the master location and starts
// a fresh move.
func (w *Workflows) ReleaseMasterLocation(ctx context.Context, userName string) {
	w.setLoading(ctx, true)

	result, err := w.client.GetMasterLoc(ctx, userName)
	if err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		w.setLoading(ctx, false)
		return
	}
	if ctx.Err() != nil {
		return
	}
	if result.Action != backend.ActionMoveComplete {
		w.fail(ctx, []string{domain.MsgUnexpectedError, "Unable to get master location."})
		w.setLoading(ctx, false)
		return
	}

	w.store.ClearMoveProposal()
	w.setLoading(ctx, false)
	w.Start(ctx, userName)
}

// Cancel abandons the current move and starts a fresh one. The backend must
// answer with the MOVECANCELLED sentinel.
func (w *Workflows) Cancel(ctx context.Context, userName string) {
	w.setLoading(ctx, true)

	result, err := w.client.CancelStockMove(ctx, userName)
	if err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		w.setLoading(ctx, false)
		return
	}
	if ctx.Err() != nil {
		return
	}
	if result.Action != backend.ActionMoveCancelled {
		w.fail(ctx, []string{domain.MsgUnexpectedError, "Unable to cancel stock move."})
		w.setLoading(ctx, false)
		return
	}

	w.store.ClearMoveProposal()
	w.setLoading(ctx, false)
	w.Start(ctx, userName)
}

// RefreshDockList fetches the dock-to-stock work list.
func (w *Workflows) RefreshDockList(ctx context.Context, userName, search string) {
	w.setLoading(ctx, true)
	defer w.setLoading(ctx, false)

	list, err := w.client.GetDockData(ctx, userName, search)
	if err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	w.store.SetDockList(list)
	w.hub.Publish(events.NewScreenUpdatedEvent("dock_to_stock", w.store.Global().CurrentURL))
}

// BookTracking books a purchase order against a tracking number in the
// dock-to-stock flow.
func (w *Workflows) BookTracking(ctx context.Context, userName, poNum, poDate, trackingNumber string) {
	w.setLoading(ctx, true)
	defer w.setLoading(ctx, false)

	if err := w.client.SetDocDataLog(ctx, userName, poNum, poDate, trackingNumber); err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	w.store.SetMessage(domain.MsgValueChanged)
	w.hub.Publish(events.NewMessageEvent(domain.MsgValueChanged))
}

func (w *Workflows) publishState() {
	sm := w.store.StockMove()
	w.hub.Publish(events.NewStockMoveChangedEvent(sm.Started, sm.ConfirmMove, sm.MasterLocSet))
}

// fail records the user-facing message pair. A cancelled context means the
// task was superseded by a newer one in its category; its outcome is dropped
// unseen.
func (w *Workflows) fail(ctx context.Context, messages []string) {
	if ctx.Err() != nil {
		return
	}
	w.store.SetScanError(messages)
	w.hub.Publish(events.NewErrorEvent(messages))
}

func (w *Workflows) setLoading(ctx context.Context, loading bool) {
	if ctx.Err() != nil {
		return
	}
	w.store.SetLoading(loading)
	w.hub.Publish(events.NewLoadingEvent(loading))
}
