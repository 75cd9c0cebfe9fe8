// Package screens implements the server-driven screen workflows: fetching
// button screens, the dispatch environment and shipping/dispatch reference
// flows.
package screens

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/warelink/scangate/internal/backend"
	"github.com/warelink/scangate/internal/domain"
	"github.com/warelink/scangate/internal/domain/events"
	"github.com/warelink/scangate/internal/domain/ports"
	"github.com/warelink/scangate/internal/store"
)

// Backend is the screen/dispatch endpoint surface.
type Backend interface {
	GetScreenData(ctx context.Context, userName, path string) (*backend.ScreenData, error)
	SetDispEnv(ctx context.Context, userName, stationID, partnerKey string) (string, error)
	GetShippingList(ctx context.Context, userName string) (*backend.ShippingList, error)
	SetShippingType(ctx context.Context, userName, courierName string) error
	GetDispatchList(ctx context.Context, userName string) (*backend.DispatchList, error)
	GetOrderDetail(ctx context.Context, userName, orderRef string) (*backend.OrderDetail, error)
}

// SessionInvalidator forces session expiry when the backend disowns the
// session mid-flight.
type SessionInvalidator interface {
	SessionExpire(ctx context.Context, username string)
	RefreshUserState(ctx context.Context, username string)
}

// Workflows drives screen navigation and dispatch environment operations.
type Workflows struct {
	client  Backend
	store   *store.Store
	hub     ports.EventHub
	session SessionInvalidator
}

// NewWorkflows creates the screen workflows.
func NewWorkflows(client Backend, st *store.Store, hub ports.EventHub, session SessionInvalidator) *Workflows {
	return &Workflows{client: client, store: st, hub: hub, session: session}
}

// FetchScreen loads a server-driven screen. The URL becomes the current
// location before the request, so a failed fetch still leaves the operator
// "at" the screen they asked for. A 204 reply forces session expiry.
func (w *Workflows) FetchScreen(ctx context.Context, userName, url string) {
	w.setLoading(ctx, true)
	defer w.setLoading(ctx, false)

	w.store.PushHistory(url)

	data, err := w.client.GetScreenData(ctx, userName, url)
	if err != nil {
		if errors.Is(err, domain.ErrSessionInvalid) {
			w.fail(ctx, []string{domain.MsgUnexpectedError, domain.MsgScreenDataFailed})
			w.session.SessionExpire(ctx, userName)
			return
		}
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}

	w.store.SetScreenPayload(data.Buttons)
	w.store.SetGlobalPage(data.Result.CurrentPage)
	w.hub.Publish(events.NewScreenUpdatedEvent(data.Result.CurrentPage, url))
	log.Debug().Str("url", url).Str("page", data.Result.CurrentPage).Msg("screen fetched")
}

// GoBack pops the navigation history on behalf of a UI host back action.
func (w *Workflows) GoBack(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	current, _ := w.store.PopHistory()
	w.hub.Publish(events.NewNavigateBackEvent(current))
}

// SetDispatchEnv assigns the operator's station and partner. The backend
// answers an empty body on success and a complaint string otherwise; on
// success the user state is re-fetched to pick up the new assignment.
func (w *Workflows) SetDispatchEnv(ctx context.Context, userName, stationID, partnerKey string) {
	w.setLoading(ctx, true)
	defer w.setLoading(ctx, false)

	complaint, err := w.client.SetDispEnv(ctx, userName, stationID, partnerKey)
	if err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	if complaint != "" {
		w.fail(ctx, []string{domain.MsgUnexpectedError, complaint})
		return
	}

	w.session.RefreshUserState(ctx, userName)
	w.store.SetMessage(domain.MsgValueChanged)
	w.hub.Publish(events.NewMessageEvent(domain.MsgValueChanged))
}

// FetchShippingList loads the courier list.
func (w *Workflows) FetchShippingList(ctx context.Context, userName string) {
	w.setLoading(ctx, true)
	defer w.setLoading(ctx, false)

	list, err := w.client.GetShippingList(ctx, userName)
	if err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	w.store.SetCouriers(list.Couriers)
	w.hub.Publish(events.NewScreenUpdatedEvent("shipping", w.store.Global().CurrentURL))
}

// SelectCourier sets the active courier.
func (w *Workflows) SelectCourier(ctx context.Context, userName, courierName string) {
	w.setLoading(ctx, true)
	defer w.setLoading(ctx, false)

	if err := w.client.SetShippingType(ctx, userName, courierName); err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	w.store.SetMessage(domain.MsgValueChanged)
	w.hub.Publish(events.NewMessageEvent(domain.MsgValueChanged))
}

// FetchDispatchList loads the pending dispatch orders.
func (w *Workflows) FetchDispatchList(ctx context.Context, userName string) {
	w.setLoading(ctx, true)
	defer w.setLoading(ctx, false)

	list, err := w.client.GetDispatchList(ctx, userName)
	if err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	w.store.SetDispatchOrders(list.Orders)
	w.hub.Publish(events.NewScreenUpdatedEvent("dispatch", w.store.Global().CurrentURL))
}

// FetchOrderDetail loads a single order.
func (w *Workflows) FetchOrderDetail(ctx context.Context, userName, orderRef string) {
	w.setLoading(ctx, true)
	defer w.setLoading(ctx, false)

	detail, err := w.client.GetOrderDetail(ctx, userName, orderRef)
	if err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}
	w.store.SetOrderDetail(detail)
	w.hub.Publish(events.NewScreenUpdatedEvent("order_detail", w.store.Global().CurrentURL))
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
