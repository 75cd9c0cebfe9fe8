// Package labels implements the escalation and miscellaneous label print
// workflows against the ERP print service.
package labels

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/warelink/scangate/internal/domain"
	"github.com/warelink/scangate/internal/domain/events"
	"github.com/warelink/scangate/internal/domain/ports"
	"github.com/warelink/scangate/internal/erp"
	"github.com/warelink/scangate/internal/store"
)

// Printer is the ERP print surface.
type Printer interface {
	PrintLabel(ctx context.Context, req *erp.PrintRequest) (*erp.PrintResult, error)
	PrintMiscLabel(ctx context.Context, req *erp.PrintRequest) (*erp.PrintResult, error)
}

// Workflows drives label printing.
type Workflows struct {
	printer Printer
	store   *store.Store
	hub     ports.EventHub
}

// NewWorkflows creates the label workflows.
func NewWorkflows(printer Printer, st *store.Store, hub ports.EventHub) *Workflows {
	return &Workflows{printer: printer, store: st, hub: hub}
}

// PrintEscalation prints (or reprints) a courier label for an escalated
// order. A rejected job surfaces the ERP's own error text.
func (w *Workflows) PrintEscalation(ctx context.Context, req *erp.PrintRequest) {
	w.store.ClearMessage()
	w.setLoading(ctx, true)
	defer w.setLoading(ctx, false)

	result, err := w.printer.PrintLabel(ctx, req)
	if err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if result.Error != "" {
		w.fail(ctx, []string{result.Error})
		return
	}

	var msg string
	if req.ForceNewLabel {
		msg = fmt.Sprintf("New label has been printed and sent to %s", req.StationID)
	} else {
		msg = fmt.Sprintf("Label has been reprinted and sent to %s", req.StationID)
	}
	w.succeed(ctx, msg)
	log.Debug().Str("order_ref", req.OrderRef).Str("station", req.StationID).
		Bool("force_new", req.ForceNewLabel).Msg("escalation label printed")
}

// PrintMisc prints a miscellaneous label for an order reference.
func (w *Workflows) PrintMisc(ctx context.Context, orderRef, stationID string) {
	w.store.ClearMessage()
	w.setLoading(ctx, true)
	defer w.setLoading(ctx, false)

	req := &erp.PrintRequest{OrderRef: orderRef, StationID: stationID}
	result, err := w.printer.PrintMiscLabel(ctx, req)
	if err != nil {
		w.fail(ctx, domain.FormatUserError(err))
		return
	}
	if result.Error != "" {
		w.fail(ctx, []string{result.Error})
		return
	}

	w.succeed(ctx, fmt.Sprintf("Label has been printed and sent to %s", stationID))
	log.Debug().Str("order_ref", orderRef).Str("station", stationID).Msg("misc label printed")
}

// succeed, fail and setLoading drop their writes once the context is
// cancelled: a cancelled task was superseded by a newer print in the same
// category and its outcome must not reach the UI.
func (w *Workflows) succeed(ctx context.Context, msg string) {
	if ctx.Err() != nil {
		return
	}
	w.store.SetMessage(msg)
	w.hub.Publish(events.NewMessageEvent(msg))
}

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
