package scan

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/warelink/scangate/internal/backend"
	"github.com/warelink/scangate/internal/domain"
	"github.com/warelink/scangate/internal/domain/events"
	"github.com/warelink/scangate/internal/domain/ports"
	"github.com/warelink/scangate/internal/store"
	"github.com/warelink/scangate/internal/telemetry"
)

// backSentinel is the scanned text (and echoed response barcode) that means
// "go back". Matching is case-insensitive.
const backSentinel = "cmd.back"

// printIntent marks a print-label command; its success toast is suppressed.
const printIntent = "CMD.NONSTOCK?op=print"

// Backend is the endpoint surface the interpreter dispatches to.
type Backend interface {
	Scan(ctx context.Context, userName, page, barcode string) (*backend.ScreenResult, error)
	GetDockData(ctx context.Context, username, search string) (json.RawMessage, error)
	GetTrackingData(ctx context.Context, username, trackingNum string) (*backend.ScreenResult, error)
	GetStockMoveDetail(ctx context.Context, userName string) (*backend.StockMoveDetail, error)
}

// Event is one scan input. Empty fields are resolved from the store.
type Event struct {
	UserName    string `json:"userName,omitempty"`
	Page        string `json:"page,omitempty"`
	Barcode     string `json:"barcode"`
	CurrentPage string `json:"currentPage,omitempty"`
}

// Interpreter is the scan state machine.
type Interpreter struct {
	client    Backend
	store     *store.Store
	hub       ports.EventHub
	telemetry *telemetry.Reporter
}

// NewInterpreter creates a scan interpreter.
func NewInterpreter(client Backend, st *store.Store, hub ports.EventHub, reporter *telemetry.Reporter) *Interpreter {
	return &Interpreter{client: client, store: st, hub: hub, telemetry: reporter}
}

// Scan interprets one scan event. Exactly one outcome happens: back
// navigation, specialized dispatch, or a generic scan call whose response is
// classified into navigate / in-place update / error.
func (i *Interpreter) Scan(ctx context.Context, ev Event) {
	ev = i.resolve(ev)
	if ev.Barcode == "" {
		i.fail(ctx, domain.FormatUserError(domain.ErrEmptyBarcode))
		return
	}

	i.setLoading(ctx, true)
	defer i.setLoading(ctx, false)

	mode := Mode(ev.CurrentPage)
	log.Debug().Str("barcode", ev.Barcode).Str("mode", string(mode)).Msg("scan dispatched")

	// Back shortcut: no network call unless the mode handles the sentinel
	// itself.
	if strings.EqualFold(ev.Barcode, backSentinel) && !mode.InterceptsBack() {
		i.goBack(ctx)
		return
	}

	switch mode.DispatchKind() {
	case DispatchDockToStock:
		// Dock-to-stock stores its payload unconditionally; the work list
		// endpoint has no error envelope.
		list, err := i.client.GetDockData(ctx, ev.UserName, ev.Barcode)
		if err != nil {
			i.reportScanError(ev, err)
			i.fail(ctx, domain.FormatUserError(err))
			return
		}
		if ctx.Err() != nil {
			return
		}
		i.store.SetDockList(list)
		i.hub.Publish(events.NewScreenUpdatedEvent(string(ModeDockToStock), i.store.Global().CurrentURL))

	case DispatchSecurityCheck:
		resp, err := i.client.GetTrackingData(ctx, ev.UserName, ev.Barcode)
		if err != nil {
			i.reportScanError(ev, err)
			i.fail(ctx, domain.FormatUserError(err))
			return
		}
		i.classify(ctx, ev, mode, resp)

	default:
		page := ev.Page
		if mode == ModeStockMove {
			page = string(ModeStockMove)
		}
		resp, err := i.client.Scan(ctx, ev.UserName, page, ev.Barcode)
		if err != nil {
			i.reportScanError(ev, err)
			i.fail(ctx, domain.FormatUserError(err))
			return
		}
		i.classify(ctx, ev, mode, resp)
	}
}

// classify applies the uniform response classification. A cancelled context
// means a newer task in the same category superseded this one; the response
// is discarded without touching the store or publishing events.
func (i *Interpreter) classify(ctx context.Context, ev Event, mode Mode, resp *backend.ScreenResult) {
	if ctx.Err() != nil {
		return
	}

	switch {
	case resp.IsError():
		i.classifyError(ctx, ev, mode, resp)

	case strings.EqualFold(resp.Barcode, backSentinel) && resp.ExtraInfo == "":
		// The backend echoed the sentinel with nothing to render: implicit
		// back. Nested workflow state does not survive it.
		i.store.ResetStockMove()
		i.store.SetDockList(nil)
		i.goBack(ctx)

	case mode.Nested():
		i.commitNestedScreen(ctx, mode, resp)

	case mode == ModeStockMove:
		i.refreshStockMove(ctx, ev, resp)

	default:
		i.store.SetBarcodeResult(resp)
		if !strings.Contains(ev.Barcode, printIntent) {
			i.store.SetMessage(domain.MsgScannedOK)
			i.hub.Publish(events.NewMessageEvent(domain.MsgScannedOK))
		}
		// Some generic results declare a special page of their own and the
		// following scans must be interpreted against it.
		if resp.Page == "ACCESSCONTROL" || resp.Page == "ITEMINFORMATION" {
			i.store.SetLocalPage(resp.Page)
		}
		i.hub.Publish(events.NewEvent(events.EventTypeScanResult, resp))
		i.hub.Publish(events.NewNavigateEvent(events.ScreenScanDetail))
	}
}

// classifyError surfaces a declared backend error. ExtraInfo accompanying
// the error is still rendered depending on the mode.
func (i *Interpreter) classifyError(ctx context.Context, ev Event, mode Mode, resp *backend.ScreenResult) {
	if resp.ExtraInfo != "" {
		switch {
		case mode.NavigatesOnErrorExtra():
			i.store.SetBarcodeResult(resp)
			i.hub.Publish(events.NewEvent(events.EventTypeScanResult, resp))
			i.hub.Publish(events.NewNavigateEvent(events.ScreenScanDetail))

		case mode.StoresErrorExtraInPlace():
			i.commitNestedScreen(ctx, mode, resp)
		}
	}

	i.telemetry.Error("Scan rejected", nil, telemetry.Meta{
		EventType: "scan",
		Barcode:   ev.Barcode,
		Page:      string(mode),
	})
	i.fail(ctx, []string{resp.ErrText, resp.ErrDetail})
}

// commitNestedScreen stores the response as the active nested screen.
func (i *Interpreter) commitNestedScreen(ctx context.Context, mode Mode, resp *backend.ScreenResult) {
	payload, err := json.Marshal(resp)
	if err != nil {
		i.fail(ctx, domain.InvalidResponseMessage())
		return
	}
	i.store.SetScreenPayload(payload)
	if mode.SetsLocalPage() && resp.Page != "" {
		i.store.SetLocalPage(resp.Page)
	}
	i.hub.Publish(events.NewScreenUpdatedEvent(resp.Page, i.store.Global().CurrentURL))
}

// refreshStockMove re-fetches the authoritative move detail instead of
// trusting the scan response. Confirmation text from the scan response is
// merged only while a confirm is pending.
func (i *Interpreter) refreshStockMove(ctx context.Context, ev Event, resp *backend.ScreenResult) {
	detail, err := i.client.GetStockMoveDetail(ctx, ev.UserName)
	if err != nil {
		i.fail(ctx, domain.FormatUserError(err))
		return
	}
	if ctx.Err() != nil {
		return
	}

	extra := ""
	if i.store.StockMove().ConfirmMove {
		extra = resp.ExtraInfo
	}
	i.store.SetStockMoveDetail(detail, extra)

	sm := i.store.StockMove()
	i.hub.Publish(events.NewStockMoveChangedEvent(sm.Started, sm.ConfirmMove, sm.MasterLocSet))
}

// goBack pops history and tells UI hosts to pop their visual stack.
func (i *Interpreter) goBack(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	current, _ := i.store.PopHistory()
	i.hub.Publish(events.NewNavigateBackEvent(current))
}

// resolve fills event fields the UI host left empty from current state.
func (i *Interpreter) resolve(ev Event) Event {
	g := i.store.Global()

	if ev.UserName == "" {
		ev.UserName = i.store.Auth().Username
	}
	if ev.CurrentPage == "" {
		ev.CurrentPage = g.LocalPage
		if ev.CurrentPage == "" {
			ev.CurrentPage = g.GlobalPage
		}
		if ev.CurrentPage == "" {
			ev.CurrentPage = lastSegment(g.CurrentURL)
		}
	}
	if ev.Page == "" {
		if g.BarcodeResult != nil {
			ev.Page = g.BarcodeResult.Page
		}
		if ev.Page == "" {
			ev.Page = i.store.Auth().CurrentPage
		}
	}
	return ev
}

// fail records the user-facing message pair. A superseded task's context is
// already cancelled, so its failure is dropped unseen.
func (i *Interpreter) fail(ctx context.Context, messages []string) {
	if ctx.Err() != nil {
		return
	}
	i.store.SetScanError(messages)
	i.hub.Publish(events.NewErrorEvent(messages))
}

func (i *Interpreter) setLoading(ctx context.Context, loading bool) {
	if ctx.Err() != nil {
		return
	}
	i.store.SetLoading(loading)
	i.hub.Publish(events.NewLoadingEvent(loading))
}

func (i *Interpreter) reportScanError(ev Event, err error) {
	i.telemetry.Error("Scan failed", err, telemetry.Meta{
		EventType: "scan",
		Barcode:   ev.Barcode,
		Page:      ev.CurrentPage,
	})
}

// lastSegment returns the final path segment of a URL.
func lastSegment(url string) string {
	if url == "" {
		return ""
	}
	trimmed := strings.TrimRight(url, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
