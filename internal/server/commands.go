package server

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/warelink/scangate/internal/auth"
	"github.com/warelink/scangate/internal/domain/events"
	"github.com/warelink/scangate/internal/domain/ports"
	"github.com/warelink/scangate/internal/erp"
	"github.com/warelink/scangate/internal/inventory"
	"github.com/warelink/scangate/internal/labels"
	"github.com/warelink/scangate/internal/scan"
	"github.com/warelink/scangate/internal/screens"
	"github.com/warelink/scangate/internal/store"
	"github.com/warelink/scangate/internal/workflow"
)

// Command is the wire format for handheld commands. A request_id makes the
// command idempotent across scanner retries.
type Command struct {
	Command   string          `json:"command"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Dispatcher routes handheld commands to the gateway workflows. Each command
// runs under a category-scoped latest-wins task, so a burst of scans only
// commits the newest result.
type Dispatcher struct {
	store     *store.Store
	hub       ports.EventHub
	auth      *auth.Manager
	scanner   *scan.Interpreter
	inventory *inventory.Workflows
	screens   *screens.Workflows
	labels    *labels.Workflows
	runner    *workflow.Runner
	dedupe    *workflow.DedupeCache
}

// NewDispatcher creates a command dispatcher.
func NewDispatcher(
	st *store.Store,
	hub ports.EventHub,
	authMgr *auth.Manager,
	scanner *scan.Interpreter,
	inv *inventory.Workflows,
	scr *screens.Workflows,
	lbl *labels.Workflows,
	runner *workflow.Runner,
	dedupe *workflow.DedupeCache,
) *Dispatcher {
	return &Dispatcher{
		store:     st,
		hub:       hub,
		auth:      authMgr,
		scanner:   scanner,
		inventory: inv,
		screens:   scr,
		labels:    lbl,
		runner:    runner,
		dedupe:    dedupe,
	}
}

// Handle processes one raw command message from a client.
func (d *Dispatcher) Handle(clientID string, message []byte) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		log.Warn().Err(err).Str("client_id", clientID).Msg("unparseable command")
		d.hub.Publish(events.NewErrorEvent([]string{"Invalid command format"}))
		return
	}

	if d.dedupe.Seen(cmd.RequestID) {
		log.Debug().Str("request_id", cmd.RequestID).Str("command", cmd.Command).Msg("duplicate command suppressed")
		return
	}

	log.Debug().
		Str("client_id", clientID).
		Str("command", cmd.Command).
		Str("request_id", cmd.RequestID).
		Msg("command received")

	d.dispatch(cmd)
}

func (d *Dispatcher) dispatch(cmd Command) {
	switch cmd.Command {
	case "scan":
		var ev scan.Event
		if !d.decode(cmd.Payload, &ev) {
			return
		}
		d.Scan(ev)

	case "back":
		d.run(workflow.CategoryScreen, func(ctx context.Context) {
			d.screens.GoBack(ctx)
		})

	case "login":
		var p struct {
			UserName      string `json:"userName"`
			Pin           string `json:"pin"`
			AzureUserName string `json:"azureUserName,omitempty"`
		}
		if !d.decode(cmd.Payload, &p) {
			return
		}
		d.run(workflow.CategoryAuth, func(ctx context.Context) {
			d.auth.LoginWithPIN(ctx, p.UserName, p.Pin, p.AzureUserName)
		})

	case "login_sso":
		var p struct {
			AccessToken string `json:"accessToken"`
		}
		if !d.decode(cmd.Payload, &p) {
			return
		}
		d.run(workflow.CategoryAuth, func(ctx context.Context) {
			d.auth.CompleteSSOLogin(ctx, p.AccessToken)
		})

	case "change_pin":
		var p struct {
			UserName string `json:"userName"`
			OldPin   string `json:"oldPin"`
			NewPin   string `json:"newPin"`
		}
		if !d.decode(cmd.Payload, &p) {
			return
		}
		d.run(workflow.CategoryAuth, func(ctx context.Context) {
			d.auth.ChangePin(ctx, p.UserName, p.OldPin, p.NewPin)
		})

	case "logout":
		d.run(workflow.CategoryAuth, func(ctx context.Context) {
			d.auth.Logout(ctx, d.username())
		})

	case "resume":
		d.run(workflow.CategoryAuth, func(ctx context.Context) {
			d.auth.OnForeground(ctx)
		})

	case "fetch_screen":
		var p struct {
			URL string `json:"url"`
		}
		if !d.decode(cmd.Payload, &p) {
			return
		}
		d.run(workflow.CategoryScreen, func(ctx context.Context) {
			d.screens.FetchScreen(ctx, d.username(), p.URL)
		})

	case "set_dispatch_env":
		var p struct {
			StationID  string `json:"stationId"`
			PartnerKey string `json:"partnerKey"`
		}
		if !d.decode(cmd.Payload, &p) {
			return
		}
		d.run(workflow.CategoryDispatch, func(ctx context.Context) {
			d.screens.SetDispatchEnv(ctx, d.username(), p.StationID, p.PartnerKey)
		})

	case "shipping_list":
		d.run(workflow.CategoryDispatch, func(ctx context.Context) {
			d.screens.FetchShippingList(ctx, d.username())
		})

	case "select_courier":
		var p struct {
			Courier string `json:"courier"`
		}
		if !d.decode(cmd.Payload, &p) {
			return
		}
		d.run(workflow.CategoryDispatch, func(ctx context.Context) {
			d.screens.SelectCourier(ctx, d.username(), p.Courier)
		})

	case "dispatch_list":
		d.run(workflow.CategoryDispatch, func(ctx context.Context) {
			d.screens.FetchDispatchList(ctx, d.username())
		})

	case "order_detail":
		var p struct {
			OrderRef string `json:"orderRef"`
		}
		if !d.decode(cmd.Payload, &p) {
			return
		}
		d.run(workflow.CategoryDispatch, func(ctx context.Context) {
			d.screens.FetchOrderDetail(ctx, d.username(), p.OrderRef)
		})

	case "stockmove_start":
		d.run(workflow.CategoryStockMove, func(ctx context.Context) {
			d.inventory.Start(ctx, d.username())
		})

	case "stockmove_qty":
		var p struct {
			Qty int `json:"qty"`
		}
		if !d.decode(cmd.Payload, &p) {
			return
		}
		d.run(workflow.CategoryStockMove, func(ctx context.Context) {
			d.inventory.SetQuantity(ctx, d.username(), p.Qty)
		})

	case "stockmove_confirm":
		var p struct {
			Text string `json:"text"`
		}
		if !d.decode(cmd.Payload, &p) {
			return
		}
		d.run(workflow.CategoryStockMove, func(ctx context.Context) {
			d.inventory.ConfirmMove(ctx, p.Text)
		})

	case "stockmove_master":
		d.run(workflow.CategoryStockMove, func(ctx context.Context) {
			d.inventory.SetMasterLocation(ctx, d.username())
		})

	case "stockmove_release":
		d.run(workflow.CategoryStockMove, func(ctx context.Context) {
			d.inventory.ReleaseMasterLocation(ctx, d.username())
		})

	case "stockmove_cancel":
		d.run(workflow.CategoryStockMove, func(ctx context.Context) {
			d.inventory.Cancel(ctx, d.username())
		})

	case "dock_list":
		var p struct {
			Search string `json:"search"`
		}
		if !d.decode(cmd.Payload, &p) {
			return
		}
		d.run(workflow.CategoryScan, func(ctx context.Context) {
			d.inventory.RefreshDockList(ctx, d.username(), p.Search)
		})

	case "book_tracking":
		var p struct {
			PoNum          string `json:"poNum"`
			PoDate         string `json:"poDate"`
			TrackingNumber string `json:"trackingNumber"`
		}
		if !d.decode(cmd.Payload, &p) {
			return
		}
		d.run(workflow.CategoryScan, func(ctx context.Context) {
			d.inventory.BookTracking(ctx, d.username(), p.PoNum, p.PoDate, p.TrackingNumber)
		})

	case "print_label":
		var req erp.PrintRequest
		if !d.decode(cmd.Payload, &req) {
			return
		}
		d.run(workflow.CategoryPrint, func(ctx context.Context) {
			d.labels.PrintEscalation(ctx, &req)
		})

	case "print_misc":
		var p struct {
			OrderRef  string `json:"orderRef"`
			StationID string `json:"stationId"`
		}
		if !d.decode(cmd.Payload, &p) {
			return
		}
		d.run(workflow.CategoryPrint, func(ctx context.Context) {
			d.labels.PrintMisc(ctx, p.OrderRef, p.StationID)
		})

	default:
		log.Warn().Str("command", cmd.Command).Msg("unknown command")
		d.hub.Publish(events.NewErrorEvent([]string{"Unknown command: " + cmd.Command}))
	}
}

// Scan runs one scan event. Exposed for the HTTP scan endpoint, which wedge
// scanners use instead of the WebSocket.
func (d *Dispatcher) Scan(ev scan.Event) {
	d.run(workflow.CategoryScan, func(ctx context.Context) {
		d.scanner.Scan(ctx, ev)
	})
}

// run executes fn under the category's latest-wins slot. The runner cancels
// a superseded task's context before starting the replacement, and every
// workflow checks that context before committing store writes or publishing
// events, so only the newest task's outcome is ever visible.
func (d *Dispatcher) run(category string, fn func(ctx context.Context)) {
	d.runner.Run(context.Background(), category, func(ctx context.Context, commit func(func())) {
		fn(ctx)
	})
}

func (d *Dispatcher) decode(payload json.RawMessage, v any) bool {
	if len(payload) == 0 {
		d.hub.Publish(events.NewErrorEvent([]string{"Missing command payload"}))
		return false
	}
	if err := json.Unmarshal(payload, v); err != nil {
		log.Warn().Err(err).Msg("bad command payload")
		d.hub.Publish(events.NewErrorEvent([]string{"Invalid command payload"}))
		return false
	}
	return true
}

func (d *Dispatcher) username() string {
	return d.store.Auth().Username
}
