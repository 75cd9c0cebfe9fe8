// Package backend implements the client for the warehouse REST backend.
// All endpoint wrappers are thin; response interpretation belongs to the
// scan/auth workflows.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/warelink/scangate/internal/domain"
)

// Client talks to the warehouse backend.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// NewClient creates a backend client. baseURL must not end with a slash.
func NewClient(baseURL, authHeader string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: authHeader,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Scan submits a scanned barcode against the given page context.
func (c *Client) Scan(ctx context.Context, userName, page, barcode string) (*ScreenResult, error) {
	var out ScreenResult
	err := c.post(ctx, "scan", "/Scan", map[string]string{
		"userName": userName,
		"page":     page,
		"barcode":  barcode,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetScreenData fetches a server-driven screen definition. The path is the
// server-provided resource path of the screen. A 204 means the backend no
// longer recognizes the session.
func (c *Client) GetScreenData(ctx context.Context, userName, path string) (*ScreenData, error) {
	var out ScreenData
	q := url.Values{"userName": {userName}}
	if err := c.get(ctx, "screen_data", path, q, &out); err != nil {
		return nil, err
	}
	if out.Result == nil {
		return nil, domain.ErrInvalidResponse
	}
	return &out, nil
}

// GetUserState fetches the operator's station/partner context. A 204 means
// the backend no longer recognizes the session.
func (c *Client) GetUserState(ctx context.Context, username string) (*UserState, error) {
	var out UserState
	q := url.Values{"UserName": {username}}
	if err := c.get(ctx, "user_state", "/GetUserState", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLocationList fetches the station location list.
func (c *Client) GetLocationList(ctx context.Context) ([]Location, error) {
	var out locationListResponse
	if err := c.get(ctx, "location_list", "/LocationList", nil, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

// GetPartnerList fetches the dispatch partner list.
func (c *Client) GetPartnerList(ctx context.Context) ([]Partner, error) {
	var out partnerListResponse
	if err := c.get(ctx, "partner_list", "/PartnerList", nil, &out); err != nil {
		return nil, err
	}
	return out.Partners, nil
}

// SetDispEnv sets the operator's station and partner. The backend replies
// with an empty body on success and a bare complaint string otherwise.
func (c *Client) SetDispEnv(ctx context.Context, userName, stationID, partnerKey string) (string, error) {
	body := map[string]string{
		"userName":   userName,
		"stationID":  stationID,
		"partnerKey": partnerKey,
	}
	raw, err := c.postRaw(ctx, "set_disp_env", "/SetDispEnv", body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// Login authenticates with username, PIN and the SSO account name.
func (c *Client) Login(ctx context.Context, username, pin, azureUserName string) (*LoginResponse, error) {
	return c.login(ctx, "login_pin", "/LoginPin", map[string]string{
		"username":      username,
		"pin":           pin,
		"azureUserName": azureUserName,
	})
}

// LoginWithoutPin authenticates with the SSO-derived username only.
func (c *Client) LoginWithoutPin(ctx context.Context, username string) (*LoginResponse, error) {
	return c.login(ctx, "login", "/Login", map[string]string{
		"username": username,
	})
}

// ChangePin changes the operator's PIN.
func (c *Client) ChangePin(ctx context.Context, username, pin, newPin string) (*LoginResponse, error) {
	return c.login(ctx, "change_pin", "/ChangePin", map[string]string{
		"username": username,
		"pin":      pin,
		"newpin":   newPin,
	})
}

func (c *Client) login(ctx context.Context, op, path string, body map[string]string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.post(ctx, op, path, body, &out); err != nil {
		return nil, err
	}
	if out.Result == nil {
		return nil, domain.ErrInvalidResponse
	}
	return &out, nil
}

// Logout terminates the operator's backend session.
func (c *Client) Logout(ctx context.Context, username string) error {
	return c.post(ctx, "logout", "/Logout", map[string]string{
		"username": username,
	}, nil)
}

// GetDockData fetches the dock-to-stock work list, optionally filtered.
func (c *Client) GetDockData(ctx context.Context, username, search string) (json.RawMessage, error) {
	q := url.Values{"username": {username}}
	if search != "" {
		q.Set("search", search)
	}
	var out json.RawMessage
	if err := c.get(ctx, "dock_data", "/GetDockData", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetDocDataLog books a purchase order against a tracking number.
func (c *Client) SetDocDataLog(ctx context.Context, userName, poNum, poDate, trackingNumber string) error {
	return c.post(ctx, "doc_data_log", "/SetDocDataLog", map[string]string{
		"UserName":       userName,
		"PoNum":          poNum,
		"PoDate":         poDate,
		"TrackingNumber": trackingNumber,
	}, nil)
}

// GetTrackingData resolves a security-check tracking scan.
func (c *Client) GetTrackingData(ctx context.Context, username, trackingNum string) (*ScreenResult, error) {
	q := url.Values{"username": {username}, "TrackingNum": {trackingNum}}
	var out ScreenResult
	if err := c.get(ctx, "tracking_data", "/GetTrackingData", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartStockMove opens a stock-move session for the operator.
func (c *Client) StartStockMove(ctx context.Context, userName string) (*ScreenResult, error) {
	var out ScreenResult
	if err := c.post(ctx, "start_stock_move", "/StartStockMove", map[string]string{
		"userName": userName,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetStockMoveQty records the quantity for the current stock move.
func (c *Client) SetStockMoveQty(ctx context.Context, userName string, qty int) (*ScreenResult, error) {
	var out ScreenResult
	if err := c.post(ctx, "stock_move_qty", "/SetStockMoveQty", map[string]string{
		"userName": userName,
		"qty":      strconv.Itoa(qty),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStockMoveDetail fetches the authoritative stock-move proposal.
func (c *Client) GetStockMoveDetail(ctx context.Context, userName string) (*StockMoveDetail, error) {
	q := url.Values{"userName": {userName}}
	var out StockMoveDetail
	if err := c.get(ctx, "stock_move_detail", "/GetStockMoveDetail", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetMasterLoc commits the current stock move to the master location.
func (c *Client) SetMasterLoc(ctx context.Context, userName string) (*MoveResult, error) {
	var out MoveResult
	if err := c.post(ctx, "set_master_loc", "/SetMasterLoc", map[string]string{
		"userName": userName,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMasterLoc releases the stock back to the master location.
func (c *Client) GetMasterLoc(ctx context.Context, userName string) (*MoveResult, error) {
	q := url.Values{"userName": {userName}}
	var out MoveResult
	if err := c.get(ctx, "get_master_loc", "/GetMasterLoc", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelStockMove abandons the current stock move.
func (c *Client) CancelStockMove(ctx context.Context, userName string) (*MoveResult, error) {
	var out MoveResult
	if err := c.post(ctx, "cancel_stock_move", "/CancelStockMove", map[string]string{
		"userName": userName,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetShippingList fetches the courier list for the operator.
func (c *Client) GetShippingList(ctx context.Context, userName string) (*ShippingList, error) {
	q := url.Values{"UserName": {userName}}
	var out ShippingList
	if err := c.get(ctx, "shipping_list", "/GetShippingList", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetShippingType sets the active courier for the operator.
func (c *Client) SetShippingType(ctx context.Context, userName, courierName string) error {
	return c.post(ctx, "shipping_type", "/SetShippingType", map[string]string{
		"userName":    userName,
		"courierName": courierName,
	}, nil)
}

// GetDispatchList fetches pending dispatch orders.
func (c *Client) GetDispatchList(ctx context.Context, userName string) (*DispatchList, error) {
	q := url.Values{"UserName": {userName}}
	var out DispatchList
	if err := c.get(ctx, "dispatch_list", "/GetDispatchList", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrderDetail fetches the detail of a single order.
func (c *Client) GetOrderDetail(ctx context.Context, userName, orderRef string) (*OrderDetail, error) {
	q := url.Values{"UserName": {userName}, "OrderRef": {orderRef}}
	var out OrderDetail
	if err := c.get(ctx, "order_detail", "/GetOrderDetail", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendLog ships a telemetry record to the backend. Callers treat failures as
// fire-and-forget.
func (c *Client) SendLog(ctx context.Context, entry *LogEntry) error {
	return c.post(ctx, "logging", "/Logging", entry, nil)
}

// --- transport helpers ---

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.NewBackendError(op, err)
	}
	return c.do(op, req, out)
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return domain.NewBackendError(op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return domain.NewBackendError(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, out)
}

// postRaw posts a JSON body and returns the raw response bytes.
func (c *Client) postRaw(ctx context.Context, op, path string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, domain.NewBackendError(op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, domain.NewBackendError(op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.send(op, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewStatusError(op, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.send(op, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return domain.ErrSessionInvalid
	case resp.StatusCode != http.StatusOK:
		return domain.NewStatusError(op, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewBackendError(op, err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.ErrInvalidResponse
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidResponse, op)
	}
	return nil
}

func (c *Client) send(op string, req *http.Request) (*http.Response, error) {
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("op", op).Msg("backend request failed")
		return nil, domain.NewBackendError(op, err)
	}
	return resp, nil
}
