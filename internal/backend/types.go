package backend

import "encoding/json"

// ScreenResult is the envelope returned by the scan and tracking endpoints.
// Success payloads embed page/action/param/ref plus an optional HTML fragment
// in ExtraInfo; error payloads carry ErrText/ErrDetail instead.
type ScreenResult struct {
	Page      string `json:"page,omitempty"`
	Action    string `json:"action,omitempty"`
	Param     string `json:"param,omitempty"`
	Ref       string `json:"ref,omitempty"`
	Barcode   string `json:"barcode,omitempty"`
	ExtraInfo string `json:"extraInfo,omitempty"`
	CommonCSS string `json:"commonCss,omitempty"`
	ErrText   string `json:"errText,omitempty"`
	ErrDetail string `json:"errDetail,omitempty"`
}

// IsError reports whether the backend declared an error in the payload.
func (r *ScreenResult) IsError() bool {
	return r.ErrText != "" || r.ErrDetail != ""
}

// LoginResult is the inner result object of login, change-PIN and screen-data
// responses.
type LoginResult struct {
	Username    string `json:"username,omitempty"`
	CurrentPage string `json:"currentPage,omitempty"`
	TimeoutMins int    `json:"timeoutMins,omitempty"`
	Info        string `json:"info,omitempty"`
	ErrorText   string `json:"errorText,omitempty"`
	ErrorDetail string `json:"errorDetail,omitempty"`
}

// LoginResponse is returned by Login, LoginWithoutPin and ChangePin. Buttons
// holds the home-screen definition verbatim; the gateway never inspects it.
type LoginResponse struct {
	Result  *LoginResult    `json:"result"`
	Buttons json.RawMessage `json:"buttons,omitempty"`
}

// ScreenData is returned by GetScreenData: the declared current page plus an
// opaque button/HTML screen definition.
type ScreenData struct {
	Result  *LoginResult    `json:"result"`
	Buttons json.RawMessage `json:"buttons,omitempty"`
}

// UserState describes the operator's station/partner context.
type UserState struct {
	Username  string `json:"username"`
	StationID string `json:"stationid"`
	Partner   string `json:"partner,omitempty"`
	AdminMode bool   `json:"adminMode,omitempty"`
}

// Location is one entry of the station location list.
type Location struct {
	StationID   string `json:"stationID"`
	Description string `json:"description,omitempty"`
}

// Partner is one entry of the dispatch partner list.
type Partner struct {
	PartnerKey string `json:"partnerKey"`
	Name       string `json:"name,omitempty"`
}

type locationListResponse struct {
	Locations []Location `json:"locations"`
}

type partnerListResponse struct {
	Partners []Partner `json:"partners"`
}

// StockMoveDetail is the current source/sku/qty/destination proposal of an
// in-flight stock move.
type StockMoveDetail struct {
	FromLocation string `json:"fromLoc,omitempty"`
	ToLocation   string `json:"toLoc,omitempty"`
	SKU          string `json:"sku,omitempty"`
	Quantity     int    `json:"qty,omitempty"`
	Action       string `json:"action,omitempty"`
	ErrText      string `json:"errText,omitempty"`
	ErrDetail    string `json:"errDetail,omitempty"`
}

// MoveResult is returned by the master-location and cancel endpoints. The
// Action field carries the state sentinel (MOVECOMPLETE, MOVECANCELLED).
type MoveResult struct {
	Action    string `json:"action"`
	ErrText   string `json:"errText,omitempty"`
	ErrDetail string `json:"errDetail,omitempty"`
}

// Stock move action sentinels declared by the backend.
const (
	ActionMoveComplete  = "MOVECOMPLETE"
	ActionMoveCancelled = "MOVECANCELLED"
)

// ShippingList is the courier list for the dispatch environment.
type ShippingList struct {
	Couriers []string `json:"couriers"`
}

// DispatchList holds pending dispatch orders for the operator.
type DispatchList struct {
	Orders []DispatchOrder `json:"orders"`
}

// DispatchOrder is one pending dispatch entry.
type DispatchOrder struct {
	OrderRef   string `json:"orderRef"`
	InvoiceNum string `json:"invoiceNum,omitempty"`
	Courier    string `json:"courier,omitempty"`
	Status     string `json:"status,omitempty"`
}

// OrderDetail is the full detail of a single order.
type OrderDetail struct {
	OrderRef   string          `json:"orderRef"`
	InvoiceNum string          `json:"invoiceNum,omitempty"`
	Courier    string          `json:"courier,omitempty"`
	Lines      json.RawMessage `json:"lines,omitempty"`
}

// LogEntry is a remote telemetry record. Field names mirror the backend's
// logging endpoint contract.
type LogEntry struct {
	Username     string          `json:"username"`
	Device       DeviceInfo      `json:"device"`
	UserState    *UserState      `json:"userState,omitempty"`
	Information  string          `json:"information"`
	Message      string          `json:"message"`
	EventType    string          `json:"eventType"`
	ScreenName   string          `json:"screenName,omitempty"`
	URL          string          `json:"url,omitempty"`
	MenuItem     string          `json:"menuItem,omitempty"`
	AuthMethod   string          `json:"authMethod,omitempty"`
	Barcode      string          `json:"barcode,omitempty"`
	Page         string          `json:"page,omitempty"`
	StatusCode   int             `json:"statusCode,omitempty"`
	Response     json.RawMessage `json:"response,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	ErrorName    string          `json:"errorName,omitempty"`
	ErrorDetails string          `json:"errorDetails,omitempty"`
}

// DeviceInfo identifies the gateway host in telemetry records.
type DeviceInfo struct {
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platformVersion,omitempty"`
	DeviceName      string `json:"deviceName,omitempty"`
}
