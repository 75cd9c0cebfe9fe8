package domain

import (
	"errors"
	"fmt"
)

// Canonical user-facing message parts. Screens render these as a two-line
// inline message list, so they are kept as string slices rather than wrapped
// error types.
const (
	MsgUnexpectedError   = "Unexpected error occurred"
	MsgInvalidResponse   = "Response format is invalid or empty."
	MsgNetworkError      = "Network error: API not reachable."
	MsgScannedOK         = "Scanned successfully!"
	MsgSessionExpired    = "Session Expired"
	MsgTokenExpired      = "Your token has expired, please log in again."
	MsgSessionMissing    = "Session data is missing"
	MsgUserStateFailed   = "Unable to fetch user state"
	MsgScreenDataFailed  = "Unable to fetch screen data"
	MsgPinChanged        = "PIN changed"
	MsgResetPinSentinel  = "Reset PIN"
	MsgValueChanged      = "Value changed successfully!"
	MsgServerError       = "Server Error"
	MsgEmptyAPIResponse  = "API returned empty response. Please check backend server."
)

// InvalidResponseMessage is the uniform two-part message for a malformed or
// empty response body, identical across every call site.
func InvalidResponseMessage() []string {
	return []string{MsgUnexpectedError, MsgInvalidResponse}
}

// FormatUserError converts an internal error into the user-facing message
// list. A nil error means the transport never reached the backend.
func FormatUserError(err error) []string {
	if err == nil {
		return []string{MsgNetworkError}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return []string{fmt.Sprintf("Unexpected response status: %d", statusErr.Code)}
	}
	if errors.Is(err, ErrInvalidResponse) {
		return InvalidResponseMessage()
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return []string{MsgNetworkError}
	}
	return []string{MsgUnexpectedError, err.Error()}
}
