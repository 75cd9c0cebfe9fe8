package events

// Well-known screen names understood by UI hosts.
const (
	ScreenScanDetail = "ScanDetailScreen"
	ScreenLogin      = "LoginScreen"
	ScreenChangePin  = "ChangePinScreen"
)

// NavigatePayload instructs the UI host to show a screen.
type NavigatePayload struct {
	Screen string            `json:"screen"`
	Param  map[string]string `json:"param,omitempty"`
}

// NewNavigateEvent creates a navigate event for the given screen.
func NewNavigateEvent(screen string) *BaseEvent {
	return NewEvent(EventTypeNavigate, NavigatePayload{Screen: screen})
}

// NewNavigateEventWithParam creates a navigate event carrying screen parameters.
func NewNavigateEventWithParam(screen string, param map[string]string) *BaseEvent {
	return NewEvent(EventTypeNavigate, NavigatePayload{Screen: screen, Param: param})
}

// NavigateBackPayload instructs the UI host to pop its visual stack. The
// logical history has already been popped by the time this is published.
type NavigateBackPayload struct {
	CurrentURL string `json:"current_url,omitempty"`
}

// NewNavigateBackEvent creates a navigate_back event.
func NewNavigateBackEvent(currentURL string) *BaseEvent {
	return NewEvent(EventTypeNavigateBack, NavigateBackPayload{CurrentURL: currentURL})
}

// LoadingPayload toggles the UI host's busy indicator.
type LoadingPayload struct {
	Loading bool `json:"loading"`
}

// NewLoadingEvent creates a loading event.
func NewLoadingEvent(loading bool) *BaseEvent {
	return NewEvent(EventTypeLoading, LoadingPayload{Loading: loading})
}

// ErrorPayload carries a user-facing message list for inline rendering.
type ErrorPayload struct {
	Messages []string `json:"messages"`
}

// NewErrorEvent creates an error event from a message list.
func NewErrorEvent(messages []string) *BaseEvent {
	return NewEvent(EventTypeError, ErrorPayload{Messages: messages})
}

// MessagePayload carries a dismissable notification text.
type MessagePayload struct {
	Text string `json:"text"`
}

// NewMessageEvent creates a message event.
func NewMessageEvent(text string) *BaseEvent {
	return NewEvent(EventTypeMessage, MessagePayload{Text: text})
}
