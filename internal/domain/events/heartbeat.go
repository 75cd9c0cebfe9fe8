package events

// HeartbeatPayload is the application-level liveness beacon. Handhelds use
// it to detect a dead gateway faster than TCP keepalive would.
type HeartbeatPayload struct {
	Seq           int64 `json:"seq"`
	Clients       int   `json:"clients"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent(seq int64, clients int, uptimeSeconds int64) *BaseEvent {
	return NewEvent(EventTypeHeartbeat, HeartbeatPayload{
		Seq:           seq,
		Clients:       clients,
		UptimeSeconds: uptimeSeconds,
	})
}
