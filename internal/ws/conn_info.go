package ws

import "time"

// ConnInfo identifies a websocket connection for eventing and cleanup.
type ConnInfo struct {
	ConnID      string
	UserID      int64
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
