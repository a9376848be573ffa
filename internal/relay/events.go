package relay

import "github.com/chimshield/backend/internal/store"

// Outbound admin-channel frames. Every frame carries a leading type
// discriminator; message fields are flattened next to it.

const (
	EventUserConnected    = "user-connected"
	EventUserDisconnected = "user-disconnected"
	EventNewMessage       = "new-message"
	EventInitData         = "init-data"
)

type PresenceEvent struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
	Count  int    `json:"count"`
}

type MessageEvent struct {
	Type string `json:"type"`
	store.Message
}

type InitDataEvent struct {
	Type        string `json:"type"`
	ActiveUsers int    `json:"activeUsers"`
	Revenue     int64  `json:"revenue"`
	Bookings    int    `json:"bookings"`
}
