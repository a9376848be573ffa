package relay

import (
	"encoding/json"
	"strconv"

	"go.uber.org/zap"
)

const (
	SignalTyping = "typing"
	SignalCall   = "call"
)

// Signal is a transient event (typing indicator, call signaling). It uses the
// same addressing scheme as messages but never touches the message store.
type Signal struct {
	Type    string          `json:"type"`
	UserID  int64           `json:"userId"`
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SignalRelay delivers signals fire-and-forget. Absence of the recipient is
// silently ignored.
type SignalRelay struct {
	logger   *zap.Logger
	registry *Registry
	notifier *Notifier
}

func NewSignalRelay(logger *zap.Logger, registry *Registry, notifier *Notifier) *SignalRelay {
	return &SignalRelay{
		logger:   logger,
		registry: registry,
		notifier: notifier,
	}
}

func (r *SignalRelay) Relay(signal Signal) {
	if signal.To == "" {
		return
	}

	if signal.To == AddressAdmin {
		r.notifier.Broadcast(r.registry.Admins(), signal)

		return
	}

	recipientID, err := strconv.ParseInt(signal.To, 10, 64)
	if err != nil {
		return
	}

	connection, ok := r.registry.LookupUser(recipientID)
	if !ok {
		return
	}

	_ = r.notifier.Send(connection, signal)
}
