package relay

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Notifier owns the send primitive towards admin dashboards. Broadcast
// failures are isolated per recipient: a dead or saturated admin connection
// never aborts delivery to the remaining ones, and pruning is left to the
// transport's own close handling.
type Notifier struct {
	logger *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{
		logger: logger,
	}
}

func (n *Notifier) Send(connection *Connection, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	err = n.Push(connection, payload)
	if err != nil {
		return err
	}

	return nil
}

// Push enqueues a pre-marshaled payload. Failures are logged and returned,
// never escalated past the caller.
func (n *Notifier) Push(connection *Connection, payload []byte) error {
	err := connection.Enqueue(payload)
	if err != nil {
		n.logger.Warn("failed to push to connection",
			zap.String("connectionId", connection.ID()),
			zap.String("class", string(connection.Class())),
			zap.Error(err))

		return err
	}

	return nil
}

func (n *Notifier) Broadcast(connections []*Connection, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		n.logger.Error("failed to marshal broadcast payload", zap.Error(err))

		return
	}

	for _, connection := range connections {
		// Per-recipient isolation: errors are already logged by Push.
		_ = n.Push(connection, payload)
	}
}
