package relay

import (
	"sync"

	"go.uber.org/zap"
)

// Registry tracks live connections: at most one user-class connection per
// user id, plus the set of attached admin dashboards. It is the sole owner of
// a connection for the connection's lifetime.
type Registry struct {
	logger   *zap.Logger
	notifier *Notifier

	mu     sync.RWMutex
	users  map[int64]*Connection
	admins map[string]*Connection
}

func NewRegistry(logger *zap.Logger, notifier *Notifier) *Registry {
	return &Registry{
		logger:   logger,
		notifier: notifier,
		users:    make(map[int64]*Connection),
		admins:   make(map[string]*Connection),
	}
}

// AttachUser binds the connection to the user id and claims the user's slot.
// Reattaching under the same id (a new tab, a reconnect) is expected: the
// displaced connection is force-closed rather than left as an orphan waiting
// for its transport to notice.
func (r *Registry) AttachUser(userID int64, connection *Connection) error {
	err := connection.bind(userID)
	if err != nil {
		return err
	}

	r.mu.Lock()

	displaced, ok := r.users[userID]
	if ok && displaced == connection {
		r.mu.Unlock()

		return nil
	}

	r.users[userID] = connection
	count := len(r.users)

	r.mu.Unlock()

	if ok {
		r.logger.Info("user reconnected, closing displaced connection",
			zap.Int64("userId", userID),
			zap.String("displacedConnectionId", displaced.ID()))

		displaced.Close()
	}

	r.notifier.Broadcast(r.Admins(), PresenceEvent{
		Type:   EventUserConnected,
		UserID: userID,
		Count:  count,
	})

	return nil
}

// DetachUser releases the user slot held by this connection. It is a no-op
// for connections that never identified or that were already displaced by a
// newer connection for the same user id.
func (r *Registry) DetachUser(connection *Connection) {
	userID, bound := connection.UserID()
	if !bound {
		return
	}

	r.mu.Lock()

	current, ok := r.users[userID]
	if !ok || current != connection {
		r.mu.Unlock()

		return
	}

	delete(r.users, userID)
	count := len(r.users)

	r.mu.Unlock()

	r.notifier.Broadcast(r.Admins(), PresenceEvent{
		Type:   EventUserDisconnected,
		UserID: userID,
		Count:  count,
	})
}

func (r *Registry) AttachAdmin(connection *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.admins[connection.ID()] = connection
}

func (r *Registry) DetachAdmin(connection *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.admins, connection.ID())
}

// LookupUser is a pure lookup. A missing id is not an error, it just means
// the recipient is offline.
func (r *Registry) LookupUser(userID int64) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connection, ok := r.users[userID]

	return connection, ok
}

func (r *Registry) Admins() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	admins := make([]*Connection, 0, len(r.admins))
	for _, connection := range r.admins {
		admins = append(admins, connection)
	}

	return admins
}

// UserCount reports the number of distinct identified users currently
// attached.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users)
}
