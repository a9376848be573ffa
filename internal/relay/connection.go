package relay

import (
	"errors"
	"sync"
)

type Class string

const (
	ClassUser  Class = "user"
	ClassAdmin Class = "admin"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

const sendBufferSize = 64

// Connection is the registry's handle to one duplex transport. Outbound
// payloads are enqueued without blocking; the transport layer drains
// Outbound() from its own writer goroutine, so a slow recipient never stalls
// the event that produced the payload.
type Connection struct {
	id    string
	class Class

	mu     sync.Mutex
	userID int64
	bound  bool
	closed bool
	send   chan []byte
}

func NewConnection(id string, class Class) *Connection {
	return &Connection{
		id:    id,
		class: class,
		send:  make(chan []byte, sendBufferSize),
	}
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) Class() Class {
	return c.class
}

// UserID reports the identity bound to a user-class connection. The second
// return is false until the connection has identified itself.
func (c *Connection) UserID() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.userID, c.bound
}

// bind sets the user id exactly once. A second identification with a
// different id is a protocol violation and is refused.
func (c *Connection) bind(userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bound && c.userID != userID {
		return errors.New("connection already identified with a different user id")
	}

	c.userID = userID
	c.bound = true

	return nil
}

// Enqueue hands a payload to the connection's writer. It never blocks: a
// full buffer or a closed connection fails locally and the caller decides
// whether that is worth logging.
func (c *Connection) Enqueue(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close is idempotent and safe to call from any hook that observes
// end-of-transport, even if identification never completed.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.send)
}

// Outbound is drained by the transport's writer goroutine; it is closed when
// the connection closes.
func (c *Connection) Outbound() <-chan []byte {
	return c.send
}
