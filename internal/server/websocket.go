package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/chimshield/backend/internal/auth"
	"github.com/chimshield/backend/internal/relay"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 54 * time.Second
	maxFrameSize = 4096
)

// WebSocketServer exposes the two persistent-connection endpoints: /ws for
// end-user clients and /ws/admin for admin dashboards. The admin endpoint is
// gated before the upgrade; no core operation is reachable without an admin
// credential.
type WebSocketServer struct {
	logger        *zap.Logger
	upgrader      *websocket.Upgrader
	registry      *relay.Registry
	notifier      *relay.Notifier
	snapshotter   *relay.Snapshotter
	frameRouter   *FrameRouter
	authenticator *auth.Authenticator
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	registry *relay.Registry,
	notifier *relay.Notifier,
	snapshotter *relay.Snapshotter,
	frameRouter *FrameRouter,
	authenticator *auth.Authenticator,
) *WebSocketServer {
	return &WebSocketServer{
		logger:        logger,
		upgrader:      upgrader,
		registry:      registry,
		notifier:      notifier,
		snapshotter:   snapshotter,
		frameRouter:   frameRouter,
		authenticator: authenticator,
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/ws", s.handleUser)
	router.HandleFunc("/ws/admin", s.handleAdmin)
}

func (s *WebSocketServer) handleUser(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))

		return
	}

	connection := relay.NewConnection(gonanoid.Must(), relay.ClassUser)

	s.logger.Info("user connection established",
		zap.String("connectionId", connection.ID()))

	go s.writePump(wsConn, connection)

	s.readLoop(r.Context(), wsConn, connection, s.frameRouter.RouteUser)

	s.registry.DetachUser(connection)
	connection.Close()

	s.logger.Info("user connection closed",
		zap.String("connectionId", connection.ID()))
}

func (s *WebSocketServer) handleAdmin(w http.ResponseWriter, r *http.Request) {
	identity, err := s.authenticator.Authenticate(r.Context(), connectionToken(r))
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)

		return
	}

	if !identity.IsAdmin() {
		http.Error(w, "admin role required", http.StatusForbidden)

		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))

		return
	}

	connection := relay.NewConnection(gonanoid.Must(), relay.ClassAdmin)

	s.logger.Info("admin connection established",
		zap.String("connectionId", connection.ID()),
		zap.Int64("adminId", identity.ID))

	go s.writePump(wsConn, connection)

	s.registry.AttachAdmin(connection)
	s.pushInitData(r, connection)

	s.readLoop(r.Context(), wsConn, connection, s.frameRouter.RouteAdmin)

	s.registry.DetachAdmin(connection)
	connection.Close()

	s.logger.Info("admin connection closed",
		zap.String("connectionId", connection.ID()))
}

// pushInitData sends the attach-time snapshot to this admin connection only.
func (s *WebSocketServer) pushInitData(r *http.Request, connection *relay.Connection) {
	snapshot, err := s.snapshotter.Take(r.Context())
	if err != nil {
		s.logger.Error("failed to compute admin snapshot", zap.Error(err))

		return
	}

	_ = s.notifier.Send(connection, relay.InitDataEvent{
		Type:        relay.EventInitData,
		ActiveUsers: snapshot.ActiveUsers,
		Revenue:     snapshot.Revenue,
		Bookings:    snapshot.Bookings,
	})
}

// readLoop processes frames in arrival order for this connection. It returns
// when the transport reports end-of-read; cleanup happens at the caller.
func (s *WebSocketServer) readLoop(
	ctx context.Context,
	wsConn *websocket.Conn,
	connection *relay.Connection,
	route func(ctx context.Context, connection *relay.Connection, payload []byte),
) {
	wsConn.SetReadLimit(maxFrameSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))

		return nil
	})

	for {
		_, payload, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Warn("websocket read failed",
					zap.String("connectionId", connection.ID()),
					zap.Error(err))
			}

			return
		}

		route(ctx, connection, payload)
	}
}

func connectionToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return token
	}

	return r.URL.Query().Get("token")
}

// writePump drains the connection's outbound queue onto the websocket and
// keeps the peer alive with pings. It owns the transport's write side.
func (s *WebSocketServer) writePump(wsConn *websocket.Conn, connection *relay.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case payload, ok := <-connection.Outbound():
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}

			err := wsConn.WriteMessage(websocket.TextMessage, payload)
			if err != nil {
				return
			}
		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))

			err := wsConn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		}
	}
}
