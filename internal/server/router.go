package server

import (
	"context"
	"encoding/json"

	"github.com/chimshield/backend/internal/relay"
	"go.uber.org/zap"
)

// FrameRouter dispatches inbound frames to the core operations. A frame that
// fails to parse is dropped and logged; the connection stays open.
type FrameRouter struct {
	logger       *zap.Logger
	registry     *relay.Registry
	messageRelay *relay.MessageRelay
	signalRelay  *relay.SignalRelay
}

func NewFrameRouter(
	logger *zap.Logger,
	registry *relay.Registry,
	messageRelay *relay.MessageRelay,
	signalRelay *relay.SignalRelay,
) *FrameRouter {
	return &FrameRouter{
		logger:       logger,
		registry:     registry,
		messageRelay: messageRelay,
		signalRelay:  signalRelay,
	}
}

type identifyFrame struct {
	UserID int64 `json:"userId"`
}

func (r *FrameRouter) RouteUser(ctx context.Context, connection *relay.Connection, payload []byte) {
	frameType, ok := r.frameType(payload)
	if !ok {
		return
	}

	switch frameType {
	case "identify":
		var frame identifyFrame
		if !r.decode(payload, &frame) {
			return
		}

		err := r.registry.AttachUser(frame.UserID, connection)
		if err != nil {
			r.logger.Warn("identify refused",
				zap.String("connectionId", connection.ID()),
				zap.Error(err))
		}
	case "message":
		var in relay.Inbound
		if !r.decode(payload, &in) {
			return
		}

		// The originating user's bound id wins over whatever the frame
		// carries, so user-authored records always name their author.
		if userID, bound := connection.UserID(); bound {
			in.UserID = userID
		}

		_, err := r.messageRelay.Relay(ctx, relay.ClassUser, in)
		if err != nil {
			r.logger.Warn("message dropped",
				zap.String("connectionId", connection.ID()),
				zap.Error(err))
		}
	case relay.SignalTyping, relay.SignalCall:
		var signal relay.Signal
		if !r.decode(payload, &signal) {
			return
		}

		r.signalRelay.Relay(signal)
	default:
		r.logger.Debug("unknown frame type on user channel",
			zap.String("type", frameType))
	}
}

func (r *FrameRouter) RouteAdmin(ctx context.Context, connection *relay.Connection, payload []byte) {
	frameType, ok := r.frameType(payload)
	if !ok {
		return
	}

	// The admin channel only accepts chat messages; anything else is ignored.
	if frameType != "message" {
		r.logger.Debug("ignoring frame on admin channel",
			zap.String("type", frameType))

		return
	}

	var in relay.Inbound
	if !r.decode(payload, &in) {
		return
	}

	_, err := r.messageRelay.Relay(ctx, relay.ClassAdmin, in)
	if err != nil {
		r.logger.Warn("admin message dropped",
			zap.String("connectionId", connection.ID()),
			zap.Error(err))
	}
}

func (r *FrameRouter) frameType(payload []byte) (string, bool) {
	var frame struct {
		Type string `json:"type"`
	}

	err := json.Unmarshal(payload, &frame)
	if err != nil {
		r.logger.Debug("malformed frame", zap.Error(err))

		return "", false
	}

	return frame.Type, true
}

func (r *FrameRouter) decode(payload []byte, v any) bool {
	err := json.Unmarshal(payload, v)
	if err != nil {
		r.logger.Debug("malformed frame payload", zap.Error(err))

		return false
	}

	return true
}
