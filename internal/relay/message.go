package relay

import (
	"context"
	"strconv"
	"time"

	"github.com/chimshield/backend/internal/ierr"
	"github.com/chimshield/backend/internal/store"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const AddressAdmin = "admin"

// Inbound is a chat message as it arrives on a connection, before stamping.
// UserID names the user conversation the message belongs to; for
// admin-authored messages it is supplied by the admin client and not
// validated against the user store.
type Inbound struct {
	UserID  int64  `json:"userId"`
	Content string `json:"content" validate:"required,max=500"`
	To      string `json:"to" validate:"required"`
}

// MessageRelay routes a message from its origin to its destination, a
// specific user or the admin broadcast address, persisting it first.
// Persistence is unconditional; live delivery is best-effort on top of it.
type MessageRelay struct {
	logger   *zap.Logger
	registry *Registry
	notifier *Notifier
	messages store.MessageStore
	validate *validator.Validate
}

func NewMessageRelay(
	logger *zap.Logger,
	registry *Registry,
	notifier *Notifier,
	messages store.MessageStore,
) *MessageRelay {
	return &MessageRelay{
		logger:   logger,
		registry: registry,
		notifier: notifier,
		messages: messages,
		validate: validator.New(),
	}
}

// Relay validates, stamps, persists and delivers the message. The status is
// stamped "delivered" before any delivery attempt and never revised; there is
// no acknowledgement protocol.
func (r *MessageRelay) Relay(ctx context.Context, origin Class, in Inbound) (store.Message, error) {
	err := r.validate.Struct(in)
	if err != nil {
		return store.Message{}, ierr.New(ierr.ErrorCodeInvalidArgument, err)
	}

	message := store.Message{
		UserID:    in.UserID,
		Content:   in.Content,
		To:        in.To,
		Sender:    string(origin),
		Timestamp: time.Now(),
		Status:    "delivered",
	}

	stored, err := r.messages.AppendMessage(ctx, message)
	if err != nil {
		return store.Message{}, err
	}

	r.deliver(stored)

	return stored, nil
}

func (r *MessageRelay) deliver(message store.Message) {
	if message.To == AddressAdmin {
		r.notifier.Broadcast(r.registry.Admins(), MessageEvent{
			Type:    EventNewMessage,
			Message: message,
		})

		return
	}

	recipientID, err := strconv.ParseInt(message.To, 10, 64)
	if err != nil {
		r.logger.Debug("message addressed to unroutable destination",
			zap.String("to", message.To))

		return
	}

	connection, ok := r.registry.LookupUser(recipientID)
	if !ok {
		// Recipient offline: the record is already persisted, the recipient
		// picks it up on its next pull of stored messages.
		return
	}

	// User-channel outbound is the stamped record itself, no frame wrapper.
	_ = r.notifier.Send(connection, message)
}
