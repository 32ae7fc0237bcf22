package relay

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
)

// Dispatcher fans a persisted message out to every connection subscribed
// to its room at dispatch time, including the sender's own connection so
// its UI reflects the canonical stored record rather than a local echo.
// Connections that join later get the message from their own history
// fetch instead.
type Dispatcher struct {
	log      *slog.Logger
	registry contract.Registry
}

func NewDispatcher(log *slog.Logger, registry contract.Registry) *Dispatcher {
	return &Dispatcher{log: log, registry: registry}
}

// Dispatch delivers to the current subscribers of the message's room.
// Delivery is at-least-once per subscriber; a sink failure is logged and
// does not block the remaining subscribers.
func (d *Dispatcher) Dispatch(ctx context.Context, message domain.Message) {
	roomKey := domain.RoomKey(message.Sender, message.Receiver)
	sinks := d.registry.SinksForRoom(roomKey)

	for _, sink := range sinks {
		if err := sink.Consume(ctx, event.ReceiveMessage(message)); err != nil {
			d.log.Warn("delivery failed",
				"room", roomKey,
				"sender", message.Sender,
				"error", err)
		}
	}
	d.log.Debug("message dispatched", "room", roomKey, "subscribers", len(sinks))
}
