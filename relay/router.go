package relay

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/repositories"
)

// Router sequences the room workflows. Join runs roster upsert, then
// subscription, then the two requester-only emissions; Send runs
// append-then-dispatch, never the reverse. The sender of every operation
// is the connection's authenticated identity, whatever the payload says.
type Router struct {
	log        *slog.Logger
	registry   contract.Registry
	users      repositories.IUserRepository
	messages   repositories.IMessageRepository
	dispatcher *Dispatcher
}

func NewRouter(log *slog.Logger, registry contract.Registry,
	users repositories.IUserRepository, messages repositories.IMessageRepository,
	dispatcher *Dispatcher) *Router {
	return &Router{
		log:        log,
		registry:   registry,
		users:      users,
		messages:   messages,
		dispatcher: dispatcher,
	}
}

// Join opens the pairwise room between the authenticated sender and the
// requested receiver: mutual roster upsert, subscription (replacing any
// previous room of this connection), then partner set and ordered history
// emitted to the caller only. Repeating a join is idempotent: no
// duplicate roster entries, no duplicate subscription.
func (r *Router) Join(ctx context.Context, connID, senderID string,
	cmd domain.JoinCommand, sink contract.Sink) error {
	if err := validateReceiver(senderID, cmd); err != nil {
		return err
	}
	roomKey := domain.RoomKey(senderID, cmd.ReceiverID)

	if err := r.users.MutualUpsert(senderID, cmd.ReceiverID); err != nil {
		r.log.Error("roster upsert failed",
			"sender", senderID, "receiver", cmd.ReceiverID, "error", err)
		return errors.ErrRosterUpdateFailed
	}

	r.registry.Subscribe(connID, roomKey, sink)

	partners, err := r.users.Partners(senderID)
	if err != nil {
		r.log.Error("partner fetch failed", "sender", senderID, "error", err)
		return errors.ErrPartnerFetchFailed
	}
	if err := sink.Consume(ctx, event.ChatPartners(partners)); err != nil {
		return err
	}

	history, err := r.messages.History(senderID, cmd.ReceiverID)
	if err != nil {
		r.log.Error("history fetch failed",
			"sender", senderID, "receiver", cmd.ReceiverID, "error", err)
		return errors.ErrHistoryFetchFailed
	}
	if err := sink.Consume(ctx, event.LoadMessages(history)); err != nil {
		return err
	}

	r.log.Info("joined room", "room", roomKey, "sender", senderID, "conn", connID)
	return nil
}

// Send persists a message from the authenticated sender and broadcasts
// the stored record to the room's current subscribers. The append must
// complete durably before any dispatch: a message that failed to persist
// is never broadcast.
func (r *Router) Send(ctx context.Context, connID, senderID string,
	cmd domain.SendMessageCommand) error {
	if err := validateReceiver(senderID, cmd); err != nil {
		return err
	}
	if cmd.Body == "" {
		return errors.ErrEmptyMessage
	}
	if _, joined := r.registry.Room(connID); !joined {
		return errors.ErrNotJoined
	}

	message, err := r.messages.Append(senderID, cmd.ReceiverID, cmd.Body)
	if err != nil {
		r.log.Error("message append failed",
			"sender", senderID, "receiver", cmd.ReceiverID, "error", err)
		return errors.ErrMessageStoreFailed
	}

	r.dispatcher.Dispatch(ctx, message)
	return nil
}

// Disconnect removes a connection from the registry. In-flight
// persistence triggered by its last event is left to complete; aborting
// it could leave half-committed roster state.
func (r *Router) Disconnect(connID string) {
	r.registry.Unsubscribe(connID)
}

func validateReceiver(senderID string, cmd domain.Command) error {
	receiverID := cmd.Receiver()
	switch {
	case receiverID == "":
		return errors.ErrMissingReceiver
	case !domain.ValidID(receiverID):
		return errors.ErrInvalidReceiver
	case receiverID == senderID:
		return errors.ErrSelfChat
	}
	return nil
}
