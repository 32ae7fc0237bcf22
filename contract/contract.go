package contract

import (
	"context"
	"reflect"

	"chat-relay/domain/event"
)

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker
// interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Sink is the delivery side of a live connection. Implementations must be
// safe for concurrent use and must not block the caller: a slow consumer
// is the sink's problem, not the dispatcher's.
type Sink interface {
	Consume(ctx context.Context, e event.ServerEvent) error
}

// Registry tracks which connections are subscribed to which room.
type Registry interface {
	Subscribe(connID, roomKey string, sink Sink)
	Unsubscribe(connID string)
	SinksForRoom(roomKey string) []Sink
	Room(connID string) (string, bool)
}
