// Package relay is the live routing core: the subscription registry, the
// room router sequencing join/send workflows, and the broadcast
// dispatcher. It orchestrates the stores without containing transport or
// storage logic.
package relay

import (
	"sync"

	"chat-relay/contract"
)

type entry struct {
	roomKey string
	sink    contract.Sink
}

// Registry tracks which connection is subscribed to which room. It keeps
// a two-way index: room key -> member connections, and connection ->
// current room, so that a re-join can atomically replace the previous
// subscription (a connection belongs to at most one room at a time).
type Registry struct {
	mu          sync.RWMutex
	roomMembers map[string]map[string]struct{} // room key -> conn ids
	sessions    map[string]entry               // conn id -> room + sink
}

func NewRegistry() *Registry {
	return &Registry{
		roomMembers: make(map[string]map[string]struct{}),
		sessions:    make(map[string]entry),
	}
}

// Subscribe assigns a connection to a room, replacing any previous
// subscription of the same connection. If the room does not yet exist in
// the registry, it is initialized on the fly.
func (r *Registry) Subscribe(connID, roomKey string, sink contract.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(connID)

	r.sessions[connID] = entry{roomKey: roomKey, sink: sink}
	if _, ok := r.roomMembers[roomKey]; !ok {
		r.roomMembers[roomKey] = make(map[string]struct{})
	}
	r.roomMembers[roomKey][connID] = struct{}{}
}

// Unsubscribe removes a connection from the registry and its current
// room. It cleans up empty room sets to prevent the room map growing
// over the process lifetime.
func (r *Registry) Unsubscribe(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(connID)
}

func (r *Registry) removeLocked(connID string) {
	session, ok := r.sessions[connID]
	if !ok {
		return
	}
	delete(r.sessions, connID)

	if members, ok := r.roomMembers[session.roomKey]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.roomMembers, session.roomKey)
		}
	}
}

// SinksForRoom retrieves the delivery sinks of every connection
// subscribed to a room at call time. Returns nil if the room has no
// members.
func (r *Registry) SinksForRoom(roomKey string) []contract.Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomKey]
	if !ok {
		return nil
	}
	sinks := make([]contract.Sink, 0, len(members))
	for connID := range members {
		if session, ok := r.sessions[connID]; ok {
			sinks = append(sinks, session.sink)
		}
	}
	return sinks
}

// Room returns the room a connection is currently subscribed to.
func (r *Registry) Room(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[connID]
	return session.roomKey, ok
}
