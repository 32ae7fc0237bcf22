// Package event defines the server-to-client emissions of the relay.
package event

import "chat-relay/domain"

// Wire names of server emissions.
const (
	ChatPartnersType   = "chatPartners"
	LoadMessagesType   = "loadMessages"
	ReceiveMessageType = "receiveMessage"
	ErrorType          = "error"
)

// ServerEvent is anything the relay can emit to a connection.
type ServerEvent interface {
	EventName() string
}

// ChatPartners carries the full partner set of the requester after a join.
type ChatPartners []string

func (ChatPartners) EventName() string { return ChatPartnersType }

// LoadMessages carries the ordered pair history for the requester after a join.
type LoadMessages []domain.Message

func (LoadMessages) EventName() string { return LoadMessagesType }

// ReceiveMessage carries a persisted message to every room subscriber.
type ReceiveMessage domain.Message

func (ReceiveMessage) EventName() string { return ReceiveMessageType }

// Error is a non-fatal failure reported back to the connection.
type Error string

func (Error) EventName() string { return ErrorType }
