// Package domain contains core concepts of the chat relay.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event between two participants.
// CreatedAt is assigned at persistence time and is the sole sort key
// for history queries.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Body      string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
