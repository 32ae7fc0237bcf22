// Package errors holds the sentinel errors of the relay and their
// client-facing classification.
package errors

import "fmt"

// Authentication failures are terminal: the handshake is rejected and the
// connection never processes an event.
var (
	ErrMissingToken    = fmt.Errorf("no token provided")
	ErrInvalidToken    = fmt.Errorf("invalid token")
	ErrTokenExpired    = fmt.Errorf("token expired")
	ErrMissingIdentity = fmt.Errorf("token does not contain a user id")
	ErrInvalidIdentity = fmt.Errorf("token user id is not a valid user id")
)

// Validation failures are non-terminal: the connection stays usable.
var (
	ErrMissingReceiver = fmt.Errorf("receiverId is required")
	ErrInvalidReceiver = fmt.Errorf("receiverId is not a valid user id")
	ErrSelfChat        = fmt.Errorf("cannot open a room with yourself")
	ErrEmptyMessage    = fmt.Errorf("message is required")
	ErrNotJoined       = fmt.Errorf("join a room before sending messages")
)

// Storage failures are non-terminal from the connection's perspective but
// guarantee no partial side effect.
var (
	ErrUserAlreadyExists  = fmt.Errorf("user id already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrRosterUpdateFailed = fmt.Errorf("roster update failed")
	ErrPartnerFetchFailed = fmt.Errorf("partner fetch failed")
	ErrHistoryFetchFailed = fmt.Errorf("history fetch failed")
	ErrMessageStoreFailed = fmt.Errorf("message store failed")
)

// Runtime supervision.
var ErrWorkerPanic = fmt.Errorf("worker panic")
