package domain

import "time"

// User is an identity record. The ID is externally assigned and stable;
// the core never deletes users.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Partners    []string  `json:"partners"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PlaceholderName is the display name given to users created lazily
// during a join, before any explicit registration.
func PlaceholderName(id string) string {
	return "User_" + id
}
