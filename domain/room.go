package domain

import "strings"

// RoomSeparator joins the two participant ids of a room key. It is not
// part of the valid id charset, so a key always splits back into its pair.
const RoomSeparator = "#"

// RoomKey derives the canonical room key for an unordered participant
// pair. It is order-independent: RoomKey(a, b) == RoomKey(b, a).
func RoomKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + RoomSeparator + b
}

// ValidID reports whether id is a well-formed participant id:
// non-empty, letters, digits, '_', '.' or '-'.
func ValidID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '.' || r == '-':
		default:
			return false
		}
	}
	return true
}

// RoomPair splits a room key back into its two participant ids.
func RoomPair(key string) (string, string) {
	a, b, _ := strings.Cut(key, RoomSeparator)
	return a, b
}
