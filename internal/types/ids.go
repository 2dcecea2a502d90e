package types

import (
	"time"

	"github.com/google/uuid"
)

// NewRequestID generates a UUIDv7 request identifier for remote backend calls.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RequestIDTime extracts the timestamp embedded in a UUIDv7 request ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func RequestIDTime(id string) time.Time {
	u, err := uuid.Parse(id)
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
