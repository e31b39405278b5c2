package lib

import (
	"github.com/google/uuid"
)

// NewSessionID returns a random UUID v4 that tags every log line of one monitoring session.
func NewSessionID() string {
	return uuid.NewString()
}
