package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction is one completed chat exchange. Records are append-only;
// the only removal path is bulk deletion by calendar date.
type Interaction struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Model       string    `json:"model"`
	ContextInfo string    `json:"context_info,omitempty"` // JSON array stored as text
}
