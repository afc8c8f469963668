package core

import "time"

// Message is the domain model for a chat message. Reactions maps an
// emoji to the display names that reacted with it.
type Message struct {
	ID        int64
	Room      string
	From      string
	Text      string
	Reactions map[string][]string
	CreatedAt time.Time
}
