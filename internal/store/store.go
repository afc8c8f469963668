package store

import (
	"context"
	"errors"
	"time"
)

// ErrRoomExists is returned by CreateRoom when the unique name
// constraint rejects the insert. Callers racing on first join must
// re-fetch the room and continue as joiners.
var ErrRoomExists = errors.New("room already exists")

// ErrNotFound is returned when a room or message does not exist.
var ErrNotFound = errors.New("not found")

// Room represents a password-gated chat room.
type Room struct {
	ID           int64
	Name         string
	PasswordHash string
	CreatedBy    string
	CreatedAt    time.Time
}

// Message represents a persisted chat message. Reactions maps an emoji
// to the display names that reacted with it; a name appears at most
// once per emoji.
type Message struct {
	ID        int64
	Room      string
	From      string
	Text      string
	Reactions map[string][]string
	CreatedAt time.Time
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom inserts a new room. Returns ErrRoomExists if the name
	// is already taken.
	CreateRoom(ctx context.Context, name, passwordHash, createdBy string) (*Room, error)

	// GetRoomByName retrieves a room by name. Returns ErrNotFound if absent.
	GetRoomByName(ctx context.Context, name string) (*Room, error)

	// DeleteRoom removes the room and all of its messages in one
	// transaction. Returns ErrNotFound if the room does not exist.
	DeleteRoom(ctx context.Context, name string) error

	// ListRoomNames returns the names of all rooms.
	ListRoomNames(ctx context.Context) ([]string, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// GetMessage retrieves a message by ID. Returns ErrNotFound if absent.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// ListMessages returns up to limit most recent messages of a room
	// in chronological (oldest-first) order.
	ListMessages(ctx context.Context, room string, limit int) ([]*Message, error)

	// UpdateReactions replaces the reaction map of a message.
	UpdateReactions(ctx context.Context, id int64, reactions map[string][]string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
