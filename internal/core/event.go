package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessageReceived notifies room members about a new chat message.
	EventMessageReceived EventKind = iota
	// EventPresenceChanged carries the updated member list of a room.
	EventPresenceChanged
	// EventTyping notifies room members that a user started typing.
	EventTyping
	// EventStopTyping notifies room members that a user stopped typing.
	EventStopTyping
	// EventRoomListChanged carries the updated global room list.
	EventRoomListChanged
	// EventReactionUpdated carries the full reaction map of a message.
	EventReactionUpdated
	// EventError notifies a client about a domain error on a
	// fire-and-forget operation.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind      EventKind
	Room      string
	User      string
	Users     []string            // for EventPresenceChanged
	Rooms     []string            // for EventRoomListChanged
	Message   *Message            // for EventMessageReceived
	MessageID int64               // for EventReactionUpdated
	Reactions map[string][]string // for EventReactionUpdated
	Error     *CoreError          // for EventError
}

// JoinResult is the acknowledgment payload of a successful join: the
// room history oldest-first and the live member list.
type JoinResult struct {
	Messages []*Message
	Users    []string
}
