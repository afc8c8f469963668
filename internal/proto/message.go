package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client. Seq is
// an optional client-chosen correlation id echoed back on the ack.
type Inbound struct {
	Type string          `json:"type"`
	Seq  int64           `json:"seq,omitempty"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeIdentity    = "identity"
	InboundTypeJoinRoom    = "join_room"
	InboundTypeDeleteRoom  = "delete_room"
	InboundTypeGetRooms    = "get_rooms"
	InboundTypeSendMessage = "send_message"
	InboundTypeTyping      = "typing"
	InboundTypeStopTyping  = "stop_typing"
	InboundTypeAddReaction = "add_reaction"

	OutboundTypeAck   = "ack"
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventReceiveMessage  = "receive_message"
	EventRoomUsers       = "room_users"
	EventTyping          = "typing"
	EventStopTyping      = "stop_typing"
	EventRoomsUpdated    = "rooms_updated"
	EventReactionUpdated = "reaction_updated"
)

// IdentityData introduces the client. The wire shape is either a plain
// display-name string or an object with email/display name/token.
type IdentityData struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	Token       string `json:"token,omitempty"`
}

// UnmarshalJSON accepts both the legacy plain-string form and the
// object form.
func (d *IdentityData) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		d.DisplayName = name
		return nil
	}

	type identityObject IdentityData
	var obj identityObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*d = IdentityData(obj)
	return nil
}

// JoinRoomData requests to join (or implicitly create) a room.
type JoinRoomData struct {
	RoomName string `json:"roomName"`
	Password string `json:"password"`
}

// DeleteRoomData requests deletion of a room.
type DeleteRoomData struct {
	RoomName string `json:"roomName"`
	Password string `json:"password"`
}

// SendMessageData is a chat message from the client.
type SendMessageData struct {
	RoomName string `json:"roomName"`
	Text     string `json:"text"`
}

// TypingData scopes a typing or stop-typing notification to a room.
type TypingData struct {
	RoomName string `json:"roomName"`
}

// AddReactionData toggles a reaction on a message.
type AddReactionData struct {
	MessageID int64  `json:"messageId"`
	Reaction  string `json:"reaction"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Seq   int64  `json:"seq,omitempty"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// WireMessage is a chat message as it appears on the wire.
type WireMessage struct {
	ID        int64               `json:"id"`
	Username  string              `json:"username"`
	Text      string              `json:"text"`
	Time      int64               `json:"time"`
	Reactions map[string][]string `json:"reactions"`
}

// JoinAck is the acknowledgment of a join_room request. Messages and
// Users are always present on success, empty lists included, so clients
// can iterate them without guarding.
type JoinAck struct {
	OK       bool          `json:"ok"`
	Messages []WireMessage `json:"messages"`
	Users    []string      `json:"users"`
	Message  string        `json:"message,omitempty"`
}

// SimpleAck acknowledges requests that carry no payload on success.
type SimpleAck struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// RoomsAck is the acknowledgment of a get_rooms request.
type RoomsAck struct {
	OK      bool     `json:"ok"`
	Rooms   []string `json:"rooms"`
	Message string   `json:"message,omitempty"`
}

// EventReactionData carries the full reaction map of a message.
type EventReactionData struct {
	MessageID int64               `json:"messageId"`
	Reactions map[string][]string `json:"reactions"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
