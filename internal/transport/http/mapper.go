package http

import (
	"encoding/json"

	"github.com/chatlive/relay-server/internal/core"
	"github.com/chatlive/relay-server/internal/proto"
)

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func wireMessage(m *core.Message) proto.WireMessage {
	return proto.WireMessage{
		ID:        m.ID,
		Username:  m.From,
		Text:      m.Text,
		Time:      m.CreatedAt.Unix(),
		Reactions: m.Reactions,
	}
}

func joinAck(seq int64, result *core.JoinResult, cerr *core.CoreError) proto.Outbound {
	if cerr != nil {
		return proto.Outbound{
			Type: proto.OutboundTypeAck,
			Seq:  seq,
			Data: proto.JoinAck{OK: false, Messages: []proto.WireMessage{}, Users: []string{}, Message: cerr.Message},
		}
	}

	messages := make([]proto.WireMessage, 0, len(result.Messages))
	for _, m := range result.Messages {
		messages = append(messages, wireMessage(m))
	}
	users := result.Users
	if users == nil {
		users = []string{}
	}
	return proto.Outbound{
		Type: proto.OutboundTypeAck,
		Seq:  seq,
		Data: proto.JoinAck{OK: true, Messages: messages, Users: users},
	}
}

func simpleAck(seq int64, cerr *core.CoreError) proto.Outbound {
	if cerr != nil {
		return proto.Outbound{
			Type: proto.OutboundTypeAck,
			Seq:  seq,
			Data: proto.SimpleAck{OK: false, Message: cerr.Message},
		}
	}
	return proto.Outbound{
		Type: proto.OutboundTypeAck,
		Seq:  seq,
		Data: proto.SimpleAck{OK: true},
	}
}

func roomsAck(seq int64, names []string, cerr *core.CoreError) proto.Outbound {
	if cerr != nil {
		return proto.Outbound{
			Type: proto.OutboundTypeAck,
			Seq:  seq,
			Data: proto.RoomsAck{OK: false, Rooms: []string{}, Message: cerr.Message},
		}
	}
	if names == nil {
		names = []string{}
	}
	return proto.Outbound{
		Type: proto.OutboundTypeAck,
		Seq:  seq,
		Data: proto.RoomsAck{OK: true, Rooms: names},
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessageReceived:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReceiveMessage,
			Data:  wireMessage(event.Message),
		}
	case core.EventPresenceChanged:
		users := event.Users
		if users == nil {
			users = []string{}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventRoomUsers,
			Data:  users,
		}
	case core.EventTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventTyping,
			Data:  event.User,
		}
	case core.EventStopTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventStopTyping,
			Data:  event.User,
		}
	case core.EventRoomListChanged:
		rooms := event.Rooms
		if rooms == nil {
			rooms = []string{}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventRoomsUpdated,
			Data:  rooms,
		}
	case core.EventReactionUpdated:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReactionUpdated,
			Data: proto.EventReactionData{
				MessageID: event.MessageID,
				Reactions: event.Reactions,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
