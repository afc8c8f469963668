package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chatlive/relay-server/internal/auth"
	"github.com/chatlive/relay-server/internal/config"
	"github.com/chatlive/relay-server/internal/core"
	"github.com/chatlive/relay-server/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub       *core.Hub
	jwtSecret []byte
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, jwtSecret: []byte(cfg.JWTSecret), log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient(uuid.NewString())
	h.hub.RegisterClient(client)
	defer h.hub.Disconnect(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if err := h.dispatch(ctx, conn, client, inbound); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// dispatch decodes an inbound frame, runs the matching hub operation
// and writes the ack or error frame. Malformed payloads produce an
// error frame rather than a dropped connection.
func (h *WSHandler) dispatch(ctx context.Context, conn *websocket.Conn, client *core.Client, inbound proto.Inbound) error {
	switch inbound.Type {
	case proto.InboundTypeIdentity:
		var data proto.IdentityData
		if err := decode(inbound.Data, &data); err != nil {
			return h.writeBadRequest(ctx, conn, inbound.Seq, "invalid identity payload")
		}
		name := data.DisplayName
		if data.Token != "" {
			fromToken, err := auth.DisplayNameFromToken(data.Token, h.jwtSecret)
			if err != nil {
				h.log.Debug().Err(err).Str("client_id", client.ID).Msg("identity token rejected")
			} else {
				name = fromToken
			}
		}
		h.hub.SetIdentity(client, name)
		return nil

	case proto.InboundTypeJoinRoom:
		var data proto.JoinRoomData
		if err := decode(inbound.Data, &data); err != nil {
			return h.writeBadRequest(ctx, conn, inbound.Seq, "invalid join payload")
		}
		result, cerr := h.hub.Join(ctx, client, data.RoomName, data.Password)
		return wsjson.Write(ctx, conn, joinAck(inbound.Seq, result, cerr))

	case proto.InboundTypeDeleteRoom:
		var data proto.DeleteRoomData
		if err := decode(inbound.Data, &data); err != nil {
			return h.writeBadRequest(ctx, conn, inbound.Seq, "invalid delete payload")
		}
		cerr := h.hub.DeleteRoom(ctx, data.RoomName, data.Password)
		return wsjson.Write(ctx, conn, simpleAck(inbound.Seq, cerr))

	case proto.InboundTypeGetRooms:
		names, cerr := h.hub.ListRooms(ctx)
		return wsjson.Write(ctx, conn, roomsAck(inbound.Seq, names, cerr))

	case proto.InboundTypeSendMessage:
		var data proto.SendMessageData
		if err := decode(inbound.Data, &data); err != nil {
			return h.writeBadRequest(ctx, conn, inbound.Seq, "invalid message payload")
		}
		if cerr := h.hub.SendMessage(ctx, client, data.RoomName, data.Text); cerr != nil {
			return h.writeError(ctx, conn, inbound.Seq, cerr)
		}
		return nil

	case proto.InboundTypeTyping:
		var data proto.TypingData
		if err := decode(inbound.Data, &data); err != nil {
			return nil
		}
		h.hub.Typing(client, data.RoomName)
		return nil

	case proto.InboundTypeStopTyping:
		var data proto.TypingData
		if err := decode(inbound.Data, &data); err != nil {
			return nil
		}
		h.hub.StopTyping(client, data.RoomName)
		return nil

	case proto.InboundTypeAddReaction:
		var data proto.AddReactionData
		if err := decode(inbound.Data, &data); err != nil {
			return h.writeBadRequest(ctx, conn, inbound.Seq, "invalid reaction payload")
		}
		if cerr := h.hub.ToggleReaction(ctx, client, data.MessageID, data.Reaction); cerr != nil {
			return h.writeError(ctx, conn, inbound.Seq, cerr)
		}
		return nil

	default:
		return h.writeBadRequest(ctx, conn, inbound.Seq, "unknown message type")
	}
}

func (h *WSHandler) writeBadRequest(ctx context.Context, conn *websocket.Conn, seq int64, msg string) error {
	return wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeError,
		Seq:   seq,
		Error: &proto.Error{Code: "bad_request", Msg: msg},
	})
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, seq int64, cerr *core.CoreError) error {
	return wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeError,
		Seq:   seq,
		Error: &proto.Error{Code: cerr.Code, Msg: cerr.Message},
	})
}
