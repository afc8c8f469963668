package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/chatlive/relay-server/internal/core"
)

// ErrorResponse is the JSON body of failed REST requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomHandlers provides REST handlers for the room surface.
type RoomHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: hub,
		log: logger,
	}
}

// ListRooms returns the current room-name list.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	names, cerr := h.hub.ListRooms(c.Request.Context())
	if cerr != nil {
		h.log.Error().Str("code", cerr.Code).Msg("failed to list rooms")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: cerr.Message})
		return
	}

	c.JSON(http.StatusOK, names)
}
