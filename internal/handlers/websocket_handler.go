package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/latestcomment/lexarena/internal/models"
	"github.com/latestcomment/lexarena/internal/services"
)

const courtroomLocal = "courtroom"

type WebSocketHandler struct {
	Service *services.CourtroomService
}

func NewWebSocketHandler(service *services.CourtroomService) *WebSocketHandler {
	return &WebSocketHandler{Service: service}
}

// WebSocketMiddleware rejects plain requests and unknown courtrooms before
// the upgrade happens.
func (h *WebSocketHandler) WebSocketMiddleware(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.ErrNotFound
	}
	room, err := h.Service.GetCourtroom(id)
	if err != nil {
		return fiber.ErrNotFound
	}
	c.Locals(courtroomLocal, room)
	return c.Next()
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	defer func() {
		_ = c.Close()
	}()

	room, ok := c.Locals(courtroomLocal).(*models.Courtroom)
	if !ok {
		return
	}

	sub := &models.Subscriber{
		Id:   uuid.New(),
		Sink: c,
	}
	if err := h.Service.Attach(room, sub); err != nil {
		return
	}
	defer h.Service.Detach(room, sub)

	h.Service.LoopArguments(context.Background(), room, c)
}
