package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/websocket/v2"

	"github.com/latestcomment/lexarena/internal/layout"
	"github.com/latestcomment/lexarena/internal/services"
)

// NewApp wires every route onto a fresh Fiber app. accessLog may be nil to
// skip request logging.
func NewApp(service *services.CourtroomService, views fiber.Views, accessLog *logger.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:                 views,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	if accessLog != nil {
		app.Use(logger.New(*accessLog))
	}

	h := NewHandler(service)
	ws := NewWebSocketHandler(service)

	app.Get("/health", h.Health)
	app.Use("/assets", filesystem.New(filesystem.Config{Root: layout.Assets()}))

	app.Get("/", h.EntryPage)
	app.Get("/courtroom", h.OpenCourtroom)
	app.Get("/courtroom/:id", h.ShowCourtroom)
	app.Post("/courtroom/:id/turn", h.SubmitTurn)

	api := app.Group("/api/courtrooms")
	api.Get("/:id/transcript", h.GetTranscript)
	api.Post("/:id/turn", h.PostTurn)

	app.Get("/ws/courtroom/:id", ws.WebSocketMiddleware, websocket.New(ws.HandleWebSocket))

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   utils.StatusMessage(code),
		"message": err.Error(),
	})
}
