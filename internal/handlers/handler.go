package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/latestcomment/lexarena/internal/layout"
	"github.com/latestcomment/lexarena/internal/models"
	"github.com/latestcomment/lexarena/internal/services"
)

const trialEndedNotice = "trial-ended"

type Handler struct {
	Courtrooms *services.CourtroomService
}

func NewHandler(cs *services.CourtroomService) *Handler {
	return &Handler{Courtrooms: cs}
}

// EntryPage is where users land, and where an exhausted trial sends them.
func (h *Handler) EntryPage(c *fiber.Ctx) error {
	data := fiber.Map{"Meta": layout.Site}
	if c.Query("notice") == trialEndedNotice {
		data["Alert"] = models.TrialEndedText
	}
	return c.Render("index", data, layout.Shell)
}

// OpenCourtroom runs the trial gate and starts a fresh hearing. Every load
// of this page gets a new transcript.
func (h *Handler) OpenCourtroom(c *fiber.Ctx) error {
	if h.Courtrooms.TrialExhausted(c.UserContext()) {
		return c.Redirect("/?notice=" + trialEndedNotice)
	}
	room := h.Courtrooms.OpenCourtroom()
	return h.renderCourtroom(c, room)
}

// ShowCourtroom re-renders an existing hearing, the landing spot after a
// plain form submit. Unknown ids start over.
func (h *Handler) ShowCourtroom(c *fiber.Ctx) error {
	room, err := h.courtroom(c)
	if err != nil {
		return c.Redirect("/courtroom")
	}
	if h.Courtrooms.TrialExhausted(c.UserContext()) {
		return c.Redirect("/?notice=" + trialEndedNotice)
	}
	return h.renderCourtroom(c, room)
}

// SubmitTurn is the form fallback for browsers without the live socket.
func (h *Handler) SubmitTurn(c *fiber.Ctx) error {
	room, err := h.courtroom(c)
	if err != nil {
		return c.Redirect("/courtroom", fiber.StatusSeeOther)
	}
	// Guard errors mean nothing happened; the page simply re-renders.
	_ = h.Courtrooms.SendTurn(c.UserContext(), room, c.FormValue("argument"))
	return c.Redirect("/courtroom/"+room.ID.String()+"#transcript-end", fiber.StatusSeeOther)
}

func (h *Handler) renderCourtroom(c *fiber.Ctx, room *models.Courtroom) error {
	return c.Render("courtroom", fiber.Map{
		"Meta":        layout.Site,
		"CourtroomID": room.ID.String(),
		"Messages":    room.Transcript.Snapshot(),
		"Loading":     room.IsLoading(),
	}, layout.Shell)
}

type transcriptResponse struct {
	ID       string           `json:"id"`
	Loading  bool             `json:"loading"`
	Messages []models.Message `json:"messages"`
}

type turnPayload struct {
	Argument string `json:"argument"`
}

func (h *Handler) GetTranscript(c *fiber.Ctx) error {
	room, err := h.courtroom(c)
	if err != nil {
		return fiber.ErrNotFound
	}
	return c.JSON(transcriptOf(room))
}

// PostTurn runs one turn and answers with the transcript that results.
func (h *Handler) PostTurn(c *fiber.Ctx) error {
	room, err := h.courtroom(c)
	if err != nil {
		return fiber.ErrNotFound
	}

	var payload turnPayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid turn payload")
	}

	err = h.Courtrooms.SendTurn(c.UserContext(), room, payload.Argument)
	switch {
	case errors.Is(err, services.ErrEmptyArgument):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrTurnInFlight):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case err != nil:
		return err
	}
	return c.JSON(transcriptOf(room))
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) courtroom(c *fiber.Ctx) (*models.Courtroom, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, services.ErrCourtroomNotFound
	}
	return h.Courtrooms.GetCourtroom(id)
}

func transcriptOf(room *models.Courtroom) transcriptResponse {
	return transcriptResponse{
		ID:       room.ID.String(),
		Loading:  room.IsLoading(),
		Messages: room.Transcript.Snapshot(),
	}
}
