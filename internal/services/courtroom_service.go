package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/latestcomment/lexarena/internal/models"
)

var (
	ErrEmptyArgument     = errors.New("argument is empty")
	ErrTurnInFlight      = errors.New("a turn is already in flight")
	ErrCourtroomNotFound = errors.New("courtroom not found")
)

type CourtroomConfig struct {
	UserID      string
	CaseContext string
}

type CourtroomService struct {
	Manager *models.CourtroomManager
	Backend CourtBackend

	cfg    CourtroomConfig
	logger *slog.Logger
	turns  metric.Int64Counter
	gates  metric.Int64Counter
}

func NewCourtroomService(manager *models.CourtroomManager, backend CourtBackend, cfg CourtroomConfig, logger *slog.Logger, meter metric.Meter) (*CourtroomService, error) {
	turns, err := meter.Int64Counter("courtroom.turns",
		metric.WithDescription("Turns sent, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create turn counter: %w", err)
	}
	gates, err := meter.Int64Counter("courtroom.trial_checks",
		metric.WithDescription("Trial gate checks, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create trial counter: %w", err)
	}
	return &CourtroomService{
		Manager: manager,
		Backend: backend,
		cfg:     cfg,
		logger:  logger,
		turns:   turns,
		gates:   gates,
	}, nil
}

// OpenCourtroom starts a fresh transcript, one per page load.
func (s *CourtroomService) OpenCourtroom() *models.Courtroom {
	room := models.NewCourtroom()

	s.Manager.Mu.Lock()
	s.Manager.Courtrooms[room.ID] = room
	s.Manager.Mu.Unlock()

	s.logger.Info("courtroom opened", "courtroom", room.ID)
	return room
}

func (s *CourtroomService) GetCourtroom(id uuid.UUID) (*models.Courtroom, error) {
	s.Manager.Mu.Lock()
	defer s.Manager.Mu.Unlock()
	room, ok := s.Manager.Courtrooms[id]
	if !ok {
		return nil, ErrCourtroomNotFound
	}
	return room, nil
}

// TrialExhausted asks the court service whether the configured user has
// spent their free session. Any failure counts as "not exhausted": the gate
// never blocks on its own errors.
func (s *CourtroomService) TrialExhausted(ctx context.Context) bool {
	status, err := s.Backend.TrialStatus(ctx, s.cfg.UserID)
	if err != nil {
		s.logger.Warn("failed to check trial status", "user", s.cfg.UserID, "error", err)
		s.gates.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		return false
	}
	if status.Exhausted() {
		s.logger.Info("trial exhausted, turning user away", "user", s.cfg.UserID)
		s.gates.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "exhausted")))
		return true
	}
	s.gates.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "allowed")))
	return false
}

// Attach subscribes sub to room after replaying its transcript.
func (s *CourtroomService) Attach(room *models.Courtroom, sub *models.Subscriber) error {
	if err := room.Attach(sub); err != nil {
		room.Detach(sub)
		return fmt.Errorf("replaying transcript: %w", err)
	}
	s.logger.Debug("subscriber attached", "courtroom", room.ID, "subscriber", sub.Id)
	return nil
}

func (s *CourtroomService) Detach(room *models.Courtroom, sub *models.Subscriber) {
	room.Detach(sub)
	s.logger.Debug("subscriber detached", "courtroom", room.ID, "subscriber", sub.Id)
}

// SendTurn appends the user's argument, asks the court agents for a reply
// and appends exactly one answer: the judge's reply, or a system error if
// the service could not be reached. Only the guard errors are returned.
func (s *CourtroomService) SendTurn(ctx context.Context, room *models.Courtroom, argument string) error {
	if strings.TrimSpace(argument) == "" {
		return ErrEmptyArgument
	}

	ok, failed := room.BeginTurn()
	if !ok {
		return ErrTurnInFlight
	}
	s.dropFailed(room, failed)
	defer func() {
		s.dropFailed(room, room.EndTurn())
	}()

	s.record(room, models.Message{Role: models.RoleYou, Content: argument})

	reply, err := s.Backend.Turn(ctx, argument, s.cfg.CaseContext)
	if err != nil {
		s.logger.Error("error talking to court agents", "courtroom", room.ID, "error", err)
		s.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		s.record(room, models.Message{Role: models.RoleSystem, Content: models.AgentFailureText})
		return nil
	}

	s.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	s.record(room, models.Message{Role: models.RoleJudge, Content: reply})
	return nil
}

func (s *CourtroomService) record(room *models.Courtroom, msg models.Message) {
	stored, failed := room.Record(msg)
	s.logger.Debug("transcript appended", "courtroom", room.ID, "role", stored.Role)
	s.dropFailed(room, failed)
}

func (s *CourtroomService) dropFailed(room *models.Courtroom, failed []*models.Subscriber) {
	for _, dead := range failed {
		s.logger.Warn("dropping unreachable subscriber", "courtroom", room.ID, "subscriber", dead.Id)
		room.Detach(dead)
	}
}

// Sweep discards courtrooms with no subscribers that have been idle longer
// than maxIdle, and reports how many went.
func (s *CourtroomService) Sweep(now time.Time, maxIdle time.Duration) int {
	s.Manager.Mu.Lock()
	defer s.Manager.Mu.Unlock()

	removed := 0
	cutoff := now.Add(-maxIdle)
	for id, room := range s.Manager.Courtrooms {
		if room.Idle(cutoff) {
			delete(s.Manager.Courtrooms, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("swept idle courtrooms", "removed", removed)
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (s *CourtroomService) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now, maxIdle)
		}
	}
}

// FrameConn is a bidirectional live connection, typically a websocket.
type FrameConn interface {
	models.Sink
	ReadMessage() (messageType int, p []byte, err error)
}

// LoopArguments treats every frame read from conn as an argument until the
// connection fails. Turns run on their own goroutine so a frame arriving
// mid-turn hits the in-flight guard instead of queueing behind it; they
// are not cancelled when the connection drops.
func (s *CourtroomService) LoopArguments(ctx context.Context, room *models.Courtroom, conn FrameConn) {
	turnCtx := context.WithoutCancel(ctx)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		argument := string(data)
		go func() {
			if err := s.SendTurn(turnCtx, room, argument); err != nil {
				s.logger.Debug("turn ignored", "courtroom", room.ID, "reason", err)
			}
		}()
	}
}
