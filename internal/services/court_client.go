package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/latestcomment/lexarena/internal/models"
)

var ErrUnexpectedStatus = errors.New("unexpected status from court service")

// CourtBackend is the remote simulation service as seen by the courtroom.
type CourtBackend interface {
	TrialStatus(ctx context.Context, userID string) (models.TrialStatus, error)
	Turn(ctx context.Context, argument, caseContext string) (string, error)
}

type CourtClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	calls      metric.Int64Counter
	latency    metric.Float64Histogram
}

// NewCourtClient builds a client for the service at baseURL. A zero timeout
// leaves requests unbounded.
func NewCourtClient(baseURL string, timeout time.Duration, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) (*CourtClient, error) {
	calls, err := meter.Int64Counter("court_client.requests",
		metric.WithDescription("Requests made to the court service"))
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	latency, err := meter.Float64Histogram("court_client.duration",
		metric.WithDescription("Court service round trip"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create latency histogram: %w", err)
	}

	return &CourtClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		tracer:     tracer,
		calls:      calls,
		latency:    latency,
	}, nil
}

func (c *CourtClient) TrialStatus(ctx context.Context, userID string) (models.TrialStatus, error) {
	var status models.TrialStatus
	endpoint := c.baseURL + "/api/trial-status/" + url.PathEscape(userID)
	if err := c.do(ctx, "trial_status", http.MethodGet, endpoint, nil, &status); err != nil {
		return models.TrialStatus{}, err
	}
	return status, nil
}

func (c *CourtClient) Turn(ctx context.Context, argument, caseContext string) (string, error) {
	payload := models.TurnRequest{
		UserArgument: argument,
		CaseContext:  caseContext,
	}
	var out models.TurnResponse
	if err := c.do(ctx, "turn", http.MethodPost, c.baseURL+"/api/simulation/turn", payload, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

func (c *CourtClient) do(ctx context.Context, op, method, endpoint string, in, out interface{}) (err error) {
	ctx, span := c.tracer.Start(ctx, "court."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", endpoint),
	))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		attrs := metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("outcome", outcome),
		)
		c.calls.Add(ctx, 1, attrs)
		c.latency.Record(ctx, time.Since(start).Seconds(), attrs)
		span.End()
	}()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending %s request: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("court service rejected request",
			"operation", op,
			"status", resp.StatusCode,
			"body", string(snippet),
		)
		return fmt.Errorf("%s: %w: %d", op, ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", op, err)
	}
	return nil
}
