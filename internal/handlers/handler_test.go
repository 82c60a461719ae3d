package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/latestcomment/lexarena/internal/layout"
	"github.com/latestcomment/lexarena/internal/models"
	"github.com/latestcomment/lexarena/internal/services"
	"github.com/latestcomment/lexarena/internal/telemetry"
	"github.com/latestcomment/lexarena/internal/theme"
)

// fakeCourt stands in for the remote simulation service.
type fakeCourt struct {
	trialBody   string
	trialStatus int
	turnStatus  int
	turns       atomic.Int32
	trialChecks atomic.Int32
}

func (f *fakeCourt) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/api/trial-status/"):
		f.trialChecks.Add(1)
		if f.trialStatus != 0 {
			w.WriteHeader(f.trialStatus)
			return
		}
		body := f.trialBody
		if body == "" {
			body = `{"has_used_trial":false,"is_premium":true}`
		}
		w.Write([]byte(body))
	case r.URL.Path == "/api/simulation/turn":
		f.turns.Add(1)
		if f.turnStatus != 0 {
			w.WriteHeader(f.turnStatus)
			return
		}
		var req models.TurnRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(models.TurnResponse{Response: "Overruled: " + req.UserArgument})
	default:
		http.NotFound(w, r)
	}
}

func setup(t *testing.T, court *fakeCourt) (*fiber.App, *services.CourtroomService) {
	t.Helper()
	srv := httptest.NewServer(court)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	noop := telemetry.Noop()
	client, err := services.NewCourtClient(srv.URL, 0, logger, noop.Tracer, noop.Meter)
	if err != nil {
		t.Fatalf("NewCourtClient: %v", err)
	}
	svc, err := services.NewCourtroomService(models.NewCourtroomManager(), client, services.CourtroomConfig{
		UserID:      "test-user-id",
		CaseContext: "Theft under Section 378 IPC",
	}, logger, noop.Meter)
	if err != nil {
		t.Fatalf("NewCourtroomService: %v", err)
	}
	return NewApp(svc, layout.NewEngine(theme.Default), nil), svc
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, string(body)
}

func TestHealth(t *testing.T) {
	app, _ := setup(t, &fakeCourt{})

	resp, body := do(t, app, httptest.NewRequest("GET", "/health", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, `"status":"ok"`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestEntryPage(t *testing.T) {
	app, _ := setup(t, &fakeCourt{})

	resp, body := do(t, app, httptest.NewRequest("GET", "/", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "<title>LexArena</title>") {
		t.Error("layout metadata missing")
	}
	if !strings.Contains(body, "--background: hsl(210, 40%, 98%);") {
		t.Error("theme variables missing")
	}
	if strings.Contains(body, models.TrialEndedText) {
		t.Error("alert shown without notice")
	}

	_, body = do(t, app, httptest.NewRequest("GET", "/?notice=trial-ended", nil))
	if !strings.Contains(body, models.TrialEndedText) {
		t.Error("trial-ended alert missing")
	}
}

func TestOpenCourtroomRendersGreeting(t *testing.T) {
	app, svc := setup(t, &fakeCourt{})

	resp, body := do(t, app, httptest.NewRequest("GET", "/courtroom", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, models.GreetingText) {
		t.Error("greeting missing from transcript")
	}
	if len(svc.Manager.Courtrooms) != 1 {
		t.Errorf("expected one courtroom, got %d", len(svc.Manager.Courtrooms))
	}

	do(t, app, httptest.NewRequest("GET", "/courtroom", nil))
	if len(svc.Manager.Courtrooms) != 2 {
		t.Errorf("reload should open a fresh courtroom, have %d", len(svc.Manager.Courtrooms))
	}
}

func TestTrialGate(t *testing.T) {
	cases := []struct {
		name         string
		court        *fakeCourt
		wantRedirect bool
	}{
		{"exhausted", &fakeCourt{trialBody: `{"has_used_trial":true,"is_premium":false}`}, true},
		{"premium", &fakeCourt{trialBody: `{"has_used_trial":true,"is_premium":true}`}, false},
		{"unused", &fakeCourt{trialBody: `{"has_used_trial":false,"is_premium":false}`}, false},
		{"status error", &fakeCourt{trialStatus: http.StatusInternalServerError}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app, _ := setup(t, tc.court)

			resp, body := do(t, app, httptest.NewRequest("GET", "/courtroom", nil))
			if tc.wantRedirect {
				if resp.StatusCode != http.StatusFound {
					t.Fatalf("Expected status 302, got %d", resp.StatusCode)
				}
				if loc := resp.Header.Get("Location"); loc != "/?notice=trial-ended" {
					t.Errorf("Location = %q", loc)
				}
				return
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", resp.StatusCode)
			}
			if !strings.Contains(body, models.GreetingText) || strings.Contains(body, models.TrialEndedText) {
				t.Error("courtroom not rendered cleanly")
			}
		})
	}
}

func TestSubmitTurnFormRedirectsBack(t *testing.T) {
	court := &fakeCourt{}
	app, svc := setup(t, court)
	room := svc.OpenCourtroom()

	form := url.Values{"argument": {"Objection"}}
	req := httptest.NewRequest("POST", "/courtroom/"+room.ID.String()+"/turn", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, _ := do(t, app, req)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("Expected status 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/courtroom/"+room.ID.String()+"#transcript-end" {
		t.Errorf("Location = %q", loc)
	}

	msgs := room.Transcript.Snapshot()
	if len(msgs) != 3 || msgs[2].Content != "Overruled: Objection" {
		t.Errorf("unexpected transcript %+v", msgs)
	}

	_, body := do(t, app, httptest.NewRequest("GET", "/courtroom/"+room.ID.String(), nil))
	if !strings.Contains(body, "Overruled: Objection") {
		t.Error("reply missing from re-rendered page")
	}
}

func TestSubmitBlankTurnDoesNothing(t *testing.T) {
	court := &fakeCourt{}
	app, svc := setup(t, court)
	room := svc.OpenCourtroom()

	req := httptest.NewRequest("POST", "/courtroom/"+room.ID.String()+"/turn", strings.NewReader("argument=+++"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	do(t, app, req)

	if room.Transcript.Len() != 1 {
		t.Errorf("blank argument appended messages")
	}
	if court.turns.Load() != 0 {
		t.Errorf("blank argument reached the court service")
	}
}

func TestJSONTurn(t *testing.T) {
	court := &fakeCourt{}
	app, svc := setup(t, court)
	room := svc.OpenCourtroom()
	path := "/api/courtrooms/" + room.ID.String()

	req := httptest.NewRequest("POST", path+"/turn", strings.NewReader(`{"argument":"Objection"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, body := do(t, app, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
	}

	var out transcriptResponse
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.ID != room.ID.String() || out.Loading || len(out.Messages) != 3 {
		t.Errorf("unexpected response %+v", out)
	}
	if out.Messages[1].Role != models.RoleYou || out.Messages[2].Role != models.RoleJudge {
		t.Errorf("unexpected roles %+v", out.Messages)
	}

	resp, body = do(t, app, httptest.NewRequest("GET", path+"/transcript", nil))
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Overruled: Objection") {
		t.Errorf("transcript endpoint: %d %s", resp.StatusCode, body)
	}
}

func TestJSONTurnErrors(t *testing.T) {
	court := &fakeCourt{turnStatus: http.StatusInternalServerError}
	app, svc := setup(t, court)
	room := svc.OpenCourtroom()

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"blank argument", "/api/courtrooms/" + room.ID.String() + "/turn", `{"argument":"  "}`, http.StatusBadRequest},
		{"unknown courtroom", "/api/courtrooms/00000000-0000-0000-0000-000000000000/turn", `{"argument":"x"}`, http.StatusNotFound},
		{"malformed id", "/api/courtrooms/nope/turn", `{"argument":"x"}`, http.StatusNotFound},
		{"malformed body", "/api/courtrooms/" + room.ID.String() + "/turn", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			resp, body := do(t, app, req)
			if resp.StatusCode != tc.want {
				t.Errorf("Expected status %d, got %d: %s", tc.want, resp.StatusCode, body)
			}
		})
	}

	// A failing court service is not an HTTP error; it becomes a system message.
	req := httptest.NewRequest("POST", "/api/courtrooms/"+room.ID.String()+"/turn", strings.NewReader(`{"argument":"Objection"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, body := do(t, app, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, models.AgentFailureText) {
		t.Errorf("system error missing: %s", body)
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app, svc := setup(t, &fakeCourt{})
	room := svc.OpenCourtroom()

	resp, _ := do(t, app, httptest.NewRequest("GET", "/ws/courtroom/"+room.ID.String(), nil))
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("Expected status 426, got %d", resp.StatusCode)
	}
}

func TestShowCourtroomChecksTrialOnce(t *testing.T) {
	court := &fakeCourt{}
	app, svc := setup(t, court)

	resp, _ := do(t, app, httptest.NewRequest("GET", "/courtroom/"+uuid.NewString(), nil))
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/courtroom" {
		t.Fatalf("unknown courtroom: status %d, location %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if n := court.trialChecks.Load(); n != 0 {
		t.Errorf("unknown courtroom checked the trial %d times before redirecting", n)
	}

	room := svc.OpenCourtroom()
	resp, _ = do(t, app, httptest.NewRequest("GET", "/courtroom/"+room.ID.String(), nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if n := court.trialChecks.Load(); n != 1 {
		t.Errorf("expected one trial check, got %d", n)
	}
}

func serve(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go app.Listener(ln)
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(time.Second) })
	return ln.Addr().String()
}

func readEvent(t *testing.T, conn *websocket.Conn) models.Event {
	t.Helper()
	var ev models.Event
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func subscriberCount(room *models.Courtroom) int {
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return len(room.Subscribers)
}

func TestWebSocketReplaysRunsTurnsAndUnsubscribes(t *testing.T) {
	court := &fakeCourt{}
	app, svc := setup(t, court)
	room := svc.OpenCourtroom()
	addr := serve(t, app)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/courtroom/"+room.ID.String(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	greeting := readEvent(t, conn)
	if greeting.Type != models.EventMessage || greeting.Message.Content != models.GreetingText {
		t.Fatalf("expected greeting replay, got %+v", greeting)
	}
	if ev := readEvent(t, conn); ev.Type != models.EventLoading || ev.Loading {
		t.Fatalf("expected idle loading state, got %+v", ev)
	}
	if n := subscriberCount(room); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("Objection")); err != nil {
		t.Fatalf("write: %v", err)
	}

	want := []models.Event{
		models.LoadingEvent(true),
		models.MessageEvent(models.Message{Role: models.RoleYou, Content: "Objection"}),
		models.MessageEvent(models.Message{Role: models.RoleJudge, Content: "Overruled: Objection"}),
		models.LoadingEvent(false),
	}
	for i, w := range want {
		got := readEvent(t, conn)
		if got.Type != w.Type || got.Loading != w.Loading {
			t.Fatalf("event %d: expected %+v, got %+v", i, w, got)
		}
		if w.Message != nil && (got.Message == nil || got.Message.Role != w.Message.Role || got.Message.Content != w.Message.Content) {
			t.Fatalf("event %d: expected message %+v, got %+v", i, *w.Message, got.Message)
		}
	}
	if n := court.turns.Load(); n != 1 {
		t.Errorf("expected 1 turn request, got %d", n)
	}

	conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for subscriberCount(room) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber still attached after the client closed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if n := room.Transcript.Len(); n != 3 {
		t.Errorf("expected 3 messages, got %d", n)
	}
}

func TestAssetsServed(t *testing.T) {
	app, _ := setup(t, &fakeCourt{})

	for _, path := range []string{"/assets/courtroom.js", "/assets/courtroom.css"} {
		resp, body := do(t, app, httptest.NewRequest("GET", path, nil))
		if resp.StatusCode != http.StatusOK || body == "" {
			t.Errorf("%s: status %d, %d bytes", path, resp.StatusCode, len(body))
		}
	}
}
