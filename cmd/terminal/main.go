package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/latestcomment/lexarena/internal/config"
	"github.com/latestcomment/lexarena/internal/models"
	"github.com/latestcomment/lexarena/internal/services"
	"github.com/latestcomment/lexarena/internal/telemetry"
	"github.com/latestcomment/lexarena/internal/theme"
	"github.com/latestcomment/lexarena/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lexarena-terminal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("lexarena-terminal", os.Args[1:], ".env")
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs only go to the file.
	log, logFile, err := telemetry.InitLogger(cfg.LogFile, cfg.LogLevel, nil)
	if err != nil {
		return err
	}
	defer logFile.Close()

	providers := telemetry.Noop()
	if cfg.Telemetry {
		providers, err = telemetry.Init(context.Background(), cfg.TelemetryDir)
		if err != nil {
			return err
		}
	}
	defer providers.Shutdown()

	client, err := services.NewCourtClient(cfg.BackendURL, cfg.RequestTimeout, log, providers.Tracer, providers.Meter)
	if err != nil {
		return err
	}
	service, err := services.NewCourtroomService(models.NewCourtroomManager(), client, services.CourtroomConfig{
		UserID:      cfg.UserID,
		CaseContext: cfg.CaseContext,
	}, log, providers.Meter)
	if err != nil {
		return err
	}

	model, err := tui.NewModel(service, theme.TerminalFrom(theme.Default))
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("terminal courtroom: %w", err)
	}
	if m, ok := final.(tui.Model); ok && m.TrialEnded() {
		fmt.Println(models.TrialEndedText)
	}
	return nil
}
