package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/latestcomment/lexarena/internal/config"
	"github.com/latestcomment/lexarena/internal/handlers"
	"github.com/latestcomment/lexarena/internal/layout"
	"github.com/latestcomment/lexarena/internal/models"
	"github.com/latestcomment/lexarena/internal/services"
	"github.com/latestcomment/lexarena/internal/telemetry"
	"github.com/latestcomment/lexarena/internal/theme"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lexarena: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("lexarena", os.Args[1:], ".env")
	if err != nil {
		return err
	}

	log, logFile, err := telemetry.InitLogger(cfg.LogFile, cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers := telemetry.Noop()
	if cfg.Telemetry {
		providers, err = telemetry.Init(ctx, cfg.TelemetryDir)
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
	go service.RunJanitor(ctx, time.Minute, cfg.IdleTTL)

	app := handlers.NewApp(service, layout.NewEngine(theme.Default), &logger.Config{Output: os.Stdout})

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	log.Info("courtroom server listening", "addr", cfg.ListenAddr, "backend", cfg.BackendURL)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	log.Info("courtroom server closed")
	return nil
}
