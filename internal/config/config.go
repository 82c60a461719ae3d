package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	DefaultListenAddr   = ":3000"
	DefaultBackendURL   = "http://localhost:8000"
	DefaultUserID       = "test-user-id"
	DefaultCaseContext  = "Theft under Section 378 IPC"
	DefaultLogFile      = "logs/lexarena.log"
	DefaultTelemetryDir = "logs"
	DefaultIdleTTL      = 30 * time.Minute
)

// Config holds settings shared by the web server and the terminal client.
type Config struct {
	ListenAddr  string
	BackendURL  string
	UserID      string // placeholder until real auth exists
	CaseContext string

	// RequestTimeout bounds calls to the court service. Zero means no timeout.
	RequestTimeout time.Duration
	IdleTTL        time.Duration

	LogFile      string
	LogLevel     slog.Level
	Telemetry    bool
	TelemetryDir string
}

// Load reads flags from args, then fills anything left unset from the
// environment (after loading envFile if it exists), then from defaults.
func Load(name string, args []string, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	var cfg Config
	var logLevel string

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVarP(&cfg.ListenAddr, "listen", "l", "", "HTTP listen address")
	fs.StringVarP(&cfg.BackendURL, "backend", "b", "", "Base URL of the court simulation service")
	fs.StringVar(&cfg.UserID, "user-id", "", "User identifier sent to the trial-status endpoint")
	fs.StringVar(&cfg.CaseContext, "case-context", "", "Case context sent with every turn")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", -1, "Timeout for court service calls (0 disables)")
	fs.DurationVar(&cfg.IdleTTL, "idle-ttl", 0, "Discard courtrooms idle for this long")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Rotated JSON log file")
	fs.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.Telemetry, "telemetry", false, "Export traces and metrics to the telemetry directory")
	fs.StringVar(&cfg.TelemetryDir, "telemetry-dir", "", "Directory for trace and metric files")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.ListenAddr = firstNonEmpty(cfg.ListenAddr, os.Getenv("LEXARENA_LISTEN"), DefaultListenAddr)
	cfg.BackendURL = strings.TrimRight(firstNonEmpty(cfg.BackendURL, os.Getenv("LEXARENA_BACKEND_URL"), DefaultBackendURL), "/")
	cfg.UserID = firstNonEmpty(cfg.UserID, os.Getenv("LEXARENA_USER_ID"), DefaultUserID)
	cfg.CaseContext = firstNonEmpty(cfg.CaseContext, os.Getenv("LEXARENA_CASE_CONTEXT"), DefaultCaseContext)
	cfg.LogFile = firstNonEmpty(cfg.LogFile, os.Getenv("LEXARENA_LOG_FILE"), DefaultLogFile)
	cfg.TelemetryDir = firstNonEmpty(cfg.TelemetryDir, os.Getenv("LEXARENA_TELEMETRY_DIR"), DefaultTelemetryDir)
	logLevel = firstNonEmpty(logLevel, os.Getenv("LEXARENA_LOG_LEVEL"), "info")

	if !fs.Changed("telemetry") {
		if v := os.Getenv("LEXARENA_TELEMETRY"); v == "1" || strings.EqualFold(v, "true") {
			cfg.Telemetry = true
		}
	}

	if cfg.RequestTimeout < 0 {
		cfg.RequestTimeout = 0
		if v := os.Getenv("LEXARENA_REQUEST_TIMEOUT"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid LEXARENA_REQUEST_TIMEOUT: %w", err)
			}
			cfg.RequestTimeout = d
		}
	}

	if cfg.IdleTTL == 0 {
		cfg.IdleTTL = DefaultIdleTTL
		if v := os.Getenv("LEXARENA_IDLE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid LEXARENA_IDLE_TTL: %w", err)
			}
			cfg.IdleTTL = d
		}
	}
	if cfg.IdleTTL <= 0 {
		return Config{}, errors.New("idle TTL must be positive")
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return Config{}, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}

	u, err := url.Parse(cfg.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("invalid backend URL %q", cfg.BackendURL)
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
