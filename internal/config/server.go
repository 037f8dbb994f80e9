package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"
)

// Хранилища комнат
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Server - конфигурация сервера
type Server struct {
	Addr      string
	Backend   string
	DBPath    string
	JWTSecret string
	// IssueToken - если задан, сервер печатает токен для этого пользователя и завершается
	IssueToken      string
	LogLevel        string
	LogFormat       string
	TokenTTL        time.Duration
	RateWindow      time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int
	ShowVersion     bool
}

// DefaultServer returns the server defaults.
func DefaultServer() Server {
	return Server{
		Addr:            ":8080",
		Backend:         BackendMemory,
		LogLevel:        "info",
		LogFormat:       LogFormatText,
		TokenTTL:        24 * time.Hour,
		RateLimit:       20,
		RateWindow:      time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// LoadServer builds the server configuration from getenv and args.
func LoadServer(args []string, getenv func(string) string, output io.Writer) (*Server, error) {
	cfg := DefaultServer()

	e := &env{getenv: getenv}
	e.setString("ADDR", &cfg.Addr)
	e.setString("BACKEND", &cfg.Backend)
	e.setString("DB", &cfg.DBPath)
	e.setString("JWT_SECRET", &cfg.JWTSecret)
	e.setDuration("TOKEN_TTL", &cfg.TokenTTL)
	e.setInt("RATE_LIMIT", &cfg.RateLimit)
	e.setDuration("RATE_WINDOW", &cfg.RateWindow)
	e.setDuration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)
	e.setString("LOG_LEVEL", &cfg.LogLevel)
	e.setString("LOG_FORMAT", &cfg.LogFormat)
	if e.err != nil {
		return nil, e.err
	}

	fs := flag.NewFlagSet("sketchsync-server", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Room storage: memory, sqlite or bolt")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Database file for sqlite and bolt backends")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for access tokens; empty disables authentication")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Access token lifetime")
	fs.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Requests allowed per client in one window")
	fs.DurationVar(&cfg.RateWindow, "rate-window", cfg.RateWindow, "Rate limit window")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	fs.StringVar(&cfg.IssueToken, "issue-token", "", "Print an access token for the user and exit")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	return &cfg, nil
}

// Validate checks the configuration before the server starts.
func (c *Server) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite, BackendBolt:
		if c.DBPath == "" {
			return fmt.Errorf("backend %s requires -db", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.Addr == "" {
		return errors.New("listen address is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if c.IssueToken != "" && c.JWTSecret == "" {
		return errors.New("-issue-token requires -jwt-secret")
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		return errors.New("rate limit and window must be positive")
	}
	return validateLog(c.LogLevel, c.LogFormat)
}

// AuthEnabled reports whether room endpoints require an access token.
func (c *Server) AuthEnabled() bool {
	return c.JWTSecret != ""
}
