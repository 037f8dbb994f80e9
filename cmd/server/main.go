package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/sketchsync/internal/config"
	"github.com/iudanet/sketchsync/internal/server"
	"github.com/iudanet/sketchsync/internal/server/handlers"
	"github.com/iudanet/sketchsync/internal/server/room"
	"github.com/iudanet/sketchsync/internal/server/storage"
	"github.com/iudanet/sketchsync/internal/server/storage/boltdb"
	"github.com/iudanet/sketchsync/internal/server/storage/memory"
	"github.com/iudanet/sketchsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.LoadServer(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	// Show version and exit if requested
	if cfg.ShowVersion {
		printVersion()
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	var jwtConfig *handlers.JWTConfig
	if cfg.AuthEnabled() {
		jwtConfig = &handlers.JWTConfig{Secret: []byte(cfg.JWTSecret), AccessTokenTTL: cfg.TokenTTL}
	}

	if cfg.IssueToken != "" {
		token, _, err := handlers.GenerateAccessToken(*jwtConfig, cfg.IssueToken, cfg.IssueToken)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, jwtConfig, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Server, jwtConfig *handlers.JWTConfig, logger *slog.Logger) error {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()
	logger.Info("Storage opened", "backend", cfg.Backend, "db", cfg.DBPath)

	rooms := room.NewManager(backend, logger)
	defer rooms.Close()

	srv := server.New(server.Config{
		JWT:             jwtConfig,
		Addr:            cfg.Addr,
		Version:         Version,
		RateLimit:       cfg.RateLimit,
		RateWindow:      cfg.RateWindow,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, rooms, logger)

	return srv.Run(ctx)
}

// openBackend открывает хранилище комнат, выбранное в конфигурации
func openBackend(ctx context.Context, cfg *config.Server) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := sqlite.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return s, nil
	case config.BackendBolt:
		s, err := boltdb.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt storage: %w", err)
		}
		return s, nil
	case config.BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func printVersion() {
	fmt.Printf("sketchsync server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
