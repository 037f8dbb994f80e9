package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/sketchsync/internal/client/api"
	"github.com/iudanet/sketchsync/internal/client/presence"
	clientsignal "github.com/iudanet/sketchsync/internal/client/signal"
	"github.com/iudanet/sketchsync/internal/client/storage/boltdb"
	"github.com/iudanet/sketchsync/internal/client/store"
	clientsync "github.com/iudanet/sketchsync/internal/client/sync"
	"github.com/iudanet/sketchsync/internal/client/transport"
	"github.com/iudanet/sketchsync/internal/config"
	"github.com/iudanet/sketchsync/internal/models"
	"github.com/iudanet/sketchsync/internal/roomid"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.LoadClient(os.Args[1:], os.Getenv, os.Stderr)
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Client failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Client, logger *slog.Logger) error {
	// Открываем BoltDB storage
	boltStorage, err := boltdb.New(ctx, cfg.StatePath)
	if err != nil {
		return fmt.Errorf("failed to open state file: %w", err)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close state file", "error", err)
		}
	}()

	apiClient := api.NewClient(cfg.ServerURL)

	identity, err := resolveIdentity(ctx, cfg, apiClient, boltStorage, logger)
	if err != nil {
		return err
	}

	roomID := cfg.Room
	if roomID == "" {
		roomID = roomid.New()
		logger.Info("Created new room", "room_id", roomID)
	}

	roomURL, err := apiClient.RoomURL(roomID)
	if err != nil {
		return err
	}

	wsCfg := connectionConfig(roomURL, identity)
	conn, err := transport.DialWS(wsCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	engine := clientsync.New(store.New(), conn, logger.With("room_id", roomID))
	defer engine.Close()

	engine.OnStateChange(func(st clientsync.State) {
		if st.Err != nil {
			logger.Error("Sync state", "status", st.Status, "connection", st.Connection, "error", st.Err)
			return
		}
		logger.Info("Sync state", "status", st.Status, "connection", st.Connection)
	})

	logger.Info("Joining room", "room_id", roomID, "user_id", identity.UserID, "client_id", wsCfg.ClientID, "url", roomURL)
	if err := engine.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	prefs := clientsignal.New(models.UserPreferences{
		ID:    identity.UserID,
		Name:  identity.Name,
		Color: identity.Color,
	})
	reconciler := presence.New(engine, prefs, logger)
	reconciler.Start()

	engine.OnClose(conn.WatchRoster(func(ids []string) {
		logger.Info("Roster changed", "clients", ids)
	}))

	if cfg.Shapes > 0 {
		go runDemo(ctx, engine.Store(), identity.UserID, cfg.Shapes, logger)
	}

	<-ctx.Done()

	others, err := othersCount(engine, reconciler)
	if err != nil {
		logger.Warn("Failed to read presence", "error", err)
	}
	logger.Info("Leaving room",
		"room_id", roomID,
		"records", engine.Store().Len(),
		"others", others)
	return nil
}

// othersCount читает число других участников комнаты. Состояние реконсилера
// принадлежит циклу движка, поэтому чтение идет через Do.
func othersCount(engine *clientsync.Engine, reconciler *presence.Reconciler) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	others := 0
	if err := engine.Do(ctx, func() { others = len(reconciler.Others()) }); err != nil {
		return 0, err
	}
	return others, nil
}

func printVersion() {
	fmt.Printf("sketchsync client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
