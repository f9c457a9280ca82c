package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Mr8lueSky/cooplook-back/internal/api"
	"github.com/Mr8lueSky/cooplook-back/internal/auth"
	"github.com/Mr8lueSky/cooplook-back/internal/config"
	"github.com/Mr8lueSky/cooplook-back/internal/metrics"
	"github.com/Mr8lueSky/cooplook-back/internal/room"
	"github.com/Mr8lueSky/cooplook-back/internal/source"
	"github.com/Mr8lueSky/cooplook-back/internal/store"
	"github.com/Mr8lueSky/cooplook-back/internal/torrent"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting cooplook", "config", *configPath)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure required directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		slog.Error("Failed to create directories", "error", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := store.NewDB(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Database initialized", "path", cfg.Database.Path)

	// Initialize repositories
	roomRepo := store.NewRoomRepository(db)
	userRepo := store.NewUserRepository(db)

	// Initialize auth
	authSvc := auth.NewService(userRepo, cfg.Auth.SecretKey, cfg.Auth.PasswordSecretKey, cfg.TokenExpire())

	// Initialize the torrent session
	client, err := torrent.NewClient(&cfg.Torrent)
	if err != nil {
		slog.Error("Failed to start torrent client", "error", err)
		os.Exit(1)
	}
	defer client.Close()
	slog.Info("Torrent client initialized", "save_path", cfg.Torrent.SavePath)

	// Initialize video sources and live room storage
	factory := source.NewFactory(client, &cfg.Torrent)
	storage := room.NewStorage(func(ctx context.Context, id uuid.UUID) (*room.Room, error) {
		rec, err := roomRepo.GetByID(id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, room.ErrRoomNotFound
		}
		src, err := factory.FromRecord(ctx, rec)
		if err != nil {
			return nil, err
		}
		status := room.NewPausedStatus(rec.LastWatchTS, rec.LastFileInd)
		return room.NewRoom(rec.ID, rec.Name, status, src, roomRepo), nil
	}, cfg.InactivityPeriod(), cfg.SweepInterval())

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go storage.Run(sweepCtx)

	// Initialize metrics
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	registry.MustRegister(metrics.NewRoomCollector(storage))
	storage.SetHooks(m.RoomLoads.Inc, m.RoomEvictions.Inc)
	factory.SetServedHook(func(fromCache bool) {
		m.PiecesServed.Inc()
		if fromCache {
			m.PiecesFromCache.Inc()
		}
	})
	factory.SetTimeoutHook(m.PieceTimeouts.Inc)
	metricsServer := metrics.NewServer(cfg.Server.MetricsPort, registry)

	// Initialize the API server
	apiServer := api.NewServer(roomRepo, storage, authSvc, factory, &cfg.Torrent)
	apiServer.SetMetrics(m)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: apiServer.Handler(),
	}

	// Start servers in goroutines
	go func() {
		slog.Info("Starting REST API server", "port", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("REST API server error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting metrics server", "port", cfg.Server.MetricsPort)
		if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server error", "error", err)
		}
	}()

	slog.Info("cooplook is ready",
		"api_url", fmt.Sprintf("http://localhost:%d/api", cfg.Server.HTTPPort),
		"metrics_url", fmt.Sprintf("http://localhost:%d/metrics", cfg.Server.MetricsPort),
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	slog.Info("Received signal, shutting down", "signal", sig)

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("REST API server shutdown error", "error", err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Error("Metrics server shutdown error", "error", err)
	}

	// Persist progress and drop every live room before the torrent session
	// goes away.
	stopSweep()
	storage.CleanupAll()

	slog.Info("cooplook stopped")
}
