package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/jwebster45206/dialogue-engine/internal/handlers"
	"github.com/jwebster45206/dialogue-engine/internal/logger"
	"github.com/jwebster45206/dialogue-engine/internal/observe"
	"github.com/jwebster45206/dialogue-engine/internal/services/events"
	"github.com/jwebster45206/dialogue-engine/internal/storage"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Dialogue Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend,
		"version", version)

	shutdownMetrics, err := observe.InitProvider(context.Background(), "dialogue-engine", version)
	if err != nil {
		log.Error("Failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		log.Error("Failed to create metric instruments", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	store, err := storage.New(storageCtx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	speakers := loadSpeakers(cfg, log)
	broadcaster := connectEvents(store, cfg, log)

	router := handlers.NewRouter(handlers.Deps{
		Storage:     store,
		Broadcaster: broadcaster,
		Speakers:    speakers,
		Defaults:    cfg.Script,
		Metrics:     metrics,
		Logger:      log,
	})
	router.Handle("GET /metrics", promhttp.Handler())

	handler := observe.Middleware(metrics, log)(router)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: SSE streams stay open for a whole playback
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")
	router.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if broadcaster != nil && cfg.StorageBackend != config.BackendRedis {
		if err := broadcaster.Client().Close(); err != nil {
			log.Error("Error closing events connection", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		log.Error("Error shutting down metrics", "error", err)
	}

	log.Info("Server exited")
}

// loadSpeakers reads the speakers file used until a registry is stored
// through the API. When it cannot be read the registry starts empty.
func loadSpeakers(cfg *config.Config, log *slog.Logger) dialogue.Registry {
	registry, err := config.LoadSpeakersFile(cfg.SpeakersFile)
	if err != nil {
		log.Warn("Speakers file not loaded", "path", cfg.SpeakersFile, "error", err)
		return nil
	}
	log.Info("Loaded speakers", "path", cfg.SpeakersFile, "count", len(registry))
	return registry
}

// connectEvents returns a broadcaster over Redis, reusing the storage
// connection when storage is Redis. Without Redis, playback is disabled.
func connectEvents(store storage.Storage, cfg *config.Config, log *slog.Logger) *events.Broadcaster {
	if rs, ok := store.(*storage.RedisStorage); ok {
		return events.NewBroadcaster(rs.Client(), logger.WithComponent(log, "events"))
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, playback events disabled", "addr", cfg.RedisURL, "error", err)
		_ = client.Close()
		return nil
	}
	log.Info("Playback events enabled", "addr", cfg.RedisURL)
	return events.NewBroadcaster(client, logger.WithComponent(log, "events"))
}
