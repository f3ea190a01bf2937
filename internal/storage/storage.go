package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

// Artifact is a generated artifact saved under its script name.
type Artifact struct {
	Name      string                  `json:"name"`
	Text      string                  `json:"text"`
	Settings  dialogue.ScriptSettings `json:"settings"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Storage persists script settings, the speaker registry and generated
// artifacts. Loads of missing records return nil without an error.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Script settings, keyed by script name
	SaveSettings(ctx context.Context, settings dialogue.ScriptSettings) error
	LoadSettings(ctx context.Context, name string) (*dialogue.ScriptSettings, error)
	ListSettings(ctx context.Context) ([]string, error)

	// Speaker registry, stored as a whole
	SaveSpeakers(ctx context.Context, registry dialogue.Registry) error
	LoadSpeakers(ctx context.Context) (dialogue.Registry, error)

	// Artifacts
	SaveArtifact(ctx context.Context, artifact *Artifact) error
	LoadArtifact(ctx context.Context, name string) (*Artifact, error)
	ListArtifacts(ctx context.Context) ([]string, error)
	DeleteArtifact(ctx context.Context, name string) error
}

// New opens the backend selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Storage, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		r := NewRedisStorage(cfg.RedisURL, logger)
		if err := r.WaitForConnection(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		return r, nil
	case config.BackendSQLite:
		return NewSQLiteStorage(ctx, cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}
