package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

const (
	settingsPrefix = "settings:"
	settingsIndex  = "settings"
	artifactPrefix = "artifact:"
	artifactIndex  = "artifacts"
	speakersKey    = "speakers"
)

// RedisStorage implements Storage with JSON values in Redis.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})
	return NewRedisStorageFromClient(rdb, logger)
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(client *redis.Client, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		logger: logger,
	}
}

// Client exposes the underlying connection for pub/sub.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// getJSON loads key into v. It reports false when the key does not exist.
func (r *RedisStorage) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisStorage) members(ctx context.Context, index string) ([]string, error) {
	names, err := r.client.SMembers(ctx, index).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", index, err)
	}
	sort.Strings(names)
	return names, nil
}

// Settings operations

func (r *RedisStorage) SaveSettings(ctx context.Context, settings dialogue.ScriptSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, settingsPrefix+settings.Name, data, 0)
		pipe.SAdd(ctx, settingsIndex, settings.Name)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save settings", "name", settings.Name, "error", err)
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSettings(ctx context.Context, name string) (*dialogue.ScriptSettings, error) {
	var settings dialogue.ScriptSettings
	found, err := r.getJSON(ctx, settingsPrefix+name, &settings)
	if err != nil || !found {
		return nil, err
	}
	return &settings, nil
}

func (r *RedisStorage) ListSettings(ctx context.Context) ([]string, error) {
	return r.members(ctx, settingsIndex)
}

// Speaker operations

func (r *RedisStorage) SaveSpeakers(ctx context.Context, registry dialogue.Registry) error {
	if err := registry.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(registry)
	if err != nil {
		return fmt.Errorf("failed to marshal speakers: %w", err)
	}
	if err := r.client.Set(ctx, speakersKey, data, 0).Err(); err != nil {
		r.logger.Error("Failed to save speakers", "error", err)
		return fmt.Errorf("failed to save speakers: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSpeakers(ctx context.Context) (dialogue.Registry, error) {
	var registry dialogue.Registry
	found, err := r.getJSON(ctx, speakersKey, &registry)
	if err != nil || !found {
		return nil, err
	}
	return registry, nil
}

// Artifact operations

func (r *RedisStorage) SaveArtifact(ctx context.Context, artifact *Artifact) error {
	if artifact == nil || artifact.Name == "" {
		return errors.New("artifact name cannot be empty")
	}
	artifact.UpdatedAt = time.Now()

	data, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, artifactPrefix+artifact.Name, data, 0)
		pipe.SAdd(ctx, artifactIndex, artifact.Name)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save artifact", "name", artifact.Name, "error", err)
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadArtifact(ctx context.Context, name string) (*Artifact, error) {
	var artifact Artifact
	found, err := r.getJSON(ctx, artifactPrefix+name, &artifact)
	if err != nil || !found {
		return nil, err
	}
	return &artifact, nil
}

func (r *RedisStorage) ListArtifacts(ctx context.Context) ([]string, error) {
	return r.members(ctx, artifactIndex)
}

func (r *RedisStorage) DeleteArtifact(ctx context.Context, name string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, artifactPrefix+name)
		pipe.SRem(ctx, artifactIndex, name)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete artifact", "name", name, "error", err)
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}
