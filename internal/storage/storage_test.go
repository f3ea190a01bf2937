package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRedisStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStorageFromClient(rdb, testLogger())
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func setupSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := NewSQLiteStorage(context.Background(), filepath.Join(t.TempDir(), "nested", "dialogue.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func backends(t *testing.T) map[string]Storage {
	redisStorage, _ := setupRedisStorage(t)
	return map[string]Storage{
		"redis":  redisStorage,
		"sqlite": setupSQLiteStorage(t),
		"mock":   NewMockStorage(),
	}
}

func TestStorage_Settings(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Ping(ctx))

			loaded, err := s.LoadSettings(ctx, "intro")
			require.NoError(t, err)
			assert.Nil(t, loaded)

			settings := dialogue.ScriptSettings{Name: "intro", InitialSpan: 5, CharacterMultiplier: 3, MinimalSpan: 12, Increment: 1}
			require.NoError(t, s.SaveSettings(ctx, settings))
			settings.InitialSpan = 8
			require.NoError(t, s.SaveSettings(ctx, settings))
			require.NoError(t, s.SaveSettings(ctx, dialogue.ScriptSettings{Name: "another"}))

			loaded, err = s.LoadSettings(ctx, "intro")
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, settings, *loaded)

			names, err := s.ListSettings(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"another", "intro"}, names)

			assert.Error(t, s.SaveSettings(ctx, dialogue.ScriptSettings{Name: "has space"}))
		})
	}
}

func TestStorage_Speakers(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			registry, err := s.LoadSpeakers(ctx)
			require.NoError(t, err)
			assert.Nil(t, registry)

			want := dialogue.Registry{
				{Name: "Alice", ScriptPrefix: "alice", Format: "say <Alice> %s"},
				{Name: "Bob", ScriptPrefix: "bob", Format: "say <Bob> %s"},
			}
			require.NoError(t, s.SaveSpeakers(ctx, want))

			registry, err = s.LoadSpeakers(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, registry)

			invalid := dialogue.Registry{{Name: "C", ScriptPrefix: "c", Format: "say hi"}}
			assert.Error(t, s.SaveSpeakers(ctx, invalid))
		})
	}
}

func TestStorage_Artifacts(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			a := &Artifact{
				Name:     "intro",
				Text:     "scoreboard players add @s intro 1\n",
				Settings: dialogue.ScriptSettings{Name: "intro", InitialSpan: 10, Increment: 1},
			}
			require.NoError(t, s.SaveArtifact(ctx, a))
			assert.False(t, a.UpdatedAt.IsZero())
			require.NoError(t, s.SaveArtifact(ctx, &Artifact{Name: "outro", Text: "x"}))

			loaded, err := s.LoadArtifact(ctx, "intro")
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, a.Text, loaded.Text)
			assert.Equal(t, a.Settings, loaded.Settings)

			names, err := s.ListArtifacts(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"intro", "outro"}, names)

			require.NoError(t, s.DeleteArtifact(ctx, "intro"))
			loaded, err = s.LoadArtifact(ctx, "intro")
			require.NoError(t, err)
			assert.Nil(t, loaded)

			names, err = s.ListArtifacts(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"outro"}, names)

			assert.Error(t, s.SaveArtifact(ctx, &Artifact{}))
		})
	}
}

func TestRedisStorage_PingFailure(t *testing.T) {
	s, mr := setupRedisStorage(t)
	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}

func TestRedisStorage_Keys(t *testing.T) {
	s, mr := setupRedisStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveArtifact(ctx, &Artifact{Name: "intro", Text: "x"}))
	assert.True(t, mr.Exists("artifact:intro"))
	ok, err := mr.SIsMember("artifacts", "intro")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMockStorage_PingError(t *testing.T) {
	m := NewMockStorage()
	m.SetPingError(errors.New("down"))
	assert.Error(t, m.Ping(context.Background()))
	m.SetPingSuccess()
	assert.NoError(t, m.Ping(context.Background()))
}

func TestNew(t *testing.T) {
	s, err := New(context.Background(), &config.Config{
		StorageBackend: config.BackendSQLite,
		SQLitePath:     filepath.Join(t.TempDir(), "d.db"),
	}, testLogger())
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(*SQLiteStorage)
	assert.True(t, ok)

	_, err = New(context.Background(), &config.Config{StorageBackend: "csv"}, testLogger())
	assert.Error(t, err)
}
