package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "STORAGE_BACKEND", "SCRIPT_INITIAL_SPAN", "SCRIPT_NAME"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
	assert.Equal(t, 10, cfg.Script.InitialSpan)
	assert.Equal(t, 4, cfg.Script.CharacterMultiplier)
	assert.Equal(t, 20, cfg.Script.MinimalSpan)
	assert.Equal(t, 1, cfg.Script.Increment)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("SCRIPT_NAME", "intro")
	t.Setenv("SCRIPT_INITIAL_SPAN", "0")
	t.Setenv("SCRIPT_MINIMAL_SPAN", "15")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, BackendRedis, cfg.StorageBackend)
	assert.Equal(t, "intro", cfg.Script.Name)
	assert.Equal(t, 0, cfg.Script.InitialSpan)
	assert.Equal(t, 15, cfg.Script.MinimalSpan)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SCRIPT_INITIAL_SPAN", "ten"},
		{"SCRIPT_INCREMENT", "-1"},
		{"STORAGE_BACKEND", "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadSpeakers(t *testing.T) {
	yml := `speakers:
  - name: Alice
    script_prefix: alice
    format: 'tellraw @a {"text":"<Alice> %s"}'
  - name: Guard
    script_prefix: g
    format: 'say %s'
`
	registry, err := LoadSpeakers(strings.NewReader(yml))
	require.NoError(t, err)
	require.Len(t, registry, 2)
	assert.Equal(t, "Alice", registry[0].Name)
	s, ok := registry.Resolve("G")
	require.True(t, ok)
	assert.Equal(t, "Guard", s.Name)
}

func TestLoadSpeakers_Errors(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{"unknown field", "speakers:\n  - name: A\n    prefix: a\n    format: 'say %s'\n"},
		{"no placeholder", "speakers:\n  - name: A\n    script_prefix: a\n    format: 'say hi'\n"},
		{"duplicate prefix", "speakers:\n  - name: A\n    script_prefix: a\n    format: 'say %s'\n  - name: B\n    script_prefix: A\n    format: 'say %s'\n"},
		{"not yaml", "speakers: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSpeakers(strings.NewReader(tt.yml))
			assert.Error(t, err)
		})
	}
}

func TestLoadSpeakersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speakers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("speakers:\n  - name: Bob\n    script_prefix: bob\n    format: 'say <Bob> %s'\n"), 0o644))

	registry, err := LoadSpeakersFile(path)
	require.NoError(t, err)
	require.Len(t, registry, 1)

	_, err = LoadSpeakersFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	registry, err = LoadSpeakersFile(empty)
	require.NoError(t, err)
	assert.Empty(t, registry)
}
