package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	// Pure-Go SQLite driver
	_ "modernc.org/sqlite"

	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

// SQLiteStorage implements Storage with a single SQLite file.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Storage = (*SQLiteStorage)(nil)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		name       TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS speakers (
		id         INTEGER PRIMARY KEY CHECK(id=1),
		data       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS artifacts (
		name       TEXT PRIMARY KEY,
		text       TEXT NOT NULL,
		settings   TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
}

// NewSQLiteStorage opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLiteStorage(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create table: %w", err)
		}
	}

	logger.Info("SQLite storage ready", "path", path)
	return &SQLiteStorage{db: db, logger: logger}, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", "error", err)
		return err
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (s *SQLiteStorage) names(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStorage) SaveSettings(ctx context.Context, settings dialogue.ScriptSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		settings.Name, string(data), now())
	if err != nil {
		s.logger.Error("Failed to save settings", "name", settings.Name, "error", err)
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadSettings(ctx context.Context, name string) (*dialogue.ScriptSettings, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	var settings dialogue.ScriptSettings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return &settings, nil
}

func (s *SQLiteStorage) ListSettings(ctx context.Context) ([]string, error) {
	names, err := s.names(ctx, `SELECT name FROM settings ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return names, nil
}

func (s *SQLiteStorage) SaveSpeakers(ctx context.Context, registry dialogue.Registry) error {
	if err := registry.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(registry)
	if err != nil {
		return fmt.Errorf("failed to marshal speakers: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO speakers (id, data, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		string(data), now())
	if err != nil {
		s.logger.Error("Failed to save speakers", "error", err)
		return fmt.Errorf("failed to save speakers: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadSpeakers(ctx context.Context) (dialogue.Registry, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM speakers WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load speakers: %w", err)
	}
	var registry dialogue.Registry
	if err := json.Unmarshal([]byte(data), &registry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal speakers: %w", err)
	}
	return registry, nil
}

func (s *SQLiteStorage) SaveArtifact(ctx context.Context, artifact *Artifact) error {
	if artifact == nil || artifact.Name == "" {
		return errors.New("artifact name cannot be empty")
	}
	artifact.UpdatedAt = time.Now().UTC()

	settings, err := json.Marshal(artifact.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO artifacts (name, text, settings, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET text=excluded.text, settings=excluded.settings, updated_at=excluded.updated_at`,
		artifact.Name, artifact.Text, string(settings), artifact.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		s.logger.Error("Failed to save artifact", "name", artifact.Name, "error", err)
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadArtifact(ctx context.Context, name string) (*Artifact, error) {
	var (
		a         = Artifact{Name: name}
		settings  string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT text, settings, updated_at FROM artifacts WHERE name = ?`, name,
	).Scan(&a.Text, &settings, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}
	if err := json.Unmarshal([]byte(settings), &a.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact settings: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		a.UpdatedAt = t
	}
	return &a, nil
}

func (s *SQLiteStorage) ListArtifacts(ctx context.Context) ([]string, error) {
	names, err := s.names(ctx, `SELECT name FROM artifacts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return names, nil
}

func (s *SQLiteStorage) DeleteArtifact(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE name = ?`, name); err != nil {
		s.logger.Error("Failed to delete artifact", "name", name, "error", err)
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}
