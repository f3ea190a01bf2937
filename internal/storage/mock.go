package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	settings  map[string]dialogue.ScriptSettings
	speakers  dialogue.Registry
	artifacts map[string]Artifact
	pingError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		settings:  make(map[string]dialogue.ScriptSettings),
		artifacts: make(map[string]Artifact),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveSettings(ctx context.Context, settings dialogue.ScriptSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[settings.Name] = settings
	return nil
}

func (m *MockStorage) LoadSettings(ctx context.Context, name string) (*dialogue.ScriptSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[name]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MockStorage) ListSettings(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.settings))
	for name := range m.settings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MockStorage) SaveSpeakers(ctx context.Context, registry dialogue.Registry) error {
	if err := registry.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speakers = append(dialogue.Registry{}, registry...)
	return nil
}

func (m *MockStorage) LoadSpeakers(ctx context.Context) (dialogue.Registry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.speakers == nil {
		return nil, nil
	}
	return append(dialogue.Registry{}, m.speakers...), nil
}

func (m *MockStorage) SaveArtifact(ctx context.Context, artifact *Artifact) error {
	if artifact == nil || artifact.Name == "" {
		return errors.New("artifact name cannot be empty")
	}
	artifact.UpdatedAt = time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[artifact.Name] = *artifact
	return nil
}

func (m *MockStorage) LoadArtifact(ctx context.Context, name string) (*Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artifacts[name]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MockStorage) ListArtifacts(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.artifacts))
	for name := range m.artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MockStorage) DeleteArtifact(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.artifacts, name)
	return nil
}
