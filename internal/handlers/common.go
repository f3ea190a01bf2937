package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/dialogue-engine/internal/storage"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

var errSettingsNotFound = errors.New("settings not found")

// maxBodyBytes caps request bodies; scripts are small text files.
const maxBodyBytes = 4 << 20

type ErrorResponse struct {
	Error string `json:"error"`
	Line  int    `json:"line,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return data, nil
}

// speakerSource returns the stored speaker registry, or the configured
// fallback when none has been stored yet.
type speakerSource struct {
	storage  storage.Storage
	fallback dialogue.Registry
}

func (s speakerSource) load(ctx context.Context) (dialogue.Registry, error) {
	registry, err := s.storage.LoadSpeakers(ctx)
	if err != nil {
		return nil, err
	}
	if registry == nil {
		return s.fallback, nil
	}
	return registry, nil
}

// settingsSource resolves the settings of a request: explicit settings win,
// then settings stored under a script name, then the configured defaults.
type settingsSource struct {
	storage  storage.Storage
	defaults dialogue.ScriptSettings
}

func (s settingsSource) resolve(ctx context.Context, explicit *dialogue.ScriptSettings, script string) (dialogue.ScriptSettings, error) {
	if explicit != nil {
		return explicit.WithDefaults(), nil
	}
	if script != "" {
		stored, err := s.storage.LoadSettings(ctx, script)
		if err != nil {
			return dialogue.ScriptSettings{}, err
		}
		if stored == nil {
			return dialogue.ScriptSettings{}, fmt.Errorf("%w: %s", errSettingsNotFound, script)
		}
		return stored.WithDefaults(), nil
	}
	return s.defaults.WithDefaults(), nil
}

// settingsStatus maps a resolve error to a response status.
func settingsStatus(err error) int {
	if errors.Is(err, errSettingsNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func diagnosticKinds(diags []dialogue.Diagnostic) []string {
	kinds := make([]string, len(diags))
	for i, d := range diags {
		kinds[i] = string(d.Kind)
	}
	return kinds
}
