package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jwebster45206/dialogue-engine/internal/storage"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

// speakersSchema describes the PUT /v1/speakers body. Script prefixes are
// letters only, matching what the authored-script label pattern accepts.
const speakersSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "additionalProperties": false,
    "required": ["name", "script_prefix", "format"],
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "script_prefix": {"type": "string", "pattern": "^[A-Za-z]+$"},
      "format": {"type": "string", "pattern": "%s"}
    }
  }
}`

var speakersSchemaLoader = gojsonschema.NewStringLoader(speakersSchema)

// validateSpeakersJSON checks data against the speakers schema and returns
// every violation in one error.
func validateSpeakersJSON(data []byte) error {
	result, err := gojsonschema.Validate(speakersSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("invalid speakers payload: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid speakers payload: %s", strings.Join(msgs, "; "))
}

// SpeakersHandler reads and replaces the speaker registry.
// GET|PUT /v1/speakers
type SpeakersHandler struct {
	storage  storage.Storage
	speakers speakerSource
	logger   *slog.Logger
}

func newSpeakersHandler(store storage.Storage, speakers speakerSource, logger *slog.Logger) *SpeakersHandler {
	return &SpeakersHandler{
		storage:  store,
		speakers: speakers,
		logger:   logger,
	}
}

func (h *SpeakersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPut:
		h.handlePut(w, r)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *SpeakersHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	registry, err := h.speakers.load(r.Context())
	if err != nil {
		h.logger.Error("Failed to load speakers", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load speakers")
		return
	}
	if registry == nil {
		registry = dialogue.Registry{}
	}
	writeJSON(w, h.logger, http.StatusOK, registry)
}

func (h *SpeakersHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateSpeakersJSON(data); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	var registry dialogue.Registry
	if err := json.Unmarshal(data, &registry); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := registry.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.storage.SaveSpeakers(r.Context(), registry); err != nil {
		h.logger.Error("Failed to save speakers", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save speakers")
		return
	}
	h.logger.Info("Speakers updated", "count", len(registry))
	writeJSON(w, h.logger, http.StatusOK, registry)
}
