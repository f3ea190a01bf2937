package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/dialogue-engine/internal/observe"
	"github.com/jwebster45206/dialogue-engine/internal/storage"
	"github.com/jwebster45206/dialogue-engine/pkg/artifact"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

type ArtifactParseRequest struct {
	Text string `json:"text"`
}

type ArtifactBuildRequest struct {
	Commands []dialogue.Command       `json:"commands"`
	Script   string                   `json:"script,omitempty"`
	Settings *dialogue.ScriptSettings `json:"settings,omitempty"`
}

type ArtifactListResponse struct {
	Artifacts []string `json:"artifacts"`
}

// ArtifactHandler parses, builds and stores generated artifacts.
type ArtifactHandler struct {
	storage  storage.Storage
	speakers speakerSource
	settings settingsSource
	metrics  *observe.Metrics
	logger   *slog.Logger
}

func newArtifactHandler(store storage.Storage, speakers speakerSource, settings settingsSource, metrics *observe.Metrics, logger *slog.Logger) *ArtifactHandler {
	return &ArtifactHandler{
		storage:  store,
		speakers: speakers,
		settings: settings,
		metrics:  metrics,
		logger:   logger,
	}
}

// Parse handles POST /v1/artifacts/parse
func (h *ArtifactHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req ArtifactParseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	registry, err := h.speakers.load(ctx)
	if err != nil {
		h.logger.Error("Failed to load speakers", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load speakers")
		return
	}

	script, err := artifact.Parse(req.Text, artifact.WithSpeakers(registry))
	if err != nil {
		h.metrics.RecordParse(ctx, "artifact", nil, err)
		h.logger.Warn("Artifact parse failed", "error", err)

		resp := ErrorResponse{Error: err.Error()}
		var perr *artifact.ParseError
		if errors.As(err, &perr) {
			resp.Line = perr.Line
		}
		writeJSON(w, h.logger, http.StatusUnprocessableEntity, resp)
		return
	}

	h.metrics.RecordParse(ctx, "artifact", diagnosticKinds(script.Diagnostics), nil)
	for _, d := range script.Diagnostics {
		h.logger.Warn("Artifact diagnostic", "line", d.Line, "kind", d.Kind, "text", d.Text)
	}
	writeJSON(w, h.logger, http.StatusOK, script)
}

// Build handles POST /v1/artifacts/build. With ?save=true the artifact is
// also stored under the script name.
func (h *ArtifactHandler) Build(w http.ResponseWriter, r *http.Request) {
	var req ArtifactBuildRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	settings, err := h.settings.resolve(ctx, req.Settings, req.Script)
	if err != nil {
		writeError(w, h.logger, settingsStatus(err), err.Error())
		return
	}
	if err := settings.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	registry, err := h.speakers.load(ctx)
	if err != nil {
		h.logger.Error("Failed to load speakers", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load speakers")
		return
	}
	commands, err := dialogue.Resolve(req.Commands, registry)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	text := artifact.Build(commands, settings)
	h.metrics.Builds.Add(ctx, 1)

	if r.URL.Query().Get("save") == "true" {
		if err := h.storage.SaveArtifact(ctx, &storage.Artifact{Name: settings.Name, Text: text, Settings: settings}); err != nil {
			h.logger.Error("Failed to save artifact", "error", err, "name", settings.Name)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to save artifact")
			return
		}
		h.logger.Info("Artifact saved", "name", settings.Name)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		h.logger.Error("Failed to write artifact", "error", err)
	}
}

// List handles GET /v1/artifacts
func (h *ArtifactHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.storage.ListArtifacts(r.Context())
	if err != nil {
		h.logger.Error("Failed to list artifacts", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list artifacts")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ArtifactListResponse{Artifacts: names})
}

// Item handles GET and DELETE /v1/artifacts/{name}
func (h *ArtifactHandler) Item(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		a, err := h.storage.LoadArtifact(ctx, name)
		if err != nil {
			h.logger.Error("Failed to load artifact", "error", err, "name", name)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load artifact")
			return
		}
		if a == nil {
			writeError(w, h.logger, http.StatusNotFound, "Artifact not found")
			return
		}
		writeJSON(w, h.logger, http.StatusOK, a)
	case http.MethodDelete:
		if err := h.storage.DeleteArtifact(ctx, name); err != nil {
			h.logger.Error("Failed to delete artifact", "error", err, "name", name)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete artifact")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
