package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/dialogue-engine/internal/storage"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

type SettingsListResponse struct {
	Settings []string `json:"settings"`
}

// SettingsHandler stores per-script settings.
type SettingsHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func newSettingsHandler(store storage.Storage, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{storage: store, logger: logger}
}

// List handles GET /v1/settings
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.storage.ListSettings(r.Context())
	if err != nil {
		h.logger.Error("Failed to list settings", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list settings")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, SettingsListResponse{Settings: names})
}

// Item handles GET and PUT /v1/settings/{name}. The name in the path
// overrides any name in the body.
func (h *SettingsHandler) Item(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		settings, err := h.storage.LoadSettings(ctx, name)
		if err != nil {
			h.logger.Error("Failed to load settings", "error", err, "name", name)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load settings")
			return
		}
		if settings == nil {
			writeError(w, h.logger, http.StatusNotFound, "Settings not found")
			return
		}
		writeJSON(w, h.logger, http.StatusOK, settings)
	case http.MethodPut:
		var settings dialogue.ScriptSettings
		if err := decodeJSON(w, r, &settings); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		settings.Name = name
		settings = settings.WithDefaults()
		if err := settings.Validate(); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.storage.SaveSettings(ctx, settings); err != nil {
			h.logger.Error("Failed to save settings", "error", err, "name", name)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to save settings")
			return
		}
		writeJSON(w, h.logger, http.StatusOK, settings)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
