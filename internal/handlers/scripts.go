package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/dialogue-engine/internal/observe"
	"github.com/jwebster45206/dialogue-engine/pkg/artifact"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

type ScriptParseRequest struct {
	Text     string                   `json:"text"`
	Script   string                   `json:"script,omitempty"` // name of stored settings
	Settings *dialogue.ScriptSettings `json:"settings,omitempty"`
}

type ScriptParseResponse struct {
	Commands    []dialogue.Command    `json:"commands"`
	Diagnostics []dialogue.Diagnostic `json:"diagnostics"`
}

type CompileResponse struct {
	Text        string                `json:"text"`
	Duration    int                   `json:"duration"`
	Diagnostics []dialogue.Diagnostic `json:"diagnostics"`
}

// ScriptHandler parses authored scripts.
// POST /v1/scripts/parse and POST /v1/compile
type ScriptHandler struct {
	speakers speakerSource
	settings settingsSource
	metrics  *observe.Metrics
	logger   *slog.Logger
	compile  bool
}

func newScriptHandler(speakers speakerSource, settings settingsSource, metrics *observe.Metrics, logger *slog.Logger, compile bool) *ScriptHandler {
	return &ScriptHandler{
		speakers: speakers,
		settings: settings,
		metrics:  metrics,
		logger:   logger,
		compile:  compile,
	}
}

func (h *ScriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var req ScriptParseRequest
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
	registry, err := h.speakers.load(ctx)
	if err != nil {
		h.logger.Error("Failed to load speakers", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load speakers")
		return
	}

	commands, diags := dialogue.ParseAuthoredScript(req.Text, registry, settings.CharacterMultiplier, settings.MinimalSpan)
	h.metrics.RecordParse(ctx, "authored", diagnosticKinds(diags), nil)
	for _, d := range diags {
		h.logger.Warn("Authored script diagnostic", "line", d.Line, "kind", d.Kind, "text", d.Text)
	}
	if commands == nil {
		commands = []dialogue.Command{}
	}
	if diags == nil {
		diags = []dialogue.Diagnostic{}
	}

	if !h.compile {
		writeJSON(w, h.logger, http.StatusOK, ScriptParseResponse{Commands: commands, Diagnostics: diags})
		return
	}

	if err := settings.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	text := artifact.Build(commands, settings)
	h.metrics.Builds.Add(ctx, 1)
	writeJSON(w, h.logger, http.StatusOK, CompileResponse{
		Text:        text,
		Duration:    settings.InitialSpan + artifact.Duration(commands),
		Diagnostics: diags,
	})
}
