package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/dialogue-engine/internal/observe"
	"github.com/jwebster45206/dialogue-engine/internal/services/events"
	"github.com/jwebster45206/dialogue-engine/pkg/artifact"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
	"github.com/jwebster45206/dialogue-engine/pkg/playback"
)

// PlaybackRequest starts a server-side playback of either commands or an
// artifact. The artifact's initial span applies unless InitialSpan is set.
type PlaybackRequest struct {
	Commands     []dialogue.Command `json:"commands,omitempty"`
	Artifact     string             `json:"artifact,omitempty"`
	Script       string             `json:"script,omitempty"`
	InitialSpan  *int               `json:"initial_span,omitempty"`
	RangeStartID uuid.UUID          `json:"range_start_id,omitempty"`
	RangeEndID   uuid.UUID          `json:"range_end_id,omitempty"`
}

type PlaybackResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Steps     int       `json:"steps"`
}

type PlaybackStatusResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	State     string    `json:"state"`
	Index     int       `json:"index"`
}

// PlaybackHandler runs playback sessions whose signals are published as
// events on the session's channel.
type PlaybackHandler struct {
	broadcaster *events.Broadcaster
	speakers    speakerSource
	settings    settingsSource
	metrics     *observe.Metrics
	logger      *slog.Logger
	opts        []playback.Option

	mu       sync.Mutex
	sessions map[uuid.UUID]*playback.Session
}

func newPlaybackHandler(broadcaster *events.Broadcaster, speakers speakerSource, settings settingsSource, metrics *observe.Metrics, logger *slog.Logger, opts []playback.Option) *PlaybackHandler {
	return &PlaybackHandler{
		broadcaster: broadcaster,
		speakers:    speakers,
		settings:    settings,
		metrics:     metrics,
		logger:      logger,
		opts:        opts,
		sessions:    make(map[uuid.UUID]*playback.Session),
	}
}

// Start handles POST /v1/playback
func (h *PlaybackHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.broadcaster == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Playback events are not available")
		return
	}

	var req PlaybackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	commands, initialSpan, status, err := h.commands(ctx, req)
	if err != nil {
		writeError(w, h.logger, status, err.Error())
		return
	}
	if req.InitialSpan != nil {
		initialSpan = *req.InitialSpan
	}

	id := uuid.New()
	// events outlive the request
	eventCtx := context.WithoutCancel(ctx)
	start, end, _ := playback.ResolveRange(commands, req.RangeStartID, req.RangeEndID)
	steps := 0
	if start >= 0 {
		steps = end - start + 1
	}

	if err := h.broadcaster.PublishStarted(eventCtx, id, req.Script, start, end); err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to publish playback event")
		return
	}

	cb := h.broadcaster.Callbacks(eventCtx, id)
	onIndex := cb.OnIndexChange
	cb.OnIndexChange = func(i int) {
		if i >= 0 {
			h.metrics.PlaybackSteps.Add(eventCtx, 1)
		}
		onIndex(i)
	}

	opts := append([]playback.Option{
		playback.WithSessionID(id),
		playback.WithRange(req.RangeStartID, req.RangeEndID),
		playback.WithLogger(h.logger),
	}, h.opts...)

	h.metrics.PlaybackSessions.Add(eventCtx, 1)
	session := playback.Start(commands, initialSpan, cb, opts...)

	h.mu.Lock()
	h.sessions[id] = session
	h.mu.Unlock()

	go h.track(eventCtx, session)

	h.logger.Info("Playback started", "session_id", id.String(), "steps", steps)
	writeJSON(w, h.logger, http.StatusAccepted, PlaybackResponse{SessionID: id, Steps: steps})
}

func (h *PlaybackHandler) commands(ctx context.Context, req PlaybackRequest) ([]dialogue.Command, int, int, error) {
	settings, err := h.settings.resolve(ctx, nil, req.Script)
	if err != nil {
		return nil, 0, settingsStatus(err), err
	}

	if req.Artifact != "" {
		registry, err := h.speakers.load(ctx)
		if err != nil {
			return nil, 0, http.StatusInternalServerError, errors.New("failed to load speakers")
		}
		script, err := artifact.Parse(req.Artifact, artifact.WithSpeakers(registry))
		if err != nil {
			return nil, 0, http.StatusUnprocessableEntity, err
		}
		return script.Commands, script.InitialSpan, 0, nil
	}

	if len(req.Commands) == 0 {
		return nil, 0, http.StatusBadRequest, errors.New("commands or artifact is required")
	}
	return req.Commands, settings.InitialSpan, 0, nil
}

// track publishes the outcome of session and forgets it.
func (h *PlaybackHandler) track(ctx context.Context, session *playback.Session) {
	err := session.Wait(ctx)

	h.mu.Lock()
	delete(h.sessions, session.ID)
	h.mu.Unlock()
	h.metrics.PlaybackSessions.Add(ctx, -1)

	if errors.Is(err, playback.ErrCancelled) {
		_ = h.broadcaster.PublishCancelled(ctx, session.ID, session.Index())
		h.logger.Info("Playback cancelled", "session_id", session.ID.String())
		return
	}
	_ = h.broadcaster.PublishFinished(ctx, session.ID)
	h.logger.Info("Playback finished", "session_id", session.ID.String())
}

func (h *PlaybackHandler) lookup(w http.ResponseWriter, r *http.Request) *playback.Session {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format.")
		return nil
	}
	h.mu.Lock()
	session := h.sessions[id]
	h.mu.Unlock()
	if session == nil {
		writeError(w, h.logger, http.StatusNotFound, "Playback session not found")
		return nil
	}
	return session
}

// Item handles GET and DELETE /v1/playback/{id}
func (h *PlaybackHandler) Item(w http.ResponseWriter, r *http.Request) {
	session := h.lookup(w, r)
	if session == nil {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, h.logger, http.StatusOK, PlaybackStatusResponse{
			SessionID: session.ID,
			State:     session.State().String(),
			Index:     session.Index(),
		})
	case http.MethodDelete:
		session.Cancel()
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// Shutdown cancels every running session.
func (h *PlaybackHandler) Shutdown() {
	h.mu.Lock()
	sessions := make([]*playback.Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.Cancel()
	}
}
