package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/dialogue-engine/internal/observe"
	"github.com/jwebster45206/dialogue-engine/internal/services/events"
	"github.com/jwebster45206/dialogue-engine/internal/storage"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
	"github.com/jwebster45206/dialogue-engine/pkg/playback"
)

// Deps are the collaborators shared by every handler. Broadcaster may be nil,
// in which case the playback endpoints answer 503.
type Deps struct {
	Storage     storage.Storage
	Broadcaster *events.Broadcaster
	Speakers    dialogue.Registry // used until a registry has been stored
	Defaults    dialogue.ScriptSettings
	Metrics     *observe.Metrics
	Logger      *slog.Logger

	PlaybackOptions []playback.Option
}

// Router is the API's request multiplexer.
type Router struct {
	*http.ServeMux
	playback *PlaybackHandler
}

// NewRouter registers every API route.
func NewRouter(d Deps) *Router {
	speakers := speakerSource{storage: d.Storage, fallback: d.Speakers}
	settings := settingsSource{storage: d.Storage, defaults: d.Defaults}

	mux := http.NewServeMux()

	mux.Handle("/health", NewHealthHandler(d.Storage, d.Broadcaster, d.Logger))

	mux.Handle("POST /v1/scripts/parse", newScriptHandler(speakers, settings, d.Metrics, d.Logger, false))
	mux.Handle("POST /v1/compile", newScriptHandler(speakers, settings, d.Metrics, d.Logger, true))

	artifacts := newArtifactHandler(d.Storage, speakers, settings, d.Metrics, d.Logger)
	mux.HandleFunc("POST /v1/artifacts/parse", artifacts.Parse)
	mux.HandleFunc("POST /v1/artifacts/build", artifacts.Build)
	mux.HandleFunc("GET /v1/artifacts", artifacts.List)
	mux.HandleFunc("/v1/artifacts/{name}", artifacts.Item)

	mux.Handle("/v1/speakers", newSpeakersHandler(d.Storage, speakers, d.Logger))

	settingsHandler := newSettingsHandler(d.Storage, d.Logger)
	mux.HandleFunc("GET /v1/settings", settingsHandler.List)
	mux.HandleFunc("/v1/settings/{name}", settingsHandler.Item)

	pb := newPlaybackHandler(d.Broadcaster, speakers, settings, d.Metrics, d.Logger, d.PlaybackOptions)
	mux.HandleFunc("POST /v1/playback", pb.Start)
	mux.HandleFunc("/v1/playback/{id}", pb.Item)

	mux.Handle("GET /v1/events/playback/{id}", NewEventsHandler(d.Broadcaster, d.Logger))

	return &Router{ServeMux: mux, playback: pb}
}

// Shutdown cancels in-flight playback sessions.
func (r *Router) Shutdown() {
	r.playback.Shutdown()
}
