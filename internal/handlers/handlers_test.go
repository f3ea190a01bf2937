package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/jwebster45206/dialogue-engine/internal/observe"
	"github.com/jwebster45206/dialogue-engine/internal/services/events"
	"github.com/jwebster45206/dialogue-engine/internal/storage"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
	"github.com/jwebster45206/dialogue-engine/pkg/playback"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSpeakers() dialogue.Registry {
	return dialogue.Registry{
		{Name: "Alice", ScriptPrefix: "alice", Format: `tellraw @a {"text":"<Alice> %s"}`},
		{Name: "Bob", ScriptPrefix: "bob", Format: `tellraw @a {"text":"<Bob> %s"}`},
	}
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	require.NoError(t, err)
	return m
}

type testEnv struct {
	router  *Router
	storage *storage.MockStorage
	client  *redis.Client
	sched   *playback.ManualScheduler
}

// newTestEnv builds a router over mock storage. With events set, playback
// runs on a manual scheduler and publishes to miniredis.
func newTestEnv(t *testing.T, withEvents bool) *testEnv {
	t.Helper()

	env := &testEnv{
		storage: storage.NewMockStorage(),
		sched:   playback.NewManualScheduler(),
	}

	var broadcaster *events.Broadcaster
	if withEvents {
		mr := miniredis.RunT(t)
		env.client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = env.client.Close() })
		broadcaster = events.NewBroadcaster(env.client, testLogger())
	}

	env.router = NewRouter(Deps{
		Storage:         env.storage,
		Broadcaster:     broadcaster,
		Speakers:        testSpeakers(),
		Defaults:        dialogue.DefaultSettings(),
		Metrics:         testMetrics(t),
		Logger:          testLogger(),
		PlaybackOptions: []playback.Option{playback.WithScheduler(env.sched)},
	})
	t.Cleanup(env.router.Shutdown)
	return env
}

func (e *testEnv) do(method, target string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	decode(t, w, &resp)
	return resp
}

var _ http.Handler = (*Router)(nil)
