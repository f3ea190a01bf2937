package playback

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

const unit = 10 * time.Millisecond

type recorder struct {
	mu      sync.Mutex
	events  []string
	indexes []int
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnVisibilityChange: func(v bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, fmt.Sprintf("visible=%t", v))
		},
		OnIndexChange: func(i int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, fmt.Sprintf("index=%d", i))
			r.indexes = append(r.indexes, i)
		},
		OnContentChange: func(c string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, fmt.Sprintf("content=%q", c))
		},
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) stepIndexes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []int{}
	for _, i := range r.indexes {
		if i >= 0 {
			out = append(out, i)
		}
	}
	return out
}

func makeCommands(spans ...int) []dialogue.Command {
	commands := make([]dialogue.Command, len(spans))
	for i, span := range spans {
		commands[i] = dialogue.NewCommand(nil, span, fmt.Sprintf("line %d", i))
	}
	return commands
}

func TestStart_FullSequence(t *testing.T) {
	sched := NewManualScheduler()
	rec := &recorder{}

	s := Start(makeCommands(2, 3, 4), 5, rec.callbacks(), WithScheduler(sched), WithUnit(unit))
	assert.Equal(t, StatePlaying, s.State())
	assert.Equal(t, -1, s.Index())
	assert.Equal(t, []string{"visible=true"}, rec.snapshot())

	sched.Advance(49 * time.Millisecond)
	assert.Equal(t, []string{"visible=true"}, rec.snapshot(), "initial wait not yet elapsed")

	sched.Advance(time.Millisecond)
	assert.Equal(t, 0, s.Index())
	assert.Equal(t, []string{"visible=true", "index=0", `content="line 0"`}, rec.snapshot())

	elapsed := sched.RunAll()
	assert.Equal(t, 130*time.Millisecond, elapsed)

	assert.Equal(t, []string{
		"visible=true",
		"index=0", `content="line 0"`,
		"index=1", `content="line 1"`,
		"index=2", `content="line 2"`,
		"visible=false", "index=-1", `content=""`,
	}, rec.snapshot())
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 40 * time.Millisecond, 40 * time.Millisecond}, sched.Delays())

	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, -1, s.Index())
	assert.NoError(t, s.Wait(context.Background()))
	assert.False(t, s.Cancel(), "finished sessions cannot be cancelled")
}

func TestStart_CancelBeforeFirstStep(t *testing.T) {
	sched := NewManualScheduler()
	rec := &recorder{}

	s := Start(makeCommands(2, 3), 5, rec.callbacks(), WithScheduler(sched), WithUnit(unit))
	require.True(t, s.Cancel())
	assert.Equal(t, 0, sched.Pending())

	sched.RunAll()
	assert.Empty(t, rec.stepIndexes())
	assert.Equal(t, []string{"visible=true"}, rec.snapshot())
	assert.Equal(t, StateIdle, s.State())
	assert.True(t, s.Cancelled())
	assert.ErrorIs(t, s.Wait(context.Background()), ErrCancelled)
}

func TestStart_CancelMidway(t *testing.T) {
	sched := NewManualScheduler()
	rec := &recorder{}

	s := Start(makeCommands(2, 3, 4), 0, rec.callbacks(), WithScheduler(sched), WithUnit(unit))
	sched.Advance(20 * time.Millisecond)
	require.Equal(t, []int{0, 1}, rec.stepIndexes())

	s.Cancel()
	sched.RunAll()

	assert.Equal(t, []int{0, 1}, rec.stepIndexes())
	assert.Equal(t, 1, s.Index(), "cancelled sessions keep the last index shown")
	assert.NotContains(t, rec.snapshot(), "visible=false", "cancel does not roll back")
}

func TestStart_CancelFromCallback(t *testing.T) {
	sched := NewManualScheduler()
	var s *Session
	contents := 0
	cb := Callbacks{
		OnIndexChange: func(i int) {
			if i == 1 {
				s.Cancel()
			}
		},
		OnContentChange: func(string) { contents++ },
	}

	s = Start(makeCommands(1, 1, 1), 0, cb, WithScheduler(sched), WithUnit(unit))
	sched.RunAll()
	assert.Equal(t, 1, contents, "content for the cancelled step is suppressed")
	assert.True(t, s.Cancelled())
}

func TestStart_SubRange(t *testing.T) {
	sched := NewManualScheduler()
	rec := &recorder{}
	commands := makeCommands(1, 2, 3, 4, 5)

	s := Start(commands, 7, rec.callbacks(),
		WithScheduler(sched),
		WithUnit(unit),
		WithRange(commands[1].ID, commands[3].ID))

	start, end := s.Range()
	assert.Equal(t, 1, start)
	assert.Equal(t, 3, end)
	assert.Equal(t, time.Duration(0), sched.Delays()[0], "resumed playback has no initial wait")

	// 20ms + 30ms after the first step, the third step has just fired
	sched.Advance(50 * time.Millisecond)
	assert.Equal(t, []int{1, 2, 3}, rec.stepIndexes())

	sched.RunAll()
	assert.Equal(t, []int{1, 2, 3}, rec.stepIndexes())
	// three step signals, then the idle reset
	assert.Equal(t, []int{1, 2, 3, -1}, rec.indexes)
	assert.Equal(t, StateIdle, s.State())
}

func TestStart_RangeResolution(t *testing.T) {
	commands := makeCommands(1, 1, 1, 1)
	custom := dialogue.NewCustomCommand("say skip")
	withCustom := []dialogue.Command{commands[0], custom, commands[1], commands[2], commands[3]}

	tests := []struct {
		name          string
		start, end    uuid.UUID
		expectedSteps []int
		initialWait   time.Duration
	}{
		{"no range", uuid.Nil, uuid.Nil, []int{0, 1, 2, 3}, 30 * time.Millisecond},
		{"end only", uuid.Nil, commands[1].ID, []int{0, 1}, 30 * time.Millisecond},
		{"start only", commands[2].ID, uuid.Nil, []int{2, 3}, 0},
		{"swapped bounds", commands[3].ID, commands[1].ID, []int{1, 2, 3}, 0},
		{"unknown start", uuid.New(), commands[2].ID, []int{0, 1, 2}, 30 * time.Millisecond},
		{"custom command is not a bound", custom.ID, uuid.Nil, []int{0, 1, 2, 3}, 30 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := NewManualScheduler()
			rec := &recorder{}
			Start(withCustom, 3, rec.callbacks(), WithScheduler(sched), WithUnit(unit), WithRange(tt.start, tt.end))
			sched.RunAll()
			assert.Equal(t, tt.expectedSteps, rec.stepIndexes())
			assert.Equal(t, tt.initialWait, sched.Delays()[0])
		})
	}
}

func TestStart_NothingPlayable(t *testing.T) {
	sched := NewManualScheduler()
	rec := &recorder{}

	for _, commands := range [][]dialogue.Command{nil, {dialogue.NewCustomCommand("say x")}} {
		s := Start(commands, 5, rec.callbacks(), WithScheduler(sched))
		assert.Empty(t, rec.snapshot())
		assert.Equal(t, 0, sched.Pending())
		assert.Equal(t, StateIdle, s.State())
		assert.NoError(t, s.Wait(context.Background()))
		assert.False(t, s.Cancel())
	}
}

func TestStart_NilCallbacks(t *testing.T) {
	sched := NewManualScheduler()
	s := Start(makeCommands(1, 1), 1, Callbacks{}, WithScheduler(sched))
	sched.RunAll()
	assert.NoError(t, s.Wait(context.Background()))
}

func TestStart_WallClock(t *testing.T) {
	rec := &recorder{}
	s := Start(makeCommands(1, 1), 1, rec.callbacks(), WithUnit(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	assert.Equal(t, []int{0, 1}, rec.stepIndexes())
	assert.Contains(t, rec.snapshot(), "visible=false")
}

func TestSession_WaitContext(t *testing.T) {
	sched := NewManualScheduler()
	s := Start(makeCommands(1), 1, Callbacks{}, WithScheduler(sched))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.Canceled)
}

func TestResolveRange(t *testing.T) {
	commands := makeCommands(1, 2, 3, 4)
	custom := dialogue.NewCustomCommand("(pause)")
	withCustom := append([]dialogue.Command{custom}, commands...)

	start, end, found := ResolveRange(withCustom, commands[2].ID, commands[1].ID)
	assert.Equal(t, 1, start)
	assert.Equal(t, 2, end)
	assert.True(t, found)

	start, end, found = ResolveRange(withCustom, uuid.New(), uuid.Nil)
	assert.Equal(t, 0, start)
	assert.Equal(t, 3, end)
	assert.False(t, found)

	start, end, _ = ResolveRange([]dialogue.Command{custom}, uuid.Nil, uuid.Nil)
	assert.Equal(t, -1, start)
	assert.Equal(t, -1, end)
}
