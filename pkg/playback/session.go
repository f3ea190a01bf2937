// Package playback replays a command sequence as timed, cancellable steps.
//
// A session signals visibility on, waits the initial span, then shows each
// command in turn, waiting span × unit after each one. After the last
// command's delay it waits that delay once more and signals visibility off
// with the index and content reset.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

// DefaultUnit is the wall time of one span unit.
const DefaultUnit = 50 * time.Millisecond

// ErrCancelled is returned by Wait for a cancelled session.
var ErrCancelled = errors.New("playback cancelled")

// Callbacks receive the UI-facing signals of a session. Nil funcs are skipped.
type Callbacks struct {
	OnVisibilityChange func(visible bool)
	OnIndexChange      func(index int)
	OnContentChange    func(content string)
}

// State is the lifecycle phase of a session.
type State int32

const (
	StateIdle State = iota
	StatePlaying
)

func (s State) String() string {
	if s == StatePlaying {
		return "playing"
	}
	return "idle"
}

type options struct {
	id             uuid.UUID
	startID, endID uuid.UUID
	scheduler      Scheduler
	unit           time.Duration
	logger         *slog.Logger
}

// Option configures a session.
type Option func(*options)

// WithRange restricts playback to the commands between startID and endID,
// inclusive. A zero or unknown ID leaves that bound at the first or last
// command.
func WithRange(startID, endID uuid.UUID) Option {
	return func(o *options) {
		o.startID = startID
		o.endID = endID
	}
}

// WithSessionID sets the session ID instead of generating one, so that
// callbacks built before Start can refer to it.
func WithSessionID(id uuid.UUID) Option {
	return func(o *options) {
		o.id = id
	}
}

func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithUnit sets the wall time of one span unit.
func WithUnit(d time.Duration) Option {
	return func(o *options) {
		o.unit = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Session is one in-flight playback. Steps fire strictly in sequence; the
// next step is scheduled only once the previous one has run.
type Session struct {
	ID uuid.UUID

	commands   []dialogue.Command
	start, end int
	cb         Callbacks
	sched      Scheduler
	unit       time.Duration
	logger     *slog.Logger

	cancelled atomic.Bool
	state     atomic.Int32
	index     atomic.Int64

	mu    sync.Mutex
	timer Timer
	ended bool
	done  chan struct{}
}

// Start begins playing the non-custom commands. Visibility is signalled
// before Start returns; every other callback fires from the scheduler.
// With no playable commands the returned session is already finished and no
// callback fires.
func Start(commands []dialogue.Command, initialSpan int, cb Callbacks, opts ...Option) *Session {
	o := options{
		scheduler: WallClock,
		unit:      DefaultUnit,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == uuid.Nil {
		o.id = uuid.New()
	}

	s := &Session{
		ID:       o.id,
		commands: dialogue.Playable(commands),
		cb:       cb,
		sched:    o.scheduler,
		unit:     o.unit,
		logger:   o.logger,
		done:     make(chan struct{}),
	}
	s.index.Store(-1)

	if len(s.commands) == 0 {
		s.ended = true
		close(s.done)
		return s
	}

	var resumed bool
	s.start, s.end, resumed = ResolveRange(s.commands, o.startID, o.endID)

	wait := s.delay(initialSpan)
	if resumed {
		wait = 0
	}

	s.logger.Debug("Starting playback",
		"session_id", s.ID.String(),
		"start", s.start,
		"end", s.end,
		"initial_wait", wait)

	s.state.Store(int32(StatePlaying))
	s.visibility(true)
	s.schedule(wait, func() { s.show(s.start) })
	return s
}

// ResolveRange maps the range IDs to indexes into the playable commands.
// An unset or unknown ID falls back to the first or last command, and a
// reversed range is swapped. found reports whether the start ID matched.
func ResolveRange(commands []dialogue.Command, startID, endID uuid.UUID) (start, end int, found bool) {
	playable := dialogue.Playable(commands)
	if len(playable) == 0 {
		return -1, -1, false
	}
	start, end = 0, len(playable)-1
	if i := indexOf(playable, startID); i >= 0 {
		start = i
		found = true
	}
	if i := indexOf(playable, endID); i >= 0 {
		end = i
	}
	if start > end {
		start, end = end, start
	}
	return start, end, found
}

func indexOf(commands []dialogue.Command, id uuid.UUID) int {
	if id == uuid.Nil {
		return -1
	}
	for i, c := range commands {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) delay(span int) time.Duration {
	if span < 0 {
		span = 0
	}
	return time.Duration(span) * s.unit
}

func (s *Session) schedule(d time.Duration, step func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.timer = s.sched.AfterFunc(d, step)
}

func (s *Session) show(i int) {
	if s.cancelled.Load() {
		return
	}
	c := s.commands[i]
	s.index.Store(int64(i))
	s.logger.Debug("Playback step", "session_id", s.ID.String(), "index", i)

	if s.cb.OnIndexChange != nil && !s.cancelled.Load() {
		s.cb.OnIndexChange(i)
	}
	if s.cb.OnContentChange != nil && !s.cancelled.Load() {
		s.cb.OnContentChange(c.Content)
	}

	d := s.delay(c.Span)
	if i < s.end {
		s.schedule(d, func() { s.show(i + 1) })
		return
	}
	s.schedule(d, func() {
		if s.cancelled.Load() {
			return
		}
		s.schedule(d, s.finish)
	})
}

func (s *Session) finish() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.timer = nil
	s.mu.Unlock()

	s.state.Store(int32(StateIdle))
	s.index.Store(-1)
	s.visibility(false)
	if s.cb.OnIndexChange != nil {
		s.cb.OnIndexChange(-1)
	}
	if s.cb.OnContentChange != nil {
		s.cb.OnContentChange("")
	}
	s.logger.Debug("Playback finished", "session_id", s.ID.String())
	close(s.done)
}

func (s *Session) visibility(v bool) {
	if s.cb.OnVisibilityChange != nil {
		s.cb.OnVisibilityChange(v)
	}
}

// Cancel stops the pending step so no further callback is invoked. Signals
// already delivered are not undone. It reports whether the session was still
// running.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return false
	}
	s.cancelled.Store(true)
	s.ended = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.state.Store(int32(StateIdle))
	s.logger.Debug("Playback cancelled", "session_id", s.ID.String(), "index", s.Index())
	close(s.done)
	return true
}

// Done is closed when the session finishes or is cancelled.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends. It returns ErrCancelled when the
// session was cancelled, or ctx's error when ctx ends first.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		if s.cancelled.Load() {
			return ErrCancelled
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancelled reports whether the session was stopped by Cancel.
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Index is the index of the command on show, within the playable commands.
// It is -1 before the first step and after the session finishes; a
// cancelled session keeps the last index shown.
func (s *Session) Index() int {
	return int(s.index.Load())
}

// Range returns the resolved first and last playable index.
func (s *Session) Range() (start, end int) {
	return s.start, s.end
}

// Commands returns the playable commands of the session.
func (s *Session) Commands() []dialogue.Command {
	return s.commands
}
