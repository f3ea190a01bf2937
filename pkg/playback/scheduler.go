package playback

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending step that can be stopped before it fires.
type Timer interface {
	// Stop prevents the step from firing. It reports whether the call stopped
	// the step, false when it already fired or was stopped.
	Stop() bool
}

// Scheduler runs f once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// WallClock schedules steps with time.AfterFunc.
var WallClock Scheduler = wallClock{}

// ManualScheduler is a Scheduler driven by Advance instead of real time.
// Steps run on the goroutine that calls Advance.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
	delays  []time.Duration
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	for i, p := range t.s.pending {
		if p == t {
			t.s.pending = append(t.s.pending[:i], t.s.pending[i+1:]...)
			break
		}
	}
	return true
}

// NewManualScheduler returns a scheduler whose clock starts at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{s: m, at: m.now + d, seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	m.delays = append(m.delays, d)
	return t
}

// Advance moves the clock forward by d, firing every step that falls due in
// order, including steps scheduled by steps fired along the way.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.SliceStable(m.pending, func(i, j int) bool {
			if m.pending[i].at != m.pending[j].at {
				return m.pending[i].at < m.pending[j].at
			}
			return m.pending[i].seq < m.pending[j].seq
		})
		if len(m.pending) == 0 || m.pending[0].at > target {
			m.now = target
			m.mu.Unlock()
			return
		}
		t := m.pending[0]
		m.pending = m.pending[1:]
		t.fired = true
		m.now = t.at
		m.mu.Unlock()

		t.f()
	}
}

// RunAll fires steps until none are pending and returns the elapsed time.
func (m *ManualScheduler) RunAll() time.Duration {
	m.mu.Lock()
	start := m.now
	m.mu.Unlock()
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			elapsed := m.now - start
			m.mu.Unlock()
			return elapsed
		}
		next := m.pending[0].at
		for _, p := range m.pending[1:] {
			if p.at < next {
				next = p.at
			}
		}
		step := next - m.now
		m.mu.Unlock()
		m.Advance(step)
	}
}

// Pending returns the number of steps waiting to fire.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Now returns the elapsed manual time.
func (m *ManualScheduler) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Delays returns every delay requested so far, in request order.
func (m *ManualScheduler) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.delays...)
}
