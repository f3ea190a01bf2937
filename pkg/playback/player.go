package playback

import (
	"sync"

	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

// Player owns at most one running session. Playing again cancels the
// previous session first, so two sessions never interleave their signals.
type Player struct {
	mu      sync.Mutex
	opts    []Option
	current *Session
}

// NewPlayer returns a player whose sessions use opts.
func NewPlayer(opts ...Option) *Player {
	return &Player{opts: opts}
}

// Play cancels the running session, if any, and starts a new one. opts are
// applied after the player's own options.
func (p *Player) Play(commands []dialogue.Command, initialSpan int, cb Callbacks, opts ...Option) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.Cancel()
	}
	all := make([]Option, 0, len(p.opts)+len(opts))
	all = append(all, p.opts...)
	all = append(all, opts...)
	p.current = Start(commands, initialSpan, cb, all...)
	return p.current
}

// Stop cancels the running session. It reports whether one was running.
func (p *Player) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return false
	}
	stopped := p.current.Cancel()
	p.current = nil
	return stopped
}

// Active returns the running session, or nil.
func (p *Player) Active() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	select {
	case <-p.current.Done():
		return nil
	default:
		return p.current
	}
}
