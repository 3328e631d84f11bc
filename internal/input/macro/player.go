package macro

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/silverkey/internal/input"
	"github.com/dshills/silverkey/internal/input/key"
)

// ErrAlreadyPlaying is returned by Play while another playback runs.
var ErrAlreadyPlaying = errors.New("macro: already playing")

// maxGap caps the pause between two paced transitions.
const maxGap = 5 * time.Second

// Player replays recorded transitions to its subscribers. It implements
// input.Source.
type Player struct {
	mu       sync.Mutex
	handlers []subscriber
	nextID   uint64

	speed   float64
	playing atomic.Bool
	cancel  context.CancelFunc
}

type subscriber struct {
	id uint64
	h  input.Handler
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithSpeed keeps the recorded pauses between transitions, scaled by 1/s.
// Paced transitions are stamped with the time they are delivered. Zero,
// the default, delivers everything at once with the recorded timestamps.
func WithSpeed(s float64) PlayerOption {
	return func(p *Player) {
		if s > 0 {
			p.speed = s
		}
	}
}

// NewPlayer creates a player.
func NewPlayer(opts ...PlayerOption) *Player {
	p := &Player{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe implements input.Source.
func (p *Player) Subscribe(h input.Handler) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	p.handlers = append(p.handlers, subscriber{id: id, h: h})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.handlers = slices.DeleteFunc(p.handlers, func(s subscriber) bool { return s.id == id })
	}
}

// Play delivers events in order and returns the outcomes reported by the
// last subscriber. It stops early when ctx is done or Cancel is called.
func (p *Player) Play(ctx context.Context, events []key.Event) ([]input.Outcome, error) {
	if !p.playing.CompareAndSwap(false, true) {
		return nil, ErrAlreadyPlaying
	}
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		p.cancel = nil
		p.mu.Unlock()
		p.playing.Store(false)
	}()

	outs := make([]input.Outcome, 0, len(events))
	for i, ev := range events {
		if p.speed > 0 {
			if i > 0 {
				if err := p.wait(ctx, events[i-1].Timestamp, ev.Timestamp); err != nil {
					return outs, err
				}
			}
			ev.Timestamp = time.Now()
		}
		if err := ctx.Err(); err != nil {
			return outs, err
		}
		if out, ok := p.deliver(ev); ok {
			outs = append(outs, out)
		}
	}
	return outs, nil
}

func (p *Player) wait(ctx context.Context, prev, next time.Time) error {
	if prev.IsZero() || next.IsZero() {
		return nil
	}
	gap := time.Duration(float64(next.Sub(prev)) / p.speed)
	if gap <= 0 {
		return nil
	}
	t := time.NewTimer(min(gap, maxGap))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Player) deliver(ev key.Event) (input.Outcome, bool) {
	p.mu.Lock()
	handlers := make([]input.Handler, len(p.handlers))
	for i, s := range p.handlers {
		handlers[i] = s.h
	}
	p.mu.Unlock()

	var (
		out input.Outcome
		ok  bool
	)
	for _, h := range handlers {
		out, ok = h(ev), true
	}
	return out, ok
}

// IsPlaying reports whether a playback is running.
func (p *Player) IsPlaying() bool {
	return p.playing.Load()
}

// Cancel stops the running playback. Safe to call when nothing plays.
func (p *Player) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}
