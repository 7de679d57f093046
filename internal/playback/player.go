package playback

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"murmur/internal/domain"
	"murmur/internal/ports"
)

// Player wraps one audio artifact identified by its retrieval URL and
// drives the unloaded → loading → ready → playing ⇄ paused machine.
// The player itself is the resource registered with the Coordinator, so
// identity stays stable across loads.
type Player struct {
	noteID string
	url    string
	output ports.AudioOutput
	coord  *Coordinator
	events ports.EventSink

	mu       sync.Mutex
	state    domain.PlayerState
	source   ports.AudioSource
	position time.Duration
	duration time.Duration
}

func NewPlayer(noteID string, url string, output ports.AudioOutput, coord *Coordinator, events ports.EventSink) *Player {
	return &Player{
		noteID: noteID,
		url:    url,
		output: output,
		coord:  coord,
		events: events,
		state:  domain.PlayerStateUnloaded,
	}
}

// Load fetches and prepares the audio without auto-starting. Idempotent;
// a second call returns the already-loaded source.
func (p *Player) Load(ctx context.Context) error {
	p.mu.Lock()
	if p.source != nil {
		p.mu.Unlock()
		return nil
	}
	p.state = domain.PlayerStateLoading
	p.mu.Unlock()

	source, err := p.output.Load(ctx, p.url)
	if err != nil {
		p.mu.Lock()
		p.state = domain.PlayerStateUnloaded
		p.mu.Unlock()
		return fmt.Errorf("load audio: %w", err)
	}

	p.mu.Lock()
	p.source = source
	p.duration = sanitizeDuration(source.Duration())
	if p.position > p.duration {
		p.position = p.duration
	}
	if p.position > 0 {
		// A seek issued before the audio finished loading still lands.
		_ = source.Seek(p.position)
	}
	p.state = domain.PlayerStateReady
	p.mu.Unlock()

	go p.consumeUpdates(source)
	p.emit()
	return nil
}

// TogglePlay starts or pauses playback. Starting claims the coordinator
// first, so any other playing unit is stopped before this one produces
// sound; restarting from the end rewinds to zero.
func (p *Player) TogglePlay(ctx context.Context) error {
	p.mu.Lock()
	if p.state == domain.PlayerStatePlaying {
		source := p.source
		p.state = domain.PlayerStatePaused
		p.mu.Unlock()

		_ = source.Pause()
		p.coord.Clear(p)
		p.emit()
		return nil
	}
	p.mu.Unlock()

	if err := p.Load(ctx); err != nil {
		return err
	}

	p.coord.Acquire(p, p.forciblyStopped)

	p.mu.Lock()
	source := p.source
	if p.duration > 0 && p.position >= p.duration {
		p.position = 0
		if err := source.Seek(0); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("rewind: %w", err)
		}
	}
	if err := source.Play(); err != nil {
		p.state = domain.PlayerStatePaused
		p.mu.Unlock()
		p.coord.Clear(p)
		return fmt.Errorf("play: %w", err)
	}
	p.state = domain.PlayerStatePlaying
	p.mu.Unlock()

	// A competitor that acquired between our Acquire and Play saw this
	// player before it was audible; its pause was a no-op. Yield now.
	if !p.coord.Holds(p) {
		_ = p.Pause()
		p.emit()
		return nil
	}

	p.emit()
	return nil
}

// Seek clamps target into [0, duration]. A playing unit that lands at or
// past the end pauses and drops its coordinator claim instead of silently
// resuming at the boundary.
func (p *Player) Seek(seconds float64) error {
	target := time.Duration(sanitizeSeconds(seconds) * float64(time.Second))

	p.mu.Lock()
	if p.duration > 0 && target > p.duration {
		target = p.duration
	}
	p.position = target

	source := p.source
	if source == nil {
		p.mu.Unlock()
		return nil
	}

	if err := source.Seek(target); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("seek: %w", err)
	}

	atEnd := p.duration > 0 && target >= p.duration
	if atEnd && p.state == domain.PlayerStatePlaying {
		_ = source.Pause()
		p.state = domain.PlayerStatePaused
		p.mu.Unlock()

		p.coord.Clear(p)
		p.emit()
		return nil
	}
	p.mu.Unlock()

	p.emit()
	return nil
}

// Pause halts output without touching the coordinator claim. It is also
// what the coordinator invokes when another unit takes over.
func (p *Player) Pause() error {
	p.mu.Lock()
	source := p.source
	if source == nil || p.state != domain.PlayerStatePlaying {
		p.mu.Unlock()
		return nil
	}
	p.state = domain.PlayerStatePaused
	p.mu.Unlock()

	return source.Pause()
}

// Close deregisters from the coordinator and releases the underlying
// playback resource. Safe on every exit path.
func (p *Player) Close() error {
	p.coord.Clear(p)

	p.mu.Lock()
	source := p.source
	p.source = nil
	p.state = domain.PlayerStateUnloaded
	p.position = 0
	p.mu.Unlock()

	if source == nil {
		return nil
	}
	return source.Close()
}

// Status returns a UI-facing snapshot.
func (p *Player) Status() domain.PlaybackStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.PlaybackStatus{
		NoteID:   p.noteID,
		State:    p.state,
		Position: p.position.Seconds(),
		Duration: p.duration.Seconds(),
	}
}

// State returns the current machine state.
func (p *Player) State() domain.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// forciblyStopped runs after the coordinator pauses this player on
// another unit's behalf; Pause already moved the state, so only the UI
// needs to hear about it. Must not call back into the coordinator.
func (p *Player) forciblyStopped() {
	p.emit()
}

func (p *Player) consumeUpdates(source ports.AudioSource) {
	for update := range source.Updates() {
		p.mu.Lock()
		if p.source != source {
			p.mu.Unlock()
			return
		}
		if update.Finished {
			// Natural end of track: rewind and give up the claim.
			p.position = 0
			if p.state == domain.PlayerStatePlaying {
				p.state = domain.PlayerStateReady
			}
			p.mu.Unlock()

			p.coord.Clear(p)
			p.emit()
			continue
		}
		if p.state == domain.PlayerStatePlaying {
			p.position = sanitizeDuration(update.Position)
		}
		p.mu.Unlock()
		p.emit()
	}
}

func (p *Player) emit() {
	if p.events == nil {
		return
	}
	p.events.PlaybackChanged(p.Status())
}

func sanitizeSeconds(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func sanitizeDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
