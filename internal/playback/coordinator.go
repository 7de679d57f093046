// Package playback enforces the app-wide rule that at most one audio
// stream is audible at a time, across players that do not know about
// each other.
package playback

import "sync"

// Pausable is the minimal surface the coordinator needs from a playback
// resource.
type Pausable interface {
	Pause() error
}

// Coordinator is the sole arbiter of the audio output. One instance is
// built at startup and injected into every player; players never touch
// each other's state directly.
//
// Stop callbacks run while the coordinator lock is held and must not call
// back into the coordinator.
type Coordinator struct {
	mu      sync.Mutex
	current Pausable
	onStop  func()
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Acquire hands playback to resource. Any different resource currently
// holding playback is paused, and its stop callback invoked, before
// Acquire returns; there is no window where two resources play at once.
func (c *Coordinator) Acquire(resource Pausable, onForciblyStopped func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.current != resource {
		_ = c.current.Pause()
		if c.onStop != nil {
			c.onStop()
		}
	}

	c.current = resource
	c.onStop = onForciblyStopped
}

// Release pauses and detaches whatever is currently playing. Used when
// leaving a screen that may have left audio running.
func (c *Coordinator) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		_ = c.current.Pause()
		if c.onStop != nil {
			c.onStop()
		}
	}

	c.current = nil
	c.onStop = nil
}

// Clear drops the claim of resource without pausing, for resources that
// already stopped on their own. The identity check keeps a finished
// player from clobbering a different resource that acquired in the
// meantime.
func (c *Coordinator) Clear(resource Pausable) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == resource {
		c.current = nil
		c.onStop = nil
	}
}

// Holds reports whether resource is the recorded current resource.
func (c *Coordinator) Holds(resource Pausable) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == resource
}
