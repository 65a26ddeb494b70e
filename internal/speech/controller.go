package speech

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ujjwal16295/book-ai/internal/logging"
)

// State is the playback lifecycle phase.
type State int

const (
	// StateUnavailable means no engine is present. Terminal.
	StateUnavailable State = iota
	// StateVoicesLoading means the engine exists but its voice catalog is
	// still empty.
	StateVoicesLoading
	// StateIdle means ready to speak.
	StateIdle
	// StateSpeaking means one utterance is in flight.
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateUnavailable:
		return "unavailable"
	case StateVoicesLoading:
		return "voices-loading"
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	}
	return "unknown"
}

// Snapshot is the upward-facing view of playback state.
type Snapshot struct {
	Supported bool    `json:"supported"`
	State     string  `json:"state"`
	Voices    []Voice `json:"voices"`
}

// Controller owns the lifetime of at most one active utterance. Starting a
// new utterance cancels any previous one; teardown cancels unconditionally.
type Controller struct {
	engine    Engine
	preferred string
	onChange  func(Snapshot)

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu     sync.Mutex
	state  State
	voices []Voice
	cancel context.CancelFunc
	gen    uint64
}

// NewController wraps engine. A nil engine yields a terminal unavailable
// controller. preferred selects a voice by name substring match when the
// catalog loads; onChange, if set, is invoked after every state change.
func NewController(engine Engine, preferred string, onChange func(Snapshot)) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		engine:     engine,
		preferred:  preferred,
		onChange:   onChange,
		rootCtx:    ctx,
		rootCancel: cancel,
		state:      StateUnavailable,
	}
	if engine == nil {
		return c
	}
	c.state = StateVoicesLoading
	go c.loadVoices()
	return c
}

// loadVoices polls the engine until the catalog is non-empty. Re-reports are
// harmless: the loading→idle edge is taken once.
func (c *Controller) loadVoices() {
	for {
		voices, err := c.engine.Voices(c.rootCtx)
		if err == nil && len(voices) > 0 {
			c.VoicesLoaded(voices)
			return
		}
		if err != nil {
			logging.Debug("voice catalog not ready", "err", err)
		}
		select {
		case <-c.rootCtx.Done():
			return
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// VoicesLoaded installs the voice catalog. Idempotent; only the first
// non-empty report moves the controller out of voices-loading.
func (c *Controller) VoicesLoaded(voices []Voice) {
	if len(voices) == 0 {
		return
	}
	c.mu.Lock()
	c.voices = voices
	changed := c.state == StateVoicesLoading
	if changed {
		c.state = StateIdle
	}
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// pickVoice returns the preferred voice by name match, or empty for the
// engine default.
func (c *Controller) pickVoice() string {
	for _, v := range c.voices {
		if c.preferred != "" && strings.Contains(strings.ToLower(v.Name), strings.ToLower(c.preferred)) {
			return v.Name
		}
	}
	return ""
}

// Toggle plays text if idle and stops if speaking. It is a no-op while the
// engine is unavailable or voices have not loaded, matching the disabled
// play control in those states.
func (c *Controller) Toggle(text string) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	switch state {
	case StateSpeaking:
		c.Stop()
	case StateIdle:
		c.Play(text)
	}
}

// Play starts speaking text, cancelling any utterance already in flight
// first. Empty text is ignored.
func (c *Controller) Play(text string) {
	if text == "" {
		return
	}
	c.mu.Lock()
	if c.state != StateIdle && c.state != StateSpeaking {
		c.mu.Unlock()
		return
	}
	// Exclusivity: at most one utterance in flight across the process.
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(c.rootCtx)
	c.cancel = cancel
	c.gen++
	gen := c.gen
	voice := c.pickVoice()
	c.state = StateSpeaking
	c.mu.Unlock()
	c.notify()

	go func() {
		err := c.engine.Speak(ctx, text, voice)
		if err != nil && ctx.Err() == nil {
			// Engine errors resolve playback silently; logged only.
			logging.Warn("speech playback error", "err", err)
		}
		cancel()
		c.mu.Lock()
		changed := false
		if c.gen == gen && c.state == StateSpeaking {
			c.state = StateIdle
			c.cancel = nil
			changed = true
		}
		c.mu.Unlock()
		if changed {
			c.notify()
		}
	}()
}

// Stop interrupts the active utterance. Stopping while idle is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state != StateSpeaking {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.cancel = nil
	c.state = StateIdle
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.notify()
}

// Close cancels outstanding speech unconditionally and retires the
// controller. Safe to call more than once.
func (c *Controller) Close() {
	c.rootCancel()
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.state == StateSpeaking {
		c.state = StateIdle
	}
	c.mu.Unlock()
}

// State reports the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Speaking reports whether an utterance is in flight.
func (c *Controller) Speaking() bool {
	return c.State() == StateSpeaking
}

// Snapshot returns the upward-facing view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	voices := make([]Voice, len(c.voices))
	copy(voices, c.voices)
	return Snapshot{
		Supported: c.engine != nil,
		State:     c.state.String(),
		Voices:    voices,
	}
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange(c.Snapshot())
	}
}
