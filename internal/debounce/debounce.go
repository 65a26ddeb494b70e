// Package debounce coalesces a keystroke stream into at most one search per
// settled pause. Classic cancel-and-reschedule: every push invalidates the
// timer armed by the previous one.
package debounce

import (
	"strings"
	"sync"
	"time"
)

// DefaultInterval is the quiet period a query must survive before a search
// fires.
const DefaultInterval = 300 * time.Millisecond

// MinQueryLen is the trimmed length below which no search is ever made.
const MinQueryLen = 3

// Kind tags an emitted event.
type Kind int

const (
	// KindSearch asks the listener to run a suggestion lookup.
	KindSearch Kind = iota
	// KindClear asks the listener to drop the candidate list immediately.
	KindClear
)

// Event is one debounced emission.
type Event struct {
	Kind  Kind
	Query string
}

// Debouncer buffers rapid keystrokes. Push is safe for concurrent use;
// events arrive on C in order.
type Debouncer struct {
	interval time.Duration
	out      chan Event

	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	closed bool
}

// New creates a Debouncer with the given quiet interval; zero or negative
// means DefaultInterval.
func New(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Debouncer{
		interval: interval,
		out:      make(chan Event, 16),
	}
}

// C delivers debounced events.
func (d *Debouncer) C() <-chan Event { return d.out }

// Push accepts one keystroke's worth of query text. Below-threshold input
// clears suggestions immediately and cancels any pending search; at or above
// threshold it re-arms the quiet timer with the newest value. Whitespace-only
// input emits nothing at all.
func (d *Debouncer) Push(raw string) {
	trimmed := strings.TrimSpace(raw)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.gen++
	}
	if trimmed == "" {
		return
	}
	if len(trimmed) < MinQueryLen {
		d.emit(Event{Kind: KindClear})
		return
	}
	d.gen++
	gen := d.gen
	// The gen check covers the window where the timer fires but its callback
	// loses the lock race against a later Push, Cancel, or Stop.
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed || d.gen != gen {
			return
		}
		d.emit(Event{Kind: KindSearch, Query: trimmed})
	})
}

// emit drops on a full channel rather than blocking a caller holding the lock.
func (d *Debouncer) emit(ev Event) {
	select {
	case d.out <- ev:
	default:
	}
}

// Cancel drops any pending emission without closing the channel. Used when a
// submit supersedes whatever search was still waiting out its quiet interval.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.gen++
	}
}

// Stop cancels any pending emission and closes the event channel. No events
// are delivered after Stop returns.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	close(d.out)
}
