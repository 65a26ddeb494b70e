// Package speech owns spoken playback of a summary. All call sites go
// through the Controller, which is the single owner of the engine's
// one-utterance-at-a-time invariant.
package speech

import "context"

// Voice describes one synthesis voice offered by an engine.
type Voice struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Engine is a speech synthesis backend. Speak blocks until playback finishes
// naturally, fails, or ctx is cancelled. Engines need not serialize
// utterances themselves; the Controller guarantees at most one Speak is in
// flight process-wide.
type Engine interface {
	// Voices lists the available voices. Engines may be slow to populate
	// their catalog; callers poll until the list is non-empty.
	Voices(ctx context.Context) ([]Voice, error)
	Speak(ctx context.Context, text, voice string) error
}

// FrameSink receives synthesized audio frames for delivery to the listener.
// Implementations must not block for long; slow consumers should drop.
type FrameSink interface {
	WriteFrame(pcm []byte)
}

// DiscardSink drops all audio. Used when nobody is listening.
type DiscardSink struct{}

func (DiscardSink) WriteFrame([]byte) {}
