package speech

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"

	"github.com/ujjwal16295/book-ai/internal/logging"
)

// auraVoices is the Deepgram Aura catalog this service offers. The speak API
// has no voice-enumeration endpoint, so the list is fixed here.
var auraVoices = []Voice{
	{Name: "aura-2-thalia-en", Language: "en-US"},
	{Name: "aura-2-andromeda-en", Language: "en-US"},
	{Name: "aura-2-helena-en", Language: "en-US"},
	{Name: "aura-2-apollo-en", Language: "en-US"},
	{Name: "aura-2-arcas-en", Language: "en-US"},
	{Name: "aura-luna-en", Language: "en-US"},
	{Name: "aura-stella-en", Language: "en-US"},
}

// DeepgramEngine synthesizes speech through the Deepgram speak WebSocket API
// and hands PCM frames to a sink.
type DeepgramEngine struct {
	apiKey     string
	model      string
	sink       FrameSink
	sampleRate int
	encoding   string
}

// NewDeepgramEngine constructs an engine. model is the default voice when the
// caller passes none to Speak; sink receives the synthesized audio.
func NewDeepgramEngine(apiKey, model string, sink FrameSink) *DeepgramEngine {
	if model == "" {
		model = "aura-2-thalia-en"
	}
	if sink == nil {
		sink = DiscardSink{}
	}
	return &DeepgramEngine{apiKey: apiKey, model: model, sink: sink, sampleRate: 48000, encoding: "linear16"}
}

// Voices returns the fixed Aura catalog. Without an API key the engine is
// unusable and reports no voices.
func (d *DeepgramEngine) Voices(ctx context.Context) ([]Voice, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("deepgram: API key missing")
	}
	out := make([]Voice, len(auraVoices))
	copy(out, auraVoices)
	return out, nil
}

// Speak streams TTS audio for text to the sink, blocking until the stream
// drains, errs, or ctx is cancelled.
func (d *DeepgramEngine) Speak(ctx context.Context, text, voice string) error {
	if d.apiKey == "" {
		return fmt.Errorf("deepgram: API key missing")
	}
	if text == "" {
		return nil
	}
	model := d.model
	if voice != "" {
		model = voice
	}

	options := &clientinterfaces.WSSpeakOptions{
		Model:      model,
		Encoding:   d.encoding,
		SampleRate: d.sampleRate,
	}

	var lastRecvUnix int64
	var seenAudio int32

	cb := &speakCallback{onBinary: func(data []byte) error {
		if len(data) == 0 {
			return nil
		}
		atomic.StoreInt64(&lastRecvUnix, time.Now().UnixNano())
		atomic.StoreInt32(&seenAudio, 1)
		b := make([]byte, len(data))
		copy(b, data)
		d.sink.WriteFrame(b)
		return nil
	}}

	dg, err := speak.NewWSUsingCallback(ctx, d.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
	if err != nil {
		return fmt.Errorf("deepgram: create ws client: %w", err)
	}

	stopped := false
	stopClient := func() {
		if !stopped {
			stopped = true
			dg.Stop()
		}
	}
	defer stopClient()

	if ok := dg.Connect(); !ok {
		return fmt.Errorf("deepgram: connect failed")
	}

	if err := dg.SpeakWithText(text); err != nil {
		return fmt.Errorf("deepgram: speak text: %w", err)
	}
	if err := dg.Flush(); err != nil {
		logging.Warn("deepgram flush error", "err", err)
	}

	// The speak WS has no explicit end-of-stream event for a one-shot
	// utterance; treat a quiet window after audio started as completion.
	idleWindow := 400 * time.Millisecond
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.Now().Add(60 * time.Second)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if atomic.LoadInt32(&seenAudio) == 1 {
				last := time.Unix(0, atomic.LoadInt64(&lastRecvUnix))
				if time.Since(last) > idleWindow {
					return nil
				}
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("deepgram: synthesis deadline exceeded")
			}
		}
	}
}

type speakCallback struct{ onBinary func([]byte) error }

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (s *speakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (s *speakCallback) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (s *speakCallback) Error(*msginterfaces.ErrorResponse) error       { return nil }
func (s *speakCallback) UnhandledEvent([]byte) error                    { return nil }
func (s *speakCallback) Binary(byMsg []byte) error {
	if s.onBinary != nil {
		return s.onBinary(byMsg)
	}
	return nil
}
