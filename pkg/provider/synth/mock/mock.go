// Package mock provides test doubles for the synth package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/vocalis/pkg/provider/synth"
)

// SynthesizeCall records a single invocation of Engine.Synthesize.
type SynthesizeCall struct {
	Text    string
	VoiceID string
}

// Engine is a mock implementation of synth.Engine.
type Engine struct {
	mu sync.Mutex

	// Frames are emitted on the returned channel by every Synthesize call.
	Frames [][]byte

	// SynthesizeErr, if non-nil, is returned by every Synthesize call.
	SynthesizeErr error

	// Voice is returned by DefaultVoice. Defaults to "mock-voice" when empty.
	Voice string

	// SynthesizeCalls records every call to Synthesize in order.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and returns a channel pre-loaded with Frames.
func (e *Engine) Synthesize(ctx context.Context, text, voiceID string) (<-chan []byte, error) {
	e.mu.Lock()
	e.SynthesizeCalls = append(e.SynthesizeCalls, SynthesizeCall{Text: text, VoiceID: voiceID})
	frames := e.Frames
	err := e.SynthesizeErr
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}

	ch := make(chan []byte, len(frames))
	for _, f := range frames {
		cp := make([]byte, len(f))
		copy(cp, f)
		ch <- cp
	}
	close(ch)
	return ch, nil
}

// DefaultVoice implements synth.Engine.
func (e *Engine) DefaultVoice() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Voice == "" {
		return "mock-voice"
	}
	return e.Voice
}

// Calls returns a copy of the recorded Synthesize calls. Thread-safe.
func (e *Engine) Calls() []SynthesizeCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SynthesizeCall, len(e.SynthesizeCalls))
	copy(out, e.SynthesizeCalls)
	return out
}

var _ synth.Engine = (*Engine)(nil)
