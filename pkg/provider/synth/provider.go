// Package synth defines the interface for speech synthesis backends.
//
// A synth Engine wraps a text-to-speech service (e.g., ElevenLabs) and
// converts one reply text into a stream of raw PCM audio frames. The gateway
// brackets the emitted frames with start/end status events so clients can
// play them as one contiguous utterance.
//
// Implementations must be safe for concurrent use. Multiple synthesis
// requests may run in parallel across sessions.
package synth

import "context"

// Engine is the abstraction over any speech synthesis backend.
type Engine interface {
	// Synthesize converts text into raw 16-bit signed little-endian PCM and
	// returns a channel emitting audio frames as they become available. The
	// channel is closed by the implementation when synthesis is complete or
	// when ctx is cancelled; the caller must drain it.
	//
	// voiceID selects the voice. When empty, implementations use
	// DefaultVoice.
	//
	// Returns a non-nil error only if the stream cannot be started.
	Synthesize(ctx context.Context, text, voiceID string) (<-chan []byte, error)

	// DefaultVoice returns the voice ID used when a session has not selected
	// one.
	DefaultVoice() string
}
