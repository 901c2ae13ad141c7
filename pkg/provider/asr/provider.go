// Package asr defines the provider-agnostic interface for batch speech
// recognition engines.
//
// An Engine transcribes one complete utterance buffer per call. Engines are
// stateless between calls and must be safe for concurrent use; the gateway
// shares one Engine instance across all sessions that selected it.
//
// Implementations live in subpackages (whisper, deepgram) plus a mock
// package for testing.
package asr

import "context"

// Engine is a batch speech-to-text backend.
type Engine interface {
	// Transcribe converts req.PCM (16-bit signed little-endian mono) into
	// text. A blank Result.Text with a nil error means the engine heard no
	// intelligible speech. Implementations must honour ctx cancellation.
	Transcribe(ctx context.Context, req Request) (Result, error)
}
