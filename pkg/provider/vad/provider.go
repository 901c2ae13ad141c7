// Package vad defines the Engine interface for Voice Activity Detection
// backends.
//
// A VAD engine wraps a speech detector (e.g., a Silero VAD inference server
// or a hosted segmentation model) and exposes it as a batch operation: given
// a complete audio buffer, return the time intervals believed to contain
// speech. The segmentation engine calls Detect once per evaluation cycle on
// the frozen scratch buffer, so the latency of a single call directly bounds
// the gateway's utterance-finalisation latency.
//
// Implementations must be safe for concurrent use: the gateway hosts many
// sessions and each may have an evaluation in flight.
package vad

import "context"

// Engine is the abstraction over any VAD backend.
type Engine interface {
	// Detect analyses a complete buffer of raw little-endian 16-bit PCM at
	// the given sample rate and returns the speech intervals found, sorted
	// ascending by start time. An empty (or nil) slice means no speech was
	// detected anywhere in the buffer.
	//
	// Implementations must respect ctx cancellation and deadlines; the
	// caller cancels detect calls belonging to torn-down sessions.
	Detect(ctx context.Context, pcm []byte, sampleRate int) ([]Interval, error)
}
