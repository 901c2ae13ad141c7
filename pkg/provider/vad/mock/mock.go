// Package mock provides test doubles for the vad package interfaces.
//
// Use Engine to inject interval lists and inspect the buffers that were
// submitted for detection.
//
// Example:
//
//	eng := &mock.Engine{
//	    Intervals: []vad.Interval{{Start: 0.2, End: 1.0, Confidence: 0.9}},
//	}
//	got, _ := eng.Detect(ctx, pcm, 16000)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/vocalis/pkg/provider/vad"
)

// DetectCall records a single invocation of Engine.Detect.
type DetectCall struct {
	// PCM is a copy of the bytes passed to Detect.
	PCM []byte

	// SampleRate is the sample rate passed to Detect.
	SampleRate int
}

// Engine is a mock implementation of vad.Engine.
type Engine struct {
	mu sync.Mutex

	// Intervals is returned by every Detect call when DetectFunc is nil.
	Intervals []vad.Interval

	// DetectErr, if non-nil, is returned by every Detect call.
	DetectErr error

	// DetectFunc, if non-nil, is invoked instead of returning Intervals.
	// Useful for per-call behaviour (e.g., blocking until cancelled).
	DetectFunc func(ctx context.Context, pcm []byte, sampleRate int) ([]vad.Interval, error)

	// DetectCalls records every call to Detect in order.
	DetectCalls []DetectCall
}

// Detect records the call and returns Intervals, DetectErr (or delegates to
// DetectFunc when set).
func (e *Engine) Detect(ctx context.Context, pcm []byte, sampleRate int) ([]vad.Interval, error) {
	e.mu.Lock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	e.DetectCalls = append(e.DetectCalls, DetectCall{PCM: cp, SampleRate: sampleRate})
	fn := e.DetectFunc
	intervals := e.Intervals
	err := e.DetectErr
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, pcm, sampleRate)
	}
	if err != nil {
		return nil, err
	}
	return intervals, nil
}

// Calls returns a copy of the recorded Detect calls. Thread-safe.
func (e *Engine) Calls() []DetectCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]DetectCall, len(e.DetectCalls))
	copy(out, e.DetectCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.DetectCalls = nil
}

// Ensure Engine implements vad.Engine at compile time.
var _ vad.Engine = (*Engine)(nil)
