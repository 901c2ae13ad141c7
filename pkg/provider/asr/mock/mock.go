// Package mock provides test doubles for the asr package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/vocalis/pkg/provider/asr"
)

// Engine is a mock implementation of asr.Engine.
type Engine struct {
	mu sync.Mutex

	// Result is returned by every Transcribe call when TranscribeFunc is nil.
	Result asr.Result

	// TranscribeErr, if non-nil, is returned by every Transcribe call.
	TranscribeErr error

	// TranscribeFunc, if non-nil, is invoked instead of returning Result.
	TranscribeFunc func(ctx context.Context, req asr.Request) (asr.Result, error)

	// TranscribeCalls records every call to Transcribe in order. Request PCM
	// is copied so callers may reuse their buffers.
	TranscribeCalls []asr.Request
}

// Transcribe records the call and returns Result, TranscribeErr (or delegates
// to TranscribeFunc when set).
func (e *Engine) Transcribe(ctx context.Context, req asr.Request) (asr.Result, error) {
	e.mu.Lock()
	rec := req
	rec.PCM = make([]byte, len(req.PCM))
	copy(rec.PCM, req.PCM)
	e.TranscribeCalls = append(e.TranscribeCalls, rec)
	fn := e.TranscribeFunc
	res := e.Result
	err := e.TranscribeErr
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return asr.Result{}, err
	}
	return res, nil
}

// Calls returns a copy of the recorded Transcribe calls. Thread-safe.
func (e *Engine) Calls() []asr.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]asr.Request, len(e.TranscribeCalls))
	copy(out, e.TranscribeCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.TranscribeCalls = nil
}

var _ asr.Engine = (*Engine)(nil)
