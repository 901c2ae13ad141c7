// Package mock provides test doubles for the reply package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/vocalis/pkg/provider/reply"
)

// Engine is a mock implementation of reply.Engine.
type Engine struct {
	mu sync.Mutex

	// Text is returned by every Reply call when ReplyFunc is nil.
	Text string

	// ReplyErr, if non-nil, is returned by every Reply call.
	ReplyErr error

	// ReplyFunc, if non-nil, is invoked instead of returning Text.
	ReplyFunc func(ctx context.Context, req reply.Request) (string, error)

	// ReplyCalls records every call to Reply in order.
	ReplyCalls []reply.Request
}

// Reply records the call and returns Text, ReplyErr (or delegates to
// ReplyFunc when set).
func (e *Engine) Reply(ctx context.Context, req reply.Request) (string, error) {
	e.mu.Lock()
	e.ReplyCalls = append(e.ReplyCalls, req)
	fn := e.ReplyFunc
	text := e.Text
	err := e.ReplyErr
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// Calls returns a copy of the recorded Reply calls. Thread-safe.
func (e *Engine) Calls() []reply.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]reply.Request, len(e.ReplyCalls))
	copy(out, e.ReplyCalls)
	return out
}

var _ reply.Engine = (*Engine)(nil)
