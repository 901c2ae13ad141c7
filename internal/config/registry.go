package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/vocalis/pkg/provider/asr"
	"github.com/MrWong99/vocalis/pkg/provider/reply"
	"github.com/MrWong99/vocalis/pkg/provider/synth"
	"github.com/MrWong99/vocalis/pkg/provider/vad"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested engine name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps engine names to their constructor functions for each engine
// type. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	vad   map[string]func(ProviderEntry) (vad.Engine, error)
	asr   map[string]func(ProviderEntry) (asr.Engine, error)
	reply map[string]func(ProviderEntry) (reply.Engine, error)
	synth map[string]func(ProviderEntry) (synth.Engine, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		vad:   make(map[string]func(ProviderEntry) (vad.Engine, error)),
		asr:   make(map[string]func(ProviderEntry) (asr.Engine, error)),
		reply: make(map[string]func(ProviderEntry) (reply.Engine, error)),
		synth: make(map[string]func(ProviderEntry) (synth.Engine, error)),
	}
}

// RegisterVAD registers a VAD engine factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterVAD(name string, factory func(ProviderEntry) (vad.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = factory
}

// RegisterASR registers a recognition engine factory under name.
func (r *Registry) RegisterASR(name string, factory func(ProviderEntry) (asr.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// RegisterReply registers a reply engine factory under name.
func (r *Registry) RegisterReply(name string, factory func(ProviderEntry) (reply.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reply[name] = factory
}

// RegisterSynth registers a synthesis engine factory under name.
func (r *Registry) RegisterSynth(name string, factory func(ProviderEntry) (synth.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.synth[name] = factory
}

// CreateVAD instantiates a VAD engine using the factory registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateVAD(entry ProviderEntry) (vad.Engine, error) {
	r.mu.RLock()
	factory, ok := r.vad[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateASR instantiates a recognition engine using the factory registered under entry.Name.
func (r *Registry) CreateASR(entry ProviderEntry) (asr.Engine, error) {
	r.mu.RLock()
	factory, ok := r.asr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateReply instantiates a reply engine using the factory registered under entry.Name.
func (r *Registry) CreateReply(entry ProviderEntry) (reply.Engine, error) {
	r.mu.RLock()
	factory, ok := r.reply[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: reply/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSynth instantiates a synthesis engine using the factory registered under entry.Name.
func (r *Registry) CreateSynth(entry ProviderEntry) (synth.Engine, error) {
	r.mu.RLock()
	factory, ok := r.synth[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: synth/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
