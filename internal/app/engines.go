package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/vocalis/internal/config"
	"github.com/MrWong99/vocalis/internal/dialogue"
	"github.com/MrWong99/vocalis/internal/segmenter"
	"github.com/MrWong99/vocalis/pkg/provider/asr"
	"github.com/MrWong99/vocalis/pkg/provider/reply"
	"github.com/MrWong99/vocalis/pkg/provider/synth"
	"github.com/MrWong99/vocalis/pkg/provider/vad"
)

// Compile-time interface checks.
var (
	_ segmenter.EngineSet = (*EngineSet)(nil)
	_ dialogue.EngineSet  = (*EngineSet)(nil)
)

// EngineSet holds all constructed engines, keyed by their configured names.
// An empty selector resolves to the default engine: the first entry of the
// provider list in the config.
type EngineSet struct {
	vadEngine vad.Engine

	asrEngines   map[string]asr.Engine
	replyEngines map[string]reply.Engine
	synthEngines map[string]synth.Engine

	defaultASR   string
	defaultReply string
	defaultSynth string
}

// BuildEngines constructs all engines named in cfg.Providers through the
// registry. Entries whose name has no registered factory are skipped with a
// warning so that optional engines (missing API key, CGO build tag) do not
// prevent startup. A factory error aborts construction.
func BuildEngines(cfg *config.Config, reg *config.Registry) (*EngineSet, error) {
	es := &EngineSet{
		asrEngines:   map[string]asr.Engine{},
		replyEngines: map[string]reply.Engine{},
		synthEngines: map[string]synth.Engine{},
	}

	if name := cfg.Providers.VAD.Name; name != "" {
		eng, err := reg.CreateVAD(cfg.Providers.VAD)
		if err != nil {
			if !errors.Is(err, config.ErrProviderNotRegistered) {
				return nil, fmt.Errorf("create vad engine %q: %w", name, err)
			}
			slog.Warn("skipping unregistered VAD engine", "name", name)
		} else {
			es.vadEngine = eng
		}
	}

	for _, entry := range cfg.Providers.ASR {
		eng, err := reg.CreateASR(entry)
		if err != nil {
			if !errors.Is(err, config.ErrProviderNotRegistered) {
				return nil, fmt.Errorf("create asr engine %q: %w", entry.Name, err)
			}
			slog.Warn("skipping unregistered ASR engine", "name", entry.Name)
			continue
		}
		es.asrEngines[entry.Name] = eng
		if es.defaultASR == "" {
			es.defaultASR = entry.Name
		}
	}

	for _, entry := range cfg.Providers.Reply {
		eng, err := reg.CreateReply(entry)
		if err != nil {
			if !errors.Is(err, config.ErrProviderNotRegistered) {
				return nil, fmt.Errorf("create reply engine %q: %w", entry.Name, err)
			}
			slog.Warn("skipping unregistered reply engine", "name", entry.Name)
			continue
		}
		es.replyEngines[entry.Name] = eng
		if es.defaultReply == "" {
			es.defaultReply = entry.Name
		}
	}

	for _, entry := range cfg.Providers.Synth {
		eng, err := reg.CreateSynth(entry)
		if err != nil {
			if !errors.Is(err, config.ErrProviderNotRegistered) {
				return nil, fmt.Errorf("create synthesis engine %q: %w", entry.Name, err)
			}
			slog.Warn("skipping unregistered synthesis engine", "name", entry.Name)
			continue
		}
		es.synthEngines[entry.Name] = eng
		if es.defaultSynth == "" {
			es.defaultSynth = entry.Name
		}
	}

	return es, nil
}

// VAD returns the speech-detection engine, or nil when none is configured.
func (es *EngineSet) VAD() vad.Engine {
	return es.vadEngine
}

// ASR resolves selector to a transcription engine. An empty selector picks
// the default engine.
func (es *EngineSet) ASR(selector string) (asr.Engine, error) {
	if selector == "" {
		selector = es.defaultASR
	}
	eng, ok := es.asrEngines[selector]
	if !ok {
		return nil, fmt.Errorf("no ASR engine %q", selector)
	}
	return eng, nil
}

// Reply resolves selector to a reply engine. An empty selector picks the
// default engine.
func (es *EngineSet) Reply(selector string) (reply.Engine, error) {
	if selector == "" {
		selector = es.defaultReply
	}
	eng, ok := es.replyEngines[selector]
	if !ok {
		return nil, fmt.Errorf("no reply engine %q", selector)
	}
	return eng, nil
}

// Synth resolves selector to a speech-synthesis engine. An empty selector
// picks the default engine.
func (es *EngineSet) Synth(selector string) (synth.Engine, error) {
	if selector == "" {
		selector = es.defaultSynth
	}
	eng, ok := es.synthEngines[selector]
	if !ok {
		return nil, fmt.Errorf("no synthesis engine %q", selector)
	}
	return eng, nil
}
