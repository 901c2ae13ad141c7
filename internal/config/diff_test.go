package config_test

import (
	"testing"

	"github.com/MrWong99/vocalis/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server:  config.ServerConfig{LogLevel: config.LogInfo},
		Session: config.SessionConfig{SamplingRate: 16000, ChunkLengthSeconds: 1.8},
		Providers: config.ProvidersConfig{
			ASR: []config.ProviderEntry{{Name: "whisper"}},
		},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged || d.SessionChanged || d.DialogueChanged || d.BoostingChanged || d.ProvidersChanged {
		t.Errorf("expected empty diff for identical configs, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
}

func TestDiff_SessionChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Session: config.SessionConfig{ChunkLengthSeconds: 1.8}}
	new := &config.Config{Session: config.SessionConfig{ChunkLengthSeconds: 4.0}}

	d := config.Diff(old, new)
	if !d.SessionChanged {
		t.Error("expected SessionChanged=true")
	}
	if d.ProvidersChanged {
		t.Error("expected ProvidersChanged=false")
	}
}

func TestDiff_DialogueChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Dialogue: config.DialogueConfig{SystemPrompt: "a"}}
	new := &config.Config{Dialogue: config.DialogueConfig{SystemPrompt: "b"}}

	if d := config.Diff(old, new); !d.DialogueChanged {
		t.Error("expected DialogueChanged=true")
	}
}

func TestDiff_BoostingChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Boosting: config.BoostingConfig{Domain: "global"}}
	new := &config.Config{Boosting: config.BoostingConfig{Domain: "pharma"}}

	if d := config.Diff(old, new); !d.BoostingChanged {
		t.Error("expected BoostingChanged=true")
	}
}

func TestDiff_ProvidersChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Providers: config.ProvidersConfig{ASR: []config.ProviderEntry{{Name: "whisper"}}},
	}
	new := &config.Config{
		Providers: config.ProvidersConfig{ASR: []config.ProviderEntry{{Name: "deepgram"}}},
	}

	d := config.Diff(old, new)
	if !d.ProvidersChanged {
		t.Error("expected ProvidersChanged=true")
	}
	if d.SessionChanged {
		t.Error("expected SessionChanged=false")
	}
}

func TestDiff_MultipleChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Server:   config.ServerConfig{LogLevel: config.LogInfo},
		Session:  config.SessionConfig{SamplingRate: 16000},
		Dialogue: config.DialogueConfig{SystemPrompt: "a"},
	}
	new := &config.Config{
		Server:   config.ServerConfig{LogLevel: config.LogWarn},
		Session:  config.SessionConfig{SamplingRate: 8000},
		Dialogue: config.DialogueConfig{SystemPrompt: "b"},
	}

	d := config.Diff(old, new)
	if !d.LogLevelChanged || !d.SessionChanged || !d.DialogueChanged {
		t.Errorf("expected log level, session, and dialogue changes, got %+v", d)
	}
}
