package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known engine names per provider kind.
// Used by [Validate] to warn about unrecognised engine names.
var ValidProviderNames = map[string][]string{
	"vad":   {"silero"},
	"asr":   {"whisper", "whisper-native", "deepgram", "google"},
	"reply": {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"synth": {"elevenlabs"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Session defaults
	if cfg.Session.SamplingRate < 0 {
		errs = append(errs, fmt.Errorf("session.sampling_rate %d must not be negative", cfg.Session.SamplingRate))
	}
	if cfg.Session.SampleWidth < 0 {
		errs = append(errs, fmt.Errorf("session.sample_width %d must not be negative", cfg.Session.SampleWidth))
	}
	if cfg.Session.ChunkLengthSeconds < 0 {
		errs = append(errs, fmt.Errorf("session.chunk_length_seconds %.2f must not be negative", cfg.Session.ChunkLengthSeconds))
	}
	if cfg.Session.ChunkOffsetSeconds < 0 {
		errs = append(errs, fmt.Errorf("session.chunk_offset_seconds %.2f must not be negative", cfg.Session.ChunkOffsetSeconds))
	}
	if cfg.Session.ChunkLengthSeconds > 0 && cfg.Session.ChunkOffsetSeconds >= cfg.Session.ChunkLengthSeconds {
		errs = append(errs, fmt.Errorf("session.chunk_offset_seconds %.2f must be smaller than chunk_length_seconds %.2f",
			cfg.Session.ChunkOffsetSeconds, cfg.Session.ChunkLengthSeconds))
	}

	// Provider name validation — warn for unknown engine names.
	validateProviderName("vad", cfg.Providers.VAD.Name)
	validateEntryList(&errs, "asr", cfg.Providers.ASR)
	validateEntryList(&errs, "reply", cfg.Providers.Reply)
	validateEntryList(&errs, "synth", cfg.Providers.Synth)

	// Engine availability warnings
	if cfg.Providers.VAD.Name == "" {
		slog.Warn("no VAD engine configured; audio will never be segmented")
	}
	if len(cfg.Providers.ASR) == 0 {
		slog.Warn("no recognition engine configured; utterances will finalize without transcripts")
	}
	if len(cfg.Providers.Reply) == 0 || len(cfg.Providers.Synth) == 0 {
		slog.Warn("dialogue mode requires both a reply and a synthesis engine; sessions selecting it will fail their turns")
	}

	// Boosting
	if cfg.Boosting.PostgresDSN != "" && cfg.Boosting.File != "" {
		slog.Info("boosting file and postgres both configured; persisted words overlay the file contents")
	}

	return errors.Join(errs...)
}

// validateEntryList checks a selectable engine list for duplicate selector
// names and warns about unknown engine names.
func validateEntryList(errs *[]error, kind string, entries []ProviderEntry) {
	seen := make(map[string]int, len(entries))
	for i, entry := range entries {
		prefix := fmt.Sprintf("providers.%s[%d]", kind, i)
		if entry.Name == "" {
			*errs = append(*errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := seen[entry.Name]; ok {
			*errs = append(*errs, fmt.Errorf("%s.name %q is a duplicate of providers.%s[%d]", prefix, entry.Name, kind, prev))
		}
		seen[entry.Name] = i
		validateProviderName(kind, entry.Name)
	}
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown engine name — may be a typo or third-party engine",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
