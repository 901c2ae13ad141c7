// Package config provides the configuration schema, loader, and engine
// registry for the Vocalis streaming gateway.
package config

// LogLevel controls log verbosity for the Vocalis server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Vocalis.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Providers ProvidersConfig `yaml:"providers"`
	Boosting  BoostingConfig  `yaml:"boosting"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Dialogue  DialogueConfig  `yaml:"dialogue"`
}

// ServerConfig holds network and logging settings for the Vocalis server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// SessionConfig seeds the audio defaults of every new connection. Clients may
// override each value per session via control frames. Zero values fall back
// to the session package defaults (16 kHz, 16-bit, 1.8 s chunks, 0.6 s offset).
type SessionConfig struct {
	// SamplingRate is the default PCM sampling rate in Hz.
	SamplingRate int `yaml:"sampling_rate"`

	// SampleWidth is the sample width in bytes (2 for PCM16).
	SampleWidth int `yaml:"sample_width"`

	// ChunkLengthSeconds is the minimum audio duration that triggers an
	// evaluation cycle.
	ChunkLengthSeconds float64 `yaml:"chunk_length_seconds"`

	// ChunkOffsetSeconds is the trailing settle margin: speech ending within
	// this distance of the buffer end is considered still in progress.
	ChunkOffsetSeconds float64 `yaml:"chunk_offset_seconds"`
}

// ProvidersConfig declares the engine implementations available to sessions.
// VAD is a single shared engine; the recognition, reply, and synthesis lists
// are selectable per session by entry name, with the first entry of each list
// acting as the default.
type ProvidersConfig struct {
	VAD   ProviderEntry   `yaml:"vad"`
	ASR   []ProviderEntry `yaml:"asr"`
	Reply []ProviderEntry `yaml:"reply"`
	Synth []ProviderEntry `yaml:"synth"`
}

// ProviderEntry is the common configuration block shared by all engine types.
// The Name field is used to look up the constructor in the [Registry] and is
// the selector value clients send in control frames.
type ProviderEntry struct {
	// Name selects the registered engine implementation (e.g., "whisper",
	// "deepgram", "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the engine's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the engine's default API endpoint.
	// Leave empty to use the engine's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the engine (e.g., "nova-3").
	Model string `yaml:"model"`

	// Options holds engine-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or
	// nested maps.
	Options map[string]any `yaml:"options"`
}

// BoostingConfig holds settings for the word-boosting vocabulary.
type BoostingConfig struct {
	// File is a JSON file of per-domain boost words loaded at startup.
	// A missing file is not an error.
	File string `yaml:"file"`

	// PostgresDSN is the PostgreSQL connection string for persistent boost
	// storage. When set, persisted words overlay the file contents and admin
	// API updates are written through.
	PostgresDSN string `yaml:"postgres_dsn"`

	// Domain selects which boosting domain feeds recognition requests and
	// the phonetic corrector. Defaults to "global".
	Domain string `yaml:"domain"`
}

// ArtifactsConfig controls on-disk WAV artifacts of in-flight utterances.
type ArtifactsConfig struct {
	// Dir is the directory utterance artifacts are written to. Empty
	// disables artifact persistence.
	Dir string `yaml:"dir"`
}

// DialogueConfig holds spoken-dialogue settings.
type DialogueConfig struct {
	// SystemPrompt is prepended to every reply generation request.
	SystemPrompt string `yaml:"system_prompt"`
}
