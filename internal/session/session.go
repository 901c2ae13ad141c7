// Package session holds the per-connection mutable state of the gateway: the
// audio buffers, timing configuration, dialogue flags, and the single-flight
// guard that arbitrates access between the frame-receive path and the
// segmentation engine.
//
// A Session is owned by exactly one connection. All methods are safe for
// concurrent use; the receive loop and the evaluation goroutine may touch the
// same Session at once.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/vocalis/pkg/audio"
	"github.com/MrWong99/vocalis/pkg/provider/reply"
)

// Mode selects what happens when an utterance finalizes.
type Mode string

const (
	// ModeTranscription emits transcripts only.
	ModeTranscription Mode = "transcription"

	// ModeDialogue additionally drives a reply + synthesis turn.
	ModeDialogue Mode = "dialogue"
)

// Defaults seed a fresh Session. Zero fields fall back to the package
// constants.
type Defaults struct {
	SamplingRate       int
	SampleWidth        int
	ChunkLengthSeconds float64
	ChunkOffsetSeconds float64
	ASREngine          string
	ReplyEngine        string
	SynthEngine        string
}

const (
	defaultChunkLengthSeconds = 1.8
	defaultChunkOffsetSeconds = 0.6

	// googleChunkLengthSeconds is forced when the google ASR backend is
	// selected; it needs longer minimum chunks.
	googleChunkLengthSeconds = 4.0

	// telephonySamplingRate is the fixed rate of CUSTOMER/AGENT call legs.
	telephonySamplingRate = 8000
)

// Config is one sparse control-frame update. Nil fields keep prior values.
type Config struct {
	Mode               *string  `json:"mode"`
	ASREngine          *string  `json:"asrEngineSelector"`
	ReplyEngine        *string  `json:"replyEngineSelector"`
	SynthEngine        *string  `json:"synthesisEngineSelector"`
	VoiceID            *string  `json:"voiceId"`
	SamplingRate       *int     `json:"samplingRate"`
	ChunkLengthSeconds *float64 `json:"chunkLengthSeconds"`
	ChunkOffsetSeconds *float64 `json:"chunkOffsetSeconds"`
	SessionID          *string  `json:"sessionId"`
	UserInput          *string  `json:"userInput"`
	ChannelID          *string  `json:"channelId"`
}

// TriggerState is the outcome of a TryBeginEvaluation call.
type TriggerState int

const (
	// TriggerIdle means not enough audio has accumulated yet.
	TriggerIdle TriggerState = iota

	// TriggerStarted means raw audio was moved onto scratch and the caller
	// now owns the evaluation.
	TriggerStarted

	// TriggerBusy means the threshold was met while an evaluation is still
	// in flight; the audio stays in the raw buffer for the next cycle.
	TriggerBusy
)

// Session is the per-connection state holder.
type Session struct {
	connID string

	mu sync.Mutex

	id      string // client-supplied, set once
	raw     []byte
	scratch []byte

	samplingRate int
	sampleWidth  int
	chunkLength  float64
	chunkOffset  float64

	inFlight bool
	mode     Mode

	asrEngine   string
	replyEngine string
	synthEngine string
	voiceID     string
	channelID   string

	pendingUserText    string
	hasPendingUserText bool
	awaitingUserSpeech bool

	turnToken string

	history []reply.Message
}

// New creates a Session for the given connection identifier, populated with
// defaults.
func New(connID string, d Defaults) *Session {
	if d.SamplingRate <= 0 {
		d.SamplingRate = audio.DefaultSampleRate
	}
	if d.SampleWidth <= 0 {
		d.SampleWidth = audio.DefaultSampleWidth
	}
	if d.ChunkLengthSeconds <= 0 {
		d.ChunkLengthSeconds = defaultChunkLengthSeconds
	}
	if d.ChunkOffsetSeconds <= 0 {
		d.ChunkOffsetSeconds = defaultChunkOffsetSeconds
	}
	return &Session{
		connID:             connID,
		samplingRate:       d.SamplingRate,
		sampleWidth:        d.SampleWidth,
		chunkLength:        d.ChunkLengthSeconds,
		chunkOffset:        d.ChunkOffsetSeconds,
		mode:               ModeTranscription,
		asrEngine:          d.ASREngine,
		replyEngine:        d.ReplyEngine,
		synthEngine:        d.SynthEngine,
		awaitingUserSpeech: true,
		turnToken:          newTurnToken(),
	}
}

// newTurnToken derives an opaque utterance identifier from the wall clock.
func newTurnToken() string {
	return time.Now().Format("20060102_150405.000000")
}

// ConnID returns the gateway-assigned connection identifier.
func (s *Session) ConnID() string { return s.connID }

// ID returns the client-supplied session identifier, or the connection
// identifier when the client never set one.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == "" {
		return s.connID
	}
	return s.id
}

// AppendAudio appends a binary frame to the raw buffer. It never blocks and
// never fails.
func (s *Session) AppendAudio(b []byte) {
	s.mu.Lock()
	s.raw = append(s.raw, b...)
	s.mu.Unlock()
}

// ApplyConfig merges a sparse control-frame update. Applying the same frame
// twice yields the same state as applying it once.
func (s *Session) ApplyConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.Mode != nil {
		switch Mode(*cfg.Mode) {
		case ModeTranscription, ModeDialogue:
			s.mode = Mode(*cfg.Mode)
		}
	}
	if cfg.ASREngine != nil {
		s.asrEngine = *cfg.ASREngine
		// The google backend rejects short chunks.
		if *cfg.ASREngine == "google" {
			s.chunkLength = googleChunkLengthSeconds
		}
	}
	if cfg.ReplyEngine != nil {
		s.replyEngine = *cfg.ReplyEngine
	}
	if cfg.SynthEngine != nil {
		s.synthEngine = *cfg.SynthEngine
	}
	if cfg.VoiceID != nil {
		s.voiceID = *cfg.VoiceID
	}
	if cfg.SamplingRate != nil && *cfg.SamplingRate > 0 {
		s.samplingRate = *cfg.SamplingRate
	}
	if cfg.ChunkLengthSeconds != nil && *cfg.ChunkLengthSeconds > 0 && s.asrEngine != "google" {
		s.chunkLength = *cfg.ChunkLengthSeconds
	}
	if cfg.ChunkOffsetSeconds != nil && *cfg.ChunkOffsetSeconds > 0 {
		s.chunkOffset = *cfg.ChunkOffsetSeconds
	}
	if cfg.SessionID != nil && s.id == "" {
		s.id = *cfg.SessionID
	}
	if cfg.ChannelID != nil {
		s.channelID = *cfg.ChannelID
		// Telephony legs are fixed at 8 kHz regardless of what the client
		// claims.
		switch strings.ToUpper(*cfg.ChannelID) {
		case "CUSTOMER", "AGENT":
			s.samplingRate = telephonySamplingRate
		}
	}
	if cfg.UserInput != nil && *cfg.UserInput != "" {
		s.pendingUserText = *cfg.UserInput
		s.hasPendingUserText = true
	}
}

// TryBeginEvaluation checks the trigger rule: when at least
// chunkLength×rate×width raw bytes have accumulated and no evaluation is in
// flight, the raw buffer is moved onto the end of the scratch buffer, the
// single-flight guard is set, and a copy of the full scratch content is
// returned for evaluation.
func (s *Session) TryBeginEvaluation() ([]byte, TriggerState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := audio.BytesForSeconds(s.chunkLength, s.samplingRate, s.sampleWidth)
	if len(s.raw) < threshold {
		return nil, TriggerIdle
	}
	if s.inFlight {
		return nil, TriggerBusy
	}

	s.scratch = append(s.scratch, s.raw...)
	s.raw = nil
	s.inFlight = true

	cp := make([]byte, len(s.scratch))
	copy(cp, s.scratch)
	return cp, TriggerStarted
}

// FinalizeScratch ends an evaluation that consumed the utterance: the scratch
// buffer is cleared, the turn token advances, and the single-flight guard is
// released. It returns the token that named the finalized utterance.
func (s *Session) FinalizeScratch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := s.turnToken
	s.scratch = nil
	s.turnToken = newTurnToken()
	s.inFlight = false
	return token
}

// DiscardScratch ends an evaluation that found no speech. Semantics match
// FinalizeScratch; the distinction exists for callers and metrics.
func (s *Session) DiscardScratch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := s.turnToken
	s.scratch = nil
	s.turnToken = newTurnToken()
	s.inFlight = false
	return token
}

// RetainScratch ends an evaluation whose speech had not yet settled: the
// scratch content is kept for the next cycle and only the single-flight guard
// is released. The turn token does not advance.
func (s *Session) RetainScratch() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// TurnToken returns the token naming the current utterance artifact.
func (s *Session) TurnToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnToken
}

// InFlight reports whether an evaluation currently owns the scratch buffer.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// RawLen returns the raw buffer size in bytes.
func (s *Session) RawLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.raw)
}

// ScratchLen returns the scratch buffer size in bytes.
func (s *Session) ScratchLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scratch)
}

// SamplingRate returns the current sampling rate in Hz.
func (s *Session) SamplingRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samplingRate
}

// SampleWidth returns the sample width in bytes.
func (s *Session) SampleWidth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleWidth
}

// ChunkOffsetSeconds returns the trailing settle margin.
func (s *Session) ChunkOffsetSeconds() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunkOffset
}

// ChunkLengthSeconds returns the minimum chunk duration.
func (s *Session) ChunkLengthSeconds() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunkLength
}

// Mode returns the session mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// ASREngine returns the selected ASR backend name.
func (s *Session) ASREngine() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asrEngine
}

// ReplyEngine returns the selected reply backend name.
func (s *Session) ReplyEngine() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replyEngine
}

// SynthEngine returns the selected synthesis backend name.
func (s *Session) SynthEngine() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synthEngine
}

// VoiceID returns the selected synthesis voice, or "" for the engine default.
func (s *Session) VoiceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiceID
}

// ChannelID returns the telephony channel label, or "" when unset.
func (s *Session) ChannelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

// AwaitingUserSpeech reports whether the session is ready to act on user
// utterances. It is false while a dialogue reply is being produced.
func (s *Session) AwaitingUserSpeech() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitingUserSpeech
}

// SetAwaitingUserSpeech flips the dialogue listening gate.
func (s *Session) SetAwaitingUserSpeech(v bool) {
	s.mu.Lock()
	s.awaitingUserSpeech = v
	s.mu.Unlock()
}

// TakePendingUserText consumes the text waiting for a dialogue turn, if any.
func (s *Session) TakePendingUserText() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasPendingUserText {
		return "", false
	}
	text := s.pendingUserText
	s.pendingUserText = ""
	s.hasPendingUserText = false
	return text, true
}

// SetPendingUserText stores a finalized transcript for dialogue-turn
// consumption.
func (s *Session) SetPendingUserText(text string) {
	s.mu.Lock()
	s.pendingUserText = text
	s.hasPendingUserText = true
	s.mu.Unlock()
}

// AppendHistory records one conversation turn.
func (s *Session) AppendHistory(role, content string) {
	s.mu.Lock()
	s.history = append(s.history, reply.Message{Role: role, Content: content})
	s.mu.Unlock()
}

// History returns a copy of the conversation so far, oldest first.
func (s *Session) History() []reply.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reply.Message, len(s.history))
	copy(out, s.history)
	return out
}
