package session

import (
	"testing"
)

func strPtr(s string) *string   { return &s }
func intPtr(i int) *int         { return &i }
func f64Ptr(f float64) *float64 { return &f }

func newTestSession() *Session {
	return New("conn-1", Defaults{})
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	s := newTestSession()

	if got := s.SamplingRate(); got != 16000 {
		t.Errorf("SamplingRate() = %d; want 16000", got)
	}
	if got := s.SampleWidth(); got != 2 {
		t.Errorf("SampleWidth() = %d; want 2", got)
	}
	if got := s.ChunkLengthSeconds(); got != 1.8 {
		t.Errorf("ChunkLengthSeconds() = %v; want 1.8", got)
	}
	if got := s.ChunkOffsetSeconds(); got != 0.6 {
		t.Errorf("ChunkOffsetSeconds() = %v; want 0.6", got)
	}
	if got := s.Mode(); got != ModeTranscription {
		t.Errorf("Mode() = %q; want %q", got, ModeTranscription)
	}
	if !s.AwaitingUserSpeech() {
		t.Error("AwaitingUserSpeech() = false; want true on a fresh session")
	}
	if s.TurnToken() == "" {
		t.Error("TurnToken() is empty; want a timestamp-derived token")
	}
}

func TestID_FallsBackToConnID(t *testing.T) {
	t.Parallel()
	s := newTestSession()
	if got := s.ID(); got != "conn-1" {
		t.Errorf("ID() = %q; want conn-1", got)
	}

	s.ApplyConfig(Config{SessionID: strPtr("client-abc")})
	if got := s.ID(); got != "client-abc" {
		t.Errorf("ID() after config = %q; want client-abc", got)
	}
}

func TestApplyConfig_SessionIDSetOnce(t *testing.T) {
	t.Parallel()
	s := newTestSession()
	s.ApplyConfig(Config{SessionID: strPtr("first")})
	s.ApplyConfig(Config{SessionID: strPtr("second")})
	if got := s.ID(); got != "first" {
		t.Errorf("ID() = %q; want first (set-once)", got)
	}
}

func TestAppendAudio_AccumulatesBytes(t *testing.T) {
	t.Parallel()
	s := newTestSession()

	s.AppendAudio(make([]byte, 100))
	s.AppendAudio(make([]byte, 250))
	s.AppendAudio(nil)

	if got := s.RawLen(); got != 350 {
		t.Errorf("RawLen() = %d; want 350", got)
	}
}

func TestApplyConfig_SparseMerge(t *testing.T) {
	t.Parallel()
	s := newTestSession()

	s.ApplyConfig(Config{
		Mode:         strPtr("dialogue"),
		ASREngine:    strPtr("whisper"),
		SamplingRate: intPtr(44100),
	})
	// A second sparse frame must not reset the earlier fields.
	s.ApplyConfig(Config{VoiceID: strPtr("voice-7")})

	if got := s.Mode(); got != ModeDialogue {
		t.Errorf("Mode() = %q; want dialogue", got)
	}
	if got := s.ASREngine(); got != "whisper" {
		t.Errorf("ASREngine() = %q; want whisper", got)
	}
	if got := s.SamplingRate(); got != 44100 {
		t.Errorf("SamplingRate() = %d; want 44100", got)
	}
	if got := s.VoiceID(); got != "voice-7" {
		t.Errorf("VoiceID() = %q; want voice-7", got)
	}
}

func TestApplyConfig_UnknownModeIgnored(t *testing.T) {
	t.Parallel()
	s := newTestSession()
	s.ApplyConfig(Config{Mode: strPtr("karaoke")})
	if got := s.Mode(); got != ModeTranscription {
		t.Errorf("Mode() = %q; want transcription after unknown mode", got)
	}
}

func TestApplyConfig_GoogleForcesChunkLength(t *testing.T) {
	t.Parallel()
	s := newTestSession()

	s.ApplyConfig(Config{
		ASREngine:          strPtr("google"),
		ChunkLengthSeconds: f64Ptr(1.0),
	})

	if got := s.ChunkLengthSeconds(); got != 4.0 {
		t.Errorf("ChunkLengthSeconds() = %v; want 4.0 (forced by google backend)", got)
	}
}

func TestApplyConfig_TelephonyChannelForcesSamplingRate(t *testing.T) {
	t.Parallel()
	for _, ch := range []string{"CUSTOMER", "AGENT", "customer"} {
		s := newTestSession()
		s.ApplyConfig(Config{
			SamplingRate: intPtr(48000),
			ChannelID:    strPtr(ch),
		})
		if got := s.SamplingRate(); got != 8000 {
			t.Errorf("channel %q: SamplingRate() = %d; want 8000", ch, got)
		}
	}
}

func TestApplyConfig_Idempotent(t *testing.T) {
	t.Parallel()
	cfg := Config{
		Mode:               strPtr("dialogue"),
		ASREngine:          strPtr("google"),
		SamplingRate:       intPtr(44100),
		ChunkOffsetSeconds: f64Ptr(0.8),
		SessionID:          strPtr("abc"),
		ChannelID:          strPtr("AGENT"),
	}

	once := newTestSession()
	once.ApplyConfig(cfg)

	twice := newTestSession()
	twice.ApplyConfig(cfg)
	twice.ApplyConfig(cfg)

	if once.Mode() != twice.Mode() ||
		once.ASREngine() != twice.ASREngine() ||
		once.SamplingRate() != twice.SamplingRate() ||
		once.ChunkLengthSeconds() != twice.ChunkLengthSeconds() ||
		once.ChunkOffsetSeconds() != twice.ChunkOffsetSeconds() ||
		once.ID() != twice.ID() ||
		once.ChannelID() != twice.ChannelID() {
		t.Error("applying the same config twice diverged from applying it once")
	}
}

func TestTryBeginEvaluation_BelowThreshold(t *testing.T) {
	t.Parallel()
	s := newTestSession()
	// Threshold is 1.8 s × 16000 Hz × 2 B = 57600 bytes.
	s.AppendAudio(make([]byte, 57599))

	if _, state := s.TryBeginEvaluation(); state != TriggerIdle {
		t.Errorf("state = %v; want TriggerIdle below threshold", state)
	}
	if got := s.RawLen(); got != 57599 {
		t.Errorf("RawLen() = %d; want 57599 (untouched)", got)
	}
}

func TestTryBeginEvaluation_SwapsRawOntoScratch(t *testing.T) {
	t.Parallel()
	s := newTestSession()
	s.AppendAudio(make([]byte, 57600))

	scratch, state := s.TryBeginEvaluation()
	if state != TriggerStarted {
		t.Fatalf("state = %v; want TriggerStarted", state)
	}
	if len(scratch) != 57600 {
		t.Errorf("len(scratch) = %d; want 57600", len(scratch))
	}
	if got := s.RawLen(); got != 0 {
		t.Errorf("RawLen() = %d; want 0 after swap", got)
	}
	if got := s.ScratchLen(); got != 57600 {
		t.Errorf("ScratchLen() = %d; want 57600 after swap", got)
	}
	if !s.InFlight() {
		t.Error("InFlight() = false; want true during evaluation")
	}
}

func TestTryBeginEvaluation_BusyWhileInFlight(t *testing.T) {
	t.Parallel()
	s := newTestSession()
	s.AppendAudio(make([]byte, 57600))
	if _, state := s.TryBeginEvaluation(); state != TriggerStarted {
		t.Fatal("first trigger should start an evaluation")
	}

	// More audio keeps arriving while the evaluation runs.
	s.AppendAudio(make([]byte, 57600))
	if _, state := s.TryBeginEvaluation(); state != TriggerBusy {
		t.Error("second trigger should report TriggerBusy")
	}
	if got := s.RawLen(); got != 57600 {
		t.Errorf("RawLen() = %d; want 57600 (deferred audio kept)", got)
	}
}

func TestTryBeginEvaluation_RetainedScratchGrows(t *testing.T) {
	t.Parallel()
	s := newTestSession()
	s.AppendAudio(make([]byte, 57600))
	if _, state := s.TryBeginEvaluation(); state != TriggerStarted {
		t.Fatal("first trigger should start an evaluation")
	}
	s.RetainScratch()

	s.AppendAudio(make([]byte, 57600))
	scratch, state := s.TryBeginEvaluation()
	if state != TriggerStarted {
		t.Fatalf("state = %v; want TriggerStarted after retain", state)
	}
	if len(scratch) != 115200 {
		t.Errorf("len(scratch) = %d; want 115200 (retained + new chunk)", len(scratch))
	}
}

func TestFinalizeScratch_AdvancesTokenAndClears(t *testing.T) {
	t.Parallel()
	s := newTestSession()
	s.AppendAudio(make([]byte, 57600))
	s.TryBeginEvaluation()

	before := s.TurnToken()
	finalized := s.FinalizeScratch()

	if finalized != before {
		t.Errorf("FinalizeScratch() = %q; want the pre-finalize token %q", finalized, before)
	}
	if got := s.TurnToken(); got == before {
		t.Error("TurnToken() unchanged after finalize; want a new token")
	}
	if got := s.ScratchLen(); got != 0 {
		t.Errorf("ScratchLen() = %d; want 0 after finalize", got)
	}
	if s.InFlight() {
		t.Error("InFlight() = true after finalize; want false")
	}
}

func TestDiscardScratch_AdvancesTokenAndClears(t *testing.T) {
	t.Parallel()
	s := newTestSession()
	s.AppendAudio(make([]byte, 57600))
	s.TryBeginEvaluation()

	before := s.TurnToken()
	s.DiscardScratch()

	if got := s.TurnToken(); got == before {
		t.Error("TurnToken() unchanged after discard; want a new token")
	}
	if got := s.ScratchLen(); got != 0 {
		t.Errorf("ScratchLen() = %d; want 0 after discard", got)
	}
	if s.InFlight() {
		t.Error("InFlight() = true after discard; want false")
	}
}

func TestRetainScratch_KeepsTokenAndContent(t *testing.T) {
	t.Parallel()
	s := newTestSession()
	s.AppendAudio(make([]byte, 57600))
	s.TryBeginEvaluation()

	before := s.TurnToken()
	s.RetainScratch()

	if got := s.TurnToken(); got != before {
		t.Error("TurnToken() changed after retain; must only advance on finalize/discard")
	}
	if got := s.ScratchLen(); got != 57600 {
		t.Errorf("ScratchLen() = %d; want 57600 (content preserved)", got)
	}
	if s.InFlight() {
		t.Error("InFlight() = true after retain; want false")
	}
}

func TestPendingUserText_TakeConsumes(t *testing.T) {
	t.Parallel()
	s := newTestSession()

	if _, ok := s.TakePendingUserText(); ok {
		t.Error("TakePendingUserText() = ok on fresh session; want none")
	}

	s.ApplyConfig(Config{UserInput: strPtr("what time is it")})
	text, ok := s.TakePendingUserText()
	if !ok || text != "what time is it" {
		t.Errorf("TakePendingUserText() = (%q, %v); want the user input", text, ok)
	}
	if _, ok := s.TakePendingUserText(); ok {
		t.Error("TakePendingUserText() returned text twice; want consume-once")
	}
}

func TestHistory_AppendsInOrder(t *testing.T) {
	t.Parallel()
	s := newTestSession()
	s.AppendHistory("user", "hello")
	s.AppendHistory("assistant", "hi there")

	h := s.History()
	if len(h) != 2 {
		t.Fatalf("len(History()) = %d; want 2", len(h))
	}
	if h[0].Role != "user" || h[0].Content != "hello" {
		t.Errorf("History()[0] = %+v; want user/hello", h[0])
	}
	if h[1].Role != "assistant" || h[1].Content != "hi there" {
		t.Errorf("History()[1] = %+v; want assistant/hi there", h[1])
	}
}
