// Package segmenter implements VAD-driven utterance segmentation over a
// session's audio buffers.
//
// The segmenter owns the evaluation cycle that runs whenever a session's raw
// buffer crosses the chunk threshold: the accumulated audio is moved onto the
// scratch buffer, voice activity detection classifies it, and the settle rule
// decides between three outcomes:
//
//   - no speech at all: the scratch buffer is discarded and the turn token
//     advances, so silence never reaches the recognizer;
//   - speech that ends before the settle point (scratch duration minus the
//     chunk offset): the utterance is complete, the full scratch buffer is
//     transcribed, post-processed, and emitted;
//   - speech still running into the settle margin: the scratch buffer is
//     retained and re-evaluated once another full chunk has accumulated.
//
// At most one evaluation is in flight per session. A trigger that fires while
// one is running is counted as a concurrency violation and its audio stays in
// the raw buffer for the next cycle.
package segmenter

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/vocalis/internal/artifact"
	"github.com/MrWong99/vocalis/internal/boost"
	"github.com/MrWong99/vocalis/internal/event"
	"github.com/MrWong99/vocalis/internal/observe"
	"github.com/MrWong99/vocalis/internal/session"
	"github.com/MrWong99/vocalis/internal/transcript"
	"github.com/MrWong99/vocalis/pkg/audio"
	"github.com/MrWong99/vocalis/pkg/provider/asr"
	"github.com/MrWong99/vocalis/pkg/provider/vad"
)

const (
	defaultVADTimeout = 15 * time.Second
	defaultASRTimeout = 30 * time.Second
)

// EngineSet resolves a session's engine selector to a shared recognition
// engine instance. The empty selector resolves to the default engine.
type EngineSet interface {
	ASR(selector string) (asr.Engine, error)
}

// DialogueRunner runs a spoken-dialogue turn after a finalized user
// utterance. Implementations must emit their own events through emit.
type DialogueRunner interface {
	RunTurn(ctx context.Context, sess *session.Session, userText string, emit func(event.Event))
}

// Option is a functional option for configuring a [Segmenter].
type Option func(*Segmenter)

// WithArtifacts persists each scratch buffer as a WAV artifact for the
// lifetime of its evaluation. Artifacts are removed on discard and finalize.
func WithArtifacts(store *artifact.Store) Option {
	return func(s *Segmenter) { s.artifacts = store }
}

// WithBoosting attaches a word-boosting store. The domain's keyword list is
// passed to recognition engines that support native boosting, and its words
// feed the phonetic corrector.
func WithBoosting(store *boost.Store, domain string) Option {
	return func(s *Segmenter) {
		s.boosts = store
		s.boostDomain = domain
	}
}

// WithCorrector attaches a phonetic corrector applied to recognition output
// together with number normalization.
func WithCorrector(c *transcript.Corrector) Option {
	return func(s *Segmenter) { s.corrector = c }
}

// WithDialogue attaches the dialogue turn runner invoked for finalized
// utterances of sessions in dialogue mode.
func WithDialogue(d DialogueRunner) Option {
	return func(s *Segmenter) { s.dialogue = d }
}

// WithMetrics overrides the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Segmenter) { s.metrics = m }
}

// WithVADTimeout bounds a single voice activity detection call. Default: 15s.
func WithVADTimeout(d time.Duration) Option {
	return func(s *Segmenter) { s.vadTimeout = d }
}

// WithASRTimeout bounds a single transcription call. Default: 30s.
func WithASRTimeout(d time.Duration) Option {
	return func(s *Segmenter) { s.asrTimeout = d }
}

// Segmenter drives utterance segmentation for all sessions. It is stateless
// apart from shared engines and safe for concurrent use; all per-utterance
// state lives in the [session.Session].
type Segmenter struct {
	vadEngine vad.Engine
	engines   EngineSet

	artifacts   *artifact.Store
	boosts      *boost.Store
	boostDomain string
	corrector   *transcript.Corrector
	dialogue    DialogueRunner
	metrics     *observe.Metrics

	vadTimeout time.Duration
	asrTimeout time.Duration

	// wg tracks evaluation goroutines so callers (and tests) can synchronise
	// with the end of an evaluation cycle.
	wg sync.WaitGroup
}

// New constructs a Segmenter using the given VAD engine and recognition
// engine resolver.
func New(vadEngine vad.Engine, engines EngineSet, opts ...Option) *Segmenter {
	s := &Segmenter{
		vadEngine:  vadEngine,
		engines:    engines,
		vadTimeout: defaultVADTimeout,
		asrTimeout: defaultASRTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Evaluate checks the session's trigger rule and, when it fires, runs one
// evaluation cycle in a background goroutine. It never blocks on providers.
//
// The returned state is the trigger outcome: [session.TriggerIdle] when not
// enough audio has accumulated, [session.TriggerBusy] when an evaluation was
// already in flight (the audio is deferred to the next cycle), and
// [session.TriggerStarted] when a cycle was started.
func (s *Segmenter) Evaluate(ctx context.Context, sess *session.Session, emit func(event.Event)) session.TriggerState {
	scratch, state := sess.TryBeginEvaluation()
	switch state {
	case session.TriggerIdle:
		return state
	case session.TriggerBusy:
		observe.Logger(ctx).Warn("segmentation trigger while evaluation in flight, deferring audio",
			slog.String("session_id", sess.ID()),
			slog.Int("raw_bytes", sess.RawLen()),
		)
		s.metrics.RecordConcurrencyViolation(ctx)
		return state
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.evaluate(ctx, sess, scratch, emit)
	}()
	return state
}

// Wait blocks until all in-flight evaluation goroutines have finished.
func (s *Segmenter) Wait() {
	s.wg.Wait()
}

// evaluate runs one full evaluation cycle over a scratch snapshot.
func (s *Segmenter) evaluate(ctx context.Context, sess *session.Session, scratch []byte, emit func(event.Event)) {
	start := time.Now()
	defer func() {
		s.metrics.EvaluationDuration.Record(ctx, time.Since(start).Seconds())
	}()

	log := observe.Logger(ctx).With(
		slog.String("session_id", sess.ID()),
		slog.String("turn", sess.TurnToken()),
	)

	if s.artifacts != nil {
		if _, err := s.artifacts.Save(sess.ID(), sess.ChannelID(), sess.TurnToken(), scratch, sess.SamplingRate()); err != nil {
			log.Warn("utterance artifact write failed", slog.String("error", err.Error()))
		}
	}

	intervals := s.detectSpeech(ctx, log, sess, scratch)

	if len(intervals) == 0 {
		token := sess.DiscardScratch()
		s.removeArtifact(log, sess, token)
		s.metrics.RecordSegment(ctx, "discarded")
		log.Debug("scratch discarded, no speech detected",
			slog.Int("scratch_bytes", len(scratch)),
		)
		return
	}

	settle := audio.Seconds(len(scratch), sess.SamplingRate(), sess.SampleWidth()) - sess.ChunkOffsetSeconds()
	if lastSpeechEnd(intervals) >= settle {
		sess.RetainScratch()
		s.metrics.RecordSegment(ctx, "retained")
		log.Debug("speech still settling, scratch retained",
			slog.Float64("settle_point", settle),
			slog.Float64("speech_end", lastSpeechEnd(intervals)),
		)
		return
	}

	text := s.transcribe(ctx, log, sess, scratch)
	token := sess.FinalizeScratch()
	s.removeArtifact(log, sess, token)
	s.metrics.RecordSegment(ctx, "finalized")

	if strings.TrimSpace(text) == "" {
		log.Debug("utterance finalized with empty transcript")
		return
	}
	text = s.postProcess(text)
	log.Info("utterance finalized",
		slog.String("text", text),
		slog.Duration("took", time.Since(start)),
	)

	switch sess.Mode() {
	case session.ModeDialogue:
		if !sess.AwaitingUserSpeech() {
			log.Debug("dropping transcript, reply in progress", slog.String("text", text))
			return
		}
		emit(event.UserTranscript{Text: text})
		if s.dialogue != nil {
			s.dialogue.RunTurn(ctx, sess, text, emit)
		}
	default:
		emit(event.ServerTranscript{Text: text, SessionID: sess.ID()})
	}
}

// detectSpeech runs voice activity detection over the scratch snapshot.
// Failures are logged and reported as no speech so the session stays
// consistent.
func (s *Segmenter) detectSpeech(ctx context.Context, log *slog.Logger, sess *session.Session, scratch []byte) []vad.Interval {
	vadCtx, cancel := context.WithTimeout(ctx, s.vadTimeout)
	defer cancel()

	vadStart := time.Now()
	intervals, err := s.vadEngine.Detect(vadCtx, scratch, sess.SamplingRate())
	s.metrics.VADDuration.Record(ctx, time.Since(vadStart).Seconds())
	if err != nil {
		log.Error("voice activity detection failed", slog.String("error", err.Error()))
		s.metrics.RecordProviderError(ctx, "vad", "detect")
		return nil
	}
	return intervals
}

// transcribe runs the session's recognition engine over the scratch snapshot.
// Failures are logged and reported as an empty transcript.
func (s *Segmenter) transcribe(ctx context.Context, log *slog.Logger, sess *session.Session, scratch []byte) string {
	engine, err := s.engines.ASR(sess.ASREngine())
	if err != nil {
		log.Error("no recognition engine for selector",
			slog.String("selector", sess.ASREngine()),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordProviderError(ctx, sess.ASREngine(), "asr")
		return ""
	}

	req := asr.Request{
		PCM:        scratch,
		SampleRate: sess.SamplingRate(),
	}
	if s.boosts != nil {
		req.Boosts = s.boosts.Boosts(s.boostDomain)
	}

	asrCtx, cancel := context.WithTimeout(ctx, s.asrTimeout)
	defer cancel()

	asrStart := time.Now()
	result, err := engine.Transcribe(asrCtx, req)
	s.metrics.ASRDuration.Record(ctx, time.Since(asrStart).Seconds())
	if err != nil {
		log.Error("transcription failed", slog.String("error", err.Error()))
		s.metrics.RecordProviderError(ctx, sess.ASREngine(), "asr")
		return ""
	}
	return result.Text
}

// postProcess normalizes number speech and applies the phonetic corrector
// against the boosted vocabulary.
func (s *Segmenter) postProcess(text string) string {
	text = transcript.Normalize(text)
	if s.corrector != nil && s.boosts != nil {
		vocab := boostVocabulary(s.boosts.Words(s.boostDomain))
		text = s.corrector.Correct(text, vocab)
	}
	return text
}

func (s *Segmenter) removeArtifact(log *slog.Logger, sess *session.Session, token string) {
	if s.artifacts == nil {
		return
	}
	if err := s.artifacts.Remove(sess.ID(), sess.ChannelID(), token); err != nil {
		log.Warn("utterance artifact removal failed", slog.String("error", err.Error()))
	}
}

// lastSpeechEnd returns the latest interval end, in seconds from the start of
// the scratch buffer. Intervals are not assumed to be sorted.
func lastSpeechEnd(intervals []vad.Interval) float64 {
	var end float64
	for _, iv := range intervals {
		if iv.End > end {
			end = iv.End
		}
	}
	return end
}

// boostVocabulary flattens a boost word map into the corrector's vocabulary.
func boostVocabulary(words map[string]float64) []string {
	vocab := make([]string, 0, len(words))
	for w := range words {
		vocab = append(vocab, w)
	}
	return vocab
}
