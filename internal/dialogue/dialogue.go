// Package dialogue runs the spoken-dialogue turn that follows a finalized
// user utterance: reply generation, transcript emission, and synthesized
// audio streaming.
//
// A turn proceeds as:
//
//  1. The session's listening gate closes so further user speech is held
//     until the reply has played out.
//  2. The reply engine produces the response text from the utterance and the
//     session's conversation history.
//  3. The response is emitted as a server transcript event.
//  4. The synthesis engine streams audio frames, bracketed by start and end
//     status markers so the client can play them as one utterance.
//  5. The listening gate reopens.
//
// Reply or synthesis failures are logged and end the turn early; the session
// always comes out of a turn listening again.
package dialogue

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrWong99/vocalis/internal/event"
	"github.com/MrWong99/vocalis/internal/observe"
	"github.com/MrWong99/vocalis/internal/session"
	"github.com/MrWong99/vocalis/pkg/provider/reply"
	"github.com/MrWong99/vocalis/pkg/provider/synth"
)

const (
	defaultReplyTimeout = 60 * time.Second
	defaultSynthTimeout = 60 * time.Second
)

// EngineSet resolves a session's engine selectors to shared reply and
// synthesis engines. The empty selector resolves to the default engine.
type EngineSet interface {
	Reply(selector string) (reply.Engine, error)
	Synth(selector string) (synth.Engine, error)
}

// Option is a functional option for configuring a [Runner].
type Option func(*Runner)

// WithSystemPrompt sets the system prompt sent with every reply request.
func WithSystemPrompt(p string) Option {
	return func(r *Runner) { r.systemPrompt = p }
}

// WithMetrics overrides the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithReplyTimeout bounds a single reply generation call. Default: 60s.
func WithReplyTimeout(d time.Duration) Option {
	return func(r *Runner) { r.replyTimeout = d }
}

// WithSynthTimeout bounds a single synthesis stream. Default: 60s.
func WithSynthTimeout(d time.Duration) Option {
	return func(r *Runner) { r.synthTimeout = d }
}

// Runner executes dialogue turns. It holds no per-session state and is safe
// for concurrent use.
type Runner struct {
	engines EngineSet

	systemPrompt string
	metrics      *observe.Metrics
	replyTimeout time.Duration
	synthTimeout time.Duration
}

// New constructs a Runner resolving engines from the given set.
func New(engines EngineSet, opts ...Option) *Runner {
	r := &Runner{
		engines:      engines,
		replyTimeout: defaultReplyTimeout,
		synthTimeout: defaultSynthTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// RunTurn executes one dialogue turn for userText. Events are emitted through
// emit in order: the reply transcript, an audio start marker, the audio
// frames, and an audio end marker. The session's listening gate is closed for
// the duration of the turn.
func (r *Runner) RunTurn(ctx context.Context, sess *session.Session, userText string, emit func(event.Event)) {
	sess.SetAwaitingUserSpeech(false)
	defer sess.SetAwaitingUserSpeech(true)

	log := observe.Logger(ctx).With(slog.String("session_id", sess.ID()))

	text, ok := r.generateReply(ctx, log, sess, userText)
	if !ok {
		return
	}

	sess.AppendHistory("user", userText)
	sess.AppendHistory("assistant", text)
	emit(event.ServerTranscript{Text: text, SessionID: sess.ID()})

	r.synthesize(ctx, log, sess, text, emit)
}

// generateReply calls the session's reply engine. A failure is logged and
// reported through the returned flag; the turn then ends without output.
func (r *Runner) generateReply(ctx context.Context, log *slog.Logger, sess *session.Session, userText string) (string, bool) {
	engine, err := r.engines.Reply(sess.ReplyEngine())
	if err != nil {
		log.Error("no reply engine for selector",
			slog.String("selector", sess.ReplyEngine()),
			slog.String("error", err.Error()),
		)
		r.metrics.RecordProviderError(ctx, sess.ReplyEngine(), "reply")
		return "", false
	}

	replyCtx, cancel := context.WithTimeout(ctx, r.replyTimeout)
	defer cancel()

	start := time.Now()
	text, err := engine.Reply(replyCtx, reply.Request{
		SystemPrompt: r.systemPrompt,
		History:      sess.History(),
		UserText:     userText,
	})
	r.metrics.ReplyDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		log.Error("reply generation failed", slog.String("error", err.Error()))
		r.metrics.RecordProviderError(ctx, sess.ReplyEngine(), "reply")
		return "", false
	}
	if text == "" {
		log.Warn("reply engine produced empty response")
		return "", false
	}
	return text, true
}

// synthesize streams the reply's audio to the client. The start marker is
// only emitted once the stream has been opened, so a synthesis failure
// produces a transcript-only turn rather than an unterminated audio bracket.
func (r *Runner) synthesize(ctx context.Context, log *slog.Logger, sess *session.Session, text string, emit func(event.Event)) {
	engine, err := r.engines.Synth(sess.SynthEngine())
	if err != nil {
		log.Error("no synthesis engine for selector",
			slog.String("selector", sess.SynthEngine()),
			slog.String("error", err.Error()),
		)
		r.metrics.RecordProviderError(ctx, sess.SynthEngine(), "synth")
		return
	}

	synthCtx, cancel := context.WithTimeout(ctx, r.synthTimeout)
	defer cancel()

	start := time.Now()
	frames, err := engine.Synthesize(synthCtx, text, sess.VoiceID())
	if err != nil {
		log.Error("synthesis failed", slog.String("error", err.Error()))
		r.metrics.RecordProviderError(ctx, sess.SynthEngine(), "synth")
		return
	}

	emit(event.AudioStatus{Status: "start"})
	for frame := range frames {
		emit(event.Audio{PCM: frame})
	}
	emit(event.AudioStatus{Status: "end"})
	r.metrics.SynthDuration.Record(ctx, time.Since(start).Seconds())

	log.Info("dialogue turn completed",
		slog.String("reply", text),
		slog.Duration("synthesis", time.Since(start)),
	)
}
