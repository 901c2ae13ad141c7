// Package gateway exposes the streaming audio endpoint and the word-boosting
// admin API over HTTP.
//
// The WebSocket endpoint at "/" accepts interleaved binary and text frames
// from a client. Binary frames carry raw PCM audio and are appended to the
// connection's session buffer; after every frame the segmenter trigger rule is
// checked. Text frames carry sparse JSON control updates (mode, engine
// selectors, timing, direct text input). Frames that are not valid JSON are
// logged and ignored so a misbehaving client cannot take the connection down.
//
// Outbound traffic is serialized through a single writer goroutine per
// connection, so transcripts, audio status markers and synthesized audio
// frames always arrive in emission order.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrWong99/vocalis/internal/dialogue"
	"github.com/MrWong99/vocalis/internal/event"
	"github.com/MrWong99/vocalis/internal/observe"
	"github.com/MrWong99/vocalis/internal/segmenter"
	"github.com/MrWong99/vocalis/internal/session"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// defaultQueueSize bounds the per-connection outbound event queue. Synthesis
// can outpace a slow client; beyond this the emitting goroutine blocks.
const defaultQueueSize = 256

// maxFrameBytes is the largest single WebSocket frame accepted from a client.
const maxFrameBytes = 1 << 22

// ArtifactCleaner removes the on-disk audio artifacts of a closed session.
type ArtifactCleaner interface {
	RemoveSession(sessionID string) error
}

// Option is a functional option for configuring a Gateway.
type Option func(*Gateway)

// WithDialogue attaches the runner used for direct text input turns.
func WithDialogue(r *dialogue.Runner) Option {
	return func(g *Gateway) { g.dialogue = r }
}

// WithSessionDefaults seeds every new connection's session.
func WithSessionDefaults(d session.Defaults) Option {
	return func(g *Gateway) { g.defaults = d }
}

// WithArtifactCleaner removes a session's remaining audio artifacts when its
// connection closes.
func WithArtifactCleaner(c ArtifactCleaner) Option {
	return func(g *Gateway) { g.artifacts = c }
}

// WithMetrics overrides the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithOriginPatterns sets the allowed WebSocket origins. Default: same host
// only.
func WithOriginPatterns(patterns ...string) Option {
	return func(g *Gateway) { g.originPatterns = patterns }
}

// Gateway handles WebSocket audio streaming connections. One Gateway serves
// all connections; per-connection state lives in [session.Session].
type Gateway struct {
	seg      *segmenter.Segmenter
	dialogue *dialogue.Runner
	defaults session.Defaults

	artifacts      ArtifactCleaner
	metrics        *observe.Metrics
	originPatterns []string
}

var _ http.Handler = (*Gateway)(nil)

// New creates a Gateway driving the given segmenter.
func New(seg *segmenter.Segmenter, opts ...Option) *Gateway {
	g := &Gateway{seg: seg}
	for _, o := range opts {
		o(g)
	}
	if g.metrics == nil {
		g.metrics = observe.DefaultMetrics()
	}
	return g
}

// ServeHTTP upgrades the request to a WebSocket connection and serves it
// until the client disconnects or the request context is cancelled. Plain
// HTTP requests without an upgrade header get a liveness response instead,
// so the streaming endpoint doubles as a basic health probe.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	conn.SetReadLimit(maxFrameBytes)
	g.serve(r.Context(), conn)
}

// serve runs one connection to completion.
func (g *Gateway) serve(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	connID := uuid.NewString()
	sess := session.New(connID, g.defaults)
	log := observe.Logger(ctx).With(slog.String("conn_id", connID))

	g.metrics.ActiveSessions.Add(ctx, 1)
	defer g.metrics.ActiveSessions.Add(ctx, -1)
	log.Info("client connected")

	queue := make(chan event.Event, defaultQueueSize)
	emit := func(ev event.Event) {
		select {
		case queue <- ev:
		case <-ctx.Done():
		}
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return g.writeLoop(gctx, conn, queue) })
	grp.Go(func() error { return g.readLoop(gctx, conn, sess, emit) })
	err := grp.Wait()
	cancel()

	if g.artifacts != nil {
		if rmErr := g.artifacts.RemoveSession(sess.ID()); rmErr != nil {
			log.Warn("artifact cleanup failed", slog.String("error", rmErr.Error()))
		}
	}

	switch {
	case websocket.CloseStatus(err) != -1, errors.Is(err, context.Canceled):
		log.Info("client disconnected")
	case err != nil:
		log.Warn("connection failed", slog.String("error", err.Error()))
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// readLoop consumes inbound frames until the connection errors out.
func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session, emit func(event.Event)) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		switch typ {
		case websocket.MessageBinary:
			sess.AppendAudio(data)
			g.metrics.AudioFrames.Add(ctx, 1)
		case websocket.MessageText:
			g.handleControl(ctx, sess, data, emit)
		}
		// The trigger rule runs after every frame, not just audio: a control
		// frame that shrinks the chunk length can make already-buffered audio
		// cross the threshold.
		g.seg.Evaluate(ctx, sess, emit)
	}
}

// writeLoop drains the event queue onto the connection in order.
func (g *Gateway) writeLoop(ctx context.Context, conn *websocket.Conn, queue <-chan event.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-queue:
			payload, binary, err := event.Encode(ev)
			if err != nil {
				observe.Logger(ctx).Warn("event encode failed", slog.String("error", err.Error()))
				continue
			}
			if payload == nil {
				continue
			}
			typ := websocket.MessageText
			if binary {
				typ = websocket.MessageBinary
			}
			if err := conn.Write(ctx, typ, payload); err != nil {
				return err
			}
		}
	}
}

// handleControl applies one text frame as a sparse config update. Direct text
// input drives a dialogue turn without any audio involved.
func (g *Gateway) handleControl(ctx context.Context, sess *session.Session, data []byte, emit func(event.Event)) {
	log := observe.Logger(ctx).With(slog.String("conn_id", sess.ConnID()))

	var cfg session.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Debug("ignoring malformed control frame", slog.String("error", err.Error()))
		return
	}
	sess.ApplyConfig(cfg)

	text, ok := sess.TakePendingUserText()
	if !ok {
		return
	}
	if sess.Mode() != session.ModeDialogue || g.dialogue == nil {
		log.Debug("dropping text input outside dialogue mode")
		return
	}
	if !sess.AwaitingUserSpeech() {
		log.Debug("dropping text input while a reply is in progress")
		return
	}
	go g.dialogue.RunTurn(ctx, sess, text, emit)
}
