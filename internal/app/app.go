// Package app wires all Vocalis subsystems into a running server.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// tears everything down in order.
//
// For testing, inject doubles via functional options (WithBoostStore,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/vocalis/internal/artifact"
	"github.com/MrWong99/vocalis/internal/boost"
	"github.com/MrWong99/vocalis/internal/config"
	"github.com/MrWong99/vocalis/internal/dialogue"
	"github.com/MrWong99/vocalis/internal/gateway"
	"github.com/MrWong99/vocalis/internal/health"
	"github.com/MrWong99/vocalis/internal/observe"
	"github.com/MrWong99/vocalis/internal/segmenter"
	"github.com/MrWong99/vocalis/internal/session"
	"github.com/MrWong99/vocalis/internal/transcript"
)

// shutdownTimeout bounds the HTTP server drain when the run context ends.
const shutdownTimeout = 10 * time.Second

// App owns all subsystem lifetimes and serves the streaming gateway.
type App struct {
	cfg     *config.Config
	engines *EngineSet

	boosts    *boost.Store
	pg        *boost.PostgresStore
	artifacts *artifact.Store
	metrics   *observe.Metrics
	seg       *segmenter.Segmenter
	srv       *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithBoostStore injects a boosting store instead of creating one from config.
func WithBoostStore(s *boost.Store) Option {
	return func(a *App) { a.boosts = s }
}

// WithMetrics overrides the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The engine set comes
// from main (populated via the config registry).
//
// New performs all initialisation synchronously: boosting store seeding and
// persistence, the artifact store, the segmentation engine, the dialogue
// runner, and the HTTP routes.
func New(ctx context.Context, cfg *config.Config, engines *EngineSet, opts ...Option) (*App, error) {
	a := &App{
		cfg:     cfg,
		engines: engines,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Word boosting ─────────────────────────────────────────────────
	if err := a.initBoosting(ctx); err != nil {
		return nil, fmt.Errorf("app: init boosting: %w", err)
	}

	// ── 2. Utterance artifacts ───────────────────────────────────────────
	if dir := cfg.Artifacts.Dir; dir != "" {
		store, err := artifact.NewStore(dir)
		if err != nil {
			return nil, fmt.Errorf("app: init artifacts: %w", err)
		}
		a.artifacts = store
	}

	// ── 3. Segmenter + dialogue ──────────────────────────────────────────
	if engines.VAD() == nil {
		return nil, errors.New("app: no VAD engine configured")
	}

	domain := cfg.Boosting.Domain
	if domain == "" {
		domain = "global"
	}

	runner := dialogue.New(a.engines,
		dialogue.WithSystemPrompt(cfg.Dialogue.SystemPrompt),
		dialogue.WithMetrics(a.metrics),
	)

	segOpts := []segmenter.Option{
		segmenter.WithBoosting(a.boosts, domain),
		segmenter.WithCorrector(transcript.NewCorrector()),
		segmenter.WithDialogue(runner),
		segmenter.WithMetrics(a.metrics),
	}
	if a.artifacts != nil {
		segOpts = append(segOpts, segmenter.WithArtifacts(a.artifacts))
	}
	a.seg = segmenter.New(a.engines.VAD(), a.engines, segOpts...)

	// ── 4. HTTP routes ───────────────────────────────────────────────────
	gwOpts := []gateway.Option{
		gateway.WithDialogue(runner),
		gateway.WithSessionDefaults(sessionDefaults(cfg)),
		gateway.WithMetrics(a.metrics),
	}
	if a.artifacts != nil {
		gwOpts = append(gwOpts, gateway.WithArtifactCleaner(a.artifacts))
	}
	gw := gateway.New(a.seg, gwOpts...)

	mux := http.NewServeMux()
	mux.Handle("/", gw)
	gateway.NewAdmin(a.boosts).Register(mux)
	health.New(a.readinessCheckers()...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	a.srv = &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: observe.Middleware(a.metrics)(mux),
	}

	return a, nil
}

// initBoosting seeds the boosting store from the configured file and overlays
// persisted words from PostgreSQL when a DSN is configured.
func (a *App) initBoosting(ctx context.Context) error {
	if a.boosts == nil {
		a.boosts = boost.NewStore()
	}

	if file := a.cfg.Boosting.File; file != "" {
		if err := a.boosts.LoadFile(file); err != nil {
			return err
		}
		slog.Info("loaded boost words", "file", file, "domains", len(a.boosts.Domains()))
	}

	if dsn := a.cfg.Boosting.PostgresDSN; dsn != "" {
		pg, err := boost.NewPostgresStore(ctx, dsn)
		if err != nil {
			return err
		}
		a.pg = pg
		a.boosts = a.boosts.WithPersistence(pg)
		a.closers = append(a.closers, func() error {
			pg.Close()
			return nil
		})

		if err := a.boosts.LoadPersisted(ctx); err != nil {
			return err
		}
		slog.Info("boost persistence enabled", "domains", len(a.boosts.Domains()))
	}

	return nil
}

// readinessCheckers builds the /readyz probe list from the configured
// subsystems.
func (a *App) readinessCheckers() []health.Checker {
	var checkers []health.Checker
	if a.pg != nil {
		checkers = append(checkers, health.Checker{
			Name:  "boosting",
			Check: a.pg.Ping,
		})
	}
	if a.artifacts != nil {
		dir := a.cfg.Artifacts.Dir
		checkers = append(checkers, health.Checker{
			Name: "artifacts",
			Check: func(context.Context) error {
				_, err := os.Stat(dir)
				return err
			},
		})
	}
	return checkers
}

// sessionDefaults converts the config's session block into session seeds.
// Engine defaults come from the first entry of each provider list.
func sessionDefaults(cfg *config.Config) session.Defaults {
	d := session.Defaults{
		SamplingRate:       cfg.Session.SamplingRate,
		SampleWidth:        cfg.Session.SampleWidth,
		ChunkLengthSeconds: cfg.Session.ChunkLengthSeconds,
		ChunkOffsetSeconds: cfg.Session.ChunkOffsetSeconds,
	}
	if len(cfg.Providers.ASR) > 0 {
		d.ASREngine = cfg.Providers.ASR[0].Name
	}
	if len(cfg.Providers.Reply) > 0 {
		d.ReplyEngine = cfg.Providers.Reply[0].Name
	}
	if len(cfg.Providers.Synth) > 0 {
		d.SynthEngine = cfg.Providers.Synth[0].Name
	}
	return d
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP until ctx is cancelled or the listener fails. The server is
// drained before Run returns.
func (a *App) Run(ctx context.Context) error {
	grp, gctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			slog.Info("listening with TLS", "addr", a.srv.Addr)
			err = a.srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			slog.Info("listening", "addr", a.srv.Addr)
			err = a.srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	grp.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.srv.Shutdown(drainCtx)
	})

	return grp.Wait()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown waits for in-flight evaluations and tears down all subsystems in
// order. It respects the context deadline: if ctx expires before all closers
// finish, remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		// Let running VAD/ASR evaluations finish before engines go away.
		done := make(chan struct{})
		go func() {
			a.seg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			slog.Warn("shutdown deadline exceeded while draining evaluations")
			shutdownErr = ctx.Err()
			return
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
