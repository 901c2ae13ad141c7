// Command vocalis is the main entry point for the Vocalis speech-streaming
// gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/vocalis/internal/app"
	"github.com/MrWong99/vocalis/internal/config"
	"github.com/MrWong99/vocalis/internal/observe"
	"github.com/MrWong99/vocalis/pkg/provider/asr"
	"github.com/MrWong99/vocalis/pkg/provider/asr/deepgram"
	"github.com/MrWong99/vocalis/pkg/provider/asr/whisper"
	"github.com/MrWong99/vocalis/pkg/provider/reply"
	"github.com/MrWong99/vocalis/pkg/provider/reply/anyllm"
	oareply "github.com/MrWong99/vocalis/pkg/provider/reply/openai"
	"github.com/MrWong99/vocalis/pkg/provider/synth"
	"github.com/MrWong99/vocalis/pkg/provider/synth/elevenlabs"
	"github.com/MrWong99/vocalis/pkg/provider/vad"
	"github.com/MrWong99/vocalis/pkg/provider/vad/silero"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "vocalis: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "vocalis: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logger := newLogger(cfg.Server.LogLevel, logLevel)
	slog.SetDefault(logger)

	slog.Info("vocalis starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Config watcher ────────────────────────────────────────────────────────
	// Only the log level is applied live; provider and session changes need a
	// restart.
	watcher, err := config.NewWatcher(*configPath, applyConfigChange(logLevel))
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Engine registry ───────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinEngines(reg)

	// ── Instantiate engines ───────────────────────────────────────────────────
	engines, err := app.BuildEngines(cfg, reg)
	if err != nil {
		slog.Error("failed to build engines", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, engines)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Engine wiring ─────────────────────────────────────────────────────────────

// builtinEngines maps engine kinds to the implementations that ship with
// Vocalis. Used for startup logging.
var builtinEngines = map[string][]string{
	"vad":   {"silero"},
	"asr":   {"whisper", "whisper-native", "deepgram"},
	"reply": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"synth": {"elevenlabs"},
}

// registerBuiltinEngines wires all built-in engine factories into reg. Each
// factory receives a config.ProviderEntry and constructs the engine from the
// real implementation packages.
func registerBuiltinEngines(reg *config.Registry) {
	// ── VAD ───────────────────────────────────────────────────────────────────

	reg.RegisterVAD("silero", func(entry config.ProviderEntry) (vad.Engine, error) {
		var opts []silero.Option
		if t, ok := optFloat(entry.Options, "threshold"); ok {
			opts = append(opts, silero.WithThreshold(t))
		}
		if entry.APIKey != "" {
			opts = append(opts, silero.WithAuthToken(entry.APIKey))
		}
		return silero.New(entry.BaseURL, opts...)
	})

	// ── ASR ───────────────────────────────────────────────────────────────────

	reg.RegisterASR("whisper", func(entry config.ProviderEntry) (asr.Engine, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterASR("whisper-native", func(entry config.ProviderEntry) (asr.Engine, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterASR("deepgram", func(entry config.ProviderEntry) (asr.Engine, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	// ── Reply ─────────────────────────────────────────────────────────────────
	// openai uses the native SDK; anthropic, gemini, deepseek, mistral, groq,
	// llamacpp and llamafile share the any-llm pattern: optional APIKey +
	// optional BaseURL.

	reg.RegisterReply("openai", func(entry config.ProviderEntry) (reply.Engine, error) {
		var opts []oareply.Option
		if entry.BaseURL != "" {
			opts = append(opts, oareply.WithBaseURL(entry.BaseURL))
		}
		return oareply.New(entry.APIKey, entry.Model, opts...)
	})

	for _, engineName := range []string{
		"anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterReply(engineName, func(entry config.ProviderEntry) (reply.Engine, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(engineName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterReply("ollama", func(entry config.ProviderEntry) (reply.Engine, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── Synthesis ─────────────────────────────────────────────────────────────

	reg.RegisterSynth("elevenlabs", func(entry config.ProviderEntry) (synth.Engine, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if voice := optString(entry.Options, "voice_id"); voice != "" {
			opts = append(opts, elevenlabs.WithDefaultVoice(voice))
		}
		if outputFmt := optString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	// Debug log of all registered engines.
	for kind, names := range builtinEngines {
		for _, name := range names {
			slog.Debug("registered engine", "kind", kind, "name", name)
		}
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Vocalis — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printEngine("VAD", cfg.Providers.VAD.Name, "")
	printEngineList("ASR", cfg.Providers.ASR)
	printEngineList("Reply", cfg.Providers.Reply)
	printEngineList("Synthesis", cfg.Providers.Synth)
	if cfg.Boosting.PostgresDSN != "" {
		fmt.Printf("║  Boost storage   : %-19s ║\n", "postgres")
	} else if cfg.Boosting.File != "" {
		fmt.Printf("║  Boost storage   : %-19s ║\n", "file")
	} else {
		fmt.Printf("║  Boost storage   : %-19s ║\n", "(in-memory)")
	}
	if cfg.Artifacts.Dir != "" {
		fmt.Printf("║  Artifacts       : %-19s ║\n", "enabled")
	} else {
		fmt.Printf("║  Artifacts       : %-19s ║\n", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

// printEngineList prints the first (default) entry of an engine list plus a
// count of alternatives.
func printEngineList(kind string, entries []config.ProviderEntry) {
	if len(entries) == 0 {
		printEngine(kind, "", "")
		return
	}
	name := entries[0].Name
	if len(entries) > 1 {
		name = fmt.Sprintf("%s +%d", name, len(entries)-1)
	}
	printEngine(kind, name, entries[0].Model)
}

func printEngine(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger builds the process logger. The handler reads its level from lvl so
// the config watcher can change it at runtime.
func newLogger(level config.LogLevel, lvl *slog.LevelVar) *slog.Logger {
	lvl.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyConfigChange returns the watcher callback applying the hot-reloadable
// parts of a changed config.
func applyConfigChange(level *slog.LevelVar) func(oldCfg, newCfg *config.Config) {
	return func(oldCfg, newCfg *config.Config) {
		diff := config.Diff(oldCfg, newCfg)
		if diff.LogLevelChanged {
			level.Set(slogLevel(diff.NewLogLevel))
			slog.Info("log level updated", "log_level", diff.NewLogLevel)
		}
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from an engine Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// optFloat extracts a numeric value from an engine Options map[string]any.
// YAML decodes whole numbers as int, so both forms are accepted.
func optFloat(opts map[string]any, key string) (float64, bool) {
	if opts == nil {
		return 0, false
	}
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
