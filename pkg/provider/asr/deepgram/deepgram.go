// Package deepgram provides a Deepgram-backed asr.Engine.
//
// Deepgram's batch ("pre-recorded") endpoint adds noticeable queueing latency
// for short utterances, so the engine instead opens a short-lived streaming
// WebSocket per Transcribe call: it pushes the whole buffer, sends
// CloseStream, and collects the final results Deepgram flushes back. Response
// messages are decoded with the official SDK's wire types.
//
// Keyword boosting is supported natively via the `keywords` query parameter.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"

	"github.com/MrWong99/vocalis/pkg/provider/asr"
	"github.com/coder/websocket"
)

const (
	deepgramEndpoint = "wss://api.deepgram.com/v1/listen"
	defaultModel     = "nova-3"
	defaultLanguage  = "en"

	// writeChunkBytes bounds individual WebSocket frames. Deepgram recommends
	// chunks well under 1 MiB.
	writeChunkBytes = 16 * 1024
)

// Compile-time assertion that Engine implements asr.Engine.
var _ asr.Engine = (*Engine)(nil)

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(e *Engine) {
		e.model = model
	}
}

// WithLanguage sets the BCP-47 language code used when the request carries
// none (e.g., "en", "de-DE").
func WithLanguage(language string) Option {
	return func(e *Engine) {
		e.language = language
	}
}

// WithEndpoint overrides the WebSocket endpoint. Intended for tests.
func WithEndpoint(endpoint string) Option {
	return func(e *Engine) {
		e.endpoint = endpoint
	}
}

// Engine implements asr.Engine backed by the Deepgram streaming API. It is
// safe for concurrent use; every Transcribe call owns its own connection.
type Engine struct {
	apiKey   string
	model    string
	language string
	endpoint string
}

// New creates a new Deepgram Engine. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Engine, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	e := &Engine{
		apiKey:   apiKey,
		model:    defaultModel,
		language: defaultLanguage,
		endpoint: deepgramEndpoint,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Transcribe streams req.PCM to Deepgram and returns the concatenated final
// transcript.
func (e *Engine) Transcribe(ctx context.Context, req asr.Request) (asr.Result, error) {
	if req.SampleRate <= 0 {
		return asr.Result{}, fmt.Errorf("deepgram: invalid sample rate %d", req.SampleRate)
	}

	wsURL, err := e.buildURL(req)
	if err != nil {
		return asr.Result{}, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+e.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return asr.Result{}, fmt.Errorf("deepgram: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "transcription complete")

	// Audio frames use a bounded chunk size so Deepgram can start decoding
	// before the full buffer has arrived.
	for off := 0; off < len(req.PCM); off += writeChunkBytes {
		end := off + writeChunkBytes
		if end > len(req.PCM) {
			end = len(req.PCM)
		}
		if err := conn.Write(ctx, websocket.MessageBinary, req.PCM[off:end]); err != nil {
			return asr.Result{}, fmt.Errorf("deepgram: write audio: %w", err)
		}
	}

	// CloseStream makes Deepgram flush all pending results and close.
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
		return asr.Result{}, fmt.Errorf("deepgram: close stream: %w", err)
	}

	var parts []string
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			// Deepgram closes the socket once all results are flushed.
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				break
			}
			if ctx.Err() != nil {
				return asr.Result{}, fmt.Errorf("deepgram: read: %w", ctx.Err())
			}
			break
		}

		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &probe); err != nil {
			continue
		}
		if api.TypeResponse(probe.Type) != api.TypeMessageResponse {
			continue
		}

		var resp api.MessageResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			continue
		}
		if !resp.IsFinal || len(resp.Channel.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(resp.Channel.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
		}
	}

	lang := req.Language
	if lang == "" {
		lang = e.language
	}
	return asr.Result{
		Text:     strings.Join(parts, " "),
		Language: lang,
	}, nil
}

// buildURL constructs the Deepgram streaming endpoint URL for the given
// request.
func (e *Engine) buildURL(req asr.Request) (string, error) {
	u, err := url.Parse(e.endpoint)
	if err != nil {
		return "", err
	}

	lang := req.Language
	if lang == "" {
		lang = e.language
	}

	q := u.Query()
	q.Set("model", e.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(req.SampleRate))
	q.Set("channels", "1")

	for _, kw := range req.Boosts {
		// Deepgram keyword format: word:boost (e.g., "Eldrinax:5")
		q.Add("keywords", fmt.Sprintf("%s:%g", kw.Keyword, kw.Boost))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}
