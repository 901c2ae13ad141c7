package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/MrWong99/vocalis/pkg/provider/asr"
	"github.com/coder/websocket"
)

func assertEqual(t *testing.T, name, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q; want %q", name, got, want)
	}
}

// ---- URL / query-param tests ----

func TestBuildURL_Defaults(t *testing.T) {
	e, err := New("test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := e.buildURL(asr.Request{SampleRate: 16000, Language: "en"})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	q := u.Query()

	assertEqual(t, "model", "nova-3", q.Get("model"))
	assertEqual(t, "language", "en", q.Get("language"))
	assertEqual(t, "punctuate", "true", q.Get("punctuate"))
	assertEqual(t, "encoding", "linear16", q.Get("encoding"))
	assertEqual(t, "sample_rate", "16000", q.Get("sample_rate"))
	assertEqual(t, "channels", "1", q.Get("channels"))
}

func TestBuildURL_CustomModelAndLanguage(t *testing.T) {
	e, err := New("key", WithModel("base"), WithLanguage("de-DE"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := e.buildURL(asr.Request{SampleRate: 8000})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	q := u.Query()

	assertEqual(t, "model", "base", q.Get("model"))
	assertEqual(t, "language", "de-DE", q.Get("language"))
	assertEqual(t, "sample_rate", "8000", q.Get("sample_rate"))
}

func TestBuildURL_RequestLanguageOverridesDefault(t *testing.T) {
	e, err := New("key", WithLanguage("en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := e.buildURL(asr.Request{SampleRate: 16000, Language: "fr-FR"})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	assertEqual(t, "language", "fr-FR", u.Query().Get("language"))
}

func TestBuildURL_Keywords(t *testing.T) {
	e, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rawURL, err := e.buildURL(asr.Request{
		SampleRate: 16000,
		Boosts: []asr.KeywordBoost{
			{Keyword: "Eldrinax", Boost: 5},
			{Keyword: "Zorrath", Boost: 3.5},
		},
	})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	kws := u.Query()["keywords"]
	if len(kws) != 2 {
		t.Fatalf("expected 2 keywords, got %d: %v", len(kws), kws)
	}

	found := map[string]bool{}
	for _, kw := range kws {
		found[kw] = true
	}
	if !found["Eldrinax:5"] {
		t.Errorf("expected keyword 'Eldrinax:5', got %v", kws)
	}
	if !found["Zorrath:3.5"] {
		t.Errorf("expected keyword 'Zorrath:3.5', got %v", kws)
	}
}

// ---- construction ----

func TestNew_EmptyAPIKey_ReturnsError(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty apiKey, got nil")
	}
}

// ---- Transcribe against a local WebSocket server ----

// newWSServer starts a test server that accepts one WebSocket connection,
// drains incoming frames until CloseStream arrives, then sends the given
// result messages and closes normally.
func newWSServer(t *testing.T, results ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		ctx := r.Context()
		for {
			typ, msg, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if typ == websocket.MessageText && strings.Contains(string(msg), "CloseStream") {
				break
			}
		}
		for _, res := range results {
			if err := conn.Write(ctx, websocket.MessageText, []byte(res)); err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "done")
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestTranscribe_ConcatenatesFinalResults(t *testing.T) {
	srv := newWSServer(t,
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello there"}]}}`,
		`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"gen"}]}}`,
		`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"general kenobi"}]}}`,
	)
	defer srv.Close()

	e, _ := New("key", WithEndpoint(wsURL(srv)))
	res, err := e.Transcribe(context.Background(), asr.Request{
		PCM:        make([]byte, 64000),
		SampleRate: 16000,
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if want := "hello there general kenobi"; res.Text != want {
		t.Errorf("Text = %q; want %q", res.Text, want)
	}
}

func TestTranscribe_NoResults_ReturnsBlankText(t *testing.T) {
	srv := newWSServer(t)
	defer srv.Close()

	e, _ := New("key", WithEndpoint(wsURL(srv)))
	res, err := e.Transcribe(context.Background(), asr.Request{
		PCM:        make([]byte, 640),
		SampleRate: 16000,
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "" {
		t.Errorf("Text = %q; want blank", res.Text)
	}
}

func TestTranscribe_InvalidSampleRate_ReturnsError(t *testing.T) {
	e, _ := New("key")
	if _, err := e.Transcribe(context.Background(), asr.Request{PCM: make([]byte, 640)}); err == nil {
		t.Fatal("expected error for sample rate 0, got nil")
	}
}

func TestTranscribe_DialFailure_ReturnsError(t *testing.T) {
	e, _ := New("key", WithEndpoint("ws://127.0.0.1:1"))
	if _, err := e.Transcribe(context.Background(), asr.Request{
		PCM:        make([]byte, 640),
		SampleRate: 16000,
	}); err == nil {
		t.Fatal("expected dial error, got nil")
	}
}
