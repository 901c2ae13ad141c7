// Package silero provides a vad.Engine backed by a Silero VAD inference
// server.
//
// The server is expected to expose POST /detect accepting a WAV file as
// multipart/form-data and responding with a JSON array of speech intervals:
//
//	[{"start": 0.32, "end": 1.87, "confidence": 0.94}, ...]
//
// Each Detect call submits the full evaluation buffer as one batch request;
// the engine holds no per-session state and is safe for concurrent use.
//
// Usage:
//
//	eng, err := silero.New("http://localhost:8001",
//	    silero.WithThreshold(0.6),
//	)
//	intervals, err := eng.Detect(ctx, pcm, 16000)
package silero

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/MrWong99/vocalis/pkg/provider/vad"
)

const (
	// bitsPerSample is fixed at 16 for the signed little-endian PCM audio the
	// inference server expects.
	bitsPerSample = 16

	defaultThreshold = 0.5
	defaultTimeout   = 15 * time.Second
)

// Compile-time assertion that Engine implements vad.Engine.
var _ vad.Engine = (*Engine)(nil)

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithThreshold sets the speech probability threshold forwarded to the
// server. Intervals whose confidence falls below it are suppressed
// server-side. Defaults to 0.5.
func WithThreshold(t float64) Option {
	return func(e *Engine) {
		e.threshold = t
	}
}

// WithAuthToken sets a bearer token attached to every request. When empty no
// Authorization header is sent — this is the default.
func WithAuthToken(token string) Option {
	return func(e *Engine) {
		e.authToken = token
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 15 s.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely. Useful for
// custom transports or tests.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = c
	}
}

// Engine implements vad.Engine against a Silero VAD inference server.
type Engine struct {
	serverURL  string
	threshold  float64
	authToken  string
	httpClient *http.Client
}

// New creates an Engine that connects to the inference server at serverURL
// (e.g., "http://localhost:8001"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Engine, error) {
	if serverURL == "" {
		return nil, errors.New("silero: serverURL must not be empty")
	}
	e := &Engine{
		serverURL:  serverURL,
		threshold:  defaultThreshold,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Detect submits pcm (16-bit signed little-endian, mono) to the inference
// server and returns the detected speech intervals, ordered by start time.
// An empty slice means the buffer contained no speech.
func (e *Engine) Detect(ctx context.Context, pcm []byte, sampleRate int) ([]vad.Interval, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("silero: invalid sample rate %d", sampleRate)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("silero: create form file: %w", err)
	}
	if _, err := fw.Write(encodeWAV(pcm, sampleRate)); err != nil {
		return nil, fmt.Errorf("silero: write wav data: %w", err)
	}
	if err := mw.WriteField("threshold", strconv.FormatFloat(e.threshold, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("silero: write threshold field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("silero: close multipart writer: %w", err)
	}

	endpoint := e.serverURL + "/detect"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("silero: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if e.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+e.authToken)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("silero: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("silero: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("silero: read response body: %w", err)
	}

	var raw []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("silero: parse JSON response: %w", err)
	}

	intervals := make([]vad.Interval, 0, len(raw))
	for _, r := range raw {
		conf := r.Confidence
		if conf == 0 {
			conf = 1.0
		}
		intervals = append(intervals, vad.Interval{Start: r.Start, End: r.End, Confidence: conf})
	}
	return intervals, nil
}

// encodeWAV wraps raw 16-bit signed little-endian mono PCM data in a standard
// RIFF/WAV container.
func encodeWAV(pcm []byte, sampleRate int) []byte {
	byteRate := sampleRate * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(bitsPerSample/8))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}
