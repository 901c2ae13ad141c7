// Package artifact persists per-utterance scratch audio as WAV files so that
// file-based collaborators (and debugging) can read the exact bytes a
// segmentation decision was made on. Files are named
// <session>_<channel>_<turnToken>.wav and removed when the utterance is
// finalized or discarded, and on session teardown.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/youpy/go-wav"

	"github.com/MrWong99/vocalis/pkg/audio"
)

// Store writes and removes utterance WAV artifacts inside one directory.
// Safe for concurrent use: sessions never share file names.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("artifact: dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create dir %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the artifact file path for the given utterance.
func (s *Store) Path(sessionID, channelID, turnToken string) string {
	name := sessionID
	if channelID != "" {
		name += "_" + channelID
	}
	name += "_" + turnToken + ".wav"
	return filepath.Join(s.dir, sanitize(name))
}

// Save writes pcm (16-bit signed little-endian mono) as a WAV file and
// returns its path.
func (s *Store) Save(sessionID, channelID, turnToken string, pcm []byte, sampleRate int) (string, error) {
	samples, err := audio.DecodeSamples(pcm)
	if err != nil {
		return "", fmt.Errorf("artifact: decode pcm: %w", err)
	}

	path := s.Path(sessionID, channelID, turnToken)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("artifact: create %q: %w", path, err)
	}
	defer f.Close()

	wavSamples := make([]wav.Sample, len(samples))
	for i, v := range samples {
		wavSamples[i] = wav.Sample{Values: [2]int{int(v), 0}}
	}
	w := wav.NewWriter(f, uint32(len(wavSamples)), 1, uint32(sampleRate), 16)
	if err := w.WriteSamples(wavSamples); err != nil {
		return "", fmt.Errorf("artifact: write %q: %w", path, err)
	}
	return path, nil
}

// Remove deletes the artifact for one utterance. A missing file is not an
// error; discard paths may never have written one.
func (s *Store) Remove(sessionID, channelID, turnToken string) error {
	err := os.Remove(s.Path(sessionID, channelID, turnToken))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("artifact: remove: %w", err)
	}
	return nil
}

// RemoveSession deletes every artifact belonging to sessionID. Used on
// connection teardown.
func (s *Store) RemoveSession(sessionID string) error {
	matches, err := filepath.Glob(filepath.Join(s.dir, sanitize(sessionID)+"_*.wav"))
	if err != nil {
		return fmt.Errorf("artifact: glob: %w", err)
	}
	var errs []error
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sanitize strips path separators from client-influenced name parts.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, string(filepath.Separator), "-")
	return strings.ReplaceAll(name, "..", "-")
}
