// Package boost holds the shared vocabulary-boosting configuration: a map of
// domain label → {word: boost} consulted on every utterance and mutated only
// through the admin endpoints.
//
// Reads vastly outnumber writes, so the store is copy-on-write: every
// mutation installs a fresh map and readers receive stable snapshots without
// holding locks during use.
package boost

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/MrWong99/vocalis/pkg/provider/asr"
)

// Persister is the optional durable backend for the store. Implemented by
// PostgresStore.
type Persister interface {
	// Load returns the full domain → {word: boost} map.
	Load(ctx context.Context) (map[string]map[string]float64, error)

	// Upsert inserts or updates words for one domain.
	Upsert(ctx context.Context, domain string, words map[string]float64) error

	// Delete removes words from one domain. Missing words are ignored.
	Delete(ctx context.Context, domain string, words []string) error
}

// Store is the in-memory boosting map. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	domains map[string]map[string]float64

	persist Persister
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{domains: map[string]map[string]float64{}}
}

// WithPersistence attaches a durable backend. Mutations are written through;
// a persistence failure aborts the mutation and leaves memory unchanged.
func (s *Store) WithPersistence(p Persister) *Store {
	s.persist = p
	return s
}

// LoadFile replaces the store content from a JSON file of the shape
// {"domain": {"word": 2.5, ...}, ...}. A missing file leaves the store empty.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("boost: read %q: %w", path, err)
	}
	var domains map[string]map[string]float64
	if err := json.Unmarshal(data, &domains); err != nil {
		return fmt.Errorf("boost: parse %q: %w", path, err)
	}
	s.mu.Lock()
	s.domains = domains
	s.mu.Unlock()
	return nil
}

// LoadPersisted overlays the attached backend's content onto whatever is
// already in memory, so a seed file and persisted updates can coexist with
// the persisted values winning.
func (s *Store) LoadPersisted(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	domains, err := s.persist.Load(ctx)
	if err != nil {
		return fmt.Errorf("boost: load persisted: %w", err)
	}
	s.mu.Lock()
	next := s.cloneLocked()
	for domain, words := range domains {
		if next[domain] == nil {
			next[domain] = make(map[string]float64, len(words))
		}
		for w, b := range words {
			next[domain][w] = b
		}
	}
	s.domains = next
	s.mu.Unlock()
	return nil
}

// Words returns a snapshot of one domain's {word: boost} map. The result is
// never nil and is owned by the caller.
func (s *Store) Words(domain string) map[string]float64 {
	s.mu.RLock()
	src := s.domains[domain]
	out := make(map[string]float64, len(src))
	for w, b := range src {
		out[w] = b
	}
	s.mu.RUnlock()
	return out
}

// Boosts returns one domain's words as an ASR keyword list, sorted by word
// for deterministic request building.
func (s *Store) Boosts(domain string) []asr.KeywordBoost {
	words := s.Words(domain)
	out := make([]asr.KeywordBoost, 0, len(words))
	for w, b := range words {
		out = append(out, asr.KeywordBoost{Keyword: w, Boost: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Keyword < out[j].Keyword })
	return out
}

// Domains returns the sorted list of known domain labels.
func (s *Store) Domains() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.domains))
	for d := range s.domains {
		out = append(out, d)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Update merges words into domain, creating the domain if needed.
func (s *Store) Update(ctx context.Context, domain string, words map[string]float64) error {
	if domain == "" {
		return fmt.Errorf("boost: domain must not be empty")
	}
	if s.persist != nil {
		if err := s.persist.Upsert(ctx, domain, words); err != nil {
			return fmt.Errorf("boost: persist update: %w", err)
		}
	}

	s.mu.Lock()
	next := s.cloneLocked()
	dst := next[domain]
	if dst == nil {
		dst = make(map[string]float64, len(words))
		next[domain] = dst
	}
	for w, b := range words {
		dst[w] = b
	}
	s.domains = next
	s.mu.Unlock()
	return nil
}

// Delete removes words from domain. Unknown domains and words are ignored.
// An empty domain map is kept so GET /domains still lists it.
func (s *Store) Delete(ctx context.Context, domain string, words []string) error {
	if domain == "" {
		return fmt.Errorf("boost: domain must not be empty")
	}
	if s.persist != nil {
		if err := s.persist.Delete(ctx, domain, words); err != nil {
			return fmt.Errorf("boost: persist delete: %w", err)
		}
	}

	s.mu.Lock()
	next := s.cloneLocked()
	if dst, ok := next[domain]; ok {
		for _, w := range words {
			delete(dst, w)
		}
	}
	s.domains = next
	s.mu.Unlock()
	return nil
}

// DeleteDomain removes a domain and all its words. Unknown domains are a
// no-op.
func (s *Store) DeleteDomain(ctx context.Context, domain string) error {
	if domain == "" {
		return fmt.Errorf("boost: domain must not be empty")
	}
	if s.persist != nil {
		words := s.Words(domain)
		names := make([]string, 0, len(words))
		for w := range words {
			names = append(names, w)
		}
		if err := s.persist.Delete(ctx, domain, names); err != nil {
			return fmt.Errorf("boost: persist delete: %w", err)
		}
	}

	s.mu.Lock()
	next := s.cloneLocked()
	delete(next, domain)
	s.domains = next
	s.mu.Unlock()
	return nil
}

// cloneLocked deep-copies the domain map. Callers must hold mu.
func (s *Store) cloneLocked() map[string]map[string]float64 {
	next := make(map[string]map[string]float64, len(s.domains))
	for d, words := range s.domains {
		cp := make(map[string]float64, len(words))
		for w, b := range words {
			cp[w] = b
		}
		next[d] = cp
	}
	return next
}
