package boost

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestWords_UnknownDomain_ReturnsEmptyMap(t *testing.T) {
	t.Parallel()
	s := NewStore()
	got := s.Words("nope")
	if got == nil {
		t.Fatal("Words() = nil; want empty map")
	}
	if len(got) != 0 {
		t.Errorf("Words() = %v; want empty", got)
	}
}

func TestUpdate_MergesIntoDomain(t *testing.T) {
	t.Parallel()
	s := NewStore()
	ctx := context.Background()

	if err := s.Update(ctx, "banking", map[string]float64{"IBAN": 5, "SEPA": 3}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Update(ctx, "banking", map[string]float64{"SEPA": 4, "SWIFT": 2}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	want := map[string]float64{"IBAN": 5, "SEPA": 4, "SWIFT": 2}
	if got := s.Words("banking"); !reflect.DeepEqual(got, want) {
		t.Errorf("Words() = %v; want %v", got, want)
	}
}

func TestUpdate_EmptyDomain_ReturnsError(t *testing.T) {
	t.Parallel()
	s := NewStore()
	if err := s.Update(context.Background(), "", map[string]float64{"x": 1}); err == nil {
		t.Fatal("expected error for empty domain, got nil")
	}
}

func TestDelete_RemovesWordsKeepsDomain(t *testing.T) {
	t.Parallel()
	s := NewStore()
	ctx := context.Background()

	_ = s.Update(ctx, "medical", map[string]float64{"ibuprofen": 5, "amoxicillin": 5})
	if err := s.Delete(ctx, "medical", []string{"ibuprofen", "unknown"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if got := s.Words("medical"); len(got) != 1 || got["amoxicillin"] != 5 {
		t.Errorf("Words() = %v; want only amoxicillin", got)
	}
	if got := s.Domains(); !reflect.DeepEqual(got, []string{"medical"}) {
		t.Errorf("Domains() = %v; want [medical]", got)
	}
}

func TestSnapshotIsolation_ReaderUnaffectedByLaterUpdate(t *testing.T) {
	t.Parallel()
	s := NewStore()
	ctx := context.Background()

	_ = s.Update(ctx, "d", map[string]float64{"a": 1})
	snap := s.Words("d")
	_ = s.Update(ctx, "d", map[string]float64{"b": 2})

	if _, ok := snap["b"]; ok {
		t.Error("earlier snapshot gained a later update; want copy-on-write isolation")
	}
}

func TestBoosts_SortedByWord(t *testing.T) {
	t.Parallel()
	s := NewStore()
	_ = s.Update(context.Background(), "d", map[string]float64{"zeta": 1, "alpha": 2, "mid": 3})

	got := s.Boosts("d")
	if len(got) != 3 {
		t.Fatalf("len(Boosts()) = %d; want 3", len(got))
	}
	if got[0].Keyword != "alpha" || got[1].Keyword != "mid" || got[2].Keyword != "zeta" {
		t.Errorf("Boosts() order = %v; want alphabetical", got)
	}
}

func TestDomains_Sorted(t *testing.T) {
	t.Parallel()
	s := NewStore()
	ctx := context.Background()
	_ = s.Update(ctx, "retail", map[string]float64{"sku": 1})
	_ = s.Update(ctx, "banking", map[string]float64{"iban": 1})

	if got := s.Domains(); !reflect.DeepEqual(got, []string{"banking", "retail"}) {
		t.Errorf("Domains() = %v; want [banking retail]", got)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "words.json")
	content := `{"banking": {"IBAN": 5.0}, "medical": {"ibuprofen": 3.5}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s := NewStore()
	if err := s.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := s.Words("banking")["IBAN"]; got != 5.0 {
		t.Errorf("IBAN boost = %v; want 5.0", got)
	}
	if got := s.Words("medical")["ibuprofen"]; got != 3.5 {
		t.Errorf("ibuprofen boost = %v; want 3.5", got)
	}
}

func TestLoadFile_Missing_IsNotAnError(t *testing.T) {
	t.Parallel()
	s := NewStore()
	if err := s.LoadFile(filepath.Join(t.TempDir(), "absent.json")); err != nil {
		t.Errorf("LoadFile of missing file returned error: %v", err)
	}
}

func TestLoadFile_Malformed_ReturnsError(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := NewStore().LoadFile(path); err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestDeleteDomain_RemovesDomainEntirely(t *testing.T) {
	t.Parallel()
	s := NewStore()
	ctx := context.Background()

	_ = s.Update(ctx, "retail", map[string]float64{"sku": 1})
	_ = s.Update(ctx, "banking", map[string]float64{"iban": 1})
	if err := s.DeleteDomain(ctx, "retail"); err != nil {
		t.Fatalf("DeleteDomain: %v", err)
	}

	if got := s.Domains(); !reflect.DeepEqual(got, []string{"banking"}) {
		t.Errorf("Domains() = %v; want [banking]", got)
	}
	if got := s.Words("retail"); len(got) != 0 {
		t.Errorf("Words(retail) = %v; want empty", got)
	}
}

// failingPersister always errors, to verify write-through failure semantics.
type failingPersister struct{}

func (failingPersister) Load(context.Context) (map[string]map[string]float64, error) {
	return nil, errors.New("down")
}
func (failingPersister) Upsert(context.Context, string, map[string]float64) error {
	return errors.New("down")
}
func (failingPersister) Delete(context.Context, string, []string) error {
	return errors.New("down")
}

func TestUpdate_PersistenceFailure_LeavesMemoryUnchanged(t *testing.T) {
	t.Parallel()
	s := NewStore().WithPersistence(failingPersister{})

	err := s.Update(context.Background(), "d", map[string]float64{"w": 1})
	if err == nil {
		t.Fatal("expected persistence error, got nil")
	}
	if got := s.Words("d"); len(got) != 0 {
		t.Errorf("Words() = %v; want empty after failed write-through", got)
	}
}

// cannedPersister serves a fixed snapshot and accepts all writes.
type cannedPersister struct {
	domains map[string]map[string]float64
}

func (p cannedPersister) Load(context.Context) (map[string]map[string]float64, error) {
	return p.domains, nil
}
func (cannedPersister) Upsert(context.Context, string, map[string]float64) error { return nil }
func (cannedPersister) Delete(context.Context, string, []string) error           { return nil }

func TestLoadPersisted_OverlaysSeedWords(t *testing.T) {
	t.Parallel()
	persisted := cannedPersister{domains: map[string]map[string]float64{
		"pharma": {"Accredo": 9},
		"legal":  {"Subpoena": 2},
	}}
	s := NewStore().WithPersistence(persisted)

	// Seed values as a boost file would.
	if err := s.Update(context.Background(), "pharma", map[string]float64{"Accredo": 1, "Humira": 3}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := s.LoadPersisted(context.Background()); err != nil {
		t.Fatalf("LoadPersisted() error = %v", err)
	}

	got := s.Words("pharma")
	if got["Accredo"] != 9 {
		t.Errorf("Accredo boost = %v; want persisted value 9", got["Accredo"])
	}
	if got["Humira"] != 3 {
		t.Errorf("Humira boost = %v; want seed value 3 preserved", got["Humira"])
	}
	if got := s.Words("legal"); got["Subpoena"] != 2 {
		t.Errorf("Subpoena boost = %v; want 2", got["Subpoena"])
	}
}
