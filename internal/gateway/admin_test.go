package gateway_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/MrWong99/vocalis/internal/boost"
	"github.com/MrWong99/vocalis/internal/gateway"
)

func newAdminMux(t *testing.T) (*http.ServeMux, *boost.Store) {
	t.Helper()

	store := boost.NewStore()
	mux := http.NewServeMux()
	gateway.NewAdmin(store).Register(mux)
	return mux, store
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path, body, domain string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if domain != "" {
		req.Header.Set("domain", domain)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Unmarshal(%q) error = %v", rec.Body.String(), err)
	}
	return v
}

func TestAdminUpdateDefaultsToGlobalDomain(t *testing.T) {
	t.Parallel()

	mux, store := newAdminMux(t)

	rec := doRequest(t, mux, http.MethodPost, "/update_custom_words",
		`{"word_boosting_dict":{"Accredo":5}}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	if got := decodeBody[map[string]string](t, rec)["status"]; got != "ok" {
		t.Errorf("status field = %q, want ok", got)
	}

	want := map[string]float64{"Accredo": 5}
	if got := store.Words("global"); !reflect.DeepEqual(got, want) {
		t.Errorf("Words(global) = %v, want %v", got, want)
	}
}

func TestAdminCurrentWordsScopedToHeaderDomain(t *testing.T) {
	t.Parallel()

	mux, _ := newAdminMux(t)
	doRequest(t, mux, http.MethodPost, "/update_custom_words",
		`{"word_boosting_dict":{"Accredo":5}}`, "pharma")
	doRequest(t, mux, http.MethodPost, "/update_custom_words",
		`{"word_boosting_dict":{"Centerville":3}}`, "")

	rec := doRequest(t, mux, http.MethodGet, "/current_custom_words", "", "pharma")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeBody[map[string]map[string]float64](t, rec)
	want := map[string]map[string]float64{
		"pharma": {"Accredo": 5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("current words = %v, want %v", got, want)
	}
}

func TestAdminCurrentWordsDefaultsToGlobalDomain(t *testing.T) {
	t.Parallel()

	mux, _ := newAdminMux(t)
	doRequest(t, mux, http.MethodPost, "/update_custom_words",
		`{"word_boosting_dict":{"Accredo":5}}`, "pharma")
	doRequest(t, mux, http.MethodPost, "/update_custom_words",
		`{"word_boosting_dict":{"Centerville":3}}`, "")

	rec := doRequest(t, mux, http.MethodGet, "/current_custom_words", "", "")
	got := decodeBody[map[string]map[string]float64](t, rec)
	want := map[string]map[string]float64{
		"global": {"Centerville": 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("current words = %v, want %v", got, want)
	}
}

func TestAdminUpdateMergesIntoDomain(t *testing.T) {
	t.Parallel()

	mux, store := newAdminMux(t)
	doRequest(t, mux, http.MethodPost, "/update_custom_words",
		`{"word_boosting_dict":{"Accredo":5}}`, "pharma")
	doRequest(t, mux, http.MethodPost, "/update_custom_words",
		`{"word_boosting_dict":{"Accredo":7,"Humira":2}}`, "pharma")

	want := map[string]float64{"Accredo": 7, "Humira": 2}
	if got := store.Words("pharma"); !reflect.DeepEqual(got, want) {
		t.Errorf("Words(pharma) = %v, want %v", got, want)
	}
}

func TestAdminDeleteRemovesDomain(t *testing.T) {
	t.Parallel()

	mux, store := newAdminMux(t)
	doRequest(t, mux, http.MethodPost, "/update_custom_words",
		`{"word_boosting_dict":{"Accredo":5}}`, "pharma")

	rec := doRequest(t, mux, http.MethodPost, "/delete_custom_words", "", "pharma")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	if domains := store.Domains(); len(domains) != 0 {
		t.Errorf("Domains() = %v, want empty", domains)
	}
}

func TestAdminDomains(t *testing.T) {
	t.Parallel()

	mux, _ := newAdminMux(t)
	doRequest(t, mux, http.MethodPost, "/update_custom_words",
		`{"word_boosting_dict":{"a":1}}`, "beta")
	doRequest(t, mux, http.MethodPost, "/update_custom_words",
		`{"word_boosting_dict":{"b":1}}`, "alpha")

	rec := doRequest(t, mux, http.MethodGet, "/domains", "", "")
	got := decodeBody[map[string][]string](t, rec)
	want := map[string][]string{"domains": {"alpha", "beta"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("domains = %v, want %v", got, want)
	}
}

func TestAdminUpdateRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	mux, _ := newAdminMux(t)
	rec := doRequest(t, mux, http.MethodPost, "/update_custom_words", "not json", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
