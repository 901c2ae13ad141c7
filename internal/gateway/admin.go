package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MrWong99/vocalis/internal/boost"
	"github.com/MrWong99/vocalis/internal/observe"
)

// defaultDomain is the word-boosting domain used by requests that do not name
// one via the "domain" header.
const defaultDomain = "global"

// Admin serves the word-boosting management API. All endpoints scope their
// work to the domain named by the "domain" request header, falling back to
// [defaultDomain].
type Admin struct {
	store *boost.Store
}

// NewAdmin creates the admin API handler over the given boosting store.
func NewAdmin(store *boost.Store) *Admin {
	return &Admin{store: store}
}

// Register adds the admin routes to mux.
func (a *Admin) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /update_custom_words", a.handleUpdate)
	mux.HandleFunc("GET /current_custom_words", a.handleCurrent)
	mux.HandleFunc("POST /delete_custom_words", a.handleDelete)
	mux.HandleFunc("GET /domains", a.handleDomains)
}

// updateRequest is the body of POST /update_custom_words.
type updateRequest struct {
	Words map[string]float64 `json:"word_boosting_dict"`
}

func (a *Admin) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	domain := requestDomain(r)
	if err := a.store.Update(r.Context(), domain, req.Words); err != nil {
		observe.Logger(r.Context()).Error("word boost update failed",
			slog.String("domain", domain), slog.String("error", err.Error()))
		http.Error(w, `{"error":"update failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *Admin) handleCurrent(w http.ResponseWriter, r *http.Request) {
	domain := requestDomain(r)
	writeJSON(w, http.StatusOK, map[string]map[string]float64{
		domain: a.store.Words(domain),
	})
}

func (a *Admin) handleDelete(w http.ResponseWriter, r *http.Request) {
	domain := requestDomain(r)
	if err := a.store.DeleteDomain(r.Context(), domain); err != nil {
		observe.Logger(r.Context()).Error("word boost delete failed",
			slog.String("domain", domain), slog.String("error", err.Error()))
		http.Error(w, `{"error":"delete failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *Admin) handleDomains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"domains": a.store.Domains()})
}

// requestDomain extracts the boosting domain from the request header.
func requestDomain(r *http.Request) string {
	if d := r.Header.Get("domain"); d != "" {
		return d
	}
	return defaultDomain
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}
