package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	respond "github.com/comado-8/EpisodeStocker-sub000/internal/api/respond"
	"github.com/comado-8/EpisodeStocker-sub000/internal/search"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store"
	"github.com/comado-8/EpisodeStocker-sub000/internal/suggest"
)

// SuggestHandler serves the usage ledger and the search-box facet ranking.
type SuggestHandler struct {
	ledger *suggest.Ledger
	store  store.Store
}

func NewSuggestHandler(ledger *suggest.Ledger, st store.Store) *SuggestHandler {
	return &SuggestHandler{ledger: ledger, store: st}
}

// FetchSuggestions GET /api/suggestions?field=tag&q=a&includeDeleted=true
func (h *SuggestHandler) FetchSuggestions(w http.ResponseWriter, r *http.Request) {
	f, ok := search.ParseField(r.URL.Query().Get("field"))
	if !ok {
		respond.WriteBadRequest(w, "unknown field")
		return
	}
	includeDeleted := r.URL.Query().Get("includeDeleted") == "true"
	out := h.ledger.Fetch(f, r.URL.Query().Get("q"), includeDeleted)
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"suggestions": out, "count": len(out)})
}

// UpsertSuggestion POST /api/suggestions
func (h *SuggestHandler) UpsertSuggestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	f, ok := search.ParseField(req.Field)
	if !ok {
		respond.WriteBadRequest(w, "unknown field")
		return
	}
	s, ok := h.ledger.Upsert(f, req.Value)
	if !ok {
		respond.WriteBadRequest(w, "value is empty")
		return
	}
	respond.WriteJSON(w, http.StatusOK, s)
}

// DeleteSuggestion DELETE /api/suggestions/{suggestionId}
func (h *SuggestHandler) DeleteSuggestion(w http.ResponseWriter, r *http.Request) {
	if !h.ledger.SoftDelete(mux.Vars(r)["suggestionId"]) {
		respond.WriteNotFound(w, "suggestion not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreSuggestion POST /api/suggestions/{suggestionId}/restore
func (h *SuggestHandler) RestoreSuggestion(w http.ResponseWriter, r *http.Request) {
	if !h.ledger.Restore(mux.Vars(r)["suggestionId"]) {
		respond.WriteNotFound(w, "suggestion not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BumpSuggestion POST /api/suggestions/{suggestionId}/bump
func (h *SuggestHandler) BumpSuggestion(w http.ResponseWriter, r *http.Request) {
	if !h.ledger.BumpUsage(mux.Vars(r)["suggestionId"]) {
		respond.WriteNotFound(w, "suggestion not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchBoxSuggestions GET /api/search/suggestions?q=free+text&field=tag&max=3
// Ranks facet candidates from the active episode snapshot for the search
// box: scoped to one facet when field is set, across all facets otherwise.
func (h *SuggestHandler) SearchBoxSuggestions(w http.ResponseWriter, r *http.Request) {
	q := search.Query{FreeText: r.URL.Query().Get("q")}
	if name := r.URL.Query().Get("field"); name != "" {
		f, ok := search.ParseField(name)
		if !ok {
			respond.WriteBadRequest(w, "unknown field")
			return
		}
		q.ActiveField = &f
	}
	max := 0
	if s := r.URL.Query().Get("max"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respond.WriteBadRequest(w, "max must be a non-negative integer")
			return
		}
		max = n
	}

	eps, err := h.store.Episodes().List(r.Context(), false)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	items := search.Suggestions(q, eps, max)
	if items == nil {
		items = []search.Item{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"suggestions": items, "count": len(items)})
}
