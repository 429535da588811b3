package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/comado-8/EpisodeStocker-sub000/internal/api/respond"
	"github.com/comado-8/EpisodeStocker-sub000/internal/entity"
	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
	"github.com/comado-8/EpisodeStocker-sub000/internal/normalize"
)

// EntityHandler exposes the shared reference-entity pools.
type EntityHandler struct {
	svc *entity.Service
}

func NewEntityHandler(svc *entity.Service) *EntityHandler { return &EntityHandler{svc: svc} }

func parseKind(s string) (model.EntityKind, bool) {
	k := model.EntityKind(s)
	for _, known := range model.EntityKinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// ListEntities GET /api/entities/{kind}?includeDeleted=true
func (h *EntityHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(mux.Vars(r)["kind"])
	if !ok {
		respond.WriteBadRequest(w, "unknown entity kind")
		return
	}
	includeDeleted := r.URL.Query().Get("includeDeleted") == "true"
	out, err := h.svc.List(r.Context(), kind, includeDeleted)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"entities": out, "count": len(out)})
}

// UpsertEntity POST /api/entities/{kind}
func (h *EntityHandler) UpsertEntity(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(mux.Vars(r)["kind"])
	if !ok {
		respond.WriteBadRequest(w, "unknown entity kind")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	out, err := h.svc.Upsert(r.Context(), kind, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// DeleteEntity DELETE /api/entities/{kind}/{entityId}
// For tags the response carries the episode ids the cascade unlinked;
// clients pass them back to restore.
func (h *EntityHandler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	affected, err := h.svc.SoftDelete(r.Context(), mux.Vars(r)["entityId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if affected == nil {
		affected = []string{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"affectedEpisodeIds": affected})
}

// RestoreEntity POST /api/entities/{kind}/{entityId}/restore
func (h *EntityHandler) RestoreEntity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AffectedEpisodeIDs []string `json:"affectedEpisodeIds"`
	}
	if r.Body != nil {
		// An empty body is fine; the cascade capability is optional.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	out, err := h.svc.Restore(r.Context(), mux.Vars(r)["entityId"], req.AffectedEpisodeIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// ValidateTagName POST /api/tags/validate
func (h *EntityHandler) ValidateTagName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	res := normalize.ValidateTagName(req.Name)
	body := map[string]interface{}{"verdict": res.Verdict.String()}
	if res.Verdict == normalize.TagNameValid {
		body["name"] = res.Name
	}
	if res.Verdict == normalize.TagNameTooLong {
		body["limit"] = res.Limit
	}
	respond.WriteJSON(w, http.StatusOK, body)
}
