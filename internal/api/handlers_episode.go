package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/comado-8/EpisodeStocker-sub000/internal/api/respond"
	"github.com/comado-8/EpisodeStocker-sub000/internal/episode"
	"github.com/comado-8/EpisodeStocker-sub000/internal/model"
)

// EpisodeHandler is a thin HTTP transport over the episode service.
type EpisodeHandler struct {
	svc *episode.Service
}

func NewEpisodeHandler(svc *episode.Service) *EpisodeHandler { return &EpisodeHandler{svc: svc} }

// writeServiceError maps sentinel errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrConflict):
		respond.WriteConflict(w, err.Error())
	default:
		respond.WriteInternalError(w, err.Error())
	}
}

// CreateEpisode POST /api/episodes
func (h *EpisodeHandler) CreateEpisode(w http.ResponseWriter, r *http.Request) {
	var in episode.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	out, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// GetEpisode GET /api/episodes/{episodeId}
func (h *EpisodeHandler) GetEpisode(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Get(r.Context(), mux.Vars(r)["episodeId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// ListEpisodes GET /api/episodes?includeDeleted=true
func (h *EpisodeHandler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("includeDeleted") == "true"
	out, err := h.svc.List(r.Context(), includeDeleted)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"episodes": out, "count": len(out)})
}

// UpdateEpisode PUT /api/episodes/{episodeId}
func (h *EpisodeHandler) UpdateEpisode(w http.ResponseWriter, r *http.Request) {
	var in episode.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	out, err := h.svc.Update(r.Context(), mux.Vars(r)["episodeId"], in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// DeleteEpisode DELETE /api/episodes/{episodeId}
func (h *EpisodeHandler) DeleteEpisode(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SoftDelete(r.Context(), mux.Vars(r)["episodeId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreEpisode POST /api/episodes/{episodeId}/restore
func (h *EpisodeHandler) RestoreEpisode(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Restore(r.Context(), mux.Vars(r)["episodeId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// SearchEpisodes GET /api/episodes/search?status=ok&q=tag:仕事
func (h *EpisodeHandler) SearchEpisodes(w http.ResponseWriter, r *http.Request) {
	status := model.StatusFilter(r.URL.Query().Get("status"))
	switch status {
	case model.StatusAll, model.StatusOK, model.StatusLocked:
	case "":
		status = model.StatusAll
	default:
		respond.WriteBadRequest(w, "status must be all, ok or locked")
		return
	}
	out, err := h.svc.Search(r.Context(), status, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"episodes": out, "count": len(out)})
}

// AddUnlockLog POST /api/episodes/{episodeId}/logs
func (h *EpisodeHandler) AddUnlockLog(w http.ResponseWriter, r *http.Request) {
	var in episode.LogInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	out, err := h.svc.AddLog(r.Context(), mux.Vars(r)["episodeId"], in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// UpdateUnlockLog PUT /api/episodes/{episodeId}/logs/{logId}
func (h *EpisodeHandler) UpdateUnlockLog(w http.ResponseWriter, r *http.Request) {
	var in episode.LogInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	vars := mux.Vars(r)
	out, err := h.svc.UpdateLog(r.Context(), vars["episodeId"], vars["logId"], in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// DeleteUnlockLog DELETE /api/episodes/{episodeId}/logs/{logId}
func (h *EpisodeHandler) DeleteUnlockLog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.SoftDeleteLog(r.Context(), vars["episodeId"], vars["logId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreUnlockLog POST /api/episodes/{episodeId}/logs/{logId}/restore
func (h *EpisodeHandler) RestoreUnlockLog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.RestoreLog(r.Context(), vars["episodeId"], vars["logId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
