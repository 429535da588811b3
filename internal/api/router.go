package api

import (
	"github.com/gorilla/mux"

	"github.com/comado-8/EpisodeStocker-sub000/internal/api/recovery"
	"github.com/comado-8/EpisodeStocker-sub000/internal/entity"
	"github.com/comado-8/EpisodeStocker-sub000/internal/episode"
	"github.com/comado-8/EpisodeStocker-sub000/internal/store"
	"github.com/comado-8/EpisodeStocker-sub000/internal/suggest"
)

// NewRouter wires every HTTP route to its handler.
func NewRouter(st store.Store, ledger *suggest.Ledger) *mux.Router {
	root := mux.NewRouter()
	root.Use(recovery.Middleware)

	entitySvc := entity.NewService(st)
	episodeSvc := episode.NewService(st, entitySvc, ledger)

	// Episodes
	ep := NewEpisodeHandler(episodeSvc)
	root.HandleFunc("/api/episodes", ep.CreateEpisode).Methods("POST")
	root.HandleFunc("/api/episodes", ep.ListEpisodes).Methods("GET")
	root.HandleFunc("/api/episodes/search", ep.SearchEpisodes).Methods("GET")
	root.HandleFunc("/api/episodes/{episodeId}", ep.GetEpisode).Methods("GET")
	root.HandleFunc("/api/episodes/{episodeId}", ep.UpdateEpisode).Methods("PUT")
	root.HandleFunc("/api/episodes/{episodeId}", ep.DeleteEpisode).Methods("DELETE")
	root.HandleFunc("/api/episodes/{episodeId}/restore", ep.RestoreEpisode).Methods("POST")

	// Unlock logs
	root.HandleFunc("/api/episodes/{episodeId}/logs", ep.AddUnlockLog).Methods("POST")
	root.HandleFunc("/api/episodes/{episodeId}/logs/{logId}", ep.UpdateUnlockLog).Methods("PUT")
	root.HandleFunc("/api/episodes/{episodeId}/logs/{logId}", ep.DeleteUnlockLog).Methods("DELETE")
	root.HandleFunc("/api/episodes/{episodeId}/logs/{logId}/restore", ep.RestoreUnlockLog).Methods("POST")

	// Entities
	en := NewEntityHandler(entitySvc)
	root.HandleFunc("/api/entities/{kind}", en.ListEntities).Methods("GET")
	root.HandleFunc("/api/entities/{kind}", en.UpsertEntity).Methods("POST")
	root.HandleFunc("/api/entities/{kind}/{entityId}", en.DeleteEntity).Methods("DELETE")
	root.HandleFunc("/api/entities/{kind}/{entityId}/restore", en.RestoreEntity).Methods("POST")
	root.HandleFunc("/api/tags/validate", en.ValidateTagName).Methods("POST")

	// Suggestions
	sg := NewSuggestHandler(ledger, st)
	root.HandleFunc("/api/suggestions", sg.FetchSuggestions).Methods("GET")
	root.HandleFunc("/api/suggestions", sg.UpsertSuggestion).Methods("POST")
	root.HandleFunc("/api/suggestions/{suggestionId}", sg.DeleteSuggestion).Methods("DELETE")
	root.HandleFunc("/api/suggestions/{suggestionId}/restore", sg.RestoreSuggestion).Methods("POST")
	root.HandleFunc("/api/suggestions/{suggestionId}/bump", sg.BumpSuggestion).Methods("POST")
	root.HandleFunc("/api/search/suggestions", sg.SearchBoxSuggestions).Methods("GET")

	// Health
	h := NewHealthHandler(st)
	root.HandleFunc("/api/health", h.CheckHealth).Methods("GET")

	return root
}
