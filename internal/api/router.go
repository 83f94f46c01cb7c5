package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/StevenGann/ObsidianDB/internal/index"
	"github.com/StevenGann/ObsidianDB/internal/vault"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(v *vault.Vault, idx *index.DB, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(v, idx)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Get("/notes/{id}/backlinks", h.Backlinks)

	r.Get("/search", h.Search)
	r.Get("/dump", h.Dump)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
