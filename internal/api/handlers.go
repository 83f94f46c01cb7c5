package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/StevenGann/ObsidianDB/internal/apperr"
	"github.com/StevenGann/ObsidianDB/internal/index"
	"github.com/StevenGann/ObsidianDB/internal/vault"
)

// Handler holds API route handlers over one vault and its search index.
type Handler struct {
	vault *vault.Vault
	idx   *index.DB
}

// NewHandler creates a new Handler. idx may be nil when search is disabled.
func NewHandler(v *vault.Vault, idx *index.DB) *Handler {
	return &Handler{vault: v, idx: idx}
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes := h.vault.Notes()
	items := make([]NoteListItem, 0, len(notes))
	for _, n := range notes {
		rel, err := h.vault.Store().Rel(n.Path())
		if err != nil {
			rel = n.Path()
		}
		items = append(items, NoteListItem{
			ID:    n.ID(),
			Path:  rel,
			Title: n.Title(),
			Hash:  n.Hash(),
			Tags:  n.Tags(),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := h.vault.GetNote(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("note not found"))
		return
	}
	body, err := n.Body()
	if err != nil {
		slog.Error("get note: body read failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	rel, relErr := h.vault.Store().Rel(n.Path())
	if relErr != nil {
		rel = n.Path()
	}
	writeJSON(w, http.StatusOK, NoteDetail{
		ID:            n.ID(),
		Path:          rel,
		Title:         n.Title(),
		Hash:          n.Hash(),
		Tags:          n.Tags(),
		Frontmatter:   n.Frontmatter(),
		InternalLinks: n.InternalLinks(),
		ExternalLinks: n.ExternalLinks(),
		Backlinks:     h.vault.Backlinks(n.ID()),
		Body:          body,
	})
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	n, err := h.vault.CreateNote(req.Path, []byte(req.Content))
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("note already exists"))
		case errors.Is(err, apperr.ErrOutsideVault):
			writeJSON(w, http.StatusBadRequest, errorBody("path outside vault"))
		default:
			slog.Error("create note failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, NoteListItem{
		ID:    n.ID(),
		Path:  req.Path,
		Title: n.Title(),
		Hash:  n.Hash(),
		Tags:  n.Tags(),
	})
}

// Backlinks handles GET /api/notes/{id}/backlinks.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.vault.GetNote(id); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("note not found"))
		return
	}
	bl := h.vault.Backlinks(id)
	if bl == nil {
		bl = []vault.Backlink{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": bl})
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.idx == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search index disabled"))
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.idx.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("q", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, SearchResult{
			Key:     hit.Key,
			NoteID:  hit.NoteID,
			Path:    hit.Path,
			Title:   hit.Title,
			Line:    hit.Line,
			Snippet: hit.Snippet,
		})
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Dump handles GET /api/dump.
func (h *Handler) Dump(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.vault.Dump())
}
