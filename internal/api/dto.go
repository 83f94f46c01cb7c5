package api

import (
	"github.com/StevenGann/ObsidianDB/internal/document"
	"github.com/StevenGann/ObsidianDB/internal/vault"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID    string   `json:"id"`
	Path  string   `json:"path"`
	Title string   `json:"title"`
	Hash  string   `json:"hash"`
	Tags  []string `json:"tags"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes"`
	Total int            `json:"total"`
}

// NoteDetail is the full note response type.
type NoteDetail struct {
	ID            string                  `json:"id"`
	Path          string                  `json:"path"`
	Title         string                  `json:"title"`
	Hash          string                  `json:"hash"`
	Tags          []string                `json:"tags"`
	Frontmatter   *document.Frontmatter   `json:"frontmatter,omitempty"`
	InternalLinks []document.InternalLink `json:"internalLinks,omitempty"`
	ExternalLinks []document.ExternalLink `json:"externalLinks,omitempty"`
	Backlinks     []vault.Backlink        `json:"backlinks"`
	Body          string                  `json:"body"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Key     string `json:"key"`
	NoteID  string `json:"noteId"`
	Path    string `json:"path"`
	Title   string `json:"title"`
	Line    int    `json:"line"`
	Snippet string `json:"snippet"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}
