// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes vault tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/StevenGann/ObsidianDB/internal/index"
	"github.com/StevenGann/ObsidianDB/internal/vault"
)

// Server wraps the MCP server with vault tools.
type Server struct {
	mcp   *server.MCPServer
	vault *vault.Vault
	idx   *index.DB
}

// New creates a new MCP server with all vault tools registered. idx may be
// nil when no search index is attached.
func New(v *vault.Vault, idx *index.DB) *Server {
	s := &Server{vault: v, idx: idx}

	s.mcp = server.NewMCPServer(
		"ObsidianDB",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note body lines."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note by its id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note GUID")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note at the specified vault-relative path. "+
			"Content MUST follow the note format contract (get_note_contract tool); "+
			"omit guid and hash, they are assigned automatically."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical note format contract. "+
			"Call this before creating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes with their ids, paths, and titles."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes whose wikilinks resolve to the specified note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note GUID to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddResource(
		mcp.NewResource("obsidiandb://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical Markdown note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.idx == nil {
		return mcp.NewToolResultError("search index disabled"), nil
	}
	results, err := s.idx.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.vault.GetNote(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	body, err := n.Body()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(body), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	n, err := s.vault.CreateNote(path, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (id %s)", path, n.ID())), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var lines []string
	for _, n := range s.vault.Notes() {
		rel, err := s.vault.Store().Rel(n.Path())
		if err != nil {
			rel = n.Path()
		}
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", n.ID(), rel, n.Title()))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("vault is empty"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "obsidiandb://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl := s.vault.Backlinks(id)
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	out, _ := json.MarshalIndent(bl, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
