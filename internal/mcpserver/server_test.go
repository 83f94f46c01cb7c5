package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/StevenGann/ObsidianDB/internal/testutil"
	"github.com/StevenGann/ObsidianDB/internal/vault"
)

func testServer(t *testing.T) (*Server, *vault.Vault) {
	t.Helper()
	_, v := testutil.TestVault(t)
	return New(v, nil), v
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	var (
		res *mcp.CallToolResult
		err error
	)
	ctx := context.Background()
	switch name {
	case "search_notes":
		res, err = s.searchNotes(ctx, req)
	case "read_note":
		res, err = s.readNote(ctx, req)
	case "create_note":
		res, err = s.createNote(ctx, req)
	case "get_note_contract":
		res, err = s.getNoteContract(ctx, req)
	case "list_notes":
		res, err = s.listNotes(ctx, req)
	case "get_backlinks":
		res, err = s.getBacklinks(ctx, req)
	default:
		t.Fatalf("unknown tool %q", name)
	}
	if err != nil {
		t.Fatalf("tool %s: %v", name, err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	return text.Text
}

func TestCreateAndReadNote(t *testing.T) {
	s, v := testServer(t)

	res := callTool(t, s, "create_note", map[string]any{
		"path":    "ideas.md",
		"content": "# Ideas\nship it\n",
	})
	if res.IsError {
		t.Fatalf("create failed: %s", resultText(t, res))
	}
	if v.Len() != 1 {
		t.Fatalf("len = %d, want 1", v.Len())
	}

	n, ok := v.ResolveTitle("Ideas")
	if !ok {
		t.Fatal("note not resolvable by title")
	}
	res = callTool(t, s, "read_note", map[string]any{"id": n.ID()})
	if res.IsError {
		t.Fatalf("read failed: %s", resultText(t, res))
	}
	if got := resultText(t, res); got != "# Ideas\nship it" {
		t.Errorf("body = %q", got)
	}
}

func TestReadMissingNote(t *testing.T) {
	s, _ := testServer(t)
	res := callTool(t, s, "read_note", map[string]any{"id": "ghost"})
	if !res.IsError {
		t.Error("expected error result for unknown id")
	}
}

func TestListNotes(t *testing.T) {
	s, v := testServer(t)

	res := callTool(t, s, "list_notes", nil)
	if got := resultText(t, res); got != "vault is empty" {
		t.Errorf("empty vault text = %q", got)
	}

	if _, err := v.CreateNote("one.md", []byte("# One\nx\n")); err != nil {
		t.Fatal(err)
	}
	res = callTool(t, s, "list_notes", nil)
	got := resultText(t, res)
	if !strings.Contains(got, "one.md") || !strings.Contains(got, "One") {
		t.Errorf("listing = %q", got)
	}
}

func TestSearchDisabledWithoutIndex(t *testing.T) {
	s, _ := testServer(t)
	res := callTool(t, s, "search_notes", map[string]any{"query": "x"})
	if !res.IsError {
		t.Error("expected error when no index is attached")
	}
}

func TestSearchNotes(t *testing.T) {
	_, v := testutil.TestVault(t)
	idx := testutil.TestIndex(t)
	s := New(v, idx)

	if err := idx.IndexNote("n1", "n1.md", "T", []string{"quarterly report draft"}); err != nil {
		t.Fatal(err)
	}
	res := callTool(t, s, "search_notes", map[string]any{"query": "quarterly"})
	if res.IsError {
		t.Fatalf("search failed: %s", resultText(t, res))
	}
	if got := resultText(t, res); !strings.Contains(got, "quarterly report draft") {
		t.Errorf("result = %q", got)
	}
}

func TestGetBacklinks(t *testing.T) {
	s, v := testServer(t)
	if _, err := v.CreateNote("target.md", []byte("# Target\nx\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := v.CreateNote("source.md", []byte("# Source\n[[Target]]\n")); err != nil {
		t.Fatal(err)
	}
	target, _ := v.ResolveTitle("Target")

	res := callTool(t, s, "get_backlinks", map[string]any{"id": target.ID()})
	got := resultText(t, res)
	source, _ := v.ResolveTitle("Source")
	if !strings.Contains(got, source.ID()) {
		t.Errorf("backlinks = %q", got)
	}

	res = callTool(t, s, "get_backlinks", map[string]any{"id": "nobody"})
	if got := resultText(t, res); got != "no backlinks found" {
		t.Errorf("empty backlinks text = %q", got)
	}
}

func TestNoteContract(t *testing.T) {
	s, _ := testServer(t)
	res := callTool(t, s, "get_note_contract", nil)
	got := resultText(t, res)
	if !strings.Contains(got, "guid") || !strings.Contains(got, "hash") {
		t.Errorf("contract missing managed keys: %q", got)
	}
}
