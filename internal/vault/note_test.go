package vault

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/StevenGann/ObsidianDB/internal/apperr"
	"github.com/StevenGann/ObsidianDB/internal/checksum"
)

func mustAdd(t *testing.T, v *Vault, rel string) *Note {
	t.Helper()
	abs, err := v.Store().Abs(rel)
	if err != nil {
		t.Fatal(err)
	}
	n, err := v.AddNote(abs)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestLoadAssignsGUIDOnce(t *testing.T) {
	_, v := newTestVault(t)
	if err := v.Store().Write("n.md", []byte("# Note\nbody\n")); err != nil {
		t.Fatal(err)
	}

	n := mustAdd(t, v, "n.md")
	if n.ID() == "" {
		t.Fatal("no GUID assigned")
	}
	id := n.ID()

	// The GUID is persisted, so a reload keeps it.
	if err := n.Reload(""); err != nil {
		t.Fatal(err)
	}
	if n.ID() != id {
		t.Errorf("GUID changed on reload: %q → %q", id, n.ID())
	}

	data, err := v.Store().Read("n.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "guid: "+id) {
		t.Error("GUID not written to frontmatter")
	}
}

func TestLoadInsertsHash(t *testing.T) {
	_, v := newTestVault(t)
	if err := v.Store().Write("n.md", []byte("# Note\nbody\n")); err != nil {
		t.Fatal(err)
	}

	n := mustAdd(t, v, "n.md")
	want := checksum.SumLines([]string{"# Note", "body"})
	if n.Hash() != want {
		t.Errorf("hash = %q, want %q", n.Hash(), want)
	}

	data, err := v.Store().Read("n.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hash: "+want) {
		t.Error("hash not written to frontmatter")
	}
}

func TestLoadRepairsStaleHash(t *testing.T) {
	_, v := newTestVault(t)
	content := "---\nguid: fixed-id\nhash: stale\n---\nbody line\n"
	if err := v.Store().Write("n.md", []byte(content)); err != nil {
		t.Fatal(err)
	}
	v.Callbacks().Subscribe("fixed-id", func(*Note) {})

	n := mustAdd(t, v, "n.md")
	want := checksum.SumLines([]string{"body line"})
	if n.Hash() != want {
		t.Errorf("hash = %q, want %q", n.Hash(), want)
	}
	if v.Callbacks().Pending() != 1 {
		t.Errorf("pending = %d, want 1 (stale hash is an update)", v.Callbacks().Pending())
	}
}

func TestValidateCleanAndDirty(t *testing.T) {
	_, v := newTestVault(t)
	if err := v.Store().Write("n.md", []byte("# Note\nbody\n")); err != nil {
		t.Fatal(err)
	}
	n := mustAdd(t, v, "n.md")

	ok, err := n.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("freshly loaded note should validate clean")
	}

	// Simulate an external edit that bypasses the hash.
	data, err := v.Store().Read("n.md")
	if err != nil {
		t.Fatal(err)
	}
	edited := strings.Replace(string(data), "# Note\nbody", "# Note\nedited body", 1)
	if err := os.WriteFile(n.Path(), []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}
	v.Callbacks().Subscribe(n.ID(), func(*Note) {})

	ok, err = n.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected mismatch after external edit")
	}
	if v.Callbacks().Pending() != 1 {
		t.Errorf("pending = %d, want 1", v.Callbacks().Pending())
	}

	// The rewrite touched only the hash line: the edited body is intact and
	// the note now validates clean.
	after, err := v.Store().Read("n.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(after), "edited body") {
		t.Error("body content lost during hash rewrite")
	}
	ok, err = n.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("second validate should be clean")
	}
}

func TestValidatePreservesUnrelatedFrontmatter(t *testing.T) {
	_, v := newTestVault(t)
	content := "---\nguid: keep-id\nhash: placeholder\ncustom: kept value\n---\nbody\n"
	if err := v.Store().Write("n.md", []byte(content)); err != nil {
		t.Fatal(err)
	}

	mustAdd(t, v, "n.md")

	after, err := v.Store().Read("n.md")
	if err != nil {
		t.Fatal(err)
	}
	text := string(after)
	if !strings.Contains(text, "custom: kept value") {
		t.Error("unrelated frontmatter key lost")
	}
	if !strings.Contains(text, "guid: keep-id") {
		t.Error("guid line lost")
	}
	if strings.Contains(text, "placeholder") {
		t.Error("stale hash value survived")
	}
}

func TestReloadRollsBackOnMissingFile(t *testing.T) {
	_, v := newTestVault(t)
	if err := v.Store().Write("n.md", []byte("# Title\nbody #tag\n")); err != nil {
		t.Fatal(err)
	}
	n := mustAdd(t, v, "n.md")
	id, title, hash := n.ID(), n.Title(), n.Hash()

	if err := os.Remove(n.Path()); err != nil {
		t.Fatal(err)
	}

	err := n.Reload("")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if n.ID() != id || n.Title() != title || n.Hash() != hash {
		t.Error("note state not restored after failed reload")
	}
	if !n.HasTag("tag") {
		t.Error("tags not restored after failed reload")
	}
}

func TestReloadRejectsPathOutsideVault(t *testing.T) {
	_, v := newTestVault(t)
	if err := v.Store().Write("n.md", []byte("body\n")); err != nil {
		t.Fatal(err)
	}
	n := mustAdd(t, v, "n.md")
	path := n.Path()

	err := n.Reload("/tmp/elsewhere.md")
	if !errors.Is(err, apperr.ErrOutsideVault) {
		t.Fatalf("err = %v, want ErrOutsideVault", err)
	}
	if n.Path() != path {
		t.Error("path mutated by rejected reload")
	}
}

func TestReloadFollowsNewPath(t *testing.T) {
	_, v := newTestVault(t)
	if err := v.Store().Write("old.md", []byte("# Same\nbody\n")); err != nil {
		t.Fatal(err)
	}
	n := mustAdd(t, v, "old.md")
	id := n.ID()

	if err := v.Store().Move("old.md", "new.md"); err != nil {
		t.Fatal(err)
	}
	newAbs, err := v.Store().Abs("new.md")
	if err != nil {
		t.Fatal(err)
	}

	if err := n.Reload(newAbs); err != nil {
		t.Fatal(err)
	}
	if n.Path() != newAbs {
		t.Errorf("path = %q, want %q", n.Path(), newAbs)
	}
	if n.ID() != id {
		t.Error("GUID changed across rename")
	}

	// The registry's path index follows the reload.
	oldAbs, err := v.Store().Abs("old.md")
	if err != nil {
		t.Fatal(err)
	}
	got, err := v.GetNoteByPath(newAbs)
	if err != nil {
		t.Fatalf("new path not resolvable after reload: %v", err)
	}
	if got != n {
		t.Error("new path resolves to a different note")
	}
	if _, err := v.GetNoteByPath(oldAbs); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old path still resolvable after reload: %v", err)
	}
}

func TestSaveRefreshesModifiedDate(t *testing.T) {
	_, v := newTestVault(t)
	content := "---\nguid: dated\ndate modified: 2001-01-01 00:00:00\n---\nbody\n"
	if err := v.Store().Write("n.md", []byte(content)); err != nil {
		t.Fatal(err)
	}
	n := mustAdd(t, v, "n.md")

	if err := n.Save(); err != nil {
		t.Fatal(err)
	}

	after, err := v.Store().Read("n.md")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(after), "2001-01-01") {
		t.Error("date modified not refreshed by save")
	}
	if n.Frontmatter().First("date modified") == "2001-01-01 00:00:00" {
		t.Error("in-memory date modified not refreshed")
	}
}

func TestSaveWithoutModifiedDateAddsNone(t *testing.T) {
	_, v := newTestVault(t)
	if err := v.Store().Write("n.md", []byte("body\n")); err != nil {
		t.Fatal(err)
	}
	n := mustAdd(t, v, "n.md")

	if err := n.Save(); err != nil {
		t.Fatal(err)
	}
	if n.Frontmatter().Has("date modified") {
		t.Error("save invented a date modified key")
	}
}

func TestSaveKeepsBodyOnFrontmatterEdit(t *testing.T) {
	_, v := newTestVault(t)
	if err := v.Store().Write("n.md", []byte("# Keep\nthis body\n")); err != nil {
		t.Fatal(err)
	}
	n := mustAdd(t, v, "n.md")

	// Pure metadata edit: the body was never read through SetBody.
	n.Frontmatter().Set("status", "done")
	if err := n.Save(); err != nil {
		t.Fatal(err)
	}

	after, err := v.Store().Read("n.md")
	if err != nil {
		t.Fatal(err)
	}
	text := string(after)
	if !strings.Contains(text, "this body") {
		t.Error("body clobbered by frontmatter-only save")
	}
	if !strings.Contains(text, "status: done") {
		t.Error("frontmatter edit not persisted")
	}
}

func TestSetBodySave(t *testing.T) {
	_, v := newTestVault(t)
	if err := v.Store().Write("n.md", []byte("old body\n")); err != nil {
		t.Fatal(err)
	}
	n := mustAdd(t, v, "n.md")

	n.SetBody("brand new body")
	if err := n.Save(); err != nil {
		t.Fatal(err)
	}

	body, err := n.Body()
	if err != nil {
		t.Fatal(err)
	}
	if body != "brand new body" {
		t.Errorf("body = %q", body)
	}
	if n.Hash() != checksum.Sum("brand new body") {
		t.Error("hash not recomputed over new body")
	}

	ok, err := n.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("saved note should validate clean")
	}
}

func TestBodyExcludesFrontmatter(t *testing.T) {
	_, v := newTestVault(t)
	content := "---\nguid: b-id\n---\nonly the body\n"
	if err := v.Store().Write(filepath.Join("sub", "n.md"), []byte(content)); err != nil {
		t.Fatal(err)
	}
	n := mustAdd(t, v, filepath.Join("sub", "n.md"))

	body, err := n.Body()
	if err != nil {
		t.Fatal(err)
	}
	if body != "only the body" {
		t.Errorf("body = %q", body)
	}
}
