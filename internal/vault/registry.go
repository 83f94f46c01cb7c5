// Package vault owns the in-memory note registry for one vault directory and
// keeps it synchronized with the files on disk.
package vault

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/StevenGann/ObsidianDB/internal/apperr"
	"github.com/StevenGann/ObsidianDB/internal/storage"
)

// SearchIndex is the external plain-text document index the vault feeds.
// Implementations store one document per body line, keyed "<noteId>|<line>".
type SearchIndex interface {
	IndexNote(noteID, path, title string, bodyLines []string) error
	PurgeNote(noteID string) error
}

// Backlink is a reverse reference derived from another note's wikilinks.
type Backlink struct {
	Title        string `json:"title"`
	DisplayText  string `json:"displayText,omitempty"`
	SourceNoteID string `json:"sourceNoteId"`
}

// Vault is the note registry: the collection of loaded notes for one vault
// root, indexed by id and by absolute path. A single mutex guards the
// collection; note mutation itself happens on the sync manager's worker or
// on the caller's goroutine for direct API calls.
type Vault struct {
	name   string
	store  storage.Provider
	logger *slog.Logger
	index  SearchIndex

	locks     *lockSet
	callbacks *Ledger
	manager   *Manager

	mu     sync.Mutex
	byID   map[string]*Note
	byPath map[string]*Note
}

// New creates a registry over the given storage provider. idx may be nil
// when no external search index is attached.
func New(store storage.Provider, logger *slog.Logger, idx SearchIndex) *Vault {
	v := &Vault{
		name:   filepath.Base(store.Root()),
		store:  store,
		logger: logger,
		index:  idx,
		locks:  newLockSet(),
		byID:   make(map[string]*Note),
		byPath: make(map[string]*Note),
	}
	v.callbacks = newLedger(v, logger)
	return v
}

// Name returns the vault name (the root directory's base name).
func (v *Vault) Name() string { return v.name }

// Root returns the absolute vault root directory.
func (v *Vault) Root() string { return v.store.Root() }

// Store returns the underlying storage provider.
func (v *Vault) Store() storage.Provider { return v.store }

// Callbacks returns the update notification ledger.
func (v *Vault) Callbacks() *Ledger { return v.callbacks }

// ScanNotes rebuilds the registry from disk. Files that fail to load are
// logged and skipped; the scan continues. The watcher is suspended for the
// duration so freshly written GUIDs and hashes do not trigger a storm of
// self-observed events.
func (v *Vault) ScanNotes() error {
	if v.manager != nil {
		v.manager.Deactivate()
		defer v.manager.Activate()
	}

	infos, err := v.store.List("")
	if err != nil {
		return fmt.Errorf("vault: scan: %w", err)
	}

	byID := make(map[string]*Note, len(infos))
	byPath := make(map[string]*Note, len(infos))
	for _, info := range infos {
		abs, err := v.store.Abs(info.Path)
		if err != nil {
			v.logger.Warn("scan: bad path", slog.String("path", info.Path), slog.String("error", err.Error()))
			continue
		}
		n, err := loadNote(v, abs)
		if err != nil {
			v.logger.Warn("scan: load failed", slog.String("path", info.Path), slog.String("error", err.Error()))
			continue
		}
		byID[n.id] = n
		byPath[n.path] = n
		v.logger.Debug("scan: loaded", slog.String("path", info.Path), slog.String("id", n.id))
	}

	v.mu.Lock()
	v.byID = byID
	v.byPath = byPath
	v.mu.Unlock()

	// Titles are only complete once every note is loaded.
	v.resolveAllLinks()

	if v.index != nil {
		for _, n := range v.Notes() {
			v.indexSearch(n)
		}
	}
	return nil
}

// GetNote returns the note with the given id.
func (v *Vault) GetNote(id string) (*Note, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n, ok := v.byID[id]
	if !ok {
		return nil, fmt.Errorf("vault: note %s: %w", id, apperr.ErrNotFound)
	}
	return n, nil
}

// GetNoteByPath returns the note loaded from the given absolute path.
func (v *Vault) GetNoteByPath(absPath string) (*Note, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n, ok := v.byPath[absPath]
	if !ok {
		return nil, fmt.Errorf("vault: path %s: %w", absPath, apperr.ErrNotFound)
	}
	return n, nil
}

// Notes returns a snapshot of all loaded notes.
func (v *Vault) Notes() []*Note {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*Note, 0, len(v.byID))
	for _, n := range v.byID {
		out = append(out, n)
	}
	return out
}

// Len returns the number of loaded notes.
func (v *Vault) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.byID)
}

// AddNote loads the file at absPath and registers it.
func (v *Vault) AddNote(absPath string) (*Note, error) {
	if _, err := v.store.Rel(absPath); err != nil {
		return nil, err
	}
	if existing, err := v.GetNoteByPath(absPath); err == nil {
		return existing, fmt.Errorf("vault: %s: %w", absPath, apperr.ErrAlreadyExists)
	}

	n, err := loadNote(v, absPath)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.byID[n.id] = n
	v.byPath[n.path] = n
	v.mu.Unlock()

	v.resolveLinks(n)
	v.indexSearch(n)
	return n, nil
}

// CreateNote writes a new file at the vault-relative path and loads it.
func (v *Vault) CreateNote(rel string, content []byte) (*Note, error) {
	if strings.TrimSpace(rel) == "" {
		return nil, fmt.Errorf("vault: empty note path")
	}
	abs, err := v.store.Abs(rel)
	if err != nil {
		return nil, err
	}
	if _, err := v.store.Read(rel); err == nil {
		return nil, fmt.Errorf("vault: %s: %w", rel, apperr.ErrAlreadyExists)
	}

	v.locks.lock(abs)
	err = v.store.Write(rel, content)
	v.locks.unlock(abs)
	if err != nil {
		return nil, err
	}
	return v.AddNote(abs)
}

// rekeyPath moves a registered note's path-index entry from oldAbs to newAbs
// after a path-changing reload. The id index is untouched.
func (v *Vault) rekeyPath(oldAbs, newAbs string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n, ok := v.byPath[oldAbs]
	if !ok {
		return
	}
	delete(v.byPath, oldAbs)
	v.byPath[newAbs] = n
}

// removeByPath drops the note at absPath from both indices. It returns the
// removed note, if any.
func (v *Vault) removeByPath(absPath string) (*Note, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n, ok := v.byPath[absPath]
	if !ok {
		return nil, false
	}
	delete(v.byPath, absPath)
	delete(v.byID, n.id)
	return n, true
}

// ResolveTitle returns the note whose title matches, case-insensitively.
func (v *Vault) ResolveTitle(title string) (*Note, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, n := range v.byID {
		if strings.EqualFold(n.title, title) {
			return n, true
		}
	}
	return nil, false
}

// resolveLinks fills in ResolvedNoteID for the note's internal links where a
// matching title exists in the registry.
func (v *Vault) resolveLinks(n *Note) {
	for i := range n.internalLinks {
		if target, ok := v.ResolveTitle(n.internalLinks[i].Title); ok {
			n.internalLinks[i].ResolvedNoteID = target.id
		}
	}
}

func (v *Vault) resolveAllLinks() {
	for _, n := range v.Notes() {
		v.resolveLinks(n)
	}
}

// Backlinks gathers every other note's internal links that resolve to the
// given note id. Notes are read-only during the scan.
func (v *Vault) Backlinks(id string) []Backlink {
	var out []Backlink
	for _, n := range v.Notes() {
		if n.id == id {
			continue
		}
		for _, l := range n.internalLinks {
			if l.ResolvedNoteID == id {
				out = append(out, Backlink{
					Title:        l.Title,
					DisplayText:  l.DisplayText,
					SourceNoteID: n.id,
				})
			}
		}
	}
	return out
}

// indexSearch feeds the note's body lines to the external search index.
func (v *Vault) indexSearch(n *Note) {
	if v.index == nil {
		return
	}
	body, err := n.Body()
	if err != nil {
		v.logger.Warn("index: body read failed", slog.String("id", n.id), slog.String("error", err.Error()))
		return
	}
	rel, _ := v.store.Rel(n.path)
	if err := v.index.IndexNote(n.id, rel, n.title, splitBody(body)); err != nil {
		v.logger.Warn("index: upsert failed", slog.String("id", n.id), slog.String("error", err.Error()))
	}
}

// purgeSearch removes all of the note's documents from the search index.
func (v *Vault) purgeSearch(id string) {
	if v.index == nil {
		return
	}
	if err := v.index.PurgeNote(id); err != nil {
		v.logger.Warn("index: purge failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}
