package vault

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/StevenGann/ObsidianDB/internal/apperr"
	"github.com/StevenGann/ObsidianDB/internal/checksum"
	"github.com/StevenGann/ObsidianDB/internal/document"
)

// Frontmatter keys owned by the note layer.
const (
	keyGUID     = "guid"
	keyHash     = "hash"
	keyModified = "date modified"
)

// Note owns the parsed state of one vault file. The durable identity is the
// GUID stored in frontmatter; the path may change across renames. Notes hold
// a non-owning reference back to the vault that created them.
type Note struct {
	vault *Vault
	path  string // absolute, inside the vault root

	id            string
	hash          string
	title         string
	frontmatter   *document.Frontmatter
	tags          map[string]struct{}
	internalLinks []document.InternalLink
	externalLinks []document.ExternalLink

	// body is populated lazily and invalidated by Reload.
	body *string
}

// loadNote constructs a Note from the file at absPath. Any I/O failure is
// fatal to construction; no partial note is returned.
func loadNote(v *Vault, absPath string) (*Note, error) {
	n := &Note{vault: v, path: absPath}
	if err := n.load(); err != nil {
		return nil, err
	}
	return n, nil
}

// ID returns the durable note identifier.
func (n *Note) ID() string { return n.id }

// Path returns the absolute file path.
func (n *Note) Path() string { return n.path }

// Title returns the derived note title.
func (n *Note) Title() string { return n.title }

// Hash returns the last computed body hash.
func (n *Note) Hash() string { return n.hash }

// Frontmatter returns the note's frontmatter mapping. Mutations become
// durable on the next Save.
func (n *Note) Frontmatter() *document.Frontmatter { return n.frontmatter }

// Tags returns the expanded tag set, sorted.
func (n *Note) Tags() []string {
	out := make([]string, 0, len(n.tags))
	for t := range n.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// HasTag reports whether the note carries the given tag.
func (n *Note) HasTag(tag string) bool {
	_, ok := n.tags[tag]
	return ok
}

// InternalLinks returns the wikilinks found in the body.
func (n *Note) InternalLinks() []document.InternalLink { return n.internalLinks }

// ExternalLinks returns the Markdown URL links found in the body.
func (n *Note) ExternalLinks() []document.ExternalLink { return n.externalLinks }

// Body returns the note body, reading it from disk on first use.
func (n *Note) Body() (string, error) {
	if n.body != nil {
		return *n.body, nil
	}
	rel, err := n.vault.store.Rel(n.path)
	if err != nil {
		return "", err
	}
	lines, err := n.vault.store.ReadLines(rel)
	if err != nil {
		return "", mapNotFound(err)
	}
	body := document.Parse(lines, n.path).Body()
	n.body = &body
	return body, nil
}

// SetBody replaces the cached body; the change becomes durable on Save.
func (n *Note) SetBody(body string) {
	n.body = &body
}

// load reads the file and replaces all derived state: parse, GUID
// assignment, hash validation, tag and link extraction.
func (n *Note) load() error {
	rel, err := n.vault.store.Rel(n.path)
	if err != nil {
		return err
	}
	lines, err := n.vault.store.ReadLines(rel)
	if err != nil {
		return mapNotFound(err)
	}

	doc := document.Parse(lines, n.path)

	if doc.Frontmatter.First(keyGUID) == "" {
		doc.Frontmatter.Set(keyGUID, uuid.NewString())
		if err := n.writeThrough(rel, document.Serialize(doc)); err != nil {
			return fmt.Errorf("note: persist guid: %w", err)
		}
	}
	n.id = doc.Frontmatter.First(keyGUID)

	computed := checksum.SumLines(doc.BodyLines)
	if doc.Frontmatter.Has(keyHash) {
		if stored := doc.Frontmatter.First(keyHash); stored != computed {
			if err := n.rewriteHash(rel, computed); err != nil {
				return err
			}
			doc.Frontmatter.Set(keyHash, computed)
			n.vault.callbacks.EnqueueUpdate(n.id)
		}
	} else {
		doc.Frontmatter.Set(keyHash, computed)
		if err := n.writeThrough(rel, document.Serialize(doc)); err != nil {
			return fmt.Errorf("note: persist hash: %w", err)
		}
	}
	n.hash = computed

	n.frontmatter = doc.Frontmatter
	n.title = doc.Title
	n.tags = document.ExtractTags(doc)
	n.internalLinks, n.externalLinks = document.ExtractLinks(doc)
	n.vault.resolveLinks(n)
	n.body = nil
	return nil
}

// Reload re-reads the note from disk, optionally from a new path (which must
// exist and lie inside the vault root). On any failure the note's observable
// state is restored to what it was before the call.
func (n *Note) Reload(newPath string) error {
	snap := n.snapshot()

	if newPath != "" {
		rel, err := n.vault.store.Rel(newPath)
		if err != nil {
			return err
		}
		if _, err := n.vault.store.Read(rel); err != nil {
			return mapNotFound(err)
		}
		n.path = newPath
	}

	if err := n.load(); err != nil {
		n.restore(snap)
		return err
	}
	if n.path != snap.path {
		n.vault.rekeyPath(snap.path, n.path)
	}
	return nil
}

// Save writes the note's current state back to disk with the backup/atomic
// rename discipline and re-validates the stored hash afterwards.
func (n *Note) Save() error {
	// Populate the body first so a pure-frontmatter edit never clobbers
	// body content that was never read.
	body, err := n.Body()
	if err != nil {
		return err
	}

	if n.frontmatter.Has(keyModified) {
		n.frontmatter.Set(keyModified, time.Now().Format("2006-01-02 15:04:05"))
	}
	n.hash = checksum.Sum(body)
	n.frontmatter.Set(keyHash, n.hash)

	doc := &document.Document{
		Frontmatter: n.frontmatter,
		BodyLines:   splitBody(body),
	}

	rel, err := n.vault.store.Rel(n.path)
	if err != nil {
		return err
	}

	n.vault.locks.lock(n.path)
	defer n.vault.locks.unlock(n.path)
	if err := n.vault.store.WriteBackup(rel, joinLines(document.Serialize(doc))); err != nil {
		return fmt.Errorf("note: save %s: %w", rel, err)
	}

	// Safety net; a clean save always validates.
	if _, err := n.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate recomputes the body hash from the current on-disk content and
// compares it to the value stored under the hash frontmatter key. On
// mismatch the stored hash line is rewritten in place, the callback ledger
// is informed, and false is returned.
func (n *Note) Validate() (bool, error) {
	rel, err := n.vault.store.Rel(n.path)
	if err != nil {
		return false, err
	}
	lines, err := n.vault.store.ReadLines(rel)
	if err != nil {
		return false, mapNotFound(err)
	}

	doc := document.Parse(lines, n.path)
	computed := checksum.SumLines(doc.BodyLines)
	if doc.Frontmatter.First(keyHash) == computed {
		return true, nil
	}

	if err := n.rewriteHash(rel, computed); err != nil {
		return false, err
	}
	n.hash = computed
	n.frontmatter.Set(keyHash, computed)
	n.vault.callbacks.EnqueueUpdate(n.id)
	return false, nil
}

// rewriteHash replaces only the hash line inside the frontmatter block,
// leaving every other byte of the file untouched.
func (n *Note) rewriteHash(rel, hash string) error {
	lines, err := n.vault.store.ReadLines(rel)
	if err != nil {
		return mapNotFound(err)
	}

	open, end := frontmatterBounds(lines)
	if open < 0 || end < 0 {
		// Load succeeded once, so the block markers are expected to exist.
		return fmt.Errorf("note: frontmatter block missing in %s", rel)
	}

	replaced := false
	for i := open + 1; i < end; i++ {
		if strings.HasPrefix(strings.TrimRight(lines[i], "\r"), keyHash+":") {
			lines[i] = keyHash + ": " + hash
			replaced = true
			break
		}
	}
	if !replaced {
		inserted := make([]string, 0, len(lines)+1)
		inserted = append(inserted, lines[:end]...)
		inserted = append(inserted, keyHash+": "+hash)
		inserted = append(inserted, lines[end:]...)
		lines = inserted
	}

	return n.writeThrough(rel, lines)
}

// writeThrough performs a self-initiated atomic write with the watcher lock
// held for the target path, so the resulting change event is swallowed.
func (n *Note) writeThrough(rel string, lines []string) error {
	n.vault.locks.lock(n.path)
	defer n.vault.locks.unlock(n.path)
	return n.vault.store.Write(rel, joinLines(lines))
}

type noteSnapshot struct {
	path          string
	id            string
	hash          string
	title         string
	frontmatter   *document.Frontmatter
	tags          map[string]struct{}
	internalLinks []document.InternalLink
	externalLinks []document.ExternalLink
	body          *string
}

func (n *Note) snapshot() noteSnapshot {
	tags := make(map[string]struct{}, len(n.tags))
	for t := range n.tags {
		tags[t] = struct{}{}
	}
	var fm *document.Frontmatter
	if n.frontmatter != nil {
		fm = n.frontmatter.Clone()
	}
	return noteSnapshot{
		path:          n.path,
		id:            n.id,
		hash:          n.hash,
		title:         n.title,
		frontmatter:   fm,
		tags:          tags,
		internalLinks: append([]document.InternalLink(nil), n.internalLinks...),
		externalLinks: append([]document.ExternalLink(nil), n.externalLinks...),
		body:          n.body,
	}
}

func (n *Note) restore(s noteSnapshot) {
	n.path = s.path
	n.id = s.id
	n.hash = s.hash
	n.title = s.title
	n.frontmatter = s.frontmatter
	n.tags = s.tags
	n.internalLinks = s.internalLinks
	n.externalLinks = s.externalLinks
	n.body = s.body
}

// frontmatterBounds returns the indices of the opening and closing delimiter
// lines, or (-1, -1) when no complete block exists.
func frontmatterBounds(lines []string) (int, int) {
	open := -1
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if line == document.Delimiter {
			open = i
			break
		}
		if strings.TrimSpace(line) != "" {
			return -1, -1
		}
	}
	if open < 0 {
		return -1, -1
	}
	for i := open + 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == document.Delimiter {
			return open, i
		}
	}
	return -1, -1
}

func splitBody(body string) []string {
	if body == "" {
		return []string{}
	}
	return strings.Split(body, "\n")
}

func joinLines(lines []string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func mapNotFound(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, err)
	}
	return err
}
