package vault

import (
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/StevenGann/ObsidianDB/internal/document"
)

// NoteDump is the full inspection view of one note.
type NoteDump struct {
	Title         string                  `json:"title"`
	Path          string                  `json:"path"`
	ID            string                  `json:"id"`
	Hash          string                  `json:"hash"`
	Frontmatter   *document.Frontmatter   `json:"frontmatter"`
	Tags          []string                `json:"tags"`
	InternalLinks []document.InternalLink `json:"internalLinks"`
	ExternalLinks []document.ExternalLink `json:"externalLinks"`
	Body          string                  `json:"body"`
	Backlinks     []Backlink              `json:"backlinks"`
}

// VaultDump is the JSON export of a whole vault. This is a debugging and
// inspection surface, not a contract other components depend on.
type VaultDump struct {
	Path  string     `json:"path"`
	Name  string     `json:"name"`
	Notes []NoteDump `json:"notes"`
}

// Dump assembles the export for every loaded note, sorted by path. Body read
// failures are logged and leave that note's body empty.
func (v *Vault) Dump() *VaultDump {
	notes := v.Notes()
	sort.Slice(notes, func(i, j int) bool { return notes[i].path < notes[j].path })

	out := &VaultDump{Path: v.Root(), Name: v.name}
	for _, n := range notes {
		body, err := n.Body()
		if err != nil {
			v.logger.Warn("dump: body read failed", slog.String("id", n.id), slog.String("error", err.Error()))
		}
		out.Notes = append(out.Notes, NoteDump{
			Title:         n.title,
			Path:          n.path,
			ID:            n.id,
			Hash:          n.hash,
			Frontmatter:   n.frontmatter,
			Tags:          n.Tags(),
			InternalLinks: n.internalLinks,
			ExternalLinks: n.externalLinks,
			Body:          body,
			Backlinks:     v.Backlinks(n.id),
		})
	}
	return out
}

// DumpJSON returns the export as indented JSON.
func (v *Vault) DumpJSON() ([]byte, error) {
	return json.MarshalIndent(v.Dump(), "", "  ")
}
