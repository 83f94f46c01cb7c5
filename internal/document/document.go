// Package document implements the note file codec: splitting a Markdown file
// into frontmatter and body, reconstructing it, and extracting tags and links.
//
// The frontmatter block is deliberately not handed to a full YAML engine.
// Notes carry flat string-valued mappings only, and the serializer must
// reproduce keys in their original order without scalar coercion; a
// line-oriented parser over an ordered map keeps that contract cheap.
package document

import (
	"path/filepath"
	"strings"
)

// Delimiter is the line that opens and closes a frontmatter block.
const Delimiter = "---"

// Document is the transient parsed form of a note file.
type Document struct {
	Title       string
	Frontmatter *Frontmatter
	BodyLines   []string
}

// Body returns the body as a single newline-joined string.
func (d *Document) Body() string {
	return strings.Join(d.BodyLines, "\n")
}

// Parse splits raw file lines into frontmatter and body and derives the
// title. filename is used as the title fallback when the body has no
// level-1 heading. Malformed frontmatter lines are skipped, never fatal.
func Parse(lines []string, filename string) *Document {
	doc := &Document{Frontmatter: NewFrontmatter()}

	open := -1
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if line == Delimiter {
			open = i
			break
		}
		if strings.TrimSpace(line) != "" {
			// Content before any delimiter: the file has no frontmatter.
			break
		}
	}

	if open < 0 {
		doc.BodyLines = append([]string{}, lines...)
		doc.Title = deriveTitle(doc.BodyLines, filename)
		return doc
	}

	end := -1
	for i := open + 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == Delimiter {
			end = i
			break
		}
	}
	if end < 0 {
		// No closing delimiter: treat the whole file as body.
		doc.BodyLines = append([]string{}, lines...)
		doc.Title = deriveTitle(doc.BodyLines, filename)
		return doc
	}

	doc.Frontmatter = parseFrontmatter(lines[open+1 : end])
	doc.BodyLines = append([]string{}, lines[end+1:]...)
	doc.Title = deriveTitle(doc.BodyLines, filename)
	return doc
}

// parseFrontmatter reads a flat mapping: "key: value" lines start single
// values, "key:" starts a value-less key that indented "- item" lines may
// extend into a list. Values stay strings; nothing is coerced.
func parseFrontmatter(lines []string) *Frontmatter {
	fm := NewFrontmatter()
	var current string

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if !indented {
			idx := strings.Index(line, ":")
			if idx < 0 {
				// Not a key line and not a list item: skip it.
				current = ""
				continue
			}
			key := strings.TrimSpace(line[:idx])
			if key == "" {
				current = ""
				continue
			}
			value := strings.TrimSpace(line[idx+1:])
			current = key
			if value == "" {
				fm.Set(key)
			} else {
				fm.Set(key, value)
			}
			continue
		}

		item := strings.TrimSpace(line)
		if current != "" && strings.HasPrefix(item, "- ") {
			fm.Append(current, strings.TrimSpace(item[2:]))
		}
	}
	return fm
}

// Serialize reconstructs the on-disk lines: opening delimiter, frontmatter
// keys in insertion order, closing delimiter, then the body verbatim.
func Serialize(doc *Document) []string {
	out := make([]string, 0, doc.Frontmatter.Len()+len(doc.BodyLines)+2)
	out = append(out, Delimiter)
	doc.Frontmatter.Range(func(key string, values []string) bool {
		switch len(values) {
		case 0:
			out = append(out, key+":")
		case 1:
			out = append(out, key+": "+values[0])
		default:
			out = append(out, key+":")
			for _, v := range values {
				out = append(out, "  - "+v)
			}
		}
		return true
	})
	out = append(out, Delimiter)
	out = append(out, doc.BodyLines...)
	return out
}

// deriveTitle returns the text of the first level-1 heading, or the filename
// without its extension when the body has none.
func deriveTitle(bodyLines []string, filename string) string {
	for _, line := range bodyLines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
