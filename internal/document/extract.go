package document

import (
	"regexp"
	"strings"
)

var (
	internalLinkRe = regexp.MustCompile(`\[\[([^\[\]]+?)\]\]`)
	externalLinkRe = regexp.MustCompile(`\[([^\[\]]*)\]\(([^()\s]+)\)`)
	inlineTagRe    = regexp.MustCompile(`(?:^|\s)#(\S+)`)
	titleLineRe    = regexp.MustCompile(`^#\s`)
)

// InternalLink is a [[wikilink]] found in a note body. ResolvedNoteID is
// filled in later by the registry when a note with a matching title exists.
type InternalLink struct {
	Title          string `json:"title"`
	DisplayText    string `json:"displayText,omitempty"`
	ResolvedNoteID string `json:"resolvedNoteId,omitempty"`
}

// ExternalLink is a standard Markdown [text](url) link.
type ExternalLink struct {
	DisplayText string `json:"displayText"`
	URL         string `json:"url"`
}

// ExtractTags returns the note's tag set: frontmatter "tags" values, inline
// #tokens from the body (level-1 heading lines are never scanned; deeper
// headings are, with runs of heading markers filtered out as non-tags), and
// the hierarchical expansion of every tag containing a path separator.
// Expansion only adds prefix tags; bare tags already collected are kept as-is.
func ExtractTags(doc *Document) map[string]struct{} {
	tags := make(map[string]struct{})

	if values, ok := doc.Frontmatter.Get("tags"); ok {
		for _, v := range values {
			addTag(tags, v)
		}
	}

	for _, line := range doc.BodyLines {
		trimmed := strings.TrimSpace(line)
		if titleLineRe.MatchString(trimmed) {
			continue
		}
		for _, m := range inlineTagRe.FindAllStringSubmatch(line, -1) {
			token := m[1]
			if strings.Trim(token, "#") == "" {
				// A run of heading markers, not a tag.
				continue
			}
			addTag(tags, token)
		}
	}

	expandHierarchy(tags)
	return tags
}

func addTag(tags map[string]struct{}, raw string) {
	t := strings.TrimSpace(strings.TrimPrefix(raw, "#"))
	if t == "" {
		return
	}
	tags[t] = struct{}{}
}

// expandHierarchy adds every non-empty prefix of each separator-bearing tag:
// work/client/project gains work and work/client. Separators are "/" and
// "\"; prefixes are joined with "/".
func expandHierarchy(tags map[string]struct{}) {
	splitter := func(r rune) bool { return r == '/' || r == '\\' }
	for t := range tags {
		if !strings.ContainsAny(t, `/\`) {
			continue
		}
		parts := strings.FieldsFunc(t, splitter)
		for i := 1; i <= len(parts); i++ {
			tags[strings.Join(parts[:i], "/")] = struct{}{}
		}
	}
}

// ExtractLinks returns the internal wikilinks and external Markdown links
// found in the body, deduplicated, in order of first appearance.
func ExtractLinks(doc *Document) ([]InternalLink, []ExternalLink) {
	var internal []InternalLink
	var external []ExternalLink
	seenInt := make(map[string]struct{})
	seenExt := make(map[string]struct{})

	for _, line := range doc.BodyLines {
		for _, m := range internalLinkRe.FindAllStringSubmatch(line, -1) {
			raw := m[1]
			title, display := raw, ""
			if i := strings.Index(raw, "|"); i >= 0 {
				title, display = raw[:i], strings.TrimSpace(raw[i+1:])
			}
			title = strings.TrimSpace(title)
			if title == "" {
				continue
			}
			key := title + "|" + display
			if _, dup := seenInt[key]; dup {
				continue
			}
			seenInt[key] = struct{}{}
			internal = append(internal, InternalLink{Title: title, DisplayText: display})
		}

		stripped := internalLinkRe.ReplaceAllString(line, "")
		for _, m := range externalLinkRe.FindAllStringSubmatch(stripped, -1) {
			key := m[1] + "|" + m[2]
			if _, dup := seenExt[key]; dup {
				continue
			}
			seenExt[key] = struct{}{}
			external = append(external, ExternalLink{DisplayText: m[1], URL: m[2]})
		}
	}
	return internal, external
}
