package mcpserver

// NoteFormatContract describes the canonical Markdown note format that
// LLM consumers should follow when creating notes.
const NoteFormatContract = `# ObsidianDB Note Format Contract

Every Markdown note stored in the vault follows this structure.

## Structure

` + "```" + `markdown
---
guid: 1f1e...-managed            # MANAGED – assigned on first load, never edit
hash: q1w2e3...-managed          # MANAGED – body content hash, never edit
tags:                            # OPTIONAL – YAML list; hierarchical a/b/c OK
  - topic/subtopic
  - reference
date modified: 2025-01-20 10:00  # OPTIONAL – refreshed automatically on save
---

# Human-readable title

Body text in standard Markdown.

Use [[wikilinks]] to reference other notes by title.
Use [[Target|alias]] for display text that differs from the target.
Inline #tags/with/hierarchy are extracted from the body.
` + "```" + `

## Rules

1. The ` + "`---`" + ` fences open the file; everything after the closing fence
   is the body.
2. ` + "`guid`" + ` and ` + "`hash`" + ` are owned by the database. Omit them when
   creating a note; they are inserted automatically and must never be edited.
3. The title is the first level-1 heading (` + "`# Title`" + `); when absent the
   filename stem is used.
4. Tags may be hierarchical (` + "`work/client/project`" + `); every prefix is
   searchable.
5. File paths end with ` + "`.md`" + ` and use forward slashes.
6. Encoding is UTF-8 with a trailing newline.
`
