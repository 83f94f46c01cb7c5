package document

import (
	"reflect"
	"sort"
	"testing"
)

func tagNames(tags map[string]struct{}) []string {
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := NewFrontmatter()
	fm.Set("tags", "status/active")
	d := &Document{
		Frontmatter: fm,
		BodyLines:   []string{"# Heading is not a tag", "Work on #project today"},
	}

	got := tagNames(ExtractTags(d))
	want := []string{"project", "status", "status/active"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
}

func TestExtractTags_HierarchyPrefixes(t *testing.T) {
	d := &Document{
		Frontmatter: NewFrontmatter(),
		BodyLines:   []string{`note about #a/b\c`},
	}

	got := tagNames(ExtractTags(d))
	want := []string{"a", "a/b", "a/b/c", `a/b\c`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
}

func TestExtractTags_SimpleBody(t *testing.T) {
	d := Parse([]string{"# Hello", "World #tag1"}, "/vault/n.md")

	got := tagNames(ExtractTags(d))
	if !reflect.DeepEqual(got, []string{"tag1"}) {
		t.Errorf("tags = %v, want [tag1]", got)
	}
}

func TestExtractTags_SubheadingLinesAreScanned(t *testing.T) {
	d := &Document{
		Frontmatter: NewFrontmatter(),
		BodyLines: []string{
			"# Title #skipped",
			"## Subheading #todo",
			"### Deep #urgent",
		},
	}

	got := tagNames(ExtractTags(d))
	want := []string{"todo", "urgent"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
}

func TestExtractTags_PureHashExcluded(t *testing.T) {
	d := &Document{
		Frontmatter: NewFrontmatter(),
		BodyLines:   []string{"just ## and ### markers mid-line"},
	}

	if got := ExtractTags(d); len(got) != 0 {
		t.Errorf("tags = %v, want none", tagNames(got))
	}
}

func TestExtractLinks_Internal(t *testing.T) {
	d := &Document{
		Frontmatter: NewFrontmatter(),
		BodyLines:   []string{"See [[Other Note]] and [[Target|alias]]"},
	}

	internal, external := ExtractLinks(d)
	if len(external) != 0 {
		t.Errorf("external = %v, want none", external)
	}
	if len(internal) != 2 {
		t.Fatalf("internal = %d links, want 2", len(internal))
	}
	if internal[0].Title != "Other Note" || internal[0].DisplayText != "" {
		t.Errorf("link[0] = %+v", internal[0])
	}
	if internal[1].Title != "Target" || internal[1].DisplayText != "alias" {
		t.Errorf("link[1] = %+v", internal[1])
	}
}

func TestExtractLinks_External(t *testing.T) {
	d := &Document{
		Frontmatter: NewFrontmatter(),
		BodyLines:   []string{"Read [the docs](https://example.com/docs) now"},
	}

	internal, external := ExtractLinks(d)
	if len(internal) != 0 {
		t.Errorf("internal = %v, want none", internal)
	}
	if len(external) != 1 {
		t.Fatalf("external = %d links, want 1", len(external))
	}
	if external[0].DisplayText != "the docs" || external[0].URL != "https://example.com/docs" {
		t.Errorf("external[0] = %+v", external[0])
	}
}

func TestExtractLinks_Dedup(t *testing.T) {
	d := &Document{
		Frontmatter: NewFrontmatter(),
		BodyLines:   []string{"[[A]] again [[A]]", "[[A|other text]]"},
	}

	internal, _ := ExtractLinks(d)
	if len(internal) != 2 {
		t.Errorf("internal = %d links, want 2 (same title+display deduped)", len(internal))
	}
}

func TestExtractLinks_WikilinkNotDoubleCounted(t *testing.T) {
	// [[x]](y) must not also match as an external link once the wikilink is
	// stripped from the line.
	d := &Document{
		Frontmatter: NewFrontmatter(),
		BodyLines:   []string{"mixed [[Note]] and [ext](http://x.test)"},
	}

	internal, external := ExtractLinks(d)
	if len(internal) != 1 || len(external) != 1 {
		t.Errorf("internal = %d, external = %d, want 1 and 1", len(internal), len(external))
	}
}
