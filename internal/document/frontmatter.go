package document

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Frontmatter is an insertion-ordered mapping from key to string values.
// A key may carry no value (serialized as a bare "key:"), a single value,
// or a list of values. Order is preserved so that a parse/serialize round
// trip keeps the frontmatter block stable.
type Frontmatter struct {
	m *orderedmap.OrderedMap[string, []string]
}

// NewFrontmatter returns an empty frontmatter mapping.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{m: orderedmap.New[string, []string]()}
}

// Set stores values under key, replacing any existing values and keeping the
// key's original position. Calling Set with no values records a value-less key.
func (f *Frontmatter) Set(key string, values ...string) {
	if len(values) == 0 {
		f.m.Set(key, nil)
		return
	}
	f.m.Set(key, values)
}

// Append adds one value to the list stored under key, creating the key at the
// end of the mapping if it does not exist yet.
func (f *Frontmatter) Append(key, value string) {
	existing, _ := f.m.Get(key)
	f.m.Set(key, append(existing, value))
}

// Get returns the values stored under key. A present key with no value
// returns (nil, true).
func (f *Frontmatter) Get(key string) ([]string, bool) {
	return f.m.Get(key)
}

// First returns the first value under key, or "" when the key is absent or
// value-less.
func (f *Frontmatter) First(key string) string {
	values, ok := f.m.Get(key)
	if !ok || len(values) == 0 {
		return ""
	}
	return values[0]
}

// Has reports whether key is present.
func (f *Frontmatter) Has(key string) bool {
	_, ok := f.m.Get(key)
	return ok
}

// Delete removes key from the mapping.
func (f *Frontmatter) Delete(key string) {
	f.m.Delete(key)
}

// Len returns the number of keys.
func (f *Frontmatter) Len() int {
	return f.m.Len()
}

// Keys returns all keys in insertion order.
func (f *Frontmatter) Keys() []string {
	keys := make([]string, 0, f.m.Len())
	for pair := f.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Range calls fn for every key in insertion order until fn returns false.
func (f *Frontmatter) Range(fn func(key string, values []string) bool) {
	for pair := f.m.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Clone returns a deep copy of the mapping.
func (f *Frontmatter) Clone() *Frontmatter {
	out := NewFrontmatter()
	for pair := f.m.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			out.m.Set(pair.Key, nil)
			continue
		}
		values := make([]string, len(pair.Value))
		copy(values, pair.Value)
		out.m.Set(pair.Key, values)
	}
	return out
}

// MarshalJSON emits the mapping as a JSON object in insertion order.
func (f *Frontmatter) MarshalJSON() ([]byte, error) {
	return f.m.MarshalJSON()
}
