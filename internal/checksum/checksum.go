// Package checksum computes the content hash used for note change detection.
//
// The digest covers the body-only region of a note (frontmatter excluded), so
// rewriting metadata never registers as a content change. Body lines are
// joined with "\n" before hashing; the digest is only ever compared against
// itself, so the joining convention just has to stay consistent.
package checksum

import (
	"crypto/md5"
	"encoding/base64"
	"strings"
)

// Sum returns the base64-encoded MD5 digest of the note body.
func Sum(body string) string {
	h := md5.Sum([]byte(body))
	return base64.StdEncoding.EncodeToString(h[:])
}

// SumLines hashes body lines joined with "\n".
func SumLines(lines []string) string {
	return Sum(strings.Join(lines, "\n"))
}
