package chunker

import (
	"crypto/sha256"
	"fmt"
)

// Fingerprint computes a collision-resistant identity for a chunk from
// its source, page and text. NUL separators keep the concatenation
// unambiguous regardless of chunk content.
func Fingerprint(c Chunk) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s\x00%d\x00%s", c.Source, c.Page, c.Text))
	return fmt.Sprintf("%x", h[:])
}

// Deduplicator tracks chunk fingerprints seen during an ingestion
// request, optionally seeded with fingerprints already persisted in the
// store so that re-uploading a document adds nothing.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator creates a deduplicator pre-populated with the given
// fingerprints.
func NewDeduplicator(seed []string) *Deduplicator {
	d := &Deduplicator{seen: make(map[string]struct{}, len(seed))}
	for _, fp := range seed {
		d.seen[fp] = struct{}{}
	}
	return d
}

// Seen reports whether the chunk's fingerprint was already observed, and
// records it for subsequent calls.
func (d *Deduplicator) Seen(c Chunk) bool {
	fp := Fingerprint(c)
	if _, dup := d.seen[fp]; dup {
		return true
	}
	d.seen[fp] = struct{}{}
	return false
}
