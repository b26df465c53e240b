// Package signature computes stable identities for incoming slide content.
//
// Identity is the dedup key and the content store's primary key. File
// identity is a heuristic composition of name, MIME type, size and
// last-modified time, not a content hash, so signing is O(1)
// regardless of payload size. Pages extracted from a document derive their
// signature from the parent's, disambiguated by page number.
package signature

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// FromFile returns the deterministic signature for a file-like input.
// modified is milliseconds since epoch. Two inputs agreeing on all four
// fields are considered the same content.
func FromFile(name, mimeType string, size int64, modified int64) string {
	return name + "|" + mimeType + "|" + strconv.FormatInt(size, 10) + "|" + strconv.FormatInt(modified, 10)
}

// ForPage returns the signature of page pageNr (1-based) extracted from the
// document identified by parent. The "#p" marker keeps page signatures from
// colliding with plain file signatures or with pages of other documents.
func ForPage(parent string, pageNr int) string {
	return parent + "#p" + strconv.Itoa(pageNr)
}

// Fresh returns a new random signature for content that arrives without one
// (e.g. a slide inside an imported package written by an older exporter).
// UUIDv7 per ecosystem convention; if the system entropy source fails, falls
// back to a timestamp plus math-free random hex suffix.
func Fresh() string {
	u, err := uuid.NewV7()
	if err == nil {
		return u.String()
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Entropy completely unavailable: timestamp alone still gives
		// per-millisecond uniqueness within one process.
		return fmt.Sprintf("gen-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("gen-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(b[:]))
}
