// Package pack serializes the persisted slide set to and from the portable
// package format: a single JSON document carrying a format version, the
// slideshow delay setting and every slide with its payload base64-encoded.
//
// Decode is tolerant per slide and strict per document: one undecodable
// slide entry is skipped and logged, but a document that is not JSON, has
// the wrong shape or the wrong version is rejected whole with
// ErrUnsupportedFormat before any state changes.
package pack

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"

	"github.com/hazyhaar/lanterne/signature"
	"github.com/hazyhaar/lanterne/store"
)

// FormatVersion is the package format this codec reads and writes.
const FormatVersion = 1

// ErrUnsupportedFormat marks a document-level rejection: not JSON, wrong
// top-level shape, or a version other than FormatVersion.
var ErrUnsupportedFormat = errors.New("pack: unsupported package format")

// Suffixes accepted for package auto-detection.
var Suffixes = []string{".json", ".lss", ".slideshow"}

type packageDoc struct {
	Version     int        `json:"version"`
	Delay       *float64   `json:"delay,omitempty"`
	GeneratedAt string     `json:"generatedAt"`
	Slides      []slideDoc `json:"slides"`
}

type slideDoc struct {
	Signature string `json:"signature"`
	Label     string `json:"label"`
	Type      string `json:"type"`
	AddedAt   int64  `json:"addedAt"`
	Bytes     string `json:"bytes"`
}

// Unit is one decoded, ingestable slide from a package.
type Unit struct {
	Signature string
	Label     string
	MIME      string
	AddedAt   int64
	Payload   []byte
}

// Package is the decoded result: the units that survived per-slide
// decoding, the total entry count, and the delay setting if present.
type Package struct {
	Units    []Unit
	Total    int
	DelayMS  float64
	HasDelay bool
}

// Encode snapshots the given persisted slides into a package document.
// A slide with an empty payload cannot round-trip and is skipped.
func Encode(slides []*store.Slide, delayMS int, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	delay := float64(delayMS)
	doc := packageDoc{
		Version:     FormatVersion,
		Delay:       &delay,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Slides:      make([]slideDoc, 0, len(slides)),
	}
	for _, sl := range slides {
		if len(sl.Payload) == 0 {
			logger.Warn("slide payload unreadable, skipping from export", "signature", sl.Signature)
			continue
		}
		doc.Slides = append(doc.Slides, slideDoc{
			Signature: sl.Signature,
			Label:     sl.Label,
			Type:      sl.MIME,
			AddedAt:   sl.AddedAt,
			Bytes:     base64.StdEncoding.EncodeToString(sl.Payload),
		})
	}
	out, err := sonic.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("pack: marshal: %w", err)
	}
	return out, nil
}

// Decode parses a package document. Per-slide base64 failures skip that
// slide only; a slide arriving without a signature gets a fresh one.
func Decode(data []byte, logger *slog.Logger) (*Package, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var doc packageDoc
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrUnsupportedFormat, doc.Version, FormatVersion)
	}
	if doc.Slides == nil {
		return nil, fmt.Errorf("%w: missing slides array", ErrUnsupportedFormat)
	}

	pkg := &Package{Total: len(doc.Slides)}
	if doc.Delay != nil {
		pkg.DelayMS = *doc.Delay
		pkg.HasDelay = true
	}

	for i, sd := range doc.Slides {
		payload, err := base64.StdEncoding.DecodeString(sd.Bytes)
		if err != nil || len(payload) == 0 {
			logger.Warn("slide entry undecodable, skipping", "index", i, "signature", sd.Signature, "error", err)
			continue
		}
		sig := sd.Signature
		if sig == "" {
			sig = signature.Fresh()
		}
		addedAt := sd.AddedAt
		if addedAt == 0 {
			addedAt = time.Now().UnixMilli()
		}
		pkg.Units = append(pkg.Units, Unit{
			Signature: sig,
			Label:     sd.Label,
			MIME:      sd.Type,
			AddedAt:   addedAt,
			Payload:   payload,
		})
	}
	return pkg, nil
}
