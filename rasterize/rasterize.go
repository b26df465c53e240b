// Package rasterize expands a multi-page document into per-page slide images.
//
// The actual page rendering sits behind the Engine interface so the
// capability can be absent (no engine wired) without the caller having to
// care: an absent engine reports zero pages and ErrNoRasterizer, which is
// distinct from a genuinely zero-page document.
//
// Per page the rasterizer computes a zoom factor bounding the longest page
// dimension to a pixel budget, renders into an RGBA canvas and encodes the
// result as lossless PNG. One page failing to size, render or encode is
// logged and skipped; its siblings still render.
package rasterize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"

	"github.com/hazyhaar/lanterne/signature"
)

// ErrNoRasterizer is returned when no rendering engine is available.
var ErrNoRasterizer = errors.New("rasterize: no engine available")

// Engine opens document bytes into a renderable Document.
type Engine interface {
	Open(data []byte) (Document, error)
}

// Document is a decoded multi-page document. Close releases the decoding
// session and all page handles; it must be called exactly once, success or
// failure.
type Document interface {
	PageCount() int
	// PageSize returns the intrinsic size of page pageNr (1-based) in
	// document units.
	PageSize(pageNr int) (w, h float64, err error)
	// Render fills the caller-provided canvas with page pageNr.
	Render(pageNr int, canvas *image.RGBA) error
	Close() error
}

// Page is one rendered page, ready for registration as a slide.
type Page struct {
	Signature string
	Label     string
	PageNr    int
	MIME      string
	Payload   []byte // PNG-encoded
}

// Config configures a Rasterizer.
type Config struct {
	// PixelBudget bounds the longest canvas dimension (default: 1600).
	PixelBudget int `yaml:"pixel_budget"`

	// MinZoom / MaxZoom clamp the computed render scale so tiny pages
	// stay readable and huge pages stay memory-bounded.
	MinZoom float64 `yaml:"min_zoom"`
	MaxZoom float64 `yaml:"max_zoom"`

	// Logger for per-page warnings. Defaults to slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.PixelBudget <= 0 {
		c.PixelBudget = 1600
	}
	if c.MinZoom <= 0 {
		c.MinZoom = 0.5
	}
	if c.MaxZoom <= 0 {
		c.MaxZoom = 3.0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Rasterizer drives an Engine over whole documents.
type Rasterizer struct {
	engine Engine
	cfg    Config
	logger *slog.Logger
}

// New creates a Rasterizer. engine may be nil when the rendering capability
// is absent; EachPage then reports ErrNoRasterizer without attempting work.
func New(engine Engine, cfg Config) *Rasterizer {
	cfg.defaults()
	return &Rasterizer{engine: engine, cfg: cfg, logger: cfg.Logger}
}

// Available reports whether a rendering engine is wired.
func (r *Rasterizer) Available() bool { return r.engine != nil }

// EachPage renders every page of the document in ascending page order,
// calling fn once per successfully rendered page. Page signatures derive
// from parentSig so re-importing the same document never re-adds seen pages.
//
// rendered counts pages handed to fn, total the document's page count.
// A page-local failure is logged and skipped; only document-level failures
// (unreadable document, absent engine) and fn errors are returned.
func (r *Rasterizer) EachPage(ctx context.Context, data []byte, parentSig, baseLabel string, fn func(Page) error) (rendered, total int, err error) {
	if r.engine == nil {
		return 0, 0, ErrNoRasterizer
	}

	doc, err := r.engine.Open(data)
	if err != nil {
		return 0, 0, fmt.Errorf("rasterize: open document: %w", err)
	}
	defer doc.Close()

	total = doc.PageCount()
	for pageNr := 1; pageNr <= total; pageNr++ {
		if err := ctx.Err(); err != nil {
			return rendered, total, err
		}

		w, h, err := doc.PageSize(pageNr)
		if err != nil || w <= 0 || h <= 0 {
			r.logger.Warn("page size failed, skipping page", "page", pageNr, "error", err)
			continue
		}

		zoom := r.zoomFor(w, h)
		canvas := image.NewRGBA(image.Rect(0, 0,
			max(1, int(math.Round(w*zoom))),
			max(1, int(math.Round(h*zoom)))))

		if err := doc.Render(pageNr, canvas); err != nil {
			r.logger.Warn("page render failed, skipping page", "page", pageNr, "error", err)
			continue
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, canvas); err != nil {
			r.logger.Warn("page encode failed, skipping page", "page", pageNr, "error", err)
			continue
		}

		page := Page{
			Signature: signature.ForPage(parentSig, pageNr),
			Label:     fmt.Sprintf("%s - page %d", baseLabel, pageNr),
			PageNr:    pageNr,
			MIME:      "image/png",
			Payload:   buf.Bytes(),
		}
		rendered++
		if err := fn(page); err != nil {
			return rendered, total, err
		}
	}
	return rendered, total, nil
}

// zoomFor bounds the longest page dimension to the pixel budget, clamped
// to [MinZoom, MaxZoom].
func (r *Rasterizer) zoomFor(w, h float64) float64 {
	longest := math.Max(w, h)
	zoom := float64(r.cfg.PixelBudget) / longest
	if zoom < r.cfg.MinZoom {
		zoom = r.cfg.MinZoom
	}
	if zoom > r.cfg.MaxZoom {
		zoom = r.cfg.MaxZoom
	}
	return zoom
}
