// Package gallery holds the live slide collection and the ingestion
// pipeline feeding it.
//
// The Gallery is an explicit context object with its own lifecycle, not
// package state: New at session start, Reset to wipe both the in-memory
// collection and the persisted store. All mutation goes through the
// pipeline's registration step, which holds a mutex across the
// signature-check-and-insert so concurrent batches can never both register
// the same signature.
package gallery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/lanterne/journal"
	"github.com/hazyhaar/lanterne/rasterize"
	"github.com/hazyhaar/lanterne/store"
)

// MaxDelayMS caps the slideshow interval setting.
const MaxDelayMS = 2000

// Config configures a Gallery.
type Config struct {
	// DelayMS is the initial slideshow interval in milliseconds
	// (default: 500, clamped to [0, MaxDelayMS]).
	DelayMS int `yaml:"delay_ms"`

	// Logger defaults to slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.DelayMS <= 0 {
		c.DelayMS = 500
	}
	if c.DelayMS > MaxDelayMS {
		c.DelayMS = MaxDelayMS
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Gallery is the ordered, deduplicated collection of loaded slides.
type Gallery struct {
	store   *store.Store
	raster  *rasterize.Rasterizer
	journal *journal.Journal
	logger  *slog.Logger

	mu          sync.Mutex
	entries     []*store.Slide
	signatures  map[string]struct{}
	delayMS     int
	lastAddedAt int64
}

// New creates a Gallery. jr may be nil to disable event journaling.
func New(st *store.Store, r *rasterize.Rasterizer, jr *journal.Journal, cfg Config) *Gallery {
	cfg.defaults()
	return &Gallery{
		store:      st,
		raster:     r,
		journal:    jr,
		logger:     cfg.Logger,
		signatures: make(map[string]struct{}),
		delayMS:    cfg.DelayMS,
	}
}

// Entries returns a snapshot of the loaded slides in display order.
func (g *Gallery) Entries() []*store.Slide {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*store.Slide, len(g.entries))
	copy(out, g.entries)
	return out
}

// Len returns the number of loaded slides.
func (g *Gallery) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Delay returns the current slideshow interval in milliseconds.
func (g *Gallery) Delay() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.delayMS
}

// SetDelay updates the slideshow interval, clamped to [0, MaxDelayMS].
func (g *Gallery) SetDelay(ms int) {
	if ms < 0 {
		ms = 0
	}
	if ms > MaxDelayMS {
		ms = MaxDelayMS
	}
	g.mu.Lock()
	g.delayMS = ms
	g.mu.Unlock()
}

// register is the single choke point adding a slide to live state: the
// signature check and insert happen under one lock acquisition. Returns
// false when the signature is already known. When persist is true the
// accepted slide is also written through to the store (suppressed during
// Restore to avoid redundant writes).
func (g *Gallery) register(ctx context.Context, sl *store.Slide, persist bool) bool {
	g.mu.Lock()
	if _, dup := g.signatures[sl.Signature]; dup {
		g.mu.Unlock()
		return false
	}
	g.signatures[sl.Signature] = struct{}{}
	g.entries = append(g.entries, sl)
	g.mu.Unlock()

	if persist {
		if err := g.store.Put(ctx, sl); err != nil {
			g.logger.Warn("persist slide failed", "signature", sl.Signature, "error", err)
		}
	}
	return true
}

// nextAddedAt returns a strictly increasing ms timestamp so that slides
// accepted within the same millisecond still keep their input order when
// read back sorted by added_at.
func (g *Gallery) nextAddedAt() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= g.lastAddedAt {
		now = g.lastAddedAt + 1
	}
	g.lastAddedAt = now
	return now
}

// Restore repopulates the gallery from the store at startup. Persistence
// is suppressed, so restoring N records never re-writes them and the
// original added_at ordering survives.
func (g *Gallery) Restore(ctx context.Context) error {
	slides, err := g.store.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, sl := range slides {
		g.register(ctx, sl, false)
		g.mu.Lock()
		if sl.AddedAt > g.lastAddedAt {
			g.lastAddedAt = sl.AddedAt
		}
		g.mu.Unlock()
	}
	g.logger.Info("gallery restored", "slides", len(slides))
	g.journal.Record(ctx, journalEvent("restore", map[string]int{"slides": len(slides)}))
	return nil
}

// Reset clears both layers: the in-memory collection, the signature set
// and the persisted store.
func (g *Gallery) Reset(ctx context.Context) error {
	g.mu.Lock()
	g.entries = nil
	g.signatures = make(map[string]struct{})
	g.mu.Unlock()

	err := g.store.Clear(ctx)
	g.journal.Record(ctx, journal.Event{Action: "reset", Success: err == nil})
	return err
}

func journalEvent(action string, details any) journal.Event {
	return journal.Event{Action: action, Details: details, Success: true}
}
