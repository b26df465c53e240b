package gallery

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hazyhaar/lanterne/pack"
	"github.com/hazyhaar/lanterne/rasterize"
	"github.com/hazyhaar/lanterne/signature"
	"github.com/hazyhaar/lanterne/store"
)

// Input is one raw unit handed to the pipeline (a dropped, pasted or
// picked file).
type Input struct {
	Name     string
	MIME     string
	Size     int64
	Modified int64 // ms since epoch; 0 means unknown
	Data     []byte
}

// Result aggregates one ingestion batch for the caller's status rendering.
// Added counts every newly registered slide, including document pages and
// package slides.
type Result struct {
	Added              int `json:"added"`
	Supported          int `json:"supported"`
	Unsupported        int `json:"unsupported"`
	PDFUnsupported     int `json:"pdfUnsupported"`
	PackagesProcessed  int `json:"packagesProcessed"`
	PackageErrors      int `json:"packageErrors"`
	PackageSlidesAdded int `json:"packageSlidesAdded"`
	PackageSlidesTotal int `json:"packageSlidesTotal"`
}

type kind int

const (
	kindImage kind = iota
	kindDocument
	kindPackage
	kindUnsupported
)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".bmp": true, ".svg": true,
}

func classify(in Input) kind {
	mime := strings.ToLower(strings.TrimSpace(in.MIME))
	ext := strings.ToLower(filepath.Ext(in.Name))
	switch {
	case strings.HasPrefix(mime, "image/"):
		return kindImage
	case mime == "application/pdf" || ext == ".pdf":
		return kindDocument
	case mime == "application/json" || slices.Contains(pack.Suffixes, ext):
		return kindPackage
	case mime == "" && imageExts[ext]:
		return kindImage
	default:
		return kindUnsupported
	}
}

// Ingest classifies, dedups and registers a batch of inputs, in input
// order. A document's pages are fully expanded before the next input is
// touched. Nothing here ever fails the whole batch over one bad unit; the
// Result carries the counts the UI renders as a status line.
func (g *Gallery) Ingest(ctx context.Context, inputs []Input) Result {
	var res Result
	for _, in := range inputs {
		switch classify(in) {
		case kindImage:
			res.Supported++
			if g.ingestImage(ctx, in) {
				res.Added++
			}
		case kindDocument:
			res.Supported++
			g.ingestDocument(ctx, in, &res)
		case kindPackage:
			res.Supported++
			g.ingestPackage(ctx, in, &res)
		default:
			res.Unsupported++
		}
	}

	g.journal.Record(ctx, journalEvent("ingest", res))
	return res
}

func (g *Gallery) ingestImage(ctx context.Context, in Input) bool {
	// A zero Modified means the source never told us. Keeping it zero makes
	// the signature stable across re-uploads of the same bytes.
	sl := &store.Slide{
		Signature: signature.FromFile(in.Name, in.MIME, in.Size, in.Modified),
		Label:     in.Name,
		MIME:      in.MIME,
		AddedAt:   g.nextAddedAt(),
		Payload:   in.Data,
	}
	return g.register(ctx, sl, true)
}

func (g *Gallery) ingestDocument(ctx context.Context, in Input, res *Result) {
	if g.raster == nil || !g.raster.Available() {
		res.PDFUnsupported++
		return
	}

	parentSig := signature.FromFile(in.Name, in.MIME, in.Size, in.Modified)

	rendered, total, err := g.raster.EachPage(ctx, in.Data, parentSig, in.Name, func(p rasterize.Page) error {
		sl := &store.Slide{
			Signature: p.Signature,
			Label:     p.Label,
			MIME:      p.MIME,
			AddedAt:   g.nextAddedAt(),
			Payload:   p.Payload,
		}
		if g.register(ctx, sl, true) {
			res.Added++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, rasterize.ErrNoRasterizer) {
			res.PDFUnsupported++
			return
		}
		g.logger.Warn("document ingestion failed", "name", in.Name, "error", err)
		return
	}
	g.logger.Debug("document expanded", "name", in.Name, "rendered", rendered, "pages", total)
}

func (g *Gallery) ingestPackage(ctx context.Context, in Input, res *Result) {
	pkg, err := pack.Decode(in.Data, g.logger)
	if err != nil {
		g.logger.Warn("package rejected", "name", in.Name, "error", err)
		res.PackageErrors++
		return
	}
	res.PackagesProcessed++
	res.PackageSlidesTotal += pkg.Total

	added := g.registerUnits(ctx, pkg.Units)
	res.PackageSlidesAdded += added
	res.Added += added

	if pkg.HasDelay {
		g.SetDelay(int(pkg.DelayMS))
	}
}

// registerUnits registers decoded package units through the standard dedup
// path. Already-seen slides are a normal zero-added outcome, not an error.
func (g *Gallery) registerUnits(ctx context.Context, units []pack.Unit) int {
	added := 0
	for _, u := range units {
		sl := &store.Slide{
			Signature: u.Signature,
			Label:     u.Label,
			MIME:      u.MIME,
			AddedAt:   u.AddedAt,
			Payload:   u.Payload,
		}
		if g.register(ctx, sl, true) {
			added++
		}
	}
	return added
}

// ExportPackage serializes the full persisted slide set plus the current
// delay setting into a portable package document.
func (g *Gallery) ExportPackage(ctx context.Context) ([]byte, error) {
	slides, err := g.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return pack.Encode(slides, g.Delay(), g.logger)
}

// ImportPackage decodes a package document and registers its slides.
// Returns the number of newly added slides and the package's total entry
// count; err is non-nil only for document-level rejection
// (pack.ErrUnsupportedFormat), which leaves existing state untouched.
func (g *Gallery) ImportPackage(ctx context.Context, data []byte) (added, total int, err error) {
	pkg, err := pack.Decode(data, g.logger)
	if err != nil {
		return 0, 0, err
	}

	added = g.registerUnits(ctx, pkg.Units)
	if pkg.HasDelay {
		g.SetDelay(int(pkg.DelayMS))
	}

	g.journal.Record(ctx, journalEvent("import", map[string]int{"added": added, "total": pkg.Total}))
	return added, pkg.Total, nil
}
