package rasterize

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"math"
	"sort"

	_ "image/jpeg"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// PDFEngine renders PDF pages via pdfcpu. Rendering is image-oriented:
// the page canvas is filled white and every image XObject of the page is
// decoded and blitted to fit, which covers the scanned-page and photo-deck
// PDFs a slideshow actually receives. Vector-only pages come out blank
// rather than failing.
type PDFEngine struct {
	conf *model.Configuration
}

// NewPDFEngine creates a PDFEngine with pdfcpu's default configuration,
// relaxed validation included so slightly malformed decks still open.
func NewPDFEngine() *PDFEngine {
	return &PDFEngine{conf: model.NewDefaultConfiguration()}
}

// Open reads, validates and optimizes the PDF. The returned Document keeps
// the whole pdfcpu context alive until Close.
func (e *PDFEngine) Open(data []byte) (Document, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), e.conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("pdfcpu page dims: %w", err)
	}
	return &pdfDocument{ctx: ctx, dims: dims}, nil
}

type pdfDocument struct {
	ctx  *model.Context
	dims []types.Dim
}

func (d *pdfDocument) PageCount() int {
	if d.ctx == nil {
		return 0
	}
	return d.ctx.PageCount
}

func (d *pdfDocument) PageSize(pageNr int) (float64, float64, error) {
	if pageNr < 1 || pageNr > len(d.dims) {
		return 0, 0, fmt.Errorf("page %d out of range (1..%d)", pageNr, len(d.dims))
	}
	dim := d.dims[pageNr-1]
	return dim.Width, dim.Height, nil
}

func (d *pdfDocument) Render(pageNr int, canvas *image.RGBA) error {
	if d.ctx == nil {
		return fmt.Errorf("document closed")
	}

	// White background, like paper.
	xdraw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, xdraw.Src)

	imgs, err := pdfcpu.ExtractPageImages(d.ctx, pageNr, false)
	if err != nil {
		return fmt.Errorf("extract page %d images: %w", pageNr, err)
	}

	// Deterministic order: maps iterate randomly.
	objNrs := make([]int, 0, len(imgs))
	for nr := range imgs {
		objNrs = append(objNrs, nr)
	}
	sort.Ints(objNrs)

	for _, nr := range objNrs {
		raw, err := io.ReadAll(imgs[nr])
		if err != nil || len(raw) == 0 {
			continue
		}
		decoded, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			continue
		}
		blitFit(canvas, decoded)
	}
	return nil
}

// Close releases the decoding session. Safe to call once only.
func (d *pdfDocument) Close() error {
	d.ctx = nil
	d.dims = nil
	return nil
}

// blitFit scales src to fit dst preserving aspect ratio, centered.
func blitFit(dst *image.RGBA, src image.Image) {
	db := dst.Bounds()
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return
	}

	scale := math.Min(
		float64(db.Dx())/float64(sb.Dx()),
		float64(db.Dy())/float64(sb.Dy()),
	)
	w := max(1, int(math.Round(float64(sb.Dx())*scale)))
	h := max(1, int(math.Round(float64(sb.Dy())*scale)))
	x0 := db.Min.X + (db.Dx()-w)/2
	y0 := db.Min.Y + (db.Dy()-h)/2

	xdraw.ApproxBiLinear.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), src, sb, xdraw.Over, nil)
}
