// Package render adapts an external PDF engine to the editor: it rasterizes
// pages for the interaction surface and exposes positioned text runs for
// extraction-on-selection. Rendering goes through go-fitz; text geometry
// comes from the unipdf extractor.
package render

import (
	"fmt"
	"image"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/mgmeyers/unipdf/v3/extractor"
	"github.com/mgmeyers/unipdf/v3/model"

	"github.com/docpane/layoutstudio/canvas"
	"github.com/docpane/layoutstudio/geom"
)

// baseDPI is the resolution a scale of 1.0 maps to: one rendered pixel per
// PDF point.
const baseDPI = 72.0

// Document is an open PDF held by both engines.
type Document struct {
	path   string
	fitz   *fitz.Document
	reader *model.PdfReader
	file   *os.File
	pages  int
}

// Open loads a PDF for rendering and text extraction.
func Open(path string) (*Document, error) {
	fz, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("render: open %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		fz.Close()
		return nil, fmt.Errorf("render: open %s: %w", path, err)
	}
	reader, err := model.NewPdfReader(f)
	if err != nil {
		fz.Close()
		f.Close()
		return nil, fmt.Errorf("render: parse %s: %w", path, err)
	}
	pages, err := reader.GetNumPages()
	if err != nil {
		fz.Close()
		f.Close()
		return nil, fmt.Errorf("render: page count %s: %w", path, err)
	}

	return &Document{path: path, fitz: fz, reader: reader, file: f, pages: pages}, nil
}

// Close releases both engines.
func (d *Document) Close() error {
	err := d.fitz.Close()
	if cerr := d.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Path returns the file the document was opened from.
func (d *Document) Path() string { return d.path }

// NumPages returns the page count.
func (d *Document) NumPages() int { return d.pages }

// PageRender is one rasterized page.
type PageRender struct {
	Image       image.Image
	PixelWidth  int
	PixelHeight int
	Scale       float64
	Rotation    int
}

// RenderPage rasterizes a 1-based page at the given scale, then applies the
// viewer rotation (0, 90, 180 or 270 degrees clockwise). The returned pixel
// dimensions are those of the final, rotated bitmap: overlay positioning
// must be computed against them.
func (d *Document) RenderPage(page int, scale float64, rotation int) (*PageRender, error) {
	if page < 1 || page > d.pages {
		return nil, fmt.Errorf("render: page %d out of range 1..%d", page, d.pages)
	}
	if scale <= 0 {
		scale = 1
	}
	img, err := d.fitz.ImageDPI(page-1, baseDPI*scale)
	if err != nil {
		return nil, fmt.Errorf("render: page %d: %w", page, err)
	}

	rotated := rotateImage(img, normalizeAngle(rotation))
	b := rotated.Bounds()
	return &PageRender{
		Image:       rotated,
		PixelWidth:  b.Dx(),
		PixelHeight: b.Dy(),
		Scale:       scale,
		Rotation:    normalizeAngle(rotation),
	}, nil
}

// TextRuns returns the page's text marks mapped into the rendered screen
// space of a surface displayed at renderedW x renderedH pixels with the
// given viewer rotation. The page's own /Rotate attribute is unfolded
// first, since the rasterizer applies it while the extractor reports
// unrotated coordinates.
func (d *Document) TextRuns(page int, renderedW, renderedH float64, rotation int) ([]canvas.TextRun, error) {
	if page < 1 || page > d.pages {
		return nil, fmt.Errorf("render: page %d out of range 1..%d", page, d.pages)
	}
	p, err := d.reader.GetPage(page)
	if err != nil {
		return nil, fmt.Errorf("render: page %d: %w", page, err)
	}
	ext, err := extractor.New(p)
	if err != nil {
		return nil, fmt.Errorf("render: extractor page %d: %w", page, err)
	}
	txt, _, _, err := ext.ExtractPageText()
	if err != nil {
		return nil, fmt.Errorf("render: text page %d: %w", page, err)
	}

	rotation = normalizeAngle(rotation)
	// Surface dimensions before the viewer rotation.
	baseW, baseH := renderedW, renderedH
	if rotation == 90 || rotation == 270 {
		baseW, baseH = renderedH, renderedW
	}

	pageW, pageH := pageDims(p)
	sx := baseW / pageW
	sy := baseH / pageH

	marks := txt.Marks().Elements()
	runs := make([]canvas.TextRun, 0, len(marks))
	for _, mark := range marks {
		if mark.Text == "" {
			continue
		}
		rect := applyPageRotation(p, []float64{mark.BBox.Llx, mark.BBox.Lly, mark.BBox.Urx, mark.BBox.Ury})
		if rect[2] <= rect[0] || rect[3] <= rect[1] {
			continue
		}
		// PDF space is y-up; the screen is y-down.
		box := geom.Rect{
			Left:   rect[0] * sx,
			Top:    (pageH - rect[3]) * sy,
			Width:  (rect[2] - rect[0]) * sx,
			Height: (rect[3] - rect[1]) * sy,
		}
		runs = append(runs, canvas.TextRun{
			Text: mark.Text,
			Box:  rotateRect(box, rotation, baseW, baseH),
		})
	}
	return runs, nil
}

// pageDims returns the displayed page size in points, swapping the media
// box for pages that carry a 90 or 270 degree /Rotate.
func pageDims(p *model.PdfPage) (float64, float64) {
	w := p.MediaBox.Width()
	h := p.MediaBox.Height()
	if p.Rotate != nil && (*p.Rotate == 90 || *p.Rotate == 270) {
		return h, w
	}
	return w, h
}

// applyPageRotation remaps an extractor rect {llx, lly, urx, ury} from the
// unrotated page space into the space the page is displayed in.
func applyPageRotation(p *model.PdfPage, rect []float64) []float64 {
	if p.Rotate == nil {
		return rect
	}
	angle := *p.Rotate
	if angle == 0 {
		return rect
	}

	width := p.MediaBox.Width()
	height := p.MediaBox.Height()

	if angle == 90 {
		return []float64{rect[1], width - rect[2], rect[3], width - rect[0]}
	}
	if angle == 270 {
		return []float64{height - rect[3], rect[0], height - rect[1], rect[2]}
	}
	// 180
	return []float64{width - rect[2], height - rect[3], width - rect[0], height - rect[1]}
}

// rotateRect maps a screen-space rect on an unrotated baseW x baseH surface
// to the surface rotated clockwise by angle.
func rotateRect(r geom.Rect, angle int, baseW, baseH float64) geom.Rect {
	switch angle {
	case 90:
		return geom.Rect{Left: baseH - r.Bottom(), Top: r.Left, Width: r.Height, Height: r.Width}
	case 180:
		return geom.Rect{Left: baseW - r.Right(), Top: baseH - r.Bottom(), Width: r.Width, Height: r.Height}
	case 270:
		return geom.Rect{Left: r.Top, Top: baseW - r.Right(), Width: r.Height, Height: r.Width}
	default:
		return r
	}
}

func normalizeAngle(angle int) int {
	angle %= 360
	if angle < 0 {
		angle += 360
	}
	switch angle {
	case 90, 180, 270:
		return angle
	default:
		return 0
	}
}

// rotateImage rotates clockwise by a normalized angle.
func rotateImage(src image.Image, angle int) image.Image {
	if angle == 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.RGBA
	if angle == 180 {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.At(b.Min.X+x, b.Min.Y+y)
			switch angle {
			case 90:
				dst.Set(h-1-y, x, c)
			case 180:
				dst.Set(w-1-x, h-1-y, c)
			case 270:
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}
