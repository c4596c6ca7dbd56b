package canvas

import (
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/docpane/layoutstudio/geom"
)

const (
	// snapPad keeps a couple of pixels of breathing room around the content
	// bounding box.
	snapPad = 2.0
	// snapLuminance is the HSL lightness above which a pixel counts as
	// near-white page background.
	snapLuminance = 0.95
	// snapAlpha is the minimum 16-bit alpha for a pixel to count as content.
	snapAlpha = 0x8000
)

// SnapToContents tightens a drawn rectangle to the bounding box of the
// non-background pixels inside it. The page image may be rendered at a
// different resolution than the interaction surface; coordinates are mapped
// through the ratio of the two. If the selection holds no content, or the
// tightened box would fall below the minimum footprint, the original
// rectangle is returned unchanged.
func SnapToContents(img image.Image, sel geom.Rect, surfaceW, surfaceH float64) geom.Rect {
	b := img.Bounds()
	if b.Empty() || surfaceW <= 0 || surfaceH <= 0 {
		return sel
	}
	sx := float64(b.Dx()) / surfaceW
	sy := float64(b.Dy()) / surfaceH

	x0 := b.Min.X + int(math.Floor(sel.Left*sx))
	y0 := b.Min.Y + int(math.Floor(sel.Top*sy))
	x1 := b.Min.X + int(math.Ceil(sel.Right()*sx))
	y1 := b.Min.Y + int(math.Ceil(sel.Bottom()*sy))
	x0 = max(x0, b.Min.X)
	y0 = max(y0, b.Min.Y)
	x1 = min(x1, b.Max.X)
	y1 = min(y1, b.Max.Y)

	minX, minY := x1, y1
	maxX, maxY := x0-1, y0-1
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			px := img.At(x, y)
			_, _, _, a := px.RGBA()
			if a < snapAlpha {
				continue
			}
			col, ok := colorful.MakeColor(px)
			if !ok {
				continue
			}
			_, _, l := col.Hsl()
			if l > snapLuminance {
				continue
			}
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX || maxY < minY {
		return sel
	}

	content := geom.Rect{
		Left:   float64(minX-b.Min.X) / sx,
		Top:    float64(minY-b.Min.Y) / sy,
		Width:  float64(maxX-minX+1) / sx,
		Height: float64(maxY-minY+1) / sy,
	}
	padded := content.Pad(snapPad)

	// Trim the padding back inside the surface.
	padded = geom.FromCorners(
		math.Max(0, padded.Left),
		math.Max(0, padded.Top),
		math.Min(surfaceW, padded.Right()),
		math.Min(surfaceH, padded.Bottom()),
	)

	if !padded.MeetsMin(geom.MinFootprint) {
		return sel
	}
	return padded
}
