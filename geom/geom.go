// Package geom provides the stateless rectangle math shared by the canvas
// controller and render adapter: conversion between authored page space and
// rendered pixel space, drag normalization, and interaction clamping.
package geom

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/docpane/layoutstudio/annot"
)

// MinFootprint is the smallest rectangle, in rendered pixels, that a draw
// or resize gesture may commit. Anything smaller is discarded or ignored.
const MinFootprint = 10.0

// Rect is an axis-aligned rectangle in a y-down coordinate space.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FromCorners builds a normalized rectangle from two arbitrary corner
// points, independent of drag direction.
func FromCorners(x1, y1, x2, y2 float64) Rect {
	return Rect{
		Left:   math.Min(x1, x2),
		Top:    math.Min(y1, y2),
		Width:  math.Abs(x2 - x1),
		Height: math.Abs(y2 - y1),
	}
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// MeetsMin reports whether both extents reach the given footprint.
func (r Rect) MeetsMin(min float64) bool {
	return r.Width >= min && r.Height >= min
}

// Contains reports whether the point lies inside the rectangle, borders
// included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right() && y >= r.Top && y <= r.Bottom()
}

// Pad grows the rectangle by px on every side. Negative px shrinks it;
// extents never go below zero.
func (r Rect) Pad(px float64) Rect {
	out := Rect{
		Left:   r.Left - px,
		Top:    r.Top - px,
		Width:  r.Width + 2*px,
		Height: r.Height + 2*px,
	}
	if out.Width < 0 {
		out.Width = 0
	}
	if out.Height < 0 {
		out.Height = 0
	}
	return out
}

// R2 bridges to the geo library's rectangle for intersection and
// containment tests.
func (r Rect) R2() r2.Rect {
	return r2.RectFromPoints(
		r2.Point{X: r.Left, Y: r.Top},
		r2.Point{X: r.Right(), Y: r.Bottom()},
	)
}

// FromR2 converts back from an r2 rectangle.
func FromR2(rr r2.Rect) Rect {
	return Rect{
		Left:   rr.X.Lo,
		Top:    rr.Y.Lo,
		Width:  rr.X.Length(),
		Height: rr.Y.Length(),
	}
}

// ToScreen maps an annotation's authored rectangle onto a surface rendered
// at renderedW x renderedH pixels. The x and y factors are independent:
// pages need not re-render at a uniform scale. Missing or non-positive
// authored page dimensions fall back to the rendered dimensions so the
// result is never NaN.
func ToScreen(a annot.Annotation, renderedW, renderedH float64) Rect {
	pw, ph := a.PageWidth, a.PageHeight
	if pw <= 0 {
		pw = renderedW
	}
	if ph <= 0 {
		ph = renderedH
	}
	sx := renderedW / pw
	sy := renderedH / ph
	return Rect{
		Left:   a.Left * sx,
		Top:    a.Top * sy,
		Width:  a.Width * sx,
		Height: a.Height * sy,
	}
}

// ToAuthored is the inverse of ToScreen, used when committing a gesture
// back to the store.
func ToAuthored(r Rect, renderedW, renderedH, pageW, pageH float64) Rect {
	if pageW <= 0 {
		pageW = renderedW
	}
	if pageH <= 0 {
		pageH = renderedH
	}
	sx := pageW / renderedW
	sy := pageH / renderedH
	return Rect{
		Left:   r.Left * sx,
		Top:    r.Top * sy,
		Width:  r.Width * sx,
		Height: r.Height * sy,
	}
}

// ClampPosition keeps the rectangle's top-left on the surface without
// changing its size. A drag may not leave the top or left edge, and the
// rectangle may not overhang the right or bottom edge when it fits.
func ClampPosition(r Rect, surfaceW, surfaceH float64) Rect {
	maxLeft := surfaceW - r.Width
	maxTop := surfaceH - r.Height
	r.Left = math.Max(0, math.Min(r.Left, math.Max(0, maxLeft)))
	r.Top = math.Max(0, math.Min(r.Top, math.Max(0, maxTop)))
	return r
}

// ClampPoint keeps a pointer position within the surface bounds.
func ClampPoint(x, y, surfaceW, surfaceH float64) (float64, float64) {
	x = math.Max(0, math.Min(x, surfaceW))
	y = math.Max(0, math.Min(y, surfaceH))
	return x, y
}

// Corner identifies one of the four resize handles.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomLeft
	BottomRight
)

// Opposite returns the corner diagonally across the rectangle, the anchor
// that stays fixed while the named corner is dragged.
func (c Corner) Opposite() Corner {
	switch c {
	case TopLeft:
		return BottomRight
	case TopRight:
		return BottomLeft
	case BottomLeft:
		return TopRight
	default:
		return TopLeft
	}
}

// CornerPoint returns the screen position of the named corner.
func (r Rect) CornerPoint(c Corner) (float64, float64) {
	switch c {
	case TopLeft:
		return r.Left, r.Top
	case TopRight:
		return r.Right(), r.Top
	case BottomLeft:
		return r.Left, r.Bottom()
	default:
		return r.Right(), r.Bottom()
	}
}

// Corners lists the handles in a fixed order.
func Corners() []Corner {
	return []Corner{TopLeft, TopRight, BottomLeft, BottomRight}
}
