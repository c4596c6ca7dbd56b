package canvas

import (
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/docpane/layoutstudio/geom"
)

// pageImage builds a w x h white page with a black rectangle covering
// [x0,x1) x [y0,y1).
func pageImage(w, h, x0, y0, x1, y1 int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	white := color.RGBA{255, 255, 255, 255}
	black := color.RGBA{0, 0, 0, 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, white)
		}
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.Set(x, y, black)
		}
	}
	return img
}

func TestSnapToContentsTightens(t *testing.T) {
	img := pageImage(200, 200, 50, 50, 80, 80)
	sel := geom.Rect{Left: 20, Top: 20, Width: 100, Height: 100}

	got := SnapToContents(img, sel, 200, 200)
	want := geom.Rect{Left: 48, Top: 48, Width: 34, Height: 34}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SnapToContents() mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapToContentsEmptySelection(t *testing.T) {
	img := pageImage(200, 200, 150, 150, 180, 180)
	sel := geom.Rect{Left: 20, Top: 20, Width: 60, Height: 60}

	if got := SnapToContents(img, sel, 200, 200); got != sel {
		t.Errorf("SnapToContents() = %+v, want the original selection for all-white content", got)
	}
}

func TestSnapToContentsKeepsMinimumFootprint(t *testing.T) {
	img := pageImage(200, 200, 50, 50, 52, 52)
	sel := geom.Rect{Left: 20, Top: 20, Width: 100, Height: 100}

	if got := SnapToContents(img, sel, 200, 200); got != sel {
		t.Errorf("SnapToContents() = %+v, want the original selection when the tightened box is too small", got)
	}
}

func TestSnapToContentsScaledImage(t *testing.T) {
	// Page bitmap at twice the interaction surface resolution.
	img := pageImage(400, 400, 100, 100, 160, 160)
	sel := geom.Rect{Left: 20, Top: 20, Width: 120, Height: 120}

	got := SnapToContents(img, sel, 200, 200)
	want := geom.Rect{Left: 48, Top: 48, Width: 34, Height: 34}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SnapToContents() at 2x mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapToContentsIgnoresTransparentPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	// Zero-value pixels are fully transparent; only the opaque square counts.
	opaque := color.RGBA{0, 0, 0, 255}
	for y := 60; y < 90; y++ {
		for x := 60; x < 90; x++ {
			img.Set(x, y, opaque)
		}
	}
	sel := geom.Rect{Left: 20, Top: 20, Width: 120, Height: 120}

	got := SnapToContents(img, sel, 200, 200)
	want := geom.Rect{Left: 58, Top: 58, Width: 34, Height: 34}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SnapToContents() mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapToContentsClipsToSelection(t *testing.T) {
	// Content continues outside the selection; only the inside part counts.
	img := pageImage(200, 200, 0, 0, 200, 60)
	sel := geom.Rect{Left: 50, Top: 20, Width: 60, Height: 100}

	got := SnapToContents(img, sel, 200, 200)
	if got.Bottom() > 62.0+1e-9 {
		t.Errorf("snapped box %+v extends past the content inside the selection", got)
	}
	if got.Left < sel.Left-snapPad-1e-9 {
		t.Errorf("snapped box %+v extends past the selection's left edge", got)
	}
}
