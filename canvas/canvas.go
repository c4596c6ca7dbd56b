// Package canvas turns pointer gestures over a rendered page into store
// mutations. The controller is a state machine over gesture phases; it owns
// only transient interaction state (the live rectangle, the gesture target)
// and produces an immutable Frame for a rendering adapter to paint, so none
// of this leaks into persisted data.
//
// The controller is single-threaded by design: all gesture events and frame
// reads happen on the UI goroutine.
package canvas

import (
	"image"

	"github.com/docpane/layoutstudio/annot"
	"github.com/docpane/layoutstudio/geom"
	"github.com/docpane/layoutstudio/store"
)

// Phase is the current gesture state.
type Phase int

const (
	Idle Phase = iota
	Creating
	Dragging
	Resizing
)

// handleHalf is half the side of a corner handle's hit box, in pixels.
const handleHalf = 6.0

// TextRun is one positioned piece of page text in rendered screen space,
// supplied by the render adapter.
type TextRun struct {
	Text string
	Box  geom.Rect
}

// Controller drives creation, drag and resize gestures for a single
// displayed page.
type Controller struct {
	store *store.Store

	page          int
	width, height float64
	pageImg       image.Image
	runs          []TextRun

	snap        bool
	defaultType annot.Type

	phase   Phase
	target  string
	anchorX float64
	anchorY float64
	grabDX  float64
	grabDY  float64
	live    geom.Rect
	liveSet bool

	editing string
}

// Option configures a Controller during creation.
type Option func(*Controller)

// WithSnapToContents toggles content-aware snapping of newly drawn boxes.
func WithSnapToContents(on bool) Option { return func(c *Controller) { c.snap = on } }

// WithDefaultType sets the category assigned to newly drawn annotations.
func WithDefaultType(t annot.Type) Option { return func(c *Controller) { c.defaultType = t } }

// New creates a controller bound to the store. ShowPage must be called
// before any pointer event.
func New(st *store.Store, opts ...Option) *Controller {
	c := &Controller{
		store:       st,
		defaultType: annot.TextBlock,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ShowPage binds the controller to a freshly rendered page surface. The
// page must already be rendered: overlay positioning depends on the
// surface's pixel dimensions. img may be nil (snapping unavailable) and
// runs may be nil (no text extraction). Any in-progress gesture is
// abandoned.
func (c *Controller) ShowPage(page int, pixelW, pixelH float64, img image.Image, runs []TextRun) {
	c.page = page
	c.width = pixelW
	c.height = pixelH
	c.pageImg = img
	c.runs = runs
	c.editing = ""
	c.reset()
}

// Page returns the displayed page number.
func (c *Controller) Page() int { return c.page }

// Phase returns the current gesture phase.
func (c *Controller) Phase() Phase { return c.phase }

// SetSnapToContents toggles snapping at runtime.
func (c *Controller) SetSnapToContents(on bool) { c.snap = on }

// SetEditing records which annotation's text editor holds keyboard focus.
// Renderers must not re-mount that editor on redraw, or the redraw would
// steal focus mid-keystroke.
func (c *Controller) SetEditing(id string) { c.editing = id }

func (c *Controller) reset() {
	c.phase = Idle
	c.target = ""
	c.liveSet = false
}

// PointerDown starts a gesture: a resize when a corner handle is hit, a
// drag when an annotation body is hit, otherwise a draw-to-create.
func (c *Controller) PointerDown(x, y float64) {
	if c.phase != Idle {
		return
	}
	x, y = geom.ClampPoint(x, y, c.width, c.height)
	annots := c.store.ByPage(c.page)

	// Topmost first: later entries render above earlier ones. Handles and
	// body are checked per annotation, so an occluded annotation underneath
	// cannot steal the gesture with a covered handle.
	for i := len(annots) - 1; i >= 0; i-- {
		r := geom.ToScreen(annots[i], c.width, c.height)
		if corner, ok := handleAt(r, x, y); ok {
			c.phase = Resizing
			c.target = annots[i].ID
			c.anchorX, c.anchorY = r.CornerPoint(corner.Opposite())
			c.live = r
			c.liveSet = true
			return
		}
		if r.Contains(x, y) {
			c.phase = Dragging
			c.target = annots[i].ID
			c.grabDX = x - r.Left
			c.grabDY = y - r.Top
			c.live = r
			c.liveSet = true
			c.store.Select(annots[i].ID)
			return
		}
	}

	c.phase = Creating
	c.anchorX, c.anchorY = x, y
	c.live = geom.Rect{Left: x, Top: y}
	c.liveSet = true
}

// PointerMove advances the gesture in progress.
func (c *Controller) PointerMove(x, y float64) {
	switch c.phase {
	case Creating:
		px, py := geom.ClampPoint(x, y, c.width, c.height)
		c.live = geom.FromCorners(c.anchorX, c.anchorY, px, py)
	case Dragging:
		if !c.targetAlive() {
			c.reset()
			return
		}
		moved := geom.Rect{
			Left:   x - c.grabDX,
			Top:    y - c.grabDY,
			Width:  c.live.Width,
			Height: c.live.Height,
		}
		c.live = geom.ClampPosition(moved, c.width, c.height)
	case Resizing:
		if !c.targetAlive() {
			c.reset()
			return
		}
		px, py := geom.ClampPoint(x, y, c.width, c.height)
		// The dragged corner may cross the fixed anchor; FromCorners swaps
		// coordinates so the rectangle stays normalized.
		r := geom.FromCorners(c.anchorX, c.anchorY, px, py)
		if r.MeetsMin(geom.MinFootprint) {
			c.live = r
		}
	}
}

// PointerUp completes the gesture and commits the result to the store.
func (c *Controller) PointerUp(x, y float64) {
	switch c.phase {
	case Creating:
		c.PointerMove(x, y)
		r := c.live
		c.reset()
		if !r.MeetsMin(geom.MinFootprint) {
			return
		}
		if c.snap && c.pageImg != nil {
			r = SnapToContents(c.pageImg, r, c.width, c.height)
		}
		text := ""
		if c.runs != nil {
			text = ExtractText(c.runs, r)
		}
		c.store.Add(annot.Annotation{
			Left:       r.Left,
			Top:        r.Top,
			Width:      r.Width,
			Height:     r.Height,
			PageNumber: c.page,
			PageWidth:  c.width,
			PageHeight: c.height,
			Text:       text,
			Type:       c.defaultType,
		})
	case Dragging:
		c.PointerMove(x, y)
		id, r := c.target, c.live
		c.reset()
		a, ok := c.store.Get(id)
		if !ok {
			return
		}
		authored := geom.ToAuthored(r, c.width, c.height, a.PageWidth, a.PageHeight)
		c.store.Update(id, store.Patch{Left: &authored.Left, Top: &authored.Top})
	case Resizing:
		c.PointerMove(x, y)
		id, r := c.target, c.live
		c.reset()
		a, ok := c.store.Get(id)
		if !ok {
			return
		}
		authored := geom.ToAuthored(r, c.width, c.height, a.PageWidth, a.PageHeight)
		c.store.Update(id, store.Patch{
			Left:   &authored.Left,
			Top:    &authored.Top,
			Width:  &authored.Width,
			Height: &authored.Height,
		})
	}
}

// DeleteSelected removes the current selection, the keyboard-delete path.
func (c *Controller) DeleteSelected() bool {
	id := c.store.Selected()
	if id == "" {
		return false
	}
	if c.target == id {
		c.reset()
	}
	return c.store.Delete(id)
}

// Box is one annotation prepared for painting.
type Box struct {
	ID       string
	Rect     geom.Rect
	Type     annot.Type
	Text     string
	Seq      int
	Selected bool
}

// Frame is the immutable view-model for the displayed page. Seq is the
// 1-based position within the page's reading order, derived state that is
// never persisted. Preview is the dashed in-progress rectangle during a
// create gesture. While a drag or resize is live, the target's Rect is the
// interaction rectangle rather than the stored one.
type Frame struct {
	Page    int
	Width   float64
	Height  float64
	Boxes   []Box
	Preview *geom.Rect
	Editing string
}

// Frame renders the current page's annotations from the store's snapshot.
func (c *Controller) Frame() Frame {
	snap := c.store.Snapshot()
	f := Frame{
		Page:    c.page,
		Width:   c.width,
		Height:  c.height,
		Editing: c.editing,
	}
	seq := 0
	for _, a := range snap.Annotations {
		if a.PageNumber != c.page {
			continue
		}
		seq++
		r := geom.ToScreen(a, c.width, c.height)
		if c.liveSet && a.ID == c.target && (c.phase == Dragging || c.phase == Resizing) {
			r = c.live
		}
		f.Boxes = append(f.Boxes, Box{
			ID:       a.ID,
			Rect:     r,
			Type:     a.Type,
			Text:     a.Text,
			Seq:      seq,
			Selected: a.ID == snap.Selected,
		})
	}
	if c.phase == Creating && c.liveSet {
		preview := c.live
		f.Preview = &preview
	}
	return f
}

// handleAt reports which of the rect's corner handles, if any, contains the
// point.
func handleAt(r geom.Rect, x, y float64) (geom.Corner, bool) {
	for _, corner := range geom.Corners() {
		hx, hy := r.CornerPoint(corner)
		handle := geom.Rect{Left: hx - handleHalf, Top: hy - handleHalf, Width: 2 * handleHalf, Height: 2 * handleHalf}
		if handle.Contains(x, y) {
			return corner, true
		}
	}
	return 0, false
}

func (c *Controller) targetAlive() bool {
	_, ok := c.store.Get(c.target)
	return ok
}
