// Package panel presents one page's annotations as an ordered list the user
// can drag to reorder. The panel never mutates annotations itself; drops
// and deletes delegate to the store so dirty tracking stays consistent.
package panel

import (
	"strings"

	"github.com/docpane/layoutstudio/annot"
	"github.com/docpane/layoutstudio/store"
)

// previewLen caps the text shown per list item.
const previewLen = 60

// Item is one row of the reading-order list.
type Item struct {
	ID       string
	Seq      int
	Type     annot.Type
	Text     string
	Selected bool
}

// Panel lists the displayed page's annotations in reading order.
type Panel struct {
	store *store.Store
	page  int
}

// New creates a panel bound to the store.
func New(st *store.Store) *Panel {
	return &Panel{store: st, page: 1}
}

// SetPage switches the panel to another page.
func (p *Panel) SetPage(page int) { p.page = page }

// Page returns the displayed page number.
func (p *Panel) Page() int { return p.page }

// Items returns the current rows, rebuilt from the store on every call so
// a store notification only needs to trigger a re-render.
func (p *Panel) Items() []Item {
	selected := p.store.Selected()
	annots := p.store.ByPage(p.page)
	items := make([]Item, 0, len(annots))
	for i, a := range annots {
		items = append(items, Item{
			ID:       a.ID,
			Seq:      i + 1,
			Type:     a.Type,
			Text:     preview(a.Text),
			Selected: a.ID == selected,
		})
	}
	return items
}

// Move shifts the item at index from to index to and commits the resulting
// order. Out-of-range indices are ignored.
func (p *Panel) Move(from, to int) bool {
	annots := p.store.ByPage(p.page)
	if from < 0 || from >= len(annots) || to < 0 || to >= len(annots) || from == to {
		return false
	}
	ids := make([]string, len(annots))
	for i, a := range annots {
		ids[i] = a.ID
	}
	moved := ids[from]
	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids[:to], append([]string{moved}, ids[to:]...)...)
	return p.store.Reorder(p.page, ids)
}

// Drop commits an explicit id order, as produced by a drag-and-drop
// renderer reading its final element order. Delegates the permutation check
// to the store.
func (p *Panel) Drop(ids []string) bool {
	return p.store.Reorder(p.page, ids)
}

// Remove deletes the item's annotation.
func (p *Panel) Remove(id string) bool {
	return p.store.Delete(id)
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= previewLen {
		return text
	}
	return strings.TrimSpace(text[:previewLen]) + "..."
}
