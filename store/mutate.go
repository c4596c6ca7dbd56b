package store

import (
	"math"
	"time"

	"github.com/docpane/layoutstudio/annot"
)

// markDirtyLocked flags unsaved work and restarts the autosave debounce.
// Only the most recent mutation's timer survives a burst of edits. Stop on
// an elapsed timer is a no-op, so the callback checks it is still the
// registered timer before firing; a superseded one bails out.
func (s *Store) markDirtyLocked() {
	s.dirty = true
	s.gen++
	if s.persistFn == nil {
		return
	}
	if s.autosave != nil {
		s.autosave.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(s.autosaveDelay, func() {
		s.mu.Lock()
		if s.autosave != t {
			s.mu.Unlock()
			return
		}
		s.autosave = nil
		s.mu.Unlock()
		s.persistFn()
	})
	s.autosave = t
}

// Add assigns a fresh id and inserts the annotation so the flat collection
// stays grouped by page: immediately after the last annotation on the same
// page, else after the block of the nearest earlier page, else at the
// start. Returns the stored record.
func (s *Store) Add(a annot.Annotation) annot.Annotation {
	a.ID = annot.NewID()
	a.Normalize()

	s.mu.Lock()
	idx := s.insertIndexLocked(a.PageNumber)
	s.items = append(s.items, annot.Annotation{})
	copy(s.items[idx+1:], s.items[idx:])
	s.items[idx] = a
	s.markDirtyLocked()
	emit := s.notifyLocked()
	s.mu.Unlock()

	emit()
	return a
}

func (s *Store) insertIndexLocked(page int) int {
	idx := 0
	for i, a := range s.items {
		if a.PageNumber <= page {
			idx = i + 1
		}
	}
	return idx
}

// Patch carries partial updates. Nil fields are left untouched, which
// distinguishes "not provided" from "set to zero".
type Patch struct {
	Left   *float64
	Top    *float64
	Width  *float64
	Height *float64
	Text   *string
	Type   *annot.Type
}

// Update merges the patch into the annotation with the given id. Width and
// height take their absolute value, so a resize committed from any drag
// direction lands positive. Returns false (and does nothing) if the id is
// not present.
func (s *Store) Update(id string, p Patch) bool {
	return s.applyPatch(id, p, true)
}

// UpdateQuiet is Update without a change notification. High-frequency text
// edits use it so subscribers are not forced to re-render per keystroke.
func (s *Store) UpdateQuiet(id string, p Patch) bool {
	return s.applyPatch(id, p, false)
}

func (s *Store) applyPatch(id string, p Patch, notify bool) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	a := &s.items[i]
	if p.Left != nil {
		a.Left = *p.Left
	}
	if p.Top != nil {
		a.Top = *p.Top
	}
	if p.Width != nil {
		a.Width = math.Abs(*p.Width)
	}
	if p.Height != nil {
		a.Height = math.Abs(*p.Height)
	}
	if p.Text != nil {
		a.Text = *p.Text
	}
	if p.Type != nil && p.Type.Valid() {
		a.Type = *p.Type
	}
	s.markDirtyLocked()
	emit := func() {}
	if notify {
		emit = s.notifyLocked()
	}
	s.mu.Unlock()

	emit()
	return true
}

// DebouncedTextUpdate coalesces rapid text edits for one annotation into a
// single quiet mutation once typing pauses. A newer edit for the same id
// cancels and replaces the pending one. An elapsed timer's callback may
// already be blocked on the lock when it is cancelled, so the callback only
// applies if it is still the timer registered for the id; otherwise a newer
// edit, a flush or a document switch owns the id and the stale text is
// discarded.
func (s *Store) DebouncedTextUpdate(id, text string) {
	s.mu.Lock()
	if t, ok := s.textTimers[id]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(s.textDelay, func() {
		s.mu.Lock()
		if s.textTimers[id] != t {
			s.mu.Unlock()
			return
		}
		delete(s.textTimers, id)
		s.mu.Unlock()
		// No-ops when the id is gone, e.g. after the annotation was deleted.
		s.applyPatch(id, Patch{Text: &text}, false)
	})
	s.textTimers[id] = t
	s.mu.Unlock()
}

// FlushTextUpdate cancels any pending coalesced edit for the id and applies
// the text immediately. Used on input blur.
func (s *Store) FlushTextUpdate(id, text string) {
	s.mu.Lock()
	if t, ok := s.textTimers[id]; ok {
		t.Stop()
		delete(s.textTimers, id)
	}
	s.mu.Unlock()
	s.applyPatch(id, Patch{Text: &text}, false)
}

// Delete removes the annotation. A deleted selection is cleared along with
// any pending text edit for the id.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	if s.selected == id {
		s.selected = ""
	}
	if t, ok := s.textTimers[id]; ok {
		t.Stop()
		delete(s.textTimers, id)
	}
	s.markDirtyLocked()
	emit := s.notifyLocked()
	s.mu.Unlock()

	emit()
	return true
}

// Select sets the current selection to the given id, or clears it with "".
// Selection is transient display state: it notifies but never dirties.
func (s *Store) Select(id string) {
	s.mu.Lock()
	if id != "" && s.indexLocked(id) < 0 {
		id = ""
	}
	s.selected = id
	emit := s.notifyLocked()
	s.mu.Unlock()

	emit()
}

// Reorder rewrites the relative order of one page's annotations to match
// order, leaving every other page untouched. The id list must be an exact
// permutation of the ids currently on that page; anything else is silently
// rejected with no partial reorder.
func (s *Store) Reorder(page int, order []string) bool {
	s.mu.Lock()
	if len(order) == 0 {
		s.mu.Unlock()
		return false
	}

	current := map[string]annot.Annotation{}
	count := 0
	for _, a := range s.items {
		if a.PageNumber == page {
			current[a.ID] = a
			count++
		}
	}
	if len(order) != count {
		s.mu.Unlock()
		return false
	}
	seen := map[string]bool{}
	for _, id := range order {
		if _, ok := current[id]; !ok || seen[id] {
			s.mu.Unlock()
			return false
		}
		seen[id] = true
	}

	next := 0
	for i, a := range s.items {
		if a.PageNumber == page {
			s.items[i] = current[order[next]]
			next++
		}
	}
	s.markDirtyLocked()
	emit := s.notifyLocked()
	s.mu.Unlock()

	emit()
	return true
}

// ReplaceAll swaps in a whole new collection, typically on file switch.
// Each item is validated with partial acceptance; items without an id get a
// fresh one. The dirty flag clears and no save is scheduled: loading is not
// an edit. Pending text timers are cancelled since their ids no longer
// belong to this session.
func (s *Store) ReplaceAll(items []annot.Annotation) *annot.LoadReport {
	report := &annot.LoadReport{}
	accepted := make([]annot.Annotation, 0, len(items))
	for _, a := range items {
		a.Normalize()
		if err := a.Validate(); err != nil {
			report.Rejected++
			if len(report.Samples) < annot.MaxRejectSamples {
				report.Samples = append(report.Samples, err.Error())
			}
			continue
		}
		if a.ID == "" {
			a.ID = annot.NewID()
		}
		accepted = append(accepted, a)
	}
	report.Accepted = len(accepted)

	s.mu.Lock()
	s.stopTimersLocked()
	s.items = accepted
	s.selected = ""
	s.dirty = false
	s.gen++
	emit := s.notifyLocked()
	s.mu.Unlock()

	emit()

	if report.Rejected > 0 {
		s.log.Warn().
			Int("accepted", report.Accepted).
			Int("rejected", report.Rejected).
			Strs("samples", report.Samples).
			Msg("dropped invalid annotations on load")
	}
	return report
}
