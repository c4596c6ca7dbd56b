// Package store holds the authoritative annotation collection for one open
// document and serializes every mutation through it: validation, page-aware
// insertion ordering, dirty tracking, debounced persistence scheduling and
// change notification.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/docpane/layoutstudio/annot"
)

// Gateway is the persistence collaborator the store drives. Implementations
// load and save annotation JSON, enumerate available files and push a saved
// file to a remote target.
type Gateway interface {
	ListFiles(ctx context.Context) (pdfs, jsons []string, err error)
	LoadAnnotations(ctx context.Context, filename string) ([]byte, error)
	SaveAnnotations(ctx context.Context, filename string, items []annot.Annotation) error
	SyncFile(ctx context.Context, filename string) error
}

const (
	// DefaultAutosaveDelay is the quiescence window after the last mutation
	// before a persist request fires.
	DefaultAutosaveDelay = 2 * time.Second
	// DefaultTextDebounce is the quiescence window coalescing rapid text
	// edits on a single annotation.
	DefaultTextDebounce = 500 * time.Millisecond
)

// Store is the single source of truth for a document session. All reads go
// through Snapshot or the query helpers; all writes go through the mutation
// methods so dirty tracking and notification stay consistent.
type Store struct {
	mu sync.Mutex

	gw  Gateway
	log zerolog.Logger

	items    []annot.Annotation
	selected string

	dirty     bool
	saving    bool
	syncing   bool
	lastSaved time.Time

	// gen increments on every mutation; Save clears dirty only when no
	// mutation slipped in while the write was in flight.
	gen uint64

	autosaveDelay time.Duration
	textDelay     time.Duration
	autosave      *time.Timer
	textTimers    map[string]*time.Timer
	persistFn     func()

	listeners  map[int]func(Snapshot)
	idListener int
}

// Option configures a Store during creation.
type Option func(*Store)

// WithGateway sets the persistence collaborator used by Load, Save and Sync.
func WithGateway(gw Gateway) Option { return func(s *Store) { s.gw = gw } }

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.log = l } }

// WithAutosaveDelay overrides the autosave quiescence window.
func WithAutosaveDelay(d time.Duration) Option { return func(s *Store) { s.autosaveDelay = d } }

// WithTextDebounce overrides the per-annotation text quiescence window.
func WithTextDebounce(d time.Duration) Option { return func(s *Store) { s.textDelay = d } }

// WithPersistRequest registers the callback fired once a burst of mutations
// settles. The callback decides what "persist now" means; the store does not
// know the active filename.
func WithPersistRequest(fn func()) Option { return func(s *Store) { s.persistFn = fn } }

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		log:           zerolog.Nop(),
		autosaveDelay: DefaultAutosaveDelay,
		textDelay:     DefaultTextDebounce,
		textTimers:    map[string]*time.Timer{},
		listeners:     map[int]func(Snapshot){},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close cancels any pending autosave and text timers.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimersLocked()
}

func (s *Store) stopTimersLocked() {
	if s.autosave != nil {
		s.autosave.Stop()
		s.autosave = nil
	}
	for id, t := range s.textTimers {
		t.Stop()
		delete(s.textTimers, id)
	}
}

// Snapshot is an immutable view of the session state handed to listeners.
type Snapshot struct {
	Annotations []annot.Annotation
	Selected    string
	Dirty       bool
	Saving      bool
	Syncing     bool
	LastSaved   time.Time
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	items := make([]annot.Annotation, len(s.items))
	copy(items, s.items)
	return Snapshot{
		Annotations: items,
		Selected:    s.selected,
		Dirty:       s.dirty,
		Saving:      s.saving,
		Syncing:     s.syncing,
		LastSaved:   s.lastSaved,
	}
}

// Subscribe registers a listener called with a fresh snapshot after every
// notifying mutation. The returned function removes the listener and may be
// called at any time without affecting other listeners.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.idListener
	s.idListener++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// notifyLocked collects the snapshot and listener set under the lock; the
// caller invokes the result after unlocking so listeners can call back into
// the store.
func (s *Store) notifyLocked() func() {
	if len(s.listeners) == 0 {
		return func() {}
	}
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(snap)
		}
	}
}

// Get returns the annotation with the given id.
func (s *Store) Get(id string) (annot.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	return annot.Annotation{}, false
}

// ByPage returns the ordered subsequence of annotations on the given page.
func (s *Store) ByPage(page int) []annot.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []annot.Annotation
	for _, a := range s.items {
		if a.PageNumber == page {
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of annotations across all pages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Selected returns the id of the current selection, or "".
func (s *Store) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// IsDirty reports whether mutations are pending persistence.
func (s *Store) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// IsSaving reports whether a save is in flight.
func (s *Store) IsSaving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// IsSyncing reports whether a remote sync is in flight.
func (s *Store) IsSyncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

// LastSaved returns the time of the last successful save.
func (s *Store) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, a := range s.items {
		if a.ID == id {
			return i
		}
	}
	return -1
}
