package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docpane/layoutstudio/annot"
)

// ErrNoGateway reports persistence calls on a store built without one.
var ErrNoGateway = errors.New("store: no persistence gateway configured")

// Load reads the named annotation file through the gateway and replaces the
// collection. A non-array payload fails outright; individually invalid
// items are dropped and reported.
func (s *Store) Load(ctx context.Context, filename string) (*annot.LoadReport, error) {
	if s.gw == nil {
		return nil, ErrNoGateway
	}
	raw, err := s.gw.LoadAnnotations(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", filename, err)
	}
	items, decodeReport, err := annot.DecodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", filename, err)
	}
	report := s.ReplaceAll(items)
	report.Rejected += decodeReport.Rejected
	for _, sample := range decodeReport.Samples {
		if len(report.Samples) >= annot.MaxRejectSamples {
			break
		}
		report.Samples = append(report.Samples, sample)
	}
	s.log.Info().
		Str("file", filename).
		Int("accepted", report.Accepted).
		Int("rejected", report.Rejected).
		Msg("annotations loaded")
	return report, nil
}

// Save persists the collection to the named file. It is a no-op when
// nothing is dirty or a save is already in flight, so callers may invoke it
// freely. On failure the dirty flag is preserved for retry; on success it
// clears unless a mutation landed while the write was in flight.
func (s *Store) Save(ctx context.Context, filename string) error {
	if s.gw == nil {
		return ErrNoGateway
	}

	s.mu.Lock()
	if !s.dirty || s.saving {
		s.mu.Unlock()
		return nil
	}
	s.saving = true
	gen := s.gen
	items := make([]annot.Annotation, len(s.items))
	copy(items, s.items)
	emit := s.notifyLocked()
	s.mu.Unlock()
	emit()

	err := s.gw.SaveAnnotations(ctx, filename, items)

	s.mu.Lock()
	s.saving = false
	if err == nil && s.gen == gen {
		s.dirty = false
		s.lastSaved = time.Now()
	}
	emit = s.notifyLocked()
	s.mu.Unlock()
	emit()

	if err != nil {
		return fmt.Errorf("store: save %s: %w", filename, err)
	}
	s.log.Debug().Str("file", filename).Int("count", len(items)).Msg("annotations saved")
	return nil
}

// Sync composes a local save with a remote upload. It is a no-op while
// another sync or a plain save is in flight; the two operations' states are
// individually observable via IsSaving and IsSyncing.
func (s *Store) Sync(ctx context.Context, filename string) error {
	if s.gw == nil {
		return ErrNoGateway
	}

	s.mu.Lock()
	if s.syncing || s.saving {
		s.mu.Unlock()
		return nil
	}
	s.syncing = true
	emit := s.notifyLocked()
	s.mu.Unlock()
	emit()

	err := s.Save(ctx, filename)
	if err == nil {
		err = s.gw.SyncFile(ctx, filename)
	}

	s.mu.Lock()
	s.syncing = false
	emit = s.notifyLocked()
	s.mu.Unlock()
	emit()

	if err != nil {
		return fmt.Errorf("store: sync %s: %w", filename, err)
	}
	s.log.Info().Str("file", filename).Msg("annotations synced")
	return nil
}
