// Package storagetest provides an in-memory SequenceStore with failure
// injection for tests of the session packages.
package storagetest

import (
	"context"
	"sync"

	"github.com/ivlev/slidecast/internal/storage"
	"github.com/ivlev/slidecast/internal/timing"
)

type key struct {
	owner int64
	mode  timing.Mode
}

// Store is a map-backed SequenceStore. Setting FailReplace or FailUpdate
// makes the next calls fail without touching stored data.
type Store struct {
	mu      sync.Mutex
	data    map[key][]timing.TimingEntry
	Updates int

	FailLoad    error
	FailReplace error
	FailUpdate  error
}

var _ storage.SequenceStore = (*Store)(nil)

func New() *Store {
	return &Store{data: make(map[key][]timing.TimingEntry)}
}

// Seed stores entries without validation.
func (s *Store) Seed(ownerID int64, mode timing.Mode, entries []timing.TimingEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key{ownerID, mode}] = append([]timing.TimingEntry(nil), entries...)
}

func (s *Store) LoadAll(ctx context.Context, ownerID int64, mode timing.Mode) ([]timing.TimingEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailLoad != nil {
		return nil, s.FailLoad
	}
	return append([]timing.TimingEntry(nil), s.data[key{ownerID, mode}]...), nil
}

func (s *Store) ReplaceAll(ctx context.Context, ownerID int64, mode timing.Mode, entries []timing.TimingEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := timing.ValidateEntries(mode, entries); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReplace != nil {
		return s.FailReplace
	}
	s.data[key{ownerID, mode}] = append([]timing.TimingEntry(nil), entries...)
	return nil
}

func (s *Store) UpdateEntry(ctx context.Context, ownerID int64, mode timing.Mode, sequenceOrder int, duration float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdate != nil {
		return s.FailUpdate
	}
	entries := s.data[key{ownerID, mode}]
	for i := range entries {
		if entries[i].SequenceOrder == sequenceOrder {
			entries[i].Duration = duration
			s.Updates++
			return nil
		}
	}
	return storage.ErrNotFound
}

// Entries returns a copy of what is stored for (ownerID, mode).
func (s *Store) Entries(ownerID int64, mode timing.Mode) []timing.TimingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]timing.TimingEntry(nil), s.data[key{ownerID, mode}]...)
}

// SetFailReplace and friends flip failure injection under the store lock.
func (s *Store) SetFailReplace(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailReplace = err
}

func (s *Store) SetFailUpdate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailUpdate = err
}
