// Package storage defines the persistence boundary for timing sequences.
package storage

import (
	"context"
	"errors"

	"github.com/ivlev/slidecast/internal/timing"
)

// ErrNotFound indicates that a requested entry does not exist.
var ErrNotFound = errors.New("not found")

// SequenceStore persists timing entries keyed by (ownerID, mode). Every
// method runs in a single transaction: on error nothing is changed.
type SequenceStore interface {
	// LoadAll returns the entries ordered by SequenceOrder.
	LoadAll(ctx context.Context, ownerID int64, mode timing.Mode) ([]timing.TimingEntry, error)
	// ReplaceAll deletes every entry for (ownerID, mode) and inserts entries.
	ReplaceAll(ctx context.Context, ownerID int64, mode timing.Mode, entries []timing.TimingEntry) error
	// UpdateEntry rewrites the duration of one entry in place.
	UpdateEntry(ctx context.Context, ownerID int64, mode timing.Mode, sequenceOrder int, duration float64) error
}

// OwnerSummary describes one stored sequence.
type OwnerSummary struct {
	OwnerID       int64
	Mode          timing.Mode
	Entries       int
	TotalDuration float64
}

// Lister is implemented by stores that can enumerate what they hold.
type Lister interface {
	ListOwners(ctx context.Context) ([]OwnerSummary, error)
}

// LoadSequence wraps LoadAll into a timing.Sequence.
func LoadSequence(ctx context.Context, store SequenceStore, ownerID int64, mode timing.Mode) (timing.Sequence, error) {
	entries, err := store.LoadAll(ctx, ownerID, mode)
	if err != nil {
		return timing.Sequence{}, err
	}
	return timing.Sequence{OwnerID: ownerID, Mode: mode, Entries: entries}, nil
}
