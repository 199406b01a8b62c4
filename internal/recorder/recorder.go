// Package recorder captures live waypoint transitions into a timing sequence.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/slidecast/internal/logger"
	"github.com/ivlev/slidecast/internal/storage"
	"github.com/ivlev/slidecast/internal/timing"
)

// Session stages transition timings in memory until Stop commits them.
type Session struct {
	ID      string
	OwnerID int64
	Mode    timing.Mode

	clock timing.Clock
	log   *slog.Logger

	mu           sync.Mutex
	startedAt    time.Time
	lastSwitchAt time.Time
	staged       []timing.TimingEntry
}

// New returns an unstarted session. A nil clock means the system clock.
func New(ownerID int64, mode timing.Mode, clock timing.Clock, log *slog.Logger) *Session {
	if clock == nil {
		clock = timing.SystemClock{}
	}
	id := uuid.NewString()
	return &Session{
		ID:      id,
		OwnerID: ownerID,
		Mode:    mode,
		clock:   clock,
		log:     logger.OrDefault(log).With("session_id", id, "owner_id", ownerID, "mode", mode.String()),
	}
}

// Start drops anything staged and begins timing from now.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.startedAt = now
	s.lastSwitchAt = now
	s.staged = nil
	s.log.Debug("recording started")
}

// RecordTiming appends one entry timed from the previous switch. Refs of
// the wrong variant for the session mode are dropped.
func (s *Session) RecordTiming(ref timing.WaypointRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ref.Matches(s.Mode) {
		s.log.Warn("ignoring waypoint of another mode", "ref", ref.String())
		return
	}
	now := s.clock.Now()
	elapsed := now.Sub(s.lastSwitchAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	s.staged = append(s.staged, timing.TimingEntry{
		SequenceOrder: len(s.staged),
		Ref:           ref,
		Duration:      elapsed,
	})
	s.lastSwitchAt = now
	s.log.Debug("timing recorded", "order", len(s.staged)-1, "ref", ref.String(), "duration", elapsed)
}

// Stop persists the staged entries in one transaction and returns how many
// were saved. On failure the previous sequence is untouched and the staged
// entries are kept so Stop can be retried.
func (s *Session) Stop(ctx context.Context, store storage.SequenceStore) (int, error) {
	s.mu.Lock()
	entries := append([]timing.TimingEntry(nil), s.staged...)
	s.mu.Unlock()

	if err := store.ReplaceAll(ctx, s.OwnerID, s.Mode, entries); err != nil {
		s.log.Error("recording save failed", "entries", len(entries), "error", err)
		return 0, timing.Wrap(timing.CodeSaveFailed, err, "save recording for owner %d", s.OwnerID)
	}
	s.log.Info("recording saved", "entries", len(entries))
	return len(entries), nil
}

// Snapshot returns a copy of the staged entries.
func (s *Session) Snapshot() []timing.TimingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]timing.TimingEntry(nil), s.staged...)
}

// Len is the number of staged entries.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.staged)
}

// Elapsed is the wall time since Start.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Now().Sub(s.startedAt)
}

// StartedAt is when Start last ran.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}
