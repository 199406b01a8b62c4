// Package player replays a persisted timing sequence on cancellable timers.
//
// A Session owns one logical thread of control: each wait is a Clock.AfterFunc
// timer stamped with a generation number. Pause, Stop and ManualOverride bump
// the generation, so a timer that fires after being cancelled finds a stale
// stamp and emits nothing.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/slidecast/internal/logger"
	"github.com/ivlev/slidecast/internal/metrics"
	"github.com/ivlev/slidecast/internal/storage"
	"github.com/ivlev/slidecast/internal/timing"
)

// State is the playback lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateStopped
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Finished reports whether s is terminal.
func (s State) Finished() bool {
	return s == StateStopped || s == StateCompleted
}

// Events receives playback notifications. Errors are logged and counted;
// they never stop the schedule.
type Events interface {
	SwitchWaypointRequested(ref timing.WaypointRef) error
	PlaybackCompleted() error
}

// Config wires a Session to its collaborators.
type Config struct {
	Store   storage.SequenceStore
	Clock   timing.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Events  Events
	// OnFinish runs once, outside any lock, when the session stops or completes.
	OnFinish func(*Session, State)
}

// Session replays one owner's sequence.
type Session struct {
	ID      string
	OwnerID int64
	Mode    timing.Mode

	store    storage.SequenceStore
	clock    timing.Clock
	log      *slog.Logger
	metrics  *metrics.Metrics
	events   Events
	onFinish func(*Session, State)

	// emitMu keeps switch requests in schedule order.
	emitMu sync.Mutex

	mu            sync.Mutex
	seq           timing.Sequence
	index         int
	remaining     int
	state         State
	gen           uint64
	timer         timing.Timer
	waitStartedAt time.Time
	waitDuration  float64 // seconds armed for the current wait
	entryDuration float64 // full duration of the entry at index
	pending       float64 // remaining wait while paused

	done     chan struct{}
	doneOnce sync.Once
}

// New returns an idle session for (ownerID, mode).
func New(ownerID int64, mode timing.Mode, cfg Config) *Session {
	clock := cfg.Clock
	if clock == nil {
		clock = timing.SystemClock{}
	}
	id := uuid.NewString()
	return &Session{
		ID:       id,
		OwnerID:  ownerID,
		Mode:     mode,
		store:    cfg.Store,
		clock:    clock,
		log:      logger.OrDefault(cfg.Logger).With("session_id", id, "owner_id", ownerID, "mode", mode.String()),
		metrics:  cfg.Metrics,
		events:   cfg.Events,
		onFinish: cfg.OnFinish,
		done:     make(chan struct{}),
	}
}

// Start loads the persisted sequence and arms the first wait.
func (s *Session) Start(ctx context.Context, playCount int) error {
	if playCount < 1 {
		return timing.New(timing.CodeInvalidArgument, "play count must be at least 1, got %d", playCount)
	}
	if s.store == nil {
		return fmt.Errorf("sequence store is not configured")
	}

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != StateIdle {
		return timing.New(timing.CodeInvalidState, "cannot start a %s session", state)
	}

	seq, err := storage.LoadSequence(ctx, s.store, s.OwnerID, s.Mode)
	if err != nil {
		return fmt.Errorf("load sequence: %w", err)
	}
	if seq.Len() == 0 {
		return timing.New(timing.CodeEmptySequence, "owner %d has no %v timings", s.OwnerID, s.Mode)
	}
	if err := seq.Validate(); err != nil {
		return fmt.Errorf("stored sequence for owner %d: %w", s.OwnerID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return timing.New(timing.CodeInvalidState, "cannot start a %s session", s.state)
	}
	s.seq = seq
	s.index = 0
	s.remaining = playCount
	s.state = StatePlaying
	s.entryDuration = seq.Entries[0].Duration
	s.armLocked(s.entryDuration, s.clock.Now())
	s.log.Info("playback started", "entries", seq.Len(), "plays", playCount, "total_seconds", seq.TotalDuration())
	return nil
}

// armLocked schedules the end of a wait of d seconds that logically began
// at startedAt.
func (s *Session) armLocked(d float64, startedAt time.Time) {
	s.gen++
	token := s.gen
	s.waitStartedAt = startedAt
	s.waitDuration = d
	left := d - s.clock.Now().Sub(startedAt).Seconds()
	s.timer = s.clock.AfterFunc(timing.FromSeconds(left), func() { s.expire(token) })
}

// cancelLocked invalidates the in-flight wait.
func (s *Session) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// advanceLocked moves past the current entry and reports whether the
// sequence is now complete.
func (s *Session) advanceLocked() bool {
	s.index++
	if s.index < len(s.seq.Entries) {
		s.entryDuration = s.seq.Entries[s.index].Duration
		return false
	}
	if s.remaining > 1 {
		s.remaining--
		s.index = 0
		s.entryDuration = s.seq.Entries[0].Duration
		return false
	}
	s.remaining = 0
	s.state = StateCompleted
	return true
}

func (s *Session) expire(token uint64) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if token != s.gen || s.state != StatePlaying {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	ref := s.seq.Entries[s.index].Ref
	now := s.clock.Now()
	completed := s.advanceLocked()
	s.gen++
	token = s.gen
	if !completed {
		// The next wait starts now even though its timer is armed after
		// the notification returns.
		s.waitStartedAt = now
		s.waitDuration = s.entryDuration
	}
	s.mu.Unlock()

	s.metrics.SwitchEmitted(s.Mode.String())
	s.notify("switch", func() error { return s.events.SwitchWaypointRequested(ref) })

	if completed {
		s.complete()
		return
	}

	s.mu.Lock()
	if token == s.gen && s.state == StatePlaying {
		s.armLocked(s.waitDuration, s.waitStartedAt)
	}
	s.mu.Unlock()
}

func (s *Session) complete() {
	s.log.Info("playback completed")
	s.metrics.PlaybackCompleted()
	s.notify("completed", func() error { return s.events.PlaybackCompleted() })
	s.finish(StateCompleted)
}

func (s *Session) finish(state State) {
	s.doneOnce.Do(func() {
		if s.onFinish != nil {
			s.onFinish(s, state)
		}
		close(s.done)
	})
}

func (s *Session) notify(event string, fn func() error) {
	if s.events == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("notification sink panicked", "event", event, "panic", r)
			s.metrics.SinkFailed(event)
		}
	}()
	if err := fn(); err != nil {
		s.log.Warn("notification sink failed", "event", event, "error", err)
		s.metrics.SinkFailed(event)
	}
}

// Pause cancels the current wait and remembers how much of it was left.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return timing.New(timing.CodeInvalidState, "cannot pause a %s session", s.state)
	}
	s.cancelLocked()
	left := s.waitDuration - s.clock.Now().Sub(s.waitStartedAt).Seconds()
	if left < 0 {
		left = 0
	}
	s.pending = left
	s.state = StatePaused
	s.log.Debug("playback paused", "index", s.index, "pending_seconds", left)
	return nil
}

// Resume re-arms the wait for exactly the time that was left at Pause.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return timing.New(timing.CodeInvalidState, "cannot resume a %s session", s.state)
	}
	s.state = StatePlaying
	s.armLocked(s.pending, s.clock.Now())
	s.pending = 0
	s.log.Debug("playback resumed", "index", s.index, "wait_seconds", s.waitDuration)
	return nil
}

// ManualOverride handles a transition the user made themselves. The
// in-flight wait is cancelled; when toID is the waypoint the schedule
// expected next, the time actually spent is stored as the entry's new
// duration. The schedule then carries on from the following entry. A paused
// session stays paused. The returned error only reports a failed
// correction write; the advance happens regardless.
func (s *Session) ManualOverride(ctx context.Context, fromID, toID int64) error {
	s.mu.Lock()
	if s.state != StatePlaying && s.state != StatePaused {
		state := s.state
		s.mu.Unlock()
		return timing.New(timing.CodeInvalidState, "cannot override a %s session", state)
	}
	wasPaused := s.state == StatePaused
	s.cancelLocked()

	now := s.clock.Now()
	var actual float64
	if wasPaused {
		actual = s.entryDuration - s.pending
	} else {
		actual = s.entryDuration - s.waitDuration + now.Sub(s.waitStartedAt).Seconds()
	}
	if actual < 0 {
		actual = 0
	}
	entry := s.seq.Entries[s.index]
	matched := entry.Ref.TargetID() == toID

	completed := s.advanceLocked()
	if !completed {
		if wasPaused {
			s.pending = s.entryDuration
			s.waitStartedAt = now
			s.waitDuration = s.entryDuration
		} else {
			s.armLocked(s.entryDuration, now)
		}
	}
	s.mu.Unlock()

	s.log.Info("manual override",
		"from", fromID, "to", toID, "expected", entry.Ref.String(),
		"matched", matched, "actual_seconds", actual)

	var saveErr error
	if matched {
		saveErr = s.correct(ctx, entry.SequenceOrder, actual)
	}

	if completed {
		// Wait for any in-progress switch notification so completion is last.
		go func() {
			s.emitMu.Lock()
			defer s.emitMu.Unlock()
			s.complete()
		}()
	}
	return saveErr
}

func (s *Session) correct(ctx context.Context, order int, actual float64) error {
	err := s.store.UpdateEntry(ctx, s.OwnerID, s.Mode, order, actual)
	s.metrics.DriftCorrected(err)
	if err != nil {
		s.log.Error("drift correction failed", "order", order, "error", err)
		return timing.Wrap(timing.CodeSaveFailed, err, "correct entry %d for owner %d", order, s.OwnerID)
	}
	s.mu.Lock()
	if order < len(s.seq.Entries) && s.seq.Entries[order].SequenceOrder == order {
		s.seq.Entries[order].Duration = actual
	}
	s.mu.Unlock()
	s.log.Debug("drift corrected", "order", order, "duration", actual)
	return nil
}

// Stop cancels any pending wait. Calling it again is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state.Finished() {
		s.mu.Unlock()
		return
	}
	s.cancelLocked()
	s.state = StateStopped
	s.mu.Unlock()

	s.log.Info("playback stopped")
	s.finish(StateStopped)
}

// Done is closed once the session is stopped or completed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Status is a point-in-time view of a session.
type Status struct {
	ID             string
	OwnerID        int64
	Mode           timing.Mode
	State          State
	Index          int
	Entries        int
	RemainingPlays int
	// WaitLeft is the time until the next switch, in seconds.
	WaitLeft float64
}

// Status reports the current position and state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		ID:             s.ID,
		OwnerID:        s.OwnerID,
		Mode:           s.Mode,
		State:          s.state,
		Index:          s.index,
		Entries:        len(s.seq.Entries),
		RemainingPlays: s.remaining,
	}
	switch s.state {
	case StatePlaying:
		st.WaitLeft = s.waitDuration - s.clock.Now().Sub(s.waitStartedAt).Seconds()
		if st.WaitLeft < 0 {
			st.WaitLeft = 0
		}
	case StatePaused:
		st.WaitLeft = s.pending
	}
	return st
}

// Sequence returns a copy of the snapshot being played, including any
// corrections made during this session.
func (s *Session) Sequence() timing.Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Clone()
}
