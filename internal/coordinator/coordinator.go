// Package coordinator owns the active recording and playback sessions, one
// per owner, and routes their notifications to the owner's subscriber.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ivlev/slidecast/internal/logger"
	"github.com/ivlev/slidecast/internal/metrics"
	"github.com/ivlev/slidecast/internal/player"
	"github.com/ivlev/slidecast/internal/recorder"
	"github.com/ivlev/slidecast/internal/storage"
	"github.com/ivlev/slidecast/internal/timing"
)

const (
	// DefaultAutoPlayDelay is the settle time between a loop-completed
	// recording being saved and its playback starting.
	DefaultAutoPlayDelay = 300 * time.Millisecond
	DefaultAutoPlayCount = 1
)

const (
	kindRecording = "recording"
	kindPlayback  = "playback"
)

// NotificationSink receives the events of one owner. Errors and panics are
// logged; they never affect the session.
type NotificationSink interface {
	OnSwitchWaypointRequested(ref timing.WaypointRef) error
	OnPlaybackCompleted() error
	OnRecordingStopped(count int) error
}

// Config wires a Coordinator.
type Config struct {
	Store   storage.SequenceStore
	Clock   timing.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	AutoPlayDelay time.Duration
	AutoPlayCount int
}

type slot struct {
	recording *recorder.Session
	playback  *player.Session
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	store         storage.SequenceStore
	clock         timing.Clock
	log           *slog.Logger
	metrics       *metrics.Metrics
	autoPlayDelay time.Duration
	autoPlayCount int

	mu       sync.Mutex
	closed   bool
	slots    map[int64]*slot
	sinks    map[int64]NotificationSink
	autoplay map[int64]timing.Timer
}

func New(cfg Config) *Coordinator {
	c := &Coordinator{
		store:         cfg.Store,
		clock:         cfg.Clock,
		log:           logger.OrDefault(cfg.Logger),
		metrics:       cfg.Metrics,
		autoPlayDelay: cfg.AutoPlayDelay,
		autoPlayCount: cfg.AutoPlayCount,
		slots:         make(map[int64]*slot),
		sinks:         make(map[int64]NotificationSink),
		autoplay:      make(map[int64]timing.Timer),
	}
	if c.clock == nil {
		c.clock = timing.SystemClock{}
	}
	if c.autoPlayDelay <= 0 {
		c.autoPlayDelay = DefaultAutoPlayDelay
	}
	if c.autoPlayCount < 1 {
		c.autoPlayCount = DefaultAutoPlayCount
	}
	return c
}

// Subscribe attaches the owner's sink. A second subscribe without an
// unsubscribe in between fails with ErrAlreadySubscribed.
func (c *Coordinator) Subscribe(ownerID int64, sink NotificationSink) error {
	if sink == nil {
		return timing.New(timing.CodeInvalidArgument, "nil sink")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sinks[ownerID]; ok {
		return timing.New(timing.CodeAlreadySubscribed, "owner %d already has a subscriber", ownerID)
	}
	c.sinks[ownerID] = sink
	return nil
}

// Unsubscribe detaches the owner's sink, if any.
func (c *Coordinator) Unsubscribe(ownerID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sinks, ownerID)
}

// reserveLocked checks that ownerID is free and cancels any pending
// auto-play for it.
func (c *Coordinator) reserveLocked(ownerID int64) error {
	if c.closed {
		return timing.New(timing.CodeInvalidState, "coordinator is closed")
	}
	if s, ok := c.slots[ownerID]; ok {
		if s.recording != nil {
			return timing.New(timing.CodeAlreadyRecording, "owner %d is recording", ownerID)
		}
		return timing.New(timing.CodeBusy, "owner %d is playing back", ownerID)
	}
	if t, ok := c.autoplay[ownerID]; ok {
		t.Stop()
		delete(c.autoplay, ownerID)
	}
	return nil
}

// StartRecording begins capturing transitions for ownerID and returns the
// session id.
func (c *Coordinator) StartRecording(ownerID int64, mode timing.Mode) (string, error) {
	if !mode.Valid() {
		return "", timing.New(timing.CodeInvalidArgument, "invalid mode %v", mode)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reserveLocked(ownerID); err != nil {
		return "", err
	}
	rec := recorder.New(ownerID, mode, c.clock, c.log)
	rec.Start()
	c.slots[ownerID] = &slot{recording: rec}
	c.metrics.SessionStarted(kindRecording)
	return rec.ID, nil
}

func (c *Coordinator) recording(ownerID int64) (*recorder.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[ownerID]; ok && s.recording != nil {
		return s.recording, nil
	}
	return nil, timing.New(timing.CodeNotActive, "owner %d is not recording", ownerID)
}

func (c *Coordinator) playback(ownerID int64) (*player.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[ownerID]; ok && s.playback != nil {
		return s.playback, nil
	}
	return nil, timing.New(timing.CodeNotActive, "owner %d is not playing back", ownerID)
}

// RecordTransition stages one transition. With loopCompleted the recording
// is saved right away and playback of it starts after the auto-play delay.
func (c *Coordinator) RecordTransition(ctx context.Context, ownerID int64, ref timing.WaypointRef, loopCompleted bool) error {
	rec, err := c.recording(ownerID)
	if err != nil {
		return err
	}
	rec.RecordTiming(ref)
	if !loopCompleted {
		return nil
	}

	if _, err := c.StopRecording(ctx, ownerID); err != nil {
		return err
	}
	c.scheduleAutoPlay(ownerID, rec.Mode)
	return nil
}

func (c *Coordinator) scheduleAutoPlay(ownerID int64, mode timing.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	var t timing.Timer
	t = c.clock.AfterFunc(c.autoPlayDelay, func() {
		c.mu.Lock()
		if c.autoplay[ownerID] != t {
			c.mu.Unlock()
			return
		}
		delete(c.autoplay, ownerID)
		c.mu.Unlock()

		if _, err := c.StartPlayback(context.Background(), ownerID, mode, c.autoPlayCount); err != nil {
			c.log.Warn("auto-play after loop failed", "owner_id", ownerID, "error", err)
		}
	})
	c.autoplay[ownerID] = t
	c.log.Debug("auto-play scheduled", "owner_id", ownerID, "delay", c.autoPlayDelay)
}

// StopRecording saves the staged transitions and releases the owner. On a
// save failure the recording stays active so the caller can retry or
// discard it.
func (c *Coordinator) StopRecording(ctx context.Context, ownerID int64) (int, error) {
	rec, err := c.recording(ownerID)
	if err != nil {
		return 0, err
	}
	n, err := rec.Stop(ctx, c.store)
	c.metrics.RecordingCommitted(n, err)
	if err != nil {
		return 0, err
	}

	if !c.release(ownerID, func(s *slot) bool { return s.recording == rec }) {
		// Discarded or stopped concurrently; the save still happened.
		return n, nil
	}
	c.metrics.SessionEnded(kindRecording)

	if sink := c.sink(ownerID); sink != nil {
		c.deliver(ownerID, "recording_stopped", func() error { return sink.OnRecordingStopped(n) })
	}
	return n, nil
}

// DiscardRecording drops the recording without saving anything.
func (c *Coordinator) DiscardRecording(ownerID int64) error {
	rec, err := c.recording(ownerID)
	if err != nil {
		return err
	}
	if c.release(ownerID, func(s *slot) bool { return s.recording == rec }) {
		c.metrics.SessionEnded(kindRecording)
		c.log.Info("recording discarded", "owner_id", ownerID, "session_id", rec.ID, "entries", rec.Len())
	}
	return nil
}

// release frees ownerID if its slot still holds the expected session.
func (c *Coordinator) release(ownerID int64, match func(*slot) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[ownerID]
	if !ok || !match(s) {
		return false
	}
	delete(c.slots, ownerID)
	return true
}

// StartPlayback plays the persisted sequence playCount times and returns
// the session id.
func (c *Coordinator) StartPlayback(ctx context.Context, ownerID int64, mode timing.Mode, playCount int) (string, error) {
	if !mode.Valid() {
		return "", timing.New(timing.CodeInvalidArgument, "invalid mode %v", mode)
	}
	sess := player.New(ownerID, mode, player.Config{
		Store:    c.store,
		Clock:    c.clock,
		Logger:   c.log,
		Metrics:  c.metrics,
		Events:   ownerEvents{c: c, ownerID: ownerID},
		OnFinish: c.playbackFinished,
	})

	c.mu.Lock()
	if err := c.reserveLocked(ownerID); err != nil {
		c.mu.Unlock()
		return "", err
	}
	c.slots[ownerID] = &slot{playback: sess}
	c.metrics.SessionStarted(kindPlayback)
	c.mu.Unlock()

	if err := sess.Start(ctx, playCount); err != nil {
		if c.release(ownerID, func(s *slot) bool { return s.playback == sess }) {
			c.metrics.SessionEnded(kindPlayback)
		}
		return "", err
	}
	return sess.ID, nil
}

func (c *Coordinator) playbackFinished(sess *player.Session, state player.State) {
	if c.release(sess.OwnerID, func(s *slot) bool { return s.playback == sess }) {
		c.metrics.SessionEnded(kindPlayback)
	}
	c.log.Debug("playback released", "owner_id", sess.OwnerID, "session_id", sess.ID, "state", state.String())
}

func (c *Coordinator) Pause(ownerID int64) error {
	sess, err := c.playback(ownerID)
	if err != nil {
		return err
	}
	return sess.Pause()
}

func (c *Coordinator) Resume(ownerID int64) error {
	sess, err := c.playback(ownerID)
	if err != nil {
		return err
	}
	return sess.Resume()
}

// ManualOverride reports a transition the user made during playback.
func (c *Coordinator) ManualOverride(ctx context.Context, ownerID, fromID, toID int64) error {
	sess, err := c.playback(ownerID)
	if err != nil {
		return err
	}
	return sess.ManualOverride(ctx, fromID, toID)
}

// StopPlayback cancels the owner's playback. Stopping an owner with no
// playback returns ErrNotActive.
func (c *Coordinator) StopPlayback(ownerID int64) error {
	sess, err := c.playback(ownerID)
	if err != nil {
		return err
	}
	sess.Stop()
	return nil
}

// Status describes what an owner is doing.
type Status struct {
	OwnerID   int64
	Kind      string // "idle", "recording" or "playback"
	SessionID string
	Mode      timing.Mode
	// Recording
	Staged  int
	Elapsed time.Duration
	// Playback
	Playback *player.Status
}

func (c *Coordinator) Status(ownerID int64) Status {
	c.mu.Lock()
	s, ok := c.slots[ownerID]
	c.mu.Unlock()

	st := Status{OwnerID: ownerID, Kind: "idle"}
	switch {
	case !ok:
	case s.recording != nil:
		st.Kind = kindRecording
		st.SessionID = s.recording.ID
		st.Mode = s.recording.Mode
		st.Staged = s.recording.Len()
		st.Elapsed = s.recording.Elapsed()
	case s.playback != nil:
		ps := s.playback.Status()
		st.Kind = kindPlayback
		st.SessionID = ps.ID
		st.Mode = ps.Mode
		st.Playback = &ps
	}
	return st
}

// Close stops every playback, drops unsaved recordings and cancels pending
// auto-plays. Later starts fail with ErrInvalidState.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for owner, t := range c.autoplay {
		t.Stop()
		delete(c.autoplay, owner)
	}
	var playbacks []*player.Session
	for owner, s := range c.slots {
		if s.recording != nil {
			c.log.Warn("dropping unsaved recording", "owner_id", owner, "entries", s.recording.Len())
			delete(c.slots, owner)
			c.metrics.SessionEnded(kindRecording)
			continue
		}
		playbacks = append(playbacks, s.playback)
	}
	c.mu.Unlock()

	// Stop releases the slot through playbackFinished.
	for _, p := range playbacks {
		p.Stop()
	}
	return nil
}

func (c *Coordinator) sink(ownerID int64) NotificationSink {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sinks[ownerID]
}

func (c *Coordinator) deliver(ownerID int64, event string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("notification sink panicked", "owner_id", ownerID, "event", event, "panic", r)
			c.metrics.SinkFailed(event)
		}
	}()
	if err := fn(); err != nil {
		c.log.Warn("notification sink failed", "owner_id", ownerID, "event", event, "error", err)
		c.metrics.SinkFailed(event)
	}
}

// ownerEvents forwards player events to whichever sink the owner has at
// emission time.
type ownerEvents struct {
	c       *Coordinator
	ownerID int64
}

func (e ownerEvents) SwitchWaypointRequested(ref timing.WaypointRef) error {
	if sink := e.c.sink(e.ownerID); sink != nil {
		return sink.OnSwitchWaypointRequested(ref)
	}
	return nil
}

func (e ownerEvents) PlaybackCompleted() error {
	if sink := e.c.sink(e.ownerID); sink != nil {
		return sink.OnPlaybackCompleted()
	}
	return nil
}
