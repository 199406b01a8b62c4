package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/slidecast/internal/logger"
	"github.com/ivlev/slidecast/internal/storage/storagetest"
	"github.com/ivlev/slidecast/internal/timing"
	"github.com/ivlev/slidecast/internal/timing/faketime"
)

func newSession(owner int64, mode timing.Mode) (*Session, *faketime.Clock) {
	clock := faketime.New(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	return New(owner, mode, clock, logger.Discard()), clock
}

func TestRecordTimingAccounting(t *testing.T) {
	s, clock := newSession(42, timing.ModeKeyframe)
	s.Start()

	gaps := []float64{0.4, 2.5, 1.25, 0}
	for i, gap := range gaps {
		clock.AdvanceSeconds(gap)
		s.RecordTiming(timing.Keyframe(int64(i + 2)))
	}

	entries := s.Snapshot()
	require.Len(t, entries, len(gaps))
	sum := 0.0
	for i, e := range entries {
		assert.Equal(t, i, e.SequenceOrder)
		assert.InDelta(t, gaps[i], e.Duration, 1e-9)
		sum += e.Duration
	}
	assert.InDelta(t, s.Elapsed().Seconds(), sum, 1e-9)
}

func TestStartClearsStagedEntries(t *testing.T) {
	s, clock := newSession(1, timing.ModeKeyframe)
	s.Start()
	clock.AdvanceSeconds(1)
	s.RecordTiming(timing.Keyframe(2))
	require.Equal(t, 1, s.Len())

	clock.AdvanceSeconds(5)
	s.Start()
	assert.Equal(t, 0, s.Len())

	clock.AdvanceSeconds(0.5)
	s.RecordTiming(timing.Keyframe(3))
	assert.InDelta(t, 0.5, s.Snapshot()[0].Duration, 1e-9)
}

func TestRecordTimingIgnoresOtherMode(t *testing.T) {
	s, clock := newSession(1, timing.ModeOriginal)
	s.Start()
	clock.AdvanceSeconds(1)
	s.RecordTiming(timing.Keyframe(2))
	assert.Equal(t, 0, s.Len())

	s.RecordTiming(timing.ImagePair(1, 2))
	assert.Equal(t, 1, s.Len())
}

func TestStopPersistsConcreteScenario(t *testing.T) {
	store := storagetest.New()
	s, clock := newSession(42, timing.ModeKeyframe)
	s.Start()

	clock.AdvanceSeconds(3.2)
	s.RecordTiming(timing.Keyframe(2))
	clock.AdvanceSeconds(1.0)
	s.RecordTiming(timing.Keyframe(3))

	n, err := s.Stop(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored := store.Entries(42, timing.ModeKeyframe)
	require.Len(t, stored, 2)
	assert.Equal(t, timing.TimingEntry{SequenceOrder: 0, Ref: timing.Keyframe(2), Duration: 3.2}, roundEntry(stored[0]))
	assert.Equal(t, timing.TimingEntry{SequenceOrder: 1, Ref: timing.Keyframe(3), Duration: 1.0}, roundEntry(stored[1]))
}

func TestStopFailureKeepsPriorDataAndStagedEntries(t *testing.T) {
	store := storagetest.New()
	prior := []timing.TimingEntry{{SequenceOrder: 0, Ref: timing.Keyframe(9), Duration: 9}}
	store.Seed(7, timing.ModeKeyframe, prior)
	store.SetFailReplace(errors.New("disk full"))

	s, clock := newSession(7, timing.ModeKeyframe)
	s.Start()
	clock.AdvanceSeconds(1)
	s.RecordTiming(timing.Keyframe(1))

	n, err := s.Stop(context.Background(), store)
	require.Error(t, err)
	assert.ErrorIs(t, err, timing.ErrSaveFailed)
	assert.Zero(t, n)
	assert.Equal(t, prior, store.Entries(7, timing.ModeKeyframe))
	assert.Equal(t, 1, s.Len())

	store.SetFailReplace(nil)
	n, err = s.Stop(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func roundEntry(e timing.TimingEntry) timing.TimingEntry {
	e.Duration = float64(int64(e.Duration*1000+0.5)) / 1000
	return e
}
