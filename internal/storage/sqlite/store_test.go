package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/slidecast/internal/storage"
	"github.com/ivlev/slidecast/internal/timing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "timings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func keyframeEntries() []timing.TimingEntry {
	return []timing.TimingEntry{
		{SequenceOrder: 0, Ref: timing.Keyframe(2), Duration: 3.2},
		{SequenceOrder: 1, Ref: timing.Keyframe(3), Duration: 1.0},
	}
}

func TestReplaceAllThenLoadAll(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.ReplaceAll(ctx, 42, timing.ModeKeyframe, keyframeEntries()))

	got, err := store.LoadAll(ctx, 42, timing.ModeKeyframe)
	require.NoError(t, err)
	assert.Equal(t, keyframeEntries(), got)

	other, err := store.LoadAll(ctx, 42, timing.ModeOriginal)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestReplaceAllDropsPriorEntries(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.ReplaceAll(ctx, 7, timing.ModeKeyframe, keyframeEntries()))

	replacement := []timing.TimingEntry{{SequenceOrder: 0, Ref: timing.Keyframe(9), Duration: 0.5}}
	require.NoError(t, store.ReplaceAll(ctx, 7, timing.ModeKeyframe, replacement))

	got, err := store.LoadAll(ctx, 7, timing.ModeKeyframe)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestReplaceAllRejectsInvalidEntriesAndKeepsPriorData(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.ReplaceAll(ctx, 1, timing.ModeKeyframe, keyframeEntries()))

	bad := []timing.TimingEntry{
		{SequenceOrder: 0, Ref: timing.Keyframe(1), Duration: 1},
		{SequenceOrder: 2, Ref: timing.Keyframe(2), Duration: 1},
	}
	require.Error(t, store.ReplaceAll(ctx, 1, timing.ModeKeyframe, bad))

	wrongMode := []timing.TimingEntry{{SequenceOrder: 0, Ref: timing.ImagePair(1, 2), Duration: 1}}
	require.Error(t, store.ReplaceAll(ctx, 1, timing.ModeKeyframe, wrongMode))

	got, err := store.LoadAll(ctx, 1, timing.ModeKeyframe)
	require.NoError(t, err)
	assert.Equal(t, keyframeEntries(), got)
}

func TestReplaceAllRollsBackOnCancelledContext(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.ReplaceAll(context.Background(), 3, timing.ModeKeyframe, keyframeEntries()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, store.ReplaceAll(ctx, 3, timing.ModeKeyframe, nil))

	got, err := store.LoadAll(context.Background(), 3, timing.ModeKeyframe)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestImagePairsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	entries := []timing.TimingEntry{
		{SequenceOrder: 0, Ref: timing.ImagePair(10, 11), Duration: 2.5},
		{SequenceOrder: 1, Ref: timing.ImagePair(11, 12), Duration: 0},
	}

	require.NoError(t, store.ReplaceAll(ctx, 5, timing.ModeOriginal, entries))

	got, err := store.LoadAll(ctx, 5, timing.ModeOriginal)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestUpdateEntry(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.ReplaceAll(ctx, 42, timing.ModeKeyframe, keyframeEntries()))

	require.NoError(t, store.UpdateEntry(ctx, 42, timing.ModeKeyframe, 1, 1.75))

	got, err := store.LoadAll(ctx, 42, timing.ModeKeyframe)
	require.NoError(t, err)
	assert.Equal(t, 1.75, got[1].Duration)
	assert.Equal(t, timing.Keyframe(3), got[1].Ref)
	assert.Equal(t, 3.2, got[0].Duration)

	err = store.UpdateEntry(ctx, 42, timing.ModeKeyframe, 5, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Error(t, store.UpdateEntry(ctx, 42, timing.ModeKeyframe, 0, -1))
}

func TestListOwners(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.ReplaceAll(ctx, 42, timing.ModeKeyframe, keyframeEntries()))
	require.NoError(t, store.ReplaceAll(ctx, 43, timing.ModeOriginal,
		[]timing.TimingEntry{{SequenceOrder: 0, Ref: timing.ImagePair(1, 2), Duration: 2}}))

	owners, err := store.ListOwners(ctx)
	require.NoError(t, err)
	require.Len(t, owners, 2)
	assert.Equal(t, int64(42), owners[0].OwnerID)
	assert.Equal(t, timing.ModeKeyframe, owners[0].Mode)
	assert.Equal(t, 2, owners[0].Entries)
	assert.InDelta(t, 4.2, owners[0].TotalDuration, 1e-9)
	assert.Equal(t, timing.ModeOriginal, owners[1].Mode)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), " ")
	assert.Error(t, err)
}
