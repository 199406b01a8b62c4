package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/slidecast/internal/logger"
	"github.com/ivlev/slidecast/internal/storage/storagetest"
	"github.com/ivlev/slidecast/internal/timing"
)

func keyframeSeq() timing.Sequence {
	return timing.Sequence{OwnerID: 42, Mode: timing.ModeKeyframe, Entries: []timing.TimingEntry{
		{SequenceOrder: 0, Ref: timing.Keyframe(2), Duration: 3.2},
		{SequenceOrder: 1, Ref: timing.Keyframe(3), Duration: 1.0},
	}}
}

func TestFormatKeyframe(t *testing.T) {
	text := Format(keyframeSeq(), map[int64]int{1: 1, 2: 2, 3: 3})
	assert.Equal(t, "# owner 42, keyframe timings: <frame>  <seconds>s\n2  3.2s\n3  1.0s\n", text)
}

func TestFormatOriginal(t *testing.T) {
	seq := timing.Sequence{OwnerID: 5, Mode: timing.ModeOriginal, Entries: []timing.TimingEntry{
		{SequenceOrder: 0, Ref: timing.ImagePair(1, 2), Duration: 2},
	}}
	text := Format(seq, nil)
	assert.Contains(t, text, "1 -> 2 : 2.0\n")
}

func TestRoundTrip(t *testing.T) {
	for _, seq := range []timing.Sequence{
		keyframeSeq(),
		{OwnerID: 5, Mode: timing.ModeOriginal, Entries: []timing.TimingEntry{
			{SequenceOrder: 0, Ref: timing.ImagePair(1, 2), Duration: 0.5},
			{SequenceOrder: 1, Ref: timing.ImagePair(2, 7), Duration: 12},
		}},
	} {
		t.Run(seq.Mode.String(), func(t *testing.T) {
			lines, err := Parse(seq.Mode, Format(seq, map[int64]int{2: 2, 3: 3}))
			require.NoError(t, err)

			plan := Apply(seq.Entries, seq.Mode, lines)
			assert.False(t, plan.CountMismatch())
			assert.Equal(t, seq.Entries, plan.Entries)
		})
	}
}

func TestParseKeyframe(t *testing.T) {
	text := "# header\n\n1  0.5s\n  2\t3S  \r\n3 4\n"
	lines, err := Parse(timing.ModeKeyframe, text)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, Line{Number: 3, Frame: 1, Duration: 0.5}, lines[0])
	assert.Equal(t, Line{Number: 4, Frame: 2, Duration: 3}, lines[1])
	assert.Equal(t, Line{Number: 5, Frame: 3, Duration: 4}, lines[2])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		mode timing.Mode
		text string
		line int
		raw  string
	}{
		{"negative duration", timing.ModeKeyframe, "1  -2.0s", 1, "1  -2.0s"},
		{"not a number", timing.ModeKeyframe, "# c\n1  fast", 2, "1  fast"},
		{"nan", timing.ModeKeyframe, "1 NaN", 1, "1 NaN"},
		{"zero frame", timing.ModeKeyframe, "0 1s", 1, "0 1s"},
		{"extra field", timing.ModeKeyframe, "1 1s 2", 1, "1 1s 2"},
		{"missing arrow", timing.ModeOriginal, "1 2 : 3", 1, "1 2 : 3"},
		{"missing colon", timing.ModeOriginal, "1 -> 2 3", 1, "1 -> 2 3"},
		{"bad id", timing.ModeOriginal, "\na -> 2 : 3", 2, "a -> 2 : 3"},
		{"inf", timing.ModeOriginal, "1 -> 2 : +Inf", 1, "1 -> 2 : +Inf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.mode, tt.text)
			var fe *timing.FormatError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.line, fe.Line)
			assert.Equal(t, tt.raw, fe.Text)
		})
	}
}

func TestApplyKeyframeCountMismatch(t *testing.T) {
	original := keyframeSeq().Entries

	short := Apply(original, timing.ModeKeyframe, []Line{{Frame: 2, Duration: 9}})
	assert.True(t, short.CountMismatch())
	assert.InDelta(t, 9.0, short.Entries[0].Duration, 1e-9)
	assert.InDelta(t, 1.0, short.Entries[1].Duration, 1e-9, "unparsed entries keep their duration")

	long := Apply(original, timing.ModeKeyframe, []Line{{Duration: 1}, {Duration: 2}, {Duration: 3}})
	assert.True(t, long.CountMismatch())
	assert.Len(t, long.Entries, 2)

	assert.InDelta(t, 3.2, original[0].Duration, 1e-9, "original is not modified")
}

func TestApplyOriginalDefinesSequence(t *testing.T) {
	original := []timing.TimingEntry{{SequenceOrder: 0, Ref: timing.ImagePair(1, 2), Duration: 1}}
	plan := Apply(original, timing.ModeOriginal, []Line{
		{FromID: 1, ToID: 3, Duration: 2},
		{FromID: 3, ToID: 4, Duration: 5},
	})
	assert.Equal(t, []timing.TimingEntry{
		{SequenceOrder: 0, Ref: timing.ImagePair(1, 3), Duration: 2},
		{SequenceOrder: 1, Ref: timing.ImagePair(3, 4), Duration: 5},
	}, plan.Entries)
}

func TestEditorCommit(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New()
	store.Seed(42, timing.ModeKeyframe, keyframeSeq().Entries)
	editor := NewEditor(store, 42, timing.ModeKeyframe, map[int64]int{2: 2, 3: 3}, logger.Discard())

	text, err := editor.Export(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "2  3.2s")

	_, err = editor.Commit(ctx, "2  2.5s\n3  1.5s\n", false)
	require.NoError(t, err)
	stored := store.Entries(42, timing.ModeKeyframe)
	assert.InDelta(t, 2.5, stored[0].Duration, 1e-9)
	assert.InDelta(t, 1.5, stored[1].Duration, 1e-9)
}

func TestEditorCommitNeedsConfirmationOnMismatch(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New()
	store.Seed(42, timing.ModeKeyframe, keyframeSeq().Entries)
	editor := NewEditor(store, 42, timing.ModeKeyframe, nil, logger.Discard())

	plan, err := editor.Commit(ctx, "2  7.0s\n", false)
	assert.ErrorIs(t, err, timing.ErrConfirmationRequired)
	assert.Equal(t, 1, plan.ParsedCount)
	assert.Equal(t, 2, plan.OriginalCount)
	assert.InDelta(t, 3.2, store.Entries(42, timing.ModeKeyframe)[0].Duration, 1e-9)

	_, err = editor.Commit(ctx, "2  7.0s\n", true)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, store.Entries(42, timing.ModeKeyframe)[0].Duration, 1e-9)
}

func TestEditorCommitParseErrorWritesNothing(t *testing.T) {
	store := storagetest.New()
	store.Seed(42, timing.ModeKeyframe, keyframeSeq().Entries)
	editor := NewEditor(store, 42, timing.ModeKeyframe, nil, logger.Discard())

	_, err := editor.Commit(context.Background(), "1  -2.0s\n", true)
	var fe *timing.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, keyframeSeq().Entries, store.Entries(42, timing.ModeKeyframe))
}

func TestEditorSaveFailure(t *testing.T) {
	store := storagetest.New()
	store.Seed(42, timing.ModeKeyframe, keyframeSeq().Entries)
	store.SetFailReplace(assert.AnError)
	editor := NewEditor(store, 42, timing.ModeKeyframe, nil, logger.Discard())

	_, err := editor.Commit(context.Background(), "2  1s\n3  1s\n", false)
	assert.ErrorIs(t, err, timing.ErrSaveFailed)
}
