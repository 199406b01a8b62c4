// Package script converts timing sequences to and from the plain-text form
// users edit by hand.
//
// Keyframe sequences use one line per entry, "<frame>  <seconds>s", where
// frame is the marker's 1-based display ordinal. Image sequences use
// "<fromID> -> <toID> : <seconds>". Blank lines and lines starting with '#'
// are ignored.
package script

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ivlev/slidecast/internal/storage"
	"github.com/ivlev/slidecast/internal/timing"
)

// Line is one parsed script line.
type Line struct {
	Number   int   // 1-based line in the source text
	Frame    int   // keyframe scripts
	FromID   int64 // image scripts
	ToID     int64 // image scripts
	Duration float64
}

// Format renders seq. ordinals maps keyframe ids to display ordinals; a
// keyframe without one is written with its id.
func Format(seq timing.Sequence, ordinals map[int64]int) string {
	var b strings.Builder
	switch seq.Mode {
	case timing.ModeKeyframe:
		fmt.Fprintf(&b, "# owner %d, keyframe timings: <frame>  <seconds>s\n", seq.OwnerID)
	default:
		fmt.Fprintf(&b, "# owner %d, image timings: <from> -> <to> : <seconds>\n", seq.OwnerID)
	}
	for _, e := range seq.Entries {
		if id, ok := e.Ref.KeyframeID(); ok {
			frame, found := ordinals[id]
			if !found {
				frame = int(id)
			}
			fmt.Fprintf(&b, "%d  %.1fs\n", frame, e.Duration)
			continue
		}
		if from, to, ok := e.Ref.Pair(); ok {
			fmt.Fprintf(&b, "%d -> %d : %.1f\n", from, to, e.Duration)
		}
	}
	return b.String()
}

// Parse reads a script in mode's grammar. The first malformed line stops
// parsing with a *timing.FormatError.
func Parse(mode timing.Mode, text string) ([]Line, error) {
	if !mode.Valid() {
		return nil, timing.New(timing.CodeInvalidArgument, "invalid mode %v", mode)
	}
	var lines []Line
	for i, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		var (
			line Line
			err  error
		)
		if mode == timing.ModeKeyframe {
			line, err = parseKeyframe(trimmed)
		} else {
			line, err = parsePair(trimmed)
		}
		if err != nil {
			return nil, &timing.FormatError{Line: i + 1, Text: raw, Err: err}
		}
		line.Number = i + 1
		lines = append(lines, line)
	}
	return lines, nil
}

func parseKeyframe(s string) (Line, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Line{}, fmt.Errorf("want <frame> <seconds>s, got %d fields", len(fields))
	}
	frame, err := strconv.Atoi(fields[0])
	if err != nil || frame < 1 {
		return Line{}, fmt.Errorf("frame %q is not a positive integer", fields[0])
	}
	d, err := parseDuration(fields[1])
	if err != nil {
		return Line{}, err
	}
	return Line{Frame: frame, Duration: d}, nil
}

func parsePair(s string) (Line, error) {
	from, rest, ok := strings.Cut(s, "->")
	if !ok {
		return Line{}, errors.New("missing '->'")
	}
	to, dur, ok := strings.Cut(rest, ":")
	if !ok {
		return Line{}, errors.New("missing ':'")
	}
	fromID, err := strconv.ParseInt(strings.TrimSpace(from), 10, 64)
	if err != nil {
		return Line{}, fmt.Errorf("from id %q is not an integer", strings.TrimSpace(from))
	}
	toID, err := strconv.ParseInt(strings.TrimSpace(to), 10, 64)
	if err != nil {
		return Line{}, fmt.Errorf("to id %q is not an integer", strings.TrimSpace(to))
	}
	d, err := parseDuration(strings.TrimSpace(dur))
	if err != nil {
		return Line{}, err
	}
	return Line{FromID: fromID, ToID: toID, Duration: d}, nil
}

func parseDuration(s string) (float64, error) {
	v := strings.TrimSuffix(strings.TrimSuffix(s, "s"), "S")
	d, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("duration %q is not a number", s)
	}
	if !timing.ValidDuration(d) {
		return 0, fmt.Errorf("duration %q must be a finite non-negative number", s)
	}
	return d, nil
}

// Plan is the result of applying a parsed script to the stored entries.
type Plan struct {
	Mode          timing.Mode
	Entries       []timing.TimingEntry
	ParsedCount   int
	OriginalCount int
}

// CountMismatch reports whether the script and the stored sequence have a
// different number of entries.
func (p Plan) CountMismatch() bool {
	return p.ParsedCount != p.OriginalCount
}

// Apply merges lines into original. For keyframe scripts line i only
// rewrites the duration of entry i; extra lines are ignored and entries
// past the last line keep their durations. For image scripts the lines
// define the sequence.
func Apply(original []timing.TimingEntry, mode timing.Mode, lines []Line) Plan {
	plan := Plan{Mode: mode, ParsedCount: len(lines), OriginalCount: len(original)}

	if mode == timing.ModeKeyframe {
		plan.Entries = append([]timing.TimingEntry(nil), original...)
		for i := 0; i < len(lines) && i < len(plan.Entries); i++ {
			plan.Entries[i].Duration = lines[i].Duration
		}
		return plan
	}

	plan.Entries = make([]timing.TimingEntry, len(lines))
	for i, l := range lines {
		order := i
		if i < len(original) {
			order = original[i].SequenceOrder
		}
		plan.Entries[i] = timing.TimingEntry{
			SequenceOrder: order,
			Ref:           timing.ImagePair(l.FromID, l.ToID),
			Duration:      l.Duration,
		}
	}
	return plan
}

// Save replaces the stored sequence with plan in one transaction.
func Save(ctx context.Context, store storage.SequenceStore, ownerID int64, mode timing.Mode, plan Plan) error {
	if err := store.ReplaceAll(ctx, ownerID, mode, plan.Entries); err != nil {
		return timing.Wrap(timing.CodeSaveFailed, err, "save script for owner %d", ownerID)
	}
	return nil
}
