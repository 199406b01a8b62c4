// Package timing holds the data model shared by recording, playback and the
// script editor: waypoint references, timing entries and sequences.
package timing

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects what kind of waypoint a sequence moves between.
type Mode int

const (
	// ModeKeyframe moves between keyframe markers of a single visual.
	ModeKeyframe Mode = iota + 1
	// ModeOriginal moves between distinct images of a grouped set.
	ModeOriginal
)

func (m Mode) String() string {
	switch m {
	case ModeKeyframe:
		return "keyframe"
	case ModeOriginal:
		return "original"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeKeyframe || m == ModeOriginal
}

// ParseMode accepts "keyframe" or "original" (also "image").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keyframe", "keyframes":
		return ModeKeyframe, nil
	case "original", "image", "images":
		return ModeOriginal, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// RefKind is the variant tag of a WaypointRef.
type RefKind int

const (
	RefKeyframe RefKind = iota + 1
	RefImagePair
)

// WaypointRef identifies the target of one timed transition. It is either a
// keyframe id or a (from, to) image pair.
type WaypointRef struct {
	kind   RefKind
	id     int64
	fromID int64
}

// Keyframe builds a keyframe reference.
func Keyframe(id int64) WaypointRef {
	return WaypointRef{kind: RefKeyframe, id: id}
}

// ImagePair builds an image transition reference.
func ImagePair(fromID, toID int64) WaypointRef {
	return WaypointRef{kind: RefImagePair, fromID: fromID, id: toID}
}

func (r WaypointRef) Kind() RefKind { return r.kind }

// IsZero reports whether r was never set.
func (r WaypointRef) IsZero() bool { return r.kind == 0 }

// KeyframeID returns the keyframe id and true for keyframe refs.
func (r WaypointRef) KeyframeID() (int64, bool) {
	if r.kind != RefKeyframe {
		return 0, false
	}
	return r.id, true
}

// Pair returns the image pair and true for image refs.
func (r WaypointRef) Pair() (fromID, toID int64, ok bool) {
	if r.kind != RefImagePair {
		return 0, 0, false
	}
	return r.fromID, r.id, true
}

// TargetID is the waypoint the transition lands on: the keyframe id or the
// pair's destination image.
func (r WaypointRef) TargetID() int64 { return r.id }

// Matches reports whether the variant belongs to mode.
func (r WaypointRef) Matches(mode Mode) bool {
	switch mode {
	case ModeKeyframe:
		return r.kind == RefKeyframe
	case ModeOriginal:
		return r.kind == RefImagePair
	default:
		return false
	}
}

func (r WaypointRef) String() string {
	switch r.kind {
	case RefKeyframe:
		return fmt.Sprintf("keyframe(%d)", r.id)
	case RefImagePair:
		return fmt.Sprintf("image(%d->%d)", r.fromID, r.id)
	default:
		return "none"
	}
}

// TimingEntry is one timed transition: wait Duration seconds, then move to Ref.
type TimingEntry struct {
	SequenceOrder int
	Ref           WaypointRef
	Duration      float64 // seconds
}

// Sequence is the ordered list of entries owned by (OwnerID, Mode).
type Sequence struct {
	OwnerID int64
	Mode    Mode
	Entries []TimingEntry
}

// Len returns the number of entries.
func (s Sequence) Len() int { return len(s.Entries) }

// TotalDuration sums all entry durations.
func (s Sequence) TotalDuration() float64 {
	total := 0.0
	for _, e := range s.Entries {
		total += e.Duration
	}
	return total
}

// Clone returns a deep copy so callers can keep a snapshot.
func (s Sequence) Clone() Sequence {
	out := s
	out.Entries = append([]TimingEntry(nil), s.Entries...)
	return out
}

// Validate checks the sequence invariants: contiguous 0-based order, finite
// non-negative durations and refs of the sequence's mode.
func (s Sequence) Validate() error {
	return ValidateEntries(s.Mode, s.Entries)
}

// ValidateEntries applies the Sequence invariants to a bare entry list.
func ValidateEntries(mode Mode, entries []TimingEntry) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid mode %v", mode)
	}
	for i, e := range entries {
		if e.SequenceOrder != i {
			return fmt.Errorf("entry %d: sequence order %d, want %d", i, e.SequenceOrder, i)
		}
		if !ValidDuration(e.Duration) {
			return fmt.Errorf("entry %d: invalid duration %v", i, e.Duration)
		}
		if !e.Ref.Matches(mode) {
			return fmt.Errorf("entry %d: ref %v does not match mode %v", i, e.Ref, mode)
		}
	}
	return nil
}

// ValidDuration reports whether d is a usable duration in seconds.
func ValidDuration(d float64) bool {
	return d >= 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
}

// Renumber rewrites SequenceOrder to 0..N-1 in slice order.
func Renumber(entries []TimingEntry) []TimingEntry {
	for i := range entries {
		entries[i].SequenceOrder = i
	}
	return entries
}
