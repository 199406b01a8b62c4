package script

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ivlev/slidecast/internal/logger"
	"github.com/ivlev/slidecast/internal/storage"
	"github.com/ivlev/slidecast/internal/timing"
)

// Editor runs the export / edit / import cycle for one owner's sequence.
type Editor struct {
	store    storage.SequenceStore
	ownerID  int64
	mode     timing.Mode
	ordinals map[int64]int
	log      *slog.Logger
}

// NewEditor binds an editor to (ownerID, mode). ordinals may be nil for
// image sequences.
func NewEditor(store storage.SequenceStore, ownerID int64, mode timing.Mode, ordinals map[int64]int, log *slog.Logger) *Editor {
	return &Editor{
		store:    store,
		ownerID:  ownerID,
		mode:     mode,
		ordinals: ordinals,
		log:      logger.OrDefault(log).With("owner_id", ownerID, "mode", mode.String()),
	}
}

// Export returns the stored sequence as script text.
func (e *Editor) Export(ctx context.Context) (string, error) {
	seq, err := storage.LoadSequence(ctx, e.store, e.ownerID, e.mode)
	if err != nil {
		return "", fmt.Errorf("load sequence: %w", err)
	}
	return Format(seq, e.ordinals), nil
}

// Prepare parses text and applies it to the stored sequence without saving.
func (e *Editor) Prepare(ctx context.Context, text string) (Plan, error) {
	lines, err := Parse(e.mode, text)
	if err != nil {
		return Plan{}, err
	}
	original, err := e.store.LoadAll(ctx, e.ownerID, e.mode)
	if err != nil {
		return Plan{}, fmt.Errorf("load sequence: %w", err)
	}
	return Apply(original, e.mode, lines), nil
}

// Commit saves the edited script. When the line count differs from the
// stored sequence the caller must pass confirmed; otherwise the plan is
// returned with ErrConfirmationRequired and nothing is written.
func (e *Editor) Commit(ctx context.Context, text string, confirmed bool) (Plan, error) {
	plan, err := e.Prepare(ctx, text)
	if err != nil {
		return Plan{}, err
	}
	if plan.CountMismatch() && !confirmed {
		return plan, timing.New(timing.CodeConfirmationRequired,
			"script has %d entries, stored sequence has %d", plan.ParsedCount, plan.OriginalCount)
	}
	if err := Save(ctx, e.store, e.ownerID, e.mode, plan); err != nil {
		e.log.Error("script import failed", "error", err)
		return plan, err
	}
	e.log.Info("script imported", "entries", len(plan.Entries), "parsed", plan.ParsedCount, "stored", plan.OriginalCount)
	return plan, nil
}
