// Package sqlite provides a SQLite-backed SequenceStore.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/slidecast/internal/storage"
	"github.com/ivlev/slidecast/internal/storage/sqlite/migrations"
	"github.com/ivlev/slidecast/internal/storage/sqlitemigrate"
	"github.com/ivlev/slidecast/internal/timing"
	_ "modernc.org/sqlite"
)

// Store persists timing sequences in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var (
	_ storage.SequenceStore = (*Store)(nil)
	_ storage.Lister        = (*Store)(nil)
)

// Open opens (or creates) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps delete-then-insert transactions serialized.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func tableFor(mode timing.Mode) (string, error) {
	switch mode {
	case timing.ModeKeyframe:
		return "keyframe_timings", nil
	case timing.ModeOriginal:
		return "image_timings", nil
	default:
		return "", fmt.Errorf("unsupported mode %v", mode)
	}
}

// LoadAll returns the entries for (ownerID, mode) ordered by sequence_order.
func (s *Store) LoadAll(ctx context.Context, ownerID int64, mode timing.Mode) ([]timing.TimingEntry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var (
		rows *sql.Rows
		err  error
	)
	switch mode {
	case timing.ModeKeyframe:
		rows, err = s.sqlDB.QueryContext(ctx,
			`SELECT sequence_order, waypoint_id, 0, duration
			   FROM keyframe_timings
			  WHERE owner_id = ?
			  ORDER BY sequence_order ASC`,
			ownerID,
		)
	case timing.ModeOriginal:
		rows, err = s.sqlDB.QueryContext(ctx,
			`SELECT sequence_order, to_id, from_id, duration
			   FROM image_timings
			  WHERE owner_id = ?
			  ORDER BY sequence_order ASC`,
			ownerID,
		)
	default:
		return nil, fmt.Errorf("unsupported mode %v", mode)
	}
	if err != nil {
		return nil, fmt.Errorf("load %v timings: %w", mode, err)
	}
	defer rows.Close()

	var entries []timing.TimingEntry
	for rows.Next() {
		var (
			entry        timing.TimingEntry
			toID, fromID int64
		)
		if err := rows.Scan(&entry.SequenceOrder, &toID, &fromID, &entry.Duration); err != nil {
			return nil, fmt.Errorf("scan %v timing: %w", mode, err)
		}
		if mode == timing.ModeKeyframe {
			entry.Ref = timing.Keyframe(toID)
		} else {
			entry.Ref = timing.ImagePair(fromID, toID)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %v timings: %w", mode, err)
	}
	return entries, nil
}

// ReplaceAll deletes prior entries for (ownerID, mode) and inserts entries
// in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, ownerID int64, mode timing.Mode, entries []timing.TimingEntry) (err error) {
	if err := s.ready(ctx); err != nil {
		return err
	}
	table, err := tableFor(mode)
	if err != nil {
		return err
	}
	if err := timing.ValidateEntries(mode, entries); err != nil {
		return fmt.Errorf("replace %v timings: %w", mode, err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("delete %v timings: %w", mode, err)
	}

	createdAt := s.now().UTC().UnixMilli()
	var insert string
	if mode == timing.ModeKeyframe {
		insert = `INSERT INTO keyframe_timings (owner_id, waypoint_id, duration, sequence_order, created_at)
		          VALUES (?, ?, ?, ?, ?)`
	} else {
		insert = `INSERT INTO image_timings (owner_id, from_id, to_id, duration, sequence_order, created_at)
		          VALUES (?, ?, ?, ?, ?, ?)`
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if id, ok := entry.Ref.KeyframeID(); ok {
			_, err = stmt.ExecContext(ctx, ownerID, id, entry.Duration, entry.SequenceOrder, createdAt)
		} else {
			from, to, _ := entry.Ref.Pair()
			_, err = stmt.ExecContext(ctx, ownerID, from, to, entry.Duration, entry.SequenceOrder, createdAt)
		}
		if err != nil {
			return fmt.Errorf("insert %v timing %d: %w", mode, entry.SequenceOrder, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// UpdateEntry rewrites the duration of one stored entry.
func (s *Store) UpdateEntry(ctx context.Context, ownerID int64, mode timing.Mode, sequenceOrder int, duration float64) (err error) {
	if err := s.ready(ctx); err != nil {
		return err
	}
	table, err := tableFor(mode)
	if err != nil {
		return err
	}
	if !timing.ValidDuration(duration) {
		return fmt.Errorf("invalid duration %v", duration)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE `+table+` SET duration = ? WHERE owner_id = ? AND sequence_order = ?`,
		duration, ownerID, sequenceOrder,
	)
	if err != nil {
		return fmt.Errorf("update %v timing: %w", mode, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %v timing: %w", mode, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

// ListOwners summarizes every stored sequence.
func (s *Store) ListOwners(ctx context.Context) ([]storage.OwnerSummary, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT owner_id, 1, COUNT(*), COALESCE(SUM(duration), 0) FROM keyframe_timings GROUP BY owner_id
		 UNION ALL
		 SELECT owner_id, 2, COUNT(*), COALESCE(SUM(duration), 0) FROM image_timings GROUP BY owner_id
		 ORDER BY 1, 2`,
	)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	var out []storage.OwnerSummary
	for rows.Next() {
		var (
			summary storage.OwnerSummary
			mode    int
		)
		if err := rows.Scan(&summary.OwnerID, &mode, &summary.Entries, &summary.TotalDuration); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		summary.Mode = timing.Mode(mode)
		out = append(out, summary)
	}
	return out, rows.Err()
}
