// package repositories implements SQLite persistence for run history.
//
// Sequence numbers provide stable, human-readable ordering independent of
// UUIDs and creation timestamps; they are generated atomically via
// [NextSequence].
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"weeklymix/internal/models"
	"weeklymix/internal/shared"
)

// NextSequence atomically increments and returns the next sequence number for
// the given table, backed by a dedicated "<table>_sequence" row.
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	if _, err := tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable)); err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	if err := tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// Run is a persisted weekly mix run.
type Run struct {
	ID       string
	Sequence int
	models.MixSummary
}

// RunRepository persists finished runs and their track lists.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save inserts a run and its tracks in one transaction and returns the
// generated run ID.
func (r *RunRepository) Save(ctx context.Context, summary models.MixSummary, tracks []models.MixTrack) (string, error) {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return "", fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	createdAt := summary.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, sequence, playlist_name, description, source_week, target_week,
			ai_count, anchor_count, search_count, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		sequence,
		summary.PlaylistName,
		nullableString(summary.Description),
		summary.SourceWeek,
		summary.TargetWeek,
		summary.AICount,
		summary.AnchorCount,
		summary.SearchCount,
		createdAt,
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for _, track := range tracks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_tracks (run_id, position, uri, artist_id, slot)
			VALUES (?, ?, ?, ?, ?)
		`, id, track.Position, track.URI, nullableString(track.ArtistID), string(track.Slot)); err != nil {
			return "", fmt.Errorf("failed to insert run track: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	return id, nil
}

// Get retrieves a run by ID.
func (r *RunRepository) Get(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, sequence, playlist_name, description, source_week, target_week,
			ai_count, anchor_count, search_count, created_at
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, shared.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. A limit of 0 returns all.
func (r *RunRepository) List(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, sequence, playlist_name, description, source_week, target_week,
			ai_count, anchor_count, search_count, created_at
		FROM runs
		ORDER BY sequence DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Tracks returns a run's track list in playlist order.
func (r *RunRepository) Tracks(ctx context.Context, runID string) ([]models.MixTrack, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT position, uri, artist_id, slot
		FROM run_tracks
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.MixTrack
	for rows.Next() {
		var track models.MixTrack
		var artistID sql.NullString
		var slot string
		if err := rows.Scan(&track.Position, &track.URI, &artistID, &slot); err != nil {
			return nil, fmt.Errorf("failed to scan run track: %w", err)
		}
		track.ArtistID = artistID.String
		track.Slot = models.SlotName(slot)
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// Delete removes a run and its tracks.
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM run_tracks WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete run tracks: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s: %w", id, shared.ErrInvalidInput)
	}

	return tx.Commit()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var run Run
	var description sql.NullString
	if err := row.Scan(
		&run.ID,
		&run.Sequence,
		&run.PlaylistName,
		&description,
		&run.SourceWeek,
		&run.TargetWeek,
		&run.AICount,
		&run.AnchorCount,
		&run.SearchCount,
		&run.CreatedAt,
	); err != nil {
		return nil, err
	}
	run.Description = description.String
	return &run, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
