package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Staged record states. Transitions are monotonic except pending->clean and
// pending->quarantined, which a corrected re-ingestion may reset to pending.
const (
	StatePending     = "pending"
	StateClean       = "clean"
	StateQuarantined = "quarantined"
	StatePublished   = "published"
)

// StagedGig is the canonical working unit of the pipeline. Exactly one row
// exists per identity key.
type StagedGig struct {
	ID            int64   `json:"id"`
	IdentityKey   string  `json:"identity_key"`
	Payload       string  `json:"payload"`
	State         string  `json:"state"`
	Source        string  `json:"source"`
	SourceBatchID string  `json:"source_batch_id"`
	ErrorReason   *string `json:"error_reason"`
	CreatedAt     float64 `json:"created_at"`
	UpdatedAt     float64 `json:"updated_at"`
}

// UpsertStagedTx inserts or refreshes the staged record for identityKey
// inside tx. A previously unseen key inserts a new pending row (created =
// true). An existing key has its payload replaced and its state reset to
// pending, with one exception: published rows are immutable history and are
// only reopened when allowRepublish is set. The second return reports
// whether the row was written at all.
func UpsertStagedTx(ctx context.Context, tx *sql.Tx, identityKey, payload, source, batchID string, allowRepublish bool) (created, written bool, err error) {
	var id int64
	var state string
	err = tx.QueryRowContext(ctx, `
		SELECT id, state FROM staged_records WHERE identity_key = ?
	`, identityKey).Scan(&id, &state)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO staged_records (identity_key, payload, state, source, source_batch_id)
			VALUES (?, ?, ?, ?, ?)
		`, identityKey, payload, StatePending, source, batchID)
		if err != nil {
			return false, false, fmt.Errorf("failed to insert staged record: %w", err)
		}
		return true, true, nil

	case err != nil:
		return false, false, fmt.Errorf("failed to look up staged record: %w", err)
	}

	if state == StatePublished && !allowRepublish {
		return false, false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE staged_records
		SET payload = ?, state = ?, source = ?, source_batch_id = ?, error_reason = NULL,
		    updated_at = UNIXEPOCH('subsec')
		WHERE id = ?
	`, payload, StatePending, source, batchID, id)
	if err != nil {
		return false, false, fmt.Errorf("failed to update staged record: %w", err)
	}

	return false, true, nil
}

// PendingTx returns all pending staged records in insertion order.
func PendingTx(ctx context.Context, tx *sql.Tx) ([]StagedGig, error) {
	return stagedByStateTx(ctx, tx, StatePending, 0)
}

// CleanOldestTx returns up to limit clean staged records, oldest first, so
// repeated publish calls drain the backlog deterministically.
func CleanOldestTx(ctx context.Context, tx *sql.Tx, limit int) ([]StagedGig, error) {
	return stagedByStateTx(ctx, tx, StateClean, limit)
}

func stagedByStateTx(ctx context.Context, tx *sql.Tx, state string, limit int) ([]StagedGig, error) {
	q := `
		SELECT id, identity_key, payload, state, source, source_batch_id,
		       error_reason, created_at, updated_at
		FROM staged_records
		WHERE state = ?
		ORDER BY created_at, id
	`
	args := []interface{}{state}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []StagedGig
	for rows.Next() {
		var rec StagedGig
		var reason sql.NullString
		if err := rows.Scan(&rec.ID, &rec.IdentityKey, &rec.Payload, &rec.State,
			&rec.Source, &rec.SourceBatchID, &reason, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			rec.ErrorReason = &reason.String
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// SetStateTx transitions one staged record inside tx. The error reason is
// cleared unless the new state is quarantined.
func SetStateTx(ctx context.Context, tx *sql.Tx, id int64, state string, errorReason *string) error {
	if state != StateQuarantined {
		errorReason = nil
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE staged_records
		SET state = ?, error_reason = ?, updated_at = UNIXEPOCH('subsec')
		WHERE id = ?
	`, state, errorReason, id)
	if err != nil {
		return fmt.Errorf("failed to transition staged record %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("staged record %d not found", id)
	}
	return nil
}

// StagedByKey returns the staged record for an identity key, or nil if the
// key has never been staged.
func (db *DB) StagedByKey(ctx context.Context, identityKey string) (*StagedGig, error) {
	var rec StagedGig
	var reason sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, identity_key, payload, state, source, source_batch_id,
		       error_reason, created_at, updated_at
		FROM staged_records
		WHERE identity_key = ?
	`, identityKey).Scan(&rec.ID, &rec.IdentityKey, &rec.Payload, &rec.State,
		&rec.Source, &rec.SourceBatchID, &reason, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if reason.Valid {
		rec.ErrorReason = &reason.String
	}
	return &rec, nil
}

// StagedCountByState returns the number of staged records in the given state.
func (db *DB) StagedCountByState(ctx context.Context, state string) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM staged_records WHERE state = ?`, state).Scan(&count)
	return count, err
}
