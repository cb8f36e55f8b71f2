package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// RawRecord is one unit of ingested data in the raw tier. Rows are
// append-only: never updated, never deleted.
type RawRecord struct {
	ID         int64   `json:"id"`
	BatchID    string  `json:"batch_id"`
	Source     string  `json:"source"`
	Payload    string  `json:"payload"`
	IngestedAt float64 `json:"ingested_at"`
}

// InsertRawBatch appends a batch of payloads to the raw tier under a fresh
// batch ID and returns that ID. The whole batch is written in one
// transaction.
func (db *DB) InsertRawBatch(ctx context.Context, source string, payloads []string) (string, error) {
	batchID := uuid.NewString()

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO raw_records (batch_id, source, payload)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range payloads {
			if _, err := stmt.ExecContext(ctx, batchID, source, p); err != nil {
				return fmt.Errorf("failed to insert raw record: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return batchID, nil
}

// RawBatch returns all raw records of a batch in insertion order.
func (db *DB) RawBatch(ctx context.Context, batchID string) ([]RawRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, batch_id, source, payload, ingested_at
		FROM raw_records
		WHERE batch_id = ?
		ORDER BY id
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RawRecord
	for rows.Next() {
		var r RawRecord
		if err := rows.Scan(&r.ID, &r.BatchID, &r.Source, &r.Payload, &r.IngestedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// RawRecordCount returns the total size of the raw tier.
func (db *DB) RawRecordCount(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_records`).Scan(&count)
	return count, err
}
