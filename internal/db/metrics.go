package db

import (
	"context"
	"database/sql"
)

// PipelineMetrics returns a point-in-time count of records by state across
// the tiers: one entry per staged state (always present, zero if empty),
// plus raw_total and published_total tier sizes. All counts come from a
// single transaction so a record mid-transition is never counted twice.
func (db *DB) PipelineMetrics(ctx context.Context) (map[string]int64, error) {
	metrics := map[string]int64{
		StatePending:     0,
		StateClean:       0,
		StateQuarantined: 0,
		StatePublished:   0,
	}

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT state, COUNT(*) FROM staged_records GROUP BY state
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var state string
			var count int64
			if err := rows.Scan(&state, &count); err != nil {
				return err
			}
			metrics[state] = count
		}
		if err := rows.Err(); err != nil {
			return err
		}

		var rawTotal, publishedTotal int64
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_records`).Scan(&rawTotal); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM published_records`).Scan(&publishedTotal); err != nil {
			return err
		}
		metrics["raw_total"] = rawTotal
		metrics["published_total"] = publishedTotal

		return nil
	})
	if err != nil {
		return nil, err
	}

	return metrics, nil
}
