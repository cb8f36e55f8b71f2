package db

import (
	"context"
	"database/sql"
	"fmt"
)

// PublishedGig is a derived record in the published tier: the normalized
// listing plus the aggregates computed at publish time. Immutable once
// written.
type PublishedGig struct {
	ID             int64    `json:"id"`
	IdentityKey    string   `json:"identity_key"`
	Artist         string   `json:"artist"`
	Venue          string   `json:"venue"`
	EventDate      string   `json:"event_date"`
	Source         string   `json:"source"`
	Price          *float64 `json:"price"`
	Payload        string   `json:"payload"`
	SourceGigCount int64    `json:"source_gig_count"`
	VenueGigCount  int64    `json:"venue_gig_count"`
	PriceMean      *float64 `json:"price_mean"`
	PriceStdDev    *float64 `json:"price_stddev"`
	PublishedAt    float64  `json:"published_at"`
}

// InsertPublishedTx writes one published record inside tx. A conflicting
// identity key is ignored rather than overwritten, so a given key publishes
// at most once even across racing cycles. Returns whether a row was written.
func InsertPublishedTx(ctx context.Context, tx *sql.Tx, rec *PublishedGig) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO published_records (
			identity_key, artist, venue, event_date, source, price, payload,
			source_gig_count, venue_gig_count, price_mean, price_stddev
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity_key) DO NOTHING
	`, rec.IdentityKey, rec.Artist, rec.Venue, rec.EventDate, rec.Source,
		rec.Price, rec.Payload, rec.SourceGigCount, rec.VenueGigCount,
		rec.PriceMean, rec.PriceStdDev)
	if err != nil {
		return false, fmt.Errorf("failed to insert published record: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PublishedPricesBySourceTx returns the prices of all published records for
// a source, for rolling statistics at publish time. Records without a price
// are skipped.
func PublishedPricesBySourceTx(ctx context.Context, tx *sql.Tx, source string) ([]float64, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT price FROM published_records
		WHERE source = ? AND price IS NOT NULL
		ORDER BY id
	`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// PublishedCountBySourceTx returns the published tier size for one source.
func PublishedCountBySourceTx(ctx context.Context, tx *sql.Tx, source string) (int64, error) {
	var count int64
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM published_records WHERE source = ?`, source).Scan(&count)
	return count, err
}

// PublishedCountByVenueTx returns the published tier size for one venue.
func PublishedCountByVenueTx(ctx context.Context, tx *sql.Tx, venue string) (int64, error) {
	var count int64
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM published_records WHERE venue = ?`, venue).Scan(&count)
	return count, err
}

// PublishedCount returns the total published tier size.
func (db *DB) PublishedCount(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM published_records`).Scan(&count)
	return count, err
}

// PublishedByKey returns the published record for an identity key, or nil.
func (db *DB) PublishedByKey(ctx context.Context, identityKey string) (*PublishedGig, error) {
	var rec PublishedGig
	var price, mean, stddev sql.NullFloat64
	err := db.QueryRowContext(ctx, `
		SELECT id, identity_key, artist, venue, event_date, source, price,
		       payload, source_gig_count, venue_gig_count, price_mean,
		       price_stddev, published_at
		FROM published_records
		WHERE identity_key = ?
	`, identityKey).Scan(&rec.ID, &rec.IdentityKey, &rec.Artist, &rec.Venue,
		&rec.EventDate, &rec.Source, &price, &rec.Payload, &rec.SourceGigCount,
		&rec.VenueGigCount, &mean, &stddev, &rec.PublishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if price.Valid {
		rec.Price = &price.Float64
	}
	if mean.Valid {
		rec.PriceMean = &mean.Float64
	}
	if stddev.Valid {
		rec.PriceStdDev = &stddev.Float64
	}
	return &rec, nil
}
