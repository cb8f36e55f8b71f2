package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/gigwire-data/gigwire/internal/db"
	"github.com/gigwire-data/gigwire/internal/monitoring"
)

// DefaultBatchSize bounds a publish cycle when the caller does not.
const DefaultBatchSize = 500

// Aggregates are the derived fields attached to a record at publish time.
type Aggregates struct {
	SourceGigCount int64
	VenueGigCount  int64
	PriceMean      *float64
	PriceStdDev    *float64
}

// AggregationPolicy computes the derived fields for one record about to be
// published. It runs inside the publish transaction so the rollups it reads
// are consistent with the rows being written in the same batch.
type AggregationPolicy interface {
	Aggregates(ctx context.Context, tx *sql.Tx, rec *db.StagedGig, gig *db.Gig) (Aggregates, error)
}

// RollingAggregates is the default policy: per-source and per-venue counts
// over the published tier (including the record being published), plus mean
// and standard deviation of the source's published prices.
type RollingAggregates struct{}

func (RollingAggregates) Aggregates(ctx context.Context, tx *sql.Tx, rec *db.StagedGig, gig *db.Gig) (Aggregates, error) {
	var agg Aggregates

	sourceCount, err := db.PublishedCountBySourceTx(ctx, tx, rec.Source)
	if err != nil {
		return agg, err
	}
	venueCount, err := db.PublishedCountByVenueTx(ctx, tx, gig.Venue)
	if err != nil {
		return agg, err
	}
	// Counts include the record being published.
	agg.SourceGigCount = sourceCount + 1
	agg.VenueGigCount = venueCount + 1

	prices, err := db.PublishedPricesBySourceTx(ctx, tx, rec.Source)
	if err != nil {
		return agg, err
	}
	if gig.Price != nil {
		prices = append(prices, *gig.Price)
	}
	agg.PriceMean, agg.PriceStdDev = priceStats(prices)

	return agg, nil
}

// PublishResult reports one publish cycle.
type PublishResult struct {
	PublishedCount int    `json:"published_count"`
	Message        string `json:"message"`
}

// PublishEngine moves bounded batches of clean staged records into the
// published tier with their aggregates attached.
type PublishEngine struct {
	DB     *db.DB
	Policy AggregationPolicy
}

// Run publishes up to batchSize clean records, oldest first, in one
// transaction. Calling it again before new clean records accumulate
// publishes zero records with a neutral message; it never fails just because
// there is nothing to do.
func (e *PublishEngine) Run(ctx context.Context, batchSize int) (PublishResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var published int
	err := e.DB.WithTx(ctx, func(tx *sql.Tx) error {
		batch, err := db.CleanOldestTx(ctx, tx, batchSize)
		if err != nil {
			return err
		}

		for i := range batch {
			rec := &batch[i]

			var gig db.Gig
			if err := json.Unmarshal([]byte(rec.Payload), &gig); err != nil {
				// Clean records were validated at audit; failure here means
				// the store was corrupted between stages. Roll the batch back.
				return fmt.Errorf("clean record %d does not decode: %w", rec.ID, err)
			}

			agg, err := e.Policy.Aggregates(ctx, tx, rec, &gig)
			if err != nil {
				return fmt.Errorf("failed to compute aggregates for %s: %w", rec.IdentityKey, err)
			}

			written, err := db.InsertPublishedTx(ctx, tx, &db.PublishedGig{
				IdentityKey:    rec.IdentityKey,
				Artist:         gig.Artist,
				Venue:          gig.Venue,
				EventDate:      gig.EventDate,
				Source:         rec.Source,
				Price:          gig.Price,
				Payload:        rec.Payload,
				SourceGigCount: agg.SourceGigCount,
				VenueGigCount:  agg.VenueGigCount,
				PriceMean:      agg.PriceMean,
				PriceStdDev:    agg.PriceStdDev,
			})
			if err != nil {
				return err
			}

			if err := db.SetStateTx(ctx, tx, rec.ID, db.StatePublished, nil); err != nil {
				return err
			}
			if written {
				published++
			}
		}
		return nil
	})
	if err != nil {
		return PublishResult{}, err
	}

	result := PublishResult{PublishedCount: published}
	if published == 0 {
		result.Message = "no clean records to publish"
	} else {
		result.Message = fmt.Sprintf("SUCCESS: published %d records", published)
		monitoring.Logf("publish: moved %d records to published tier", published)
	}

	return result, nil
}

// priceStats returns the mean and standard deviation of prices, or nils when
// there is not enough data for the statistic to be meaningful.
func priceStats(prices []float64) (mean, stddev *float64) {
	if len(prices) == 0 {
		return nil, nil
	}
	m := stat.Mean(prices, nil)
	mean = &m
	if len(prices) >= 2 {
		s := stat.StdDev(prices, nil)
		if !math.IsNaN(s) {
			stddev = &s
		}
	}
	return mean, stddev
}
