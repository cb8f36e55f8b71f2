// Package ingest produces raw tier inputs. Real scraping lives outside this
// service; the mock scraper here generates plausible gig listings for
// development and for exercising the quarantine path end to end.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"

	"github.com/gigwire-data/gigwire/internal/db"
)

// MockSource is the producer identity recorded on mock-scraped batches.
const MockSource = "mock_scraper"

var mockArtists = []string{
	"Sobs", "Subsonic Eye", "Forests", "Cosmic Child", "Marijannah",
	"T-Rex Marathon", "Coming Up Roses", "Knightingale", "Motifs",
}

var mockVenues = []string{
	"Esplanade Annexe Studio", "The Substation", "Decline", "Hood Bar",
	"Phil's Studio", "Lithe House", "Baybeats Stage",
}

var mockGenres = []string{"indie rock", "shoegaze", "math rock", "post-punk", "dream pop"}

// MockScraper generates deterministic-ish gig listings from a seeded RNG.
// Safe for concurrent use: the scheduler's daily run and the API handler may
// share one instance.
type MockScraper struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockScraper returns a scraper seeded for reproducible batches.
func NewMockScraper(seed int64) *MockScraper {
	return &MockScraper{rng: rand.New(rand.NewSource(seed))}
}

// Gigs generates count plausible listings.
func (m *MockScraper) Gigs(count int) []db.Gig {
	m.mu.Lock()
	defer m.mu.Unlock()

	gigs := make([]db.Gig, 0, count)
	for i := 0; i < count; i++ {
		price := 10.0 + float64(m.rng.Intn(80))
		gigs = append(gigs, db.Gig{
			Artist:    mockArtists[m.rng.Intn(len(mockArtists))],
			Venue:     mockVenues[m.rng.Intn(len(mockVenues))],
			EventDate: fmt.Sprintf("2026-%02d-%02d", 1+m.rng.Intn(12), 1+m.rng.Intn(28)),
			Price:     &price,
			URL:       fmt.Sprintf("https://gigs.example.sg/listing/%d", m.rng.Intn(100000)),
			Genre:     mockGenres[m.rng.Intn(len(mockGenres))],
		})
	}
	return gigs
}

// BadGig returns a listing that fails record-level validation, for
// quarantine testing. It is malformed (no artist, no venue, bad date) but
// still well-formed JSON, so the audit isolates it without failing.
func (m *MockScraper) BadGig() db.Gig {
	return db.Gig{
		Artist:    "",
		Venue:     "",
		EventDate: "not-a-date",
		Genre:     "unknown",
	}
}

// IngestResult reports one mock ingestion run.
type IngestResult struct {
	BatchID   string `json:"batch_id"`
	Generated int    `json:"generated"`
}

// Run generates count listings (plus one deliberately bad listing when
// includeBad is set), writes them to the raw tier as one batch and returns
// the batch ID for staging.
func (m *MockScraper) Run(ctx context.Context, store *db.DB, count int, includeBad bool) (IngestResult, error) {
	gigs := m.Gigs(count)
	if includeBad {
		gigs = append(gigs, m.BadGig())
	}

	payloads := make([]string, 0, len(gigs))
	for i := range gigs {
		data, err := json.Marshal(&gigs[i])
		if err != nil {
			return IngestResult{}, fmt.Errorf("failed to marshal mock gig: %w", err)
		}
		payloads = append(payloads, string(data))
	}

	batchID, err := store.InsertRawBatch(ctx, MockSource, payloads)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to write mock batch: %w", err)
	}

	return IngestResult{BatchID: batchID, Generated: len(payloads)}, nil
}
