package pipeline

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gigwire-data/gigwire/internal/db"
)

// ValidationPolicy classifies one staged record during audit. A nil return
// means clean; a SoftError quarantines the record; a HardError (or any other
// error) fails the audit for the whole cycle.
type ValidationPolicy interface {
	Validate(rec *db.StagedGig) error
}

// ListingPolicy is the default validation policy for scraped gig listings.
//
// Field-level problems (missing artist, bad date, negative price) are soft:
// one scraper glitch should not stop the pipeline. A payload that does not
// decode at all is hard, because staged payloads are written by the
// normalizer; a row that cannot be decoded means the staging contract itself
// is broken, not just one listing.
type ListingPolicy struct {
	// MaxPrice rejects obviously corrupt price fields. Zero disables the check.
	MaxPrice float64
}

// DefaultListingPolicy returns the policy used in production.
func DefaultListingPolicy() *ListingPolicy {
	return &ListingPolicy{MaxPrice: 10000}
}

func (p *ListingPolicy) Validate(rec *db.StagedGig) error {
	if strings.TrimSpace(rec.Payload) == "" {
		return Hard("empty staged payload (identity_key=%s)", rec.IdentityKey)
	}

	var gig db.Gig
	if err := json.Unmarshal([]byte(rec.Payload), &gig); err != nil {
		return Hard("staged payload does not decode: %v", err)
	}

	var problems []string
	if strings.TrimSpace(gig.Artist) == "" {
		problems = append(problems, "missing artist")
	}
	if strings.TrimSpace(gig.Venue) == "" {
		problems = append(problems, "missing venue")
	}
	if _, err := time.Parse("2006-01-02", gig.EventDate); err != nil {
		problems = append(problems, "invalid event_date")
	}
	if gig.Price != nil {
		if *gig.Price < 0 {
			problems = append(problems, "negative price")
		} else if p.MaxPrice > 0 && *gig.Price > p.MaxPrice {
			problems = append(problems, "implausible price")
		}
	}

	if len(problems) > 0 {
		return Soft("%s", strings.Join(problems, ", "))
	}
	return nil
}
