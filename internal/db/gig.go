package db

import (
	"crypto/sha1"
	"fmt"
	"strings"
)

// Gig is the normalized payload carried through the staging and published
// tiers: one scraped music-event listing.
type Gig struct {
	Artist    string   `json:"artist"`
	Venue     string   `json:"venue"`
	EventDate string   `json:"event_date"` // YYYY-MM-DD
	Price     *float64 `json:"price,omitempty"`
	URL       string   `json:"url,omitempty"`
	Genre     string   `json:"genre,omitempty"`
}

// IdentityKey returns the stable business key used to deduplicate re-ingested
// listings: the same artist at the same venue on the same date is the same
// gig no matter which scrape produced it.
func (g *Gig) IdentityKey() string {
	raw := fmt.Sprintf("%s|%s|%s",
		strings.ToLower(strings.TrimSpace(g.Artist)),
		strings.ToLower(strings.TrimSpace(g.Venue)),
		strings.TrimSpace(g.EventDate),
	)
	sum := sha1.Sum([]byte(raw))
	return fmt.Sprintf("%x", sum)
}

// Normalize trims surrounding whitespace from all text fields in place.
func (g *Gig) Normalize() {
	g.Artist = strings.TrimSpace(g.Artist)
	g.Venue = strings.TrimSpace(g.Venue)
	g.EventDate = strings.TrimSpace(g.EventDate)
	g.URL = strings.TrimSpace(g.URL)
	g.Genre = strings.TrimSpace(g.Genre)
}
