package domain

import "time"

// Place is a physical location keyed by the id handed out by the
// place-lookup service. OverallRating is derived from the review set and
// is never accepted from a client.
type Place struct {
	ID            string
	Name          string
	Address       string
	PlaceTypes    []string // first entry is the primary type
	Image         *string
	Description   *string
	OverallRating float64
	DeletedAt     *time.Time // reserved for a removal flow; nothing sets it yet
}
