package domain

import "context"

type PlaceRepository interface {
	// Write paths
	CreatePlaceWithReview(ctx context.Context, p Place, r Review) error
	AddReview(ctx context.Context, r Review) (float64, error) // returns the recomputed overall rating
	UpdateOverallRating(ctx context.Context, placeID string, overall float64) error

	// Read paths
	GetPlace(ctx context.Context, id string) (Place, error)
	ListPlaces(ctx context.Context) ([]PlaceReviews, error)
	ListReviews(ctx context.Context, placeID string, pg PageQuery) ([]Review, error)
}

// LookupClient resolves free text to candidate places and a candidate id to
// canonical metadata. It is consulted only when a place is first created.
type LookupClient interface {
	Autocomplete(ctx context.Context, input string) ([]Suggestion, error)
	Details(ctx context.Context, placeID string) (PlaceDetails, error)
}

// ModerationGate decides whether submitted text may be persisted. The
// classifier behind it is not ours; we only depend on the verdict.
type ModerationGate interface {
	Check(ctx context.Context, text string) (Verdict, error)
}

type Verdict struct {
	IsClean bool
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models & queries

// PlaceReviews pairs a place with its reviews, newest first.
type PlaceReviews struct {
	Place   Place
	Reviews []Review
}

type Suggestion struct {
	PlaceID     string
	Description string
}

type PlaceDetails struct {
	Name        string
	Address     string
	Types       []string
	Image       *string
	Description *string
}

type PageQuery struct {
	Limit int
	Sort  string
}
