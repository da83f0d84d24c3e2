package domain

import "time"

// AnonymousAuthor is stored when a review is submitted without a display name.
const AnonymousAuthor = "Anonymous"

type Review struct {
	ID        string
	PlaceID   string
	Rating    float64 // member of {1.0, 1.5, ..., 5.0}; immutable after creation
	Comment   *string
	Author    *string
	Features  FeatureSet
	CreatedAt time.Time
}
