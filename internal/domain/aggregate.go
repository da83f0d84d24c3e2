package domain

// PlaceView is the read model served on the discovery paths: the place plus
// its derived rating and feature badges.
type PlaceView struct {
	Place
	AverageRating float64 // 0 means "no reviews yet", outside the [1,5] rating domain
	Features      FeatureSet
	ReviewCount   int
}

// AggregatePlace derives the displayed rating and feature badges from the
// place's review set. Side-effect-free and cheap (review sets are small per
// place), so it runs fresh on every read instead of being cached.
func AggregatePlace(p Place, reviews []Review) PlaceView {
	v := PlaceView{Place: p, ReviewCount: len(reviews)}
	if len(reviews) == 0 {
		return v
	}
	var sum float64
	sets := make([]FeatureSet, len(reviews))
	for i, r := range reviews {
		sum += r.Rating
		sets[i] = r.Features
	}
	v.AverageRating = NormalizeRating(sum / float64(len(reviews)))
	v.Features = UnionFeatures(sets...)
	return v
}
