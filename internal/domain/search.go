package domain

import "strings"

// SearchPlaces keeps the views whose name, place types, description,
// address, or aggregated accessibility-feature labels contain term,
// case-insensitively. A blank term is the identity. No scoring: result
// order preserves input order.
func SearchPlaces(views []PlaceView, term string) []PlaceView {
	t := strings.ToLower(strings.TrimSpace(term))
	if t == "" {
		return views
	}
	out := make([]PlaceView, 0, len(views))
	for _, v := range views {
		if placeMatches(v, t) {
			out = append(out, v)
		}
	}
	return out
}

func placeMatches(v PlaceView, term string) bool {
	if strings.Contains(strings.ToLower(v.Name), term) {
		return true
	}
	for _, pt := range v.PlaceTypes {
		if strings.Contains(strings.ToLower(pt), term) {
			return true
		}
	}
	if v.Description != nil && strings.Contains(strings.ToLower(*v.Description), term) {
		return true
	}
	if strings.Contains(strings.ToLower(v.Address), term) {
		return true
	}
	// Feature labels are matched through the fixed id->label table, and only
	// for features at least one review actually observed.
	for _, c := range FeatureCategories() {
		if v.Features.Has(c) && strings.Contains(strings.ToLower(c.Label()), term) {
			return true
		}
	}
	return false
}
