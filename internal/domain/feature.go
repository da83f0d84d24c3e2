package domain

// FeatureSet records which accessibility features a reviewer observed at a
// place. The six flags are the whole vocabulary; keeping them as struct
// fields (rather than a map keyed by name) makes the closed set a
// compile-time fact.
type FeatureSet struct {
	WheelchairAccess   bool `json:"wheelchairAccess"`
	DisabledParking    bool `json:"disabledParking"`
	ClearSignage       bool `json:"clearSignage"`
	AudioSystems       bool `json:"audioSystems"`
	AdaptedServices    bool `json:"adaptedServices"`
	AccessibleLocation bool `json:"accessibleLocation"`
}

// UnionFeatures ORs the sets field-wise. No inputs yields the zero set.
// Commutative and associative, so aggregation order never matters.
func UnionFeatures(sets ...FeatureSet) FeatureSet {
	var out FeatureSet
	for _, s := range sets {
		out.WheelchairAccess = out.WheelchairAccess || s.WheelchairAccess
		out.DisabledParking = out.DisabledParking || s.DisabledParking
		out.ClearSignage = out.ClearSignage || s.ClearSignage
		out.AudioSystems = out.AudioSystems || s.AudioSystems
		out.AdaptedServices = out.AdaptedServices || s.AdaptedServices
		out.AccessibleLocation = out.AccessibleLocation || s.AccessibleLocation
	}
	return out
}

// Has reports whether the feature named by c is set. CategoryAll is true
// for every set; it is the pass-through pseudo-category.
func (s FeatureSet) Has(c Category) bool {
	switch c {
	case CategoryAll:
		return true
	case CategoryWheelchairAccess:
		return s.WheelchairAccess
	case CategoryDisabledParking:
		return s.DisabledParking
	case CategoryClearSignage:
		return s.ClearSignage
	case CategoryAudioSystems:
		return s.AudioSystems
	case CategoryAdaptedServices:
		return s.AdaptedServices
	case CategoryAccessibleLocation:
		return s.AccessibleLocation
	}
	return false
}

// Category identifies one accessibility feature used as a discovery filter,
// or the pass-through pseudo-category "all".
type Category string

const (
	CategoryAll                Category = "all"
	CategoryWheelchairAccess   Category = "wheelchairAccess"
	CategoryDisabledParking    Category = "disabledParking"
	CategoryClearSignage       Category = "clearSignage"
	CategoryAudioSystems       Category = "audioSystems"
	CategoryAdaptedServices    Category = "adaptedServices"
	CategoryAccessibleLocation Category = "accessibleLocation"
)

var categoryLabels = map[Category]string{
	CategoryAll:                "All",
	CategoryWheelchairAccess:   "Wheelchair Access",
	CategoryDisabledParking:    "Disabled Parking",
	CategoryClearSignage:       "Clear Signage",
	CategoryAudioSystems:       "Audio Systems",
	CategoryAdaptedServices:    "Adapted Services",
	CategoryAccessibleLocation: "Accessible Location",
}

// ParseCategory validates a category id coming over the wire. Unknown ids
// are an explicit error, never a silent empty result.
func ParseCategory(id string) (Category, error) {
	c := Category(id)
	if _, ok := categoryLabels[c]; !ok {
		return "", ErrUnknownCategory
	}
	return c, nil
}

// Label returns the fixed display label for the category.
func (c Category) Label() string { return categoryLabels[c] }

// FeatureCategories lists the six feature keys, excluding "all".
func FeatureCategories() []Category {
	return []Category{
		CategoryWheelchairAccess,
		CategoryDisabledParking,
		CategoryClearSignage,
		CategoryAudioSystems,
		CategoryAdaptedServices,
		CategoryAccessibleLocation,
	}
}

// Categories lists the full filter/navigation vocabulary, "all" first.
func Categories() []Category {
	return append([]Category{CategoryAll}, FeatureCategories()...)
}
