package domain

// FilterByCategory keeps the items whose feature set exhibits c, in input
// order. CategoryAll is the identity. Callers are expected to have obtained
// c through ParseCategory, so an unknown id cannot reach this point.
func FilterByCategory[T any](items []T, c Category, featureOf func(T) FeatureSet) []T {
	if c == CategoryAll {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if featureOf(it).Has(c) {
			out = append(out, it)
		}
	}
	return out
}
