package domain_test

import (
	"testing"

	"access_places/internal/domain"
)

func viewWith(id string, fs domain.FeatureSet) domain.PlaceView {
	return domain.PlaceView{Place: domain.Place{ID: id}, Features: fs}
}

func featureOf(v domain.PlaceView) domain.FeatureSet { return v.Features }

func TestFilterByCategory(t *testing.T) {
	views := []domain.PlaceView{
		viewWith("p1", domain.FeatureSet{WheelchairAccess: true}),
		viewWith("p2", domain.FeatureSet{DisabledParking: true}),
		viewWith("p3", domain.FeatureSet{WheelchairAccess: true, AudioSystems: true}),
		viewWith("p4", domain.FeatureSet{}),
		viewWith("p5", domain.FeatureSet{ClearSignage: true}),
	}

	got := domain.FilterByCategory(views, domain.CategoryWheelchairAccess, featureOf)
	if len(got) != 2 || got[0].ID != "p1" || got[1].ID != "p3" {
		t.Fatalf("wheelchairAccess filter: %+v", ids(got))
	}
}

func TestFilterByCategory_AllIsIdentity(t *testing.T) {
	views := []domain.PlaceView{
		viewWith("b", domain.FeatureSet{}),
		viewWith("a", domain.FeatureSet{AudioSystems: true}),
		viewWith("c", domain.FeatureSet{}),
	}
	got := domain.FilterByCategory(views, domain.CategoryAll, featureOf)
	if len(got) != 3 {
		t.Fatalf("expected all 3 items, got %d", len(got))
	}
	for i := range views {
		if got[i].ID != views[i].ID {
			t.Fatalf("order changed: %+v", ids(got))
		}
	}
}

func ids(vs []domain.PlaceView) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}
