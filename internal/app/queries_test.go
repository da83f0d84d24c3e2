package app_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"access_places/internal/app"
	"access_places/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	places  map[string]*domain.Place
	reviews map[string][]domain.Review
	order   []string // insertion order for ListPlaces

	createCalls int
	addCalls    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{places: map[string]*domain.Place{}, reviews: map[string][]domain.Review{}}
}

func (f *fakeRepo) CreatePlaceWithReview(ctx context.Context, p domain.Place, r domain.Review) error {
	f.createCalls++
	cp := p
	f.places[p.ID] = &cp
	f.reviews[p.ID] = []domain.Review{r}
	f.order = append(f.order, p.ID)
	return nil
}

func (f *fakeRepo) AddReview(ctx context.Context, r domain.Review) (float64, error) {
	f.addCalls++
	p, ok := f.places[r.PlaceID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	f.reviews[r.PlaceID] = append([]domain.Review{r}, f.reviews[r.PlaceID]...)
	var sum float64
	for _, rv := range f.reviews[r.PlaceID] {
		sum += rv.Rating
	}
	p.OverallRating = domain.NormalizeRating(sum / float64(len(f.reviews[r.PlaceID])))
	return p.OverallRating, nil
}

func (f *fakeRepo) UpdateOverallRating(ctx context.Context, placeID string, overall float64) error {
	if p, ok := f.places[placeID]; ok {
		p.OverallRating = overall
	}
	return nil
}

func (f *fakeRepo) GetPlace(ctx context.Context, id string) (domain.Place, error) {
	p, ok := f.places[id]
	if !ok {
		return domain.Place{}, domain.ErrNotFound
	}
	return *p, nil
}

func (f *fakeRepo) ListPlaces(ctx context.Context) ([]domain.PlaceReviews, error) {
	out := make([]domain.PlaceReviews, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, domain.PlaceReviews{Place: *f.places[id], Reviews: f.reviews[id]})
	}
	return out, nil
}

func (f *fakeRepo) ListReviews(ctx context.Context, placeID string, pg domain.PageQuery) ([]domain.Review, error) {
	return f.reviews[placeID], nil
}

type fakeCache struct {
	store map[string][]byte
	hits  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

// ---- tests ----

func seedPlace(t *testing.T, repo *fakeRepo, id, name string, ratings []float64, fs domain.FeatureSet) {
	t.Helper()
	first := domain.Review{ID: id + "-r0", PlaceID: id, Rating: ratings[0], Features: fs, CreatedAt: time.Now()}
	if err := repo.CreatePlaceWithReview(context.Background(), domain.Place{ID: id, Name: name, OverallRating: ratings[0]}, first); err != nil {
		t.Fatalf("seed: %v", err)
	}
	for i, r := range ratings[1:] {
		rv := domain.Review{ID: id + "-r" + string(rune('1'+i)), PlaceID: id, Rating: r, CreatedAt: time.Now()}
		if _, err := repo.AddReview(context.Background(), rv); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestListPlaces_AggregatesAndFilters(t *testing.T) {
	repo := newFakeRepo()
	seedPlace(t, repo, "p1", "Mint Cafe", []float64{3, 4, 5}, domain.FeatureSet{WheelchairAccess: true})
	seedPlace(t, repo, "p2", "City Museum", []float64{2}, domain.FeatureSet{AudioSystems: true})

	q := app.NewQueryService(repo, nil, time.Minute)

	all, err := q.ListPlaces(context.Background(), app.ListQuery{Category: domain.CategoryAll})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 places, got %d", len(all))
	}
	if all[0].AverageRating != 4.0 {
		t.Fatalf("p1 average = %v, want 4.0", all[0].AverageRating)
	}

	wheel, err := q.ListPlaces(context.Background(), app.ListQuery{Category: domain.CategoryWheelchairAccess})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(wheel) != 1 || wheel[0].ID != "p1" {
		t.Fatalf("category filter: %+v", wheel)
	}
}

func TestListPlaces_SearchTerm(t *testing.T) {
	repo := newFakeRepo()
	seedPlace(t, repo, "p1", "Mint Cafe", []float64{4}, domain.FeatureSet{})
	seedPlace(t, repo, "p2", "City Museum", []float64{3}, domain.FeatureSet{})

	q := app.NewQueryService(repo, nil, time.Minute)
	got, err := q.ListPlaces(context.Background(), app.ListQuery{Term: "museum"})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p2" {
		t.Fatalf("search: %+v", got)
	}
}

func TestListPlaces_CacheMissThenHit(t *testing.T) {
	repo := newFakeRepo()
	seedPlace(t, repo, "p1", "Mint Cafe", []float64{4}, domain.FeatureSet{})
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	if _, err := q.ListPlaces(context.Background(), app.ListQuery{}); err != nil {
		t.Fatalf("err: %v", err)
	}

	// Mutate the repo; the second read must come from cache.
	repo.places["p1"].Name = "SHOULD NOT SEE THIS"

	got, err := q.ListPlaces(context.Background(), app.ListQuery{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got[0].Name != "Mint Cafe" {
		t.Fatalf("expected cached name, got %s", got[0].Name)
	}
	if cache.hits == 0 {
		t.Fatalf("expected a cache hit")
	}
}

func TestGetPlace_ViewAndReviews(t *testing.T) {
	repo := newFakeRepo()
	seedPlace(t, repo, "p1", "Mint Cafe", []float64{4.5, 3.0}, domain.FeatureSet{DisabledParking: true})

	q := app.NewQueryService(repo, nil, time.Minute)
	view, reviews, err := q.GetPlace(context.Background(), "p1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if view.AverageRating != 4.0 {
		t.Fatalf("average = %v, want 4.0", view.AverageRating)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(reviews))
	}
	if !view.Features.DisabledParking {
		t.Fatalf("feature union missing disabledParking")
	}
}

func TestGetPlace_NotFound(t *testing.T) {
	q := app.NewQueryService(newFakeRepo(), nil, time.Minute)
	if _, _, err := q.GetPlace(context.Background(), "ghost"); err == nil {
		t.Fatalf("expected error for unknown place")
	}
}
