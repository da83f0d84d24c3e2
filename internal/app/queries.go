package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"access_places/internal/domain"
)

const allPlacesKey = "places:all"

func placeKey(id string) string { return fmt.Sprintf("place:%s", id) }

func reviewsKey(id string, limit int, sort string) string {
	return fmt.Sprintf("reviews:%s:%d:%s", id, limit, sort)
}

type QueryService struct {
	repo     domain.PlaceRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.PlaceRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

type ListQuery struct {
	Term     string
	Category domain.Category
}

// ListPlaces serves the discovery path: load everything, aggregate each
// place's reviews fresh, then narrow by category and free-text term. Only
// the raw repository read is cached; the derived views are recomputed per
// request.
func (s *QueryService) ListPlaces(ctx context.Context, q ListQuery) ([]domain.PlaceView, error) {
	prs, err := s.loadPlaces(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]domain.PlaceView, 0, len(prs))
	for _, pr := range prs {
		views = append(views, domain.AggregatePlace(pr.Place, pr.Reviews))
	}

	cat := q.Category
	if cat == "" {
		cat = domain.CategoryAll
	}
	views = domain.FilterByCategory(views, cat, func(v domain.PlaceView) domain.FeatureSet { return v.Features })
	return domain.SearchPlaces(views, q.Term), nil
}

// GetPlace returns one aggregated view plus its reviews, newest first.
func (s *QueryService) GetPlace(ctx context.Context, id string) (domain.PlaceView, []domain.Review, error) {
	key := placeKey(id)
	var pr domain.PlaceReviews
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &pr); ok {
			return domain.AggregatePlace(pr.Place, pr.Reviews), pr.Reviews, nil
		}
	}

	p, err := s.repo.GetPlace(ctx, id)
	if err != nil {
		return domain.PlaceView{}, nil, err
	}
	reviews, err := s.repo.ListReviews(ctx, id, domain.PageQuery{Limit: 200, Sort: "-created_at"})
	if err != nil {
		return domain.PlaceView{}, nil, err
	}

	pr = domain.PlaceReviews{Place: p, Reviews: reviews}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, pr, int(s.cacheTTL.Seconds()))
	}
	return domain.AggregatePlace(p, reviews), reviews, nil
}

// ListReviews returns a place's reviews, newest first.
func (s *QueryService) ListReviews(ctx context.Context, id string, pg domain.PageQuery) ([]domain.Review, error) {
	key := reviewsKey(id, pg.Limit, pg.Sort)
	if s.cache != nil {
		var cached []domain.Review
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	rs, err := s.repo.ListReviews(ctx, id, pg)
	if err != nil {
		return nil, err
	}

	// Copy before caching so callers can't mutate the cached value through
	// the shared backing array.
	out := make([]domain.Review, len(rs))
	copy(out, rs)

	if s.cache != nil {
		if b, _ := json.Marshal(out); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
		}
	}
	return out, nil
}

func (s *QueryService) loadPlaces(ctx context.Context) ([]domain.PlaceReviews, error) {
	if s.cache != nil {
		var cached []domain.PlaceReviews
		if ok, _ := s.cache.Get(ctx, allPlacesKey, &cached); ok {
			return cached, nil
		}
	}

	prs, err := s.repo.ListPlaces(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cp := make([]domain.PlaceReviews, len(prs))
		copy(cp, prs)
		if b, _ := json.Marshal(cp); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, allPlacesKey, cp, int(s.cacheTTL.Seconds()))
		}
	}
	return prs, nil
}
