package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"access_places/internal/domain"
)

// SubmitReview is one user's submission: the review itself plus, for a
// place we have never seen, the metadata needed to create it.
type SubmitReview struct {
	PlaceID  string
	Rating   float64
	Comment  *string
	Author   *string
	Features domain.FeatureSet

	// Place metadata for first-time submissions. Ignored when the place
	// already exists; when nil on the create path, the lookup service is
	// asked for it instead.
	Place *PlaceMetadata
}

type PlaceMetadata struct {
	Name        string
	PrimaryType string
	Address     string
	Image       *string
	Description *string
}

type ReviewService struct {
	repo   domain.PlaceRepository
	lookup domain.LookupClient
	gate   domain.ModerationGate
	cache  domain.Cache
}

func NewReviewService(r domain.PlaceRepository, l domain.LookupClient, g domain.ModerationGate, cache domain.Cache) *ReviewService {
	return &ReviewService{repo: r, lookup: l, gate: g, cache: cache}
}

// Submit runs the ingest pipeline: moderation gate, place resolution or
// creation, review append with aggregate recompute, cache eviction.
func (s *ReviewService) Submit(ctx context.Context, in SubmitReview) (domain.Review, error) {
	if strings.TrimSpace(in.PlaceID) == "" {
		return domain.Review{}, fmt.Errorf("submit: empty place id")
	}

	// Moderation comes first: a rejected comment must leave no trace.
	if c := trimmed(in.Comment); c != nil {
		v, err := s.gate.Check(ctx, *c)
		if err != nil {
			return domain.Review{}, fmt.Errorf("moderation check: %w", err)
		}
		if !v.IsClean {
			return domain.Review{}, domain.ErrCommentRejected
		}
	}

	rev := domain.Review{
		ID:        uuid.NewString(),
		PlaceID:   in.PlaceID,
		Rating:    domain.NormalizeRating(in.Rating),
		Comment:   trimmed(in.Comment),
		Author:    authorOrAnonymous(in.Author),
		Features:  in.Features,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.repo.GetPlace(ctx, in.PlaceID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Not an error: the designed trigger for creating the place
		// together with its first review.
		p, perr := s.newPlace(ctx, in, rev.Rating)
		if perr != nil {
			return domain.Review{}, perr
		}
		if cerr := s.repo.CreatePlaceWithReview(ctx, p, rev); cerr != nil {
			return domain.Review{}, fmt.Errorf("create place %s: %w", in.PlaceID, cerr)
		}
		log.Info().Str("place", in.PlaceID).Msg("place created with first review")

	case err != nil:
		return domain.Review{}, fmt.Errorf("lookup place %s: %w", in.PlaceID, err)

	default:
		// Append and recompute run in one repository transaction, so a
		// persisted review always has its contribution reflected in the
		// overall rating.
		overall, aerr := s.repo.AddReview(ctx, rev)
		if aerr != nil {
			return domain.Review{}, fmt.Errorf("add review to %s: %w", in.PlaceID, aerr)
		}
		log.Info().Str("place", in.PlaceID).Float64("overall", overall).Msg("review appended")
	}

	if s.cache != nil {
		s.invalidatePlace(ctx, in.PlaceID)
	}
	return rev, nil
}

// newPlace builds the place record for the create path. The existing-place
// path never consults the lookup service; here it is the metadata source of
// last resort.
func (s *ReviewService) newPlace(ctx context.Context, in SubmitReview, firstRating float64) (domain.Place, error) {
	meta := in.Place
	if meta == nil {
		if s.lookup == nil {
			return domain.Place{}, fmt.Errorf("place %s unknown and no metadata supplied", in.PlaceID)
		}
		d, err := s.lookup.Details(ctx, in.PlaceID)
		if err != nil {
			return domain.Place{}, fmt.Errorf("place details %s: %w", in.PlaceID, err)
		}
		meta = &PlaceMetadata{
			Name:        d.Name,
			Address:     d.Address,
			PrimaryType: firstOf(d.Types),
			Image:       d.Image,
			Description: d.Description,
		}
	}
	return domain.Place{
		ID:            in.PlaceID,
		Name:          meta.Name,
		Address:       meta.Address,
		PlaceTypes:    []string{meta.PrimaryType},
		Image:         meta.Image,
		Description:   meta.Description,
		OverallRating: firstRating, // mean of a single review is the review
	}, nil
}

func (s *ReviewService) invalidatePlace(ctx context.Context, id string) {
	_ = s.cache.Del(ctx, allPlacesKey)
	_ = s.cache.Del(ctx, placeKey(id))
	// The review-list default is limit=50 newest-first; clear the common
	// limits too.
	for _, lim := range []int{50, 100, 200} {
		_ = s.cache.Del(ctx, reviewsKey(id, lim, "-created_at"))
	}
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	t := strings.TrimSpace(*p)
	if t == "" {
		return nil
	}
	return &t
}

func authorOrAnonymous(p *string) *string {
	if a := trimmed(p); a != nil {
		return a
	}
	anon := domain.AnonymousAuthor
	return &anon
}

func firstOf(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}
