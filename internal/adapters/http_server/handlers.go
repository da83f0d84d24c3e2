// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"access_places/internal/adapters/observability"
	"access_places/internal/app"
	"access_places/internal/domain"
)

type Handlers struct {
	Q      *app.QueryService
	R      *app.ReviewService
	Lookup domain.LookupClient
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/places", h.listPlaces)
	s.mux.Get("/v1/places/{id}", h.getPlace)
	s.mux.Get("/v1/places/{id}/reviews", h.listReviews)
	s.mux.Get("/v1/categories", h.listCategories)
	s.mux.Get("/v1/lookup", h.lookup)
	s.mux.Post("/v1/reviews", h.submitReview)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// ---- wire shapes ----

type placeResp struct {
	ID                    string            `json:"id"`
	Name                  string            `json:"name"`
	Address               string            `json:"address"`
	PlaceTypes            []string          `json:"placeTypes"`
	Image                 *string           `json:"image,omitempty"`
	Description           *string           `json:"description,omitempty"`
	AverageRating         float64           `json:"averageRating"`
	AccessibilityFeatures domain.FeatureSet `json:"accessibilityFeatures"`
	ReviewCount           int               `json:"reviewCount"`
}

type reviewResp struct {
	ID                    string            `json:"id"`
	PlaceID               string            `json:"placeId"`
	Rating                float64           `json:"rating"`
	Comment               *string           `json:"comment,omitempty"`
	Author                string            `json:"author"`
	AccessibilityFeatures domain.FeatureSet `json:"accessibilityFeatures"`
	CreatedAt             time.Time         `json:"createdAt"`
}

type categoryResp struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type suggestionResp struct {
	PlaceID     string `json:"placeId"`
	Description string `json:"description"`
}

func toPlaceResp(v domain.PlaceView) placeResp {
	return placeResp{
		ID:                    v.ID,
		Name:                  v.Name,
		Address:               v.Address,
		PlaceTypes:            v.PlaceTypes,
		Image:                 v.Image,
		Description:           v.Description,
		AverageRating:         v.AverageRating,
		AccessibilityFeatures: v.Features,
		ReviewCount:           v.ReviewCount,
	}
}

func toReviewResp(r domain.Review) reviewResp {
	out := reviewResp{
		ID:                    r.ID,
		PlaceID:               r.PlaceID,
		Rating:                r.Rating,
		Comment:               r.Comment,
		Author:                domain.AnonymousAuthor,
		AccessibilityFeatures: r.Features,
		CreatedAt:             r.CreatedAt,
	}
	if r.Author != nil {
		out.Author = *r.Author
	}
	return out
}

// ---- handlers ----

func (h *Handlers) listPlaces(w http.ResponseWriter, r *http.Request) {
	cat := domain.CategoryAll
	if cs := r.URL.Query().Get("category"); cs != "" {
		var err error
		cat, err = domain.ParseCategory(cs)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid category", "unknown category "+strconv.Quote(cs))
			return
		}
	}

	views, err := h.Q.ListPlaces(r.Context(), app.ListQuery{Term: r.URL.Query().Get("q"), Category: cat})
	if err != nil {
		log.Error().Err(err).Msg("list places failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not list places")
		return
	}

	out := make([]placeResp, 0, len(views))
	for _, v := range views {
		out = append(out, toPlaceResp(v))
	}
	writeCached(w, r, out)
}

func (h *Handlers) getPlace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, reviews, err := h.Q.GetPlace(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "place not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("place", id).Msg("get place failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not load place")
		return
	}

	type placeWithReviews struct {
		placeResp
		Reviews []reviewResp `json:"reviews"`
	}
	resp := placeWithReviews{placeResp: toPlaceResp(view), Reviews: make([]reviewResp, 0, len(reviews))}
	for _, rv := range reviews {
		resp.Reviews = append(resp.Reviews, toReviewResp(rv))
	}
	writeCached(w, r, resp)
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	// Newest first; aligns with the DB index on (place_id, created_at)
	rs, err := h.Q.ListReviews(r.Context(), id, domain.PageQuery{Limit: limit, Sort: "-created_at"})
	if err != nil {
		log.Error().Err(err).Str("place", id).Msg("list reviews failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not list reviews")
		return
	}

	out := make([]reviewResp, 0, len(rs))
	for _, rv := range rs {
		out = append(out, toReviewResp(rv))
	}
	writeCached(w, r, out)
}

func (h *Handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	cats := domain.Categories()
	out := make([]categoryResp, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResp{ID: string(c), Label: c.Label()})
	}
	writeCached(w, r, out)
}

func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) {
	if h.Lookup == nil {
		writeProblem(w, http.StatusServiceUnavailable, "Lookup Unavailable", "place lookup is not configured")
		return
	}
	sugg, err := h.Lookup.Autocomplete(r.Context(), r.URL.Query().Get("input"))
	if err != nil {
		log.Error().Err(err).Msg("autocomplete failed")
		writeProblem(w, http.StatusBadGateway, "Lookup Failed", "place lookup did not respond")
		return
	}

	out := make([]suggestionResp, 0, len(sugg))
	for _, s := range sugg {
		out = append(out, suggestionResp{PlaceID: s.PlaceID, Description: s.Description})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Error().Err(err).Msg("failed to write lookup body")
	}
}

type submitRequest struct {
	PlaceID               string            `json:"placeId"`
	Rating                float64           `json:"rating"`
	Comment               *string           `json:"comment"`
	Author                *string           `json:"author"`
	AccessibilityFeatures domain.FeatureSet `json:"accessibilityFeatures"`
	Place                 *struct {
		Name        string  `json:"name"`
		PrimaryType string  `json:"primaryType"`
		Address     string  `json:"address"`
		Image       *string `json:"image"`
		Description *string `json:"description"`
	} `json:"place"`
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if req.PlaceID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "placeId is required")
		return
	}
	if req.Rating == 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "rating is required")
		return
	}

	in := app.SubmitReview{
		PlaceID:  req.PlaceID,
		Rating:   req.Rating,
		Comment:  req.Comment,
		Author:   req.Author,
		Features: req.AccessibilityFeatures,
	}
	if p := req.Place; p != nil {
		in.Place = &app.PlaceMetadata{
			Name:        p.Name,
			PrimaryType: p.PrimaryType,
			Address:     p.Address,
			Image:       p.Image,
			Description: p.Description,
		}
	}

	rev, err := h.R.Submit(r.Context(), in)
	if errors.Is(err, domain.ErrCommentRejected) {
		observability.ObserveIngest("rejected")
		writeProblem(w, http.StatusUnprocessableEntity, "Comment Rejected", "comment did not pass moderation")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("place", req.PlaceID).Msg("submit review failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not submit review")
		return
	}

	observability.ObserveIngest("accepted")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(toReviewResp(rev)); err != nil {
		log.Error().Err(err).Msg("failed to write submit body")
	}
}
