package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"access_places/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// CreatePlaceWithReview persists a new place and its first review in one
// transaction; a place is never observable without at least one review.
func (r *Repo) CreatePlaceWithReview(ctx context.Context, p domain.Place, rv domain.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	types, _ := json.Marshal(p.PlaceTypes)
	if _, err := tx.ExecContext(ctx, insertPlaceSQL,
		p.ID,
		p.Name,
		p.Address,
		string(types),
		valStr(p.Image),
		p.OverallRating,
		valStr(p.Description),
	); err != nil {
		return fmt.Errorf("insert place: %w", err)
	}

	if err := insertReviewTx(ctx, tx, rv); err != nil {
		return err
	}
	return tx.Commit()
}

// AddReview appends a review to an existing place and recomputes the
// overall rating inside the same transaction, holding a row lock on the
// place. Two concurrent submissions therefore both land in the mean.
func (r *Repo) AddReview(ctx context.Context, rv domain.Review) (float64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var current float64
	if err := tx.QueryRowContext(ctx, lockPlaceSQL, rv.PlaceID).Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("lock place: %w", err)
	}

	if err := insertReviewTx(ctx, tx, rv); err != nil {
		return 0, err
	}

	var avg sql.NullFloat64
	if err := tx.QueryRowContext(ctx, avgRatingSQL, rv.PlaceID).Scan(&avg); err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	overall := domain.NormalizeRating(avg.Float64)

	if _, err := tx.ExecContext(ctx, updateOverallSQL, overall, rv.PlaceID); err != nil {
		return 0, fmt.Errorf("update overall: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return overall, nil
}

// UpdateOverallRating writes a recomputed aggregate directly. Used by the
// offline reaggregation tool, not the request path.
func (r *Repo) UpdateOverallRating(ctx context.Context, placeID string, overall float64) error {
	_, err := r.db.ExecContext(ctx, updateOverallSQL, overall, placeID)
	return err
}

func insertReviewTx(ctx context.Context, tx *sql.Tx, rv domain.Review) error {
	feats, _ := json.Marshal(rv.Features)
	if _, err := tx.ExecContext(ctx, insertReviewSQL,
		rv.ID,
		rv.PlaceID,
		rv.Rating,
		valStr(rv.Comment),
		valStr(rv.Author),
		string(feats),
		rv.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *Repo) GetPlace(ctx context.Context, id string) (domain.Place, error) {
	row := r.db.QueryRowContext(ctx, getPlaceSQL, id)
	p, err := scanPlace(row)
	if err == sql.ErrNoRows {
		return domain.Place{}, domain.ErrNotFound
	}
	return p, err
}

// ListPlaces returns every live place, name-ascending, each with its
// reviews newest first.
func (r *Repo) ListPlaces(ctx context.Context) ([]domain.PlaceReviews, error) {
	rows, err := r.db.QueryContext(ctx, listPlacesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PlaceReviews
	index := map[string]int{}
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		index[p.ID] = len(out)
		out = append(out, domain.PlaceReviews{Place: p})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rrows, err := r.db.QueryContext(ctx, listAllReviewsSQL)
	if err != nil {
		return nil, err
	}
	defer rrows.Close()

	for rrows.Next() {
		rv, err := scanReview(rrows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[rv.PlaceID]; ok {
			out[i].Reviews = append(out[i].Reviews, rv)
		}
	}
	if err := rrows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ListReviews(ctx context.Context, placeID string, pg domain.PageQuery) ([]domain.Review, error) {
	limit := pg.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, placeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (domain.Place, error) {
	var (
		p           domain.Place
		typesJSON   []byte
		image, desc sql.NullString
		deletedAt   sql.NullTime
	)
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Address,
		&typesJSON,
		&image,
		&p.OverallRating,
		&desc,
		&deletedAt,
	); err != nil {
		return domain.Place{}, err
	}
	_ = json.Unmarshal(typesJSON, &p.PlaceTypes)
	if image.Valid {
		s := image.String
		p.Image = &s
	}
	if desc.Valid {
		s := desc.String
		p.Description = &s
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	return p, nil
}

func scanReview(row rowScanner) (domain.Review, error) {
	var (
		rv              domain.Review
		comment, author sql.NullString
		featsJSON       []byte
	)
	if err := row.Scan(
		&rv.ID,
		&rv.PlaceID,
		&rv.Rating,
		&comment,
		&author,
		&featsJSON,
		&rv.CreatedAt,
	); err != nil {
		return domain.Review{}, err
	}
	if comment.Valid {
		s := comment.String
		rv.Comment = &s
	}
	if author.Valid {
		s := author.String
		rv.Author = &s
	}
	_ = json.Unmarshal(featsJSON, &rv.Features)
	return rv, nil
}
