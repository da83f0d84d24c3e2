package mysql

const insertPlaceSQL = `
INSERT INTO places
  (id, name, address, place_types, image, overall_rating, description)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

const insertReviewSQL = `
INSERT INTO reviews
  (id, place_id, rating, comment, author, features, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

// Row lock on the place so concurrent submissions to the same place
// serialize their append-and-recompute.
const lockPlaceSQL = `
SELECT overall_rating FROM places WHERE id = ? AND deleted_at IS NULL FOR UPDATE
`

const avgRatingSQL = `
SELECT AVG(rating) FROM reviews WHERE place_id = ?
`

const updateOverallSQL = `
UPDATE places SET overall_rating = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getPlaceSQL = `
SELECT id, name, address, place_types, image, overall_rating, description, deleted_at
FROM places
WHERE id = ? AND deleted_at IS NULL
`

const listPlacesSQL = `
SELECT id, name, address, place_types, image, overall_rating, description, deleted_at
FROM places
WHERE deleted_at IS NULL
ORDER BY name ASC, id ASC
`

// Reviews for every live place in one pass; grouped in Go to preserve the
// place ordering of listPlacesSQL.
const listAllReviewsSQL = `
SELECT r.id, r.place_id, r.rating, r.comment, r.author, r.features, r.created_at
FROM reviews r
JOIN places p ON p.id = r.place_id
WHERE p.deleted_at IS NULL
ORDER BY r.place_id, r.created_at DESC, r.id DESC
`

const listReviewsSQL = `
SELECT id, place_id, rating, comment, author, features, created_at
FROM reviews
WHERE place_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`
