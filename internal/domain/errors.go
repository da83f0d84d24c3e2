package domain

import "errors"

var (
	ErrNotFound        = errors.New("place not found")
	ErrCommentRejected = errors.New("comment rejected by moderation")
	ErrUnknownCategory = errors.New("unknown category")
)
