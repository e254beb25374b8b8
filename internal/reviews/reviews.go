// Package reviews implements post-completion reputation.
//
// Each participant of a completed job may review the other side once. A
// user's per-role score is the unweighted mean of the ratings received in
// that role, recomputed on every new review.
package reviews

import (
	"context"
	"errors"
	"time"
)

var (
	ErrReviewNotFound  = errors.New("reviews: review not found")
	ErrJobNotCompleted = errors.New("reviews: job is not completed")
	ErrDuplicateReview = errors.New("reviews: you already reviewed this job")
	ErrInvalidRating   = errors.New("reviews: rating must be between 1 and 5")
)

// Direction identifies who is reviewing whom.
type Direction string

const (
	ClientToProvider Direction = "CLIENT_TO_PROVIDER"
	ProviderToClient Direction = "PROVIDER_TO_CLIENT"
)

// Review is one participant's rating of the other after a completed job.
type Review struct {
	ID             string    `json:"id"`
	JobID          string    `json:"jobId"`
	ReviewerID     string    `json:"reviewerId"`
	ReviewedUserID string    `json:"reviewedUserId"`
	Direction      Direction `json:"direction"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store defines the persistence interface for reviews.
type Store interface {
	Create(ctx context.Context, r *Review) error

	// GetByJobReviewer returns the reviewer's review of a job, or
	// ErrReviewNotFound.
	GetByJobReviewer(ctx context.Context, jobID, reviewerID string) (*Review, error)

	// ListByUser returns reviews received by a user, newest first.
	ListByUser(ctx context.Context, reviewedUserID string, limit int) ([]*Review, error)

	// AverageFor returns the unweighted mean rating and count a user has
	// received in one direction. Zero count means unrated.
	AverageFor(ctx context.Context, reviewedUserID string, direction Direction) (float64, int64, error)
}
