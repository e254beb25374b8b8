package reviews

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mbd888/jobchain/internal/jobs"
	"github.com/mbd888/jobchain/internal/metrics"
	"github.com/mbd888/jobchain/internal/users"
	"github.com/mbd888/jobchain/internal/validation"
)

// JobStore is the read access to jobs the service needs.
type JobStore interface {
	Get(ctx context.Context, id string) (*jobs.Job, error)
}

// ScoreUpdater writes the recomputed aggregate back to the user record.
type ScoreUpdater interface {
	UpdateScore(ctx context.Context, userID string, role users.Role, score float64, reviewCount int64) error
}

// Service implements review submission and score aggregation.
type Service struct {
	store  Store
	jobs   JobStore
	users  ScoreUpdater
	logger *slog.Logger
}

// NewService creates a review service.
func NewService(store Store, jobStore JobStore, userStore ScoreUpdater) *Service {
	return &Service{store: store, jobs: jobStore, users: userStore, logger: slog.Default()}
}

// WithLogger sets the logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// CreateRequest is the payload for submitting a review.
type CreateRequest struct {
	JobID   string `json:"jobId" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment,omitempty"`
}

// Create records reviewerID's rating of the other participant of a completed
// job and recomputes the reviewed user's per-role score.
func (s *Service) Create(ctx context.Context, reviewerID string, req CreateRequest) (*Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}

	job, err := s.jobs.Get(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if !job.Participant(reviewerID) {
		return nil, jobs.ErrNotParticipant
	}
	if job.Status != jobs.StatusCompleted {
		return nil, ErrJobNotCompleted
	}

	// The reviewed side follows from the reviewer's role in the job.
	var direction Direction
	var reviewedID string
	if reviewerID == job.ClientID {
		direction = ClientToProvider
		reviewedID = *job.ProviderID
	} else {
		direction = ProviderToClient
		reviewedID = job.ClientID
	}

	if _, err := s.store.GetByJobReviewer(ctx, req.JobID, reviewerID); err == nil {
		return nil, ErrDuplicateReview
	}

	review := &Review{
		JobID:          req.JobID,
		ReviewerID:     reviewerID,
		ReviewedUserID: reviewedID,
		Direction:      direction,
		Rating:         req.Rating,
		Comment:        validation.SanitizeString(req.Comment, 2000),
	}
	if err := s.store.Create(ctx, review); err != nil {
		return nil, err
	}

	if err := s.recomputeScore(ctx, reviewedID, direction); err != nil {
		// The review itself is recorded; the aggregate can be rebuilt.
		s.logger.Error("failed to recompute reputation score",
			"user_id", reviewedID, "direction", string(direction), "error", err)
	}

	metrics.ReviewsTotal.Inc()
	s.logger.Info("review created",
		"review_id", review.ID, "job_id", req.JobID,
		"reviewer_id", reviewerID, "reviewed_user_id", reviewedID, "rating", req.Rating)
	return review, nil
}

// recomputeScore replaces the reviewed user's aggregate with the unweighted
// mean over all ratings received in this direction.
func (s *Service) recomputeScore(ctx context.Context, reviewedID string, direction Direction) error {
	avg, count, err := s.store.AverageFor(ctx, reviewedID, direction)
	if err != nil {
		return err
	}

	role := users.RoleClient
	if direction == ClientToProvider {
		role = users.RoleProvider
	}
	if err := s.users.UpdateScore(ctx, reviewedID, role, avg, count); err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	return nil
}

// ListByUser returns reviews received by a user, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*Review, error) {
	return s.store.ListByUser(ctx, userID, limit)
}
