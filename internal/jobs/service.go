package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mbd888/jobchain/internal/metrics"
	"github.com/mbd888/jobchain/internal/validation"
)

// Notifier pushes marketplace events to connected clients.
type Notifier interface {
	Broadcast(event string, data interface{})
	NotifyUser(userID string, event string, data interface{})
}

// ProposalCleaner removes a job's proposals when the job is deleted.
type ProposalCleaner interface {
	DeleteByJob(ctx context.Context, jobID string) error
}

// Service implements job lifecycle operations.
type Service struct {
	store     Store
	notifier  Notifier
	proposals ProposalCleaner
	logger    *slog.Logger
}

// NewService creates a job service.
func NewService(store Store) *Service {
	return &Service{store: store, logger: slog.Default()}
}

// WithNotifier sets the event notifier.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithProposalCleaner sets the proposal cleanup hook used on deletion.
func (s *Service) WithProposalCleaner(p ProposalCleaner) *Service {
	s.proposals = p
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// CreateJobRequest is the payload for posting a job.
type CreateJobRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	AmountWei   string `json:"amountWei" binding:"required"`
}

// Create posts a new job on behalf of clientID.
func (s *Service) Create(ctx context.Context, clientID string, req CreateJobRequest) (*Job, error) {
	if errs := validation.Validate(
		validation.Required("title", req.Title),
		validation.Required("category", req.Category),
		validation.Required("amountWei", req.AmountWei),
		validation.ValidWeiAmount("amountWei", req.AmountWei),
		validation.MaxLength("title", req.Title, 200),
		validation.MaxLength("description", req.Description, 5000),
	); len(errs) > 0 {
		return nil, errs
	}

	job := &Job{
		ClientID:    clientID,
		Title:       validation.SanitizeString(req.Title, 200),
		Description: validation.SanitizeString(req.Description, 5000),
		Category:    validation.SanitizeString(req.Category, 100),
		AmountWei:   req.AmountWei,
	}

	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	metrics.JobsCreatedTotal.Inc()
	s.logger.Info("job created",
		"job_id", job.ID, "client_id", clientID, "category", job.Category, "amount_wei", job.AmountWei)

	if s.notifier != nil {
		s.notifier.Broadcast("new-job-created", map[string]interface{}{
			"jobId":    job.ID,
			"title":    job.Title,
			"category": job.Category,
			"amount":   job.AmountWei,
			"client":   job.ClientID,
		})
	}
	return job, nil
}

// Get returns a single job.
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// List returns a filtered page of jobs with an opaque next cursor.
func (s *Service) List(ctx context.Context, q Query) ([]*Job, string, error) {
	return s.store.List(ctx, q)
}

// Delete removes a PENDING job. Only the posting client may delete, and the
// job's proposals go with it.
func (s *Service) Delete(ctx context.Context, callerID, jobID string) error {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.ClientID != callerID {
		return ErrNotJobClient
	}

	if err := s.store.Delete(ctx, jobID); err != nil {
		return err
	}

	if s.proposals != nil {
		if err := s.proposals.DeleteByJob(ctx, jobID); err != nil {
			s.logger.Warn("failed to clean up proposals for deleted job", "job_id", jobID, "error", err)
		}
	}

	s.logger.Info("job deleted", "job_id", jobID, "client_id", callerID)
	if s.notifier != nil {
		s.notifier.Broadcast("job-deleted", map[string]interface{}{"jobId": jobID})
	}
	return nil
}
