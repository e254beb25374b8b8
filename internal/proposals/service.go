package proposals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mbd888/jobchain/internal/jobs"
	"github.com/mbd888/jobchain/internal/metrics"
	"github.com/mbd888/jobchain/internal/validation"
)

// JobStore is the read access to jobs the service needs.
type JobStore interface {
	Get(ctx context.Context, id string) (*jobs.Job, error)
}

// Settler commits an accepted proposal: it locks escrow funds and assigns
// the provider. Implemented by the settlement coordinator.
type Settler interface {
	AssignProvider(ctx context.Context, jobID, proposalID, providerID, finalAmountWei string) error
}

// Notifier pushes marketplace events to connected clients.
type Notifier interface {
	Broadcast(event string, data interface{})
	NotifyUser(userID string, event string, data interface{})
}

// Service implements the proposal negotiation flow.
type Service struct {
	store    Store
	jobs     JobStore
	settler  Settler
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a proposal service.
func NewService(store Store, jobStore JobStore) *Service {
	return &Service{
		store:  store,
		jobs:   jobStore,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// WithSettler sets the settlement coordinator used on acceptance.
func (s *Service) WithSettler(settler Settler) *Service {
	s.settler = settler
	return s
}

// WithNotifier sets the event notifier.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// WithClock overrides the time source (used in tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SubmitRequest is the payload for submitting a proposal.
type SubmitRequest struct {
	JobID     string `json:"jobId" binding:"required"`
	AmountWei string `json:"amountWei,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Submit creates a proposal by providerID against a pending job.
func (s *Service) Submit(ctx context.Context, providerID string, req SubmitRequest) (*Proposal, error) {
	if errs := validation.Validate(
		validation.Required("jobId", req.JobID),
		validation.ValidWeiAmount("amountWei", req.AmountWei),
		validation.MaxLength("message", req.Message, 2000),
	); len(errs) > 0 {
		return nil, errs
	}

	job, err := s.jobs.Get(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID == providerID {
		return nil, ErrSelfProposal
	}
	if job.ProviderID != nil {
		return nil, jobs.ErrProviderAlreadyAssigned
	}
	if job.Status != jobs.StatusPending {
		return nil, jobs.ErrJobNotPending
	}

	if _, err := s.store.GetActive(ctx, req.JobID, providerID); err == nil {
		return nil, ErrDuplicateProposal
	} else if !errors.Is(err, ErrProposalNotFound) {
		return nil, fmt.Errorf("check active proposal: %w", err)
	}

	if err := s.checkCooldown(ctx, req.JobID, providerID); err != nil {
		return nil, err
	}

	p := &Proposal{
		JobID:      req.JobID,
		ProviderID: providerID,
		AmountWei:  req.AmountWei,
		Message:    validation.SanitizeString(req.Message, 2000),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create proposal: %w", err)
	}

	metrics.ProposalsTotal.WithLabelValues("submitted").Inc()
	s.logger.Info("proposal submitted",
		"proposal_id", p.ID, "job_id", p.JobID, "provider_id", providerID, "amount_wei", p.AmountWei)

	if s.notifier != nil {
		s.notifier.NotifyUser(job.ClientID, "new-proposal", map[string]interface{}{
			"jobId":      p.JobID,
			"jobTitle":   job.Title,
			"proposalId": p.ID,
			"provider":   p.ProviderID,
			"message":    p.Message,
		})
	}
	return p, nil
}

// checkCooldown blocks re-submission within CooldownPeriod of a rejected
// counteroffer on the same job.
func (s *Service) checkCooldown(ctx context.Context, jobID, providerID string) error {
	rejected, err := s.store.LatestRejection(ctx, jobID, providerID)
	if errors.Is(err, ErrProposalNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check cooldown: %w", err)
	}

	elapsed := s.now().Sub(*rejected.RejectedAt)
	if elapsed >= CooldownPeriod {
		return nil
	}
	remaining := int(math.Ceil((CooldownPeriod - elapsed).Hours()))
	return &CooldownError{RemainingHours: remaining}
}

// CounterOffer lets the job's client counter a pending proposal with a
// different price.
func (s *Service) CounterOffer(ctx context.Context, callerID, proposalID, amountWei string) (*Proposal, error) {
	if validation.ParseWei(amountWei) == nil {
		return nil, validation.ValidationErrors{{Field: "amountWei", Message: "must be a positive integer amount in wei"}}
	}

	p, err := s.store.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.Get(ctx, p.JobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID != callerID {
		return nil, jobs.ErrNotJobClient
	}
	if p.Status != StatusPending {
		return nil, ErrNotPending
	}

	p.CounterAmountWei = amountWei
	p.Status = StatusCounteroffered
	if err := s.store.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("counter proposal: %w", err)
	}

	metrics.ProposalsTotal.WithLabelValues("countered").Inc()
	s.logger.Info("proposal countered",
		"proposal_id", p.ID, "job_id", p.JobID, "counter_amount_wei", amountWei)

	if s.notifier != nil {
		original := p.AmountWei
		if original == "" {
			original = job.AmountWei
		}
		s.notifier.NotifyUser(p.ProviderID, "proposal-counteroffered", map[string]interface{}{
			"proposalId":     p.ID,
			"jobId":          p.JobID,
			"jobTitle":       job.Title,
			"counterOffer":   amountWei,
			"originalAmount": original,
		})
	}
	return p, nil
}

// Respond resolves an open counteroffer: the provider accepts or rejects it.
// Acceptance locks escrow funds through the settlement layer before any
// marketplace state changes.
func (s *Service) Respond(ctx context.Context, callerID, proposalID string, accept bool) (*Proposal, error) {
	p, err := s.store.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.ProviderID != callerID {
		return nil, ErrNotProvider
	}
	if p.Status != StatusCounteroffered {
		return nil, ErrNotCounteroffered
	}

	job, err := s.jobs.Get(ctx, p.JobID)
	if err != nil {
		return nil, err
	}

	if !accept {
		now := s.now()
		p.Status = StatusCounterofferRejected
		p.RejectedAt = &now
		if err := s.store.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("reject counteroffer: %w", err)
		}

		metrics.ProposalsTotal.WithLabelValues("counter_rejected").Inc()
		s.logger.Info("counteroffer rejected", "proposal_id", p.ID, "job_id", p.JobID)

		if s.notifier != nil {
			s.notifier.NotifyUser(job.ClientID, "counteroffer-rejected", outcomePayload(p, job))
		}
		return p, nil
	}

	final := p.FinalAmountWei(job.AmountWei)
	if err := s.settler.AssignProvider(ctx, p.JobID, p.ID, p.ProviderID, final); err != nil {
		return nil, err
	}

	metrics.ProposalsTotal.WithLabelValues("counter_accepted").Inc()
	s.logger.Info("counteroffer accepted",
		"proposal_id", p.ID, "job_id", p.JobID, "final_amount_wei", final)

	if s.notifier != nil {
		s.notifier.NotifyUser(job.ClientID, "counteroffer-accepted", outcomePayload(p, job))
	}
	return s.store.Get(ctx, proposalID)
}

// outcomePayload is the shared counteroffer-accepted/-rejected payload.
func outcomePayload(p *Proposal, job *jobs.Job) map[string]interface{} {
	return map[string]interface{}{
		"proposalId": p.ID,
		"jobId":      p.JobID,
		"jobTitle":   job.Title,
		"provider":   p.ProviderID,
	}
}

// AcceptDirect lets the job's client accept a pending proposal as-is. A
// proposal with an open counteroffer cannot be short-circuited this way; the
// provider owns that decision.
func (s *Service) AcceptDirect(ctx context.Context, callerID, proposalID string) (*Proposal, error) {
	p, err := s.store.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.Get(ctx, p.JobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID != callerID {
		return nil, jobs.ErrNotJobClient
	}
	if p.Status == StatusCounteroffered {
		return nil, ErrDirectAcceptBarred
	}
	if p.Status != StatusPending {
		return nil, ErrNotPending
	}

	final := p.FinalAmountWei(job.AmountWei)
	if err := s.settler.AssignProvider(ctx, p.JobID, p.ID, p.ProviderID, final); err != nil {
		return nil, err
	}

	metrics.ProposalsTotal.WithLabelValues("accepted").Inc()
	s.logger.Info("proposal accepted",
		"proposal_id", p.ID, "job_id", p.JobID, "final_amount_wei", final)

	if s.notifier != nil {
		s.notifier.NotifyUser(p.ProviderID, "proposal-accepted", map[string]interface{}{
			"proposalId": p.ID,
			"jobId":      p.JobID,
			"jobTitle":   job.Title,
			"amount":     final,
		})
	}
	return s.store.Get(ctx, proposalID)
}

// ListByJob returns a job's proposals to its client.
func (s *Service) ListByJob(ctx context.Context, callerID, jobID string) ([]*Proposal, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID != callerID {
		return nil, jobs.ErrNotJobClient
	}
	return s.store.ListByJob(ctx, jobID)
}

// DeleteByJob removes a job's proposals. Used by the jobs service when a
// pending job is deleted.
func (s *Service) DeleteByJob(ctx context.Context, jobID string) error {
	return s.store.DeleteByJob(ctx, jobID)
}
