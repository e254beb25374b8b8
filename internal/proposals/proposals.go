// Package proposals implements the negotiation flow between providers and
// clients.
//
// A provider submits a proposal against a PENDING job. The client can accept
// it directly or counter with a different price; the provider then accepts or
// rejects the counter. A rejected counteroffer locks the provider out of that
// job for a cooldown period. Acceptance in any form hands off to the
// settlement layer, which locks funds before anything is persisted.
package proposals

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CooldownPeriod is how long a provider must wait after a rejected
// counteroffer before proposing on the same job again.
const CooldownPeriod = 24 * time.Hour

var (
	ErrProposalNotFound   = errors.New("proposals: proposal not found")
	ErrSelfProposal       = errors.New("proposals: cannot propose on your own job")
	ErrDuplicateProposal  = errors.New("proposals: an active proposal for this job already exists")
	ErrNotPending         = errors.New("proposals: proposal is not pending")
	ErrNotCounteroffered  = errors.New("proposals: proposal has no open counteroffer")
	ErrNotProvider        = errors.New("proposals: caller is not this proposal's provider")
	ErrDirectAcceptBarred = errors.New("proposals: a countered proposal must be resolved by the provider")
)

// CooldownError reports how long a provider must still wait before
// re-proposing on a job.
type CooldownError struct {
	RemainingHours int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("proposals: counteroffer cooldown active, retry in %d hours", e.RemainingHours)
}

// Status is the proposal lifecycle state.
type Status string

const (
	StatusPending             Status = "PENDING"
	StatusCounteroffered      Status = "COUNTEROFFERED"
	StatusCounterofferRejected Status = "COUNTEROFFER_REJECTED"
	StatusAccepted            Status = "ACCEPTED"
	StatusRejected            Status = "REJECTED"
)

// Active reports whether the proposal still blocks a new submission for the
// same (job, provider) pair.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusCounteroffered
}

// Proposal is a provider's offer to work a job.
type Proposal struct {
	ID         string `json:"id"`
	JobID      string `json:"jobId"`
	ProviderID string `json:"providerId"`

	// AmountWei is the provider's asking price. Empty means the provider
	// accepts the job's listed amount.
	AmountWei string `json:"amountWei,omitempty"`
	Message   string `json:"message,omitempty"`

	// CounterAmountWei is the client's counteroffer price, set while the
	// proposal is COUNTEROFFERED or after the counter was resolved.
	CounterAmountWei string `json:"counterAmountWei,omitempty"`

	Status     Status     `json:"status"`
	RejectedAt *time.Time `json:"rejectedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FinalAmountWei resolves the agreed price: the counteroffer if one was made,
// otherwise the provider's ask, otherwise the job's listed amount.
func (p *Proposal) FinalAmountWei(jobAmountWei string) string {
	if p.CounterAmountWei != "" {
		return p.CounterAmountWei
	}
	if p.AmountWei != "" {
		return p.AmountWei
	}
	return jobAmountWei
}

// Store defines the persistence interface for proposals.
type Store interface {
	Create(ctx context.Context, p *Proposal) error
	Get(ctx context.Context, id string) (*Proposal, error)
	Update(ctx context.Context, p *Proposal) error
	ListByJob(ctx context.Context, jobID string) ([]*Proposal, error)

	// GetActive returns the provider's PENDING or COUNTEROFFERED proposal
	// for the job, or ErrProposalNotFound.
	GetActive(ctx context.Context, jobID, providerID string) (*Proposal, error)

	// LatestRejection returns the provider's most recent
	// COUNTEROFFER_REJECTED proposal for the job, or ErrProposalNotFound.
	LatestRejection(ctx context.Context, jobID, providerID string) (*Proposal, error)

	// Accept marks one proposal ACCEPTED and every other active proposal
	// on the same job REJECTED.
	Accept(ctx context.Context, proposalID, jobID string) error

	DeleteByJob(ctx context.Context, jobID string) error
}
