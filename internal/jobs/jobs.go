// Package jobs implements the job lifecycle for the marketplace.
//
// A job moves PENDING -> IN_PROGRESS -> COMPLETED. The transition out of
// PENDING happens only through the settlement layer once escrow funds are
// locked, and the transition to COMPLETED requires both parties' approval.
// A job's provider is set if and only if the job has left PENDING.
package jobs

import (
	"context"
	"errors"
	"time"
)

var (
	ErrJobNotFound             = errors.New("jobs: job not found")
	ErrJobNotPending           = errors.New("jobs: job is not accepting proposals")
	ErrJobNotInProgress        = errors.New("jobs: job is not in progress")
	ErrProviderAlreadyAssigned = errors.New("jobs: job already has a provider")
	ErrNotJobClient            = errors.New("jobs: caller is not the job's client")
	ErrNotParticipant          = errors.New("jobs: caller is not a participant in this job")
	ErrAlreadyApproved         = errors.New("jobs: caller already approved completion")
)

// Status is the job lifecycle state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusDisputed   Status = "DISPUTED"
	StatusCancelled  Status = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Job is a unit of work posted by a client.
type Job struct {
	ID          string  `json:"id"`
	ClientID    string  `json:"clientId"`
	ProviderID  *string `json:"providerId,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`

	// AmountWei is the client's listed price in integer minor units.
	AmountWei string `json:"amountWei"`

	Status Status `json:"status"`

	// ContractJobID links to the escrow contract's job record. Set only
	// after funds are actually locked on-chain, never speculatively.
	ContractJobID *string `json:"contractJobId,omitempty"`

	// TxHash is the deposit transaction hash recorded at assignment.
	TxHash *string `json:"txHash,omitempty"`

	ClientApproved   bool `json:"clientApproved"`
	ProviderApproved bool `json:"providerApproved"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Participant reports whether userID is the job's client or assigned provider.
func (j *Job) Participant(userID string) bool {
	if j.ClientID == userID {
		return true
	}
	return j.ProviderID != nil && *j.ProviderID == userID
}

// Query filters for listing jobs.
type Query struct {
	Status     Status
	Category   string
	ClientID   string
	ProviderID string
	Cursor     string
	Limit      int
}

// Assignment is the atomic write that moves a job out of PENDING.
type Assignment struct {
	JobID         string
	ProviderID    string
	ContractJobID string
	TxHash        string

	// FinalAmountWei is the agreed price, which may differ from the
	// listed amount after a counteroffer.
	FinalAmountWei string
}

// Store defines the persistence interface for jobs.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, q Query) ([]*Job, string, error)

	// Delete removes a job only while it is still PENDING. Returns
	// ErrJobNotPending if the job has moved on.
	Delete(ctx context.Context, id string) error

	// Assign atomically sets the provider, contract job ID, final amount
	// and IN_PROGRESS status, guarded on the job still being PENDING with
	// no provider. Returns ErrProviderAlreadyAssigned if the guard fails.
	Assign(ctx context.Context, a Assignment) error

	// Approve atomically records one party's completion approval and, if
	// the other party already approved, flips the job to COMPLETED in the
	// same write. Returns the updated job.
	Approve(ctx context.Context, jobID string, byClient bool) (*Job, error)
}
