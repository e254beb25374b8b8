package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mbd888/jobchain/internal/escrow"
	"github.com/mbd888/jobchain/internal/jobs"
	"github.com/mbd888/jobchain/internal/metrics"
	"github.com/mbd888/jobchain/internal/syncutil"
	"github.com/mbd888/jobchain/internal/traces"
	"github.com/mbd888/jobchain/internal/users"
	"github.com/mbd888/jobchain/internal/validation"
)

// JobStore is the job persistence the coordinator needs.
type JobStore interface {
	Get(ctx context.Context, id string) (*jobs.Job, error)
	Assign(ctx context.Context, a jobs.Assignment) error
	Approve(ctx context.Context, jobID string, byClient bool) (*jobs.Job, error)
}

// ProposalStore marks the winning proposal and rejects its rivals.
type ProposalStore interface {
	Accept(ctx context.Context, proposalID, jobID string) error
}

// UserStore resolves participants' wallet addresses.
type UserStore interface {
	Get(ctx context.Context, id string) (*users.User, error)
}

// Coordinator runs the escrow-backed assignment and completion protocols.
type Coordinator struct {
	gateway   escrow.Gateway
	jobs      JobStore
	proposals ProposalStore
	users     UserStore
	notifier  Notifier
	locks     *syncutil.ContextShardedMutex
	logger    *slog.Logger
}

// NewCoordinator creates a settlement coordinator.
func NewCoordinator(gateway escrow.Gateway, jobStore JobStore, proposalStore ProposalStore, userStore UserStore) *Coordinator {
	return &Coordinator{
		gateway:   gateway,
		jobs:      jobStore,
		proposals: proposalStore,
		users:     userStore,
		locks:     syncutil.NewContextShardedMutex(),
		logger:    slog.Default(),
	}
}

// WithNotifier sets the event notifier.
func (c *Coordinator) WithNotifier(n Notifier) *Coordinator {
	c.notifier = n
	return c
}

// WithLogger sets the logger.
func (c *Coordinator) WithLogger(logger *slog.Logger) *Coordinator {
	c.logger = logger
	return c
}

// AssignProvider locks finalAmountWei of the client's funds in escrow and
// assigns providerID to the job. The marketplace record changes only after
// both contract calls succeed.
func (c *Coordinator) AssignProvider(ctx context.Context, jobID, proposalID, providerID, finalAmountWei string) error {
	ctx, span := traces.StartSpan(ctx, "settlement.AssignProvider",
		traces.JobID(jobID), traces.ProposalID(proposalID), traces.AmountWei(finalAmountWei))
	defer span.End()

	unlock, err := c.locks.LockContext(ctx, jobID)
	if err != nil {
		return err
	}
	defer unlock()

	// Re-validate under the lock. A rival acceptance may have won the race.
	job, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.ProviderID != nil {
		metrics.SettlementAssignmentsTotal.WithLabelValues("already_assigned").Inc()
		return jobs.ErrProviderAlreadyAssigned
	}
	if job.Status != jobs.StatusPending {
		metrics.SettlementAssignmentsTotal.WithLabelValues("not_pending").Inc()
		return jobs.ErrJobNotPending
	}

	amount := validation.ParseWei(finalAmountWei)
	if amount == nil {
		return escrow.ErrInvalidAmount
	}

	client, err := c.users.Get(ctx, job.ClientID)
	if err != nil {
		return fmt.Errorf("resolve client wallet: %w", err)
	}
	provider, err := c.users.Get(ctx, providerID)
	if err != nil {
		return fmt.Errorf("resolve provider wallet: %w", err)
	}

	// Step one: create the contract job and lock the funds. A failure here
	// aborts with nothing moved and nothing persisted.
	created, err := c.gateway.CreateAndDeposit(ctx, client.WalletAddress, provider.WalletAddress, amount, job.Category)
	if err != nil {
		metrics.SettlementAssignmentsTotal.WithLabelValues("deposit_failed").Inc()
		c.logger.Warn("escrow deposit failed, assignment aborted",
			"job_id", jobID, "proposal_id", proposalID, "error", err)
		return err
	}

	// Step two: accept the contract-side job. Funds are locked now, so a
	// failure leaves an orphaned deposit that needs operator attention. The
	// job stays PENDING and the caller is told to retry.
	if _, err := c.gateway.AcceptInContract(ctx, created.ContractJobID); err != nil {
		metrics.SettlementAssignmentsTotal.WithLabelValues("accept_failed").Inc()
		metrics.SettlementOrphanedDepositsTotal.Inc()
		c.logger.Error("CRITICAL: funds deposited but contract accept failed, deposit orphaned",
			"job_id", jobID, "contract_job_id", created.ContractJobID,
			"amount_wei", finalAmountWei, "tx", created.TxHash, "error", err)
		return fmt.Errorf("%w: %v", ErrAssignmentRetry, err)
	}

	// Both contract calls succeeded. Persist the assignment, guarded on the
	// job still being PENDING with no provider.
	if err := c.jobs.Assign(ctx, jobs.Assignment{
		JobID:          jobID,
		ProviderID:     providerID,
		ContractJobID:  created.ContractJobID,
		TxHash:         created.TxHash,
		FinalAmountWei: finalAmountWei,
	}); err != nil {
		metrics.SettlementAssignmentsTotal.WithLabelValues("persist_failed").Inc()
		metrics.SettlementOrphanedDepositsTotal.Inc()
		c.logger.Error("CRITICAL: funds locked in escrow but job assignment was not persisted",
			"job_id", jobID, "contract_job_id", created.ContractJobID,
			"amount_wei", finalAmountWei, "error", err)
		return fmt.Errorf("%w: %v", ErrAssignmentRetry, err)
	}

	if err := c.proposals.Accept(ctx, proposalID, jobID); err != nil {
		// The job is assigned and funds are locked; only the proposal
		// records are stale. Do not fail the acceptance over it.
		c.logger.Error("CRITICAL: job assigned but proposal records were not updated",
			"job_id", jobID, "proposal_id", proposalID, "error", err)
	}

	metrics.SettlementAssignmentsTotal.WithLabelValues("ok").Inc()
	metrics.JobStatusTransitionsTotal.WithLabelValues(string(jobs.StatusPending), string(jobs.StatusInProgress)).Inc()
	c.logger.Info("provider assigned",
		"job_id", jobID, "proposal_id", proposalID, "provider_id", providerID,
		"contract_job_id", created.ContractJobID, "amount_wei", finalAmountWei)

	if c.notifier != nil {
		if updated, err := c.jobs.Get(ctx, jobID); err == nil {
			c.notifier.Broadcast("job-status-changed",
				statusChange(updated, jobs.StatusPending, "A provider was assigned and escrow funds are locked"))
		}
	}
	return nil
}

// statusChange builds the job-status-changed payload.
func statusChange(job *jobs.Job, oldStatus jobs.Status, message string) map[string]interface{} {
	return map[string]interface{}{
		"jobId":     job.ID,
		"jobTitle":  job.Title,
		"oldStatus": string(oldStatus),
		"newStatus": string(job.Status),
		"message":   message,
	}
}

// ApproveCompletion records callerID's completion approval. The on-chain
// confirmation is mirrored best-effort; the marketplace approval never blocks
// on it. When both parties have approved, the job completes.
func (c *Coordinator) ApproveCompletion(ctx context.Context, callerID, jobID string) (*jobs.Job, error) {
	ctx, span := traces.StartSpan(ctx, "settlement.ApproveCompletion", traces.JobID(jobID))
	defer span.End()

	unlock, err := c.locks.LockContext(ctx, jobID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	job, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != jobs.StatusInProgress {
		return nil, jobs.ErrJobNotInProgress
	}
	if !job.Participant(callerID) {
		return nil, jobs.ErrNotParticipant
	}

	byClient := callerID == job.ClientID
	if (byClient && job.ClientApproved) || (!byClient && job.ProviderApproved) {
		return nil, jobs.ErrAlreadyApproved
	}

	c.mirrorConfirmation(ctx, job, byClient)

	updated, err := c.jobs.Approve(ctx, jobID, byClient)
	if err != nil {
		return nil, err
	}

	c.logger.Info("completion approved",
		"job_id", jobID, "by_client", byClient, "status", string(updated.Status))

	if updated.Status == jobs.StatusCompleted {
		metrics.JobStatusTransitionsTotal.WithLabelValues(string(jobs.StatusInProgress), string(jobs.StatusCompleted)).Inc()
		if c.notifier != nil {
			payload := statusChange(updated, jobs.StatusInProgress, "Both parties approved completion and escrow funds were released")
			c.notifier.Broadcast("job-status-changed", payload)
			c.notifier.NotifyUser(updated.ClientID, "job-status-changed", payload)
			if updated.ProviderID != nil {
				c.notifier.NotifyUser(*updated.ProviderID, "job-status-changed", payload)
			}
		}
	} else if c.notifier != nil {
		// One approval in: tell everyone the job is waiting and nudge the
		// party whose approval is still missing.
		payload := statusChange(updated, jobs.StatusInProgress, "Completion approved by one party, awaiting the other party's approval")
		c.notifier.Broadcast("job-status-changed", payload)
		other := updated.ClientID
		if byClient && updated.ProviderID != nil {
			other = *updated.ProviderID
		}
		c.notifier.NotifyUser(other, "job-status-changed", payload)
	}
	return updated, nil
}

// mirrorConfirmation pushes the approval on-chain. Failures are logged and
// counted but never block the marketplace approval.
func (c *Coordinator) mirrorConfirmation(ctx context.Context, job *jobs.Job, byClient bool) {
	if job.ContractJobID == nil {
		return
	}

	party := escrow.PartyProvider
	if byClient {
		party = escrow.PartyClient
	}

	_, err := c.gateway.ConfirmCompletion(ctx, party, *job.ContractJobID)
	if err != nil && !errors.Is(err, escrow.ErrAlreadyConfirmed) {
		metrics.CompletionMirrorFailuresTotal.Inc()
		c.logger.Warn("on-chain completion mirror failed",
			"job_id", job.ID, "contract_job_id", *job.ContractJobID,
			"party", string(party), "error", err)
	}
}

// ContractStatus reads the escrow contract's view of a job for one of its
// participants.
func (c *Coordinator) ContractStatus(ctx context.Context, callerID, jobID string) (*escrow.ContractJob, error) {
	job, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Participant(callerID) {
		return nil, jobs.ErrNotParticipant
	}
	if job.ContractJobID == nil {
		return nil, ErrNoContract
	}
	return c.gateway.GetContractJob(ctx, *job.ContractJobID)
}
