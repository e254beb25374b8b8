// Package settlement coordinates job assignment and completion against the
// escrow contract.
//
// The assignment protocol is strict: funds are created and locked on-chain,
// the contract-side job is accepted, and only after both calls succeed is the
// marketplace record updated. A failure before funds move aborts cleanly; a
// failure after funds move leaves the job PENDING and is surfaced as a
// retryable error, never as a half-assigned job.
package settlement

import (
	"errors"
)

var (
	// ErrAssignmentRetry is returned when escrow funds were deposited but
	// the assignment could not be completed. The job remains open and the
	// acceptance should be retried.
	ErrAssignmentRetry = errors.New("settlement: escrow deposit succeeded but assignment did not complete, retry the acceptance")

	// ErrNoContract is returned when a job has no escrow record yet.
	ErrNoContract = errors.New("settlement: job has no escrow contract record")
)

// Notifier pushes marketplace events to connected clients.
type Notifier interface {
	Broadcast(event string, data interface{})
	NotifyUser(userID string, event string, data interface{})
}
