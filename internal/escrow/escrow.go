// Package escrow wraps the on-chain JobEscrow contract.
//
// The gateway is pure request/response: every method is a synchronous
// contract call that either confirms on-chain or returns an error. It holds
// no job state of its own; the settlement layer owns ordering and
// persistence. There is no automatic retry here — a failed call is surfaced
// with enough detail for the caller to decide whether to re-invoke.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	ErrInvalidOperatorKey   = errors.New("escrow: invalid operator key")
	ErrInvalidAddress       = errors.New("escrow: invalid address")
	ErrInvalidAmount        = errors.New("escrow: invalid amount")
	ErrTransactionReverted  = errors.New("escrow: transaction reverted")
	ErrTimeout              = errors.New("escrow: operation timed out")
	ErrRPCConnection        = errors.New("escrow: RPC connection failed")
	ErrCircuitOpen          = errors.New("escrow: circuit open, contract calls suspended")
	ErrJobMissingOnChain    = errors.New("escrow: job not found in contract")
	ErrAlreadyConfirmed     = errors.New("escrow: party already confirmed on-chain")
	ErrNoJobCreatedEvent    = errors.New("escrow: no JobCreated event in receipt")
)

// CallError wraps a contract call failure with enough context to retry.
type CallError struct {
	Op     string // Operation that failed
	TxHash string // Transaction hash if available
	Err    error  // Underlying error
}

func (e *CallError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("escrow: %s failed (tx: %s): %v", e.Op, e.TxHash, e.Err)
	}
	return fmt.Sprintf("escrow: %s failed: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Party identifies which side of a job is acting.
type Party string

const (
	PartyClient   Party = "client"
	PartyProvider Party = "provider"
)

// ContractStatus mirrors the contract's job status enum.
type ContractStatus uint8

const (
	ContractPending    ContractStatus = 0
	ContractInProgress ContractStatus = 1
	ContractCompleted  ContractStatus = 2
	ContractDisputed   ContractStatus = 3
	ContractCancelled  ContractStatus = 4
)

// String returns the status name.
func (s ContractStatus) String() string {
	switch s {
	case ContractPending:
		return "PENDING"
	case ContractInProgress:
		return "IN_PROGRESS"
	case ContractCompleted:
		return "COMPLETED"
	case ContractDisputed:
		return "DISPUTED"
	case ContractCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// CreateResult is returned by CreateAndDeposit.
type CreateResult struct {
	ContractJobID string `json:"contractJobId"`
	TxHash        string `json:"txHash"`
}

// TxResult is returned by state-changing calls that yield no new ID.
type TxResult struct {
	TxHash string `json:"txHash"`
}

// ContractJob is the contract-side view of a job.
type ContractJob struct {
	Client            string         `json:"client"`
	Provider          string         `json:"provider"`
	Amount            *big.Int       `json:"-"`
	AmountWei         string         `json:"amountWei"`
	Status            ContractStatus `json:"status"`
	ClientConfirmed   bool           `json:"clientConfirmed"`
	ProviderConfirmed bool           `json:"providerConfirmed"`
}

// Gateway is the contract client consumed by the settlement layer.
type Gateway interface {
	// CreateAndDeposit creates the contract-side job and locks the client's
	// funds into escrow in the same transaction.
	CreateAndDeposit(ctx context.Context, clientWallet, providerWallet string, amountWei *big.Int, category string) (*CreateResult, error)

	// AcceptInContract flips the contract-side job to in-progress.
	AcceptInContract(ctx context.Context, contractJobID string) (*TxResult, error)

	// ConfirmCompletion records one party's completion confirmation on-chain.
	// Returns ErrAlreadyConfirmed without sending a transaction if the chain
	// already shows this party confirmed.
	ConfirmCompletion(ctx context.Context, party Party, contractJobID string) (*TxResult, error)

	// GetContractJob reads the contract-side job state.
	GetContractJob(ctx context.Context, contractJobID string) (*ContractJob, error)
}

const (
	// DefaultGasLimit for contract calls when estimation fails.
	DefaultGasLimit = uint64(300000)

	// DefaultConfirmationTimeout for waiting on transactions.
	DefaultConfirmationTimeout = 90 * time.Second

	// ConfirmationPollInterval between receipt checks.
	ConfirmationPollInterval = 2 * time.Second
)
