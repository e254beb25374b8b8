package escrow

import (
	"context"
	"math/big"
	"strconv"
	"sync"

	"github.com/mbd888/jobchain/internal/idgen"
)

// SimGateway simulates the JobEscrow contract in memory. It backs
// development mode, where no chain is configured, and keeps the settlement
// flow exercisable end to end without an RPC endpoint.
type SimGateway struct {
	mu     sync.Mutex
	nextID uint64
	jobs   map[string]*ContractJob
}

var _ Gateway = (*SimGateway)(nil)

// NewSimGateway creates an empty simulated contract.
func NewSimGateway() *SimGateway {
	return &SimGateway{nextID: 1, jobs: make(map[string]*ContractJob)}
}

func (s *SimGateway) CreateAndDeposit(_ context.Context, clientWallet, providerWallet string, amountWei *big.Int, _ string) (*CreateResult, error) {
	if amountWei == nil || amountWei.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := strconv.FormatUint(s.nextID, 10)
	s.nextID++
	s.jobs[id] = &ContractJob{
		Client:    clientWallet,
		Provider:  providerWallet,
		Amount:    new(big.Int).Set(amountWei),
		AmountWei: amountWei.String(),
		Status:    ContractPending,
	}

	return &CreateResult{ContractJobID: id, TxHash: simTxHash()}, nil
}

func (s *SimGateway) AcceptInContract(_ context.Context, contractJobID string) (*TxResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[contractJobID]
	if !ok {
		return nil, ErrJobMissingOnChain
	}
	job.Status = ContractInProgress
	return &TxResult{TxHash: simTxHash()}, nil
}

func (s *SimGateway) ConfirmCompletion(_ context.Context, party Party, contractJobID string) (*TxResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[contractJobID]
	if !ok {
		return nil, ErrJobMissingOnChain
	}

	switch party {
	case PartyClient:
		if job.ClientConfirmed {
			return nil, ErrAlreadyConfirmed
		}
		job.ClientConfirmed = true
	case PartyProvider:
		if job.ProviderConfirmed {
			return nil, ErrAlreadyConfirmed
		}
		job.ProviderConfirmed = true
	default:
		return nil, ErrInvalidAddress
	}

	if job.ClientConfirmed && job.ProviderConfirmed {
		job.Status = ContractCompleted
	}
	return &TxResult{TxHash: simTxHash()}, nil
}

func (s *SimGateway) GetContractJob(_ context.Context, contractJobID string) (*ContractJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[contractJobID]
	if !ok {
		return nil, ErrJobMissingOnChain
	}
	cp := *job
	cp.Amount = new(big.Int).Set(job.Amount)
	return &cp, nil
}

func simTxHash() string {
	return "0x" + idgen.Hex(32)
}
