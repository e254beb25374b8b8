package proposals

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mbd888/jobchain/internal/idgen"
)

// MemoryStore is a thread-safe in-memory implementation for dev and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	proposals map[string]*Proposal
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{proposals: make(map[string]*Proposal)}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, p *Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = idgen.WithPrefix("prop_")
	}
	p.Status = StatusPending
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	cp := *p
	m.proposals[p.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.proposals[id]
	if !ok {
		return nil, ErrProposalNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.proposals[p.ID]; !ok {
		return ErrProposalNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	m.proposals[p.ID] = &cp
	return nil
}

func (m *MemoryStore) ListByJob(ctx context.Context, jobID string) ([]*Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*Proposal
	for _, p := range m.proposals {
		if p.JobID == jobID {
			cp := *p
			results = append(results, &cp)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	return results, nil
}

func (m *MemoryStore) GetActive(ctx context.Context, jobID, providerID string) (*Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.proposals {
		if p.JobID == jobID && p.ProviderID == providerID && p.Status.Active() {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrProposalNotFound
}

func (m *MemoryStore) LatestRejection(ctx context.Context, jobID, providerID string) (*Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *Proposal
	for _, p := range m.proposals {
		if p.JobID != jobID || p.ProviderID != providerID {
			continue
		}
		if p.Status != StatusCounterofferRejected || p.RejectedAt == nil {
			continue
		}
		if latest == nil || p.RejectedAt.After(*latest.RejectedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, ErrProposalNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MemoryStore) Accept(ctx context.Context, proposalID, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	accepted, ok := m.proposals[proposalID]
	if !ok {
		return ErrProposalNotFound
	}

	now := time.Now()
	accepted.Status = StatusAccepted
	accepted.UpdatedAt = now

	// Every rival goes to REJECTED, including cooldown rows. The job is
	// leaving PENDING so their old statuses no longer mean anything.
	for _, p := range m.proposals {
		if p.JobID == jobID && p.ID != proposalID && p.Status != StatusRejected {
			p.Status = StatusRejected
			p.UpdatedAt = now
		}
	}
	return nil
}

func (m *MemoryStore) DeleteByJob(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, p := range m.proposals {
		if p.JobID == jobID {
			delete(m.proposals, id)
		}
	}
	return nil
}
