package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mbd888/jobchain/internal/idgen"
	"github.com/mbd888/jobchain/internal/pagination"
)

// MemoryStore is a thread-safe in-memory implementation for dev and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job.ID == "" {
		job.ID = idgen.WithPrefix("job_")
	}
	job.Status = StatusPending
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt

	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, q Query) ([]*Job, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if q.Limit <= 0 {
		q.Limit = 20
	}

	cursor, err := pagination.Decode(q.Cursor)
	if err != nil {
		return nil, "", err
	}

	var results []*Job
	for _, job := range m.jobs {
		if q.Status != "" && job.Status != q.Status {
			continue
		}
		if q.Category != "" && job.Category != q.Category {
			continue
		}
		if q.ClientID != "" && job.ClientID != q.ClientID {
			continue
		}
		if q.ProviderID != "" && (job.ProviderID == nil || *job.ProviderID != q.ProviderID) {
			continue
		}
		cp := *job
		results = append(results, &cp)
	}

	// Newest first, ID as tiebreaker to keep the cursor stable.
	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID > results[j].ID
	})

	if cursor != nil {
		idx := 0
		for i, job := range results {
			if job.CreatedAt.Before(cursor.CreatedAt) ||
				(job.CreatedAt.Equal(cursor.CreatedAt) && job.ID < cursor.ID) {
				idx = i
				break
			}
			idx = i + 1
		}
		results = results[idx:]
	}

	page, next, _ := pagination.ComputePage(results, q.Limit, func(j *Job) (time.Time, string) {
		return j.CreatedAt, j.ID
	})
	return page, next, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != StatusPending {
		return ErrJobNotPending
	}

	delete(m.jobs, id)
	return nil
}

func (m *MemoryStore) Assign(ctx context.Context, a Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[a.JobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != StatusPending || job.ProviderID != nil {
		return ErrProviderAlreadyAssigned
	}

	providerID := a.ProviderID
	contractJobID := a.ContractJobID
	job.ProviderID = &providerID
	job.ContractJobID = &contractJobID
	if a.TxHash != "" {
		txHash := a.TxHash
		job.TxHash = &txHash
	}
	if a.FinalAmountWei != "" {
		job.AmountWei = a.FinalAmountWei
	}
	job.Status = StatusInProgress
	job.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) Approve(ctx context.Context, jobID string, byClient bool) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status != StatusInProgress {
		return nil, ErrJobNotInProgress
	}

	if byClient {
		if job.ClientApproved {
			return nil, ErrAlreadyApproved
		}
		job.ClientApproved = true
	} else {
		if job.ProviderApproved {
			return nil, ErrAlreadyApproved
		}
		job.ProviderApproved = true
	}

	if job.ClientApproved && job.ProviderApproved {
		now := time.Now()
		job.Status = StatusCompleted
		job.CompletedAt = &now
	}
	job.UpdatedAt = time.Now()

	cp := *job
	return &cp, nil
}
