package reviews

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mbd888/jobchain/internal/idgen"
)

// MemoryStore is a thread-safe in-memory implementation for dev and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	reviews map[string]*Review
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reviews: make(map[string]*Review)}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, r *Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.reviews {
		if existing.JobID == r.JobID && existing.ReviewerID == r.ReviewerID {
			return ErrDuplicateReview
		}
	}

	if r.ID == "" {
		r.ID = idgen.WithPrefix("rev_")
	}
	r.CreatedAt = time.Now()

	cp := *r
	m.reviews[r.ID] = &cp
	return nil
}

func (m *MemoryStore) GetByJobReviewer(ctx context.Context, jobID, reviewerID string) (*Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.reviews {
		if r.JobID == jobID && r.ReviewerID == reviewerID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrReviewNotFound
}

func (m *MemoryStore) ListByUser(ctx context.Context, reviewedUserID string, limit int) ([]*Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	var results []*Review
	for _, r := range m.reviews {
		if r.ReviewedUserID == reviewedUserID {
			cp := *r
			results = append(results, &cp)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) AverageFor(ctx context.Context, reviewedUserID string, direction Direction) (float64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum, count int64
	for _, r := range m.reviews {
		if r.ReviewedUserID == reviewedUserID && r.Direction == direction {
			sum += int64(r.Rating)
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}
