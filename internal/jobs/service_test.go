package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type recNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recNotifier) Broadcast(event string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recNotifier) NotifyUser(userID, event string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recNotifier) has(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

type recCleaner struct {
	deleted []string
}

func (c *recCleaner) DeleteByJob(ctx context.Context, jobID string) error {
	c.deleted = append(c.deleted, jobID)
	return nil
}

func TestServiceCreate(t *testing.T) {
	store := NewMemoryStore()
	notifier := &recNotifier{}
	svc := NewService(store).WithNotifier(notifier)

	job, err := svc.Create(context.Background(), "usr_c", CreateJobRequest{
		Title: "Assemble wardrobe", Category: "furniture", AmountWei: "250000000000000000",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.Status != StatusPending || job.ClientID != "usr_c" {
		t.Errorf("job = %+v", job)
	}
	if !notifier.has("new-job-created") {
		t.Error("expected new-job-created broadcast")
	}
}

func TestServiceCreate_Validation(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateJobRequest
	}{
		{"missing title", CreateJobRequest{Category: "x", AmountWei: "100"}},
		{"missing amount", CreateJobRequest{Title: "t", Category: "x"}},
		{"fractional amount", CreateJobRequest{Title: "t", Category: "x", AmountWei: "1.5"}},
		{"zero amount", CreateJobRequest{Title: "t", Category: "x", AmountWei: "0"}},
		{"negative amount", CreateJobRequest{Title: "t", Category: "x", AmountWei: "-10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, "usr_c", tt.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestServiceDelete(t *testing.T) {
	store := NewMemoryStore()
	notifier := &recNotifier{}
	cleaner := &recCleaner{}
	svc := NewService(store).WithNotifier(notifier).WithProposalCleaner(cleaner)
	ctx := context.Background()

	job, err := svc.Create(ctx, "usr_c", CreateJobRequest{Title: "t", Category: "x", AmountWei: "100"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(ctx, "usr_other", job.ID); !errors.Is(err, ErrNotJobClient) {
		t.Errorf("delete by stranger: %v", err)
	}

	if err := svc.Delete(ctx, "usr_c", job.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(cleaner.deleted) != 1 || cleaner.deleted[0] != job.ID {
		t.Errorf("proposal cleanup: %v", cleaner.deleted)
	}
	if !notifier.has("job-deleted") {
		t.Error("expected job-deleted broadcast")
	}

	if err := svc.Delete(ctx, "usr_c", job.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("double delete: %v", err)
	}
}

func TestServiceDelete_AssignedJobRefused(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	job, err := svc.Create(ctx, "usr_c", CreateJobRequest{Title: "t", Category: "x", AmountWei: "100"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Assign(ctx, Assignment{JobID: job.ID, ProviderID: "usr_p", ContractJobID: "1"}); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	if err := svc.Delete(ctx, "usr_c", job.ID); !errors.Is(err, ErrJobNotPending) {
		t.Errorf("delete in-progress: %v", err)
	}
}
