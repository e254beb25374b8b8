package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedJob(t *testing.T, store *MemoryStore, clientID, category string) *Job {
	t.Helper()
	job := &Job{ClientID: clientID, Title: "Test job", Category: category, AmountWei: "1000"}
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return job
}

func TestMemoryStore_CreateDefaults(t *testing.T) {
	store := NewMemoryStore()
	job := seedJob(t, store, "usr_c", "garden")

	if job.ID == "" {
		t.Fatal("expected generated ID")
	}
	if job.Status != StatusPending {
		t.Errorf("status = %s", job.Status)
	}

	got, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ProviderID != nil || got.ContractJobID != nil {
		t.Error("new job must have no provider or contract record")
	}
}

func TestMemoryStore_ListFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := seedJob(t, store, "usr_a", "garden")
	seedJob(t, store, "usr_b", "plumbing")
	if err := store.Assign(ctx, Assignment{JobID: a.ID, ProviderID: "usr_p", ContractJobID: "1"}); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	byStatus, _, err := store.List(ctx, Query{Status: StatusPending})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].Category != "plumbing" {
		t.Errorf("status filter: %+v", byStatus)
	}

	byCategory, _, _ := store.List(ctx, Query{Category: "garden"})
	if len(byCategory) != 1 || byCategory[0].ID != a.ID {
		t.Errorf("category filter: %+v", byCategory)
	}

	byProvider, _, _ := store.List(ctx, Query{ProviderID: "usr_p"})
	if len(byProvider) != 1 || byProvider[0].ID != a.ID {
		t.Errorf("provider filter: %+v", byProvider)
	}

	byClient, _, _ := store.List(ctx, Query{ClientID: "usr_b"})
	if len(byClient) != 1 {
		t.Errorf("client filter: %+v", byClient)
	}
}

func TestMemoryStore_ListPagination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedJob(t, store, "usr_c", "garden")
		time.Sleep(time.Millisecond)
	}

	page1, cursor, err := store.List(ctx, Query{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page1) != 2 || cursor == "" {
		t.Fatalf("page1 = %d items, cursor %q", len(page1), cursor)
	}

	page2, cursor2, err := store.List(ctx, Query{Limit: 2, Cursor: cursor})
	if err != nil {
		t.Fatalf("List page2: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("page2 = %d items", len(page2))
	}

	seen := map[string]bool{}
	for _, j := range append(page1, page2...) {
		if seen[j.ID] {
			t.Errorf("job %s appeared twice across pages", j.ID)
		}
		seen[j.ID] = true
	}

	page3, cursor3, _ := store.List(ctx, Query{Limit: 2, Cursor: cursor2})
	if len(page3) != 1 || cursor3 != "" {
		t.Errorf("page3 = %d items, cursor %q", len(page3), cursor3)
	}
}

func TestMemoryStore_DeleteOnlyPending(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	job := seedJob(t, store, "usr_c", "garden")
	if err := store.Assign(ctx, Assignment{JobID: job.ID, ProviderID: "usr_p", ContractJobID: "1"}); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := store.Delete(ctx, job.ID); !errors.Is(err, ErrJobNotPending) {
		t.Errorf("delete assigned: %v", err)
	}

	pending := seedJob(t, store, "usr_c", "garden")
	if err := store.Delete(ctx, pending.ID); err != nil {
		t.Errorf("delete pending: %v", err)
	}
	if _, err := store.Get(ctx, pending.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("deleted job still readable: %v", err)
	}
}

func TestMemoryStore_AssignGuard(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	job := seedJob(t, store, "usr_c", "garden")
	if err := store.Assign(ctx, Assignment{JobID: job.ID, ProviderID: "usr_p", ContractJobID: "7", TxHash: "0xabc", FinalAmountWei: "900"}); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	got, _ := store.Get(ctx, job.ID)
	if got.Status != StatusInProgress || *got.ProviderID != "usr_p" || *got.ContractJobID != "7" {
		t.Errorf("assigned job = %+v", got)
	}
	if got.AmountWei != "900" {
		t.Errorf("final amount = %s", got.AmountWei)
	}
	if got.TxHash == nil || *got.TxHash != "0xabc" {
		t.Errorf("tx hash = %v", got.TxHash)
	}

	err := store.Assign(ctx, Assignment{JobID: job.ID, ProviderID: "usr_q", ContractJobID: "8"})
	if !errors.Is(err, ErrProviderAlreadyAssigned) {
		t.Errorf("second assign: %v", err)
	}
	if err := store.Assign(ctx, Assignment{JobID: "job_missing", ProviderID: "usr_p", ContractJobID: "9"}); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("missing job: %v", err)
	}
}

func TestMemoryStore_ApproveFlipsOnSecond(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	job := seedJob(t, store, "usr_c", "garden")

	if _, err := store.Approve(ctx, job.ID, true); !errors.Is(err, ErrJobNotInProgress) {
		t.Errorf("approve pending: %v", err)
	}

	if err := store.Assign(ctx, Assignment{JobID: job.ID, ProviderID: "usr_p", ContractJobID: "1"}); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	first, err := store.Approve(ctx, job.ID, true)
	if err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if first.Status != StatusInProgress || !first.ClientApproved {
		t.Errorf("after first approval: %+v", first)
	}

	if _, err := store.Approve(ctx, job.ID, true); !errors.Is(err, ErrAlreadyApproved) {
		t.Errorf("repeat approve: %v", err)
	}

	second, err := store.Approve(ctx, job.ID, false)
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if second.Status != StatusCompleted || second.CompletedAt == nil {
		t.Errorf("after both approvals: %+v", second)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	if !StatusCompleted.IsTerminal() || !StatusCancelled.IsTerminal() {
		t.Error("terminal statuses misreported")
	}
	if StatusPending.IsTerminal() || StatusInProgress.IsTerminal() || StatusDisputed.IsTerminal() {
		t.Error("open statuses misreported")
	}
}
