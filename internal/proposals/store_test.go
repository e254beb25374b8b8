package proposals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbd888/jobchain/internal/jobs"
	"github.com/mbd888/jobchain/internal/testutil"
	"github.com/mbd888/jobchain/internal/users"
)

func TestMemoryStore_AcceptRejectsAllSiblings(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	winner := &Proposal{JobID: "job_1", ProviderID: "usr_a", AmountWei: "100"}
	pending := &Proposal{JobID: "job_1", ProviderID: "usr_b"}
	cooled := &Proposal{JobID: "job_1", ProviderID: "usr_c"}
	unrelated := &Proposal{JobID: "job_2", ProviderID: "usr_b"}
	for _, p := range []*Proposal{winner, pending, cooled, unrelated} {
		if err := store.Create(ctx, p); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	now := time.Now()
	cooled.Status = StatusCounterofferRejected
	cooled.RejectedAt = &now
	if err := store.Update(ctx, cooled); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := store.Accept(ctx, winner.ID, "job_1"); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	got, _ := store.Get(ctx, winner.ID)
	if got.Status != StatusAccepted {
		t.Errorf("winner status = %s", got.Status)
	}
	for _, p := range []*Proposal{pending, cooled} {
		got, _ := store.Get(ctx, p.ID)
		if got.Status != StatusRejected {
			t.Errorf("sibling %s status = %s, want REJECTED", p.ProviderID, got.Status)
		}
	}
	got, _ = store.Get(ctx, unrelated.ID)
	if got.Status != StatusPending {
		t.Errorf("other job's proposal status = %s", got.Status)
	}
}

func TestPostgresStore_AcceptRejectsAllSiblings(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()
	ctx := context.Background()

	userStore := users.NewPostgresStore(db)
	seed := []*users.User{
		{Email: "client@pg.test", Name: "Client", WalletAddress: "0x1111111111111111111111111111111111111111"},
		{Email: "a@pg.test", Name: "A", WalletAddress: "0x2222222222222222222222222222222222222222"},
		{Email: "b@pg.test", Name: "B", WalletAddress: "0x3333333333333333333333333333333333333333"},
	}
	for _, u := range seed {
		require.NoError(t, userStore.Create(ctx, u))
	}

	job := &jobs.Job{ClientID: seed[0].ID, Title: "Tile the bathroom", Category: "tiling", AmountWei: "100000"}
	require.NoError(t, jobs.NewPostgresStore(db).Create(ctx, job))

	store := NewPostgresStore(db)
	winner := &Proposal{JobID: job.ID, ProviderID: seed[1].ID, AmountWei: "90000"}
	require.NoError(t, store.Create(ctx, winner))
	cooled := &Proposal{JobID: job.ID, ProviderID: seed[2].ID}
	require.NoError(t, store.Create(ctx, cooled))

	now := time.Now()
	cooled.Status = StatusCounterofferRejected
	cooled.RejectedAt = &now
	require.NoError(t, store.Update(ctx, cooled))

	require.NoError(t, store.Accept(ctx, winner.ID, job.ID))

	got, err := store.Get(ctx, winner.ID)
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, got.Status)

	got, err = store.Get(ctx, cooled.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, got.Status)
}
