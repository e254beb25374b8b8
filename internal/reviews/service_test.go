package reviews

import (
	"context"
	"errors"
	"testing"

	"github.com/mbd888/jobchain/internal/jobs"
	"github.com/mbd888/jobchain/internal/users"
)

type revFixture struct {
	service   *Service
	jobStore  *jobs.MemoryStore
	userStore *users.MemoryStore
	store     *MemoryStore
	job       *jobs.Job
}

func newRevFixture(t *testing.T) *revFixture {
	t.Helper()
	ctx := context.Background()

	f := &revFixture{
		jobStore:  jobs.NewMemoryStore(),
		userStore: users.NewMemoryStore(),
		store:     NewMemoryStore(),
	}
	f.service = NewService(f.store, f.jobStore, f.userStore)

	for _, u := range []*users.User{
		{ID: "usr_client", Email: "c@t.com", Name: "C", WalletAddress: "0x1111111111111111111111111111111111111111"},
		{ID: "usr_provider", Email: "p@t.com", Name: "P", WalletAddress: "0x2222222222222222222222222222222222222222"},
	} {
		if err := f.userStore.Create(ctx, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	f.job = &jobs.Job{ClientID: "usr_client", Title: "Mow the lawn", Category: "garden", AmountWei: "1000"}
	if err := f.jobStore.Create(ctx, f.job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return f
}

// complete drives the job through assignment and dual approval.
func (f *revFixture) complete(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := f.jobStore.Assign(ctx, jobs.Assignment{JobID: f.job.ID, ProviderID: "usr_provider", ContractJobID: "1"}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.jobStore.Approve(ctx, f.job.ID, true); err != nil {
		t.Fatalf("client approve: %v", err)
	}
	if _, err := f.jobStore.Approve(ctx, f.job.ID, false); err != nil {
		t.Fatalf("provider approve: %v", err)
	}
}

func TestCreateReview_Guards(t *testing.T) {
	f := newRevFixture(t)
	ctx := context.Background()

	if _, err := f.service.Create(ctx, "usr_client", CreateRequest{JobID: f.job.ID, Rating: 0}); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("rating 0: %v", err)
	}
	if _, err := f.service.Create(ctx, "usr_client", CreateRequest{JobID: f.job.ID, Rating: 6}); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("rating 6: %v", err)
	}
	if _, err := f.service.Create(ctx, "usr_client", CreateRequest{JobID: f.job.ID, Rating: 5}); !errors.Is(err, ErrJobNotCompleted) {
		t.Errorf("pending job: %v", err)
	}

	f.complete(t)

	if _, err := f.service.Create(ctx, "usr_stranger", CreateRequest{JobID: f.job.ID, Rating: 5}); !errors.Is(err, jobs.ErrNotParticipant) {
		t.Errorf("stranger review: %v", err)
	}
	if _, err := f.service.Create(ctx, "usr_client", CreateRequest{JobID: "job_missing", Rating: 5}); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("missing job: %v", err)
	}
}

func TestCreateReview_DirectionAndScore(t *testing.T) {
	f := newRevFixture(t)
	ctx := context.Background()
	f.complete(t)

	review, err := f.service.Create(ctx, "usr_client", CreateRequest{JobID: f.job.ID, Rating: 4, Comment: "solid work"})
	if err != nil {
		t.Fatalf("client review: %v", err)
	}
	if review.Direction != ClientToProvider || review.ReviewedUserID != "usr_provider" {
		t.Errorf("review = %+v", review)
	}

	provider, _ := f.userStore.Get(ctx, "usr_provider")
	if provider.ProviderScore != 4.0 || provider.ProviderReviews != 1 {
		t.Errorf("provider score = %v (%d)", provider.ProviderScore, provider.ProviderReviews)
	}
	if provider.ClientScore != 0 {
		t.Error("client score must be untouched")
	}

	review, err = f.service.Create(ctx, "usr_provider", CreateRequest{JobID: f.job.ID, Rating: 5})
	if err != nil {
		t.Fatalf("provider review: %v", err)
	}
	if review.Direction != ProviderToClient || review.ReviewedUserID != "usr_client" {
		t.Errorf("review = %+v", review)
	}
	client, _ := f.userStore.Get(ctx, "usr_client")
	if client.ClientScore != 5.0 || client.ClientReviews != 1 {
		t.Errorf("client score = %v (%d)", client.ClientScore, client.ClientReviews)
	}
}

func TestCreateReview_Duplicate(t *testing.T) {
	f := newRevFixture(t)
	ctx := context.Background()
	f.complete(t)

	if _, err := f.service.Create(ctx, "usr_client", CreateRequest{JobID: f.job.ID, Rating: 4}); err != nil {
		t.Fatalf("first review: %v", err)
	}
	if _, err := f.service.Create(ctx, "usr_client", CreateRequest{JobID: f.job.ID, Rating: 2}); !errors.Is(err, ErrDuplicateReview) {
		t.Errorf("duplicate: %v", err)
	}
}

func TestScore_UnweightedMean(t *testing.T) {
	f := newRevFixture(t)
	ctx := context.Background()
	f.complete(t)

	// A second completed job with the same provider.
	job2 := &jobs.Job{ClientID: "usr_client", Title: "Trim the hedge", Category: "garden", AmountWei: "2000"}
	if err := f.jobStore.Create(ctx, job2); err != nil {
		t.Fatalf("seed job2: %v", err)
	}
	if err := f.jobStore.Assign(ctx, jobs.Assignment{JobID: job2.ID, ProviderID: "usr_provider", ContractJobID: "2"}); err != nil {
		t.Fatalf("assign job2: %v", err)
	}
	if _, err := f.jobStore.Approve(ctx, job2.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.jobStore.Approve(ctx, job2.ID, false); err != nil {
		t.Fatal(err)
	}

	if _, err := f.service.Create(ctx, "usr_client", CreateRequest{JobID: f.job.ID, Rating: 5}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.service.Create(ctx, "usr_client", CreateRequest{JobID: job2.ID, Rating: 2}); err != nil {
		t.Fatal(err)
	}

	provider, _ := f.userStore.Get(ctx, "usr_provider")
	if provider.ProviderScore != 3.5 || provider.ProviderReviews != 2 {
		t.Errorf("score = %v (%d), want 3.5 (2)", provider.ProviderScore, provider.ProviderReviews)
	}
}

func TestListByUser(t *testing.T) {
	f := newRevFixture(t)
	ctx := context.Background()
	f.complete(t)

	if _, err := f.service.Create(ctx, "usr_client", CreateRequest{JobID: f.job.ID, Rating: 4}); err != nil {
		t.Fatal(err)
	}

	list, err := f.service.ListByUser(ctx, "usr_provider", 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 1 || list[0].Rating != 4 {
		t.Errorf("list = %+v", list)
	}
}
