package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/jobchain/internal/auth"
)

func setupRouter(svc *Service, asUser string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if asUser != "" {
			c.Set(auth.ContextKeyUserID, asUser)
		}
	})
	h := NewHandler(svc)
	v1 := r.Group("/v1")
	h.RegisterPublicRoutes(v1)
	h.RegisterRoutes(v1)
	return r
}

func doJSON(r *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateJobHandler(t *testing.T) {
	svc := NewService(NewMemoryStore())
	r := setupRouter(svc, "usr_c")

	w := doJSON(r, "POST", "/v1/jobs", CreateJobRequest{
		Title: "Paint the shed", Category: "painting", AmountWei: "80000000000000000",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var job Job
	if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if job.ClientID != "usr_c" || job.Status != StatusPending {
		t.Errorf("job = %+v", job)
	}
}

func TestCreateJobHandler_BadAmount(t *testing.T) {
	r := setupRouter(NewService(NewMemoryStore()), "usr_c")

	w := doJSON(r, "POST", "/v1/jobs", CreateJobRequest{Title: "t", Category: "x", AmountWei: "0.5"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestListJobsHandler(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	r := setupRouter(svc, "")
	ctx := context.Background()

	if _, err := svc.Create(ctx, "usr_a", CreateJobRequest{Title: "a", Category: "garden", AmountWei: "100"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, "usr_b", CreateJobRequest{Title: "b", Category: "plumbing", AmountWei: "200"}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(r, "GET", "/v1/jobs?category=garden", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		Jobs  []*Job `json:"jobs"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Count != 1 || body.Jobs[0].Category != "garden" {
		t.Errorf("body = %+v", body)
	}
}

func TestDeleteJobHandler(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	job, err := svc.Create(ctx, "usr_c", CreateJobRequest{Title: "t", Category: "x", AmountWei: "100"})
	if err != nil {
		t.Fatal(err)
	}

	// A different user cannot delete.
	r := setupRouter(svc, "usr_other")
	if w := doJSON(r, "DELETE", "/v1/jobs/"+job.ID, nil); w.Code != http.StatusForbidden {
		t.Errorf("stranger delete: %d", w.Code)
	}

	r = setupRouter(svc, "usr_c")
	if w := doJSON(r, "DELETE", "/v1/jobs/"+job.ID, nil); w.Code != http.StatusOK {
		t.Errorf("owner delete: %d", w.Code)
	}
	if w := doJSON(r, "DELETE", "/v1/jobs/"+job.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("repeat delete: %d", w.Code)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 20},
		{"5", 5},
		{"0", 20},
		{"-3", 20},
		{"junk", 20},
		{"500", 100},
	}
	for _, tt := range tests {
		if got := parseLimit(tt.in, 20, 100); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
