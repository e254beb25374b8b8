package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(store).RegisterRoutes(r.Group("/v1"))
	return r
}

func postJSON(r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateUser(t *testing.T) {
	store := NewMemoryStore()
	r := setupRouter(store)

	w := postJSON(r, "/v1/users", CreateUserRequest{
		Email:         "new@user.com",
		Name:          "New User",
		WalletAddress: "0x1234567890123456789012345678901234567890",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var created User
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.ID == "" {
		t.Error("expected user ID in response")
	}
}

func TestCreateUser_Validation(t *testing.T) {
	r := setupRouter(NewMemoryStore())

	tests := []struct {
		name string
		req  CreateUserRequest
	}{
		{"missing email", CreateUserRequest{Name: "X", WalletAddress: "0x1234567890123456789012345678901234567890"}},
		{"bad email", CreateUserRequest{Email: "not-an-email", Name: "X", WalletAddress: "0x1234567890123456789012345678901234567890"}},
		{"bad wallet", CreateUserRequest{Email: "a@b.com", Name: "X", WalletAddress: "0xnope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := postJSON(r, "/v1/users", tt.req); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestCreateUser_Conflict(t *testing.T) {
	store := NewMemoryStore()
	r := setupRouter(store)

	req := CreateUserRequest{
		Email:         "dup@user.com",
		Name:          "Dup",
		WalletAddress: "0x1234567890123456789012345678901234567890",
	}
	if w := postJSON(r, "/v1/users", req); w.Code != http.StatusCreated {
		t.Fatalf("first create failed: %d", w.Code)
	}
	if w := postJSON(r, "/v1/users", req); w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestGetUser(t *testing.T) {
	store := NewMemoryStore()
	r := setupRouter(store)

	u := &User{Email: "get@me.com", Name: "Get Me", WalletAddress: "0x1234567890123456789012345678901234567890"}
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/users/"+u.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/users/usr_missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
