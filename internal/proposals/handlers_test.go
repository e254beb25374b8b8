package proposals

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/jobchain/internal/auth"
	"github.com/mbd888/jobchain/internal/settlement"
)

func setupRouter(svc *Service, asUser string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if asUser != "" {
			c.Set(auth.ContextKeyUserID, asUser)
		}
	})
	v1 := r.Group("/v1")
	NewHandler(svc).RegisterRoutes(v1)
	return r
}

func TestAcceptProposalHandler_RetryableFailureSurfaces(t *testing.T) {
	f := newSvcFixture(t)
	p := f.submit(t, "usr_provider")
	f.settler.failWith = fmt.Errorf("%w: %v", settlement.ErrAssignmentRetry, errors.New("contract accept reverted"))

	r := setupRouter(f.service, "usr_client")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/proposals/"+p.ID+"/accept", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["error"] != "assignment_incomplete" {
		t.Errorf("error = %s", body["error"])
	}
	// The caller needs both the retry instruction and the on-chain cause.
	for _, want := range []string{"retry the acceptance", "contract accept reverted"} {
		if !strings.Contains(body["message"], want) {
			t.Errorf("message %q missing %q", body["message"], want)
		}
	}
}

func TestAcceptProposalHandler_StateConflict(t *testing.T) {
	f := newSvcFixture(t)
	p := f.submit(t, "usr_provider")

	r := setupRouter(f.service, "usr_client")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/v1/proposals/"+p.ID+"/accept", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first accept: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/v1/proposals/"+p.ID+"/accept", nil))
	if w.Code != http.StatusConflict {
		t.Errorf("second accept: status = %d", w.Code)
	}
}
