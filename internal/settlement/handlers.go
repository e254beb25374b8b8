package settlement

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/jobchain/internal/auth"
	"github.com/mbd888/jobchain/internal/escrow"
	"github.com/mbd888/jobchain/internal/jobs"
	"github.com/mbd888/jobchain/internal/logging"
)

// Handler provides HTTP handlers for settlement operations.
type Handler struct {
	coordinator *Coordinator
}

// NewHandler creates a new settlement handler.
func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// RegisterRoutes sets up authenticated settlement routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/jobs/:id/approve-completion", h.ApproveCompletion)
	r.GET("/jobs/:id/contract-status", h.ContractStatus)
}

// ApproveCompletion handles POST /jobs/:id/approve-completion
func (h *Handler) ApproveCompletion(c *gin.Context) {
	ctx := c.Request.Context()

	job, err := h.coordinator.ApproveCompletion(ctx, auth.UserID(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Job not found",
			})
		case errors.Is(err, jobs.ErrJobNotInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "job_not_in_progress",
				"message": "Only in-progress jobs can be approved for completion",
			})
		case errors.Is(err, jobs.ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Only the job's client or provider can approve completion",
			})
		case errors.Is(err, jobs.ErrAlreadyApproved):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "already_approved",
				"message": "You already approved completion for this job",
			})
		default:
			logging.L(ctx).Error("failed to approve completion", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to approve completion",
			})
		}
		return
	}

	c.JSON(http.StatusOK, job)
}

// ContractStatus handles GET /jobs/:id/contract-status
func (h *Handler) ContractStatus(c *gin.Context) {
	ctx := c.Request.Context()

	status, err := h.coordinator.ContractStatus(ctx, auth.UserID(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Job not found",
			})
		case errors.Is(err, jobs.ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Only the job's client or provider can read contract status",
			})
		case errors.Is(err, ErrNoContract):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "no_contract",
				"message": "This job has no escrow contract record yet",
			})
		case errors.Is(err, escrow.ErrJobMissingOnChain):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found_on_chain",
				"message": "Contract job not found on-chain",
			})
		default:
			logging.L(ctx).Error("failed to read contract status", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "escrow_unavailable",
				"message": "Failed to read contract status",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contractJob": status,
		"status":      status.Status.String(),
	})
}
