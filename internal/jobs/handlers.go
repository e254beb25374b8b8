package jobs

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/jobchain/internal/auth"
	"github.com/mbd888/jobchain/internal/logging"
	"github.com/mbd888/jobchain/internal/validation"
)

// Handler provides HTTP handlers for the jobs API.
type Handler struct {
	service *Service
}

// NewHandler creates a new jobs handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes sets up unauthenticated read routes.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/jobs", h.ListJobs)
	r.GET("/jobs/:id", h.GetJob)
}

// RegisterRoutes sets up authenticated job routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/jobs", h.CreateJob)
	r.DELETE("/jobs/:id", h.DeleteJob)
}

// CreateJob handles POST /jobs
func (h *Handler) CreateJob(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.L(ctx)

	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	job, err := h.service.Create(ctx, auth.UserID(c), req)
	if err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"message": verrs.Error(),
				"details": verrs,
			})
			return
		}
		logger.Error("failed to create job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to create job",
		})
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetJob handles GET /jobs/:id
func (h *Handler) GetJob(c *gin.Context) {
	ctx := c.Request.Context()

	job, err := h.service.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Job not found",
			})
			return
		}
		logging.L(ctx).Error("failed to get job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /jobs
func (h *Handler) ListJobs(c *gin.Context) {
	ctx := c.Request.Context()

	q := Query{
		Status:     Status(c.Query("status")),
		Category:   c.Query("category"),
		ClientID:   c.Query("client_id"),
		ProviderID: c.Query("provider_id"),
		Cursor:     c.Query("cursor"),
		Limit:      parseLimit(c.Query("limit"), 20, 100),
	}

	list, next, err := h.service.List(ctx, q)
	if err != nil {
		logging.L(ctx).Error("failed to list jobs", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Failed to list jobs",
		})
		return
	}
	if list == nil {
		list = []*Job{}
	}

	resp := gin.H{"jobs": list, "count": len(list)}
	if next != "" {
		resp["nextCursor"] = next
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteJob handles DELETE /jobs/:id
func (h *Handler) DeleteJob(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.L(ctx)

	err := h.service.Delete(ctx, auth.UserID(c), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	case errors.Is(err, ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Job not found",
		})
	case errors.Is(err, ErrNotJobClient):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "Only the job's client can delete it",
		})
	case errors.Is(err, ErrJobNotPending):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "job_not_pending",
			"message": "Only pending jobs can be deleted",
		})
	default:
		logger.Error("failed to delete job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to delete job",
		})
	}
}

// parseLimit parses a limit query param with a default and a cap.
func parseLimit(s string, def, max int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
