package reviews

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/jobchain/internal/auth"
	"github.com/mbd888/jobchain/internal/jobs"
	"github.com/mbd888/jobchain/internal/logging"
)

// Handler provides HTTP handlers for the reviews API.
type Handler struct {
	service *Service
}

// NewHandler creates a new reviews handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes sets up unauthenticated read routes.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/users/:id/reviews", h.ListUserReviews)
}

// RegisterRoutes sets up authenticated review routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/reviews", h.CreateReview)
}

// CreateReview handles POST /reviews
func (h *Handler) CreateReview(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	review, err := h.service.Create(ctx, auth.UserID(c), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_rating",
				"message": "Rating must be between 1 and 5",
			})
		case errors.Is(err, jobs.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Job not found",
			})
		case errors.Is(err, jobs.ErrNotParticipant):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Only the job's participants can leave a review",
			})
		case errors.Is(err, ErrJobNotCompleted):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "job_not_completed",
				"message": "Reviews are only allowed on completed jobs",
			})
		case errors.Is(err, ErrDuplicateReview):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "duplicate_review",
				"message": "You already reviewed this job",
			})
		default:
			logging.L(ctx).Error("failed to create review", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to create review",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, review)
}

// ListUserReviews handles GET /users/:id/reviews
func (h *Handler) ListUserReviews(c *gin.Context) {
	ctx := c.Request.Context()

	limit := 50
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	list, err := h.service.ListByUser(ctx, c.Param("id"), limit)
	if err != nil {
		logging.L(ctx).Error("failed to list reviews", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list reviews",
		})
		return
	}
	if list == nil {
		list = []*Review{}
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list, "count": len(list)})
}
