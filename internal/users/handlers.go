package users

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/jobchain/internal/logging"
	"github.com/mbd888/jobchain/internal/validation"
)

// KeyIssuer mints an API key for a newly created user.
type KeyIssuer func(ctx context.Context, userID string) (string, error)

// Handler provides HTTP handlers for the users API.
type Handler struct {
	store    Store
	issueKey KeyIssuer
}

// NewHandler creates a new users handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// WithKeyIssuer makes CreateUser return a fresh API key with the account.
func (h *Handler) WithKeyIssuer(issue KeyIssuer) *Handler {
	h.issueKey = issue
	return h
}

// RegisterRoutes sets up the user routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/users", h.CreateUser)
	r.GET("/users/:id", h.GetUser)
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.L(ctx)

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.Required("email", req.Email),
		validation.Required("name", req.Name),
		validation.ValidAddress("walletAddress", req.WalletAddress),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}
	if !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_email",
			"message": "Email must be a valid address",
		})
		return
	}

	user := &User{
		Email:         validation.SanitizeString(req.Email, 254),
		Name:          validation.SanitizeString(req.Name, 200),
		WalletAddress: validation.SanitizeAddress(req.WalletAddress),
	}

	if err := h.store.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "user_exists",
				"message": "A user with this email or wallet already exists",
			})
			return
		}
		logger.Error("failed to create user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to create user",
		})
		return
	}

	logger.Info("user created", "user_id", user.ID, "wallet", user.WalletAddress)

	if h.issueKey != nil {
		rawKey, err := h.issueKey(ctx, user.ID)
		if err != nil {
			logger.Error("failed to issue api key for new user", "user_id", user.ID, "error", err)
		} else {
			c.JSON(http.StatusCreated, gin.H{"user": user, "apiKey": rawKey})
			return
		}
	}

	c.JSON(http.StatusCreated, user)
}

// GetUser handles GET /users/:id
func (h *Handler) GetUser(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.store.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "User not found",
			})
			return
		}
		logging.L(ctx).Error("failed to get user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to get user",
		})
		return
	}

	c.JSON(http.StatusOK, user)
}
