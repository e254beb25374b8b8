package proposals

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/jobchain/internal/auth"
	"github.com/mbd888/jobchain/internal/escrow"
	"github.com/mbd888/jobchain/internal/jobs"
	"github.com/mbd888/jobchain/internal/logging"
	"github.com/mbd888/jobchain/internal/settlement"
	"github.com/mbd888/jobchain/internal/validation"
)

// Handler provides HTTP handlers for the proposals API.
type Handler struct {
	service *Service
}

// NewHandler creates a new proposals handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up authenticated proposal routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/proposals", h.SubmitProposal)
	r.POST("/proposals/:id/counteroffer", h.CounterOffer)
	r.POST("/proposals/:id/respond", h.Respond)
	r.POST("/proposals/:id/accept", h.AcceptProposal)
	r.GET("/jobs/:id/proposals", h.ListJobProposals)
}

// SubmitProposal handles POST /proposals
func (h *Handler) SubmitProposal(c *gin.Context) {
	ctx := c.Request.Context()

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	p, err := h.service.Submit(ctx, auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// CounterOfferRequest is the payload for countering a proposal.
type CounterOfferRequest struct {
	AmountWei string `json:"amountWei" binding:"required"`
}

// CounterOffer handles POST /proposals/:id/counteroffer
func (h *Handler) CounterOffer(c *gin.Context) {
	ctx := c.Request.Context()

	var req CounterOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	p, err := h.service.CounterOffer(ctx, auth.UserID(c), c.Param("id"), req.AmountWei)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// RespondRequest is the payload for resolving a counteroffer.
type RespondRequest struct {
	Action string `json:"action" binding:"required"` // "accept" or "reject"
}

// Respond handles POST /proposals/:id/respond
func (h *Handler) Respond(c *gin.Context) {
	ctx := c.Request.Context()

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Action != "accept" && req.Action != "reject") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Action must be \"accept\" or \"reject\"",
		})
		return
	}

	p, err := h.service.Respond(ctx, auth.UserID(c), c.Param("id"), req.Action == "accept")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// AcceptProposal handles POST /proposals/:id/accept
func (h *Handler) AcceptProposal(c *gin.Context) {
	ctx := c.Request.Context()

	p, err := h.service.AcceptDirect(ctx, auth.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListJobProposals handles GET /jobs/:id/proposals
func (h *Handler) ListJobProposals(c *gin.Context) {
	ctx := c.Request.Context()

	list, err := h.service.ListByJob(ctx, auth.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []*Proposal{}
	}
	c.JSON(http.StatusOK, gin.H{"proposals": list, "count": len(list)})
}

// respondError maps domain errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	var verrs validation.ValidationErrors
	var cooldown *CooldownError
	var callErr *escrow.CallError

	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": verrs.Error(),
			"details": verrs,
		})
	case errors.Is(err, ErrProposalNotFound), errors.Is(err, jobs.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": err.Error(),
		})
	case errors.Is(err, ErrSelfProposal):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "self_proposal",
			"message": "You cannot propose on your own job",
		})
	case errors.Is(err, jobs.ErrNotJobClient), errors.Is(err, ErrNotProvider):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": err.Error(),
		})
	case errors.As(err, &cooldown):
		c.JSON(http.StatusConflict, gin.H{
			"error":          "cooldown_active",
			"message":        cooldown.Error(),
			"remainingHours": cooldown.RemainingHours,
		})
	case errors.Is(err, ErrDuplicateProposal),
		errors.Is(err, jobs.ErrProviderAlreadyAssigned),
		errors.Is(err, jobs.ErrJobNotPending),
		errors.Is(err, ErrNotPending),
		errors.Is(err, ErrNotCounteroffered),
		errors.Is(err, ErrDirectAcceptBarred):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "state_conflict",
			"message": err.Error(),
		})
	case errors.Is(err, settlement.ErrAssignmentRetry):
		// Funds are locked but the assignment did not land. The wrapped
		// cause rides along so the caller can decide whether to retry.
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "assignment_incomplete",
			"message": err.Error(),
		})
	case errors.As(err, &callErr), errors.Is(err, escrow.ErrCircuitOpen):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "escrow_unavailable",
			"message": "Escrow contract call failed, the job was not assigned. Retry the acceptance.",
		})
	default:
		logging.L(c.Request.Context()).Error("proposal operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Operation failed",
		})
	}
}
