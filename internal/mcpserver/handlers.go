package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *MarketClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *MarketClient) *Handlers {
	return &Handlers{client: client}
}

// HandleSearchJobs searches the marketplace.
func (h *Handlers) HandleSearchJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")
	status := req.GetString("status", "")
	limit := req.GetInt("limit", 20)

	raw, err := h.client.SearchJobs(ctx, category, status, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to search jobs: %v", err)), nil
	}

	text, err := formatJobList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse jobs: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetJob returns a single job.
func (h *Handlers) HandleGetJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id is required"), nil
	}

	raw, err := h.client.GetJob(ctx, jobID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get job: %v", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(raw)), nil
}

// HandlePostJob creates a new job.
func (h *Handlers) HandlePostJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("title is required"), nil
	}
	category := req.GetString("category", "")
	if category == "" {
		return mcp.NewToolResultError("category is required"), nil
	}
	amountWei := req.GetString("amount_wei", "")
	if amountWei == "" {
		return mcp.NewToolResultError("amount_wei is required"), nil
	}
	description := req.GetString("description", "")

	raw, err := h.client.PostJob(ctx, title, description, category, amountWei)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to post job: %v", err)), nil
	}

	jobID := extractID(raw)
	return mcp.NewToolResultText(fmt.Sprintf(
		"Job posted.\n"+
			"Job ID: %s\n"+
			"Budget: %s wei\n\n"+
			"Providers can now submit proposals. Use list_proposals to review them.",
		jobID, amountWei)), nil
}

// HandleSubmitProposal submits a proposal on a job.
func (h *Handlers) HandleSubmitProposal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id is required"), nil
	}
	amountWei := req.GetString("amount_wei", "")
	message := req.GetString("message", "")

	raw, err := h.client.SubmitProposal(ctx, jobID, amountWei, message)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to submit proposal: %v", err)), nil
	}

	proposalID := extractID(raw)
	price := amountWei
	if price == "" {
		price = "the job's posted budget"
	} else {
		price += " wei"
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Proposal submitted.\n"+
			"Proposal ID: %s\n"+
			"Quoted price: %s\n\n"+
			"The client may accept, or counter with a different price.",
		proposalID, price)), nil
}

// HandleListProposals lists proposals on one of the caller's jobs.
func (h *Handlers) HandleListProposals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id is required"), nil
	}

	raw, err := h.client.ListProposals(ctx, jobID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list proposals: %v", err)), nil
	}

	text, err := formatProposalList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse proposals: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleAcceptProposal accepts a proposal and escrows the funds.
func (h *Handlers) HandleAcceptProposal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	proposalID := req.GetString("proposal_id", "")
	if proposalID == "" {
		return mcp.NewToolResultError("proposal_id is required"), nil
	}

	raw, err := h.client.AcceptProposal(ctx, proposalID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to accept proposal: %v", err)), nil
	}

	var p struct {
		JobID     string `json:"jobId"`
		AmountWei string `json:"amountWei"`
	}
	_ = json.Unmarshal(raw, &p)

	return mcp.NewToolResultText(fmt.Sprintf(
		"Proposal %s accepted.\n"+
			"Job: %s\n"+
			"Escrowed: %s wei\n\n"+
			"Funds are locked in the escrow contract until both sides approve completion.",
		proposalID, p.JobID, p.AmountWei)), nil
}

// HandleApproveCompletion confirms completion from the caller's side.
func (h *Handlers) HandleApproveCompletion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id is required"), nil
	}

	raw, err := h.client.ApproveCompletion(ctx, jobID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to approve completion: %v", err)), nil
	}

	var job struct {
		Status           string `json:"status"`
		ClientApproved   bool   `json:"clientApproved"`
		ProviderApproved bool   `json:"providerApproved"`
	}
	_ = json.Unmarshal(raw, &job)

	if job.Status == "COMPLETED" {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Job %s is COMPLETED. Both sides confirmed; escrowed funds were released to the provider.\n"+
				"You can now leave a review for the other party.",
			jobID)), nil
	}

	waiting := "the provider"
	if job.ProviderApproved {
		waiting = "the client"
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Completion approved from your side for job %s.\n"+
			"Waiting on %s to confirm before funds are released.",
		jobID, waiting)), nil
}

// HandleContractStatus returns the escrow state for a job.
func (h *Handlers) HandleContractStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id is required"), nil
	}

	raw, err := h.client.ContractStatus(ctx, jobID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get contract status: %v", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(raw)), nil
}

// HandleGetUserReputation returns a user's reputation and recent reviews.
func (h *Handlers) HandleGetUserReputation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	userRaw, err := h.client.GetUser(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get user: %v", err)), nil
	}

	text, err := formatReputation(userRaw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse user: %v", err)), nil
	}

	// Recent reviews are additive; skip them quietly on failure.
	if reviewsRaw, err := h.client.ListReviews(ctx, userID, 5); err == nil {
		if reviews, err := formatReviewList(reviewsRaw); err == nil && reviews != "" {
			text += "\n" + reviews
		}
	}

	return mcp.NewToolResultText(text), nil
}

// --- Formatting helpers ---

type jobInfo struct {
	ID        string `json:"id"`
	ClientID  string `json:"clientId"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	AmountWei string `json:"amountWei"`
	Status    string `json:"status"`
}

func formatJobList(raw json.RawMessage) (string, error) {
	var resp struct {
		Jobs  []jobInfo `json:"jobs"`
		Count int       `json:"count"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("unexpected jobs response format")
	}

	if len(resp.Jobs) == 0 {
		return "No jobs found matching your criteria.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d job(s):\n\n", len(resp.Jobs))
	for i, j := range resp.Jobs {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, j.Title)
		fmt.Fprintf(&sb, "   ID: %s | Category: %s | Status: %s\n", j.ID, j.Category, j.Status)
		fmt.Fprintf(&sb, "   Budget: %s wei | Client: %s\n", j.AmountWei, j.ClientID)
		if i < len(resp.Jobs)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

type proposalInfo struct {
	ID               string  `json:"id"`
	ProviderID       string  `json:"providerId"`
	AmountWei        *string `json:"amountWei"`
	CounterAmountWei *string `json:"counterAmountWei"`
	Message          string  `json:"message"`
	Status           string  `json:"status"`
}

func formatProposalList(raw json.RawMessage) (string, error) {
	var resp struct {
		Proposals []proposalInfo `json:"proposals"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("unexpected proposals response format")
	}

	if len(resp.Proposals) == 0 {
		return "No proposals on this job yet.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d proposal(s):\n\n", len(resp.Proposals))
	for i, p := range resp.Proposals {
		fmt.Fprintf(&sb, "%d. %s from %s [%s]\n", i+1, p.ID, p.ProviderID, p.Status)
		if p.AmountWei != nil {
			fmt.Fprintf(&sb, "   Quoted: %s wei\n", *p.AmountWei)
		} else {
			sb.WriteString("   Quoted: job's posted budget\n")
		}
		if p.CounterAmountWei != nil {
			fmt.Fprintf(&sb, "   Counteroffer: %s wei\n", *p.CounterAmountWei)
		}
		if p.Message != "" {
			fmt.Fprintf(&sb, "   %q\n", p.Message)
		}
		if i < len(resp.Proposals)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func formatReputation(raw json.RawMessage) (string, error) {
	var u struct {
		ID              string  `json:"id"`
		Name            string  `json:"name"`
		ClientScore     float64 `json:"clientScore"`
		ClientReviews   int64   `json:"clientReviews"`
		ProviderScore   float64 `json:"providerScore"`
		ProviderReviews int64   `json:"providerReviews"`
	}
	if err := json.Unmarshal(raw, &u); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Reputation for %s (%s):\n", u.Name, u.ID)
	if u.ProviderReviews > 0 {
		fmt.Fprintf(&sb, "  As provider: %.1f/5 from %d review(s)\n", u.ProviderScore, u.ProviderReviews)
	} else {
		sb.WriteString("  As provider: no reviews yet\n")
	}
	if u.ClientReviews > 0 {
		fmt.Fprintf(&sb, "  As client: %.1f/5 from %d review(s)\n", u.ClientScore, u.ClientReviews)
	} else {
		sb.WriteString("  As client: no reviews yet\n")
	}
	return sb.String(), nil
}

func formatReviewList(raw json.RawMessage) (string, error) {
	var resp struct {
		Reviews []struct {
			Rating  int    `json:"rating"`
			Comment string `json:"comment"`
		} `json:"reviews"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Reviews) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("Recent reviews:\n")
	for _, r := range resp.Reviews {
		if r.Comment != "" {
			fmt.Fprintf(&sb, "  %d/5 %q\n", r.Rating, r.Comment)
		} else {
			fmt.Fprintf(&sb, "  %d/5\n", r.Rating)
		}
	}
	return sb.String(), nil
}

func extractID(raw json.RawMessage) string {
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ""
	}
	return resp.ID
}

func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}
