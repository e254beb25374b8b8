package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the marketplace.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
	APIKey string // API key, e.g. "sk_..."
}

// MarketClient is a pure HTTP client for the marketplace API.
type MarketClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewMarketClient creates a new client for the marketplace.
func NewMarketClient(cfg Config) *MarketClient {
	return &MarketClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the platform.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the platform and returns the response body.
func (c *MarketClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// SearchJobs lists open jobs, optionally filtered by category and status.
func (c *MarketClient) SearchJobs(ctx context.Context, category, status string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/jobs", q, nil)
}

// GetJob returns a single job by ID.
func (c *MarketClient) GetJob(ctx context.Context, jobID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/jobs/"+jobID, nil, nil)
}

// PostJob creates a new job owned by the authenticated user.
func (c *MarketClient) PostJob(ctx context.Context, title, description, category, amountWei string) (json.RawMessage, error) {
	body := map[string]string{
		"title":       title,
		"description": description,
		"category":    category,
		"amountWei":   amountWei,
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/jobs", nil, body)
}

// SubmitProposal submits a proposal on a job.
func (c *MarketClient) SubmitProposal(ctx context.Context, jobID, amountWei, message string) (json.RawMessage, error) {
	body := map[string]string{"jobId": jobID}
	if amountWei != "" {
		body["amountWei"] = amountWei
	}
	if message != "" {
		body["message"] = message
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/proposals", nil, body)
}

// ListProposals lists proposals on one of the caller's jobs.
func (c *MarketClient) ListProposals(ctx context.Context, jobID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/jobs/"+jobID+"/proposals", nil, nil)
}

// AcceptProposal accepts a proposal, moving the job's funds into escrow.
func (c *MarketClient) AcceptProposal(ctx context.Context, proposalID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/proposals/"+proposalID+"/accept", nil, nil)
}

// ApproveCompletion confirms completion of a job from the caller's side.
func (c *MarketClient) ApproveCompletion(ctx context.Context, jobID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/jobs/"+jobID+"/approve-completion", nil, nil)
}

// ContractStatus returns the on-chain escrow state for a job.
func (c *MarketClient) ContractStatus(ctx context.Context, jobID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/jobs/"+jobID+"/contract-status", nil, nil)
}

// GetUser returns a user's public profile including reputation scores.
func (c *MarketClient) GetUser(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/users/"+userID, nil, nil)
}

// ListReviews lists reviews left for a user.
func (c *MarketClient) ListReviews(ctx context.Context, userID string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/users/"+userID+"/reviews", q, nil)
}
