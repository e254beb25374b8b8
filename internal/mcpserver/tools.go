package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the marketplace MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolSearchJobs = mcp.NewTool("search_jobs",
	mcp.WithDescription(
		"Search the jobs marketplace. "+
			"Returns open jobs with budgets in wei, categories, and client IDs. "+
			"Use this to find work before submitting a proposal."),
	mcp.WithString("category",
		mcp.Description("Filter by category (e.g. 'plumbing', 'design', 'translation')")),
	mcp.WithString("status",
		mcp.Description("Filter by job status"),
		mcp.Enum("PENDING", "IN_PROGRESS", "COMPLETED", "DISPUTED", "CANCELLED")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of jobs to return (default 20)")),
)

var ToolGetJob = mcp.NewTool("get_job",
	mcp.WithDescription(
		"Get the full details of a single job: budget, status, assigned provider, "+
			"and completion approvals."),
	mcp.WithString("job_id",
		mcp.Required(),
		mcp.Description("The job ID (e.g. 'job_...')")),
)

var ToolPostJob = mcp.NewTool("post_job",
	mcp.WithDescription(
		"Post a new job to the marketplace as the authenticated client. "+
			"The budget is quoted in wei and is escrowed on-chain once a proposal is accepted."),
	mcp.WithString("title",
		mcp.Required(),
		mcp.Description("Short job title")),
	mcp.WithString("description",
		mcp.Description("Longer description of the work")),
	mcp.WithString("category",
		mcp.Required(),
		mcp.Description("Job category (e.g. 'plumbing', 'design')")),
	mcp.WithString("amount_wei",
		mcp.Required(),
		mcp.Description("Budget as an integer wei amount (e.g. '50000000000000000' for 0.05 ETH)")),
)

var ToolSubmitProposal = mcp.NewTool("submit_proposal",
	mcp.WithDescription(
		"Submit a proposal on a pending job as the authenticated provider. "+
			"Optionally quote a price below or above the job's budget; omit it to accept the posted budget."),
	mcp.WithString("job_id",
		mcp.Required(),
		mcp.Description("The job to propose on")),
	mcp.WithString("amount_wei",
		mcp.Description("Proposed price as an integer wei amount. Defaults to the job's budget if omitted.")),
	mcp.WithString("message",
		mcp.Description("Optional pitch shown to the client")),
)

var ToolListProposals = mcp.NewTool("list_proposals",
	mcp.WithDescription(
		"List proposals received on one of your jobs. Only the job's client can see them. "+
			"Shows each provider's quoted price and any counteroffer state."),
	mcp.WithString("job_id",
		mcp.Required(),
		mcp.Description("The job whose proposals to list")),
)

var ToolAcceptProposal = mcp.NewTool("accept_proposal",
	mcp.WithDescription(
		"Accept a proposal on one of your jobs. This deposits the agreed amount into the "+
			"on-chain escrow contract and assigns the provider. Funds stay locked until both "+
			"sides confirm completion."),
	mcp.WithString("proposal_id",
		mcp.Required(),
		mcp.Description("The proposal to accept (e.g. 'prop_...')")),
)

var ToolApproveCompletion = mcp.NewTool("approve_completion",
	mcp.WithDescription(
		"Confirm completion of an in-progress job from your side. "+
			"Escrowed funds are released to the provider only after both the client and "+
			"the provider have confirmed."),
	mcp.WithString("job_id",
		mcp.Required(),
		mcp.Description("The job to confirm completion for")),
)

var ToolContractStatus = mcp.NewTool("contract_status",
	mcp.WithDescription(
		"Check the on-chain escrow state for a job you participate in: deposited amount, "+
			"contract status, and which parties have confirmed completion."),
	mcp.WithString("job_id",
		mcp.Required(),
		mcp.Description("The job whose escrow to inspect")),
)

var ToolGetUserReputation = mcp.NewTool("get_user_reputation",
	mcp.WithDescription(
		"Get a user's reputation on the marketplace: their average score as a client and "+
			"as a provider, review counts, and recent reviews."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("The user ID (e.g. 'usr_...')")),
)
