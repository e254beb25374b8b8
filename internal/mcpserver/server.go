package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all marketplace tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("jobchain", "1.0.0")
	client := NewMarketClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolSearchJobs, h.HandleSearchJobs)
	s.AddTool(ToolGetJob, h.HandleGetJob)
	s.AddTool(ToolPostJob, h.HandlePostJob)
	s.AddTool(ToolSubmitProposal, h.HandleSubmitProposal)
	s.AddTool(ToolListProposals, h.HandleListProposals)
	s.AddTool(ToolAcceptProposal, h.HandleAcceptProposal)
	s.AddTool(ToolApproveCompletion, h.HandleApproveCompletion)
	s.AddTool(ToolContractStatus, h.HandleContractStatus)
	s.AddTool(ToolGetUserReputation, h.HandleGetUserReputation)

	return s
}
