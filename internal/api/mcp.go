package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/okofler/jobpilot/internal/catalog"
	"github.com/okofler/jobpilot/internal/recommend"
	"github.com/okofler/jobpilot/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Advisor *recommend.Advisor
	Catalog *catalog.Cache
	Store   *storage.Store
}

// NewMCPServer creates an MCP server with all jobpilot tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"jobpilot",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("jobpilot — analyzes job postings for automation potential and recommends matching workflows and agents."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze_job",
			mcp.WithDescription("Analyze a job posting: extract tasks, score their automation potential, and recommend matching automation artifacts."),
			mcp.WithString("text", mcp.Description("The job posting text"), mcp.Required()),
			mcp.WithString("jobTitle", mcp.Description("Job title for industry context")),
			mcp.WithNumber("maxResults", mcp.Description("Maximum matches per task (default 5)")),
			mcp.WithNumber("minScore", mcp.Description("Minimum match score 0-100 (default 30)")),
		),
		mcpAnalyzeJob(deps),
	)

	s.AddTool(
		mcp.NewTool("search_catalog",
			mcp.WithDescription("Search the automation catalog by free text and filters."),
			mcp.WithString("query", mcp.Description("Free-text search query")),
			mcp.WithString("source", mcp.Description("Catalog source key, or 'all' (default)")),
			mcp.WithString("trigger", mcp.Description("Filter by trigger: Webhook, Scheduled, Manual, Complex")),
			mcp.WithString("complexity", mcp.Description("Filter by complexity: Low, Medium, High")),
			mcp.WithString("category", mcp.Description("Filter by category")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpSearchCatalog(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"catalog://sources",
			"Catalog Sources",
			mcp.WithResourceDescription("Registered catalog sources and their snapshot stats"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSources(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"analyses://recent",
			"Recent Analyses",
			mcp.WithResourceDescription("Last 10 analysis runs (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAnalyzeJob(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		maxResults := req.GetInt("maxResults", 0)
		minScore := req.GetInt("minScore", 0)

		analysis := deps.Advisor.Analyze(ctx, recommend.Request{
			JobTitle:   req.GetString("jobTitle", ""),
			Text:       text,
			MaxResults: maxResults,
			MinScore:   minScore,
		})

		b, err := json.Marshal(analysis)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal analysis: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchCatalog(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		result := deps.Catalog.Search(ctx, catalog.SearchParams{
			Query:      req.GetString("query", ""),
			Source:     req.GetString("source", ""),
			Trigger:    catalog.Trigger(req.GetString("trigger", "")),
			Complexity: catalog.Tier(req.GetString("complexity", "")),
			Category:   req.GetString("category", ""),
			Limit:      limit,
		})

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceSources(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(map[string]any{"sources": deps.Catalog.Sources()})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal sources: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records, err := deps.Store.ListAnalyses(10, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list analyses: %w", err)
		}

		summaries := make([]analysisSummary, len(records))
		for i, rec := range records {
			summaries[i] = analysisSummary{
				ID:        rec.ID,
				CreatedAt: rec.CreatedAt.Format(time.RFC3339),
				JobTitle:  rec.JobTitle,
				TaskCount: rec.TaskCount,
				AvgScore:  rec.AvgScore,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal analyses: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
