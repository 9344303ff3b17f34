package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nmoreau/askme/internal/knowledge"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Base     *knowledge.Base
	Deps     Deps
	Persona  string
	Language string
}

// NewMCPServer creates an MCP server exposing the profile knowledge
// base to MCP-capable clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"askme",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions(fmt.Sprintf("askme — bilingual Q&A knowledge base about %s.", deps.Persona)),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("profile_search",
			mcp.WithDescription("Search the profile knowledge base and return the most relevant Q&A entries."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 3)")),
			mcp.WithString("language", mcp.Description("Answer language, en or fr (default en)")),
		),
		mcpProfileSearch(deps),
	)

	s.AddTool(
		mcp.NewTool("profile_topics",
			mcp.WithDescription("List the distinct topics covered by the knowledge base."),
		),
		mcpProfileTopics(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"knowledge://entries",
			"Knowledge Base Entries",
			mcp.WithResourceDescription("All Q&A entries as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceEntries(deps),
	)

	return s
}

func mcpProfileSearch(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", deps.Deps.Defaults.MaxContextEntries)
		if limit <= 0 {
			limit = 3
		}
		if limit > 20 {
			limit = 20
		}

		lang := req.GetString("language", deps.Language)

		cfg := deps.Deps.Defaults.Merge(lang, nil)
		cfg.MaxContextEntries = limit

		scored := deps.Deps.Retriever.FindRelevant(query, cfg)
		if len(scored) == 0 {
			return mcpText("[]"), nil
		}

		type entryResult struct {
			ID       string  `json:"id"`
			Topic    string  `json:"topic"`
			Question string  `json:"question"`
			Answer   string  `json:"answer"`
			Score    float64 `json:"score"`
		}

		results := make([]entryResult, len(scored))
		for i, s := range scored {
			results[i] = entryResult{
				ID:       s.Entry.ID,
				Topic:    s.Entry.Topic,
				Question: s.Entry.QuestionIn(cfg.Language),
				Answer:   s.Entry.AnswerIn(cfg.Language),
				Score:    s.Score,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpProfileTopics(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(deps.Base.Topics())
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal topics: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceEntries(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Base.Entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal entries: %w", err)
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
