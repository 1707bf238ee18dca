package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/statembed/statembed/internal/qa"
	"github.com/statembed/statembed/internal/render"
)

func (s *Server) handleListRecords(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records := s.svc.Records()
	if len(records) == 0 {
		return mcp.NewToolResultText("No rows loaded."), nil
	}
	if limit := req.GetInt("limit", 0); limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	var sb strings.Builder
	for _, r := range records {
		sb.WriteString(r.String())
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleNearestRows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	matches, err := s.svc.Nearest(ctx, question, req.GetInt("k", 0))
	if errors.Is(err, qa.ErrMissingQuestion) {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText("No results found."), nil
	}
	return mcp.NewToolResultJSON(render.ToJSONMatches(matches))
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	ans, err := s.svc.Answer(ctx, question)
	if errors.Is(err, qa.ErrMissingQuestion) {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to answer: %v", err)), nil
	}
	return mcp.NewToolResultText(ans.Response), nil
}
