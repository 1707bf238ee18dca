// Package mcp exposes the loaded table to MCP clients over stdio.
package mcp

import (
	"context"
	"io"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/statembed/statembed/internal/index"
	"github.com/statembed/statembed/internal/loader"
	"github.com/statembed/statembed/internal/qa"
)

// Service is the question-answering surface the tools call into.
type Service interface {
	Records() []loader.Record
	Nearest(ctx context.Context, question string, k int) ([]index.Match, error)
	Answer(ctx context.Context, question string) (*qa.Answer, error)
}

// Server wraps an MCP server bound to a Service.
type Server struct {
	svc Service
	mcp *server.MCPServer
}

// NewServer registers the tools for svc.
func NewServer(svc Service, version string) *Server {
	s := &Server{
		svc: svc,
		mcp: server.NewMCPServer("statembed", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List the rows of the loaded table."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of rows to return (default all)."), mcp.Min(0)),
	), s.handleListRecords)

	s.mcp.AddTool(mcp.NewTool("nearest_rows",
		mcp.WithDescription("Find the table rows most similar to a question."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Natural-language question.")),
		mcp.WithNumber("k", mcp.Description("Number of rows to return."), mcp.Min(1)),
	), s.handleNearestRows)

	s.mcp.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Answer a question using the rows nearest to it."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Natural-language question.")),
	), s.handleAsk)

	return s
}

// Serve speaks MCP over in/out until ctx is cancelled or in is closed.
// Protocol errors are written to errLog.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer, errLog io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(errLog, "", log.LstdFlags))
	return stdio.Listen(ctx, in, out)
}
