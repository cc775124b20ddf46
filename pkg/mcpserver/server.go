// Package mcpserver exposes the capability catalog over the Model Context
// Protocol, so external MCP clients can call the same tools the conversation
// loop uses.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/finsight/finsight/pkg/agent"
)

// Config assembles a Server.
type Config struct {
	// Name and Version identify the server to MCP clients.
	Name    string
	Version string
	// Registry is the capability catalog to expose.
	Registry *agent.Registry
	// Addr selects SSE transport on the given address when non-empty;
	// otherwise the server speaks stdio.
	Addr string
	Log  *slog.Logger
}

// Server bridges the capability catalog to MCP.
type Server struct {
	server     *mcp.Server
	dispatcher *agent.Dispatcher
	addr       string
	log        *slog.Logger
}

// New builds the MCP server and registers every catalog capability as a tool.
func New(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("mcpserver: nil registry")
	}
	if cfg.Name == "" {
		cfg.Name = "finsight"
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		server:     mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil),
		dispatcher: agent.NewDispatcher(cfg.Registry, log),
		addr:       cfg.Addr,
		log:        log,
	}
	for _, desc := range cfg.Registry.Describe() {
		var schema map[string]any
		if len(desc.InputSchema) > 0 {
			if err := json.Unmarshal(desc.InputSchema, &schema); err != nil {
				return nil, fmt.Errorf("mcpserver: schema for %s: %w", desc.Name, err)
			}
		}
		s.server.AddTool(&mcp.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: schema,
		}, s.handler(desc.Name))
	}
	return s, nil
}

// handler adapts one capability to the MCP call shape. Capability failures
// come back as error results with a JSON payload, not protocol errors.
func (s *Server) handler(name string) func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, fmt.Errorf("invalid parameters: %v", err)
			}
		}
		outcome := s.dispatcher.Invoke(ctx, name, args)
		return &mcp.CallToolResult{
			IsError: outcome.IsError(),
			Content: []mcp.Content{
				&mcp.TextContent{Text: s.dispatcher.Render(outcome)},
			},
		}, nil
	}
}

// Run serves until ctx is canceled. Stdio transport runs in the foreground;
// SSE starts an HTTP server and shuts it down when ctx ends.
func (s *Server) Run(ctx context.Context) error {
	if s.addr == "" {
		s.log.Info("mcp server on stdio")
		return s.server.Run(ctx, &mcp.StdioTransport{})
	}

	handler := mcp.NewSSEHandler(func(_ *http.Request) *mcp.Server { return s.server }, nil)
	httpServer := &http.Server{Addr: s.addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("mcp server on sse", "addr", s.addr)
		errCh <- httpServer.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("mcpserver: serve: %w", err)
		}
		return nil
	}
}
