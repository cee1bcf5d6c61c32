// Package mcp exposes a ports.FlowExecutor as a Model Context Protocol server,
// so an agent can launch flows and signal events through tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/ports"
)

const (
	executionsURI       = "webflow://executions"
	executionTemplate   = "webflow://executions/{id}"
	executionURIPrefix  = executionsURI + "/"
	defaultShutdownWait = 5 * time.Second
)

// Catalog lists the flow ids a server can launch. *registry.Flows satisfies it.
type Catalog interface {
	IDs() []string
}

// LaunchArgs are the arguments of the launch_flow tool.
type LaunchArgs struct {
	FlowID string         `json:"flow_id"`
	Input  map[string]any `json:"input,omitempty"`
}

// SignalArgs are the arguments of the signal_event tool.
type SignalArgs struct {
	ExecutionID string         `json:"execution_id"`
	EventID     string         `json:"event_id"`
	StateID     string         `json:"state_id,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
}

// ExecutionArgs address one stored execution.
type ExecutionArgs struct {
	ExecutionID string `json:"execution_id"`
}

// ListResult is returned by list_executions and list_flows.
type ListResult struct {
	IDs []string `json:"ids"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    ports.FlowExecutor
	catalog   Catalog
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithCatalog enables the list_flows tool.
func WithCatalog(c Catalog) Option {
	return func(s *Server) {
		s.catalog = c
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.FlowExecutor, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("webflow-mcp", webflow.Version, server.WithRecovery())
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		baseURL = "http://localhost" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownWait)
		defer cancel()
		s.logger.Info("Shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("launch_flow",
		mcp.WithDescription("Start a new execution of a flow and return its first view."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("The id of the flow to launch")),
		mcp.WithObject("input", mcp.Description("Initial flow scope attributes (optional)")),
		mcp.WithOutputSchema[ports.Response](),
	), mcp.NewStructuredToolHandler(s.handleLaunch))

	s.mcpServer.AddTool(mcp.NewTool("signal_event",
		mcp.WithDescription("Signal an event into a paused execution and return the next view."),
		mcp.WithString("execution_id", mcp.Required(), mcp.Description("The execution to resume")),
		mcp.WithString("event_id", mcp.Required(), mcp.Description("The event to signal, as offered by the current view state")),
		mcp.WithString("state_id", mcp.Description("The state the caller believes is current (optional)")),
		mcp.WithObject("params", mcp.Description("Event parameters (optional)")),
		mcp.WithOutputSchema[ports.Response](),
	), mcp.NewStructuredToolHandler(s.handleSignal))

	s.mcpServer.AddTool(mcp.NewTool("refresh_execution",
		mcp.WithDescription("Render the current view of a paused execution again without signaling an event."),
		mcp.WithString("execution_id", mcp.Required(), mcp.Description("The execution to refresh")),
		mcp.WithOutputSchema[ports.Response](),
	), mcp.NewStructuredToolHandler(s.handleRefresh))

	s.mcpServer.AddTool(mcp.NewTool("inspect_execution",
		mcp.WithDescription("Return the stored snapshot of an execution: its sessions, states and scopes."),
		mcp.WithString("execution_id", mcp.Required(), mcp.Description("The execution to inspect")),
	), mcp.NewStructuredToolHandler(s.handleInspect))

	s.mcpServer.AddTool(mcp.NewTool("remove_execution",
		mcp.WithDescription("Abandon a paused execution."),
		mcp.WithString("execution_id", mcp.Required(), mcp.Description("The execution to remove")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ExecutionArgs
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if err := s.engine.Remove(ctx, args.ExecutionID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("remove failed: %v", err)), nil
		}
		return mcp.NewToolResultText("removed " + args.ExecutionID), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("list_executions",
		mcp.WithDescription("List the ids of the stored executions."),
		mcp.WithOutputSchema[ListResult](),
	), mcp.NewStructuredToolHandler(s.handleListExecutions))

	if s.catalog != nil {
		s.mcpServer.AddTool(mcp.NewTool("list_flows",
			mcp.WithDescription("List the ids of the flows that can be launched."),
			mcp.WithOutputSchema[ListResult](),
		), mcp.NewStructuredToolHandler(s.handleListFlows))
	}
}

func (s *Server) handleLaunch(ctx context.Context, _ mcp.CallToolRequest, args LaunchArgs) (ports.Response, error) {
	if args.FlowID == "" {
		return ports.Response{}, fmt.Errorf("flow_id is required")
	}
	resp, err := s.engine.Launch(ctx, args.FlowID, args.Input, nil)
	if err != nil {
		s.logger.Warn("MCP launch failed", "flow", args.FlowID, "error", err)
		return ports.Response{}, err
	}
	return *resp, nil
}

func (s *Server) handleSignal(ctx context.Context, _ mcp.CallToolRequest, args SignalArgs) (ports.Response, error) {
	resp, err := s.engine.Resume(ctx, ports.ResumeRequest{
		ExecutionID: args.ExecutionID,
		EventID:     args.EventID,
		StateID:     args.StateID,
		Params:      args.Params,
	}, nil)
	if err != nil {
		s.logger.Warn("MCP signal failed", "execution", args.ExecutionID, "event", args.EventID, "error", err)
		return ports.Response{}, err
	}
	return *resp, nil
}

func (s *Server) handleRefresh(ctx context.Context, _ mcp.CallToolRequest, args ExecutionArgs) (ports.Response, error) {
	resp, err := s.engine.Refresh(ctx, args.ExecutionID, nil)
	if err != nil {
		return ports.Response{}, err
	}
	return *resp, nil
}

func (s *Server) handleInspect(ctx context.Context, _ mcp.CallToolRequest, args ExecutionArgs) (execution.Snapshot, error) {
	snap, err := s.engine.Inspect(ctx, args.ExecutionID)
	if err != nil {
		return execution.Snapshot{}, err
	}
	return *snap, nil
}

func (s *Server) handleListExecutions(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (ListResult, error) {
	ids, err := s.engine.List(ctx)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{IDs: nonNil(ids)}, nil
}

func (s *Server) handleListFlows(_ context.Context, _ mcp.CallToolRequest, _ map[string]any) (ListResult, error) {
	ids := s.catalog.IDs()
	sort.Strings(ids)
	return ListResult{IDs: nonNil(ids)}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(executionsURI, "Stored executions",
		mcp.WithResourceDescription("Ids of the paused executions"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.engine.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list executions: %w", err)
		}
		return jsonResource(executionsURI, ListResult{IDs: nonNil(ids)})
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(executionTemplate, "Execution snapshot",
		mcp.WithTemplateDescription("The stored snapshot of one execution"),
		mcp.WithTemplateMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := request.Params.URI
		id := strings.TrimPrefix(uri, executionURIPrefix)
		if id == "" || id == uri {
			return nil, fmt.Errorf("invalid execution uri %q", uri)
		}
		snap, err := s.engine.Inspect(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect execution: %w", err)
		}
		return jsonResource(uri, snap)
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
