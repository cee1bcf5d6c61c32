package ports

import (
	"context"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/execution"
)

// Response is what a caller gets back after launching or resuming an execution.
type Response struct {
	// ExecutionID identifies the stored execution. Empty once the execution ended.
	ExecutionID string `json:"executionId,omitempty"`
	// View is the view to render. It may be domain.NullView.
	View *domain.ViewSelection `json:"view,omitempty"`
	// Active is false once the root flow has ended.
	Active bool `json:"active"`
	// FlowID and StateID locate the paused execution, for clients that echo them back.
	FlowID  string `json:"flowId,omitempty"`
	StateID string `json:"stateId,omitempty"`
}

// ResumeRequest carries what an external event source extracted from its request.
type ResumeRequest struct {
	ExecutionID string         `json:"executionId" validate:"required"`
	EventID     string         `json:"eventId" validate:"required"`
	StateID     string         `json:"stateId,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
}

// FlowExecutor is the driving port used by transports (HTTP, MCP, console).
type FlowExecutor interface {
	// Launch starts a new execution of flowID.
	Launch(ctx context.Context, flowID string, input map[string]any, ext domain.ExternalContext) (*Response, error)

	// Resume signals an event into a stored execution.
	Resume(ctx context.Context, req ResumeRequest, ext domain.ExternalContext) (*Response, error)

	// Refresh re-renders the current view of a stored execution.
	Refresh(ctx context.Context, executionID string, ext domain.ExternalContext) (*Response, error)

	// Remove abandons a stored execution.
	Remove(ctx context.Context, executionID string) error

	// Inspect returns the persistent form of a stored execution without resuming it.
	Inspect(ctx context.Context, executionID string) (*execution.Snapshot, error)

	// List returns the ids of the stored executions.
	List(ctx context.Context) ([]string, error)
}
