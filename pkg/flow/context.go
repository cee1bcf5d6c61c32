package flow

import (
	"context"

	"github.com/aretw0/webflow/pkg/domain"
)

// RequestContext is the view of a running execution handed to Actions, criteria and selectors.
// It lives for the processing of one external event.
type RequestContext interface {
	// Context returns the Go context of the current request.
	Context() context.Context

	FlowScope() *domain.AttributeMap
	RequestScope() *domain.AttributeMap
	ExternalContext() domain.ExternalContext

	// LastEvent is the event currently being processed (nil during start).
	LastEvent() *domain.Event
	// LastTransition is the most recently executed transition, if any.
	LastTransition() *Transition

	ActiveFlow() *Flow
	CurrentState() State
	ActiveSession() Session
	ExecutionKey() string

	// Model merges flow scope and request scope (request wins) for view rendering.
	Model() map[string]any

	// Transaction demarcation for the double-submit guard.
	InTransaction(end bool) (bool, error)
	BeginTransaction() error
	EndTransaction() error
}

// ControlContext is the privileged RequestContext used by states and transitions
// to drive the interpreter. Only pkg/execution implements it.
type ControlContext interface {
	RequestContext

	// SetCurrentState records state as the active session's position.
	// Listeners may veto the change.
	SetCurrentState(state State) error
	SetLastEvent(ev *domain.Event)
	SetLastTransition(t *Transition)

	// Start spawns f as a new session on top of the stack and enters its start state.
	Start(f *Flow, input map[string]any) (*domain.ViewSelection, error)
	// SignalEvent hands ev to the current state of the active session.
	SignalEvent(ev *domain.Event) (*domain.ViewSelection, error)
	// EndActiveSession runs the active flow's end actions and pops it off the stack.
	EndActiveSession(output map[string]any) (Session, error)
}

// Session is the read-only view of one activation record on the session stack.
type Session interface {
	Flow() *Flow
	State() State
	Scope() *domain.AttributeMap
	Status() domain.SessionStatus
	// Parent returns nil for the root session.
	Parent() Session
	IsRoot() bool
}

// Locator resolves flow definitions by id.
// Implementations must return an error wrapping domain.ErrNoSuchFlow when the id is unknown.
type Locator interface {
	GetFlow(id string) (*Flow, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(id string) (*Flow, error)

func (f LocatorFunc) GetFlow(id string) (*Flow, error) { return f(id) }

// TransactionSynchronizer guards against duplicate submits.
// It is invoked by flow code through the RequestContext, never by the interpreter.
type TransactionSynchronizer interface {
	// InTransaction reports whether the current request carries the active transaction token.
	// When end is true and the answer is yes, the transaction is ended.
	InTransaction(ctx RequestContext, end bool) bool
	BeginTransaction(ctx RequestContext)
	EndTransaction(ctx RequestContext)
}
