package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/flow"
)

// FlowExecution is the runtime state of one conversation: metadata plus the session stack.
type FlowExecution struct {
	mu sync.Mutex

	key          string
	created      time.Time
	lastActivity time.Time
	lastEventID  string
	rootFlowID   string
	sessions     []*FlowSession
	ended        bool

	// Transient, reattached by Rehydrate.
	rootFlow  *flow.Flow
	hydrated  bool
	listeners ListenerList
	tx        flow.TransactionSynchronizer
	logger    *slog.Logger
}

// Option configures a FlowExecution.
type Option func(*FlowExecution)

// WithListeners attaches lifecycle listeners.
func WithListeners(l ...*Listener) Option {
	return func(e *FlowExecution) {
		e.listeners = append(e.listeners, l...)
	}
}

// WithTransactionSynchronizer sets the double-submit guard exposed through the RequestContext.
func WithTransactionSynchronizer(tx flow.TransactionSynchronizer) Option {
	return func(e *FlowExecution) {
		e.tx = tx
	}
}

// WithLogger configures a logger for interpreter events.
func WithLogger(logger *slog.Logger) Option {
	return func(e *FlowExecution) {
		e.logger = logger
	}
}

// New creates an execution of root that has not been started yet.
func New(root *flow.Flow, opts ...Option) *FlowExecution {
	now := time.Now()
	e := &FlowExecution{
		key:          uuid.NewString(),
		created:      now,
		lastActivity: now,
		rootFlowID:   root.ID(),
		rootFlow:     root,
		hydrated:     true,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.listeners.fireCreated(e)
	return e
}

func (e *FlowExecution) Key() string             { return e.key }
func (e *FlowExecution) Created() time.Time      { return e.created }
func (e *FlowExecution) LastActivity() time.Time { return e.lastActivity }
func (e *FlowExecution) LastEventID() string     { return e.lastEventID }
func (e *FlowExecution) RootFlowID() string      { return e.rootFlowID }
func (e *FlowExecution) RootFlow() *flow.Flow    { return e.rootFlow }
func (e *FlowExecution) Listeners() ListenerList { return e.listeners }
func (e *FlowExecution) IsHydrated() bool        { return e.hydrated }

// IsActive reports whether the session stack is non-empty.
func (e *FlowExecution) IsActive() bool { return len(e.sessions) > 0 }

// IsEnded reports whether the root session has ended. An ended execution only supports inspection.
func (e *FlowExecution) IsEnded() bool { return e.ended }

// ActiveSession returns the top of the session stack, or nil.
func (e *FlowExecution) ActiveSession() *FlowSession {
	if len(e.sessions) == 0 {
		return nil
	}
	return e.sessions[len(e.sessions)-1]
}

// ActiveFlow returns the flow of the active session, or nil.
func (e *FlowExecution) ActiveFlow() *flow.Flow {
	if s := e.ActiveSession(); s != nil {
		return s.flow
	}
	return nil
}

// CurrentState returns the current state of the active session, or nil.
func (e *FlowExecution) CurrentState() flow.State {
	if s := e.ActiveSession(); s != nil {
		return s.state
	}
	return nil
}

// CurrentStateID works on executions that are not yet rehydrated.
func (e *FlowExecution) CurrentStateID() string {
	if s := e.ActiveSession(); s != nil {
		return s.stateID
	}
	return ""
}

// Sessions returns the session stack, root first.
func (e *FlowExecution) Sessions() []*FlowSession {
	out := make([]*FlowSession, len(e.sessions))
	copy(out, e.sessions)
	return out
}

func (e *FlowExecution) String() string {
	if !e.IsActive() {
		return fmt.Sprintf("execution %s [%s, inactive]", e.key, e.rootFlowID)
	}
	return fmt.Sprintf("execution %s [%s]", e.key, e.ActiveSession())
}

// Start launches the root flow. input seeds the root session's flow scope.
func (e *FlowExecution) Start(ctx context.Context, input map[string]any, ext domain.ExternalContext) (*domain.ViewSelection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.assertUsable(); err != nil {
		return nil, err
	}
	if e.IsActive() {
		return nil, domain.ErrExecutionActive
	}

	rc := e.newRequest(ctx, ext)
	e.listeners.fireRequestSubmitted(rc)
	sel, err := rc.Start(e.rootFlow, input)
	sel, err = e.complete(rc, sel, err)
	if err != nil && !e.ended {
		// A failed start leaves the execution unstarted.
		e.sessions = nil
	}
	return sel, err
}

// SignalEvent hands an external event to the current state of the active session.
// The returned selection is the view to render next; after the root flow ended it is the
// final view of its end state (possibly domain.NullView) and IsActive reports false.
func (e *FlowExecution) SignalEvent(ctx context.Context, ev *domain.Event, ext domain.ExternalContext) (*domain.ViewSelection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.assertUsable(); err != nil {
		return nil, err
	}
	if !e.IsActive() {
		return nil, domain.ErrExecutionNotActive
	}
	if ev == nil {
		return nil, fmt.Errorf("execution %s: event must not be nil", e.key)
	}

	rc := e.newRequest(ctx, ext)
	e.listeners.fireRequestSubmitted(rc)
	e.resume(rc)
	e.lastEventID = ev.ID()
	sel, err := rc.SignalEvent(ev)
	return e.complete(rc, sel, err)
}

// Refresh re-renders the current view state without signaling an event.
func (e *FlowExecution) Refresh(ctx context.Context, ext domain.ExternalContext) (*domain.ViewSelection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.assertUsable(); err != nil {
		return nil, err
	}
	if !e.IsActive() {
		return nil, domain.ErrExecutionNotActive
	}
	vs, ok := e.CurrentState().(*flow.ViewState)
	if !ok {
		return nil, fmt.Errorf("execution %s: current state %v is not a view state", e.key, e.CurrentState())
	}

	rc := e.newRequest(ctx, ext)
	e.listeners.fireRequestSubmitted(rc)
	e.resume(rc)
	sel, err := vs.Refresh(rc)
	return e.complete(rc, sel, err)
}

func (e *FlowExecution) assertUsable() error {
	if !e.hydrated {
		return domain.ErrNotHydrated
	}
	if e.ended {
		return domain.ErrExecutionEnded
	}
	return nil
}

func (e *FlowExecution) resume(rc *requestContext) {
	e.ActiveSession().status = domain.StatusActive
	e.listeners.fireResumed(rc)
}

// complete routes a failure through the exception handlers and pauses the execution
// if it is still active.
func (e *FlowExecution) complete(rc *requestContext, sel *domain.ViewSelection, err error) (*domain.ViewSelection, error) {
	if err != nil {
		sel, err = e.handleException(rc, err)
	}
	e.lastActivity = time.Now()
	if s := e.ActiveSession(); s != nil {
		s.status = domain.StatusPaused
		if err == nil {
			e.listeners.firePaused(rc, sel)
		}
	}
	e.listeners.fireRequestProcessed(rc)
	if err != nil {
		e.logger.Debug("request failed", "execution", e.key, "err", err)
		return nil, err
	}
	return sel, nil
}

// handleException offers a recoverable error to the current state's handlers, then to the
// active flow's. Unclaimed or unrecoverable errors are returned as is.
func (e *FlowExecution) handleException(rc *requestContext, err error) (*domain.ViewSelection, error) {
	if !flow.IsRecoverable(err) {
		return nil, err
	}
	if state := e.CurrentState(); state != nil {
		if sel, handled, herr := state.ExceptionHandlers().Handle(err, rc); handled {
			e.logger.Debug("exception handled by state", "state", state.ID(), "err", err)
			return sel, herr
		}
	}
	if f := e.ActiveFlow(); f != nil {
		if sel, handled, herr := f.HandleException(err, rc); handled {
			e.logger.Debug("exception handled by flow", "flow", f.ID(), "err", err)
			return sel, herr
		}
	}
	return nil, err
}

// activateSession pushes a new session for f, suspending the current top.
func (e *FlowExecution) activateSession(rc *requestContext, f *flow.Flow, input map[string]any) (*FlowSession, error) {
	if err := e.listeners.fireSessionStarting(rc, f, input); err != nil {
		return nil, &flow.VetoError{Point: "session-starting", FlowID: f.ID(), Err: err}
	}
	parent := e.ActiveSession()
	if parent != nil {
		parent.status = domain.StatusSuspended
	}
	s := newFlowSession(f, parent)
	s.scope.PutAll(input)
	e.sessions = append(e.sessions, s)
	s.status = domain.StatusActive
	e.logger.Debug("session started", "execution", e.key, "flow", f.ID(), "depth", len(e.sessions))
	e.listeners.fireSessionStarted(rc, s)
	return s, nil
}

// endActiveSession runs the active flow's end actions and pops it.
// Popping the root session ends the execution.
func (e *FlowExecution) endActiveSession(rc *requestContext, output map[string]any) (*FlowSession, error) {
	s := e.ActiveSession()
	if s == nil {
		return nil, domain.ErrExecutionNotActive
	}
	e.listeners.fireSessionEnding(rc, s, output)
	if err := s.flow.End(rc, output); err != nil {
		return nil, err
	}
	e.sessions = e.sessions[:len(e.sessions)-1]
	s.status = domain.StatusEnded
	if parent := e.ActiveSession(); parent != nil {
		parent.status = domain.StatusActive
	} else {
		e.ended = true
	}
	e.logger.Debug("session ended", "execution", e.key, "flow", s.flowID, "depth", len(e.sessions))
	e.listeners.fireSessionEnded(rc, s, output)
	return s, nil
}

// errNoActiveSession guards ControlContext operations that need a session.
var errNoActiveSession = errors.New("no active flow session")
