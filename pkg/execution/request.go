package execution

import (
	"context"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/flow"
)

// requestContext is the flow.ControlContext for the processing of one external request.
type requestContext struct {
	ctx            context.Context
	exec           *FlowExecution
	ext            domain.ExternalContext
	requestScope   *domain.AttributeMap
	lastEvent      *domain.Event
	lastTransition *flow.Transition
}

func (e *FlowExecution) newRequest(ctx context.Context, ext domain.ExternalContext) *requestContext {
	if ext == nil {
		ext = domain.NewExternalContext(nil)
	}
	return &requestContext{
		ctx:          ctx,
		exec:         e,
		ext:          ext,
		requestScope: domain.NewAttributeMap(),
	}
}

func (r *requestContext) Context() context.Context                { return r.ctx }
func (r *requestContext) RequestScope() *domain.AttributeMap      { return r.requestScope }
func (r *requestContext) ExternalContext() domain.ExternalContext { return r.ext }
func (r *requestContext) LastEvent() *domain.Event                { return r.lastEvent }
func (r *requestContext) LastTransition() *flow.Transition        { return r.lastTransition }
func (r *requestContext) ActiveFlow() *flow.Flow                  { return r.exec.ActiveFlow() }
func (r *requestContext) CurrentState() flow.State                { return r.exec.CurrentState() }
func (r *requestContext) ExecutionKey() string                    { return r.exec.key }

// FlowScope returns the active session's scope. Once the execution ended it is an empty map.
func (r *requestContext) FlowScope() *domain.AttributeMap {
	if s := r.exec.ActiveSession(); s != nil {
		return s.scope
	}
	return domain.NewAttributeMap()
}

func (r *requestContext) ActiveSession() flow.Session {
	if s := r.exec.ActiveSession(); s != nil {
		return s
	}
	return nil
}

func (r *requestContext) Model() map[string]any {
	model := r.FlowScope().AsMap()
	for k, v := range r.requestScope.AsMap() {
		model[k] = v
	}
	return model
}

func (r *requestContext) InTransaction(end bool) (bool, error) {
	if r.exec.tx == nil {
		return false, domain.ErrNoTransactionSynchronizer
	}
	return r.exec.tx.InTransaction(r, end), nil
}

func (r *requestContext) BeginTransaction() error {
	if r.exec.tx == nil {
		return domain.ErrNoTransactionSynchronizer
	}
	r.exec.tx.BeginTransaction(r)
	return nil
}

func (r *requestContext) EndTransaction() error {
	if r.exec.tx == nil {
		return domain.ErrNoTransactionSynchronizer
	}
	r.exec.tx.EndTransaction(r)
	return nil
}

func (r *requestContext) SetCurrentState(state flow.State) error {
	s := r.exec.ActiveSession()
	if s == nil {
		return errNoActiveSession
	}
	if err := r.exec.listeners.fireStateEntering(r, state); err != nil {
		return &flow.VetoError{Point: "state-entering", FlowID: state.Flow().ID(), StateID: state.ID(), Err: err}
	}
	previous := s.state
	s.setState(state)
	r.exec.logger.Debug("state entered", "execution", r.exec.key, "flow", s.flowID, "state", state.ID(), "kind", state.Kind())
	r.exec.listeners.fireStateEntered(r, previous, state)
	return nil
}

func (r *requestContext) SetLastEvent(ev *domain.Event) {
	r.lastEvent = ev
}

func (r *requestContext) SetLastTransition(t *flow.Transition) {
	r.lastTransition = t
	r.exec.logger.Debug("transition", "execution", r.exec.key, "transition", t.String())
}

func (r *requestContext) Start(f *flow.Flow, input map[string]any) (*domain.ViewSelection, error) {
	if _, err := r.exec.activateSession(r, f, input); err != nil {
		return nil, err
	}
	return f.Start(r, nil)
}

func (r *requestContext) SignalEvent(ev *domain.Event) (*domain.ViewSelection, error) {
	f := r.exec.ActiveFlow()
	if f == nil {
		return nil, errNoActiveSession
	}
	r.lastEvent = ev
	r.exec.listeners.fireEventSignaled(r, ev)
	return f.OnEvent(ev, r)
}

func (r *requestContext) EndActiveSession(output map[string]any) (flow.Session, error) {
	s, err := r.exec.endActiveSession(r, output)
	if err != nil {
		return nil, err
	}
	return s, nil
}
