package flow

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
)

// Common action outcome ids.
const (
	EventSuccess = "success"
	EventError   = "error"
	EventYes     = "yes"
	EventNo      = "no"
)

// Action is a unit of business logic invoked during flow execution.
// It returns the outcome Event, or nil when it has nothing to signal.
type Action interface {
	Execute(ctx RequestContext) (*domain.Event, error)
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(ctx RequestContext) (*domain.Event, error)

func (f ActionFunc) Execute(ctx RequestContext) (*domain.Event, error) { return f(ctx) }

// Success returns the "success" outcome.
func Success() *domain.Event { return domain.NewEvent(EventSuccess, nil) }

// Error returns the "error" outcome carrying err's message.
func Error(err error) *domain.Event {
	params := map[string]any{}
	if err != nil {
		params["error"] = err.Error()
	}
	return domain.NewEvent(EventError, params)
}

// Yes returns the "yes" outcome.
func Yes() *domain.Event { return domain.NewEvent(EventYes, nil) }

// No returns the "no" outcome.
func No() *domain.Event { return domain.NewEvent(EventNo, nil) }

// Result returns an outcome with an arbitrary id.
func Result(id string, params map[string]any) *domain.Event { return domain.NewEvent(id, params) }

// AnnotatedAction decorates an action with a name and attributes.
// A named action qualifies its outcome ids as "name.id".
type AnnotatedAction struct {
	Action     Action
	Name       string
	Attributes map[string]any
}

// Named wraps a with a qualifying name.
func Named(name string, a Action) *AnnotatedAction {
	return &AnnotatedAction{Action: a, Name: name}
}

func (a *AnnotatedAction) Execute(ctx RequestContext) (*domain.Event, error) {
	ev, err := a.Action.Execute(ctx)
	if err != nil || ev == nil || a.Name == "" {
		return ev, err
	}
	return domain.NewEvent(a.Name+"."+ev.ID(), ev.Params()), nil
}

func (a *AnnotatedAction) String() string {
	if a.Name != "" {
		return a.Name
	}
	return describeAction(a.Action)
}

func describeAction(a Action) string {
	if s, ok := a.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", a)
}

// ExecuteAction runs a on behalf of state (nil for flow start/end actions).
// Errors and panics are wrapped into *ActionExecutionError.
func ExecuteAction(a Action, ctx RequestContext, state State) (ev *domain.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			ev = nil
			err = newActionExecutionError(a, ctx, state, fmt.Errorf("panic: %v", r))
		}
	}()
	ev, err = a.Execute(ctx)
	if err != nil {
		return nil, newActionExecutionError(a, ctx, state, err)
	}
	return ev, nil
}

func newActionExecutionError(a Action, ctx RequestContext, state State, err error) error {
	e := &ActionExecutionError{Action: describeAction(a), Err: err}
	if state != nil {
		e.StateID = state.ID()
		e.FlowID = state.Flow().ID()
	} else if f := ctx.ActiveFlow(); f != nil {
		e.FlowID = f.ID()
	}
	return e
}

// ActionList is an ordered list of actions whose outcomes are ignored.
type ActionList struct {
	actions []Action
}

func (l *ActionList) Add(a ...Action) {
	l.actions = append(l.actions, a...)
}

func (l *ActionList) Len() int { return len(l.actions) }

func (l *ActionList) All() []Action {
	out := make([]Action, len(l.actions))
	copy(out, l.actions)
	return out
}

// Execute runs every action in order, stopping at the first failure.
func (l *ActionList) Execute(ctx RequestContext, state State) error {
	for _, a := range l.actions {
		if _, err := ExecuteAction(a, ctx, state); err != nil {
			return err
		}
	}
	return nil
}

// SetAction evaluates an expression and stores the result in a scope.
type SetAction struct {
	Scope domain.ScopeType
	Name  string
	Value *Expression
}

// NewSetAction compiles value and returns an action storing it under name in scope.
func NewSetAction(scope domain.ScopeType, name, value string) (*SetAction, error) {
	e, err := CompileExpression(value)
	if err != nil {
		return nil, err
	}
	return &SetAction{Scope: scope, Name: name, Value: e}, nil
}

func (a *SetAction) Execute(ctx RequestContext) (*domain.Event, error) {
	v, err := a.Value.Evaluate(Env(ctx))
	if err != nil {
		return nil, err
	}
	switch a.Scope {
	case domain.RequestScope:
		ctx.RequestScope().Put(a.Name, v)
	default:
		ctx.FlowScope().Put(a.Name, v)
	}
	return Success(), nil
}

func (a *SetAction) String() string {
	return fmt.Sprintf("set(%sScope.%s = %s)", a.Scope, a.Name, a.Value)
}

// EvaluateAction evaluates an expression and turns its result into an outcome:
// booleans become yes/no, strings are used as the event id, anything else yields success.
type EvaluateAction struct {
	Expr *Expression
	// ResultName, when set, stores the raw result in request scope.
	ResultName string
}

// NewEvaluateAction compiles src.
func NewEvaluateAction(src string) (*EvaluateAction, error) {
	e, err := CompileExpression(src)
	if err != nil {
		return nil, err
	}
	return &EvaluateAction{Expr: e}, nil
}

func (a *EvaluateAction) Execute(ctx RequestContext) (*domain.Event, error) {
	v, err := a.Expr.Evaluate(Env(ctx))
	if err != nil {
		return nil, err
	}
	if a.ResultName != "" {
		ctx.RequestScope().Put(a.ResultName, v)
	}
	switch r := v.(type) {
	case bool:
		if r {
			return Yes(), nil
		}
		return No(), nil
	case string:
		return domain.NewEvent(r, nil), nil
	case *domain.Event:
		return r, nil
	default:
		return Success(), nil
	}
}

func (a *EvaluateAction) String() string {
	return fmt.Sprintf("evaluate(%s)", a.Expr)
}
