package flow

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
)

// TargetStateResolver determines the state a transition leads to.
type TargetStateResolver interface {
	Resolve(t *Transition, source State, ctx RequestContext) (State, error)
	String() string
}

// staticTarget names the target state by id. The state is bound once the owning
// flow resolves its transition targets.
type staticTarget struct {
	id    string
	state State
}

// To targets the state with the given id in the flow of the source state.
func To(stateID string) TargetStateResolver {
	return &staticTarget{id: stateID}
}

func (r *staticTarget) Resolve(_ *Transition, source State, ctx RequestContext) (State, error) {
	if r.state != nil {
		return r.state, nil
	}
	f := ctx.ActiveFlow()
	if source != nil {
		f = source.Flow()
	}
	return f.RequiredState(r.id)
}

func (r *staticTarget) bind(f *Flow) error {
	s := f.State(r.id)
	if s == nil {
		return &ConfigurationError{FlowID: f.ID(), Reason: fmt.Sprintf("transition targets unknown state '%s'", r.id)}
	}
	r.state = s
	return nil
}

func (r *staticTarget) String() string { return r.id }

type expressionTarget struct {
	expr *Expression
}

// ToExpression targets the state whose id is the string result of src, evaluated at transition time.
func ToExpression(src string) (TargetStateResolver, error) {
	e, err := CompileExpression(src)
	if err != nil {
		return nil, err
	}
	return &expressionTarget{expr: e}, nil
}

func (r *expressionTarget) Resolve(_ *Transition, source State, ctx RequestContext) (State, error) {
	out, err := r.expr.Evaluate(Env(ctx))
	if err != nil {
		return nil, err
	}
	id, ok := out.(string)
	if !ok {
		return nil, fmt.Errorf("target expression %q returned %T, expected state id", r.expr, out)
	}
	f := ctx.ActiveFlow()
	if source != nil {
		f = source.Flow()
	}
	return f.RequiredState(id)
}

func (r *expressionTarget) String() string { return "${" + r.expr.String() + "}" }

// Transition is an edge out of a transitionable state.
type Transition struct {
	matching  Criteria
	execution Criteria
	target    TargetStateResolver
	attrs     map[string]any
}

// TransitionOption configures a Transition.
type TransitionOption func(*Transition)

// WithExecutionCriteria guards execution of a matched transition.
// When the guard fails the source state is re-entered instead.
func WithExecutionCriteria(c Criteria) TransitionOption {
	return func(t *Transition) {
		t.execution = c
	}
}

// WithTransitionAttribute attaches free-form metadata (used by graph rendering and tools).
func WithTransitionAttribute(key string, value any) TransitionOption {
	return func(t *Transition) {
		if t.attrs == nil {
			t.attrs = make(map[string]any)
		}
		t.attrs[key] = value
	}
}

// NewTransition creates a transition. A nil matching criteria matches everything.
func NewTransition(on Criteria, target TargetStateResolver, opts ...TransitionOption) *Transition {
	if on == nil {
		on = Wildcard
	}
	t := &Transition{matching: on, target: target}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Matches reports whether the transition accepts the current event.
func (t *Transition) Matches(ctx RequestContext) bool {
	return t.matching.Test(ctx)
}

// CanExecute reports whether the execution criteria allow the transition.
func (t *Transition) CanExecute(ctx RequestContext) bool {
	return t.execution == nil || t.execution.Test(ctx)
}

func (t *Transition) MatchingCriteria() Criteria  { return t.matching }
func (t *Transition) ExecutionCriteria() Criteria { return t.execution }
func (t *Transition) Target() TargetStateResolver { return t.target }
func (t *Transition) Attribute(key string) any    { return t.attrs[key] }

// TargetStateID returns the static target id, or "" for dynamic targets.
func (t *Transition) TargetStateID() string {
	if st, ok := t.target.(*staticTarget); ok {
		return st.id
	}
	return ""
}

// Execute moves the execution from source into the target state.
// If the execution criteria reject the transition, source is re-entered without running its exit actions.
// source may be nil when a handler recovers from a failure raised before any state was entered.
func (t *Transition) Execute(source State, ctx ControlContext) (*domain.ViewSelection, error) {
	if !t.CanExecute(ctx) {
		if source == nil {
			return nil, fmt.Errorf("transition on '%s' rolled back with no source state", t.matching)
		}
		return source.Enter(ctx)
	}
	if ts, ok := source.(TransitionableState); ok {
		if err := ts.Exit(ctx); err != nil {
			return nil, err
		}
	}
	target, err := t.target.Resolve(t, source, ctx)
	if err != nil {
		return nil, err
	}
	ctx.SetLastTransition(t)
	return target.Enter(ctx)
}

func (t *Transition) String() string {
	return fmt.Sprintf("[on=%s, to=%s]", t.matching, t.target)
}

// TransitionSet is the ordered set of transitions of a state. The first match wins.
type TransitionSet struct {
	transitions []*Transition
}

func (s *TransitionSet) Add(t ...*Transition) {
	s.transitions = append(s.transitions, t...)
}

// Matching returns the first transition matching ctx, or nil.
func (s *TransitionSet) Matching(ctx RequestContext) *Transition {
	for _, t := range s.transitions {
		if t.Matches(ctx) {
			return t
		}
	}
	return nil
}

func (s *TransitionSet) All() []*Transition {
	out := make([]*Transition, len(s.transitions))
	copy(out, s.transitions)
	return out
}

func (s *TransitionSet) Len() int { return len(s.transitions) }

// Criteria lists the matching criteria of every transition, for diagnostics.
func (s *TransitionSet) Criteria() []string {
	out := make([]string, len(s.transitions))
	for i, t := range s.transitions {
		out[i] = t.matching.String()
	}
	return out
}
