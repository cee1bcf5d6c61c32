package dsl

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/flow"
)

// StateBuilder provides a fluent API for configuring a state.
// Methods that do not apply to the state's kind record a build error.
type StateBuilder struct {
	id      string
	kind    flow.StateKind
	builder *Builder

	actions     []flow.Action
	entry       []flow.Action
	exit        []flow.Action
	render      []flow.Action
	transitions []*flow.Transition
	handlers    []flow.ExceptionHandler
	attrs       map[string]any

	view     string
	redirect bool
	selector flow.ViewSelector

	child     *Builder
	childFlow *flow.Flow
	input     []flow.Mapping
	output    []flow.Mapping
}

func (s *StateBuilder) fail(format string, args ...any) *StateBuilder {
	s.builder.errs = append(s.builder.errs, fmt.Errorf("state '%s': %s", s.id, fmt.Sprintf(format, args...)))
	return s
}

func (s *StateBuilder) require(kinds ...flow.StateKind) bool {
	for _, k := range kinds {
		if s.kind == k {
			return true
		}
	}
	return false
}

// Do appends actions to an action state's chain.
func (s *StateBuilder) Do(actions ...flow.Action) *StateBuilder {
	if !s.require(flow.KindAction) {
		return s.fail("Do is only valid on action states")
	}
	s.actions = append(s.actions, actions...)
	return s
}

// Named appends an action whose results are qualified as "name.<id>".
func (s *StateBuilder) Named(name string, action flow.Action) *StateBuilder {
	return s.Do(flow.Named(name, action))
}

// Call appends an invocation of a registered action function.
// The registry is bound at Build time (see Builder.WithActions).
func (s *StateBuilder) Call(name string, args ...flow.Mapping) *StateBuilder {
	mapper, err := flow.NewMapper(args...)
	if err != nil {
		return s.fail("%v", err)
	}
	return s.Do(&call{name: name, args: mapper})
}

// call is a placeholder for a registry action until the builder binds it.
type call struct {
	name string
	args *flow.Mapper
}

func (c *call) Execute(flow.RequestContext) (*domain.Event, error) {
	return nil, fmt.Errorf("action %s is not bound to a registry", c.name)
}

func (s *StateBuilder) bindActions() ([]flow.Action, error) {
	out := make([]flow.Action, len(s.actions))
	for i, a := range s.actions {
		c, ok := a.(*call)
		if !ok {
			out[i] = a
			continue
		}
		if s.builder.actions == nil {
			return nil, fmt.Errorf("state '%s': Call(%s) requires an action registry", s.id, c.name)
		}
		out[i] = s.builder.actions.Action(c.name, c.args)
	}
	return out, nil
}

// Set appends an action storing the result of expr under name in flow scope.
func (s *StateBuilder) Set(name, expr string) *StateBuilder {
	a, err := flow.NewSetAction(domain.FlowScope, name, expr)
	if err != nil {
		return s.fail("%v", err)
	}
	if s.kind == flow.KindAction {
		return s.Do(a)
	}
	return s.OnEntry(a)
}

// Evaluate appends an action turning the result of expr into an event.
func (s *StateBuilder) Evaluate(expr string) *StateBuilder {
	a, err := flow.NewEvaluateAction(expr)
	if err != nil {
		return s.fail("%v", err)
	}
	return s.Do(a)
}

// OnEntry appends entry actions.
func (s *StateBuilder) OnEntry(actions ...flow.Action) *StateBuilder {
	s.entry = append(s.entry, actions...)
	return s
}

// OnExit appends exit actions.
func (s *StateBuilder) OnExit(actions ...flow.Action) *StateBuilder {
	if s.kind == flow.KindEnd {
		return s.fail("end states have no exit actions")
	}
	s.exit = append(s.exit, actions...)
	return s
}

// OnRender appends render actions to a view state.
func (s *StateBuilder) OnRender(actions ...flow.Action) *StateBuilder {
	if !s.require(flow.KindView) {
		return s.fail("OnRender is only valid on view states")
	}
	s.render = append(s.render, actions...)
	return s
}

// Render selects the named application view (view and end states).
func (s *StateBuilder) Render(view string) *StateBuilder {
	if !s.require(flow.KindView, flow.KindEnd) {
		return s.fail("Render is only valid on view and end states")
	}
	s.view = view
	return s
}

// Redirect asks the caller to redirect before rendering.
func (s *StateBuilder) Redirect() *StateBuilder {
	s.redirect = true
	return s
}

// Selector sets a custom view selector.
func (s *StateBuilder) Selector(sel flow.ViewSelector) *StateBuilder {
	if !s.require(flow.KindView, flow.KindEnd) {
		return s.fail("Selector is only valid on view and end states")
	}
	s.selector = sel
	return s
}

func (s *StateBuilder) transition(t *flow.Transition) *StateBuilder {
	if s.kind == flow.KindEnd {
		return s.fail("end states have no transitions")
	}
	s.transitions = append(s.transitions, t)
	return s
}

// On adds a transition to target on the given event id ("*" matches any event).
func (s *StateBuilder) On(event, target string) *StateBuilder {
	return s.transition(flow.NewTransition(flow.OnEvent(event), flow.To(target)))
}

// OnWhen adds a transition that executes only when guard holds; otherwise the state is re-entered.
func (s *StateBuilder) OnWhen(event, target, guard string) *StateBuilder {
	c, err := flow.ExpressionCriteria(guard)
	if err != nil {
		return s.fail("%v", err)
	}
	return s.transition(flow.NewTransition(flow.OnEvent(event), flow.To(target), flow.WithExecutionCriteria(c)))
}

// OnTo adds a transition whose target is computed by expr.
func (s *StateBuilder) OnTo(event, expr string) *StateBuilder {
	r, err := flow.ToExpression(expr)
	if err != nil {
		return s.fail("%v", err)
	}
	return s.transition(flow.NewTransition(flow.OnEvent(event), r))
}

// Branch adds a transition to target guarded by a boolean expression.
func (s *StateBuilder) Branch(condition, target string) *StateBuilder {
	c, err := flow.ExpressionCriteria(condition)
	if err != nil {
		return s.fail("%v", err)
	}
	return s.transition(flow.NewTransition(c, flow.To(target)))
}

// Otherwise adds a catch-all transition to target.
func (s *StateBuilder) Otherwise(target string) *StateBuilder {
	return s.transition(flow.NewTransition(flow.Wildcard, flow.To(target)))
}

// Catch routes every recoverable failure in this state to target.
func (s *StateBuilder) Catch(target string) *StateBuilder {
	s.handlers = append(s.handlers, flow.NewTransitionExecutingHandler().OnAny(target))
	return s
}

// CatchError routes failures in this state matching err (errors.Is) to target.
func (s *StateBuilder) CatchError(err error, target string) *StateBuilder {
	s.handlers = append(s.handlers, flow.NewTransitionExecutingHandler().On(err, target))
	return s
}

// Input adds subflow input mappings (evaluated in the parent).
func (s *StateBuilder) Input(mappings ...flow.Mapping) *StateBuilder {
	if !s.require(flow.KindSubflow) {
		return s.fail("Input is only valid on subflow states")
	}
	s.input = append(s.input, mappings...)
	return s
}

// Output adds output mappings. On a subflow state they copy the child's output
// (available as "output") into the parent's flow scope; on an end state they build the output.
func (s *StateBuilder) Output(mappings ...flow.Mapping) *StateBuilder {
	if !s.require(flow.KindSubflow, flow.KindEnd) {
		return s.fail("Output is only valid on subflow and end states")
	}
	s.output = append(s.output, mappings...)
	return s
}

// Attr attaches free-form metadata to the state.
func (s *StateBuilder) Attr(key string, value any) *StateBuilder {
	if s.attrs == nil {
		s.attrs = make(map[string]any)
	}
	s.attrs[key] = value
	return s
}

func (s *StateBuilder) viewSelector() flow.ViewSelector {
	if s.selector != nil {
		return s.selector
	}
	if s.view != "" {
		return flow.ApplicationView{Name: s.view, Redirect: s.redirect}
	}
	return nil
}

func (s *StateBuilder) create(f *flow.Flow, inline map[*Builder]*flow.Flow) error {
	opts := []flow.StateOption{
		flow.WithEntryActions(s.entry...),
		flow.WithStateExceptionHandlers(s.handlers...),
	}
	for k, v := range s.attrs {
		opts = append(opts, flow.WithStateAttribute(k, v))
	}

	var st flow.State
	var err error
	switch s.kind {
	case flow.KindAction:
		actions, berr := s.bindActions()
		if berr != nil {
			return berr
		}
		st, err = flow.NewActionState(f, s.id, actions, s.transitions, opts...)
	case flow.KindView:
		var vs *flow.ViewState
		if vs, err = flow.NewViewState(f, s.id, s.viewSelector(), s.transitions, opts...); err == nil {
			vs.RenderActions().Add(s.render...)
			st = vs
		}
	case flow.KindDecision:
		st, err = flow.NewDecisionState(f, s.id, s.transitions, opts...)
	case flow.KindSubflow:
		child := s.childFlow
		if s.child != nil {
			child = inline[s.child]
		}
		var mapper flow.FlowAttributeMapper
		if len(s.input) > 0 || len(s.output) > 0 {
			m := &flow.DefaultFlowAttributeMapper{}
			if m.Input, err = flow.NewMapper(s.input...); err != nil {
				return err
			}
			if m.Output, err = flow.NewMapper(s.output...); err != nil {
				return err
			}
			mapper = m
		}
		st, err = flow.NewSubflowState(f, s.id, child, mapper, s.transitions, opts...)
	case flow.KindEnd:
		var out *flow.Mapper
		if len(s.output) > 0 {
			if out, err = flow.NewMapper(s.output...); err != nil {
				return err
			}
		}
		st, err = flow.NewEndState(f, s.id, s.viewSelector(), out, opts...)
	}
	if err != nil {
		return err
	}
	if ts, ok := st.(flow.TransitionableState); ok {
		ts.ExitActions().Add(s.exit...)
	}
	return nil
}
