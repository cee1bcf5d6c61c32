package flow

import (
	"fmt"
	"sort"

	"github.com/aretw0/webflow/pkg/domain"
)

// OutputAttribute is the request scope key holding the output of an ending session.
const OutputAttribute = "flowOutput"

// Flow is a named graph of states.
//
// A Flow is mutable while it is being built. ResolveTransitionTargets validates it and
// freezes it; afterwards it is safe for concurrent use by many executions.
type Flow struct {
	id         string
	states     []State
	index      map[string]State
	startState State
	start      ActionList
	end        ActionList
	handlers   ExceptionHandlerSet
	inline     map[string]*Flow
	attrs      map[string]any
	frozen     bool
}

// New creates an empty flow definition.
func New(id string) *Flow {
	return &Flow{
		id:     id,
		index:  make(map[string]State),
		inline: make(map[string]*Flow),
	}
}

func (f *Flow) ID() string { return f.id }

func (f *Flow) String() string { return "flow:" + f.id }

// add registers a state. The first state added becomes the start state.
func (f *Flow) add(s State) error {
	if f.frozen {
		return &ConfigurationError{FlowID: f.id, Reason: fmt.Sprintf("cannot add state '%s' to a resolved flow", s.ID())}
	}
	if _, dup := f.index[s.ID()]; dup {
		return &ConfigurationError{FlowID: f.id, Reason: fmt.Sprintf("duplicate state id '%s'", s.ID())}
	}
	f.index[s.ID()] = s
	f.states = append(f.states, s)
	if f.startState == nil {
		f.startState = s
	}
	return nil
}

// State returns the state with the given id, or nil.
func (f *Flow) State(id string) State {
	return f.index[id]
}

// RequiredState returns the state with the given id or a *NoSuchStateError.
func (f *Flow) RequiredState(id string) (State, error) {
	if s, ok := f.index[id]; ok {
		return s, nil
	}
	return nil, &NoSuchStateError{FlowID: f.id, StateID: id}
}

// States returns the states in definition order.
func (f *Flow) States() []State {
	out := make([]State, len(f.states))
	copy(out, f.states)
	return out
}

// StateIDs returns the state ids in definition order.
func (f *Flow) StateIDs() []string {
	out := make([]string, len(f.states))
	for i, s := range f.states {
		out[i] = s.ID()
	}
	return out
}

func (f *Flow) StartState() State { return f.startState }

// SetStartState makes the state with the given id the start state.
func (f *Flow) SetStartState(id string) error {
	if f.frozen {
		return &ConfigurationError{FlowID: f.id, Reason: "cannot change the start state of a resolved flow"}
	}
	s, err := f.RequiredState(id)
	if err != nil {
		return &ConfigurationError{FlowID: f.id, Reason: fmt.Sprintf("start state '%s' is not a state of this flow", id)}
	}
	f.startState = s
	return nil
}

func (f *Flow) StartActions() *ActionList               { return &f.start }
func (f *Flow) EndActions() *ActionList                 { return &f.end }
func (f *Flow) ExceptionHandlers() *ExceptionHandlerSet { return &f.handlers }

// SetAttribute attaches free-form metadata.
func (f *Flow) SetAttribute(key string, value any) {
	if f.attrs == nil {
		f.attrs = make(map[string]any)
	}
	f.attrs[key] = value
}

func (f *Flow) Attribute(key string) any { return f.attrs[key] }

// AddInlineFlow registers a flow private to this one. Inline flows are found by
// rehydration without going through the Locator.
func (f *Flow) AddInlineFlow(child *Flow) error {
	if f.frozen {
		return &ConfigurationError{FlowID: f.id, Reason: fmt.Sprintf("cannot add inline flow '%s' to a resolved flow", child.ID())}
	}
	if _, dup := f.inline[child.ID()]; dup {
		return &ConfigurationError{FlowID: f.id, Reason: fmt.Sprintf("duplicate inline flow '%s'", child.ID())}
	}
	f.inline[child.ID()] = child
	return nil
}

// InlineFlow returns the inline flow with the given id, or nil.
func (f *Flow) InlineFlow(id string) *Flow {
	return f.inline[id]
}

// InlineFlowIDs returns the inline flow ids, sorted.
func (f *Flow) InlineFlowIDs() []string {
	ids := make([]string, 0, len(f.inline))
	for id := range f.inline {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsResolved reports whether ResolveTransitionTargets succeeded.
func (f *Flow) IsResolved() bool { return f.frozen }

type targetBinder interface {
	bind(f *Flow) error
}

// ResolveTransitionTargets binds every static transition target and handler target
// to a state, failing on the first unknown id. Inline flows are resolved too.
// On success the flow is frozen.
func (f *Flow) ResolveTransitionTargets() error {
	if f.frozen {
		return nil
	}
	if f.startState == nil {
		return &ConfigurationError{FlowID: f.id, Reason: "no start state"}
	}
	for _, id := range f.InlineFlowIDs() {
		if err := f.inline[id].ResolveTransitionTargets(); err != nil {
			return err
		}
	}
	bindHandlers := func(set *ExceptionHandlerSet, where string) error {
		for _, h := range set.handlers {
			if b, ok := h.(targetBinder); ok {
				if err := b.bind(f); err != nil {
					return fmt.Errorf("%s: %w", where, err)
				}
			}
		}
		return nil
	}
	if err := bindHandlers(&f.handlers, "flow exception handler"); err != nil {
		return err
	}
	for _, s := range f.states {
		if err := bindHandlers(s.ExceptionHandlers(), fmt.Sprintf("state '%s' exception handler", s.ID())); err != nil {
			return err
		}
		ts, ok := s.(TransitionableState)
		if !ok {
			continue
		}
		for _, t := range ts.Transitions().transitions {
			b, ok := t.target.(targetBinder)
			if !ok {
				continue
			}
			if err := b.bind(f); err != nil {
				return fmt.Errorf("state '%s': %w", s.ID(), err)
			}
		}
	}
	f.frozen = true
	return nil
}

// Start runs the start actions and enters state, or the start state when state is nil.
func (f *Flow) Start(ctx ControlContext, state State) (*domain.ViewSelection, error) {
	if state == nil {
		state = f.startState
	}
	if state == nil {
		return nil, &ConfigurationError{FlowID: f.id, Reason: "no start state"}
	}
	if err := f.start.Execute(ctx, nil); err != nil {
		return nil, err
	}
	return state.Enter(ctx)
}

// OnEvent delegates ev to the current state.
func (f *Flow) OnEvent(ev *domain.Event, ctx ControlContext) (*domain.ViewSelection, error) {
	current := ctx.CurrentState()
	ts, ok := current.(TransitionableState)
	if !ok {
		return nil, fmt.Errorf("flow '%s': state %v cannot handle event '%s'", f.id, current, ev.ID())
	}
	return ts.OnEvent(ev, ctx)
}

// End runs the end actions. output, the data the ending session hands to its parent,
// is visible to them in request scope under OutputAttribute.
func (f *Flow) End(ctx ControlContext, output map[string]any) error {
	ctx.RequestScope().Put(OutputAttribute, output)
	return f.end.Execute(ctx, nil)
}

// HandleException offers err to the flow-level handlers.
func (f *Flow) HandleException(err error, ctx ControlContext) (*domain.ViewSelection, bool, error) {
	return f.handlers.Handle(err, ctx)
}
