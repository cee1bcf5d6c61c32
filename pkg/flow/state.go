package flow

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
)

// StateKind identifies the variant of a State.
type StateKind string

const (
	KindAction   StateKind = "action"
	KindView     StateKind = "view"
	KindDecision StateKind = "decision"
	KindSubflow  StateKind = "subflow"
	KindEnd      StateKind = "end"
)

// State is a node of a flow. The set of variants is closed.
type State interface {
	ID() string
	Flow() *Flow
	Kind() StateKind
	// Enter makes the state current, runs its entry actions and then its variant behavior.
	Enter(ctx ControlContext) (*domain.ViewSelection, error)
	EntryActions() *ActionList
	ExceptionHandlers() *ExceptionHandlerSet
	Attributes() map[string]any

	sealed()
}

// TransitionableState is a state with outgoing transitions. Every variant but EndState is one.
type TransitionableState interface {
	State
	// OnEvent selects a transition for the last event and executes it.
	OnEvent(ev *domain.Event, ctx ControlContext) (*domain.ViewSelection, error)
	// Exit runs the exit actions.
	Exit(ctx ControlContext) error
	Transitions() *TransitionSet
	ExitActions() *ActionList
}

// StateOption configures the common parts of a state.
type StateOption func(*stateBase)

// WithEntryActions appends actions run every time the state is entered.
func WithEntryActions(a ...Action) StateOption {
	return func(b *stateBase) {
		b.entry.Add(a...)
	}
}

// WithStateExceptionHandlers appends state-level exception handlers.
func WithStateExceptionHandlers(h ...ExceptionHandler) StateOption {
	return func(b *stateBase) {
		b.handlers.Add(h...)
	}
}

// WithStateAttribute attaches free-form metadata.
func WithStateAttribute(key string, value any) StateOption {
	return func(b *stateBase) {
		if b.attrs == nil {
			b.attrs = make(map[string]any)
		}
		b.attrs[key] = value
	}
}

type stateBase struct {
	id       string
	flow     *Flow
	entry    ActionList
	handlers ExceptionHandlerSet
	attrs    map[string]any
}

func newStateBase(f *Flow, id string, opts []StateOption) stateBase {
	b := stateBase{id: id, flow: f}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *stateBase) ID() string                              { return b.id }
func (b *stateBase) Flow() *Flow                             { return b.flow }
func (b *stateBase) EntryActions() *ActionList               { return &b.entry }
func (b *stateBase) ExceptionHandlers() *ExceptionHandlerSet { return &b.handlers }
func (b *stateBase) Attributes() map[string]any              { return b.attrs }
func (b *stateBase) sealed()                                 {}

func (b *stateBase) String() string {
	return fmt.Sprintf("%s:%s", b.flow.ID(), b.id)
}

// enter is the template shared by all variants.
func enter(ctx ControlContext, s State, body func(ControlContext) (*domain.ViewSelection, error)) (*domain.ViewSelection, error) {
	if err := ctx.SetCurrentState(s); err != nil {
		return nil, err
	}
	if err := s.EntryActions().Execute(ctx, s); err != nil {
		return nil, err
	}
	return body(ctx)
}

type transitionSupport struct {
	transitions TransitionSet
	exit        ActionList
}

func (t *transitionSupport) Transitions() *TransitionSet { return &t.transitions }
func (t *transitionSupport) ExitActions() *ActionList    { return &t.exit }

// transitionOn executes the first transition of s matching ctx.
func transitionOn(s TransitionableState, ctx ControlContext) (*domain.ViewSelection, error) {
	t := s.Transitions().Matching(ctx)
	if t == nil {
		err := &NoMatchingTransitionError{
			FlowID:   s.Flow().ID(),
			StateID:  s.ID(),
			Criteria: s.Transitions().Criteria(),
		}
		if ev := ctx.LastEvent(); ev != nil {
			err.EventID = ev.ID()
		}
		return nil, err
	}
	return t.Execute(s, ctx)
}

func exitState(s TransitionableState, ctx ControlContext) error {
	return s.ExitActions().Execute(ctx, s)
}

// ActionState executes its actions in order until one produces an event a transition accepts.
type ActionState struct {
	stateBase
	transitionSupport
	actions []Action
}

// NewActionState adds an action state to f. At least one action is required.
func NewActionState(f *Flow, id string, actions []Action, transitions []*Transition, opts ...StateOption) (*ActionState, error) {
	if len(actions) == 0 {
		return nil, &ConfigurationError{FlowID: f.ID(), Reason: fmt.Sprintf("action state '%s' has no actions", id)}
	}
	s := &ActionState{stateBase: newStateBase(f, id, opts), actions: actions}
	s.transitions.Add(transitions...)
	if err := f.add(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ActionState) Kind() StateKind   { return KindAction }
func (s *ActionState) Actions() []Action { return append([]Action(nil), s.actions...) }

func (s *ActionState) Enter(ctx ControlContext) (*domain.ViewSelection, error) {
	return enter(ctx, s, s.executeChain)
}

func (s *ActionState) executeChain(ctx ControlContext) (*domain.ViewSelection, error) {
	var results []string
	for _, a := range s.actions {
		ev, err := ExecuteAction(a, ctx, s)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			continue
		}
		results = append(results, ev.ID())
		ctx.SetLastEvent(ev)
		if t := s.transitions.Matching(ctx); t != nil {
			return t.Execute(s, ctx)
		}
	}
	return nil, &NoMatchingActionResultError{FlowID: s.flow.ID(), StateID: s.id, EventIDs: results}
}

func (s *ActionState) OnEvent(_ *domain.Event, ctx ControlContext) (*domain.ViewSelection, error) {
	return transitionOn(s, ctx)
}

func (s *ActionState) Exit(ctx ControlContext) error { return exitState(s, ctx) }

// ViewSelector chooses the view to render for a state.
type ViewSelector interface {
	MakeEntrySelection(ctx RequestContext) (*domain.ViewSelection, error)
	MakeRefreshSelection(ctx RequestContext) (*domain.ViewSelection, error)
}

// ApplicationView selects a named view whose model is the merged request and flow scope.
type ApplicationView struct {
	Name     string
	Redirect bool
}

func (v ApplicationView) MakeEntrySelection(ctx RequestContext) (*domain.ViewSelection, error) {
	return &domain.ViewSelection{ViewName: v.Name, Model: ctx.Model(), Redirect: v.Redirect}, nil
}

// Refreshing never redirects.
func (v ApplicationView) MakeRefreshSelection(ctx RequestContext) (*domain.ViewSelection, error) {
	return &domain.ViewSelection{ViewName: v.Name, Model: ctx.Model()}, nil
}

// ViewState pauses the execution and asks the caller to render a view.
type ViewState struct {
	stateBase
	transitionSupport
	selector ViewSelector
	render   ActionList
}

// NewViewState adds a view state to f. A nil selector makes a marker state rendering NullView.
func NewViewState(f *Flow, id string, selector ViewSelector, transitions []*Transition, opts ...StateOption) (*ViewState, error) {
	s := &ViewState{stateBase: newStateBase(f, id, opts), selector: selector}
	s.transitions.Add(transitions...)
	if err := f.add(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ViewState) Kind() StateKind            { return KindView }
func (s *ViewState) Selector() ViewSelector     { return s.selector }
func (s *ViewState) RenderActions() *ActionList { return &s.render }

func (s *ViewState) Enter(ctx ControlContext) (*domain.ViewSelection, error) {
	return enter(ctx, s, func(ctx ControlContext) (*domain.ViewSelection, error) {
		return s.selectView(ctx, false)
	})
}

// Refresh re-renders the view without changing state.
func (s *ViewState) Refresh(ctx RequestContext) (*domain.ViewSelection, error) {
	return s.selectView(ctx, true)
}

func (s *ViewState) selectView(ctx RequestContext, refresh bool) (*domain.ViewSelection, error) {
	if err := s.render.Execute(ctx, s); err != nil {
		return nil, err
	}
	if s.selector == nil {
		return domain.NullView, nil
	}
	if refresh {
		return s.selector.MakeRefreshSelection(ctx)
	}
	return s.selector.MakeEntrySelection(ctx)
}

func (s *ViewState) OnEvent(_ *domain.Event, ctx ControlContext) (*domain.ViewSelection, error) {
	return transitionOn(s, ctx)
}

func (s *ViewState) Exit(ctx ControlContext) error { return exitState(s, ctx) }

// DecisionState routes immediately on its transitions' criteria.
type DecisionState struct {
	stateBase
	transitionSupport
}

func NewDecisionState(f *Flow, id string, transitions []*Transition, opts ...StateOption) (*DecisionState, error) {
	s := &DecisionState{stateBase: newStateBase(f, id, opts)}
	s.transitions.Add(transitions...)
	if err := f.add(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DecisionState) Kind() StateKind { return KindDecision }

func (s *DecisionState) Enter(ctx ControlContext) (*domain.ViewSelection, error) {
	return enter(ctx, s, func(ctx ControlContext) (*domain.ViewSelection, error) {
		return transitionOn(s, ctx)
	})
}

func (s *DecisionState) OnEvent(_ *domain.Event, ctx ControlContext) (*domain.ViewSelection, error) {
	return transitionOn(s, ctx)
}

func (s *DecisionState) Exit(ctx ControlContext) error { return exitState(s, ctx) }

// SubflowState spawns a child flow and resumes on the child's end event.
type SubflowState struct {
	stateBase
	transitionSupport
	subflow *Flow
	mapper  FlowAttributeMapper
}

// NewSubflowState adds a subflow state to f. mapper may be nil.
func NewSubflowState(f *Flow, id string, subflow *Flow, mapper FlowAttributeMapper, transitions []*Transition, opts ...StateOption) (*SubflowState, error) {
	if subflow == nil {
		return nil, &ConfigurationError{FlowID: f.ID(), Reason: fmt.Sprintf("subflow state '%s' has no subflow", id)}
	}
	s := &SubflowState{stateBase: newStateBase(f, id, opts), subflow: subflow, mapper: mapper}
	s.transitions.Add(transitions...)
	if err := f.add(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SubflowState) Kind() StateKind             { return KindSubflow }
func (s *SubflowState) Subflow() *Flow              { return s.subflow }
func (s *SubflowState) Mapper() FlowAttributeMapper { return s.mapper }

func (s *SubflowState) Enter(ctx ControlContext) (*domain.ViewSelection, error) {
	return enter(ctx, s, func(ctx ControlContext) (*domain.ViewSelection, error) {
		input := map[string]any{}
		if s.mapper != nil {
			var err error
			if input, err = s.mapper.CreateSubflowInput(ctx); err != nil {
				return nil, fmt.Errorf("subflow state '%s': %w", s.id, err)
			}
		}
		return ctx.Start(s.subflow, input)
	})
}

// OnEvent maps the subflow output (carried as event params) back into the parent and transitions.
func (s *SubflowState) OnEvent(ev *domain.Event, ctx ControlContext) (*domain.ViewSelection, error) {
	if s.mapper != nil && ev != nil {
		if err := s.mapper.MapSubflowOutput(ev.Params(), ctx); err != nil {
			return nil, fmt.Errorf("subflow state '%s': %w", s.id, err)
		}
	}
	return transitionOn(s, ctx)
}

func (s *SubflowState) Exit(ctx ControlContext) error { return exitState(s, ctx) }

// EndState terminates the active session.
// In the root session it may select a final view. In a subflow it resumes the parent
// by signaling an event named after the end state carrying the mapped output.
type EndState struct {
	stateBase
	selector ViewSelector
	output   *Mapper
}

func NewEndState(f *Flow, id string, selector ViewSelector, output *Mapper, opts ...StateOption) (*EndState, error) {
	s := &EndState{stateBase: newStateBase(f, id, opts), selector: selector, output: output}
	if err := f.add(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *EndState) Kind() StateKind        { return KindEnd }
func (s *EndState) Selector() ViewSelector { return s.selector }
func (s *EndState) OutputMapper() *Mapper  { return s.output }

func (s *EndState) Enter(ctx ControlContext) (*domain.ViewSelection, error) {
	return enter(ctx, s, s.end)
}

func (s *EndState) end(ctx ControlContext) (*domain.ViewSelection, error) {
	output, err := s.output.Map(Env(ctx))
	if err != nil {
		return nil, fmt.Errorf("end state '%s': %w", s.id, err)
	}
	if ctx.ActiveSession().IsRoot() {
		sel := domain.NullView
		if s.selector != nil {
			if sel, err = s.selector.MakeEntrySelection(ctx); err != nil {
				return nil, err
			}
		}
		if _, err := ctx.EndActiveSession(output); err != nil {
			return nil, err
		}
		return sel, nil
	}
	if _, err := ctx.EndActiveSession(output); err != nil {
		return nil, err
	}
	return ctx.SignalEvent(domain.NewEvent(s.id, output))
}
