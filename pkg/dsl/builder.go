package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/webflow/pkg/flow"
	"github.com/aretw0/webflow/pkg/registry"
)

// Builder manages the construction of one flow.
type Builder struct {
	id       string
	order    []string
	states   map[string]*StateBuilder
	start    string
	startDo  []flow.Action
	endDo    []flow.Action
	handlers []flow.ExceptionHandler
	inline   []*Builder
	actions  *registry.Actions
	errs     []error
}

// New creates a builder for the flow with the given id.
func New(id string) *Builder {
	return &Builder{
		id:     id,
		states: make(map[string]*StateBuilder),
	}
}

// WithActions sets the registry used by StateBuilder.Call.
// Inline builders inherit it unless they set their own.
func (b *Builder) WithActions(actions *registry.Actions) *Builder {
	b.actions = actions
	return b
}

func (b *Builder) add(id string, kind flow.StateKind) *StateBuilder {
	if sb, ok := b.states[id]; ok {
		if sb.kind != kind {
			b.errs = append(b.errs, fmt.Errorf("state '%s' declared as %s and %s", id, sb.kind, kind))
		}
		return sb
	}
	sb := &StateBuilder{id: id, kind: kind, builder: b}
	b.states[id] = sb
	b.order = append(b.order, id)
	return sb
}

// Action declares an action state. Declaring an existing id returns its builder.
func (b *Builder) Action(id string) *StateBuilder { return b.add(id, flow.KindAction) }

// View declares a view state.
func (b *Builder) View(id string) *StateBuilder { return b.add(id, flow.KindView) }

// Decision declares a decision state.
func (b *Builder) Decision(id string) *StateBuilder { return b.add(id, flow.KindDecision) }

// End declares an end state.
func (b *Builder) End(id string) *StateBuilder { return b.add(id, flow.KindEnd) }

// Subflow declares a subflow state spawning the flow built by child.
// The child is registered as an inline flow of this one.
func (b *Builder) Subflow(id string, child *Builder) *StateBuilder {
	sb := b.add(id, flow.KindSubflow)
	sb.child = child
	b.Inline(child)
	return sb
}

// SubflowOf declares a subflow state spawning an already built flow.
func (b *Builder) SubflowOf(id string, child *flow.Flow) *StateBuilder {
	sb := b.add(id, flow.KindSubflow)
	sb.childFlow = child
	return sb
}

// Inline registers child as an inline flow.
func (b *Builder) Inline(child *Builder) *Builder {
	for _, existing := range b.inline {
		if existing == child {
			return b
		}
	}
	b.inline = append(b.inline, child)
	return b
}

// StartAt overrides the start state (by default the first declared state).
func (b *Builder) StartAt(id string) *Builder {
	b.start = id
	return b
}

// OnStart appends flow start actions.
func (b *Builder) OnStart(actions ...flow.Action) *Builder {
	b.startDo = append(b.startDo, actions...)
	return b
}

// OnEnd appends flow end actions.
func (b *Builder) OnEnd(actions ...flow.Action) *Builder {
	b.endDo = append(b.endDo, actions...)
	return b
}

// Catch routes every recoverable failure of the flow to target.
func (b *Builder) Catch(target string) *Builder {
	b.handlers = append(b.handlers, flow.NewTransitionExecutingHandler().OnAny(target))
	return b
}

// CatchError routes failures matching err (errors.Is) to target.
func (b *Builder) CatchError(err error, target string) *Builder {
	b.handlers = append(b.handlers, flow.NewTransitionExecutingHandler().On(err, target))
	return b
}

// Handle appends a custom flow-level exception handler.
func (b *Builder) Handle(h flow.ExceptionHandler) *Builder {
	b.handlers = append(b.handlers, h)
	return b
}

// Build creates the flow, resolves its transitions and freezes it.
func (b *Builder) Build() (*flow.Flow, error) {
	f, err := b.build(b.actions)
	if err != nil {
		return nil, err
	}
	if err := f.ResolveTransitionTargets(); err != nil {
		return nil, err
	}
	return f, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *flow.Flow {
	f, err := b.Build()
	if err != nil {
		panic(err)
	}
	return f
}

func (b *Builder) build(inherited *registry.Actions) (*flow.Flow, error) {
	if b.actions == nil {
		b.actions = inherited
	}
	errs := append([]error(nil), b.errs...)
	f := flow.New(b.id)

	built := make(map[*Builder]*flow.Flow, len(b.inline))
	for _, child := range b.inline {
		cf, err := child.build(b.actions)
		if err != nil {
			errs = append(errs, fmt.Errorf("inline flow %s: %w", child.id, err))
			continue
		}
		if err := f.AddInlineFlow(cf); err != nil {
			errs = append(errs, err)
			continue
		}
		built[child] = cf
	}

	f.StartActions().Add(b.startDo...)
	f.EndActions().Add(b.endDo...)
	f.ExceptionHandlers().Add(b.handlers...)

	for _, id := range b.order {
		if err := b.states[id].create(f, built); err != nil {
			errs = append(errs, err)
		}
	}
	if b.start != "" {
		if err := f.SetStartState(b.start); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("build flow %s: %w", b.id, errors.Join(errs...))
	}
	return f, nil
}
