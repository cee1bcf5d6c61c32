package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/flow"
)

// ResultAttribute is the request scope key holding the raw result of the last invoked action function.
const ResultAttribute = "result"

// ActionFunction is a named piece of business logic.
// It receives the request's context and its arguments, and returns a result or error.
type ActionFunction func(ctx context.Context, args map[string]any) (any, error)

// Actions manages the available action functions.
type Actions struct {
	mu  sync.RWMutex
	fns map[string]ActionFunction
}

// NewActions creates a new empty action registry.
func NewActions() *Actions {
	return &Actions{
		fns: make(map[string]ActionFunction),
	}
}

// Register adds a function to the registry.
// If a function with the same name exists, it is overwritten.
func (r *Actions) Register(name string, fn ActionFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns[name] = fn
}

// Execute looks up a function by name and executes it.
func (r *Actions) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	fn, ok := r.fns[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("action not found: %s", name)
	}

	return fn(ctx, args)
}

// Names returns the registered names, sorted.
func (r *Actions) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Action returns a flow.Action invoking the named function. The function is looked up on
// every execution, so it may be registered after the flow is built.
// args is evaluated against the request environment; nil passes no arguments.
func (r *Actions) Action(name string, args *flow.Mapper) flow.Action {
	return &invocation{registry: r, name: name, args: args}
}

type invocation struct {
	registry *Actions
	name     string
	args     *flow.Mapper
}

func (a *invocation) Execute(ctx flow.RequestContext) (*domain.Event, error) {
	args, err := a.args.Map(flow.Env(ctx))
	if err != nil {
		return nil, err
	}
	result, err := a.registry.Execute(ctx.Context(), a.name, args)
	if err != nil {
		return nil, err
	}
	ctx.RequestScope().Put(ResultAttribute, result)
	return toEvent(result), nil
}

func (a *invocation) String() string { return a.name }

// toEvent converts a function result into an outcome:
// events pass through, strings name the event, booleans become yes/no, maps become
// success params and anything else is a success carrying the value under "result".
func toEvent(result any) *domain.Event {
	switch r := result.(type) {
	case nil:
		return flow.Success()
	case *domain.Event:
		return r
	case string:
		return domain.NewEvent(r, nil)
	case bool:
		if r {
			return flow.Yes()
		}
		return flow.No()
	case map[string]any:
		return domain.NewEvent(flow.EventSuccess, r)
	default:
		return domain.NewEvent(flow.EventSuccess, map[string]any{ResultAttribute: r})
	}
}
