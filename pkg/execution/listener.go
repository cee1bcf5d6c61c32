package execution

import (
	"context"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/flow"
)

// Listener observes the lifecycle of flow executions.
// Every hook is optional. Only SessionStarting and StateEntering may influence control flow:
// returning an error vetoes the operation.
type Listener struct {
	OnCreated          func(exec *FlowExecution)
	OnRequestSubmitted func(ctx flow.RequestContext)
	OnRequestProcessed func(ctx flow.RequestContext)
	OnSessionStarting  func(ctx flow.RequestContext, f *flow.Flow, input map[string]any) error
	OnSessionStarted   func(ctx flow.RequestContext, session flow.Session)
	OnEventSignaled    func(ctx flow.RequestContext, ev *domain.Event)
	OnStateEntering    func(ctx flow.RequestContext, next flow.State) error
	OnStateEntered     func(ctx flow.RequestContext, previous, current flow.State)
	OnResumed          func(ctx flow.RequestContext)
	OnPaused           func(ctx flow.RequestContext, sel *domain.ViewSelection)
	OnSessionEnding    func(ctx flow.RequestContext, session flow.Session, output map[string]any)
	OnSessionEnded     func(ctx flow.RequestContext, session flow.Session, output map[string]any)

	// Storage notifications, fired by the code that owns the repository.
	OnLoaded  func(ctx context.Context, exec *FlowExecution, id string)
	OnSaved   func(ctx context.Context, exec *FlowExecution, id string)
	OnRemoved func(ctx context.Context, exec *FlowExecution, id string)
}

// ListenerList fans notifications out to every listener in order.
type ListenerList []*Listener

func (l ListenerList) fireCreated(exec *FlowExecution) {
	for _, each := range l {
		if each.OnCreated != nil {
			each.OnCreated(exec)
		}
	}
}

func (l ListenerList) fireRequestSubmitted(ctx flow.RequestContext) {
	for _, each := range l {
		if each.OnRequestSubmitted != nil {
			each.OnRequestSubmitted(ctx)
		}
	}
}

func (l ListenerList) fireRequestProcessed(ctx flow.RequestContext) {
	for _, each := range l {
		if each.OnRequestProcessed != nil {
			each.OnRequestProcessed(ctx)
		}
	}
}

func (l ListenerList) fireSessionStarting(ctx flow.RequestContext, f *flow.Flow, input map[string]any) error {
	for _, each := range l {
		if each.OnSessionStarting != nil {
			if err := each.OnSessionStarting(ctx, f, input); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l ListenerList) fireSessionStarted(ctx flow.RequestContext, s flow.Session) {
	for _, each := range l {
		if each.OnSessionStarted != nil {
			each.OnSessionStarted(ctx, s)
		}
	}
}

func (l ListenerList) fireEventSignaled(ctx flow.RequestContext, ev *domain.Event) {
	for _, each := range l {
		if each.OnEventSignaled != nil {
			each.OnEventSignaled(ctx, ev)
		}
	}
}

func (l ListenerList) fireStateEntering(ctx flow.RequestContext, next flow.State) error {
	for _, each := range l {
		if each.OnStateEntering != nil {
			if err := each.OnStateEntering(ctx, next); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l ListenerList) fireStateEntered(ctx flow.RequestContext, previous, current flow.State) {
	for _, each := range l {
		if each.OnStateEntered != nil {
			each.OnStateEntered(ctx, previous, current)
		}
	}
}

func (l ListenerList) fireResumed(ctx flow.RequestContext) {
	for _, each := range l {
		if each.OnResumed != nil {
			each.OnResumed(ctx)
		}
	}
}

func (l ListenerList) firePaused(ctx flow.RequestContext, sel *domain.ViewSelection) {
	for _, each := range l {
		if each.OnPaused != nil {
			each.OnPaused(ctx, sel)
		}
	}
}

func (l ListenerList) fireSessionEnding(ctx flow.RequestContext, s flow.Session, output map[string]any) {
	for _, each := range l {
		if each.OnSessionEnding != nil {
			each.OnSessionEnding(ctx, s, output)
		}
	}
}

func (l ListenerList) fireSessionEnded(ctx flow.RequestContext, s flow.Session, output map[string]any) {
	for _, each := range l {
		if each.OnSessionEnded != nil {
			each.OnSessionEnded(ctx, s, output)
		}
	}
}

// FireLoaded notifies listeners that exec was loaded from storage under id.
func (l ListenerList) FireLoaded(ctx context.Context, exec *FlowExecution, id string) {
	for _, each := range l {
		if each.OnLoaded != nil {
			each.OnLoaded(ctx, exec, id)
		}
	}
}

// FireSaved notifies listeners that exec was saved under id.
func (l ListenerList) FireSaved(ctx context.Context, exec *FlowExecution, id string) {
	for _, each := range l {
		if each.OnSaved != nil {
			each.OnSaved(ctx, exec, id)
		}
	}
}

// FireRemoved notifies listeners that exec was removed from storage.
func (l ListenerList) FireRemoved(ctx context.Context, exec *FlowExecution, id string) {
	for _, each := range l {
		if each.OnRemoved != nil {
			each.OnRemoved(ctx, exec, id)
		}
	}
}

// ListenerLoader supplies the listeners to attach to executions of a root flow.
type ListenerLoader interface {
	Listeners(root *flow.Flow) ListenerList
}

// ListenerLoaderFunc adapts a function to ListenerLoader.
type ListenerLoaderFunc func(root *flow.Flow) ListenerList

func (f ListenerLoaderFunc) Listeners(root *flow.Flow) ListenerList { return f(root) }

// StaticListenerLoader attaches the same listeners to every execution.
func StaticListenerLoader(listeners ...*Listener) ListenerLoader {
	return ListenerLoaderFunc(func(*flow.Flow) ListenerList { return listeners })
}
