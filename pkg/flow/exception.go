package flow

import (
	"errors"

	"github.com/aretw0/webflow/pkg/domain"
)

// Request scope keys set by TransitionExecutingHandler.
const (
	StateExceptionAttribute     = "stateException"
	RootCauseExceptionAttribute = "rootCauseException"
)

// ExceptionHandler is a recovery strategy for failures raised while processing a request.
type ExceptionHandler interface {
	Handles(err error) bool
	// Handle recovers from err, typically by transitioning to another state.
	Handle(err error, ctx ControlContext) (*domain.ViewSelection, error)
}

// ExceptionHandlerSet is an ordered handler list. The first handler that claims an error handles it.
type ExceptionHandlerSet struct {
	handlers []ExceptionHandler
}

func (s *ExceptionHandlerSet) Add(h ...ExceptionHandler) {
	s.handlers = append(s.handlers, h...)
}

func (s *ExceptionHandlerSet) Len() int { return len(s.handlers) }

func (s *ExceptionHandlerSet) All() []ExceptionHandler {
	out := make([]ExceptionHandler, len(s.handlers))
	copy(out, s.handlers)
	return out
}

// Handle offers err to each handler in order. handled is false when no handler claims it.
func (s *ExceptionHandlerSet) Handle(err error, ctx ControlContext) (sel *domain.ViewSelection, handled bool, herr error) {
	for _, h := range s.handlers {
		if h.Handles(err) {
			sel, herr = h.Handle(err, ctx)
			return sel, true, herr
		}
	}
	return nil, false, nil
}

type errorMapping struct {
	matches func(error) bool
	target  *staticTarget
}

// TransitionExecutingHandler maps error kinds to target states.
// On handling it exposes the error in request scope and transitions to the mapped state.
type TransitionExecutingHandler struct {
	mappings []errorMapping
}

func NewTransitionExecutingHandler() *TransitionExecutingHandler {
	return &TransitionExecutingHandler{}
}

// On maps errors matching target (via errors.Is) to stateID.
func (h *TransitionExecutingHandler) On(target error, stateID string) *TransitionExecutingHandler {
	return h.OnMatch(func(err error) bool { return errors.Is(err, target) }, stateID)
}

// OnMatch maps errors accepted by match to stateID.
func (h *TransitionExecutingHandler) OnMatch(match func(error) bool, stateID string) *TransitionExecutingHandler {
	h.mappings = append(h.mappings, errorMapping{matches: match, target: &staticTarget{id: stateID}})
	return h
}

// OnAny maps every error to stateID.
func (h *TransitionExecutingHandler) OnAny(stateID string) *TransitionExecutingHandler {
	return h.OnMatch(func(error) bool { return true }, stateID)
}

func (h *TransitionExecutingHandler) Handles(err error) bool {
	return h.find(err) != nil
}

func (h *TransitionExecutingHandler) Handle(err error, ctx ControlContext) (*domain.ViewSelection, error) {
	m := h.find(err)
	if m == nil {
		return nil, err
	}
	ctx.RequestScope().Put(StateExceptionAttribute, err)
	ctx.RequestScope().Put(RootCauseExceptionAttribute, rootCause(err))
	t := NewTransition(Wildcard, m.target)
	return t.Execute(ctx.CurrentState(), ctx)
}

// TargetStateIDs lists the mapped target states, in registration order.
func (h *TransitionExecutingHandler) TargetStateIDs() []string {
	out := make([]string, len(h.mappings))
	for i, m := range h.mappings {
		out[i] = m.target.id
	}
	return out
}

func (h *TransitionExecutingHandler) find(err error) *errorMapping {
	for i := range h.mappings {
		if h.mappings[i].matches(err) {
			return &h.mappings[i]
		}
	}
	return nil
}

func (h *TransitionExecutingHandler) bind(f *Flow) error {
	for i := range h.mappings {
		if err := h.mappings[i].target.bind(f); err != nil {
			return err
		}
	}
	return nil
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
