package execution_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/flow"
)

func must[T any](t *testing.T) func(T, error) T {
	return func(v T, err error) T {
		t.Helper()
		require.NoError(t, err)
		return v
	}
}

func on(event, target string, opts ...flow.TransitionOption) *flow.Transition {
	return flow.NewTransition(flow.OnEvent(event), flow.To(target), opts...)
}

func returning(id string) flow.Action {
	return flow.ActionFunc(func(flow.RequestContext) (*domain.Event, error) {
		return flow.Result(id, nil), nil
	})
}

// recording returns an action that appends name to log and yields id.
func recording(log *[]string, name, id string) flow.Action {
	return flow.ActionFunc(func(flow.RequestContext) (*domain.Event, error) {
		*log = append(*log, name)
		return flow.Result(id, nil), nil
	})
}

func view(name string) flow.ViewSelector {
	return flow.ApplicationView{Name: name}
}

// staticLocator resolves a fixed set of flows.
type staticLocator map[string]*flow.Flow

func (l staticLocator) GetFlow(id string) (*flow.Flow, error) {
	if f, ok := l[id]; ok {
		return f, nil
	}
	return nil, domain.ErrNoSuchFlow
}
