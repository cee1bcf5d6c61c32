package execution_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/flow"
)

func TestSignalEvent_SerializedPerExecution(t *testing.T) {
	// The increment is a deliberately racy read-sleep-write; lost updates would show
	// if two requests ever interleaved.
	increment := flow.ActionFunc(func(ctx flow.RequestContext) (*domain.Event, error) {
		n, _ := domain.Lookup[int](ctx.FlowScope(), "count")
		time.Sleep(time.Millisecond)
		ctx.FlowScope().Put("count", n+1)
		return flow.Success(), nil
	})

	f := flow.New("counter")
	must[*flow.ViewState](t)(flow.NewViewState(f, "idle", nil, []*flow.Transition{on("inc", "bump")}))
	must[*flow.ActionState](t)(flow.NewActionState(f, "bump", []flow.Action{increment}, []*flow.Transition{on("success", "idle")}))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	_, err := exec.Start(context.Background(), map[string]any{"count": 0}, nil)
	require.NoError(t, err)

	const callers = 25
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := exec.SignalEvent(context.Background(), domain.NewEvent("inc", nil), nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, callers, exec.ActiveSession().Scope().Get("count"))
	assert.Equal(t, "idle", exec.CurrentState().ID())
}
