package webflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/pkg/adapters/memory"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/flow"
	"github.com/aretw0/webflow/pkg/ports"
	"github.com/aretw0/webflow/pkg/repository"
)

func newEngine(t *testing.T, opts ...webflow.Option) *webflow.Engine {
	t.Helper()
	engine, err := webflow.New(shopFlows(t), opts...)
	require.NoError(t, err)
	return engine
}

func resume(t *testing.T, e *webflow.Engine, id, event string, params map[string]any) *ports.Response {
	t.Helper()
	resp, err := e.Resume(context.Background(), ports.ResumeRequest{ExecutionID: id, EventID: event, Params: params}, nil)
	require.NoError(t, err)
	return resp
}

func TestEngine_RequiresLocator(t *testing.T) {
	_, err := webflow.New(nil)
	assert.Error(t, err)
}

func TestEngine_FullConversation(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	resp, err := engine.Launch(ctx, "shop", nil, nil)
	require.NoError(t, err)
	require.True(t, resp.Active)
	require.NotEmpty(t, resp.ExecutionID)
	assert.Equal(t, "cart", resp.View.ViewName)
	assert.Equal(t, "shop", resp.FlowID)
	assert.Equal(t, "cart", resp.StateID)
	id := resp.ExecutionID

	resp = resume(t, engine, id, "add", nil)
	resp = resume(t, engine, id, "add", nil)
	assert.Equal(t, id, resp.ExecutionID, "the id is stable across requests")
	assert.Equal(t, 2, resp.View.Model["items"])

	resp = resume(t, engine, id, "checkout", nil)
	assert.Equal(t, "address", resp.FlowID)
	assert.Equal(t, "street", resp.StateID)
	assert.Equal(t, "streetForm", resp.View.ViewName)

	resp = resume(t, engine, id, "next", map[string]any{"city": "Lisbon"})
	assert.Equal(t, "shop", resp.FlowID)
	assert.Equal(t, "confirm", resp.StateID)
	assert.Equal(t, "Lisbon", resp.View.Model["city"])

	resp = resume(t, engine, id, "pay", nil)
	assert.False(t, resp.Active)
	assert.Empty(t, resp.ExecutionID)
	assert.Equal(t, "receipt", resp.View.ViewName)

	ids, err := engine.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "ended executions are removed")

	_, err = engine.Resume(ctx, ports.ResumeRequest{ExecutionID: id, EventID: "pay"}, nil)
	assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
}

func TestEngine_SubflowCancelReturnsToCart(t *testing.T) {
	engine := newEngine(t)
	resp, err := engine.Launch(context.Background(), "shop", nil, nil)
	require.NoError(t, err)

	resume(t, engine, resp.ExecutionID, "checkout", nil)
	back := resume(t, engine, resp.ExecutionID, "cancel", nil)
	assert.Equal(t, "cart", back.StateID)
	assert.True(t, back.Active)
}

func TestEngine_LaunchUnknownFlow(t *testing.T) {
	_, err := newEngine(t).Launch(context.Background(), "nope", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNoSuchFlow)
}

func TestEngine_ResumeValidation(t *testing.T) {
	engine := newEngine(t)
	_, err := engine.Resume(context.Background(), ports.ResumeRequest{ExecutionID: "x"}, nil)
	assert.ErrorIs(t, err, webflow.ErrInvalidRequest)

	_, err = engine.Resume(context.Background(), ports.ResumeRequest{EventID: "add"}, nil)
	assert.ErrorIs(t, err, webflow.ErrInvalidRequest)

	_, err = engine.Resume(context.Background(), ports.ResumeRequest{ExecutionID: "x", EventID: "city=Porto"}, nil)
	assert.ErrorIs(t, err, webflow.ErrInvalidRequest)
	assert.ErrorIs(t, err, webflow.ErrInvalidEventID)
}

func TestEngine_FailedRequestKeepsStoredState(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()
	resp, err := engine.Launch(ctx, "shop", nil, nil)
	require.NoError(t, err)

	_, err = engine.Resume(ctx, ports.ResumeRequest{ExecutionID: resp.ExecutionID, EventID: "bogus"}, nil)
	var noMatch *flow.NoMatchingTransitionError
	require.True(t, errors.As(err, &noMatch), "got %v", err)
	assert.Equal(t, "bogus", noMatch.EventID)

	snap, err := engine.Inspect(ctx, resp.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, "cart", snap.Sessions[0].StateID)
	assert.Empty(t, snap.LastEventID)
}

func TestEngine_StateCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("lenient", func(t *testing.T) {
		engine := newEngine(t)
		resp, err := engine.Launch(ctx, "shop", nil, nil)
		require.NoError(t, err)

		next, err := engine.Resume(ctx, ports.ResumeRequest{
			ExecutionID: resp.ExecutionID, EventID: "add", StateID: "confirm",
		}, nil)
		require.NoError(t, err, "the stored position wins")
		assert.Equal(t, "cart", next.StateID)
	})

	t.Run("strict", func(t *testing.T) {
		engine := newEngine(t, webflow.WithStrictStateCheck(true))
		resp, err := engine.Launch(ctx, "shop", nil, nil)
		require.NoError(t, err)

		_, err = engine.Resume(ctx, ports.ResumeRequest{
			ExecutionID: resp.ExecutionID, EventID: "add", StateID: "confirm",
		}, nil)
		assert.ErrorIs(t, err, domain.ErrStateMismatch)

		ok, err := engine.Resume(ctx, ports.ResumeRequest{
			ExecutionID: resp.ExecutionID, EventID: "add", StateID: "cart",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, ok.View.Model["items"], "the rejected request changed nothing")
	})
}

func TestEngine_RefreshRemoveInspect(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()
	resp, err := engine.Launch(ctx, "shop", map[string]any{"customer": "ada"}, nil)
	require.NoError(t, err)
	id := resp.ExecutionID

	refreshed, err := engine.Refresh(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, "cart", refreshed.View.ViewName)
	assert.Equal(t, "ada", refreshed.View.Model["customer"])
	assert.Equal(t, id, refreshed.ExecutionID)

	snap, err := engine.Inspect(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "shop", snap.RootFlowID)
	require.Len(t, snap.Sessions, 1)
	assert.Equal(t, "ada", snap.Sessions[0].Scope["customer"])

	ids, err := engine.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)

	require.NoError(t, engine.Remove(ctx, id))
	_, err = engine.Inspect(ctx, id)
	assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
	assert.ErrorIs(t, engine.Remove(ctx, id), domain.ErrExecutionNotFound)
}

func TestEngine_StorageListeners(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	record := func(name string) func(context.Context, *execution.FlowExecution, string) {
		return func(_ context.Context, _ *execution.FlowExecution, _ string) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, name)
		}
	}
	l := &execution.Listener{
		OnLoaded:  record("loaded"),
		OnSaved:   record("saved"),
		OnRemoved: record("removed"),
	}

	engine := newEngine(t, webflow.WithListeners(l))
	ctx := context.Background()
	resp, err := engine.Launch(ctx, "shop", nil, nil)
	require.NoError(t, err)
	resume(t, engine, resp.ExecutionID, "add", nil)
	require.NoError(t, engine.Remove(ctx, resp.ExecutionID))

	assert.Equal(t, []string{"saved", "loaded", "saved", "loaded", "removed"}, calls)
}

func TestEngine_ConcurrentResume(t *testing.T) {
	engine := newEngine(t, webflow.WithRepository(repository.New(memory.NewStore())), webflow.WithLocker(memory.NewLocker()))
	ctx := context.Background()
	resp, err := engine.Launch(ctx, "shop", nil, nil)
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Resume(ctx, ports.ResumeRequest{ExecutionID: resp.ExecutionID, EventID: "add"}, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := engine.Inspect(ctx, resp.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, workers, snap.Sessions[0].Scope["items"], "no update may be lost")
}

func TestEngine_JSONCodecAcrossRequests(t *testing.T) {
	repo := repository.New(memory.NewStore(), repository.WithCodec(execution.JSONCodec{}))
	engine := newEngine(t, webflow.WithRepository(repo))
	ctx := context.Background()

	resp, err := engine.Launch(ctx, "shop", nil, nil)
	require.NoError(t, err)
	resp = resume(t, engine, resp.ExecutionID, "checkout", nil)
	assert.Equal(t, "address", resp.FlowID, "inline flows survive a JSON round trip")
}
