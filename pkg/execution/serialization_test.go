package execution_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/flow"
)

func TestSerialization_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		codec  execution.Codec
		inline bool
	}{
		{"gob with inline subflow", execution.GobCodec{}, true},
		{"gob with located subflow", execution.GobCodec{}, false},
		{"json", execution.JSONCodec{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkout, payment := checkoutFlows(t, tt.inline)
			locator := staticLocator{"checkout": checkout}
			if !tt.inline {
				locator["payment"] = payment
			}
			ctx := context.Background()

			exec := execution.New(checkout)
			_, err := exec.Start(ctx, map[string]any{"orderID": 7, "tags": []any{"a", "b"}}, nil)
			require.NoError(t, err)
			_, err = exec.SignalEvent(ctx, domain.NewEvent("checkout", nil), nil)
			require.NoError(t, err)

			data, err := tt.codec.Encode(exec)
			require.NoError(t, err)
			wantState := exec.CurrentState()
			wantFlow := exec.ActiveFlow()

			restored, err := tt.codec.Decode(data)
			require.NoError(t, err)
			assert.False(t, restored.IsHydrated())
			assert.Equal(t, "enterCard", restored.CurrentStateID())

			_, err = restored.SignalEvent(ctx, domain.NewEvent("submit", nil), nil)
			assert.ErrorIs(t, err, domain.ErrNotHydrated)

			require.NoError(t, restored.Rehydrate(locator, nil, nil))
			assert.Same(t, wantState, restored.CurrentState())
			assert.Same(t, wantFlow, restored.ActiveFlow())
			assert.Same(t, checkout, restored.RootFlow())

			sessions := restored.Sessions()
			require.Len(t, sessions, 2)
			assert.Same(t, sessions[0], sessions[1].Parent())
			assert.Equal(t, "pay", sessions[0].State().ID())
			assert.Equal(t, []any{"a", "b"}, sessions[0].Scope().Get("tags"))

			sel, err := restored.SignalEvent(ctx, domain.NewEvent("submit", nil), nil)
			require.NoError(t, err)
			assert.Equal(t, "thanks", sel.ViewName)
		})
	}
}

func TestSerialization_GobPreservesTypes(t *testing.T) {
	f := flow.New("F")
	must[*flow.ViewState](t)(flow.NewViewState(f, "V", nil, nil))
	require.NoError(t, f.ResolveTransitionTargets())

	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	exec := execution.New(f)
	_, err := exec.Start(context.Background(), map[string]any{
		"count": 3,
		"price": 9.5,
		"when":  when,
		"nested": map[string]any{
			"ok": true,
		},
	}, nil)
	require.NoError(t, err)

	data, err := exec.MarshalBinary()
	require.NoError(t, err)
	var restored execution.FlowExecution
	require.NoError(t, restored.UnmarshalBinary(data))
	require.NoError(t, restored.Rehydrate(staticLocator{"F": f}, nil, nil))

	scope := restored.ActiveSession().Scope()
	assert.Equal(t, 3, scope.Get("count"))
	assert.Equal(t, 9.5, scope.Get("price"))
	assert.True(t, when.Equal(scope.Get("when").(time.Time)))
	assert.Equal(t, map[string]any{"ok": true}, scope.Get("nested"))
	assert.Equal(t, exec.Key(), restored.Key())
	assert.True(t, exec.Created().Equal(restored.Created()))
}

func TestRehydrate_Failures(t *testing.T) {
	checkout, _ := checkoutFlows(t, false)
	exec := execution.New(checkout)
	ctx := context.Background()
	_, err := exec.Start(ctx, nil, nil)
	require.NoError(t, err)
	_, err = exec.SignalEvent(ctx, domain.NewEvent("checkout", nil), nil)
	require.NoError(t, err)
	data, err := exec.MarshalBinary()
	require.NoError(t, err)

	t.Run("unknown root flow", func(t *testing.T) {
		restored, err := execution.GobCodec{}.Decode(data)
		require.NoError(t, err)
		assert.ErrorIs(t, restored.Rehydrate(staticLocator{}, nil, nil), domain.ErrNoSuchFlow)
	})

	t.Run("unknown subflow", func(t *testing.T) {
		restored, err := execution.GobCodec{}.Decode(data)
		require.NoError(t, err)
		assert.ErrorIs(t, restored.Rehydrate(staticLocator{"checkout": checkout}, nil, nil), domain.ErrNoSuchFlow)
	})

	t.Run("unknown state", func(t *testing.T) {
		other := flow.New("payment")
		must[*flow.ViewState](t)(flow.NewViewState(other, "somewhereElse", nil, nil))
		restored, err := execution.GobCodec{}.Decode(data)
		require.NoError(t, err)
		err = restored.Rehydrate(staticLocator{"checkout": checkout, "payment": other}, nil, nil)
		var nse *flow.NoSuchStateError
		assert.ErrorAs(t, err, &nse)
	})

	t.Run("corrupt bytes", func(t *testing.T) {
		_, err := execution.GobCodec{}.Decode([]byte("not gob"))
		assert.Error(t, err)
	})
}

func TestRehydrate_ReattachesListeners(t *testing.T) {
	f := flow.New("F")
	must[*flow.ViewState](t)(flow.NewViewState(f, "V", nil, []*flow.Transition{on("next", "W")}))
	must[*flow.ViewState](t)(flow.NewViewState(f, "W", nil, nil))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	_, err := exec.Start(context.Background(), nil, nil)
	require.NoError(t, err)
	data, err := execution.JSONCodec{}.Encode(exec)
	require.NoError(t, err)

	var entered []string
	loader := execution.StaticListenerLoader(&execution.Listener{
		OnStateEntered: func(_ flow.RequestContext, _, current flow.State) {
			entered = append(entered, current.ID())
		},
	})
	restored, err := execution.JSONCodec{}.Decode(data)
	require.NoError(t, err)
	require.NoError(t, restored.Rehydrate(staticLocator{"F": f}, loader, nil))
	require.Len(t, restored.Listeners(), 1)

	_, err = restored.SignalEvent(context.Background(), domain.NewEvent("next", nil), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"W"}, entered)
}

func TestCodecByName(t *testing.T) {
	c, err := execution.CodecByName("json")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	c, err = execution.CodecByName("")
	require.NoError(t, err)
	assert.Equal(t, "gob", c.Name())

	_, err = execution.CodecByName("xml")
	assert.Error(t, err)
}
