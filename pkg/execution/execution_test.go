package execution_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/flow"
)

func TestStart_ActionThenView(t *testing.T) {
	f := flow.New("F")
	must[*flow.ActionState](t)(flow.NewActionState(f, "A", []flow.Action{returning("ok")}, []*flow.Transition{on("ok", "V")}))
	must[*flow.ViewState](t)(flow.NewViewState(f, "V", view("v"), nil))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	sel, err := exec.Start(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "v", sel.ViewName)
	assert.Equal(t, "V", exec.CurrentState().ID())
	assert.Same(t, f, exec.ActiveFlow())
	assert.True(t, exec.IsActive())
	assert.Equal(t, domain.StatusPaused, exec.ActiveSession().Status())
}

func TestStart_Twice(t *testing.T) {
	f := flow.New("F")
	must[*flow.ViewState](t)(flow.NewViewState(f, "V", nil, nil))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	sel, err := exec.Start(context.Background(), map[string]any{"seed": 1}, nil)
	require.NoError(t, err)
	assert.True(t, sel.IsNull())
	assert.Equal(t, 1, exec.ActiveSession().Scope().Get("seed"))

	_, err = exec.Start(context.Background(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrExecutionActive)
}

func TestStart_FailureCanBeRetried(t *testing.T) {
	fail := true
	f := flow.New("F")
	f.StartActions().Add(flow.ActionFunc(func(flow.RequestContext) (*domain.Event, error) {
		if fail {
			return nil, assert.AnError
		}
		return flow.Success(), nil
	}))
	must[*flow.ViewState](t)(flow.NewViewState(f, "V", view("v"), []*flow.Transition{on("go", "V")}))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	_, err := exec.Start(context.Background(), nil, nil)
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, exec.IsActive())
	assert.False(t, exec.IsEnded())
	assert.Nil(t, exec.CurrentState())

	_, err = exec.SignalEvent(context.Background(), domain.NewEvent("go", nil), nil)
	assert.ErrorIs(t, err, domain.ErrExecutionNotActive)

	fail = false
	sel, err := exec.Start(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "v", sel.ViewName)
	assert.Equal(t, "V", exec.CurrentState().ID())
	assert.Len(t, exec.Sessions(), 1)
}

func TestSignalEvent_NilEvent(t *testing.T) {
	f := flow.New("F")
	must[*flow.ViewState](t)(flow.NewViewState(f, "V", view("v"), nil))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	_, err := exec.Start(context.Background(), nil, nil)
	require.NoError(t, err)

	_, err = exec.SignalEvent(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "event must not be nil")
	assert.Equal(t, "V", exec.CurrentState().ID())
}

func TestActionState_FirstMatchingResultWins(t *testing.T) {
	var ran []string
	f := flow.New("chain")
	must[*flow.ActionState](t)(flow.NewActionState(f, "A", []flow.Action{
		recording(&ran, "a1", "unmatched"),
		recording(&ran, "a2", "also-unmatched"),
		recording(&ran, "a3", "go"),
		recording(&ran, "a4", "go"),
	}, []*flow.Transition{on("go", "done")}))
	must[*flow.ViewState](t)(flow.NewViewState(f, "done", view("done"), nil))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	_, err := exec.Start(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3"}, ran)
	assert.Equal(t, "done", exec.CurrentState().ID())
}

func TestActionState_NamedActionQualifiesResult(t *testing.T) {
	f := flow.New("named")
	must[*flow.ActionState](t)(flow.NewActionState(f, "A",
		[]flow.Action{flow.Named("check", returning("ok"))},
		[]*flow.Transition{on("ok", "wrong"), on("check.ok", "right")}))
	must[*flow.ViewState](t)(flow.NewViewState(f, "wrong", nil, nil))
	must[*flow.ViewState](t)(flow.NewViewState(f, "right", nil, nil))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	_, err := exec.Start(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "right", exec.CurrentState().ID())
}

func TestActionState_ExhaustedIsConfigurationError(t *testing.T) {
	f := flow.New("exhausted")
	must[*flow.ActionState](t)(flow.NewActionState(f, "A", []flow.Action{returning("x"), returning("y")},
		[]*flow.Transition{on("z", "end")}))
	must[*flow.EndState](t)(flow.NewEndState(f, "end", nil, nil))
	// A catch-all handler must not swallow configuration errors.
	f.ExceptionHandlers().Add(flow.NewTransitionExecutingHandler().OnAny("end"))
	require.NoError(t, f.ResolveTransitionTargets())

	_, err := execution.New(f).Start(context.Background(), nil, nil)

	var nm *flow.NoMatchingActionResultError
	require.ErrorAs(t, err, &nm)
	assert.Equal(t, []string{"x", "y"}, nm.EventIDs)
	assert.ErrorIs(t, err, flow.ErrConfiguration)
}

func TestSignalEvent_NoMatchingTransition(t *testing.T) {
	f := flow.New("F")
	must[*flow.ViewState](t)(flow.NewViewState(f, "V", view("v"), []*flow.Transition{on("next", "V2")}))
	must[*flow.ViewState](t)(flow.NewViewState(f, "V2", view("v2"), nil))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	_, err := exec.Start(context.Background(), nil, nil)
	require.NoError(t, err)

	_, err = exec.SignalEvent(context.Background(), domain.NewEvent("bogus", nil), nil)

	var nt *flow.NoMatchingTransitionError
	require.ErrorAs(t, err, &nt)
	assert.Equal(t, "bogus", nt.EventID)
	assert.Equal(t, []string{"next"}, nt.Criteria)
	// Left in the last good position and still resumable.
	assert.Equal(t, "V", exec.CurrentState().ID())
	assert.Equal(t, domain.StatusPaused, exec.ActiveSession().Status())

	sel, err := exec.SignalEvent(context.Background(), domain.NewEvent("next", nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", sel.ViewName)
	assert.Equal(t, "next", exec.LastEventID())
}

func TestTransition_ExecutionCriteriaRollback(t *testing.T) {
	var entries []string
	f := flow.New("F")
	must[*flow.ViewState](t)(flow.NewViewState(f, "form", view("form"),
		[]*flow.Transition{on("submit", "confirm", flow.WithExecutionCriteria(flow.MustCriteria("params.valid == true")))},
		flow.WithEntryActions(recording(&entries, "form", "entered"))))
	must[*flow.ViewState](t)(flow.NewViewState(f, "confirm", view("confirm"), nil,
		flow.WithEntryActions(recording(&entries, "confirm", "entered"))))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	_, err := exec.Start(context.Background(), nil, nil)
	require.NoError(t, err)

	sel, err := exec.SignalEvent(context.Background(), domain.NewEvent("submit", map[string]any{"valid": false}), nil)
	require.NoError(t, err)
	assert.Equal(t, "form", sel.ViewName)
	assert.Equal(t, "form", exec.CurrentState().ID())
	assert.Equal(t, []string{"form", "form"}, entries)

	_, err = exec.SignalEvent(context.Background(), domain.NewEvent("submit", map[string]any{"valid": true}), nil)
	require.NoError(t, err)
	assert.Equal(t, "confirm", exec.CurrentState().ID())
	assert.Equal(t, []string{"form", "form", "confirm"}, entries)
}

func TestTransition_ExitActionsRunBeforeTarget(t *testing.T) {
	var log []string
	f := flow.New("F")
	v := must[*flow.ViewState](t)(flow.NewViewState(f, "a", nil, []*flow.Transition{on("next", "b")}))
	v.ExitActions().Add(recording(&log, "exit-a", "x"))
	must[*flow.ViewState](t)(flow.NewViewState(f, "b", nil, nil, flow.WithEntryActions(recording(&log, "enter-b", "x"))))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	_, err := exec.Start(context.Background(), nil, nil)
	require.NoError(t, err)
	_, err = exec.SignalEvent(context.Background(), domain.NewEvent("next", nil), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"exit-a", "enter-b"}, log)
}

func TestDecisionState(t *testing.T) {
	build := func(t *testing.T) *flow.Flow {
		f := flow.New("decide")
		must[*flow.DecisionState](t)(flow.NewDecisionState(f, "route", []*flow.Transition{
			flow.NewTransition(flow.MustCriteria("flowScope.amount > 100"), flow.To("review")),
			flow.NewTransition(flow.MustCriteria("flowScope.amount > 0"), flow.To("approve")),
		}))
		must[*flow.ViewState](t)(flow.NewViewState(f, "review", view("review"), nil))
		must[*flow.ViewState](t)(flow.NewViewState(f, "approve", view("approve"), nil))
		require.NoError(t, f.ResolveTransitionTargets())
		return f
	}

	tests := []struct {
		amount int
		want   string
	}{
		{500, "review"},
		{50, "approve"},
	}
	for _, tt := range tests {
		exec := execution.New(build(t))
		sel, err := exec.Start(context.Background(), map[string]any{"amount": tt.amount}, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, sel.ViewName)
	}

	_, err := execution.New(build(t)).Start(context.Background(), map[string]any{"amount": -1}, nil)
	var nt *flow.NoMatchingTransitionError
	assert.ErrorAs(t, err, &nt)
}

func TestDynamicTarget(t *testing.T) {
	f := flow.New("dyn")
	target, err := flow.ToExpression(`params.next`)
	require.NoError(t, err)
	must[*flow.ViewState](t)(flow.NewViewState(f, "start", nil, []*flow.Transition{flow.NewTransition(flow.OnEvent("go"), target)}))
	must[*flow.ViewState](t)(flow.NewViewState(f, "left", view("left"), nil))
	must[*flow.ViewState](t)(flow.NewViewState(f, "right", view("right"), nil))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	_, err = exec.Start(context.Background(), nil, nil)
	require.NoError(t, err)
	sel, err := exec.SignalEvent(context.Background(), domain.NewEvent("go", map[string]any{"next": "right"}), nil)
	require.NoError(t, err)
	assert.Equal(t, "right", sel.ViewName)
}

func TestExceptionHandling(t *testing.T) {
	errDeclined := errors.New("card declined")
	failing := flow.ActionFunc(func(flow.RequestContext) (*domain.Event, error) { return nil, errDeclined })

	t.Run("state level handler first", func(t *testing.T) {
		f := flow.New("pay")
		must[*flow.ActionState](t)(flow.NewActionState(f, "charge", []flow.Action{failing}, nil,
			flow.WithStateExceptionHandlers(flow.NewTransitionExecutingHandler().On(errDeclined, "declined"))))
		must[*flow.ViewState](t)(flow.NewViewState(f, "declined", view("declined"), nil))
		must[*flow.ViewState](t)(flow.NewViewState(f, "oops", view("oops"), nil))
		f.ExceptionHandlers().Add(flow.NewTransitionExecutingHandler().OnAny("oops"))
		require.NoError(t, f.ResolveTransitionTargets())

		var seen any
		exec := execution.New(f, execution.WithListeners(&execution.Listener{
			OnPaused: func(ctx flow.RequestContext, _ *domain.ViewSelection) {
				seen = ctx.RequestScope().Get(flow.RootCauseExceptionAttribute)
			},
		}))
		sel, err := exec.Start(context.Background(), nil, nil)

		require.NoError(t, err)
		assert.Equal(t, "declined", sel.ViewName)
		assert.Equal(t, errDeclined, seen)
		assert.Contains(t, sel.Model, flow.StateExceptionAttribute)
	})

	t.Run("flow level fallback", func(t *testing.T) {
		f := flow.New("pay")
		must[*flow.ActionState](t)(flow.NewActionState(f, "charge", []flow.Action{failing}, nil))
		must[*flow.ViewState](t)(flow.NewViewState(f, "oops", view("oops"), nil))
		f.ExceptionHandlers().Add(flow.NewTransitionExecutingHandler().OnAny("oops"))
		require.NoError(t, f.ResolveTransitionTargets())

		sel, err := execution.New(f).Start(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "oops", sel.ViewName)
	})

	t.Run("unhandled is returned", func(t *testing.T) {
		f := flow.New("pay")
		must[*flow.ActionState](t)(flow.NewActionState(f, "charge", []flow.Action{failing}, nil))
		require.NoError(t, f.ResolveTransitionTargets())

		_, err := execution.New(f).Start(context.Background(), nil, nil)
		var ae *flow.ActionExecutionError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "charge", ae.StateID)
		assert.ErrorIs(t, err, errDeclined)
	})
}

func TestEndState_RootEndsExecution(t *testing.T) {
	f := flow.New("F")
	must[*flow.ViewState](t)(flow.NewViewState(f, "V", nil, []*flow.Transition{on("finish", "end")}))
	must[*flow.EndState](t)(flow.NewEndState(f, "end", view("bye"), nil))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	_, err := exec.Start(context.Background(), nil, nil)
	require.NoError(t, err)

	sel, err := exec.SignalEvent(context.Background(), domain.NewEvent("finish", nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "bye", sel.ViewName)
	assert.False(t, exec.IsActive())
	assert.True(t, exec.IsEnded())
	assert.Nil(t, exec.ActiveSession())

	_, err = exec.SignalEvent(context.Background(), domain.NewEvent("finish", nil), nil)
	assert.ErrorIs(t, err, domain.ErrExecutionEnded)
	_, err = exec.Start(context.Background(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrExecutionEnded)
}

func TestFlowStartAndEndActions(t *testing.T) {
	var log []string
	f := flow.New("F")
	f.StartActions().Add(recording(&log, "start", "x"))
	f.EndActions().Add(recording(&log, "end", "x"))
	must[*flow.EndState](t)(flow.NewEndState(f, "end", nil, nil, flow.WithEntryActions(recording(&log, "enter-end", "x"))))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	sel, err := exec.Start(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.True(t, sel.IsNull())
	assert.True(t, exec.IsEnded())
	assert.Equal(t, []string{"start", "enter-end", "end"}, log)
}

func TestRefresh(t *testing.T) {
	renders := 0
	f := flow.New("F")
	v := must[*flow.ViewState](t)(flow.NewViewState(f, "V", flow.ApplicationView{Name: "v", Redirect: true}, nil))
	v.RenderActions().Add(flow.ActionFunc(func(ctx flow.RequestContext) (*domain.Event, error) {
		renders++
		ctx.RequestScope().Put("renders", renders)
		return nil, nil
	}))
	require.NoError(t, f.ResolveTransitionTargets())

	exec := execution.New(f)
	sel, err := exec.Start(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, sel.Redirect)

	sel, err = exec.Refresh(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, sel.Redirect)
	assert.Equal(t, 2, sel.Model["renders"])
	assert.Equal(t, "V", exec.CurrentState().ID())
}

func TestTransactionSynchronizerMissing(t *testing.T) {
	f := flow.New("F")
	must[*flow.ActionState](t)(flow.NewActionState(f, "A", []flow.Action{flow.ActionFunc(func(ctx flow.RequestContext) (*domain.Event, error) {
		if err := ctx.BeginTransaction(); err != nil {
			return nil, err
		}
		return flow.Success(), nil
	})}, []*flow.Transition{on("success", "V")}))
	must[*flow.ViewState](t)(flow.NewViewState(f, "V", nil, nil))
	require.NoError(t, f.ResolveTransitionTargets())

	_, err := execution.New(f).Start(context.Background(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrNoTransactionSynchronizer)
}
