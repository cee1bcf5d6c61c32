package dsl_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/flow"
	"github.com/aretw0/webflow/pkg/registry"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	actions := registry.NewActions()
	actions.Register("createAccount", func(_ context.Context, args map[string]any) (any, error) {
		if args["email"] == "" {
			return "error", nil
		}
		return nil, nil
	})

	b := dsl.New("signup")
	b.View("form").
		Render("signupForm").
		On("submit", "save")
	b.Action("save").
		Call("createAccount", flow.Mapping{Source: "params.email", Target: "email"}).
		On("success", "welcome").
		On("error", "form")
	b.End("welcome").
		Render("welcome")

	f, err := b.WithActions(actions).Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if !f.IsResolved() {
		t.Fatal("expected a resolved flow")
	}
	if got := f.StartState().ID(); got != "form" {
		t.Errorf("Expected start state 'form', got '%s'", got)
	}

	exec := execution.New(f)
	ctx := context.Background()
	sel, err := exec.Start(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if sel.ViewName != "signupForm" {
		t.Errorf("Expected view 'signupForm', got '%s'", sel.ViewName)
	}

	sel, err = exec.SignalEvent(ctx, domain.NewEvent("submit", map[string]any{"email": ""}), nil)
	if err != nil {
		t.Fatalf("SignalEvent failed: %v", err)
	}
	if sel.ViewName != "signupForm" {
		t.Errorf("Expected to return to the form, got '%s'", sel.ViewName)
	}

	sel, err = exec.SignalEvent(ctx, domain.NewEvent("submit", map[string]any{"email": "ada@example.com"}), nil)
	if err != nil {
		t.Fatalf("SignalEvent failed: %v", err)
	}
	if sel.ViewName != "welcome" || !exec.IsEnded() {
		t.Errorf("Expected ended execution on 'welcome', got '%s' (ended=%v)", sel.ViewName, exec.IsEnded())
	}
}

func TestBuilder_Subflow(t *testing.T) {
	child := dsl.New("address")
	child.View("ask").Render("address").On("save", "done")
	child.End("done").Output(flow.Mapping{Source: "params.city", Target: "city"})

	b := dsl.New("profile")
	b.Subflow("collect", child).
		Input(flow.Mapping{Source: "flowScope.user", Target: "user"}).
		Output(flow.Mapping{Source: "output.city", Target: "city"}).
		On("done", "review")
	b.View("review").Render("review")

	f, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if f.InlineFlow("address") == nil {
		t.Fatal("expected 'address' to be an inline flow")
	}

	exec := execution.New(f)
	ctx := context.Background()
	if _, err := exec.Start(ctx, map[string]any{"user": "ada"}, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := exec.ActiveSession().Scope().Get("user"); got != "ada" {
		t.Errorf("Expected subflow input 'ada', got %v", got)
	}

	sel, err := exec.SignalEvent(ctx, domain.NewEvent("save", map[string]any{"city": "Lisbon"}), nil)
	if err != nil {
		t.Fatalf("SignalEvent failed: %v", err)
	}
	if sel.ViewName != "review" {
		t.Errorf("Expected 'review', got '%s'", sel.ViewName)
	}
	if got := exec.ActiveSession().Scope().Get("city"); got != "Lisbon" {
		t.Errorf("Expected mapped output 'Lisbon', got %v", got)
	}
}

func TestBuilder_DecisionAndGuards(t *testing.T) {
	b := dsl.New("quiz")
	b.View("ask").Render("ask").
		OnWhen("answer", "grade", "params.value != nil")
	b.Decision("grade").
		Branch("params.value == 42", "right").
		Otherwise("wrong")
	b.End("right").Render("right")
	b.End("wrong").Render("wrong")

	f := b.MustBuild()
	exec := execution.New(f)
	ctx := context.Background()
	if _, err := exec.Start(ctx, nil, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	sel, err := exec.SignalEvent(ctx, domain.NewEvent("answer", nil), nil)
	if err != nil {
		t.Fatalf("SignalEvent failed: %v", err)
	}
	if sel.ViewName != "ask" {
		t.Errorf("Expected guard to keep 'ask', got '%s'", sel.ViewName)
	}

	sel, err = exec.SignalEvent(ctx, domain.NewEvent("answer", map[string]any{"value": 42}), nil)
	if err != nil {
		t.Fatalf("SignalEvent failed: %v", err)
	}
	if sel.ViewName != "right" {
		t.Errorf("Expected 'right', got '%s'", sel.ViewName)
	}
}

func TestBuilder_Catch(t *testing.T) {
	errTimeout := errors.New("timeout")
	b := dsl.New("retry")
	b.Action("call").
		Do(flow.ActionFunc(func(flow.RequestContext) (*domain.Event, error) { return nil, errTimeout })).
		On("success", "done").
		CatchError(errTimeout, "retryLater")
	b.View("retryLater").Render("retry")
	b.End("done")

	sel, err := execution.New(b.MustBuild()).Start(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if sel.ViewName != "retry" {
		t.Errorf("Expected 'retry', got '%s'", sel.ViewName)
	}
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *dsl.Builder
		want  string
	}{
		{
			name: "unknown target",
			build: func() *dsl.Builder {
				b := dsl.New("f")
				b.View("a").On("next", "ghost")
				return b
			},
			want: "ghost",
		},
		{
			name: "kind conflict",
			build: func() *dsl.Builder {
				b := dsl.New("f")
				b.View("a")
				b.End("a")
				return b
			},
			want: "declared as view and end",
		},
		{
			name: "transition on end state",
			build: func() *dsl.Builder {
				b := dsl.New("f")
				b.End("a").On("x", "a")
				return b
			},
			want: "no transitions",
		},
		{
			name: "call without registry",
			build: func() *dsl.Builder {
				b := dsl.New("f")
				b.Action("a").Call("missing").On("success", "a")
				return b
			},
			want: "requires an action registry",
		},
		{
			name: "bad expression",
			build: func() *dsl.Builder {
				b := dsl.New("f")
				b.Decision("a").Branch("(((", "a")
				return b
			},
			want: "compile expression",
		},
		{
			name: "unknown start",
			build: func() *dsl.Builder {
				b := dsl.New("f")
				b.End("a")
				return b.StartAt("zzz")
			},
			want: "zzz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
