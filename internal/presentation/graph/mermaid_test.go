package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/webflow/internal/presentation/graph"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/flow"
)

func buildFlow(t *testing.T) *flow.Flow {
	t.Helper()
	address := dsl.New("address")
	address.View("street").On("next", "saved")
	address.End("saved")

	b := dsl.New("order")
	b.Action("load-cart").Evaluate("true").On("success", "cart")
	b.View("cart").
		On("checkout", "address").
		OnTo("jump", "'cart'")
	b.Subflow("address", address).On("saved", "check")
	b.Decision("check").
		Branch(`flowScope.city == "Paris"`, "done").
		Otherwise("cart")
	b.End("done")

	f, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return f
}

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(buildFlow(t), nil)

	tests := []struct {
		name     string
		contains []string
	}{
		{
			name:     "Start Marker",
			contains: []string{`_start((" ")) --> load_cart`},
		},
		{
			name: "State Shapes",
			contains: []string{
				`load_cart["load-cart"]`,
				`cart[/"cart"/]`,
				`address[["address"]]`,
				`check{"check"}`,
				`done(("done"))`,
			},
		},
		{
			name: "Transitions",
			contains: []string{
				`load_cart -- "success" --> cart`,
				`cart -- "checkout" --> address`,
				`check --> cart`,
			},
		},
		{
			name:     "Expression Escaping",
			contains: []string{`check -- "${flowScope.city == 'Paris'}" --> done`},
		},
		{
			name:     "Dynamic Target",
			contains: []string{`%% cart: dynamic target ${'cart'}`},
		},
		{
			name: "Inline Subgraph",
			contains: []string{
				`subgraph flow_address ["address"]`,
				`address__street[/"street"/]`,
				`address__street -- "next" --> address__saved`,
				`address -.-> address__street`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
		})
	}

	if strings.Contains(got, "classDef") {
		t.Errorf("overlay styles written without an overlay:\n%s", got)
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	snap := &execution.Snapshot{
		RootFlowID: "order",
		Sessions: []execution.SessionSnapshot{
			{FlowID: "order", StateID: "address"},
			{FlowID: "address", StateID: "street"},
		},
	}

	got := graph.GenerateMermaid(buildFlow(t), graph.OverlayFromSnapshot(snap))

	for _, want := range []string{
		"classDef current",
		"class address suspended;",
		"class address__street current;",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
		}
	}
}

func TestOverlayFromSnapshot_Empty(t *testing.T) {
	if o := graph.OverlayFromSnapshot(nil); o != nil {
		t.Errorf("expected nil overlay, got %+v", o)
	}
	if o := graph.OverlayFromSnapshot(&execution.Snapshot{}); o != nil {
		t.Errorf("expected nil overlay, got %+v", o)
	}
}
