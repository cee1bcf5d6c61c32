// Package demo holds the sample flows served by the webflow command.
package demo

import (
	"context"
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/flow"
	"github.com/aretw0/webflow/pkg/registry"
	"github.com/aretw0/webflow/pkg/txsync"
)

// Price of one cart item, in cents.
const Price = 1250

// addItem increments the item counter kept in flow scope.
var addItem = flow.ActionFunc(func(ctx flow.RequestContext) (*domain.Event, error) {
	ctx.FlowScope().Put("items", count(ctx.FlowScope().Get("items"))+1)
	return flow.Success(), nil
})

// count reads an item counter that may have gone through the JSON codec.
func count(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// Actions returns the action functions the sample flows call by name.
func Actions() *registry.Actions {
	actions := registry.NewActions()
	actions.Register("charge", func(_ context.Context, args map[string]any) (any, error) {
		items := count(args["items"])
		if items == 0 {
			return "empty", nil
		}
		return map[string]any{"total": items * Price}, nil
	})
	return actions
}

// Signup asks for an e-mail until a non-empty one is submitted.
func Signup() *dsl.Builder {
	b := dsl.New("signup")
	b.View("form").
		Render("signupForm").
		On("submit", "validate")
	b.Decision("validate").
		Branch("params.email != nil && params.email != ''", "remember").
		Otherwise("form")
	b.Action("remember").
		Set("email", "params.email").
		On(flow.EventSuccess, "welcome")
	b.End("welcome").
		Render("welcome").
		Output(flow.Mapping{Source: "flowScope.email", Target: "email"})
	return b
}

// Checkout fills a cart, collects an address in an inline subflow and pays
// once, guarded by a transaction token.
func Checkout(actions *registry.Actions) *dsl.Builder {
	address := dsl.New("address")
	address.View("street").
		Render("streetForm").
		On("next", "saved").
		On("cancel", "canceled")
	address.End("saved").Output(flow.Mapping{Source: "params.city", Target: "city"})
	address.End("canceled")

	b := dsl.New("checkout").WithActions(actions)
	b.View("cart").
		Render("cart").
		On("add", "add").
		On("checkout", "address")
	b.Action("add").
		Do(addItem).
		On(flow.EventSuccess, "cart")
	b.Subflow("address", address).
		Output(flow.Mapping{Source: "output.city", Target: "city"}).
		On("saved", "confirm").
		On("canceled", "cart")
	b.View("confirm").
		OnEntry(txsync.Begin()).
		Render("confirm").
		On("pay", "pay").
		On("back", "cart")
	b.Action("pay").
		Do(txsync.Check(true)).
		On(flow.EventYes, "charge").
		On(flow.EventNo, "confirm")
	b.Action("charge").
		Call("charge", flow.Mapping{Source: "flowScope.items", Target: "items"}).
		On("empty", "cart").
		On(flow.EventSuccess, "paid")
	b.End("paid").Render("receipt")
	return b
}

// Flows builds and registers every sample flow.
func Flows() (*registry.Flows, error) {
	signup, err := Signup().Build()
	if err != nil {
		return nil, fmt.Errorf("build signup: %w", err)
	}
	checkout, err := Checkout(Actions()).Build()
	if err != nil {
		return nil, fmt.Errorf("build checkout: %w", err)
	}
	return registry.NewFlows(signup, checkout)
}
