package webflow_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/flow"
	"github.com/aretw0/webflow/pkg/registry"
)

// addItem increments the item counter kept in flow scope.
var addItem = flow.ActionFunc(func(ctx flow.RequestContext) (*domain.Event, error) {
	n, _ := ctx.FlowScope().Get("items").(int)
	ctx.FlowScope().Put("items", n+1)
	return flow.Success(), nil
})

// shopFlows builds a checkout with an inline address subflow.
func shopFlows(t *testing.T) *registry.Flows {
	t.Helper()

	address := dsl.New("address")
	address.View("street").Render("streetForm").On("next", "saved").On("cancel", "canceled")
	address.End("saved").Output(flow.Mapping{Source: "params.city", Target: "city"})
	address.End("canceled")

	b := dsl.New("shop")
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
		Render("confirm").
		On("pay", "paid")
	b.End("paid").Render("receipt")

	flows, err := registry.NewFlows(b.MustBuild())
	require.NoError(t, err)
	return flows
}
