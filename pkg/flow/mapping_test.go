package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/pkg/flow"
)

func TestMapper(t *testing.T) {
	m, err := flow.NewMapper(
		flow.Mapping{Source: "flowScope.customer", Target: "customer"},
		flow.Mapping{Source: "flowScope.total * 2", Target: "double"},
		flow.Mapping{Source: "flowScope.missing", Target: "optional"},
	)
	require.NoError(t, err)

	out, err := m.Map(map[string]any{"flowScope": map[string]any{"customer": "ada", "total": 21}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"customer": "ada", "double": 42}, out)
}

func TestMapper_RequiredMissing(t *testing.T) {
	m, err := flow.NewMapper(flow.Mapping{Source: "flowScope.missing", Target: "x", Required: true})
	require.NoError(t, err)

	_, err = m.Map(map[string]any{"flowScope": map[string]any{}})
	assert.ErrorContains(t, err, "required mapping")
}

func TestMapper_Nil(t *testing.T) {
	var m *flow.Mapper
	out, err := m.Map(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDefaultFlowAttributeMapper(t *testing.T) {
	in, err := flow.NewMapper(flow.Mapping{Source: "flowScope.order", Target: "order"})
	require.NoError(t, err)
	out, err := flow.NewMapper(flow.Mapping{Source: "output.receipt", Target: "receipt"})
	require.NoError(t, err)
	mapper := &flow.DefaultFlowAttributeMapper{Input: in, Output: out}

	ctx := newStubContext()
	ctx.flowScope.Put("order", 7)

	input, err := mapper.CreateSubflowInput(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"order": 7}, input)

	require.NoError(t, mapper.MapSubflowOutput(map[string]any{"receipt": "R-1"}, ctx))
	assert.Equal(t, "R-1", ctx.flowScope.Get("receipt"))
}
