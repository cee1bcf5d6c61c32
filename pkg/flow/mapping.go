package flow

import (
	"fmt"
)

// Mapping copies the result of the Source expression to the Target key.
type Mapping struct {
	Source   string
	Target   string
	Required bool
}

type compiledMapping struct {
	Mapping
	expr *Expression
}

// Mapper evaluates a list of mappings against an environment.
type Mapper struct {
	mappings []compiledMapping
}

// NewMapper compiles every mapping. An empty Target defaults to the Source text.
func NewMapper(mappings ...Mapping) (*Mapper, error) {
	m := &Mapper{}
	for _, each := range mappings {
		e, err := CompileExpression(each.Source)
		if err != nil {
			return nil, err
		}
		if each.Target == "" {
			each.Target = each.Source
		}
		m.mappings = append(m.mappings, compiledMapping{Mapping: each, expr: e})
	}
	return m, nil
}

// Map produces target -> value. Required mappings yielding nil fail.
func (m *Mapper) Map(env map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(m.mappings))
	for _, each := range m.mappings {
		v, err := each.expr.Evaluate(env)
		if err != nil {
			return nil, err
		}
		if v == nil {
			if each.Required {
				return nil, fmt.Errorf("required mapping '%s' -> '%s' produced no value", each.Source, each.Target)
			}
			continue
		}
		out[each.Target] = v
	}
	return out, nil
}

func (m *Mapper) Mappings() []Mapping {
	if m == nil {
		return nil
	}
	out := make([]Mapping, len(m.mappings))
	for i, each := range m.mappings {
		out[i] = each.Mapping
	}
	return out
}

// FlowAttributeMapper moves data into and out of a subflow.
type FlowAttributeMapper interface {
	// CreateSubflowInput builds the input map seeded into the subflow's scope.
	CreateSubflowInput(ctx RequestContext) (map[string]any, error)
	// MapSubflowOutput copies the subflow's output into the resuming parent's scope.
	MapSubflowOutput(output map[string]any, ctx RequestContext) error
}

// DefaultFlowAttributeMapper evaluates Input against the parent's environment and
// Output against the parent's environment extended with the subflow output under "output".
// Output results land in the parent's flow scope.
type DefaultFlowAttributeMapper struct {
	Input  *Mapper
	Output *Mapper
}

func (m *DefaultFlowAttributeMapper) CreateSubflowInput(ctx RequestContext) (map[string]any, error) {
	return m.Input.Map(Env(ctx))
}

func (m *DefaultFlowAttributeMapper) MapSubflowOutput(output map[string]any, ctx RequestContext) error {
	env := Env(ctx)
	env[EnvOutput] = output
	values, err := m.Output.Map(env)
	if err != nil {
		return err
	}
	ctx.FlowScope().PutAll(values)
	return nil
}
