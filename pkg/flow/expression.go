package flow

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Variables available to every expression.
const (
	EnvFlowScope      = "flowScope"
	EnvRequestScope   = "requestScope"
	EnvLastEvent      = "lastEvent"
	EnvParams         = "params"
	EnvExternalParams = "externalParams"
	EnvCurrentState   = "currentState"
	EnvOutput         = "output"
)

// Expression is a compiled expr-lang program evaluated against a request environment.
type Expression struct {
	source  string
	program *vm.Program
}

// CompileExpression compiles src once. Unknown identifiers evaluate to nil.
func CompileExpression(src string) (*Expression, error) {
	program, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", src, err)
	}
	return &Expression{source: src, program: program}, nil
}

// MustCompileExpression is like CompileExpression but panics on error.
// Intended for package-level flow definitions.
func MustCompileExpression(src string) *Expression {
	e, err := CompileExpression(src)
	if err != nil {
		panic(err)
	}
	return e
}

// Evaluate runs the program against env.
func (e *Expression) Evaluate(env map[string]any) (any, error) {
	out, err := expr.Run(e.program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate expression %q: %w", e.source, err)
	}
	return out, nil
}

// EvaluateBool runs the program and requires a boolean result.
func (e *Expression) EvaluateBool(env map[string]any) (bool, error) {
	out, err := e.Evaluate(env)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, expected bool", e.source, out)
	}
	return b, nil
}

func (e *Expression) String() string { return e.source }

// Env builds the evaluation environment for ctx.
func Env(ctx RequestContext) map[string]any {
	env := map[string]any{
		EnvFlowScope:      ctx.FlowScope().AsMap(),
		EnvRequestScope:   ctx.RequestScope().AsMap(),
		EnvParams:         map[string]any{},
		EnvLastEvent:      "",
		EnvExternalParams: map[string]string{},
		EnvCurrentState:   "",
	}
	if ev := ctx.LastEvent(); ev != nil {
		env[EnvLastEvent] = ev.ID()
		env[EnvParams] = ev.Params()
	}
	if ext := ctx.ExternalContext(); ext != nil {
		env[EnvExternalParams] = ext.RequestParameters()
	}
	if s := ctx.CurrentState(); s != nil {
		env[EnvCurrentState] = s.ID()
	}
	return env
}
