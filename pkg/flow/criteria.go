package flow

import (
	"strings"
)

// Criteria is a predicate over the request context.
// Transitions use one to decide whether they match an event and another to decide whether they may execute.
type Criteria interface {
	Test(ctx RequestContext) bool
	String() string
}

// CriteriaFunc adapts a function to Criteria.
type CriteriaFunc func(ctx RequestContext) bool

func (f CriteriaFunc) Test(ctx RequestContext) bool { return f(ctx) }
func (f CriteriaFunc) String() string               { return "func" }

type wildcard struct{}

func (wildcard) Test(RequestContext) bool { return true }
func (wildcard) String() string           { return "*" }

// Wildcard matches every event.
var Wildcard Criteria = wildcard{}

type eventIDCriteria struct {
	id string
}

func (c eventIDCriteria) Test(ctx RequestContext) bool {
	ev := ctx.LastEvent()
	return ev != nil && ev.ID() == c.id
}

func (c eventIDCriteria) String() string { return c.id }

// OnEvent matches when the last event id equals id. "*" yields Wildcard.
func OnEvent(id string) Criteria {
	if id == "*" {
		return Wildcard
	}
	return eventIDCriteria{id: id}
}

type expressionCriteria struct {
	expr *Expression
}

// Evaluation failures and non-boolean results count as a non-match.
func (c expressionCriteria) Test(ctx RequestContext) bool {
	ok, err := c.expr.EvaluateBool(Env(ctx))
	return err == nil && ok
}

func (c expressionCriteria) String() string { return "${" + c.expr.String() + "}" }

// ExpressionCriteria compiles src into a boolean Criteria.
func ExpressionCriteria(src string) (Criteria, error) {
	e, err := CompileExpression(src)
	if err != nil {
		return nil, err
	}
	return expressionCriteria{expr: e}, nil
}

// MustCriteria is like ExpressionCriteria but panics on error.
func MustCriteria(src string) Criteria {
	c, err := ExpressionCriteria(src)
	if err != nil {
		panic(err)
	}
	return c
}

type andCriteria []Criteria

func (c andCriteria) Test(ctx RequestContext) bool {
	for _, each := range c {
		if !each.Test(ctx) {
			return false
		}
	}
	return true
}

func (c andCriteria) String() string {
	parts := make([]string, len(c))
	for i, each := range c {
		parts[i] = each.String()
	}
	return strings.Join(parts, " and ")
}

// And matches when all criteria match.
func And(criteria ...Criteria) Criteria {
	return andCriteria(criteria)
}

type notCriteria struct {
	c Criteria
}

func (n notCriteria) Test(ctx RequestContext) bool { return !n.c.Test(ctx) }
func (n notCriteria) String() string               { return "!" + n.c.String() }

// Not negates c.
func Not(c Criteria) Criteria {
	return notCriteria{c: c}
}
