// Package txsync implements flow.TransactionSynchronizer with a token kept in
// flow scope. A request is in the transaction when it echoes the token back,
// which makes a second submit of the same form detectable.
package txsync

import (
	"github.com/google/uuid"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/flow"
)

const (
	// TokenAttribute is the flow scope key holding the active token.
	TokenAttribute = "transactionToken"
	// TokenParameter is the request parameter (or event parameter) carrying the submitted token.
	TokenParameter = "_transactionToken"
)

// TokenSynchronizer is stateless; the token lives in the execution itself.
type TokenSynchronizer struct{}

var _ flow.TransactionSynchronizer = TokenSynchronizer{}

// New returns a TokenSynchronizer.
func New() TokenSynchronizer { return TokenSynchronizer{} }

// BeginTransaction issues a fresh token, replacing any active one.
func (TokenSynchronizer) BeginTransaction(ctx flow.RequestContext) {
	ctx.FlowScope().Put(TokenAttribute, uuid.NewString())
}

// EndTransaction discards the active token.
func (TokenSynchronizer) EndTransaction(ctx flow.RequestContext) {
	ctx.FlowScope().Remove(TokenAttribute)
}

// InTransaction reports whether the submitted token matches the active one.
func (s TokenSynchronizer) InTransaction(ctx flow.RequestContext, end bool) bool {
	active, ok := domain.Lookup[string](ctx.FlowScope(), TokenAttribute)
	if !ok || active == "" {
		return false
	}
	if submitted(ctx) != active {
		return false
	}
	if end {
		s.EndTransaction(ctx)
	}
	return true
}

func submitted(ctx flow.RequestContext) string {
	if ev := ctx.LastEvent(); ev != nil {
		if v, ok := ev.Param(TokenParameter); ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	if ext := ctx.ExternalContext(); ext != nil {
		return ext.RequestParameters()[TokenParameter]
	}
	return ""
}

// Begin is an action that starts a transaction, typically on view entry.
func Begin() flow.Action {
	return flow.ActionFunc(func(ctx flow.RequestContext) (*domain.Event, error) {
		if err := ctx.BeginTransaction(); err != nil {
			return nil, err
		}
		return flow.Success(), nil
	})
}

// Check is an action answering yes when the request is in the transaction and
// no otherwise. With end set a positive check consumes the token.
func Check(end bool) flow.Action {
	return flow.ActionFunc(func(ctx flow.RequestContext) (*domain.Event, error) {
		ok, err := ctx.InTransaction(end)
		if err != nil {
			return nil, err
		}
		if ok {
			return flow.Yes(), nil
		}
		return flow.No(), nil
	})
}
