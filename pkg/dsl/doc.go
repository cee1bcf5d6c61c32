/*
Package dsl provides a fluent Go builder for flow definitions.

It is a thin layer over the pkg/flow constructors: states are declared in order, transitions
name their targets by id, and Build creates the states, resolves every target and freezes
the flow. Errors (unknown targets, bad expressions, duplicate states) are collected and
reported together by Build.

Example usage:

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
*/
package dsl
