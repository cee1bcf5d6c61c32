/*
Package webflow is an interruptible flow-execution engine for conversational
interactions such as multi-step web forms and wizards.

A flow is a graph of states (action, view, decision, subflow, end) connected by
transitions. An execution runs states until it reaches a view state, then
pauses and hands a view selection back to the caller. The paused execution is
stored; the next request names it by id together with an event, and the
execution resumes exactly where it stopped.

# Packages

  - pkg/flow: flow graph, states, transitions, actions, exception handlers.
  - pkg/execution: the interpreter, its session stack, listeners and snapshots.
  - pkg/dsl: a fluent builder for flows.
  - pkg/registry: flow and action registries.
  - pkg/ports and pkg/adapters: storage, locking and transports.

# Usage

	b := dsl.New("signup")
	b.View("form").Render("signupForm").On("submit", "done")
	b.End("done").Render("welcome")

	flows, _ := registry.NewFlows(b.MustBuild())
	engine, _ := webflow.New(flows)

	resp, _ := engine.Launch(ctx, "signup", nil, nil)
	// render resp.View, then on the next request:
	resp, _ = engine.Resume(ctx, ports.ResumeRequest{
		ExecutionID: resp.ExecutionID,
		EventID:     "submit",
	}, nil)
*/
package webflow
