/*
Package flow contains the flow definition graph and the behavior of its nodes.

A Flow is built once (programmatically or through pkg/dsl), its transition targets are
resolved with ResolveTransitionTargets, and from then on it is an immutable value that
may be shared by any number of concurrently running executions.

# Key Entities

  - Flow: a named graph of states with start/end actions, exception handlers and inline flows.
  - State: a sealed set of variants (ActionState, ViewState, DecisionState, SubflowState, EndState)
    sharing one Enter template.
  - Transition: a predicate-guarded edge, matched in definition order.
  - Action: business code invoked against a RequestContext; returns an outcome Event.
  - ExceptionHandler: a recovery strategy consulted at state level, then flow level.

States never mutate the execution directly. They drive it through ControlContext,
which is implemented by pkg/execution.
*/
package flow
