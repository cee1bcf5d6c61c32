// Package execution implements the flow execution interpreter.
//
// A FlowExecution is one user conversation: a stack of FlowSessions, one per running flow,
// with the root flow at the bottom. The interpreter is the only code that pushes or pops
// sessions. States drive it through the flow.ControlContext handed to them for each request.
//
// Start, SignalEvent and Refresh are mutually exclusive per FlowExecution instance: a second
// concurrent caller blocks until the first returns.
//
// Between requests an execution may be turned into bytes (MarshalBinary, MarshalJSON, or a Codec)
// and restored later, possibly in another process. Flow definitions are never copied into a
// snapshot: sessions store flow and state ids, and Rehydrate resolves them again through a
// flow.Locator before the execution may be used.
package execution
