/*
Package domain contains the value types shared by every layer of the webflow engine.

It is kept pure and free of I/O, following Hexagonal Architecture principles:
the flow graph (pkg/flow), the interpreter (pkg/execution) and the adapters all
speak in terms of these types.

# Key Entities

  - Event: an immutable, identified occurrence that drives transitions.
  - AttributeMap: a mutable scope (request or flow) holding conversation data.
  - ViewSelection: what a paused execution asks the host to render.
  - ExternalContext: the opaque request/session/application maps supplied by the caller.
*/
package domain
