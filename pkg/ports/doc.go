/*
Package ports defines the driven and driving ports of the webflow engine.

These interfaces decouple the interpreter from storage backends and transports, so the same
flows can be persisted in memory, on disk, in Redis or SQLite, and driven over HTTP, MCP or a console.

# Key Interfaces

  - SnapshotStore: persists opaque execution snapshots by id.
  - ExecutionRepository: loads, saves and removes flow executions (allocating ids on first save).
  - DistributedLocker: coordinates access to one execution across several engine replicas.
  - FlowExecutor: the launch/resume/refresh surface adapters call into.
*/
package ports
