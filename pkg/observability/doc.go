/*
Package observability provides execution listeners for monitoring the engine.

Metrics exports Prometheus counters and a request duration histogram;
AuditListener writes every lifecycle step to a structured slog logger.
Both plug into an engine through execution.Listener values.
*/
package observability
