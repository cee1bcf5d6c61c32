// Package registry holds the process-wide, read-only catalogs an engine runs against:
// flow definitions (a flow.Locator) and named business actions.
package registry
