package ports

import (
	"context"

	"github.com/aretw0/webflow/pkg/execution"
)

// SnapshotStore persists encoded executions. It knows nothing about their content.
type SnapshotStore interface {
	// Put stores data under id, replacing any previous value.
	Put(ctx context.Context, id string, data []byte) error

	// Get returns the data stored under id.
	// Returns domain.ErrExecutionNotFound if there is none.
	Get(ctx context.Context, id string) ([]byte, error)

	// Delete removes id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the stored ids.
	List(ctx context.Context) ([]string, error)
}

// ExecutionRepository is the storage boundary of the engine.
type ExecutionRepository interface {
	// Load returns the execution stored under id. It is NOT rehydrated: the caller must
	// call Rehydrate before using it.
	// Returns domain.ErrExecutionNotFound if the id is unknown.
	Load(ctx context.Context, id string) (*execution.FlowExecution, error)

	// Save stores exec under id. An empty id allocates a new one. The id used is returned.
	Save(ctx context.Context, id string, exec *execution.FlowExecution) (string, error)

	// Remove deletes the execution stored under id.
	Remove(ctx context.Context, id string) error

	// List returns the ids of the stored executions.
	List(ctx context.Context) ([]string, error)
}
