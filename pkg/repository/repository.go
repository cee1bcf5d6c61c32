// Package repository implements ports.ExecutionRepository on top of any
// ports.SnapshotStore, encoding executions with an execution.Codec.
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/ports"
)

// Repository stores executions as encoded snapshots.
type Repository struct {
	store ports.SnapshotStore
	codec execution.Codec
}

var _ ports.ExecutionRepository = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithCodec selects the snapshot encoding. Defaults to gob.
func WithCodec(c execution.Codec) Option {
	return func(r *Repository) {
		if c != nil {
			r.codec = c
		}
	}
}

// New creates a repository over store.
func New(store ports.SnapshotStore, opts ...Option) *Repository {
	r := &Repository{
		store: store,
		codec: execution.GobCodec{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Codec returns the codec in use.
func (r *Repository) Codec() execution.Codec { return r.codec }

// Load decodes the execution stored under id. The result still needs Rehydrate.
func (r *Repository) Load(ctx context.Context, id string) (*execution.FlowExecution, error) {
	data, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	exec, err := r.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode execution %s (%s): %w", id, r.codec.Name(), err)
	}
	return exec, nil
}

// Save encodes exec under id, allocating a fresh id when id is empty.
func (r *Repository) Save(ctx context.Context, id string, exec *execution.FlowExecution) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	data, err := r.codec.Encode(exec)
	if err != nil {
		return "", fmt.Errorf("failed to encode execution %s (%s): %w", id, r.codec.Name(), err)
	}
	if err := r.store.Put(ctx, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Remove deletes the execution stored under id.
func (r *Repository) Remove(ctx context.Context, id string) error {
	return r.store.Delete(ctx, id)
}

// List returns the stored ids.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	return r.store.List(ctx)
}
