package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed holder can keep a distributed lock.
const DefaultLockTTL = 30 * time.Second

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager guards repository access per execution id.
type Manager struct {
	repo ports.ExecutionRepository

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager over repo.
func NewManager(repo ports.ExecutionRepository, opts ...Option) *Manager {
	m := &Manager{
		repo:    repo,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire increments the reference count of id's entry, creating it if needed.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[id]
	if !ok {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release drops the entry once nobody holds or waits for it.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock runs fn while holding the lock for id. It is not reentrant: fn must
// use Repository directly rather than the Manager's own Load/Save/Remove.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// ctx may already be canceled; the lock must still be released.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"execution_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Load reads the execution stored under id.
func (m *Manager) Load(ctx context.Context, id string) (*execution.FlowExecution, error) {
	var exec *execution.FlowExecution
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		exec, err = m.repo.Load(ctx, id)
		return err
	})
	return exec, err
}

// Save stores exec under id. New ids are allocated by the repository and need no lock.
func (m *Manager) Save(ctx context.Context, id string, exec *execution.FlowExecution) (string, error) {
	if id == "" {
		return m.repo.Save(ctx, "", exec)
	}
	var saved string
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		saved, err = m.repo.Save(ctx, id, exec)
		return err
	})
	return saved, err
}

// Remove deletes the execution stored under id.
func (m *Manager) Remove(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.repo.Remove(ctx, id)
	})
}

// List delegates to the repository.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.repo.List(ctx)
}

// Repository returns the underlying repository.
func (m *Manager) Repository() ports.ExecutionRepository {
	return m.repo
}
