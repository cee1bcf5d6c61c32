package webflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/adapters/memory"
	"github.com/aretw0/webflow/pkg/conversation"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/flow"
	"github.com/aretw0/webflow/pkg/ports"
	"github.com/aretw0/webflow/pkg/repository"
)

// ErrInvalidRequest is returned when a resume request is missing required fields.
var ErrInvalidRequest = errors.New("invalid request")

// Engine drives stored flow executions on behalf of a transport.
// Every call loads the execution, signals it and stores it back (or removes it once
// it ended) inside the per-execution lock of a conversation.Manager.
type Engine struct {
	locator   flow.Locator
	repo      ports.ExecutionRepository
	sessions  *conversation.Manager
	locker    ports.DistributedLocker
	lockTTL   time.Duration
	listeners []*execution.Listener
	loader    execution.ListenerLoader
	tx        flow.TransactionSynchronizer
	logger    *slog.Logger
	strict    bool
	validate  *validator.Validate
}

var _ ports.FlowExecutor = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRepository sets where executions are stored between requests.
// Defaults to an in-memory store with the gob codec.
func WithRepository(repo ports.ExecutionRepository) Option {
	return func(e *Engine) {
		e.repo = repo
	}
}

// WithLocker extends the per-execution lock across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL bounds how long a distributed lock survives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithListeners attaches listeners to every execution.
func WithListeners(listeners ...*execution.Listener) Option {
	return func(e *Engine) {
		e.listeners = append(e.listeners, listeners...)
	}
}

// WithListenerLoader chooses listeners per root flow. It replaces WithListeners.
func WithListenerLoader(loader execution.ListenerLoader) Option {
	return func(e *Engine) {
		e.loader = loader
	}
}

// WithTransactionSynchronizer sets the duplicate-submit strategy available to flow code.
func WithTransactionSynchronizer(tx flow.TransactionSynchronizer) Option {
	return func(e *Engine) {
		e.tx = tx
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStrictStateCheck rejects resume requests whose state id disagrees with the
// stored position. By default the mismatch is only logged.
func WithStrictStateCheck(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// New creates an Engine resolving flow ids through locator.
func New(locator flow.Locator, opts ...Option) (*Engine, error) {
	if locator == nil {
		return nil, fmt.Errorf("a flow locator is required")
	}
	e := &Engine{
		locator:  locator,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.repo == nil {
		e.repo = repository.New(memory.NewStore())
	}
	if e.loader == nil {
		e.loader = execution.StaticListenerLoader(e.listeners...)
	}

	managerOpts := []conversation.Option{
		conversation.WithLogger(e.logger),
		conversation.WithLockTTL(e.lockTTL),
	}
	if e.locker != nil {
		managerOpts = append(managerOpts, conversation.WithLocker(e.locker))
	}
	e.sessions = conversation.NewManager(e.repo, managerOpts...)
	return e, nil
}

// Locator returns the flow locator.
func (e *Engine) Locator() flow.Locator { return e.locator }

// Launch starts a new execution of flowID. An execution that pauses is stored and
// its id returned; one that ends during launch is never stored.
func (e *Engine) Launch(ctx context.Context, flowID string, input map[string]any, ext domain.ExternalContext) (*ports.Response, error) {
	f, err := e.locator.GetFlow(flowID)
	if err != nil {
		return nil, err
	}

	exec := execution.New(f,
		execution.WithListeners(e.loader.Listeners(f)...),
		execution.WithTransactionSynchronizer(e.tx),
		execution.WithLogger(e.logger),
	)
	sel, err := exec.Start(ctx, input, ext)
	if err != nil {
		return nil, fmt.Errorf("launch flow %s: %w", flowID, err)
	}
	e.logger.Debug("Flow launched", "flow", flowID, "execution", exec.Key(), "active", exec.IsActive())
	return e.store(ctx, "", exec, sel)
}

// Resume signals req.EventID into the stored execution req.ExecutionID.
// A failed request leaves the stored execution untouched.
func (e *Engine) Resume(ctx context.Context, req ports.ResumeRequest, ext domain.ExternalContext) (*ports.Response, error) {
	if err := e.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := ValidateEventID(req.EventID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	var resp *ports.Response
	err := e.sessions.WithLock(ctx, req.ExecutionID, func(ctx context.Context) error {
		exec, err := e.load(ctx, req.ExecutionID)
		if err != nil {
			return err
		}
		if err := e.checkState(exec, req); err != nil {
			return err
		}

		sel, err := exec.SignalEvent(ctx, domain.NewEvent(req.EventID, req.Params), ext)
		if err != nil {
			return fmt.Errorf("signal %s on execution %s: %w", req.EventID, req.ExecutionID, err)
		}
		resp, err = e.store(ctx, req.ExecutionID, exec, sel)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Refresh re-renders the current view of a stored execution.
func (e *Engine) Refresh(ctx context.Context, executionID string, ext domain.ExternalContext) (*ports.Response, error) {
	var resp *ports.Response
	err := e.sessions.WithLock(ctx, executionID, func(ctx context.Context) error {
		exec, err := e.load(ctx, executionID)
		if err != nil {
			return err
		}
		sel, err := exec.Refresh(ctx, ext)
		if err != nil {
			return fmt.Errorf("refresh execution %s: %w", executionID, err)
		}
		resp, err = e.store(ctx, executionID, exec, sel)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Remove abandons a stored execution.
func (e *Engine) Remove(ctx context.Context, executionID string) error {
	return e.sessions.WithLock(ctx, executionID, func(ctx context.Context) error {
		exec, err := e.load(ctx, executionID)
		if err != nil {
			return err
		}
		if err := e.repo.Remove(ctx, executionID); err != nil {
			return err
		}
		exec.Listeners().FireRemoved(ctx, exec, executionID)
		return nil
	})
}

// Inspect returns the persistent form of a stored execution.
func (e *Engine) Inspect(ctx context.Context, executionID string) (*execution.Snapshot, error) {
	exec, err := e.sessions.Load(ctx, executionID)
	if err != nil {
		return nil, err
	}
	snap := exec.Snapshot()
	return &snap, nil
}

// List returns the ids of the stored executions.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// load reads and rehydrates. The caller holds the execution's lock.
func (e *Engine) load(ctx context.Context, id string) (*execution.FlowExecution, error) {
	exec, err := e.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := exec.Rehydrate(e.locator, e.loader, e.tx, execution.WithLogger(e.logger)); err != nil {
		return nil, err
	}
	exec.Listeners().FireLoaded(ctx, exec, id)
	return exec, nil
}

func (e *Engine) checkState(exec *execution.FlowExecution, req ports.ResumeRequest) error {
	if req.StateID == "" || req.StateID == exec.CurrentStateID() {
		return nil
	}
	if e.strict {
		return fmt.Errorf("%w: execution %s is in %q, request was made from %q",
			domain.ErrStateMismatch, req.ExecutionID, exec.CurrentStateID(), req.StateID)
	}
	e.logger.Warn("Submitted state does not match the stored state",
		"execution_id", req.ExecutionID,
		"submitted", req.StateID,
		"current", exec.CurrentStateID(),
	)
	return nil
}

// store saves an active execution under id (a new id when empty) and removes an ended one.
func (e *Engine) store(ctx context.Context, id string, exec *execution.FlowExecution, sel *domain.ViewSelection) (*ports.Response, error) {
	if !exec.IsActive() {
		if id != "" {
			if err := e.repo.Remove(ctx, id); err != nil {
				return nil, err
			}
			exec.Listeners().FireRemoved(ctx, exec, id)
		}
		return &ports.Response{View: sel, Active: false, FlowID: exec.RootFlowID()}, nil
	}

	saved, err := e.repo.Save(ctx, id, exec)
	if err != nil {
		return nil, err
	}
	exec.Listeners().FireSaved(ctx, exec, saved)
	return &ports.Response{
		ExecutionID: saved,
		View:        sel,
		Active:      true,
		FlowID:      exec.ActiveFlow().ID(),
		StateID:     exec.CurrentStateID(),
	}, nil
}
