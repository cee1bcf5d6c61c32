package domain

import "errors"

// ErrExecutionNotFound is returned when a flow execution id cannot be found in the store.
var ErrExecutionNotFound = errors.New("flow execution not found")

// ErrNoSuchFlow is returned by flow locators when no definition is registered under an id.
var ErrNoSuchFlow = errors.New("no such flow definition")

// ErrNotHydrated is returned when a restored flow execution is used before Rehydrate was called.
var ErrNotHydrated = errors.New("flow execution has not been rehydrated")

// ErrExecutionActive is returned when starting an execution that is already running.
var ErrExecutionActive = errors.New("flow execution is already active")

// ErrExecutionNotActive is returned when signaling an execution that was never started or has ended.
var ErrExecutionNotActive = errors.New("flow execution is not active")

// ErrExecutionEnded is returned when an operation other than inspection targets an ended execution.
var ErrExecutionEnded = errors.New("flow execution has ended")

// ErrStateMismatch is returned when a client-submitted state id disagrees with the stored position.
var ErrStateMismatch = errors.New("submitted state does not match the current state")

// ErrNoTransactionSynchronizer is returned when flow code demarcates a transaction without a configured strategy.
var ErrNoTransactionSynchronizer = errors.New("no transaction synchronizer configured")
