package domain

// SessionStatus is the lifecycle status of a single flow session.
type SessionStatus string

const (
	StatusCreated   SessionStatus = "created"   // Pushed but not yet started
	StatusActive    SessionStatus = "active"    // Top of the stack, processing an event
	StatusPaused    SessionStatus = "paused"    // Top of the stack, waiting for the next external event
	StatusSuspended SessionStatus = "suspended" // Parent of a running sub-flow
	StatusEnded     SessionStatus = "ended"     // Popped off the stack
)
