package execution

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/flow"
)

func init() {
	// Containers that commonly end up inside flow scope.
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register(time.Time{})
}

// RegisterType makes a custom flow scope value type known to the binary codec.
func RegisterType(value any) {
	gob.Register(value)
}

// Snapshot is the persistent form of a FlowExecution. Flow and state references are stored as ids.
type Snapshot struct {
	Key          string            `json:"key" yaml:"key"`
	RootFlowID   string            `json:"rootFlowId" yaml:"rootFlowId"`
	LastEventID  string            `json:"lastEventId,omitempty" yaml:"lastEventId,omitempty"`
	Created      time.Time         `json:"created" yaml:"created"`
	LastActivity time.Time         `json:"lastActivity" yaml:"lastActivity"`
	Ended        bool              `json:"ended,omitempty" yaml:"ended,omitempty"`
	Sessions     []SessionSnapshot `json:"sessions" yaml:"sessions"`
}

// SessionSnapshot is the persistent form of a FlowSession.
type SessionSnapshot struct {
	FlowID  string               `json:"flowId" yaml:"flowId"`
	StateID string               `json:"stateId,omitempty" yaml:"stateId,omitempty"`
	Status  domain.SessionStatus `json:"status" yaml:"status"`
	Scope   map[string]any       `json:"scope,omitempty" yaml:"scope,omitempty"`
}

// Snapshot captures the persistent fields of e.
func (e *FlowExecution) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *FlowExecution) snapshot() Snapshot {
	s := Snapshot{
		Key:          e.key,
		RootFlowID:   e.rootFlowID,
		LastEventID:  e.lastEventID,
		Created:      e.created,
		LastActivity: e.lastActivity,
		Ended:        e.ended,
		Sessions:     make([]SessionSnapshot, len(e.sessions)),
	}
	for i, each := range e.sessions {
		s.Sessions[i] = SessionSnapshot{
			FlowID:  each.flowID,
			StateID: each.stateID,
			Status:  each.status,
			Scope:   each.scope.AsMap(),
		}
	}
	return s
}

// FromSnapshot rebuilds an execution that must be rehydrated before use.
func FromSnapshot(s Snapshot) (*FlowExecution, error) {
	e := &FlowExecution{}
	if err := e.restore(s); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *FlowExecution) restore(s Snapshot) error {
	if s.Key == "" || s.RootFlowID == "" {
		return errors.New("corrupt execution snapshot: missing key or root flow id")
	}
	if !s.Ended && len(s.Sessions) > 0 && s.Sessions[0].FlowID != s.RootFlowID {
		return fmt.Errorf("corrupt execution snapshot: root session runs '%s', expected '%s'", s.Sessions[0].FlowID, s.RootFlowID)
	}
	e.key = s.Key
	e.rootFlowID = s.RootFlowID
	e.lastEventID = s.LastEventID
	e.created = s.Created
	e.lastActivity = s.LastActivity
	e.ended = s.Ended
	e.sessions = make([]*FlowSession, len(s.Sessions))
	var parent *FlowSession
	for i, each := range s.Sessions {
		fs := &FlowSession{
			flowID:  each.FlowID,
			stateID: each.StateID,
			status:  each.Status,
			scope:   domain.NewAttributeMapFrom(each.Scope),
			parent:  parent,
		}
		e.sessions[i] = fs
		parent = fs
	}
	e.rootFlow = nil
	e.hydrated = false
	e.listeners = nil
	e.tx = nil
	e.logger = logging.NewNop()
	return nil
}

// MarshalBinary encodes e with encoding/gob, preserving the Go types of flow scope values.
func (e *FlowExecution) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e.Snapshot()); err != nil {
		return nil, fmt.Errorf("encode execution %s: %w", e.key, err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores e from MarshalBinary output. Rehydrate must be called next.
func (e *FlowExecution) UnmarshalBinary(data []byte) error {
	var s Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return fmt.Errorf("decode execution: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.restore(s)
}

// MarshalJSON encodes e as JSON. Numeric scope values come back as float64.
func (e *FlowExecution) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Snapshot())
}

// UnmarshalJSON restores e from MarshalJSON output. Rehydrate must be called next.
func (e *FlowExecution) UnmarshalJSON(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode execution: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.restore(s)
}

// Rehydrate reattaches the transient collaborators of a restored execution: flow and state
// references are resolved through locator (child flows are looked up among the inline flows
// of their ancestors first), listeners come from loader and tx becomes the transaction
// synchronizer. Calling it on a hydrated execution is a no-op.
func (e *FlowExecution) Rehydrate(locator flow.Locator, loader ListenerLoader, tx flow.TransactionSynchronizer, opts ...Option) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hydrated {
		return nil
	}
	root, err := locator.GetFlow(e.rootFlowID)
	if err != nil {
		return fmt.Errorf("rehydrate execution %s: %w", e.key, err)
	}
	for i, s := range e.sessions {
		f := root
		if i > 0 {
			if f, err = e.resolveChildFlow(locator, i); err != nil {
				return fmt.Errorf("rehydrate execution %s: %w", e.key, err)
			}
		}
		if s.stateID != "" {
			st, err := f.RequiredState(s.stateID)
			if err != nil {
				return fmt.Errorf("rehydrate execution %s: %w", e.key, err)
			}
			s.state = st
		}
		s.flow = f
	}

	e.rootFlow = root
	if loader != nil {
		e.listeners = loader.Listeners(root)
	}
	e.tx = tx
	for _, opt := range opts {
		opt(e)
	}
	e.hydrated = true
	return nil
}

func (e *FlowExecution) resolveChildFlow(locator flow.Locator, i int) (*flow.Flow, error) {
	id := e.sessions[i].flowID
	for j := i - 1; j >= 0; j-- {
		if f := e.sessions[j].flow.InlineFlow(id); f != nil {
			return f, nil
		}
	}
	return locator.GetFlow(id)
}
