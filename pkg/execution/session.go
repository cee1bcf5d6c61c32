package execution

import (
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/flow"
)

// FlowSession is one activation record on the session stack.
// The flow and state references are transient: only their ids survive serialization.
type FlowSession struct {
	flow    *flow.Flow
	flowID  string
	state   flow.State
	stateID string
	status  domain.SessionStatus
	scope   *domain.AttributeMap
	parent  *FlowSession
}

func newFlowSession(f *flow.Flow, parent *FlowSession) *FlowSession {
	return &FlowSession{
		flow:   f,
		flowID: f.ID(),
		status: domain.StatusCreated,
		scope:  domain.NewAttributeMap(),
		parent: parent,
	}
}

func (s *FlowSession) Flow() *flow.Flow             { return s.flow }
func (s *FlowSession) FlowID() string               { return s.flowID }
func (s *FlowSession) State() flow.State            { return s.state }
func (s *FlowSession) StateID() string              { return s.stateID }
func (s *FlowSession) Status() domain.SessionStatus { return s.status }
func (s *FlowSession) Scope() *domain.AttributeMap  { return s.scope }
func (s *FlowSession) IsRoot() bool                 { return s.parent == nil }

// Parent returns the suspended parent session, or nil for the root.
func (s *FlowSession) Parent() flow.Session {
	if s.parent == nil {
		return nil
	}
	return s.parent
}

func (s *FlowSession) setState(st flow.State) {
	s.state = st
	s.stateID = st.ID()
}

func (s *FlowSession) String() string {
	return s.flowID + "@" + s.stateID + " [" + string(s.status) + "]"
}
