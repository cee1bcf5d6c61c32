package flow_test

import (
	"context"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/flow"
)

// stubContext is a minimal RequestContext for testing criteria, actions and mappers in isolation.
type stubContext struct {
	flowScope    *domain.AttributeMap
	requestScope *domain.AttributeMap
	ext          domain.ExternalContext
	last         *domain.Event
	flow         *flow.Flow
	state        flow.State
}

func newStubContext() *stubContext {
	return &stubContext{
		flowScope:    domain.NewAttributeMap(),
		requestScope: domain.NewAttributeMap(),
		ext:          domain.NewExternalContext(map[string]string{"q": "go"}),
		flow:         flow.New("stub"),
	}
}

func (c *stubContext) Context() context.Context                { return context.Background() }
func (c *stubContext) FlowScope() *domain.AttributeMap         { return c.flowScope }
func (c *stubContext) RequestScope() *domain.AttributeMap      { return c.requestScope }
func (c *stubContext) ExternalContext() domain.ExternalContext { return c.ext }
func (c *stubContext) LastEvent() *domain.Event                { return c.last }
func (c *stubContext) LastTransition() *flow.Transition        { return nil }
func (c *stubContext) ActiveFlow() *flow.Flow                  { return c.flow }
func (c *stubContext) CurrentState() flow.State                { return c.state }
func (c *stubContext) ActiveSession() flow.Session             { return nil }
func (c *stubContext) ExecutionKey() string                    { return "stub-key" }
func (c *stubContext) InTransaction(bool) (bool, error)        { return false, nil }
func (c *stubContext) BeginTransaction() error                 { return nil }
func (c *stubContext) EndTransaction() error                   { return nil }

func (c *stubContext) Model() map[string]any {
	m := c.flowScope.AsMap()
	for k, v := range c.requestScope.AsMap() {
		m[k] = v
	}
	return m
}

// controlStub records state changes so flows can be driven without an execution.
type controlStub struct {
	*stubContext
}

func (c *controlStub) SetCurrentState(s flow.State) error {
	c.state = s
	return nil
}

func (c *controlStub) SetLastEvent(ev *domain.Event)      { c.last = ev }
func (c *controlStub) SetLastTransition(*flow.Transition) {}

func (c *controlStub) Start(*flow.Flow, map[string]any) (*domain.ViewSelection, error) {
	return nil, nil
}

func (c *controlStub) SignalEvent(*domain.Event) (*domain.ViewSelection, error) { return nil, nil }

func (c *controlStub) EndActiveSession(map[string]any) (flow.Session, error) { return nil, nil }
