package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/flow"
)

// Flows is an in-memory flow.Locator.
// Registered flows are resolved and frozen, so they can be shared by concurrent executions.
type Flows struct {
	mu    sync.RWMutex
	flows map[string]*flow.Flow
}

// NewFlows creates a registry pre-populated with the given flows.
func NewFlows(flows ...*flow.Flow) (*Flows, error) {
	r := &Flows{flows: make(map[string]*flow.Flow)}
	for _, f := range flows {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register resolves the transition targets of f and adds it.
// Registering a second flow under the same id fails.
func (r *Flows) Register(f *flow.Flow) error {
	if err := f.ResolveTransitionTargets(); err != nil {
		return fmt.Errorf("register flow %s: %w", f.ID(), err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.flows[f.ID()]; exists {
		return fmt.Errorf("flow already registered: %s", f.ID())
	}
	r.flows[f.ID()] = f
	return nil
}

// GetFlow implements flow.Locator.
func (r *Flows) GetFlow(id string) (*flow.Flow, error) {
	r.mu.RLock()
	f, ok := r.flows[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoSuchFlow, id)
	}
	return f, nil
}

// IDs returns the registered flow ids, sorted.
func (r *Flows) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.flows))
	for id := range r.flows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
