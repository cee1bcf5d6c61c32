package domain

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Event is an immutable occurrence that drives transitions.
// It is produced either by the external boundary (a user submitting a form)
// or by an Action returning its outcome.
type Event struct {
	id        string
	timestamp time.Time
	params    map[string]any
}

// NewEvent creates an event stamped with the current time.
// The parameter map is copied so later mutation by the caller has no effect.
func NewEvent(id string, params map[string]any) *Event {
	cp := make(map[string]any, len(params))
	for k, v := range params {
		cp[k] = v
	}
	return &Event{
		id:        id,
		timestamp: time.Now(),
		params:    cp,
	}
}

// ID returns the event identifier, e.g. "submit" or "success".
func (e *Event) ID() string {
	return e.id
}

// Timestamp returns the creation time of the event.
func (e *Event) Timestamp() time.Time {
	return e.timestamp
}

// Param returns a single parameter value and whether it was present.
func (e *Event) Param(key string) (any, bool) {
	v, ok := e.params[key]
	return v, ok
}

// Params returns a copy of the parameter set.
func (e *Event) Params() map[string]any {
	cp := make(map[string]any, len(e.params))
	for k, v := range e.params {
		cp[k] = v
	}
	return cp
}

// Decode binds the event parameters onto a struct using mapstructure tags.
func (e *Event) Decode(target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(e.params); err != nil {
		return fmt.Errorf("failed to decode event %q parameters: %w", e.id, err)
	}
	return nil
}

func (e *Event) String() string {
	return fmt.Sprintf("Event[%s]", e.id)
}
