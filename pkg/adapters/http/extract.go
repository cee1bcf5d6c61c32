package http

import (
	"net/http"
	"strings"

	"github.com/aretw0/webflow/pkg/domain"
)

// Request parameter names understood by the form entry point.
const (
	FlowIDParameter      = "_flowId"
	ExecutionIDParameter = "_flowExecutionId"
	EventIDParameter     = "_eventId"
	StateIDParameter     = "_stateId"

	// EventIDPrefix lets a submit button name carry the event: name="_eventId_next".
	EventIDPrefix = "_eventId_"
)

// Arguments are the engine inputs extracted from one HTTP request.
type Arguments struct {
	FlowID      string
	ExecutionID string
	EventID     string
	StateID     string
	// Params holds every other parameter, first value wins.
	Params map[string]string
}

// ExtractArguments reads query and form parameters. The engine itself never
// sees the request.
func ExtractArguments(r *http.Request) (Arguments, error) {
	if err := r.ParseForm(); err != nil {
		return Arguments{}, err
	}
	args := Arguments{Params: make(map[string]string, len(r.Form))}
	for key, values := range r.Form {
		value := ""
		if len(values) > 0 {
			value = values[0]
		}
		switch {
		case key == FlowIDParameter:
			args.FlowID = value
		case key == ExecutionIDParameter:
			args.ExecutionID = value
		case key == EventIDParameter:
			args.EventID = value
		case key == StateIDParameter:
			args.StateID = value
		case strings.HasPrefix(key, EventIDPrefix):
			// An explicit _eventId takes precedence over a button name.
			if args.EventID == "" {
				args.EventID = strings.TrimPrefix(key, EventIDPrefix)
			}
		default:
			args.Params[key] = value
		}
	}
	if v := r.Form.Get(EventIDParameter); v != "" {
		args.EventID = v
	}
	return args, nil
}

// EventParams converts the string parameters for an event.
func (a Arguments) EventParams() map[string]any {
	params := make(map[string]any, len(a.Params))
	for k, v := range a.Params {
		params[k] = v
	}
	return params
}

// externalContext exposes an HTTP request to flows.
type externalContext struct {
	params      map[string]string
	session     *domain.AttributeMap
	application *domain.AttributeMap
}

func (c *externalContext) RequestParameters() map[string]string { return c.params }
func (c *externalContext) SessionMap() *domain.AttributeMap     { return c.session }
func (c *externalContext) ApplicationMap() *domain.AttributeMap { return c.application }
