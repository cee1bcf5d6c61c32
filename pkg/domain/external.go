package domain

// ExternalContext exposes what the calling environment (HTTP, CLI, MCP) supplies with a request.
// The engine never parses transport input itself.
type ExternalContext interface {
	// RequestParameters returns the raw request parameters.
	RequestParameters() map[string]string
	// SessionMap is scoped to the user's session in the host environment.
	SessionMap() *AttributeMap
	// ApplicationMap is shared by all users of the host application.
	ApplicationMap() *AttributeMap
}

type basicExternalContext struct {
	params      map[string]string
	session     *AttributeMap
	application *AttributeMap
}

// NewExternalContext creates a simple ExternalContext with fresh session and application maps.
func NewExternalContext(params map[string]string) ExternalContext {
	if params == nil {
		params = make(map[string]string)
	}
	return &basicExternalContext{
		params:      params,
		session:     NewAttributeMap(),
		application: NewAttributeMap(),
	}
}

func (c *basicExternalContext) RequestParameters() map[string]string { return c.params }
func (c *basicExternalContext) SessionMap() *AttributeMap            { return c.session }
func (c *basicExternalContext) ApplicationMap() *AttributeMap        { return c.application }
