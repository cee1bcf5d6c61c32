package domain

// ViewSelection is the value a paused execution hands back to the host:
// a logical view name and the model to render it with.
// Physical template resolution belongs to the caller.
type ViewSelection struct {
	ViewName string         `json:"view_name,omitempty"`
	Model    map[string]any `json:"model,omitempty"`
	// Redirect asks the host to redirect before rendering (post/redirect/get).
	Redirect bool `json:"redirect,omitempty"`
}

// NullView is returned by marker view states that produced their output by other means.
var NullView = &ViewSelection{}

// IsNull reports whether the selection is the empty marker selection.
func (v *ViewSelection) IsNull() bool {
	return v == nil || v == NullView || (v.ViewName == "" && len(v.Model) == 0 && !v.Redirect)
}
