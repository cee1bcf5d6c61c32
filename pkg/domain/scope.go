package domain

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// ScopeType identifies the lifetime of an AttributeMap.
type ScopeType string

const (
	// RequestScope lives for the processing of a single external event.
	RequestScope ScopeType = "request"
	// FlowScope lives as long as the flow session that owns it.
	FlowScope ScopeType = "flow"
)

// AttributeMap is a mutable key/value container used for request and flow scope.
// It is not safe for concurrent use: access is serialized by the owning flow execution.
// Values stored in flow scope must be gob-encodable for the execution to be persisted.
type AttributeMap struct {
	values map[string]any
}

// NewAttributeMap creates an empty attribute map.
func NewAttributeMap() *AttributeMap {
	return &AttributeMap{values: make(map[string]any)}
}

// NewAttributeMapFrom creates an attribute map seeded with a copy of the given values.
func NewAttributeMapFrom(values map[string]any) *AttributeMap {
	m := NewAttributeMap()
	m.PutAll(values)
	return m
}

// Get returns the value stored under key, or nil.
func (m *AttributeMap) Get(key string) any {
	return m.values[key]
}

// Contains reports whether key is present (even if its value is nil).
func (m *AttributeMap) Contains(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Put stores a value and returns the previous one.
func (m *AttributeMap) Put(key string, value any) any {
	prev := m.values[key]
	m.values[key] = value
	return prev
}

// PutAll copies every entry of values into the map.
func (m *AttributeMap) PutAll(values map[string]any) {
	for k, v := range values {
		m.values[k] = v
	}
}

// Remove deletes key and returns the value it held.
func (m *AttributeMap) Remove(key string) any {
	prev := m.values[key]
	delete(m.values, key)
	return prev
}

// Clear removes every attribute.
func (m *AttributeMap) Clear() {
	m.values = make(map[string]any)
}

// Size returns the number of attributes.
func (m *AttributeMap) Size() int {
	return len(m.values)
}

// Keys returns the attribute names in lexical order.
func (m *AttributeMap) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsMap returns a shallow copy of the attributes.
func (m *AttributeMap) AsMap() map[string]any {
	cp := make(map[string]any, len(m.values))
	for k, v := range m.values {
		cp[k] = v
	}
	return cp
}

// Bind decodes the attributes onto a struct using mapstructure tags.
func (m *AttributeMap) Bind(target any) error {
	if err := mapstructure.Decode(m.values, target); err != nil {
		return fmt.Errorf("failed to bind attributes: %w", err)
	}
	return nil
}

func (m *AttributeMap) String() string {
	return fmt.Sprintf("%v", m.values)
}

// Lookup returns the value under key converted to T.
// The boolean is false when the key is absent or holds a value of another type.
func Lookup[T any](m *AttributeMap, key string) (T, bool) {
	var zero T
	raw, ok := m.values[key]
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

// Required returns the value under key converted to T, or an error naming the key.
func Required[T any](m *AttributeMap, key string) (T, error) {
	var zero T
	raw, ok := m.values[key]
	if !ok {
		return zero, fmt.Errorf("required attribute %q is not present", key)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("attribute %q is a %T, not a %T", key, raw, zero)
	}
	return v, nil
}
