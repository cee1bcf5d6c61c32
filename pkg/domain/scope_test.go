package domain

import (
	"testing"
)

func TestAttributeMap(t *testing.T) {
	m := NewAttributeMap()
	m.Put("name", "ada")
	m.Put("count", 3)

	if got := m.Get("name"); got != "ada" {
		t.Errorf("Get(name) = %v, want ada", got)
	}
	if !m.Contains("count") {
		t.Error("expected count to be present")
	}
	if prev := m.Put("count", 4); prev != 3 {
		t.Errorf("Put returned %v, want previous value 3", prev)
	}
	if keys := m.Keys(); len(keys) != 2 || keys[0] != "count" || keys[1] != "name" {
		t.Errorf("Keys() = %v, want sorted [count name]", keys)
	}

	cp := m.AsMap()
	cp["name"] = "mutated"
	if m.Get("name") != "ada" {
		t.Error("AsMap must return a copy")
	}

	m.Remove("name")
	if m.Contains("name") || m.Size() != 1 {
		t.Errorf("Remove failed, map is %v", m)
	}
	m.Clear()
	if m.Size() != 0 {
		t.Errorf("Clear failed, size %d", m.Size())
	}
}

func TestTypedAccess(t *testing.T) {
	m := NewAttributeMapFrom(map[string]any{"age": 42, "nick": "x"})

	tests := []struct {
		name    string
		key     string
		wantOK  bool
		wantErr bool
	}{
		{name: "present int", key: "age", wantOK: true},
		{name: "wrong type", key: "nick", wantOK: false, wantErr: true},
		{name: "absent", key: "missing", wantOK: false, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Lookup[int](m, tt.key)
			if ok != tt.wantOK {
				t.Errorf("Lookup ok = %v, want %v", ok, tt.wantOK)
			}
			_, err := Required[int](m, tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("Required err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAttributeMap_Bind(t *testing.T) {
	type booking struct {
		Guests int    `mapstructure:"guests"`
		Hotel  string `mapstructure:"hotel"`
	}
	m := NewAttributeMapFrom(map[string]any{"guests": 2, "hotel": "Ritz"})

	var b booking
	if err := m.Bind(&b); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if b.Guests != 2 || b.Hotel != "Ritz" {
		t.Errorf("Bind produced %+v", b)
	}
}
