package execution

import (
	"fmt"
)

// Codec turns executions into bytes for a storage backend and back.
// Decoded executions are not hydrated.
type Codec interface {
	Name() string
	Encode(e *FlowExecution) ([]byte, error)
	Decode(data []byte) (*FlowExecution, error)
}

// GobCodec is the default codec. It preserves Go types of flow scope values.
type GobCodec struct{}

func (GobCodec) Name() string { return "gob" }

func (GobCodec) Encode(e *FlowExecution) ([]byte, error) { return e.MarshalBinary() }

func (GobCodec) Decode(data []byte) (*FlowExecution, error) {
	e := &FlowExecution{}
	if err := e.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return e, nil
}

// JSONCodec produces human readable snapshots. Numbers in flow scope decode as float64.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(e *FlowExecution) ([]byte, error) { return e.MarshalJSON() }

func (JSONCodec) Decode(data []byte) (*FlowExecution, error) {
	e := &FlowExecution{}
	if err := e.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return e, nil
}

// CodecByName returns the codec registered under name ("gob" or "json").
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "gob":
		return GobCodec{}, nil
	case "json":
		return JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
