package machetli

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Codec converts between a State and its self-describing on-disk encoding.
// internal/statestore uses a Codec for every Write/Read/cluster task-file
// round trip; embedders may supply their own (for example encoding/json,
// for states they want to inspect by hand on a compute node) instead of the
// built-in GobCodec.
type Codec interface {
	Encode(state State) ([]byte, error)
	Decode(data []byte) (State, error)
}

// GobCodec is the default Codec, backed by encoding/gob. Concrete State
// implementations must be registered with gob.Register before they can be
// decoded through a GobCodec, because gob needs the concrete type to
// reconstruct a value behind the State interface.
type GobCodec struct{}

// NewGobCodec returns the default gob-backed Codec.
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

// Encode implements Codec.
func (GobCodec) Encode(state State) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&state); err != nil {
		return nil, fmt.Errorf("gob encode state: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode implements Codec.
func (GobCodec) Decode(data []byte) (State, error) {
	var state State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return nil, fmt.Errorf("gob decode state: %w", err)
	}
	return state, nil
}
