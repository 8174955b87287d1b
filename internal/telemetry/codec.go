package telemetry

import (
	"encoding/json"
	"fmt"
)

// Codec converts raw frames to events.
type Codec interface {
	Decode(frame []byte) (Event, error)
}

// Encoder converts events to raw frames.
type Encoder interface {
	Encode(ev Event) ([]byte, error)
}

// JSONCodec encodes events as JSON objects with a "kind" discriminant.
type JSONCodec struct{}

// Decode parses a JSON frame and validates the union.
func (JSONCodec) Decode(frame []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Encode validates ev and renders it as JSON.
func (JSONCodec) Encode(ev Event) ([]byte, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(ev)
}
