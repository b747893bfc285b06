package memory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Shape identifies which wire variant a collection payload arrived in.
type Shape int

const (
	// ShapeUnknown is the zero value; a decoded Collection never carries it.
	ShapeUnknown Shape = iota

	// ShapeArray is a bare JSON array of records.
	ShapeArray

	// ShapeEnvelope is an object whose "results" field holds the records.
	ShapeEnvelope
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeEnvelope:
		return "envelope"
	default:
		return "unknown"
	}
}

// ErrUnknownShape is returned when a list payload matches neither variant.
var ErrUnknownShape = errors.New("unrecognized collection shape")

// Collection is the list payload returned by the service, tagged with the
// variant it was decoded from. Consumers call Records and never probe the
// raw shape themselves.
type Collection struct {
	shape   Shape
	records []Record
}

// NewArrayCollection builds a collection in the bare-array variant.
func NewArrayCollection(records []Record) Collection {
	return Collection{shape: ShapeArray, records: records}
}

// NewEnvelopeCollection builds a collection in the {results: [...]} variant.
func NewEnvelopeCollection(records []Record) Collection {
	return Collection{shape: ShapeEnvelope, records: records}
}

// Shape returns the variant the collection was decoded from.
func (c Collection) Shape() Shape {
	return c.shape
}

// Records returns the normalized record sequence. It is never nil for a
// decoded collection, so callers can range and len without checks.
func (c Collection) Records() []Record {
	switch c.shape {
	case ShapeArray, ShapeEnvelope:
		if c.records == nil {
			return []Record{}
		}
		return c.records
	default:
		return []Record{}
	}
}

// envelope is the object form of a list payload. The service wraps every
// response as {"status": ..., "data": ...}; mem0 itself answers with
// {"results": [...]}. Both are accepted.
type envelope struct {
	Results json.RawMessage `json:"results"`
	Data    json.RawMessage `json:"data"`
}

// DecodeCollection resolves a raw list payload into its variant.
func DecodeCollection(data []byte) (Collection, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Collection{}, fmt.Errorf("%w: empty payload", ErrUnknownShape)
	}

	switch trimmed[0] {
	case '[':
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return Collection{}, fmt.Errorf("decoding record array: %w", err)
		}
		return NewArrayCollection(records), nil

	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return Collection{}, fmt.Errorf("decoding collection envelope: %w", err)
		}

		switch {
		case env.Results != nil:
			var records []Record
			if err := json.Unmarshal(env.Results, &records); err != nil {
				return Collection{}, fmt.Errorf("decoding envelope results: %w", err)
			}
			return NewEnvelopeCollection(records), nil
		case env.Data != nil:
			return DecodeCollection(env.Data)
		default:
			return Collection{}, fmt.Errorf("%w: object without results", ErrUnknownShape)
		}

	case 'n':
		if bytes.Equal(trimmed, []byte("null")) {
			return NewArrayCollection(nil), nil
		}
	}

	return Collection{}, fmt.Errorf("%w: leading %q", ErrUnknownShape, trimmed[0])
}
