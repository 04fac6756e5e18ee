package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ParseDocument decodes JSON into a Document tree. Numbers are kept as
// json.Number so their literal text survives the round trip.
func ParseDocument(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("failed to decode document: trailing data after top-level value")
	}
	return doc, nil
}

// CopyDocument returns a deep copy of the object and array structure of doc.
// Scalars are immutable and shared.
func CopyDocument(doc any) any {
	switch v := doc.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, child := range v {
			result[k] = CopyDocument(child)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, child := range v {
			result[i] = CopyDocument(child)
		}
		return result
	default:
		return v
	}
}

// Elementwise applies fn to every leaf of value. Sequences and mappings are
// rebuilt, never mutated, so the input stays untouched.
func Elementwise(value any, fn func(any) (any, error)) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			r, err := Elementwise(item, fn)
			if err != nil {
				return nil, err
			}
			result[i] = r
		}
		return result, nil
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, item := range v {
			r, err := Elementwise(item, fn)
			if err != nil {
				return nil, err
			}
			result[k] = r
		}
		return result, nil
	default:
		return fn(v)
	}
}

func isSequence(value any) bool {
	_, ok := value.([]any)
	return ok
}

// emptyOrAllNil reports whether a resolved sequence carries nothing to map.
func emptyOrAllNil(value any) bool {
	seq, ok := value.([]any)
	if !ok {
		return false
	}
	for _, v := range seq {
		if v != nil {
			return false
		}
	}
	return true
}
