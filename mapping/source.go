package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Source is a read-only view over a source document.
type Source struct {
	data gjson.Result
}

// NewSource wraps raw JSON. The bytes must stay unchanged while the Source
// is in use.
func NewSource(raw []byte) (Source, error) {
	if !gjson.ValidBytes(raw) {
		return Source{}, fmt.Errorf("failed to read source: invalid JSON")
	}
	return Source{data: gjson.ParseBytes(raw)}, nil
}

// SourceFromDocument encodes a Document tree and wraps the result.
func SourceFromDocument(doc any) (Source, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return Source{}, fmt.Errorf("failed to encode source document %w", err)
	}
	return Source{data: gjson.ParseBytes(raw)}, nil
}

// Read resolves path against the source. A path with a wildcard yields a
// flat []any collected across every matching array element, in element
// order. Missing keys and type mismatches report found == false.
func (s Source) Read(path Path) (any, bool) {
	if path.IsZero() {
		return nil, false
	}
	if !path.HasWildcard() {
		r, ok := resolveSingle(s.data, path.segments)
		if !ok {
			return nil, false
		}
		return documentValue(r), true
	}
	results, ok := resolveAll(s.data, path.segments)
	if !ok {
		return nil, false
	}
	values := make([]any, len(results))
	for i, r := range results {
		values[i] = documentValue(r)
	}
	return values, true
}

// Read is a convenience for a one-off lookup against a Document tree.
func Read(doc any, path Path) (any, bool) {
	s, err := SourceFromDocument(doc)
	if err != nil {
		return nil, false
	}
	return s.Read(path)
}

func resolveSingle(r gjson.Result, segments []Segment) (gjson.Result, bool) {
	current := r
	for _, seg := range segments {
		next, ok := field(current, seg.Key)
		if !ok {
			return gjson.Result{}, false
		}
		if seg.Kind == Index {
			next, ok = element(next, seg.Index)
			if !ok {
				return gjson.Result{}, false
			}
		}
		current = next
	}
	return current, true
}

// resolveAll walks segments, fanning out at every wildcard. found is false
// only when the walk fails before the first wildcard; below a wildcard,
// elements that do not resolve contribute nothing.
func resolveAll(r gjson.Result, segments []Segment) ([]gjson.Result, bool) {
	current := r
	for i, seg := range segments {
		next, ok := field(current, seg.Key)
		if !ok {
			return nil, false
		}
		switch seg.Kind {
		case Index:
			next, ok = element(next, seg.Index)
			if !ok {
				return nil, false
			}
		case Wildcard:
			if !next.IsArray() {
				return nil, false
			}
			rest := segments[i+1:]
			var results []gjson.Result
			next.ForEach(func(_, item gjson.Result) bool {
				if len(rest) == 0 {
					results = append(results, item)
					return true
				}
				if found, ok := resolveAll(item, rest); ok {
					results = append(results, found...)
				}
				return true
			})
			if results == nil {
				results = []gjson.Result{}
			}
			return results, true
		}
		current = next
	}
	return []gjson.Result{current}, true
}

// field looks key up by exact comparison so keys containing gjson path
// syntax need no escaping.
func field(r gjson.Result, key string) (gjson.Result, bool) {
	if !r.IsObject() {
		return gjson.Result{}, false
	}
	var result gjson.Result
	found := false
	r.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			result = v
			found = true
		}
		return true
	})
	return result, found
}

func element(r gjson.Result, index int) (gjson.Result, bool) {
	if !r.IsArray() {
		return gjson.Result{}, false
	}
	items := r.Array()
	if index >= len(items) {
		return gjson.Result{}, false
	}
	return items[index], true
}

// documentValue converts a gjson result into a Document value.
func documentValue(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return json.Number(r.Raw)
	case gjson.String:
		return r.Str
	}
	if r.IsArray() {
		items := r.Array()
		result := make([]any, len(items))
		for i, item := range items {
			result[i] = documentValue(item)
		}
		return result
	}
	if r.IsObject() {
		result := make(map[string]any)
		r.ForEach(func(k, v gjson.Result) bool {
			result[k.String()] = documentValue(v)
			return true
		})
		return result
	}
	return nil
}
