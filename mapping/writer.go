package mapping

import (
	"fmt"
)

// Write stores value at path inside target, creating missing objects and
// arrays on the way down. A wildcard segment addresses element zero of its
// array: intermediate wildcards descend into (or create) that element and a
// final wildcard replaces the array with a single-element array.
func Write(target any, path Path, value any) error {
	obj, ok := target.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: target is %T, not an object", ErrPathConflict, target)
	}
	if path.IsZero() {
		return fmt.Errorf("%w: empty target path", ErrInvalidPath)
	}
	return writeSegments(obj, path.segments, value, path.raw)
}

func writeSegments(current map[string]any, segments []Segment, value any, raw string) error {
	seg := segments[0]
	last := len(segments) == 1

	switch seg.Kind {
	case Plain:
		if last {
			current[seg.Key] = value
			return nil
		}
		child, exists := current[seg.Key]
		if !exists || child == nil {
			next := map[string]any{}
			current[seg.Key] = next
			return writeSegments(next, segments[1:], value, raw)
		}
		next, ok := child.(map[string]any)
		if !ok {
			return conflict(raw, seg, child)
		}
		return writeSegments(next, segments[1:], value, raw)

	case Wildcard:
		if last {
			current[seg.Key] = []any{value}
			return nil
		}
		arr, err := arrayAt(current, seg, raw)
		if err != nil {
			return err
		}
		if len(arr) == 0 {
			next := map[string]any{}
			current[seg.Key] = append(arr, next)
			return writeSegments(next, segments[1:], value, raw)
		}
		next, ok := arr[0].(map[string]any)
		if !ok {
			next = map[string]any{}
			arr[0] = next
		}
		return writeSegments(next, segments[1:], value, raw)

	case Index:
		arr, err := arrayAt(current, seg, raw)
		if err != nil {
			return err
		}
		for len(arr) <= seg.Index {
			if last {
				arr = append(arr, nil)
			} else {
				arr = append(arr, map[string]any{})
			}
		}
		current[seg.Key] = arr
		if last {
			arr[seg.Index] = value
			return nil
		}
		next, ok := arr[seg.Index].(map[string]any)
		if !ok {
			next = map[string]any{}
			arr[seg.Index] = next
		}
		return writeSegments(next, segments[1:], value, raw)
	}
	return fmt.Errorf("%w: unsupported segment '%s'", ErrInvalidPath, seg)
}

// arrayAt returns the array stored under seg.Key, creating an empty one
// when the key is missing or null.
func arrayAt(current map[string]any, seg Segment, raw string) ([]any, error) {
	child, exists := current[seg.Key]
	if !exists || child == nil {
		arr := []any{}
		current[seg.Key] = arr
		return arr, nil
	}
	arr, ok := child.([]any)
	if !ok {
		return nil, conflict(raw, seg, child)
	}
	return arr, nil
}

func conflict(raw string, seg Segment, existing any) error {
	return fmt.Errorf("%w: '%s' at segment '%s' holds %T", ErrPathConflict, raw, seg, existing)
}
