package mapping

import (
	"fmt"
	"strconv"
	"strings"
)

// SegmentKind distinguishes plain key, index and wildcard segments.
type SegmentKind int

const (
	Plain SegmentKind = iota
	Index
	Wildcard
)

// Segment is one dot-separated step of a path expression.
type Segment struct {
	Key   string
	Kind  SegmentKind
	Index int
}

func (s Segment) String() string {
	switch s.Kind {
	case Index:
		return fmt.Sprintf("%s[%d]", s.Key, s.Index)
	case Wildcard:
		return s.Key + "[*]"
	}
	return s.Key
}

// Path is a parsed path expression such as `$.orders[*].items[0].sku`.
type Path struct {
	raw      string
	segments []Segment
}

// ParsePath splits a path expression into segments. A leading `$` root
// marker is ignored.
func ParsePath(expr string) (Path, error) {
	raw := expr
	expr = strings.TrimSpace(expr)
	expr = strings.TrimPrefix(expr, "$")
	expr = strings.TrimPrefix(expr, ".")
	if expr == "" {
		return Path{}, fmt.Errorf("%w: '%s' is empty", ErrInvalidPath, raw)
	}
	parts := strings.Split(expr, ".")
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return Path{}, fmt.Errorf("%w: '%s': %v", ErrInvalidPath, raw, err)
		}
		segments = append(segments, seg)
	}
	return Path{raw: raw, segments: segments}, nil
}

// MustParsePath is ParsePath for expressions known to be valid.
func MustParsePath(expr string) Path {
	p, err := ParsePath(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(part string) (Segment, error) {
	if part == "" {
		return Segment{}, fmt.Errorf("empty segment")
	}
	open := strings.IndexByte(part, '[')
	if open < 0 {
		if strings.IndexByte(part, ']') >= 0 {
			return Segment{}, fmt.Errorf("unbalanced ']' in segment '%s'", part)
		}
		return Segment{Key: part, Kind: Plain}, nil
	}
	if open == 0 {
		return Segment{}, fmt.Errorf("segment '%s' has no key", part)
	}
	if !strings.HasSuffix(part, "]") || strings.Count(part, "[") != 1 || strings.Count(part, "]") != 1 {
		return Segment{}, fmt.Errorf("malformed brackets in segment '%s'", part)
	}
	key := part[:open]
	inner := strings.TrimSpace(part[open+1 : len(part)-1])
	if inner == "*" {
		return Segment{Key: key, Kind: Wildcard}, nil
	}
	n, err := strconv.Atoi(inner)
	if err != nil || n < 0 {
		return Segment{}, fmt.Errorf("invalid index '%s' in segment '%s'", inner, part)
	}
	return Segment{Key: key, Kind: Index, Index: n}, nil
}

func (p Path) String() string {
	return p.raw
}

// Segments returns a copy of the parsed segments.
func (p Path) Segments() []Segment {
	return append([]Segment(nil), p.segments...)
}

// IsZero reports whether p was never parsed.
func (p Path) IsZero() bool {
	return len(p.segments) == 0
}

// HasWildcard reports whether reading the path fans out into a sequence.
func (p Path) HasWildcard() bool {
	for _, s := range p.segments {
		if s.Kind == Wildcard {
			return true
		}
	}
	return false
}
