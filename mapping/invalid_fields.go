package mapping

import (
	"encoding/json"
)

// SkipReason says why a field was left out of the target.
type SkipReason string

const (
	ReasonNotFound      SkipReason = "not found"
	ReasonNull          SkipReason = "null value"
	ReasonEmptySequence SkipReason = "empty sequence"
	ReasonWriteFailed   SkipReason = "write failed"
)

// InvalidFieldSet records, in first-seen order, the source paths whose
// fields were skipped during one execution.
type InvalidFieldSet struct {
	paths   []string
	reasons map[string]SkipReason
}

// Add records sourcePath once; later reasons for the same path are ignored.
func (s *InvalidFieldSet) Add(sourcePath string, reason SkipReason) {
	if s.reasons == nil {
		s.reasons = make(map[string]SkipReason)
	}
	if _, exists := s.reasons[sourcePath]; exists {
		return
	}
	s.reasons[sourcePath] = reason
	s.paths = append(s.paths, sourcePath)
}

// Paths returns the skipped source paths in the order they were added.
func (s InvalidFieldSet) Paths() []string {
	return append([]string{}, s.paths...)
}

// Contains reports whether sourcePath was skipped.
func (s InvalidFieldSet) Contains(sourcePath string) bool {
	_, ok := s.reasons[sourcePath]
	return ok
}

// Reason returns why sourcePath was skipped.
func (s InvalidFieldSet) Reason(sourcePath string) (SkipReason, bool) {
	r, ok := s.reasons[sourcePath]
	return r, ok
}

func (s InvalidFieldSet) Len() int {
	return len(s.paths)
}

// MarshalJSON encodes the set as an array of source paths.
func (s InvalidFieldSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Paths())
}
