package mapping

import (
	"fmt"
	gosync "sync"
	"sync/atomic"
)

// Registry holds the current RuleSet per code. Readers load an immutable
// snapshot without locking; writers copy the snapshot, change the copy and
// swap it in, so a reader keeps the RuleSet it already obtained.
type Registry struct {
	mu       gosync.Mutex
	snapshot atomic.Pointer[map[string]*RuleSet]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := map[string]*RuleSet{}
	r.snapshot.Store(&empty)
	return r
}

// Register installs set, replacing any RuleSet with the same code.
func (r *Registry) Register(set *RuleSet) error {
	if set == nil || set.Code() == "" {
		return configError("", "code", fmt.Errorf("is required"))
	}
	r.update(func(m map[string]*RuleSet) {
		m[set.Code()] = set
	})
	return nil
}

// Clear removes the RuleSet for code, if any.
func (r *Registry) Clear(code string) {
	r.update(func(m map[string]*RuleSet) {
		delete(m, code)
	})
}

// ReplaceAll installs exactly sets, dropping every code not among them.
func (r *Registry) ReplaceAll(sets []*RuleSet) {
	next := make(map[string]*RuleSet, len(sets))
	for _, s := range sets {
		if s != nil && s.Code() != "" {
			next[s.Code()] = s
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.Store(&next)
}

// Get returns the rule set registered under code.
func (r *Registry) Get(code string) (*RuleSet, bool) {
	set, ok := r.current()[code]
	return set, ok
}

// Codes returns the registered codes in sorted order.
func (r *Registry) Codes() []string {
	return sortedNames(r.current())
}

// Len returns the number of registered rule sets.
func (r *Registry) Len() int {
	return len(r.current())
}

func (r *Registry) current() map[string]*RuleSet {
	if m := r.snapshot.Load(); m != nil {
		return *m
	}
	return nil
}

func (r *Registry) update(change func(map[string]*RuleSet)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.current()
	next := make(map[string]*RuleSet, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	change(next)
	r.snapshot.Store(&next)
}
