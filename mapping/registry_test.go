package mapping

import (
	"fmt"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRuleSet(t *testing.T, code string, pairs ...string) *RuleSet {
	t.Helper()
	var rules []FieldRule
	for i := 0; i+1 < len(pairs); i += 2 {
		rule, err := NewFieldRule(pairs[i], pairs[i+1], nil, nil)
		require.NoError(t, err)
		rules = append(rules, rule)
	}
	set, err := NewRuleSet(code, rules)
	require.NoError(t, err)
	return set
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := testRuleSet(t, "a", "x", "y")
	b := testRuleSet(t, "b", "x", "y")

	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))
	assert.Equal(t, []string{"a", "b"}, r.Codes())

	got, ok := r.Get("a")
	assert.True(t, ok)
	assert.Same(t, a, got)

	replacement := testRuleSet(t, "a", "p", "q")
	require.NoError(t, r.Register(replacement))
	got, _ = r.Get("a")
	assert.Same(t, replacement, got)

	r.Clear("a")
	_, ok = r.Get("a")
	assert.False(t, ok)
	r.Clear("missing")
	assert.Equal(t, 1, r.Len())

	r.ReplaceAll([]*RuleSet{a, nil})
	assert.Equal(t, []string{"a"}, r.Codes())

	assert.ErrorIs(t, r.Register(nil), ErrInvalidConfig)
}

func TestRegistry_ZeroValue(t *testing.T) {
	var r Registry
	_, ok := r.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
	require.NoError(t, r.Register(testRuleSet(t, "a", "x", "y")))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_SnapshotSurvivesReplacement(t *testing.T) {
	r := NewRegistry()
	old := testRuleSet(t, "a", "x", "y")
	require.NoError(t, r.Register(old))

	held, _ := r.Get("a")
	require.NoError(t, r.Register(testRuleSet(t, "a", "p", "q")))
	assert.Same(t, old, held)
	assert.Equal(t, "y", held.Rules()[0].TargetPath.String())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg gosync.WaitGroup
	sets := make([]*RuleSet, 10)
	for i := range sets {
		sets[i] = testRuleSet(t, fmt.Sprintf("c%d", i), "x", "y")
	}
	for w := 0; w < 8; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				set := sets[i%10]
				_ = r.Register(set)
				if i%7 == 0 {
					r.Clear(set.Code())
				}
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if set, ok := r.Get(fmt.Sprintf("c%d", i%10)); ok {
					assert.Equal(t, 1, set.Len())
				}
				_ = r.Codes()
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, r.Len(), 10)
}
