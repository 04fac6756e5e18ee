package mapping

import (
	"fmt"
	gosync "sync"
)

// AggregationStrategy reduces a sequence to a single value.
type AggregationStrategy interface {
	Apply(values []any) (any, error)
}

// StrategyFunc adapts a plain function to AggregationStrategy.
type StrategyFunc func(values []any) (any, error)

func (f StrategyFunc) Apply(values []any) (any, error) {
	return f(values)
}

// StrategyConstructor builds a strategy from the text after the colon in a spec.
type StrategyConstructor func(params string) (AggregationStrategy, error)

// StrategyFactory builds and caches aggregation strategies by spec.
type StrategyFactory struct {
	constructors map[string]StrategyConstructor
	cache        gosync.Map
}

// NewStrategyFactory returns a factory holding the built-in strategies plus any
// registered through WithStrategy.
func NewStrategyFactory(opts ...FactoryOption) *StrategyFactory {
	var options factoryOptions
	for _, opt := range opts {
		opt(&options)
	}
	f := &StrategyFactory{constructors: builtinStrategies()}
	for name, c := range options.strategies {
		f.constructors[normalizeName(name)] = c
	}
	return f
}

// NewStrategy returns the strategy for spec, reusing a cached instance.
func (f *StrategyFactory) NewStrategy(spec Spec) (AggregationStrategy, error) {
	cacheKey := spec.key() + ":" + spec.Params
	if cached, ok := f.cache.Load(cacheKey); ok {
		return cached.(AggregationStrategy), nil
	}
	constructor, ok := f.constructors[spec.key()]
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownStrategy, spec.Name)
	}
	s, err := constructor(spec.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to construct strategy '%s' %w", spec, err)
	}
	f.cache.Store(cacheKey, s)
	return s, nil
}

// Names lists the registered strategy names, sorted.
func (f *StrategyFactory) Names() []string {
	return sortedNames(f.constructors)
}

// Aggregate applies strategy when value is a sequence; anything else is
// returned unchanged.
func Aggregate(strategy AggregationStrategy, value any) (any, error) {
	seq, ok := value.([]any)
	if !ok {
		return value, nil
	}
	return strategy.Apply(seq)
}
