package mapping

import (
	"fmt"
	"sort"
	gosync "sync"
)

// ValueProcessor transforms one value. Unless it is a ContainerProcessor,
// the factory wraps it so that sequences and mappings are processed per
// leaf.
type ValueProcessor interface {
	Process(value any) (any, error)
}

// ContainerProcessor receives the whole current value, containers included.
type ContainerProcessor interface {
	ValueProcessor
	ProcessesContainers()
}

// ProcessorFunc adapts a plain function to ValueProcessor.
type ProcessorFunc func(value any) (any, error)

func (f ProcessorFunc) Process(value any) (any, error) {
	return f(value)
}

type containerFunc func(value any) (any, error)

func (f containerFunc) Process(value any) (any, error) {
	return f(value)
}

func (f containerFunc) ProcessesContainers() {}

type elementwiseProcessor struct {
	inner ValueProcessor
}

func (e elementwiseProcessor) Process(value any) (any, error) {
	return Elementwise(value, e.inner.Process)
}

// ProcessorConstructor builds a processor from the raw parameter text
// following `name:`. It must reject parameters it cannot use.
type ProcessorConstructor func(params string) (ValueProcessor, error)

// ProcessorFactory builds and caches value processors by spec.
type ProcessorFactory struct {
	constructors map[string]ProcessorConstructor
	cache        gosync.Map
}

// FactoryOption registers extra constructors on a processor or strategy factory.
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	processors map[string]ProcessorConstructor
	strategies map[string]StrategyConstructor
}

// WithProcessor adds or replaces a processor constructor. Names are
// matched case-insensitively.
func WithProcessor(name string, constructor ProcessorConstructor) FactoryOption {
	return func(o *factoryOptions) {
		if o.processors == nil {
			o.processors = make(map[string]ProcessorConstructor)
		}
		o.processors[name] = constructor
	}
}

// WithStrategy adds or replaces an aggregation strategy constructor.
func WithStrategy(name string, constructor StrategyConstructor) FactoryOption {
	return func(o *factoryOptions) {
		if o.strategies == nil {
			o.strategies = make(map[string]StrategyConstructor)
		}
		o.strategies[name] = constructor
	}
}

// NewProcessorFactory returns a factory holding the built-in processors plus any
// registered through WithProcessor.
func NewProcessorFactory(opts ...FactoryOption) *ProcessorFactory {
	var options factoryOptions
	for _, opt := range opts {
		opt(&options)
	}
	f := &ProcessorFactory{constructors: builtinProcessors()}
	for name, c := range options.processors {
		f.constructors[normalizeName(name)] = c
	}
	return f
}

// NewProcessor resolves spec to a processor. Constructed processors are
// immutable and cached by spec text.
func (f *ProcessorFactory) NewProcessor(spec Spec) (ValueProcessor, error) {
	cacheKey := spec.key() + ":" + spec.Params
	if cached, ok := f.cache.Load(cacheKey); ok {
		return cached.(ValueProcessor), nil
	}
	constructor, ok := f.constructors[spec.key()]
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownProcessor, spec.Name)
	}
	p, err := constructor(spec.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to construct processor '%s' %w", spec, err)
	}
	if _, ok := p.(ContainerProcessor); !ok {
		p = elementwiseProcessor{inner: p}
	}
	f.cache.Store(cacheKey, p)
	return p, nil
}

// Names lists the registered processor names in sorted order.
func (f *ProcessorFactory) Names() []string {
	return sortedNames(f.constructors)
}

func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func invalidParams(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}
