package mapping

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Executor runs the rule set registered for a code against a source
// document. It holds no per-call state and is safe for concurrent use.
type Executor struct {
	registry   *Registry
	processors *ProcessorFactory
	strategies *StrategyFactory
	logger     *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the logger for skipped fields and failed steps.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProcessorFactory replaces the default processor factory.
func WithProcessorFactory(f *ProcessorFactory) ExecutorOption {
	return func(e *Executor) {
		if f != nil {
			e.processors = f
		}
	}
}

// WithStrategyFactory replaces the default strategy factory.
func WithStrategyFactory(f *StrategyFactory) ExecutorOption {
	return func(e *Executor) {
		if f != nil {
			e.strategies = f
		}
	}
}

// NewExecutor returns an Executor that looks rule sets up in registry.
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:   registry,
		processors: NewProcessorFactory(),
		strategies: NewStrategyFactory(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute maps source onto a private copy of template. It fails only when
// no rule set is registered for code or when the inputs are not documents;
// fields that cannot be mapped are skipped and reported.
func (e *Executor) Execute(code string, source, template any) (any, InvalidFieldSet, error) {
	set, ok := e.registry.Get(code)
	if !ok {
		return nil, InvalidFieldSet{}, fmt.Errorf("%w: '%s'", ErrRuleSetNotFound, code)
	}
	src, err := SourceFromDocument(source)
	if err != nil {
		return nil, InvalidFieldSet{}, err
	}
	return e.Run(set, src, template)
}

// ExecuteJSON is Execute for encoded documents. An empty template means {}.
func (e *Executor) ExecuteJSON(code string, source, template []byte) ([]byte, InvalidFieldSet, error) {
	set, ok := e.registry.Get(code)
	if !ok {
		return nil, InvalidFieldSet{}, fmt.Errorf("%w: '%s'", ErrRuleSetNotFound, code)
	}
	src, err := NewSource(source)
	if err != nil {
		return nil, InvalidFieldSet{}, err
	}
	var tmpl any
	if len(template) > 0 {
		tmpl, err = ParseDocument(template)
		if err != nil {
			return nil, InvalidFieldSet{}, fmt.Errorf("failed to read target template %w", err)
		}
	}
	result, invalid, err := e.Run(set, src, tmpl)
	if err != nil {
		return nil, invalid, err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, invalid, fmt.Errorf("failed to encode result %w", err)
	}
	return raw, invalid, nil
}

// Run evaluates every rule of set in order. template is copied, never
// modified; nil means an empty object.
func (e *Executor) Run(set *RuleSet, src Source, template any) (any, InvalidFieldSet, error) {
	var invalid InvalidFieldSet
	var target map[string]any
	switch t := template.(type) {
	case nil:
		target = map[string]any{}
	case map[string]any:
		target = CopyDocument(t).(map[string]any)
	default:
		return nil, invalid, fmt.Errorf("target template is %T, not an object", template)
	}
	for _, rule := range set.rules {
		e.applyRule(set.code, rule, src, target, &invalid)
	}
	return target, invalid, nil
}

func (e *Executor) applyRule(code string, rule FieldRule, src Source, target map[string]any, invalid *InvalidFieldSet) {
	log := e.logger.With(
		slog.String("code", code),
		slog.String("sourcePath", rule.SourcePath.String()),
		slog.String("targetPath", rule.TargetPath.String()),
	)

	value, found := src.Read(rule.SourcePath)
	switch {
	case !found:
		log.Debug("skipping field, source path not found")
		invalid.Add(rule.SourcePath.String(), ReasonNotFound)
		return
	case value == nil:
		log.Debug("skipping field, source value is null")
		invalid.Add(rule.SourcePath.String(), ReasonNull)
		return
	case emptyOrAllNil(value):
		log.Debug("skipping field, source sequence is empty")
		invalid.Add(rule.SourcePath.String(), ReasonEmptySequence)
		return
	}

	if ShouldAggregateFirst(rule.Aggregations) {
		value = e.aggregate(log, rule.Aggregations, value)
		value = e.process(log, rule.Processors, value)
	} else {
		value = e.process(log, rule.Processors, value)
		value = e.aggregate(log, rule.Aggregations, value)
	}

	if err := Write(target, rule.TargetPath, value); err != nil {
		log.Warn("skipping field, write failed", slog.Any("value", value), slog.String("error", err.Error()))
		invalid.Add(rule.SourcePath.String(), ReasonWriteFailed)
	}
}

// process applies specs one at a time. A spec that cannot be built or
// fails leaves the value as it was before that spec.
func (e *Executor) process(log *slog.Logger, specs []Spec, value any) any {
	for _, spec := range specs {
		p, err := e.processors.NewProcessor(spec)
		if err != nil {
			log.Warn("skipping processor", slog.String("processor", spec.String()), slog.String("error", err.Error()))
			continue
		}
		result, err := p.Process(value)
		if err != nil {
			log.Warn("skipping processor", slog.String("processor", spec.String()), slog.Any("value", value), slog.String("error", err.Error()))
			continue
		}
		value = result
	}
	return value
}

func (e *Executor) aggregate(log *slog.Logger, specs []Spec, value any) any {
	for _, spec := range specs {
		if !isSequence(value) {
			return value
		}
		s, err := e.strategies.NewStrategy(spec)
		if err != nil {
			log.Warn("skipping strategy", slog.String("strategy", spec.String()), slog.String("error", err.Error()))
			continue
		}
		result, err := Aggregate(s, value)
		if err != nil {
			log.Warn("skipping strategy", slog.String("strategy", spec.String()), slog.Any("value", value), slog.String("error", err.Error()))
			continue
		}
		value = result
	}
	return value
}
