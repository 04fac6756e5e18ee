package mapping

import (
	"fmt"
)

// FieldRule binds one source path to one target path.
type FieldRule struct {
	SourcePath   Path
	TargetPath   Path
	Processors   []Spec
	Aggregations []Spec
}

// NewFieldRule parses both paths; either failing is a configuration error.
func NewFieldRule(sourcePath, targetPath string, processors, aggregations []string) (FieldRule, error) {
	var rule FieldRule
	src, err := ParsePath(sourcePath)
	if err != nil {
		return rule, configError("", "sourcePath", err)
	}
	dst, err := ParsePath(targetPath)
	if err != nil {
		return rule, configError("", "targetPath", err)
	}
	rule.SourcePath = src
	rule.TargetPath = dst
	rule.Processors = ParseSpecs(processors)
	rule.Aggregations = ParseSpecs(aggregations)
	return rule, nil
}

func (r FieldRule) String() string {
	return fmt.Sprintf("%s -> %s", r.SourcePath, r.TargetPath)
}

// RuleSet is the immutable collection of rules for one code.
type RuleSet struct {
	code   string
	rules  []FieldRule
	config RuleSetConfig
}

// NewRuleSet copies rules so later changes by the caller are not visible.
func NewRuleSet(code string, rules []FieldRule) (*RuleSet, error) {
	if code == "" {
		return nil, configError("", "code", fmt.Errorf("is required"))
	}
	if len(rules) == 0 {
		return nil, configError(code, "mappings", fmt.Errorf("at least one mapping is required"))
	}
	for i, r := range rules {
		if r.SourcePath.IsZero() || r.TargetPath.IsZero() {
			return nil, configError(code, fmt.Sprintf("mappings[%d]", i), fmt.Errorf("source and target paths are required"))
		}
	}
	return &RuleSet{code: code, rules: append([]FieldRule(nil), rules...)}, nil
}

// Code returns the rule set code.
func (s *RuleSet) Code() string {
	return s.code
}

// Rules returns the field rules in document order.
func (s *RuleSet) Rules() []FieldRule {
	return append([]FieldRule(nil), s.rules...)
}

func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Rule finds the rule writing to targetPath.
func (s *RuleSet) Rule(targetPath string) (FieldRule, bool) {
	for _, r := range s.rules {
		if r.TargetPath.String() == targetPath {
			return r, true
		}
	}
	return FieldRule{}, false
}

// Config returns the definition the rule set was compiled from, when it was
// compiled from one.
func (s *RuleSet) Config() RuleSetConfig {
	return s.config
}
