// Package mapping maps source documents onto target documents using rule
// sets of path based field rules with processor and aggregation chains.
package mapping

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
)

// RuleDocRow represents a single row in the rule set documentation.
type RuleDocRow struct {
	TargetPath   string
	SourcePath   string
	Processors   string
	Aggregations string
	Order        string // "aggregate first" or "process first", empty without aggregations
	Notes        string
}

// RuleDocumentation contains the documentation rows for one rule set.
type RuleDocumentation struct {
	Code string
	Rows []RuleDocRow
}

type docOptions struct {
	processors *ProcessorFactory
	strategies *StrategyFactory
	sorted     bool
}

// DocOption configures GenerateRuleDocumentation.
type DocOption func(*docOptions)

// DocWithFactories checks every spec against the factories and notes the
// ones that cannot be constructed.
func DocWithFactories(processors *ProcessorFactory, strategies *StrategyFactory) DocOption {
	return func(o *docOptions) {
		o.processors = processors
		o.strategies = strategies
	}
}

// DocSortedByTarget orders rows by target path instead of rule order.
func DocSortedByTarget() DocOption {
	return func(o *docOptions) {
		o.sorted = true
	}
}

// GenerateRuleDocumentation generates documentation rows for set.
func GenerateRuleDocumentation(set *RuleSet, opts ...DocOption) RuleDocumentation {
	var options docOptions
	for _, opt := range opts {
		opt(&options)
	}
	doc := RuleDocumentation{
		Code: set.Code(),
		Rows: []RuleDocRow{},
	}
	for _, rule := range set.rules {
		doc.Rows = append(doc.Rows, createRuleDocRow(rule, options))
	}
	if options.sorted {
		sort.SliceStable(doc.Rows, func(i, j int) bool {
			return doc.Rows[i].TargetPath < doc.Rows[j].TargetPath
		})
	}
	return doc
}

func createRuleDocRow(rule FieldRule, options docOptions) RuleDocRow {
	row := RuleDocRow{
		TargetPath:   rule.TargetPath.String(),
		SourcePath:   rule.SourcePath.String(),
		Processors:   joinSpecs(rule.Processors),
		Aggregations: joinSpecs(rule.Aggregations),
	}
	if len(rule.Aggregations) > 0 {
		if ShouldAggregateFirst(rule.Aggregations) {
			row.Order = "aggregate first"
		} else {
			row.Order = "process first"
		}
	}

	notes := []string{}
	if rule.SourcePath.HasWildcard() {
		notes = append(notes, "Reads a sequence")
	}
	if rule.TargetPath.HasWildcard() {
		notes = append(notes, "Writes into element zero")
	}
	if options.processors != nil {
		for _, spec := range rule.Processors {
			if _, err := options.processors.NewProcessor(spec); err != nil {
				notes = append(notes, fmt.Sprintf("Processor %s is skipped (%v)", spec, err))
			}
		}
	}
	if options.strategies != nil {
		for _, spec := range rule.Aggregations {
			if _, err := options.strategies.NewStrategy(spec); err != nil {
				notes = append(notes, fmt.Sprintf("Strategy %s is skipped (%v)", spec, err))
			}
		}
	}
	row.Notes = strings.Join(notes, " | ")
	return row
}

func joinSpecs(specs []Spec) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = s.String()
	}
	return strings.Join(parts, " > ")
}

// FormatCSV formats the rule documentation as CSV.
func (d RuleDocumentation) FormatCSV() (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{fmt.Sprintf("# Rule set: %s", d.Code)}); err != nil {
		return "", err
	}
	headers := []string{"Target Path", "Source Path", "Processors", "Aggregations", "Order", "Notes"}
	if err := writer.Write(headers); err != nil {
		return "", err
	}
	for _, row := range d.Rows {
		record := []string{row.TargetPath, row.SourcePath, row.Processors, row.Aggregations, row.Order, row.Notes}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
