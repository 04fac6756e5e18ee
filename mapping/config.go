package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	gosync "sync"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// MappingsForm records whether a document listed its mappings as an array or an object.
type MappingsForm int

const (
	ArrayForm MappingsForm = iota
	ObjectForm
)

// FieldRuleConfig is one mapping entry of a rule set document.
type FieldRuleConfig struct {
	SourcePath            string   `json:"sourcePath" yaml:"sourcePath"`
	TargetPath            string   `json:"targetPath" yaml:"targetPath"`
	Processors            []string `json:"processors,omitempty" yaml:"processors,omitempty"`
	AggregationStrategies []string `json:"aggregationStrategies,omitempty" yaml:"aggregationStrategies,omitempty"`
}

// RuleSetConfig is the parsed, not yet compiled, rule set document.
type RuleSetConfig struct {
	Code     string
	Mappings []FieldRuleConfig
	Form     MappingsForm
}

const ruleSetSchema = `{
  "type": "object",
  "required": ["code", "mappings"],
  "properties": {
    "code": {"type": "string", "minLength": 1},
    "mappings": {
      "oneOf": [
        {"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/mapping"}},
        {"type": "object", "minProperties": 1, "additionalProperties": {"$ref": "#/definitions/entry"}}
      ]
    }
  },
  "definitions": {
    "mapping": {
      "type": "object",
      "required": ["sourcePath", "targetPath"],
      "properties": {
        "sourcePath": {"type": "string", "minLength": 1},
        "targetPath": {"type": "string", "minLength": 1},
        "processors": {"type": ["array", "null"]},
        "aggregationStrategies": {"type": ["array", "null"]}
      }
    },
    "entry": {
      "type": "object",
      "required": ["sourcePath"],
      "properties": {
        "sourcePath": {"type": "string", "minLength": 1},
        "targetPath": {"type": "string"},
        "processors": {"type": ["array", "null"]},
        "aggregationStrategies": {"type": ["array", "null"]}
      }
    }
  }
}`

var (
	schemaOnce gosync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func ruleSetJSONSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(ruleSetSchema))
	})
	return schema, schemaErr
}

// ParseRuleSet chooses the decoder from the file extension; anything that
// is not .yaml or .yml is read as JSON.
func ParseRuleSet(name string, data []byte) (RuleSetConfig, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return ParseRuleSetYAML(data)
	}
	return ParseRuleSetJSON(data)
}

// ParseRuleSetJSON validates the document shape and reads it in document
// order. Spec entries that are not non-empty strings are dropped.
func ParseRuleSetJSON(data []byte) (RuleSetConfig, error) {
	var result RuleSetConfig
	if !gjson.ValidBytes(data) {
		return result, configError("", "", fmt.Errorf("document is not valid JSON"))
	}
	doc := gjson.ParseBytes(data)
	code := doc.Get("code").String()
	if err := validateRuleSetDocument(code, data); err != nil {
		return result, err
	}
	result.Code = code

	mappings := doc.Get("mappings")
	if mappings.IsArray() {
		result.Form = ArrayForm
		mappings.ForEach(func(_, item gjson.Result) bool {
			result.Mappings = append(result.Mappings, fieldRuleConfig(item, item.Get("targetPath").String()))
			return true
		})
		return result, nil
	}

	result.Form = ObjectForm
	positions := make(map[string]int)
	mappings.ForEach(func(key, item gjson.Result) bool {
		target := key.String()
		entry := fieldRuleConfig(item, target)
		if i, seen := positions[target]; seen {
			result.Mappings[i] = entry
			return true
		}
		positions[target] = len(result.Mappings)
		result.Mappings = append(result.Mappings, entry)
		return true
	})
	return result, nil
}

func validateRuleSetDocument(code string, data []byte) error {
	s, err := ruleSetJSONSchema()
	if err != nil {
		return fmt.Errorf("failed to load rule set schema %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return configError(code, "", err)
	}
	if res.Valid() {
		return nil
	}
	problems := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	field := ""
	if len(res.Errors()) > 0 {
		field = res.Errors()[0].Field()
	}
	return configError(code, field, fmt.Errorf("%s", strings.Join(problems, "; ")))
}

func fieldRuleConfig(item gjson.Result, targetPath string) FieldRuleConfig {
	return FieldRuleConfig{
		SourcePath:            item.Get("sourcePath").String(),
		TargetPath:            targetPath,
		Processors:            specStrings(item.Get("processors")),
		AggregationStrategies: specStrings(item.Get("aggregationStrategies")),
	}
}

func specStrings(list gjson.Result) []string {
	var result []string
	list.ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			result = append(result, v.Str)
		}
		return true
	})
	return result
}

// ParseRuleSetYAML converts the YAML document to JSON, keeping mapping
// order, then parses it as JSON.
func ParseRuleSetYAML(data []byte) (RuleSetConfig, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return RuleSetConfig{}, configError("", "", fmt.Errorf("failed to read yaml %w", err))
	}
	var buf bytes.Buffer
	if err := writeYAMLNodeJSON(&buf, &node); err != nil {
		return RuleSetConfig{}, configError("", "", err)
	}
	return ParseRuleSetJSON(buf.Bytes())
}

func writeYAMLNodeJSON(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeYAMLNodeJSON(buf, node.Content[0])
	case yaml.AliasNode:
		return writeYAMLNodeJSON(buf, node.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(node.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeYAMLNodeJSON(buf, node.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, child := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeYAMLNodeJSON(buf, child); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	}
	var scalar any
	if err := node.Decode(&scalar); err != nil {
		return fmt.Errorf("failed to decode yaml value at line %d %w", node.Line, err)
	}
	raw, err := json.Marshal(scalar)
	if err != nil {
		return fmt.Errorf("failed to encode yaml value at line %d %w", node.Line, err)
	}
	buf.Write(raw)
	return nil
}

// Compile turns the document into a registrable RuleSet. Paths are parsed
// here so malformed expressions never reach an execution.
func (c RuleSetConfig) Compile() (*RuleSet, error) {
	if c.Code == "" {
		return nil, configError("", "code", fmt.Errorf("is required"))
	}
	if len(c.Mappings) == 0 {
		return nil, configError(c.Code, "mappings", fmt.Errorf("at least one mapping is required"))
	}
	rules := make([]FieldRule, 0, len(c.Mappings))
	for i, m := range c.Mappings {
		rule, err := NewFieldRule(m.SourcePath, m.TargetPath, m.Processors, m.AggregationStrategies)
		if err != nil {
			return nil, configError(c.Code, fmt.Sprintf("mappings[%d]", i), err)
		}
		rules = append(rules, rule)
	}
	set, err := NewRuleSet(c.Code, rules)
	if err != nil {
		return nil, err
	}
	set.config = c.clone()
	return set, nil
}

func (c RuleSetConfig) clone() RuleSetConfig {
	result := c
	result.Mappings = make([]FieldRuleConfig, len(c.Mappings))
	for i, m := range c.Mappings {
		m.Processors = append([]string(nil), m.Processors...)
		m.AggregationStrategies = append([]string(nil), m.AggregationStrategies...)
		result.Mappings[i] = m
	}
	return result
}

// MarshalJSON writes the document back in the form it was read in.
func (c RuleSetConfig) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	code, err := json.Marshal(c.Code)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"code":`)
	buf.Write(code)
	buf.WriteString(`,"mappings":`)
	if c.Form == ObjectForm {
		buf.WriteByte('{')
	} else {
		buf.WriteByte('[')
	}
	for i, m := range c.Mappings {
		if i > 0 {
			buf.WriteByte(',')
		}
		if c.Form == ObjectForm {
			key, err := json.Marshal(m.TargetPath)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
		}
		entry, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		buf.Write(entry)
	}
	if c.Form == ObjectForm {
		buf.WriteByte('}')
	} else {
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
