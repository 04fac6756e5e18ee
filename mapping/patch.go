package mapping

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrMappingNotFound is returned by RemoveMapping for an unknown target path.
var ErrMappingNotFound = errors.New("mapping not found")

// PatchMapping inserts or replaces the mapping for rule.TargetPath inside a
// stored rule set document, keeping the document's form and every other
// byte of it. The patched document must still be a valid rule set.
func PatchMapping(doc []byte, rule FieldRuleConfig) ([]byte, error) {
	if _, err := NewFieldRule(rule.SourcePath, rule.TargetPath, rule.Processors, rule.AggregationStrategies); err != nil {
		return nil, err
	}
	mappings := gjson.GetBytes(doc, "mappings")
	var (
		patched []byte
		err     error
	)
	switch {
	case mappings.IsObject():
		patched, err = sjson.SetBytes(doc, "mappings."+escapeKey(rule.TargetPath), rule)
	case mappings.IsArray():
		if i := mappingIndex(mappings, rule.TargetPath); i >= 0 {
			patched, err = sjson.SetBytes(doc, "mappings."+strconv.Itoa(i), rule)
		} else {
			patched, err = sjson.SetBytes(doc, "mappings.-1", rule)
		}
	default:
		patched, err = sjson.SetBytes(doc, "mappings", []FieldRuleConfig{rule})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to patch mapping '%s' %w", rule.TargetPath, err)
	}
	if _, err := ParseRuleSetJSON(patched); err != nil {
		return nil, err
	}
	return patched, nil
}

// RemoveMapping deletes the mapping writing to targetPath.
func RemoveMapping(doc []byte, targetPath string) ([]byte, error) {
	mappings := gjson.GetBytes(doc, "mappings")
	var path string
	switch {
	case mappings.IsObject():
		if !mappings.Get(escapeKey(targetPath)).Exists() {
			return nil, fmt.Errorf("%w: '%s'", ErrMappingNotFound, targetPath)
		}
		path = "mappings." + escapeKey(targetPath)
	case mappings.IsArray():
		i := mappingIndex(mappings, targetPath)
		if i < 0 {
			return nil, fmt.Errorf("%w: '%s'", ErrMappingNotFound, targetPath)
		}
		path = "mappings." + strconv.Itoa(i)
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrMappingNotFound, targetPath)
	}
	patched, err := sjson.DeleteBytes(doc, path)
	if err != nil {
		return nil, fmt.Errorf("failed to remove mapping '%s' %w", targetPath, err)
	}
	if _, err := ParseRuleSetJSON(patched); err != nil {
		return nil, err
	}
	return patched, nil
}

func mappingIndex(mappings gjson.Result, targetPath string) int {
	index, i := -1, 0
	mappings.ForEach(func(_, item gjson.Result) bool {
		if item.Get("targetPath").String() == targetPath {
			index = i
			return false
		}
		i++
		return true
	})
	return index
}

// escapeKey makes a literal object key safe inside a gjson/sjson path.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if strings.ContainsRune(`\.*?|#@!=<>%[]{}(),"`+"`", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
