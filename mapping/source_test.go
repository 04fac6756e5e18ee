package mapping

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSource = `{
	"customer": {"name": "Ada", "tags": ["a", "b"], "nickname": null},
	"orders": [
		{"id": 1, "amount": 10.5, "lines": [{"sku": "x"}, {"sku": "y"}]},
		{"id": 2, "amount": 4.5, "lines": []},
		{"id": 3, "lines": [{"sku": "z"}]}
	],
	"a.b": "dotted",
	"empty": []
}`

func TestSource_Read(t *testing.T) {
	src, err := NewSource([]byte(testSource))
	require.NoError(t, err)

	tests := []struct {
		path     string
		expected any
		found    bool
	}{
		{"customer.name", "Ada", true},
		{"$.customer.name", "Ada", true},
		{"customer.tags[1]", "b", true},
		{"customer.tags[2]", nil, false},
		{"customer.nickname", nil, true},
		{"customer.missing", nil, false},
		{"customer.name.first", nil, false},
		{"orders[0].amount", json.Number("10.5"), true},
		{"orders[*].id", []any{json.Number("1"), json.Number("2"), json.Number("3")}, true},
		{"orders[*].amount", []any{json.Number("10.5"), json.Number("4.5")}, true},
		{"orders[*].lines[*].sku", []any{"x", "y", "z"}, true},
		{"orders[*].missing", []any{}, true},
		{"empty[*]", []any{}, true},
		{"missing[*].id", nil, false},
		{"customer.name[*]", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v, found := src.Read(MustParsePath(tt.path))
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestSource_ReadKeysWithPathSyntax(t *testing.T) {
	src, err := NewSource([]byte(`{"a*b": {"c?": 1}, "x|y": "pipe"}`))
	require.NoError(t, err)

	v, found := src.Read(MustParsePath("a*b.c?"))
	assert.True(t, found)
	assert.Equal(t, json.Number("1"), v)

	v, found = src.Read(MustParsePath("x|y"))
	assert.True(t, found)
	assert.Equal(t, "pipe", v)
}

func TestSource_ReadContainers(t *testing.T) {
	src, err := NewSource([]byte(testSource))
	require.NoError(t, err)

	v, found := src.Read(MustParsePath("orders[1]"))
	require.True(t, found)
	assert.Equal(t, map[string]any{"id": json.Number("2"), "amount": json.Number("4.5"), "lines": []any{}}, v)
}

func TestNewSource_Invalid(t *testing.T) {
	_, err := NewSource([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestRead_Document(t *testing.T) {
	doc := map[string]any{"a": []any{map[string]any{"b": "x"}, map[string]any{"b": "y"}}}
	v, found := Read(doc, MustParsePath("a[*].b"))
	assert.True(t, found)
	assert.Equal(t, []any{"x", "y"}, v)
}

func TestSource_WildcardFanOutProperties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("a wildcard yields one value per element in order", prop.ForAll(
		func(values []int64) bool {
			items := make([]string, len(values))
			for i, v := range values {
				items[i] = fmt.Sprintf(`{"v":%d}`, v)
			}
			src, err := NewSource([]byte(`{"items":[` + strings.Join(items, ",") + `]}`))
			if err != nil {
				return false
			}
			got, found := src.Read(MustParsePath("items[*].v"))
			if !found {
				return false
			}
			list, ok := got.([]any)
			if !ok || len(list) != len(values) {
				return false
			}
			for i, v := range values {
				if list[i] != json.Number(fmt.Sprint(v)) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64()),
	))

	properties.TestingRun(t)
}
