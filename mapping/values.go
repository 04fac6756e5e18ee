package mapping

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// numeric converts number-typed values into a decimal. Strings are not
// numbers here, even when they look like one.
func numeric(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(string(n))
		return d, err == nil
	case decimal.Decimal:
		return n, true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return decimal.RequireFromString(strconv.FormatUint(uint64(n), 10)), true
	case uint32:
		return decimal.NewFromInt(int64(n)), true
	case uint64:
		return decimal.RequireFromString(strconv.FormatUint(n, 10)), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	}
	return decimal.Decimal{}, false
}

// numericOrString also accepts strings holding a plain decimal literal.
func numericOrString(v any) (decimal.Decimal, bool) {
	if d, ok := numeric(v); ok {
		return d, true
	}
	if s, ok := v.(string); ok {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

var nonNumericChars = regexp.MustCompile(`[^\d.\-]`)

// lenientNumeric strips everything but digits, '.' and '-' from strings
// before parsing, so "¥1,234.5" reads as 1234.5.
func lenientNumeric(v any) (decimal.Decimal, bool) {
	if d, ok := numeric(v); ok {
		return d, true
	}
	if s, ok := v.(string); ok {
		cleaned := nonNumericChars.ReplaceAllString(s, "")
		if cleaned == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(cleaned)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func fixedNumber(d decimal.Decimal, places int32) json.Number {
	return json.Number(d.StringFixed(places))
}

// stringify renders a Document value as text. Containers render as JSON.
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return "null"
	case string:
		return s
	case json.Number:
		return string(s)
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case decimal.Decimal:
		return s.String()
	case map[string]any, []any:
		raw, err := json.Marshal(s)
		if err != nil {
			return fmt.Sprintf("%v", s)
		}
		return string(raw)
	}
	return fmt.Sprintf("%v", v)
}
