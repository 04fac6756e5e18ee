package mapping

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

func builtinStrategies() map[string]StrategyConstructor {
	return map[string]StrategyConstructor{
		"sum":      fixed(sum),
		"average":  fixed(average),
		"avg":      fixed(average),
		"min":      fixed(minimum),
		"max":      fixed(maximum),
		"first":    fixed(first),
		"last":     fixed(last),
		"count":    fixed(count),
		"group":    fixed(group),
		"subtract": fixed(subtract),
		"concat":   fixed(concat),
		"join":     newJoin,
	}
}

func fixed(fn func([]any) (any, error)) StrategyConstructor {
	return func(string) (AggregationStrategy, error) {
		return StrategyFunc(fn), nil
	}
}

// numbers keeps the numeric elements of values.
func numbers(values []any) []decimal.Decimal {
	var result []decimal.Decimal
	for _, v := range values {
		if d, ok := numeric(v); ok {
			result = append(result, d)
		}
	}
	return result
}

func sum(values []any) (any, error) {
	nums := numbers(values)
	if len(nums) == 0 {
		return nil, nil
	}
	return number(decimal.Sum(nums[0], nums[1:]...)), nil
}

func average(values []any) (any, error) {
	nums := numbers(values)
	if len(nums) == 0 {
		return nil, nil
	}
	total := decimal.Sum(nums[0], nums[1:]...)
	return number(total.DivRound(decimal.NewFromInt(int64(len(nums))), divisionScale)), nil
}

func minimum(values []any) (any, error) {
	nums := numbers(values)
	if len(nums) == 0 {
		return nil, nil
	}
	return number(decimal.Min(nums[0], nums[1:]...)), nil
}

func maximum(values []any) (any, error) {
	nums := numbers(values)
	if len(nums) == 0 {
		return nil, nil
	}
	return number(decimal.Max(nums[0], nums[1:]...)), nil
}

func first(values []any) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

func last(values []any) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return values[len(values)-1], nil
}

func count(values []any) (any, error) {
	return json.Number(strconv.Itoa(len(values))), nil
}

func group(values []any) (any, error) {
	return values, nil
}

func subtract(values []any) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	var result decimal.Decimal
	for i, v := range values {
		d, ok := numeric(v)
		if !ok {
			return nil, fmt.Errorf("%w: subtract element %d is '%s'", ErrNotNumeric, i, stringify(v))
		}
		if i == 0 {
			result = d
			continue
		}
		result = result.Sub(d)
	}
	return number(result), nil
}

func concat(values []any) (any, error) {
	return joinValues(values, "", false), nil
}

func joinValues(values []any, delimiter string, keepArrayFormat bool) any {
	if len(values) == 0 {
		return nil
	}
	items := make([]string, len(values))
	for i, v := range values {
		items[i] = stringify(v)
	}
	joined := strings.Join(items, delimiter)
	if keepArrayFormat {
		return "[" + joined + "]"
	}
	return joined
}

// newJoin accepts `delimiter=|;keepArrayFormat=true` or the positional
// `delimiter,keepArrayFormat`. A positional parameter without a trailing
// boolean is taken whole as the delimiter, so `join:,` joins on commas.
func newJoin(p string) (AggregationStrategy, error) {
	delimiter, keep := ",", false
	switch {
	case p == "":
	case strings.Contains(p, "="):
		for _, pair := range strings.Split(p, ";") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			switch strings.ToLower(strings.TrimSpace(k)) {
			case "delimiter":
				delimiter = v
			case "keeparrayformat":
				b, err := strconv.ParseBool(strings.TrimSpace(v))
				if err != nil {
					return nil, invalidParams("join keepArrayFormat '%s' is not a boolean", v)
				}
				keep = b
			default:
				return nil, invalidParams("join does not accept '%s'", k)
			}
		}
	default:
		delimiter = p
		if i := strings.LastIndex(p, ","); i >= 0 {
			if b, err := strconv.ParseBool(strings.TrimSpace(p[i+1:])); err == nil {
				delimiter, keep = p[:i], b
			}
		}
	}
	return StrategyFunc(func(values []any) (any, error) {
		return joinValues(values, delimiter, keep), nil
	}), nil
}
