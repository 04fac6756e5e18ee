package mapping

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	decimalOne = decimal.NewFromInt(1)
	decimalTen = decimal.NewFromInt(10)
)

const divisionScale = 10

func newMultiplyByTen(p string) (ValueProcessor, error) {
	factor := decimalTen
	if p != "" {
		d, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return nil, invalidParams("multiplyByTen factor '%s' is not a number", p)
		}
		if d.IsPositive() {
			factor = d
		}
	}
	return ProcessorFunc(func(value any) (any, error) {
		d, ok := numericOrString(value)
		if !ok {
			return value, nil
		}
		return number(d.Mul(factor)), nil
	}), nil
}

func parseScale(p, name string, fallback int32) (int32, error) {
	if p == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(p))
	if err != nil || n < 0 {
		return 0, invalidParams("%s scale '%s' is not a non-negative integer", name, p)
	}
	return int32(n), nil
}

func newRoundTwoDecimal(p string) (ValueProcessor, error) {
	scale, err := parseScale(p, "roundTwoDecimal", 2)
	if err != nil {
		return nil, err
	}
	return ProcessorFunc(func(value any) (any, error) {
		d, ok := lenientNumeric(value)
		if !ok {
			return value, nil
		}
		return fixedNumber(d.Round(scale), scale), nil
	}), nil
}

func newDiscount(p string) (ValueProcessor, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(p))
	if err != nil {
		return nil, invalidParams("discount rate '%s' is not a number", p)
	}
	return ProcessorFunc(func(value any) (any, error) {
		d, ok := numericOrString(value)
		if !ok {
			return value, nil
		}
		return number(d.Mul(rate)), nil
	}), nil
}

// newRange rescales [inMin,inMax] onto [outMin,outMax]. Values outside the
// input range are returned unchanged.
func newRange(p string) (ValueProcessor, error) {
	bounds := []decimal.Decimal{
		decimal.Zero, decimal.NewFromInt(100), decimal.Zero, decimalOne,
	}
	if strings.TrimSpace(p) != "" {
		params := parseParams(p)
		if params.count() != 4 {
			return nil, invalidParams("range expects 'inMin,inMax,outMin,outMax' but have '%s'", p)
		}
		for i, key := range []string{"inMin", "inMax", "outMin", "outMax"} {
			v, ok := params.lookup(i, key)
			if !ok {
				return nil, invalidParams("range is missing %s", key)
			}
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, invalidParams("range %s '%s' is not a number", key, v)
			}
			bounds[i] = d
		}
	}
	inMin, inMax, outMin, outMax := bounds[0], bounds[1], bounds[2], bounds[3]
	if inMax.LessThanOrEqual(inMin) || outMax.LessThanOrEqual(outMin) {
		return nil, invalidParams("range maximum must be greater than minimum")
	}
	return ProcessorFunc(func(value any) (any, error) {
		d, ok := numericOrString(value)
		if !ok {
			return value, nil
		}
		if d.LessThan(inMin) || d.GreaterThan(inMax) {
			return value, nil
		}
		ratio := d.Sub(inMin).DivRound(inMax.Sub(inMin), divisionScale)
		return number(outMin.Add(ratio.Mul(outMax.Sub(outMin)))), nil
	}), nil
}

func newToInteger(string) (ValueProcessor, error) {
	return ProcessorFunc(func(value any) (any, error) {
		if d, ok := numeric(value); ok {
			return json.Number(strconv.FormatInt(d.IntPart(), 10)), nil
		}
		if s, ok := value.(string); ok {
			if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				return json.Number(strconv.FormatInt(n, 10)), nil
			}
		}
		return value, nil
	}), nil
}

// newMoney renders amounts as grouped text, e.g. 1234.5 -> "1,234.50".
func newMoney(p string) (ValueProcessor, error) {
	scale, err := parseScale(p, "money", 2)
	if err != nil {
		return nil, err
	}
	return ProcessorFunc(func(value any) (any, error) {
		d, ok := numericOrString(value)
		if !ok {
			return value, nil
		}
		return groupThousands(d.StringFixed(scale)), nil
	}), nil
}

func groupThousands(fixed string) string {
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, hasFrac := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		return sign + b.String() + "." + frac
	}
	return sign + b.String()
}
