package mapping

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/iancoleman/strcase"
)

func builtinProcessors() map[string]ProcessorConstructor {
	return map[string]ProcessorConstructor{
		"uppercase":       stringProcessor(strings.ToUpper),
		"lowercase":       stringProcessor(strings.ToLower),
		"capitalize":      stringProcessor(capitalize),
		"trim":            stringProcessor(strings.TrimSpace),
		"reverse":         stringProcessor(reverse),
		"camelcase":       stringProcessor(strcase.ToLowerCamel),
		"pascalcase":      stringProcessor(strcase.ToCamel),
		"snakecase":       stringProcessor(strcase.ToSnake),
		"kebabcase":       stringProcessor(strcase.ToKebab),
		"prefix":          newPrefix,
		"suffix":          newSuffix,
		"replace":         newReplace,
		"substring":       newSubstring,
		"format":          newFormat,
		"mapvalue":        newMapValue,
		"booleantoyesno":  newBooleanToYesNo,
		"dateformat":      newDateFormat,
		"json":            newJSON,
		"listjoin":        newListJoin,
		"multiplybyten":   newMultiplyByTen,
		"roundtwodecimal": newRoundTwoDecimal,
		"discount":        newDiscount,
		"range":           newRange,
		"tointeger":       newToInteger,
		"money":           newMoney,
		"phone":           newPhone,
		"countryname":     newCountryName,
		"idcard":          newIDCard,
	}
}

// stringProcessor lifts a string function; other values pass through.
func stringProcessor(fn func(string) string) ProcessorConstructor {
	return func(string) (ValueProcessor, error) {
		return ProcessorFunc(func(value any) (any, error) {
			if s, ok := value.(string); ok {
				return fn(s), nil
			}
			return value, nil
		}), nil
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func newPrefix(p string) (ValueProcessor, error) {
	if p == "" {
		return nil, invalidParams("prefix requires a value")
	}
	return ProcessorFunc(func(value any) (any, error) {
		return p + stringify(value), nil
	}), nil
}

func newSuffix(p string) (ValueProcessor, error) {
	if p == "" {
		return nil, invalidParams("suffix requires a value")
	}
	return ProcessorFunc(func(value any) (any, error) {
		return stringify(value) + p, nil
	}), nil
}

func newReplace(p string) (ValueProcessor, error) {
	target, replacement, ok := strings.Cut(p, ",")
	if !ok {
		return nil, invalidParams("replace expects 'target,replacement' but have '%s'", p)
	}
	if target == "" {
		return nil, invalidParams("replace target is empty")
	}
	return ProcessorFunc(func(value any) (any, error) {
		if s, ok := value.(string); ok {
			return strings.ReplaceAll(s, target, replacement), nil
		}
		return value, nil
	}), nil
}

func newSubstring(p string) (ValueProcessor, error) {
	params := parseParams(p)
	start, end := 0, -1
	if v, ok := params.lookup(0, "start"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, invalidParams("substring start '%s' is not a non-negative integer", v)
		}
		start = n
	}
	if v, ok := params.lookup(1, "end"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < -1 {
			return nil, invalidParams("substring end '%s' is not an integer", v)
		}
		end = n
	}
	return ProcessorFunc(func(value any) (any, error) {
		s, ok := value.(string)
		if !ok {
			return value, nil
		}
		runes := []rune(s)
		if start >= len(runes) {
			return "", nil
		}
		stop := len(runes)
		if end >= 0 && end < stop {
			stop = end
		}
		if stop <= start {
			return "", nil
		}
		return string(runes[start:stop]), nil
	}), nil
}

// newFormat applies a printf pattern. Every verb in the pattern consumes
// the same value, converted to suit the verb.
func newFormat(p string) (ValueProcessor, error) {
	pattern := p
	if pattern == "" {
		pattern = "%s"
	}
	verbs := formatVerbs(pattern)
	return ProcessorFunc(func(value any) (any, error) {
		args := make([]any, len(verbs))
		for i, verb := range verbs {
			arg, err := formatArg(verb, value)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return fmt.Sprintf(pattern, args...), nil
	}), nil
}

// formatVerbs returns the verb letter of every placeholder, skipping "%%".
func formatVerbs(pattern string) []rune {
	var verbs []rune
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' {
			continue
		}
		if i+1 < len(runes) && runes[i+1] == '%' {
			i++
			continue
		}
		j := i + 1
		for j < len(runes) && strings.ContainsRune("+-# 0123456789.", runes[j]) {
			j++
		}
		if j < len(runes) {
			verbs = append(verbs, runes[j])
		}
		i = j
	}
	return verbs
}

func formatArg(verb rune, value any) (any, error) {
	switch verb {
	case 'd', 'x', 'X', 'o', 'b', 'c':
		d, ok := numericOrString(value)
		if !ok || !d.IsInteger() {
			return nil, fmt.Errorf("%w: %%%c needs an integer but have '%s'", ErrNotNumeric, verb, stringify(value))
		}
		return d.IntPart(), nil
	case 'f', 'F', 'e', 'E', 'g', 'G':
		d, ok := numericOrString(value)
		if !ok {
			return nil, fmt.Errorf("%w: %%%c needs a number but have '%s'", ErrNotNumeric, verb, stringify(value))
		}
		return d.InexactFloat64(), nil
	case 't':
		if b, ok := value.(bool); ok {
			return b, nil
		}
	}
	return stringify(value), nil
}

func newMapValue(p string) (ValueProcessor, error) {
	table := make(map[string]string)
	for _, pair := range strings.Split(p, ";") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		table[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if len(table) == 0 {
		return nil, invalidParams("mapValue expects 'key=value;key=value' but have '%s'", p)
	}
	return ProcessorFunc(func(value any) (any, error) {
		if mapped, ok := table[stringify(value)]; ok {
			return mapped, nil
		}
		return value, nil
	}), nil
}

func newBooleanToYesNo(p string) (ValueProcessor, error) {
	trueText, falseText := "是", "否"
	if p != "" {
		parts := strings.Split(p, ",")
		if parts[0] != "" {
			trueText = parts[0]
		}
		if len(parts) > 1 && parts[1] != "" {
			falseText = parts[1]
		}
	}
	return ProcessorFunc(func(value any) (any, error) {
		b, ok := truthy(value)
		if !ok {
			return value, nil
		}
		if b {
			return trueText, nil
		}
		return falseText, nil
	}), nil
}

// truthy coerces boolean-like values; ok is false for anything else.
func truthy(value any) (result bool, ok bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "y":
			return true, true
		case "false", "0", "no", "n":
			return false, true
		}
	default:
		if d, isNumber := numeric(v); isNumber {
			if d.Equal(decimalOne) {
				return true, true
			}
			if d.IsZero() {
				return false, true
			}
		}
	}
	return false, false
}

// dateInputLayouts are tried in order; the first successful parse wins.
var dateInputLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15",
	"2006-01-02",
	"2006年01月02日 15:04:05",
	"2006年01月02日 15:04",
	"2006年01月02日 15",
	"2006年01月02日",
}

const defaultDatePattern = "yyyy-MM-dd HH:mm:ss"

func newDateFormat(p string) (ValueProcessor, error) {
	pattern := p
	if pattern == "" {
		pattern = defaultDatePattern
	}
	layout, err := dateLayout(pattern)
	if err != nil {
		return nil, err
	}
	return ProcessorFunc(func(value any) (any, error) {
		s, ok := value.(string)
		if !ok {
			return stringify(value), nil
		}
		for _, in := range dateInputLayouts {
			if t, err := time.Parse(in, strings.TrimSpace(s)); err == nil {
				return t.Format(layout), nil
			}
		}
		return s, nil
	}), nil
}

// dateLayout converts a yyyy-MM-dd style date pattern into a Go layout.
// Text between single quotes is copied literally.
func dateLayout(pattern string) (string, error) {
	var b strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		r := runes[i]
		if r == '\'' {
			end := i + 1
			for end < len(runes) && runes[end] != '\'' {
				end++
			}
			if end >= len(runes) {
				return "", invalidParams("unterminated quote in date pattern '%s'", pattern)
			}
			if end == i+1 {
				b.WriteRune('\'')
			} else {
				b.WriteString(string(runes[i+1 : end]))
			}
			i = end + 1
			continue
		}
		n := 1
		for i+n < len(runes) && runes[i+n] == r {
			n++
		}
		switch r {
		case 'y':
			if n == 2 {
				b.WriteString("06")
			} else {
				b.WriteString("2006")
			}
		case 'M':
			switch {
			case n == 1:
				b.WriteString("1")
			case n == 2:
				b.WriteString("01")
			case n == 3:
				b.WriteString("Jan")
			default:
				b.WriteString("January")
			}
		case 'd':
			if n == 1 {
				b.WriteString("2")
			} else {
				b.WriteString("02")
			}
		case 'H':
			b.WriteString("15")
		case 'h':
			if n == 1 {
				b.WriteString("3")
			} else {
				b.WriteString("03")
			}
		case 'm':
			if n == 1 {
				b.WriteString("4")
			} else {
				b.WriteString("04")
			}
		case 's':
			if n == 1 {
				b.WriteString("5")
			} else {
				b.WriteString("05")
			}
		case 'S':
			b.WriteString(strings.Repeat("0", n))
		case 'a':
			b.WriteString("PM")
		case 'E':
			if n >= 4 {
				b.WriteString("Monday")
			} else {
				b.WriteString("Mon")
			}
		case 'z':
			b.WriteString("MST")
		case 'Z':
			b.WriteString("-0700")
		case 'X':
			b.WriteString("Z07:00")
		default:
			b.WriteString(strings.Repeat(string(r), n))
		}
		i += n
	}
	return b.String(), nil
}

func newJSON(string) (ValueProcessor, error) {
	return containerFunc(func(value any) (any, error) {
		if value == nil {
			return nil, nil
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode value %w", err)
		}
		return string(raw), nil
	}), nil
}

// newListJoin joins a whole sequence. Parameters are
// `delimiter:prefix:suffix`, each optional.
func newListJoin(p string) (ValueProcessor, error) {
	delimiter, prefix, suffix := ",", "", ""
	if p != "" {
		parts := strings.Split(p, ":")
		delimiter = parts[0]
		if len(parts) > 1 {
			prefix = parts[1]
		}
		if len(parts) > 2 {
			suffix = parts[2]
		}
	}
	return containerFunc(func(value any) (any, error) {
		seq, ok := value.([]any)
		if !ok {
			return value, nil
		}
		items := make([]string, len(seq))
		for i, v := range seq {
			items[i] = stringify(v)
		}
		return prefix + strings.Join(items, delimiter) + suffix, nil
	}), nil
}
