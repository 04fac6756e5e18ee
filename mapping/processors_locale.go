package mapping

import (
	"regexp"
	"strings"

	"github.com/biter777/countries"
	"github.com/ttacon/libphonenumber"
)

const defaultPhoneRegion = "CN"

var phoneChars = regexp.MustCompile(`[^0-9+]`)

// newPhone normalises phone numbers. Parameters are positional and
// unordered: a format (space, dash, e164, international, national), the
// word mask, and an ISO region used for numbers without a country code.
func newPhone(p string) (ValueProcessor, error) {
	format, mask, region := "space", false, defaultPhoneRegion
	for _, part := range strings.Split(p, ",") {
		part = strings.TrimSpace(part)
		switch strings.ToLower(part) {
		case "":
		case "default", "space":
			format = "space"
		case "dash", "e164", "international", "national":
			format = strings.ToLower(part)
		case "mask":
			mask = true
		default:
			if len(part) != 2 || libphonenumber.GetCountryCodeForRegion(strings.ToUpper(part)) == 0 {
				return nil, invalidParams("phone parameter '%s' is not a format, 'mask' or a region", part)
			}
			region = strings.ToUpper(part)
		}
	}
	return ProcessorFunc(func(value any) (any, error) {
		if _, isBool := value.(bool); isBool {
			return value, nil
		}
		number := phoneChars.ReplaceAllString(stringify(value), "")
		num, err := libphonenumber.Parse(number, region)
		if err != nil || !libphonenumber.IsValidNumber(num) {
			return value, nil
		}
		switch format {
		case "e164":
			return libphonenumber.Format(num, libphonenumber.E164), nil
		case "international":
			return libphonenumber.Format(num, libphonenumber.INTERNATIONAL), nil
		case "national":
			return libphonenumber.Format(num, libphonenumber.NATIONAL), nil
		}
		national := libphonenumber.GetNationalSignificantNumber(num)
		if len(national) != 11 {
			return libphonenumber.Format(num, libphonenumber.NATIONAL), nil
		}
		if mask {
			national = national[:3] + "****" + national[7:]
		}
		sep := " "
		if format == "dash" {
			sep = "-"
		}
		return national[:3] + sep + national[3:7] + sep + national[7:], nil
	}), nil
}

// newCountryName matches on alpha-2, alpha-3 or name and returns the
// country name. Unknown input passes through.
func newCountryName(string) (ValueProcessor, error) {
	return ProcessorFunc(func(value any) (any, error) {
		s, ok := value.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return value, nil
		}
		c := countries.ByName(strings.TrimSpace(s))
		if countries.Unknown == c {
			return value, nil
		}
		return c.String(), nil
	}), nil
}

var idCardPattern = regexp.MustCompile(`^[1-9]\d{5}(19|20)\d{2}(0[1-9]|1[0-2])(0[1-9]|[12]\d|3[01])\d{3}[0-9Xx]$`)

// newIDCard formats 18 character resident identity numbers as
// "region birthdate sequence", or masks the birthdate with `idCard:mask`.
func newIDCard(p string) (ValueProcessor, error) {
	mask := false
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "", "format":
	case "mask":
		mask = true
	default:
		return nil, invalidParams("idCard expects 'mask' or 'format' but have '%s'", p)
	}
	return ProcessorFunc(func(value any) (any, error) {
		s, ok := value.(string)
		if !ok || !idCardPattern.MatchString(s) {
			return value, nil
		}
		if mask {
			return s[:6] + "********" + s[14:], nil
		}
		return s[:6] + " " + s[6:14] + " " + s[14:], nil
	}), nil
}
