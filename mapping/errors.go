package mapping

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig    = errors.New("invalid rule set configuration")
	ErrRuleSetNotFound  = errors.New("rule set not found")
	ErrInvalidPath      = errors.New("invalid path expression")
	ErrUnknownProcessor = errors.New("unknown processor")
	ErrUnknownStrategy  = errors.New("unknown aggregation strategy")
	ErrInvalidParams    = errors.New("invalid parameters")
	ErrPathConflict     = errors.New("target path conflicts with existing value")
	ErrNotNumeric       = errors.New("value is not numeric")
)

// ConfigError reports a rule set definition that cannot be registered.
type ConfigError struct {
	Code  string
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Code != "" && e.Field != "":
		return fmt.Sprintf("rule set '%s': %s: %v", e.Code, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("rule set: %s: %v", e.Field, e.Err)
	case e.Code != "":
		return fmt.Sprintf("rule set '%s': %v", e.Code, e.Err)
	}
	return fmt.Sprintf("rule set: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func configError(code, field string, err error) error {
	return &ConfigError{Code: code, Field: field, Err: err}
}
