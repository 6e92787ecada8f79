package model

import (
	"errors"
	"strings"
)

var ErrFrozen = errors.New("field is frozen")

// Коды ошибок валидации
const (
	CodeRequired         = "required"
	CodeTypeMismatch     = "type_mismatch"
	CodeEnumInvalid      = "enum_invalid"
	CodeExtraForbidden   = "extra_forbidden"
	CodeFrozen           = "frozen_field"
	CodeValueError       = "value_error"
	CodeGreaterThan      = "greater_than"
	CodeGreaterThanEqual = "greater_than_equal"
	CodeLessThan         = "less_than"
	CodeLessThanEqual    = "less_than_equal"
	CodeTooShort         = "string_too_short"
	CodeTooLong          = "string_too_long"
	CodePatternMismatch  = "string_pattern_mismatch"
	CodeMultipleOf       = "multiple_of"
)

type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors — все нарушения, найденные при построении или изменении экземпляра.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		if fe.Field == "" {
			parts[i] = fe.Message
			continue
		}
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields — поля с ошибками, в порядке появления.
func (e ValidationErrors) Fields() []string {
	out := make([]string, 0, len(e))
	for _, fe := range e {
		out = append(out, fe.Field)
	}
	return out
}

func ferr(code, field, msg string) FieldError {
	return FieldError{Code: code, Field: field, Message: msg}
}
