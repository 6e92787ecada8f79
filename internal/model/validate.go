package model

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"adminkit/internal/schema"
)

// validateTag собирает правила validator/v10 для поля. Правила, которые
// нельзя выразить параметром тега (pattern, choice, multiple_of), регистрируются
// как собственные теги и ищут ограничения по имени поля структуры.
func validateTag(f *schema.Field, vt reflect.Type) string {
	var rules []string
	switch vt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		// целое v > 1.5 ⇔ v > 1, v >= 1.5 ⇔ v >= 2
		if f.Gt != nil {
			rules = append(rules, fmt.Sprintf("gt=%d", int64(math.Floor(*f.Gt))))
		}
		if f.Ge != nil {
			rules = append(rules, fmt.Sprintf("gte=%d", int64(math.Ceil(*f.Ge))))
		}
		if f.Lt != nil {
			rules = append(rules, fmt.Sprintf("lt=%d", int64(math.Ceil(*f.Lt))))
		}
		if f.Le != nil {
			rules = append(rules, fmt.Sprintf("lte=%d", int64(math.Floor(*f.Le))))
		}
	case reflect.Float32, reflect.Float64:
		if f.Gt != nil {
			rules = append(rules, "gt="+formatFloat(*f.Gt))
		}
		if f.Ge != nil {
			rules = append(rules, "gte="+formatFloat(*f.Ge))
		}
		if f.Lt != nil {
			rules = append(rules, "lt="+formatFloat(*f.Lt))
		}
		if f.Le != nil {
			rules = append(rules, "lte="+formatFloat(*f.Le))
		}
	case reflect.String:
		if f.MinLength != nil {
			rules = append(rules, fmt.Sprintf("min=%d", *f.MinLength))
		}
		if f.MaxLength != nil {
			rules = append(rules, fmt.Sprintf("max=%d", *f.MaxLength))
		} else if f.Size > 0 && f.Type == schema.TypeString {
			rules = append(rules, fmt.Sprintf("max=%d", f.Size))
		}
		if f.Pattern != "" {
			rules = append(rules, "pattern")
		}
	}
	if f.MultipleOf != nil {
		rules = append(rules, "multiple_of")
	}
	if len(f.Choices) > 0 {
		rules = append(rules, "choice")
	}
	return strings.Join(rules, ",")
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

func newValidate(m *Model) (*validator.Validate, error) {
	patterns := map[string]*regexp.Regexp{}
	for _, fs := range m.fields {
		if fs.Field.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(fs.Field.Pattern)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid pattern: %w", fs.Name, err)
		}
		patterns[fs.GoName] = re
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("pattern", func(fl validator.FieldLevel) bool {
		re, ok := patterns[fl.StructFieldName()]
		return !ok || re.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation("choice", func(fl validator.FieldLevel) bool {
		fs, ok := m.byGoName[fl.StructFieldName()]
		if !ok {
			return true
		}
		s := fmt.Sprint(fl.Field().Interface())
		for _, c := range fs.Field.Choices {
			if c == s {
				return true
			}
		}
		return false
	}); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation("multiple_of", func(fl validator.FieldLevel) bool {
		fs, ok := m.byGoName[fl.StructFieldName()]
		if !ok || fs.Field.MultipleOf == nil {
			return true
		}
		var x float64
		switch fl.Field().Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			x = float64(fl.Field().Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			x = float64(fl.Field().Uint())
		case reflect.Float32, reflect.Float64:
			x = fl.Field().Float()
		default:
			return false
		}
		return isMultiple(x, *fs.Field.MultipleOf)
	}); err != nil {
		return nil, err
	}
	return v, nil
}

func isMultiple(x, of float64) bool {
	if of == 0 {
		return false
	}
	q := x / of
	return math.Abs(q-math.Round(q)) < 1e-9
}

// translate переводит ошибки validator/v10 в ValidationErrors модели.
func (m *Model) translate(err error) ValidationErrors {
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{Code: CodeValueError, Message: err.Error()}}
	}
	out := make(ValidationErrors, 0, len(ves))
	for _, fe := range ves {
		key := fe.Field()
		if fs, ok := m.byGoName[fe.StructField()]; ok {
			key = fs.Key
		}
		code, msg := describe(fe)
		out = append(out, FieldError{Code: code, Field: key, Message: msg})
	}
	return out
}

func describe(fe validator.FieldError) (string, string) {
	switch fe.Tag() {
	case "gt":
		return CodeGreaterThan, "must be greater than " + fe.Param()
	case "gte":
		return CodeGreaterThanEqual, "must be greater than or equal to " + fe.Param()
	case "lt":
		return CodeLessThan, "must be less than " + fe.Param()
	case "lte":
		return CodeLessThanEqual, "must be less than or equal to " + fe.Param()
	case "min":
		return CodeTooShort, "must have at least " + fe.Param() + " characters"
	case "max":
		return CodeTooLong, "must have at most " + fe.Param() + " characters"
	case "pattern":
		return CodePatternMismatch, "does not match the pattern"
	case "choice":
		return CodeEnumInvalid, fmt.Sprintf("value '%v' is not allowed", fe.Value())
	case "multiple_of":
		return CodeMultipleOf, "is not a multiple of the allowed step"
	default:
		return CodeValueError, fe.Error()
	}
}
