package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// coerce приводит входное значение к типу t. Строки приводятся к числам,
// bool и времени только вне strict-режима (кроме времени, которое всегда строка в JSON).
func coerce(v any, t reflect.Type, strict bool) (reflect.Value, error) {
	if t.Kind() == reflect.Interface {
		if v == nil {
			return reflect.Zero(t), nil
		}
		return reflect.ValueOf(v), nil
	}
	if rv := reflect.ValueOf(v); rv.IsValid() && rv.Type() == t {
		return rv, nil
	}

	switch t.Kind() {
	case reflect.String:
		s, err := toStringStrict(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(s).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toIntStrict(v, strict)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("integer %d overflows %s", n, t)
		}
		out.SetInt(n)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toIntStrict(v, strict)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		if n < 0 || out.OverflowUint(uint64(n)) {
			return reflect.Value{}, fmt.Errorf("integer %d overflows %s", n, t)
		}
		out.SetUint(uint64(n))
		return out, nil
	case reflect.Float32, reflect.Float64:
		f, err := toFloatStrict(v, strict)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		out.SetFloat(f)
		return out, nil
	case reflect.Bool:
		b, err := toBoolStrict(v, strict)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b).Convert(t), nil
	}
	if t == timeType {
		tm, err := toTime(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(tm), nil
	}
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("must be %s", t)
}

func toStringStrict(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return "", errors.New("must be string")
	}
}

func toIntStrict(v any, strict bool) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, errors.New("must be integer")
		}
		return int64(t), nil
	case float32:
		return toIntStrict(float64(t), strict)
	case float64:
		// JSON числа приходят как float64 — проверяем целостность
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, errors.New("must be integer")
		}
		return int64(t), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, errors.New("must be integer")
		}
		return n, nil
	case string:
		if strict {
			return 0, errors.New("must be integer")
		}
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, errors.New("must be integer")
		}
		return n, nil
	default:
		return 0, errors.New("must be integer")
	}
}

func toFloatStrict(v any, strict bool) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, errors.New("must be float")
		}
		return f, nil
	case string:
		if strict {
			return 0, errors.New("must be float")
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, errors.New("must be float")
		}
		return f, nil
	default:
		n, err := toIntStrict(v, true)
		if err != nil {
			return 0, errors.New("must be float")
		}
		return float64(n), nil
	}
}

func toBoolStrict(v any, strict bool) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		if strict {
			return false, errors.New("must be boolean")
		}
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "y", "on":
			return true, nil
		case "false", "0", "no", "n", "off":
			return false, nil
		default:
			return false, errors.New("must be boolean")
		}
	default:
		return false, errors.New("must be boolean")
	}
}

// timeLayouts: RFC3339, datetime-local из HTML-форм (без зоны, считается UTC) и дата.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// toTime принимает RFC3339 (в т.ч. с долями секунды), datetime-local и YYYY-MM-DD.
func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t != nil {
			return *t, nil
		}
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if tm, err := time.Parse(layout, s); err == nil {
				return tm, nil
			}
		}
	}
	return time.Time{}, errors.New("must be RFC3339 datetime or YYYY-MM-DD date")
}
