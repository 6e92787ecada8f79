package model

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Instance — провалидированные данные модели.
type Instance struct {
	model *Model
	ptr   reflect.Value
}

// New валидирует и нормализует data: значения по умолчанию, alias,
// приведение типов, пользовательские валидаторы, затем теги validator/v10.
func (m *Model) New(data map[string]any) (*Instance, error) {
	var errs ValidationErrors

	values := make(map[string]any, len(data))
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fs, ok := m.lookup[k]
		if !ok {
			if m.Config.ForbidExtra {
				errs = append(errs, ferr(CodeExtraForbidden, k, "Extra field '"+k+"' is not permitted"))
			}
			continue
		}
		values[fs.Name] = data[k]
	}

	ptr := reflect.New(m.typ)
	elem := ptr.Elem()
	for i, fs := range m.fields {
		v, ok := values[fs.Name]
		if !ok {
			v, ok = fs.Field.DefaultValue()
		}
		if !ok {
			if fs.Required {
				errs = append(errs, ferr(CodeRequired, fs.Key, "Field '"+fs.Key+"' is required"))
			}
			continue
		}
		rv, fe := m.prepare(fs, v)
		if fe != nil {
			errs = append(errs, *fe)
			continue
		}
		elem.Field(i).Set(rv)
	}

	if err := m.validate.Struct(ptr.Interface()); err != nil {
		errs = append(errs, m.translate(err)...)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return &Instance{model: m, ptr: ptr}, nil
}

// prepare приводит значение к типу поля структуры и прогоняет пользовательский валидатор.
func (m *Model) prepare(fs *FieldSpec, v any) (reflect.Value, *FieldError) {
	if v == nil {
		if !fs.Field.Nullable {
			fe := ferr(CodeTypeMismatch, fs.Key, "Field '"+fs.Key+"' must not be null")
			return reflect.Value{}, &fe
		}
		return reflect.Zero(fs.Type), nil
	}
	vt := fs.Type
	if vt.Kind() == reflect.Pointer {
		vt = vt.Elem()
	}
	strict := m.Config.Strict || fs.Field.Strict
	cv, err := coerce(v, vt, strict)
	if err != nil {
		fe := ferr(CodeTypeMismatch, fs.Key, "Field '"+fs.Key+"' "+err.Error())
		return reflect.Value{}, &fe
	}
	if fn, ok := m.validators[fs.Name]; ok {
		out, err := fn(cv.Interface())
		if err != nil {
			fe := ferr(CodeValueError, fs.Key, err.Error())
			return reflect.Value{}, &fe
		}
		if cv, err = coerce(out, vt, strict); err != nil {
			fe := ferr(CodeTypeMismatch, fs.Key, "Field '"+fs.Key+"' "+err.Error())
			return reflect.Value{}, &fe
		}
	}
	if fs.Type.Kind() != reflect.Pointer {
		return cv, nil
	}
	p := reflect.New(vt)
	p.Elem().Set(cv)
	return p, nil
}

func (i *Instance) Model() *Model { return i.model }

func (i *Instance) index(name string) (int, *FieldSpec, bool) {
	fs, ok := i.model.lookup[name]
	if !ok {
		return 0, nil, false
	}
	for idx, f := range i.model.fields {
		if f == fs {
			return idx, fs, true
		}
	}
	return 0, nil, false
}

// Get возвращает значение поля по имени колонки или alias; nil для незаданного.
func (i *Instance) Get(name string) (any, bool) {
	idx, _, ok := i.index(name)
	if !ok {
		return nil, false
	}
	return deref(i.ptr.Elem().Field(idx)), true
}

// Set меняет значение поля с полной проверкой. Замороженные поля менять нельзя.
// При ошибке экземпляр остаётся прежним.
func (i *Instance) Set(name string, v any) error {
	idx, fs, ok := i.index(name)
	if !ok {
		return fmt.Errorf("model %s: unknown field %q", i.model.Name, name)
	}
	if fs.Field.Frozen {
		return fmt.Errorf("%w: %s", ErrFrozen, fs.Key)
	}
	rv, fe := i.model.prepare(fs, v)
	if fe != nil {
		return ValidationErrors{*fe}
	}
	field := i.ptr.Elem().Field(idx)
	old := reflect.New(field.Type()).Elem()
	old.Set(field)
	field.Set(rv)
	if err := i.model.validate.Struct(i.ptr.Interface()); err != nil {
		field.Set(old)
		return i.model.translate(err)
	}
	return nil
}

// Dump — данные экземпляра по ключам модели; поля с Exclude не попадают.
func (i *Instance) Dump() map[string]any {
	out := make(map[string]any, len(i.model.fields))
	elem := i.ptr.Elem()
	for idx, fs := range i.model.fields {
		if fs.Field.Exclude {
			continue
		}
		out[fs.Key] = deref(elem.Field(idx))
	}
	return out
}

// Columns — заданные значения по именам колонок, для вставки в БД.
func (i *Instance) Columns() map[string]any {
	out := make(map[string]any, len(i.model.fields))
	elem := i.ptr.Elem()
	for idx, fs := range i.model.fields {
		if v := deref(elem.Field(idx)); v != nil {
			out[fs.Name] = v
		}
	}
	return out
}

// Struct возвращает указатель на сгенерированную структуру.
func (i *Instance) Struct() any { return i.ptr.Interface() }

func (i *Instance) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.Dump())
}

func deref(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Interface {
			return v.Interface()
		}
		return v.Elem().Interface()
	}
	return v.Interface()
}
