// Package model строит валидационные модели из таблиц схемы.
package model

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"adminkit/internal/schema"
)

// ValidatorFunc — дополнительная проверка поля; может нормализовать значение.
type ValidatorFunc func(v any) (any, error)

type Config struct {
	// Strict запрещает приведение строк к числам и bool.
	Strict bool
	// ForbidExtra отклоняет ключи, которых нет в модели.
	ForbidExtra bool
}

type options struct {
	exclude    map[string]bool
	bases      []*Model
	validators map[string]ValidatorFunc
	doc        string
	name       string
	config     Config
}

type Option func(*options)

// Exclude убирает колонки из модели.
func Exclude(names ...string) Option {
	return func(o *options) {
		for _, n := range names {
			o.exclude[n] = true
		}
	}
}

// Bases подмешивает поля базовых моделей перед полями таблицы.
// При совпадении имени побеждает поле таблицы.
func Bases(models ...*Model) Option {
	return func(o *options) { o.bases = append(o.bases, models...) }
}

func Validators(m map[string]ValidatorFunc) Option {
	return func(o *options) {
		for k, fn := range m {
			o.validators[k] = fn
		}
	}
}

func Doc(doc string) Option {
	return func(o *options) { o.doc = doc }
}

func Name(name string) Option {
	return func(o *options) { o.name = name }
}

func WithConfig(c Config) Option {
	return func(o *options) { o.config = c }
}

// FieldSpec — поле модели.
type FieldSpec struct {
	Name     string // имя колонки
	Key      string // ключ во входных данных и в Dump (alias, если задан)
	GoName   string
	Type     reflect.Type // тип поля структуры, всегда указатель или interface
	Field    *schema.Field
	Required bool
}

// Model — валидационная модель, построенная по таблице.
type Model struct {
	Name   string
	Doc    string
	Table  string
	Config Config

	fields     []*FieldSpec
	lookup     map[string]*FieldSpec
	byGoName   map[string]*FieldSpec
	validators map[string]ValidatorFunc
	typ        reflect.Type
	validate   *validator.Validate
}

// Derive строит модель по таблице. Если у таблицы включён CacheModels,
// первая построенная модель запоминается и возвращается дальше.
func Derive(t *schema.Table, opts ...Option) (*Model, error) {
	if t == nil {
		return nil, fmt.Errorf("derive model: nil table")
	}
	o := &options{
		exclude:    map[string]bool{},
		validators: map[string]ValidatorFunc{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if !t.CacheModels {
		return build(t, o)
	}
	v, err := t.Memo("model", func() (any, error) { return build(t, o) })
	if err != nil {
		return nil, err
	}
	return v.(*Model), nil
}

func build(t *schema.Table, o *options) (*Model, error) {
	m := &Model{
		Name:       o.name,
		Doc:        o.doc,
		Table:      t.Name,
		Config:     o.config,
		lookup:     map[string]*FieldSpec{},
		byGoName:   map[string]*FieldSpec{},
		validators: map[string]ValidatorFunc{},
	}
	if m.Name == "" {
		m.Name = exportName(t.Name)
	}

	own := map[string]bool{}
	for _, f := range t.Fields() {
		own[f.Name] = true
	}
	var fields []*schema.Field
	seen := map[string]bool{}
	for _, b := range o.bases {
		for _, fs := range b.fields {
			if own[fs.Name] || seen[fs.Name] || o.exclude[fs.Name] {
				continue
			}
			seen[fs.Name] = true
			fields = append(fields, fs.Field)
		}
		for k, fn := range b.validators {
			m.validators[k] = fn
		}
	}
	for _, f := range t.Fields() {
		if o.exclude[f.Name] {
			continue
		}
		fields = append(fields, f)
	}
	for k, fn := range o.validators {
		m.validators[k] = fn
	}

	used := map[string]bool{}
	sfs := make([]reflect.StructField, 0, len(fields))
	for _, f := range fields {
		fs := &FieldSpec{
			Name:     f.Name,
			Key:      f.Key(),
			GoName:   uniqueName(exportName(f.Name), used),
			Field:    f,
			Required: !f.Nullable && !f.HasDefault() && !f.AutoIncrement,
		}
		vt := f.ValueType()
		if vt.Kind() == reflect.Interface {
			fs.Type = vt
		} else {
			fs.Type = reflect.PointerTo(vt)
		}
		tag := fmt.Sprintf(`json:"%s"`, fs.Key)
		if rules := validateTag(f, vt); rules != "" && fs.Type.Kind() == reflect.Pointer {
			tag += fmt.Sprintf(` validate:"omitnil,%s"`, rules)
		}
		sfs = append(sfs, reflect.StructField{Name: fs.GoName, Type: fs.Type, Tag: reflect.StructTag(tag)})
		m.fields = append(m.fields, fs)
		m.byGoName[fs.GoName] = fs
		m.lookup[fs.Name] = fs
		if fs.Key != fs.Name {
			m.lookup[fs.Key] = fs
		}
	}
	for k := range m.validators {
		if _, ok := m.lookup[k]; !ok {
			return nil, fmt.Errorf("model %s: validator for unknown field %q", m.Name, k)
		}
	}

	typ, err := structOf(sfs)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", m.Name, err)
	}
	m.typ = typ
	if m.validate, err = newValidate(m); err != nil {
		return nil, fmt.Errorf("model %s: %w", m.Name, err)
	}
	return m, nil
}

func structOf(sfs []reflect.StructField) (typ reflect.Type, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build struct: %v", r)
		}
	}()
	return reflect.StructOf(sfs), nil
}

// Fields возвращает поля в порядке модели.
func (m *Model) Fields() []*FieldSpec {
	out := make([]*FieldSpec, len(m.fields))
	copy(out, m.fields)
	return out
}

// Field ищет поле по имени колонки или по alias.
func (m *Model) Field(name string) (*FieldSpec, bool) {
	fs, ok := m.lookup[name]
	return fs, ok
}

// Type — сгенерированный тип структуры.
func (m *Model) Type() reflect.Type { return m.typ }

func (m *Model) String() string { return m.Name }

// exportName делает из имени колонки экспортируемый идентификатор: user_id → UserId.
func exportName(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	out := b.String()
	if out == "" || !unicode.IsUpper([]rune(out)[0]) {
		out = "F" + out
	}
	return out
}

func uniqueName(name string, used map[string]bool) string {
	out := name
	for i := 2; used[out]; i++ {
		out = fmt.Sprintf("%s%d", name, i)
	}
	used[out] = true
	return out
}
