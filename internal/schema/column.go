package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ColumnType описывает тип хранения колонки, независимо от диалекта.
type ColumnType string

const (
	TypeString   ColumnType = "string"
	TypeText     ColumnType = "text"
	TypeInt      ColumnType = "int"
	TypeFloat    ColumnType = "float"
	TypeDecimal  ColumnType = "decimal"
	TypeBool     ColumnType = "bool"
	TypeDate     ColumnType = "date"
	TypeDateTime ColumnType = "datetime"
	TypeJSON     ColumnType = "json"
	TypeUUID     ColumnType = "uuid"
)

// ParseColumnType принимает имя типа из DSL/конфига (регистр не важен).
func ParseColumnType(s string) (ColumnType, error) {
	switch t := ColumnType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeString, TypeText, TypeInt, TypeFloat, TypeDecimal, TypeBool,
		TypeDate, TypeDateTime, TypeJSON, TypeUUID:
		return t, nil
	case "money":
		return TypeDecimal, nil
	case "enum", "ref":
		return TypeString, nil
	default:
		return "", fmt.Errorf("unknown column type: %s", s)
	}
}

func (t ColumnType) Numeric() bool {
	return t == TypeInt || t == TypeFloat || t == TypeDecimal
}

func (t ColumnType) Textual() bool {
	return t == TypeString || t == TypeText || t == TypeUUID
}

// GoType — тип значения в Go, в который валидационная модель декодирует колонку.
func (t ColumnType) GoType() reflect.Type {
	switch t {
	case TypeInt:
		return reflect.TypeOf(int64(0))
	case TypeFloat, TypeDecimal:
		return reflect.TypeOf(float64(0))
	case TypeBool:
		return reflect.TypeOf(false)
	case TypeDate, TypeDateTime:
		return reflect.TypeOf(time.Time{})
	case TypeJSON:
		return reflect.TypeOf((*any)(nil)).Elem()
	default:
		return reflect.TypeOf("")
	}
}

type OnDelete string

const (
	OnDeleteRestrict OnDelete = "RESTRICT"
	OnDeleteSetNull  OnDelete = "SET NULL"
	OnDeleteCascade  OnDelete = "CASCADE"
)

// ForeignKey указывает на колонку другой таблицы.
type ForeignKey struct {
	Table    string
	Column   string
	OnDelete OnDelete
}

func (fk *ForeignKey) String() string {
	return fk.Table + "." + fk.Column
}

// ParseForeignKey разбирает "table.column"; без колонки подразумевается id.
func ParseForeignKey(ref string, policy string) (*ForeignKey, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty foreign key target")
	}
	fk := &ForeignKey{Table: ref, Column: "id", OnDelete: OnDeleteRestrict}
	if i := strings.LastIndexByte(ref, '.'); i > 0 && i < len(ref)-1 {
		fk.Table, fk.Column = ref[:i], ref[i+1:]
	}
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", "restrict":
	case "set_null", "set null":
		fk.OnDelete = OnDeleteSetNull
	case "cascade":
		fk.OnDelete = OnDeleteCascade
	default:
		return nil, fmt.Errorf("unknown on_delete policy %q (allowed: restrict|set_null|cascade)", policy)
	}
	return fk, nil
}

// Column — форма хранения: всё, что нужно для DDL и для TableInfo.
type Column struct {
	Name          string
	Type          ColumnType
	Size          int
	Nullable      bool
	Unique        bool
	Index         bool
	PrimaryKey    bool
	AutoIncrement bool
	Default       any
	Comment       string
	ForeignKey    *ForeignKey
	Dialect       map[string]string
}

func (c *Column) spec() *Field {
	cp := *c
	if c.Dialect != nil {
		cp.Dialect = make(map[string]string, len(c.Dialect))
		for k, v := range c.Dialect {
			cp.Dialect[k] = v
		}
	}
	return &Field{Column: cp}
}

// Constraints — валидационная форма колонки. Каждое поле перечислено явно,
// указатели означают "не задано".
type Constraints struct {
	DefaultFactory func() any
	Alias          string
	Title          string
	Description    string
	Examples       []any
	Frozen         bool
	Exclude        bool
	Strict         bool

	Gt         *float64
	Ge         *float64
	Lt         *float64
	Le         *float64
	MultipleOf *float64

	MinLength *int
	MaxLength *int
	Pattern   string
	Choices   []string

	// GoType переопределяет тип, выведенный из ColumnType.
	GoType reflect.Type
}

// Field — колонка с валидационными метаданными.
type Field struct {
	Column
	Constraints
}

func (f *Field) spec() *Field { return f }

// Key — имя поля во входных/выходных данных модели.
func (f *Field) Key() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func (f *Field) HasDefault() bool {
	return f.Column.Default != nil || f.DefaultFactory != nil
}

// DefaultValue возвращает значение по умолчанию; фабрика вызывается на каждый запрос.
func (f *Field) DefaultValue() (any, bool) {
	if f.DefaultFactory != nil {
		return f.DefaultFactory(), true
	}
	if f.Column.Default != nil {
		return f.Column.Default, true
	}
	return nil, false
}

// ValueType — тип значения без учёта nullable.
func (f *Field) ValueType() reflect.Type {
	if f.GoType != nil {
		return f.GoType
	}
	return f.Type.GoType()
}

func (f *Field) bounded() bool {
	return f.Gt != nil || f.Ge != nil || f.Lt != nil || f.Le != nil || f.MultipleOf != nil
}

// issues проверяет противоречия внутри одного поля.
func (f *Field) issues(table string) []Issue {
	var out []Issue
	add := func(code, msg string) {
		out = append(out, Issue{Table: table, Column: f.Name, Code: code, Message: msg})
	}
	if f.Column.Default != nil && f.DefaultFactory != nil {
		add("default_conflict", "only one of default and default_factory may be set")
	}
	if f.PrimaryKey && f.Nullable {
		add("nullable_primary_key", "primary key column cannot be nullable")
	}
	if f.bounded() && !f.Type.Numeric() {
		add("bounds_on_non_numeric", fmt.Sprintf("numeric bounds require a numeric column, got %s", f.Type))
	}
	if (f.MinLength != nil || f.MaxLength != nil || f.Pattern != "") && !f.Type.Textual() {
		add("length_on_non_text", fmt.Sprintf("length and pattern constraints require a text column, got %s", f.Type))
	}
	if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
		add("length_range", "min_length is greater than max_length")
	}
	if f.MultipleOf != nil && *f.MultipleOf <= 0 {
		add("multiple_of", "multiple_of must be positive")
	}
	if f.ForeignKey != nil && strings.TrimSpace(f.ForeignKey.Table) == "" {
		add("ref_target_empty", "foreign key has an empty target table")
	}
	if f.ForeignKey != nil && !f.Nullable && f.ForeignKey.OnDelete == OnDeleteSetNull {
		add("required_conflicts_on_delete", "required reference cannot have on_delete=set_null; use restrict (or make the column nullable)")
	}
	return out
}

// Ptr — помощник для указателей в литералах Constraints.
func Ptr[T any](v T) *T { return &v }
