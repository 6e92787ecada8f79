package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrTableArgs  = errors.New("table requires a name and metadata")
	ErrColumnArgs = errors.New("column requires a name")
)

// ColumnSpec — то, что можно передать в NewTable: *Column или *Field.
type ColumnSpec interface {
	spec() *Field
}

// Tabler — общее для обёрнутых и «голых» таблиц.
type Tabler interface {
	TableName() string
	Columns() []*Column
}

// NewColumn — короткий конструктор колонки хранения.
func NewColumn(name string, typ ColumnType) (*Column, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrColumnArgs
	}
	return &Column{Name: name, Type: typ}, nil
}

// Table — таблица с валидационными метаданными колонок.
type Table struct {
	Name             string
	Comment          string
	CacheModels      bool
	DisableInfoCache bool
	UniqueTogether   [][]string

	metadata *Metadata
	fields   []*Field
	byName   map[string]*Field

	mu   sync.Mutex
	info *TableInfo
	memo map[string]any
}

// NewTable создаёт таблицу и регистрирует её в md. Простые колонки
// превращаются в Field без потери атрибутов хранения.
func NewTable(name string, md *Metadata, cols ...ColumnSpec) (*Table, error) {
	t, err := newTable(name, md, cols)
	if err != nil {
		return nil, err
	}
	if err := md.Add(t); err != nil {
		return nil, err
	}
	return t, nil
}

func newTable(name string, md *Metadata, cols []ColumnSpec) (*Table, error) {
	if strings.TrimSpace(name) == "" || md == nil {
		return nil, ErrTableArgs
	}
	t := &Table{
		Name:     name,
		metadata: md,
		byName:   make(map[string]*Field, len(cols)),
	}
	var issues []Issue
	for _, c := range cols {
		if c == nil {
			return nil, ErrColumnArgs
		}
		f := c.spec()
		if strings.TrimSpace(f.Name) == "" {
			return nil, ErrColumnArgs
		}
		if _, dup := t.byName[f.Name]; dup {
			return nil, fmt.Errorf("table %s: duplicate column %q", name, f.Name)
		}
		issues = append(issues, f.issues(name)...)
		t.fields = append(t.fields, f)
		t.byName[f.Name] = f
	}
	if len(issues) > 0 {
		return nil, &LintError{Issues: issues}
	}
	return t, nil
}

func (t *Table) TableName() string { return t.Name }

func (t *Table) Metadata() *Metadata { return t.metadata }

// Fields возвращает поля в порядке объявления.
func (t *Table) Fields() []*Field {
	out := make([]*Field, len(t.fields))
	copy(out, t.fields)
	return out
}

func (t *Table) Field(name string) (*Field, bool) {
	f, ok := t.byName[name]
	return f, ok
}

func (t *Table) Columns() []*Column {
	out := make([]*Column, 0, len(t.fields))
	for _, f := range t.fields {
		out = append(out, &f.Column)
	}
	return out
}

// Info возвращает сводку по колонкам. Кешируется на время жизни таблицы,
// если DisableInfoCache не выставлен.
func (t *Table) Info() *TableInfo {
	if t.DisableInfoCache {
		return buildInfo(t)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.info == nil {
		t.info = buildInfo(t)
	}
	return t.info
}

// Memo вычисляет значение один раз на таблицу и ключ.
// Ошибка построения не кешируется.
func (t *Table) Memo(key string, build func() (any, error)) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.memo[key]; ok {
		return v, nil
	}
	v, err := build()
	if err != nil {
		return nil, err
	}
	if t.memo == nil {
		t.memo = make(map[string]any)
	}
	t.memo[key] = v
	return v, nil
}

// TableInfo — производная неизменяемая сводка. Подмножества не исключают друг друга.
type TableInfo struct {
	Table     string
	Primary   []*Field
	Defaulted []*Field
	Unique    []*Field
	Indexed   []*Field
	Nullable  []*Field
	Foreign   []*Field
}

func buildInfo(t *Table) *TableInfo {
	info := &TableInfo{Table: t.Name}
	for _, f := range t.fields {
		if f.PrimaryKey {
			info.Primary = append(info.Primary, f)
		}
		if f.HasDefault() {
			info.Defaulted = append(info.Defaulted, f)
		}
		if f.Unique {
			info.Unique = append(info.Unique, f)
		}
		if f.Index {
			info.Indexed = append(info.Indexed, f)
		}
		if f.Nullable {
			info.Nullable = append(info.Nullable, f)
		}
		if f.ForeignKey != nil {
			info.Foreign = append(info.Foreign, f)
		}
	}
	return info
}

// Names — имена колонок подмножества.
func Names(fields []*Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// BareTable — таблица только с формой хранения (импорт gorm-моделей, интроспекция).
type BareTable struct {
	Name    string
	Comment string
	Cols    []*Column
}

func (b *BareTable) TableName() string { return b.Name }

func (b *BareTable) Columns() []*Column { return b.Cols }
