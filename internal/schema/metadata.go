package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Metadata — именованный набор таблиц в порядке добавления.
type Metadata struct {
	mu     sync.RWMutex
	order  []string
	tables map[string]Tabler
}

func NewMetadata() *Metadata {
	return &Metadata{tables: make(map[string]Tabler)}
}

// Add регистрирует таблицу. Обёрнутая таблица может заменить «голую» с тем же именем.
func (m *Metadata) Add(t Tabler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := t.TableName()
	if prev, ok := m.tables[name]; ok {
		_, bare := prev.(*BareTable)
		_, wrapped := t.(*Table)
		if !(bare && wrapped) {
			return fmt.Errorf("table %q already defined", name)
		}
		m.tables[name] = t
		return nil
	}
	m.order = append(m.order, name)
	m.tables[name] = t
	return nil
}

func (m *Metadata) Tabler(name string) (Tabler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	return t, ok
}

// Table ищет обёрнутую таблицу; регистр имени не важен, при неоднозначности
// побеждает таблица, добавленная первой.
func (m *Metadata) Table(name string) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tables[name].(*Table); ok {
		return t, true
	}
	nl := strings.ToLower(strings.TrimSpace(name))
	for _, n := range m.order {
		if strings.ToLower(n) == nl {
			wt, ok := m.tables[n].(*Table)
			return wt, ok
		}
	}
	return nil, false
}

func (m *Metadata) Tables() []Tabler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Tabler, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, m.tables[n])
	}
	return out
}

// Wrapped возвращает обёрнутые таблицы; ok=false, если есть хотя бы одна «голая».
func (m *Metadata) Wrapped() ([]*Table, bool) {
	all := m.Tables()
	out := make([]*Table, 0, len(all))
	for _, t := range all {
		wt, ok := t.(*Table)
		if !ok {
			return nil, false
		}
		out = append(out, wt)
	}
	return out, true
}

// Wrap превращает BareTable с данным именем в *Table, сохраняя атрибуты хранения.
func (m *Metadata) Wrap(name string) (*Table, error) {
	t, ok := m.Tabler(name)
	if !ok {
		return nil, fmt.Errorf("table %q not found", name)
	}
	if wt, ok := t.(*Table); ok {
		return wt, nil
	}
	cols := t.Columns()
	specs := make([]ColumnSpec, len(cols))
	for i, c := range cols {
		specs[i] = c
	}
	wt, err := newTable(name, m, specs)
	if err != nil {
		return nil, err
	}
	if bt, ok := t.(*BareTable); ok {
		wt.Comment = bt.Comment
	}
	if err := m.Add(wt); err != nil {
		return nil, err
	}
	return wt, nil
}

func (m *Metadata) WrapAll() error {
	for _, t := range m.Tables() {
		if _, err := m.Wrap(t.TableName()); err != nil {
			return err
		}
	}
	return nil
}

// Issue — найденное противоречие в схеме.
type Issue struct {
	Table   string `json:"table" yaml:"table"`
	Column  string `json:"column,omitempty" yaml:"column,omitempty"`
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

type LintError struct {
	Issues []Issue
}

func (e *LintError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		if is.Column != "" {
			parts[i] = fmt.Sprintf("%s.%s: %s", is.Table, is.Column, is.Message)
		} else {
			parts[i] = fmt.Sprintf("%s: %s", is.Table, is.Message)
		}
	}
	return "schema lint: " + strings.Join(parts, "; ")
}

// Lint проверяет противоречия между таблицами: ссылки на несуществующие
// таблицы и колонки, unique-группы с неизвестными колонками.
func (m *Metadata) Lint() []Issue {
	var issues []Issue
	tables := m.Tables()
	cols := make(map[string]map[string]bool, len(tables))
	for _, t := range tables {
		set := make(map[string]bool)
		for _, c := range t.Columns() {
			set[c.Name] = true
		}
		cols[t.TableName()] = set
	}
	for _, t := range tables {
		name := t.TableName()
		if wt, ok := t.(*Table); ok {
			for _, f := range wt.fields {
				issues = append(issues, f.issues(name)...)
			}
			for _, group := range wt.UniqueTogether {
				for _, c := range group {
					if !cols[name][c] {
						issues = append(issues, Issue{
							Table:   name,
							Column:  c,
							Code:    "unique_unknown_column",
							Message: fmt.Sprintf("unique(%s) references unknown column", strings.Join(group, ",")),
						})
					}
				}
			}
		}
		for _, c := range t.Columns() {
			if c.ForeignKey == nil || c.ForeignKey.Table == "" {
				continue
			}
			target, ok := cols[c.ForeignKey.Table]
			switch {
			case !ok:
				issues = append(issues, Issue{
					Table: name, Column: c.Name, Code: "ref_unknown_table",
					Message: fmt.Sprintf("foreign key references unknown table %q", c.ForeignKey.Table),
				})
			case !target[c.ForeignKey.Column]:
				issues = append(issues, Issue{
					Table: name, Column: c.Name, Code: "ref_unknown_column",
					Message: fmt.Sprintf("foreign key references unknown column %s", c.ForeignKey),
				})
			}
		}
	}
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Table != issues[j].Table {
			return issues[i].Table < issues[j].Table
		}
		return issues[i].Column < issues[j].Column
	})
	return issues
}
