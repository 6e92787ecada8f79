package api

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"adminkit/internal/schema"
)

// tableStore читает и пишет строки таблицы через gorm без Go-структуры:
// строки — map[имя колонки]значение.
type tableStore struct {
	t *schema.Table
}

func (s tableStore) filtered(tx *gorm.DB, filters []Filter) *gorm.DB {
	q := tx.Table(s.t.Name)
	for _, f := range filters {
		q = q.Where(condition(f))
	}
	return q
}

func condition(f Filter) clause.Expression {
	col := clause.Column{Name: f.Column}
	v := f.Values[0]
	switch f.Op {
	case "ne":
		return clause.Neq{Column: col, Value: v}
	case "in":
		return clause.IN{Column: col, Values: f.Values}
	case "gt":
		return clause.Gt{Column: col, Value: v}
	case "gte":
		return clause.Gte{Column: col, Value: v}
	case "lt":
		return clause.Lt{Column: col, Value: v}
	case "lte":
		return clause.Lte{Column: col, Value: v}
	case "like":
		return clause.Like{Column: col, Value: "%" + fmt.Sprint(v) + "%"}
	default:
		return clause.Eq{Column: col, Value: v}
	}
}

// list возвращает страницу строк и общее число строк под фильтрами.
// Без явной сортировки строки упорядочены по первичному ключу.
func (s tableStore) list(tx *gorm.DB, p ListParams) ([]map[string]any, int64, error) {
	var total int64
	if err := s.filtered(tx, p.Filters).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := s.filtered(tx, p.Filters).Limit(p.Limit).Offset(p.Offset)
	sort := p.Sort
	if len(sort) == 0 {
		for _, f := range s.t.Info().Primary {
			sort = append(sort, SortKey{Column: f.Name})
		}
	}
	for _, k := range sort {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: k.Column}, Desc: k.Desc})
	}
	rows := []map[string]any{}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// get ищет строку по значению первичного ключа; нет строки — gorm.ErrRecordNotFound.
func (s tableStore) get(tx *gorm.DB, pk *schema.Field, id any) (map[string]any, error) {
	row := map[string]any{}
	err := tx.Table(s.t.Name).Where(clause.Eq{Column: clause.Column{Name: pk.Name}, Value: id}).Take(&row).Error
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s tableStore) insert(tx *gorm.DB, row map[string]any) error {
	return tx.Table(s.t.Name).Create(row).Error
}
