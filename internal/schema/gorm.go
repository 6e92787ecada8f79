package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	gschema "gorm.io/gorm/schema"
)

var gormCache sync.Map

// FromModel строит BareTable из gorm-модели: имя таблицы, колонки,
// индексы из тегов и внешние ключи belongs-to связей.
func FromModel(model any) (*BareTable, error) {
	s, err := gschema.Parse(model, &gormCache, gschema.NamingStrategy{})
	if err != nil {
		return nil, fmt.Errorf("parse gorm model %T: %w", model, err)
	}

	fks := make(map[string]*ForeignKey)
	for _, rel := range s.Relationships.BelongsTo {
		policy := OnDeleteRestrict
		if c := rel.ParseConstraint(); c != nil && c.OnDelete != "" {
			policy = OnDelete(strings.ToUpper(c.OnDelete))
		}
		for _, ref := range rel.References {
			if ref.ForeignKey == nil || ref.PrimaryKey == nil {
				continue
			}
			fks[ref.ForeignKey.DBName] = &ForeignKey{
				Table:    rel.FieldSchema.Table,
				Column:   ref.PrimaryKey.DBName,
				OnDelete: policy,
			}
		}
	}

	bt := &BareTable{Name: s.Table}
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		col := &Column{
			Name:          f.DBName,
			Type:          gormColumnType(f),
			Size:          f.Size,
			PrimaryKey:    f.PrimaryKey,
			AutoIncrement: f.AutoIncrement,
			Unique:        f.Unique,
			Comment:       f.Comment,
			ForeignKey:    fks[f.DBName],
		}
		col.Nullable = f.FieldType.Kind() == reflect.Ptr && !f.NotNull && !f.PrimaryKey
		if _, ok := f.TagSettings["UNIQUEINDEX"]; ok {
			col.Unique = true
		}
		if _, ok := f.TagSettings["INDEX"]; ok {
			col.Index = true
		}
		if f.HasDefaultValue && !f.AutoIncrement {
			switch {
			case f.DefaultValueInterface != nil:
				col.Default = f.DefaultValueInterface
			case f.DefaultValue != "":
				col.Default = strings.Trim(f.DefaultValue, "'")
			}
		}
		bt.Cols = append(bt.Cols, col)
	}
	return bt, nil
}

func gormColumnType(f *gschema.Field) ColumnType {
	switch f.DataType {
	case gschema.Bool:
		return TypeBool
	case gschema.Int, gschema.Uint:
		return TypeInt
	case gschema.Float:
		return TypeFloat
	case gschema.Time:
		return TypeDateTime
	case gschema.Bytes:
		return TypeText
	case gschema.String:
		if f.Size == 0 {
			return TypeText
		}
		return TypeString
	}
	if t, err := ParseColumnType(string(f.DataType)); err == nil {
		return t
	}
	return TypeJSON
}
