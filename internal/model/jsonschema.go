package model

import "adminkit/internal/schema"

// Schema — описание модели для форм UI (подмножество JSON Schema).
type Schema struct {
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Type        string               `json:"type"`
	Properties  map[string]*Property `json:"properties"`
	Order       []string             `json:"propertyOrder"`
	Required    []string             `json:"required,omitempty"`
}

type Property struct {
	Type             string   `json:"type,omitempty"`
	Format           string   `json:"format,omitempty"`
	Title            string   `json:"title,omitempty"`
	Description      string   `json:"description,omitempty"`
	Default          any      `json:"default,omitempty"`
	Examples         []any    `json:"examples,omitempty"`
	Enum             []string `json:"enum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	Minimum          *float64 `json:"minimum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	MultipleOf       *float64 `json:"multipleOf,omitempty"`
	MinLength        *int     `json:"minLength,omitempty"`
	MaxLength        *int     `json:"maxLength,omitempty"`
	Pattern          string   `json:"pattern,omitempty"`
	Nullable         bool     `json:"nullable,omitempty"`
	ReadOnly         bool     `json:"readOnly,omitempty"`
}

func (m *Model) JSONSchema() *Schema {
	s := &Schema{
		Title:       m.Name,
		Description: m.Doc,
		Type:        "object",
		Properties:  make(map[string]*Property, len(m.fields)),
	}
	for _, fs := range m.fields {
		f := fs.Field
		p := &Property{
			Title:            f.Title,
			Description:      f.Description,
			Examples:         f.Examples,
			Enum:             f.Choices,
			ExclusiveMinimum: f.Gt,
			Minimum:          f.Ge,
			ExclusiveMaximum: f.Lt,
			Maximum:          f.Le,
			MultipleOf:       f.MultipleOf,
			MinLength:        f.MinLength,
			MaxLength:        f.MaxLength,
			Pattern:          f.Pattern,
			Nullable:         f.Nullable,
			ReadOnly:         f.Frozen,
		}
		if p.Title == "" {
			p.Title = fs.Key
		}
		if p.Description == "" {
			p.Description = f.Comment
		}
		if f.DefaultFactory == nil {
			p.Default = f.Column.Default
		}
		p.Type, p.Format = jsonType(f.Type)
		s.Properties[fs.Key] = p
		s.Order = append(s.Order, fs.Key)
		if fs.Required {
			s.Required = append(s.Required, fs.Key)
		}
	}
	return s
}

func jsonType(t schema.ColumnType) (string, string) {
	switch t {
	case schema.TypeInt:
		return "integer", ""
	case schema.TypeFloat, schema.TypeDecimal:
		return "number", ""
	case schema.TypeBool:
		return "boolean", ""
	case schema.TypeDate:
		return "string", "date"
	case schema.TypeDateTime:
		return "string", "date-time"
	case schema.TypeUUID:
		return "string", "uuid"
	case schema.TypeJSON:
		return "", ""
	default:
		return "string", ""
	}
}
