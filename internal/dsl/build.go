package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"adminkit/internal/schema"
)

// Enums отдаёт коды справочника по имени (reference.Catalogs).
type Enums interface {
	Codes(name string) ([]string, bool)
}

// Build создаёт таблицы в md. Тип ref-колонки берётся у целевой колонки,
// если она объявлена в этом же наборе или уже есть в md; иначе string.
func Build(md *schema.Metadata, tables []*Table, enums Enums) ([]*schema.Table, error) {
	declared := make(map[string]*Table, len(tables))
	for _, t := range tables {
		declared[t.Name] = t
	}

	out := make([]*schema.Table, 0, len(tables))
	for _, t := range tables {
		specs := make([]schema.ColumnSpec, 0, len(t.Fields))
		for _, f := range t.Fields {
			field, err := buildField(f, enums)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %s.%s: %w", t.File, f.Line, t.Name, f.Name, err)
			}
			if field.ForeignKey != nil {
				field.Type, field.Size = refType(md, declared, field.ForeignKey)
			}
			specs = append(specs, field)
		}
		st, err := schema.NewTable(t.Name, md, specs...)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", t.File, t.Line, err)
		}
		st.Comment = t.Comment
		st.UniqueTogether = t.Unique
		out = append(out, st)
	}
	return out, nil
}

func refType(md *schema.Metadata, declared map[string]*Table, fk *schema.ForeignKey) (schema.ColumnType, int) {
	if t, ok := declared[fk.Table]; ok {
		for _, f := range t.Fields {
			if f.Name != fk.Column {
				continue
			}
			if typ, err := columnType(f); err == nil && f.Type != "ref" {
				size, _ := strconv.Atoi(f.Options["size"])
				return typ, size
			}
		}
	}
	if t, ok := md.Tabler(fk.Table); ok {
		for _, c := range t.Columns() {
			if c.Name == fk.Column {
				return c.Type, c.Size
			}
		}
	}
	return schema.TypeString, 0
}

func columnType(f Field) (schema.ColumnType, error) {
	switch f.Type {
	case "array":
		return schema.TypeJSON, nil
	default:
		return schema.ParseColumnType(f.Type)
	}
}

func buildField(f Field, enums Enums) (*schema.Field, error) {
	typ, err := columnType(f)
	if err != nil {
		return nil, err
	}
	out := &schema.Field{Column: schema.Column{Name: f.Name, Type: typ}}
	out.PrimaryKey = f.Flag("pk")
	out.AutoIncrement = f.Flag("auto")
	out.Unique = f.Flag("unique")
	out.Index = f.Flag("index")
	out.Nullable = !f.Flag("required") && !out.PrimaryKey
	if f.Flag("nullable") {
		out.Nullable = true
	}
	out.Frozen = f.Flag("frozen")
	out.Exclude = f.Flag("exclude")
	out.Strict = f.Flag("strict")
	out.Column.Comment = f.Options["comment"]
	out.Title = f.Options["title"]
	out.Description = f.Options["description"]
	out.Alias = f.Options["alias"]
	out.Pattern = f.Options["pattern"]

	if v, ok := f.Options["size"]; ok {
		if out.Size, err = strconv.Atoi(v); err != nil || out.Size <= 0 {
			return nil, fmt.Errorf("size must be a positive integer, got %q", v)
		}
	}

	for opt, dst := range map[string]**float64{
		"gt": &out.Gt, "ge": &out.Ge, "lt": &out.Lt, "le": &out.Le,
		"min": &out.Ge, "max": &out.Le, "multiple_of": &out.MultipleOf,
	} {
		v, ok := f.Options[opt]
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number, got %q", opt, v)
		}
		*dst = &n
	}
	for opt, dst := range map[string]**int{"min_length": &out.MinLength, "max_length": &out.MaxLength} {
		v, ok := f.Options[opt]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer, got %q", opt, v)
		}
		*dst = &n
	}

	switch {
	case f.Type == "enum" && len(f.Enum) > 0:
		out.Choices = f.Enum
	case f.Type == "enum":
		name := f.Options["catalog"]
		if name == "" {
			return nil, fmt.Errorf("enum needs values enum[a,b] or catalog=<name>")
		}
		if enums == nil {
			return nil, fmt.Errorf("enum catalog %q: no catalogs loaded", name)
		}
		codes, ok := enums.Codes(name)
		if !ok {
			return nil, fmt.Errorf("unknown enum catalog %q", name)
		}
		out.Choices = codes
	case f.Type == "ref":
		if out.ForeignKey, err = schema.ParseForeignKey(f.RefTarget, f.Options["on_delete"]); err != nil {
			return nil, err
		}
	}
	if f.Type != "ref" && f.Options["on_delete"] != "" {
		return nil, fmt.Errorf("on_delete is allowed only for ref fields")
	}

	if v, ok := f.Options["default"]; ok {
		if out.Column.Default, err = parseDefault(typ, v); err != nil {
			return nil, err
		}
	}
	if v, ok := f.Options["default_factory"]; ok {
		if out.DefaultFactory, err = schema.Factory(v); err != nil {
			return nil, err
		}
	}

	for k, v := range f.Options {
		if d, ok := strings.CutPrefix(k, "dialect."); ok {
			if out.Dialect == nil {
				out.Dialect = make(map[string]string)
			}
			out.Dialect[d] = v
		}
	}
	return out, nil
}

// parseDefault приводит строковое значение default к типу колонки.
func parseDefault(typ schema.ColumnType, v string) (any, error) {
	switch typ {
	case schema.TypeInt:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("default %q is not an integer", v)
		}
		return n, nil
	case schema.TypeFloat, schema.TypeDecimal:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("default %q is not a number", v)
		}
		return n, nil
	case schema.TypeBool:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("default %q is not a boolean", v)
		}
		return b, nil
	default:
		return v, nil
	}
}
