package pg

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"adminkit/internal/schema"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
	MySQL    Dialect = "mysql"
)

func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case Postgres, SQLite, MySQL:
		return d, nil
	case "postgresql", "pg":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unknown SQL dialect: %s (allowed: postgres|sqlite|mysql)", s)
	}
}

func (d Dialect) ident(s string) string {
	q := `"`
	if d == MySQL {
		q = "`"
	}
	parts := strings.Split(s, ".")
	for i, p := range parts {
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

func (d Dialect) mapType(c *schema.Column) (string, error) {
	if t := strings.TrimSpace(c.Dialect[string(d)]); t != "" {
		return t, nil
	}
	switch c.Type {
	case schema.TypeString:
		switch {
		case c.Size > 0:
			return fmt.Sprintf("varchar(%d)", c.Size), nil
		case d == MySQL:
			return "varchar(255)", nil
		default:
			return "text", nil
		}
	case schema.TypeText:
		return "text", nil
	case schema.TypeInt:
		if d == SQLite {
			return "integer", nil
		}
		return "bigint", nil
	case schema.TypeFloat:
		switch d {
		case MySQL:
			return "double", nil
		case SQLite:
			return "real", nil
		}
		return "double precision", nil
	case schema.TypeDecimal:
		if d == SQLite {
			return "numeric", nil
		}
		return "numeric(18,2)", nil
	case schema.TypeBool:
		return "boolean", nil
	case schema.TypeDate:
		return "date", nil
	case schema.TypeDateTime:
		if d == Postgres {
			return "timestamp with time zone", nil
		}
		return "datetime", nil
	case schema.TypeJSON:
		switch d {
		case MySQL:
			return "json", nil
		case SQLite:
			return "text", nil
		}
		return "jsonb", nil
	case schema.TypeUUID:
		switch d {
		case MySQL:
			return "char(36)", nil
		case SQLite:
			return "text", nil
		}
		return "uuid", nil
	default:
		return "", fmt.Errorf("unknown type: %s", c.Type)
	}
}

// literal рендерит значение по умолчанию как SQL-литерал.
func (d Dialect) literal(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	case bool:
		if d == SQLite {
			if x {
				return "1", nil
			}
			return "0", nil
		}
		return fmt.Sprintf("%t", x), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", x), nil
	case time.Time:
		return "'" + x.UTC().Format(time.RFC3339) + "'", nil
	default:
		return "", fmt.Errorf("unsupported default value %v (%T)", v, v)
	}
}

// GenerateDDL строит idempotent DDL в две фазы: сначала таблицы и индексы,
// затем внешние ключи, чтобы порядок таблиц не имел значения.
// В SQLite внешние ключи объявляются внутри create table.
func GenerateDDL(tables []schema.Tabler, d Dialect) ([]string, error) {
	sorted := make([]schema.Tabler, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TableName() < sorted[j].TableName() })

	var phaseA, phaseB []string
	for _, t := range sorted {
		create, indexes, fks, err := d.table(t)
		if err != nil {
			return nil, err
		}
		phaseA = append(phaseA, create)
		phaseA = append(phaseA, indexes...)
		phaseB = append(phaseB, fks...)
	}
	return append(phaseA, phaseB...), nil
}

func (d Dialect) table(t schema.Tabler) (create string, indexes, fks []string, err error) {
	name := t.TableName()
	base := indexBase(name)
	cols := t.Columns()

	var pks []string
	for _, c := range cols {
		if c.PrimaryKey {
			pks = append(pks, c.Name)
		}
	}

	var defs, extra []string
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		lower := strings.ToLower(c.Name)
		if _, dup := seen[lower]; dup {
			return "", nil, nil, fmt.Errorf("%s: duplicate column %q", name, c.Name)
		}
		seen[lower] = struct{}{}

		def, err := d.column(c, len(pks) == 1)
		if err != nil {
			return "", nil, nil, fmt.Errorf("%s.%s: %w", name, c.Name, err)
		}
		if c.ForeignKey != nil && d == SQLite {
			def += fmt.Sprintf(" references %s(%s) on delete %s",
				d.ident(c.ForeignKey.Table), d.ident(c.ForeignKey.Column), onDelete(c.ForeignKey))
		}
		defs = append(defs, def)

		switch {
		case c.Unique && !c.PrimaryKey && d == MySQL:
			extra = append(extra, fmt.Sprintf("unique key %s (%s)", d.ident(base+"_"+c.Name+"_uq"), d.ident(c.Name)))
		case c.Unique && !c.PrimaryKey:
			indexes = append(indexes, fmt.Sprintf("create unique index if not exists %s on %s(%s)",
				d.ident(base+"_"+c.Name+"_uq"), d.ident(name), d.ident(c.Name)))
		case c.Index && d == MySQL:
			extra = append(extra, fmt.Sprintf("key %s (%s)", d.ident(base+"_"+c.Name+"_idx"), d.ident(c.Name)))
		case c.Index:
			indexes = append(indexes, fmt.Sprintf("create index if not exists %s on %s(%s)",
				d.ident(base+"_"+c.Name+"_idx"), d.ident(name), d.ident(c.Name)))
		}

		if c.ForeignKey != nil && d != SQLite {
			fks = append(fks, fmt.Sprintf("alter table %s add constraint %s foreign key (%s) references %s(%s) on delete %s",
				d.ident(name), d.ident(base+"_"+c.Name+"_fk"), d.ident(c.Name),
				d.ident(c.ForeignKey.Table), d.ident(c.ForeignKey.Column), onDelete(c.ForeignKey)))
		}
	}
	if len(pks) > 1 {
		defs = append(defs, "primary key ("+d.idents(pks)+")")
	}

	if wrapped, ok := t.(*schema.Table); ok {
		for _, set := range wrapped.UniqueTogether {
			if len(set) == 0 {
				continue
			}
			for _, col := range set {
				if _, known := seen[strings.ToLower(col)]; !known {
					return "", nil, nil, fmt.Errorf("%s: unique constraint references unknown column %q", name, col)
				}
			}
			idx := base + "_" + strings.Join(set, "_") + "_uq"
			if d == MySQL {
				extra = append(extra, fmt.Sprintf("unique key %s (%s)", d.ident(idx), d.idents(set)))
				continue
			}
			indexes = append(indexes, fmt.Sprintf("create unique index if not exists %s on %s(%s)",
				d.ident(idx), d.ident(name), d.idents(set)))
		}
	}

	defs = append(defs, extra...)
	create = fmt.Sprintf("create table if not exists %s (\n  %s\n)", d.ident(name), strings.Join(defs, ",\n  "))
	return create, indexes, fks, nil
}

func (d Dialect) column(c *schema.Column, singlePK bool) (string, error) {
	typ, err := d.mapType(c)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(d.ident(c.Name))
	b.WriteByte(' ')

	autoinc := c.AutoIncrement && c.Type == schema.TypeInt
	switch {
	case autoinc && d == SQLite && singlePK && c.PrimaryKey:
		// rowid-алиас в SQLite возможен только для integer primary key
		b.WriteString("integer primary key autoincrement")
		return b.String(), nil
	case autoinc && d == Postgres:
		b.WriteString(typ + " generated by default as identity")
	case autoinc && d == MySQL:
		b.WriteString(typ + " auto_increment")
	default:
		b.WriteString(typ)
	}

	if c.PrimaryKey && singlePK {
		b.WriteString(" primary key")
	} else if !c.Nullable || c.PrimaryKey {
		b.WriteString(" not null")
	}
	if c.Default != nil && !c.AutoIncrement {
		lit, err := d.literal(c.Default)
		if err != nil {
			return "", err
		}
		b.WriteString(" default " + lit)
	}
	return b.String(), nil
}

func (d Dialect) idents(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.ident(n)
	}
	return strings.Join(out, ", ")
}

func onDelete(fk *schema.ForeignKey) schema.OnDelete {
	if fk.OnDelete == "" {
		return schema.OnDeleteRestrict
	}
	return fk.OnDelete
}

// indexBase — имя таблицы без схемы, для имён индексов и ограничений.
func indexBase(table string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		table = table[i+1:]
	}
	return strings.ToLower(table)
}
