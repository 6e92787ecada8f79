package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"adminkit/internal/schema"
)

// Querier — *pgxpool.Pool, *pgx.Conn или pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Introspect читает из pg_catalog таблицы указанных схем вместе с колонками,
// первичными и внешними ключами. Таблицы из public называются без схемы.
func Introspect(ctx context.Context, q Querier, schemas []string) ([]*schema.BareTable, error) {
	if len(schemas) == 0 {
		schemas = []string{"public"}
	}
	tables, order, err := queryColumns(ctx, q, schemas)
	if err != nil {
		return nil, fmt.Errorf("querying tables and columns: %w", err)
	}
	if err := queryPrimaryKeys(ctx, q, schemas, tables); err != nil {
		return nil, fmt.Errorf("querying primary keys: %w", err)
	}
	if err := queryUnique(ctx, q, schemas, tables); err != nil {
		return nil, fmt.Errorf("querying unique constraints: %w", err)
	}
	if err := queryForeignKeys(ctx, q, schemas, tables); err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}

	out := make([]*schema.BareTable, 0, len(order))
	for _, key := range order {
		out = append(out, tables[key].table)
	}
	return out, nil
}

type introspected struct {
	table  *schema.BareTable
	byName map[string]*schema.Column
}

func tableName(schemaName, table string) string {
	if schemaName == "public" {
		return table
	}
	return schemaName + "." + table
}

func queryColumns(ctx context.Context, q Querier, schemas []string) (map[string]*introspected, []string, error) {
	query := `
		SELECT
			n.nspname AS schema_name,
			c.relname AS table_name,
			a.attname AS column_name,
			t.typname AS data_type,
			a.atttypmod AS type_mod,
			NOT a.attnotnull AS is_nullable,
			a.attidentity::text <> '' OR coalesce(pg_get_expr(d.adbin, d.adrelid), '') LIKE 'nextval(%' AS is_serial,
			coalesce(col_description(c.oid, a.attnum), '') AS comment
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid
		JOIN pg_type t ON t.oid = a.atttypid
		LEFT JOIN pg_attrdef d ON d.adrelid = c.oid AND d.adnum = a.attnum
		WHERE c.relkind = 'r'
			AND a.attnum > 0
			AND NOT a.attisdropped
			AND n.nspname = ANY($1)
		ORDER BY n.nspname, c.relname, a.attnum
	`
	rows, err := q.Query(ctx, query, schemas)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	tables := make(map[string]*introspected)
	var order []string
	for rows.Next() {
		var schemaName, table, col, dataType, comment string
		var typeMod int32
		var nullable, serial bool
		if err := rows.Scan(&schemaName, &table, &col, &dataType, &typeMod, &nullable, &serial, &comment); err != nil {
			return nil, nil, err
		}
		key := tableName(schemaName, table)
		it, ok := tables[key]
		if !ok {
			it = &introspected{
				table:  &schema.BareTable{Name: key},
				byName: make(map[string]*schema.Column),
			}
			tables[key] = it
			order = append(order, key)
		}
		c := &schema.Column{
			Name:          col,
			Nullable:      nullable,
			AutoIncrement: serial,
			Comment:       comment,
		}
		c.Type, c.Size = columnType(dataType, typeMod)
		it.table.Cols = append(it.table.Cols, c)
		it.byName[col] = c
	}
	return tables, order, rows.Err()
}

// columnType сводит имя типа pg_type к ColumnType; неизвестные типы считаются text.
func columnType(typname string, typmod int32) (schema.ColumnType, int) {
	switch typname {
	case "int2", "int4", "int8":
		return schema.TypeInt, 0
	case "float4", "float8":
		return schema.TypeFloat, 0
	case "numeric", "money":
		return schema.TypeDecimal, 0
	case "bool":
		return schema.TypeBool, 0
	case "varchar", "bpchar":
		// atttypmod включает 4 байта заголовка
		if typmod > 4 {
			return schema.TypeString, int(typmod - 4)
		}
		return schema.TypeString, 0
	case "date":
		return schema.TypeDate, 0
	case "timestamp", "timestamptz":
		return schema.TypeDateTime, 0
	case "json", "jsonb":
		return schema.TypeJSON, 0
	case "uuid":
		return schema.TypeUUID, 0
	default:
		return schema.TypeText, 0
	}
}

func queryPrimaryKeys(ctx context.Context, q Querier, schemas []string, tables map[string]*introspected) error {
	query := `
		SELECT
			n.nspname AS schema_name,
			c.relname AS table_name,
			a.attname AS column_name
		FROM pg_constraint con
		JOIN pg_class c ON c.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS u(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = u.attnum
		WHERE con.contype = 'p'
			AND n.nspname = ANY($1)
		ORDER BY n.nspname, c.relname, u.ord
	`
	return eachColumn(ctx, q, query, schemas, tables, func(c *schema.Column) {
		c.PrimaryKey = true
		c.Nullable = false
	})
}

// queryUnique отмечает колонки с одноколоночным unique-ограничением или индексом.
func queryUnique(ctx context.Context, q Querier, schemas []string, tables map[string]*introspected) error {
	query := `
		SELECT
			n.nspname AS schema_name,
			c.relname AS table_name,
			a.attname AS column_name
		FROM pg_index i
		JOIN pg_class c ON c.oid = i.indrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = i.indkey[0]
		WHERE i.indisunique
			AND NOT i.indisprimary
			AND i.indnatts = 1
			AND n.nspname = ANY($1)
		ORDER BY n.nspname, c.relname, a.attnum
	`
	return eachColumn(ctx, q, query, schemas, tables, func(c *schema.Column) {
		c.Unique = true
	})
}

func eachColumn(ctx context.Context, q Querier, query string, schemas []string, tables map[string]*introspected, mark func(*schema.Column)) error {
	rows, err := q.Query(ctx, query, schemas)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var schemaName, table, col string
		if err := rows.Scan(&schemaName, &table, &col); err != nil {
			return err
		}
		it, ok := tables[tableName(schemaName, table)]
		if !ok {
			continue
		}
		if c, ok := it.byName[col]; ok {
			mark(c)
		}
	}
	return rows.Err()
}

// queryForeignKeys переносит на колонки только одноколоночные внешние ключи:
// составной ключ не выражается через Column.ForeignKey.
func queryForeignKeys(ctx context.Context, q Querier, schemas []string, tables map[string]*introspected) error {
	query := `
		SELECT
			cn.nspname AS child_schema,
			cc.relname AS child_table,
			ca.attname AS child_column,
			pn.nspname AS parent_schema,
			pc.relname AS parent_table,
			pa.attname AS parent_column,
			con.confdeltype::text AS on_delete
		FROM pg_constraint con
		JOIN pg_class cc ON cc.oid = con.conrelid
		JOIN pg_namespace cn ON cn.oid = cc.relnamespace
		JOIN pg_class pc ON pc.oid = con.confrelid
		JOIN pg_namespace pn ON pn.oid = pc.relnamespace
		JOIN pg_attribute ca ON ca.attrelid = cc.oid AND ca.attnum = con.conkey[1]
		JOIN pg_attribute pa ON pa.attrelid = pc.oid AND pa.attnum = con.confkey[1]
		WHERE con.contype = 'f'
			AND array_length(con.conkey, 1) = 1
			AND cn.nspname = ANY($1)
		ORDER BY con.conname
	`
	rows, err := q.Query(ctx, query, schemas)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var childSchema, childTable, childCol, parentSchema, parentTable, parentCol, action string
		if err := rows.Scan(&childSchema, &childTable, &childCol, &parentSchema, &parentTable, &parentCol, &action); err != nil {
			return err
		}
		it, ok := tables[tableName(childSchema, childTable)]
		if !ok {
			continue
		}
		c, ok := it.byName[childCol]
		if !ok {
			continue
		}
		c.ForeignKey = &schema.ForeignKey{
			Table:    tableName(parentSchema, parentTable),
			Column:   parentCol,
			OnDelete: deleteAction(action),
		}
	}
	return rows.Err()
}

// deleteAction переводит pg_constraint.confdeltype; no action считается restrict.
func deleteAction(code string) schema.OnDelete {
	switch code {
	case "c":
		return schema.OnDeleteCascade
	case "n":
		return schema.OnDeleteSetNull
	default:
		return schema.OnDeleteRestrict
	}
}
