package pg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminkit/internal/schema"
)

func companyTables() []schema.Tabler {
	companies := &schema.BareTable{Name: "companies", Cols: []*schema.Column{
		{Name: "id", Type: schema.TypeInt, PrimaryKey: true, AutoIncrement: true},
		{Name: "name", Type: schema.TypeString, Size: 100, Unique: true},
		{Name: "active", Type: schema.TypeBool, Default: true},
	}}
	employees := &schema.BareTable{Name: "employees", Cols: []*schema.Column{
		{Name: "id", Type: schema.TypeInt, PrimaryKey: true, AutoIncrement: true},
		{Name: "company_id", Type: schema.TypeInt, Index: true, ForeignKey: &schema.ForeignKey{
			Table: "companies", Column: "id", OnDelete: schema.OnDeleteCascade,
		}},
		{Name: "email", Type: schema.TypeString, Nullable: true},
	}}
	return []schema.Tabler{employees, companies}
}

func TestGenerateDDLPostgres(t *testing.T) {
	stmts, err := GenerateDDL(companyTables(), Postgres)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"create table if not exists \"companies\" (\n" +
			"  \"id\" bigint generated by default as identity primary key,\n" +
			"  \"name\" varchar(100) not null,\n" +
			"  \"active\" boolean not null default true\n)",
		`create unique index if not exists "companies_name_uq" on "companies"("name")`,
		"create table if not exists \"employees\" (\n" +
			"  \"id\" bigint generated by default as identity primary key,\n" +
			"  \"company_id\" bigint not null,\n" +
			"  \"email\" text\n)",
		`create index if not exists "employees_company_id_idx" on "employees"("company_id")`,
		`alter table "employees" add constraint "employees_company_id_fk" foreign key ("company_id") references "companies"("id") on delete CASCADE`,
	}, stmts)
}

func TestGenerateDDLSQLite(t *testing.T) {
	stmts, err := GenerateDDL(companyTables(), SQLite)
	require.NoError(t, err)
	require.Len(t, stmts, 4)
	assert.Contains(t, stmts[0], `"id" integer primary key autoincrement`)
	assert.Contains(t, stmts[0], `"active" boolean not null default 1`)
	assert.Contains(t, stmts[2], `"company_id" integer not null references "companies"("id") on delete CASCADE`)
}

func TestGenerateDDLMySQL(t *testing.T) {
	stmts, err := GenerateDDL(companyTables(), MySQL)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "`id` bigint auto_increment primary key")
	assert.Contains(t, stmts[0], "unique key `companies_name_uq` (`name`)")
	assert.Contains(t, stmts[1], "`email` varchar(255)")
	assert.Contains(t, stmts[1], "key `employees_company_id_idx` (`company_id`)")
	assert.Equal(t, "alter table `employees` add constraint `employees_company_id_fk` foreign key (`company_id`) references `companies`(`id`) on delete CASCADE", stmts[2])
}

func TestGenerateDDLCompositeKeys(t *testing.T) {
	md := schema.NewMetadata()
	tbl, err := schema.NewTable("memberships", md,
		&schema.Column{Name: "user_id", Type: schema.TypeInt, PrimaryKey: true},
		&schema.Column{Name: "group_id", Type: schema.TypeInt, PrimaryKey: true},
		&schema.Column{Name: "email", Type: schema.TypeString, Dialect: map[string]string{"postgres": "citext"}},
		&schema.Column{Name: "role", Type: schema.TypeString, Default: "it's"},
	)
	require.NoError(t, err)
	tbl.UniqueTogether = [][]string{{"group_id", "role"}}

	stmts, err := GenerateDDL([]schema.Tabler{tbl}, Postgres)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], `"user_id" bigint not null,`)
	assert.Contains(t, stmts[0], `"email" citext not null`)
	assert.Contains(t, stmts[0], `"role" text not null default 'it''s'`)
	assert.Contains(t, stmts[0], `primary key ("user_id", "group_id")`)
	assert.Equal(t, `create unique index if not exists "memberships_group_id_role_uq" on "memberships"("group_id", "role")`, stmts[1])

	tbl.UniqueTogether = [][]string{{"nope"}}
	_, err = GenerateDDL([]schema.Tabler{tbl}, Postgres)
	assert.ErrorContains(t, err, `unknown column "nope"`)
}

func TestGenerateDDLErrors(t *testing.T) {
	bad := &schema.BareTable{Name: "t", Cols: []*schema.Column{
		{Name: "tags", Type: schema.TypeJSON, Default: []int{1}},
	}}
	_, err := GenerateDDL([]schema.Tabler{bad}, Postgres)
	assert.ErrorContains(t, err, "t.tags: unsupported default value")

	dup := &schema.BareTable{Name: "t", Cols: []*schema.Column{
		{Name: "a", Type: schema.TypeInt}, {Name: "A", Type: schema.TypeInt},
	}}
	_, err = GenerateDDL([]schema.Tabler{dup}, Postgres)
	assert.ErrorContains(t, err, `duplicate column "A"`)

	unknown := &schema.BareTable{Name: "t", Cols: []*schema.Column{{Name: "a", Type: "blob"}}}
	_, err = GenerateDDL([]schema.Tabler{unknown}, Postgres)
	assert.ErrorContains(t, err, "unknown type: blob")
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)
	_, err = ParseDialect("oracle")
	assert.Error(t, err)
}

func TestColumnType(t *testing.T) {
	typ, size := columnType("varchar", 104)
	assert.Equal(t, schema.TypeString, typ)
	assert.Equal(t, 100, size)
	typ, _ = columnType("timestamptz", -1)
	assert.Equal(t, schema.TypeDateTime, typ)
	typ, _ = columnType("tsvector", -1)
	assert.Equal(t, schema.TypeText, typ)
	assert.Equal(t, schema.OnDeleteSetNull, deleteAction("n"))
	assert.Equal(t, schema.OnDeleteRestrict, deleteAction("a"))
}
