package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"adminkit/internal/schema"
)

func TestDDLCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.dsl"), []byte(`
table companies:
  id: int pk auto
  name: string size=100 required unique
`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"ddl", "--dsl", dir, "--enums", filepath.Join(dir, "none"), "--dialect", "sqlite"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, `create table if not exists "companies" (
  "id" integer primary key autoincrement,
  "name" varchar(100) not null
);

create unique index if not exists "companies_name_uq" on "companies"("name");

`, out.String())
}

func TestExampleSchema(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"ddl", "--dsl", "../../dsl", "--enums", "../../reference/enums", "--dialect", "postgres"})
	require.NoError(t, rootCmd.Execute())

	ddl := out.String()
	assert.Contains(t, ddl, `"id" bigint generated by default as identity primary key`)
	assert.Contains(t, ddl, `"public_id" uuid`)
	assert.Contains(t, ddl, `create unique index if not exists "employees_company_id_email_uq" on "employees"("company_id", "email")`)
	assert.Contains(t, ddl, `alter table "employees" add constraint "employees_company_id_fk" foreign key ("company_id") references "companies"("id") on delete CASCADE`)
}

func TestInspectTables(t *testing.T) {
	fk, err := schema.ParseForeignKey("companies", "cascade")
	require.NoError(t, err)
	tables := inspectTables([]*schema.BareTable{{
		Name: "employees",
		Cols: []*schema.Column{
			{Name: "id", Type: schema.TypeInt, PrimaryKey: true, AutoIncrement: true},
			{Name: "company_id", Type: schema.TypeInt, ForeignKey: fk},
		},
	}})
	raw, err := yaml.Marshal(tables)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "references: companies.id")
	assert.Contains(t, string(raw), "onDelete: CASCADE")
	assert.NotContains(t, string(raw), "comment")

	var back []inspectTable
	require.NoError(t, yaml.Unmarshal(raw, &back))
	assert.Equal(t, []inspectTable{{
		Name: "employees",
		Columns: []inspectColumn{
			{Name: "id", Type: "int", PrimaryKey: true, Auto: true},
			{Name: "company_id", Type: "int", References: "companies.id", OnDelete: "CASCADE"},
		},
	}}, back)
}
