package dsl

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminkit/internal/schema"
)

const crm = `
# демо
table companies: # Компании
  id: int pk auto
  name: string size=120 required unique title="Company name"
  status: enum[active, archived] default=active

table employees:
  id: int pk auto
  company_id: ref[companies] required on_delete=cascade index
  email: string required pattern='^[^@ ]+@[^@ ]+$' max_length=200  # почта
  code: string pattern=^[A-Z]{2,4}$
  age: int ge=18 lt=130 default=21
  salary: money min=0 multiple_of=0.01
  role: enum catalog=roles
  tags: array[string] nullable
  public_id: uuid default_factory=uuid frozen dialect.postgres=uuid
  constraints:
    unique(company_id, email)
  note: text exclude
`

type fakeEnums map[string][]string

func (f fakeEnums) Codes(name string) ([]string, bool) {
	c, ok := f[name]
	return c, ok
}

func TestParse(t *testing.T) {
	tables, err := Parse(strings.NewReader(crm), "crm.dsl")
	require.NoError(t, err)
	require.Len(t, tables, 2)

	companies := tables[0]
	assert.Equal(t, "companies", companies.Name)
	assert.Equal(t, "Компании", companies.Comment)
	require.Len(t, companies.Fields, 3)
	name := companies.Fields[1]
	assert.Equal(t, "string", name.Type)
	assert.Equal(t, map[string]string{"size": "120", "required": "true", "unique": "true", "title": "Company name"}, name.Options)
	assert.Equal(t, []string{"active", "archived"}, companies.Fields[2].Enum)

	employees := tables[1]
	require.Len(t, employees.Fields, 10)
	assert.Equal(t, [][]string{{"company_id", "email"}}, employees.Unique)
	ref := employees.Fields[1]
	assert.Equal(t, "ref", ref.Type)
	assert.Equal(t, "companies", ref.RefTarget)
	assert.Equal(t, 10, ref.Line)
	assert.Equal(t, `^[^@ ]+@[^@ ]+$`, employees.Fields[2].Options["pattern"])
	assert.Equal(t, `^[A-Z]{2,4}$`, employees.Fields[3].Options["pattern"])
	assert.Equal(t, "string", employees.Fields[7].ElemType)
	assert.Equal(t, "note", employees.Fields[9].Name)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"name: string\n":                       "crm.dsl:1: expected `table <name>:`",
		"table t:\n  a: int bogus\n":           `crm.dsl:2: a: unknown option "bogus"`,
		"table t:\n  a: int size\n":            `option "size" requires a value`,
		"table t:\n  what is this\n":           "cannot parse line",
		"table t:\n  constraints:\n  ???: x\n": "cannot parse line",
	}
	for src, want := range cases {
		_, err := Parse(strings.NewReader(src), "crm.dsl")
		assert.ErrorContains(t, err, want, src)
	}
}

func TestBuild(t *testing.T) {
	tables, err := Parse(strings.NewReader(crm), "crm.dsl")
	require.NoError(t, err)

	md := schema.NewMetadata()
	built, err := Build(md, tables, fakeEnums{"roles": {"admin", "viewer"}})
	require.NoError(t, err)
	require.Len(t, built, 2)

	companies, ok := md.Table("companies")
	require.True(t, ok)
	assert.Equal(t, "Компании", companies.Comment)
	id, _ := companies.Field("id")
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.AutoIncrement)
	assert.False(t, id.Nullable)
	name, _ := companies.Field("name")
	assert.Equal(t, 120, name.Size)
	assert.False(t, name.Nullable)
	assert.Equal(t, "Company name", name.Title)
	status, _ := companies.Field("status")
	assert.Equal(t, schema.TypeString, status.Type)
	assert.Equal(t, []string{"active", "archived"}, status.Choices)
	assert.Equal(t, "active", status.Column.Default)
	assert.True(t, status.Nullable)

	employees, _ := md.Table("employees")
	assert.Equal(t, [][]string{{"company_id", "email"}}, employees.UniqueTogether)
	ref, _ := employees.Field("company_id")
	require.NotNil(t, ref.ForeignKey)
	assert.Equal(t, "companies.id", ref.ForeignKey.String())
	assert.Equal(t, schema.OnDeleteCascade, ref.ForeignKey.OnDelete)
	assert.Equal(t, schema.TypeInt, ref.Type, "ref takes the target column type")
	assert.True(t, ref.Index)

	age, _ := employees.Field("age")
	assert.Equal(t, int64(21), age.Column.Default)
	assert.Equal(t, 18.0, *age.Ge)
	assert.Equal(t, 130.0, *age.Lt)

	salary, _ := employees.Field("salary")
	assert.Equal(t, schema.TypeDecimal, salary.Type)
	assert.Equal(t, 0.0, *salary.Ge)
	assert.Equal(t, 0.01, *salary.MultipleOf)

	email, _ := employees.Field("email")
	assert.Equal(t, 200, *email.MaxLength)

	role, _ := employees.Field("role")
	assert.Equal(t, []string{"admin", "viewer"}, role.Choices)

	tags, _ := employees.Field("tags")
	assert.Equal(t, schema.TypeJSON, tags.Type)

	pub, _ := employees.Field("public_id")
	assert.True(t, pub.Frozen)
	require.NotNil(t, pub.DefaultFactory)
	assert.Len(t, pub.DefaultFactory().(string), 36)
	assert.Equal(t, map[string]string{"postgres": "uuid"}, pub.Dialect)

	note, _ := employees.Field("note")
	assert.True(t, note.Exclude)
	assert.Empty(t, md.Lint())
}

func TestBuildErrors(t *testing.T) {
	build := func(src string, enums Enums) error {
		tables, err := Parse(strings.NewReader(src), "x.dsl")
		require.NoError(t, err)
		_, err = Build(schema.NewMetadata(), tables, enums)
		return err
	}

	assert.ErrorContains(t, build("table t:\n  a: blob\n", nil), "x.dsl:2: t.a: unknown column type: blob")
	assert.ErrorContains(t, build("table t:\n  a: enum\n", nil), "enum needs values")
	assert.ErrorContains(t, build("table t:\n  a: enum catalog=x\n", nil), "no catalogs loaded")
	assert.ErrorContains(t, build("table t:\n  a: enum catalog=x\n", fakeEnums{}), `unknown enum catalog "x"`)
	assert.ErrorContains(t, build("table t:\n  a: int default=abc\n", nil), `default "abc" is not an integer`)
	assert.ErrorContains(t, build("table t:\n  a: int on_delete=cascade\n", nil), "only for ref fields")
	assert.ErrorContains(t, build("table t:\n  a: string default_factory=nope\n", nil), "nope")

	err := build("table t:\n  a: ref[u] required on_delete=set_null\n", nil)
	var lint *schema.LintError
	require.True(t, errors.As(err, &lint))
	assert.Equal(t, "required_conflicts_on_delete", lint.Issues[0].Code)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.dsl"), []byte("table a:\n  id: int pk\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.DSL"), []byte("table b:\n  id: int pk\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("junk"), 0o644))

	tables, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "a", tables[0].Name)
	assert.Equal(t, "b", tables[1].Name)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.dsl"), []byte("table a:\n  id: int\n"), 0o644))
	_, err = LoadDir(dir)
	assert.ErrorContains(t, err, `duplicate table "a"`)
}
