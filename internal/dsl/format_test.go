package dsl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminkit/internal/schema"
)

func storage(t schema.Tabler) []schema.Column {
	var out []schema.Column
	for _, c := range t.Columns() {
		out = append(out, *c)
	}
	return out
}

func TestFormatRoundTrip(t *testing.T) {
	tables, err := Parse(strings.NewReader(crm), "crm.dsl")
	require.NoError(t, err)
	md := schema.NewMetadata()
	_, err = Build(md, tables, fakeEnums{"roles": {"admin", "viewer"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Format(&buf, md.Tables()))
	out := buf.String()
	assert.Contains(t, out, "table companies: # Компании\n")
	assert.Contains(t, out, "  name: string required unique size=120\n")
	assert.Contains(t, out, "  company_id: ref[companies] required index on_delete=cascade\n")
	assert.Contains(t, out, "  constraints:\n    unique(company_id, email)\n")

	again, err := Parse(strings.NewReader(out), "formatted.dsl")
	require.NoError(t, err)
	md2 := schema.NewMetadata()
	_, err = Build(md2, again, nil)
	require.NoError(t, err)

	for _, name := range []string{"companies", "employees"} {
		want, _ := md.Table(name)
		got, ok := md2.Table(name)
		require.True(t, ok, name)
		assert.Equal(t, storage(want), storage(got), name)
		assert.Equal(t, want.Comment, got.Comment)
		assert.Equal(t, want.UniqueTogether, got.UniqueTogether)
	}
}

func TestFormatBareTables(t *testing.T) {
	fk, err := schema.ParseForeignKey("crm.companies.code", "set_null")
	require.NoError(t, err)
	tables := []schema.Tabler{
		&schema.BareTable{Name: "crm.contacts", Comment: "Контакты\nкомпаний", Cols: []*schema.Column{
			{Name: "id", Type: schema.TypeInt, PrimaryKey: true, AutoIncrement: true},
			{Name: "company", Type: schema.TypeString, Size: 10, Nullable: true, ForeignKey: fk},
			{Name: "note", Type: schema.TypeText, Nullable: true, Comment: "free, text"},
			{Name: "kind", Type: schema.TypeString, Default: "it's"},
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, Format(&buf, tables))
	assert.Equal(t, `table crm.contacts: # Контакты компаний
  id: int pk auto
  company: ref[crm.companies.code] size=10 on_delete=set_null
  note: text comment="free, text"
  kind: string required default="it's"
`, buf.String())

	parsed, err := Parse(&buf, "x.dsl")
	require.NoError(t, err)
	require.Len(t, parsed[0].Fields, 4)
	assert.Equal(t, "free, text", parsed[0].Fields[2].Options["comment"])
	assert.Equal(t, "it's", parsed[0].Fields[3].Options["default"])

	err = Format(&buf, []schema.Tabler{&schema.BareTable{Name: "t", Cols: []*schema.Column{{Name: "bad name", Type: schema.TypeInt}}}})
	assert.ErrorContains(t, err, `column "bad name" is not a DSL identifier`)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "plain", quote("plain"))
	assert.Equal(t, `""`, quote(""))
	assert.Equal(t, `"a b"`, quote("a b"))
	assert.Equal(t, `'say "hi"'`, quote(`say "hi"`))
}
