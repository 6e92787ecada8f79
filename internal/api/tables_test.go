package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminkit/internal/db"
	"adminkit/internal/page"
	"adminkit/internal/pg"
	"adminkit/internal/schema"
)

func shopMetadata(t *testing.T) *schema.Metadata {
	t.Helper()
	md := schema.NewMetadata()
	companies, err := schema.NewTable("companies", md,
		&schema.Column{Name: "id", Type: schema.TypeInt, PrimaryKey: true, AutoIncrement: true},
		&schema.Field{
			Column:      schema.Column{Name: "name", Type: schema.TypeString, Size: 100, Unique: true},
			Constraints: schema.Constraints{MinLength: schema.Ptr(2)},
		},
		&schema.Field{
			Column:      schema.Column{Name: "status", Type: schema.TypeString, Size: 20, Default: "active"},
			Constraints: schema.Constraints{Choices: []string{"active", "archived"}},
		},
	)
	require.NoError(t, err)
	companies.Comment = "Companies"

	_, err = schema.NewTable("tags", md,
		&schema.Column{Name: "company_id", Type: schema.TypeInt, PrimaryKey: true},
		&schema.Column{Name: "tag", Type: schema.TypeString, Size: 30, PrimaryKey: true},
	)
	require.NoError(t, err)
	return md
}

func newShop(t *testing.T) http.Handler {
	t.Helper()
	return newTablesAdmin(t, shopMetadata(t))
}

// newTablesAdmin создаёт таблицы md в sqlite и монтирует для них TablePages.
func newTablesAdmin(t *testing.T, md *schema.Metadata) http.Handler {
	t.Helper()
	gdb, err := db.Open("sqlite", filepath.Join(t.TempDir(), "tables.db"))
	require.NoError(t, err)
	stmts, err := pg.GenerateDDL(md.Tables(), pg.SQLite)
	require.NoError(t, err)
	for _, stmt := range stmts {
		require.NoError(t, gdb.Exec(stmt).Error, stmt)
	}
	mgr, err := db.NewManager(db.Options{Gorm: gdb})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close(context.Background()) })

	reg := page.NewRegistry()
	require.NoError(t, TablePages(reg, md, mgr))
	a, err := New(md, reg, Options{})
	require.NoError(t, err)
	return a.Handler()
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// pageComponents достаёт components корневого Page из ответа.
func pageComponents(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decodeJSON[[]map[string]any](t, w)
	require.Len(t, out, 1)
	require.Equal(t, "Page", out[0]["type"])
	var comps []map[string]any
	for _, c := range out[0]["components"].([]any) {
		comps = append(comps, c.(map[string]any))
	}
	return comps
}

func tableRows(t *testing.T, comps []map[string]any) []any {
	t.Helper()
	for _, c := range comps {
		if c["type"] == "Table" {
			return c["data"].([]any)
		}
	}
	t.Fatal("no Table component")
	return nil
}

func TestTablePagesCreate(t *testing.T) {
	h := newShop(t)

	w := postJSON(t, h, "/admin/companies/create", `{"name": "Acme"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `[{"type":"FireEvent","event":{"type":"go-to","url":"/admin/companies"},"message":"Companies created"}]`, w.Body.String())

	form := url.Values{"name": {"Globex"}, "status": {"archived"}, "id": {""}}
	req := httptest.NewRequest(http.MethodPost, "/admin/companies/create", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = postJSON(t, h, "/admin/companies/create", `{"name": "Acme"}`)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = postJSON(t, h, "/admin/companies/create", `{"status": "weird"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	errs := decodeJSON[map[string][]map[string]string](t, w)["errors"]
	fields := map[string]string{}
	for _, e := range errs {
		fields[e["field"]] = e["code"]
	}
	assert.Equal(t, map[string]string{"name": "required", "status": "enum_invalid"}, fields)

	w = postJSON(t, h, "/admin/companies/create", `{"name": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	rows := tableRows(t, pageComponents(t, get(t, h, "/admin/companies")))
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{"id": float64(1), "name": "Acme", "status": "active"}, rows[0])
	assert.Equal(t, map[string]any{"id": float64(2), "name": "Globex", "status": "archived"}, rows[1])
}

func TestTablePagesCreateDatetimeLocal(t *testing.T) {
	md := schema.NewMetadata()
	_, err := schema.NewTable("events", md,
		&schema.Column{Name: "id", Type: schema.TypeInt, PrimaryKey: true, AutoIncrement: true},
		&schema.Column{Name: "at", Type: schema.TypeDateTime},
	)
	require.NoError(t, err)
	h := newTablesAdmin(t, md)

	form := url.Values{"at": {"2024-05-01T10:30"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/events/create", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = get(t, h, "/admin/events/1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "2024-05-01T10:30:00")
}

func seedShop(t *testing.T, h http.Handler) {
	t.Helper()
	for _, body := range []string{
		`{"name": "Acme"}`,
		`{"name": "Globex", "status": "archived"}`,
		`{"name": "Initech"}`,
	} {
		w := postJSON(t, h, "/admin/companies/create", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
}

func TestTablePagesList(t *testing.T) {
	h := newShop(t)
	seedShop(t, h)

	names := func(path string) []string {
		var out []string
		for _, r := range tableRows(t, pageComponents(t, get(t, h, path))) {
			out = append(out, r.(map[string]any)["name"].(string))
		}
		return out
	}

	assert.Equal(t, []string{"Initech", "Globex", "Acme"}, names("/admin/companies?sort=-name"))
	assert.Equal(t, []string{"Globex"}, names("/admin/companies?sort=-name&limit=1&page=2"))
	assert.Equal(t, []string{"Globex"}, names("/admin/companies?status=archived"))
	assert.Equal(t, []string{"Acme", "Initech"}, names("/admin/companies?status__ne=archived"))
	assert.Equal(t, []string{"Acme"}, names("/admin/companies?name__like=cm"))
	assert.Equal(t, []string{"Acme", "Initech"}, names("/admin/companies?id__in=1,3"))
	assert.Equal(t, []string{"Globex", "Initech"}, names("/admin/companies?id__gte=2"))
	assert.Empty(t, names("/admin/companies?id__lt=1"))

	comps := pageComponents(t, get(t, h, "/admin/companies?limit=2"))
	assert.Equal(t, map[string]any{"type": "Heading", "text": "Companies", "level": float64(2)}, comps[0])
	assert.Equal(t, "/admin/companies/new", comps[1]["onClick"].(map[string]any)["url"])
	table := comps[2]
	for _, col := range table["columns"].([]any) {
		c := col.(map[string]any)
		if c["field"] == "name" {
			assert.Equal(t, map[string]any{"type": "go-to", "url": "/admin/companies/{id}"}, c["onClick"])
		} else {
			assert.Nil(t, c["onClick"])
		}
	}
	assert.Equal(t, map[string]any{"type": "Pagination", "page": float64(1), "pageSize": float64(2), "total": float64(3)}, comps[3])

	for _, bad := range []string{"?nope=1", "?name__between=a", "?sort=nope", "?id=abc"} {
		w := get(t, h, "/admin/companies"+bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestTablePagesDetailAndForm(t *testing.T) {
	h := newShop(t)
	seedShop(t, h)

	comps := pageComponents(t, get(t, h, "/admin/companies/2"))
	require.Len(t, comps, 3)
	assert.Equal(t, "/admin/companies", comps[0]["onClick"].(map[string]any)["url"])
	assert.Equal(t, "Globex", comps[1]["text"])
	assert.Equal(t, map[string]any{"id": float64(2), "name": "Globex", "status": "archived"}, comps[2]["data"])

	w := get(t, h, "/admin/companies/99")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"companies 99 not found"}`, w.Body.String())
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/admin/companies/abc").Code)

	comps = pageComponents(t, get(t, h, "/admin/companies/new"))
	form := comps[1]
	assert.Equal(t, "ModelForm", form["type"])
	assert.Equal(t, "/admin/companies/create", form["submitUrl"])
	var fieldNames []string
	for _, f := range form["formFields"].([]any) {
		fieldNames = append(fieldNames, f.(map[string]any)["name"].(string))
	}
	assert.Equal(t, []string{"id", "name", "status"}, fieldNames)

	// у таблицы с составным ключом нет карточки
	assert.Equal(t, http.StatusNotFound, get(t, h, "/admin/tags/1").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/admin/tags").Code)
}

func TestTablePagesIndex(t *testing.T) {
	h := newShop(t)
	comps := pageComponents(t, get(t, h, "/admin/"))
	require.Len(t, comps, 3)
	assert.Equal(t, "Tables", comps[0]["text"])
	assert.Equal(t, "/admin/companies", comps[1]["onClick"].(map[string]any)["url"])
	assert.Equal(t, "/admin/tags", comps[2]["onClick"].(map[string]any)["url"])
}

func TestTablePagesRequireGorm(t *testing.T) {
	md := schema.NewMetadata()
	require.NoError(t, md.Add(&schema.BareTable{Name: "raw"}))
	assert.ErrorIs(t, TablePages(page.NewRegistry(), md, nil), ErrNotWrapped)
	assert.ErrorIs(t, TablePages(page.NewRegistry(), shopMetadata(t), nil), db.ErrNoGorm)
}

func TestParseListParams(t *testing.T) {
	md := shopMetadata(t)
	companies, _ := md.Table("companies")

	p, err := parseListParams(companies, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, ListParams{Page: 1, Limit: defaultLimit}, p)

	p, err = parseListParams(companies, url.Values{
		"_limit": {"10"}, "page": {"3"}, "sort": {"-name, +id"},
		"status__in": {"active, archived"}, "id__gt": {"5"},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, 20, p.Offset)
	assert.Equal(t, []SortKey{{Column: "name", Desc: true}, {Column: "id"}}, p.Sort)
	assert.Equal(t, []Filter{
		{Column: "id", Op: "gt", Values: []any{int64(5)}},
		{Column: "status", Op: "in", Values: []any{"active", "archived"}},
	}, p.Filters)

	p, err = parseListParams(companies, url.Values{"limit": {"5000"}, "offset": {"120"}, "page": {"x"}})
	require.NoError(t, err)
	assert.Equal(t, defaultLimit, p.Limit)
	assert.Equal(t, 120, p.Offset)
	assert.Equal(t, 3, p.Page)

	_, err = parseListParams(companies, url.Values{"id": {"x"}})
	var httpErr *page.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
}
