package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adminkit/internal/model"
	"adminkit/internal/schema"
)

func (a *Admin) registerMeta(g *gin.RouterGroup) {
	g.GET("/tables", a.metaTables)
	g.GET("/tables/:name", a.metaTable)
	g.GET("/pages", a.metaPages)
	g.GET("/enums", a.metaEnums)
	g.GET("/enums/:name", a.metaEnum)
	g.GET("/lint", a.metaLint)
}

type metaTableItem struct {
	Name    string `json:"name"`
	Comment string `json:"comment,omitempty"`
	Columns int    `json:"columns"`
}

func (a *Admin) metaTables(c *gin.Context) {
	out := make([]metaTableItem, 0, len(a.tables))
	for _, t := range a.tables {
		out = append(out, metaTableItem{Name: t.Name, Comment: t.Comment, Columns: len(t.Fields())})
	}
	c.JSON(http.StatusOK, out)
}

type metaColumn struct {
	Name       string            `json:"name"`
	Key        string            `json:"key,omitempty"`
	Type       string            `json:"type"`
	Size       int               `json:"size,omitempty"`
	Nullable   bool              `json:"nullable"`
	PrimaryKey bool              `json:"primaryKey,omitempty"`
	Ref        string            `json:"ref,omitempty"`
	OnDelete   string            `json:"onDelete,omitempty"`
	Enum       []string          `json:"enum,omitempty"`
	Default    any               `json:"default,omitempty"`
	Title      string            `json:"title,omitempty"`
	Comment    string            `json:"comment,omitempty"`
	Dialect    map[string]string `json:"dialect,omitempty"`
}

type metaTableInfo struct {
	Primary   []string `json:"primary"`
	Unique    []string `json:"unique"`
	Indexed   []string `json:"indexed"`
	Nullable  []string `json:"nullable"`
	Defaulted []string `json:"defaulted"`
	Foreign   []string `json:"foreign"`
}

type metaTable struct {
	Name           string        `json:"name"`
	Comment        string        `json:"comment,omitempty"`
	Columns        []metaColumn  `json:"columns"`
	Info           metaTableInfo `json:"info"`
	UniqueTogether [][]string    `json:"uniqueTogether,omitempty"`
	Schema         *model.Schema `json:"schema,omitempty"`
}

func (a *Admin) metaTable(c *gin.Context) {
	t, ok := a.md.Table(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Table not found"})
		return
	}
	cols := make([]metaColumn, 0, len(t.Fields()))
	for _, f := range t.Fields() {
		mc := metaColumn{
			Name:       f.Name,
			Type:       string(f.Type),
			Size:       f.Size,
			Nullable:   f.Nullable,
			PrimaryKey: f.PrimaryKey,
			Enum:       f.Choices,
			Default:    f.Column.Default,
			Title:      f.Title,
			Comment:    f.Column.Comment,
			Dialect:    f.Dialect,
		}
		if f.Key() != f.Name {
			mc.Key = f.Key()
		}
		if f.ForeignKey != nil {
			mc.Ref = f.ForeignKey.String()
			mc.OnDelete = string(f.ForeignKey.OnDelete)
		}
		cols = append(cols, mc)
	}
	info := t.Info()
	out := metaTable{
		Name:    t.Name,
		Comment: t.Comment,
		Columns: cols,
		Info: metaTableInfo{
			Primary:   schema.Names(info.Primary),
			Unique:    schema.Names(info.Unique),
			Indexed:   schema.Names(info.Indexed),
			Nullable:  schema.Names(info.Nullable),
			Defaulted: schema.Names(info.Defaulted),
			Foreign:   schema.Names(info.Foreign),
		},
		UniqueTogether: t.UniqueTogether,
	}
	m, err := model.Derive(t)
	if err != nil {
		a.fail(c, err)
		return
	}
	out.Schema = m.JSONSchema()
	c.JSON(http.StatusOK, out)
}

type metaPage struct {
	Name   string `json:"name"`
	Method string `json:"method"`
	URI    string `json:"uri"`
	URL    string `json:"url"`
	Kind   string `json:"kind"`
	Parent string `json:"parent,omitempty"`
	Latest string `json:"latest"`
}

func (a *Admin) metaPages(c *gin.Context) {
	versions := a.pages.Versions()
	out := make([]metaPage, 0, len(versions))
	for _, v := range versions {
		mp := metaPage{
			Name:   v.Name(),
			Method: string(v.Method()),
			URI:    v.URI(),
			URL:    v.RouterURL(),
			Kind:   v.Kind().String(),
			Latest: v.Latest().Name(),
		}
		if p := v.Parent(); p != nil {
			mp.Parent = p.Name()
		}
		out = append(out, mp)
	}
	c.JSON(http.StatusOK, out)
}

func (a *Admin) metaEnums(c *gin.Context) {
	c.JSON(http.StatusOK, a.opts.Catalogs.Names())
}

func (a *Admin) metaEnum(c *gin.Context) {
	cat, ok := a.opts.Catalogs[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Catalog not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":  cat.Name,
		"title": cat.Title,
		"items": cat.Sorted(),
	})
}

func (a *Admin) metaLint(c *gin.Context) {
	issues := a.md.Lint()
	if issues == nil {
		issues = []schema.Issue{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": len(issues) == 0, "issues": issues})
}
