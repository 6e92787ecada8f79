package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"adminkit/internal/db"
	"adminkit/internal/model"
	"adminkit/internal/page"
	"adminkit/internal/schema"
	"adminkit/internal/ui"
)

// TablePages регистрирует для каждой таблицы md страницы:
//
//	GET  /{table}           список (page, limit, offset, sort, фильтры column__op)
//	GET  /{table}/{id}      карточка строки (только для таблиц с одним первичным ключом)
//	GET  /{table}/new       форма создания
//	POST /{table}/create    проверка через модель и вставка
//
// и индекс "/" со ссылками на списки, если "/" ещё не занят.
func TablePages(reg *page.Registry, md *schema.Metadata, mgr *db.Manager) error {
	tables, ok := md.Wrapped()
	if !ok {
		return ErrNotWrapped
	}
	if mgr == nil || mgr.Gorm() == nil {
		return db.ErrNoGorm
	}
	for _, t := range tables {
		tp := &tablePages{reg: reg, t: t, store: tableStore{t: t}, mgr: mgr}
		if err := tp.register(); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
	}
	if _, taken := reg.Lookup("/"); !taken {
		if _, err := reg.Register(page.Page{Name: "tables_index", URI: "/", Render: indexRender(reg, tables)}); err != nil {
			return err
		}
	}
	return nil
}

type tablePages struct {
	reg   *page.Registry
	t     *schema.Table
	store tableStore
	mgr   *db.Manager
	pk    *schema.Field

	list, detail, form, create *page.Version
}

func (tp *tablePages) register() error {
	if primary := tp.t.Info().Primary; len(primary) == 1 {
		tp.pk = primary[0]
	}
	base := "/" + tp.t.Name
	type entry struct {
		dst **page.Version
		p   page.Page
	}
	pages := []entry{
		{&tp.list, page.Page{Name: tp.t.Name + "_list", URI: base, Render: tp.renderList}},
		{&tp.form, page.Page{Name: tp.t.Name + "_new", URI: base + "/new", Render: tp.renderForm}},
		{&tp.create, page.Page{Name: tp.t.Name + "_create", URI: base + "/create", Method: page.POST, Render: tp.renderCreate}},
	}
	if tp.pk != nil {
		pages = append(pages, entry{&tp.detail, page.Page{Name: tp.t.Name + "_detail", URI: base + "/{id}", Render: tp.renderDetail}})
	}
	for _, it := range pages {
		v, err := tp.reg.Register(it.p)
		if err != nil {
			return err
		}
		*it.dst = v
	}
	return nil
}

func (tp *tablePages) model() (*model.Model, error) {
	return model.Derive(tp.t)
}

func (tp *tablePages) title() string {
	if tp.t.Comment != "" {
		return tp.t.Comment
	}
	return tp.t.Name
}

// detailURL — шаблон ссылки на карточку для Table: {key} фронтенд подставляет из строки.
func (tp *tablePages) detailURL() string {
	return tp.reg.MountPath() + tp.detail.FormatNamed(map[string]any{"id": "{" + tp.pk.Key() + "}"})
}

func (tp *tablePages) renderList(c *gin.Context) ([]ui.Component, error) {
	m, err := tp.model()
	if err != nil {
		return nil, err
	}
	params, err := parseListParams(tp.t, c.Request.URL.Query())
	if err != nil {
		return nil, err
	}

	var (
		rows  []map[string]any
		total int64
	)
	err = tp.mgr.Session(c.Request.Context(), func(_ context.Context, tx *gorm.DB) error {
		var lerr error
		rows, total, lerr = tp.store.list(tx, params)
		return lerr
	})
	if err != nil {
		return nil, err
	}

	table, err := ui.TableFor(m, rows)
	if err != nil {
		return nil, err
	}
	if tp.pk != nil && len(table.Columns) > 0 {
		display := pickDisplayField(tp.t).Key()
		for i := range table.Columns {
			if table.Columns[i].Field == display {
				table.Columns[i].OnClick = ui.GoToEvent{URL: tp.detailURL()}
			}
		}
	}
	table.NoDataMessage = "No rows"

	return []ui.Component{
		ui.Page{Components: []ui.Component{
			ui.Heading{Text: tp.title(), Level: 2},
			ui.Button{Text: "New", OnClick: ui.GoToEvent{URL: tp.reg.MountPath() + tp.form.URI()}},
			table,
			ui.Pagination{Page: params.Page, PageSize: params.Limit, Total: int(total)},
		}},
	}, nil
}

func (tp *tablePages) renderDetail(c *gin.Context) ([]ui.Component, error) {
	m, err := tp.model()
	if err != nil {
		return nil, err
	}
	id, err := filterValue(tp.pk.Type, c.Param("id"))
	if err != nil {
		return nil, page.Errorf(http.StatusBadRequest, "invalid %s %q", tp.pk.Name, c.Param("id"))
	}
	row, err := db.InSession(tp.mgr, func(_ context.Context, tx *gorm.DB) (map[string]any, error) {
		return tp.store.get(tx, tp.pk, id)
	})(c.Request.Context())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, page.Errorf(http.StatusNotFound, "%s %v not found", tp.t.Name, id)
	}
	if err != nil {
		return nil, err
	}
	inst, err := m.New(row)
	if err != nil {
		return nil, err
	}

	heading := fmt.Sprintf("%s %v", tp.title(), id)
	if v, ok := inst.Get(pickDisplayField(tp.t).Name); ok && v != nil {
		heading = fmt.Sprint(v)
	}
	return []ui.Component{
		ui.Page{Components: []ui.Component{
			ui.Link{Components: []ui.Component{ui.Text{Text: "Back"}}, OnClick: ui.GoToEvent{URL: tp.reg.MountPath() + tp.list.URI()}},
			ui.Heading{Text: heading, Level: 2},
			ui.DetailsFor(inst),
		}},
	}, nil
}

func (tp *tablePages) renderForm() ([]ui.Component, error) {
	m, err := tp.model()
	if err != nil {
		return nil, err
	}
	form, err := ui.NewModelForm(m, tp.reg.MountPath()+tp.create.URI(), ui.FormOptions{})
	if err != nil {
		return nil, err
	}
	return []ui.Component{
		ui.Page{Components: []ui.Component{
			ui.Heading{Text: "New " + tp.title(), Level: 2},
			form,
		}},
	}, nil
}

// renderCreate принимает JSON или form-data. Пустые значения формы считаются
// отсутствующими, чтобы сработали значения по умолчанию.
func (tp *tablePages) renderCreate(c *gin.Context) ([]ui.Component, error) {
	m, err := tp.model()
	if err != nil {
		return nil, err
	}
	data, err := readSubmission(c)
	if err != nil {
		return nil, err
	}
	inst, err := m.New(data)
	if err != nil {
		return nil, err
	}
	err = tp.mgr.Session(c.Request.Context(), func(_ context.Context, tx *gorm.DB) error {
		return tp.store.insert(tx, inst.Columns())
	}, db.Commit())
	if err != nil {
		return nil, err
	}
	return []ui.Component{
		ui.FireEvent{Event: ui.GoToEvent{URL: tp.reg.MountPath() + tp.list.URI()}, Message: tp.title() + " created"},
	}, nil
}

func readSubmission(c *gin.Context) (map[string]any, error) {
	data := map[string]any{}
	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		if err := c.ShouldBindJSON(&data); err != nil {
			return nil, page.Errorf(http.StatusBadRequest, "invalid JSON: %v", err)
		}
		return data, nil
	}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, page.Errorf(http.StatusBadRequest, "invalid form: %v", err)
	}
	for k, vals := range c.Request.PostForm {
		if len(vals) > 0 && strings.TrimSpace(vals[0]) != "" {
			data[k] = vals[0]
		}
	}
	return data, nil
}

// pickDisplayField — колонка, по которой строка узнаётся в списке:
// name/title/email/code, затем первая строковая, затем первичный ключ.
func pickDisplayField(t *schema.Table) *schema.Field {
	for _, name := range []string{"name", "title", "email", "code"} {
		if f, ok := t.Field(name); ok && !f.Exclude {
			return f
		}
	}
	for _, f := range t.Fields() {
		if f.Type.Textual() && !f.Exclude && !f.PrimaryKey {
			return f
		}
	}
	if primary := t.Info().Primary; len(primary) > 0 {
		return primary[0]
	}
	return t.Fields()[0]
}

func indexRender(reg *page.Registry, tables []*schema.Table) func() []ui.Component {
	return func() []ui.Component {
		links := make([]ui.Component, 0, len(tables))
		for _, t := range tables {
			title := t.Comment
			if title == "" {
				title = t.Name
			}
			links = append(links, ui.Link{
				Components: []ui.Component{ui.Text{Text: title}},
				OnClick:    ui.GoToEvent{URL: reg.MountPath() + "/" + t.Name},
			})
		}
		return []ui.Component{
			ui.Page{Components: append([]ui.Component{ui.Heading{Text: "Tables", Level: 2}}, links...)},
		}
	}
}
