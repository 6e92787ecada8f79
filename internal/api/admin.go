// Package api монтирует страницы реестра на gin: ответы по виду render,
// служебные /_meta маршруты, метрики и загрузочную страницу фронтенда.
package api

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"adminkit/internal/page"
	"adminkit/internal/reference"
	"adminkit/internal/schema"
)

var ErrNotWrapped = errors.New("metadata tables must be wrapped schema tables")

type Options struct {
	Title       string
	RootURL     string
	PathMode    string
	PathStrip   string
	PrebuiltURL string
	Logger      *slog.Logger
	Catalogs    reference.Catalogs
	// Templates нужны страницам вида page.Template.
	Templates *template.Template
}

func (o *Options) defaults() {
	if o.Title == "" {
		o.Title = "Admin"
	}
	if o.RootURL == "" {
		o.RootURL = "/admin"
	}
	o.RootURL = "/" + strings.Trim(o.RootURL, "/")
	if o.PathStrip == "" {
		o.PathStrip = "/prebuilt"
	}
	if o.PrebuiltURL == "" {
		o.PrebuiltURL = defaultPrebuiltURL
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Admin — gin.Engine со смонтированными страницами.
type Admin struct {
	engine  *gin.Engine
	md      *schema.Metadata
	pages   *page.Registry
	opts    Options
	log     *slog.Logger
	metrics *pageMetrics
	tables  []*schema.Table
	// prefix — внешний путь, заданный через Mount.
	prefix string
}

func New(md *schema.Metadata, pages *page.Registry, opts Options) (*Admin, error) {
	tables, ok := md.Wrapped()
	if !ok {
		return nil, ErrNotWrapped
	}
	opts.defaults()
	strip := strings.TrimRight(opts.PathStrip, "/")
	if !strings.HasPrefix(strip, "/") || strip == "" {
		return nil, fmt.Errorf("path strip must be a non-root path starting with \"/\", got %q", opts.PathStrip)
	}
	if opts.PathMode != "" && opts.PathMode != "append" && opts.PathMode != "query" {
		return nil, fmt.Errorf("path mode must be append or query, got %q", opts.PathMode)
	}

	a := &Admin{
		engine:  gin.New(),
		md:      md,
		pages:   pages,
		opts:    opts,
		log:     opts.Logger,
		metrics: newPageMetrics("adminkit"),
		tables:  tables,
	}
	a.engine.Use(gin.Recovery())
	if gin.Mode() == gin.DebugMode {
		a.engine.Use(gin.Logger())
	}
	if opts.Templates != nil {
		a.engine.SetHTMLTemplate(opts.Templates)
	}

	pages.SetMountPath(opts.RootURL)
	if err := a.mount(strip); err != nil {
		return nil, err
	}
	return a, nil
}

// mount регистрирует маршруты. gin сообщает о конфликтах путей паникой,
// она возвращается как ошибка.
func (a *Admin) mount(strip string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mounting pages: %v", r)
		}
	}()
	root := a.engine.Group(a.opts.RootURL)
	for _, v := range a.pages.Versions() {
		root.Handle(string(v.Method()), v.RoutePath(), a.handle(v))
		a.log.Debug("page mounted", "page", v.Name(), "method", v.Method(), "path", a.opts.RootURL+v.RoutePath(), "kind", v.Kind())
	}
	a.registerMeta(root.Group("/_meta"))
	a.engine.GET("/metrics", gin.WrapH(a.metrics.handler()))
	a.engine.GET(strip+"/*path", a.prebuilt)
	return nil
}

func (a *Admin) Handler() http.Handler { return a.engine }

func (a *Admin) Engine() *gin.Engine { return a.engine }

// Mount встраивает админку во внешний роутер под path. Путь монтирования
// реестра обновляется, чтобы RouterURL учитывал внешний префикс.
func (a *Admin) Mount(parent *gin.RouterGroup, path string) {
	prefix := joinPaths(parent.BasePath(), path)
	h := gin.WrapH(http.StripPrefix(prefix, a.engine))
	parent.Any(strings.TrimRight(path, "/")+"/*any", h)
	a.prefix = prefix
	a.pages.SetMountPath(prefix + a.opts.RootURL)
}

// handle вызывает render версии и пишет ответ по её виду.
func (a *Admin) handle(v *page.Version) gin.HandlerFunc {
	name := v.Name()
	return func(c *gin.Context) {
		done := a.metrics.observe(name, string(v.Method()))
		res, err := call(v, c)
		if err != nil {
			a.fail(c, err)
		} else {
			a.respond(c, v.Kind(), res)
		}
		done(c.Writer.Status())
	}
}

// call превращает панику render в ошибку: ответ 500 пишет fail.
func call(v *page.Version, c *gin.Context) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %s panicked: %v", v.Name(), r)
		}
	}()
	return v.Call(c)
}

func joinPaths(base, rel string) string {
	out := strings.TrimRight(base, "/") + "/" + strings.Trim(rel, "/")
	if out != "/" {
		out = strings.TrimRight(out, "/")
	}
	return out
}
