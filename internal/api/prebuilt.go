package api

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultPrebuiltURL = "https://cdn.jsdelivr.net/npm/@pydantic/fastui-prebuilt@0.0.26/dist/assets"

var prebuiltTmpl = template.Must(template.New("prebuilt").Parse(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>{{.Title}}</title>
    <script type="module" crossorigin src="{{.Assets}}/index.js"></script>
    <link rel="stylesheet" crossorigin href="{{.Assets}}/index.css" />
  </head>
  <body>
    <div id="root" data-fastui-api-root-url="{{.RootURL}}"{{if .PathMode}} data-fastui-api-path-mode="{{.PathMode}}"{{end}} data-fastui-api-path-strip="{{.PathStrip}}"></div>
  </body>
</html>
`))

type prebuiltData struct {
	Title, Assets, RootURL, PathMode, PathStrip string
}

// prebuilt отдаёт загрузочную страницу фронтенда на любой путь под PathStrip.
// Корень API берётся из реестра, поэтому учитывает внешний Mount.
func (a *Admin) prebuilt(c *gin.Context) {
	var buf bytes.Buffer
	err := prebuiltTmpl.Execute(&buf, prebuiltData{
		Title:     a.opts.Title,
		Assets:    a.opts.PrebuiltURL,
		RootURL:   a.pages.MountPath(),
		PathMode:  a.opts.PathMode,
		PathStrip: a.prefix + strings.TrimRight(a.opts.PathStrip, "/"),
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
