package api

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"gorm.io/gorm"

	"adminkit/internal/model"
	"adminkit/internal/page"
	"adminkit/internal/ui"
)

func (a *Admin) respond(c *gin.Context, kind page.Kind, res any) {
	switch kind {
	case page.KindComponents:
		comps, _ := res.([]ui.Component)
		if comps == nil {
			comps = []ui.Component{}
		}
		c.JSON(http.StatusOK, comps)
	case page.KindHTML:
		html, _ := res.(template.HTML)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	case page.KindText:
		s, _ := res.(string)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(s))
	case page.KindTemplate:
		t, _ := res.(page.Template)
		c.HTML(http.StatusOK, t.Name, t.Data)
	case page.KindResponse:
		r, ok := res.(render.Render)
		if !ok || r == nil {
			a.fail(c, errors.New("page returned a nil response"))
			return
		}
		c.Render(http.StatusOK, r)
	}
}

// fail переводит ошибку render в HTTP-ответ.
func (a *Admin) fail(c *gin.Context, err error) {
	var (
		verrs   model.ValidationErrors
		httpErr *page.HTTPError
	)
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verrs})
	case errors.As(err, &httpErr):
		c.JSON(httpErr.Status, gin.H{"error": httpErr.Message})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		a.log.Error("page failed", "path", c.Request.URL.Path, "method", c.Request.Method, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
