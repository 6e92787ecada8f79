// Package page описывает страницы админки и реестр URI, в котором версии
// одной страницы образуют цепочку.
package page

import (
	"fmt"
	"net/http"
)

type Method string

const (
	GET     Method = http.MethodGet
	POST    Method = http.MethodPost
	PUT     Method = http.MethodPut
	DELETE  Method = http.MethodDelete
	PATCH   Method = http.MethodPatch
	OPTIONS Method = http.MethodOptions
	HEAD    Method = http.MethodHead
	TRACE   Method = http.MethodTrace
)

var Methods = []Method{GET, POST, PUT, DELETE, PATCH, OPTIONS, HEAD, TRACE}

func (m Method) Valid() bool {
	for _, v := range Methods {
		if m == v {
			return true
		}
	}
	return false
}

// URIMode — как собирается итоговый URI версии.
type URIMode int

const (
	// URIPlain — только собственный URI.
	URIPlain URIMode = iota
	// URIWithPrefix — префикс (свой или ближайшего предка) + URI.
	URIWithPrefix
	// URIWithParents — префиксы и URI всех предков от старшего, затем свой префикс и URI.
	URIWithParents
)

func (m URIMode) String() string {
	switch m {
	case URIPlain:
		return "uri"
	case URIWithPrefix:
		return "with_prefix"
	case URIWithParents:
		return "with_parents"
	default:
		return fmt.Sprintf("URIMode(%d)", int(m))
	}
}

// Kind — вид ответа, определяемый по типу результата render.
type Kind int

const (
	KindComponents Kind = iota
	KindHTML
	KindText
	KindTemplate
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindComponents:
		return "components"
	case KindHTML:
		return "html"
	case KindText:
		return "text"
	case KindTemplate:
		return "template"
	case KindResponse:
		return "response"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Template — ответ через шаблоны gin (LoadHTMLGlob / SetHTMLTemplate).
type Template struct {
	Name string
	Data any
}

// Page — описание версии страницы.
//
// Render — функция вида func([*gin.Context | context.Context]) (T[, error]),
// где T один из []ui.Component, template.HTML, page.Template, string
// или тип, реализующий render.Render из gin.
type Page struct {
	Name    string
	URI     string
	Prefix  string
	Method  Method
	URIMode URIMode
	Render  any
	// Extends — имя родительской версии; больше одного имени нельзя.
	Extends []string
	// Alias называет эту версию на родителе.
	Alias string
}

// HTTPError позволяет render вернуть конкретный статус.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func Errorf(status int, format string, args ...any) *HTTPError {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}
