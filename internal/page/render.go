package page

import (
	"context"
	"fmt"
	"html/template"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"adminkit/internal/ui"
)

var (
	componentsType = reflect.TypeOf([]ui.Component(nil))
	htmlType       = reflect.TypeOf(template.HTML(""))
	templateType   = reflect.TypeOf(Template{})
	stringType     = reflect.TypeOf("")
	renderType     = reflect.TypeOf((*render.Render)(nil)).Elem()
	ginContextType = reflect.TypeOf((*gin.Context)(nil))
	contextType    = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType      = reflect.TypeOf((*error)(nil)).Elem()

	allowedResults = "[[]ui.Component template.HTML page.Template string render.Render]"
)

type inputKind int

const (
	inputNone inputKind = iota
	inputGin
	inputContext
)

type renderFunc struct {
	fn           reflect.Value
	input        inputKind
	kind         Kind
	returnsError bool
}

// newRenderFunc проверяет сигнатуру render и определяет вид ответа.
func newRenderFunc(name string, fn any) (*renderFunc, error) {
	v := reflect.ValueOf(fn)
	if fn == nil || v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("page must have a render method (%s)", name)
	}
	t := v.Type()

	rf := &renderFunc{fn: v}
	switch {
	case t.NumIn() == 0:
	case t.NumIn() == 1 && t.In(0) == ginContextType:
		rf.input = inputGin
	case t.NumIn() == 1 && t.In(0) == contextType:
		rf.input = inputContext
	default:
		return nil, fmt.Errorf("page render method must accept nothing, *gin.Context or context.Context (%s)", name)
	}

	switch t.NumOut() {
	case 0:
		return nil, fmt.Errorf("page render method must have a return annotation (%s)", name)
	case 1:
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("page render method second result must be error (%s)", name)
		}
		rf.returnsError = true
	default:
		return nil, fmt.Errorf("page render method must return one value and an optional error (%s)", name)
	}

	switch out := t.Out(0); {
	case out == componentsType:
		rf.kind = KindComponents
	case out == htmlType:
		rf.kind = KindHTML
	case out == templateType:
		rf.kind = KindTemplate
	case out == stringType:
		rf.kind = KindText
	case out.Implements(renderType):
		rf.kind = KindResponse
	default:
		return nil, fmt.Errorf("page render method must return one of %s (%s)", allowedResults, name)
	}
	return rf, nil
}

func (rf *renderFunc) call(c *gin.Context) (any, error) {
	var args []reflect.Value
	switch rf.input {
	case inputGin:
		args = []reflect.Value{reflect.ValueOf(c)}
	case inputContext:
		ctx := context.Background()
		if c != nil && c.Request != nil {
			ctx = c.Request.Context()
		}
		args = []reflect.Value{reflect.ValueOf(&ctx).Elem()}
	}
	out := rf.fn.Call(args)
	if rf.returnsError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// sameFunc сравнивает функции по адресу кода.
func sameFunc(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != reflect.Func || vb.Kind() != reflect.Func {
		return false
	}
	return va.Pointer() == vb.Pointer()
}
