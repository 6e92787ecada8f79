package ui

import (
	"encoding/json"
	"fmt"

	"adminkit/internal/model"
	"adminkit/internal/schema"
)

// Методы отправки формы
const (
	MethodPOST = "POST"
	MethodGOTO = "GOTO"
	MethodGET  = "GET"
)

// FormOptions — необязательные параметры формы. Пустой Method означает POST.
type FormOptions struct {
	Method         string
	DisplayMode    string // "", "default", "page" или "inline"
	SubmitOnChange *bool
	SubmitTrigger  *PageEvent
	Loading        []Component
	Footer         []Component
	ClassName      string
}

func (o FormOptions) validate() error {
	switch o.Method {
	case "", MethodPOST, MethodGOTO, MethodGET:
	default:
		return fmt.Errorf("form method must be one of POST, GOTO, GET, got %q", o.Method)
	}
	switch o.DisplayMode {
	case "", "default", "page", "inline":
	default:
		return fmt.Errorf("form display mode must be one of default, page, inline, got %q", o.DisplayMode)
	}
	return nil
}

// ModelForm — форма, поля которой строятся по модели при сериализации.
type ModelForm struct {
	SubmitURL string
	Model     *model.Model
	Initial   map[string]any
	FormOptions
}

func (ModelForm) ComponentType() string { return "ModelForm" }

func (c ModelForm) MarshalJSON() ([]byte, error) {
	method := c.Method
	if method == "" {
		method = MethodPOST
	}
	return json.Marshal(struct {
		Type           string      `json:"type"`
		SubmitURL      string      `json:"submitUrl"`
		Method         string      `json:"method"`
		DisplayMode    string      `json:"displayMode,omitempty"`
		SubmitOnChange *bool       `json:"submitOnChange,omitempty"`
		SubmitTrigger  *PageEvent  `json:"submitTrigger,omitempty"`
		Loading        []Component `json:"loading,omitempty"`
		Footer         []Component `json:"footer,omitempty"`
		ClassName      string      `json:"className,omitempty"`
		FormFields     []FormField `json:"formFields"`
	}{
		Type:           c.ComponentType(),
		SubmitURL:      c.SubmitURL,
		Method:         method,
		DisplayMode:    c.DisplayMode,
		SubmitOnChange: c.SubmitOnChange,
		SubmitTrigger:  c.SubmitTrigger,
		Loading:        c.Loading,
		Footer:         c.Footer,
		ClassName:      c.ClassName,
		FormFields:     FormFields(c.Model, c.Initial),
	})
}

// FormField — поле формы.
type FormField struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Title       []string       `json:"title"`
	Required    bool           `json:"required"`
	Locked      bool           `json:"locked"`
	Description string         `json:"description,omitempty"`
	HTMLType    string         `json:"htmlType,omitempty"`
	Initial     any            `json:"initial,omitempty"`
	Options     []SelectOption `json:"options,omitempty"`
	Mode        string         `json:"mode,omitempty"`
}

type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FormFields строит поля формы по модели; initial — значения по ключам модели.
func FormFields(m *model.Model, initial map[string]any) []FormField {
	if m == nil {
		return nil
	}
	s := m.JSONSchema()
	out := make([]FormField, 0, len(s.Order))
	for _, fs := range m.Fields() {
		p := s.Properties[fs.Key]
		ff := FormField{
			Name:        fs.Key,
			Title:       []string{p.Title},
			Required:    fs.Required,
			Locked:      fs.Field.Frozen,
			Description: p.Description,
			Initial:     initial[fs.Key],
		}
		if ff.Initial == nil && p.Default != nil {
			ff.Initial = p.Default
		}
		switch {
		case len(fs.Field.Choices) > 0:
			ff.Type = "FormFieldSelect"
			for _, c := range fs.Field.Choices {
				ff.Options = append(ff.Options, SelectOption{Value: c, Label: c})
			}
		case fs.Field.Type == schema.TypeBool:
			ff.Type = "FormFieldBoolean"
			ff.Mode = "checkbox"
		case fs.Field.Type == schema.TypeText || fs.Field.Type == schema.TypeJSON:
			ff.Type = "FormFieldTextarea"
		default:
			ff.Type = "FormFieldInput"
			ff.HTMLType = htmlType(fs.Field.Type)
		}
		out = append(out, ff)
	}
	return out
}

func htmlType(t schema.ColumnType) string {
	switch t {
	case schema.TypeInt, schema.TypeFloat, schema.TypeDecimal:
		return "number"
	case schema.TypeDate:
		return "date"
	case schema.TypeDateTime:
		return "datetime-local"
	default:
		return "text"
	}
}
