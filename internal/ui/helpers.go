package ui

import (
	"fmt"

	"adminkit/internal/model"
)

// NewModelForm — форма по модели без начальных данных.
func NewModelForm(m *model.Model, submitURL string, opts FormOptions) (*ModelForm, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &ModelForm{SubmitURL: submitURL, Model: m, FormOptions: opts}, nil
}

// FormFor — форма с начальными данными из экземпляра.
func FormFor(inst *model.Instance, submitURL string, opts FormOptions) (*ModelForm, error) {
	f, err := NewModelForm(inst.Model(), submitURL, opts)
	if err != nil {
		return nil, err
	}
	f.Initial = inst.Dump()
	return f, nil
}

type ModalOptions struct {
	Footer      []Component
	OpenTrigger *PageEvent
	OpenContext map[string]any
	ClassName   string
	Form        FormOptions
}

// NewModelModal — модальное окно с формой модели внутри.
func NewModelModal(m *model.Model, title, submitURL string, opts ModalOptions) (*Modal, error) {
	f, err := NewModelForm(m, submitURL, opts.Form)
	if err != nil {
		return nil, err
	}
	return modal(title, f, opts), nil
}

func ModalFor(inst *model.Instance, title, submitURL string, opts ModalOptions) (*Modal, error) {
	f, err := FormFor(inst, submitURL, opts.Form)
	if err != nil {
		return nil, err
	}
	return modal(title, f, opts), nil
}

func modal(title string, f *ModelForm, opts ModalOptions) *Modal {
	return &Modal{
		Title:       title,
		Body:        []Component{f},
		Footer:      opts.Footer,
		OpenTrigger: opts.OpenTrigger,
		OpenContext: opts.OpenContext,
		ClassName:   opts.ClassName,
	}
}

// DetailsFor показывает экземпляр; без fields — все видимые поля модели.
func DetailsFor(inst *model.Instance, fields ...DisplayLookup) *Details {
	if len(fields) == 0 {
		fields = lookups(inst.Model())
	}
	return &Details{Data: inst.Dump(), Fields: fields}
}

// TableFor прогоняет строки через модель и строит таблицу.
func TableFor(m *model.Model, rows []map[string]any, columns ...DisplayLookup) (*Table, error) {
	if len(columns) == 0 {
		columns = lookups(m)
	}
	data := make([]map[string]any, 0, len(rows))
	for i, row := range rows {
		inst, err := m.New(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		data = append(data, inst.Dump())
	}
	return &Table{Data: data, Columns: columns}, nil
}

func lookups(m *model.Model) []DisplayLookup {
	var out []DisplayLookup
	for _, fs := range m.Fields() {
		if fs.Field.Exclude {
			continue
		}
		title := fs.Field.Title
		if title == "" {
			title = fs.Key
		}
		out = append(out, DisplayLookup{Field: fs.Key, Title: title})
	}
	return out
}
