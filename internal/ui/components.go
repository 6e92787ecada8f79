// Package ui описывает декларативные компоненты интерфейса. Компоненты
// сериализуются в JSON с полем "type", по которому их рисует фронтенд.
package ui

import "encoding/json"

type Component interface {
	ComponentType() string
}

type Heading struct {
	Text      string `json:"text"`
	Level     int    `json:"level,omitempty"`
	HTMLID    string `json:"htmlId,omitempty"`
	ClassName string `json:"className,omitempty"`
}

func (Heading) ComponentType() string { return "Heading" }

func (c Heading) MarshalJSON() ([]byte, error) {
	type plain Heading
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{c.ComponentType(), plain(c)})
}

type Text struct {
	Text string `json:"text"`
}

func (Text) ComponentType() string { return "Text" }

func (c Text) MarshalJSON() ([]byte, error) {
	type plain Text
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{c.ComponentType(), plain(c)})
}

type Paragraph struct {
	Text      string `json:"text"`
	ClassName string `json:"className,omitempty"`
}

func (Paragraph) ComponentType() string { return "Paragraph" }

func (c Paragraph) MarshalJSON() ([]byte, error) {
	type plain Paragraph
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{c.ComponentType(), plain(c)})
}

type Link struct {
	Components []Component `json:"components"`
	OnClick    Event       `json:"onClick,omitempty"`
	Mode       string      `json:"mode,omitempty"`
	Active     string      `json:"active,omitempty"`
	ClassName  string      `json:"className,omitempty"`
}

func (Link) ComponentType() string { return "Link" }

func (c Link) MarshalJSON() ([]byte, error) {
	type plain Link
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{c.ComponentType(), plain(c)})
}

type Button struct {
	Text      string `json:"text"`
	OnClick   Event  `json:"onClick,omitempty"`
	HTMLType  string `json:"htmlType,omitempty"`
	Named     string `json:"namedStyle,omitempty"`
	ClassName string `json:"className,omitempty"`
}

func (Button) ComponentType() string { return "Button" }

func (c Button) MarshalJSON() ([]byte, error) {
	type plain Button
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{c.ComponentType(), plain(c)})
}

type Modal struct {
	Title       string         `json:"title"`
	Body        []Component    `json:"body"`
	Footer      []Component    `json:"footer,omitempty"`
	OpenTrigger *PageEvent     `json:"openTrigger,omitempty"`
	OpenContext map[string]any `json:"openContext,omitempty"`
	ClassName   string         `json:"className,omitempty"`
}

func (Modal) ComponentType() string { return "Modal" }

func (c Modal) MarshalJSON() ([]byte, error) {
	type plain Modal
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{c.ComponentType(), plain(c)})
}

// DisplayLookup — какое поле и как показывать в Details и Table.
type DisplayLookup struct {
	Field     string `json:"field"`
	Title     string `json:"title,omitempty"`
	Mode      string `json:"mode,omitempty"`
	OnClick   Event  `json:"onClick,omitempty"`
	WidthPerc int    `json:"tableWidthPercent,omitempty"`
}

type Details struct {
	Data      map[string]any  `json:"data"`
	Fields    []DisplayLookup `json:"fields"`
	ClassName string          `json:"className,omitempty"`
}

func (Details) ComponentType() string { return "Details" }

func (c Details) MarshalJSON() ([]byte, error) {
	type plain Details
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{c.ComponentType(), plain(c)})
}

type Table struct {
	Data          []map[string]any `json:"data"`
	Columns       []DisplayLookup  `json:"columns"`
	NoDataMessage string           `json:"noDataMessage,omitempty"`
	ClassName     string           `json:"className,omitempty"`
}

func (Table) ComponentType() string { return "Table" }

func (c Table) MarshalJSON() ([]byte, error) {
	type plain Table
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{c.ComponentType(), plain(c)})
}

type Pagination struct {
	Page           int    `json:"page"`
	PageSize       int    `json:"pageSize"`
	Total          int    `json:"total"`
	PageQueryParam string `json:"pageQueryParam,omitempty"`
}

func (Pagination) ComponentType() string { return "Pagination" }

func (c Pagination) MarshalJSON() ([]byte, error) {
	type plain Pagination
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{c.ComponentType(), plain(c)})
}

// Page — корневой контейнер страницы.
type Page struct {
	Components []Component `json:"components"`
	ClassName  string      `json:"className,omitempty"`
}

func (Page) ComponentType() string { return "Page" }

func (c Page) MarshalJSON() ([]byte, error) {
	type plain Page
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{c.ComponentType(), plain(c)})
}

// FireEvent — ответ, после которого фронтенд выполняет событие (например, переход).
type FireEvent struct {
	Event   Event  `json:"event"`
	Message string `json:"message,omitempty"`
}

func (FireEvent) ComponentType() string { return "FireEvent" }

func (c FireEvent) MarshalJSON() ([]byte, error) {
	type plain FireEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{c.ComponentType(), plain(c)})
}

// Event — событие фронтенда.
type Event interface {
	EventType() string
}

type GoToEvent struct {
	URL   string            `json:"url"`
	Query map[string]string `json:"query,omitempty"`
}

func (GoToEvent) EventType() string { return "go-to" }

func (e GoToEvent) MarshalJSON() ([]byte, error) {
	type plain GoToEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{e.EventType(), plain(e)})
}

type PageEvent struct {
	Name     string         `json:"name"`
	PushPath string         `json:"pushPath,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
	Clear    bool           `json:"clear,omitempty"`
}

func (PageEvent) EventType() string { return "page" }

func (e PageEvent) MarshalJSON() ([]byte, error) {
	type plain PageEvent
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{e.EventType(), plain(e)})
}
