package dsl

// Table — объявление таблицы из .dsl-файла.
type Table struct {
	Name    string
	Comment string
	File    string
	Line    int
	Fields  []Field
	// Unique — составные уникальные наборы из блока constraints.
	Unique [][]string
}

// Field — одна строка "имя: тип опции".
type Field struct {
	Name      string
	Type      string // string, int, ..., enum, ref, array
	Enum      []string
	RefTarget string // table или table.column для ref
	ElemType  string // тип элемента для array
	Options   map[string]string
	Line      int
}

// Flag — булева опция: "unique" и "unique=true" равнозначны.
func (f Field) Flag(name string) bool {
	v, ok := f.Options[name]
	if !ok {
		return false
	}
	switch v {
	case "", "true", "1", "yes", "on":
		return true
	}
	return false
}
