// Package reference загружает справочники (enum-каталоги) из YAML.
package reference

import (
	"sort"
	"time"
)

// Catalog — один справочник типа enum.
type Catalog struct {
	Name  string `yaml:"name" json:"name"`
	Title string `yaml:"title,omitempty" json:"title,omitempty"`
	Items []Item `yaml:"items" json:"items"`
}

type Item struct {
	Code      string `yaml:"code" json:"code"`
	Name      string `yaml:"name" json:"name"`
	Order     int    `yaml:"order,omitempty" json:"order,omitempty"`
	ValidFrom string `yaml:"valid_from,omitempty" json:"valid_from,omitempty"`
	ValidTo   string `yaml:"valid_to,omitempty" json:"valid_to,omitempty"`
}

// Active — действует ли значение на момент at. Пустые границы не ограничивают.
func (it Item) Active(at time.Time) bool {
	day := at.Format(time.DateOnly)
	if it.ValidFrom != "" && day < it.ValidFrom {
		return false
	}
	if it.ValidTo != "" && day > it.ValidTo {
		return false
	}
	return true
}

// Sorted возвращает элементы по Order; при равенстве сохраняется порядок файла.
func (c *Catalog) Sorted() []Item {
	out := make([]Item, len(c.Items))
	copy(out, c.Items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Codes — коды действующих сегодня значений в порядке Sorted.
func (c *Catalog) Codes() []string {
	now := time.Now()
	var out []string
	for _, it := range c.Sorted() {
		if it.Active(now) {
			out = append(out, it.Code)
		}
	}
	return out
}

func (c *Catalog) Lookup(code string) (Item, bool) {
	for _, it := range c.Items {
		if it.Code == code {
			return it, true
		}
	}
	return Item{}, false
}

// Catalogs — справочники по имени.
type Catalogs map[string]*Catalog

// Codes возвращает коды справочника name.
func (cs Catalogs) Codes(name string) ([]string, bool) {
	c, ok := cs[name]
	if !ok {
		return nil, false
	}
	return c.Codes(), true
}

func (cs Catalogs) Names() []string {
	out := make([]string, 0, len(cs))
	for n := range cs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
