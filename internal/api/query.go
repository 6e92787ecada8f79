package api

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"adminkit/internal/page"
	"adminkit/internal/schema"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

type SortKey struct {
	Column string
	Desc   bool
}

// Filter — условие column__op=value; значения уже приведены к типу колонки.
type Filter struct {
	Column string
	Op     string
	Values []any
}

type ListParams struct {
	Page    int
	Limit   int
	Offset  int
	Sort    []SortKey
	Filters []Filter
}

var filterOps = map[string]bool{
	"eq": true, "ne": true, "in": true, "like": true,
	"gt": true, "gte": true, "lt": true, "lte": true,
}

func first(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// parseListParams разбирает page/limit/offset/sort и фильтры вида
//
//	status=active
//	status__in=active,archived
//	age__gte=18
//
// Неверные limit/page/offset заменяются значениями по умолчанию,
// неизвестные колонки и операторы дают 400.
func parseListParams(t *schema.Table, q url.Values) (ListParams, error) {
	p := ListParams{Page: 1, Limit: defaultLimit}
	if n, err := strconv.Atoi(first(q, "_limit", "limit")); err == nil && n > 0 && n <= maxLimit {
		p.Limit = n
	}
	if n, err := strconv.Atoi(first(q, "page")); err == nil && n > 0 {
		p.Page = n
	}
	p.Offset = (p.Page - 1) * p.Limit
	if n, err := strconv.Atoi(first(q, "_offset", "offset")); err == nil && n >= 0 {
		p.Offset = n
		p.Page = n/p.Limit + 1
	}

	if sv := first(q, "_sort", "sort"); sv != "" {
		for _, part := range strings.Split(sv, ",") {
			part = strings.TrimSpace(part)
			desc := strings.HasPrefix(part, "-")
			part = strings.TrimLeft(part, "+-")
			if part == "" {
				continue
			}
			if _, ok := t.Field(part); !ok {
				return p, page.Errorf(http.StatusBadRequest, "unknown sort column %q", part)
			}
			p.Sort = append(p.Sort, SortKey{Column: part, Desc: desc})
		}
	}

	for key, vals := range q {
		switch key {
		case "page", "limit", "_limit", "offset", "_offset", "sort", "_sort":
			continue
		}
		if len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
			continue
		}
		column, op := key, "eq"
		if i := strings.LastIndex(key, "__"); i > 0 {
			column, op = key[:i], key[i+2:]
		}
		f, ok := t.Field(column)
		if !ok {
			return p, page.Errorf(http.StatusBadRequest, "unknown filter column %q", column)
		}
		if !filterOps[op] {
			return p, page.Errorf(http.StatusBadRequest, "unknown filter operator %q", op)
		}
		raw := []string{vals[0]}
		if op == "in" {
			raw = raw[:0]
			for _, s := range strings.Split(vals[0], ",") {
				if s = strings.TrimSpace(s); s != "" {
					raw = append(raw, s)
				}
			}
		}
		flt := Filter{Column: column, Op: op}
		for _, s := range raw {
			v, err := filterValue(f.Type, s)
			if err != nil {
				return p, page.Errorf(http.StatusBadRequest, "filter %s: %v", key, err)
			}
			flt.Values = append(flt.Values, v)
		}
		p.Filters = append(p.Filters, flt)
	}
	sort.Slice(p.Filters, func(i, j int) bool {
		if p.Filters[i].Column != p.Filters[j].Column {
			return p.Filters[i].Column < p.Filters[j].Column
		}
		return p.Filters[i].Op < p.Filters[j].Op
	})
	return p, nil
}

func filterValue(typ schema.ColumnType, s string) (any, error) {
	switch typ {
	case schema.TypeInt:
		return strconv.ParseInt(s, 10, 64)
	case schema.TypeFloat, schema.TypeDecimal:
		return strconv.ParseFloat(s, 64)
	case schema.TypeBool:
		return strconv.ParseBool(s)
	default:
		return s, nil
	}
}
