package dsl

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"adminkit/internal/schema"
)

var identRe = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// Format пишет таблицы в синтаксисе .dsl так, что Parse + Build дают ту же
// форму хранения. Используется для выгрузки схемы, найденной интроспекцией.
func Format(w io.Writer, tables []schema.Tabler) error {
	bw := bufio.NewWriter(w)
	for i, t := range tables {
		if i > 0 {
			bw.WriteString("\n")
		}
		if err := formatTable(bw, t); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatTable(w *bufio.Writer, t schema.Tabler) error {
	var comment string
	var unique [][]string
	switch tt := t.(type) {
	case *schema.Table:
		comment, unique = tt.Comment, tt.UniqueTogether
	case *schema.BareTable:
		comment = tt.Comment
	}
	fmt.Fprintf(w, "table %s:", t.TableName())
	if comment != "" {
		fmt.Fprintf(w, " # %s", oneLine(comment))
	}
	w.WriteString("\n")

	for _, c := range t.Columns() {
		if !identRe.MatchString(c.Name) {
			return fmt.Errorf("%s: column %q is not a DSL identifier", t.TableName(), c.Name)
		}
		typ, opts := columnOptions(c)
		fmt.Fprintf(w, "  %s: %s", c.Name, typ)
		for _, o := range opts {
			w.WriteString(" " + o)
		}
		w.WriteString("\n")
	}
	if len(unique) > 0 {
		w.WriteString("  constraints:\n")
		for _, group := range unique {
			fmt.Fprintf(w, "    unique(%s)\n", strings.Join(group, ", "))
		}
	}
	return nil
}

func columnOptions(c *schema.Column) (string, []string) {
	typ := string(c.Type)
	var opts []string
	flag := func(ok bool, name string) {
		if ok {
			opts = append(opts, name)
		}
	}
	value := func(name, v string) {
		opts = append(opts, name+"="+quote(v))
	}

	if fk := c.ForeignKey; fk != nil {
		typ = "ref[" + fk.String() + "]"
		if fk.Column == "id" {
			typ = "ref[" + fk.Table + "]"
		}
	}
	flag(c.PrimaryKey, "pk")
	flag(c.AutoIncrement, "auto")
	flag(!c.Nullable && !c.PrimaryKey, "required")
	flag(c.Unique, "unique")
	flag(c.Index, "index")
	if c.Size > 0 {
		value("size", fmt.Sprint(c.Size))
	}
	if c.Default != nil {
		value("default", fmt.Sprint(c.Default))
	}
	if fk := c.ForeignKey; fk != nil && fk.OnDelete != schema.OnDeleteRestrict && fk.OnDelete != "" {
		value("on_delete", strings.ReplaceAll(strings.ToLower(string(fk.OnDelete)), " ", "_"))
	}
	if c.Comment != "" {
		value("comment", oneLine(c.Comment))
	}
	dialects := make([]string, 0, len(c.Dialect))
	for d := range c.Dialect {
		dialects = append(dialects, d)
	}
	sort.Strings(dialects)
	for _, d := range dialects {
		value("dialect."+d, c.Dialect[d])
	}
	return typ, opts
}

// quote берёт значение в кавычки, если без них оно разобьётся на токены.
func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t,#'\"") {
		return v
	}
	if strings.Contains(v, `"`) {
		return "'" + strings.ReplaceAll(v, "'", "") + "'"
	}
	return `"` + v + `"`
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
