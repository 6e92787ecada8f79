// Package dsl разбирает .dsl-файлы с объявлениями таблиц и строит по ним schema.Table.
package dsl

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	tableRe            = regexp.MustCompile(`^table\s+([A-Za-z_][\w.]*)\s*:\s*(?:#\s*(.*))?$`)
	fieldRe            = regexp.MustCompile(`^\s*([A-Za-z_]\w*):\s*([^\s#]+)(.*)$`)
	enumRe             = regexp.MustCompile(`^enum\[(.*)\]$`)
	refRe              = regexp.MustCompile(`^ref\[([A-Za-z0-9_.]+)\]$`)
	arrayRe            = regexp.MustCompile(`^array\[(.+)\]$`)
	reConstraintsStart = regexp.MustCompile(`^\s*constraints\s*:\s*$`)
	reUniqueLine       = regexp.MustCompile(`^\s*unique\s*\(\s*([^)]+)\s*\)\s*$`)
)

// известные опции поля; значение true — опция-флаг
var knownOptions = map[string]bool{
	"pk": true, "auto": true, "required": true, "nullable": true,
	"unique": true, "index": true, "frozen": true, "exclude": true, "strict": true,
	"size": false, "default": false, "default_factory": false,
	"comment": false, "title": false, "description": false, "alias": false,
	"gt": false, "ge": false, "lt": false, "le": false, "min": false, "max": false,
	"multiple_of": false, "min_length": false, "max_length": false, "pattern": false,
	"catalog": false, "on_delete": false,
}

// splitOptionTokens делит "k=v k2='v 2' pattern=^[A-Z0-9 _-]+$" на токены,
// не разрывая кавычки, [...] и {...}.
func splitOptionTokens(s string) []string {
	var out []string
	var buf []rune
	inSingle, inDouble := false, false
	bracketDepth := 0

	flush := func() {
		if len(buf) > 0 {
			out = append(out, string(buf))
			buf = buf[:0]
		}
	}

	for _, r := range s {
		switch r {
		case '\'':
			if !inDouble && bracketDepth == 0 {
				inSingle = !inSingle
			}
			buf = append(buf, r)
		case '"':
			if !inSingle && bracketDepth == 0 {
				inDouble = !inDouble
			}
			buf = append(buf, r)
		case '[', '{':
			if !inSingle && !inDouble {
				bracketDepth++
			}
			buf = append(buf, r)
		case ']', '}':
			if !inSingle && !inDouble && bracketDepth > 0 {
				bracketDepth--
			}
			buf = append(buf, r)
		default:
			if (r == ' ' || r == '\t' || r == ',') && !inSingle && !inDouble && bracketDepth == 0 {
				flush()
				continue
			}
			buf = append(buf, r)
		}
	}
	flush()
	return out
}

// stripComment срезает "# ..." вне кавычек.
func stripComment(s string) string {
	inSingle, inDouble := false, false
	for i, r := range s {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case r == '#' && !inSingle && !inDouble:
			return strings.TrimSpace(s[:i])
		}
	}
	return strings.TrimSpace(s)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.Trim(strings.TrimSpace(p), `"'`); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// Parse читает объявления таблиц из r. file используется только в ошибках.
func Parse(r io.Reader, file string) ([]*Table, error) {
	var tables []*Table
	var current *Table
	inConstraints := false
	lineNo := 0

	fail := func(format string, args ...any) error {
		return fmt.Errorf("%s:%d: %s", file, lineNo, fmt.Sprintf(format, args...))
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := tableRe.FindStringSubmatch(line); m != nil {
			current = &Table{Name: m[1], Comment: strings.TrimSpace(m[2]), File: file, Line: lineNo}
			tables = append(tables, current)
			inConstraints = false
			continue
		}
		if current == nil {
			return nil, fail("expected `table <name>:`, got %q", line)
		}

		if reConstraintsStart.MatchString(line) {
			inConstraints = true
			continue
		}
		if inConstraints {
			if m := reUniqueLine.FindStringSubmatch(line); m != nil {
				if set := splitList(m[1]); len(set) > 0 {
					current.Unique = append(current.Unique, set)
				}
				continue
			}
			// другая строка закрывает блок constraints и разбирается как поле
			inConstraints = false
		}

		m := fieldRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fail("cannot parse line %q", line)
		}
		f, err := parseField(m[1], m[2], m[3])
		if err != nil {
			return nil, fail("%s: %v", m[1], err)
		}
		f.Line = lineNo
		current.Fields = append(current.Fields, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

func parseField(name, rawType, tail string) (Field, error) {
	// склейка типов со скобками, разорванных пробелом: enum[a, b]
	for _, p := range []string{"enum[", "array["} {
		if strings.HasPrefix(rawType, p) && !strings.Contains(rawType, "]") {
			if idx := strings.Index(tail, "]"); idx >= 0 {
				rawType += tail[:idx+1]
				tail = tail[idx+1:]
			}
		}
	}

	optsRaw := stripComment(tail)
	if strings.HasPrefix(strings.ToLower(optsRaw), "options:") {
		optsRaw = strings.TrimSpace(optsRaw[len("options:"):])
	}

	f := Field{Name: name, Type: strings.ToLower(rawType), Options: map[string]string{}}
	if mm := enumRe.FindStringSubmatch(rawType); mm != nil {
		f.Type = "enum"
		f.Enum = splitList(mm[1])
	} else if mm := refRe.FindStringSubmatch(rawType); mm != nil {
		f.Type = "ref"
		f.RefTarget = mm[1]
	} else if mm := arrayRe.FindStringSubmatch(rawType); mm != nil {
		f.Type = "array"
		f.ElemType = strings.TrimSpace(mm[1])
		if em := enumRe.FindStringSubmatch(f.ElemType); em != nil {
			f.ElemType = "enum"
			f.Enum = splitList(em[1])
		}
	}

	for _, tok := range splitOptionTokens(optsRaw) {
		k, v, hasValue := strings.Cut(tok, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		if strings.HasPrefix(k, "dialect.") {
			f.Options[k] = unquote(strings.TrimSpace(v))
			continue
		}
		flag, known := knownOptions[k]
		if !known {
			return Field{}, fmt.Errorf("unknown option %q", k)
		}
		if !hasValue {
			if !flag {
				return Field{}, fmt.Errorf("option %q requires a value", k)
			}
			f.Options[k] = "true"
			continue
		}
		f.Options[k] = unquote(strings.TrimSpace(v))
	}
	return f, nil
}

// LoadFile разбирает один .dsl-файл.
func LoadFile(path string) ([]*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file, path)
}

// LoadDir обходит root и собирает таблицы из всех .dsl-файлов.
func LoadDir(root string) ([]*Table, error) {
	var result []*Table
	seen := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".dsl") {
			return nil
		}
		tables, err := LoadFile(path)
		if err != nil {
			return err
		}
		for _, t := range tables {
			if prev, exists := seen[t.Name]; exists {
				return fmt.Errorf("duplicate table %q (files: %s, %s)", t.Name, prev, path)
			}
			seen[t.Name] = path
			result = append(result, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
