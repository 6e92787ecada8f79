package reference

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load читает все *.yaml/*.yml из dir. Имя справочника берётся из поля name
// или из имени файла. Отсутствующий каталог даёт пустой набор.
func Load(dir string) (Catalogs, error) {
	result := make(Catalogs)
	if dir == "" {
		return result, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return nil, err
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var c Catalog
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if c.Name == "" {
			c.Name = strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		}
		if _, dup := result[c.Name]; dup {
			return nil, fmt.Errorf("duplicate enum catalog %q (file: %s)", c.Name, path)
		}
		seen := make(map[string]struct{}, len(c.Items))
		for _, it := range c.Items {
			if strings.TrimSpace(it.Code) == "" {
				return nil, fmt.Errorf("%s: enum item without code", path)
			}
			if _, dup := seen[it.Code]; dup {
				return nil, fmt.Errorf("%s: duplicate code %q", path, it.Code)
			}
			seen[it.Code] = struct{}{}
		}
		result[c.Name] = &c
	}
	return result, nil
}
