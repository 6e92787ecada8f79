package main

import (
	"fmt"

	"adminkit/internal/dsl"
	"adminkit/internal/reference"
	"adminkit/internal/schema"
)

// loadMetadata собирает таблицы из DSL и справочников по конфигу.
func loadMetadata() (*schema.Metadata, reference.Catalogs, error) {
	catalogs, err := reference.Load(cfg.EnumsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading enum catalogs: %w", err)
	}
	decls, err := dsl.LoadDir(cfg.DSLDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading DSL: %w", err)
	}
	md := schema.NewMetadata()
	tables, err := dsl.Build(md, decls, catalogs)
	if err != nil {
		return nil, nil, err
	}
	for _, t := range tables {
		t.CacheModels = cfg.CacheModels
		t.DisableInfoCache = !cfg.CacheInfo
	}
	if issues := md.Lint(); len(issues) > 0 {
		return nil, nil, &schema.LintError{Issues: issues}
	}
	logger.Info("metadata loaded", "tables", len(tables), "catalogs", len(catalogs), "dsl", cfg.DSLDir)
	return md, catalogs, nil
}
