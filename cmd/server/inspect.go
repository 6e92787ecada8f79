package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"adminkit/internal/dsl"
	"adminkit/internal/pg"
	"adminkit/internal/schema"
)

var (
	inspectSchemas []string
	inspectFormat  string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Introspect a PostgreSQL database and print its tables",
	Long: `Connects to the database given by --pg (or pgUrl in the config), reads tables,
columns, primary, unique and foreign keys from the catalog and prints them
as DSL (ready to drop into the DSL directory) or YAML.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.PGURL == "" {
			return fmt.Errorf("--pg is required")
		}
		ctx := cmd.Context()
		pool, err := pg.Open(ctx, cfg.PGURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		tables, err := pg.Introspect(ctx, pool, inspectSchemas)
		if err != nil {
			return fmt.Errorf("introspecting schema: %w", err)
		}

		out := cmd.OutOrStdout()
		switch inspectFormat {
		case "dsl":
			tablers := make([]schema.Tabler, len(tables))
			for i, t := range tables {
				tablers[i] = t
			}
			return dsl.Format(out, tablers)
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(inspectTables(tables)); err != nil {
				return err
			}
			return enc.Close()
		default:
			return fmt.Errorf("unknown format: %s (supported: dsl, yaml)", inspectFormat)
		}
	},
}

type inspectColumn struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Size       int    `yaml:"size,omitempty"`
	Nullable   bool   `yaml:"nullable"`
	PrimaryKey bool   `yaml:"primaryKey,omitempty"`
	Auto       bool   `yaml:"autoIncrement,omitempty"`
	Unique     bool   `yaml:"unique,omitempty"`
	References string `yaml:"references,omitempty"`
	OnDelete   string `yaml:"onDelete,omitempty"`
	Comment    string `yaml:"comment,omitempty"`
}

type inspectTable struct {
	Name    string          `yaml:"name"`
	Comment string          `yaml:"comment,omitempty"`
	Columns []inspectColumn `yaml:"columns"`
}

func inspectTables(tables []*schema.BareTable) []inspectTable {
	out := make([]inspectTable, 0, len(tables))
	for _, t := range tables {
		it := inspectTable{Name: t.Name, Comment: t.Comment}
		for _, c := range t.Cols {
			ic := inspectColumn{
				Name:       c.Name,
				Type:       string(c.Type),
				Size:       c.Size,
				Nullable:   c.Nullable,
				PrimaryKey: c.PrimaryKey,
				Auto:       c.AutoIncrement,
				Unique:     c.Unique,
				Comment:    c.Comment,
			}
			if c.ForeignKey != nil {
				ic.References = c.ForeignKey.String()
				ic.OnDelete = string(c.ForeignKey.OnDelete)
			}
			it.Columns = append(it.Columns, ic)
		}
		out = append(out, it)
	}
	return out
}

func init() {
	inspectCmd.Flags().StringSliceVar(&inspectSchemas, "schema", nil, "schemas to inspect (default: public)")
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "dsl", "output format: dsl or yaml")
	rootCmd.AddCommand(inspectCmd)
}
