package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"adminkit/internal/pg"
)

var ddlDialect string

var ddlCmd = &cobra.Command{
	Use:   "ddl",
	Short: "Print DDL for the DSL tables",
	Long:  `Builds the DSL tables and prints create table / index / foreign key statements for the chosen SQL dialect.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dialect, err := pg.ParseDialect(ddlDialect)
		if err != nil {
			return err
		}
		md, _, err := loadMetadata()
		if err != nil {
			return err
		}
		stmts, err := pg.GenerateDDL(md.Tables(), dialect)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range stmts {
			if _, err := fmt.Fprintf(out, "%s;\n\n", strings.TrimSpace(s)); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	ddlCmd.Flags().StringVar(&ddlDialect, "dialect", "postgres", "SQL dialect: postgres, sqlite or mysql")
	rootCmd.AddCommand(ddlCmd)
}
