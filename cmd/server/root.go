package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"adminkit/internal/config"
)

var (
	cfgPath string
	cfg     config.Config
	flags   *config.Flags
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "adminkit",
	Short: "Admin pages over tables declared in DSL files",
	Long: `adminkit reads table declarations from .dsl files and enum catalogs from YAML,
mounts list, detail and form pages for every table and serves them as
component JSON for the prebuilt frontend.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		flags.Apply(&cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger = cfg.Logger(os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML or JSON config file")
	flags = config.RegisterFlags(rootCmd.PersistentFlags())
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
