package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/catalog/internal/config"
	"github.com/roach88/catalog/internal/store"
)

// InitResult is the payload of a successful init.
type InitResult struct {
	Config   string `json:"config"`
	Database string `json:"database"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config and create the database",
		Long: `Write a default catalog.yaml and create the database schema.

An existing config file is never overwritten.

Example:
  catalog init
  catalog init --config ./data/catalog.yaml --db ./data/catalog.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg := config.Default()
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if err := cfg.WriteFile(opts.ConfigPath); err != nil {
		return WrapExitError(ExitCommandError, "failed to write config", err)
	}

	// Reload so the database path is resolved the way later commands see it.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create database", err)
	}
	if err := st.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to close database", err)
	}

	result := InitResult{Config: opts.ConfigPath, Database: cfg.Database}
	if f.Format == "json" {
		return f.Success(result)
	}
	return f.Success(fmt.Sprintf("Initialized %s (database %s)", result.Config, result.Database))
}
