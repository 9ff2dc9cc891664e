// Package config implements the 'ormkit config' subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for configuration management.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate configuration",
	Long: `Inspect and validate the ormkit configuration file.

Subcommands:
  show      Print the effective configuration
  validate  Validate configuration file
  schema    Generate JSON schema for configuration`,
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(schemaCmd)
}
