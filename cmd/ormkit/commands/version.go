package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/marmos91/ormkit/internal/cli/output"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the ormkit version, build information, and system details.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if versionShort {
			_, _ = fmt.Fprintln(out, Version)
			return nil
		}

		_, _ = fmt.Fprintf(out, "ormkit %s\n", Version)
		return output.PrintKeyValues(out, []output.KeyValue{
			{Key: "Commit", Value: Commit},
			{Key: "Built", Value: Date},
			{Key: "Go version", Value: runtime.Version()},
			{Key: "OS/Arch", Value: runtime.GOOS + "/" + runtime.GOARCH},
		})
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show only version number")
}
