// File: cmd/version.go
package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the application version.
// Set at build time: go build -ldflags "-X github.com/qaforge/sauceprobe/cmd.Version=1.2.0"
var Version = "0.1.0-dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the sauceprobe version",
		Args:  cobra.NoArgs,
		// Printing the version needs neither configuration nor a logger.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		PersistentPostRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			writeLine(cmd.OutOrStdout(), "sauceprobe %s (%s %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
