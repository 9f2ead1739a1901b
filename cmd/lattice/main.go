// Package main provides the entry point for the lattice CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/lattice/cmd/lattice/commands"
	"github.com/Sumatoshi-tech/lattice/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	globals := &commands.Globals{}

	rootCmd := &cobra.Command{
		Use:   "lattice",
		Short: "Attribute-lattice hashing and frequency profiling",
		Long: `Lattice hashes every subset of a row's attributes and profiles how often
each subset value occurs.

Commands:
  lift      Power-set lattice hashes per row
  exact     Size-k lattice hashes per row
  profile   Frequency tables over a whole input
  merge     Combine saved partial profiles`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	globals.Register(rootCmd)

	rootCmd.AddCommand(commands.NewLiftCommand(globals))
	rootCmd.AddCommand(commands.NewExactCommand(globals))
	rootCmd.AddCommand(commands.NewProfileCommand(globals))
	rootCmd.AddCommand(commands.NewMergeCommand(globals))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lattice %s\n", version.String())
		},
	}
}
