package main

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version is the interpreter version, overridable at link time.
var Version = "0.30.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the interpreter version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		name := color.New(color.FgCyan, color.Bold).Sprint("dictu")
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s/%s)\n", name, Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}
