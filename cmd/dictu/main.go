// Dictu CLI - the main entry point for running Dictu scripts
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chazu/dictu/internal/logging"
)

var log = logging.Get("cli")

// Exit codes for guest failures, following sysexits.
const (
	exitCompileError = 65
	exitRuntimeError = 70
)

// exitError carries a process exit code out of a command. The guest
// program has already reported the failure itself.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var (
	configDir string
	verbosity int
	gcStress  bool
)

var rootCmd = &cobra.Command{
	Use:   "dictu [script] [args...]",
	Short: "Dictu scripting language",
	Long: `Dictu runs scripts written in the Dictu language.

With a script argument it runs that script; without one it starts the REPL.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runREPL()
		}
		return runScript(args[0], args[1:])
	},
}

func main() {
	rootCmd.Version = Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(disasmCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory holding dictu.toml (default: search upward from the working directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase diagnostic logging (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&gcStress, "gc-stress", false, "collect garbage on every allocation")

	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
