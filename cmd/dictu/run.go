package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/dictu/vm"
)

var runCmd = &cobra.Command{
	Use:   "run <script> [args...]",
	Short: "Run a script",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScript(args[0], args[1:])
	},
}

// runScript runs path with scriptArgs exposed as System.argv after the
// script name.
func runScript(path string, scriptArgs []string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot open script: %w", err)
	}
	cfg, err := runtimeConfig()
	if err != nil {
		return err
	}

	argv := append([]string{path}, scriptArgs...)
	v := newVM(cfg, vm.WithArgs(argv))
	log.Debugf("running %s", path)
	return exitFor(v.InterpretFile(path))
}
