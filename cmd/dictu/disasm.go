package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm <script>",
	Short: "Print the bytecode a script compiles to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		source, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read script: %w", err)
		}
		cfg, err := runtimeConfig()
		if err != nil {
			return err
		}

		v := newVM(cfg)
		module := v.NewScratchModule(path)
		fn, err := v.Compile(module, string(source))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return &exitError{code: exitCompileError}
		}
		v.Disassemble(cmd.OutOrStdout(), fn)
		return nil
	},
}
