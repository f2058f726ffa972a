package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/dictu/vm"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL()
	},
}

// runREPL reads statements from stdin and runs each in one persistent
// module. Input is buffered until brackets balance so blocks can span
// lines. Prompts are shown only on an interactive terminal.
func runREPL() error {
	cfg, err := runtimeConfig()
	if err != nil {
		return err
	}
	v := newVM(cfg, vm.WithREPL(true), vm.WithArgs([]string{""}))

	interactive := isTerminal(os.Stdin)
	if interactive {
		fmt.Printf("Dictu Version: %s\n", Version)
	}

	scanner := bufio.NewScanner(os.Stdin)
	var buf strings.Builder
	for {
		if interactive {
			if buf.Len() == 0 {
				fmt.Print(">>> ")
			} else {
				fmt.Print("... ")
			}
		}
		if !scanner.Scan() {
			break
		}

		buf.WriteString(scanner.Text())
		buf.WriteByte('\n')
		if depth(buf.String()) > 0 {
			continue
		}

		source := buf.String()
		buf.Reset()
		if strings.TrimSpace(source) == "" {
			continue
		}
		v.Interpret("repl", source)
	}
	if interactive {
		fmt.Println()
	}
	return scanner.Err()
}

// depth returns how many brackets opened in source are still unclosed,
// ignoring brackets inside string literals and comments.
func depth(source string) int {
	d := 0
	var quote byte
	for i := 0; i < len(source); i++ {
		c := source[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '/' && i+1 < len(source) && source[i+1] == '/':
			for i < len(source) && source[i] != '\n' {
				i++
			}
		case c == '{' || c == '(' || c == '[':
			d++
		case c == '}' || c == ')' || c == ']':
			d--
		}
	}
	return d
}
