package main

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/dictu/manifest"
	"github.com/chazu/dictu/vm"
)

var (
	testJobs    int
	testVerbose bool
)

func init() {
	testCmd.Flags().IntVarP(&testJobs, "jobs", "j", runtime.NumCPU(), "number of scripts to run in parallel")
	testCmd.Flags().BoolVar(&testVerbose, "show-output", false, "print the output of passing scripts too")
}

var testCmd = &cobra.Command{
	Use:   "test [paths...]",
	Short: "Run test scripts in parallel",
	Long: `Run every .du script found under the given paths (default: the
current directory), each in its own VM. A script passes when it runs to
completion without a compile or runtime error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}
		scripts, err := findScripts(args)
		if err != nil {
			return err
		}
		if len(scripts) == 0 {
			return fmt.Errorf("no .du scripts found in %s", strings.Join(args, ", "))
		}
		cfg, err := runtimeConfig()
		if err != nil {
			return err
		}

		results, err := runScripts(cmd.Context(), cfg, scripts, testJobs)
		if err != nil {
			return err
		}
		if failed := report(results); failed > 0 {
			return &exitError{code: exitRuntimeError}
		}
		return nil
	},
}

// scriptResult is the outcome of one test script.
type scriptResult struct {
	path     string
	result   vm.InterpretResult
	output   string
	duration time.Duration
}

// findScripts expands paths into a sorted list of .du files.
func findScripts(paths []string) ([]string, error) {
	var scripts []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", p, err)
		}
		if !info.IsDir() {
			scripts = append(scripts, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == ".du" {
				scripts = append(scripts, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}
	sort.Strings(scripts)
	return scripts, nil
}

// runScripts runs each script in its own VM, at most jobs at a time.
func runScripts(ctx context.Context, cfg manifest.Runtime, scripts []string, jobs int) ([]scriptResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]scriptResult, len(scripts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, path := range scripts {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var out bytes.Buffer
			v := newVM(cfg, vm.WithStdout(&out), vm.WithStderr(&out), vm.WithArgs([]string{path}))
			start := time.Now()
			res := v.InterpretFile(path)

			results[i] = scriptResult{path: path, result: res, output: out.String(), duration: time.Since(start)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// report prints one line per script and a summary, returning the number
// of failures.
func report(results []scriptResult) int {
	pass := color.New(color.FgGreen, color.Bold).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()

	failed := 0
	for _, r := range results {
		if r.result == vm.InterpretOK {
			fmt.Printf("%s %s (%s)\n", pass("PASS"), r.path, r.duration.Round(time.Millisecond))
			if testVerbose && r.output != "" {
				fmt.Print(indent(r.output))
			}
			continue
		}
		failed++
		fmt.Printf("%s %s (%s)\n", fail("FAIL"), r.path, r.result)
		fmt.Print(indent(r.output))
	}

	summary := fmt.Sprintf("%d passed, %d failed", len(results)-failed, failed)
	if failed > 0 {
		fmt.Println(fail(summary))
	} else {
		fmt.Println(pass(summary))
	}
	return failed
}

func indent(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return "    " + strings.Join(lines, "\n    ") + "\n"
}
