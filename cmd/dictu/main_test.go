package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/dictu/manifest"
	"github.com/chazu/dictu/vm"
)

func TestDepth(t *testing.T) {
	tests := []struct {
		source string
		want   int
	}{
		{"print(1);", 0},
		{"def f() {", 1},
		{"if (x) {\n  while (y) {", 2},
		{`print("{");`, 0},
		{"var s = '(';", 0},
		{"// {\n", 0},
		{`print("\"{");`, 0},
		{"}", -1},
	}
	for _, tc := range tests {
		if got := depth(tc.source); got != tc.want {
			t.Errorf("depth(%q) = %d, want %d", tc.source, got, tc.want)
		}
	}
}

func writeScript(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFindScripts(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "b.du", "")
	writeScript(t, dir, "a.du", "")
	writeScript(t, dir, "nested/c.du", "")
	writeScript(t, dir, "notes.txt", "")

	scripts, err := findScripts([]string{dir})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "a.du"),
		filepath.Join(dir, "b.du"),
		filepath.Join(dir, "nested", "c.du"),
	}
	if len(scripts) != len(want) {
		t.Fatalf("findScripts() = %v, want %v", scripts, want)
	}
	for i := range want {
		if scripts[i] != want[i] {
			t.Errorf("scripts[%d] = %q, want %q", i, scripts[i], want[i])
		}
	}

	if _, err := findScripts([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("expected error for a missing path")
	}
}

func TestRunScripts(t *testing.T) {
	dir := t.TempDir()
	scripts := []string{
		writeScript(t, dir, "pass.du", `import Math; assert(Math.max(1, 2) == 2);`),
		writeScript(t, dir, "fail.du", `assert(false);`),
		writeScript(t, dir, "broken.du", `var = ;`),
	}

	results, err := runScripts(context.Background(), manifest.DefaultRuntime(), scripts, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []vm.InterpretResult{vm.InterpretOK, vm.InterpretRuntimeError, vm.InterpretCompileError}
	for i, r := range results {
		if r.path != scripts[i] {
			t.Errorf("results[%d].path = %q, want %q", i, r.path, scripts[i])
		}
		if r.result != want[i] {
			t.Errorf("%s: result = %v, want %v\n%s", filepath.Base(r.path), r.result, want[i], r.output)
		}
	}
	if results[1].output == "" {
		t.Error("failing script output should hold its traceback")
	}
}

func TestExitFor(t *testing.T) {
	if err := exitFor(vm.InterpretOK); err != nil {
		t.Errorf("exitFor(ok) = %v, want nil", err)
	}
	if err := exitFor(vm.InterpretCompileError); err.(*exitError).code != exitCompileError {
		t.Errorf("compile errors should exit %d", exitCompileError)
	}
	if err := exitFor(vm.InterpretRuntimeError); err.(*exitError).code != exitRuntimeError {
		t.Errorf("runtime errors should exit %d", exitRuntimeError)
	}
}
