package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/dictu/vm"
)

func compileSource(t *testing.T, source string) (*vm.VM, *vm.ObjFunction, error) {
	t.Helper()
	v := vm.New()
	module := v.NewScratchModule("test")
	fn, err := Compile(v, module, source)
	return v, fn, err
}

func mustCompile(t *testing.T, source string) (*vm.VM, *vm.ObjFunction) {
	t.Helper()
	v, fn, err := compileSource(t, source)
	if err != nil {
		t.Fatalf("Compile(%q) error: %v", source, err)
	}
	return v, fn
}

// opcodes lists the instructions of a chunk in order.
func opcodes(chunk *vm.Chunk) []vm.Opcode {
	var ops []vm.Opcode
	for i := 0; i < chunk.Len(); i += chunk.InstructionLen(i) {
		ops = append(ops, vm.Opcode(chunk.Code[i]))
	}
	return ops
}

func containsOp(ops []vm.Opcode, op vm.Opcode) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func TestCompileFoldsNumericConstants(t *testing.T) {
	tests := []struct {
		source string
		want   float64
	}{
		{"1 + 2 * 3;", 7},
		{"(1 + 2) * 3;", 9},
		{"-4 + 1;", -3},
		{"2 ** 3 ** 2;", 512},
		{"10 % 4;", 2},
		{"7 / 2;", 3.5},
	}

	for _, tc := range tests {
		_, fn := mustCompile(t, tc.source)
		chunk := &fn.Chunk
		ops := opcodes(chunk)
		want := []vm.Opcode{vm.OpConstant, vm.OpPop, vm.OpNil, vm.OpReturn}
		if len(ops) != len(want) {
			t.Errorf("%q compiled to %v, want %v", tc.source, ops, want)
			continue
		}
		got := chunk.Constants[chunk.ReadUint16(1)]
		if !got.IsNumber() || got.AsNumber() != tc.want {
			t.Errorf("%q folded to %v, want %v", tc.source, got, tc.want)
		}
	}
}

func TestCompileDoesNotFoldDivisionByZero(t *testing.T) {
	for _, src := range []string{"1 / 0;", "1 % 0;"} {
		_, fn := mustCompile(t, src)
		ops := opcodes(&fn.Chunk)
		if !containsOp(ops, vm.OpDivide) && !containsOp(ops, vm.OpMod) {
			t.Errorf("%q was folded: %v", src, ops)
		}
	}
}

func TestCompileFoldsStringConcatenation(t *testing.T) {
	v, fn := mustCompile(t, `"con" + "cat";`)
	chunk := &fn.Chunk
	if ops := opcodes(chunk); ops[0] != vm.OpConstant || ops[1] != vm.OpPop {
		t.Fatalf("concatenation not folded: %v", ops)
	}
	s, ok := vm.As[*vm.ObjString](v, chunk.Constants[chunk.ReadUint16(1)])
	if !ok || s.Chars != "concat" {
		t.Errorf("folded constant = %v, want \"concat\"", v.ValueString(chunk.Constants[chunk.ReadUint16(1)]))
	}
}

func TestCompileDoesNotFoldVariables(t *testing.T) {
	_, fn := mustCompile(t, "var a = 1; a + 2;")
	if !containsOp(opcodes(&fn.Chunk), vm.OpAdd) {
		t.Error("expression with a variable operand should not be folded")
	}
}

func TestCompileRewritesBreaks(t *testing.T) {
	_, fn := mustCompile(t, `
var i = 0;
while (true) {
    for (var j = 0; j < 3; j += 1) {
        if (j == 1) break;
    }
    i += 1;
    if (i > 2) break;
}`)
	if containsOp(opcodes(&fn.Chunk), vm.OpBreak) {
		t.Error("break instruction left unpatched")
	}
}

func TestCompileFunctionArity(t *testing.T) {
	v, fn := mustCompile(t, "def f(a, b, c = 1, d = 2) {}")
	var inner *vm.ObjFunction
	for _, c := range fn.Chunk.Constants {
		if f, ok := vm.As[*vm.ObjFunction](v, c); ok {
			inner = f
		}
	}
	if inner == nil {
		t.Fatal("function constant not found")
	}
	if inner.Arity != 2 || inner.ArityOptional != 2 {
		t.Errorf("arity = %d+%d, want 2+2", inner.Arity, inner.ArityOptional)
	}
	if inner.Name == nil || inner.Name.Chars != "f" {
		t.Error("function name not recorded")
	}
	if !containsOp(opcodes(&inner.Chunk), vm.OpDefineOptional) {
		t.Error("optional parameters need an OpDefineOptional prologue")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"var = 1;", "[line 1] Error at '=': Expect variable name."},
		{"return 1;", "[line 1] Error at 'return': Cannot return from top-level code."},
		{"break;", "[line 1] Error at 'break': Cannot utilise 'break' outside of a loop."},
		{"print(this);", "[line 1] Error at 'this': Cannot use 'this' outside of a class."},
		{"const x = 1;\nx = 2;", "[line 2] Error at '=': Cannot assign to a constant."},
		{"const y;", "[line 1] Error at 'y': Constant must be initialized."},
		{"1 + 2 = 3;", "[line 1] Error at '=': Invalid assignment target."},
		{`"open`, "[line 1] Error: Unterminated string."},
		{"def f(a = 1, b) {}", "[line 1] Error at 'b': Cannot have non-optional parameter after optional."},
		{"class A { init() { return 1; } }", "[line 1] Error at 'return': Cannot return a value from an initializer."},
		{"class A < A {}", "[line 1] Error at 'A': A class cannot inherit from itself."},
		{"class A { abstract f(); }", "[line 1] Error at 'abstract': Abstract methods can only be declared in abstract classes."},
		{"print(1;", "[line 1] Error at ';': Expect ')' after arguments."},
		{"{ var a = 1; var a = 2; }", "[line 1] Error at 'a': Variable with this name already declared in this scope."},
		{"{ var a = a; }", "[line 1] Error at 'a': Cannot read local variable in its own initializer."},
		{"def f() { from \"x\" import y; }", "[line 1] Error at 'from': Can only use 'from' at the top level of a module."},
	}

	for _, tc := range tests {
		_, fn, err := compileSource(t, tc.source)
		if err == nil {
			t.Errorf("Compile(%q) succeeded, want error %q", tc.source, tc.want)
			continue
		}
		if fn != nil {
			t.Errorf("Compile(%q) returned a function alongside errors", tc.source)
		}
		var list ErrorList
		if !errors.As(err, &list) || len(list) == 0 {
			t.Errorf("Compile(%q) error is %T, want ErrorList", tc.source, err)
			continue
		}
		if got := list[0].Error(); got != tc.want {
			t.Errorf("Compile(%q) first error = %q, want %q", tc.source, got, tc.want)
		}
	}
}

func TestCompileReportsEveryStatementError(t *testing.T) {
	_, _, err := compileSource(t, "var = 1;\nvar ok = 2;\nvar = 3;\n")
	if err == nil {
		t.Fatal("expected errors")
	}
	list := err.(ErrorList)
	if len(list) != 2 {
		t.Fatalf("got %d errors, want 2:\n%v", len(list), err)
	}
	if list[0].Line != 1 || list[1].Line != 3 {
		t.Errorf("error lines = %d, %d; want 1, 3", list[0].Line, list[1].Line)
	}
	if !strings.Contains(err.Error(), "\n") {
		t.Error("ErrorList should join diagnostics with newlines")
	}
}

func TestCompileErrorAtEnd(t *testing.T) {
	_, _, err := compileSource(t, "var x = 1")
	if err == nil {
		t.Fatal("expected error")
	}
	want := "[line 1] Error at end: Expect ';' after variable declaration."
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestCompileFoldsInsideLargerExpressions(t *testing.T) {
	_, fn := mustCompile(t, "var a = 1; a + 2 * 3;")
	ops := opcodes(&fn.Chunk)
	if containsOp(ops, vm.OpMultiply) {
		t.Errorf("2 * 3 was not folded: %v", ops)
	}
	if !containsOp(ops, vm.OpAdd) {
		t.Errorf("a + 6 must stay an addition: %v", ops)
	}
}

func TestCompileDoesNotFoldAcrossJumps(t *testing.T) {
	_, fn := mustCompile(t, "var c = true; (c ? 1 : 2) + 3;")
	if !containsOp(opcodes(&fn.Chunk), vm.OpAdd) {
		t.Error("a ternary result must not be folded with the next constant")
	}
}

func TestCompileWithClosesFileOnExits(t *testing.T) {
	_, fn := mustCompile(t, `while (true) { with ("f.txt", "r") { break; } }`)
	closes := 0
	for _, op := range opcodes(&fn.Chunk) {
		if op == vm.OpCloseFile {
			closes++
		}
	}
	if closes != 2 {
		t.Errorf("got %d CLOSE_FILE instructions, want 2 (break and block end)", closes)
	}
}

func TestDisassemble(t *testing.T) {
	v, fn := mustCompile(t, "def add(a, b) { return a + b; }\nprint(1 + 2 * 3);\n")
	var out strings.Builder
	v.Disassemble(&out, fn)
	listing := out.String()

	for _, want := range []string{"== <script> ==", "== add ==", "'7'", vm.OpAdd.String(), vm.OpReturn.String()} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
	if strings.Contains(listing, vm.OpMultiply.String()) {
		t.Errorf("listing should show the folded constant, not MULTIPLY:\n%s", listing)
	}
}
