package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/dictu/manifest"
	"github.com/chazu/dictu/vm"
)

// Integration tests: compile and execute programs end to end.

type runResult struct {
	out    string
	errOut string
	result vm.InterpretResult
	err    error
}

func runSource(t *testing.T, source string, opts ...vm.Option) runResult {
	t.Helper()
	var out, errOut bytes.Buffer
	opts = append(opts, vm.WithStdout(&out), vm.WithStderr(&errOut))
	v := vm.New(opts...)
	v.UseCompiler(Compile)
	res := v.Interpret("main", source)
	return runResult{out: out.String(), errOut: errOut.String(), result: res, err: v.LastError()}
}

func expectOutput(t *testing.T, source, want string) {
	t.Helper()
	r := runSource(t, source)
	if r.result != vm.InterpretOK {
		t.Fatalf("result = %v, want ok\nstderr:\n%s", r.result, r.errOut)
	}
	if r.out != want {
		t.Errorf("output = %q, want %q", r.out, want)
	}
}

func expectRuntimeError(t *testing.T, source, want string) {
	t.Helper()
	r := runSource(t, source)
	if r.result != vm.InterpretRuntimeError {
		t.Fatalf("result = %v, want runtime error\nstdout:\n%s", r.result, r.out)
	}
	var rerr *vm.RuntimeError
	if !errors.As(r.err, &rerr) {
		t.Fatalf("LastError() = %T, want *vm.RuntimeError", r.err)
	}
	if !strings.Contains(rerr.Message, want) {
		t.Errorf("runtime error = %q, want it to contain %q", rerr.Message, want)
	}
}

func TestIntegrationArithmeticAndPrint(t *testing.T) {
	expectOutput(t, `
var a = 10;
var b = 4;
print(a + b, a - b, a * b, a / b, a % b);
print(2 ** 10);
print(6 & 3, 6 | 3, 6 ^ 3, ~0);
print(1 < 2, 2 <= 1, a == 10, a != 10);
`, "14\n6\n40\n2.5\n2\n1024\n2\n7\n5\n-1\ntrue\nfalse\ntrue\nfalse\n")
}

func TestIntegrationStringsAndTernary(t *testing.T) {
	expectOutput(t, `
var name = "dictu";
print("hello " + name);
print(name.upper());
print(name.len() > 3 ? "long" : "short");
print(not false);
`, "hello dictu\nDICTU\nlong\ntrue\n")
}

func TestIntegrationLogicalOperators(t *testing.T) {
	expectOutput(t, `
print(nil or "default");
print(1 and 2);
print(false and undefinedName);
`, "default\n2\nfalse\n")
}

func TestIntegrationClosuresShareUpvalues(t *testing.T) {
	expectOutput(t, `
def makeCounter() {
    var count = 0;
    def increment() {
        count += 1;
        return count;
    }
    def current() {
        return count;
    }
    return [increment, current];
}

var fns = makeCounter();
fns[0]();
fns[0]();
print(fns[1]());
`, "2\n")
}

func TestIntegrationClosedUpvaluesAreIndependent(t *testing.T) {
	expectOutput(t, `
var closures = [];
for (var i = 0; i < 3; i += 1) {
    var j = i;
    closures.push(def () => j * 10);
}
print(closures[0](), closures[2]());
`, "0\n20\n")
}

func TestIntegrationOptionalParameters(t *testing.T) {
	src := `
def add(a, b, c = 10) {
    return a + b + c;
}
print(add(1, 2));
print(add(1, 2, 3));
`
	expectOutput(t, src, "13\n6\n")
	expectRuntimeError(t, src+"add(1);", "Function add() expected 2 to 3 arguments but got 1")
	expectRuntimeError(t, src+"add(1, 2, 3, 4);", "Function add() expected 2 to 3 arguments but got 4")
}

func TestIntegrationLoops(t *testing.T) {
	expectOutput(t, `
var count = 0;
for (var i = 0; i < 5; i += 1) {
    if (i == 1 or i == 3) continue;
    count += 1;
}
print(count);

var n = 0;
while (true) {
    var doubled = n * 2;
    if (doubled > 6) break;
    n += 1;
}
print(n);
`, "3\n4\n")
}

func TestIntegrationCollections(t *testing.T) {
	expectOutput(t, `
var list = [1, 2, 3];
list.push(4);
list[0] += 10;
print(list.len(), list[0], list[-1]);
print(list[1:3].len());

var dict = {"a": 1};
dict["b"] = 2;
print(dict.len(), dict["b"]);
print(dict.get("missing", "fallback"));

var s = set(1, 2, 2);
print(s.len());
print("hello"[1:]);
`, "4\n11\n4\n2\n2\n2\nfallback\n2\nello\n")
}

func TestIntegrationClassesAndInheritance(t *testing.T) {
	expectOutput(t, `
class Animal {
    init(var name) {}

    speak() {
        return this.name + " makes a sound";
    }
}

class Dog < Animal {
    speak() {
        return super.speak() + "!";
    }
}

var d = Dog("rex");
print(d.speak());
d.age = 3;
d.age += 1;
print(d.age);
`, "rex makes a sound!\n4\n")
}

func TestIntegrationIndexConversion(t *testing.T) {
	expectOutput(t, `
var list = [1, 2, 3];
print(list[-3], list[2.0]);
print(list[1:1e300].len(), list[-1e300:1].len());
print("abc"[0.9:].len());
`, "1\n3\n2\n1\n3\n")
}

func TestIntegrationStaticAndClassVariables(t *testing.T) {
	expectOutput(t, `
class Config {
    var version = 2;

    static describe() {
        return "config";
    }
}
print(Config.version);
print(Config.describe());
`, "2\nconfig\n")
}

func TestIntegrationTraits(t *testing.T) {
	expectOutput(t, `
trait Greets {
    greet() {
        return "hello " + this.name;
    }
}

class Person {
    use Greets;
    init(var name) {}
}
print(Person("ada").greet());
`, "hello ada\n")
}

func TestIntegrationAbstractContract(t *testing.T) {
	expectRuntimeError(t, `
abstract class Shape {
    abstract area();
}

class Square < Shape {
    init(var side) {}
}
`, "Class Square must implement abstract method area")

	expectOutput(t, `
abstract class Shape {
    abstract area();
}

class Square < Shape {
    init(var side) {}
    area() { return this.side * this.side; }
}
print(Square(3).area());
`, "9\n")

	expectRuntimeError(t, `
abstract class Shape {}
Shape();
`, "Cannot instantiate abstract class Shape")

	expectRuntimeError(t, `
trait T {}
class C < T {}
`, "Superclass must be a class.")
}

func TestIntegrationResults(t *testing.T) {
	expectOutput(t, `
print("12".toNumber().unwrap() + 1);
print("abc".toNumber().success());
print(Error("bad").unwrapError());
`, "13\nfalse\nbad\n")
}

func TestIntegrationRuntimeErrors(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"print(missing);", "Undefined variable 'missing'."},
		{`1 + "a";`, "Unsupported operand types for +: number and string"},
		{"nil();", "Can only call functions and classes."},
		{"def f() { return f(); } f();", "Stack overflow"},
		{`var d = {[1]: 2};`, "Dictionary key must be an immutable type."},
		{"assert(false);", "assert() was false!"},
		{"[1, 2][5];", "List index out of bounds."},
		{"[1, 2][0.5];", "List index out of bounds."},
		{"[1, 2][1e300];", "List index out of bounds."},
		{`"ab"["x"];`, "String index must be a number."},
		{"5[0];", "Can only subscript on lists, strings or dictionaries, not number."},
		{"var n = 1; n[0] = 2;", "Only lists and dictionaries support subscript assignment, not number."},
		{"true[1:2];", "Can only slice on lists and strings, not bool."},
		{"1.5 & 1;", "Operands of & must be integers."},
		{"1e300 | 1;", "Operands of | must be integers."},
		{`"a" ^ 1;`, "Operands of ^ must be integers."},
		{"~0.5;", "Operand of ~ must be an integer."},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			expectRuntimeError(t, tc.source, tc.want)
		})
	}
}

func TestIntegrationTraceback(t *testing.T) {
	r := runSource(t, "def inner() {\n    return 1 + nil;\n}\ninner();\n")
	if r.result != vm.InterpretRuntimeError {
		t.Fatalf("result = %v, want runtime error", r.result)
	}
	if !strings.Contains(r.errOut, "Traceback (most recent call last):") {
		t.Errorf("stderr missing traceback header:\n%s", r.errOut)
	}
	if !strings.Contains(r.errOut, "line 2, in inner()") {
		t.Errorf("stderr missing faulting frame:\n%s", r.errOut)
	}
}

func TestIntegrationImports(t *testing.T) {
	dir := t.TempDir()
	modPath := filepath.Join(dir, "helpers.du")
	err := os.WriteFile(modPath, []byte(`
print("loaded");
var answer = 42;
def double(x) => x * 2;
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	src := fmt.Sprintf(`
import %q as Helpers;
print(Helpers.answer);
from %q import double;
print(double(4));
`, modPath, modPath)
	expectOutput(t, src, "loaded\n42\n8\n")
}

func TestIntegrationImportCompileErrorIsRuntimeError(t *testing.T) {
	dir := t.TempDir()
	modPath := filepath.Join(dir, "broken.du")
	if err := os.WriteFile(modPath, []byte("var = ;"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectRuntimeError(t, fmt.Sprintf("import %q;", modPath), "Failed to compile module")
}

func TestIntegrationWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	expectOutput(t, fmt.Sprintf(`
with (%q, "w") {
    file.write("first line");
}
with (%q, "r") {
    print(file.read());
}
`, path, path), "first line\n")
}

func TestIntegrationWithClosesFileOnEarlyExit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		body string
	}{
		{"break", `while (true) { with (%q, "r") { saved = file; break; } }`},
		{"continue", `for (var i = 0; i < 2; i += 1) { with (%q, "r") { saved = file; continue; } }`},
		{"return", `def f() { with (%q, "r") { saved = file; return file.read(); } } print(f());`},
		{"return nothing", `def f() { with (%q, "r") { saved = file; return; } } f();`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			source := "var saved;\n" + fmt.Sprintf(tc.body, path) + "\nsaved.read();\n"
			expectRuntimeError(t, source, "read() called on a closed file")
		})
	}
}

func TestIntegrationCyclicContainers(t *testing.T) {
	expectOutput(t, `
var a = [];
a.push(a);
var b = [];
b.push(b);
print(a == b);
var d = {};
d["self"] = d;
var e = {};
e["self"] = e;
print(d == e);
var x = [1];
x.push(x);
var y = [2];
y.push(y);
print(x == y);
var c = a.deepCopy();
print(c == a);
c.push(1);
print(a.len(), c.len(), c[0].len());
`, "true\ntrue\nfalse\ntrue\n1\n2\n2\n")
}

func TestIntegrationREPLEcho(t *testing.T) {
	var out bytes.Buffer
	v := vm.New(vm.WithREPL(true), vm.WithStdout(&out), vm.WithStderr(&out))
	v.UseCompiler(Compile)

	dir := t.TempDir()
	modPath := filepath.Join(dir, "quiet.du")
	if err := os.WriteFile(modPath, []byte("var inner = 1;\ninner + 1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	inputs := []string{
		"var x = 40;",
		"x + 2;",
		"nil;",
		`"a" + "b";`,
		"print(3);",
		fmt.Sprintf("import %q;", modPath),
		"if (true) { x; }",
	}
	for _, src := range inputs {
		if res := v.Interpret("repl", src); res != vm.InterpretOK {
			t.Fatalf("Interpret(%q) = %v\n%s", src, res, out.String())
		}
	}
	if want := "42\nab\n3\n"; out.String() != want {
		t.Errorf("echo = %q, want %q", out.String(), want)
	}
}

func TestIntegrationNoEchoOutsideREPL(t *testing.T) {
	expectOutput(t, "1 + 1;\nvar x = 2;\nx;\n", "")
}

func TestIntegrationEmbeddingAccessors(t *testing.T) {
	var out bytes.Buffer
	v := vm.New(vm.WithStdout(&out))
	v.UseCompiler(Compile)
	v.SetGlobal("answer", vm.NumberValue(42))

	if res := v.Interpret("main", "var x = answer - 2;\nprint(answer);"); res != vm.InterpretOK {
		t.Fatalf("Interpret = %v: %v", res, v.LastError())
	}
	if out.String() != "42\n" {
		t.Errorf("output = %q, want %q", out.String(), "42\n")
	}

	if g, ok := v.GetGlobal("answer"); !ok || g.AsNumber() != 42 {
		t.Errorf("GetGlobal(answer) = %v, %v", g, ok)
	}
	if _, ok := v.GetGlobal("print"); !ok {
		t.Error("GetGlobal(print) should find the builtin")
	}
	if _, ok := v.GetGlobal("x"); ok {
		t.Error("module variables are not builtin globals")
	}

	x, ok := v.ModuleValue("main", "x")
	if !ok || !x.IsNumber() || x.AsNumber() != 40 {
		t.Errorf("ModuleValue(main, x) = %v, %v, want 40", v.ValueString(x), ok)
	}
	table, ok := v.ModuleTable("main")
	if !ok {
		t.Fatal("ModuleTable(main) not found")
	}
	if _, ok := table.Get(v.CopyString("x")); !ok {
		t.Error("module table should hold x")
	}
	if _, ok := v.ModuleTable("missing"); ok {
		t.Error("ModuleTable(missing) should fail")
	}
	if _, ok := v.ModuleValue("main", "missing"); ok {
		t.Error("ModuleValue(main, missing) should fail")
	}
}

func TestIntegrationUnderGCStress(t *testing.T) {
	cfg := manifest.DefaultRuntime()
	cfg.GCStress = true
	r := runSource(t, `
class Node {
    init(var value, var next) {}
}
var head = nil;
for (var i = 0; i < 20; i += 1) {
    head = Node("n" + i.toString(), head);
}
var total = 0;
while (head != nil) {
    total += 1;
    head = head.next;
}
print(total);
`, vm.WithConfig(cfg))
	if r.result != vm.InterpretOK {
		t.Fatalf("result = %v\n%s", r.result, r.errOut)
	}
	if r.out != "20\n" {
		t.Errorf("output = %q, want %q", r.out, "20\n")
	}
}

func TestIntegrationCompileErrorResult(t *testing.T) {
	r := runSource(t, "var x = ;")
	if r.result != vm.InterpretCompileError {
		t.Fatalf("result = %v, want compile error", r.result)
	}
	if !strings.Contains(r.errOut, "Expect expression.") {
		t.Errorf("stderr = %q, want compile diagnostic", r.errOut)
	}
}
