package stdlib

import (
	"bytes"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/chazu/dictu/compiler"
	"github.com/chazu/dictu/vm"
)

func runScript(t *testing.T, source string, opts ...vm.Option) string {
	t.Helper()
	var out, errOut bytes.Buffer
	opts = append(opts, vm.WithStdout(&out), vm.WithStderr(&errOut))
	v := vm.New(opts...)
	v.UseCompiler(compiler.Compile)
	Register(v)

	if res := v.Interpret("main", source); res != vm.InterpretOK {
		t.Fatalf("Interpret() = %v\nstderr:\n%s", res, errOut.String())
	}
	return out.String()
}

func expect(t *testing.T, source, want string, opts ...vm.Option) {
	t.Helper()
	if got := runScript(t, source, opts...); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestMath(t *testing.T) {
	expect(t, `
import Math;
print(Math.floor(2.7), Math.ceil(2.1), Math.round(2.5), Math.abs(-3));
print(Math.sqrt(16), Math.pow(2, 8));
print(Math.min(4, 1, 3), Math.max([4, 9, 3]), Math.sum(1, 2, 3), Math.sum([]));
print(Math.pi > 3.14 and Math.pi < 3.15);
`, "2\n3\n3\n3\n4\n256\n1\n9\n6\n0\ntrue\n")
}

func TestMathRejectsNonNumbers(t *testing.T) {
	var errOut bytes.Buffer
	v := vm.New(vm.WithStderr(&errOut), vm.WithStdout(&bytes.Buffer{}))
	v.UseCompiler(compiler.Compile)
	Register(v)

	if res := v.Interpret("main", `import Math; Math.floor("x");`); res != vm.InterpretRuntimeError {
		t.Fatalf("Interpret() = %v, want runtime error", res)
	}
	if !bytes.Contains(errOut.Bytes(), []byte("A non-number value passed to floor()")) {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestSystem(t *testing.T) {
	t.Setenv("DICTU_STDLIB_TEST", "hello")
	expect(t, `
import System;
print(System.getenv("DICTU_STDLIB_TEST").unwrap());
print(System.getenv("DICTU_STDLIB_TEST_UNSET").success());
print(System.argv.len(), System.argv[1]);
print(System.platform);
print(System.time() > 0, System.clock() >= 0);
`, fmt.Sprintf("hello\nfalse\n2\nsecond\n%s\ntrue\ntrue\n", runtime.GOOS),
		vm.WithArgs([]string{"first", "second"}))
}

func TestUUID(t *testing.T) {
	expect(t, `
import UUID;
var id = UUID.generate().unwrap();
print(id.len());
print(UUID.isValid(id), UUID.isValid("not-a-uuid"));
print(UUID.generateTime().unwrap() != UUID.generateTime().unwrap());
`, "36\ntrue\nfalse\ntrue\n")
}

func TestJSON(t *testing.T) {
	expect(t, `
import JSON;
var data = JSON.parse('{"a": [1, 2, {"b": null}], "ok": true}').unwrap();
print(data["a"][1], data["a"][2]["b"], data["ok"]);
print(JSON.stringify({"x": 1}).unwrap());
print(JSON.stringify([1, "two"]).unwrap());
print(JSON.parse("{broken").success());
print(JSON.stringify(def () => 1).success());
`, "2\nnil\ntrue\n{\"x\":1}\n[1,\"two\"]\nfalse\nfalse\n")
}

func TestYAML(t *testing.T) {
	expect(t, `
import YAML;
var doc = YAML.parse("name: dictu\nitems: [x, y]\ncount: 3").unwrap();
print(doc["name"], doc["items"][1], doc["count"] + 1);
print(YAML.parse(YAML.stringify({"k": "v"}).unwrap()).unwrap()["k"]);
`, "dictu\ny\n4\nv\n")
}

func TestBinaryCodecsRoundTrip(t *testing.T) {
	for _, module := range []string{"CBOR", "MsgPack"} {
		t.Run(module, func(t *testing.T) {
			expect(t, fmt.Sprintf(`
import %[1]s;
var encoded = %[1]s.encode({"k": [1, "two", false]}).unwrap();
var decoded = %[1]s.decode(encoded).unwrap();
print(decoded["k"][0], decoded["k"][1], decoded["k"][2]);
print(%[1]s.decode("zz").success());
`, module), "1\ntwo\nfalse\nfalse\n")
		})
	}
}

func TestSqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	expect(t, fmt.Sprintf(`
import Sqlite;
var db = Sqlite.connect(%q).unwrap();
db.execute("CREATE TABLE people (id INTEGER, name TEXT)").unwrap();
db.execute("INSERT INTO people VALUES (?, ?)", [1, "ada"]).unwrap();
db.execute("INSERT INTO people VALUES (?, ?)", [2, "grace"]).unwrap();
var rows = db.execute("SELECT id, name FROM people ORDER BY id").unwrap();
print(rows.len(), rows[1][0], rows[1][1]);
print(db.execute("SELECT * FROM missing").success());
db.close();
print(db.execute("SELECT 1").success());
`, path), "2\n2\ngrace\nfalse\nfalse\n")
}

func TestSqliteReleasedByCollector(t *testing.T) {
	var out bytes.Buffer
	v := vm.New(vm.WithStdout(&out), vm.WithStderr(&out))
	v.UseCompiler(compiler.Compile)
	Register(v)

	released := 0
	v.Heap().OnFree = func(_ uint32, kind vm.ObjKind) {
		if kind == vm.KindAbstract {
			released++
		}
	}
	if res := v.Interpret("main", `import Sqlite; Sqlite.connect(":memory:");`); res != vm.InterpretOK {
		t.Fatalf("Interpret() = %v\n%s", res, out.String())
	}
	v.CollectGarbage()
	if released != 1 {
		t.Errorf("released %d connections, want 1", released)
	}
}

func TestUnknownModule(t *testing.T) {
	var errOut bytes.Buffer
	v := vm.New(vm.WithStderr(&errOut), vm.WithStdout(&bytes.Buffer{}))
	v.UseCompiler(compiler.Compile)
	Register(v)
	if res := v.Interpret("main", "import Nope;"); res != vm.InterpretRuntimeError {
		t.Fatalf("Interpret() = %v, want runtime error", res)
	}
	if !bytes.Contains(errOut.Bytes(), []byte("Unknown module 'Nope'.")) {
		t.Errorf("stderr = %q", errOut.String())
	}
}
