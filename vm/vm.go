package vm

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/dictu/internal/logging"
	"github.com/chazu/dictu/manifest"
)

var (
	vmLog = logging.Get("vm")
	gcLog = logging.Get("gc")
)

// ---------------------------------------------------------------------------
// VM: one independent interpreter instance
// ---------------------------------------------------------------------------

// VM owns a heap, an operand stack and every table the interpreter uses.
// VMs share nothing, so independent instances may run on separate
// goroutines; a single VM must only be used from one goroutine at a time.
type VM struct {
	heap Heap

	stack        []Value
	sp           int
	frames       []CallFrame
	frameLimit   int
	openUpvalues *ObjUpvalue

	// Global tables
	globals       Table // builtin functions, visible from every module
	modules       Table // resolved path or native module name -> module
	strings       Table // weak intern table
	nativeModules map[string]NativeModuleFunc

	// Per-kind method tables
	stringMethods   Table
	listMethods     Table
	dictMethods     Table
	setMethods      Table
	numberMethods   Table
	boolMethods     Table
	nilMethods      Table
	fileMethods     Table
	resultMethods   Table
	classMethods    Table
	instanceMethods Table

	initString *ObjString

	compilerRoots []*ObjFunction
	pinned        map[Value]int

	compile  CompileFunc
	resolver *manifest.Resolver
	config   manifest.Runtime
	repl     bool
	args     []string

	stdout io.Writer
	stderr io.Writer

	lastErr    error
	pendingErr string
}

// InterpretResult is the outcome of running a piece of source.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "ok"
	case InterpretCompileError:
		return "compile error"
	case InterpretRuntimeError:
		return "runtime error"
	default:
		return fmt.Sprintf("InterpretResult(%d)", int(r))
	}
}

// Option configures a VM at construction.
type Option func(*VM)

// WithREPL enables REPL behaviour: top-level expression statements echo
// their value.
func WithREPL(repl bool) Option {
	return func(vm *VM) { vm.repl = repl }
}

// WithArgs sets the script arguments exposed as System.argv.
func WithArgs(args []string) Option {
	return func(vm *VM) { vm.args = args }
}

// WithConfig applies runtime settings from a manifest.
func WithConfig(r manifest.Runtime) Option {
	return func(vm *VM) { vm.config = r }
}

// WithStdout redirects guest output.
func WithStdout(w io.Writer) Option {
	return func(vm *VM) { vm.stdout = w }
}

// WithStderr redirects error reports.
func WithStderr(w io.Writer) Option {
	return func(vm *VM) { vm.stderr = w }
}

// New creates a VM with its builtins installed. A compiler must be
// attached with UseCompiler before source can be interpreted.
func New(opts ...Option) *VM {
	vm := &VM{
		config:        manifest.DefaultRuntime(),
		stdout:        os.Stdout,
		stderr:        os.Stderr,
		pinned:        make(map[Value]int),
		nativeModules: make(map[string]NativeModuleFunc),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.config = vm.config.WithDefaults()

	vm.stack = make([]Value, vm.config.StackSize)
	vm.frameLimit = vm.config.FrameLimit
	vm.frames = make([]CallFrame, 0, 64)
	vm.heap.init(vm.config.GCGrowFactor, vm.config.GCMinHeap, vm.config.GCStress)
	vm.resolver = manifest.NewResolver(vm.config.ModulePaths)

	vm.initString = vm.CopyString("init")
	vm.defineBuiltins()
	vm.defineStringMethods()
	vm.defineListMethods()
	vm.defineDictMethods()
	vm.defineSetMethods()
	vm.defineScalarMethods()
	vm.defineResultMethods()
	vm.defineFileMethods()
	vm.defineClassMethods()
	vm.defineInstanceMethods()

	return vm
}

// methodTables lists every per-kind table; the collector treats them as
// roots.
func (vm *VM) methodTables() []*Table {
	return []*Table{
		&vm.stringMethods, &vm.listMethods, &vm.dictMethods, &vm.setMethods,
		&vm.numberMethods, &vm.boolMethods, &vm.nilMethods, &vm.fileMethods,
		&vm.resultMethods, &vm.classMethods, &vm.instanceMethods,
	}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// IsREPL reports whether the VM was created in REPL mode.
func (vm *VM) IsREPL() bool { return vm.repl }

// Args returns the script arguments.
func (vm *VM) Args() []string { return vm.args }

// Stdout returns the writer guest output goes to.
func (vm *VM) Stdout() io.Writer { return vm.stdout }

// LastError returns the error from the most recent failed Interpret call.
func (vm *VM) LastError() error { return vm.lastErr }

// GetGlobal looks up a builtin global by name.
func (vm *VM) GetGlobal(name string) (Value, bool) {
	return vm.globals.Get(vm.CopyString(name))
}

// SetGlobal defines or replaces a builtin global visible to every module.
func (vm *VM) SetGlobal(name string, value Value) {
	vm.push(value)
	key := vm.CopyString(name)
	vm.globals.Set(key, value)
	vm.pop()
}

// ModuleTable returns the top-level bindings of a loaded module, looked up
// by the name it was interpreted under, its resolved path, or its native
// module name.
func (vm *VM) ModuleTable(name string) (*Table, bool) {
	val, ok := vm.modules.Get(vm.CopyString(name))
	if !ok {
		return nil, false
	}
	m, ok := As[*ObjModule](vm, val)
	if !ok {
		return nil, false
	}
	return &m.Values, true
}

// ModuleValue fetches a single top-level binding of a loaded module.
func (vm *VM) ModuleValue(module, name string) (Value, bool) {
	t, ok := vm.ModuleTable(module)
	if !ok {
		return Nil, false
	}
	return t.Get(vm.CopyString(name))
}

// ---------------------------------------------------------------------------
// Stack
// ---------------------------------------------------------------------------

type stackOverflow struct{}

func (vm *VM) push(val Value) {
	if vm.sp >= len(vm.stack) {
		panic(stackOverflow{})
	}
	vm.stack[vm.sp] = val
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

// Push roots val on the operand stack. Natives use it to protect values
// they allocate before the next allocation; every Push must be matched by
// a Pop before the native returns.
func (vm *VM) Push(val Value) { vm.push(val) }

// Pop removes the value most recently pushed with Push.
func (vm *VM) Pop() Value { return vm.pop() }

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frames = vm.frames[:0]
	vm.openUpvalues = nil
}

// ---------------------------------------------------------------------------
// Interpret
// ---------------------------------------------------------------------------

// Interpret compiles and runs source as the module named moduleName.
// Interpreting again under the same name reuses the module, so REPL lines
// see the bindings of earlier lines.
func (vm *VM) Interpret(moduleName, source string) InterpretResult {
	return vm.interpretModule(moduleName, "", source)
}

// InterpretFile reads and runs a script. The module is keyed by the
// script's absolute path so that imports of the same file share it.
func (vm *VM) InterpretFile(path string) InterpretResult {
	abs, err := filepath.Abs(path)
	if err != nil {
		vm.lastErr = fmt.Errorf("resolving %s: %w", path, err)
		return InterpretCompileError
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		vm.lastErr = fmt.Errorf("cannot read %s: %w", path, err)
		return InterpretCompileError
	}
	return vm.interpretModule(moduleNameFor(abs), abs, string(data))
}

func moduleNameFor(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (vm *VM) interpretModule(name, path, source string) InterpretResult {
	vm.lastErr = nil
	if vm.compile == nil {
		vm.lastErr = errNoCompiler
		return InterpretCompileError
	}

	module := vm.lookupOrCreateModule(name, path)

	fn, err := vm.compile(vm, module, source)
	if err != nil {
		vm.lastErr = err
		fmt.Fprintln(vm.stderr, err)
		return InterpretCompileError
	}

	vm.push(fn.Value())
	closure := vm.NewClosure(fn)
	vm.pop()
	vm.push(closure.Value())
	if !vm.call(closure, 0) {
		return InterpretRuntimeError
	}
	return vm.run()
}

func (vm *VM) lookupOrCreateModule(name, path string) *ObjModule {
	key := name
	if path != "" {
		key = path
	}
	if val, ok := vm.modules.Get(vm.CopyString(key)); ok {
		if m, ok := As[*ObjModule](vm, val); ok {
			return m
		}
	}

	nameStr := vm.CopyString(name)
	vm.push(nameStr.Value())
	var pathStr *ObjString
	if path != "" {
		pathStr = vm.CopyString(path)
		vm.push(pathStr.Value())
	}
	module := vm.NewModule(nameStr, pathStr)
	if pathStr != nil {
		vm.pop()
	}
	vm.pop()
	return module
}
