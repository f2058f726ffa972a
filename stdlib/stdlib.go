// Package stdlib provides the native modules a script can load with
// `import Name;`. Each module is built lazily on its first import.
package stdlib

import (
	"github.com/chazu/dictu/internal/logging"
	"github.com/chazu/dictu/vm"
)

var log = logging.Get("stdlib")

// Register makes every native module importable from v.
func Register(v *vm.VM) {
	v.RegisterNativeModule("Math", buildMath)
	v.RegisterNativeModule("System", buildSystem)
	v.RegisterNativeModule("UUID", buildUUID)
	v.RegisterNativeModule("JSON", buildJSON)
	v.RegisterNativeModule("YAML", buildYAML)
	v.RegisterNativeModule("CBOR", buildCBOR)
	v.RegisterNativeModule("MsgPack", buildMsgPack)
	v.RegisterNativeModule("Sqlite", buildSqlite)
}

// function is one entry of a native module.
type function struct {
	name string
	fn   vm.NativeFn
}

// newModule creates the module name and defines fns in it.
func newModule(v *vm.VM, name string, fns ...function) *vm.ObjModule {
	m := v.NewNativeModule(name)
	for _, f := range fns {
		v.DefineNative(&m.Values, f.name, f.fn)
	}
	return m
}

// success wraps val, which need not be rooted, in a successful Result.
func success(v *vm.VM, val vm.Value) vm.Value {
	v.Push(val)
	r := v.Success(val)
	v.Pop()
	return r
}

// fromGo converts decoded host data to a successful Result, or an error
// Result when the data has no guest form.
func fromGo(v *vm.VM, what string, data any) vm.Value {
	val, err := v.FromGo(data)
	if err != nil {
		return v.ErrorResult("%s: %s", what, err)
	}
	return success(v, val)
}
