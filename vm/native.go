package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Native registration
// ---------------------------------------------------------------------------

// NativeModuleFunc builds a native module on first import.
type NativeModuleFunc func(vm *VM) *ObjModule

// DefineNative registers fn under name in table t.
func (vm *VM) DefineNative(t *Table, name string, fn NativeFn) {
	key := vm.CopyString(name)
	vm.push(key.Value())
	native := vm.NewNative(name, fn)
	vm.push(native.Value())
	t.Set(key, native.Value())
	vm.pop()
	vm.pop()
}

// DefineNativeProperty registers a plain value under name in table t.
// value must already be reachable or be a non-object value.
func (vm *VM) DefineNativeProperty(t *Table, name string, value Value) {
	vm.push(value)
	key := vm.CopyString(name)
	t.Set(key, value)
	vm.pop()
}

// RegisterNativeModule makes a native module importable as `import name;`.
// build runs once, on the first import, and its module is cached.
func (vm *VM) RegisterNativeModule(name string, build NativeModuleFunc) {
	vm.nativeModules[name] = build
}

// NativeModules returns the names of the registered native modules.
func (vm *VM) NativeModules() []string {
	names := make([]string, 0, len(vm.nativeModules))
	for name := range vm.nativeModules {
		names = append(names, name)
	}
	return names
}

// NewNativeModule creates (and caches) an empty module for a native
// builder to fill in.
func (vm *VM) NewNativeModule(name string) *ObjModule {
	nameStr := vm.CopyString(name)
	vm.push(nameStr.Value())
	module := vm.NewModule(nameStr, nil)
	vm.pop()
	return module
}

// importNative returns the cached native module name, building it on
// first use.
func (vm *VM) importNative(name *ObjString) (Value, bool) {
	if val, ok := vm.modules.Get(name); ok {
		return val, true
	}
	build, ok := vm.nativeModules[name.Chars]
	if !ok {
		return Nil, false
	}
	vmLog.Debugf("loading native module %s", name.Chars)
	return build(vm).Value(), true
}

// ---------------------------------------------------------------------------
// Argument helpers for natives
// ---------------------------------------------------------------------------

// ArgString returns args[i] as a Go string.
func (vm *VM) ArgString(args []Value, i int) (string, bool) {
	s, ok := As[*ObjString](vm, args[i])
	if !ok {
		return "", false
	}
	return s.Chars, true
}

// ArgNumber returns args[i] as a float64.
func ArgNumber(args []Value, i int) (float64, bool) {
	if !args[i].IsNumber() {
		return 0, false
	}
	return args[i].AsNumber(), true
}

// Success allocates a successful Result. value must be rooted.
func (vm *VM) Success(value Value) Value {
	return vm.NewResult(ResultSuccess, value).Value()
}

// ErrorResult allocates an error Result carrying msg.
func (vm *VM) ErrorResult(format string, args ...any) Value {
	msg := vm.StringValue(fmt.Sprintf(format, args...))
	vm.push(msg)
	r := vm.NewResult(ResultError, msg).Value()
	vm.pop()
	return r
}

// ---------------------------------------------------------------------------
// Builtin globals
// ---------------------------------------------------------------------------

func (vm *VM) defineBuiltins() {
	vm.DefineNative(&vm.globals, "print", builtinPrint)
	vm.DefineNative(&vm.globals, "type", builtinType)
	vm.DefineNative(&vm.globals, "assert", builtinAssert)
	vm.DefineNative(&vm.globals, "Success", builtinSuccess)
	vm.DefineNative(&vm.globals, "Error", builtinError)
	vm.DefineNative(&vm.globals, "set", builtinSet)
	vm.DefineNative(&vm.globals, "isDefined", builtinIsDefined)
}

func builtinPrint(vm *VM, argCount int, args []Value) Value {
	if argCount == 0 {
		fmt.Fprintln(vm.stdout)
		return Nil
	}
	for _, a := range args {
		fmt.Fprintln(vm.stdout, vm.ValueString(a))
	}
	return Nil
}

func builtinType(vm *VM, argCount int, args []Value) Value {
	if argCount != 1 {
		return vm.Fail("type() takes 1 argument (%d given).", argCount)
	}
	return vm.StringValue(vm.TypeName(args[0]))
}

func builtinAssert(vm *VM, argCount int, args []Value) Value {
	if argCount != 1 {
		return vm.Fail("assert() takes 1 argument (%d given).", argCount)
	}
	if vm.IsFalsey(args[0]) {
		return vm.Fail("assert() was false!")
	}
	return Nil
}

func builtinSuccess(vm *VM, argCount int, args []Value) Value {
	if argCount != 1 {
		return vm.Fail("Success() takes 1 argument (%d given).", argCount)
	}
	return vm.Success(args[0])
}

func builtinError(vm *VM, argCount int, args []Value) Value {
	if argCount != 1 {
		return vm.Fail("Error() takes 1 argument (%d given).", argCount)
	}
	if _, ok := As[*ObjString](vm, args[0]); !ok {
		return vm.Fail("Error() argument must be a string.")
	}
	return vm.NewResult(ResultError, args[0]).Value()
}

func builtinSet(vm *VM, argCount int, args []Value) Value {
	set := vm.NewSet()
	for _, a := range args {
		if !vm.isHashable(a) {
			return vm.Fail("Set value must be an immutable type.")
		}
		set.Items.Add(a)
	}
	vm.push(set.Value())
	vm.grow(set, set.Items.Len()*sizeValue)
	vm.pop()
	return set.Value()
}

func builtinIsDefined(vm *VM, argCount int, args []Value) Value {
	if argCount != 1 {
		return vm.Fail("isDefined() takes 1 argument (%d given).", argCount)
	}
	name, ok := vm.ArgString(args, 0)
	if !ok {
		return vm.Fail("isDefined() argument must be a string.")
	}
	key := vm.CopyString(name)
	if len(vm.frames) > 0 {
		module := vm.frames[len(vm.frames)-1].closure.Function.Module
		if module != nil && module.Values.Contains(key) {
			return True
		}
	}
	return BoolValue(vm.globals.Contains(key))
}

// expectArgs is the shared arity check for native methods.
func (vm *VM) expectArgs(name string, want, got int) bool {
	if want == got {
		return true
	}
	plural := "s"
	if want == 1 {
		plural = ""
	}
	vm.pendingErr = fmt.Sprintf("%s() takes %d argument%s (%d given).", name, want, plural, got)
	return false
}

// typeError formats the standard "wrong argument type" message.
func typeError(method string, position int, want string) string {
	ordinal := []string{"First", "Second", "Third", "Fourth"}
	label := "An"
	if position < len(ordinal) {
		label = ordinal[position]
	}
	return fmt.Sprintf("%s argument passed to %s() must be a %s.", label, method, strings.ToLower(want))
}
