package vm

import (
	"math"
)

// ---------------------------------------------------------------------------
// Number, bool and nil methods
// ---------------------------------------------------------------------------

func (vm *VM) defineScalarMethods() {
	vm.DefineNative(&vm.numberMethods, "toString", scalarToString)
	vm.DefineNative(&vm.numberMethods, "toBool", scalarToBool)
	vm.DefineNative(&vm.numberMethods, "isInteger", numberIsInteger)
	vm.DefineNative(&vm.numberMethods, "floor", numberFloor)
	vm.DefineNative(&vm.numberMethods, "abs", numberAbs)

	vm.DefineNative(&vm.boolMethods, "toString", scalarToString)
	vm.DefineNative(&vm.boolMethods, "toBool", scalarToBool)

	vm.DefineNative(&vm.nilMethods, "toString", scalarToString)
	vm.DefineNative(&vm.nilMethods, "toBool", scalarToBool)
}

func scalarToString(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("toString", 0, argCount) {
		return Empty
	}
	return vm.StringValue(vm.ValueString(args[0]))
}

func scalarToBool(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("toBool", 0, argCount) {
		return Empty
	}
	return BoolValue(!vm.IsFalsey(args[0]))
}

func numberIsInteger(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("isInteger", 0, argCount) {
		return Empty
	}
	n := args[0].AsNumber()
	return BoolValue(!math.IsInf(n, 0) && n == math.Trunc(n))
}

func numberFloor(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("floor", 0, argCount) {
		return Empty
	}
	return NumberValue(math.Floor(args[0].AsNumber()))
}

func numberAbs(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("abs", 0, argCount) {
		return Empty
	}
	return NumberValue(math.Abs(args[0].AsNumber()))
}

// ---------------------------------------------------------------------------
// Result methods
// ---------------------------------------------------------------------------

func (vm *VM) defineResultMethods() {
	t := &vm.resultMethods
	vm.DefineNative(t, "success", resultSuccess)
	vm.DefineNative(t, "unwrap", resultUnwrap)
	vm.DefineNative(t, "unwrapError", resultUnwrapError)
	vm.DefineNative(t, "toString", scalarToString)
}

func resultSuccess(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("success", 0, argCount) {
		return Empty
	}
	return BoolValue(vm.object(args[0]).(*ObjResult).Status == ResultSuccess)
}

// unwrap returns the payload of a successful Result and is a runtime
// error on an error Result.
func resultUnwrap(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("unwrap", 0, argCount) {
		return Empty
	}
	r := vm.object(args[0]).(*ObjResult)
	if r.Status != ResultSuccess {
		return vm.Fail("Attempted unwrap() on an error Result value '%s'", vm.ValueString(r.Payload))
	}
	return r.Payload
}

func resultUnwrapError(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("unwrapError", 0, argCount) {
		return Empty
	}
	r := vm.object(args[0]).(*ObjResult)
	if r.Status != ResultError {
		return vm.Fail("Attempted unwrapError() on a success Result value")
	}
	return r.Payload
}

// ---------------------------------------------------------------------------
// Class methods
// ---------------------------------------------------------------------------

func (vm *VM) defineClassMethods() {
	t := &vm.classMethods
	vm.DefineNative(t, "toString", scalarToString)
	vm.DefineNative(t, "methods", classMethodNames)
}

// methods returns the names of every method the class responds to.
func classMethodNames(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("methods", 0, argCount) {
		return Empty
	}
	class := vm.object(args[0]).(*ObjClass)
	keys := class.Methods.Keys()
	values := make([]Value, len(keys))
	for i, k := range keys {
		values[i] = k.Value()
	}
	return vm.NewList(values).Value()
}

// ---------------------------------------------------------------------------
// Instance methods
// ---------------------------------------------------------------------------

func (vm *VM) defineInstanceMethods() {
	t := &vm.instanceMethods
	vm.DefineNative(t, "toString", scalarToString)
	vm.DefineNative(t, "getAttribute", instanceGetAttribute)
	vm.DefineNative(t, "setAttribute", instanceSetAttribute)
	vm.DefineNative(t, "hasAttribute", instanceHasAttribute)
	vm.DefineNative(t, "getAttributes", instanceGetAttributes)
	vm.DefineNative(t, "isInstance", instanceIsInstance)
	vm.DefineNative(t, "copy", instanceCopy)
	vm.DefineNative(t, "deepCopy", listDeepCopy)
}

func (vm *VM) receiverInstance(args []Value) *ObjInstance {
	return vm.object(args[0]).(*ObjInstance)
}

// getAttribute(name[, default]) reads a field, then a method, then
// default.
func instanceGetAttribute(vm *VM, argCount int, args []Value) Value {
	if argCount != 1 && argCount != 2 {
		return vm.Fail("getAttribute() takes 1 or 2 arguments (%d given).", argCount)
	}
	name, ok := As[*ObjString](vm, args[1])
	if !ok {
		return vm.Fail("%s", typeError("getAttribute", 0, "string"))
	}
	inst := vm.receiverInstance(args)
	if val, ok := inst.Fields.Get(name); ok {
		return val
	}
	if method, ok := inst.Class.Methods.Get(name); ok {
		return vm.NewBoundMethod(args[0], method).Value()
	}
	if argCount == 2 {
		return args[2]
	}
	return Nil
}

func instanceSetAttribute(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("setAttribute", 2, argCount) {
		return Empty
	}
	name, ok := As[*ObjString](vm, args[1])
	if !ok {
		return vm.Fail("%s", typeError("setAttribute", 0, "string"))
	}
	inst := vm.receiverInstance(args)
	if inst.Fields.Set(name, args[2]) {
		vm.grow(inst, sizeTableRow)
	}
	return Nil
}

func instanceHasAttribute(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("hasAttribute", 1, argCount) {
		return Empty
	}
	name, ok := As[*ObjString](vm, args[1])
	if !ok {
		return False
	}
	inst := vm.receiverInstance(args)
	return BoolValue(inst.Fields.Contains(name) || inst.Class.Methods.Contains(name))
}

// getAttributes returns a dict with the field names and method names of
// the instance.
func instanceGetAttributes(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("getAttributes", 0, argCount) {
		return Empty
	}
	inst := vm.receiverInstance(args)

	fieldNames := inst.Fields.Keys()
	fields := make([]Value, len(fieldNames))
	for i, k := range fieldNames {
		fields[i] = k.Value()
	}
	fieldList := vm.NewList(fields)
	vm.push(fieldList.Value())

	methodNames := inst.Class.Methods.Keys()
	methods := make([]Value, len(methodNames))
	for i, k := range methodNames {
		methods[i] = k.Value()
	}
	methodList := vm.NewList(methods)
	vm.push(methodList.Value())

	dict := vm.NewDict()
	vm.push(dict.Value())
	dict.Items.Set(vm.StringValue("properties"), fieldList.Value())
	dict.Items.Set(vm.StringValue("methods"), methodList.Value())
	vm.grow(dict, 2*sizeTableRow)
	result := vm.pop()
	vm.pop()
	vm.pop()
	return result
}

// isInstance(class) reports whether the receiver's class is class or
// inherits from it.
func instanceIsInstance(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("isInstance", 1, argCount) {
		return Empty
	}
	target, ok := As[*ObjClass](vm, args[1])
	if !ok {
		return vm.Fail("%s", typeError("isInstance", 0, "class"))
	}
	for c := vm.receiverInstance(args).Class; c != nil; c = c.Superclass {
		if c == target {
			return True
		}
	}
	return False
}

func instanceCopy(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("copy", 0, argCount) {
		return Empty
	}
	src := vm.receiverInstance(args)
	inst := vm.NewInstance(src.Class)
	inst.Fields.AddAll(&src.Fields)
	vm.push(inst.Value())
	vm.grow(inst, inst.Fields.Len()*sizeTableRow)
	return vm.pop()
}
