package vm

import (
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// List methods
// ---------------------------------------------------------------------------

func (vm *VM) defineListMethods() {
	t := &vm.listMethods
	vm.DefineNative(t, "len", listLen)
	vm.DefineNative(t, "push", listPush)
	vm.DefineNative(t, "pop", listPop)
	vm.DefineNative(t, "insert", listInsert)
	vm.DefineNative(t, "remove", listRemove)
	vm.DefineNative(t, "contains", listContains)
	vm.DefineNative(t, "indexOf", listIndexOf)
	vm.DefineNative(t, "join", listJoin)
	vm.DefineNative(t, "extend", listExtend)
	vm.DefineNative(t, "reverse", listReverse)
	vm.DefineNative(t, "sort", listSort)
	vm.DefineNative(t, "copy", listCopy)
	vm.DefineNative(t, "deepCopy", listDeepCopy)
	vm.DefineNative(t, "toString", containerToString)
	vm.DefineNative(t, "toBool", containerToBool)
}

func (vm *VM) receiverList(args []Value) *ObjList {
	return vm.object(args[0]).(*ObjList)
}

func listLen(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("len", 0, argCount) {
		return Empty
	}
	return NumberValue(float64(len(vm.receiverList(args).Values)))
}

func listPush(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("push", 1, argCount) {
		return Empty
	}
	list := vm.receiverList(args)
	list.Values = append(list.Values, args[1])
	vm.grow(list, sizeValue)
	return Nil
}

// pop([index]) removes and returns the last element, or the element at
// index.
func listPop(vm *VM, argCount int, args []Value) Value {
	if argCount > 1 {
		return vm.Fail("pop() takes either 0 or 1 arguments (%d given).", argCount)
	}
	list := vm.receiverList(args)
	if len(list.Values) == 0 {
		return vm.Fail("pop() called on an empty list")
	}
	idx := len(list.Values) - 1
	if argCount == 1 {
		if !args[1].IsNumber() {
			return vm.Fail("%s", typeError("pop", 0, "number"))
		}
		var ok bool
		if idx, ok = toIndex(args[1], len(list.Values)); !ok {
			return vm.Fail("Index passed to pop() is out of bounds for the list given")
		}
	}
	val := list.Values[idx]
	list.Values = append(list.Values[:idx], list.Values[idx+1:]...)
	list.size -= sizeValue
	vm.heap.bytesAllocated -= sizeValue
	return val
}

func listInsert(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("insert", 2, argCount) {
		return Empty
	}
	list := vm.receiverList(args)
	idx, ok := vm.intArg("insert", args, 2)
	if !ok {
		return Empty
	}
	if idx < 0 {
		idx += len(list.Values) + 1
	}
	if idx < 0 || idx > len(list.Values) {
		return vm.Fail("Index passed to insert() is out of bounds for the list given")
	}
	list.Values = append(list.Values, Nil)
	copy(list.Values[idx+1:], list.Values[idx:])
	list.Values[idx] = args[1]
	vm.grow(list, sizeValue)
	return Nil
}

// remove(value) deletes the first element equal to value.
func listRemove(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("remove", 1, argCount) {
		return Empty
	}
	list := vm.receiverList(args)
	for i, v := range list.Values {
		if vm.ValuesEqual(v, args[1]) {
			list.Values = append(list.Values[:i], list.Values[i+1:]...)
			list.size -= sizeValue
			vm.heap.bytesAllocated -= sizeValue
			return Nil
		}
	}
	return vm.Fail("Value passed to remove() does not exist within the list")
}

func listContains(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("contains", 1, argCount) {
		return Empty
	}
	for _, v := range vm.receiverList(args).Values {
		if vm.ValuesEqual(v, args[1]) {
			return True
		}
	}
	return False
}

func listIndexOf(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("indexOf", 1, argCount) {
		return Empty
	}
	for i, v := range vm.receiverList(args).Values {
		if vm.ValuesEqual(v, args[1]) {
			return NumberValue(float64(i))
		}
	}
	return NumberValue(-1)
}

// join([separator]) concatenates the string forms of the elements.
func listJoin(vm *VM, argCount int, args []Value) Value {
	if argCount > 1 {
		return vm.Fail("join() takes 1 optional argument (%d given).", argCount)
	}
	sep := ", "
	if argCount == 1 {
		var ok bool
		if sep, ok = vm.stringArg("join", args, 1); !ok {
			return Empty
		}
	}
	list := vm.receiverList(args)
	parts := make([]string, len(list.Values))
	for i, v := range list.Values {
		parts[i] = vm.ValueString(v)
	}
	return vm.StringValue(strings.Join(parts, sep))
}

func listExtend(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("extend", 1, argCount) {
		return Empty
	}
	other, ok := As[*ObjList](vm, args[1])
	if !ok {
		return vm.Fail("%s", typeError("extend", 0, "list"))
	}
	list := vm.receiverList(args)
	list.Values = append(list.Values, other.Values...)
	vm.grow(list, len(other.Values)*sizeValue)
	return Nil
}

func listReverse(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("reverse", 0, argCount) {
		return Empty
	}
	v := vm.receiverList(args).Values
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
	return Nil
}

// sort orders a list of numbers or a list of strings in place.
func listSort(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("sort", 0, argCount) {
		return Empty
	}
	v := vm.receiverList(args).Values
	if len(v) == 0 {
		return Nil
	}
	allNumbers, allStrings := true, true
	for _, x := range v {
		if !x.IsNumber() {
			allNumbers = false
		}
		if _, ok := As[*ObjString](vm, x); !ok {
			allStrings = false
		}
	}
	switch {
	case allNumbers:
		sort.SliceStable(v, func(i, j int) bool { return v[i].AsNumber() < v[j].AsNumber() })
	case allStrings:
		sort.SliceStable(v, func(i, j int) bool {
			return vm.object(v[i]).(*ObjString).Chars < vm.object(v[j]).(*ObjString).Chars
		})
	default:
		return vm.Fail("sort() takes lists with numbers or strings only")
	}
	return Nil
}

func listCopy(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("copy", 0, argCount) {
		return Empty
	}
	src := vm.receiverList(args).Values
	values := make([]Value, len(src))
	copy(values, src)
	return vm.NewList(values).Value()
}

func listDeepCopy(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("deepCopy", 0, argCount) {
		return Empty
	}
	return vm.deepCopy(args[0])
}

// containerToString is toString for lists, dicts and sets.
func containerToString(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("toString", 0, argCount) {
		return Empty
	}
	return vm.StringValue(vm.ValueString(args[0]))
}

func containerToBool(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("toBool", 0, argCount) {
		return Empty
	}
	return BoolValue(!vm.IsFalsey(args[0]))
}

// ---------------------------------------------------------------------------
// Deep copy
// ---------------------------------------------------------------------------

// deepCopy recursively copies lists, dicts and instances. Every other
// value is shared. A container reached twice is copied once, so shared
// and cyclic structure survives the copy. Each partial copy stays on the
// stack while its children are copied.
func (vm *VM) deepCopy(val Value) Value {
	return vm.deepCopyInto(val, make(map[Value]Value))
}

func (vm *VM) deepCopyInto(val Value, copies map[Value]Value) Value {
	if !val.IsObj() {
		return val
	}
	if c, ok := copies[val]; ok {
		return c
	}
	switch o := vm.object(val).(type) {
	case *ObjList:
		list := vm.NewList(make([]Value, 0, len(o.Values)))
		vm.push(list.Value())
		copies[val] = list.Value()
		for _, v := range o.Values {
			c := vm.deepCopyInto(v, copies)
			list.Values = append(list.Values, c)
		}
		vm.grow(list, len(list.Values)*sizeValue)
		return vm.pop()
	case *ObjDict:
		dict := vm.NewDict()
		vm.push(dict.Value())
		copies[val] = dict.Value()
		o.Items.Each(func(k, v Value) bool {
			dict.Items.Set(k, vm.deepCopyInto(v, copies))
			return true
		})
		vm.grow(dict, dict.Items.Len()*sizeTableRow)
		return vm.pop()
	case *ObjInstance:
		inst := vm.NewInstance(o.Class)
		vm.push(inst.Value())
		copies[val] = inst.Value()
		o.Fields.Each(func(k *ObjString, v Value) bool {
			inst.Fields.Set(k, vm.deepCopyInto(v, copies))
			return true
		})
		vm.grow(inst, inst.Fields.Len()*sizeTableRow)
		return vm.pop()
	}
	return val
}
