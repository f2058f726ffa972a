package vm

// ---------------------------------------------------------------------------
// Dict methods
// ---------------------------------------------------------------------------

func (vm *VM) defineDictMethods() {
	t := &vm.dictMethods
	vm.DefineNative(t, "len", dictLen)
	vm.DefineNative(t, "keys", dictKeys)
	vm.DefineNative(t, "values", dictValues)
	vm.DefineNative(t, "get", dictGet)
	vm.DefineNative(t, "exists", dictExists)
	vm.DefineNative(t, "remove", dictRemove)
	vm.DefineNative(t, "copy", dictCopy)
	vm.DefineNative(t, "deepCopy", listDeepCopy)
	vm.DefineNative(t, "toString", containerToString)
	vm.DefineNative(t, "toBool", containerToBool)
}

func (vm *VM) receiverDict(args []Value) *ObjDict {
	return vm.object(args[0]).(*ObjDict)
}

func dictLen(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("len", 0, argCount) {
		return Empty
	}
	return NumberValue(float64(vm.receiverDict(args).Items.Len()))
}

func dictKeys(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("keys", 0, argCount) {
		return Empty
	}
	dict := vm.receiverDict(args)
	values := make([]Value, 0, dict.Items.Len())
	dict.Items.Each(func(k, _ Value) bool {
		values = append(values, k)
		return true
	})
	return vm.NewList(values).Value()
}

func dictValues(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("values", 0, argCount) {
		return Empty
	}
	dict := vm.receiverDict(args)
	values := make([]Value, 0, dict.Items.Len())
	dict.Items.Each(func(_, v Value) bool {
		values = append(values, v)
		return true
	})
	return vm.NewList(values).Value()
}

// get(key[, default]) returns the value for key, or default (nil when
// omitted) if the key is absent.
func dictGet(vm *VM, argCount int, args []Value) Value {
	if argCount != 1 && argCount != 2 {
		return vm.Fail("get() takes 1 or 2 arguments (%d given).", argCount)
	}
	if !vm.isHashable(args[1]) {
		return vm.Fail("Dictionary key passed to get() must be an immutable type.")
	}
	if val, ok := vm.receiverDict(args).Items.Get(args[1]); ok {
		return val
	}
	if argCount == 2 {
		return args[2]
	}
	return Nil
}

func dictExists(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("exists", 1, argCount) {
		return Empty
	}
	if !vm.isHashable(args[1]) {
		return False
	}
	return BoolValue(vm.receiverDict(args).Items.Contains(args[1]))
}

func dictRemove(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("remove", 1, argCount) {
		return Empty
	}
	if !vm.isHashable(args[1]) {
		return vm.Fail("Dictionary key passed to remove() must be an immutable type.")
	}
	dict := vm.receiverDict(args)
	if !dict.Items.Delete(args[1]) {
		return vm.Fail("Key %s passed to remove() does not exist within the dictionary.", vm.ValueString(args[1]))
	}
	dict.size -= sizeTableRow
	vm.heap.bytesAllocated -= sizeTableRow
	return Nil
}

func dictCopy(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("copy", 0, argCount) {
		return Empty
	}
	src := vm.receiverDict(args)
	dict := vm.NewDict()
	src.Items.Each(func(k, v Value) bool {
		dict.Items.Set(k, v)
		return true
	})
	vm.push(dict.Value())
	vm.grow(dict, dict.Items.Len()*sizeTableRow)
	return vm.pop()
}

// ---------------------------------------------------------------------------
// Set methods
// ---------------------------------------------------------------------------

func (vm *VM) defineSetMethods() {
	t := &vm.setMethods
	vm.DefineNative(t, "len", setLen)
	vm.DefineNative(t, "add", setAdd)
	vm.DefineNative(t, "remove", setRemove)
	vm.DefineNative(t, "contains", setContains)
	vm.DefineNative(t, "toString", containerToString)
	vm.DefineNative(t, "toBool", containerToBool)
}

func (vm *VM) receiverSet(args []Value) *ObjSet {
	return vm.object(args[0]).(*ObjSet)
}

func setLen(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("len", 0, argCount) {
		return Empty
	}
	return NumberValue(float64(vm.receiverSet(args).Items.Len()))
}

func setAdd(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("add", 1, argCount) {
		return Empty
	}
	if !vm.isHashable(args[1]) {
		return vm.Fail("Set value must be an immutable type.")
	}
	set := vm.receiverSet(args)
	if set.Items.Add(args[1]) {
		vm.grow(set, sizeValue)
	}
	return Nil
}

func setRemove(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("remove", 1, argCount) {
		return Empty
	}
	if !vm.isHashable(args[1]) {
		return vm.Fail("Set value must be an immutable type.")
	}
	set := vm.receiverSet(args)
	if !set.Items.Delete(args[1]) {
		return vm.Fail("Value %s passed to remove() does not exist within the set.", vm.ValueString(args[1]))
	}
	set.size -= sizeValue
	vm.heap.bytesAllocated -= sizeValue
	return Nil
}

func setContains(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("contains", 1, argCount) {
		return Empty
	}
	if !vm.isHashable(args[1]) {
		return False
	}
	return BoolValue(vm.receiverSet(args).Items.Contains(args[1]))
}
