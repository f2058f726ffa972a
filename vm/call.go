package vm

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// call pushes a frame for closure. The callee and its argCount arguments
// are already on the stack.
func (vm *VM) call(closure *ObjClosure, argCount int) bool {
	fn := closure.Function
	if argCount < fn.Arity || argCount > fn.Arity+fn.ArityOptional {
		vm.arityError(fn, argCount)
		return false
	}
	if len(vm.frames) >= vm.frameLimit {
		vm.runtimeError("Stack overflow")
		return false
	}
	vm.frames = append(vm.frames, CallFrame{
		closure: closure,
		slot:    vm.sp - argCount - 1,
	})
	return true
}

func (vm *VM) arityError(fn *ObjFunction, argCount int) {
	name := "anonymous"
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	if fn.ArityOptional > 0 {
		vm.runtimeError("Function %s() expected %d to %d arguments but got %d",
			name, fn.Arity, fn.Arity+fn.ArityOptional, argCount)
		return
	}
	vm.runtimeError("Function %s() expected %d arguments but got %d", name, fn.Arity, argCount)
}

// callNative runs a host function. When method is true the slot below the
// arguments holds the receiver and is passed as args[0].
func (vm *VM) callNative(native *ObjNative, argCount int, method bool) bool {
	var args []Value
	if method {
		args = vm.stack[vm.sp-argCount-1 : vm.sp]
	} else {
		args = vm.stack[vm.sp-argCount : vm.sp]
	}
	vm.pendingErr = ""
	result := native.Fn(vm, argCount, args)
	if result == Empty {
		msg := vm.pendingErr
		if msg == "" {
			msg = native.Name + "() failed"
		}
		vm.runtimeError("%s", msg)
		return false
	}
	vm.sp -= argCount + 1
	vm.push(result)
	return true
}

// callValue calls any callable value sitting below argCount arguments.
func (vm *VM) callValue(callee Value, argCount int) bool {
	if callee.IsObj() {
		switch o := vm.object(callee).(type) {
		case *ObjClosure:
			return vm.call(o, argCount)
		case *ObjNative:
			return vm.callNative(o, argCount, false)
		case *ObjBoundMethod:
			vm.stack[vm.sp-argCount-1] = o.Receiver
			return vm.callMethod(o.Method, argCount)
		case *ObjClass:
			return vm.instantiate(o, argCount)
		}
	}
	vm.runtimeError("Can only call functions and classes.")
	return false
}

// callMethod calls a closure or native with the receiver already in the
// callee slot.
func (vm *VM) callMethod(method Value, argCount int) bool {
	if method.IsObj() {
		switch o := vm.object(method).(type) {
		case *ObjClosure:
			return vm.call(o, argCount)
		case *ObjNative:
			return vm.callNative(o, argCount, true)
		}
	}
	return vm.callValue(method, argCount)
}

func (vm *VM) instantiate(class *ObjClass, argCount int) bool {
	switch class.ClassKind {
	case ClassAbstract:
		vm.runtimeError("Cannot instantiate abstract class %s", class.Name.Chars)
		return false
	case ClassTrait:
		vm.runtimeError("Cannot instantiate trait %s", class.Name.Chars)
		return false
	}

	instance := vm.NewInstance(class)
	vm.stack[vm.sp-argCount-1] = instance.Value()
	if init, ok := class.Methods.Get(vm.initString); ok {
		return vm.callMethod(init, argCount)
	}
	if argCount != 0 {
		vm.runtimeError("Expected 0 arguments but got %d.", argCount)
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Method resolution
// ---------------------------------------------------------------------------

// primitiveMethods returns the method table for a value's kind, or nil for
// kinds that resolve elsewhere (instances, classes, modules, abstracts).
func (vm *VM) primitiveMethods(val Value) *Table {
	switch {
	case val.IsNumber():
		return &vm.numberMethods
	case val.IsBool():
		return &vm.boolMethods
	case val.IsNil():
		return &vm.nilMethods
	case !val.IsObj():
		return nil
	}
	switch vm.object(val).(type) {
	case *ObjString:
		return &vm.stringMethods
	case *ObjList:
		return &vm.listMethods
	case *ObjDict:
		return &vm.dictMethods
	case *ObjSet:
		return &vm.setMethods
	case *ObjFile:
		return &vm.fileMethods
	case *ObjResult:
		return &vm.resultMethods
	}
	return nil
}

// invoke performs `receiver.name(args)` without materialising a bound
// method. Resolution order on instances: field, class method (inherited
// methods were copied in at class creation), builtin instance method.
func (vm *VM) invoke(name *ObjString, argCount int) bool {
	receiver := vm.peek(argCount)

	if receiver.IsObj() {
		switch o := vm.object(receiver).(type) {
		case *ObjInstance:
			if val, ok := o.Fields.Get(name); ok {
				vm.stack[vm.sp-argCount-1] = val
				return vm.callValue(val, argCount)
			}
			if method, ok := o.Class.Methods.Get(name); ok {
				return vm.callMethod(method, argCount)
			}
			if method, ok := vm.instanceMethods.Get(name); ok {
				return vm.callMethod(method, argCount)
			}
			vm.runtimeError("%s has no method %s().", o.Class.Name.Chars, name.Chars)
			return false

		case *ObjClass:
			if val, ok := classProperty(o, name); ok {
				if c, isClosure := As[*ObjClosure](vm, val); isClosure && c.Function.Kind == FunctionStatic {
					return vm.call(c, argCount)
				}
				vm.stack[vm.sp-argCount-1] = val
				return vm.callValue(val, argCount)
			}
			if method, ok := vm.classMethods.Get(name); ok {
				return vm.callMethod(method, argCount)
			}
			vm.runtimeError("%s has no method %s().", o.Name.Chars, name.Chars)
			return false

		case *ObjModule:
			if val, ok := o.Values.Get(name); ok {
				vm.stack[vm.sp-argCount-1] = val
				return vm.callValue(val, argCount)
			}
			vm.runtimeError("%s can't be found in module %s", name.Chars, o.Name.Chars)
			return false

		case *ObjAbstract:
			if method, ok := o.Methods.Get(name); ok {
				return vm.callMethod(method, argCount)
			}
			vm.runtimeError("%s has no method %s().", o.Type, name.Chars)
			return false
		}
	}

	if t := vm.primitiveMethods(receiver); t != nil {
		if method, ok := t.Get(name); ok {
			return vm.callMethod(method, argCount)
		}
	}
	vm.runtimeError("%s has no method %s().", vm.TypeName(receiver), name.Chars)
	return false
}

// classProperty finds a static method or class variable, walking the
// superclass chain.
func classProperty(class *ObjClass, name *ObjString) (Value, bool) {
	for c := class; c != nil; c = c.Superclass {
		if val, ok := c.Properties.Get(name); ok {
			return val, true
		}
	}
	return Nil, false
}

// bindMethod replaces the receiver on top of the stack with a bound method.
func (vm *VM) bindMethod(method Value) {
	bound := vm.NewBoundMethod(vm.peek(0), method)
	vm.stack[vm.sp-1] = bound.Value()
}

// getProperty resolves `receiver.name` with the receiver on top of the
// stack, replacing it with the result.
func (vm *VM) getProperty(name *ObjString) bool {
	receiver := vm.peek(0)

	if receiver.IsObj() {
		switch o := vm.object(receiver).(type) {
		case *ObjInstance:
			if val, ok := o.Fields.Get(name); ok {
				vm.stack[vm.sp-1] = val
				return true
			}
			if method, ok := o.Class.Methods.Get(name); ok {
				vm.bindMethod(method)
				return true
			}
			if name.Chars == "_class" {
				vm.stack[vm.sp-1] = o.Class.Value()
				return true
			}
			if method, ok := vm.instanceMethods.Get(name); ok {
				vm.bindMethod(method)
				return true
			}
			vm.runtimeError("Undefined property '%s'.", name.Chars)
			return false

		case *ObjClass:
			if val, ok := classProperty(o, name); ok {
				vm.stack[vm.sp-1] = val
				return true
			}
			if name.Chars == "_name" {
				vm.stack[vm.sp-1] = o.Name.Value()
				return true
			}
			if method, ok := vm.classMethods.Get(name); ok {
				vm.bindMethod(method)
				return true
			}
			vm.runtimeError("Undefined property '%s' on class %s.", name.Chars, o.Name.Chars)
			return false

		case *ObjModule:
			if val, ok := o.Values.Get(name); ok {
				vm.stack[vm.sp-1] = val
				return true
			}
			if name.Chars == "_name" {
				vm.stack[vm.sp-1] = o.Name.Value()
				return true
			}
			vm.runtimeError("%s can't be found in module %s", name.Chars, o.Name.Chars)
			return false

		case *ObjAbstract:
			if method, ok := o.Methods.Get(name); ok {
				vm.bindMethod(method)
				return true
			}
		}
	}

	if t := vm.primitiveMethods(receiver); t != nil {
		if method, ok := t.Get(name); ok {
			vm.bindMethod(method)
			return true
		}
	}
	vm.runtimeError("%s has no property %s.", vm.TypeName(receiver), name.Chars)
	return false
}

// setProperty stores into an instance field or class variable. Stack:
// receiver value -> value.
func (vm *VM) setProperty(name *ObjString) bool {
	receiver := vm.peek(1)
	value := vm.peek(0)

	if receiver.IsObj() {
		switch o := vm.object(receiver).(type) {
		case *ObjInstance:
			o.Fields.Set(name, value)
			vm.grow(o, sizeTableRow)
			vm.pop()
			vm.pop()
			vm.push(value)
			return true
		case *ObjClass:
			o.Properties.Set(name, value)
			vm.pop()
			vm.pop()
			vm.push(value)
			return true
		}
	}
	vm.runtimeError("Can only set properties on instances and classes, not %s.", vm.TypeName(receiver))
	return false
}

// ---------------------------------------------------------------------------
// Upvalues
// ---------------------------------------------------------------------------

// captureUpvalue returns the open upvalue for slot, creating it if no
// closure has captured that slot yet. The open list is sorted by slot,
// highest first.
func (vm *VM) captureUpvalue(slot int) *ObjUpvalue {
	var prev *ObjUpvalue
	up := vm.openUpvalues
	for up != nil && up.slot > slot {
		prev = up
		up = up.next
	}
	if up != nil && up.slot == slot {
		return up
	}

	created := vm.newUpvalue(slot)
	created.next = up
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above slot last, copying
// the stack value into the upvalue.
func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.slot >= last {
		up := vm.openUpvalues
		up.closed = vm.stack[up.slot]
		up.open = false
		vm.openUpvalues = up.next
		up.next = nil
	}
}

func (vm *VM) upvalueGet(up *ObjUpvalue) Value {
	if up.open {
		return vm.stack[up.slot]
	}
	return up.closed
}

func (vm *VM) upvalueSet(up *ObjUpvalue, val Value) {
	if up.open {
		vm.stack[up.slot] = val
		return
	}
	up.closed = val
}
