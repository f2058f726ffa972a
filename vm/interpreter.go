package vm

import (
	"math"
	"os"
	"path/filepath"

	"fortio.org/safecast"
)

// ---------------------------------------------------------------------------
// CallFrame: execution state for one invocation
// ---------------------------------------------------------------------------

// CallFrame is one active function invocation. slot is the stack index of
// the frame's slot zero (the callee or receiver).
type CallFrame struct {
	closure *ObjClosure
	ip      int
	slot    int
}

func (f *CallFrame) readByte() byte {
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (f *CallFrame) readShort() uint16 {
	v := f.closure.Function.Chunk.ReadUint16(f.ip)
	f.ip += 2
	return v
}

func (f *CallFrame) readConstant() Value {
	return f.closure.Function.Chunk.Constants[f.readShort()]
}

func (vm *VM) readString(f *CallFrame) *ObjString {
	return vm.object(f.readConstant()).(*ObjString)
}

// ---------------------------------------------------------------------------
// Interpreter loop
// ---------------------------------------------------------------------------

// run executes frames until the frame that was on top when it started
// returns, or a runtime error unwinds the VM.
func (vm *VM) run() (result InterpretResult) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(stackOverflow); ok {
				vm.runtimeError("Stack overflow")
				result = InterpretRuntimeError
				return
			}
			panic(r)
		}
	}()

	frame := &vm.frames[len(vm.frames)-1]

	for {
		op := Opcode(frame.readByte())

		switch op {

		// --- Constants and stack ---

		case OpConstant:
			vm.push(frame.readConstant())
		case OpNil:
			vm.push(Nil)
		case OpTrue:
			vm.push(True)
		case OpFalse:
			vm.push(False)
		case OpPop:
			vm.pop()
		case OpPopRepl:
			val := vm.peek(0)
			if !val.IsNil() {
				vm.writeLine(vm.ValueString(val))
			}
			vm.pop()

		// --- Variables ---

		case OpGetLocal:
			slot := int(frame.readByte())
			vm.push(vm.stack[frame.slot+slot])
		case OpSetLocal:
			slot := int(frame.readByte())
			vm.stack[frame.slot+slot] = vm.peek(0)

		case OpDefineModule:
			name := vm.readString(frame)
			frame.closure.Function.Module.Values.Set(name, vm.peek(0))
			vm.pop()
		case OpGetModule:
			name := vm.readString(frame)
			val, ok := frame.closure.Function.Module.Values.Get(name)
			if !ok {
				if val, ok = vm.globals.Get(name); !ok {
					vm.runtimeError("Undefined variable '%s'.", name.Chars)
					return InterpretRuntimeError
				}
			}
			vm.push(val)
		case OpSetModule:
			name := vm.readString(frame)
			values := &frame.closure.Function.Module.Values
			if !values.Contains(name) {
				vm.runtimeError("Undefined variable '%s'.", name.Chars)
				return InterpretRuntimeError
			}
			values.Set(name, vm.peek(0))

		case OpGetUpvalue:
			slot := frame.readByte()
			vm.push(vm.upvalueGet(frame.closure.Upvalues[slot]))
		case OpSetUpvalue:
			slot := frame.readByte()
			vm.upvalueSet(frame.closure.Upvalues[slot], vm.peek(0))
		case OpCloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		// --- Properties ---

		case OpGetProperty:
			if !vm.getProperty(vm.readString(frame)) {
				return InterpretRuntimeError
			}
		case OpGetPropertyNoPop:
			vm.push(vm.peek(0))
			if !vm.getProperty(vm.readString(frame)) {
				return InterpretRuntimeError
			}
		case OpSetProperty:
			if !vm.setProperty(vm.readString(frame)) {
				return InterpretRuntimeError
			}
		case OpGetSuper:
			name := vm.readString(frame)
			super := vm.object(vm.pop()).(*ObjClass)
			method, ok := super.Methods.Get(name)
			if !ok {
				vm.runtimeError("Undefined superclass method '%s'.", name.Chars)
				return InterpretRuntimeError
			}
			vm.bindMethod(method)
		case OpSetInitProperties:
			fn := frame.closure.Function
			inst := vm.object(vm.stack[frame.slot]).(*ObjInstance)
			for _, f := range fn.InitFields {
				inst.Fields.Set(f.Name, vm.stack[frame.slot+f.Slot])
			}
			vm.grow(inst, len(fn.InitFields)*sizeTableRow)

		// --- Operators ---

		case OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolValue(vm.ValuesEqual(a, b)))
		case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
			if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
				vm.runtimeError("Operands must be numbers.")
				return InterpretRuntimeError
			}
			b := vm.pop().AsNumber()
			a := vm.pop().AsNumber()
			vm.push(BoolValue(compareNumbers(op, a, b)))
		case OpAdd:
			if !vm.add() {
				return InterpretRuntimeError
			}
		case OpSubtract, OpMultiply, OpDivide, OpMod, OpPow:
			if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
				vm.runtimeError("Unsupported operand types for %s: %s and %s",
					operatorSymbol(op), vm.TypeName(vm.peek(1)), vm.TypeName(vm.peek(0)))
				return InterpretRuntimeError
			}
			b := vm.pop().AsNumber()
			a := vm.pop().AsNumber()
			vm.push(NumberValue(Arithmetic(op, a, b)))
		case OpBitAnd, OpBitOr, OpBitXor:
			b, okB := toInteger(vm.peek(0))
			a, okA := toInteger(vm.peek(1))
			if !okA || !okB {
				vm.runtimeError("Operands of %s must be integers.", operatorSymbol(op))
				return InterpretRuntimeError
			}
			vm.sp -= 2
			vm.push(NumberValue(float64(bitwise(op, a, b))))
		case OpBitNot:
			a, ok := toInteger(vm.peek(0))
			if !ok {
				vm.runtimeError("Operand of ~ must be an integer.")
				return InterpretRuntimeError
			}
			vm.pop()
			vm.push(NumberValue(float64(^a)))
		case OpNot:
			vm.push(BoolValue(vm.IsFalsey(vm.pop())))
		case OpNegate:
			if !vm.peek(0).IsNumber() {
				vm.runtimeError("Operand must be a number.")
				return InterpretRuntimeError
			}
			vm.push(NumberValue(-vm.pop().AsNumber()))

		// --- Control flow ---

		case OpJump:
			offset := int(frame.readShort())
			frame.ip += offset
		case OpJumpIfFalse:
			offset := int(frame.readShort())
			if vm.IsFalsey(vm.peek(0)) {
				frame.ip += offset
			}
		case OpLoop:
			offset := int(frame.readShort())
			frame.ip -= offset
		case OpBreak:
			// Every break is rewritten when its loop closes; reaching one
			// means the compiler left it unpatched.
			vm.runtimeError("Unpatched break instruction.")
			return InterpretRuntimeError

		// --- Calls ---

		case OpCall:
			argCount := int(frame.readByte())
			if !vm.callValue(vm.peek(argCount), argCount) {
				return InterpretRuntimeError
			}
			frame = &vm.frames[len(vm.frames)-1]
		case OpInvoke:
			name := vm.readString(frame)
			argCount := int(frame.readByte())
			if !vm.invoke(name, argCount) {
				return InterpretRuntimeError
			}
			frame = &vm.frames[len(vm.frames)-1]
		case OpSuperInvoke:
			name := vm.readString(frame)
			argCount := int(frame.readByte())
			super := vm.object(vm.pop()).(*ObjClass)
			method, ok := super.Methods.Get(name)
			if !ok {
				vm.runtimeError("Undefined superclass method '%s'.", name.Chars)
				return InterpretRuntimeError
			}
			if !vm.callMethod(method, argCount) {
				return InterpretRuntimeError
			}
			frame = &vm.frames[len(vm.frames)-1]
		case OpClosure:
			fn := vm.object(frame.readConstant()).(*ObjFunction)
			count := int(frame.readByte())
			closure := vm.NewClosure(fn)
			vm.push(closure.Value())
			for i := 0; i < count; i++ {
				isLocal := frame.readByte()
				index := int(frame.readByte())
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slot + index)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
		case OpReturn:
			result := vm.pop()
			fn := frame.closure.Function
			if fn.Kind == FunctionTopLevel && fn.Module != nil {
				result = fn.Module.Value()
			}
			vm.closeUpvalues(frame.slot)
			vm.sp = frame.slot
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				return InterpretOK
			}
			vm.push(result)
			frame = &vm.frames[len(vm.frames)-1]
		case OpDefineOptional:
			arity := int(frame.readByte())
			optional := int(frame.readByte())
			vm.defineOptional(frame, arity, optional)

		// --- Classes ---

		case OpClass:
			name := vm.readString(frame)
			kind := ClassKind(frame.readByte())
			vm.push(vm.NewClass(name, kind).Value())
		case OpInherit:
			super, ok := As[*ObjClass](vm, vm.peek(1))
			if !ok || super.ClassKind == ClassTrait {
				vm.runtimeError("Superclass must be a class.")
				return InterpretRuntimeError
			}
			sub := vm.object(vm.peek(0)).(*ObjClass)
			sub.Superclass = super
			sub.Methods.AddAll(&super.Methods)
			sub.AbstractMethods.AddAll(&super.AbstractMethods)
			vm.pop()
		case OpMethod:
			name := vm.readString(frame)
			method := vm.peek(0)
			class := vm.object(vm.peek(1)).(*ObjClass)
			switch vm.object(method).(*ObjClosure).Function.Kind {
			case FunctionStatic:
				class.Properties.Set(name, method)
			case FunctionAbstract:
				class.AbstractMethods.Set(name, method)
			default:
				class.Methods.Set(name, method)
			}
			vm.pop()
		case OpClassVar:
			name := vm.readString(frame)
			class := vm.object(vm.peek(1)).(*ObjClass)
			class.Properties.Set(name, vm.peek(0))
			vm.pop()
		case OpUse:
			trait, ok := As[*ObjClass](vm, vm.peek(0))
			if !ok || trait.ClassKind != ClassTrait {
				vm.runtimeError("Can only 'use' with a trait.")
				return InterpretRuntimeError
			}
			class := vm.object(vm.peek(1)).(*ObjClass)
			class.Methods.AddAll(&trait.Methods)
			vm.pop()
		case OpEndClass:
			class := vm.object(vm.peek(0)).(*ObjClass)
			if class.ClassKind == ClassDefault {
				if missing := missingAbstract(class); missing != nil {
					vm.runtimeError("Class %s must implement abstract method %s", class.Name.Chars, missing.Chars)
					return InterpretRuntimeError
				}
			}
			vm.pop()

		// --- Modules ---

		case OpImport:
			path := vm.readString(frame)
			if !vm.importFile(frame, path) {
				return InterpretRuntimeError
			}
			frame = &vm.frames[len(vm.frames)-1]
		case OpImportBuiltin:
			name := vm.readString(frame)
			module, ok := vm.importNative(name)
			if !ok {
				vm.runtimeError("Unknown module '%s'.", name.Chars)
				return InterpretRuntimeError
			}
			vm.push(module)
		case OpImportFrom:
			name := vm.readString(frame)
			module := vm.object(vm.peek(0)).(*ObjModule)
			val, ok := module.Values.Get(name)
			if !ok {
				vm.runtimeError("%s can't be found in module %s", name.Chars, module.Name.Chars)
				return InterpretRuntimeError
			}
			vm.push(val)

		// --- Collections ---

		case OpNewList:
			count := int(frame.readShort())
			values := make([]Value, count)
			copy(values, vm.stack[vm.sp-count:vm.sp])
			list := vm.NewList(values)
			vm.sp -= count
			vm.push(list.Value())
		case OpNewDict:
			count := int(frame.readShort())
			dict := vm.NewDict()
			base := vm.sp - 2*count
			for i := 0; i < count; i++ {
				key := vm.stack[base+2*i]
				if !vm.isHashable(key) {
					vm.runtimeError("Dictionary key must be an immutable type.")
					return InterpretRuntimeError
				}
				dict.Items.Set(key, vm.stack[base+2*i+1])
			}
			vm.sp = base
			vm.push(dict.Value())
			vm.grow(dict, dict.Items.Len()*sizeTableRow)
		case OpSubscript:
			if !vm.subscript() {
				return InterpretRuntimeError
			}
		case OpSubscriptAssign:
			if !vm.subscriptAssign() {
				return InterpretRuntimeError
			}
		case OpSubscriptPush:
			// Keep container and index for the assignment that follows.
			vm.push(vm.peek(1))
			vm.push(vm.peek(1))
			if !vm.subscript() {
				return InterpretRuntimeError
			}
		case OpSlice:
			if !vm.slice() {
				return InterpretRuntimeError
			}

		// --- Files ---

		case OpOpenFile:
			if !vm.openFile() {
				return InterpretRuntimeError
			}
		case OpCloseFile:
			slot := int(frame.readByte())
			if f, ok := As[*ObjFile](vm, vm.stack[frame.slot+slot]); ok && f.File != nil {
				f.File.Close()
				f.File = nil
			}

		default:
			vm.runtimeError("Unknown opcode %s.", op)
			return InterpretRuntimeError
		}
	}
}

func (vm *VM) writeLine(s string) {
	vm.stdout.Write([]byte(s + "\n"))
}

// missingAbstract returns the first abstract method class does not
// implement, or nil.
func missingAbstract(class *ObjClass) *ObjString {
	var missing *ObjString
	class.AbstractMethods.Each(func(name *ObjString, _ Value) bool {
		if !class.Methods.Contains(name) {
			missing = name
			return false
		}
		return true
	})
	return missing
}

// defineOptional rearranges a call's arguments once the callee prologue
// has pushed every default value. On entry the frame holds argCount
// supplied arguments followed by one default per optional parameter; on
// exit parameter i holds the supplied argument if there was one and its
// default otherwise.
func (vm *VM) defineOptional(frame *CallFrame, arity, optional int) {
	base := frame.slot + 1
	total := arity + optional
	argCount := vm.sp - base - optional

	defaults := make([]Value, optional)
	copy(defaults, vm.stack[vm.sp-optional:vm.sp])

	for i := argCount; i < total; i++ {
		vm.stack[base+i] = defaults[i-arity]
	}
	vm.sp = base + total
}

// ---------------------------------------------------------------------------
// Arithmetic helpers
// ---------------------------------------------------------------------------

func compareNumbers(op Opcode, a, b float64) bool {
	switch op {
	case OpGreater:
		return a > b
	case OpGreaterEqual:
		return a >= b
	case OpLess:
		return a < b
	default:
		return a <= b
	}
}

// Arithmetic applies a numeric binary opcode. The compiler uses it for
// constant folding so folded and runtime results agree.
func Arithmetic(op Opcode, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSubtract:
		return a - b
	case OpMultiply:
		return a * b
	case OpDivide:
		return a / b
	case OpMod:
		return math.Mod(a, b)
	case OpPow:
		return math.Pow(a, b)
	}
	return math.NaN()
}

func bitwise(op Opcode, a, b int64) int64 {
	switch op {
	case OpBitAnd:
		return a & b
	case OpBitOr:
		return a | b
	default:
		return a ^ b
	}
}

func operatorSymbol(op Opcode) string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpMod:
		return "%"
	case OpPow:
		return "**"
	case OpBitAnd:
		return "&"
	case OpBitOr:
		return "|"
	case OpBitXor:
		return "^"
	}
	return op.String()
}

// add implements `+` for numbers, strings and lists.
func (vm *VM) add() bool {
	b, a := vm.peek(0), vm.peek(1)
	if a.IsNumber() && b.IsNumber() {
		vm.pop()
		vm.pop()
		vm.push(NumberValue(a.AsNumber() + b.AsNumber()))
		return true
	}

	if as, ok := As[*ObjString](vm, a); ok {
		if bs, ok := As[*ObjString](vm, b); ok {
			result := vm.CopyString(as.Chars + bs.Chars)
			vm.pop()
			vm.pop()
			vm.push(result.Value())
			return true
		}
	}

	if al, ok := As[*ObjList](vm, a); ok {
		if bl, ok := As[*ObjList](vm, b); ok {
			values := make([]Value, 0, len(al.Values)+len(bl.Values))
			values = append(values, al.Values...)
			values = append(values, bl.Values...)
			result := vm.NewList(values)
			vm.pop()
			vm.pop()
			vm.push(result.Value())
			return true
		}
	}

	vm.runtimeError("Unsupported operand types for +: %s and %s", vm.TypeName(a), vm.TypeName(b))
	return false
}

// ---------------------------------------------------------------------------
// Indexing
// ---------------------------------------------------------------------------

// toIndex converts a numeric index for a sequence of length n, allowing
// negative indices from the end.
func toIndex(val Value, n int) (int, bool) {
	if !val.IsNumber() {
		return 0, false
	}
	i, err := safecast.Convert[int](val.AsNumber())
	if err != nil {
		return 0, false
	}
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// toInteger converts an integral number that fits in an int64.
func toInteger(val Value) (int64, bool) {
	if !val.IsNumber() {
		return 0, false
	}
	i, err := safecast.Convert[int64](val.AsNumber())
	return i, err == nil
}

// subscript implements container[index]. Stack: container index -> value.
func (vm *VM) subscript() bool {
	index := vm.peek(0)
	container := vm.peek(1)

	if container.IsObj() {
		switch c := vm.object(container).(type) {
		case *ObjList:
			if !index.IsNumber() {
				vm.runtimeError("List index must be a number.")
				return false
			}
			i, ok := toIndex(index, len(c.Values))
			if !ok {
				vm.runtimeError("List index out of bounds.")
				return false
			}
			vm.sp -= 2
			vm.push(c.Values[i])
			return true
		case *ObjString:
			if !index.IsNumber() {
				vm.runtimeError("String index must be a number.")
				return false
			}
			i, ok := toIndex(index, len(c.Chars))
			if !ok {
				vm.runtimeError("String index out of bounds.")
				return false
			}
			result := vm.CopyString(c.Chars[i : i+1])
			vm.sp -= 2
			vm.push(result.Value())
			return true
		case *ObjDict:
			if !vm.isHashable(index) {
				vm.runtimeError("Dictionary key must be an immutable type.")
				return false
			}
			val, ok := c.Items.Get(index)
			if !ok {
				vm.runtimeError("Key %s does not exist within dictionary.", vm.ValueString(index))
				return false
			}
			vm.sp -= 2
			vm.push(val)
			return true
		}
	}
	vm.runtimeError("Can only subscript on lists, strings or dictionaries, not %s.", vm.TypeName(container))
	return false
}

// subscriptAssign implements container[index] = value.
// Stack: container index value -> value.
func (vm *VM) subscriptAssign() bool {
	value := vm.peek(0)
	index := vm.peek(1)
	container := vm.peek(2)

	if container.IsObj() {
		switch c := vm.object(container).(type) {
		case *ObjList:
			if !index.IsNumber() {
				vm.runtimeError("List index must be a number.")
				return false
			}
			i, ok := toIndex(index, len(c.Values))
			if !ok {
				vm.runtimeError("List index out of bounds.")
				return false
			}
			c.Values[i] = value
			vm.sp -= 3
			vm.push(value)
			return true
		case *ObjDict:
			if !vm.isHashable(index) {
				vm.runtimeError("Dictionary key must be an immutable type.")
				return false
			}
			if c.Items.Set(index, value) {
				vm.grow(c, sizeTableRow)
			}
			vm.sp -= 3
			vm.push(value)
			return true
		}
	}
	vm.runtimeError("Only lists and dictionaries support subscript assignment, not %s.", vm.TypeName(container))
	return false
}

// sliceBounds clamps optional slice bounds to [0, n].
func sliceBounds(start, end Value, n int) (int, int, bool) {
	bound := func(v Value, def int) (int, bool) {
		if v.IsNil() {
			return def, true
		}
		if !v.IsNumber() {
			return 0, false
		}
		f := v.AsNumber()
		if math.IsNaN(f) {
			return 0, false
		}
		i, err := safecast.Truncate[int](f)
		if err != nil {
			// Out of int range: clamp to the matching end.
			if f > 0 {
				return n, true
			}
			return 0, true
		}
		if i < 0 {
			i += n
		}
		return max(0, min(i, n)), true
	}
	s, ok := bound(start, 0)
	if !ok {
		return 0, 0, false
	}
	e, ok := bound(end, n)
	if !ok {
		return 0, 0, false
	}
	if s > e {
		s = e
	}
	return s, e, true
}

// slice implements container[start:end]. Stack: container start end -> slice.
func (vm *VM) slice() bool {
	end := vm.peek(0)
	start := vm.peek(1)
	container := vm.peek(2)

	if container.IsObj() {
		switch c := vm.object(container).(type) {
		case *ObjList:
			s, e, ok := sliceBounds(start, end, len(c.Values))
			if !ok {
				vm.runtimeError("List slice bounds must be numbers.")
				return false
			}
			values := make([]Value, e-s)
			copy(values, c.Values[s:e])
			result := vm.NewList(values)
			vm.sp -= 3
			vm.push(result.Value())
			return true
		case *ObjString:
			s, e, ok := sliceBounds(start, end, len(c.Chars))
			if !ok {
				vm.runtimeError("String slice bounds must be numbers.")
				return false
			}
			result := vm.CopyString(c.Chars[s:e])
			vm.sp -= 3
			vm.push(result.Value())
			return true
		}
	}
	vm.runtimeError("Can only slice on lists and strings, not %s.", vm.TypeName(container))
	return false
}

// ---------------------------------------------------------------------------
// Imports
// ---------------------------------------------------------------------------

// importFile pushes the module for path, compiling and running it on the
// first import. A fresh module runs in a new frame whose return value is
// the module itself.
func (vm *VM) importFile(frame *CallFrame, path *ObjString) bool {
	fromDir := ""
	if m := frame.closure.Function.Module; m != nil && m.Path != nil {
		fromDir = filepath.Dir(m.Path.Chars)
	}
	resolved, err := vm.resolver.Resolve(fromDir, path.Chars)
	if err != nil {
		vm.runtimeError("Could not open file \"%s\".", path.Chars)
		return false
	}

	key := vm.CopyString(resolved)
	if cached, ok := vm.modules.Get(key); ok {
		vm.push(cached)
		return true
	}

	source, err := os.ReadFile(resolved)
	if err != nil {
		vm.runtimeError("Could not read file \"%s\".", path.Chars)
		return false
	}
	vmLog.Debugf("importing %s", resolved)

	vm.push(key.Value())
	name := vm.CopyString(moduleNameFor(resolved))
	vm.push(name.Value())
	module := vm.NewModule(name, key)
	vm.pop()
	vm.pop()

	fn, err := vm.compile(vm, module, string(source))
	if err != nil {
		vm.modules.Delete(key)
		vm.runtimeError("Failed to compile module %s:\n%s", path.Chars, err)
		return false
	}
	vm.push(fn.Value())
	closure := vm.NewClosure(fn)
	vm.pop()
	vm.push(closure.Value())
	return vm.call(closure, 0)
}
