package vm

import (
	"strconv"
	"strings"

	"fortio.org/safecast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ---------------------------------------------------------------------------
// String methods
// ---------------------------------------------------------------------------

func (vm *VM) defineStringMethods() {
	t := &vm.stringMethods
	vm.DefineNative(t, "len", stringLen)
	vm.DefineNative(t, "upper", stringUpper)
	vm.DefineNative(t, "lower", stringLower)
	vm.DefineNative(t, "title", stringTitle)
	vm.DefineNative(t, "split", stringSplit)
	vm.DefineNative(t, "contains", stringContains)
	vm.DefineNative(t, "startsWith", stringStartsWith)
	vm.DefineNative(t, "endsWith", stringEndsWith)
	vm.DefineNative(t, "replace", stringReplace)
	vm.DefineNative(t, "strip", stringStrip)
	vm.DefineNative(t, "leftStrip", stringLeftStrip)
	vm.DefineNative(t, "rightStrip", stringRightStrip)
	vm.DefineNative(t, "find", stringFind)
	vm.DefineNative(t, "count", stringCount)
	vm.DefineNative(t, "format", stringFormat)
	vm.DefineNative(t, "toNumber", stringToNumber)
	vm.DefineNative(t, "toBool", stringToBool)
	vm.DefineNative(t, "toString", stringToString)
}

// receiverString returns the string a method was invoked on.
func (vm *VM) receiverString(args []Value) string {
	return vm.object(args[0]).(*ObjString).Chars
}

// stringArg fetches args[i] as a string, recording a type error otherwise.
func (vm *VM) stringArg(method string, args []Value, i int) (string, bool) {
	s, ok := vm.ArgString(args, i)
	if !ok {
		vm.pendingErr = typeError(method, i-1, "string")
	}
	return s, ok
}

// intArg fetches args[i] as an integral number.
func (vm *VM) intArg(method string, args []Value, i int) (int, bool) {
	n, ok := ArgNumber(args, i)
	if ok {
		if v, err := safecast.Convert[int](n); err == nil {
			return v, true
		}
	}
	vm.pendingErr = typeError(method, i-1, "integer")
	return 0, false
}

func stringLen(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("len", 0, argCount) {
		return Empty
	}
	return NumberValue(float64(len(vm.receiverString(args))))
}

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
	titleCaser = cases.Title(language.Und)
)

func stringUpper(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("upper", 0, argCount) {
		return Empty
	}
	return vm.StringValue(upperCaser.String(vm.receiverString(args)))
}

func stringLower(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("lower", 0, argCount) {
		return Empty
	}
	return vm.StringValue(lowerCaser.String(vm.receiverString(args)))
}

func stringTitle(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("title", 0, argCount) {
		return Empty
	}
	return vm.StringValue(titleCaser.String(vm.receiverString(args)))
}

// split(delimiter[, maxSplit]) returns a list of substrings. An empty
// delimiter splits into single bytes.
func stringSplit(vm *VM, argCount int, args []Value) Value {
	if argCount != 1 && argCount != 2 {
		return vm.Fail("split() takes 1 or 2 arguments (%d given).", argCount)
	}
	delim, ok := vm.stringArg("split", args, 1)
	if !ok {
		return Empty
	}
	limit := -1
	if argCount == 2 {
		n, ok := vm.intArg("split", args, 2)
		if !ok {
			return Empty
		}
		if n >= 0 {
			limit = n + 1
		}
	}

	s := vm.receiverString(args)
	var parts []string
	if delim == "" {
		parts = make([]string, len(s))
		for i := range s {
			parts[i] = s[i : i+1]
		}
	} else {
		parts = strings.SplitN(s, delim, limit)
	}

	list := vm.NewList(make([]Value, 0, len(parts)))
	vm.push(list.Value())
	for _, p := range parts {
		list.Values = append(list.Values, vm.StringValue(p))
	}
	vm.grow(list, len(parts)*sizeValue)
	vm.pop()
	return list.Value()
}

func stringContains(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("contains", 1, argCount) {
		return Empty
	}
	sub, ok := vm.stringArg("contains", args, 1)
	if !ok {
		return Empty
	}
	return BoolValue(strings.Contains(vm.receiverString(args), sub))
}

func stringStartsWith(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("startsWith", 1, argCount) {
		return Empty
	}
	prefix, ok := vm.stringArg("startsWith", args, 1)
	if !ok {
		return Empty
	}
	return BoolValue(strings.HasPrefix(vm.receiverString(args), prefix))
}

func stringEndsWith(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("endsWith", 1, argCount) {
		return Empty
	}
	suffix, ok := vm.stringArg("endsWith", args, 1)
	if !ok {
		return Empty
	}
	return BoolValue(strings.HasSuffix(vm.receiverString(args), suffix))
}

func stringReplace(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("replace", 2, argCount) {
		return Empty
	}
	old, ok := vm.stringArg("replace", args, 1)
	if !ok {
		return Empty
	}
	repl, ok := vm.stringArg("replace", args, 2)
	if !ok {
		return Empty
	}
	return vm.StringValue(strings.ReplaceAll(vm.receiverString(args), old, repl))
}

func stringStrip(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("strip", 0, argCount) {
		return Empty
	}
	return vm.StringValue(strings.TrimSpace(vm.receiverString(args)))
}

func stringLeftStrip(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("leftStrip", 0, argCount) {
		return Empty
	}
	return vm.StringValue(strings.TrimLeft(vm.receiverString(args), " \t\r\n\v\f"))
}

func stringRightStrip(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("rightStrip", 0, argCount) {
		return Empty
	}
	return vm.StringValue(strings.TrimRight(vm.receiverString(args), " \t\r\n\v\f"))
}

// find(substr[, skip]) returns the index of the skip'th occurrence
// (1-based), or -1.
func stringFind(vm *VM, argCount int, args []Value) Value {
	if argCount != 1 && argCount != 2 {
		return vm.Fail("find() takes 1 or 2 arguments (%d given).", argCount)
	}
	sub, ok := vm.stringArg("find", args, 1)
	if !ok {
		return Empty
	}
	skip := 1
	if argCount == 2 {
		if skip, ok = vm.intArg("find", args, 2); !ok {
			return Empty
		}
	}

	s := vm.receiverString(args)
	offset := 0
	for ; skip > 0; skip-- {
		idx := strings.Index(s[offset:], sub)
		if idx < 0 {
			return NumberValue(-1)
		}
		offset += idx
		if skip > 1 {
			offset += max(len(sub), 1)
			if offset > len(s) {
				return NumberValue(-1)
			}
		}
	}
	return NumberValue(float64(offset))
}

func stringCount(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("count", 1, argCount) {
		return Empty
	}
	sub, ok := vm.stringArg("count", args, 1)
	if !ok {
		return Empty
	}
	return NumberValue(float64(strings.Count(vm.receiverString(args), sub)))
}

// format replaces each "{}" placeholder in turn with the string form of
// the corresponding argument.
func stringFormat(vm *VM, argCount int, args []Value) Value {
	s := vm.receiverString(args)
	if strings.Count(s, "{}") != argCount {
		return vm.Fail("format() placeholders do not match arguments")
	}
	var sb strings.Builder
	rest := s
	for i := 1; i <= argCount; i++ {
		idx := strings.Index(rest, "{}")
		sb.WriteString(rest[:idx])
		sb.WriteString(vm.ValueString(args[i]))
		rest = rest[idx+2:]
	}
	sb.WriteString(rest)
	return vm.StringValue(sb.String())
}

// toNumber returns a Result so callers can handle unparsable input.
func stringToNumber(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("toNumber", 0, argCount) {
		return Empty
	}
	s := vm.receiverString(args)
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return vm.ErrorResult("Can not convert '%s' to number", s)
	}
	return vm.Success(NumberValue(n))
}

func stringToBool(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("toBool", 0, argCount) {
		return Empty
	}
	return BoolValue(!vm.IsFalsey(args[0]))
}

func stringToString(vm *VM, argCount int, args []Value) Value {
	if !vm.expectArgs("toString", 0, argCount) {
		return Empty
	}
	return args[0]
}
