package vm

import (
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Truthiness, equality, type names
// ---------------------------------------------------------------------------

// IsFalsey reports whether val counts as false in a condition: nil, false,
// zero, and empty strings, lists, dicts and sets.
func (vm *VM) IsFalsey(val Value) bool {
	if !val.IsObj() {
		return val.isFalseyScalar()
	}
	switch o := vm.object(val).(type) {
	case *ObjString:
		return len(o.Chars) == 0
	case *ObjList:
		return len(o.Values) == 0
	case *ObjDict:
		return o.Items.Len() == 0
	case *ObjSet:
		return o.Items.Len() == 0
	}
	return false
}

// ValuesEqual compares two values. Lists, dicts and sets compare by
// contents; every other object compares by identity. Cyclic containers
// compare equal when their shapes match.
func (vm *VM) ValuesEqual(a, b Value) bool {
	return vm.valuesEqual(a, b, nil)
}

// valuesEqual tracks the container pairs under comparison in seen. A pair
// met again while still being compared is assumed equal.
func (vm *VM) valuesEqual(a, b Value, seen map[[2]Value]struct{}) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.AsNumber() == b.AsNumber()
	}
	if a == b {
		return true
	}
	if !a.IsObj() || !b.IsObj() {
		return false
	}

	switch x := vm.object(a).(type) {
	case *ObjList:
		y, ok := vm.object(b).(*ObjList)
		if !ok || len(x.Values) != len(y.Values) {
			return false
		}
		seen, visited := enterPair(seen, a, b)
		if visited {
			return true
		}
		for i := range x.Values {
			if !vm.valuesEqual(x.Values[i], y.Values[i], seen) {
				return false
			}
		}
		return true
	case *ObjDict:
		y, ok := vm.object(b).(*ObjDict)
		if !ok || x.Items.Len() != y.Items.Len() {
			return false
		}
		seen, visited := enterPair(seen, a, b)
		if visited {
			return true
		}
		equal := true
		x.Items.Each(func(k, v Value) bool {
			other, found := y.Items.Get(k)
			equal = found && vm.valuesEqual(v, other, seen)
			return equal
		})
		return equal
	case *ObjSet:
		y, ok := vm.object(b).(*ObjSet)
		if !ok || x.Items.Len() != y.Items.Len() {
			return false
		}
		equal := true
		x.Items.Each(func(k Value) bool {
			equal = y.Items.Contains(k)
			return equal
		})
		return equal
	}
	return false
}

func enterPair(seen map[[2]Value]struct{}, a, b Value) (map[[2]Value]struct{}, bool) {
	if seen == nil {
		seen = make(map[[2]Value]struct{})
	}
	key := [2]Value{a, b}
	if _, ok := seen[key]; ok {
		return seen, true
	}
	seen[key] = struct{}{}
	return seen, false
}

// isHashable reports whether val may be used as a dict key or set member.
func (vm *VM) isHashable(val Value) bool {
	if !val.IsObj() {
		return val != Empty
	}
	_, ok := vm.object(val).(*ObjString)
	return ok
}

// TypeName returns the name type() reports for val.
func (vm *VM) TypeName(val Value) string {
	switch {
	case val.IsNumber():
		return "number"
	case val.IsBool():
		return "bool"
	case val.IsNil():
		return "nil"
	case !val.IsObj():
		return "empty"
	}
	switch o := vm.object(val).(type) {
	case *ObjInstance:
		return o.Class.Name.Chars
	case *ObjClosure, *ObjFunction:
		return "function"
	case *ObjNative:
		return "builtin"
	case *ObjAbstract:
		return o.Type
	default:
		return o.header().Kind.String()
	}
}

// ---------------------------------------------------------------------------
// String conversion
// ---------------------------------------------------------------------------

// FormatNumber renders a number the way the guest language prints it:
// integers without a fraction, everything else with up to 15 significant
// digits.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	}
	return strconv.FormatFloat(n, 'g', 15, 64)
}

// ValueString renders val for print() and toString().
func (vm *VM) ValueString(val Value) string {
	var sb strings.Builder
	vm.writeValue(&sb, val, false, nil)
	return sb.String()
}

// writeValue appends val to sb. Strings nested in containers are quoted.
// seen guards against cycles through containers.
func (vm *VM) writeValue(sb *strings.Builder, val Value, quote bool, seen map[Value]bool) {
	switch {
	case val.IsNumber():
		sb.WriteString(FormatNumber(val.AsNumber()))
		return
	case val == True:
		sb.WriteString("true")
		return
	case val == False:
		sb.WriteString("false")
		return
	case val == Nil:
		sb.WriteString("nil")
		return
	case !val.IsObj():
		sb.WriteString("<empty>")
		return
	}

	switch o := vm.object(val).(type) {
	case *ObjString:
		if quote {
			sb.WriteString(strconv.Quote(o.Chars))
		} else {
			sb.WriteString(o.Chars)
		}
	case *ObjList, *ObjDict, *ObjSet:
		if seen[val] {
			sb.WriteString("[...]")
			return
		}
		if seen == nil {
			seen = make(map[Value]bool)
		}
		seen[val] = true
		vm.writeContainer(sb, o, seen)
		delete(seen, val)
	case *ObjFunction:
		writeFunction(sb, o)
	case *ObjClosure:
		writeFunction(sb, o.Function)
	case *ObjNative:
		sb.WriteString("<native fn " + o.Name + ">")
	case *ObjBoundMethod:
		sb.WriteString("<bound method ")
		vm.writeValue(sb, o.Method, false, seen)
		sb.WriteString(">")
	case *ObjClass:
		switch o.ClassKind {
		case ClassTrait:
			sb.WriteString("<trait " + o.Name.Chars + ">")
		default:
			sb.WriteString("<Cls " + o.Name.Chars + ">")
		}
	case *ObjInstance:
		sb.WriteString("<" + o.Class.Name.Chars + " instance>")
	case *ObjModule:
		sb.WriteString("<module " + o.Name.Chars + ">")
	case *ObjResult:
		if o.Status == ResultSuccess {
			sb.WriteString("<Result Suc>")
		} else {
			sb.WriteString("<Result Err>")
		}
	case *ObjFile:
		sb.WriteString("<File " + o.Path + ">")
	case *ObjAbstract:
		sb.WriteString("<Abstract " + o.Type + ">")
	case *ObjUpvalue:
		sb.WriteString("upvalue")
	}
}

func writeFunction(sb *strings.Builder, fn *ObjFunction) {
	if fn.Name == nil {
		sb.WriteString("<fn anonymous>")
		return
	}
	sb.WriteString("<fn " + fn.Name.Chars + ">")
}

func (vm *VM) writeContainer(sb *strings.Builder, o Obj, seen map[Value]bool) {
	switch c := o.(type) {
	case *ObjList:
		sb.WriteByte('[')
		for i, v := range c.Values {
			if i > 0 {
				sb.WriteString(", ")
			}
			vm.writeValue(sb, v, true, seen)
		}
		sb.WriteByte(']')
	case *ObjDict:
		sb.WriteByte('{')
		first := true
		c.Items.Each(func(k, v Value) bool {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			vm.writeValue(sb, k, true, seen)
			sb.WriteString(": ")
			vm.writeValue(sb, v, true, seen)
			return true
		})
		sb.WriteByte('}')
	case *ObjSet:
		sb.WriteByte('{')
		first := true
		c.Items.Each(func(k Value) bool {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			vm.writeValue(sb, k, true, seen)
			return true
		})
		sb.WriteByte('}')
	}
}
