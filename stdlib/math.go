package stdlib

import (
	"math"

	"github.com/chazu/dictu/vm"
)

// ---------------------------------------------------------------------------
// Math
// ---------------------------------------------------------------------------

func buildMath(v *vm.VM) *vm.ObjModule {
	m := newModule(v, "Math",
		function{"floor", unary("floor", math.Floor)},
		function{"ceil", unary("ceil", math.Ceil)},
		function{"round", unary("round", math.Round)},
		function{"abs", unary("abs", math.Abs)},
		function{"sqrt", unary("sqrt", math.Sqrt)},
		function{"pow", mathPow},
		function{"min", fold("min", math.Min)},
		function{"max", fold("max", math.Max)},
		function{"sum", fold("sum", func(a, b float64) float64 { return a + b })},
	)
	v.DefineNativeProperty(&m.Values, "pi", vm.NumberValue(math.Pi))
	v.DefineNativeProperty(&m.Values, "e", vm.NumberValue(math.E))
	return m
}

func unary(name string, f func(float64) float64) vm.NativeFn {
	return func(v *vm.VM, argCount int, args []vm.Value) vm.Value {
		if argCount != 1 {
			return v.Fail("%s() takes 1 argument (%d given).", name, argCount)
		}
		n, ok := vm.ArgNumber(args, 0)
		if !ok {
			return v.Fail("A non-number value passed to %s()", name)
		}
		return vm.NumberValue(f(n))
	}
}

func mathPow(v *vm.VM, argCount int, args []vm.Value) vm.Value {
	if argCount != 2 {
		return v.Fail("pow() takes 2 arguments (%d given).", argCount)
	}
	base, ok1 := vm.ArgNumber(args, 0)
	exp, ok2 := vm.ArgNumber(args, 1)
	if !ok1 || !ok2 {
		return v.Fail("pow() arguments must be numbers.")
	}
	return vm.NumberValue(math.Pow(base, exp))
}

// fold reduces its arguments, or the elements of a single list argument,
// with f.
func fold(name string, f func(a, b float64) float64) vm.NativeFn {
	return func(v *vm.VM, argCount int, args []vm.Value) vm.Value {
		values := args[:argCount]
		if argCount == 1 {
			if list, ok := vm.As[*vm.ObjList](v, args[0]); ok {
				values = list.Values
			}
		}
		if len(values) == 0 {
			if name == "sum" {
				return vm.NumberValue(0)
			}
			return v.Fail("%s() requires at least one number.", name)
		}

		var acc float64
		for i, val := range values {
			if !val.IsNumber() {
				return v.Fail("A non-number value passed to %s()", name)
			}
			if i == 0 {
				acc = val.AsNumber()
				continue
			}
			acc = f(acc, val.AsNumber())
		}
		return vm.NumberValue(acc)
	}
}
