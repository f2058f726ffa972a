package stdlib

import (
	"os"
	"runtime"
	"time"

	"github.com/chazu/dictu/vm"
)

// ---------------------------------------------------------------------------
// System
// ---------------------------------------------------------------------------

func buildSystem(v *vm.VM) *vm.ObjModule {
	start := time.Now()

	m := newModule(v, "System",
		function{"time", systemTime},
		function{"clock", func(v *vm.VM, argCount int, args []vm.Value) vm.Value {
			if argCount != 0 {
				return v.Fail("clock() takes no arguments (%d given).", argCount)
			}
			return vm.NumberValue(time.Since(start).Seconds())
		}},
		function{"getenv", systemGetenv},
	)

	argv := make([]any, len(v.Args()))
	for i, a := range v.Args() {
		argv[i] = a
	}
	list, err := v.FromGo(argv)
	if err != nil {
		log.Errorf("building System.argv: %s", err)
		list = vm.Nil
	}
	v.DefineNativeProperty(&m.Values, "argv", list)
	v.DefineNativeProperty(&m.Values, "platform", v.StringValue(runtime.GOOS))
	return m
}

func systemTime(v *vm.VM, argCount int, args []vm.Value) vm.Value {
	if argCount != 0 {
		return v.Fail("time() takes no arguments (%d given).", argCount)
	}
	return vm.NumberValue(float64(time.Now().UnixNano()) / float64(time.Second))
}

func systemGetenv(v *vm.VM, argCount int, args []vm.Value) vm.Value {
	if argCount != 1 {
		return v.Fail("getenv() takes 1 argument (%d given).", argCount)
	}
	name, ok := v.ArgString(args, 0)
	if !ok {
		return v.Fail("getenv() argument must be a string.")
	}
	value, set := os.LookupEnv(name)
	if !set {
		return v.ErrorResult("Environment variable '%s' is not set.", name)
	}
	return success(v, v.StringValue(value))
}
