package stdlib

import (
	"github.com/google/uuid"

	"github.com/chazu/dictu/vm"
)

// ---------------------------------------------------------------------------
// UUID
// ---------------------------------------------------------------------------

func buildUUID(v *vm.VM) *vm.ObjModule {
	return newModule(v, "UUID",
		function{"generate", generator("generate", uuid.NewRandom)},
		function{"generateRandom", generator("generateRandom", uuid.NewRandom)},
		function{"generateTime", generator("generateTime", uuid.NewV7)},
		function{"isValid", uuidIsValid},
	)
}

// generator wraps a uuid constructor; entropy failures become an error
// Result.
func generator(name string, gen func() (uuid.UUID, error)) vm.NativeFn {
	return func(v *vm.VM, argCount int, args []vm.Value) vm.Value {
		if argCount != 0 {
			return v.Fail("%s() takes no arguments (%d given).", name, argCount)
		}
		id, err := gen()
		if err != nil {
			return v.ErrorResult("Error generating UUID: %s", err)
		}
		return success(v, v.StringValue(id.String()))
	}
}

func uuidIsValid(v *vm.VM, argCount int, args []vm.Value) vm.Value {
	if argCount != 1 {
		return v.Fail("isValid() takes 1 argument (%d given).", argCount)
	}
	s, ok := v.ArgString(args, 0)
	if !ok {
		return vm.False
	}
	_, err := uuid.Parse(s)
	return vm.BoolValue(err == nil)
}
