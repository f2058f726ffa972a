package vm

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Host value conversion
// ---------------------------------------------------------------------------

// ToGo converts a guest value into plain Go data: float64, bool, nil,
// string, []any and map[string]any. Sets become slices. Dict keys that are
// not strings are rendered with their string form. Values with no plain
// data form (functions, classes, instances) are rejected.
func (vm *VM) ToGo(val Value) (any, error) {
	return vm.toGo(val, 0)
}

const maxHostDepth = 256

func (vm *VM) toGo(val Value, depth int) (any, error) {
	if depth > maxHostDepth {
		return nil, fmt.Errorf("value nested too deeply")
	}
	switch {
	case val.IsNumber():
		return val.AsNumber(), nil
	case val.IsBool():
		return val == True, nil
	case val.IsNil():
		return nil, nil
	case !val.IsObj():
		return nil, fmt.Errorf("cannot convert %s", vm.TypeName(val))
	}

	switch o := vm.object(val).(type) {
	case *ObjString:
		return o.Chars, nil
	case *ObjList:
		out := make([]any, len(o.Values))
		for i, v := range o.Values {
			g, err := vm.toGo(v, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case *ObjSet:
		out := make([]any, 0, o.Items.Len())
		var err error
		o.Items.Each(func(k Value) bool {
			var g any
			g, err = vm.toGo(k, depth+1)
			out = append(out, g)
			return err == nil
		})
		return out, err
	case *ObjDict:
		out := make(map[string]any, o.Items.Len())
		var err error
		o.Items.Each(func(k, v Value) bool {
			var g any
			if g, err = vm.toGo(v, depth+1); err != nil {
				return false
			}
			key := vm.ValueString(k)
			out[key] = g
			return true
		})
		return out, err
	}
	return nil, fmt.Errorf("cannot convert %s", vm.TypeName(val))
}

// FromGo converts plain Go data into a guest value. Maps become dicts and
// slices become lists. The result is not rooted; callers push it before
// allocating again.
func (vm *VM) FromGo(x any) (Value, error) {
	return vm.fromGo(x, 0)
}

func (vm *VM) fromGo(x any, depth int) (Value, error) {
	if depth > maxHostDepth {
		return Nil, fmt.Errorf("value nested too deeply")
	}
	switch v := x.(type) {
	case nil:
		return Nil, nil
	case bool:
		return BoolValue(v), nil
	case float64:
		return NumberValue(v), nil
	case float32:
		return NumberValue(float64(v)), nil
	case int:
		return NumberValue(float64(v)), nil
	case int8:
		return NumberValue(float64(v)), nil
	case int16:
		return NumberValue(float64(v)), nil
	case int32:
		return NumberValue(float64(v)), nil
	case int64:
		return NumberValue(float64(v)), nil
	case uint:
		return NumberValue(float64(v)), nil
	case uint8:
		return NumberValue(float64(v)), nil
	case uint16:
		return NumberValue(float64(v)), nil
	case uint32:
		return NumberValue(float64(v)), nil
	case uint64:
		return NumberValue(float64(v)), nil
	case string:
		return vm.StringValue(v), nil
	case []byte:
		return vm.StringValue(string(v)), nil
	case []any:
		list := vm.NewList(make([]Value, 0, len(v)))
		vm.push(list.Value())
		for _, e := range v {
			ev, err := vm.fromGo(e, depth+1)
			if err != nil {
				vm.pop()
				return Nil, err
			}
			list.Values = append(list.Values, ev)
		}
		vm.grow(list, len(v)*sizeValue)
		return vm.pop(), nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		dict := vm.NewDict()
		vm.push(dict.Value())
		for _, k := range keys {
			if err := vm.dictInsert(dict, vm.StringValue(k), v[k], depth); err != nil {
				vm.pop()
				return Nil, err
			}
		}
		vm.grow(dict, dict.Items.Len()*sizeTableRow)
		return vm.pop(), nil
	case map[any]any:
		dict := vm.NewDict()
		vm.push(dict.Value())
		for k, e := range v {
			kv, err := vm.fromGo(k, depth+1)
			if err != nil {
				vm.pop()
				return Nil, err
			}
			if !vm.isHashable(kv) {
				vm.pop()
				return Nil, fmt.Errorf("unsupported map key %v", k)
			}
			if err := vm.dictInsert(dict, kv, e, depth); err != nil {
				vm.pop()
				return Nil, err
			}
		}
		vm.grow(dict, dict.Items.Len()*sizeTableRow)
		return vm.pop(), nil
	}
	return Nil, fmt.Errorf("unsupported host type %T", x)
}

// dictInsert converts e and stores it under key. key is kept on the stack
// while e is converted.
func (vm *VM) dictInsert(dict *ObjDict, key Value, e any, depth int) error {
	vm.push(key)
	ev, err := vm.fromGo(e, depth+1)
	vm.pop()
	if err != nil {
		return err
	}
	dict.Items.Set(key, ev)
	return nil
}
