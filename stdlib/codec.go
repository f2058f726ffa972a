package stdlib

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/chazu/dictu/vm"
)

// ---------------------------------------------------------------------------
// Serialization modules
// ---------------------------------------------------------------------------

// codec is one serialization format. Text formats exchange guest strings
// directly; binary formats travel as hex strings.
type codec struct {
	name      string
	binary    bool
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte) (any, error)
}

// cborEncMode uses canonical options for deterministic encoding.
var cborEncMode = mustCBOREncMode()

func mustCBOREncMode() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("stdlib: failed to create CBOR enc mode: %v", err))
	}
	return em
}

var (
	jsonCodec = codec{
		name:    "JSON",
		marshal: json.Marshal,
		unmarshal: func(b []byte) (any, error) {
			var out any
			err := json.Unmarshal(b, &out)
			return out, err
		},
	}
	yamlCodec = codec{
		name:    "YAML",
		marshal: yaml.Marshal,
		unmarshal: func(b []byte) (any, error) {
			var out any
			err := yaml.Unmarshal(b, &out)
			return out, err
		},
	}
	cborCodec = codec{
		name:    "CBOR",
		binary:  true,
		marshal: func(x any) ([]byte, error) { return cborEncMode.Marshal(x) },
		unmarshal: func(b []byte) (any, error) {
			var out any
			err := cbor.Unmarshal(b, &out)
			return out, err
		},
	}
	msgpackCodec = codec{
		name:    "MsgPack",
		binary:  true,
		marshal: msgpack.Marshal,
		unmarshal: func(b []byte) (any, error) {
			var out any
			err := msgpack.Unmarshal(b, &out)
			return out, err
		},
	}
)

func buildJSON(v *vm.VM) *vm.ObjModule {
	return newModule(v, "JSON",
		function{"parse", jsonCodec.decode("parse")},
		function{"stringify", jsonStringify},
	)
}

func buildYAML(v *vm.VM) *vm.ObjModule {
	return newModule(v, "YAML",
		function{"parse", yamlCodec.decode("parse")},
		function{"stringify", yamlCodec.encode("stringify")},
	)
}

func buildCBOR(v *vm.VM) *vm.ObjModule {
	return newModule(v, "CBOR",
		function{"encode", cborCodec.encode("encode")},
		function{"decode", cborCodec.decode("decode")},
	)
}

func buildMsgPack(v *vm.VM) *vm.ObjModule {
	return newModule(v, "MsgPack",
		function{"encode", msgpackCodec.encode("encode")},
		function{"decode", msgpackCodec.decode("decode")},
	)
}

// encode returns a native that serializes its argument into a Result
// string.
func (c codec) encode(name string) vm.NativeFn {
	return func(v *vm.VM, argCount int, args []vm.Value) vm.Value {
		if argCount != 1 {
			return v.Fail("%s() takes 1 argument (%d given).", name, argCount)
		}
		data, err := v.ToGo(args[0])
		if err != nil {
			return v.ErrorResult("%s.%s(): %s", c.name, name, err)
		}
		out, err := c.marshal(data)
		if err != nil {
			return v.ErrorResult("%s.%s(): %s", c.name, name, err)
		}
		if c.binary {
			return success(v, v.StringValue(hex.EncodeToString(out)))
		}
		return success(v, v.StringValue(string(out)))
	}
}

// decode returns a native that parses a string argument into a Result
// value.
func (c codec) decode(name string) vm.NativeFn {
	return func(v *vm.VM, argCount int, args []vm.Value) vm.Value {
		if argCount != 1 {
			return v.Fail("%s() takes 1 argument (%d given).", name, argCount)
		}
		s, ok := v.ArgString(args, 0)
		if !ok {
			return v.Fail("%s() argument must be a string.", name)
		}

		raw := []byte(s)
		if c.binary {
			var err error
			if raw, err = hex.DecodeString(s); err != nil {
				return v.ErrorResult("%s.%s(): invalid hex input", c.name, name)
			}
		}
		data, err := c.unmarshal(raw)
		if err != nil {
			return v.ErrorResult("%s.%s(): %s", c.name, name, err)
		}
		return fromGo(v, c.name, data)
	}
}

// jsonStringify takes an optional indent string.
func jsonStringify(v *vm.VM, argCount int, args []vm.Value) vm.Value {
	if argCount != 1 && argCount != 2 {
		return v.Fail("stringify() takes 1 or 2 arguments (%d given).", argCount)
	}
	if argCount == 1 {
		return jsonCodec.encode("stringify")(v, argCount, args)
	}

	indent, ok := v.ArgString(args, 1)
	if !ok {
		return v.Fail("stringify() indent must be a string.")
	}
	data, err := v.ToGo(args[0])
	if err != nil {
		return v.ErrorResult("JSON.stringify(): %s", err)
	}
	out, err := json.MarshalIndent(data, "", indent)
	if err != nil {
		return v.ErrorResult("JSON.stringify(): %s", err)
	}
	return success(v, v.StringValue(string(out)))
}
