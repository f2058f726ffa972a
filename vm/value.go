package vm

import (
	"math"
)

// Value represents a dictu value using NaN-boxing.
//
// All values are represented as 64-bit IEEE 754 doubles. Non-number values
// are encoded in the NaN (Not-a-Number) space using the quiet NaN prefix
// and tag bits to distinguish types.
//
// Encoding scheme:
//   - Number: Native IEEE 754 double (if not a tagged NaN, it's a number)
//   - Object: Quiet NaN + tagObject + 32-bit heap handle
//   - Special: Quiet NaN + tagSpecial + special value ID (nil/true/false/empty)
//
// Heap references are handles into the collector-owned arena rather than
// raw pointers, so a Value never hides a Go pointer from the Go runtime.
type Value uint64

// NaN-boxing constants
const (
	// Quiet NaN prefix: exponent all 1s, quiet bit set, sign bit 0
	// 0x7FF8_0000_0000_0000
	nanBits uint64 = 0x7FF8000000000000

	// Tag mask: 3 bits within the NaN mantissa space
	// 0x0007_0000_0000_0000
	tagMask uint64 = 0x0007000000000000

	// Payload mask: 48 bits for handle/id
	// 0x0000_FFFF_FFFF_FFFF
	payloadMask uint64 = 0x0000FFFFFFFFFFFF

	// Tag values (shifted into position)
	tagObject  uint64 = 0x0001000000000000 // Heap object handle
	tagSpecial uint64 = 0x0003000000000000 // nil, true, false, empty
)

// Special value payloads
const (
	specialNil   uint64 = 0
	specialTrue  uint64 = 1
	specialFalse uint64 = 2
	specialEmpty uint64 = 3
)

// Pre-defined special values
const (
	Nil   Value = Value(nanBits | tagSpecial | specialNil)
	True  Value = Value(nanBits | tagSpecial | specialTrue)
	False Value = Value(nanBits | tagSpecial | specialFalse)

	// Empty is the internal "no value" sentinel. Natives return it after
	// recording an error, and hash sets use it to mark unused slots. It is
	// never visible to guest code.
	Empty Value = Value(nanBits | tagSpecial | specialEmpty)
)

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// IsNumber returns true if v represents a float64 value.
// A value is a number if it's not one of our tagged NaN values.
// This includes regular numbers, infinities, and "real" NaN values.
func (v Value) IsNumber() bool {
	bits := uint64(v)

	// Exponent is not all 1s, so it's a regular float
	if (bits & 0x7FF0000000000000) != 0x7FF0000000000000 {
		return true
	}

	// +Inf or -Inf
	if bits&0x000FFFFFFFFFFFFF == 0 {
		return true
	}

	// Signaling NaN, treat as float
	if (bits & nanBits) != nanBits {
		return true
	}

	// A quiet NaN without tag bits is a "real" NaN
	return bits&tagMask == 0
}

// IsObj returns true if v holds a heap object handle.
func (v Value) IsObj() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagObject)
}

// IsNil returns true if v is the nil value.
func (v Value) IsNil() bool {
	return v == Nil
}

// IsBool returns true if v is true or false.
func (v Value) IsBool() bool {
	return v == True || v == False
}

// IsEmpty returns true if v is the internal empty sentinel.
func (v Value) IsEmpty() bool {
	return v == Empty
}

// ---------------------------------------------------------------------------
// Number operations
// ---------------------------------------------------------------------------

// AsNumber returns v as a float64.
// Panics if v is not a number.
func (v Value) AsNumber() float64 {
	if !v.IsNumber() {
		panic("Value.AsNumber: not a number")
	}
	return math.Float64frombits(uint64(v))
}

// NumberValue creates a Value from a float64.
func NumberValue(f float64) Value {
	return Value(math.Float64bits(f))
}

// ---------------------------------------------------------------------------
// Boolean operations
// ---------------------------------------------------------------------------

// AsBool returns v as a bool.
// Panics if v is not true or false.
func (v Value) AsBool() bool {
	switch v {
	case True:
		return true
	case False:
		return false
	default:
		panic("Value.AsBool: not a boolean")
	}
}

// BoolValue creates a Value from a bool.
func BoolValue(b bool) Value {
	if b {
		return True
	}
	return False
}

// isFalseyScalar reports whether a non-object value counts as false in a
// condition. Empty strings and containers are also falsey; those cases need
// the heap, see VM.isFalsey.
func (v Value) isFalseyScalar() bool {
	if v.IsNumber() {
		return v.AsNumber() == 0
	}
	return v == Nil || v == False
}

// ---------------------------------------------------------------------------
// Object handles
// ---------------------------------------------------------------------------

// handle returns the arena handle encoded in v.
// Panics if v is not an object.
func (v Value) handle() uint32 {
	if !v.IsObj() {
		panic("Value.handle: not an object")
	}
	return uint32(uint64(v) & payloadMask)
}

// objectValue creates a Value from an arena handle.
func objectValue(h uint32) Value {
	return Value(nanBits | tagObject | uint64(h))
}

// keyBits returns the bits used to hash and compare v as a table key.
// Negative zero is folded onto positive zero so that 0 and -0 name the
// same entry.
func (v Value) keyBits() uint64 {
	if v.IsNumber() && v.AsNumber() == 0 {
		return 0
	}
	return uint64(v)
}
