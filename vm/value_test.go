package vm

import (
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Number tests
// ---------------------------------------------------------------------------

func TestNumberValues(t *testing.T) {
	tests := []float64{
		0.0,
		1.0,
		-1.0,
		3.14159265358979,
		math.MaxFloat64,
		math.SmallestNonzeroFloat64,
		-math.MaxFloat64,
		math.Inf(1),
		math.Inf(-1),
	}

	for _, f := range tests {
		v := NumberValue(f)
		if !v.IsNumber() {
			t.Errorf("NumberValue(%v).IsNumber() = false, want true", f)
			continue
		}
		if v.IsObj() || v.IsNil() || v.IsBool() {
			t.Errorf("NumberValue(%v) reports a non-number tag", f)
		}
		if got := v.AsNumber(); got != f {
			t.Errorf("NumberValue(%v).AsNumber() = %v", f, got)
		}
	}
}

func TestNumberNaN(t *testing.T) {
	v := NumberValue(math.NaN())
	if !v.IsNumber() {
		t.Error("NaN should be treated as a number")
	}
	if !math.IsNaN(v.AsNumber()) {
		t.Error("NaN round trip failed")
	}
}

func TestNegativeZeroKey(t *testing.T) {
	if NumberValue(math.Copysign(0, -1)).keyBits() != NumberValue(0).keyBits() {
		t.Error("-0 and 0 should share key bits")
	}
}

// ---------------------------------------------------------------------------
// Specials and objects
// ---------------------------------------------------------------------------

func TestSpecialValues(t *testing.T) {
	tests := []struct {
		name   string
		v      Value
		isNil  bool
		isBool bool
	}{
		{"nil", Nil, true, false},
		{"true", True, false, true},
		{"false", False, false, true},
		{"empty", Empty, false, false},
	}

	for _, tt := range tests {
		if tt.v.IsNumber() {
			t.Errorf("%s.IsNumber() = true", tt.name)
		}
		if tt.v.IsObj() {
			t.Errorf("%s.IsObj() = true", tt.name)
		}
		if tt.v.IsNil() != tt.isNil {
			t.Errorf("%s.IsNil() = %v, want %v", tt.name, tt.v.IsNil(), tt.isNil)
		}
		if tt.v.IsBool() != tt.isBool {
			t.Errorf("%s.IsBool() = %v, want %v", tt.name, tt.v.IsBool(), tt.isBool)
		}
	}
	if !True.AsBool() || False.AsBool() {
		t.Error("AsBool mismatch")
	}
}

func TestObjectHandle(t *testing.T) {
	for _, h := range []uint32{1, 2, 1 << 20, math.MaxUint32} {
		v := objectValue(h)
		if !v.IsObj() || v.IsNumber() {
			t.Errorf("objectValue(%d) has wrong tag", h)
		}
		if got := v.handle(); got != h {
			t.Errorf("handle() = %d, want %d", got, h)
		}
	}
}

// ---------------------------------------------------------------------------
// Truthiness, equality and printing
// ---------------------------------------------------------------------------

func TestIsFalsey(t *testing.T) {
	vm := New()

	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil", Nil, true},
		{"false", False, true},
		{"true", True, false},
		{"zero", NumberValue(0), true},
		{"one", NumberValue(1), false},
		{"empty string", vm.StringValue(""), true},
		{"string", vm.StringValue("a"), false},
		{"empty list", vm.NewList(nil).Value(), true},
		{"list", vm.NewList([]Value{Nil}).Value(), false},
		{"empty dict", vm.NewDict().Value(), true},
		{"empty set", vm.NewSet().Value(), true},
	}

	for _, tt := range tests {
		if got := vm.IsFalsey(tt.v); got != tt.want {
			t.Errorf("IsFalsey(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValuesEqual(t *testing.T) {
	vm := New()

	a := vm.NewList([]Value{NumberValue(1), vm.StringValue("x")})
	vm.Pin(a.Value())
	b := vm.NewList([]Value{NumberValue(1), vm.StringValue("x")})
	vm.Pin(b.Value())
	c := vm.NewList([]Value{NumberValue(2)})

	if !vm.ValuesEqual(a.Value(), b.Value()) {
		t.Error("lists with equal contents should be equal")
	}
	if vm.ValuesEqual(a.Value(), c.Value()) {
		t.Error("lists with different contents should differ")
	}
	if vm.StringValue("abc") != vm.StringValue("abc") {
		t.Error("equal strings should intern to the same value")
	}
	if !vm.ValuesEqual(NumberValue(0), NumberValue(math.Copysign(0, -1))) {
		t.Error("0 should equal -0")
	}
	if vm.ValuesEqual(NumberValue(math.NaN()), NumberValue(math.NaN())) {
		t.Error("NaN should not equal itself")
	}
}

func TestValuesEqualCyclic(t *testing.T) {
	vm := New()
	selfList := func(extra ...Value) *ObjList {
		l := vm.NewList(nil)
		vm.Pin(l.Value())
		l.Values = append(l.Values, l.Value())
		l.Values = append(l.Values, extra...)
		return l
	}

	a, b := selfList(), selfList()
	if !vm.ValuesEqual(a.Value(), b.Value()) {
		t.Error("self-containing lists of the same shape should be equal")
	}
	x, y := selfList(NumberValue(1)), selfList(NumberValue(2))
	if vm.ValuesEqual(x.Value(), y.Value()) {
		t.Error("self-containing lists with different items should differ")
	}

	d := vm.NewDict()
	vm.Pin(d.Value())
	d.Items.Set(vm.StringValue("self"), d.Value())
	e := vm.NewDict()
	vm.Pin(e.Value())
	e.Items.Set(vm.StringValue("self"), e.Value())
	if !vm.ValuesEqual(d.Value(), e.Value()) {
		t.Error("self-containing dicts of the same shape should be equal")
	}
}

func TestDeepCopyKeepsCycles(t *testing.T) {
	vm := New()
	a := vm.NewList(nil)
	vm.Pin(a.Value())
	a.Values = append(a.Values, a.Value(), NumberValue(1))

	c, ok := As[*ObjList](vm, vm.deepCopy(a.Value()))
	if !ok {
		t.Fatal("deepCopy of a list should be a list")
	}
	if c == a {
		t.Fatal("deepCopy returned the original")
	}
	if c.Values[0] != c.Value() {
		t.Error("the copy should contain itself, not the original")
	}
	if c.Values[1].AsNumber() != 1 {
		t.Errorf("copied item = %v, want 1", vm.ValueString(c.Values[1]))
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1"},
		{-3, "-3"},
		{0.5, "0.5"},
		{1.0 / 3, "0.333333333333333"},
		{1e21, "1e+21"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
	}

	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValueString(t *testing.T) {
	vm := New()

	list := vm.NewList([]Value{NumberValue(1), vm.StringValue("a"), Nil})
	vm.Pin(list.Value())
	if got := vm.ValueString(list.Value()); got != `[1, "a", nil]` {
		t.Errorf("ValueString(list) = %s", got)
	}

	self := vm.NewList(nil)
	self.Values = append(self.Values, self.Value())
	if got := vm.ValueString(self.Value()); got != "[[...]]" {
		t.Errorf("ValueString(cyclic) = %s", got)
	}

	if got := vm.ValueString(vm.StringValue("plain")); got != "plain" {
		t.Errorf("top-level strings should not be quoted, got %s", got)
	}
}
