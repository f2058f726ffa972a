package vm

import (
	"math"
	"testing"
)

func TestAddConstantSharesIdenticalValues(t *testing.T) {
	var c Chunk
	a := c.AddConstant(NumberValue(1))
	b := c.AddConstant(NumberValue(2))
	if a == b {
		t.Fatalf("distinct constants share index %d", a)
	}
	if got := c.AddConstant(NumberValue(1)); got != a {
		t.Errorf("AddConstant(1) again = %d, want %d", got, a)
	}
	if got := c.AddConstant(Nil); got != 2 {
		t.Errorf("AddConstant(nil) = %d, want 2", got)
	}
	// 0 and -0 differ in bits and get separate slots.
	zero := c.AddConstant(NumberValue(0))
	negZero := c.AddConstant(NumberValue(math.Copysign(0, -1)))
	if zero == negZero {
		t.Error("0 and -0 should not share a constant slot")
	}
	if len(c.Constants) != 5 {
		t.Errorf("len(Constants) = %d, want 5", len(c.Constants))
	}
}

func TestAddConstantIndexesAppendedPool(t *testing.T) {
	c := Chunk{Constants: []Value{True, NumberValue(7)}}
	if got := c.AddConstant(NumberValue(7)); got != 1 {
		t.Errorf("AddConstant(7) = %d, want 1", got)
	}
	c.Constants = append(c.Constants, False)
	if got := c.AddConstant(False); got != 2 {
		t.Errorf("AddConstant(false) = %d, want 2", got)
	}
}

func TestAddConstantLargePool(t *testing.T) {
	var c Chunk
	const n = 50000
	for i := 0; i < n; i++ {
		if got := c.AddConstant(NumberValue(float64(i))); got != i {
			t.Fatalf("AddConstant(%d) = %d", i, got)
		}
	}
	for i := 0; i < n; i += 997 {
		if got := c.AddConstant(NumberValue(float64(i))); got != i {
			t.Fatalf("second AddConstant(%d) = %d", i, got)
		}
	}
	if len(c.Constants) != n {
		t.Errorf("len(Constants) = %d, want %d", len(c.Constants), n)
	}
}
