package vm

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
)

func testKey(s string) *ObjString {
	return &ObjString{Chars: s, Hash: hashString(s)}
}

// ---------------------------------------------------------------------------
// Table
// ---------------------------------------------------------------------------

func TestTableSetGet(t *testing.T) {
	var tbl Table
	keys := make([]*ObjString, 100)
	for i := range keys {
		keys[i] = testKey(fmt.Sprintf("key%d", i))
		if !tbl.Set(keys[i], NumberValue(float64(i))) {
			t.Fatalf("Set(%s) reported existing key", keys[i].Chars)
		}
	}
	if tbl.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", tbl.Len())
	}
	for i, k := range keys {
		v, ok := tbl.Get(k)
		if !ok || v.AsNumber() != float64(i) {
			t.Errorf("Get(%s) = %v, %v", k.Chars, v, ok)
		}
	}
	if tbl.Set(keys[3], True) {
		t.Error("overwriting a key should not report a new key")
	}
	if v, _ := tbl.Get(keys[3]); v != True {
		t.Error("overwrite was not stored")
	}
	if slot := tbl.checkInvariant(); slot >= 0 {
		t.Errorf("psl invariant broken at slot %d", slot)
	}
}

func TestTableIdentityKeys(t *testing.T) {
	var tbl Table
	a := testKey("same")
	b := testKey("same")
	tbl.Set(a, True)
	if tbl.Contains(b) {
		t.Error("lookup must compare keys by identity")
	}
	if tbl.FindString("same", a.Hash) != a {
		t.Error("FindString should find the key by content")
	}
}

func TestTableCollisions(t *testing.T) {
	var tbl Table
	keys := make([]*ObjString, 6)
	for i := range keys {
		// Every key wants slot 3.
		keys[i] = &ObjString{Chars: fmt.Sprintf("c%d", i), Hash: 3}
		tbl.Set(keys[i], NumberValue(float64(i)))
	}
	if slot := tbl.checkInvariant(); slot >= 0 {
		t.Fatalf("psl invariant broken at slot %d", slot)
	}

	tbl.Delete(keys[1])
	if slot := tbl.checkInvariant(); slot >= 0 {
		t.Fatalf("psl invariant broken after delete at slot %d", slot)
	}
	for i, k := range keys {
		_, ok := tbl.Get(k)
		if want := i != 1; ok != want {
			t.Errorf("Get(%s) present = %v, want %v", k.Chars, ok, want)
		}
	}
}

func TestTableShrink(t *testing.T) {
	var tbl Table
	keys := make([]*ObjString, 64)
	for i := range keys {
		keys[i] = testKey(fmt.Sprintf("k%d", i))
		tbl.Set(keys[i], Nil)
	}
	grown := tbl.capacity()
	for _, k := range keys[:60] {
		if !tbl.Delete(k) {
			t.Fatalf("Delete(%s) = false", k.Chars)
		}
	}
	if tbl.capacity() >= grown {
		t.Errorf("capacity %d did not shrink from %d", tbl.capacity(), grown)
	}
	if tbl.capacity() < tableMinMask+1 {
		t.Errorf("capacity %d below minimum", tbl.capacity())
	}
	for _, k := range keys[60:] {
		if !tbl.Contains(k) {
			t.Errorf("%s lost during shrink", k.Chars)
		}
	}
}

// ---------------------------------------------------------------------------
// DictTable
// ---------------------------------------------------------------------------

func TestDictTableInterleaved(t *testing.T) {
	var d DictTable
	model := make(map[float64]float64)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 5000; i++ {
		k := float64(rng.Intn(300))
		if rng.Intn(3) == 0 {
			_, had := model[k]
			if got := d.Delete(NumberValue(k)); got != had {
				t.Fatalf("step %d: Delete(%v) = %v, want %v", i, k, got, had)
			}
			delete(model, k)
		} else {
			_, had := model[k]
			if got := d.Set(NumberValue(k), NumberValue(float64(i))); got == had {
				t.Fatalf("step %d: Set(%v) new = %v, want %v", i, k, got, !had)
			}
			model[k] = float64(i)
		}
		if d.Len() != len(model) {
			t.Fatalf("step %d: Len() = %d, want %d", i, d.Len(), len(model))
		}
	}

	if slot := d.checkInvariant(); slot >= 0 {
		t.Fatalf("psl invariant broken at slot %d", slot)
	}
	for k, want := range model {
		v, ok := d.Get(NumberValue(k))
		if !ok || v.AsNumber() != want {
			t.Errorf("Get(%v) = %v, %v; want %v", k, v, ok, want)
		}
	}
}

func TestDictTableMixedKeys(t *testing.T) {
	vm := New()
	var d DictTable
	keys := []Value{Nil, True, False, NumberValue(1), NumberValue(-2.5), vm.StringValue("one")}
	for i, k := range keys {
		d.Set(k, NumberValue(float64(i)))
	}
	for i, k := range keys {
		v, ok := d.Get(k)
		if !ok || v.AsNumber() != float64(i) {
			t.Errorf("Get(%s) = %v, %v", vm.ValueString(k), v, ok)
		}
	}
	if _, ok := d.Get(vm.StringValue("one")); !ok {
		t.Error("an equal string should find the interned key")
	}
}

// ---------------------------------------------------------------------------
// SetTable
// ---------------------------------------------------------------------------

func TestSetTableTombstones(t *testing.T) {
	var s SetTable
	for i := 0; i < 40; i++ {
		if !s.Add(NumberValue(float64(i))) {
			t.Fatalf("Add(%d) reported duplicate", i)
		}
	}
	if s.Add(NumberValue(5)) {
		t.Error("Add of an existing member should report false")
	}
	for i := 0; i < 40; i += 2 {
		if !s.Delete(NumberValue(float64(i))) {
			t.Fatalf("Delete(%d) = false", i)
		}
	}
	if s.Delete(NumberValue(0)) {
		t.Error("second Delete should report false")
	}
	for i := 0; i < 40; i++ {
		if got, want := s.Contains(NumberValue(float64(i))), i%2 == 1; got != want {
			t.Errorf("Contains(%d) = %v, want %v", i, got, want)
		}
	}
	if s.Len() != 20 {
		t.Errorf("Len() = %d, want 20", s.Len())
	}

	n := 0
	s.Each(func(Value) bool { n++; return true })
	if n != 20 {
		t.Errorf("Each visited %d members, want 20", n)
	}
}

func TestSetTableNegativeZero(t *testing.T) {
	var s SetTable
	s.Add(NumberValue(0))
	if s.Add(NumberValue(math.Copysign(0, -1))) {
		t.Error("-0 should be the same member as 0")
	}
}
