package vm

import (
	"testing"
)

func TestCollectUnreachable(t *testing.T) {
	vm := New()

	freed := 0
	vm.Heap().OnFree = func(uint32, ObjKind) { freed++ }

	vm.NewList([]Value{NumberValue(1)})
	vm.NewDict()
	vm.CopyString("garbage string")

	n := vm.CollectGarbage()
	if n < 3 {
		t.Errorf("CollectGarbage() freed %d objects, want at least 3", n)
	}
	if freed != n {
		t.Errorf("OnFree called %d times, collector reported %d", freed, n)
	}
}

func TestCollectKeepsReachable(t *testing.T) {
	vm := New()

	inner := vm.StringValue("inner")
	vm.Push(inner)
	list := vm.NewList([]Value{inner})
	vm.Pop()
	vm.Pin(list.Value())

	vm.CollectGarbage()

	got, ok := As[*ObjList](vm, list.Value())
	if !ok || got != list {
		t.Fatal("pinned list was collected")
	}
	if s, ok := As[*ObjString](vm, list.Values[0]); !ok || s.Chars != "inner" {
		t.Error("string held by a pinned list was collected")
	}

	vm.Unpin(list.Value())
	if vm.CollectGarbage() < 2 {
		t.Error("unpinned list and its string should be freed")
	}
}

func TestInternTableIsWeak(t *testing.T) {
	vm := New()
	vm.CopyString("transient")
	vm.CollectGarbage()

	if vm.strings.FindString("transient", hashString("transient")) != nil {
		t.Error("unreachable string is still interned")
	}
	if vm.strings.FindString("init", hashString("init")) == nil {
		t.Error("rooted init string was dropped from the intern table")
	}
}

func TestHandleReuse(t *testing.T) {
	vm := New()
	s := vm.CopyString("reuse me")
	handle := s.handle
	vm.CollectGarbage()

	other := vm.CopyString("fresh")
	if other.handle != handle {
		t.Errorf("handle %d not reused, got %d", handle, other.handle)
	}
}

func TestCycleCollected(t *testing.T) {
	vm := New()
	a := vm.NewList(nil)
	vm.Push(a.Value())
	b := vm.NewList([]Value{a.Value()})
	a.Values = append(a.Values, b.Value())
	vm.Pop()

	if n := vm.CollectGarbage(); n < 2 {
		t.Errorf("cycle not collected, freed %d", n)
	}
}

func TestStressModeCollectsOnAllocation(t *testing.T) {
	cfg := New().config
	cfg.GCStress = true
	vm := New(WithConfig(cfg))

	before := vm.Heap().Stats().Collections
	vm.NewList(nil)
	vm.NewList(nil)
	if vm.Heap().Stats().Collections-before < 2 {
		t.Error("stress mode should collect on every allocation")
	}
}

func TestHeapStats(t *testing.T) {
	vm := New()
	base := vm.Heap().Stats()
	l := vm.NewList(nil)
	vm.Pin(l.Value())

	s := vm.Heap().Stats()
	if s.Live != base.Live+1 {
		t.Errorf("Live = %d, want %d", s.Live, base.Live+1)
	}
	if s.BytesAllocated <= base.BytesAllocated {
		t.Error("allocation did not increase BytesAllocated")
	}
}
