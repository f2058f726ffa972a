package vm

import (
	"time"
)

// ---------------------------------------------------------------------------
// Mark-sweep collector
// ---------------------------------------------------------------------------

// CollectGarbage forces a full collection and returns the number of
// objects freed.
func (vm *VM) CollectGarbage() int {
	before := vm.heap.stats.Freed
	vm.collectGarbage()
	return int(vm.heap.stats.Freed - before)
}

func (vm *VM) collectGarbage() {
	h := &vm.heap
	if h.collecting {
		return
	}
	h.collecting = true
	defer func() { h.collecting = false }()

	start := time.Now()
	bytesBefore := h.bytesAllocated
	freedBefore := h.stats.Freed

	vm.markRoots()
	vm.traceReferences()
	vm.strings.removeWhite()
	vm.sweep()

	h.nextGC = int(float64(h.bytesAllocated) * h.growFactor)
	if h.nextGC < h.minHeap {
		h.nextGC = h.minHeap
	}
	h.stats.Collections++
	h.stats.LastPause = time.Since(start)

	gcLog.Debugf("collected %d bytes (from %d to %d), freed %d objects, next at %d, took %s",
		bytesBefore-h.bytesAllocated, bytesBefore, h.bytesAllocated,
		h.stats.Freed-freedBefore, h.nextGC, h.stats.LastPause)
}

// ---------------------------------------------------------------------------
// Roots
// ---------------------------------------------------------------------------

// Pin keeps val alive across collections until a matching Unpin. Hosts use
// it for values they hold outside the VM's own stacks and tables.
func (vm *VM) Pin(val Value) {
	if val.IsObj() {
		vm.pinned[val]++
	}
}

// Unpin releases one Pin of val.
func (vm *VM) Unpin(val Value) {
	if n := vm.pinned[val]; n > 1 {
		vm.pinned[val] = n - 1
	} else {
		delete(vm.pinned, val)
	}
}

// PushCompilerRoot roots a function while the compiler is still emitting
// into it.
func (vm *VM) PushCompilerRoot(fn *ObjFunction) {
	vm.compilerRoots = append(vm.compilerRoots, fn)
}

// PopCompilerRoot releases the innermost compiler root.
func (vm *VM) PopCompilerRoot() {
	vm.compilerRoots = vm.compilerRoots[:len(vm.compilerRoots)-1]
}

func (vm *VM) markRoots() {
	for i := 0; i < vm.sp; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := range vm.frames {
		vm.markObject(vm.frames[i].closure)
	}
	for up := vm.openUpvalues; up != nil; up = up.next {
		vm.markObject(up)
	}

	vm.markTable(&vm.globals)
	vm.markTable(&vm.modules)
	for _, t := range vm.methodTables() {
		vm.markTable(t)
	}

	for _, fn := range vm.compilerRoots {
		vm.markObject(fn)
	}
	for val := range vm.pinned {
		vm.markValue(val)
	}
	if vm.initString != nil {
		vm.markObject(vm.initString)
	}
}

// ---------------------------------------------------------------------------
// Mark
// ---------------------------------------------------------------------------

func (vm *VM) markValue(val Value) {
	if val.IsObj() {
		vm.markObject(vm.object(val))
	}
}

func (vm *VM) markObject(o Obj) {
	hdr := o.header()
	if hdr.marked {
		return
	}
	hdr.marked = true
	vm.heap.gray = append(vm.heap.gray, o)
}

func (vm *VM) markTable(t *Table) {
	for i := range t.entries {
		if e := &t.entries[i]; e.key != nil {
			vm.markObject(e.key)
			vm.markValue(e.value)
		}
	}
}

func (vm *VM) traceReferences() {
	h := &vm.heap
	for len(h.gray) > 0 {
		o := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		vm.blacken(o)
	}
}

// blacken marks everything o refers to.
func (vm *VM) blacken(o Obj) {
	switch obj := o.(type) {
	case *ObjString, *ObjNative, *ObjFile:
		// no outgoing references
	case *ObjList:
		for _, v := range obj.Values {
			vm.markValue(v)
		}
	case *ObjDict:
		obj.Items.Each(func(k, v Value) bool {
			vm.markValue(k)
			vm.markValue(v)
			return true
		})
	case *ObjSet:
		obj.Items.Each(func(k Value) bool {
			vm.markValue(k)
			return true
		})
	case *ObjFunction:
		if obj.Name != nil {
			vm.markObject(obj.Name)
		}
		if obj.Module != nil {
			vm.markObject(obj.Module)
		}
		for _, c := range obj.Chunk.Constants {
			vm.markValue(c)
		}
		for _, f := range obj.InitFields {
			vm.markObject(f.Name)
		}
	case *ObjClosure:
		vm.markObject(obj.Function)
		for _, up := range obj.Upvalues {
			if up != nil {
				vm.markObject(up)
			}
		}
	case *ObjUpvalue:
		vm.markValue(obj.closed)
	case *ObjClass:
		vm.markObject(obj.Name)
		if obj.Superclass != nil {
			vm.markObject(obj.Superclass)
		}
		vm.markTable(&obj.Methods)
		vm.markTable(&obj.AbstractMethods)
		vm.markTable(&obj.Properties)
	case *ObjInstance:
		vm.markObject(obj.Class)
		vm.markTable(&obj.Fields)
	case *ObjBoundMethod:
		vm.markValue(obj.Receiver)
		vm.markValue(obj.Method)
	case *ObjModule:
		vm.markObject(obj.Name)
		if obj.Path != nil {
			vm.markObject(obj.Path)
		}
		vm.markTable(&obj.Values)
	case *ObjResult:
		vm.markValue(obj.Payload)
	case *ObjAbstract:
		vm.markTable(&obj.Methods)
	}
}

// ---------------------------------------------------------------------------
// Sweep
// ---------------------------------------------------------------------------

func (vm *VM) sweep() {
	h := &vm.heap
	var prev uint32
	cur := h.head
	for cur != 0 {
		o := h.objects[cur]
		hdr := o.header()
		next := hdr.next
		if hdr.marked {
			hdr.marked = false
			prev = cur
		} else {
			if prev == 0 {
				h.head = next
			} else {
				h.objects[prev].header().next = next
			}
			vm.freeObject(o)
		}
		cur = next
	}
}

func (vm *VM) freeObject(o Obj) {
	h := &vm.heap
	hdr := o.header()

	switch obj := o.(type) {
	case *ObjFile:
		if obj.File != nil {
			obj.File.Close()
			obj.File = nil
		}
	case *ObjAbstract:
		if obj.Release != nil {
			obj.Release()
			obj.Release = nil
		}
	}

	h.bytesAllocated -= hdr.size
	h.objects[hdr.handle] = nil
	h.free = append(h.free, hdr.handle)
	h.stats.Freed++
	if h.OnFree != nil {
		h.OnFree(hdr.handle, hdr.Kind)
	}
}
