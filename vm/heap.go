package vm

import (
	"time"
)

// ---------------------------------------------------------------------------
// Heap: the collector-owned object arena
// ---------------------------------------------------------------------------

// Heap owns every guest object. Objects live in an arena indexed by handle;
// a Value refers to an object by handle only. Handle 0 is never used, so a
// zero link terminates the intrusive all-objects list.
type Heap struct {
	objects []Obj
	free    []uint32
	head    uint32 // first object in the all-objects list

	bytesAllocated int
	nextGC         int
	growFactor     float64
	minHeap        int
	stress         bool
	collecting     bool

	gray []Obj

	stats HeapStats

	// OnFree, when set, is called once for every object the sweep frees.
	OnFree func(handle uint32, kind ObjKind)
}

// HeapStats summarises allocator and collector activity.
type HeapStats struct {
	Live           int
	Allocated      uint64
	Freed          uint64
	Collections    uint64
	BytesAllocated int
	NextGC         int
	LastPause      time.Duration
}

func (h *Heap) init(growFactor float64, minHeap int, stress bool) {
	h.objects = make([]Obj, 1, 256)
	h.growFactor = growFactor
	h.minHeap = minHeap
	h.nextGC = minHeap
	h.stress = stress
}

// Stats returns a snapshot of the heap counters.
func (h *Heap) Stats() HeapStats {
	s := h.stats
	s.Live = len(h.objects) - 1 - len(h.free)
	s.BytesAllocated = h.bytesAllocated
	s.NextGC = h.nextGC
	return s
}

// Heap exposes the VM's heap, mainly for statistics and the OnFree hook.
func (vm *VM) Heap() *Heap {
	return &vm.heap
}

// allocate links obj into the arena. The collector may run first; obj
// itself is not yet reachable and so is never collected by that cycle, but
// every object obj refers to must already be rooted by the caller.
func (vm *VM) allocate(obj Obj, size int) {
	h := &vm.heap
	h.bytesAllocated += size
	if !h.collecting && (h.stress || h.bytesAllocated > h.nextGC) {
		vm.collectGarbage()
	}

	var handle uint32
	if n := len(h.free); n > 0 {
		handle = h.free[n-1]
		h.free = h.free[:n-1]
		h.objects[handle] = obj
	} else {
		handle = uint32(len(h.objects))
		h.objects = append(h.objects, obj)
	}

	hdr := obj.header()
	hdr.handle = handle
	hdr.size = size
	hdr.next = h.head
	h.head = handle
	h.stats.Allocated++
}

// grow records that obj's payload grew by delta bytes. Like allocate it
// may trigger a collection, so callers finish mutating obj first.
func (vm *VM) grow(obj Obj, delta int) {
	h := &vm.heap
	obj.header().size += delta
	h.bytesAllocated += delta
	if !h.collecting && (h.stress || h.bytesAllocated > h.nextGC) {
		vm.collectGarbage()
	}
}

// object returns the heap object referenced by val.
func (vm *VM) object(val Value) Obj {
	return vm.heap.objects[val.handle()]
}

// As returns the object behind val as a T, if val references one.
func As[T Obj](vm *VM, val Value) (T, bool) {
	var zero T
	if !val.IsObj() {
		return zero, false
	}
	o, ok := vm.heap.objects[val.handle()].(T)
	return o, ok
}

// KindOf returns the object kind of val.
func (vm *VM) KindOf(val Value) (ObjKind, bool) {
	if !val.IsObj() {
		return 0, false
	}
	return vm.object(val).header().Kind, true
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func hashString(s string) uint32 {
	hash := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

// CopyString returns the interned string with the given contents,
// allocating it on first use.
func (vm *VM) CopyString(s string) *ObjString {
	hash := hashString(s)
	if interned := vm.strings.FindString(s, hash); interned != nil {
		return interned
	}
	str := &ObjString{ObjHeader: ObjHeader{Kind: KindString}, Chars: s, Hash: hash}
	vm.allocate(str, sizeHeader+len(s))
	vm.strings.Set(str, Nil)
	return str
}

// StringValue is CopyString returning a Value.
func (vm *VM) StringValue(s string) Value {
	return vm.CopyString(s).Value()
}

// NewList allocates a list that takes ownership of values.
func (vm *VM) NewList(values []Value) *ObjList {
	l := &ObjList{ObjHeader: ObjHeader{Kind: KindList}, Values: values}
	vm.allocate(l, sizeHeader+len(values)*sizeValue)
	return l
}

// NewDict allocates an empty dict.
func (vm *VM) NewDict() *ObjDict {
	d := &ObjDict{ObjHeader: ObjHeader{Kind: KindDict}}
	vm.allocate(d, sizeHeader)
	return d
}

// NewSet allocates an empty set.
func (vm *VM) NewSet() *ObjSet {
	s := &ObjSet{ObjHeader: ObjHeader{Kind: KindSet}}
	vm.allocate(s, sizeHeader)
	return s
}

// NewFunction allocates an empty function owned by module.
func (vm *VM) NewFunction(module *ObjModule, kind FunctionKind) *ObjFunction {
	fn := &ObjFunction{ObjHeader: ObjHeader{Kind: KindFunction}, Module: module, Kind: kind}
	vm.allocate(fn, sizeHeader*2)
	return fn
}

// NewNative allocates a native function object.
func (vm *VM) NewNative(name string, fn NativeFn) *ObjNative {
	n := &ObjNative{ObjHeader: ObjHeader{Kind: KindNative}, Name: name, Fn: fn}
	vm.allocate(n, sizeHeader+len(name))
	return n
}

// NewClosure allocates a closure over fn with room for its upvalues.
func (vm *VM) NewClosure(fn *ObjFunction) *ObjClosure {
	c := &ObjClosure{
		ObjHeader: ObjHeader{Kind: KindClosure},
		Function:  fn,
		Upvalues:  make([]*ObjUpvalue, fn.UpvalueCount),
	}
	vm.allocate(c, sizeHeader+fn.UpvalueCount*sizeValue)
	return c
}

func (vm *VM) newUpvalue(slot int) *ObjUpvalue {
	u := &ObjUpvalue{ObjHeader: ObjHeader{Kind: KindUpvalue}, slot: slot, closed: Nil, open: true}
	vm.allocate(u, sizeHeader)
	return u
}

// NewClass allocates a class. name must already be rooted.
func (vm *VM) NewClass(name *ObjString, kind ClassKind) *ObjClass {
	c := &ObjClass{ObjHeader: ObjHeader{Kind: KindClass}, Name: name, ClassKind: kind}
	vm.allocate(c, sizeHeader*2)
	return c
}

// NewInstance allocates an instance of class.
func (vm *VM) NewInstance(class *ObjClass) *ObjInstance {
	i := &ObjInstance{ObjHeader: ObjHeader{Kind: KindInstance}, Class: class}
	vm.allocate(i, sizeHeader)
	return i
}

// NewBoundMethod binds receiver to method (a closure or native value).
func (vm *VM) NewBoundMethod(receiver, method Value) *ObjBoundMethod {
	b := &ObjBoundMethod{ObjHeader: ObjHeader{Kind: KindBoundMethod}, Receiver: receiver, Method: method}
	vm.allocate(b, sizeHeader+2*sizeValue)
	return b
}

// NewModule allocates a module and registers it under its path (or its
// name when path is nil) in the module cache, which roots it.
func (vm *VM) NewModule(name, path *ObjString) *ObjModule {
	m := &ObjModule{ObjHeader: ObjHeader{Kind: KindModule}, Name: name, Path: path}
	vm.allocate(m, sizeHeader)
	key := path
	if key == nil {
		key = name
	}
	vm.modules.Set(key, m.Value())
	return m
}

// NewResult allocates a Result wrapping value.
func (vm *VM) NewResult(status ResultStatus, value Value) *ObjResult {
	r := &ObjResult{ObjHeader: ObjHeader{Kind: KindResult}, Status: status, Payload: value}
	vm.allocate(r, sizeHeader+sizeValue)
	return r
}

// NewAbstract allocates an opaque native object. release, when non-nil,
// runs when the collector frees it.
func (vm *VM) NewAbstract(typeName string, state any, release func()) *ObjAbstract {
	a := &ObjAbstract{ObjHeader: ObjHeader{Kind: KindAbstract}, Type: typeName, State: state, Release: release}
	vm.allocate(a, sizeHeader*2)
	return a
}
