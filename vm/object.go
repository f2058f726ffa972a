package vm

import (
	"os"
)

// ---------------------------------------------------------------------------
// Object kinds
// ---------------------------------------------------------------------------

// ObjKind identifies the variant of a heap object.
type ObjKind uint8

const (
	KindString ObjKind = iota
	KindList
	KindDict
	KindSet
	KindFunction
	KindNative
	KindClosure
	KindUpvalue
	KindClass
	KindInstance
	KindBoundMethod
	KindModule
	KindResult
	KindFile
	KindAbstract
)

var kindNames = [...]string{
	KindString:      "string",
	KindList:        "list",
	KindDict:        "dict",
	KindSet:         "set",
	KindFunction:    "function",
	KindNative:      "native",
	KindClosure:     "function",
	KindUpvalue:     "upvalue",
	KindClass:       "class",
	KindInstance:    "object",
	KindBoundMethod: "method",
	KindModule:      "module",
	KindResult:      "result",
	KindFile:        "file",
	KindAbstract:    "abstract",
}

// String returns the guest-visible type name for the kind.
func (k ObjKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ---------------------------------------------------------------------------
// Object header
// ---------------------------------------------------------------------------

// ObjHeader is embedded in every heap object. It carries the kind tag, the
// mark bit, the object's own arena handle and the intrusive link to the
// next object in the all-objects list.
type ObjHeader struct {
	Kind   ObjKind
	marked bool
	handle uint32
	next   uint32
	size   int
}

func (h *ObjHeader) header() *ObjHeader { return h }

// Value returns the boxed Value referring to this object.
func (h *ObjHeader) Value() Value { return objectValue(h.handle) }

// Obj is the closed set of heap object variants. Only types embedding
// ObjHeader satisfy it.
type Obj interface {
	header() *ObjHeader
}

// ---------------------------------------------------------------------------
// Object variants
// ---------------------------------------------------------------------------

// ObjString is an immutable, interned byte string.
type ObjString struct {
	ObjHeader
	Chars string
	Hash  uint32
}

// ObjList is a growable, insertion-ordered sequence of values.
type ObjList struct {
	ObjHeader
	Values []Value
}

// ObjDict maps immutable keys to values.
type ObjDict struct {
	ObjHeader
	Items DictTable
}

// ObjSet is a membership collection of immutable values.
type ObjSet struct {
	ObjHeader
	Items SetTable
}

// FunctionKind records how a function was declared.
type FunctionKind uint8

const (
	FunctionTopLevel FunctionKind = iota
	FunctionPlain
	FunctionArrow
	FunctionMethod
	FunctionInitializer
	FunctionStatic
	FunctionAbstract
)

// InitField maps an initializer parameter declared with `var` to the
// instance field it is copied into.
type InitField struct {
	Name *ObjString
	Slot int
}

// ObjFunction is a compiled function body.
type ObjFunction struct {
	ObjHeader
	Name          *ObjString
	Arity         int
	ArityOptional int
	UpvalueCount  int
	Kind          FunctionKind
	Module        *ObjModule
	Chunk         Chunk
	InitFields    []InitField
}

// NativeFn is the uniform signature of every host callable. For plain
// functions args holds the argCount arguments; for methods args[0] is the
// receiver followed by argCount arguments. A native signals failure by
// returning the result of VM.Fail.
type NativeFn func(v *VM, argCount int, args []Value) Value

// ObjNative wraps a host function.
type ObjNative struct {
	ObjHeader
	Name string
	Fn   NativeFn
}

// ObjClosure pairs a function with the upvalues captured at creation.
type ObjClosure struct {
	ObjHeader
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

// ObjUpvalue references a variable of an enclosing scope. While open it
// points at a live stack slot; once closed it owns a copy of the value.
type ObjUpvalue struct {
	ObjHeader
	slot   int
	closed Value
	open   bool
	next   *ObjUpvalue
}

// ClassKind distinguishes ordinary classes from abstract classes and traits.
type ClassKind uint8

const (
	ClassDefault ClassKind = iota
	ClassAbstract
	ClassTrait
)

// ObjClass is a class, abstract class or trait.
type ObjClass struct {
	ObjHeader
	Name            *ObjString
	Superclass      *ObjClass
	Methods         Table
	AbstractMethods Table
	Properties      Table
	ClassKind       ClassKind
}

// ObjInstance is an instance of a class.
type ObjInstance struct {
	ObjHeader
	Class  *ObjClass
	Fields Table
}

// ObjBoundMethod binds a receiver to a closure or native.
type ObjBoundMethod struct {
	ObjHeader
	Receiver Value
	Method   Value
}

// ObjModule is a compiled or native module and its top-level bindings.
type ObjModule struct {
	ObjHeader
	Name   *ObjString
	Path   *ObjString
	Values Table
}

// ResultStatus tags a Result value.
type ResultStatus uint8

const (
	ResultSuccess ResultStatus = iota
	ResultError
)

// ObjResult is the guest language's explicit success/error value.
type ObjResult struct {
	ObjHeader
	Status  ResultStatus
	Payload Value
}

// ObjFile wraps an open host file.
type ObjFile struct {
	ObjHeader
	File *os.File
	Path string
	Mode string
}

// ObjAbstract wraps opaque native state with its own method table.
// Release, when set, runs once when the collector frees the object.
type ObjAbstract struct {
	ObjHeader
	Type    string
	State   any
	Methods Table
	Release func()
}

// ---------------------------------------------------------------------------
// Approximate sizes used for heap accounting
// ---------------------------------------------------------------------------

const (
	sizeHeader   = 32
	sizeValue    = 8
	sizeTableRow = 24
)
