package vm

import (
	"encoding/binary"
)

// Chunk is a unit of compiled bytecode: the instruction stream, one source
// line per code byte, and the constant pool. Chunks live only in memory;
// there is no serialized form.
type Chunk struct {
	// Code holds opcodes and their immediate operands.
	Code []byte

	// Lines parallels Code: Lines[i] is the source line of Code[i].
	Lines []int

	// Constants is the constant pool referenced by 16-bit operands.
	Constants []Value

	// constIndex maps Constants[:indexed] back to their positions.
	constIndex map[Value]int
	indexed    int
}

// Write appends a single byte tagged with its source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode.
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// WriteUint16 appends a big-endian 16-bit operand.
func (c *Chunk) WriteUint16(v uint16, line int) {
	c.Write(byte(v>>8), line)
	c.Write(byte(v), line)
}

// AddConstant appends value to the pool and returns its index. Identical
// values (by bits) are shared.
func (c *Chunk) AddConstant(value Value) int {
	if c.constIndex == nil {
		c.constIndex = make(map[Value]int, len(c.Constants))
	}
	for ; c.indexed < len(c.Constants); c.indexed++ {
		if _, ok := c.constIndex[c.Constants[c.indexed]]; !ok {
			c.constIndex[c.Constants[c.indexed]] = c.indexed
		}
	}
	if i, ok := c.constIndex[value]; ok {
		return i
	}
	c.Constants = append(c.Constants, value)
	c.constIndex[value] = len(c.Constants) - 1
	c.indexed = len(c.Constants)
	return len(c.Constants) - 1
}

// ReadUint16 decodes the big-endian operand at offset.
func (c *Chunk) ReadUint16(offset int) uint16 {
	return binary.BigEndian.Uint16(c.Code[offset:])
}

// PutUint16 overwrites the operand at offset. Used by jump patching.
func (c *Chunk) PutUint16(offset int, v uint16) {
	binary.BigEndian.PutUint16(c.Code[offset:], v)
}

// Truncate drops all code from offset onward.
func (c *Chunk) Truncate(offset int) {
	c.Code = c.Code[:offset]
	c.Lines = c.Lines[:offset]
}

// Len returns the length of the code section.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// LineAt returns the source line for the instruction at offset.
func (c *Chunk) LineAt(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		if len(c.Lines) == 0 {
			return 0
		}
		return c.Lines[len(c.Lines)-1]
	}
	return c.Lines[offset]
}

// InstructionLen returns the width in bytes of the instruction at offset.
// OpClosure is variable length: its constant index is followed by an
// upvalue count and one (isLocal, index) pair per upvalue.
func (c *Chunk) InstructionLen(offset int) int {
	op := Opcode(c.Code[offset])
	if op == OpClosure {
		return 4 + 2*int(c.Code[offset+3])
	}
	return 1 + op.OperandLen()
}
