package vm

import (
	"fmt"
	"io"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction renders the instruction at offset and returns the
// offset of the next one.
func (vm *VM) DisassembleInstruction(chunk *Chunk, offset int) (string, int) {
	op := Opcode(chunk.Code[offset])
	name := op.String()
	next := offset + chunk.InstructionLen(offset)
	prefix := fmt.Sprintf("%04d %4d  %-20s", offset, chunk.LineAt(offset), name)

	constant := func(at int) string {
		idx := chunk.ReadUint16(at)
		return fmt.Sprintf("%4d '%s'", idx, vm.constantString(chunk.Constants[idx]))
	}

	switch op {
	case OpConstant, OpDefineModule, OpGetModule, OpSetModule,
		OpGetProperty, OpGetPropertyNoPop, OpSetProperty, OpGetSuper,
		OpMethod, OpClassVar, OpImport, OpImportBuiltin, OpImportFrom:
		return prefix + constant(offset+1), next

	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall, OpCloseFile:
		return fmt.Sprintf("%s%4d", prefix, chunk.Code[offset+1]), next

	case OpNewList, OpNewDict:
		return fmt.Sprintf("%s%4d", prefix, chunk.ReadUint16(offset+1)), next

	case OpJump, OpJumpIfFalse, OpBreak:
		jump := int(chunk.ReadUint16(offset + 1))
		return fmt.Sprintf("%s%4d -> %d", prefix, offset, offset+3+jump), next
	case OpLoop:
		jump := int(chunk.ReadUint16(offset + 1))
		return fmt.Sprintf("%s%4d -> %d", prefix, offset, offset+3-jump), next

	case OpInvoke, OpSuperInvoke:
		return fmt.Sprintf("%s(%d args)%s", prefix, chunk.Code[offset+3], constant(offset+1)), next

	case OpClass:
		return fmt.Sprintf("%s%s kind=%d", prefix, constant(offset+1), chunk.Code[offset+3]), next

	case OpDefineOptional:
		return fmt.Sprintf("%s%4d %4d", prefix, chunk.Code[offset+1], chunk.Code[offset+2]), next

	case OpClosure:
		var sb strings.Builder
		sb.WriteString(prefix + constant(offset+1))
		count := int(chunk.Code[offset+3])
		for i := 0; i < count; i++ {
			at := offset + 4 + 2*i
			kind := "upvalue"
			if chunk.Code[at] == 1 {
				kind = "local"
			}
			fmt.Fprintf(&sb, "\n%04d      |                     %s %d", at, kind, chunk.Code[at+1])
		}
		return sb.String(), next
	}
	return strings.TrimRight(prefix, " "), next
}

func (vm *VM) constantString(val Value) string {
	if s, ok := As[*ObjString](vm, val); ok {
		return s.Chars
	}
	return vm.ValueString(val)
}

// Disassemble writes a listing of fn and, after it, every function it
// contains as a constant.
func (vm *VM) Disassemble(w io.Writer, fn *ObjFunction) {
	name := "<script>"
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	fmt.Fprintf(w, "== %s ==\n", name)

	chunk := &fn.Chunk
	for offset := 0; offset < len(chunk.Code); {
		var line string
		line, offset = vm.DisassembleInstruction(chunk, offset)
		fmt.Fprintln(w, line)
	}

	for _, c := range chunk.Constants {
		if inner, ok := As[*ObjFunction](vm, c); ok {
			fmt.Fprintln(w)
			vm.Disassemble(w, inner)
		}
	}
}
