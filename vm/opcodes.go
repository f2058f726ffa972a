package vm

import "fmt"

// Opcode is a single bytecode instruction.
// Opcodes are grouped into ranges by category.
type Opcode byte

const (
	// ========================================================================
	// Constants and stack (0x00-0x0F)
	// ========================================================================

	OpConstant Opcode = 0x00 // Push constant: OpConstant <index:u16>
	OpNil      Opcode = 0x01 // Push nil
	OpTrue     Opcode = 0x02 // Push true
	OpFalse    Opcode = 0x03 // Push false
	OpPop      Opcode = 0x04 // Pop top of stack
	OpPopRepl  Opcode = 0x05 // Pop and echo (REPL expression statements)

	// ========================================================================
	// Variables (0x10-0x1F)
	// ========================================================================

	OpGetLocal     Opcode = 0x10 // Push local: OpGetLocal <slot:u8>
	OpSetLocal     Opcode = 0x11 // Store TOS in local: OpSetLocal <slot:u8>
	OpDefineModule Opcode = 0x12 // Pop into module binding: <name:u16>
	OpGetModule    Opcode = 0x13 // Push module binding, falling back to globals: <name:u16>
	OpSetModule    Opcode = 0x14 // Store TOS in existing module binding: <name:u16>
	OpGetUpvalue   Opcode = 0x15 // Push upvalue: <index:u8>
	OpSetUpvalue   Opcode = 0x16 // Store TOS in upvalue: <index:u8>
	OpCloseUpvalue Opcode = 0x17 // Close upvalue for TOS slot, then pop

	// ========================================================================
	// Properties (0x20-0x2F)
	// ========================================================================

	OpGetProperty       Opcode = 0x20 // Replace receiver with property: <name:u16>
	OpGetPropertyNoPop  Opcode = 0x21 // Push property, keep receiver: <name:u16>
	OpSetProperty       Opcode = 0x22 // receiver value -> value: <name:u16>
	OpGetSuper          Opcode = 0x23 // this super -> bound method: <name:u16>
	OpSetInitProperties Opcode = 0x24 // Copy `var` init params into fields

	// ========================================================================
	// Operators (0x30-0x4F)
	// ========================================================================

	OpEqual        Opcode = 0x30
	OpGreater      Opcode = 0x31
	OpGreaterEqual Opcode = 0x32
	OpLess         Opcode = 0x33
	OpLessEqual    Opcode = 0x34
	OpAdd          Opcode = 0x35
	OpSubtract     Opcode = 0x36
	OpMultiply     Opcode = 0x37
	OpDivide       Opcode = 0x38
	OpMod          Opcode = 0x39
	OpPow          Opcode = 0x3A
	OpBitAnd       Opcode = 0x3B
	OpBitOr        Opcode = 0x3C
	OpBitXor       Opcode = 0x3D
	OpBitNot       Opcode = 0x3E
	OpNot          Opcode = 0x3F
	OpNegate       Opcode = 0x40

	// ========================================================================
	// Control flow (0x50-0x5F)
	// ========================================================================

	OpJump        Opcode = 0x50 // Forward jump: <offset:u16>
	OpJumpIfFalse Opcode = 0x51 // Forward jump if TOS falsey (no pop): <offset:u16>
	OpLoop        Opcode = 0x52 // Backward jump: <offset:u16>
	OpBreak       Opcode = 0x53 // Provisional break, rewritten to OpJump: <offset:u16>

	// ========================================================================
	// Calls and functions (0x60-0x6F)
	// ========================================================================

	OpCall           Opcode = 0x60 // Call callee below args: <argc:u8>
	OpInvoke         Opcode = 0x61 // Method call: <name:u16> <argc:u8>
	OpSuperInvoke    Opcode = 0x62 // Super method call: <name:u16> <argc:u8>
	OpClosure        Opcode = 0x63 // <fn:u16> <count:u8> then count x (isLocal:u8, index:u8)
	OpReturn         Opcode = 0x64 // Return TOS to caller
	OpDefineOptional Opcode = 0x65 // Shuffle optional params: <arity:u8> <optional:u8>

	// ========================================================================
	// Classes (0x70-0x7F)
	// ========================================================================

	OpClass    Opcode = 0x70 // Push new class: <name:u16> <kind:u8>
	OpInherit  Opcode = 0x71 // super class -> super (copy super's methods)
	OpMethod   Opcode = 0x72 // class closure -> class: <name:u16>
	OpClassVar Opcode = 0x73 // class value -> class (static property): <name:u16>
	OpUse      Opcode = 0x74 // class trait -> class (merge trait methods)
	OpEndClass Opcode = 0x75 // Validate abstract contract, pop class

	// ========================================================================
	// Modules (0x80-0x8F)
	// ========================================================================

	OpImport        Opcode = 0x80 // Push (and run once) a source module: <path:u16>
	OpImportBuiltin Opcode = 0x81 // Push a native module: <name:u16>
	OpImportFrom    Opcode = 0x82 // module -> module value: <name:u16>

	// ========================================================================
	// Collections (0x90-0x9F)
	// ========================================================================

	OpNewList         Opcode = 0x90 // Pop count values into a list: <count:u16>
	OpNewDict         Opcode = 0x91 // Pop count key/value pairs into a dict: <count:u16>
	OpSubscript       Opcode = 0x92 // container index -> value
	OpSubscriptAssign Opcode = 0x93 // container index value -> value
	OpSubscriptPush   Opcode = 0x94 // container index -> container index value
	OpSlice           Opcode = 0x95 // container start end -> slice

	// ========================================================================
	// Files (0xA0-0xAF)
	// ========================================================================

	OpOpenFile  Opcode = 0xA0 // path mode -> file
	OpCloseFile Opcode = 0xA1 // Close the file held in local: <slot:u8>
)

// OpcodeInfo provides metadata about each opcode for disassembly and for
// walking instruction boundaries.
type OpcodeInfo struct {
	Name       string // Human-readable name
	OperandLen int    // Number of fixed operand bytes following the opcode
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpConstant: {"CONSTANT", 2},
	OpNil:      {"NIL", 0},
	OpTrue:     {"TRUE", 0},
	OpFalse:    {"FALSE", 0},
	OpPop:      {"POP", 0},
	OpPopRepl:  {"POP_REPL", 0},

	OpGetLocal:     {"GET_LOCAL", 1},
	OpSetLocal:     {"SET_LOCAL", 1},
	OpDefineModule: {"DEFINE_MODULE", 2},
	OpGetModule:    {"GET_MODULE", 2},
	OpSetModule:    {"SET_MODULE", 2},
	OpGetUpvalue:   {"GET_UPVALUE", 1},
	OpSetUpvalue:   {"SET_UPVALUE", 1},
	OpCloseUpvalue: {"CLOSE_UPVALUE", 0},

	OpGetProperty:       {"GET_PROPERTY", 2},
	OpGetPropertyNoPop:  {"GET_PROPERTY_NO_POP", 2},
	OpSetProperty:       {"SET_PROPERTY", 2},
	OpGetSuper:          {"GET_SUPER", 2},
	OpSetInitProperties: {"SET_INIT_PROPERTIES", 0},

	OpEqual:        {"EQUAL", 0},
	OpGreater:      {"GREATER", 0},
	OpGreaterEqual: {"GREATER_EQUAL", 0},
	OpLess:         {"LESS", 0},
	OpLessEqual:    {"LESS_EQUAL", 0},
	OpAdd:          {"ADD", 0},
	OpSubtract:     {"SUBTRACT", 0},
	OpMultiply:     {"MULTIPLY", 0},
	OpDivide:       {"DIVIDE", 0},
	OpMod:          {"MOD", 0},
	OpPow:          {"POW", 0},
	OpBitAnd:       {"BITWISE_AND", 0},
	OpBitOr:        {"BITWISE_OR", 0},
	OpBitXor:       {"BITWISE_XOR", 0},
	OpBitNot:       {"BITWISE_NOT", 0},
	OpNot:          {"NOT", 0},
	OpNegate:       {"NEGATE", 0},

	OpJump:        {"JUMP", 2},
	OpJumpIfFalse: {"JUMP_IF_FALSE", 2},
	OpLoop:        {"LOOP", 2},
	OpBreak:       {"BREAK", 2},

	OpCall:           {"CALL", 1},
	OpInvoke:         {"INVOKE", 3},
	OpSuperInvoke:    {"SUPER_INVOKE", 3},
	OpClosure:        {"CLOSURE", 3},
	OpReturn:         {"RETURN", 0},
	OpDefineOptional: {"DEFINE_OPTIONAL", 2},

	OpClass:    {"CLASS", 3},
	OpInherit:  {"INHERIT", 0},
	OpMethod:   {"METHOD", 2},
	OpClassVar: {"CLASS_VAR", 2},
	OpUse:      {"USE", 0},
	OpEndClass: {"END_CLASS", 0},

	OpImport:        {"IMPORT", 2},
	OpImportBuiltin: {"IMPORT_BUILTIN", 2},
	OpImportFrom:    {"IMPORT_FROM", 2},

	OpNewList:         {"NEW_LIST", 2},
	OpNewDict:         {"NEW_DICT", 2},
	OpSubscript:       {"SUBSCRIPT", 0},
	OpSubscriptAssign: {"SUBSCRIPT_ASSIGN", 0},
	OpSubscriptPush:   {"SUBSCRIPT_PUSH", 0},
	OpSlice:           {"SLICE", 0},

	OpOpenFile:  {"OPEN_FILE", 0},
	OpCloseFile: {"CLOSE_FILE", 1},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns an OpcodeInfo named "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of fixed operand bytes for this opcode.
// OpClosure carries additional capture pairs; see Chunk.InstructionLen.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// IsJump reports whether op carries a jump offset.
func (op Opcode) IsJump() bool {
	return op >= OpJump && op <= OpBreak
}

// AllOpcodes returns every defined opcode.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		ops = append(ops, op)
	}
	return ops
}
