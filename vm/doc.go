// Package vm implements the dictu virtual machine.
//
// This package contains:
//   - NaN-boxed value representation
//   - The collector-owned object arena and mark-sweep collector
//   - Robin Hood hash tables for strings, dict keys and sets
//   - Bytecode chunks, opcodes and the disassembler
//   - The stack-based bytecode interpreter
//   - Builtin functions and per-type method tables
package vm
