package compiler

import (
	"fmt"
	"strings"

	"github.com/chazu/dictu/internal/logging"
	"github.com/chazu/dictu/vm"
)

var log = logging.Get("compiler")

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// Error is a single compile diagnostic.
type Error struct {
	Line    int
	Where   string // " at 'lexeme'", " at end" or empty for lexical errors
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Message)
}

// ErrorList collects every diagnostic found in one compile pass.
type ErrorList []*Error

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// ---------------------------------------------------------------------------
// Compiler state
// ---------------------------------------------------------------------------

// Local is a variable living in a stack slot of the current function.
// depth is -1 between declaration and initialization.
type Local struct {
	name       string
	depth      int
	isCaptured bool
	constant   bool
	file       bool // bound by `with`; closed on every exit from its scope
}

// Upvalue records where a captured variable comes from: a local slot of
// the enclosing function, or one of its upvalues.
type Upvalue struct {
	index    uint8
	isLocal  bool
	constant bool
}

// Loop is the innermost enclosing loop. start is where `continue` jumps;
// body is the first byte of the loop body, where break markers are
// searched from.
type Loop struct {
	start      int
	body       int
	scopeDepth int
	enclosing  *Loop
}

// ClassCompiler tracks the class body being compiled.
type ClassCompiler struct {
	enclosing     *ClassCompiler
	name          string
	kind          vm.ClassKind
	hasSuperclass bool
}

// Compiler holds the state of one function being compiled. Compilers form
// a chain through enclosing, innermost first.
type Compiler struct {
	enclosing  *Compiler
	function   *vm.ObjFunction
	kind       vm.FunctionKind
	locals     []Local
	upvalues   []Upvalue
	scopeDepth int
	loop       *Loop

	// constRun holds the offsets of the OpConstant instructions at the
	// very end of the chunk, oldest first. Any other emission clears it.
	constRun []int
}

// Parser drives scanning and code generation for one source text.
type Parser struct {
	vm      *vm.VM
	module  *vm.ObjModule
	lexer   *Lexer
	current Token
	prev    Token

	hadError  bool
	panicMode bool
	errors    ErrorList

	compiler *Compiler
	class    *ClassCompiler

	// module-level names declared with const
	moduleConsts map[string]bool
}

const (
	maxLocals    = 256
	maxUpvalues  = 256
	maxConstants = 1 << 16
	maxJump      = 1<<16 - 1
)

// Compile compiles source into the top-level function of module. Every
// diagnostic is returned as an ErrorList; no function is returned when
// any was reported.
func Compile(v *vm.VM, module *vm.ObjModule, source string) (*vm.ObjFunction, error) {
	p := &Parser{
		vm:           v,
		module:       module,
		lexer:        NewLexer(source),
		moduleConsts: make(map[string]bool),
	}
	p.beginFunction(vm.FunctionTopLevel, "")

	p.advance()
	for !p.match(TokenEOF) {
		p.declaration()
	}
	fn, _ := p.endFunction()

	if p.hadError {
		log.Debugf("compile of %s failed with %d errors", module.Name.Chars, len(p.errors))
		return nil, p.errors
	}
	return fn, nil
}

// ---------------------------------------------------------------------------
// Token handling
// ---------------------------------------------------------------------------

func (p *Parser) advance() {
	p.prev = p.current
	for {
		p.current = p.lexer.NextToken()
		if p.current.Type != TokenError {
			return
		}
		p.errorAtCurrent(p.current.Literal)
	}
}

func (p *Parser) consume(t TokenType, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *Parser) check(t TokenType) bool {
	return p.current.Type == t
}

func (p *Parser) match(t TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

// ---------------------------------------------------------------------------
// Error reporting
// ---------------------------------------------------------------------------

func (p *Parser) errorAt(tok Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	e := &Error{Line: tok.Line, Message: msg}
	switch tok.Type {
	case TokenEOF:
		e.Where = " at end"
	case TokenError:
	default:
		e.Where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	p.errors = append(p.errors, e)
}

func (p *Parser) error(msg string) {
	p.errorAt(p.prev, msg)
}

func (p *Parser) errorAtCurrent(msg string) {
	p.errorAt(p.current, msg)
}

// synchronize skips tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Type != TokenEOF {
		if p.prev.Type == TokenSemicolon {
			return
		}
		switch p.current.Type {
		case TokenClass, TokenDef, TokenVar, TokenConst, TokenFor, TokenIf,
			TokenWhile, TokenReturn, TokenImport, TokenFrom, TokenWith,
			TokenTrait, TokenAbstract, TokenBreak, TokenContinue:
			return
		}
		p.advance()
	}
}

// ---------------------------------------------------------------------------
// Emission
// ---------------------------------------------------------------------------

func (p *Parser) chunk() *vm.Chunk {
	return &p.compiler.function.Chunk
}

func (p *Parser) emitByte(b byte) {
	p.compiler.constRun = p.compiler.constRun[:0]
	p.chunk().Write(b, p.prev.Line)
}

func (p *Parser) emitOp(op vm.Opcode) {
	p.emitByte(byte(op))
}

func (p *Parser) emitOps(ops ...vm.Opcode) {
	for _, op := range ops {
		p.emitOp(op)
	}
}

func (p *Parser) emitShort(v uint16) {
	p.compiler.constRun = p.compiler.constRun[:0]
	p.chunk().WriteUint16(v, p.prev.Line)
}

func (p *Parser) emitOpShort(op vm.Opcode, v uint16) {
	p.emitOp(op)
	p.emitShort(v)
}

func (p *Parser) makeConstant(val vm.Value) uint16 {
	idx := p.chunk().AddConstant(val)
	if idx >= maxConstants {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return uint16(idx)
}

// emitConstant loads val and records the load for constant folding.
func (p *Parser) emitConstant(val vm.Value) {
	idx := p.makeConstant(val)
	offset := p.chunk().Len()
	run := p.compiler.constRun
	p.emitOpShort(vm.OpConstant, idx)
	p.compiler.constRun = append(run, offset)
}

func (p *Parser) identifierConstant(name string) uint16 {
	return p.makeConstant(p.vm.StringValue(name))
}

// mark returns the current offset as a jump target. Constants emitted
// before a target can no longer be folded with ones after it.
func (p *Parser) mark() int {
	p.compiler.constRun = p.compiler.constRun[:0]
	return p.chunk().Len()
}

func (p *Parser) emitJump(op vm.Opcode) int {
	p.emitOp(op)
	p.emitShort(0xffff)
	return p.chunk().Len() - 2
}

func (p *Parser) patchJump(offset int) {
	jump := p.mark() - offset - 2
	if jump > maxJump {
		p.error("Too much code to jump over.")
	}
	p.chunk().PutUint16(offset, uint16(jump))
}

func (p *Parser) emitLoop(start int) {
	p.emitOp(vm.OpLoop)
	offset := p.chunk().Len() - start + 2
	if offset > maxJump {
		p.error("Loop body too large.")
	}
	p.emitShort(uint16(offset))
}

func (p *Parser) emitReturn() {
	if p.compiler.kind == vm.FunctionInitializer {
		p.emitOp(vm.OpGetLocal)
		p.emitByte(0)
	} else {
		p.emitOp(vm.OpNil)
	}
	p.emitOp(vm.OpReturn)
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

// beginFunction pushes a compiler for a new function. Slot zero holds the
// callee, or the receiver for methods.
func (p *Parser) beginFunction(kind vm.FunctionKind, name string) {
	fn := p.vm.NewFunction(p.module, kind)
	p.vm.PushCompilerRoot(fn)
	if name != "" {
		fn.Name = p.vm.CopyString(name)
	}

	c := &Compiler{enclosing: p.compiler, function: fn, kind: kind}
	slotZero := ""
	switch kind {
	case vm.FunctionMethod, vm.FunctionInitializer, vm.FunctionStatic, vm.FunctionAbstract:
		slotZero = "this"
	}
	c.locals = append(c.locals, Local{name: slotZero, depth: 0})
	p.compiler = c
}

// endFunction finishes the current function and returns it with the
// upvalue descriptors the enclosing function must emit.
func (p *Parser) endFunction() (*vm.ObjFunction, []Upvalue) {
	p.emitReturn()
	c := p.compiler
	fn := c.function
	fn.UpvalueCount = len(c.upvalues)

	p.vm.PopCompilerRoot()
	p.compiler = c.enclosing
	return fn, c.upvalues
}

// emitClosure loads fn as a closure in the enclosing function.
func (p *Parser) emitClosure(fn *vm.ObjFunction, upvalues []Upvalue) {
	idx := p.makeConstant(fn.Value())
	p.emitOpShort(vm.OpClosure, idx)
	p.emitByte(byte(len(upvalues)))
	for _, up := range upvalues {
		if up.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(up.index)
	}
}

// ---------------------------------------------------------------------------
// Scopes and variables
// ---------------------------------------------------------------------------

func (p *Parser) beginScope() {
	p.compiler.scopeDepth++
}

func (p *Parser) endScope() {
	c := p.compiler
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		if c.locals[len(c.locals)-1].isCaptured {
			p.emitOp(vm.OpCloseUpvalue)
		} else {
			p.emitOp(vm.OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// discardLocals pops every local deeper than depth without forgetting
// them; used before jumping out of a loop body.
func (p *Parser) discardLocals(depth int) {
	c := p.compiler
	for i := len(c.locals) - 1; i >= 0 && c.locals[i].depth > depth; i-- {
		if c.locals[i].file {
			p.emitOp(vm.OpCloseFile)
			p.emitByte(byte(i))
		}
		if c.locals[i].isCaptured {
			p.emitOp(vm.OpCloseUpvalue)
		} else {
			p.emitOp(vm.OpPop)
		}
	}
}

// closeFiles closes every `with` file open in the current function. Used
// before a return, which leaves all scopes at once.
func (p *Parser) closeFiles() {
	c := p.compiler
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].file {
			p.emitOp(vm.OpCloseFile)
			p.emitByte(byte(i))
		}
	}
}

func (p *Parser) addLocal(name string, constant bool) {
	c := p.compiler
	if len(c.locals) == maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	c.locals = append(c.locals, Local{name: name, depth: -1, constant: constant})
}

// declareVariable records the name in p.prev as a local of the current
// scope. Module-level names are not declared.
func (p *Parser) declareVariable(constant bool) {
	c := p.compiler
	if c.scopeDepth == 0 {
		return
	}
	name := p.prev.Lexeme
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := &c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name == name {
			p.error("Variable with this name already declared in this scope.")
		}
	}
	p.addLocal(name, constant)
}

// parseVariable consumes a name and declares it. For module-level names it
// returns the name's constant index.
func (p *Parser) parseVariable(msg string, constant bool) uint16 {
	p.consume(TokenIdentifier, msg)
	p.declareVariable(constant)
	if p.compiler.scopeDepth > 0 {
		return 0
	}
	if constant {
		p.moduleConsts[p.prev.Lexeme] = true
	}
	return p.identifierConstant(p.prev.Lexeme)
}

func (p *Parser) markInitialized() {
	c := p.compiler
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

func (p *Parser) defineVariable(global uint16) {
	if p.compiler.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpShort(vm.OpDefineModule, global)
}

func (p *Parser) resolveLocal(c *Compiler, name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				p.error("Cannot read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (p *Parser) addUpvalue(c *Compiler, index uint8, isLocal, constant bool) int {
	for i, up := range c.upvalues {
		if up.index == index && up.isLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) == maxUpvalues-1 {
		p.error("Too many closure variables in function.")
		return 0
	}
	c.upvalues = append(c.upvalues, Upvalue{index: index, isLocal: isLocal, constant: constant})
	return len(c.upvalues) - 1
}

// resolveUpvalue finds name in an enclosing function, adding an upvalue to
// every function between there and c.
func (p *Parser) resolveUpvalue(c *Compiler, name string) int {
	if c.enclosing == nil {
		return -1
	}
	if local := p.resolveLocal(c.enclosing, name); local != -1 {
		c.enclosing.locals[local].isCaptured = true
		return p.addUpvalue(c, uint8(local), true, c.enclosing.locals[local].constant)
	}
	if up := p.resolveUpvalue(c.enclosing, name); up != -1 {
		return p.addUpvalue(c, uint8(up), false, c.enclosing.upvalues[up].constant)
	}
	return -1
}
