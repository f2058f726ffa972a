package compiler

import (
	"github.com/chazu/dictu/vm"
)

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func (p *Parser) declaration() {
	switch {
	case p.match(TokenClass):
		p.classDeclaration(vm.ClassDefault)
	case p.match(TokenAbstract):
		p.consume(TokenClass, "Expect 'class' after 'abstract'.")
		p.classDeclaration(vm.ClassAbstract)
	case p.match(TokenTrait):
		p.classDeclaration(vm.ClassTrait)
	case p.match(TokenDef):
		if p.check(TokenIdentifier) {
			p.funDeclaration()
		} else {
			p.anonymousFunction(false)
			p.finishExpressionStatement()
		}
	case p.match(TokenVar):
		p.varDeclaration(false)
	case p.match(TokenConst):
		p.varDeclaration(true)
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) varDeclaration(constant bool) {
	for {
		global := p.parseVariable("Expect variable name.", constant)
		if p.match(TokenEqual) {
			p.expression()
		} else {
			if constant {
				p.error("Constant must be initialized.")
			}
			p.emitOp(vm.OpNil)
		}
		p.defineVariable(global)
		if !p.match(TokenComma) {
			break
		}
	}
	p.consume(TokenSemicolon, "Expect ';' after variable declaration.")
}

func (p *Parser) funDeclaration() {
	global := p.parseVariable("Expect function name.", false)
	name := p.prev.Lexeme
	// a function may refer to itself
	p.markInitialized()
	p.function(vm.FunctionPlain, name)
	p.defineVariable(global)
}

// function compiles a parameter list and body into a new function and
// emits the closure that creates it. Abstract methods have no body; arrow
// bodies return their single expression.
func (p *Parser) function(kind vm.FunctionKind, name string) {
	p.beginFunction(kind, name)
	p.beginScope()

	p.consume(TokenLeftParen, "Expect '(' after function name.")
	p.parameters()
	p.consume(TokenRightParen, "Expect ')' after parameters.")

	switch {
	case kind == vm.FunctionAbstract:
		p.consume(TokenSemicolon, "Expect ';' after abstract method declaration.")
	case kind != vm.FunctionInitializer && p.match(TokenArrow):
		p.expression()
		p.emitOp(vm.OpReturn)
		if kind != vm.FunctionArrow {
			p.match(TokenSemicolon)
		}
	default:
		p.consume(TokenLeftBrace, "Expect '{' before function body.")
		p.block()
	}

	fn, upvalues := p.endFunction()
	p.emitClosure(fn, upvalues)
}

// parameters declares each parameter as a local. Default values are
// evaluated in the prologue and placed by OpDefineOptional; `var`
// parameters of an initializer are copied into instance fields.
func (p *Parser) parameters() {
	fn := p.compiler.function
	if p.check(TokenRightParen) {
		return
	}

	for {
		isField := p.match(TokenVar)
		if isField && p.compiler.kind != vm.FunctionInitializer {
			p.error("Only initializers can declare 'var' parameters.")
		}

		p.parseVariable("Expect parameter name.", false)
		name := p.prev.Lexeme
		p.markInitialized()
		slot := len(p.compiler.locals) - 1

		if p.match(TokenEqual) {
			p.expression()
			fn.ArityOptional++
		} else {
			if fn.ArityOptional > 0 {
				p.error("Cannot have non-optional parameter after optional.")
			}
			fn.Arity++
		}
		if fn.Arity+fn.ArityOptional > 255 {
			p.errorAtCurrent("Cannot have more than 255 parameters.")
		}

		if isField {
			fn.InitFields = append(fn.InitFields, vm.InitField{
				Name: p.vm.CopyString(name),
				Slot: slot,
			})
		}

		if !p.match(TokenComma) {
			break
		}
	}

	if fn.ArityOptional > 0 {
		p.emitOp(vm.OpDefineOptional)
		p.emitByte(byte(fn.Arity))
		p.emitByte(byte(fn.ArityOptional))
	}
	if len(fn.InitFields) > 0 {
		p.emitOp(vm.OpSetInitProperties)
	}
}

// ---------------------------------------------------------------------------
// Classes and traits
// ---------------------------------------------------------------------------

func (p *Parser) classDeclaration(kind vm.ClassKind) {
	p.consume(TokenIdentifier, "Expect class name.")
	className := p.prev.Lexeme
	nameConst := p.identifierConstant(className)
	p.declareVariable(false)

	p.emitOpShort(vm.OpClass, nameConst)
	p.emitByte(byte(kind))
	p.defineVariable(nameConst)

	cc := &ClassCompiler{enclosing: p.class, name: className, kind: kind}
	p.class = cc

	if p.match(TokenLess) {
		if kind == vm.ClassTrait {
			p.error("Traits cannot inherit.")
		}
		p.consume(TokenIdentifier, "Expect superclass name.")
		if p.prev.Lexeme == className {
			p.error("A class cannot inherit from itself.")
		}
		p.variable(false)

		p.beginScope()
		p.addLocal("super", false)
		p.markInitialized()

		p.namedVariable(className, false)
		p.emitOp(vm.OpInherit)
		cc.hasSuperclass = true
	}

	p.namedVariable(className, false)
	p.consume(TokenLeftBrace, "Expect '{' before class body.")
	for !p.check(TokenRightBrace) && !p.check(TokenEOF) {
		p.classMember()
	}
	p.consume(TokenRightBrace, "Expect '}' after class body.")
	p.emitOp(vm.OpEndClass)

	if cc.hasSuperclass {
		p.endScope()
	}
	p.class = cc.enclosing
}

func (p *Parser) classMember() {
	switch {
	case p.match(TokenUse):
		p.useStatement()
	case p.match(TokenVar):
		p.classVariable()
	case p.match(TokenStatic):
		p.method(vm.FunctionStatic)
	case p.match(TokenAbstract):
		if p.class.kind != vm.ClassAbstract {
			p.error("Abstract methods can only be declared in abstract classes.")
		}
		p.method(vm.FunctionAbstract)
	default:
		p.method(vm.FunctionMethod)
	}
	if p.panicMode {
		p.synchronizeMember()
	}
}

// synchronizeMember skips to the next likely class member after an error.
func (p *Parser) synchronizeMember() {
	p.panicMode = false
	for !p.check(TokenEOF) && !p.check(TokenRightBrace) {
		if p.prev.Type == TokenSemicolon || p.prev.Type == TokenRightBrace {
			return
		}
		switch p.current.Type {
		case TokenUse, TokenVar, TokenStatic, TokenAbstract:
			return
		}
		p.advance()
	}
}

// useStatement compiles `use A, B;`, merging each trait's methods.
func (p *Parser) useStatement() {
	if p.class.kind == vm.ClassTrait {
		p.error("Traits cannot use other traits.")
	}
	for {
		p.consume(TokenIdentifier, "Expect trait name after 'use'.")
		p.variable(false)
		p.emitOp(vm.OpUse)
		if !p.match(TokenComma) {
			break
		}
	}
	p.consume(TokenSemicolon, "Expect ';' after use statement.")
}

func (p *Parser) classVariable() {
	p.consume(TokenIdentifier, "Expect class variable name.")
	name := p.identifierConstant(p.prev.Lexeme)
	if p.match(TokenEqual) {
		p.expression()
	} else {
		p.emitOp(vm.OpNil)
	}
	p.emitOpShort(vm.OpClassVar, name)
	p.consume(TokenSemicolon, "Expect ';' after class variable declaration.")
}

func (p *Parser) method(kind vm.FunctionKind) {
	p.consume(TokenIdentifier, "Expect method name.")
	name := p.prev.Lexeme
	constant := p.identifierConstant(name)
	if kind == vm.FunctionMethod && name == "init" {
		kind = vm.FunctionInitializer
	}
	p.function(kind, name)
	p.emitOpShort(vm.OpMethod, constant)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) statement() {
	switch {
	case p.match(TokenIf):
		p.ifStatement()
	case p.match(TokenWhile):
		p.whileStatement()
	case p.match(TokenFor):
		p.forStatement()
	case p.match(TokenBreak):
		p.breakStatement()
	case p.match(TokenContinue):
		p.continueStatement()
	case p.match(TokenReturn):
		p.returnStatement()
	case p.match(TokenImport):
		p.importStatement()
	case p.match(TokenFrom):
		p.fromStatement()
	case p.match(TokenWith):
		p.withStatement()
	case p.match(TokenLeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) block() {
	for !p.check(TokenRightBrace) && !p.check(TokenEOF) {
		p.declaration()
	}
	p.consume(TokenRightBrace, "Expect '}' after block.")
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.finishExpressionStatement()
}

// finishExpressionStatement discards the value of an expression statement.
// Top-level statements typed at the REPL echo it instead.
func (p *Parser) finishExpressionStatement() {
	p.consume(TokenSemicolon, "Expect ';' after expression.")
	c := p.compiler
	if p.vm.IsREPL() && p.module.Path == nil && c.kind == vm.FunctionTopLevel && c.scopeDepth == 0 {
		p.emitOp(vm.OpPopRepl)
		return
	}
	p.emitOp(vm.OpPop)
}

func (p *Parser) ifStatement() {
	p.consume(TokenLeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(vm.OpJumpIfFalse)
	p.emitOp(vm.OpPop)
	p.statement()

	elseJump := p.emitJump(vm.OpJump)
	p.patchJump(thenJump)
	p.emitOp(vm.OpPop)

	if p.match(TokenElse) {
		p.statement()
	}
	p.patchJump(elseJump)
}

// beginLoop opens a loop whose `continue` target is start. The body
// begins at the current offset.
func (p *Parser) beginLoop(start int) {
	c := p.compiler
	c.loop = &Loop{
		start:      start,
		body:       p.chunk().Len(),
		scopeDepth: c.scopeDepth,
		enclosing:  c.loop,
	}
}

// endLoop closes the innermost loop, rewriting every break emitted in its
// body into a jump to the current offset.
func (p *Parser) endLoop() {
	c := p.compiler
	end := p.mark()
	chunk := p.chunk()
	for i := c.loop.body; i < end; i += chunk.InstructionLen(i) {
		if vm.Opcode(chunk.Code[i]) == vm.OpBreak {
			chunk.Code[i] = byte(vm.OpJump)
			jump := end - i - 3
			if jump > maxJump {
				p.error("Too much code to jump over.")
			}
			chunk.PutUint16(i+1, uint16(jump))
		}
	}
	c.loop = c.loop.enclosing
}

func (p *Parser) whileStatement() {
	start := p.mark()
	p.consume(TokenLeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(vm.OpJumpIfFalse)
	p.emitOp(vm.OpPop)

	p.beginLoop(start)
	p.statement()
	p.emitLoop(start)

	p.patchJump(exitJump)
	p.emitOp(vm.OpPop)
	p.endLoop()
}

// forStatement compiles the C-style `for (init; cond; incr) body`. The
// increment is emitted before the body and reached by a loop back from
// the end of the body, so `continue` runs it.
func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(TokenLeftParen, "Expect '(' after 'for'.")

	switch {
	case p.match(TokenSemicolon):
	case p.match(TokenVar):
		p.varDeclaration(false)
	default:
		p.expression()
		p.consume(TokenSemicolon, "Expect ';' after loop initializer.")
		p.emitOp(vm.OpPop)
	}

	loopStart := p.mark()
	exitJump := -1
	if !p.match(TokenSemicolon) {
		p.expression()
		p.consume(TokenSemicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(vm.OpJumpIfFalse)
		p.emitOp(vm.OpPop)
	}

	if !p.match(TokenRightParen) {
		bodyJump := p.emitJump(vm.OpJump)
		incrementStart := p.mark()
		p.expression()
		p.emitOp(vm.OpPop)
		p.consume(TokenRightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.beginLoop(loopStart)
	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(vm.OpPop)
	}
	p.endLoop()
	p.endScope()
}

func (p *Parser) breakStatement() {
	loop := p.compiler.loop
	if loop == nil {
		p.error("Cannot utilise 'break' outside of a loop.")
		return
	}
	p.consume(TokenSemicolon, "Expect ';' after 'break'.")
	p.discardLocals(loop.scopeDepth)
	p.emitJump(vm.OpBreak)
}

func (p *Parser) continueStatement() {
	loop := p.compiler.loop
	if loop == nil {
		p.error("Cannot utilise 'continue' outside of a loop.")
		return
	}
	p.consume(TokenSemicolon, "Expect ';' after 'continue'.")
	p.discardLocals(loop.scopeDepth)
	p.emitLoop(loop.start)
}

func (p *Parser) returnStatement() {
	if p.compiler.kind == vm.FunctionTopLevel {
		p.error("Cannot return from top-level code.")
	}

	if p.match(TokenSemicolon) {
		p.closeFiles()
		p.emitReturn()
		return
	}
	if p.compiler.kind == vm.FunctionInitializer {
		p.error("Cannot return a value from an initializer.")
	}
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after return value.")
	p.closeFiles()
	p.emitOp(vm.OpReturn)
}

// ---------------------------------------------------------------------------
// Modules
// ---------------------------------------------------------------------------

// importStatement compiles `import "path" [as Name];` and `import Name;`
// for builtin modules.
func (p *Parser) importStatement() {
	if p.match(TokenString) {
		path := p.makeConstant(p.vm.StringValue(p.prev.Literal))
		p.emitOpShort(vm.OpImport, path)

		if p.match(TokenAs) {
			name := p.parseVariable("Expect import alias.", false)
			p.defineVariable(name)
		} else {
			p.emitOp(vm.OpPop)
		}
	} else {
		p.consume(TokenIdentifier, "Expect module name or path after 'import'.")
		name := p.identifierConstant(p.prev.Lexeme)
		p.emitOpShort(vm.OpImportBuiltin, name)
		p.declareVariable(false)
		p.defineVariable(name)
	}
	p.consume(TokenSemicolon, "Expect ';' after import.")
}

// fromStatement compiles `from "path" import a, b;` and the builtin form
// `from Name import a;`. Only allowed at the top level of a module.
func (p *Parser) fromStatement() {
	if p.compiler.kind != vm.FunctionTopLevel || p.compiler.scopeDepth > 0 {
		p.error("Can only use 'from' at the top level of a module.")
	}

	if p.match(TokenString) {
		path := p.makeConstant(p.vm.StringValue(p.prev.Literal))
		p.emitOpShort(vm.OpImport, path)
	} else {
		p.consume(TokenIdentifier, "Expect module name or path after 'from'.")
		p.emitOpShort(vm.OpImportBuiltin, p.identifierConstant(p.prev.Lexeme))
	}
	p.consume(TokenImport, "Expect 'import' after module.")

	for {
		p.consume(TokenIdentifier, "Expect name to import.")
		name := p.identifierConstant(p.prev.Lexeme)
		p.emitOpShort(vm.OpImportFrom, name)
		p.defineVariable(name)
		if !p.match(TokenComma) {
			break
		}
	}
	p.emitOp(vm.OpPop)
	p.consume(TokenSemicolon, "Expect ';' after import.")
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// withStatement compiles `with (path, mode) { ... }`. The open file is
// bound to the local `file` and closed when the block ends.
func (p *Parser) withStatement() {
	p.consume(TokenLeftParen, "Expect '(' after 'with'.")
	p.expression()
	p.consume(TokenComma, "Expect ',' after file path.")
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after file mode.")
	p.consume(TokenLeftBrace, "Expect '{' after 'with' statement.")

	p.beginScope()
	p.emitOp(vm.OpOpenFile)
	p.addLocal("file", false)
	p.markInitialized()
	slot := len(p.compiler.locals) - 1
	p.compiler.locals[slot].file = true

	p.block()

	p.emitOp(vm.OpCloseFile)
	p.emitByte(byte(slot))
	p.endScope()
}
