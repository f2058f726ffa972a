package compiler

import (
	"strconv"
	"strings"

	"github.com/chazu/dictu/vm"
)

// ---------------------------------------------------------------------------
// Pratt parser rules
// ---------------------------------------------------------------------------

// Precedence levels, lowest first.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecTernary
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecBitOr
	PrecBitXor
	PrecBitAnd
	PrecTerm
	PrecFactor
	PrecPower
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(p *Parser, canAssign bool)

// ParseRule binds a token to its prefix and infix handlers.
type ParseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[TokenType]ParseRule

func init() {
	rules = map[TokenType]ParseRule{
		TokenLeftParen:    {(*Parser).grouping, (*Parser).call, PrecCall},
		TokenLeftBracket:  {(*Parser).list, (*Parser).subscript, PrecCall},
		TokenLeftBrace:    {(*Parser).dict, nil, PrecNone},
		TokenDot:          {nil, (*Parser).dot, PrecCall},
		TokenQuestion:     {nil, (*Parser).ternary, PrecTernary},
		TokenMinus:        {(*Parser).unary, (*Parser).binary, PrecTerm},
		TokenPlus:         {nil, (*Parser).binary, PrecTerm},
		TokenSlash:        {nil, (*Parser).binary, PrecFactor},
		TokenStar:         {nil, (*Parser).binary, PrecFactor},
		TokenPercent:      {nil, (*Parser).binary, PrecFactor},
		TokenStarStar:     {nil, (*Parser).binary, PrecPower},
		TokenAmp:          {nil, (*Parser).binary, PrecBitAnd},
		TokenCaret:        {nil, (*Parser).binary, PrecBitXor},
		TokenPipe:         {nil, (*Parser).binary, PrecBitOr},
		TokenTilde:        {(*Parser).unary, nil, PrecNone},
		TokenBang:         {(*Parser).unary, nil, PrecNone},
		TokenBangEqual:    {nil, (*Parser).binary, PrecEquality},
		TokenEqualEqual:   {nil, (*Parser).binary, PrecEquality},
		TokenGreater:      {nil, (*Parser).binary, PrecComparison},
		TokenGreaterEqual: {nil, (*Parser).binary, PrecComparison},
		TokenLess:         {nil, (*Parser).binary, PrecComparison},
		TokenLessEqual:    {nil, (*Parser).binary, PrecComparison},
		TokenIdentifier:   {(*Parser).variable, nil, PrecNone},
		TokenString:       {(*Parser).stringLiteral, nil, PrecNone},
		TokenNumber:       {(*Parser).number, nil, PrecNone},
		TokenAnd:          {nil, (*Parser).and, PrecAnd},
		TokenOr:           {nil, (*Parser).or, PrecOr},
		TokenFalse:        {(*Parser).literal, nil, PrecNone},
		TokenTrue:         {(*Parser).literal, nil, PrecNone},
		TokenNil:          {(*Parser).literal, nil, PrecNone},
		TokenThis:         {(*Parser).this, nil, PrecNone},
		TokenSuper:        {(*Parser).super, nil, PrecNone},
		TokenDef:          {(*Parser).anonymousFunction, nil, PrecNone},
	}
}

func getRule(t TokenType) ParseRule {
	return rules[t]
}

// binaryOps maps operator tokens to the opcode they compile to. Tokens
// with negated forms (!=, <=...) are handled in binary.
var binaryOps = map[TokenType]vm.Opcode{
	TokenPlus:         vm.OpAdd,
	TokenMinus:        vm.OpSubtract,
	TokenStar:         vm.OpMultiply,
	TokenSlash:        vm.OpDivide,
	TokenPercent:      vm.OpMod,
	TokenStarStar:     vm.OpPow,
	TokenAmp:          vm.OpBitAnd,
	TokenPipe:         vm.OpBitOr,
	TokenCaret:        vm.OpBitXor,
	TokenEqualEqual:   vm.OpEqual,
	TokenGreater:      vm.OpGreater,
	TokenGreaterEqual: vm.OpGreaterEqual,
	TokenLess:         vm.OpLess,
	TokenLessEqual:    vm.OpLessEqual,
}

// compoundOps maps compound assignment tokens to their operator.
var compoundOps = map[TokenType]vm.Opcode{
	TokenPlusEqual:    vm.OpAdd,
	TokenMinusEqual:   vm.OpSubtract,
	TokenStarEqual:    vm.OpMultiply,
	TokenSlashEqual:   vm.OpDivide,
	TokenPercentEqual: vm.OpMod,
	TokenAmpEqual:     vm.OpBitAnd,
	TokenPipeEqual:    vm.OpBitOr,
	TokenCaretEqual:   vm.OpBitXor,
}

// matchCompound consumes a compound assignment operator if one is next.
func (p *Parser) matchCompound() (vm.Opcode, bool) {
	op, ok := compoundOps[p.current.Type]
	if ok {
		p.advance()
	}
	return op, ok
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *Parser) expression() {
	p.parsePrecedence(PrecAssignment)
}

func (p *Parser) parsePrecedence(prec Precedence) {
	p.advance()
	prefix := getRule(p.prev.Type).prefix
	if prefix == nil {
		p.error("Expect expression.")
		return
	}

	canAssign := prec <= PrecAssignment
	prefix(p, canAssign)

	for prec <= getRule(p.current.Type).precedence {
		p.advance()
		getRule(p.prev.Type).infix(p, canAssign)
	}

	if canAssign && (p.check(TokenEqual) || compoundOps[p.current.Type] != 0) {
		p.advance()
		p.error("Invalid assignment target.")
	}
}

func (p *Parser) grouping(bool) {
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after expression.")
}

func (p *Parser) number(bool) {
	lit := p.prev.Literal
	var n float64
	var err error
	switch {
	case strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X"):
		var u uint64
		u, err = strconv.ParseUint(lit[2:], 16, 64)
		n = float64(u)
	case strings.HasPrefix(lit, "0b") || strings.HasPrefix(lit, "0B"):
		var u uint64
		u, err = strconv.ParseUint(lit[2:], 2, 64)
		n = float64(u)
	default:
		n, err = strconv.ParseFloat(lit, 64)
	}
	if err != nil {
		p.error("Invalid number literal.")
		return
	}
	p.emitConstant(vm.NumberValue(n))
}

func (p *Parser) stringLiteral(bool) {
	p.emitConstant(p.vm.StringValue(p.prev.Literal))
}

func (p *Parser) literal(bool) {
	switch p.prev.Type {
	case TokenFalse:
		p.emitOp(vm.OpFalse)
	case TokenTrue:
		p.emitOp(vm.OpTrue)
	case TokenNil:
		p.emitOp(vm.OpNil)
	}
}

func (p *Parser) unary(bool) {
	op := p.prev.Type
	p.parsePrecedence(PrecUnary)

	switch op {
	case TokenMinus:
		if !p.foldNegate() {
			p.emitOp(vm.OpNegate)
		}
	case TokenBang:
		p.emitOp(vm.OpNot)
	case TokenTilde:
		p.emitOp(vm.OpBitNot)
	}
}

func (p *Parser) binary(bool) {
	opType := p.prev.Type
	rule := getRule(opType)
	if opType == TokenStarStar {
		// right associative
		p.parsePrecedence(rule.precedence)
	} else {
		p.parsePrecedence(rule.precedence + 1)
	}

	switch opType {
	case TokenBangEqual:
		p.emitOps(vm.OpEqual, vm.OpNot)
		return
	}
	op := binaryOps[opType]
	if !p.foldBinary(op) {
		p.emitOp(op)
	}
}

func (p *Parser) and(bool) {
	endJump := p.emitJump(vm.OpJumpIfFalse)
	p.emitOp(vm.OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

func (p *Parser) or(bool) {
	elseJump := p.emitJump(vm.OpJumpIfFalse)
	endJump := p.emitJump(vm.OpJump)
	p.patchJump(elseJump)
	p.emitOp(vm.OpPop)
	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

// ternary compiles `cond ? a : b`.
func (p *Parser) ternary(bool) {
	thenJump := p.emitJump(vm.OpJumpIfFalse)
	p.emitOp(vm.OpPop)
	p.parsePrecedence(PrecTernary)
	p.consume(TokenColon, "Expect ':' after then branch of ternary operator.")
	elseJump := p.emitJump(vm.OpJump)
	p.patchJump(thenJump)
	p.emitOp(vm.OpPop)
	p.parsePrecedence(PrecTernary)
	p.patchJump(elseJump)
}

func (p *Parser) call(bool) {
	argCount := p.argumentList()
	p.emitOp(vm.OpCall)
	p.emitByte(argCount)
}

func (p *Parser) argumentList() byte {
	count := 0
	if !p.check(TokenRightParen) {
		for {
			p.expression()
			if count == 255 {
				p.error("Cannot have more than 255 arguments.")
			}
			count++
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRightParen, "Expect ')' after arguments.")
	return byte(count)
}

func (p *Parser) dot(canAssign bool) {
	p.consume(TokenIdentifier, "Expect property name after '.'.")
	name := p.identifierConstant(p.prev.Lexeme)

	if canAssign && p.match(TokenEqual) {
		p.expression()
		p.emitOpShort(vm.OpSetProperty, name)
	} else if op, ok := p.compoundAssign(canAssign); ok {
		p.emitOpShort(vm.OpGetPropertyNoPop, name)
		p.expression()
		p.emitOp(op)
		p.emitOpShort(vm.OpSetProperty, name)
	} else if p.match(TokenLeftParen) {
		argCount := p.argumentList()
		p.emitOpShort(vm.OpInvoke, name)
		p.emitByte(argCount)
	} else {
		p.emitOpShort(vm.OpGetProperty, name)
	}
}

func (p *Parser) compoundAssign(canAssign bool) (vm.Opcode, bool) {
	if !canAssign {
		return 0, false
	}
	return p.matchCompound()
}

// subscript compiles `x[i]`, `x[i] = v`, compound forms and slices
// `x[a:b]` where either bound may be omitted.
func (p *Parser) subscript(canAssign bool) {
	if p.match(TokenColon) {
		p.emitOp(vm.OpNil)
		p.sliceEnd()
		return
	}

	p.expression()
	if p.match(TokenColon) {
		p.sliceEnd()
		return
	}
	p.consume(TokenRightBracket, "Expect ']' after index.")

	if canAssign && p.match(TokenEqual) {
		p.expression()
		p.emitOp(vm.OpSubscriptAssign)
	} else if op, ok := p.compoundAssign(canAssign); ok {
		p.emitOp(vm.OpSubscriptPush)
		p.expression()
		p.emitOp(op)
		p.emitOp(vm.OpSubscriptAssign)
	} else {
		p.emitOp(vm.OpSubscript)
	}
}

func (p *Parser) sliceEnd() {
	if p.check(TokenRightBracket) {
		p.emitOp(vm.OpNil)
	} else {
		p.expression()
	}
	p.consume(TokenRightBracket, "Expect ']' after slice.")
	p.emitOp(vm.OpSlice)
}

func (p *Parser) list(bool) {
	count := 0
	for !p.check(TokenRightBracket) && !p.check(TokenEOF) {
		p.expression()
		count++
		if !p.match(TokenComma) {
			break
		}
	}
	p.consume(TokenRightBracket, "Expect ']' after list elements.")
	if count >= maxConstants {
		p.error("Too many elements in list literal.")
	}
	p.emitOpShort(vm.OpNewList, uint16(count))
}

func (p *Parser) dict(bool) {
	count := 0
	for !p.check(TokenRightBrace) && !p.check(TokenEOF) {
		p.expression()
		p.consume(TokenColon, "Expect ':' after dictionary key.")
		p.expression()
		count++
		if !p.match(TokenComma) {
			break
		}
	}
	p.consume(TokenRightBrace, "Expect '}' after dictionary entries.")
	if count >= maxConstants {
		p.error("Too many entries in dictionary literal.")
	}
	p.emitOpShort(vm.OpNewDict, uint16(count))
}

func (p *Parser) variable(canAssign bool) {
	p.namedVariable(p.prev.Lexeme, canAssign)
}

// namedVariable emits a load of name, or a store when an assignment
// follows and canAssign allows it.
func (p *Parser) namedVariable(name string, canAssign bool) {
	c := p.compiler
	var getOp, setOp vm.Opcode
	var arg int
	constant := false

	if arg = p.resolveLocal(c, name); arg != -1 {
		getOp, setOp = vm.OpGetLocal, vm.OpSetLocal
		constant = c.locals[arg].constant
	} else if arg = p.resolveUpvalue(c, name); arg != -1 {
		getOp, setOp = vm.OpGetUpvalue, vm.OpSetUpvalue
		constant = c.upvalues[arg].constant
	} else {
		arg = int(p.identifierConstant(name))
		getOp, setOp = vm.OpGetModule, vm.OpSetModule
		constant = p.moduleConsts[name]
	}

	emit := func(op vm.Opcode) {
		p.emitOp(op)
		if op == vm.OpGetModule || op == vm.OpSetModule {
			p.emitShort(uint16(arg))
		} else {
			p.emitByte(byte(arg))
		}
	}

	if canAssign && p.match(TokenEqual) {
		if constant {
			p.error("Cannot assign to a constant.")
		}
		p.expression()
		emit(setOp)
	} else if op, ok := p.compoundAssign(canAssign); ok {
		if constant {
			p.error("Cannot assign to a constant.")
		}
		emit(getOp)
		p.expression()
		p.emitOp(op)
		emit(setOp)
	} else {
		emit(getOp)
	}
}

func (p *Parser) this(bool) {
	if p.class == nil {
		p.error("Cannot use 'this' outside of a class.")
		return
	}
	p.namedVariable("this", false)
}

func (p *Parser) super(bool) {
	switch {
	case p.class == nil:
		p.error("Cannot use 'super' outside of a class.")
	case !p.class.hasSuperclass:
		p.error("Cannot use 'super' in a class with no superclass.")
	}

	p.consume(TokenDot, "Expect '.' after 'super'.")
	p.consume(TokenIdentifier, "Expect superclass method name.")
	name := p.identifierConstant(p.prev.Lexeme)

	p.namedVariable("this", false)
	if p.match(TokenLeftParen) {
		argCount := p.argumentList()
		p.namedVariable("super", false)
		p.emitOpShort(vm.OpSuperInvoke, name)
		p.emitByte(argCount)
	} else {
		p.namedVariable("super", false)
		p.emitOpShort(vm.OpGetSuper, name)
	}
}

// anonymousFunction compiles `def (params) { body }` and
// `def (params) => expr` in expression position.
func (p *Parser) anonymousFunction(bool) {
	p.function(vm.FunctionArrow, "")
}

// ---------------------------------------------------------------------------
// Constant folding
// ---------------------------------------------------------------------------

// lastConstants returns the values loaded by the final n instructions when
// they are all foldable constant loads.
func (p *Parser) lastConstants(n int) ([]vm.Value, int, bool) {
	run := p.compiler.constRun
	if len(run) < n {
		return nil, 0, false
	}
	chunk := p.chunk()
	start := run[len(run)-n]
	vals := make([]vm.Value, n)
	for i, off := range run[len(run)-n:] {
		vals[i] = chunk.Constants[chunk.ReadUint16(off+1)]
	}
	return vals, start, true
}

// replaceConstants rewinds the chunk to offset and loads val instead.
func (p *Parser) replaceConstants(offset, n int, val vm.Value) {
	c := p.compiler
	p.chunk().Truncate(offset)
	run := c.constRun[:len(c.constRun)-n]
	c.constRun = nil
	idx := p.makeConstant(val)
	p.chunk().WriteOp(vm.OpConstant, p.prev.Line)
	p.chunk().WriteUint16(idx, p.prev.Line)
	c.constRun = append(run, offset)
}

func (p *Parser) foldBinary(op vm.Opcode) bool {
	vals, offset, ok := p.lastConstants(2)
	if !ok {
		return false
	}
	a, b := vals[0], vals[1]

	if a.IsNumber() && b.IsNumber() {
		switch op {
		case vm.OpAdd, vm.OpSubtract, vm.OpMultiply, vm.OpPow:
		case vm.OpDivide, vm.OpMod:
			if b.AsNumber() == 0 {
				return false
			}
		default:
			return false
		}
		p.replaceConstants(offset, 2, vm.NumberValue(vm.Arithmetic(op, a.AsNumber(), b.AsNumber())))
		return true
	}

	if op != vm.OpAdd {
		return false
	}
	as, okA := vm.As[*vm.ObjString](p.vm, a)
	bs, okB := vm.As[*vm.ObjString](p.vm, b)
	if !okA || !okB {
		return false
	}
	p.replaceConstants(offset, 2, p.vm.StringValue(as.Chars+bs.Chars))
	return true
}

func (p *Parser) foldNegate() bool {
	vals, offset, ok := p.lastConstants(1)
	if !ok || !vals[0].IsNumber() {
		return false
	}
	p.replaceConstants(offset, 1, vm.NumberValue(-vals[0].AsNumber()))
	return true
}
