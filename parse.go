package main

import "strconv"

// Operator precedence levels, tightest binding highest.
const (
	precNone       = 0
	precEquality   = 12
	precRelational = 25
	precAddSub     = 50
	precMulDiv     = 100
)

func precedence(tokenType TokenType) int {
	switch tokenType {
	case ASTERISK, SLASH:
		return precMulDiv
	case PLUS, MINUS:
		return precAddSub
	case LT, LE, GT, GE:
		return precRelational
	case EQ, NOT_EQ:
		return precEquality
	default:
		return precNone
	}
}

// Parser is a single pass: recursive descent over statements,
// precedence climbing over expressions, with name resolution, type
// checking and widening done inline while the AST is built. There is
// no later semantic-analysis phase; what comes out is ready for
// code generation.
type Parser struct {
	tokens []Token
	index  int
	scopes []*Scope // innermost last
}

func NewParser(tokens []Token) *Parser {
	p := &Parser{tokens: tokens}
	p.pushScope()

	// The runtime's print routines, the only callable externals.
	p.declareExternal("printbool", TypeBool)
	p.declareExternal("print8", TypeU8)
	p.declareExternal("print16", TypeU16)
	p.declareExternal("print32", TypeU32)
	p.declareExternal("print64", TypeU64)
	p.declareExternal("printsum", TypeU32, TypeU32)

	return p
}

func (p *Parser) declareExternal(name string, paramTypes ...PrimitiveType) {
	if _, err := p.currentScope().Add(name, TypeVoid, paramTypes, SymbolFunction); err != nil {
		ice("duplicate external function %s", name)
	}
}

func (p *Parser) eof() bool {
	return p.index >= len(p.tokens)
}

func (p *Parser) peek(offset int) Token {
	i := p.index + offset
	if i >= len(p.tokens) {
		eofTok := Token{Type: EOF}
		if len(p.tokens) > 0 {
			last := p.tokens[len(p.tokens)-1]
			eofTok.Line, eofTok.Col = last.Line, last.Col
		}
		return eofTok
	}
	return p.tokens[i]
}

func (p *Parser) consume() Token {
	tok := p.peek(0)
	if !p.eof() {
		p.index++
	}
	return tok
}

func (p *Parser) expect(tokenType TokenType) Token {
	tok := p.peek(0)
	if tok.Type != tokenType {
		panic(errorAt(tok, "expected %s, found %s", tokenType, tok.Type))
	}
	return p.consume()
}

func (p *Parser) pushScope() {
	p.scopes = append(p.scopes, NewScope())
}

func (p *Parser) popScope() {
	p.scopes = p.scopes[:len(p.scopes)-1]
}

func (p *Parser) currentScope() *Scope {
	return p.scopes[len(p.scopes)-1]
}

// lookup walks the scope stack innermost-out.
func (p *Parser) lookup(name string) *Symbol {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if sym := p.scopes[i].Get(name); sym != nil {
			return sym
		}
	}
	return nil
}

func (p *Parser) declare(nameTok Token, typ PrimitiveType, paramTypes []PrimitiveType, kind SymbolKind) *Symbol {
	sym, err := p.currentScope().Add(nameTok.Literal, typ, paramTypes, kind)
	if err != nil {
		panic(errorAt(nameTok, "%v", err))
	}
	return sym
}

// Parse consumes the whole token sequence into one top-level block.
func (p *Parser) Parse() *ASTNode {
	var statements []*ASTNode
	for !p.eof() {
		statements = append(statements, p.parseStatement())
	}
	return &ASTNode{Kind: NodeBlock, Children: statements}
}

func (p *Parser) parseStatement() *ASTNode {
	tok := p.peek(0)
	switch tok.Type {
	case LBRACE:
		return p.parseBlock()
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case VAR:
		return p.parseVarDecl()
	case FN:
		return p.parseFunction()
	case IDENT:
		if p.peek(1).Type == LPAREN {
			return p.parseCall()
		}
		return p.parseAssignment()
	default:
		panic(errorAt(tok, "unexpected token %s", tok.Type))
	}
}

func (p *Parser) parseBlock() *ASTNode {
	p.expect(LBRACE)
	p.pushScope()

	var statements []*ASTNode
	for p.peek(0).Type != RBRACE {
		if p.eof() {
			panic(errorAt(p.peek(0), "unexpected end of input, expected }"))
		}
		statements = append(statements, p.parseStatement())
	}
	p.expect(RBRACE)

	// Bindings of the discarded scope are unreachable from here on;
	// outer bindings shadowed by it become visible again.
	p.popScope()

	return &ASTNode{Kind: NodeBlock, Children: statements}
}

func (p *Parser) parseIf() *ASTNode {
	tok := p.expect(IF)
	cond := p.parseExpression(precNone)
	if cond.PrimitiveType() != TypeBool {
		panic(errorAt(tok, "if condition must be bool, got %s", cond.PrimitiveType()))
	}

	body := p.parseBlock()
	children := []*ASTNode{cond, body}

	if p.peek(0).Type == ELSE {
		p.consume()
		children = append(children, p.parseBlock())
	}

	return &ASTNode{Kind: NodeIf, Children: children}
}

func (p *Parser) parseWhile() *ASTNode {
	tok := p.expect(WHILE)
	cond := p.parseExpression(precNone)
	if cond.PrimitiveType() != TypeBool {
		panic(errorAt(tok, "while condition must be bool, got %s", cond.PrimitiveType()))
	}

	body := p.parseBlock()
	return &ASTNode{Kind: NodeWhile, Children: []*ASTNode{cond, body}}
}

func (p *Parser) parseVarDecl() *ASTNode {
	p.expect(VAR)
	nameTok := p.expect(IDENT)
	p.expect(COLON)
	typeTok := p.expect(TYPE)

	typ, ok := PrimitiveTypeFromName(typeTok.Literal)
	if !ok {
		panic(errorAt(typeTok, "unrecognized type '%s'", typeTok.Literal))
	}

	sym := p.declare(nameTok, typ, nil, SymbolVariable)
	p.expect(SEMICOLON)

	return &ASTNode{Kind: NodeVarDecl, Symbol: sym}
}

func (p *Parser) parseFunction() *ASTNode {
	p.expect(FN)
	nameTok := p.expect(IDENT)
	p.expect(LPAREN)

	var paramNames []Token
	var paramTypes []PrimitiveType
	for p.peek(0).Type != RPAREN {
		paramName := p.expect(IDENT)
		p.expect(COLON)
		typeTok := p.expect(TYPE)

		typ, ok := PrimitiveTypeFromName(typeTok.Literal)
		if !ok {
			panic(errorAt(typeTok, "unrecognized type '%s'", typeTok.Literal))
		}

		paramNames = append(paramNames, paramName)
		paramTypes = append(paramTypes, typ)

		if p.peek(0).Type != COMMA {
			break
		}
		p.consume()
	}
	p.expect(RPAREN)

	// Functions don't return values.
	sym := p.declare(nameTok, TypeVoid, paramTypes, SymbolFunction)

	p.pushScope()
	for i, paramName := range paramNames {
		if _, err := p.currentScope().AddParameter(paramName.Literal, paramTypes[i], i); err != nil {
			panic(errorAt(paramName, "%v", err))
		}
	}
	body := p.parseBlock()
	p.popScope()

	return &ASTNode{Kind: NodeFunc, Symbol: sym, Children: []*ASTNode{body}}
}

func (p *Parser) parseCall() *ASTNode {
	nameTok := p.expect(IDENT)

	sym := p.lookup(nameTok.Literal)
	if sym == nil {
		panic(errorAt(nameTok, "unknown function '%s'", nameTok.Literal))
	}
	if sym.Kind != SymbolFunction {
		panic(errorAt(nameTok, "'%s' is not a function", nameTok.Literal))
	}

	p.expect(LPAREN)
	var args []*ASTNode
	for p.peek(0).Type != RPAREN {
		args = append(args, p.parseExpression(precNone))
		if p.peek(0).Type != COMMA {
			break
		}
		p.consume()
	}
	p.expect(RPAREN)
	p.expect(SEMICOLON)

	if len(args) != len(sym.ParamTypes) {
		panic(errorAt(nameTok, "function '%s' expects %d arguments, got %d",
			sym.Name, len(sym.ParamTypes), len(args)))
	}
	for i, arg := range args {
		argType := arg.PrimitiveType()
		if !argType.CompatibleWith(sym.ParamTypes[i], true) {
			panic(errorAt(nameTok, "argument %d of '%s': cannot pass %s as %s",
				i+1, sym.Name, argType, sym.ParamTypes[i]))
		}
	}

	return &ASTNode{Kind: NodeCall, Name: nameTok.Literal, Children: args}
}

func (p *Parser) parseAssignment() *ASTNode {
	nameTok := p.expect(IDENT)

	sym := p.lookup(nameTok.Literal)
	if sym == nil {
		panic(errorAt(nameTok, "unknown identifier '%s'", nameTok.Literal))
	}
	if sym.Kind != SymbolVariable {
		panic(errorAt(nameTok, "cannot assign to '%s'", nameTok.Literal))
	}

	p.expect(ASSIGN)
	expr := p.parseExpression(precNone)
	p.expect(SEMICOLON)

	exprType := expr.PrimitiveType()
	if !exprType.CompatibleWith(sym.Type, true) {
		panic(errorAt(nameTok, "cannot assign %s to '%s' of type %s",
			exprType, sym.Name, sym.Type))
	}
	if sym.Type.Size() > exprType.Size() {
		expr = widenTo(sym.Type, expr)
	}

	return &ASTNode{Kind: NodeAssign, Symbol: sym, Children: []*ASTNode{expr}}
}

// parseExpression implements precedence climbing: keep combining while
// the next operator binds strictly tighter than the caller's floor.
// Recursing with the current operator's precedence as the new floor
// makes equal-precedence chains left-associative.
func (p *Parser) parseExpression(minPrec int) *ASTNode {
	left := p.parseUnary()

	for {
		opTok := p.peek(0)
		opPrec := precedence(opTok.Type)
		if opPrec <= minPrec {
			break
		}
		p.consume()

		right := p.parseExpression(opPrec)
		left = p.combineBinary(opTok, left, right)
	}

	return left
}

// combineBinary type-checks a binary operator's operands and equalizes
// their widths, wrapping the narrower side in a widen node.
func (p *Parser) combineBinary(opTok Token, left, right *ASTNode) *ASTNode {
	leftType := left.PrimitiveType()
	rightType := right.PrimitiveType()

	if !leftType.CompatibleWith(rightType, false) {
		panic(errorAt(opTok, "incompatible types %s and %s for operator '%s'",
			leftType, rightType, opTok.Literal))
	}

	if leftType.Size() > rightType.Size() {
		right = widenTo(leftType, right)
	} else if rightType.Size() > leftType.Size() {
		left = widenTo(rightType, left)
	}

	return &ASTNode{Kind: NodeBinary, Op: opTok.Literal, Children: []*ASTNode{left, right}}
}

func widenTo(target PrimitiveType, node *ASTNode) *ASTNode {
	return &ASTNode{Kind: NodeWiden, Type: target, Children: []*ASTNode{node}}
}

func (p *Parser) parseUnary() *ASTNode {
	tok := p.peek(0)
	switch tok.Type {
	case LPAREN:
		p.consume()
		expr := p.parseExpression(precNone)
		p.expect(RPAREN)
		return expr

	case INT:
		return p.parseIntLiteral()

	case IDENT:
		p.consume()
		sym := p.lookup(tok.Literal)
		if sym == nil {
			panic(errorAt(tok, "unknown identifier '%s'", tok.Literal))
		}
		if sym.Kind == SymbolFunction {
			panic(errorAt(tok, "cannot use function '%s' as a value", tok.Literal))
		}
		return &ASTNode{Kind: NodeIdent, Symbol: sym}

	default:
		panic(errorAt(tok, "expected expression, found %s", tok.Type))
	}
}

// parseIntLiteral types a literal as the narrowest unsigned type that
// holds its value. There is no signed literal syntax.
func (p *Parser) parseIntLiteral() *ASTNode {
	tok := p.expect(INT)

	value, err := strconv.ParseUint(tok.Literal, 10, 64)
	if err != nil {
		panic(errorAt(tok, "integer literal out of range: %s", tok.Literal))
	}

	var typ PrimitiveType
	switch {
	case value <= 0xFF:
		typ = TypeU8
	case value <= 0xFFFF:
		typ = TypeU16
	case value <= 0xFFFFFFFF:
		typ = TypeU32
	default:
		typ = TypeU64
	}

	return &ASTNode{Kind: NodeLiteral, Type: typ, Value: PrimitiveValue(value)}
}
