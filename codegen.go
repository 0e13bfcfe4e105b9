package main

// Register is a backend scratch slot at a particular width. It lives
// from GetRegister to FreeRegister within one generation call; nothing
// persists a register across statements.
type Register struct {
	Size  int // bits
	Index int // pool slot
}

// Backend is the set of emission primitives a target must provide.
// The tree walk itself lives in CodeGenerator and is written once;
// adding a target means implementing this interface only. The control
// flow primitives receive the generator back so they can emit code for
// their sub-trees between labels.
type Backend interface {
	GetRegister(size int) Register
	FreeRegister(reg Register)
	GetLabel() int

	GenProgram(gen *CodeGenerator, root *ASTNode)
	GenAssignment(sym *Symbol, reg Register)
	GenComparison(op string, left, right Register) Register
	GenAdd(left, right Register) Register
	GenSubtract(left, right Register) Register
	GenMultiply(left, right Register) Register
	GenDivide(left, right Register) Register
	GenNumericLiteral(typ PrimitiveType, value PrimitiveValue) Register
	GenWiden(reg Register, target PrimitiveType) Register
	GenIdentifier(sym *Symbol) Register
	GenFunctionCall(gen *CodeGenerator, name string, args []*ASTNode)
	GenIf(gen *CodeGenerator, cond, body, elseBody *ASTNode)
	GenWhile(gen *CodeGenerator, cond, body *ASTNode)
	GenFunction(gen *CodeGenerator, sym *Symbol, body *ASTNode)

	// PostCheck audits register discipline after the whole program
	// has been generated.
	PostCheck()
}

// CodeGenerator walks the AST depth-first and delegates all emission
// to a Backend.
type CodeGenerator struct {
	backend Backend
}

func NewCodeGenerator(backend Backend) *CodeGenerator {
	return &CodeGenerator{backend: backend}
}

func (g *CodeGenerator) Generate(root *ASTNode) {
	g.backend.GenProgram(g, root)
	g.backend.PostCheck()
}

// GenNode generates code for a statement node.
func (g *CodeGenerator) GenNode(node *ASTNode) {
	switch node.Kind {
	case NodeBlock:
		for _, child := range node.Children {
			g.GenNode(child)
		}
	case NodeVarDecl:
		// Layout was fixed during parsing; declarations emit nothing.
	case NodeAssign:
		reg := g.GenExpression(node.Children[0])
		g.backend.GenAssignment(node.Symbol, reg)
		g.backend.FreeRegister(reg)
	case NodeCall:
		g.backend.GenFunctionCall(g, node.Name, node.Children)
	case NodeIf:
		var elseBody *ASTNode
		if len(node.Children) == 3 {
			elseBody = node.Children[2]
		}
		g.backend.GenIf(g, node.Children[0], node.Children[1], elseBody)
	case NodeWhile:
		g.backend.GenWhile(g, node.Children[0], node.Children[1])
	case NodeFunc:
		g.backend.GenFunction(g, node.Symbol, node.Children[0])
	default:
		ice("unsupported node %s in statement position", node.Kind)
	}
}

// GenExpression generates code for an expression node and returns the
// register holding its value.
func (g *CodeGenerator) GenExpression(node *ASTNode) Register {
	switch node.Kind {
	case NodeBinary:
		g.checkBinaryOperands(node)

		left := g.GenExpression(node.Children[0])
		right := g.GenExpression(node.Children[1])

		switch node.Op {
		case "+":
			return g.backend.GenAdd(left, right)
		case "-":
			return g.backend.GenSubtract(left, right)
		case "*":
			return g.backend.GenMultiply(left, right)
		case "/":
			return g.backend.GenDivide(left, right)
		default:
			if isComparisonOp(node.Op) {
				return g.backend.GenComparison(node.Op, left, right)
			}
			ice("unsupported binary operator '%s'", node.Op)
		}
	case NodeLiteral:
		return g.backend.GenNumericLiteral(node.Type, node.Value)
	case NodeWiden:
		src := g.GenExpression(node.Children[0])
		return g.backend.GenWiden(src, node.Type)
	case NodeIdent:
		return g.backend.GenIdentifier(node.Symbol)
	case NodeUnary:
		ice("unary operator '%s' reached code generation", node.Op)
	default:
		ice("unsupported node %s in expression position", node.Kind)
	}
	return Register{}
}

// checkBinaryOperands re-asserts the parser's widening invariant:
// both operands of a binary operation are unsigned and equally wide.
func (g *CodeGenerator) checkBinaryOperands(node *ASTNode) {
	leftType := node.Children[0].PrimitiveType()
	rightType := node.Children[1].PrimitiveType()

	if leftType.Size() != rightType.Size() {
		ice("binary operand widths differ: %s vs %s", leftType, rightType)
	}
	if !leftType.IsUnsigned() || !rightType.IsUnsigned() {
		ice("binary operands must be unsigned, got %s and %s", leftType, rightType)
	}
}
