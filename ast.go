package main

import "strconv"

// NodeKind represents different types of AST nodes
type NodeKind string

const (
	NodeBinary  NodeKind = "NodeBinary"
	NodeUnary   NodeKind = "NodeUnary"
	NodeLiteral NodeKind = "NodeLiteral"
	NodeVarDecl NodeKind = "NodeVarDecl"
	NodeAssign  NodeKind = "NodeAssign"
	NodeCall    NodeKind = "NodeCall"
	NodeWiden   NodeKind = "NodeWiden"
	NodeIdent   NodeKind = "NodeIdent"
	NodeIf      NodeKind = "NodeIf"
	NodeWhile   NodeKind = "NodeWhile"
	NodeFunc    NodeKind = "NodeFunc"
	NodeBlock   NodeKind = "NodeBlock"
)

// ASTNode represents a node in the Abstract Syntax Tree. The kind set
// is closed; every consumer switches exhaustively over Kind. Each node
// owns its children outright, so the tree is acyclic and unshared.
type ASTNode struct {
	Kind NodeKind
	// NodeBinary, NodeUnary:
	Op string // "+", "-", "*", "/", "==", "!=", "<", "<=", ">", ">="
	// NodeLiteral, NodeWiden (the target type):
	Type  PrimitiveType
	Value PrimitiveValue
	// NodeVarDecl, NodeAssign, NodeIdent, NodeFunc:
	Symbol *Symbol
	// NodeCall:
	Name string
	// NodeBinary: left, right. NodeUnary, NodeAssign, NodeWiden: operand.
	// NodeIf: cond, body, optional else. NodeWhile: cond, body.
	// NodeFunc: body. NodeCall: arguments. NodeBlock: statements.
	Children []*ASTNode
}

// isComparisonOp returns true for the operators that produce a bool.
func isComparisonOp(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	default:
		return false
	}
}

// PrimitiveType computes the value type a node evaluates to.
func (n *ASTNode) PrimitiveType() PrimitiveType {
	switch n.Kind {
	case NodeBinary:
		if isComparisonOp(n.Op) {
			return TypeBool
		}
		// Arithmetic operands are width-equalized during parsing,
		// so "the wider one" is normally either one.
		left := n.Children[0].PrimitiveType()
		right := n.Children[1].PrimitiveType()
		if right.Size() > left.Size() {
			return right
		}
		return left
	case NodeUnary:
		// Negation flips the sign of the operand type.
		return n.Children[0].PrimitiveType().SignFlipped()
	case NodeLiteral, NodeWiden:
		return n.Type
	case NodeIdent:
		return n.Symbol.Type
	default:
		return TypeVoid
	}
}

// ToSExpr converts an AST node to s-expression string representation
func ToSExpr(node *ASTNode) string {
	switch node.Kind {
	case NodeIdent:
		return "(ident \"" + node.Symbol.Name + "\")"
	case NodeLiteral:
		return "(literal " + string(node.Type) + " " + strconv.FormatUint(node.Value.Uint64(), 10) + ")"
	case NodeBinary:
		left := ToSExpr(node.Children[0])
		right := ToSExpr(node.Children[1])
		return "(binary \"" + node.Op + "\" " + left + " " + right + ")"
	case NodeUnary:
		return "(unary \"" + node.Op + "\" " + ToSExpr(node.Children[0]) + ")"
	case NodeWiden:
		return "(widen " + string(node.Type) + " " + ToSExpr(node.Children[0]) + ")"
	case NodeVarDecl:
		return "(var \"" + node.Symbol.Name + "\" " + string(node.Symbol.Type) + ")"
	case NodeAssign:
		return "(assign \"" + node.Symbol.Name + "\" " + ToSExpr(node.Children[0]) + ")"
	case NodeCall:
		result := "(call \"" + node.Name + "\""
		for _, arg := range node.Children {
			result += " " + ToSExpr(arg)
		}
		result += ")"
		return result
	case NodeIf:
		result := "(if " + ToSExpr(node.Children[0]) + " " + ToSExpr(node.Children[1])
		if len(node.Children) == 3 {
			result += " " + ToSExpr(node.Children[2])
		}
		result += ")"
		return result
	case NodeWhile:
		return "(while " + ToSExpr(node.Children[0]) + " " + ToSExpr(node.Children[1]) + ")"
	case NodeFunc:
		return "(fn \"" + node.Symbol.Name + "\" " + ToSExpr(node.Children[0]) + ")"
	case NodeBlock:
		result := "(block"
		for _, child := range node.Children {
			result += " " + ToSExpr(child)
		}
		result += ")"
		return result
	default:
		return ""
	}
}
