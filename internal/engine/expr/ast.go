// Package expr implements the declarative expression language used by card
// conditions and value formulas. Expressions are serializable operator trees
// evaluated against an immutable view of the battle; they are data, not code.
package expr

import "fmt"

// Node operator names for leaf nodes. Interior nodes use the operator symbol
// itself ("+", "&&", "==", ...) or "call" for domain functions.
const (
	OpNum  = "num"
	OpStr  = "str"
	OpVar  = "var"
	OpCall = "call"
	OpNot  = "!"
	OpNeg  = "neg"
)

// Node is one operator in an expression tree. The zero set of fields used
// depends on Op: OpNum uses Num, OpStr uses Str, OpVar and OpCall use Name,
// everything else uses Args.
type Node struct {
	Op   string  `json:"op" yaml:"op"`
	Num  float64 `json:"num,omitempty" yaml:"num,omitempty"`
	Str  string  `json:"str,omitempty" yaml:"str,omitempty"`
	Name string  `json:"name,omitempty" yaml:"name,omitempty"`
	Args []*Node `json:"args,omitempty" yaml:"args,omitempty"`
}

// Num builds a numeric literal node.
func Num(v float64) *Node {
	return &Node{Op: OpNum, Num: v}
}

// Str builds a string literal node.
func Str(s string) *Node {
	return &Node{Op: OpStr, Str: s}
}

// Var builds a context variable reference.
func Var(name string) *Node {
	return &Node{Op: OpVar, Name: name}
}

// Call builds a domain function call node.
func Call(name string, args ...*Node) *Node {
	return &Node{Op: OpCall, Name: name, Args: args}
}

// Binary builds an interior node with two operands.
func Binary(op string, left, right *Node) *Node {
	return &Node{Op: op, Args: []*Node{left, right}}
}

// String renders the node back into the compact source syntax.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	switch n.Op {
	case OpNum:
		return trimFloat(n.Num)
	case OpStr:
		return fmt.Sprintf("%q", n.Str)
	case OpVar:
		return n.Name
	case OpCall:
		s := n.Name + "("
		for i, a := range n.Args {
			if i > 0 {
				s += ", "
			}
			s += a.String()
		}
		return s + ")"
	case OpNot:
		return "!" + argString(n, 0)
	case OpNeg:
		return "-" + argString(n, 0)
	default:
		return "(" + argString(n, 0) + " " + n.Op + " " + argString(n, 1) + ")"
	}
}

func argString(n *Node, i int) string {
	if i >= len(n.Args) {
		return "?"
	}
	return n.Args[i].String()
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%g", v)
	return s
}
