package formula

import (
	"math"
	"strconv"
	"strings"
)

// node is a node in the abstract syntax tree of an expression. Nodes are
// never modified after parsing.
type node struct {
	kind nodeKind

	// name is the identifier, function name, or operator symbol.
	name string
	// val is the value of a literal.
	val Value
	// fn is the function bound at parse time for a call, or nil if the call
	// resolves its function from the evaluation context.
	fn Func

	left  *node
	right *node
	// cond is the condition of a conditional; left and right are the
	// branches.
	cond *node
	// list is the arguments of a call or the elements of an array.
	list []*node
}

type nodeKind int8

const (
	nodeNone nodeKind = iota

	nodeLit   // val
	nodeName  // lookup(name)
	nodeCall  // call fn or lookup(name) with list
	nodeArray // array of list

	nodeNeg    // -number(left)
	nodePos    // number(left)
	nodeNot    // !bool(left)
	nodeLength // length of left

	nodeAdd // number(left) + number(right)
	nodeSub // number(left) - number(right)
	nodeMul // number(left) * number(right)
	nodeDiv // number(left) / number(right)
	nodeMod // number(left) % number(right)
	nodePow // number(left) ^ number(right)

	nodeEq // left === right
	nodeNe // left !== right
	nodeLt // number(left) < number(right)
	nodeLe // number(left) <= number(right)
	nodeGt // number(left) > number(right)
	nodeGe // number(left) >= number(right)
	nodeIn // right contains left

	nodeAnd  // bool(left) && bool(right), right lazy
	nodeOr   // bool(left) || bool(right), right lazy
	nodeCond // bool(cond) ? left : right, branches lazy
)

var nodeKindNames = [...]string{
	nodeNone:   "None",
	nodeLit:    "Lit",
	nodeName:   "Name",
	nodeCall:   "Call",
	nodeArray:  "Array",
	nodeNeg:    "Neg",
	nodePos:    "Pos",
	nodeNot:    "Not",
	nodeLength: "Length",
	nodeAdd:    "Add",
	nodeSub:    "Sub",
	nodeMul:    "Mul",
	nodeDiv:    "Div",
	nodeMod:    "Mod",
	nodePow:    "Pow",
	nodeEq:     "Eq",
	nodeNe:     "Ne",
	nodeLt:     "Lt",
	nodeLe:     "Le",
	nodeGt:     "Gt",
	nodeGe:     "Ge",
	nodeIn:     "In",
	nodeAnd:    "And",
	nodeOr:     "Or",
	nodeCond:   "Cond",
}

func (k nodeKind) String() string {
	if k < 0 || int(k) >= len(nodeKindNames) {
		return "nodeKind(" + strconv.Itoa(int(k)) + ")"
	}
	return nodeKindNames[k]
}

func (n *node) String() string {
	var b strings.Builder
	n.fmt(&b)
	return b.String()
}

// fmt writes the canonical form of n, which parenthesizes every operator
// application.
func (n *node) fmt(b *strings.Builder) {
	switch n.kind {
	case nodeNone:
		// Invalid nodes use invalid characters.
		b.WriteString("$#$")
	case nodeLit:
		fmtlit(b, n.val)
	case nodeName:
		b.WriteString(n.name)
	case nodeCall:
		if n.fn != nil && len(n.list) == 1 {
			// Parse-time functions of one argument are prefix operators.
			b.WriteByte('(')
			b.WriteString(n.name)
			b.WriteByte(' ')
			n.list[0].fmt(b)
			b.WriteByte(')')
			return
		}
		b.WriteString(n.name)
		fmtlist(b, n.list, '(', ')')
	case nodeArray:
		fmtlist(b, n.list, '[', ']')
	case nodeNeg, nodePos, nodeNot, nodeLength:
		b.WriteByte('(')
		b.WriteString(n.name)
		if unop(n.name).word() {
			b.WriteByte(' ')
		}
		n.left.fmt(b)
		b.WriteByte(')')
	case nodeCond:
		b.WriteByte('(')
		n.cond.fmt(b)
		b.WriteString(" ? ")
		n.left.fmt(b)
		b.WriteString(" : ")
		n.right.fmt(b)
		b.WriteByte(')')
	default:
		if n.kind < nodeAdd || n.kind > nodeOr {
			panic("formula: invalid node kind " + n.kind.String() + " after writing " + b.String())
		}
		b.WriteByte('(')
		n.left.fmt(b)
		b.WriteByte(' ')
		b.WriteString(n.name)
		b.WriteByte(' ')
		n.right.fmt(b)
		b.WriteByte(')')
	}
}

func fmtlist(b *strings.Builder, list []*node, l, r byte) {
	b.WriteByte(l)
	for i, n := range list {
		if i > 0 {
			b.WriteString(", ")
		}
		n.fmt(b)
	}
	b.WriteByte(r)
}

// fmtlit writes a literal. Strings are quoted with their quotes and
// backslashes escaped.
func fmtlit(b *strings.Builder, v Value) {
	switch v.kind {
	case KindString:
		b.WriteByte('"')
		for _, r := range v.str {
			if r == '"' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteByte('"')
	case KindNumber:
		// Literals that have no token of their own are written as
		// expressions that evaluate to them.
		x := v.num
		switch {
		case math.IsNaN(x):
			b.WriteString("(0 / 0)")
		case math.IsInf(x, 1):
			b.WriteString("(1 / 0)")
		case x < 0:
			b.WriteString("(-")
			fmtlit(b, Num(-x))
			b.WriteByte(')')
		default:
			b.WriteString(v.String())
		}
	case KindArray:
		b.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				b.WriteString(", ")
			}
			fmtlit(b, e)
		}
		b.WriteByte(']')
	default:
		b.WriteString(v.String())
	}
}

// names adds the context names that n refers to.
func (n *node) names(m map[string]bool) {
	if n == nil {
		return
	}
	switch n.kind {
	case nodeName:
		m[n.name] = true
	case nodeCall:
		if n.fn == nil {
			m[n.name] = true
		}
	}
	n.cond.names(m)
	n.left.names(m)
	n.right.names(m)
	for _, c := range n.list {
		c.names(m)
	}
}
