package formula

import "strings"

// operator describes an operator in the registry.
type operator struct {
	// sym is the operator's symbol or word.
	sym string
	// prec is the precedence value. Higher is more binding.
	prec int8
	// right indicates right-associativity.
	right bool
	// op is the node kind to use when this operator is selected.
	op nodeKind
	// lazy indicates that the operator may skip evaluating its right operand.
	lazy bool
	// opt indicates that the operator is disabled unless a Config enables it.
	opt bool
}

func (p operator) moreBinding(than operator) bool {
	if p.prec != than.prec {
		return p.prec > than.prec
	}
	return p.right
}

// word reports whether the operator is spelled as an identifier.
func (p operator) word() bool {
	return p.sym != "" && isIdentStart(rune(p.sym[0]))
}

func isIdentStart(r rune) bool {
	return r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z'
}

// Precedence levels, loosest to tightest.
const (
	precCond int8 = 1 + iota
	precOr
	precAnd
	precNot
	precRel
	precAdd
	precMul
	precPrefix
	precPow
	precFunc
)

// binops is the registry of binary operators.
var binops = map[string]operator{
	"^":  {"^", precPow, true, nodePow, false, false},
	"*":  {"*", precMul, false, nodeMul, false, false},
	"/":  {"/", precMul, false, nodeDiv, false, false},
	"%":  {"%", precMul, false, nodeMod, false, false},
	"+":  {"+", precAdd, false, nodeAdd, false, false},
	"-":  {"-", precAdd, false, nodeSub, false, false},
	"==": {"==", precRel, false, nodeEq, false, false},
	"!=": {"!=", precRel, false, nodeNe, false, false},
	">":  {">", precRel, false, nodeGt, false, false},
	">=": {">=", precRel, false, nodeGe, false, false},
	"<":  {"<", precRel, false, nodeLt, false, false},
	"<=": {"<=", precRel, false, nodeLe, false, false},
	"in": {"in", precRel, false, nodeIn, false, true},
	"&&": {"&&", precAnd, false, nodeAnd, true, false},
	"||": {"||", precOr, false, nodeOr, true, false},
}

// unops is the registry of prefix operators.
var unops = map[string]operator{
	"-":      {"-", precPrefix, true, nodeNeg, false, false},
	"+":      {"+", precPrefix, true, nodePos, false, false},
	"length": {"length", precPrefix, true, nodeLength, false, false},
	"!":      {"!", precNot, true, nodeNot, false, false},
}

var (
	// condprec is the precedence of the conditional operator. The parser
	// handles ? and : specially, so the node kind is only for completeness.
	condprec = operator{"?", precCond, true, nodeCond, true, false}
	// callprec is the precedence of the operand of a prefix function call.
	callprec = operator{"", precFunc, true, nodeCall, false, false}
	// exprprec is the precedence required to parse an entire subexpression.
	exprprec = operator{"", -128, true, nodeNone, false, false}
)

// opsyms is the set of symbols the lexer recognizes as operators.
var opsyms = func() map[string]bool {
	m := map[string]bool{"?": true, ":": true}
	for _, tab := range []map[string]operator{binops, unops} {
		for k, v := range tab {
			if !v.word() {
				m[k] = true
			}
		}
	}
	return m
}()

// isOpPrefix returns whether s is a prefix of any operator symbol.
func isOpPrefix(s string) bool {
	for k := range opsyms {
		if strings.HasPrefix(k, s) {
			return true
		}
	}
	return false
}

// binop gets a binary operator for a token string using the registry. If
// there is no such binary operator, then the result has an op of nodeNone.
func binop(text string) operator {
	return binops[text]
}

// unop gets a prefix operator for a token string. If there is no such
// operator, then the result has an op of nodeNone.
func unop(text string) operator {
	return unops[text]
}
