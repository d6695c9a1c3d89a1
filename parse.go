package formula

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Expr    = Cond
// Cond    = Or [ '?' Expr ':' Cond ]
// Or      = And { '||' And }
// And     = Not { '&&' Not }
// Not     = '!' Not | Rel
// Rel     = Add { ('==' | '!=' | '<' | '<=' | '>' | '>=' | 'in') Add }
// Add     = Mul { ('+' | '-') Mul }
// Mul     = Prefix { ('*' | '/' | '%') Prefix }
// Prefix  = ('-' | '+' | 'length') Prefix | Pow
// Pow     = Primary [ '^' Prefix ]
// Primary = num | string | const | name | name ArgList | Call
//         | '(' Expr ')' | '[' [ Expr { ',' Expr } ] ']'
// Call    = funcname ArgList | funcname Primary | funcname
// ArgList = '(' [ Expr { ',' Expr } ] ')'

// Expr is a parsed expression that can be evaluated with a context. An Expr
// is immutable and safe to evaluate concurrently.
type Expr struct {
	// n is the root node of the expression.
	n *node
	// names is the list of context names used in the expression.
	names []string
}

// Parse parses an expression so it can be evaluated with a context. The given
// options are applied in order.
func Parse(src io.RuneScanner, opts ...ParseOption) (*Expr, error) {
	var p parsectx
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	p.finish()
	return parse(src, p)
}

// ParseString is a shortcut to parse an expression from a string.
func ParseString(src string, opts ...ParseOption) (*Expr, error) {
	return Parse(strings.NewReader(src), opts...)
}

// parse parses an expression using finished options.
func parse(src io.RuneScanner, p parsectx) (*Expr, error) {
	scan := lex(src)
	p.names = make(map[string]bool)
	n, err := parseterm(scan, &p, exprprec)
	if err != nil {
		return nil, err
	}
	switch tok := scan.must(); tok.kind {
	case tokenEOF:
	case tokenSep:
		if !p.ceof {
			return nil, itShouldNotHaveEndedThisWay(tok, -1)
		}
	default:
		return nil, itShouldNotHaveEndedThisWay(tok, -1)
	}
	n.names(p.names)
	ex := Expr{
		n:     n,
		names: make([]string, 0, len(p.names)),
	}
	for k := range p.names {
		ex.names = append(ex.names, k)
	}
	sort.Strings(ex.names)
	return &ex, nil
}

// parseterm parses an expression in which every binary operator binds more
// tightly than until. If there is no error, then parseterm pushes the last
// token it scans, including EOF.
func parseterm(scan *lexer, p *parsectx, until operator) (*node, error) {
	n, err := parselhs(scan, p, until)
	if err != nil {
		return nil, err
	}
	for {
		tok, err := scan.next(p.wseof)
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokenOp, tokenIdent:
			switch tok.text {
			case ":":
				// End of a conditional's middle operand.
				scan.push(tok)
				return n, nil
			case "?":
				if !condprec.moreBinding(until) {
					scan.push(tok)
					return n, nil
				}
				n, err = parsecond(scan, p, n)
				if err != nil {
					return nil, err
				}
				continue
			}
			prec, err := p.binop(tok)
			if err != nil {
				return nil, err
			}
			if !prec.moreBinding(until) {
				scan.push(tok)
				return n, nil
			}
			rhs, err := parseterm(scan, p, prec)
			if err != nil {
				return nil, err
			}
			n = &node{kind: prec.op, name: prec.sym, left: n, right: rhs}
		case tokenClose, tokenSep, tokenEOF:
			// End of expression.
			scan.push(tok)
			return n, nil
		case tokenNum, tokenStr, tokenOpen:
			return nil, &ParseError{Col: tok.pos, Expected: "operator", Found: found(tok)}
		default:
			panic("formula: unknown token: " + tok.String())
		}
	}
}

// binop gets the enabled binary operator for a token. Disabled and unknown
// operators are errors.
func (p *parsectx) binop(tok lexToken) (operator, error) {
	if op, ok := p.binops[tok.text]; ok {
		return op, nil
	}
	if op := binop(tok.text); op.op != nodeNone {
		return operator{}, &OperatorError{Col: tok.pos, Operator: tok.text, Disabled: true}
	}
	if tok.kind == tokenIdent {
		return operator{}, &ParseError{Col: tok.pos, Expected: "operator", Found: found(tok)}
	}
	return operator{}, &OperatorError{Col: tok.pos, Operator: tok.text}
}

// parsecond parses the branches of a conditional after its '?'.
func parsecond(scan *lexer, p *parsectx, cond *node) (*node, error) {
	then, err := parseterm(scan, p, exprprec)
	if err != nil {
		return nil, err
	}
	if tok := scan.must(); tok.kind != tokenOp || tok.text != ":" {
		return nil, &ParseError{Col: tok.pos, Expected: `":"`, Found: found(tok)}
	}
	// Recursing at the conditional's own precedence makes it
	// right-associative: a ? b : c ? d : e is a ? b : (c ? d : e).
	els, err := parseterm(scan, p, condprec)
	if err != nil {
		return nil, err
	}
	return &node{kind: nodeCond, name: "?", cond: cond, left: then, right: els}, nil
}

// parselhs parses the first component of a term. I.e., operators are unary,
// any encountered token must be valid as the start of a subexpression, and
// whitespace normally lexed as EOF is ignored.
func parselhs(scan *lexer, p *parsectx, until operator) (*node, error) {
	// Don't use EOF whitespace for LHS.
	tok, err := scan.next("")
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokenNum:
		return &node{kind: nodeLit, val: Num(tok.num)}, nil
	case tokenStr:
		return &node{kind: nodeLit, val: Str(tok.text)}, nil
	case tokenIdent:
		if op := unop(tok.text); op.op != nodeNone {
			return parseunary(scan, p, until, op)
		}
		if v, ok := p.consts[tok.text]; ok {
			return &node{kind: nodeLit, name: tok.text, val: v}, nil
		}
		if fn := p.funcs[tok.text]; fn != nil {
			return parsecall(scan, p, fn, tok)
		}
		if _, ok := p.binops[tok.text]; ok {
			// An enabled word operator is reserved.
			return nil, &ParseError{Col: tok.pos, Expected: "expression", Found: found(tok)}
		}
		// Either a context name or a call to a context function.
		next, err := scan.next(p.wseof)
		if err != nil {
			return nil, err
		}
		if next.kind != tokenOpen || next.text != "(" {
			scan.push(next)
			return &node{kind: nodeName, name: tok.text}, nil
		}
		args, err := parselist(scan, p, next)
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeCall, name: tok.text, list: args}, nil
	case tokenOp:
		op := unop(tok.text)
		if op.op == nodeNone {
			return nil, &OperatorError{Col: tok.pos, Operator: tok.text, Unary: true}
		}
		return parseunary(scan, p, until, op)
	case tokenOpen:
		if tok.text == "[" {
			elems, err := parselist(scan, p, tok)
			if err != nil {
				return nil, err
			}
			return &node{kind: nodeArray, list: elems}, nil
		}
		match := rightbracket(tok.text)
		n, err := parseterm(scan, p, exprprec)
		if err != nil {
			return nil, err
		}
		end := scan.must()
		if end.kind != tokenClose || end.text != closebrackets[match] {
			return nil, itShouldNotHaveEndedThisWay(end, match)
		}
		return n, nil
	case tokenSep:
		return nil, &SeparatorError{Col: tok.pos, Sep: tok.text}
	case tokenClose:
		return nil, &EmptyExpressionError{Col: tok.pos, End: tok.text}
	case tokenEOF:
		return nil, &EmptyExpressionError{Col: tok.pos, End: ""}
	default:
		panic("formula: unknown token: " + tok.String())
	}
}

// parseunary parses the operand of a prefix operator.
func parseunary(scan *lexer, p *parsectx, until operator, op operator) (*node, error) {
	if !op.moreBinding(until) {
		// x^-y -> x^(-y)
		// Just use the required precedence to simplify.
		op.prec, op.right = until.prec, until.right
	}
	rhs, err := parseterm(scan, p, op)
	if err != nil {
		return nil, err
	}
	return &node{kind: op.op, name: op.sym, left: rhs}, nil
}

// parsecall parses the arguments to a call of a function bound at parse time.
func parsecall(scan *lexer, p *parsectx, fn Func, name lexToken) (*node, error) {
	// We respect whitespace here so that f\nx doesn't string together
	// expressions.
	tok, err := scan.next(p.wseof)
	if err != nil {
		return nil, err
	}
	n := &node{kind: nodeCall, name: name.text, fn: fn}
	if tok.kind == tokenOpen && tok.text == "(" {
		n.list, err = parselist(scan, p, tok)
		if err != nil {
			return nil, err
		}
		if !fn.CanCall(len(n.list)) {
			return nil, &CallError{Col: name.pos, Func: name.text, Len: len(n.list)}
		}
		return n, nil
	}
	if !startsTerm(p, tok) || !fn.CanCall(1) && fn.CanCall(0) {
		// No argument. The token is left for the caller, usually as a binary
		// operator.
		if !fn.CanCall(0) {
			return nil, &CallError{Col: name.pos, Func: name.text}
		}
		scan.push(tok)
		return n, nil
	}
	// Single argument. sqrt x -> sqrt(x)
	if !fn.CanCall(1) {
		return nil, &CallError{Col: name.pos, Func: name.text, Len: 1}
	}
	scan.push(tok)
	arg, err := parseterm(scan, p, callprec)
	if err != nil {
		return nil, err
	}
	n.list = []*node{arg}
	return n, nil
}

// startsTerm returns whether tok can begin an operand.
func startsTerm(p *parsectx, tok lexToken) bool {
	switch tok.kind {
	case tokenNum, tokenStr, tokenOpen:
		return true
	case tokenIdent:
		_, ok := p.binops[tok.text]
		return !ok
	case tokenOp:
		return unop(tok.text).op != nodeNone
	default:
		return false
	}
}

// parselist parses a bracketed list of zero or more expressions after its
// open bracket, through its close bracket.
func parselist(scan *lexer, p *parsectx, open lexToken) ([]*node, error) {
	match := rightbracket(open.text)
	tok, err := scan.next("")
	if err != nil {
		return nil, err
	}
	if tok.kind == tokenClose {
		if tok.text != closebrackets[match] {
			return nil, &BracketError{Col: tok.pos, Left: open.text, Right: tok.text}
		}
		return nil, nil
	}
	scan.push(tok)
	var list []*node
	for {
		n, err := parseterm(scan, p, exprprec)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
		end := scan.must()
		switch end.kind {
		case tokenSep:
			continue
		case tokenClose:
			if end.text != closebrackets[match] {
				return nil, &BracketError{Col: end.pos, Left: open.text, Right: end.text}
			}
			return list, nil
		default:
			return nil, itShouldNotHaveEndedThisWay(end, match)
		}
	}
}

// rightbracket gets the closing bracket index for an opening bracket.
func rightbracket(left string) int {
	r, sz := utf8.DecodeRuneInString(left)
	k := strings.IndexRune(OpenBrackets, r)
	if k < 0 || sz != len(left) {
		panic("formula: invalid bracket " + strconv.Quote(left))
	}
	return k
}

// leftbracket gets the opening bracket matching right. If right is no bracket,
// then the result is the empty string.
func leftbracket(right int) string {
	if right == -1 {
		return ""
	}
	return openbrackets[right]
}

// itShouldNotHaveEndedThisWay returns an error appropriate for an unexpected
// token at the end of a subexpression. match is the bracket rune index that
// the expression should have matched, or -1 if none.
func itShouldNotHaveEndedThisWay(tok lexToken, match int) error {
	switch tok.kind {
	case tokenEOF:
		if match == -1 {
			return &ParseError{Col: tok.pos, Expected: "expression", Found: found(tok)}
		}
		// Unexpected EOF implies an open bracket that was not closed.
		return &BracketError{Col: tok.pos, Left: leftbracket(match), Right: ""}
	case tokenClose:
		// A bracket could be the wrong bracket for the opening brace or any
		// bracket at the end of an input.
		return &BracketError{Col: tok.pos, Left: leftbracket(match), Right: tok.text}
	case tokenSep:
		// Separator outside a list.
		return &SeparatorError{Col: tok.pos, Sep: tok.text}
	case tokenOp:
		// Only a conditional's ':' ends a term this way.
		want := "end of input"
		if match != -1 {
			want = strconv.Quote(closebrackets[match])
		}
		return &ParseError{Col: tok.pos, Expected: want, Found: found(tok)}
	default:
		panic("formula: it really should not have ended this way: " + tok.String())
	}
}

// found describes a token for a ParseError.
func found(tok lexToken) string {
	switch tok.kind {
	case tokenEOF:
		return "end of input"
	case tokenStr:
		return "string " + strconv.Quote(tok.text)
	case tokenNum:
		return "number " + tok.text
	case tokenIdent:
		return "name " + tok.text
	default:
		return strconv.Quote(tok.text)
	}
}

// Vars returns the context names used when evaluating the expression. This
// includes the names of context functions the expression calls.
func (e *Expr) Vars() []string {
	return append(([]string)(nil), e.names...)
}

// String creates the canonical representation of the parsed expression, with
// every operator application fully parenthesized, e.g. "(a + (b % (c ^ d)))".
func (e *Expr) String() string {
	var b strings.Builder
	e.n.fmt(&b)
	return b.String()
}
