package formula

import "strconv"

// ParseError is an error indicating a token that cannot appear where it was
// found. It implements InputError. OperatorError, BracketError, and
// SeparatorError also convert to ParseError with errors.As, so callers can
// test for any malformed input with a single ParseError target.
type ParseError struct {
	// Col is the position of the unexpected token.
	Col int
	// Expected describes what the parser was looking for.
	Expected string
	// Found describes the token that was found instead.
	Found string
}

func (err *ParseError) Error() string {
	return errpos(err.Col, "expected "+err.Expected+", found "+err.Found)
}

func (err *ParseError) Pos() int {
	return err.Col
}

// OperatorError is an error indicating an operator token that is not
// understood by the parser. It implements InputError.
type OperatorError struct {
	// Col is the position of the operator.
	Col int
	// Operator is the token that was not understood.
	Operator string
	// Unary is whether the parser expected a unary operator at the time.
	Unary bool
	// Disabled is whether the operator exists but is not enabled by the
	// parser's Config.
	Disabled bool
}

func (err *OperatorError) Error() string {
	if err.Disabled {
		return errpos(err.Col, "operator "+strconv.Quote(err.Operator)+" is not enabled")
	}
	s := "binary"
	if err.Unary {
		s = "unary"
	}
	return errpos(err.Col, "unknown "+s+" operator "+strconv.Quote(err.Operator))
}

func (err *OperatorError) Pos() int {
	return err.Col
}

// As sets a *ParseError target to an equivalent ParseError.
func (err *OperatorError) As(target any) bool {
	what := "binary operator"
	switch {
	case err.Disabled:
		what = "enabled operator"
	case err.Unary:
		what = "unary operator"
	}
	return asParseError(target, err.Col, what, "operator "+strconv.Quote(err.Operator))
}

// BracketError is an error indicating mismatched brackets in the
// input. It implements InputError.
type BracketError struct {
	// Col is the position of the operator.
	Col int
	// Left is the opening bracket.
	Left string
	// Right is the mismatched closing bracket.
	Right string
}

func (err *BracketError) Error() string {
	if err.Left == "" {
		return errpos(err.Col, "close bracket "+err.Right+" with no open bracket")
	}
	if err.Right == "" {
		return errpos(err.Col, "open bracket "+err.Left+" with no close bracket")
	}
	return errpos(err.Col, "mismatched bracket: "+err.Left+"expr"+err.Right)
}

func (err *BracketError) Pos() int {
	return err.Col
}

// As sets a *ParseError target to an equivalent ParseError.
func (err *BracketError) As(target any) bool {
	switch {
	case err.Left == "":
		return asParseError(target, err.Col, "end of input", strconv.Quote(err.Right))
	case err.Right == "":
		return asParseError(target, err.Col, strconv.Quote(closebrackets[rightbracket(err.Left)]), "end of input")
	default:
		return asParseError(target, err.Col, strconv.Quote(closebrackets[rightbracket(err.Left)]), strconv.Quote(err.Right))
	}
}

// SeparatorError is an error indicating a comma outside an argument list or
// array. It implements InputError.
type SeparatorError struct {
	// Col is the position of the separator.
	Col int
	// Sep is the separator.
	Sep string
}

func (err *SeparatorError) Error() string {
	return errpos(err.Col, "invalid occurrence of separator "+strconv.Quote(err.Sep))
}

func (err *SeparatorError) Pos() int {
	return err.Col
}

// As sets a *ParseError target to an equivalent ParseError.
func (err *SeparatorError) As(target any) bool {
	return asParseError(target, err.Col, "operator", strconv.Quote(err.Sep))
}

// CallError is an error indicating a function call with the wrong number of
// arguments. It implements InputError.
type CallError struct {
	// Col is the position of the function name.
	Col int
	// Func is the function name that was called.
	Func string
	// Len is the number of arguments the function call tried to imply.
	Len int
}

func (err *CallError) Error() string {
	return errpos(err.Col, "cannot call "+err.Func+" with "+strconv.Itoa(err.Len)+" arguments")
}

func (err *CallError) Pos() int {
	return err.Col
}

// EmptyExpressionError is an error indicating an empty subexpression.
type EmptyExpressionError struct {
	// Col is the position of the token that ended the subexpression.
	Col int
	// End is the token that ended the subexpression.
	End string
}

func (err *EmptyExpressionError) Error() string {
	if err.End == "" {
		if err.Col <= 1 {
			return errpos(err.Col, "no expression")
		}
		return errpos(err.Col, "no expression at end")
	}
	return errpos(err.Col, "no expression up to "+strconv.Quote(err.End))
}

func (err *EmptyExpressionError) Pos() int {
	return err.Col
}

// asParseError sets target to a new ParseError if it is a **ParseError.
func asParseError(target any, col int, expected, found string) bool {
	p, ok := target.(**ParseError)
	if !ok {
		return false
	}
	*p = &ParseError{Col: col, Expected: expected, Found: found}
	return true
}

// errpos is a shortcut to create an error message with a position.
func errpos(pos int, msg string) string {
	return strconv.Itoa(pos) + ": " + msg
}

// InputError is an error with position information. Every error resulting from
// invalid input implements InputError.
type InputError interface {
	error
	// Pos returns the position of the error as the number of runes up to and
	// including the start of the token that caused the error.
	Pos() int
}

var (
	_ InputError = (*ParseError)(nil)
	_ InputError = (*OperatorError)(nil)
	_ InputError = (*BracketError)(nil)
	_ InputError = (*SeparatorError)(nil)
	_ InputError = (*CallError)(nil)
	_ InputError = (*EmptyExpressionError)(nil)
	_ InputError = (*LexError)(nil)
)
