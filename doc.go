// Package formula implements a small expression language for embedding in
// programs that evaluate user-supplied formulas.
//
// Expressions look like arithmetic in most programming languages.
// "a + b % c ^ d" is the same as "a + (b % (c ^ d))", and "-2^2" is
// "-(2^2)", where "a^b" is exponentiation. Values are numbers, strings,
// booleans, arrays written "[1, 2, 3]", and functions supplied by the caller.
// Comparisons with "==" and "!=" are strict: "1 == '1'" is false. The logical
// operators "&&" and "||" and the conditional "c ? a : b" only evaluate the
// operands they need.
//
// Math functions like sqrt and sin are bound when an expression is parsed and
// can be written without parentheses, as in "sqrt x" or "sin PI". Names that
// are not functions or constants are looked up in a Context when the
// expression is evaluated. Calls like "f(x)" to names that are not bound at
// parse time call a function from the Context.
//
// Parse an expression once and evaluate it for many inputs, or use a Parser
// to share options and cache expressions parsed from strings. An Expr may be
// evaluated from many goroutines at once.
package formula
