package formula

import (
	"math"
	"strconv"
	"strings"
)

// Func is a function callable from expressions. Funcs are either bound at
// parse time by name, like the default math functions, or supplied as values
// in an evaluation context.
type Func interface {
	// Call evaluates the function. args has a length for which CanCall
	// returned true. Call must not modify the elements of args.
	Call(args []Value) (Value, error)

	// CanCall returns whether the function can be called with n arguments.
	// For functions bound at parse time, this controls how the parser
	// handles instances of the function:
	//
	// 	1.	If a parenthesized list of n expressions follows the function,
	//		the parser accepts the call if CanCall(n) and rejects it
	//		otherwise.
	//
	// 	2.	If a bare term follows the function and CanCall(1), then the
	//		parser treats the term as an argument to the function. E.g.,
	//		"sqrt x" is parsed as "sqrt(x)". Otherwise, the function is
	//		called with no arguments if CanCall(0), or rejected.
	//
	// For functions in an evaluation context, calling with n arguments
	// when !CanCall(n) is a TypeError.
	CanCall(n int) bool
}

// globalfuncs is the set of default functions bound at parse time.
var globalfuncs = map[string]Func{
	"sin":   Monadic(math.Sin),
	"cos":   Monadic(math.Cos),
	"tan":   Monadic(math.Tan),
	"asin":  Monadic(math.Asin),
	"acos":  Monadic(math.Acos),
	"atan":  Monadic(math.Atan),
	"sinh":  Monadic(math.Sinh),
	"cosh":  Monadic(math.Cosh),
	"tanh":  Monadic(math.Tanh),
	"asinh": Monadic(math.Asinh),
	"acosh": Monadic(math.Acosh),
	"atanh": Monadic(math.Atanh),
	"sqrt":  Monadic(math.Sqrt),
	"cbrt":  Monadic(math.Cbrt),
	"abs":   Monadic(math.Abs),
	"ceil":  Monadic(math.Ceil),
	"floor": Monadic(math.Floor),
	"round": Monadic(round),
	"trunc": Monadic(math.Trunc),
	"sign":  Monadic(sign),
	"exp":   Monadic(math.Exp),
	"expm1": Monadic(math.Expm1),
	"ln":    Monadic(math.Log),
	"log":   Monadic(math.Log),
	"log1p": Monadic(math.Log1p),
	"log2":  Monadic(math.Log2),
	"log10": Monadic(log10),
	"lg":    Monadic(log10),

	"min":     Variadic(minimum),
	"max":     Variadic(maximum),
	"pow":     Dyadic(pow),
	"atan2":   Dyadic(math.Atan2),
	"hypot":   Dyadic(math.Hypot),
	"roundTo": Dyadic(roundTo),
}

// globalconsts is the set of default constants substituted at parse time.
var globalconsts = map[string]Value{
	"PI":    Num(math.Pi),
	"E":     Num(math.E),
	"true":  Bool(true),
	"false": Bool(false),
}

// round rounds x to the nearest integer, with halves rounding toward positive
// infinity. The sign of a zero result follows x, so round(-0.5) is -0.
func round(x float64) float64 {
	r := math.Floor(x)
	// x-r is exact for all x where r != x.
	if x-r >= 0.5 {
		r++
	}
	if r == 0 && math.Signbit(x) {
		return math.Copysign(0, -1)
	}
	return r
}

// sign returns -1, 0, or 1 according to the sign of x, preserving zeros and
// NaN.
func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return x
	}
}

// pow is math.Pow, except that a base of ±1 with an infinite or NaN exponent
// gives NaN.
func pow(x, y float64) float64 {
	if (x == 1 || x == -1) && (math.IsInf(y, 0) || math.IsNaN(y)) {
		return math.NaN()
	}
	return math.Pow(x, y)
}

// log10 is the base-10 logarithm, exact for integral powers of ten.
func log10(x float64) float64 {
	r := math.Log10(x)
	if n := math.Round(r); n != r && math.Pow(10, n) == x {
		return n
	}
	return r
}

func minimum(xs ...float64) float64 {
	r := math.Inf(1)
	for _, x := range xs {
		if math.IsNaN(x) {
			return x
		}
		if x < r || x == 0 && r == 0 && math.Signbit(x) {
			r = x
		}
	}
	return r
}

func maximum(xs ...float64) float64 {
	r := math.Inf(-1)
	for _, x := range xs {
		if math.IsNaN(x) {
			return x
		}
		if x > r || x == 0 && r == 0 && !math.Signbit(x) {
			r = x
		}
	}
	return r
}

// roundTo rounds x to n decimal places, with halves rounding toward positive
// infinity. The shift is done in decimal so that e.g. roundTo(1.005, 2) is
// 1.01. If n is not an integer or the shifted value overflows, the result is
// NaN.
func roundTo(x, n float64) float64 {
	switch {
	case n != math.Trunc(n), math.IsInf(n, 0):
		return math.NaN()
	case n == 0:
		return round(x)
	case x == 0, math.IsNaN(x), math.IsInf(x, 0):
		return x
	case n > maxShift:
		return math.NaN()
	case n < -maxShift:
		return math.Copysign(0, x)
	}
	s, ok := shift(x, int(n))
	if !ok {
		return math.NaN()
	}
	r, ok := shift(round(s), -int(n))
	if !ok {
		return math.NaN()
	}
	return r
}

// maxShift bounds the decimal shift in roundTo. Any finite float64 shifted
// further overflows or underflows entirely.
const maxShift = 1000

// shift multiplies finite x by 10^n by adjusting its decimal exponent. The
// result is false if the product is not finite.
func shift(x float64, n int) (float64, bool) {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return x, false
	}
	s := strconv.FormatFloat(x, 'e', -1, 64)
	m, e, ok := strings.Cut(s, "e")
	if !ok {
		return x, false
	}
	k, err := strconv.Atoi(e)
	if err != nil {
		return x, false
	}
	r, err := strconv.ParseFloat(m+"e"+strconv.Itoa(k+n), 64)
	if err != nil || math.IsInf(r, 0) {
		// ParseFloat reports overflow as ErrRange with an infinite result.
		// Underflow to zero is not an error.
		return r, false
	}
	return r, true
}

// Monadic wraps a function of one number into a Func. The argument is
// converted with ToNumber.
func Monadic(f func(float64) float64) Func {
	return monadic{f}
}

type monadic struct {
	f func(float64) float64
}

func (m monadic) Call(args []Value) (Value, error) {
	return Num(m.f(ToNumber(args[0]))), nil
}

func (m monadic) CanCall(n int) bool {
	return n == 1
}

// Dyadic wraps a function of two numbers into a Func. The arguments are
// converted with ToNumber.
func Dyadic(f func(x, y float64) float64) Func {
	return dyadic{f}
}

type dyadic struct {
	f func(x, y float64) float64
}

func (d dyadic) Call(args []Value) (Value, error) {
	return Num(d.f(ToNumber(args[0]), ToNumber(args[1]))), nil
}

func (d dyadic) CanCall(n int) bool {
	return n == 2
}

// Variadic wraps a function of one or more numbers into a Func. The arguments
// are converted with ToNumber.
func Variadic(f func(xs ...float64) float64) Func {
	return variadic{f}
}

type variadic struct {
	f func(xs ...float64) float64
}

func (v variadic) Call(args []Value) (Value, error) {
	xs := make([]float64, len(args))
	for i, a := range args {
		xs[i] = ToNumber(a)
	}
	return Num(v.f(xs...)), nil
}

func (v variadic) CanCall(n int) bool {
	return n >= 1
}

// Niladic wraps a function of no arguments, e.g. one that computes a constant,
// into a Func.
func Niladic(f func() Value) Func {
	return niladic{f}
}

type niladic struct {
	f func() Value
}

func (n niladic) Call(args []Value) (Value, error) {
	return n.f(), nil
}

func (n niladic) CanCall(k int) bool {
	return k == 0
}

// FuncOf wraps a function of values into a Func that can be called with any
// of the given numbers of arguments. With no arities given, the function can
// be called with any number of arguments.
func FuncOf(f func(args []Value) (Value, error), arities ...int) Func {
	return funcof{f: f, can: append([]int(nil), arities...)}
}

type funcof struct {
	f   func(args []Value) (Value, error)
	can []int
}

func (f funcof) Call(args []Value) (Value, error) {
	return f.f(args)
}

func (f funcof) CanCall(n int) bool {
	if len(f.can) == 0 {
		return true
	}
	for _, v := range f.can {
		if v == n {
			return true
		}
	}
	return false
}
