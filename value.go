package formula

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind is the type of a Value.
type Kind uint8

const (
	// KindNumber is a double-precision floating-point number.
	KindNumber Kind = iota
	// KindString is a string.
	KindString
	// KindBool is a boolean.
	KindBool
	// KindArray is an array of values.
	KindArray
	// KindFunc is a function provided by the evaluation context.
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	case KindArray:
		return "array"
	case KindFunc:
		return "function"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a runtime value. The zero Value is the number 0.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	arr  []Value
	fn   Func
}

// Num creates a number value.
func Num(x float64) Value {
	return Value{kind: KindNumber, num: x}
}

// Str creates a string value.
func Str(s string) Value {
	return Value{kind: KindString, str: s}
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Array creates an array value. The array uses elems directly.
func Array(elems ...Value) Value {
	return Value{kind: KindArray, arr: elems}
}

// FuncValue creates a function value. Panics if fn is nil.
func FuncValue(fn Func) Value {
	if fn == nil {
		panic("formula: nil Func")
	}
	return Value{kind: KindFunc, fn: fn}
}

// Kind returns the type of v.
func (v Value) Kind() Kind {
	return v.kind
}

// Float returns v's number and whether v is a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Text returns v's string and whether v is a string.
func (v Value) Text() (string, bool) {
	return v.str, v.kind == KindString
}

// Boolean returns v's boolean and whether v is a boolean.
func (v Value) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Elems returns v's elements and whether v is an array. The caller must not
// modify the returned slice.
func (v Value) Elems() ([]Value, bool) {
	return v.arr, v.kind == KindArray
}

// Func returns v's function and whether v is a function.
func (v Value) Func() (Func, bool) {
	return v.fn, v.kind == KindFunc
}

// Interface converts v to a plain Go value: float64, string, bool, []any, or
// Func.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindArray:
		r := make([]any, len(v.arr))
		for i, e := range v.arr {
			r[i] = e.Interface()
		}
		return r
	case KindFunc:
		return v.fn
	default:
		panic("formula: invalid value kind " + v.kind.String())
	}
}

// String converts v to its string form. Numbers use the shortest decimal
// representation that round-trips, switching to exponent notation for very
// large and very small magnitudes; arrays join their elements with commas.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return formatNumber(v.num)
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindArray:
		s := make([]string, len(v.arr))
		for i, e := range v.arr {
			s[i] = e.String()
		}
		return strings.Join(s, ",")
	case KindFunc:
		return "[function]"
	default:
		panic("formula: invalid value kind " + v.kind.String())
	}
}

// formatNumber formats x the way a number converts to a string in
// expressions.
func formatNumber(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	case x == 0:
		// Includes negative zero.
		return "0"
	}
	if a := math.Abs(x); a < 1e21 && a >= 1e-6 {
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	s := strconv.FormatFloat(x, 'e', -1, 64)
	// Go writes at least two exponent digits.
	m, e, _ := strings.Cut(s, "e")
	return m + "e" + e[:1] + strings.TrimLeft(e[1:], "0")
}

// length is the length of v as used by the length operator.
func (v Value) length() int {
	if v.kind == KindArray {
		return len(v.arr)
	}
	return utf8.RuneCountInString(v.String())
}

// ToNumber converts a value to a number. Strings are parsed as decimal
// numbers, with surrounding whitespace ignored and the empty string being
// zero; strings that are not numbers convert to NaN. Booleans are 1 or 0.
// Arrays and functions are NaN.
func ToNumber(v Value) float64 {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return strToNumber(v.str)
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}

func strToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	// strconv accepts forms like "inf", "0x1p3", and "nan" that are not
	// decimal numbers.
	for _, r := range s {
		switch {
		case '0' <= r && r <= '9':
		case r == '.', r == 'e', r == 'E', r == '+', r == '-':
		default:
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

// ToBool converts a value to a boolean. Numbers are true when nonzero and not
// NaN, strings when non-empty. Arrays and functions are always true.
func ToBool(v Value) bool {
	switch v.kind {
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindString:
		return v.str != ""
	case KindBool:
		return v.b
	default:
		return true
	}
}

// StrictEqual returns whether two values have the same kind and the same
// value, without any conversions. Numbers compare by IEEE-754 equality, so NaN
// is not equal to itself. Arrays are equal when their elements are pairwise
// strictly equal. Functions are never equal.
func StrictEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNumber:
		return a.num == b.num
	case KindString:
		return a.str == b.str
	case KindBool:
		return a.b == b.b
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !StrictEqual(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ValueOf converts a Go value to a Value. Supported types are Value, Func,
// string, bool, all integer and floating-point types, and slices and arrays
// of supported types.
func ValueOf(x any) (Value, error) {
	switch x := x.(type) {
	case Value:
		return x, nil
	case Func:
		if x == nil {
			break
		}
		return FuncValue(x), nil
	case string:
		return Str(x), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Num(x), nil
	case float32:
		return Num(float64(x)), nil
	case int:
		return Num(float64(x)), nil
	case int64:
		return Num(float64(x)), nil
	case []Value:
		return Array(x...), nil
	case []any:
		r := make([]Value, len(x))
		for i, e := range x {
			v, err := ValueOf(e)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			r[i] = v
		}
		return Array(r...), nil
	}
	if x == nil {
		return Value{}, &ConversionError{Type: "nil"}
	}
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Num(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Num(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Num(rv.Float()), nil
	case reflect.String:
		return Str(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Slice, reflect.Array:
		r := make([]Value, rv.Len())
		for i := range r {
			v, err := ValueOf(rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			r[i] = v
		}
		return Array(r...), nil
	}
	return Value{}, &ConversionError{Type: rv.Type().String()}
}

// ConversionError is an error converting a Go value with ValueOf.
type ConversionError struct {
	// Type is the Go type that could not be converted.
	Type string
}

func (err *ConversionError) Error() string {
	return "cannot convert " + err.Type + " to a formula value"
}
