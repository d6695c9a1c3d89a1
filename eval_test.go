package formula_test

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/formula"
)

// evalNum evaluates src and requires a number result.
func evalNum(t *testing.T, src string, opts ...formula.ContextOption) float64 {
	t.Helper()
	v, err := formula.EvalString(src, opts...)
	require.NoError(t, err, src)
	x, ok := v.Float()
	require.True(t, ok, "%s evaluated to %v, a %v", src, v, v.Kind())
	return x
}

// evalBool evaluates src and requires a boolean result.
func evalBool(t *testing.T, p *formula.Parser, src string, ctx *formula.Context) bool {
	t.Helper()
	v, err := p.EvalString(src, ctx)
	require.NoError(t, err, src)
	b, ok := v.Boolean()
	require.True(t, ok, "%s evaluated to %v, a %v", src, v, v.Kind())
	return b
}

func TestEvalNumbers(t *testing.T) {
	x := formula.SetVar("x", formula.Num(4))
	cases := []struct {
		name string
		src  string
		want float64
	}{
		{"num", "1", 1},
		{"ident", "x", 4},
		{"plus", "+x", 4},
		{"neg", "-x", -4},
		{"add", "4+5+6", 15},
		{"sub", "4-5-6", -7},
		{"mul", "4*5*6", 120},
		{"div", "4/5/6", 4.0 / 5.0 / 6.0},
		{"pow", "4^3^2", 262144},
		{"powneg", "2 ^ -1", 0.5},
		{"negpow", "-2^2", -4},
		{"parenpow", "(-2)^2", 4},
		{"mod", "7 % 3", 1},
		{"mod-neg-dividend", "-6 % 5", -1},
		{"mod-neg-divisor", "7 % -3", 1},
		{"mod-frac", "5.5 % 2", 1.5},
		{"precedence", "1 + 2 * 3 ^ 2", 19},
		{"cond", "x > 3 ? x * 10 : 0", 40},
		{"str-mul", "'3' * '4'", 12},
		{"str-space", "'  5 ' + 1", 6},
		{"str-empty", "'' + 1", 1},
		{"str-exp", "'1e3' / 10", 100},
		{"bool-add", "true + true", 2},
		{"length-str", "length 'hello'", 5},
		{"length-runes", "length 'héllo'", 5},
		{"length-empty", "length ''", 0},
		{"length-neg", "length -1", 2},
		{"length-frac", "length 123.5", 5},
		{"length-array", "length [1, 2, 3]", 3},
		{"length-bool", "length true", 4},
		{"min-cond", "min(1 ? 3 : 10, 0 ? 11 : 2)", 2},
		{"max", "max(1, 5, 3)", 5},
		{"min1", "min 2", 2},
		{"sqrt", "sqrt 16", 4},
		{"sqrt-paren", "sqrt(9) + 1", 4},
		{"abs", "abs -3", 3},
		{"floor", "floor -1.5", -2},
		{"ceil", "ceil 1.2", 2},
		{"trunc", "trunc -1.7", -1},
		{"sign", "sign -3", -1},
		{"log10", "log10 1000", 3},
		{"lg", "lg 100", 2},
		{"exp0", "exp 0", 1},
		{"pow-func", "pow(2, 10)", 1024},
		{"hypot", "hypot(3, 4)", 5},
		{"roundTo", "roundTo(1.005, 2)", 1.01},
		{"roundTo-neg", "roundTo(1234.5678, -2)", 1200},
		{"roundTo-zero", "roundTo(-2.5, 0)", -2},
		{"const-pi", "PI", math.Pi},
		{"const-e", "E", math.E},
		{"round-half", "round 2.5", 3},
		{"round-neg-half", "round -2.5", -2},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, evalNum(t, c.src, x))
		})
	}
}

func TestEvalInexact(t *testing.T) {
	cases := []struct {
		src  string
		want float64
	}{
		{"sin PI", 0},
		{"cos PI", -1},
		{"atan2(1, 1)", math.Pi / 4},
		{"ln E", 1},
		{"log E ^ 2", 1},
		{"atan 1e300", math.Pi / 2},
		{"asinh 1e300", 691.4686750787736},
		{"tanh 1000", 1},
		{"cbrt 27", 3},
		{"log2 8", 3},
		{"expm1 0", 0},
		{"log1p 0", 0},
	}
	for _, c := range cases {
		c := c
		t.Run(c.src, func(t *testing.T) {
			assert.InDelta(t, c.want, evalNum(t, c.src), 1e-9)
		})
	}
}

func TestEvalIEEE(t *testing.T) {
	x := formula.SetVar("x", formula.Num(5))
	nans := []string{"x % 0", "sqrt -1", "0/0", "acos 2", "'abc' * 1", "[1] + 1", "'0x10' + 0", "'a' + 'b'", "roundTo(1, 0.5)",
		"roundTo(1e300, 20)", "1 ^ (1/0)", "1 ^ (0/0)", "(-1) ^ (1/0)", "(-1) ^ -(1/0)", "pow(1, 0/0)"}
	for _, src := range nans {
		assert.True(t, math.IsNaN(evalNum(t, src, x)), src)
	}
	infs := []struct {
		src  string
		sign int
	}{
		{"ln 0", -1},
		{"log10 0", -1},
		{"atanh 1", 1},
		{"1/0", 1},
		{"-1/0", -1},
		{"1e400", 1},
		{"-1e400", -1},
		{"'Infinity' * 1", 1},
	}
	for _, c := range infs {
		assert.True(t, math.IsInf(evalNum(t, c.src), c.sign), c.src)
	}
	assert.Equal(t, 1.0, evalNum(t, "(0/0) ^ 0"))
	assert.Equal(t, 1.0, evalNum(t, "1 ^ 1e300"))
	z := evalNum(t, "round -0.5")
	assert.Equal(t, 0.0, z)
	assert.True(t, math.Signbit(z), "round -0.5 must be negative zero")
	z = evalNum(t, "round 0.4")
	assert.False(t, math.Signbit(z))
}

func TestEvalBools(t *testing.T) {
	p := formula.NewParser(formula.WithConfig(formula.Config{In: true}))
	ctx := formula.NewContext(
		formula.SetVar("a", formula.Num(7)),
		formula.SetVar("toto", formula.Array(formula.Str("a"), formula.Str("b"))),
	)
	cases := []struct {
		src  string
		want bool
	}{
		{"a == a", true},
		{"a != a", false},
		{"'3' == 3", false},
		{"3 == 3", true},
		{"'3' == '3'", true},
		{"1 != '1'", true},
		{"true == 1", false},
		{"[1, 2] == [1, 2]", true},
		{"[1] == [1, 2]", false},
		{"[1, '2'] == [1, 2]", false},
		{"2 > 1", true},
		{"'10' > '9'", true},
		{"1 >= 1", true},
		{"1 < 1", false},
		{"1 <= 1", true},
		{"!0", true},
		{"!-1", false},
		{"!'a'", false},
		{"!''", true},
		{"![]", false},
		{"1 && 'x'", true},
		{"0 || ''", false},
		{"1 || undefined", true},
		{"0 && undefined", false},
		{"'a' in toto", true},
		{"'c' in toto", false},
		{"[1] in [[1], 2]", true},
		{"1 in ['1']", false},
		{"length toto == 2", true},
		{"a > 1 && a < 10", true},
	}
	for _, c := range cases {
		c := c
		t.Run(c.src, func(t *testing.T) {
			assert.Equal(t, c.want, evalBool(t, p, c.src, ctx))
		})
	}
}

func TestEvalValues(t *testing.T) {
	v, err := formula.EvalString("'abc'")
	require.NoError(t, err)
	s, ok := v.Text()
	require.True(t, ok)
	assert.Equal(t, "abc", s)

	v, err = formula.EvalString("[1, 'a', [true]]")
	require.NoError(t, err)
	assert.True(t, formula.StrictEqual(formula.Array(formula.Num(1), formula.Str("a"), formula.Array(formula.Bool(true))), v))

	v, err = formula.EvalString("f", formula.SetFunc("f", formula.Monadic(math.Abs)))
	require.NoError(t, err)
	assert.Equal(t, formula.KindFunc, v.Kind())

	v, err = formula.EvalString("1 ? 42 : fail")
	require.NoError(t, err)
	assert.Equal(t, "42", v.String())
	v, err = formula.EvalString("0 ? fail : 99")
	require.NoError(t, err)
	assert.Equal(t, "99", v.String())
}

func TestEvalErrors(t *testing.T) {
	boom := errors.New("boom")
	ctx := formula.NewContext(
		formula.SetVar("n", formula.Num(1)),
		formula.SetFunc("g", formula.Monadic(math.Abs)),
		formula.SetFunc("fail", formula.FuncOf(func([]formula.Value) (formula.Value, error) {
			return formula.Value{}, boom
		})),
	)
	p := formula.NewParser(formula.WithConfig(formula.Config{In: true}))

	_, err := p.EvalString("x + 1", ctx)
	var nerr *formula.NameError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "x", nerr.Name)
	assert.EqualError(t, err, `undefined variable: "x"`)

	_, err = p.EvalString("f(1)", ctx)
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "f", nerr.Name)

	_, err = p.EvalString("1 ? n : x", ctx)
	assert.NoError(t, err)
	_, err = p.EvalString("0 ? n : x", ctx)
	assert.ErrorAs(t, err, &nerr)

	var terr *formula.TypeError
	_, err = p.EvalString("n(1)", ctx)
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "n", terr.Op)
	_, err = p.EvalString("g(1, 2)", ctx)
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "g", terr.Op)
	_, err = p.EvalString("g()", ctx)
	assert.ErrorAs(t, err, &terr)
	_, err = p.EvalString("1 in 1", ctx)
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "in", terr.Op)

	// An argument error comes before the arity check.
	_, err = p.EvalString("g(x, 2)", ctx)
	assert.ErrorAs(t, err, &nerr)

	_, err = p.EvalString("1 + fail()", ctx)
	assert.ErrorIs(t, err, boom)

	// Errors inside arrays, calls, and operands propagate.
	for _, src := range []string{"[1, x]", "-x", "!x", "length x", "x && 1", "1 && x", "x ? 1 : 2", "x in [1]", "[1] == x", "sqrt x", "min(1, x)"} {
		_, err := p.EvalString(src, ctx)
		assert.ErrorAs(t, err, &nerr, src)
	}

	// A nil context has no names.
	e, err := formula.ParseString("1 + 1")
	require.NoError(t, err)
	v, err := e.Eval(nil)
	require.NoError(t, err)
	assert.Equal(t, "2", v.String())
	e, err = formula.ParseString("y")
	require.NoError(t, err)
	_, err = e.Eval(nil)
	assert.ErrorAs(t, err, &nerr)

	// Parse errors come through the shortcuts.
	_, err = formula.EvalString("1 +")
	var ierr formula.InputError
	assert.ErrorAs(t, err, &ierr)
	_, err = formula.EvalString("'a' in toto", formula.SetVar("toto", formula.Array(formula.Str("a"))))
	var oerr *formula.OperatorError
	assert.ErrorAs(t, err, &oerr)
}

// counter is a context function that counts its calls.
type counter struct {
	calls int
	args  []float64
}

func (c *counter) Call(args []formula.Value) (formula.Value, error) {
	c.calls++
	for _, a := range args {
		c.args = append(c.args, formula.ToNumber(a))
	}
	return formula.Bool(true), nil
}

func (c *counter) CanCall(n int) bool {
	return true
}

func TestEvalCallCounts(t *testing.T) {
	cases := []struct {
		src       string
		called    int
		notCalled int
	}{
		{"false && notCalled()", 0, 0},
		{"true && called()", 1, 0},
		{"1 || notCalled()", 0, 0},
		{"0 || called()", 1, 0},
		{"1 ? called() : notCalled()", 1, 0},
		{"0 ? notCalled() : called()", 1, 0},
		{"called() + called()", 2, 0},
		{"[called(), called(), called()]", 3, 0},
		{"called(notCalled)", 1, 0},
		{"called() || notCalled()", 1, 0},
		{"called(called(), called())", 3, 0},
	}
	for _, c := range cases {
		c := c
		t.Run(c.src, func(t *testing.T) {
			var called, notCalled counter
			ctx := formula.NewContext(
				formula.SetFunc("called", &called),
				formula.SetFunc("notCalled", &notCalled),
			)
			e, err := formula.ParseString(c.src)
			require.NoError(t, err)
			_, err = e.Eval(ctx)
			require.NoError(t, err)
			assert.Equal(t, c.called, called.calls)
			assert.Equal(t, c.notCalled, notCalled.calls)
		})
	}
}

func TestEvalArgOrder(t *testing.T) {
	var rec, f counter
	_, err := formula.EvalString("f(rec(1), rec(2), rec(3))", formula.SetFunc("rec", &rec), formula.SetFunc("f", &f))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, rec.args)
	assert.Equal(t, []float64{1, 1, 1}, f.args)
}

func TestEvalConcurrent(t *testing.T) {
	e, err := formula.ParseString("x * 2 + sq(x)")
	require.NoError(t, err)
	sq := formula.Monadic(func(x float64) float64 { return x * x })
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := formula.NewContext(formula.SetVar("x", formula.Num(float64(i))), formula.SetFunc("sq", sq))
			for j := 0; j < 100; j++ {
				v, err := e.Eval(ctx)
				if !assert.NoError(t, err) {
					return
				}
				x, _ := v.Float()
				assert.Equal(t, float64(2*i+i*i), x)
			}
		}(i)
	}
	wg.Wait()
}

func TestContext(t *testing.T) {
	ctx := formula.NewContext(nil, formula.SetVars(map[string]formula.Value{
		"a": formula.Num(1),
		"b": formula.Str("x"),
	}))
	v, ok := ctx.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "1", v.String())
	_, ok = ctx.Lookup("c")
	assert.False(t, ok)

	c2 := ctx.Clone(formula.SetVar("a", formula.Num(2)))
	v, _ = c2.Lookup("a")
	assert.Equal(t, "2", v.String())
	v, _ = ctx.Lookup("a")
	assert.Equal(t, "1", v.String(), "Clone must not modify the original")
	v, _ = c2.Lookup("b")
	assert.Equal(t, "x", v.String())

	assert.Same(t, ctx, ctx.Set("c", formula.Bool(true)))
	v, ok = ctx.Lookup("c")
	require.True(t, ok)
	assert.Equal(t, "true", v.String())
	var zero formula.Context
	zero.Set("z", formula.Num(0))
	_, ok = zero.Lookup("z")
	assert.True(t, ok)

	n := evalNum(t, "n + length s + length xs + ok", formula.Bind(map[string]any{
		"n":  3,
		"s":  "hi",
		"xs": []int{1, 2},
		"ok": true,
	}))
	assert.Equal(t, 8.0, n)
	assert.Panics(t, func() { formula.Bind(map[string]any{"m": map[string]int{}}) })
	assert.Panics(t, func() { formula.SetFunc("f", nil) })
}
