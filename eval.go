package formula

import (
	"io"
	"math"
	"strconv"
	"strings"
)

// Context is a context for evaluating expressions. Evaluation only reads from
// the context, so a Context may be shared by concurrent evaluations as long as
// no goroutine calls Set at the same time.
type Context struct {
	names map[string]Value
}

// ContextOption is an option used when creating a context.
type ContextOption interface {
	ctxOption()
}

type (
	varopt struct {
		name string
		val  Value
	}
	varsopt map[string]Value
	bindopt map[string]Value
)

func (varopt) ctxOption()  {}
func (varsopt) ctxOption() {}
func (bindopt) ctxOption() {}

// SetVar sets the value of a variable in the context.
func SetVar(name string, val Value) ContextOption {
	return varopt{name, val}
}

// SetVars sets the values of any number of variables in the context.
func SetVars(vars map[string]Value) ContextOption {
	return varsopt(vars)
}

// SetFunc sets a function in the context. Expressions call it as name(args).
// Panics if fn is nil.
func SetFunc(name string, fn Func) ContextOption {
	return varopt{name, FuncValue(fn)}
}

// Bind converts plain Go values with ValueOf and sets them in the context.
// Panics if any value cannot be converted.
func Bind(vars map[string]any) ContextOption {
	m := make(bindopt, len(vars))
	for k, x := range vars {
		v, err := ValueOf(x)
		if err != nil {
			panic("formula: cannot bind " + strconv.Quote(k) + ": " + err.Error())
		}
		m[k] = v
	}
	return m
}

// NewContext creates a new evaluation context.
func NewContext(opts ...ContextOption) *Context {
	var ctx Context
	return ctx.Clone(opts...)
}

// Set sets the value of a variable. Returns ctx for chaining. Set must not be
// called concurrently with any evaluation using ctx.
func (ctx *Context) Set(name string, value Value) *Context {
	if ctx.names == nil {
		ctx.names = make(map[string]Value)
	}
	ctx.names[name] = value
	return ctx
}

// Lookup returns the value of a name in the context and whether it is set.
func (ctx *Context) Lookup(name string) (Value, bool) {
	if ctx == nil {
		return Value{}, false
	}
	v, ok := ctx.names[name]
	return v, ok
}

// Clone creates a copy of a context and applies options to it.
func (ctx *Context) Clone(opts ...ContextOption) *Context {
	n := Context{names: make(map[string]Value, len(ctx.names))}
	for name, val := range ctx.names {
		n.names[name] = val
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt := opt.(type) {
		case varopt:
			n.names[opt.name] = opt.val
		case varsopt:
			for k, v := range opt {
				n.names[k] = v
			}
		case bindopt:
			for k, v := range opt {
				n.names[k] = v
			}
		default:
			panic("formula: unknown option type")
		}
	}
	return &n
}

// Eval evaluates the expression in a context and returns the result. ctx may
// be nil, in which case any reference to a context name is a NameError.
func (e *Expr) Eval(ctx *Context) (Value, error) {
	return e.n.eval(ctx)
}

// eval computes the node's value.
func (n *node) eval(ctx *Context) (Value, error) {
	switch n.kind {
	case nodeLit:
		return n.val, nil
	case nodeName:
		v, ok := ctx.Lookup(n.name)
		if !ok {
			return Value{}, &NameError{Name: n.name}
		}
		return v, nil
	case nodeCall:
		return n.call(ctx)
	case nodeArray:
		elems, err := evallist(ctx, n.list)
		if err != nil {
			return Value{}, err
		}
		return Array(elems...), nil
	case nodeNeg, nodePos, nodeNot, nodeLength:
		x, err := n.left.eval(ctx)
		if err != nil {
			return Value{}, err
		}
		switch n.kind {
		case nodeNeg:
			return Num(-ToNumber(x)), nil
		case nodePos:
			return Num(ToNumber(x)), nil
		case nodeNot:
			return Bool(!ToBool(x)), nil
		default:
			return Num(float64(x.length())), nil
		}
	case nodeAnd, nodeOr:
		l, err := n.left.eval(ctx)
		if err != nil {
			return Value{}, err
		}
		// Skip the right operand when the left decides the result.
		if b := ToBool(l); b == (n.kind == nodeOr) {
			return Bool(b), nil
		}
		r, err := n.right.eval(ctx)
		if err != nil {
			return Value{}, err
		}
		return Bool(ToBool(r)), nil
	case nodeCond:
		c, err := n.cond.eval(ctx)
		if err != nil {
			return Value{}, err
		}
		if ToBool(c) {
			return n.left.eval(ctx)
		}
		return n.right.eval(ctx)
	}
	if n.kind < nodeAdd || n.kind > nodeIn {
		panic("formula: invalid AST node " + n.kind.String())
	}
	l, err := n.left.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	r, err := n.right.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	switch n.kind {
	case nodeEq:
		return Bool(StrictEqual(l, r)), nil
	case nodeNe:
		return Bool(!StrictEqual(l, r)), nil
	case nodeIn:
		elems, ok := r.Elems()
		if !ok {
			return Value{}, &TypeError{Op: "in", Msg: "right operand is " + r.Kind().String() + ", not array"}
		}
		for _, v := range elems {
			if StrictEqual(l, v) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	}
	x, y := ToNumber(l), ToNumber(r)
	switch n.kind {
	case nodeAdd:
		return Num(x + y), nil
	case nodeSub:
		return Num(x - y), nil
	case nodeMul:
		return Num(x * y), nil
	case nodeDiv:
		return Num(x / y), nil
	case nodeMod:
		return Num(math.Mod(x, y)), nil
	case nodePow:
		return Num(pow(x, y)), nil
	case nodeLt:
		return Bool(x < y), nil
	case nodeLe:
		return Bool(x <= y), nil
	case nodeGt:
		return Bool(x > y), nil
	default: // nodeGe
		return Bool(x >= y), nil
	}
}

// call evaluates a call node. Functions bound at parse time were checked for
// arity by the parser; context functions are checked here.
func (n *node) call(ctx *Context) (Value, error) {
	fn := n.fn
	if fn == nil {
		v, ok := ctx.Lookup(n.name)
		if !ok {
			return Value{}, &NameError{Name: n.name}
		}
		f, ok := v.Func()
		if !ok {
			return Value{}, &TypeError{Op: n.name, Msg: v.Kind().String() + " is not a function"}
		}
		fn = f
	}
	args, err := evallist(ctx, n.list)
	if err != nil {
		return Value{}, err
	}
	if n.fn == nil && !fn.CanCall(len(args)) {
		return Value{}, &TypeError{Op: n.name, Msg: "cannot call with " + strconv.Itoa(len(args)) + " arguments"}
	}
	return fn.Call(args)
}

// evallist evaluates a list of nodes from left to right.
func evallist(ctx *Context, list []*node) ([]Value, error) {
	r := make([]Value, len(list))
	for i, n := range list {
		v, err := n.eval(ctx)
		if err != nil {
			return nil, err
		}
		r[i] = v
	}
	return r, nil
}

// Eval is a shortcut to parse an expression with the default parse options
// and evaluate it in a context created from opts.
func Eval(src io.RuneScanner, opts ...ContextOption) (Value, error) {
	a, err := Parse(src)
	if err != nil {
		return Value{}, err
	}
	return a.Eval(NewContext(opts...))
}

// EvalString is a shortcut to parse and evaluate a string expression.
func EvalString(src string, opts ...ContextOption) (Value, error) {
	return Eval(strings.NewReader(src), opts...)
}

// NameError is an error from a lookup for a name that is missing from the
// evaluation context.
type NameError struct {
	// Name is the name that was missing.
	Name string
}

func (err *NameError) Error() string {
	return "undefined variable: " + strconv.Quote(err.Name)
}

// TypeError is an error from applying an operation to a value of the wrong
// type, such as calling a number or using in with a non-array.
type TypeError struct {
	// Op is the operator or function name.
	Op string
	// Msg describes the problem.
	Msg string
}

func (err *TypeError) Error() string {
	return "type error in " + strconv.Quote(err.Op) + ": " + err.Msg
}
