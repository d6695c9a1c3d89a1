package formula

import (
	"log/slog"
	"strconv"
	"unicode"
)

// ParseOption is an option for parsing.
type ParseOption interface {
	parseOption(parsectx) parsectx
}

type (
	cfgopt  Config
	funcopt struct {
		name string
		fn   Func
	}
	funcsopt map[string]Func
	constopt struct {
		name string
		val  Value
	}
	noconsts struct{}
	eofopt   struct {
		c  bool
		ws string
	}
	cacheopt int
	logopt   struct{ log *slog.Logger }
)

// parsectx holds general data for parsing.
type parsectx struct {
	// names is the set of context names that have been seen this parse.
	names map[string]bool
	// cfg is the operator configuration.
	cfg Config
	// binops is the set of binary operators enabled by cfg.
	binops map[string]operator
	// funcs is the set of function names that are bound at parse time.
	// A nil entry disables a default function.
	funcs map[string]Func
	// consts is the set of constant names substituted at parse time.
	consts map[string]Value
	// nofuncs and noconsts indicate that the default functions and constants
	// are not to be added.
	nofuncs, noconsts bool
	// wseof is a string containing the whitespace characters that trigger an
	// EOF token from the lexer.
	wseof string
	// ceof indicates whether a comma is allowed at the end of an expression.
	ceof bool
	// cache is the capacity of a Parser's expression cache.
	cache int
	// log receives a Parser's debug logs.
	log *slog.Logger
}

// finish fills in defaults for options that were not given.
func (p *parsectx) finish() {
	p.binops = p.cfg.enabledBinops()
	funcs := make(map[string]Func, len(globalfuncs)+len(p.funcs))
	if !p.nofuncs {
		for k, v := range globalfuncs {
			funcs[k] = v
		}
	}
	for k, v := range p.funcs {
		if v == nil {
			delete(funcs, k)
			continue
		}
		funcs[k] = v
	}
	p.funcs = funcs
	consts := make(map[string]Value, len(globalconsts)+len(p.consts))
	if !p.noconsts {
		for k, v := range globalconsts {
			consts[k] = v
		}
	}
	for k, v := range p.consts {
		consts[k] = v
	}
	p.consts = consts
}

// WithConfig sets the operator configuration for parsing.
func WithConfig(cfg Config) ParseOption {
	return cfgopt(cfg)
}

func (o cfgopt) parseOption(p parsectx) parsectx {
	p.cfg = Config(o)
	return p
}

// ParseFunc sets a function for parsing. To disable parsing a function, pass
// nil for fn. Panics if name is not an identifier.
func ParseFunc(name string, fn Func) ParseOption {
	checkname(name)
	return &funcopt{name, fn}
}

func (o *funcopt) parseOption(p parsectx) parsectx {
	p.funcs = copyfuncs(p.funcs, 1)
	p.funcs[o.name] = o.fn
	return p
}

// ParseFuncs sets a group of functions for parsing. To disable parsing any
// function, set it to nil.
func ParseFuncs(fns map[string]Func) ParseOption {
	for k := range fns {
		checkname(k)
	}
	return funcsopt(fns)
}

func (o funcsopt) parseOption(p parsectx) parsectx {
	p.funcs = copyfuncs(p.funcs, len(o))
	for k, v := range o {
		p.funcs[k] = v
	}
	return p
}

// copyfuncs copies a function map so that options never modify each other.
func copyfuncs(m map[string]Func, extra int) map[string]Func {
	r := make(map[string]Func, len(m)+extra)
	for k, v := range m {
		r[k] = v
	}
	return r
}

// DisableDefaultFuncs disables all default functions during parsing. Their
// names will be parsed as context names instead. Functions set with ParseFunc
// or ParseFuncs remain.
func DisableDefaultFuncs() ParseOption {
	return disablefns
}

type nofuncs struct{}

var disablefns nofuncs

func (nofuncs) parseOption(p parsectx) parsectx {
	p.nofuncs = true
	return p
}

// ParseConst sets a constant which the parser substitutes for name. Panics if
// name is not an identifier.
func ParseConst(name string, val Value) ParseOption {
	checkname(name)
	return &constopt{name, val}
}

func (o *constopt) parseOption(p parsectx) parsectx {
	m := make(map[string]Value, len(p.consts)+1)
	for k, v := range p.consts {
		m[k] = v
	}
	m[o.name] = o.val
	p.consts = m
	return p
}

// DisableDefaultConsts disables the default constants PI, E, true, and false.
// Their names will be parsed as context names instead.
func DisableDefaultConsts() ParseOption {
	return noconsts{}
}

func (noconsts) parseOption(p parsectx) parsectx {
	p.noconsts = true
	return p
}

// StopOn tells the parser to treat a list of characters as ending the
// expression. Each rune must be a comma or a whitespace codepoint. Whitespace
// does not end an expression where a term is expected, e.g. at the beginning
// of an expression or following an operator or bracket. Commas do not end
// expressions inside argument lists or arrays.
//
// StopOn overrides the effect of any previous StopOn in the parsing options.
// With no arguments, StopOn produces the default termination behavior, which
// is to parse to EOF.
func StopOn(chars ...rune) ParseOption {
	var o eofopt
	v := make([]rune, 0, len(chars))
	have := func(r rune) bool {
		for _, c := range v {
			if r == c {
				return true
			}
		}
		return false
	}
	for _, r := range chars {
		switch {
		case r == ',':
			o.c = true
		case unicode.IsSpace(r):
			if have(r) {
				continue
			}
			v = append(v, r)
		default:
			panic("formula: cannot stop on " + strconv.QuoteRune(r))
		}
	}
	o.ws = string(v)
	return &o
}

func (o *eofopt) parseOption(p parsectx) parsectx {
	p.ceof = o.c
	p.wseof = o.ws
	return p
}

// CacheSize sets the number of parsed expressions a Parser remembers for
// EvalString and ParseString. Zero, the default, disables the cache. It has
// no effect on the package-level parsing functions.
func CacheSize(n int) ParseOption {
	if n < 0 {
		panic("formula: negative cache size " + strconv.Itoa(n))
	}
	return cacheopt(n)
}

func (o cacheopt) parseOption(p parsectx) parsectx {
	p.cache = int(o)
	return p
}

// WithLogger sets a logger to which a Parser writes debug messages about
// parsing and its cache. It has no effect on the package-level parsing
// functions.
func WithLogger(log *slog.Logger) ParseOption {
	return logopt{log}
}

func (o logopt) parseOption(p parsectx) parsectx {
	p.log = o.log
	return p
}

func checkname(name string) {
	if name == "" {
		panic("formula: empty name")
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) || i > 0 && unicode.IsDigit(r) {
			continue
		}
		panic("formula: invalid name " + strconv.Quote(name))
	}
	if _, ok := unops[name]; ok {
		panic("formula: name " + strconv.Quote(name) + " is an operator")
	}
	if _, ok := binops[name]; ok {
		panic("formula: name " + strconv.Quote(name) + " is an operator")
	}
}
