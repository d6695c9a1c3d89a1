package formula

import (
	"io"
	"log/slog"
	"strings"

	"github.com/zephyrtronium/formula/internal/cache"
)

// Parser is a preset of parse options. A Parser with a nonzero CacheSize
// remembers the expressions it parses from strings. A Parser is safe for
// concurrent use.
type Parser struct {
	p     parsectx
	cache *cache.Cache[*Expr]
}

// NewParser creates a parser which applies the given options, in order, to
// every expression it parses.
func NewParser(opts ...ParseOption) *Parser {
	var p parsectx
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	p.finish()
	r := Parser{p: p}
	if p.cache > 0 {
		r.cache = cache.New[*Expr](p.cache)
		if p.log != nil {
			p.log.Debug("expression cache enabled", slog.Int("cap", r.cache.Capacity()))
		}
	}
	return &r
}

// Parse parses an expression.
func (p *Parser) Parse(src io.RuneScanner) (*Expr, error) {
	e, err := parse(src, p.p)
	if p.p.log != nil {
		if err != nil {
			p.p.log.Debug("expression rejected", slog.Any("err", err))
		} else {
			p.p.log.Debug("expression parsed", slog.String("expr", e.String()), slog.Any("vars", e.names))
		}
	}
	return e, err
}

// ParseString parses an expression from a string. If the parser has a cache,
// the result may be one returned by an earlier call with the same text.
func (p *Parser) ParseString(src string) (*Expr, error) {
	if p.cache == nil {
		return p.Parse(strings.NewReader(src))
	}
	hit := true
	e, err := p.cache.GetOrCompile(src, func() (*Expr, error) {
		hit = false
		return p.Parse(strings.NewReader(src))
	})
	if hit && p.p.log != nil {
		p.p.log.Debug("expression cache hit", slog.String("src", src), slog.Int("len", p.cache.Len()))
	}
	return e, err
}

// Forget removes the cached parse of src, if there is one.
func (p *Parser) Forget(src string) {
	if p.cache != nil {
		p.cache.Invalidate(src)
	}
}

// Reset removes every cached parse.
func (p *Parser) Reset() {
	if p.cache != nil {
		p.cache.Clear()
	}
}

// Eval parses an expression and evaluates it in ctx.
func (p *Parser) Eval(src io.RuneScanner, ctx *Context) (Value, error) {
	e, err := p.Parse(src)
	if err != nil {
		return Value{}, err
	}
	return e.Eval(ctx)
}

// EvalString parses an expression from a string, using the cache if the
// parser has one, and evaluates it in ctx.
func (p *Parser) EvalString(src string, ctx *Context) (Value, error) {
	e, err := p.ParseString(src)
	if err != nil {
		return Value{}, err
	}
	return e.Eval(ctx)
}
