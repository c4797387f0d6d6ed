package boost

import (
	"fmt"
	"math"
	"strings"
)

type expr interface {
	eval(vars map[string]float64) float64
}

type number float64

type variable string

type unaryExpr struct {
	x expr
}

type binaryExpr struct {
	op   byte
	l, r expr
}

type call struct {
	fn   *function
	args []expr
}

func (n number) eval(map[string]float64) float64 { return float64(n) }

func (v variable) eval(vars map[string]float64) float64 { return vars[string(v)] }

func (u unaryExpr) eval(vars map[string]float64) float64 { return -u.x.eval(vars) }

func (b binaryExpr) eval(vars map[string]float64) float64 {
	l, r := b.l.eval(vars), b.r.eval(vars)
	switch b.op {
	case '+':
		return l + r
	case '-':
		return l - r
	case '*':
		return l * r
	case '/':
		return l / r
	case '%':
		return math.Mod(l, r)
	case '^':
		return math.Pow(l, r)
	}
	return math.NaN()
}

func (c call) eval(vars map[string]float64) float64 {
	args := make([]float64, len(c.args))
	for i, a := range c.args {
		args[i] = a.eval(vars)
	}
	return c.fn.apply(args)
}

type function struct {
	arity int // -1 for variadic with at least one argument
	apply func(args []float64) float64
}

func unary(f func(float64) float64) *function {
	return &function{arity: 1, apply: func(a []float64) float64 { return f(a[0]) }}
}

var functions = map[string]*function{
	"abs":   unary(math.Abs),
	"ceil":  unary(math.Ceil),
	"exp":   unary(math.Exp),
	"floor": unary(math.Floor),
	"ln":    unary(math.Log),
	"log":   unary(math.Log),
	"log10": unary(math.Log10),
	"log1p": unary(math.Log1p),
	"sqrt":  unary(math.Sqrt),
	"pow":   {arity: 2, apply: func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"logn":  {arity: 2, apply: func(a []float64) float64 { return math.Log(a[1]) / math.Log(a[0]) }},
	"min": {arity: -1, apply: func(a []float64) float64 {
		m := a[0]
		for _, x := range a[1:] {
			m = math.Min(m, x)
		}
		return m
	}},
	"max": {arity: -1, apply: func(a []float64) float64 {
		m := a[0]
		for _, x := range a[1:] {
			m = math.Max(m, x)
		}
		return m
	}},
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) isOp(ops string) bool {
	return p.tok.kind == tokOp && strings.Contains(ops, p.tok.text)
}

func (p *parser) parseExpr() (expr, error) {
	l, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.isOp("+-") {
		op := p.tok.text[0]
		if err := p.advance(); err != nil {
			return nil, err
		}
		r, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		l = binaryExpr{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseTerm() (expr, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*/%") {
		op := p.tok.text[0]
		if err := p.advance(); err != nil {
			return nil, err
		}
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = binaryExpr{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseUnary() (expr, error) {
	if p.isOp("-") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryExpr{x: x}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !p.isOp("^") {
		return base, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return binaryExpr{op: '^', l: base, r: exp}, nil
}

func (p *parser) parsePrimary() (expr, error) {
	t := p.tok
	switch t.kind {
	case tokNumber:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return number(t.num), nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, fmt.Errorf("boost formula: expected ) at %d", p.tok.pos)
		}
		return e, p.advance()
	case tokIdent:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokLParen {
			return variable(t.text), nil
		}
		return p.parseCall(t)
	case tokEOF:
		return nil, fmt.Errorf("boost formula: unexpected end of input")
	}
	return nil, fmt.Errorf("boost formula: unexpected %q at %d", t.text, t.pos)
}

func (p *parser) parseCall(name token) (expr, error) {
	fn, ok := functions[name.text]
	if !ok {
		return nil, fmt.Errorf("boost formula: unknown function %q", name.text)
	}
	if err := p.advance(); err != nil { // (
		return nil, err
	}
	var args []expr
	for p.tok.kind != tokRParen {
		if len(args) > 0 {
			if p.tok.kind != tokComma {
				return nil, fmt.Errorf("boost formula: expected , at %d", p.tok.pos)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	if err := p.advance(); err != nil { // )
		return nil, err
	}
	if fn.arity >= 0 && len(args) != fn.arity {
		return nil, fmt.Errorf("boost formula: %s takes %d argument(s), got %d", name.text, fn.arity, len(args))
	}
	if fn.arity < 0 && len(args) == 0 {
		return nil, fmt.Errorf("boost formula: %s needs at least one argument", name.text)
	}
	return call{fn: fn, args: args}, nil
}
