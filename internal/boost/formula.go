// Package boost compiles boost formulas: arithmetic expressions over named
// numeric fields whose value multiplies a document's relevance score.
//
// Grammar:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/" | "%") unary }
//	unary   = "-" unary | power
//	power   = primary [ "^" unary ]
//	primary = number | ident | ident "(" [ expr { "," expr } ] ")" | "(" expr ")"
package boost

import (
	"fmt"
	"math"
	"sort"
)

// Formula is a compiled boost expression. It is safe for concurrent use.
type Formula struct {
	src  string
	root expr
	vars []string
}

// Compile parses src into a Formula.
func Compile(src string) (*Formula, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("boost formula: unexpected %q at %d", p.tok.text, p.tok.pos)
	}

	seen := make(map[string]bool)
	collectVars(root, seen)
	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Strings(vars)

	return &Formula{src: src, root: root, vars: vars}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Formula {
	f, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return f
}

// String returns the formula source.
func (f *Formula) String() string { return f.src }

// Variables returns the sorted field names referenced by the formula.
func (f *Formula) Variables() []string {
	return append([]string(nil), f.vars...)
}

// Multiplier evaluates the formula against values. It reports false when a
// referenced field is missing or the result is not a finite number; the
// caller then leaves the score unchanged.
func (f *Formula) Multiplier(values map[string]float64) (float64, bool) {
	for _, v := range f.vars {
		if _, ok := values[v]; !ok {
			return 0, false
		}
	}
	x := f.root.eval(values)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

func collectVars(e expr, seen map[string]bool) {
	switch n := e.(type) {
	case variable:
		seen[string(n)] = true
	case unaryExpr:
		collectVars(n.x, seen)
	case binaryExpr:
		collectVars(n.l, seen)
		collectVars(n.r, seen)
	case call:
		for _, a := range n.args {
			collectVars(a, seen)
		}
	}
}
