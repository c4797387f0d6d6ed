// Package querytree is the engine-neutral weighted boolean query model
// produced by the query builder and translated by the index engine.
package querytree

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Node is a query clause. Every node carries a multiplicative boost.
type Node interface {
	node()
	String() string
}

// Term matches an exact indexed term.
type Term struct {
	Field string
	Term  string
	Boost float64
}

// Prefix matches terms starting with Prefix.
type Prefix struct {
	Field  string
	Prefix string
	Boost  float64
}

// Fuzzy matches terms within Distance edits sharing the first PrefixLen characters.
type Fuzzy struct {
	Field     string
	Term      string
	Distance  int
	PrefixLen int
	Boost     float64
}

// NumericRange matches numeric values in [Min, Max].
type NumericRange struct {
	Field string
	Min   int64
	Max   int64
	Boost float64
}

// Bool combines clauses. A document must match every Must clause and at
// least MinShould of the Should clauses.
type Bool struct {
	Must      []Node
	Should    []Node
	MinShould int
	Boost     float64
}

// TermsIn matches documents holding any of Values in Field. It is the
// second pass of a join.
type TermsIn struct {
	Field  string
	Values []string
	Boost  float64
}

// MatchAll matches every document.
type MatchAll struct {
	Boost float64
}

// MatchNone matches nothing.
type MatchNone struct{}

func (Term) node()         {}
func (Prefix) node()       {}
func (Fuzzy) node()        {}
func (NumericRange) node() {}
func (*Bool) node()        {}
func (TermsIn) node()      {}
func (MatchAll) node()     {}
func (MatchNone) node()    {}

// NewBool creates an empty boolean node with boost 1.
func NewBool() *Bool { return &Bool{Boost: 1} }

// IsEmpty reports whether b has no clauses.
func (b *Bool) IsEmpty() bool { return len(b.Must) == 0 && len(b.Should) == 0 }

// Add appends n as a Must or Should clause.
func (b *Bool) Add(n Node, must bool) {
	if must {
		b.Must = append(b.Must, n)
		return
	}
	b.Should = append(b.Should, n)
}

func (q Term) String() string {
	return withBoost(q.Field+":"+strconv.Quote(q.Term), q.Boost)
}

func (q Prefix) String() string {
	return withBoost(q.Field+":"+strconv.Quote(q.Prefix)+"*", q.Boost)
}

func (q Fuzzy) String() string {
	return withBoost(fmt.Sprintf("%s:%s~%d/%d", q.Field, strconv.Quote(q.Term), q.Distance, q.PrefixLen), q.Boost)
}

func (q NumericRange) String() string {
	lo, hi := "*", "*"
	if q.Min != math.MinInt64 {
		lo = strconv.FormatInt(q.Min, 10)
	}
	if q.Max != math.MaxInt64 {
		hi = strconv.FormatInt(q.Max, 10)
	}
	return withBoost(fmt.Sprintf("%s:[%s TO %s]", q.Field, lo, hi), q.Boost)
}

func (b *Bool) String() string {
	parts := make([]string, 0, len(b.Must)+len(b.Should))
	for _, n := range b.Must {
		parts = append(parts, "+"+n.String())
	}
	for _, n := range b.Should {
		parts = append(parts, n.String())
	}
	s := "(" + strings.Join(parts, " ") + ")"
	if b.MinShould > 0 {
		s += "~" + strconv.Itoa(b.MinShould)
	}
	return withBoost(s, b.Boost)
}

func (q TermsIn) String() string {
	return withBoost(q.Field+":{"+strings.Join(q.Values, ",")+"}", q.Boost)
}

func (q MatchAll) String() string { return withBoost("*:*", q.Boost) }

func (MatchNone) String() string { return "-*:*" }

func withBoost(s string, boost float64) string {
	if boost == 1 {
		return s
	}
	return s + "^" + strconv.FormatFloat(boost, 'g', -1, 64)
}

// Walk calls fn for n and every descendant in depth-first order.
func Walk(n Node, fn func(Node)) {
	fn(n)
	if b, ok := n.(*Bool); ok {
		for _, c := range b.Must {
			Walk(c, fn)
		}
		for _, c := range b.Should {
			Walk(c, fn)
		}
	}
}
