package boost

import (
	"fmt"
	"strconv"
	"unicode"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  int
}

type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: []rune(src)} }

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case c == '+' || c == '-' || c == '*' || c == '/' || c == '%' || c == '^':
		l.pos++
		return token{kind: tokOp, text: string(c), pos: start}, nil
	case unicode.IsDigit(c) || c == '.':
		for l.pos < len(l.src) && (unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '.' ||
			l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
			l.pos++
		}
		text := string(l.src[start:l.pos])
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, fmt.Errorf("boost formula: bad number %q at %d", text, start)
		}
		return token{kind: tokNumber, text: text, num: n, pos: start}, nil
	case isIdentRune(c, true):
		for l.pos < len(l.src) && isIdentRune(l.src[l.pos], false) {
			l.pos++
		}
		return token{kind: tokIdent, text: string(l.src[start:l.pos]), pos: start}, nil
	}
	return token{}, fmt.Errorf("boost formula: unexpected character %q at %d", c, start)
}

func isIdentRune(c rune, first bool) bool {
	if c == '_' || unicode.IsLetter(c) {
		return true
	}
	return !first && (unicode.IsDigit(c) || c == '.')
}
