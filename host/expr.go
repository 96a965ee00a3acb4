// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errExprParse  = errors.New("expression syntax error")
	errDivByZero  = errors.New("division by zero")
	errUnbalanced = errors.New("missing ')' in expression")
)

type binaryOp struct {
	symbol string
	prec   int
	eval   func(a, b int64) (int64, error)
}

// Binary operators, longest symbols first so that "<<" wins over any
// single-character match.
var binaryOps = []binaryOp{
	{"<<", 4, func(a, b int64) (int64, error) { return a << uint(b&63), nil }},
	{">>", 4, func(a, b int64) (int64, error) { return a >> uint(b&63), nil }},
	{"*", 6, func(a, b int64) (int64, error) { return a * b, nil }},
	{"/", 6, func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errDivByZero
		}
		return a / b, nil
	}},
	{"%", 6, func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errDivByZero
		}
		return a % b, nil
	}},
	{"+", 5, func(a, b int64) (int64, error) { return a + b, nil }},
	{"-", 5, func(a, b int64) (int64, error) { return a - b, nil }},
	{"&", 3, func(a, b int64) (int64, error) { return a & b, nil }},
	{"^", 2, func(a, b int64) (int64, error) { return a ^ b, nil }},
	{"|", 1, func(a, b int64) (int64, error) { return a | b, nil }},
}

type resolver interface {
	resolveIdentifier(s string) (int64, error)
}

// An exprParser evaluates the numeric expressions typed as command
// arguments.
//
//	expr    := unary { binop unary }
//	unary   := ('-' | '+' | '~' | '<' | '>') unary | primary
//	primary := number | 'c' | identifier | '(' expr ')'
//
// Numbers are decimal unless prefixed by $ or 0x (hex), % or 0b (binary),
// or 0d (decimal). In hex mode unprefixed numbers are hexadecimal, and an
// identifier made only of hex digits is read as a number.
type exprParser struct {
	hexMode bool
}

func newExprParser() *exprParser {
	return &exprParser{}
}

func (p *exprParser) Parse(expr string, r resolver) (int64, error) {
	v, remain, err := p.parseBinary(tstring(expr), 1, r)
	if err != nil {
		return 0, err
	}
	if remain = remain.consumeWhitespace(); len(remain) > 0 {
		if remain[0] == ')' {
			return 0, errExprParse
		}
		return 0, fmt.Errorf("unexpected '%s' in expression", remain)
	}
	return v, nil
}

func (p *exprParser) parseBinary(t tstring, minPrec int, r resolver) (int64, tstring, error) {
	lhs, t, err := p.parseUnary(t, r)
	if err != nil {
		return 0, t, err
	}

	for {
		t = t.consumeWhitespace()
		op := matchBinaryOp(t)
		if op == nil || op.prec < minPrec {
			return lhs, t, nil
		}

		var rhs int64
		rhs, t, err = p.parseBinary(t.consume(len(op.symbol)), op.prec+1, r)
		if err != nil {
			return 0, t, err
		}
		if lhs, err = op.eval(lhs, rhs); err != nil {
			return 0, t, err
		}
	}
}

func matchBinaryOp(t tstring) *binaryOp {
	for i := range binaryOps {
		if strings.HasPrefix(string(t), binaryOps[i].symbol) {
			return &binaryOps[i]
		}
	}
	return nil
}

func (p *exprParser) parseUnary(t tstring, r resolver) (int64, tstring, error) {
	t = t.consumeWhitespace()
	if len(t) == 0 {
		return 0, t, errExprParse
	}

	var fn func(v int64) int64
	switch t[0] {
	case '-':
		fn = func(v int64) int64 { return -v }
	case '+':
		fn = func(v int64) int64 { return v }
	case '~':
		fn = func(v int64) int64 { return ^v }
	case '<':
		fn = func(v int64) int64 { return v & 0xff }
	case '>':
		fn = func(v int64) int64 { return (v >> 8) & 0xff }
	default:
		return p.parsePrimary(t, r)
	}

	v, remain, err := p.parseUnary(t.consume(1), r)
	if err != nil {
		return 0, remain, err
	}
	return fn(v), remain, nil
}

func (p *exprParser) parsePrimary(t tstring, r resolver) (int64, tstring, error) {
	switch c := t[0]; {
	case c == '(':
		v, remain, err := p.parseBinary(t.consume(1), 1, r)
		if err != nil {
			return 0, remain, err
		}
		remain = remain.consumeWhitespace()
		if len(remain) == 0 || remain[0] != ')' {
			return 0, remain, errUnbalanced
		}
		return v, remain.consume(1), nil

	case c == '\'':
		if len(t) < 3 || t[2] != '\'' {
			return 0, t, errExprParse
		}
		return int64(t[1]), t.consume(3), nil

	case c == '$' || c == '%' || decimal(c):
		return p.parseNumber(t)

	case identifier(c):
		id, remain := t.consumeWhile(identifier)
		if p.hexMode && id.all(hexadecimal) {
			return p.parseNumber(t)
		}
		v, err := r.resolveIdentifier(string(id))
		return v, remain, err
	}
	return 0, t, errExprParse
}

func (p *exprParser) parseNumber(t tstring) (int64, tstring, error) {
	base, fn, num := 10, decimal, t
	if p.hexMode {
		base, fn = 16, hexadecimal
	}

	switch {
	case num[0] == '$':
		base, fn, num = 16, hexadecimal, num.consume(1)
	case num[0] == '%':
		base, fn, num = 2, binary, num.consume(1)
	case len(num) > 2 && num[0] == '0':
		switch num[1] {
		case 'x':
			base, fn, num = 16, hexadecimal, num.consume(2)
		case 'b':
			base, fn, num = 2, binary, num.consume(2)
		case 'd':
			base, fn, num = 10, decimal, num.consume(2)
		}
	}

	digits, remain := num.consumeWhile(fn)
	if len(digits) == 0 {
		return 0, t, errExprParse
	}
	v, err := strconv.ParseInt(string(digits), base, 64)
	if err != nil {
		return 0, t, errExprParse
	}
	return v, remain, nil
}

//
// tstring
//

type tstring string

func (t tstring) consume(n int) tstring {
	return t[n:]
}

func (t tstring) consumeWhitespace() tstring {
	return t.consume(t.scanWhile(whitespace))
}

func (t tstring) scanWhile(fn func(c byte) bool) int {
	i := 0
	for ; i < len(t) && fn(t[i]); i++ {
	}
	return i
}

func (t tstring) consumeWhile(fn func(c byte) bool) (consumed, remain tstring) {
	i := t.scanWhile(fn)
	return t[:i], t[i:]
}

func (t tstring) all(fn func(c byte) bool) bool {
	return t.scanWhile(fn) == len(t)
}

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func decimal(c byte) bool {
	return c >= '0' && c <= '9'
}

func hexadecimal(c byte) bool {
	return decimal(c) || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func binary(c byte) bool {
	return c == '0' || c == '1'
}

func identifier(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || decimal(c) || c == '_' || c == '.'
}
