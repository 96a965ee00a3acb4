// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strconv"
)

type exprOp byte

const (
	opNumber exprOp = iota // literal value
	opLabel                // label reference
	opHere                 // '*', the address of the current line
	opLowByte              // <e
	opHighByte             // >e
	opNegate               // -e
	opAdd                  // e + e
	opSubtract             // e - e
)

// An expr is a node in an operand expression tree.
type expr struct {
	op     exprOp
	value  int    // opNumber
	name   string // opLabel
	wide   bool   // opNumber written with more than two hex digits
	pos    span
	child0 *expr
	child1 *expr
}

func (e *expr) String() string {
	switch e.op {
	case opNumber:
		return "$" + strconv.FormatInt(int64(e.value), 16)
	case opLabel:
		return e.name
	case opHere:
		return "*"
	case opLowByte:
		return "<" + e.child0.String()
	case opHighByte:
		return ">" + e.child0.String()
	case opNegate:
		return "-" + e.child0.String()
	case opAdd:
		return e.child0.String() + "+" + e.child1.String()
	default:
		return e.child0.String() + "-" + e.child1.String()
	}
}

// Evaluate the expression. It fails if it references a label missing from
// labels.
func (e *expr) eval(labels map[string]int, here int) (int, bool) {
	switch e.op {
	case opNumber:
		return e.value, true
	case opLabel:
		v, ok := labels[e.name]
		return v, ok
	case opHere:
		return here, true
	}

	a, ok := e.child0.eval(labels, here)
	if !ok {
		return 0, false
	}
	switch e.op {
	case opLowByte:
		return a & 0xff, true
	case opHighByte:
		return (a >> 8) & 0xff, true
	case opNegate:
		return -a, true
	}

	b, ok := e.child1.eval(labels, here)
	if !ok {
		return 0, false
	}
	if e.op == opAdd {
		return a + b, true
	}
	return a - b, true
}

// Return the first label the expression references that is missing from
// labels, or nil.
func (e *expr) missing(labels map[string]int) *expr {
	if e == nil {
		return nil
	}
	if e.op == opLabel {
		if _, ok := labels[e.name]; !ok {
			return e
		}
		return nil
	}
	if m := e.child0.missing(labels); m != nil {
		return m
	}
	return e.child1.missing(labels)
}

// Report whether the expression must be encoded as a 16-bit address even
// when its value fits in a byte.
func (e *expr) forcesWord() bool {
	switch e.op {
	case opNumber:
		return e.wide
	case opLowByte, opHighByte:
		return false
	case opNegate:
		return e.child0.forcesWord()
	case opAdd, opSubtract:
		return e.child0.forcesWord() || e.child1.forcesWord()
	}
	return false
}

// Parse an expression that spans the whole of s.
//
//	expr    := unary { ('+' | '-') unary }
//	unary   := ('<' | '>' | '-') unary | primary
//	primary := number | label | '*' | 'c'
func parseExpr(s span) (*expr, error) {
	s = s.skipSpace().trimRight()
	if s.isEmpty() {
		return nil, errorAt(s, "missing expression")
	}

	e, remain, err := parseSum(s)
	if err != nil {
		return nil, err
	}
	if !remain.isEmpty() {
		return nil, errorAt(remain, "unexpected '%s' in expression", remain.str)
	}
	return e, nil
}

func parseSum(s span) (*expr, span, error) {
	e, s, err := parseUnary(s)
	if err != nil {
		return nil, s, err
	}
	for {
		s = s.skipSpace()
		var op exprOp
		switch {
		case s.startsWithChar('+'):
			op = opAdd
		case s.startsWithChar('-'):
			op = opSubtract
		default:
			return e, s, nil
		}
		pos := s
		var rhs *expr
		rhs, s, err = parseUnary(s.consume(1))
		if err != nil {
			return nil, s, err
		}
		e = &expr{op: op, pos: pos, child0: e, child1: rhs}
	}
}

func parseUnary(s span) (*expr, span, error) {
	s = s.skipSpace()
	var op exprOp
	switch {
	case s.startsWithChar('<'):
		op = opLowByte
	case s.startsWithChar('>'):
		op = opHighByte
	case s.startsWithChar('-'):
		op = opNegate
	default:
		return parsePrimary(s)
	}
	child, remain, err := parseUnary(s.consume(1))
	if err != nil {
		return nil, remain, err
	}
	return &expr{op: op, pos: s, child0: child}, remain, nil
}

func parsePrimary(s span) (*expr, span, error) {
	switch {
	case s.isEmpty():
		return nil, s, errorAt(s, "missing operand in expression")

	case s.startsWithChar('*'):
		return &expr{op: opHere, pos: s}, s.consume(1), nil

	case s.startsWithChar('\''):
		if len(s.str) < 3 || s.str[2] != '\'' {
			return nil, s, errorAt(s, "invalid character literal")
		}
		return &expr{op: opNumber, value: int(s.str[1]), pos: s}, s.consume(3), nil

	case s.startsWithChar('$'), s.startsWithChar('%'), s.startsWith(decimal):
		return parseNumber(s)

	case s.startsWith(labelStartChar):
		name, remain := s.consumeWhile(labelChar)
		return &expr{op: opLabel, name: name.str, pos: name}, remain, nil
	}
	return nil, s, errorAt(s, "unexpected '%c' in expression", s.str[0])
}

// Parse a number in one of three formats:
//
//	$[0-9a-fA-F]+   hexadecimal
//	%[01]+          binary
//	[0-9]+          decimal
func parseNumber(s span) (*expr, span, error) {
	base, fn, start := 10, decimal, s
	switch {
	case s.startsWithChar('$'):
		base, fn, s = 16, hexadecimal, s.consume(1)
	case s.startsWithChar('%'):
		base, fn, s = 2, binary, s.consume(1)
	}

	digits, remain := s.consumeWhile(fn)
	if digits.isEmpty() {
		return nil, s, errorAt(start, "invalid number")
	}
	v, err := strconv.ParseInt(digits.str, base, 32)
	if err != nil {
		return nil, s, errorAt(start, "invalid number '%s'", digits.str)
	}

	e := &expr{
		op:    opNumber,
		value: int(v),
		pos:   start,
		wide:  base == 16 && len(digits.str) > 2,
	}
	return e, remain, nil
}
