// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "strings"

// A span is a substring of a source line that remembers where it started,
// so errors can point at it.
type span struct {
	row int    // 1-based line number
	col int    // 0-based column of the first character
	str string // the substring itself
}

func (s span) String() string {
	return s.str
}

func (s span) isEmpty() bool {
	return len(s.str) == 0
}

func (s span) startsWithChar(c byte) bool {
	return len(s.str) > 0 && s.str[0] == c
}

func (s span) startsWith(fn func(c byte) bool) bool {
	return len(s.str) > 0 && fn(s.str[0])
}

// Drop the first n bytes.
func (s span) consume(n int) span {
	return span{s.row, s.col + n, s.str[n:]}
}

// Keep only the first n bytes.
func (s span) trunc(n int) span {
	return span{s.row, s.col, s.str[:n]}
}

func (s span) consumeWhile(fn func(c byte) bool) (consumed, remain span) {
	i := 0
	for i < len(s.str) && fn(s.str[i]) {
		i++
	}
	return s.trunc(i), s.consume(i)
}

func (s span) skipSpace() span {
	_, remain := s.consumeWhile(whitespace)
	return remain
}

// Remove trailing whitespace.
func (s span) trimRight() span {
	return s.trunc(len(strings.TrimRight(s.str, " \t")))
}

// Split off the next whitespace-delimited word.
func (s span) word() (w, remain span) {
	s = s.skipSpace()
	w, remain = s.consumeWhile(func(c byte) bool { return !whitespace(c) })
	return w, remain.skipSpace()
}

// Split at the first unquoted occurrence of c. The separator is dropped
// from remain.
func (s span) splitUnquoted(c byte) (before, remain span, found bool) {
	var quote byte
	for i := 0; i < len(s.str); i++ {
		switch {
		case quote != 0:
			if s.str[i] == quote {
				quote = 0
			}
		case s.str[i] == '"' || s.str[i] == '\'':
			quote = s.str[i]
		case s.str[i] == c:
			return s.trunc(i), s.consume(i + 1), true
		}
	}
	return s, s.consume(len(s.str)), false
}

// Cut everything from the first unquoted ';'.
func (s span) stripComment() span {
	before, _, _ := s.splitUnquoted(';')
	return before.trimRight()
}

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func alpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
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

func labelStartChar(c byte) bool {
	return alpha(c) || c == '_' || c == '@'
}

func labelChar(c byte) bool {
	return alpha(c) || decimal(c) || c == '_' || c == '@'
}
