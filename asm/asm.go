// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements a small two-pass 6502 assembler.
//
// The first pass assigns an address to every line and picks each
// instruction's addressing mode. The second pass evaluates operands with
// the complete label table and emits machine code. An operand selects a
// zero-page form only when its value is already known during the first
// pass and fits in a byte, so forward references always assemble to
// absolute addresses.
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/go2a03/cpu"
	"github.com/golang/glog"
)

// An Error describes a problem found at a specific place in the source.
type Error struct {
	File string
	Line int // 1-based
	Col  int // 1-based
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Msg)
}

// The file name is filled in by the assembler when the error is recorded.
func errorAt(s span, format string, args ...any) *Error {
	return &Error{Line: s.row, Col: s.col + 1, Msg: fmt.Sprintf(format, args...)}
}

// A SourceLine maps the address of an assembled instruction back to the
// line that produced it.
type SourceLine struct {
	Address uint16
	Line    int
}

// Assembly contains the assembled machine code and the data associated
// with it.
type Assembly struct {
	Origin uint16            // address of Code[0]
	Code   []byte            // assembled machine code
	Labels map[string]uint16 // label -> address
	Lines  []SourceLine      // instruction addresses in source order
}

// WriteTo saves the machine code as raw binary data.
func (a *Assembly) WriteTo(w io.Writer) (n int64, err error) {
	nn, err := w.Write(a.Code)
	return int64(nn), err
}

// Label returns the name of a label assigned to addr, if any. When
// several labels share the address, the alphabetically first is returned.
func (a *Assembly) Label(addr uint16) (string, bool) {
	var found string
	for name, v := range a.Labels {
		if v == addr && (found == "" || name < found) {
			found = name
		}
	}
	return found, found != ""
}

type segKind byte

const (
	segInstruction segKind = iota
	segData
	segFill
)

// A segment is the output of one source line.
type segment struct {
	kind    segKind
	addr    int
	src     span
	inst    *cpu.Instruction // segInstruction
	operand *expr            // segInstruction, nil for implied modes
	unit    int              // segData: bytes per expression
	items   []dataItem       // segData
	fill    int              // segFill: number of zero bytes
}

func (s *segment) size() int {
	switch s.kind {
	case segInstruction:
		return int(s.inst.Length)
	case segFill:
		return s.fill
	}
	n := 0
	for _, it := range s.items {
		if it.str != nil {
			n += len(it.str)
		} else {
			n += s.unit
		}
	}
	return n
}

// One element of a .DB or .DW list: an expression or a string literal.
type dataItem struct {
	e   *expr
	str []byte
}

type directive func(a *assembler, label, args span) error

var directives map[string]directive

func init() {
	directives = map[string]directive{
		".org":  (*assembler).parseOrigin,
		".db":   (*assembler).parseByteData,
		".byte": (*assembler).parseByteData,
		".dw":   (*assembler).parseWordData,
		".word": (*assembler).parseWordData,
		".eq":   (*assembler).parseEquate,
		"=":     (*assembler).parseEquate,
	}
}

// The assembler is a state object used during the assembly of machine
// code from assembly code.
type assembler struct {
	file     string
	origin   int
	pc       int
	labels   map[string]int
	segments []segment
	lines    []SourceLine
	errors   []error
}

// Assemble reads 6502 assembly source from r and assembles it. Code starts
// at origin unless the source begins with an .ORG directive. All errors
// found are joined into the returned error, each carrying its file name and
// line number.
func Assemble(r io.Reader, filename string, origin uint16) (*Assembly, error) {
	a := &assembler{
		file:   filename,
		origin: int(origin),
		pc:     int(origin),
		labels: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	row := 1
	for scanner.Scan() {
		a.parseLine(span{row: row, str: scanner.Text()})
		row++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("asm: reading %s: %w", filename, err)
	}

	var code []byte
	if len(a.errors) == 0 {
		code = a.generateCode()
	}
	if len(a.errors) > 0 {
		return nil, errors.Join(a.errors...)
	}

	assembly := &Assembly{
		Origin: uint16(a.origin),
		Code:   code,
		Labels: make(map[string]uint16, len(a.labels)),
		Lines:  a.lines,
	}
	for name, v := range a.labels {
		assembly.Labels[name] = uint16(v)
	}
	glog.V(1).Infof("asm: assembled %s: %d bytes at $%04X", filename, len(code), a.origin)
	return assembly, nil
}

// AssembleFile assembles the file at path and writes the machine code
// next to it with a .bin extension. It returns the assembly and the path
// of the binary file.
func AssembleFile(path string, origin uint16) (*Assembly, string, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer in.Close()

	assembly, err := Assemble(in, path, origin)
	if err != nil {
		return nil, "", err
	}

	binPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".bin"
	out, err := os.OpenFile(binPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, "", err
	}
	defer out.Close()

	if _, err := assembly.WriteTo(out); err != nil {
		return nil, "", err
	}
	return assembly, binPath, nil
}

func (a *assembler) addError(err error) {
	var e *Error
	if errors.As(err, &e) && e.File == "" {
		e.File = a.file
	}
	a.errors = append(a.errors, err)
}

// Parse a single line of assembly code.
func (a *assembler) parseLine(line span) {
	line = line.stripComment()
	if line.skipSpace().isEmpty() {
		return
	}

	// A label either ends with a colon or starts in the first column.
	var label span
	word, rest := line.word()
	switch {
	case strings.HasSuffix(word.str, ":"):
		label = word.trunc(len(word.str) - 1)
		word, rest = rest.word()
	case !line.startsWith(whitespace) && !isKeyword(word.str):
		label = word
		word, rest = rest.word()
	}

	if !label.isEmpty() && !validLabel(label.str) {
		a.addError(errorAt(label, "invalid label '%s'", label.str))
		return
	}

	if fn, ok := directives[strings.ToLower(word.str)]; ok {
		if err := fn(a, label, rest); err != nil {
			a.addError(err)
		}
		return
	}

	if !label.isEmpty() {
		if err := a.storeLabel(label, a.pc); err != nil {
			a.addError(err)
			return
		}
	}

	if !word.isEmpty() {
		if err := a.parseInstruction(word, rest); err != nil {
			a.addError(err)
		}
	}
}

func isKeyword(w string) bool {
	_, ok := directives[strings.ToLower(w)]
	return ok || len(cpu.Variants(w)) > 0
}

func validLabel(s string) bool {
	if s == "" || !labelStartChar(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !labelChar(s[i]) {
			return false
		}
	}
	return !strings.EqualFold(s, "A") && !isKeyword(s)
}

func (a *assembler) storeLabel(label span, v int) error {
	if _, found := a.labels[label.str]; found {
		return errorAt(label, "label '%s' defined more than once", label.str)
	}
	a.labels[label.str] = v
	return nil
}

func (a *assembler) addSegment(s segment) error {
	s.addr = a.pc
	a.pc += s.size()
	if a.pc > 0x10000 {
		return errorAt(s.src, "code extends past $FFFF")
	}
	a.segments = append(a.segments, s)
	return nil
}

// Parse an ".ORG" directive. Before any code it moves the origin; after
// code it pads forward with zero bytes.
func (a *assembler) parseOrigin(label, args span) error {
	e, err := parseExpr(args)
	if err != nil {
		return err
	}
	v, ok := e.eval(a.labels, a.pc)
	if !ok {
		return errorAt(args, "origin must be known when it is defined")
	}
	if v < 0 || v > 0xffff {
		return errorAt(args, "origin $%X out of range", v)
	}

	switch {
	case len(a.segments) == 0:
		a.origin, a.pc = v, v
	case v < a.pc:
		return errorAt(args, "origin $%04X is behind the current address $%04X", v, a.pc)
	case v > a.pc:
		if err := a.addSegment(segment{kind: segFill, src: args, fill: v - a.pc}); err != nil {
			return err
		}
	}

	if !label.isEmpty() {
		return a.storeLabel(label, a.pc)
	}
	return nil
}

func (a *assembler) parseByteData(label, args span) error {
	return a.parseData(label, args, 1)
}

func (a *assembler) parseWordData(label, args span) error {
	return a.parseData(label, args, 2)
}

// Parse a comma-separated list of expressions and, for .DB, string
// literals.
func (a *assembler) parseData(label, args span, unit int) error {
	if !label.isEmpty() {
		if err := a.storeLabel(label, a.pc); err != nil {
			return err
		}
	}

	seg := segment{kind: segData, src: args, unit: unit}
	remain := args
	for !remain.skipSpace().isEmpty() {
		var item span
		item, remain, _ = remain.splitUnquoted(',')
		item = item.skipSpace().trimRight()

		if unit == 1 && item.startsWithChar('"') {
			if len(item.str) < 2 || !strings.HasSuffix(item.str, `"`) {
				return errorAt(item, "unterminated string")
			}
			seg.items = append(seg.items, dataItem{str: []byte(item.str[1 : len(item.str)-1])})
			continue
		}

		e, err := parseExpr(item)
		if err != nil {
			return err
		}
		seg.items = append(seg.items, dataItem{e: e})
	}

	if len(seg.items) == 0 {
		return errorAt(args, "missing data")
	}
	return a.addSegment(seg)
}

// Parse a constant definition: "NAME = expr" or "NAME .EQ expr". The
// expression may only reference labels defined above it.
func (a *assembler) parseEquate(label, args span) error {
	if label.isEmpty() {
		return errorAt(args, "constant definition needs a label")
	}
	e, err := parseExpr(args)
	if err != nil {
		return err
	}
	v, ok := e.eval(a.labels, a.pc)
	if !ok {
		m := e.missing(a.labels)
		return errorAt(m.pos, "constant '%s' uses undefined label '%s'", label.str, m.name)
	}
	return a.storeLabel(label, v)
}

// Operand syntax, before it is matched against an instruction's modes.
type syntax byte

const (
	synNone     syntax = iota // no operand
	synAcc                    // A
	synImm                    // #expr
	synPlain                  // expr
	synX                      // expr,X
	synY                      // expr,Y
	synIndirect               // (expr)
	synIndirectX              // (expr,X)
	synIndirectY              // (expr),Y
)

// Parse a mnemonic and its operand, and select the instruction variant.
func (a *assembler) parseInstruction(mnemonic, args span) error {
	if len(cpu.Variants(mnemonic.str)) == 0 {
		return errorAt(mnemonic, "unknown instruction '%s'", mnemonic.str)
	}

	syn, operand, err := parseOperand(args)
	if err != nil {
		return err
	}

	inst := a.selectInstruction(mnemonic.str, syn, operand)
	if inst == nil {
		return errorAt(args, "invalid addressing mode for %s", strings.ToUpper(mnemonic.str))
	}

	a.lines = append(a.lines, SourceLine{Address: uint16(a.pc), Line: mnemonic.row})
	return a.addSegment(segment{
		kind:    segInstruction,
		src:     mnemonic,
		inst:    inst,
		operand: operand,
	})
}

func parseOperand(s span) (syntax, *expr, error) {
	s = s.trimRight()
	upper := strings.ToUpper(s.str)

	var syn syntax
	switch {
	case s.isEmpty():
		return synNone, nil, nil
	case upper == "A":
		return synAcc, nil, nil
	case s.startsWithChar('#'):
		syn, s = synImm, s.consume(1)
	case s.startsWithChar('('):
		switch {
		case strings.HasSuffix(upper, ",X)"):
			syn, s = synIndirectX, s.consume(1).trunc(len(s.str)-4)
		case strings.HasSuffix(upper, "),Y"):
			syn, s = synIndirectY, s.consume(1).trunc(len(s.str)-4)
		case strings.HasSuffix(upper, ")"):
			syn, s = synIndirect, s.consume(1).trunc(len(s.str)-2)
		default:
			return synNone, nil, errorAt(s, "missing ')'")
		}
	case strings.HasSuffix(upper, ",X"):
		syn, s = synX, s.trunc(len(s.str)-2)
	case strings.HasSuffix(upper, ",Y"):
		syn, s = synY, s.trunc(len(s.str)-2)
	default:
		syn = synPlain
	}

	e, err := parseExpr(s)
	if err != nil {
		return synNone, nil, err
	}
	return syn, e, nil
}

// Pick the instruction variant matching the operand syntax. A zero-page
// variant wins over the absolute one when the operand's value is already
// known and fits in a byte.
func (a *assembler) selectInstruction(name string, syn syntax, e *expr) *cpu.Instruction {
	find := func(modes ...cpu.Mode) *cpu.Instruction {
		for _, m := range modes {
			if inst, ok := cpu.FindByName(name, m); ok {
				return inst
			}
		}
		return nil
	}

	short := false
	if e != nil && !e.forcesWord() {
		v, ok := e.eval(a.labels, a.pc)
		short = ok && v >= 0 && v <= 0xff
	}

	switch syn {
	case synNone:
		return find(cpu.IMP, cpu.ACC)
	case synAcc:
		return find(cpu.ACC)
	case synImm:
		return find(cpu.IMM)
	case synIndirect:
		return find(cpu.IND)
	case synIndirectX:
		return find(cpu.IDX)
	case synIndirectY:
		return find(cpu.IDY)
	case synPlain:
		if inst := find(cpu.REL); inst != nil {
			return inst
		}
		if short {
			return find(cpu.ZPG, cpu.ABS)
		}
		return find(cpu.ABS, cpu.ZPG)
	case synX:
		if short {
			return find(cpu.ZPX, cpu.ABX)
		}
		return find(cpu.ABX, cpu.ZPX)
	case synY:
		if short {
			return find(cpu.ZPY, cpu.ABY)
		}
		return find(cpu.ABY, cpu.ZPY)
	}
	return nil
}

// Second pass: evaluate every operand with the full label table and emit
// machine code.
func (a *assembler) generateCode() []byte {
	code := make([]byte, 0, a.pc-a.origin)
	for i := range a.segments {
		s := &a.segments[i]
		start := len(code)

		switch s.kind {
		case segInstruction:
			b, err := a.encode(s)
			if err != nil {
				a.addError(err)
				continue
			}
			code = append(code, b...)
		case segData:
			for _, it := range s.items {
				if it.str != nil {
					code = append(code, it.str...)
					continue
				}
				v, err := a.value(it.e, s.addr)
				if err != nil {
					a.addError(err)
					continue
				}
				code = append(code, byte(v))
				if s.unit == 2 {
					code = append(code, byte(v>>8))
				}
			}
		case segFill:
			code = append(code, make([]byte, s.fill)...)
		}

		if glog.V(2) {
			glog.Infof("%04X  %-8s  %s", s.addr, byteString(code[start:]), s.src.str)
		}
	}
	return code
}

func (a *assembler) value(e *expr, here int) (int, error) {
	v, ok := e.eval(a.labels, here)
	if !ok {
		m := e.missing(a.labels)
		return 0, errorAt(m.pos, "undefined label '%s'", m.name)
	}
	return v, nil
}

// Encode one instruction segment.
func (a *assembler) encode(s *segment) ([]byte, error) {
	inst := s.inst
	if s.operand == nil {
		return []byte{inst.Opcode}, nil
	}

	v, err := a.value(s.operand, s.addr)
	if err != nil {
		return nil, err
	}
	pos := s.operand.pos

	switch {
	case inst.Mode == cpu.REL:
		offset := v - (s.addr + int(inst.Length))
		if offset < -128 || offset > 127 {
			return nil, errorAt(pos, "branch target $%04X out of range", v)
		}
		return []byte{inst.Opcode, byte(offset)}, nil

	case inst.Mode == cpu.IMM:
		if v < -128 || v > 0xff {
			return nil, errorAt(pos, "immediate value %d out of range", v)
		}
		return []byte{inst.Opcode, byte(v)}, nil

	case inst.Length == 2:
		if v < 0 || v > 0xff {
			return nil, errorAt(pos, "zero-page address $%X out of range", v)
		}
		return []byte{inst.Opcode, byte(v)}, nil

	default:
		if v < 0 || v > 0xffff {
			return nil, errorAt(pos, "address $%X out of range", v)
		}
		return []byte{inst.Opcode, byte(v), byte(v >> 8)}, nil
	}
}

// Return a hexadecimal string representation of a byte slice.
func byteString(b []byte) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}
