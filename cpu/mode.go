// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "fmt"

// Mode describes a memory addressing mode.
type Mode byte

// All possible memory addressing modes
const (
	IMM Mode = iota // Immediate
	IMP             // Implied (no operand)
	REL             // Relative
	ZPG             // Zero Page
	ZPX             // Zero Page,X
	ZPY             // Zero Page,Y
	ABS             // Absolute
	ABX             // Absolute,X
	ABY             // Absolute,Y
	IND             // (Indirect)
	IDX             // (Indirect,X)
	IDY             // (Indirect),Y
	ACC             // Accumulator (no operand)
)

var modeName = [...]string{
	"IMM", "IMP", "REL", "ZPG", "ZPX", "ZPY", "ABS",
	"ABX", "ABY", "IND", "IDX", "IDY", "ACC",
}

// Number of operand bytes that follow the opcode, per mode.
var modeOperandBytes = [...]byte{
	1, 0, 1, 1, 1, 1, 2,
	2, 2, 2, 1, 1, 0,
}

func (m Mode) String() string {
	if int(m) < len(modeName) {
		return modeName[m]
	}
	return fmt.Sprintf("Mode(%d)", byte(m))
}

// OperandBytes returns the number of bytes that follow the opcode.
func (m Mode) OperandBytes() int {
	return int(modeOperandBytes[m])
}

// Fetch the byte at PC and advance PC past it.
func fetch(r *Registers, b Bus) byte {
	v := b.Read(r.PC)
	r.PC++
	return v
}

// Fetch the little-endian word at PC and advance PC past it.
func fetchWord(r *Registers, b Bus) uint16 {
	lo := fetch(r, b)
	hi := fetch(r, b)
	return uint16(lo) | uint16(hi)<<8
}

// immediate returns the operand byte of an immediate-mode instruction.
func immediate(r *Registers, b Bus) byte {
	return fetch(r, b)
}

// resolve decodes the operand bytes at PC according to mode and returns
// the effective address. PC is left pointing at the next instruction.
//
// pageCrossed reports whether indexing (or, for REL, the branch
// displacement) moved the address into a different page than the
// unindexed base address. Only the indexed and relative modes can set it.
//
// IMM resolves to the address of the operand byte itself. ACC and IMP
// have no address and must not be resolved.
func resolve(mode Mode, r *Registers, b Bus) (addr uint16, pageCrossed bool) {
	switch mode {
	case IMM:
		addr = r.PC
		r.PC++
	case ZPG:
		addr = uint16(fetch(r, b))
	case ZPX:
		addr = offsetZeroPage(fetch(r, b), r.X)
	case ZPY:
		addr = offsetZeroPage(fetch(r, b), r.Y)
	case REL:
		offset := fetch(r, b)
		addr = r.PC + uint16(int8(offset))
		pageCrossed = (addr & 0xff00) != (r.PC & 0xff00)
	case ABS:
		addr = fetchWord(r, b)
	case ABX:
		addr, pageCrossed = offsetAddress(fetchWord(r, b), r.X)
	case ABY:
		addr, pageCrossed = offsetAddress(fetchWord(r, b), r.Y)
	case IND:
		addr = readWordBug(b, fetchWord(r, b))
	case IDX:
		zpaddr := offsetZeroPage(fetch(r, b), r.X)
		addr = readWordBug(b, zpaddr)
	case IDY:
		zpaddr := uint16(fetch(r, b))
		addr, pageCrossed = offsetAddress(readWordBug(b, zpaddr), r.Y)
	default:
		panic(fmt.Sprintf("cpu: addressing mode %v has no effective address", mode))
	}
	return addr, pageCrossed
}
