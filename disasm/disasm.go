// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a 2A03 instruction set disassembler.
package disasm

import (
	"fmt"
	"strings"

	"github.com/beevik/go2a03/cpu"
)

// Disassembler formatting for addressing modes
var modeFormat = []string{
	"#$%s",    // IMM
	"%s",      // IMP
	"$%s",     // REL
	"$%s",     // ZPG
	"$%s,X",   // ZPX
	"$%s,Y",   // ZPY
	"$%s",     // ABS
	"$%s,X",   // ABX
	"$%s,Y",   // ABY
	"($%s)",   // IND
	"($%s,X)", // IDX
	"($%s),Y", // IDY
	"%s",      // ACC
}

// Read n bytes starting at addr, wrapping at $FFFF.
func readBytes(b cpu.Bus, addr uint16, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b.Read(addr + uint16(i))
	}
	return buf
}

// Return the operand bytes as a big-endian hexadecimal string.
func hexString(b []byte) string {
	var sb strings.Builder
	for i := len(b) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%02X", b[i])
	}
	return sb.String()
}

// Disassemble the machine code at address 'addr'. Return a 'line' string
// representing the disassembled instruction and a 'next' address that
// starts the following line of machine code. Relative branch targets are
// shown as absolute addresses. A byte that is not an official opcode is
// rendered as a .DB directive.
func Disassemble(b cpu.Bus, addr uint16) (line string, next uint16) {
	opcode := b.Read(addr)
	inst, ok := cpu.Find(opcode)
	if !ok {
		return fmt.Sprintf(".DB $%02X", opcode), addr + 1
	}

	operand := readBytes(b, addr+1, int(inst.Length)-1)
	switch inst.Mode {
	case cpu.REL:
		target := addr + uint16(inst.Length) + uint16(int8(operand[0]))
		operand = []byte{byte(target), byte(target >> 8)}
	case cpu.ACC:
		return inst.Name + " A", addr + uint16(inst.Length)
	case cpu.IMP:
		return inst.Name, addr + uint16(inst.Length)
	}

	line = fmt.Sprintf("%s "+modeFormat[inst.Mode], inst.Name, hexString(operand))
	return line, addr + uint16(inst.Length)
}

// Listing disassembles the instruction at addr and prefixes it with its
// address and machine code bytes, as shown by a monitor.
func Listing(b cpu.Bus, addr uint16) (line string, next uint16) {
	text, next := Disassemble(b, addr)
	code := readBytes(b, addr, int(next-addr))

	var sb strings.Builder
	for i, v := range code {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return fmt.Sprintf("%04X-   %-8s    %s", addr, sb.String(), text), next
}
