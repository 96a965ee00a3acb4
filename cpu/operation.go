// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "fmt"

// OpKind tells the dispatcher what an instruction's semantic function
// wants to receive.
type OpKind byte

const (
	// ReadsValue operations receive the byte at the effective address, or
	// the operand itself in immediate mode (LDA, ADC, CMP, ...).
	ReadsValue OpKind = iota

	// UsesAddress operations receive the effective address (STA, INC,
	// ASL with a memory operand, JMP, JSR, branches).
	UsesAddress

	// OnRegisters operations have no memory operand (implied and
	// accumulator modes).
	OnRegisters
)

func (k OpKind) String() string {
	switch k {
	case ReadsValue:
		return "value"
	case UsesAddress:
		return "address"
	case OnRegisters:
		return "registers"
	}
	return fmt.Sprintf("OpKind(%d)", byte(k))
}

// An Operation pairs an addressing mode with the semantic function that
// consumes its result. Exactly one of the function fields is set, chosen
// by Kind.
type Operation struct {
	Mode Mode
	Kind OpKind

	read  func(c *CPU, v byte)
	write func(c *CPU, addr uint16)
	reg   func(c *CPU)

	// Branch condition. Only set for relative-mode operations, so the
	// cycle accounting can tell whether the branch will be taken.
	cond func(p Status) bool
}

// Build the operation for one (mnemonic, mode) pair.
func newOperation(mode Mode, im *opcodeImpl) Operation {
	op := Operation{Mode: mode}
	switch {
	case mode == IMP || mode == ACC:
		op.Kind, op.reg = OnRegisters, im.reg
	case mode == REL:
		op.Kind, op.cond = UsesAddress, im.cond
		op.write = branchIf(im.cond)
	case im.read != nil:
		op.Kind, op.read = ReadsValue, im.read
	default:
		op.Kind, op.write = UsesAddress, im.write
	}

	if op.read == nil && op.write == nil && op.reg == nil {
		panic(fmt.Sprintf("cpu: %s has no %v implementation", im.name, mode))
	}
	return op
}

// Returns the address-mode function of a conditional branch.
func branchIf(cond func(Status) bool) func(c *CPU, addr uint16) {
	return func(c *CPU, addr uint16) {
		if cond(c.Reg.P) {
			c.Reg.PC = addr
		}
	}
}

// Resolve the operand according to the addressing mode, then hand the
// semantic function what it asked for. PC must point just past the
// opcode byte.
func (op *Operation) dispatch(c *CPU) {
	switch op.Kind {
	case ReadsValue:
		var v byte
		if op.Mode == IMM {
			v = immediate(&c.Reg, c.Mem)
		} else {
			addr, _ := resolve(op.Mode, &c.Reg, c.Mem)
			v = c.load(addr)
		}
		op.read(c, v)

	case UsesAddress:
		addr, _ := resolve(op.Mode, &c.Reg, c.Mem)
		op.write(c, addr)

	case OnRegisters:
		op.reg(c)
	}
}
