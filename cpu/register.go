// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "fmt"

// Registers contains the state of all 2A03 registers.
type Registers struct {
	A  byte   // accumulator
	X  byte   // X indexing register
	Y  byte   // Y indexing register
	PC uint16 // program counter
	SP byte   // stack pointer ($100 + SP = stack memory location)
	P  Status // processor status flags
}

// Power-on register values.
const (
	powerOnSP = 0xfd
	powerOnP  = InterruptDisable | Hardwired
)

// NewRegisters returns the register state of a freshly powered-on CPU.
func NewRegisters() Registers {
	return Registers{SP: powerOnSP, P: powerOnP}
}

// EmptyRegisters returns a register set with every bit cleared, including
// the hardwired status bits. Useful for tests that want to observe exactly
// which flags an instruction touches.
func EmptyRegisters() Registers {
	return Registers{}
}

func (r Registers) String() string {
	return fmt.Sprintf("A=%02X X=%02X Y=%02X PC=%04X SP=%02X P=%s",
		r.A, r.X, r.Y, r.PC, r.SP, r.P)
}

func boolToByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
