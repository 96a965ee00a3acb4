// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"fmt"
	"strings"
)

// An opsym is an internal symbol used to associate an opcode's data
// with its instructions.
type opsym byte

const (
	symADC opsym = iota
	symAND
	symASL
	symBCC
	symBCS
	symBEQ
	symBIT
	symBMI
	symBNE
	symBPL
	symBRK
	symBVC
	symBVS
	symCLC
	symCLD
	symCLI
	symCLV
	symCMP
	symCPX
	symCPY
	symDEC
	symDEX
	symDEY
	symEOR
	symINC
	symINX
	symINY
	symJMP
	symJSR
	symLDA
	symLDX
	symLDY
	symLSR
	symNOP
	symORA
	symPHA
	symPHP
	symPLA
	symPLP
	symROL
	symROR
	symRTI
	symRTS
	symSBC
	symSEC
	symSED
	symSEI
	symSTA
	symSTX
	symSTY
	symTAX
	symTAY
	symTSX
	symTXA
	symTXS
	symTYA
)

// Semantic function for each mnemonic. Exactly one of read, write or cond
// is set for memory forms. reg is set for the implied form, or for the
// accumulator form of the shift and rotate instructions.
type opcodeImpl struct {
	sym   opsym
	name  string
	read  func(c *CPU, v byte)
	write func(c *CPU, addr uint16)
	reg   func(c *CPU)
	cond  func(p Status) bool
}

var impl = []opcodeImpl{
	{sym: symADC, name: "ADC", read: (*CPU).adc},
	{sym: symAND, name: "AND", read: (*CPU).and},
	{sym: symASL, name: "ASL", write: (*CPU).aslm, reg: (*CPU).asla},
	{sym: symBCC, name: "BCC", cond: flagClear(Carry)},
	{sym: symBCS, name: "BCS", cond: flagSet(Carry)},
	{sym: symBEQ, name: "BEQ", cond: flagSet(Zero)},
	{sym: symBIT, name: "BIT", read: (*CPU).bit},
	{sym: symBMI, name: "BMI", cond: flagSet(Negative)},
	{sym: symBNE, name: "BNE", cond: flagClear(Zero)},
	{sym: symBPL, name: "BPL", cond: flagClear(Negative)},
	{sym: symBRK, name: "BRK", reg: (*CPU).brk},
	{sym: symBVC, name: "BVC", cond: flagClear(Overflow)},
	{sym: symBVS, name: "BVS", cond: flagSet(Overflow)},
	{sym: symCLC, name: "CLC", reg: (*CPU).clc},
	{sym: symCLD, name: "CLD", reg: (*CPU).cld},
	{sym: symCLI, name: "CLI", reg: (*CPU).cli},
	{sym: symCLV, name: "CLV", reg: (*CPU).clv},
	{sym: symCMP, name: "CMP", read: (*CPU).cmp},
	{sym: symCPX, name: "CPX", read: (*CPU).cpx},
	{sym: symCPY, name: "CPY", read: (*CPU).cpy},
	{sym: symDEC, name: "DEC", write: (*CPU).dec},
	{sym: symDEX, name: "DEX", reg: (*CPU).dex},
	{sym: symDEY, name: "DEY", reg: (*CPU).dey},
	{sym: symEOR, name: "EOR", read: (*CPU).eor},
	{sym: symINC, name: "INC", write: (*CPU).inc},
	{sym: symINX, name: "INX", reg: (*CPU).inx},
	{sym: symINY, name: "INY", reg: (*CPU).iny},
	{sym: symJMP, name: "JMP", write: (*CPU).jmp},
	{sym: symJSR, name: "JSR", write: (*CPU).jsr},
	{sym: symLDA, name: "LDA", read: (*CPU).lda},
	{sym: symLDX, name: "LDX", read: (*CPU).ldx},
	{sym: symLDY, name: "LDY", read: (*CPU).ldy},
	{sym: symLSR, name: "LSR", write: (*CPU).lsrm, reg: (*CPU).lsra},
	{sym: symNOP, name: "NOP", reg: (*CPU).nop},
	{sym: symORA, name: "ORA", read: (*CPU).ora},
	{sym: symPHA, name: "PHA", reg: (*CPU).pha},
	{sym: symPHP, name: "PHP", reg: (*CPU).php},
	{sym: symPLA, name: "PLA", reg: (*CPU).pla},
	{sym: symPLP, name: "PLP", reg: (*CPU).plp},
	{sym: symROL, name: "ROL", write: (*CPU).rolm, reg: (*CPU).rola},
	{sym: symROR, name: "ROR", write: (*CPU).rorm, reg: (*CPU).rora},
	{sym: symRTI, name: "RTI", reg: (*CPU).rti},
	{sym: symRTS, name: "RTS", reg: (*CPU).rts},
	{sym: symSBC, name: "SBC", read: (*CPU).sbc},
	{sym: symSEC, name: "SEC", reg: (*CPU).sec},
	{sym: symSED, name: "SED", reg: (*CPU).sed},
	{sym: symSEI, name: "SEI", reg: (*CPU).sei},
	{sym: symSTA, name: "STA", write: (*CPU).sta},
	{sym: symSTX, name: "STX", write: (*CPU).stx},
	{sym: symSTY, name: "STY", write: (*CPU).sty},
	{sym: symTAX, name: "TAX", reg: (*CPU).tax},
	{sym: symTAY, name: "TAY", reg: (*CPU).tay},
	{sym: symTSX, name: "TSX", reg: (*CPU).tsx},
	{sym: symTXA, name: "TXA", reg: (*CPU).txa},
	{sym: symTXS, name: "TXS", reg: (*CPU).txs},
	{sym: symTYA, name: "TYA", reg: (*CPU).tya},
}

func flagSet(f Status) func(Status) bool {
	return func(p Status) bool { return p&f != 0 }
}

func flagClear(f Status) func(Status) bool {
	return func(p Status) bool { return p&f == 0 }
}

// Extra selects the conditional cycle surcharge an instruction pays on top
// of its base cycle count.
type Extra byte

const (
	// ExtraNone instructions always take their base cycle count.
	ExtraNone Extra = iota

	// ExtraPageBoundary instructions take one more cycle when indexing
	// carries the effective address into another page.
	ExtraPageBoundary

	// ExtraBranch instructions take one more cycle when the branch is
	// taken, and another when the taken branch lands in another page.
	ExtraBranch
)

func (e Extra) String() string {
	switch e {
	case ExtraNone:
		return "none"
	case ExtraPageBoundary:
		return "page"
	case ExtraBranch:
		return "branch"
	}
	return fmt.Sprintf("Extra(%d)", byte(e))
}

// Opcode data for an (opcode, mode) pair
type opcodeData struct {
	sym    opsym // internal opcode symbol
	mode   Mode  // addressing mode
	opcode byte  // opcode hex value
	cycles byte  // number of CPU cycles to execute command
	extra  Extra // conditional cycle surcharge
}

const (
	none   = ExtraNone
	page   = ExtraPageBoundary
	branch = ExtraBranch
)

// All valid (opcode, mode) pairs
var data = []opcodeData{
	{symLDA, IMM, 0xa9, 2, none},
	{symLDA, ZPG, 0xa5, 3, none},
	{symLDA, ZPX, 0xb5, 4, none},
	{symLDA, ABS, 0xad, 4, none},
	{symLDA, ABX, 0xbd, 4, page},
	{symLDA, ABY, 0xb9, 4, page},
	{symLDA, IDX, 0xa1, 6, none},
	{symLDA, IDY, 0xb1, 5, page},

	{symLDX, IMM, 0xa2, 2, none},
	{symLDX, ZPG, 0xa6, 3, none},
	{symLDX, ZPY, 0xb6, 4, none},
	{symLDX, ABS, 0xae, 4, none},
	{symLDX, ABY, 0xbe, 4, page},

	{symLDY, IMM, 0xa0, 2, none},
	{symLDY, ZPG, 0xa4, 3, none},
	{symLDY, ZPX, 0xb4, 4, none},
	{symLDY, ABS, 0xac, 4, none},
	{symLDY, ABX, 0xbc, 4, page},

	{symSTA, ZPG, 0x85, 3, none},
	{symSTA, ZPX, 0x95, 4, none},
	{symSTA, ABS, 0x8d, 4, none},
	{symSTA, ABX, 0x9d, 5, none},
	{symSTA, ABY, 0x99, 5, none},
	{symSTA, IDX, 0x81, 6, none},
	{symSTA, IDY, 0x91, 6, none},

	{symSTX, ZPG, 0x86, 3, none},
	{symSTX, ZPY, 0x96, 4, none},
	{symSTX, ABS, 0x8e, 4, none},

	{symSTY, ZPG, 0x84, 3, none},
	{symSTY, ZPX, 0x94, 4, none},
	{symSTY, ABS, 0x8c, 4, none},

	{symADC, IMM, 0x69, 2, none},
	{symADC, ZPG, 0x65, 3, none},
	{symADC, ZPX, 0x75, 4, none},
	{symADC, ABS, 0x6d, 4, none},
	{symADC, ABX, 0x7d, 4, page},
	{symADC, ABY, 0x79, 4, page},
	{symADC, IDX, 0x61, 6, none},
	{symADC, IDY, 0x71, 5, page},

	{symSBC, IMM, 0xe9, 2, none},
	{symSBC, ZPG, 0xe5, 3, none},
	{symSBC, ZPX, 0xf5, 4, none},
	{symSBC, ABS, 0xed, 4, none},
	{symSBC, ABX, 0xfd, 4, page},
	{symSBC, ABY, 0xf9, 4, page},
	{symSBC, IDX, 0xe1, 6, none},
	{symSBC, IDY, 0xf1, 5, page},

	{symCMP, IMM, 0xc9, 2, none},
	{symCMP, ZPG, 0xc5, 3, none},
	{symCMP, ZPX, 0xd5, 4, none},
	{symCMP, ABS, 0xcd, 4, none},
	{symCMP, ABX, 0xdd, 4, page},
	{symCMP, ABY, 0xd9, 4, page},
	{symCMP, IDX, 0xc1, 6, none},
	{symCMP, IDY, 0xd1, 5, page},

	{symCPX, IMM, 0xe0, 2, none},
	{symCPX, ZPG, 0xe4, 3, none},
	{symCPX, ABS, 0xec, 4, none},

	{symCPY, IMM, 0xc0, 2, none},
	{symCPY, ZPG, 0xc4, 3, none},
	{symCPY, ABS, 0xcc, 4, none},

	{symBIT, ZPG, 0x24, 3, none},
	{symBIT, ABS, 0x2c, 4, none},

	{symCLC, IMP, 0x18, 2, none},
	{symSEC, IMP, 0x38, 2, none},
	{symCLI, IMP, 0x58, 2, none},
	{symSEI, IMP, 0x78, 2, none},
	{symCLD, IMP, 0xd8, 2, none},
	{symSED, IMP, 0xf8, 2, none},
	{symCLV, IMP, 0xb8, 2, none},

	{symBCC, REL, 0x90, 2, branch},
	{symBCS, REL, 0xb0, 2, branch},
	{symBEQ, REL, 0xf0, 2, branch},
	{symBNE, REL, 0xd0, 2, branch},
	{symBMI, REL, 0x30, 2, branch},
	{symBPL, REL, 0x10, 2, branch},
	{symBVC, REL, 0x50, 2, branch},
	{symBVS, REL, 0x70, 2, branch},

	{symBRK, IMP, 0x00, 7, none},

	{symAND, IMM, 0x29, 2, none},
	{symAND, ZPG, 0x25, 3, none},
	{symAND, ZPX, 0x35, 4, none},
	{symAND, ABS, 0x2d, 4, none},
	{symAND, ABX, 0x3d, 4, page},
	{symAND, ABY, 0x39, 4, page},
	{symAND, IDX, 0x21, 6, none},
	{symAND, IDY, 0x31, 5, page},

	{symORA, IMM, 0x09, 2, none},
	{symORA, ZPG, 0x05, 3, none},
	{symORA, ZPX, 0x15, 4, none},
	{symORA, ABS, 0x0d, 4, none},
	{symORA, ABX, 0x1d, 4, page},
	{symORA, ABY, 0x19, 4, page},
	{symORA, IDX, 0x01, 6, none},
	{symORA, IDY, 0x11, 5, page},

	{symEOR, IMM, 0x49, 2, none},
	{symEOR, ZPG, 0x45, 3, none},
	{symEOR, ZPX, 0x55, 4, none},
	{symEOR, ABS, 0x4d, 4, none},
	{symEOR, ABX, 0x5d, 4, page},
	{symEOR, ABY, 0x59, 4, page},
	{symEOR, IDX, 0x41, 6, none},
	{symEOR, IDY, 0x51, 5, page},

	{symINC, ZPG, 0xe6, 5, none},
	{symINC, ZPX, 0xf6, 6, none},
	{symINC, ABS, 0xee, 6, none},
	{symINC, ABX, 0xfe, 7, none},

	{symDEC, ZPG, 0xc6, 5, none},
	{symDEC, ZPX, 0xd6, 6, none},
	{symDEC, ABS, 0xce, 6, none},
	{symDEC, ABX, 0xde, 7, none},

	{symINX, IMP, 0xe8, 2, none},
	{symINY, IMP, 0xc8, 2, none},

	{symDEX, IMP, 0xca, 2, none},
	{symDEY, IMP, 0x88, 2, none},

	{symJMP, ABS, 0x4c, 3, none},
	{symJMP, IND, 0x6c, 5, none},

	{symJSR, ABS, 0x20, 6, none},
	{symRTS, IMP, 0x60, 6, none},

	{symRTI, IMP, 0x40, 6, none},

	{symNOP, IMP, 0xea, 2, none},

	{symTAX, IMP, 0xaa, 2, none},
	{symTXA, IMP, 0x8a, 2, none},
	{symTAY, IMP, 0xa8, 2, none},
	{symTYA, IMP, 0x98, 2, none},
	{symTXS, IMP, 0x9a, 2, none},
	{symTSX, IMP, 0xba, 2, none},

	{symPHA, IMP, 0x48, 3, none},
	{symPLA, IMP, 0x68, 4, none},
	{symPHP, IMP, 0x08, 3, none},
	{symPLP, IMP, 0x28, 4, none},

	{symASL, ACC, 0x0a, 2, none},
	{symASL, ZPG, 0x06, 5, none},
	{symASL, ZPX, 0x16, 6, none},
	{symASL, ABS, 0x0e, 6, none},
	{symASL, ABX, 0x1e, 7, none},

	{symLSR, ACC, 0x4a, 2, none},
	{symLSR, ZPG, 0x46, 5, none},
	{symLSR, ZPX, 0x56, 6, none},
	{symLSR, ABS, 0x4e, 6, none},
	{symLSR, ABX, 0x5e, 7, none},

	{symROL, ACC, 0x2a, 2, none},
	{symROL, ZPG, 0x26, 5, none},
	{symROL, ZPX, 0x36, 6, none},
	{symROL, ABS, 0x2e, 6, none},
	{symROL, ABX, 0x3e, 7, none},

	{symROR, ACC, 0x6a, 2, none},
	{symROR, ZPG, 0x66, 5, none},
	{symROR, ZPX, 0x76, 6, none},
	{symROR, ABS, 0x6e, 6, none},
	{symROR, ABX, 0x7e, 7, none},
}

// An Instruction describes one (mnemonic, addressing mode) pair of the
// CPU: its opcode, its operand size, its cycle cost and the operation
// that carries it out. Instructions are built once and never modified.
type Instruction struct {
	Name   string    // all-caps name of the instruction
	Mode   Mode      // addressing mode
	Opcode byte      // hexadecimal opcode value
	Length byte      // combined size of opcode and operand, in bytes
	Cycles int       // base number of CPU cycles
	Extra  Extra     // conditional cycle surcharge
	Op     Operation // addressing mode plus semantic function
}

// Execute carries out the instruction on the CPU. PC must point at the
// instruction's opcode byte.
func (inst *Instruction) Execute(c *CPU) {
	c.Reg.PC++
	inst.Op.dispatch(c)
}

// CycleCost returns the total number of clock ticks the instruction will
// take when executed from the CPU's current state. PC must point at the
// instruction's opcode byte. The CPU state is not modified. Operand bytes
// are read through Peek when the bus is a Peeker; otherwise they are read
// a second time and must be free of side effects.
func (inst *Instruction) CycleCost(c *CPU) int {
	cycles := inst.Cycles
	if inst.Extra == ExtraNone {
		return cycles
	}

	r := c.Reg
	r.PC++
	_, pageCrossed := resolve(inst.Mode, &r, quietBus(c.Mem))

	switch inst.Extra {
	case ExtraPageBoundary:
		if pageCrossed {
			cycles++
		}
	case ExtraBranch:
		if inst.Op.cond(r.P) {
			cycles++
			if pageCrossed {
				cycles++
			}
		}
	}
	return cycles
}

func (inst *Instruction) String() string {
	return fmt.Sprintf("%02X %s %v", inst.Opcode, inst.Name, inst.Mode)
}

var (
	instructions [256]*Instruction
	variants     map[string][]*Instruction
)

func init() {
	symToImpl := make(map[opsym]*opcodeImpl, len(impl))
	for i := range impl {
		symToImpl[impl[i].sym] = &impl[i]
	}

	variants = make(map[string][]*Instruction)
	for _, d := range data {
		if instructions[d.opcode] != nil {
			panic(fmt.Sprintf("cpu: duplicate opcode $%02X", d.opcode))
		}
		im := symToImpl[d.sym]
		inst := &Instruction{
			Name:   im.name,
			Mode:   d.mode,
			Opcode: d.opcode,
			Length: byte(1 + d.mode.OperandBytes()),
			Cycles: int(d.cycles),
			Extra:  d.extra,
			Op:     newOperation(d.mode, im),
		}
		instructions[d.opcode] = inst
		variants[inst.Name] = append(variants[inst.Name], inst)
	}
}

// Lookup returns the instruction for an opcode. Looking up an opcode that
// is not part of the official instruction set is fatal: it panics with an
// *UnimplementedOpcodeError.
func Lookup(opcode byte) *Instruction {
	inst := instructions[opcode]
	if inst == nil {
		panic(&UnimplementedOpcodeError{Opcode: opcode})
	}
	return inst
}

// Find returns the instruction for an opcode, or false if the opcode is
// not part of the official instruction set.
func Find(opcode byte) (*Instruction, bool) {
	inst := instructions[opcode]
	return inst, inst != nil
}

// FindByName returns the variant of the named instruction that uses the
// requested addressing mode.
func FindByName(name string, mode Mode) (*Instruction, bool) {
	for _, inst := range variants[strings.ToUpper(name)] {
		if inst.Mode == mode {
			return inst, true
		}
	}
	return nil, false
}

// Variants returns all instructions whose name matches the provided
// string.
func Variants(name string) []*Instruction {
	return variants[strings.ToUpper(name)]
}
