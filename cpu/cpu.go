// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements the 2A03 CPU of the NES: an NMOS 6502 core
// without decimal mode, stepped one clock tick at a time.
package cpu

// CPU represents a single 2A03 CPU. It owns its registers and instruction
// pipeline and reaches everything else through the memory bus.
type CPU struct {
	Reg      Registers // CPU registers
	Mem      Bus       // assigned memory bus
	Cycles   uint64    // total elapsed clock ticks
	LastPC   uint16    // address of the most recently retired instruction
	pipeline Pipeline
	fetchPC  uint16 // address of the in-flight instruction
	debugger *Debugger
}

// Interrupt vectors
const (
	vectorNMI   = 0xfffa
	vectorReset = 0xfffc
	vectorBRK   = 0xfffe
)

// NewCPU creates an emulated CPU in its power-on state, bound to the
// specified memory bus. PC is left at zero; call Reset to load it from the
// reset vector.
func NewCPU(m Bus) *CPU {
	return &CPU{
		Reg: NewRegisters(),
		Mem: m,
	}
}

// SetPC updates the CPU program counter to 'addr', dropping any
// instruction in flight.
func (c *CPU) SetPC(addr uint16) {
	c.pipeline.Reset()
	c.Reg.PC = addr
}

// Reset performs the CPU reset sequence: the stack pointer drops by three,
// interrupts are disabled and PC is loaded from the reset vector.
func (c *CPU) Reset() {
	c.pipeline.Reset()
	c.Reg.SP -= 3
	c.Reg.P.Insert(InterruptDisable)
	c.Reg.PC = readWord(c.Mem, vectorReset)
}

// Pipeline returns the CPU's instruction pipeline.
func (c *CPU) Pipeline() *Pipeline {
	return &c.pipeline
}

// Cycle advances the CPU by one clock tick. When no instruction is in
// flight, the opcode at PC is fetched and its full cycle cost computed.
// The instruction's effects are applied on the last of those ticks, and
// Cycle returns true on that tick only.
//
// Fetching an opcode outside the official instruction set panics with an
// *UnimplementedOpcodeError.
func (c *CPU) Cycle() (retired bool) {
	if c.pipeline.Idle() {
		opcode := c.Mem.Read(c.Reg.PC)
		inst, ok := Find(opcode)
		if !ok {
			panic(&UnimplementedOpcodeError{Opcode: opcode, PC: c.Reg.PC, HasPC: true})
		}
		c.fetchPC = c.Reg.PC
		c.pipeline.Push(opcode, inst.CycleCost(c))
	}

	c.Cycles++
	opcode, ok := c.pipeline.Next()
	if !ok {
		return false
	}

	c.LastPC = c.fetchPC
	Lookup(opcode).Execute(c)

	if c.debugger != nil {
		c.debugger.onUpdatePC(c, c.Reg.PC)
	}
	return true
}

// Step runs the CPU until the next instruction retires and returns the
// number of clock ticks that took.
func (c *CPU) Step() int {
	n := 1
	for !c.Cycle() {
		n++
	}
	return n
}

// AttachDebugger attaches a debugger to the CPU. The debugger receives
// notifications whenever the CPU retires an instruction or stores a byte
// to memory.
func (c *CPU) AttachDebugger(debugger *Debugger) {
	c.debugger = debugger
}

// DetachDebugger detaches the current debugger from the CPU.
func (c *CPU) DetachDebugger() {
	c.debugger = nil
}

// Load a byte through the bus.
func (c *CPU) load(addr uint16) byte {
	return c.Mem.Read(addr)
}

// Store the byte value 'v' at the address 'addr'.
func (c *CPU) store(addr uint16, v byte) {
	if c.debugger != nil {
		c.debugger.onDataStore(c, addr, v)
	}
	c.Mem.Write(addr, v)
}

// PushStack pushes a value onto the hardware stack at $0100+SP. The stack
// pointer wraps within page one; nothing guards against overflow.
func (c *CPU) PushStack(v byte) {
	c.store(stackAddress(c.Reg.SP), v)
	c.Reg.SP--
}

// PopStack pops a value from the hardware stack.
func (c *CPU) PopStack() byte {
	c.Reg.SP++
	return c.load(stackAddress(c.Reg.SP))
}

// PushWord pushes a 16-bit value, high byte first.
func (c *CPU) PushWord(v uint16) {
	c.PushStack(byte(v >> 8))
	c.PushStack(byte(v))
}

// PopWord pops a 16-bit value pushed by PushWord.
func (c *CPU) PopWord() uint16 {
	lo := c.PopStack()
	hi := c.PopStack()
	return uint16(lo) | uint16(hi)<<8
}

// Shared by ADC and SBC. Carry and overflow come from widening the sum to
// 16 bits, unsigned and signed respectively.
func (c *CPU) addWithCarry(v byte) {
	carry := boolToByte(c.Reg.P.Contains(Carry))
	sum := uint16(c.Reg.A) + uint16(v) + uint16(carry)
	signed := int16(int8(c.Reg.A)) + int16(int8(v)) + int16(carry)

	c.Reg.P.SetCarry(sum)
	c.Reg.P.SetOverflow(uint16(signed))
	c.Reg.A = byte(sum)
	c.Reg.P.setNZ(c.Reg.A)
}

func (c *CPU) compare(reg, v byte) {
	c.Reg.P.Set(Carry, reg >= v)
	c.Reg.P.setNZ(reg - v)
}

func (c *CPU) shiftLeft(v byte) byte {
	c.Reg.P.SetCarry(uint16(v) << 1)
	v <<= 1
	c.Reg.P.setNZ(v)
	return v
}

func (c *CPU) shiftRight(v byte) byte {
	c.Reg.P.Set(Carry, v&1 != 0)
	v >>= 1
	c.Reg.P.setNZ(v)
	return v
}

func (c *CPU) rotateLeft(v byte) byte {
	r := uint16(v)<<1 | uint16(boolToByte(c.Reg.P.Contains(Carry)))
	c.Reg.P.SetCarry(r)
	v = byte(r)
	c.Reg.P.setNZ(v)
	return v
}

func (c *CPU) rotateRight(v byte) byte {
	r := v>>1 | boolToByte(c.Reg.P.Contains(Carry))<<7
	c.Reg.P.Set(Carry, v&1 != 0)
	c.Reg.P.setNZ(r)
	return r
}

// Add with carry
func (c *CPU) adc(v byte) {
	c.addWithCarry(v)
}

// Boolean AND
func (c *CPU) and(v byte) {
	c.Reg.A &= v
	c.Reg.P.setNZ(c.Reg.A)
}

// Arithmetic Shift Left (accumulator)
func (c *CPU) asla() {
	c.Reg.A = c.shiftLeft(c.Reg.A)
}

// Arithmetic Shift Left (memory)
func (c *CPU) aslm(addr uint16) {
	c.store(addr, c.shiftLeft(c.load(addr)))
}

// Bit Test
func (c *CPU) bit(v byte) {
	c.Reg.P.SetZero(v & c.Reg.A)
	c.Reg.P.SetNegative(v)
	c.Reg.P.Set(Overflow, v&0x40 != 0)
}

// Break. The byte after the opcode is padding and is skipped, so the
// return address pushed is the opcode address plus two.
func (c *CPU) brk() {
	c.Reg.PC++
	c.PushWord(c.Reg.PC)
	c.PushStack(byte(c.Reg.P | Break | Unused))
	c.Reg.P.Insert(InterruptDisable)
	c.Reg.PC = readWord(c.Mem, vectorBRK)
}

// Clear Carry flag
func (c *CPU) clc() {
	c.Reg.P.Remove(Carry)
}

// Clear Decimal flag
func (c *CPU) cld() {
	c.Reg.P.Remove(Decimal)
}

// Clear InterruptDisable flag
func (c *CPU) cli() {
	c.Reg.P.Remove(InterruptDisable)
}

// Clear oVerflow flag
func (c *CPU) clv() {
	c.Reg.P.Remove(Overflow)
}

// Compare to accumulator
func (c *CPU) cmp(v byte) {
	c.compare(c.Reg.A, v)
}

// Compare to X register
func (c *CPU) cpx(v byte) {
	c.compare(c.Reg.X, v)
}

// Compare to Y register
func (c *CPU) cpy(v byte) {
	c.compare(c.Reg.Y, v)
}

// Decrement memory value
func (c *CPU) dec(addr uint16) {
	v := c.load(addr) - 1
	c.Reg.P.setNZ(v)
	c.store(addr, v)
}

// Decrement X register
func (c *CPU) dex() {
	c.Reg.X--
	c.Reg.P.setNZ(c.Reg.X)
}

// Decrement Y register
func (c *CPU) dey() {
	c.Reg.Y--
	c.Reg.P.setNZ(c.Reg.Y)
}

// Boolean XOR
func (c *CPU) eor(v byte) {
	c.Reg.A ^= v
	c.Reg.P.setNZ(c.Reg.A)
}

// Increment memory value
func (c *CPU) inc(addr uint16) {
	v := c.load(addr) + 1
	c.Reg.P.setNZ(v)
	c.store(addr, v)
}

// Increment X register
func (c *CPU) inx() {
	c.Reg.X++
	c.Reg.P.setNZ(c.Reg.X)
}

// Increment Y register
func (c *CPU) iny() {
	c.Reg.Y++
	c.Reg.P.setNZ(c.Reg.Y)
}

// Jump to memory address
func (c *CPU) jmp(addr uint16) {
	c.Reg.PC = addr
}

// Jump to subroutine. The pushed return address is the last byte of the
// JSR instruction; RTS adds the missing one.
func (c *CPU) jsr(addr uint16) {
	c.PushWord(c.Reg.PC - 1)
	c.Reg.PC = addr
}

// Load Accumulator
func (c *CPU) lda(v byte) {
	c.Reg.A = v
	c.Reg.P.setNZ(v)
}

// Load the X register
func (c *CPU) ldx(v byte) {
	c.Reg.X = v
	c.Reg.P.setNZ(v)
}

// Load the Y register
func (c *CPU) ldy(v byte) {
	c.Reg.Y = v
	c.Reg.P.setNZ(v)
}

// Logical Shift Right (accumulator)
func (c *CPU) lsra() {
	c.Reg.A = c.shiftRight(c.Reg.A)
}

// Logical Shift Right (memory)
func (c *CPU) lsrm(addr uint16) {
	c.store(addr, c.shiftRight(c.load(addr)))
}

// No-operation
func (c *CPU) nop() {
}

// Boolean OR
func (c *CPU) ora(v byte) {
	c.Reg.A |= v
	c.Reg.P.setNZ(c.Reg.A)
}

// Push Accumulator
func (c *CPU) pha() {
	c.PushStack(c.Reg.A)
}

// Push Processor flags. The pushed copy always has B and bit 5 set.
func (c *CPU) php() {
	c.PushStack(byte(c.Reg.P | Break | Unused))
}

// Pull (pop) Accumulator
func (c *CPU) pla() {
	c.Reg.A = c.PopStack()
	c.Reg.P.setNZ(c.Reg.A)
}

// Pull (pop) Processor flags
func (c *CPU) plp() {
	c.Reg.P = Status(c.PopStack()) | Hardwired
}

// Rotate Left (accumulator)
func (c *CPU) rola() {
	c.Reg.A = c.rotateLeft(c.Reg.A)
}

// Rotate Left (memory)
func (c *CPU) rolm(addr uint16) {
	c.store(addr, c.rotateLeft(c.load(addr)))
}

// Rotate Right (accumulator)
func (c *CPU) rora() {
	c.Reg.A = c.rotateRight(c.Reg.A)
}

// Rotate Right (memory)
func (c *CPU) rorm(addr uint16) {
	c.store(addr, c.rotateRight(c.load(addr)))
}

// Return from Interrupt
func (c *CPU) rti() {
	c.Reg.P = Status(c.PopStack()) | Hardwired
	c.Reg.PC = c.PopWord()
}

// Return from Subroutine
func (c *CPU) rts() {
	c.Reg.PC = c.PopWord() + 1
}

// Subtract with Carry. A - v - !C is the same sum as A + ^v + C.
func (c *CPU) sbc(v byte) {
	c.addWithCarry(^v)
}

// Set Carry flag
func (c *CPU) sec() {
	c.Reg.P.Insert(Carry)
}

// Set Decimal flag
func (c *CPU) sed() {
	c.Reg.P.Insert(Decimal)
}

// Set InterruptDisable flag
func (c *CPU) sei() {
	c.Reg.P.Insert(InterruptDisable)
}

// Store Accumulator
func (c *CPU) sta(addr uint16) {
	c.store(addr, c.Reg.A)
}

// Store X register
func (c *CPU) stx(addr uint16) {
	c.store(addr, c.Reg.X)
}

// Store Y register
func (c *CPU) sty(addr uint16) {
	c.store(addr, c.Reg.Y)
}

// Transfer Accumulator to X register
func (c *CPU) tax() {
	c.Reg.X = c.Reg.A
	c.Reg.P.setNZ(c.Reg.X)
}

// Transfer Accumulator to Y register
func (c *CPU) tay() {
	c.Reg.Y = c.Reg.A
	c.Reg.P.setNZ(c.Reg.Y)
}

// Transfer stack pointer to X register
func (c *CPU) tsx() {
	c.Reg.X = c.Reg.SP
	c.Reg.P.setNZ(c.Reg.X)
}

// Transfer X register to Accumulator
func (c *CPU) txa() {
	c.Reg.A = c.Reg.X
	c.Reg.P.setNZ(c.Reg.A)
}

// Transfer X register to the stack pointer
func (c *CPU) txs() {
	c.Reg.SP = c.Reg.X
}

// Transfer Y register to the Accumulator
func (c *CPU) tya() {
	c.Reg.A = c.Reg.Y
	c.Reg.P.setNZ(c.Reg.A)
}
