// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Status is the processor status register. Each bit is an independent
// flag.
type Status byte

// Bits assigned to the processor status byte
const (
	Carry            Status = 1 << 0 // C
	Zero             Status = 1 << 1 // Z
	InterruptDisable Status = 1 << 2 // I
	Decimal          Status = 1 << 3 // D
	Break            Status = 1 << 4 // B
	Unused           Status = 1 << 5 // always set
	Overflow         Status = 1 << 6 // V
	Negative         Status = 1 << 7 // N
)

// Hardwired holds the status bits that read back as 1 no matter what was
// stored. Every derived setter ORs them back in.
const Hardwired = Break | Unused

// Contains returns true if all bits in f are set.
func (p Status) Contains(f Status) bool {
	return p&f == f
}

// Insert sets the bits in f.
func (p *Status) Insert(f Status) {
	*p |= f | Hardwired
}

// Remove clears the bits in f. Hardwired bits stay set.
func (p *Status) Remove(f Status) {
	*p = (*p &^ f) | Hardwired
}

// Set sets or clears the bits in f.
func (p *Status) Set(f Status, on bool) {
	if on {
		p.Insert(f)
	} else {
		p.Remove(f)
	}
}

// SetCarry sets the carry flag from bit 8 of a widened 8-bit result.
func (p *Status) SetCarry(result uint16) {
	p.Set(Carry, result&0x100 != 0)
}

// SetZero sets the zero flag if result is zero.
func (p *Status) SetZero(result byte) {
	p.Set(Zero, result == 0)
}

// SetNegative copies bit 7 of result into the negative flag.
func (p *Status) SetNegative(result byte) {
	p.Set(Negative, result&0x80 != 0)
}

// SetOverflow sets the overflow flag when result, read as a signed 16-bit
// value, does not fit in a signed byte.
func (p *Status) SetOverflow(result uint16) {
	v := int16(result)
	p.Set(Overflow, v < -128 || v > 127)
}

// setNZ updates the zero and negative flags from v.
func (p *Status) setNZ(v byte) {
	p.SetZero(v)
	p.SetNegative(v)
}

func (p Status) String() string {
	const names = "CZIDBUVN"
	var b [8]byte
	for i := 0; i < 8; i++ {
		c := names[i]
		if p&(1<<i) == 0 {
			c += 'a' - 'A'
		}
		b[7-i] = c
	}
	return string(b[:])
}
